// service/standard_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/conformd/conformd/dao"
	conformd_errors "github.com/conformd/conformd/errors"
	logger "github.com/conformd/conformd/logging"
	"github.com/conformd/conformd/model"
	"github.com/conformd/conformd/registry"
	"github.com/conformd/conformd/util"
)

// StandardService handles business logic for standard operations. It
// keeps the in-memory registry in lockstep with the persisted graph so
// evaluation never touches the database.
type StandardService struct {
	standardDAO     *dao.StandardDAO
	registry        *registry.Registry
	validationUtil  *util.ValidationUtil
	cacheService    *util.CacheService
	notificationSvc *util.NotificationService
	eventBus        *util.EventBus
}

// NewStandardService creates a new instance of StandardService
func NewStandardService(standardDAO *dao.StandardDAO, reg *registry.Registry, validationUtil *util.ValidationUtil, cacheService *util.CacheService, notificationSvc *util.NotificationService, eventBus *util.EventBus) *StandardService {
	service := &StandardService{
		standardDAO:     standardDAO,
		registry:        reg,
		validationUtil:  validationUtil,
		cacheService:    cacheService,
		notificationSvc: notificationSvc,
		eventBus:        eventBus,
	}

	// Set up event subscriptions
	eventBus.Subscribe("standard.created", service.handleStandardCreated)
	eventBus.Subscribe("standard.updated", service.handleStandardUpdated)
	eventBus.Subscribe("standard.deleted", service.handleStandardDeleted)

	return service
}

// HydrateRegistry loads every persisted standard into the in-memory
// registry. Called once at startup, after the standard packs have been
// loaded from disk.
func (s *StandardService) HydrateRegistry(ctx context.Context) error {
	const pageSize = 100
	offset := 0
	loaded := 0

	for {
		standards, err := s.standardDAO.ListStandards(ctx, pageSize, offset)
		if err != nil {
			return fmt.Errorf("failed to hydrate registry: %w", err)
		}
		if len(standards) == 0 {
			break
		}

		for _, standard := range standards {
			full, err := s.standardDAO.GetStandard(ctx, standard.ID)
			if err != nil {
				return fmt.Errorf("failed to hydrate standard %s: %w", standard.ID, err)
			}
			if err := s.registry.RegisterStandard(*full); err != nil {
				// Already present, e.g. loaded from a standard pack
				if errors.Is(err, conformd_errors.ErrStandardConflict) || errors.Is(err, conformd_errors.ErrDuplicateIdentifier) {
					continue
				}
				return err
			}
			loaded++
		}
		offset += pageSize
	}

	logger.Info("Registry hydrated from database", zap.Int("standards", loaded))
	return nil
}

func (s *StandardService) handleStandardCreated(ctx context.Context, event util.Event) error {
	standard, ok := event.Payload.(model.Standard)
	if !ok {
		logger.Error("Invalid event payload type", zap.Any("payload", event.Payload))
		return fmt.Errorf("invalid event payload type: %T", event.Payload)
	}
	logger.Info("Standard created event received", zap.String("standardID", standard.ID))

	if err := s.notificationSvc.NotifyStandardChange(ctx, "created", standard); err != nil {
		logger.Warn("Failed to send standard creation notification", zap.Error(err), zap.String("standardID", standard.ID))
	}
	return nil
}

func (s *StandardService) handleStandardUpdated(ctx context.Context, event util.Event) error {
	standard, ok := event.Payload.(model.Standard)
	if !ok {
		logger.Error("Invalid event payload type", zap.Any("payload", event.Payload))
		return fmt.Errorf("invalid event payload type: %T", event.Payload)
	}
	logger.Info("Standard updated event received",
		zap.String("standardID", standard.ID),
		zap.Int("revision", standard.Revision))

	if err := s.notificationSvc.NotifyStandardChange(ctx, "updated", standard); err != nil {
		logger.Warn("Failed to send standard update notification", zap.Error(err), zap.String("standardID", standard.ID))
	}
	return nil
}

func (s *StandardService) handleStandardDeleted(ctx context.Context, event util.Event) error {
	standardID, ok := event.Payload.(string)
	if !ok {
		logger.Error("Invalid event payload type", zap.Any("payload", event.Payload))
		return fmt.Errorf("invalid event payload type: %T", event.Payload)
	}
	logger.Info("Standard deleted event received", zap.String("standardID", standardID))

	if err := s.notificationSvc.NotifyStandardChange(ctx, "deleted", model.Standard{ID: standardID}); err != nil {
		logger.Warn("Failed to send standard deletion notification", zap.Error(err), zap.String("standardID", standardID))
	}
	return nil
}

// CreateStandard handles the registration of a new standard
func (s *StandardService) CreateStandard(ctx context.Context, standard model.Standard, actorID string) (*model.Standard, error) {
	if err := s.validationUtil.ValidateStandard(standard); err != nil {
		return nil, fmt.Errorf("%w: %v", conformd_errors.ErrInvalidStandardData, err)
	}

	standard.CreatedAt = time.Now()
	standard.UpdatedAt = time.Now()
	standard.Revision = 1

	standardID, err := s.standardDAO.CreateStandard(ctx, standard, actorID)
	if err != nil {
		logger.Error("Error creating standard", zap.Error(err), zap.String("actorID", actorID))
		return nil, err
	}
	standard.ID = standardID

	if err := s.registry.RegisterStandard(standard); err != nil {
		logger.Warn("Failed to register standard in registry", zap.Error(err), zap.String("standardID", standardID))
	}

	// Update cache
	if err := s.cacheService.SetStandard(ctx, standard); err != nil {
		logger.Warn("Failed to cache standard", zap.Error(err), zap.String("standardID", standardID))
	}

	// Publish event for asynchronous processing
	s.eventBus.Publish(ctx, "standard.created", standard)

	logger.Info("Standard created successfully", zap.String("standardID", standardID), zap.String("actorID", actorID))
	return &standard, nil
}

// UpdateStandard handles updates to an existing standard
func (s *StandardService) UpdateStandard(ctx context.Context, standard model.Standard, actorID string) (*model.Standard, error) {
	if err := s.validationUtil.ValidateStandard(standard); err != nil {
		return nil, fmt.Errorf("%w: %v", conformd_errors.ErrInvalidStandardData, err)
	}

	oldStandard, err := s.standardDAO.GetStandard(ctx, standard.ID)
	if err != nil {
		logger.Error("Error retrieving existing standard", zap.Error(err), zap.String("standardID", standard.ID))
		return nil, err
	}

	standard.UpdatedAt = time.Now()
	standard.Revision = oldStandard.Revision + 1

	updatedStandard, err := s.standardDAO.UpdateStandard(ctx, standard, actorID)
	if err != nil {
		logger.Error("Error updating standard", zap.Error(err), zap.String("standardID", standard.ID), zap.String("actorID", actorID))
		return nil, err
	}

	if err := s.registry.ReplaceStandard(*updatedStandard); err != nil {
		logger.Warn("Failed to replace standard in registry", zap.Error(err), zap.String("standardID", standard.ID))
	}

	// Update cache
	if err := s.cacheService.SetStandard(ctx, *updatedStandard); err != nil {
		logger.Warn("Failed to update standard in cache", zap.Error(err), zap.String("standardID", standard.ID))
	}

	// Publish event for asynchronous processing
	s.eventBus.Publish(ctx, "standard.updated", *updatedStandard)

	logger.Info("Standard updated successfully", zap.String("standardID", standard.ID), zap.String("actorID", actorID))
	return updatedStandard, nil
}

// DeleteStandard handles the removal of a standard and its controls
func (s *StandardService) DeleteStandard(ctx context.Context, standardID string, actorID string) error {
	err := s.standardDAO.DeleteStandard(ctx, standardID, actorID)
	if err != nil {
		logger.Error("Error deleting standard", zap.Error(err), zap.String("standardID", standardID), zap.String("actorID", actorID))
		return err
	}

	if err := s.registry.RemoveStandard(standardID); err != nil {
		logger.Warn("Failed to remove standard from registry", zap.Error(err), zap.String("standardID", standardID))
	}

	// Remove from cache
	if err := s.cacheService.DeleteStandard(ctx, standardID); err != nil {
		logger.Warn("Failed to delete standard from cache", zap.Error(err), zap.String("standardID", standardID))
	}

	// Publish event for asynchronous processing
	s.eventBus.Publish(ctx, "standard.deleted", standardID)

	logger.Info("Standard deleted successfully", zap.String("standardID", standardID), zap.String("actorID", actorID))
	return nil
}

// GetStandard retrieves a standard by its ID
func (s *StandardService) GetStandard(ctx context.Context, standardID string) (*model.Standard, error) {
	// Try to get from cache first
	cachedStandard, err := s.cacheService.GetStandard(ctx, standardID)
	if err == nil && cachedStandard != nil {
		return cachedStandard, nil
	}

	standard, err := s.standardDAO.GetStandard(ctx, standardID)
	if err != nil {
		if errors.Is(err, conformd_errors.ErrStandardNotFound) {
			return nil, conformd_errors.ErrStandardNotFound
		}
		logger.Error("Error retrieving standard", zap.Error(err), zap.String("standardID", standardID))
		return nil, conformd_errors.ErrInternalServer
	}

	// Update cache
	if err := s.cacheService.SetStandard(ctx, *standard); err != nil {
		logger.Warn("Failed to cache standard", zap.Error(err), zap.String("standardID", standardID))
	}

	return standard, nil
}

// ListStandards retrieves all standards, possibly with pagination
func (s *StandardService) ListStandards(ctx context.Context, limit int, offset int) ([]*model.Standard, error) {
	if limit < 0 || offset < 0 {
		return nil, conformd_errors.ErrInvalidPagination
	}

	standards, err := s.standardDAO.ListStandards(ctx, limit, offset)
	if err != nil {
		logger.Error("Error listing standards", zap.Error(err), zap.Int("limit", limit), zap.Int("offset", offset))
		return nil, fmt.Errorf("failed to list standards: %w", err)
	}
	return standards, nil
}

// SearchStandards searches standards by criteria
func (s *StandardService) SearchStandards(ctx context.Context, criteria model.StandardSearchCriteria) ([]*model.Standard, error) {
	standards, err := s.standardDAO.SearchStandards(ctx, criteria)
	if err != nil {
		logger.Error("Error searching standards", zap.Error(err), zap.Any("criteria", criteria))
		return nil, fmt.Errorf("failed to search standards: %w", err)
	}
	return standards, nil
}
