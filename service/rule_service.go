// service/rule_service.go
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
	"github.com/conformd/conformd/mapper"
	"github.com/conformd/conformd/model"
	"github.com/conformd/conformd/util"
)

// RuleService handles business logic for policy rule operations and
// keeps the mapper's in-memory index in lockstep with the persisted
// graph.
type RuleService struct {
	ruleDAO         *dao.RuleDAO
	mapper          *mapper.Mapper
	validationUtil  *util.ValidationUtil
	cacheService    *util.CacheService
	notificationSvc *util.NotificationService
	eventBus        *util.EventBus
}

// NewRuleService creates a new instance of RuleService
func NewRuleService(ruleDAO *dao.RuleDAO, m *mapper.Mapper, validationUtil *util.ValidationUtil, cacheService *util.CacheService, notificationSvc *util.NotificationService, eventBus *util.EventBus) *RuleService {
	service := &RuleService{
		ruleDAO:         ruleDAO,
		mapper:          m,
		validationUtil:  validationUtil,
		cacheService:    cacheService,
		notificationSvc: notificationSvc,
		eventBus:        eventBus,
	}

	// Set up event subscriptions
	eventBus.Subscribe("rule.created", service.handleRuleCreated)
	eventBus.Subscribe("rule.updated", service.handleRuleUpdated)
	eventBus.Subscribe("rule.deleted", service.handleRuleDeleted)

	return service
}

// HydrateMapper loads every persisted rule into the mapper. Called once
// at startup, after the registry has been hydrated.
func (s *RuleService) HydrateMapper(ctx context.Context) error {
	const pageSize = 100
	offset := 0
	loaded := 0

	for {
		rules, err := s.ruleDAO.ListRules(ctx, pageSize, offset)
		if err != nil {
			return fmt.Errorf("failed to hydrate mapper: %w", err)
		}
		if len(rules) == 0 {
			break
		}

		for _, rule := range rules {
			if err := s.mapper.AddRule(*rule); err != nil {
				if errors.Is(err, conformd_errors.ErrRuleConflict) {
					continue
				}
				logger.Error("Failed to index persisted rule",
					zap.Error(err),
					zap.String("ruleID", rule.ID))
				return err
			}
			loaded++
		}
		offset += pageSize
	}

	logger.Info("Mapper hydrated from database", zap.Int("rules", loaded))
	return nil
}

func (s *RuleService) handleRuleCreated(ctx context.Context, event util.Event) error {
	rule, ok := event.Payload.(model.PolicyRule)
	if !ok {
		logger.Error("Invalid event payload type", zap.Any("payload", event.Payload))
		return fmt.Errorf("invalid event payload type: %T", event.Payload)
	}
	logger.Info("Rule created event received", zap.String("ruleID", rule.ID))

	if err := s.notificationSvc.NotifyRuleChange(ctx, "created", rule); err != nil {
		logger.Warn("Failed to send rule creation notification", zap.Error(err), zap.String("ruleID", rule.ID))
	}
	return nil
}

func (s *RuleService) handleRuleUpdated(ctx context.Context, event util.Event) error {
	rule, ok := event.Payload.(model.PolicyRule)
	if !ok {
		logger.Error("Invalid event payload type", zap.Any("payload", event.Payload))
		return fmt.Errorf("invalid event payload type: %T", event.Payload)
	}
	logger.Info("Rule updated event received",
		zap.String("ruleID", rule.ID),
		zap.Int("revision", rule.Revision))

	if err := s.notificationSvc.NotifyRuleChange(ctx, "updated", rule); err != nil {
		logger.Warn("Failed to send rule update notification", zap.Error(err), zap.String("ruleID", rule.ID))
	}
	return nil
}

func (s *RuleService) handleRuleDeleted(ctx context.Context, event util.Event) error {
	ruleID, ok := event.Payload.(string)
	if !ok {
		logger.Error("Invalid event payload type", zap.Any("payload", event.Payload))
		return fmt.Errorf("invalid event payload type: %T", event.Payload)
	}
	logger.Info("Rule deleted event received", zap.String("ruleID", ruleID))

	if err := s.notificationSvc.NotifyRuleChange(ctx, "deleted", model.PolicyRule{ID: ruleID}); err != nil {
		logger.Warn("Failed to send rule deletion notification", zap.Error(err), zap.String("ruleID", ruleID))
	}
	return nil
}

// CreateRule handles the registration of a new policy rule
func (s *RuleService) CreateRule(ctx context.Context, rule model.PolicyRule, actorID string) (*model.PolicyRule, error) {
	if err := s.validationUtil.ValidateRule(rule); err != nil {
		return nil, fmt.Errorf("%w: %v", conformd_errors.ErrInvalidRuleData, err)
	}

	rule.CreatedAt = time.Now()
	rule.UpdatedAt = time.Now()
	rule.Revision = 1

	ruleID, err := s.ruleDAO.CreateRule(ctx, rule, actorID)
	if err != nil {
		logger.Error("Error creating rule", zap.Error(err), zap.String("actorID", actorID))
		return nil, err
	}
	rule.ID = ruleID

	if err := s.mapper.AddRule(rule); err != nil {
		logger.Warn("Failed to index rule in mapper", zap.Error(err), zap.String("ruleID", ruleID))
	}

	// Update cache
	if err := s.cacheService.SetRule(ctx, rule); err != nil {
		logger.Warn("Failed to cache rule", zap.Error(err), zap.String("ruleID", ruleID))
	}

	// Publish event for asynchronous processing
	s.eventBus.Publish(ctx, "rule.created", rule)

	logger.Info("Rule created successfully", zap.String("ruleID", ruleID), zap.String("actorID", actorID))
	return &rule, nil
}

// UpdateRule handles updates to an existing policy rule
func (s *RuleService) UpdateRule(ctx context.Context, rule model.PolicyRule, actorID string) (*model.PolicyRule, error) {
	if err := s.validationUtil.ValidateRule(rule); err != nil {
		return nil, fmt.Errorf("%w: %v", conformd_errors.ErrInvalidRuleData, err)
	}

	oldRule, err := s.ruleDAO.GetRule(ctx, rule.ID)
	if err != nil {
		logger.Error("Error retrieving existing rule", zap.Error(err), zap.String("ruleID", rule.ID))
		return nil, err
	}

	rule.UpdatedAt = time.Now()
	rule.Revision = oldRule.Revision + 1

	updatedRule, err := s.ruleDAO.UpdateRule(ctx, rule, actorID)
	if err != nil {
		logger.Error("Error updating rule", zap.Error(err), zap.String("ruleID", rule.ID), zap.String("actorID", actorID))
		return nil, err
	}

	if err := s.mapper.ReplaceRule(*updatedRule); err != nil {
		logger.Warn("Failed to reindex rule in mapper", zap.Error(err), zap.String("ruleID", rule.ID))
	}

	// Update cache
	if err := s.cacheService.SetRule(ctx, *updatedRule); err != nil {
		logger.Warn("Failed to update rule in cache", zap.Error(err), zap.String("ruleID", rule.ID))
	}

	// Publish event for asynchronous processing
	s.eventBus.Publish(ctx, "rule.updated", *updatedRule)

	logger.Info("Rule updated successfully", zap.String("ruleID", rule.ID), zap.String("actorID", actorID))
	return updatedRule, nil
}

// DeleteRule handles the removal of a policy rule
func (s *RuleService) DeleteRule(ctx context.Context, ruleID string, actorID string) error {
	err := s.ruleDAO.DeleteRule(ctx, ruleID, actorID)
	if err != nil {
		logger.Error("Error deleting rule", zap.Error(err), zap.String("ruleID", ruleID), zap.String("actorID", actorID))
		return err
	}

	if err := s.mapper.RemoveRule(ruleID); err != nil {
		logger.Warn("Failed to remove rule from mapper", zap.Error(err), zap.String("ruleID", ruleID))
	}

	// Remove from cache
	if err := s.cacheService.DeleteRule(ctx, ruleID); err != nil {
		logger.Warn("Failed to delete rule from cache", zap.Error(err), zap.String("ruleID", ruleID))
	}

	// Publish event for asynchronous processing
	s.eventBus.Publish(ctx, "rule.deleted", ruleID)

	logger.Info("Rule deleted successfully", zap.String("ruleID", ruleID), zap.String("actorID", actorID))
	return nil
}

// GetRule retrieves a rule by its ID
func (s *RuleService) GetRule(ctx context.Context, ruleID string) (*model.PolicyRule, error) {
	// Try to get from cache first
	cachedRule, err := s.cacheService.GetRule(ctx, ruleID)
	if err == nil && cachedRule != nil {
		return cachedRule, nil
	}

	rule, err := s.ruleDAO.GetRule(ctx, ruleID)
	if err != nil {
		if errors.Is(err, conformd_errors.ErrRuleNotFound) {
			return nil, conformd_errors.ErrRuleNotFound
		}
		logger.Error("Error retrieving rule", zap.Error(err), zap.String("ruleID", ruleID))
		return nil, conformd_errors.ErrInternalServer
	}

	// Update cache
	if err := s.cacheService.SetRule(ctx, *rule); err != nil {
		logger.Warn("Failed to cache rule", zap.Error(err), zap.String("ruleID", ruleID))
	}

	return rule, nil
}

// ListRules retrieves all rules, possibly with pagination
func (s *RuleService) ListRules(ctx context.Context, limit int, offset int) ([]*model.PolicyRule, error) {
	if limit < 0 || offset < 0 {
		return nil, conformd_errors.ErrInvalidPagination
	}

	rules, err := s.ruleDAO.ListRules(ctx, limit, offset)
	if err != nil {
		logger.Error("Error listing rules", zap.Error(err), zap.Int("limit", limit), zap.Int("offset", offset))
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	return rules, nil
}

// GetRulesForControl retrieves the rules bound to one control identifier
func (s *RuleService) GetRulesForControl(ctx context.Context, controlID string) ([]*model.PolicyRule, error) {
	rules, err := s.ruleDAO.GetRulesForControl(ctx, controlID)
	if err != nil {
		logger.Error("Error retrieving rules for control", zap.Error(err), zap.String("controlID", controlID))
		return nil, fmt.Errorf("failed to retrieve rules for control: %w", err)
	}
	return rules, nil
}
