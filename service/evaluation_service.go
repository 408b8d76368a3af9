// service/evaluation_service.go
package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/conformd/conformd/audit"
	"github.com/conformd/conformd/engine"
	conformd_errors "github.com/conformd/conformd/errors"
	logger "github.com/conformd/conformd/logging"
	"github.com/conformd/conformd/mapper"
	"github.com/conformd/conformd/model"
	"github.com/conformd/conformd/report"
	"github.com/conformd/conformd/snapshot"
	"github.com/conformd/conformd/util"
)

// EvaluationService orchestrates an evaluation run: resolve identifiers
// to rules, capture an environment snapshot, evaluate, aggregate, and
// assemble the compliance report. Every run is audited.
type EvaluationService struct {
	mapper          *mapper.Mapper
	evaluator       *engine.Evaluator
	builder         *report.Builder
	provider        snapshot.Provider
	validationUtil  *util.ValidationUtil
	cacheService    *util.CacheService
	notificationSvc *util.NotificationService
	auditService    audit.Service
	eventBus        *util.EventBus
	reportTTL       time.Duration
}

// NewEvaluationService creates a new instance of EvaluationService
func NewEvaluationService(
	m *mapper.Mapper,
	evaluator *engine.Evaluator,
	builder *report.Builder,
	provider snapshot.Provider,
	validationUtil *util.ValidationUtil,
	cacheService *util.CacheService,
	notificationSvc *util.NotificationService,
	auditService audit.Service,
	eventBus *util.EventBus,
	reportTTL time.Duration,
) *EvaluationService {
	service := &EvaluationService{
		mapper:          m,
		evaluator:       evaluator,
		builder:         builder,
		provider:        provider,
		validationUtil:  validationUtil,
		cacheService:    cacheService,
		notificationSvc: notificationSvc,
		auditService:    auditService,
		eventBus:        eventBus,
		reportTTL:       reportTTL,
	}

	eventBus.Subscribe("evaluation.completed", service.handleEvaluationCompleted)

	return service
}

func (s *EvaluationService) handleEvaluationCompleted(ctx context.Context, event util.Event) error {
	result, ok := event.Payload.(model.ComplianceReport)
	if !ok {
		logger.Error("Invalid event payload type", zap.Any("payload", event.Payload))
		return fmt.Errorf("invalid event payload type: %T", event.Payload)
	}

	if err := s.notificationSvc.NotifyComplianceFailure(ctx, result); err != nil {
		logger.Warn("Failed to send compliance failure notification",
			zap.Error(err),
			zap.String("reportID", result.ID))
	}
	return nil
}

// Evaluate runs the requested identifiers against the current
// environment and returns the compliance report. Unknown identifiers are
// reported per-item as unknown results; they never abort the batch.
func (s *EvaluationService) Evaluate(ctx context.Context, request model.EvaluationRequest, actorID string) (*model.ComplianceReport, error) {
	if err := s.validationUtil.ValidateEvaluationRequest(request); err != nil {
		return nil, fmt.Errorf("%w: %v", conformd_errors.ErrInvalidEvaluationRequest, err)
	}

	start := time.Now()
	mapping, failures := s.mapper.Resolve(request.Identifiers)

	snap, err := s.captureSnapshot(ctx, request)
	if err != nil {
		logger.Error("Failed to capture environment snapshot", zap.Error(err))
		return nil, err
	}

	results, err := s.evaluator.Evaluate(ctx, mapping, snap)
	if err != nil {
		logger.Error("Evaluation failed", zap.Error(err))
		return nil, fmt.Errorf("evaluation failed: %w", err)
	}

	// Identifiers the registry does not know surface as unknown results
	// so callers see the per-item failure alongside the rest of the run.
	for controlID, failure := range failures {
		results[controlID] = model.EvaluationResult{
			ControlID: controlID,
			Status:    model.StatusUnknown,
			Reasons:   []string{failure.Error()},
		}
	}

	complianceReport := s.builder.Assemble(snap, results)

	if err := s.cacheService.SetReport(ctx, complianceReport, s.reportTTL); err != nil {
		logger.Warn("Failed to cache compliance report", zap.Error(err), zap.String("reportID", complianceReport.ID))
	}

	// Audit trail
	entry := audit.Entry{
		Timestamp:    time.Now(),
		ActorID:      actorID,
		Action:       "evaluation.run",
		TargetID:     complianceReport.ID,
		ReportID:     complianceReport.ID,
		ControlCount: complianceReport.Summary.TotalControls,
		FailedCount:  complianceReport.Summary.Failed,
	}
	if err := s.auditService.LogEvent(ctx, entry); err != nil {
		logger.Error("Failed to create audit log", zap.Error(err), zap.String("reportID", complianceReport.ID))
	}

	// Publish event for asynchronous processing
	s.eventBus.Publish(ctx, "evaluation.completed", complianceReport)

	logger.Info("Evaluation completed",
		zap.String("reportID", complianceReport.ID),
		zap.Int("controls", complianceReport.Summary.TotalControls),
		zap.Int("failed", complianceReport.Summary.Failed),
		zap.Int("unknown", complianceReport.Summary.Unknown),
		zap.Duration("duration", time.Since(start)))

	return &complianceReport, nil
}

// captureSnapshot prefers attributes supplied inline with the request;
// otherwise it asks the configured provider.
func (s *EvaluationService) captureSnapshot(ctx context.Context, request model.EvaluationRequest) (model.Snapshot, error) {
	if len(request.Attributes) > 0 {
		return snapshot.NewStaticProvider(request.Attributes).Capture(ctx)
	}
	return s.provider.Capture(ctx)
}

// GetReport retrieves a cached compliance report by its ID
func (s *EvaluationService) GetReport(ctx context.Context, reportID string) (*model.ComplianceReport, error) {
	cachedReport, err := s.cacheService.GetReport(ctx, reportID)
	if err != nil {
		logger.Error("Error retrieving report", zap.Error(err), zap.String("reportID", reportID))
		return nil, conformd_errors.ErrInternalServer
	}
	if cachedReport == nil {
		return nil, conformd_errors.ErrReportNotFound
	}
	return cachedReport, nil
}

// AnalyzeGap reports rule coverage for a standard's controls
func (s *EvaluationService) AnalyzeGap(ctx context.Context, standardID string, required []string) (*model.GapAnalysis, error) {
	analysis, err := s.builder.Gap(s.mapper, standardID, required)
	if err != nil {
		logger.Error("Gap analysis failed", zap.Error(err), zap.String("standardID", standardID))
		return nil, err
	}
	return &analysis, nil
}
