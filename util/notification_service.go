// util/notification_service.go

package util

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	logger "github.com/conformd/conformd/logging"
	"github.com/conformd/conformd/model"
)

type NotificationService struct {
	// You might want to add dependencies here, such as a message queue client
}

func NewNotificationService() *NotificationService {
	return &NotificationService{}
}

func (n *NotificationService) NotifyStandardChange(ctx context.Context, changeType string, standard model.Standard) error {
	// In a real implementation, you might send this to a message queue or external notification service
	switch changeType {
	case "created":
		logger.Info("NOTIFICATION: New standard registered",
			zap.String("standardID", standard.ID),
			zap.String("standardName", standard.Name))
	case "updated":
		logger.Info("NOTIFICATION: Standard updated",
			zap.String("standardID", standard.ID),
			zap.String("standardName", standard.Name))
	case "deleted":
		logger.Info("NOTIFICATION: Standard deleted",
			zap.String("standardID", standard.ID))
	default:
		return fmt.Errorf("unknown change type: %s", changeType)
	}

	return nil
}

func (n *NotificationService) NotifyRuleChange(ctx context.Context, changeType string, rule model.PolicyRule) error {
	switch changeType {
	case "created":
		logger.Info("NOTIFICATION: New rule registered",
			zap.String("ruleID", rule.ID),
			zap.String("ruleName", rule.Name))
	case "updated":
		logger.Info("NOTIFICATION: Rule updated",
			zap.String("ruleID", rule.ID),
			zap.String("ruleName", rule.Name))
	case "deleted":
		logger.Info("NOTIFICATION: Rule deleted",
			zap.String("ruleID", rule.ID))
	default:
		return fmt.Errorf("unknown change type: %s", changeType)
	}

	return nil
}

// NotifyComplianceFailure flags controls that failed an evaluation run.
// This is where a pager or ticketing integration would hang off.
func (n *NotificationService) NotifyComplianceFailure(ctx context.Context, report model.ComplianceReport) error {
	if report.Summary.Failed == 0 {
		return nil
	}

	var failed []string
	for controlID, result := range report.Results {
		if result.Status == model.StatusFail {
			failed = append(failed, controlID)
		}
	}

	logger.Warn("NOTIFICATION: Compliance failures detected",
		zap.String("reportID", report.ID),
		zap.Int("failedCount", report.Summary.Failed),
		zap.Strings("controls", failed))
	return nil
}

func (n *NotificationService) NotifyAdmins(ctx context.Context, message string) error {
	// Logic to notify all system administrators
	logger.Info("Notifying admins", zap.String("message", message))
	return nil
}
