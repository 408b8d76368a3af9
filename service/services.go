// service/services.go
package service

import (
	"context"

	"github.com/conformd/conformd/model"
)

type IStandardService interface {
	CreateStandard(ctx context.Context, standard model.Standard, actorID string) (*model.Standard, error)
	UpdateStandard(ctx context.Context, standard model.Standard, actorID string) (*model.Standard, error)
	DeleteStandard(ctx context.Context, standardID string, actorID string) error
	GetStandard(ctx context.Context, standardID string) (*model.Standard, error)
	ListStandards(ctx context.Context, limit int, offset int) ([]*model.Standard, error)
	SearchStandards(ctx context.Context, criteria model.StandardSearchCriteria) ([]*model.Standard, error)
}

type IRuleService interface {
	CreateRule(ctx context.Context, rule model.PolicyRule, actorID string) (*model.PolicyRule, error)
	UpdateRule(ctx context.Context, rule model.PolicyRule, actorID string) (*model.PolicyRule, error)
	DeleteRule(ctx context.Context, ruleID string, actorID string) error
	GetRule(ctx context.Context, ruleID string) (*model.PolicyRule, error)
	ListRules(ctx context.Context, limit int, offset int) ([]*model.PolicyRule, error)
	GetRulesForControl(ctx context.Context, controlID string) ([]*model.PolicyRule, error)
}

type IEvaluationService interface {
	Evaluate(ctx context.Context, request model.EvaluationRequest, actorID string) (*model.ComplianceReport, error)
	GetReport(ctx context.Context, reportID string) (*model.ComplianceReport, error)
	AnalyzeGap(ctx context.Context, standardID string, required []string) (*model.GapAnalysis, error)
}

type Services struct {
	Standard   IStandardService
	Rule       IRuleService
	Evaluation IEvaluationService
}
