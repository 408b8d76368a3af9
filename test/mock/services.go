// test/mock/services.go
package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/conformd/conformd/model"
)

// MockEvaluationService is a mock implementation of service.IEvaluationService
type MockEvaluationService struct {
	mock.Mock
}

func (m *MockEvaluationService) Evaluate(ctx context.Context, request model.EvaluationRequest, actorID string) (*model.ComplianceReport, error) {
	args := m.Called(ctx, request, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ComplianceReport), args.Error(1)
}

func (m *MockEvaluationService) GetReport(ctx context.Context, reportID string) (*model.ComplianceReport, error) {
	args := m.Called(ctx, reportID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ComplianceReport), args.Error(1)
}

func (m *MockEvaluationService) AnalyzeGap(ctx context.Context, standardID string, required []string) (*model.GapAnalysis, error) {
	args := m.Called(ctx, standardID, required)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.GapAnalysis), args.Error(1)
}

// MockStandardService is a mock implementation of service.IStandardService
type MockStandardService struct {
	mock.Mock
}

func (m *MockStandardService) CreateStandard(ctx context.Context, standard model.Standard, actorID string) (*model.Standard, error) {
	args := m.Called(ctx, standard, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Standard), args.Error(1)
}

func (m *MockStandardService) UpdateStandard(ctx context.Context, standard model.Standard, actorID string) (*model.Standard, error) {
	args := m.Called(ctx, standard, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Standard), args.Error(1)
}

func (m *MockStandardService) DeleteStandard(ctx context.Context, standardID string, actorID string) error {
	args := m.Called(ctx, standardID, actorID)
	return args.Error(0)
}

func (m *MockStandardService) GetStandard(ctx context.Context, standardID string) (*model.Standard, error) {
	args := m.Called(ctx, standardID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Standard), args.Error(1)
}

func (m *MockStandardService) ListStandards(ctx context.Context, limit int, offset int) ([]*model.Standard, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Standard), args.Error(1)
}

func (m *MockStandardService) SearchStandards(ctx context.Context, criteria model.StandardSearchCriteria) ([]*model.Standard, error) {
	args := m.Called(ctx, criteria)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Standard), args.Error(1)
}
