// util/cache_service.go

package util

import (
	"context"
	"time"

	"github.com/conformd/conformd/db"
	"github.com/conformd/conformd/model"
)

type CacheService struct{}

func NewCacheService() *CacheService {
	return &CacheService{}
}

func (c *CacheService) GetStandard(ctx context.Context, standardID string) (*model.Standard, error) {
	return db.GetCachedStandard(ctx, standardID)
}

func (c *CacheService) SetStandard(ctx context.Context, standard model.Standard) error {
	return db.CacheStandard(ctx, &standard)
}

func (c *CacheService) DeleteStandard(ctx context.Context, standardID string) error {
	return db.DeleteCachedStandard(ctx, standardID)
}

func (c *CacheService) GetRule(ctx context.Context, ruleID string) (*model.PolicyRule, error) {
	return db.GetCachedRule(ctx, ruleID)
}

func (c *CacheService) SetRule(ctx context.Context, rule model.PolicyRule) error {
	return db.CacheRule(ctx, &rule)
}

func (c *CacheService) DeleteRule(ctx context.Context, ruleID string) error {
	return db.DeleteCachedRule(ctx, ruleID)
}

func (c *CacheService) GetReport(ctx context.Context, reportID string) (*model.ComplianceReport, error) {
	return db.GetCachedReport(ctx, reportID)
}

func (c *CacheService) SetReport(ctx context.Context, report model.ComplianceReport, ttl time.Duration) error {
	return db.CacheReport(ctx, &report, ttl)
}
