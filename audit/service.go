// audit/service.go
package audit

import (
	"context"
	"time"
)

type Service interface {
	LogEvent(ctx context.Context, entry Entry) error
	QueryEvents(ctx context.Context, from, to time.Time, actorID, targetID string) ([]Entry, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) LogEvent(ctx context.Context, entry Entry) error {
	return s.repo.LogEvent(ctx, entry)
}

func (s *service) QueryEvents(ctx context.Context, from, to time.Time, actorID, targetID string) ([]Entry, error) {
	return s.repo.QueryEvents(ctx, from, to, actorID, targetID)
}
