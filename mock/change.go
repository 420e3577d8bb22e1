package mock

import (
	"context"

	"github.com/fwojciec/sitewatch"
)

var _ sitewatch.ChangeService = (*ChangeService)(nil)

// ChangeService is a mock implementation of sitewatch.ChangeService.
type ChangeService struct {
	CreateChangeFn  func(ctx context.Context, change *sitewatch.Change) error
	FindChangesFn   func(ctx context.Context, filter sitewatch.ChangeFilter) ([]*sitewatch.Change, error)
	DeleteChangesFn func(ctx context.Context, siteID string) error
}

func (s *ChangeService) CreateChange(ctx context.Context, change *sitewatch.Change) error {
	return s.CreateChangeFn(ctx, change)
}

func (s *ChangeService) FindChanges(ctx context.Context, filter sitewatch.ChangeFilter) ([]*sitewatch.Change, error) {
	return s.FindChangesFn(ctx, filter)
}

func (s *ChangeService) DeleteChanges(ctx context.Context, siteID string) error {
	return s.DeleteChangesFn(ctx, siteID)
}
