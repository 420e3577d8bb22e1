package mock

import (
	"context"

	"github.com/fwojciec/sitewatch"
)

var _ sitewatch.Notifier = (*Notifier)(nil)

// Notifier is a mock implementation of sitewatch.Notifier.
type Notifier struct {
	SendFn func(ctx context.Context, text string) error
}

func (n *Notifier) Send(ctx context.Context, text string) error {
	return n.SendFn(ctx, text)
}
