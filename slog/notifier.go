package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/sitewatch"
)

// Ensure LoggingNotifier implements sitewatch.Notifier.
var _ sitewatch.Notifier = (*LoggingNotifier)(nil)

// LoggingNotifier wraps a Notifier and logs every delivery attempt.
type LoggingNotifier struct {
	next   sitewatch.Notifier
	logger *slog.Logger
}

// NewLoggingNotifier creates a new LoggingNotifier.
func NewLoggingNotifier(next sitewatch.Notifier, logger *slog.Logger) *LoggingNotifier {
	return &LoggingNotifier{next: next, logger: logger}
}

// Send delegates to the wrapped notifier and logs the outcome.
func (n *LoggingNotifier) Send(ctx context.Context, text string) error {
	begin := time.Now()
	err := n.next.Send(ctx, text)
	if err != nil {
		n.logger.Error("notify",
			"bytes", len(text),
			"duration", time.Since(begin),
			"err", err,
		)
		return err
	}
	n.logger.Info("notify",
		"bytes", len(text),
		"duration", time.Since(begin),
	)
	return nil
}

// DiscardNotifier drops every message. It stands in when no transport is
// configured.
type DiscardNotifier struct{}

// Send does nothing.
func (DiscardNotifier) Send(context.Context, string) error { return nil }
