package notify

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"share2care/internal/ports/output"
)

// Chain delivers through the first notifier that succeeds.
type Chain struct {
	notifiers []output.Notifier
	log       zerolog.Logger
}

var _ output.Notifier = (*Chain)(nil)

func NewChain(logger zerolog.Logger, notifiers ...output.Notifier) *Chain {
	return &Chain{notifiers: notifiers, log: logger.With().Str("component", "notifier").Logger()}
}

func (c *Chain) Notify(ctx context.Context, n output.Notice) error {
	err := output.ErrNotifierUnavailable
	for i, nt := range c.notifiers {
		if err = nt.Notify(ctx, n); err == nil {
			return nil
		}
		if !errors.Is(err, output.ErrNotifierUnavailable) {
			c.log.Info().Err(err).Int("stage", i).Str("kind", n.Kind).Msg("notifier failed, falling back")
		}
	}
	return err
}
