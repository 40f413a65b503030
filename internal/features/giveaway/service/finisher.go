package service

import (
	"context"
	"fmt"
)

// Finisher is the scheduler processor that ends giveaways whose end time
// has passed. It reads from the store on every tick.
type Finisher struct {
	m *Manager
}

func NewFinisher(m *Manager) *Finisher {
	return &Finisher{m: m}
}

func (f *Finisher) Name() string { return "giveaway-finisher" }

func (f *Finisher) Process(ctx context.Context) error {
	active, err := f.m.repo.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active giveaways: %w", err)
	}

	now := f.m.now()
	var ended, failed int
	for _, g := range active {
		if ctx.Err() != nil {
			break
		}
		if !g.DueAt(now) {
			continue
		}
		_, ok, err := f.m.End(ctx, g.MessageID)
		if err != nil {
			failed++
			f.m.logger.Error().Err(err).Str("message_id", g.MessageID).Msg("Failed to end giveaway")
			continue
		}
		if ok {
			ended++
		}
	}
	f.m.logger.Debug().Int("ended", ended).Int("failed", failed).Msg("Giveaway finisher finished")
	return nil
}
