package service

import "context"

// Lifter is the scheduler processor that lifts expired temporary bans.
type Lifter struct {
	svc *Service
}

func NewLifter(svc *Service) *Lifter {
	return &Lifter{svc: svc}
}

func (l *Lifter) Name() string { return "ban-lifter" }

func (l *Lifter) Process(ctx context.Context) error {
	lifted, failed := l.svc.LiftExpired(ctx)
	l.svc.logger.Debug().Int("lifted", lifted).Int("failed", failed).Msg("Ban lifter finished")
	return nil
}
