package service

import "context"

// Dispatcher is the scheduler processor that delivers due reminders.
type Dispatcher struct {
	svc *Service
}

func NewDispatcher(svc *Service) *Dispatcher {
	return &Dispatcher{svc: svc}
}

func (d *Dispatcher) Name() string { return "reminder-dispatcher" }

func (d *Dispatcher) Process(ctx context.Context) error {
	delivered, failed := d.svc.DispatchDue(ctx)
	d.svc.logger.Debug().Int("delivered", delivered).Int("failed", failed).Msg("Reminder dispatcher finished")
	return nil
}
