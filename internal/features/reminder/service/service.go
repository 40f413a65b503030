package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/nevar-bot/nevar-v6-sub000/internal/common/cache"
	apperrors "github.com/nevar-bot/nevar-v6-sub000/internal/common/errors"
	"github.com/nevar-bot/nevar-v6-sub000/internal/common/validation"
	"github.com/nevar-bot/nevar-v6-sub000/internal/domain/member"
	"github.com/nevar-bot/nevar-v6-sub000/internal/domain/message"
	"github.com/nevar-bot/nevar-v6-sub000/internal/features/reminder/models"
	"github.com/nevar-bot/nevar-v6-sub000/internal/features/reminder/repository"
)

// Notifier delivers a public message and returns its id.
type Notifier interface {
	SendMessage(ctx context.Context, channelID string, msg message.Message) (string, error)
}

// Cache holds every owner with at least one pending reminder.
type Cache = cache.Map[member.Key, models.Owner]

func NewCache() *Cache {
	return cache.NewMap[member.Key, models.Owner]()
}

type Service struct {
	repo     repository.ReminderRepository
	cache    *Cache
	notifier Notifier
	logger   zerolog.Logger
	now      func() time.Time
}

func NewReminderService(repo repository.ReminderRepository, c *Cache, notifier Notifier, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		cache:    c,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *Service) Warm(ctx context.Context) (int, error) {
	return s.cache.Warm(ctx, func(ctx context.Context) (map[member.Key]models.Owner, error) {
		owners, err := s.repo.ListOwners(ctx)
		if err != nil {
			return nil, err
		}
		out := make(map[member.Key]models.Owner, len(owners))
		for _, o := range owners {
			if len(o.Reminders) > 0 {
				out[o.Key] = o
			}
		}
		return out, nil
	})
}

// Add stores a new reminder for key. Labels are unique per owner.
func (s *Service) Add(ctx context.Context, key member.Key, in models.AddInput) (*models.Reminder, error) {
	if !key.Valid() {
		return nil, apperrors.NewValidationError("member_id", "member and guild are required")
	}
	if err := validation.ValidateLabel(in.Label); err != nil {
		return nil, apperrors.NewValidationError("label", err.Error())
	}
	if err := validation.ValidateDuration(in.Duration, validation.MinReminderDuration, validation.MaxReminderDuration); err != nil {
		return nil, apperrors.NewValidationError("duration", err.Error())
	}
	if in.ChannelID == "" {
		return nil, apperrors.NewValidationError("channel_id", "channel is required")
	}

	existing, err := s.repo.ListByOwner(ctx, key)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list reminders", err)
	}
	for _, r := range existing {
		if r.Label == in.Label {
			return nil, apperrors.NewDuplicateNameError(in.Label)
		}
	}

	// Stored timestamps have microsecond precision; delivery matches on started_at.
	now := s.now().Truncate(time.Microsecond)
	rem := models.Reminder{
		Label:     in.Label,
		StartedAt: now,
		ExpiresAt: now.Add(in.Duration).Truncate(time.Microsecond),
		ChannelID: in.ChannelID,
	}
	if err := s.repo.Insert(ctx, key, rem); err != nil {
		if errors.Is(err, repository.ErrDuplicateLabel) {
			return nil, apperrors.NewDuplicateNameError(in.Label)
		}
		return nil, apperrors.NewDatabaseError("insert reminder", err)
	}

	s.cache.Update(key, func(cur models.Owner, exists bool) (models.Owner, bool) {
		if !exists {
			cur = models.Owner{Key: key}
		}
		return cur.Without(rem.Label).With(rem), true
	})
	s.logger.Info().
		Str("member_id", key.MemberID).
		Str("guild_id", key.GuildID).
		Str("label", rem.Label).
		Time("expires_at", rem.ExpiresAt).
		Msg("Reminder added")
	return &rem, nil
}

// Remove deletes the reminder named label. It returns false when the owner
// has no such reminder.
func (s *Service) Remove(ctx context.Context, key member.Key, label string) (bool, error) {
	removed, err := s.repo.Delete(ctx, key, label)
	if err != nil {
		return false, apperrors.NewDatabaseError("delete reminder", err)
	}
	s.forget(key, label)
	return removed, nil
}

// List returns the owner's reminders from the store.
func (s *Service) List(ctx context.Context, key member.Key) ([]models.Reminder, error) {
	out, err := s.repo.ListByOwner(ctx, key)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list reminders", err)
	}
	return out, nil
}

func (s *Service) forget(key member.Key, label string) {
	s.cache.Update(key, func(cur models.Owner, exists bool) (models.Owner, bool) {
		if !exists {
			return cur, false
		}
		next := cur.Without(label)
		return next, len(next.Reminders) > 0
	})
}

// forgetInstance drops r from the cache unless the label was re-added since.
func (s *Service) forgetInstance(key member.Key, r models.Reminder) {
	s.cache.Update(key, func(cur models.Owner, exists bool) (models.Owner, bool) {
		if !exists {
			return cur, false
		}
		if found, ok := cur.Find(r.Label); !ok || !found.StartedAt.Equal(r.StartedAt) {
			return cur, true
		}
		next := cur.Without(r.Label)
		return next, len(next.Reminders) > 0
	})
}

// deliver sends the reminder, then deletes it from the store, then drops it
// from the cache. Both removals only touch this instance of the label.
func (s *Service) deliver(ctx context.Context, key member.Key, r models.Reminder) error {
	content := fmt.Sprintf("<@%s>, here is your reminder: **%s** (set <t:%d:R>)",
		key.MemberID, r.Label, r.StartedAt.Unix())
	if _, err := s.notifier.SendMessage(ctx, r.ChannelID, message.Text(content)); err != nil {
		return apperrors.NewDiscordAPIError("send reminder", err)
	}
	if _, err := s.repo.DeleteInstance(ctx, key, r); err != nil {
		return apperrors.NewDatabaseError("delete reminder", err)
	}
	s.forgetInstance(key, r)
	return nil
}

// DispatchDue delivers every cached reminder whose expiry has passed. A
// failing reminder is logged and retried on the next tick.
func (s *Service) DispatchDue(ctx context.Context) (delivered, failed int) {
	now := s.now()
	for _, e := range s.cache.Snapshot() {
		for _, r := range e.Value.Reminders {
			if ctx.Err() != nil {
				return delivered, failed
			}
			if !r.DueAt(now) {
				continue
			}
			if err := s.deliver(ctx, e.Key, r); err != nil {
				failed++
				s.logger.Error().Err(err).
					Str("member_id", e.Key.MemberID).
					Str("guild_id", e.Key.GuildID).
					Str("label", r.Label).
					Msg("Failed to deliver reminder")
				continue
			}
			delivered++
		}
	}
	return delivered, failed
}
