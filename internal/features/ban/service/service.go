package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/nevar-bot/nevar-v6-sub000/internal/common/cache"
	apperrors "github.com/nevar-bot/nevar-v6-sub000/internal/common/errors"
	"github.com/nevar-bot/nevar-v6-sub000/internal/common/validation"
	"github.com/nevar-bot/nevar-v6-sub000/internal/domain/member"
	"github.com/nevar-bot/nevar-v6-sub000/internal/features/ban/models"
	"github.com/nevar-bot/nevar-v6-sub000/internal/features/ban/repository"
)

// Moderator applies and revokes the platform-level ban. Unban of a member
// that is no longer banned must succeed.
type Moderator interface {
	Ban(ctx context.Context, guildID, memberID, reason string) error
	Unban(ctx context.Context, guildID, memberID, reason string) error
}

// Cache holds every active temporary ban keyed by (member, guild).
type Cache = cache.Map[member.Key, models.MemberBan]

func NewCache() *Cache {
	return cache.NewMap[member.Key, models.MemberBan]()
}

type Service struct {
	repo      repository.BanRepository
	cache     *Cache
	moderator Moderator
	logger    zerolog.Logger
	now       func() time.Time
}

func NewBanService(repo repository.BanRepository, c *Cache, moderator Moderator, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		cache:     c,
		moderator: moderator,
		logger:    logger,
		now:       time.Now,
	}
}

// Warm loads every active ban into the cache.
func (s *Service) Warm(ctx context.Context) (int, error) {
	return s.cache.Warm(ctx, func(ctx context.Context) (map[member.Key]models.MemberBan, error) {
		bans, err := s.repo.ListActive(ctx)
		if err != nil {
			return nil, err
		}
		out := make(map[member.Key]models.MemberBan, len(bans))
		for _, b := range bans {
			out[b.Key] = b
		}
		return out, nil
	})
}

// Issue bans the member for in.Duration. The record is persisted before the
// platform ban so a crash in between leaves a ban the lifter will clear.
func (s *Service) Issue(ctx context.Context, in models.IssueInput) (*models.MemberBan, error) {
	key := member.NewKey(in.MemberID, in.GuildID)
	if !key.Valid() {
		return nil, apperrors.NewValidationError("member_id", "member and guild are required")
	}
	if in.ModeratorID == "" {
		return nil, apperrors.NewValidationError("moderator_id", "moderator is required")
	}
	if in.Duration <= 0 {
		return nil, apperrors.NewValidationError("duration", "must be positive")
	}
	if err := validation.ValidateReason(in.Reason); err != nil {
		return nil, apperrors.NewValidationError("reason", err.Error())
	}

	// Stored timestamps have microsecond precision; lifting matches on expires_at.
	now := s.now().Truncate(time.Microsecond)
	mb := models.MemberBan{
		Key: key,
		Ban: models.Ban{
			Active:      true,
			Reason:      in.Reason,
			ModeratorID: in.ModeratorID,
			IssuedAt:    now,
			Duration:    in.Duration,
			ExpiresAt:   now.Add(in.Duration).Truncate(time.Microsecond),
		},
	}

	prev, err := s.repo.Get(ctx, key)
	if err != nil {
		return nil, apperrors.NewDatabaseError("get ban", err)
	}
	if err := s.repo.Save(ctx, &mb); err != nil {
		return nil, apperrors.NewDatabaseError("save ban", err)
	}

	if err := s.moderator.Ban(ctx, in.GuildID, in.MemberID, in.Reason); err != nil {
		s.rollback(ctx, prev, mb)
		return nil, apperrors.NewDiscordAPIError("ban member", err)
	}

	s.cache.Set(key, mb)
	s.logger.Info().
		Str("member_id", key.MemberID).
		Str("guild_id", key.GuildID).
		Time("expires_at", mb.Ban.ExpiresAt).
		Msg("Temporary ban issued")
	return &mb, nil
}

// rollback undoes the record written by a failed Issue. An active ban that
// was replaced is restored so the lifter still clears it when it expires.
func (s *Service) rollback(ctx context.Context, prev *models.MemberBan, issued models.MemberBan) {
	var err error
	if prev != nil && prev.Ban.Active {
		err = s.repo.Save(ctx, prev)
	} else {
		_, err = s.repo.Clear(ctx, issued.Key, issued.Ban.ExpiresAt)
	}
	if err != nil {
		s.logger.Error().Err(err).
			Str("member_id", issued.Key.MemberID).
			Str("guild_id", issued.Key.GuildID).
			Msg("Failed to roll back ban record")
	}
}

// Revoke lifts an active ban before it expires. It returns false when the
// member has no active ban.
func (s *Service) Revoke(ctx context.Context, key member.Key) (bool, error) {
	mb, err := s.repo.Get(ctx, key)
	if err != nil {
		return false, apperrors.NewDatabaseError("get ban", err)
	}
	if mb == nil || !mb.Ban.Active {
		// The store is authoritative; drop any stale cache entry.
		s.cache.Delete(key)
		return false, nil
	}
	return s.lift(ctx, *mb, "Ban revoked")
}

// Get reads the member's ban state from the store.
func (s *Service) Get(ctx context.Context, key member.Key) (*models.MemberBan, error) {
	mb, err := s.repo.Get(ctx, key)
	if err != nil {
		return nil, apperrors.NewDatabaseError("get ban", err)
	}
	return mb, nil
}

// lift performs the unban, then clears the stored state, then drops the
// cache entry. A crash between the first two steps repeats the unban after
// restart; unbanning twice is harmless. The clear and the cache drop only
// apply to the ban instance mb describes, so a ban re-issued meanwhile
// survives. It reports whether that instance was cleared.
func (s *Service) lift(ctx context.Context, mb models.MemberBan, reason string) (bool, error) {
	key, expiresAt := mb.Key, mb.Ban.ExpiresAt
	if err := s.moderator.Unban(ctx, key.GuildID, key.MemberID, reason); err != nil {
		return false, apperrors.NewDiscordAPIError("unban member", err)
	}
	cleared, err := s.repo.Clear(ctx, key, expiresAt)
	if err != nil {
		return false, apperrors.NewDatabaseError("clear ban", err)
	}
	if !cleared {
		s.logger.Warn().
			Str("member_id", key.MemberID).
			Str("guild_id", key.GuildID).
			Msg("Ban changed while being lifted, keeping the newer record")
	}
	s.cache.Update(key, func(cur models.MemberBan, exists bool) (models.MemberBan, bool) {
		return cur, exists && !cur.Ban.ExpiresAt.Equal(expiresAt)
	})
	return cleared, nil
}

// LiftExpired lifts every cached ban whose expiry has passed. A failing
// entry is logged and left in the cache for the next tick.
func (s *Service) LiftExpired(ctx context.Context) (lifted, failed int) {
	now := s.now()
	for _, e := range s.cache.Snapshot() {
		if ctx.Err() != nil {
			break
		}
		if !e.Value.Ban.ExpiredAt(now) {
			continue
		}
		// Skip entries re-issued since the snapshot was taken.
		if cur, ok := s.cache.Get(e.Key); !ok || !cur.Ban.ExpiresAt.Equal(e.Value.Ban.ExpiresAt) {
			continue
		}
		if _, err := s.lift(ctx, e.Value, "Temporary ban expired"); err != nil {
			failed++
			s.logger.Error().Err(err).
				Str("member_id", e.Key.MemberID).
				Str("guild_id", e.Key.GuildID).
				Msg("Failed to lift expired ban")
			continue
		}
		lifted++
		s.logger.Info().
			Str("member_id", e.Key.MemberID).
			Str("guild_id", e.Key.GuildID).
			Msg("Expired ban lifted")
	}
	return lifted, failed
}
