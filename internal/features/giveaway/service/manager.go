package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	apperrors "github.com/nevar-bot/nevar-v6-sub000/internal/common/errors"
	"github.com/nevar-bot/nevar-v6-sub000/internal/common/validation"
	"github.com/nevar-bot/nevar-v6-sub000/internal/domain/member"
	"github.com/nevar-bot/nevar-v6-sub000/internal/domain/message"
	"github.com/nevar-bot/nevar-v6-sub000/internal/features/giveaway/models"
	"github.com/nevar-bot/nevar-v6-sub000/internal/features/giveaway/repository"
	"github.com/nevar-bot/nevar-v6-sub000/internal/utils/random"
)

// Manager owns the giveaway state machine. Giveaways are read from the
// store on every operation; transitions on one giveaway are serialized.
type Manager struct {
	repo      repository.GiveawayRepository
	messenger Messenger
	members   MemberDirectory
	levels    LevelLookup
	logger    zerolog.Logger
	locks     *keyedMutex
	now       func() time.Time
	intn      func(n int) (int, error)
}

func NewManager(repo repository.GiveawayRepository, messenger Messenger, members MemberDirectory, levels LevelLookup, logger zerolog.Logger) *Manager {
	return &Manager{
		repo:      repo,
		messenger: messenger,
		members:   members,
		levels:    levels,
		logger:    logger,
		locks:     newKeyedMutex(),
		now:       time.Now,
		intn:      random.Intn,
	}
}

func (m *Manager) load(ctx context.Context, messageID string) (*models.Giveaway, error) {
	g, err := m.repo.GetByMessageID(ctx, messageID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("get giveaway", err)
	}
	return g, nil
}

func validateCreate(in models.CreateInput) error {
	if in.ChannelID == "" || in.GuildID == "" {
		return apperrors.NewValidationError("channel_id", "channel and guild are required")
	}
	if in.HostedBy == "" {
		return apperrors.NewValidationError("hosted_by", "host is required")
	}
	if err := validation.ValidatePrize(in.Prize); err != nil {
		return apperrors.NewValidationError("prize", err.Error())
	}
	if err := validation.ValidateWinnerCount(in.WinnerCount); err != nil {
		return apperrors.NewValidationError("winner_count", err.Error())
	}
	if err := validation.ValidateDuration(in.Duration, validation.MinGiveawayDuration, validation.MaxGiveawayDuration); err != nil {
		return apperrors.NewValidationError("duration", err.Error())
	}
	if err := in.Requirements.Validate(); err != nil {
		return apperrors.NewValidationError("requirements", err.Error())
	}
	return nil
}

// Create renders the giveaway message and persists the giveaway under the
// id of that message.
func (m *Manager) Create(ctx context.Context, in models.CreateInput) (*models.Giveaway, error) {
	if err := validateCreate(in); err != nil {
		return nil, err
	}

	now := m.now()
	g := &models.Giveaway{
		ChannelID:       in.ChannelID,
		GuildID:         in.GuildID,
		StartAt:         now,
		EndAt:           now.Add(in.Duration),
		WinnerCount:     in.WinnerCount,
		Prize:           strings.TrimSpace(in.Prize),
		HostedBy:        in.HostedBy,
		EntrantIDs:      []string{},
		WinnerIDs:       []string{},
		ExemptMemberIDs: dedupe(in.ExemptMemberIDs),
		Requirements:    in.Requirements,
	}

	messageID, err := m.messenger.SendMessage(ctx, g.ChannelID, renderActive(g))
	if err != nil {
		return nil, apperrors.NewRenderFailedError(g.ChannelID, err)
	}
	g.MessageID = messageID

	if err := m.repo.Create(ctx, g); err != nil {
		if delErr := m.messenger.DeleteMessage(ctx, g.ChannelID, messageID); delErr != nil {
			m.logger.Warn().Err(delErr).Str("message_id", messageID).Msg("Failed to delete orphaned giveaway message")
		}
		return nil, apperrors.NewDatabaseError("create giveaway", err)
	}

	m.logger.Info().
		Str("message_id", g.MessageID).
		Str("guild_id", g.GuildID).
		Int("winner_count", g.WinnerCount).
		Time("end_at", g.EndAt).
		Msg("Giveaway created")
	return g, nil
}

// AddEntrant enters memberID. It returns false when the member already
// entered, the giveaway is missing or ended, or the member is not eligible.
func (m *Manager) AddEntrant(ctx context.Context, messageID, memberID string) (bool, error) {
	unlock := m.locks.Lock(messageID)
	defer unlock()

	g, err := m.load(ctx, messageID)
	if err != nil || g == nil {
		return false, err
	}
	if g.Ended || g.HasEntrant(memberID) {
		return false, nil
	}
	if !m.ValidateParticipation(ctx, g, memberID) {
		return false, nil
	}

	ok, err := m.repo.AddEntrant(ctx, messageID, memberID)
	if err != nil {
		return false, apperrors.NewDatabaseError("add entrant", err)
	}
	if !ok {
		return false, nil
	}
	g.EntrantIDs = append(g.EntrantIDs, memberID)
	m.refresh(ctx, g)
	return true, nil
}

// RemoveEntrant withdraws memberID. It returns false when the member had
// not entered or the giveaway is missing or ended.
func (m *Manager) RemoveEntrant(ctx context.Context, messageID, memberID string) (bool, error) {
	unlock := m.locks.Lock(messageID)
	defer unlock()

	g, err := m.load(ctx, messageID)
	if err != nil || g == nil {
		return false, err
	}
	if g.Ended || !g.HasEntrant(memberID) {
		return false, nil
	}

	ok, err := m.repo.RemoveEntrant(ctx, messageID, memberID)
	if err != nil {
		return false, apperrors.NewDatabaseError("remove entrant", err)
	}
	if !ok {
		return false, nil
	}
	g.EntrantIDs = without(g.EntrantIDs, memberID)
	m.refresh(ctx, g)
	return true, nil
}

// ToggleEntry backs the participate button: it enters a member who has not
// entered and withdraws one who has.
func (m *Manager) ToggleEntry(ctx context.Context, messageID, memberID string) (models.EntryOutcome, error) {
	g, err := m.load(ctx, messageID)
	if err != nil || g == nil {
		return models.EntryRejected, err
	}
	if g.HasEntrant(memberID) {
		ok, err := m.RemoveEntrant(ctx, messageID, memberID)
		if err != nil || !ok {
			return models.EntryRejected, err
		}
		return models.EntryRemoved, nil
	}
	ok, err := m.AddEntrant(ctx, messageID, memberID)
	if err != nil || !ok {
		return models.EntryRejected, err
	}
	return models.EntryAdded, nil
}

// End draws the winners and closes the giveaway. It returns false when the
// giveaway does not exist or has already ended.
func (m *Manager) End(ctx context.Context, messageID string) (*models.Giveaway, bool, error) {
	unlock := m.locks.Lock(messageID)
	defer unlock()

	g, err := m.load(ctx, messageID)
	if err != nil || g == nil {
		return nil, false, err
	}
	if g.Ended {
		return g, false, nil
	}

	winners, err := m.drawWinners(ctx, g)
	if err != nil {
		return nil, false, err
	}
	endAt := g.EndAt
	if now := m.now(); now.Before(endAt) {
		endAt = now
	}

	ok, err := m.repo.MarkEnded(ctx, messageID, endAt, winners)
	if err != nil {
		return nil, false, apperrors.NewDatabaseError("end giveaway", err)
	}
	if !ok {
		return nil, false, nil
	}
	g.Ended = true
	g.EndAt = endAt
	g.WinnerIDs = winners

	m.logger.Info().
		Str("message_id", messageID).
		Strs("winner_ids", winners).
		Int("entrants", len(g.EntrantIDs)).
		Msg("Giveaway ended")
	m.publishResult(ctx, g, false)
	return g, true, nil
}

// Reroll redraws the winners of an ended giveaway from its frozen entrants.
// It returns false when the giveaway does not exist or has not ended.
func (m *Manager) Reroll(ctx context.Context, messageID string) (*models.Giveaway, bool, error) {
	unlock := m.locks.Lock(messageID)
	defer unlock()

	g, err := m.load(ctx, messageID)
	if err != nil || g == nil {
		return nil, false, err
	}
	if !g.Ended {
		return g, false, nil
	}

	winners, err := m.drawWinners(ctx, g)
	if err != nil {
		return nil, false, err
	}
	ok, err := m.repo.UpdateWinners(ctx, messageID, winners)
	if err != nil {
		return nil, false, apperrors.NewDatabaseError("reroll giveaway", err)
	}
	if !ok {
		return nil, false, nil
	}
	g.WinnerIDs = winners

	m.logger.Info().Str("message_id", messageID).Strs("winner_ids", winners).Msg("Giveaway rerolled")
	m.publishResult(ctx, g, true)
	return g, true, nil
}

// Delete removes the giveaway in any state and marks its message closed.
func (m *Manager) Delete(ctx context.Context, messageID string) (bool, error) {
	unlock := m.locks.Lock(messageID)
	defer unlock()

	g, err := m.load(ctx, messageID)
	if err != nil || g == nil {
		return false, err
	}
	ok, err := m.repo.Delete(ctx, messageID)
	if err != nil {
		return false, apperrors.NewDatabaseError("delete giveaway", err)
	}
	if !ok {
		return false, nil
	}
	m.logger.Info().Str("message_id", messageID).Msg("Giveaway deleted")

	if _, err := m.messenger.FetchMessage(ctx, g.ChannelID, messageID); err != nil {
		if !errors.Is(err, message.ErrNotFound) {
			m.logger.Warn().Err(err).Str("message_id", messageID).Msg("Failed to fetch giveaway message")
		}
		return true, nil
	}
	if err := m.messenger.EditMessage(ctx, g.ChannelID, messageID, renderClosed(g)); err != nil {
		m.logger.Warn().Err(err).Str("message_id", messageID).Msg("Failed to close giveaway message")
	}
	return true, nil
}

// Edit changes the prize, the winner count or extends the end of a
// scheduled giveaway. It returns false when the giveaway does not exist or
// has ended.
func (m *Manager) Edit(ctx context.Context, messageID string, in models.EditInput) (*models.Giveaway, bool, error) {
	unlock := m.locks.Lock(messageID)
	defer unlock()

	g, err := m.load(ctx, messageID)
	if err != nil || g == nil {
		return nil, false, err
	}
	if g.Ended {
		return g, false, nil
	}

	prize, winnerCount := g.Prize, g.WinnerCount
	if in.Prize != nil {
		if err := validation.ValidatePrize(*in.Prize); err != nil {
			return nil, false, apperrors.NewValidationError("prize", err.Error())
		}
		prize = strings.TrimSpace(*in.Prize)
	}
	if in.WinnerCount != nil {
		if err := validation.ValidateWinnerCount(*in.WinnerCount); err != nil {
			return nil, false, apperrors.NewValidationError("winner_count", err.Error())
		}
		winnerCount = *in.WinnerCount
	}
	if in.Extend < 0 {
		return nil, false, apperrors.NewValidationError("extend", "cannot move the end backwards")
	}
	endAt := g.EndAt.Add(in.Extend)
	if endAt.Sub(g.StartAt) > validation.MaxGiveawayDuration {
		return nil, false, apperrors.NewValidationError("extend", fmt.Sprintf("giveaway cannot run longer than %s", validation.MaxGiveawayDuration))
	}

	ok, err := m.repo.UpdateDetails(ctx, messageID, prize, winnerCount, endAt)
	if err != nil {
		return nil, false, apperrors.NewDatabaseError("edit giveaway", err)
	}
	if !ok {
		return nil, false, nil
	}
	g.Prize, g.WinnerCount, g.EndAt = prize, winnerCount, endAt
	m.refresh(ctx, g)
	return g, true, nil
}

func (m *Manager) Get(ctx context.Context, messageID string) (*models.Giveaway, error) {
	g, err := m.load(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, apperrors.NewGiveawayNotFoundError(messageID)
	}
	return g, nil
}

func (m *Manager) List(ctx context.Context) ([]*models.Giveaway, error) {
	out, err := m.repo.ListAll(ctx)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list giveaways", err)
	}
	return out, nil
}

func (m *Manager) ListActive(ctx context.Context) ([]*models.Giveaway, error) {
	out, err := m.repo.ListActive(ctx)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list active giveaways", err)
	}
	return out, nil
}

// ValidateParticipation reports whether memberID may enter or win g.
// Exempt members never qualify. Every requirement must hold, and a failed
// lookup counts as not eligible.
func (m *Manager) ValidateParticipation(ctx context.Context, g *models.Giveaway, memberID string) bool {
	if g.IsExempt(memberID) {
		return false
	}
	if len(g.Requirements) == 0 {
		return true
	}
	facts, err := m.facts(ctx, g, memberID)
	if err != nil {
		m.logger.Warn().Err(err).
			Str("message_id", g.MessageID).
			Str("member_id", memberID).
			Msg("Eligibility lookup failed, treating member as not eligible")
		return false
	}
	return g.Requirements.SatisfiedBy(facts)
}

// facts fetches only what the giveaway's requirements need.
func (m *Manager) facts(ctx context.Context, g *models.Giveaway, memberID string) (models.Facts, error) {
	var f models.Facts
	var needProfile, needLevel, needAccount bool
	for _, r := range g.Requirements {
		switch r.(type) {
		case models.RoleRequirement, models.GuildJoinDateRequirement, models.BoosterRequirement:
			needProfile = true
		case models.LevelRequirement:
			needLevel = true
		case models.AccountCreatedDateRequirement:
			needAccount = true
		}
	}

	if needProfile {
		p, err := m.members.Member(ctx, g.GuildID, memberID)
		if err != nil {
			return f, fmt.Errorf("lookup member: %w", err)
		}
		if p == nil {
			return f, fmt.Errorf("lookup member: %w", message.ErrNotFound)
		}
		f.RoleIDs = p.RoleIDs
		f.JoinedAt = p.JoinedAt
		f.Boosting = p.Boosting
	}
	if needLevel {
		lvl, err := m.levels.Level(ctx, member.NewKey(memberID, g.GuildID))
		if err != nil {
			return f, fmt.Errorf("lookup level: %w", err)
		}
		f.Level = lvl
	}
	if needAccount {
		created, err := m.members.AccountCreatedAt(memberID)
		if err != nil {
			return f, fmt.Errorf("lookup account age: %w", err)
		}
		f.AccountCreatedAt = created
	}
	return f, nil
}

// drawWinners samples up to WinnerCount entrants without replacement,
// re-checking eligibility of each drawn member.
func (m *Manager) drawWinners(ctx context.Context, g *models.Giveaway) ([]string, error) {
	pool := append([]string(nil), g.EntrantIDs...)
	winners := make([]string, 0, g.WinnerCount)
	for len(winners) < g.WinnerCount && len(pool) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		i, err := m.intn(len(pool))
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "draw winners")
		}
		id := pool[i]
		last := len(pool) - 1
		pool[i] = pool[last]
		pool = pool[:last]

		if m.ValidateParticipation(ctx, g, id) {
			winners = append(winners, id)
		}
	}
	return winners, nil
}

// refresh re-renders a scheduled giveaway. Failures are logged only.
func (m *Manager) refresh(ctx context.Context, g *models.Giveaway) {
	if err := m.messenger.EditMessage(ctx, g.ChannelID, g.MessageID, renderActive(g)); err != nil {
		m.logger.Warn().Err(err).Str("message_id", g.MessageID).Msg("Failed to update giveaway message")
	}
}

func (m *Manager) publishResult(ctx context.Context, g *models.Giveaway, reroll bool) {
	if err := m.messenger.EditMessage(ctx, g.ChannelID, g.MessageID, renderEnded(g)); err != nil {
		m.logger.Warn().Err(err).Str("message_id", g.MessageID).Msg("Failed to render ended giveaway")
	}
	if _, err := m.messenger.SendMessage(ctx, g.ChannelID, renderAnnouncement(g, reroll)); err != nil {
		m.logger.Warn().Err(err).Str("message_id", g.MessageID).Msg("Failed to announce giveaway winners")
	}
}

func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
