package discord

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/nevar-bot/nevar-v6-sub000/internal/domain/message"
	"github.com/nevar-bot/nevar-v6-sub000/internal/features/giveaway/models"
)

const interactionTimeout = 10 * time.Second

// EntryToggler is implemented by the giveaway manager.
type EntryToggler interface {
	ToggleEntry(ctx context.Context, messageID, memberID string) (models.EntryOutcome, error)
}

// Handler answers presses of the participate button.
type Handler struct {
	toggler EntryToggler
	logger  zerolog.Logger
}

func NewHandler(toggler EntryToggler, logger zerolog.Logger) *Handler {
	return &Handler{toggler: toggler, logger: logger}
}

// Register subscribes the handler to interaction events and returns the
// function removing it.
func (h *Handler) Register(s *discordgo.Session) func() {
	return s.AddHandler(h.onInteraction)
}

func (h *Handler) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionMessageComponent || i.Message == nil {
		return
	}
	if i.MessageComponentData().CustomID != message.EntryButtonID {
		return
	}
	memberID := interactionUserID(i.Interaction)
	if memberID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()

	reply := h.Participate(ctx, i.Message.ID, memberID)
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: reply,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		h.logger.Warn().Err(err).Str("message_id", i.Message.ID).Msg("Failed to answer participate button")
	}
}

// Participate toggles the member's entry and returns the reply shown to them.
func (h *Handler) Participate(ctx context.Context, messageID, memberID string) string {
	outcome, err := h.toggler.ToggleEntry(ctx, messageID, memberID)
	if err != nil {
		h.logger.Error().Err(err).
			Str("message_id", messageID).
			Str("member_id", memberID).
			Msg("Failed to toggle giveaway entry")
		return "Something went wrong, please try again later."
	}
	switch outcome {
	case models.EntryAdded:
		return "You are now participating in this giveaway. Good luck!"
	case models.EntryRemoved:
		return "You are no longer participating in this giveaway."
	default:
		return "You cannot participate in this giveaway."
	}
}

func interactionUserID(i *discordgo.Interaction) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}
