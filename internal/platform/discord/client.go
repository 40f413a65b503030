package discord

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/nevar-bot/nevar-v6-sub000/internal/domain/member"
	"github.com/nevar-bot/nevar-v6-sub000/internal/domain/message"
)

// restAPI is the subset of *discordgo.Session the client uses.
type restAPI interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	GuildBanCreateWithReason(guildID, userID, reason string, days int, options ...discordgo.RequestOption) error
	GuildBanDelete(guildID, userID string, options ...discordgo.RequestOption) error
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
}

// Client adapts the Discord REST API to the messaging, moderation and
// member lookups the services need.
type Client struct {
	api    restAPI
	logger zerolog.Logger
}

func NewClient(api restAPI, logger zerolog.Logger) *Client {
	return &Client{api: api, logger: logger}
}

// NewSession creates a bot session listening for guild and interaction events.
func NewSession(token string) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers
	return s, nil
}

// classify maps "unknown entity" API errors onto message.ErrNotFound.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Message != nil {
		switch rest.Message.Code {
		case discordgo.ErrCodeUnknownChannel,
			discordgo.ErrCodeUnknownMessage,
			discordgo.ErrCodeUnknownMember,
			discordgo.ErrCodeUnknownUser,
			discordgo.ErrCodeUnknownBan:
			return fmt.Errorf("%w: %s", message.ErrNotFound, rest.Message.Message)
		}
	}
	return err
}

func components(msg message.Message) []discordgo.MessageComponent {
	if !msg.EntryButton {
		return []discordgo.MessageComponent{}
	}
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Participate",
					Style:    discordgo.PrimaryButton,
					CustomID: message.EntryButtonID,
					Emoji:    &discordgo.ComponentEmoji{Name: "🎉"},
				},
			},
		},
	}
}

func hasEntryButton(comps []discordgo.MessageComponent) bool {
	for _, c := range comps {
		switch c := c.(type) {
		case *discordgo.ActionsRow:
			if hasEntryButton(c.Components) {
				return true
			}
		case discordgo.ActionsRow:
			if hasEntryButton(c.Components) {
				return true
			}
		case *discordgo.Button:
			if c.CustomID == message.EntryButtonID {
				return true
			}
		case discordgo.Button:
			if c.CustomID == message.EntryButtonID {
				return true
			}
		}
	}
	return false
}

func (c *Client) SendMessage(ctx context.Context, channelID string, msg message.Message) (string, error) {
	sent, err := c.api.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content:    msg.Content,
		Components: components(msg),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("send message to %s: %w", channelID, classify(err))
	}
	return sent.ID, nil
}

func (c *Client) EditMessage(ctx context.Context, channelID, messageID string, msg message.Message) error {
	comps := components(msg)
	edit := discordgo.NewMessageEdit(channelID, messageID).SetContent(msg.Content)
	edit.Components = &comps
	if _, err := c.api.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("edit message %s: %w", messageID, classify(err))
	}
	return nil
}

func (c *Client) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	if err := c.api.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("delete message %s: %w", messageID, classify(err))
	}
	return nil
}

func (c *Client) FetchMessage(ctx context.Context, channelID, messageID string) (*message.Message, error) {
	m, err := c.api.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("fetch message %s: %w", messageID, classify(err))
	}
	return &message.Message{Content: m.Content, EntryButton: hasEntryButton(m.Components)}, nil
}

// Ban bans the member without deleting their messages.
func (c *Client) Ban(ctx context.Context, guildID, memberID, reason string) error {
	if err := c.api.GuildBanCreateWithReason(guildID, memberID, reason, 0, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("ban %s in %s: %w", memberID, guildID, classify(err))
	}
	return nil
}

// Unban lifts a ban. A ban that no longer exists counts as lifted.
func (c *Client) Unban(ctx context.Context, guildID, memberID, reason string) error {
	err := classify(c.api.GuildBanDelete(guildID, memberID, discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason)))
	if errors.Is(err, message.ErrNotFound) {
		c.logger.Debug().Str("guild_id", guildID).Str("member_id", memberID).Msg("Ban already lifted")
		return nil
	}
	if err != nil {
		return fmt.Errorf("unban %s in %s: %w", memberID, guildID, err)
	}
	return nil
}

func (c *Client) Member(ctx context.Context, guildID, memberID string) (*member.Profile, error) {
	m, err := c.api.GuildMember(guildID, memberID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("get member %s: %w", memberID, classify(err))
	}
	return &member.Profile{
		RoleIDs:  m.Roles,
		JoinedAt: m.JoinedAt,
		Boosting: m.PremiumSince != nil,
	}, nil
}

// AccountCreatedAt decodes the creation time embedded in a Discord id.
func (c *Client) AccountCreatedAt(memberID string) (time.Time, error) {
	t, err := discordgo.SnowflakeTimestamp(memberID)
	if err != nil {
		return time.Time{}, fmt.Errorf("decode snowflake %s: %w", memberID, err)
	}
	return t, nil
}
