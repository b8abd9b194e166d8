package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"guild-backup/core/guild"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	messagePage = 100
	memberPage  = 1000
	banPage     = 1000
)

// Client is a guild.Client backed by the platform REST API.
type Client struct {
	session session
	limiter *rate.Limiter
	logger  *zap.Logger
	mu      sync.Mutex
}

// NewClient creates a Client for a bot token.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.Token == "" {
		return nil, errors.New("discord: token is required")
	}
	s, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = 30
	}
	s.Client = &http.Client{Timeout: time.Duration(timeout) * time.Second}
	return newClient(s, newLimiter(cfg), logger), nil
}

func newLimiter(cfg Config) *rate.Limiter {
	rps, burst := cfg.RequestsPerSecond, cfg.Burst
	if rps <= 0 {
		rps = 5
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

func newClient(s session, limiter *rate.Limiter, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{session: s, limiter: limiter, logger: logger}
}

// do serializes and throttles one API call.
func (c *Client) do(ctx context.Context, op string, call func(opt discordgo.RequestOption) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	err := classify(op, call(discordgo.WithContext(ctx)))
	if err != nil {
		c.logger.Debug("Platform call failed", zap.String("op", op), zap.Error(err))
	}
	return err
}

// Guild implements guild.Client.
func (c *Client) Guild(ctx context.Context, guildID string) (*guild.Guild, error) {
	var out *discordgo.Guild
	err := c.do(ctx, "guild", func(opt discordgo.RequestOption) (err error) {
		out, err = c.session.Guild(guildID, opt)
		return err
	})
	if err != nil {
		return nil, err
	}
	return toGuild(out), nil
}

// EditGuild implements guild.Client.
func (c *Client) EditGuild(ctx context.Context, guildID string, settings guild.GuildSettings) error {
	params := &discordgo.GuildParams{
		Name:            settings.Name,
		Region:          settings.Region,
		AfkChannelID:    settings.AFKChannelID,
		AfkTimeout:      settings.AFKTimeout,
		SystemChannelID: settings.SystemChannelID,
	}
	if settings.VerificationLevel != nil {
		level := discordgo.VerificationLevel(*settings.VerificationLevel)
		params.VerificationLevel = &level
	}
	return c.do(ctx, "edit guild", func(opt discordgo.RequestOption) error {
		_, err := c.session.GuildEdit(guildID, params, opt)
		return err
	})
}

// Roles implements guild.Client. Roles are ordered by position.
func (c *Client) Roles(ctx context.Context, guildID string) ([]guild.Role, error) {
	var raw []*discordgo.Role
	err := c.do(ctx, "list roles", func(opt discordgo.RequestOption) (err error) {
		raw, err = c.session.GuildRoles(guildID, opt)
		return err
	})
	if err != nil {
		return nil, err
	}
	out := make([]guild.Role, 0, len(raw))
	for _, r := range raw {
		out = append(out, toRole(guildID, r))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

// CreateRole implements guild.Client.
func (c *Client) CreateRole(ctx context.Context, guildID string, params guild.RoleParams) (*guild.Role, error) {
	var raw *discordgo.Role
	err := c.do(ctx, "create role", func(opt discordgo.RequestOption) (err error) {
		raw, err = c.session.GuildRoleCreate(guildID, fromRoleParams(params), opt)
		return err
	})
	if err != nil {
		return nil, err
	}
	role := toRole(guildID, raw)
	return &role, nil
}

// EditRole implements guild.Client.
func (c *Client) EditRole(ctx context.Context, guildID, roleID string, params guild.RoleParams) (*guild.Role, error) {
	var raw *discordgo.Role
	err := c.do(ctx, "edit role", func(opt discordgo.RequestOption) (err error) {
		raw, err = c.session.GuildRoleEdit(guildID, roleID, fromRoleParams(params), opt)
		return err
	})
	if err != nil {
		return nil, err
	}
	role := toRole(guildID, raw)
	return &role, nil
}

// MoveRole implements guild.Client.
func (c *Client) MoveRole(ctx context.Context, guildID, roleID string, position int) error {
	return c.do(ctx, "move role", func(opt discordgo.RequestOption) error {
		_, err := c.session.GuildRoleReorder(guildID, []*discordgo.Role{{ID: roleID, Position: position}}, opt)
		return err
	})
}

// DeleteRole implements guild.Client.
func (c *Client) DeleteRole(ctx context.Context, guildID, roleID string) error {
	return c.do(ctx, "delete role", func(opt discordgo.RequestOption) error {
		return c.session.GuildRoleDelete(guildID, roleID, opt)
	})
}

// Channels implements guild.Client. Unsupported channel types are left out.
func (c *Client) Channels(ctx context.Context, guildID string) ([]guild.Channel, error) {
	var raw []*discordgo.Channel
	err := c.do(ctx, "list channels", func(opt discordgo.RequestOption) (err error) {
		raw, err = c.session.GuildChannels(guildID, opt)
		return err
	})
	if err != nil {
		return nil, err
	}
	out := make([]guild.Channel, 0, len(raw))
	for _, ch := range raw {
		if converted, ok := toChannel(ch); ok {
			out = append(out, converted)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].Position < out[j].Position
	})
	return out, nil
}

// CreateChannel implements guild.Client.
func (c *Client) CreateChannel(ctx context.Context, guildID string, params guild.ChannelParams) (*guild.Channel, error) {
	var raw *discordgo.Channel
	err := c.do(ctx, "create channel", func(opt discordgo.RequestOption) (err error) {
		raw, err = c.session.GuildChannelCreateComplex(guildID, createData(params), opt)
		return err
	})
	if err != nil {
		return nil, err
	}
	ch, _ := toChannel(raw)
	return &ch, nil
}

// EditChannel implements guild.Client.
func (c *Client) EditChannel(ctx context.Context, channelID string, params guild.ChannelParams) (*guild.Channel, error) {
	var raw *discordgo.Channel
	err := c.do(ctx, "edit channel", func(opt discordgo.RequestOption) (err error) {
		raw, err = c.session.ChannelEdit(channelID, editData(params), opt)
		return err
	})
	if err != nil {
		return nil, err
	}
	ch, _ := toChannel(raw)
	return &ch, nil
}

// MoveChannel implements guild.Client.
func (c *Client) MoveChannel(ctx context.Context, guildID, channelID string, position int) error {
	return c.do(ctx, "move channel", func(opt discordgo.RequestOption) error {
		return c.session.GuildChannelsReorder(guildID, []*discordgo.Channel{{ID: channelID, Position: position}}, opt)
	})
}

// DeleteChannel implements guild.Client.
func (c *Client) DeleteChannel(ctx context.Context, channelID string) error {
	return c.do(ctx, "delete channel", func(opt discordgo.RequestOption) error {
		_, err := c.session.ChannelDelete(channelID, opt)
		return err
	})
}

// Members implements guild.Client. It pages through the full member list.
func (c *Client) Members(ctx context.Context, guildID string) ([]guild.Member, error) {
	var out []guild.Member
	after := ""
	for {
		var page []*discordgo.Member
		err := c.do(ctx, "list members", func(opt discordgo.RequestOption) (err error) {
			page, err = c.session.GuildMembers(guildID, after, memberPage, opt)
			return err
		})
		if err != nil {
			return nil, err
		}
		for _, m := range page {
			out = append(out, toMember(m))
		}
		if len(page) < memberPage {
			return out, nil
		}
		after = page[len(page)-1].User.ID
	}
}

// Member implements guild.Client.
func (c *Client) Member(ctx context.Context, guildID, userID string) (*guild.Member, error) {
	var raw *discordgo.Member
	err := c.do(ctx, "get member", func(opt discordgo.RequestOption) (err error) {
		raw, err = c.session.GuildMember(guildID, userID, opt)
		return err
	})
	if err != nil {
		return nil, err
	}
	m := toMember(raw)
	return &m, nil
}

// Bans implements guild.Client. It pages through the full ban list.
func (c *Client) Bans(ctx context.Context, guildID string) ([]guild.Ban, error) {
	var out []guild.Ban
	after := ""
	for {
		var page []*discordgo.GuildBan
		err := c.do(ctx, "list bans", func(opt discordgo.RequestOption) (err error) {
			page, err = c.session.GuildBans(guildID, banPage, "", after, opt)
			return err
		})
		if err != nil {
			return nil, err
		}
		for _, b := range page {
			ban := guild.Ban{Reason: b.Reason}
			if b.User != nil {
				u := toUser(b.User)
				ban.User = &u
			}
			out = append(out, ban)
		}
		if len(page) < banPage || page[len(page)-1].User == nil {
			return out, nil
		}
		after = page[len(page)-1].User.ID
	}
}

// CreateBan implements guild.Client. No message history is deleted.
func (c *Client) CreateBan(ctx context.Context, guildID, userID, reason string) error {
	return c.do(ctx, "create ban", func(opt discordgo.RequestOption) error {
		return c.session.GuildBanCreateWithReason(guildID, userID, reason, 0, opt)
	})
}

// Messages implements guild.Client. The API returns pages newest first; the
// result is reversed to oldest first.
func (c *Client) Messages(ctx context.Context, channelID string, limit int) ([]guild.Message, error) {
	var newest []*discordgo.Message
	before := ""
	for len(newest) < limit {
		size := limit - len(newest)
		if size > messagePage {
			size = messagePage
		}
		var page []*discordgo.Message
		err := c.do(ctx, "list messages", func(opt discordgo.RequestOption) (err error) {
			page, err = c.session.ChannelMessages(channelID, size, before, "", "", opt)
			return err
		})
		if err != nil {
			return nil, err
		}
		newest = append(newest, page...)
		if len(page) < size {
			break
		}
		before = page[len(page)-1].ID
	}

	out := make([]guild.Message, len(newest))
	for i, m := range newest {
		out[len(newest)-1-i] = toMessage(m)
	}
	return out, nil
}

// Webhooks implements guild.Client.
func (c *Client) Webhooks(ctx context.Context, channelID string) ([]guild.Webhook, error) {
	var raw []*discordgo.Webhook
	err := c.do(ctx, "list webhooks", func(opt discordgo.RequestOption) (err error) {
		raw, err = c.session.ChannelWebhooks(channelID, opt)
		return err
	})
	if err != nil {
		return nil, err
	}
	out := make([]guild.Webhook, 0, len(raw))
	for _, w := range raw {
		out = append(out, toWebhook(w))
	}
	return out, nil
}

// CreateWebhook implements guild.Client.
func (c *Client) CreateWebhook(ctx context.Context, channelID, name string) (*guild.Webhook, error) {
	var raw *discordgo.Webhook
	err := c.do(ctx, "create webhook", func(opt discordgo.RequestOption) (err error) {
		raw, err = c.session.WebhookCreate(channelID, name, "", opt)
		return err
	})
	if err != nil {
		return nil, err
	}
	w := toWebhook(raw)
	return &w, nil
}

// ExecuteWebhook implements guild.Client.
func (c *Client) ExecuteWebhook(ctx context.Context, webhook *guild.Webhook, msg guild.RelayMessage) error {
	return c.do(ctx, "execute webhook", func(opt discordgo.RequestOption) error {
		_, err := c.session.WebhookExecute(webhook.ID, webhook.Token, false, webhookParams(msg), opt)
		return err
	})
}

// DeleteWebhook implements guild.Client.
func (c *Client) DeleteWebhook(ctx context.Context, webhookID string) error {
	return c.do(ctx, "delete webhook", func(opt discordgo.RequestOption) error {
		return c.session.WebhookDelete(webhookID, opt)
	})
}

var _ guild.Client = (*Client)(nil)
