// Package fake provides an in-memory guild.Client.
//
// It mimics the platform closely enough for the engines: new roles land just
// above the everyone-role, new channels are appended after the last channel
// of their type, and message history is returned oldest-first. Every call is
// counted in Calls so tests can assert how many creations a run performed.
package fake

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"guild-backup/core/guild"

	"github.com/bwmarrin/snowflake"
)

// FailFunc decides whether op on the entity id should fail.
// Returning nil lets the call proceed.
type FailFunc func(op, id string) error

type server struct {
	meta     guild.Guild
	roles    map[string]*guild.Role
	channels map[string]*guild.Channel
	members  map[string]guild.Member
	bans     map[string]guild.Ban
}

// Client is an in-memory guild.Client. The zero value is not usable; call New.
type Client struct {
	mu       sync.Mutex
	node     *snowflake.Node
	servers  map[string]*server
	messages map[string][]guild.Message
	webhooks map[string]guild.Webhook
	relayed  map[string][]guild.RelayMessage
	users    map[string]guild.User

	// Calls counts invocations per operation name (e.g. "CreateRole").
	Calls map[string]int
	// Fail is consulted before every mutating call.
	Fail FailFunc
}

// New creates an empty fake platform.
func New() *Client {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return &Client{
		node:     node,
		servers:  make(map[string]*server),
		messages: make(map[string][]guild.Message),
		webhooks: make(map[string]guild.Webhook),
		relayed:  make(map[string][]guild.RelayMessage),
		users:    make(map[string]guild.User),
		Calls:    make(map[string]int),
	}
}

func (c *Client) nextID() string {
	return c.node.Generate().String()
}

// AddGuild registers a new guild with its everyone-role and returns its id.
func (c *Client) AddGuild(name string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID()
	c.servers[id] = &server{
		meta:     guild.Guild{ID: id, Name: name, OwnerID: c.nextID(), Region: "us-west", AFKTimeout: 300},
		roles:    map[string]*guild.Role{id: {ID: id, Name: "@everyone", Default: true, Permissions: 104324673}},
		channels: make(map[string]*guild.Channel),
		members:  make(map[string]guild.Member),
		bans:     make(map[string]guild.Ban),
	}
	return id
}

// SetGuild overwrites the metadata of a guild, keeping its id.
func (c *Client) SetGuild(g guild.Guild) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.mustServer(g.ID)
	s.meta = g
}

// SeedRole inserts a role as-is and returns its id.
func (c *Client) SeedRole(guildID string, r guild.Role) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.mustServer(guildID)
	if r.ID == "" {
		r.ID = c.nextID()
	}
	role := r
	s.roles[r.ID] = &role
	return r.ID
}

// SeedChannel inserts a channel as-is and returns its id.
func (c *Client) SeedChannel(guildID string, ch guild.Channel) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.mustServer(guildID)
	if ch.ID == "" {
		ch.ID = c.nextID()
	}
	channel := ch
	s.channels[ch.ID] = &channel
	return ch.ID
}

// SeedMember adds a member and remembers the user.
func (c *Client) SeedMember(guildID string, m guild.Member) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.mustServer(guildID)
	s.members[m.User.ID] = m
	c.users[m.User.ID] = m.User
}

// SeedUser registers a platform account that is not a member anywhere.
func (c *Client) SeedUser(u guild.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users[u.ID] = u
}

// SeedBan adds a ban entry as-is; a nil User simulates a deleted account.
func (c *Client) SeedBan(guildID, key string, b guild.Ban) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.mustServer(guildID)
	s.bans[key] = b
}

// SeedMessages appends messages to a channel history, oldest first.
func (c *Client) SeedMessages(channelID string, msgs ...guild.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range msgs {
		if m.ID == "" {
			m.ID = c.nextID()
		}
		c.messages[channelID] = append(c.messages[channelID], m)
	}
}

// Relayed returns the messages sent through webhooks on a channel.
func (c *Client) Relayed(channelID string) []guild.RelayMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]guild.RelayMessage(nil), c.relayed[channelID]...)
}

// WebhookCount returns the number of live webhooks on a channel.
func (c *Client) WebhookCount(channelID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, w := range c.webhooks {
		if w.ChannelID == channelID {
			n++
		}
	}
	return n
}

// CallCount returns the number of calls made to op.
func (c *Client) CallCount(op string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Calls[op]
}

// ResetCalls clears the call counters.
func (c *Client) ResetCalls() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls = make(map[string]int)
}

func (c *Client) mustServer(id string) *server {
	s, ok := c.servers[id]
	if !ok {
		panic(fmt.Sprintf("fake: unknown guild %s", id))
	}
	return s
}

func (c *Client) enter(op, id string) error {
	c.Calls[op]++
	if c.Fail != nil {
		return c.Fail(op, id)
	}
	return nil
}

func (c *Client) lookup(id string) (*server, error) {
	s, ok := c.servers[id]
	if !ok {
		return nil, fmt.Errorf("guild %s: %w", id, guild.ErrNotFound)
	}
	return s, nil
}

func (c *Client) findChannel(id string) (*server, *guild.Channel, error) {
	for _, s := range c.servers {
		if ch, ok := s.channels[id]; ok {
			return s, ch, nil
		}
	}
	return nil, nil, fmt.Errorf("channel %s: %w", id, guild.ErrNotFound)
}

func copyChannel(ch *guild.Channel) guild.Channel {
	out := *ch
	out.Overwrites = append([]guild.Overwrite(nil), ch.Overwrites...)
	return out
}

// Guild implements guild.Client.
func (c *Client) Guild(ctx context.Context, guildID string) (*guild.Guild, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("Guild", guildID); err != nil {
		return nil, err
	}
	s, err := c.lookup(guildID)
	if err != nil {
		return nil, err
	}
	g := s.meta
	g.MemberCount = len(s.members)
	return &g, nil
}

// EditGuild implements guild.Client.
func (c *Client) EditGuild(ctx context.Context, guildID string, settings guild.GuildSettings) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("EditGuild", guildID); err != nil {
		return err
	}
	s, err := c.lookup(guildID)
	if err != nil {
		return err
	}
	if settings.Name != "" {
		s.meta.Name = settings.Name
	}
	if settings.Region != "" {
		s.meta.Region = settings.Region
	}
	if settings.AFKChannelID != "" {
		s.meta.AFKChannelID = settings.AFKChannelID
	}
	if settings.AFKTimeout != 0 {
		s.meta.AFKTimeout = settings.AFKTimeout
	}
	if settings.VerificationLevel != nil {
		s.meta.VerificationLevel = *settings.VerificationLevel
	}
	if settings.SystemChannelID != "" {
		s.meta.SystemChannelID = settings.SystemChannelID
	}
	return nil
}

// Roles implements guild.Client. Roles are ordered by position, then id.
func (c *Client) Roles(ctx context.Context, guildID string) ([]guild.Role, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("Roles", guildID); err != nil {
		return nil, err
	}
	s, err := c.lookup(guildID)
	if err != nil {
		return nil, err
	}
	out := make([]guild.Role, 0, len(s.roles))
	for _, r := range s.roles {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func applyRoleParams(r *guild.Role, p guild.RoleParams) {
	if p.Name != "" {
		r.Name = p.Name
	}
	if p.Permissions != nil {
		r.Permissions = *p.Permissions
	}
	if p.Color != nil {
		r.Color = *p.Color
	}
	if p.Hoist != nil {
		r.Hoist = *p.Hoist
	}
	if p.Mentionable != nil {
		r.Mentionable = *p.Mentionable
	}
}

// CreateRole implements guild.Client. The new role takes position 1 and
// every non-default role is shifted up by one.
func (c *Client) CreateRole(ctx context.Context, guildID string, params guild.RoleParams) (*guild.Role, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("CreateRole", params.Name); err != nil {
		return nil, err
	}
	s, err := c.lookup(guildID)
	if err != nil {
		return nil, err
	}
	for _, r := range s.roles {
		if !r.Default {
			r.Position++
		}
	}
	role := &guild.Role{ID: c.nextID(), Name: "new role", Position: 1}
	applyRoleParams(role, params)
	s.roles[role.ID] = role
	out := *role
	return &out, nil
}

// EditRole implements guild.Client.
func (c *Client) EditRole(ctx context.Context, guildID, roleID string, params guild.RoleParams) (*guild.Role, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("EditRole", roleID); err != nil {
		return nil, err
	}
	s, err := c.lookup(guildID)
	if err != nil {
		return nil, err
	}
	role, ok := s.roles[roleID]
	if !ok {
		return nil, fmt.Errorf("role %s: %w", roleID, guild.ErrNotFound)
	}
	applyRoleParams(role, params)
	out := *role
	return &out, nil
}

// MoveRole implements guild.Client.
func (c *Client) MoveRole(ctx context.Context, guildID, roleID string, position int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("MoveRole", roleID); err != nil {
		return err
	}
	s, err := c.lookup(guildID)
	if err != nil {
		return err
	}
	role, ok := s.roles[roleID]
	if !ok {
		return fmt.Errorf("role %s: %w", roleID, guild.ErrNotFound)
	}
	role.Position = position
	return nil
}

// DeleteRole implements guild.Client.
func (c *Client) DeleteRole(ctx context.Context, guildID, roleID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("DeleteRole", roleID); err != nil {
		return err
	}
	s, err := c.lookup(guildID)
	if err != nil {
		return err
	}
	role, ok := s.roles[roleID]
	if !ok {
		return fmt.Errorf("role %s: %w", roleID, guild.ErrNotFound)
	}
	if role.Default {
		return fmt.Errorf("fake: cannot delete the everyone-role")
	}
	delete(s.roles, roleID)
	return nil
}

// Channels implements guild.Client. Channels are ordered by type, position, then id.
func (c *Client) Channels(ctx context.Context, guildID string) ([]guild.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("Channels", guildID); err != nil {
		return nil, err
	}
	s, err := c.lookup(guildID)
	if err != nil {
		return nil, err
	}
	out := make([]guild.Channel, 0, len(s.channels))
	for _, ch := range s.channels {
		out = append(out, copyChannel(ch))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func applyChannelParams(ch *guild.Channel, p guild.ChannelParams) {
	if p.Name != "" {
		ch.Name = p.Name
	}
	if p.ParentID != nil {
		ch.ParentID = *p.ParentID
	}
	if p.Overwrites != nil {
		ch.Overwrites = append([]guild.Overwrite(nil), p.Overwrites...)
	}
	if p.Topic != nil {
		ch.Topic = *p.Topic
	}
	if p.NSFW != nil {
		ch.NSFW = *p.NSFW
	}
	if p.RateLimitPerUser != nil {
		ch.RateLimitPerUser = *p.RateLimitPerUser
	}
	if p.Bitrate != nil {
		ch.Bitrate = *p.Bitrate
	}
	if p.UserLimit != nil {
		ch.UserLimit = *p.UserLimit
	}
}

// CreateChannel implements guild.Client.
func (c *Client) CreateChannel(ctx context.Context, guildID string, params guild.ChannelParams) (*guild.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("CreateChannel", params.Name); err != nil {
		return nil, err
	}
	s, err := c.lookup(guildID)
	if err != nil {
		return nil, err
	}
	if params.ParentID != nil && *params.ParentID != "" {
		parent, ok := s.channels[*params.ParentID]
		if !ok || parent.Type != guild.ChannelCategory {
			return nil, fmt.Errorf("parent %s: %w", *params.ParentID, guild.ErrNotFound)
		}
	}
	position := 0
	for _, ch := range s.channels {
		if ch.Type == params.Type && ch.Position >= position {
			position = ch.Position + 1
		}
	}
	ch := &guild.Channel{ID: c.nextID(), Type: params.Type, Position: position}
	if params.Type == guild.ChannelVoice {
		ch.Bitrate = 64000
	}
	applyChannelParams(ch, params)
	s.channels[ch.ID] = ch
	out := copyChannel(ch)
	return &out, nil
}

// EditChannel implements guild.Client.
func (c *Client) EditChannel(ctx context.Context, channelID string, params guild.ChannelParams) (*guild.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("EditChannel", channelID); err != nil {
		return nil, err
	}
	_, ch, err := c.findChannel(channelID)
	if err != nil {
		return nil, err
	}
	applyChannelParams(ch, params)
	out := copyChannel(ch)
	return &out, nil
}

// MoveChannel implements guild.Client.
func (c *Client) MoveChannel(ctx context.Context, guildID, channelID string, position int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("MoveChannel", channelID); err != nil {
		return err
	}
	_, ch, err := c.findChannel(channelID)
	if err != nil {
		return err
	}
	ch.Position = position
	return nil
}

// DeleteChannel implements guild.Client. Children of a deleted category
// become top-level, as on the platform.
func (c *Client) DeleteChannel(ctx context.Context, channelID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("DeleteChannel", channelID); err != nil {
		return err
	}
	s, _, err := c.findChannel(channelID)
	if err != nil {
		return err
	}
	delete(s.channels, channelID)
	for _, ch := range s.channels {
		if ch.ParentID == channelID {
			ch.ParentID = ""
		}
	}
	delete(c.messages, channelID)
	return nil
}

// Members implements guild.Client.
func (c *Client) Members(ctx context.Context, guildID string) ([]guild.Member, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("Members", guildID); err != nil {
		return nil, err
	}
	s, err := c.lookup(guildID)
	if err != nil {
		return nil, err
	}
	out := make([]guild.Member, 0, len(s.members))
	for _, m := range s.members {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].User.ID < out[j].User.ID })
	return out, nil
}

// Member implements guild.Client.
func (c *Client) Member(ctx context.Context, guildID, userID string) (*guild.Member, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("Member", userID); err != nil {
		return nil, err
	}
	s, err := c.lookup(guildID)
	if err != nil {
		return nil, err
	}
	m, ok := s.members[userID]
	if !ok {
		return nil, fmt.Errorf("member %s: %w", userID, guild.ErrNotFound)
	}
	return &m, nil
}

// Bans implements guild.Client.
func (c *Client) Bans(ctx context.Context, guildID string) ([]guild.Ban, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("Bans", guildID); err != nil {
		return nil, err
	}
	s, err := c.lookup(guildID)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(s.bans))
	for k := range s.bans {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]guild.Ban, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.bans[k])
	}
	return out, nil
}

// CreateBan implements guild.Client. Unknown users and existing bans fail.
func (c *Client) CreateBan(ctx context.Context, guildID, userID, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("CreateBan", userID); err != nil {
		return err
	}
	s, err := c.lookup(guildID)
	if err != nil {
		return err
	}
	u, ok := c.users[userID]
	if !ok {
		return fmt.Errorf("user %s: %w", userID, guild.ErrNotFound)
	}
	if _, banned := s.bans[userID]; banned {
		return fmt.Errorf("fake: user %s already banned", userID)
	}
	s.bans[userID] = guild.Ban{User: &u, Reason: reason}
	delete(s.members, userID)
	return nil
}

// Messages implements guild.Client.
func (c *Client) Messages(ctx context.Context, channelID string, limit int) ([]guild.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("Messages", channelID); err != nil {
		return nil, err
	}
	if _, _, err := c.findChannel(channelID); err != nil {
		return nil, err
	}
	history := c.messages[channelID]
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	return append([]guild.Message(nil), history...), nil
}

// Webhooks implements guild.Client.
func (c *Client) Webhooks(ctx context.Context, channelID string) ([]guild.Webhook, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("Webhooks", channelID); err != nil {
		return nil, err
	}
	var out []guild.Webhook
	for _, w := range c.webhooks {
		if w.ChannelID == channelID {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CreateWebhook implements guild.Client.
func (c *Client) CreateWebhook(ctx context.Context, channelID, name string) (*guild.Webhook, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("CreateWebhook", channelID); err != nil {
		return nil, err
	}
	if _, _, err := c.findChannel(channelID); err != nil {
		return nil, err
	}
	id := c.nextID()
	w := guild.Webhook{ID: id, ChannelID: channelID, Name: name, Token: "token-" + id}
	w.URL = "https://fake.invalid/webhooks/" + id + "/" + w.Token
	c.webhooks[id] = w
	return &w, nil
}

// ExecuteWebhook implements guild.Client.
func (c *Client) ExecuteWebhook(ctx context.Context, webhook *guild.Webhook, msg guild.RelayMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("ExecuteWebhook", webhook.ID); err != nil {
		return err
	}
	w, ok := c.webhooks[webhook.ID]
	if !ok || w.Token != webhook.Token {
		return fmt.Errorf("webhook %s: %w", webhook.ID, guild.ErrNotFound)
	}
	c.relayed[w.ChannelID] = append(c.relayed[w.ChannelID], msg)
	c.messages[w.ChannelID] = append(c.messages[w.ChannelID], guild.Message{
		ID:            c.nextID(),
		Content:       msg.Content,
		CleanContent:  msg.Content,
		SystemContent: msg.Content,
		Author:        guild.User{ID: w.ID, Name: msg.Username, Discriminator: "0000", AvatarURL: msg.AvatarURL, Bot: true},
		Embeds:        msg.Embeds,
	})
	return nil
}

// DeleteWebhook implements guild.Client.
func (c *Client) DeleteWebhook(ctx context.Context, webhookID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("DeleteWebhook", webhookID); err != nil {
		return err
	}
	if _, ok := c.webhooks[webhookID]; !ok {
		return fmt.Errorf("webhook %s: %w", webhookID, guild.ErrNotFound)
	}
	delete(c.webhooks, webhookID)
	return nil
}

var _ guild.Client = (*Client)(nil)
