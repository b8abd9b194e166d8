package reconcile

import (
	"context"
	"fmt"
	"sort"
	"time"

	"guild-backup/core/guild"
	"guild-backup/core/idmap"
	"guild-backup/core/overwrite"
	"guild-backup/core/snapshot"

	"go.uber.org/zap"
)

// Copier rebuilds a live source guild on a target guild without an
// intermediate snapshot. Every copy clears the target first.
type Copier struct {
	engine
}

// NewCopier creates a Copier. Source and target are read and written through
// the same client.
func NewCopier(client guild.Client, sanitizer guild.Sanitizer, logger *zap.Logger) *Copier {
	return &Copier{engine: newEngine(client, sanitizer, logger)}
}

// WithRecorder sets the observer notified of every outcome.
func (c *Copier) WithRecorder(rec Recorder) *Copier {
	c.recorder = rec
	return c
}

// Copy clears targetGuildID and rebuilds sourceGuildID on it. It returns the
// report and the source to target id mapping built so far, also on failure.
func (c *Copier) Copy(ctx context.Context, sourceGuildID, targetGuildID string, opts CopyOptions) (*Report, map[string]string, error) {
	switch {
	case c.client == nil:
		return nil, nil, fmt.Errorf("%w: no guild client", ErrInvalidInput)
	case !guild.ValidID(sourceGuildID):
		return nil, nil, fmt.Errorf("%w: source guild id %q", ErrInvalidInput, sourceGuildID)
	case !guild.ValidID(targetGuildID):
		return nil, nil, fmt.Errorf("%w: target guild id %q", ErrInvalidInput, targetGuildID)
	case sourceGuildID == targetGuildID:
		return nil, nil, fmt.Errorf("%w: source and target are the same guild", ErrInvalidInput)
	}

	r := c.newRun(targetGuildID)
	tr := idmap.New()
	start := time.Now()
	r.logger.Info("Starting copy", zap.String("source_guild", sourceGuildID), zap.Int("chatlog_depth", opts.depth()))

	source, err := c.client.Guild(ctx, sourceGuildID)
	if err != nil {
		return r.report, tr.Map(), stageError("source", err)
	}

	if err := c.clear(ctx, r); err != nil {
		return r.report, tr.Map(), stageError("clear", err)
	}
	if err := c.copyRoles(ctx, r, sourceGuildID, tr); err != nil {
		return r.report, tr.Map(), stageError("roles", err)
	}
	if err := c.copyChannels(ctx, r, sourceGuildID, tr, opts.depth()); err != nil {
		return r.report, tr.Map(), stageError("channels", err)
	}
	if opts.Bans {
		if err := c.copyBans(ctx, r, sourceGuildID); err != nil {
			return r.report, tr.Map(), stageError("bans", err)
		}
	}
	if err := c.copySettings(ctx, r, source, tr); err != nil {
		return r.report, tr.Map(), stageError("guild", err)
	}

	r.logger.Info("Copy complete",
		zap.Duration("duration", time.Since(start)),
		zap.Int("created", r.report.Summary.Created),
		zap.Int("failed", r.report.Summary.Failed),
		zap.Int("mapped", tr.Len()),
	)
	return r.report, tr.Map(), nil
}

func (c *Copier) copyRoles(ctx context.Context, r *run, sourceGuildID string, tr *idmap.Translator) error {
	roles, err := c.client.Roles(ctx, sourceGuildID)
	if err != nil {
		return err
	}
	sort.SliceStable(roles, func(i, j int) bool { return roles[i].Position < roles[j].Position })

	existing, err := c.client.Roles(ctx, r.guildID)
	if err != nil {
		return err
	}

	stored, ok := findDefaultRole(roles, sourceGuildID)
	if !ok {
		return fmt.Errorf("source guild %s has no everyone-role", sourceGuildID)
	}
	if err := c.editDefaultRole(ctx, r, tr, existing, stored.ID, stored.Permissions); err != nil {
		return err
	}

	var placements []placement
	for i := len(roles) - 1; i >= 0; i-- {
		role := roles[i]
		if role.Managed || isDefaultRole(role, sourceGuildID) {
			continue
		}

		perms, color, hoist, mentionable := role.Permissions, role.Color, role.Hoist, role.Mentionable
		created, err := c.client.CreateRole(ctx, r.guildID, guild.RoleParams{
			Name:        role.Name,
			Permissions: &perms,
			Color:       &color,
			Hoist:       &hoist,
			Mentionable: &mentionable,
		})
		if err != nil {
			if err := r.fail(KindRole, role.ID, "", fmt.Errorf("create: %w", err)); err != nil {
				return err
			}
			continue
		}
		if r.bind(tr, KindRole, role.ID, created.ID) {
			r.record(Outcome{Kind: KindRole, SourceID: role.ID, TargetID: created.ID, Action: ActionCreated})
			placements = append(placements, placement{KindRole, role.ID, created.ID, role.Position})
		}
	}
	return c.placeRoles(ctx, r, placements)
}

func (c *Copier) copyChannels(ctx context.Context, r *run, sourceGuildID string, tr *idmap.Translator, depth int) error {
	channels, err := c.client.Channels(ctx, sourceGuildID)
	if err != nil {
		return err
	}
	sort.SliceStable(channels, func(i, j int) bool { return channels[i].Position < channels[j].Position })

	var placements []placement
	for _, ch := range channels {
		if ch.Type != guild.ChannelCategory {
			continue
		}
		id, err := c.createChannel(ctx, r, tr, channelJob{
			kind:     KindCategory,
			sourceID: ch.ID,
			create:   guild.ChannelParams{Name: ch.Name, Type: guild.ChannelCategory, Overwrites: overwrite.Translate(ch.Overwrites, tr)},
		})
		if err != nil {
			return err
		}
		if id == "" {
			return fmt.Errorf("category %q (%s) could not be created", ch.Name, ch.ID)
		}
		placements = append(placements, placement{KindCategory, ch.ID, id, ch.Position})
	}
	if err := c.placeChannels(ctx, r, placements); err != nil {
		return err
	}

	placements = nil
	for _, ch := range channels {
		if ch.Type != guild.ChannelText {
			continue
		}
		topic, nsfw, slowmode := ch.Topic, ch.NSFW, ch.RateLimitPerUser
		id, err := c.createChannel(ctx, r, tr, channelJob{
			kind:      KindText,
			sourceID:  ch.ID,
			create:    c.childParams(ch, tr),
			configure: &guild.ChannelParams{Topic: &topic, NSFW: &nsfw, RateLimitPerUser: &slowmode},
		})
		if err != nil {
			return err
		}
		if id == "" {
			continue
		}
		placements = append(placements, placement{KindText, ch.ID, id, ch.Position})
		if depth == 0 {
			continue
		}
		history, err := c.client.Messages(ctx, ch.ID, depth)
		if err != nil {
			if err := r.fail(KindMessage, ch.ID, id, fmt.Errorf("read history: %w", err)); err != nil {
				return err
			}
			continue
		}
		msgs := make([]snapshot.Message, 0, len(history))
		for _, m := range history {
			msgs = append(msgs, snapshot.NewMessage(m))
		}
		if err := c.replay(ctx, r, id, msgs); err != nil {
			return err
		}
	}
	if err := c.placeChannels(ctx, r, placements); err != nil {
		return err
	}

	placements = nil
	for _, ch := range channels {
		if ch.Type != guild.ChannelVoice {
			continue
		}
		id, err := c.createChannel(ctx, r, tr, channelJob{
			kind:      KindVoice,
			sourceID:  ch.ID,
			create:    c.childParams(ch, tr),
			configure: voiceSettings(ch.Bitrate, ch.UserLimit),
		})
		if err != nil {
			return err
		}
		if id != "" {
			placements = append(placements, placement{KindVoice, ch.ID, id, ch.Position})
		}
	}
	return c.placeChannels(ctx, r, placements)
}

func (c *Copier) childParams(ch guild.Channel, tr *idmap.Translator) guild.ChannelParams {
	return guild.ChannelParams{
		Name:       ch.Name,
		Type:       ch.Type,
		ParentID:   optionalString(tr.Resolve(ch.ParentID)),
		Overwrites: overwrite.Translate(ch.Overwrites, tr),
	}
}

func (c *Copier) copyBans(ctx context.Context, r *run, sourceGuildID string) error {
	bans, err := c.client.Bans(ctx, sourceGuildID)
	if err != nil {
		if aborts(err) {
			return err
		}
		r.logger.Warn("Source ban list unavailable", zap.Error(err))
		return nil
	}
	for _, ban := range bans {
		if ban.User == nil {
			r.skip(KindBan, "", "banned account no longer exists")
			continue
		}
		if err := c.client.CreateBan(ctx, r.guildID, ban.User.ID, ban.Reason); err != nil {
			if err := r.fail(KindBan, ban.User.ID, ban.User.ID, err); err != nil {
				return err
			}
			continue
		}
		r.record(Outcome{Kind: KindBan, SourceID: ban.User.ID, TargetID: ban.User.ID, Action: ActionCreated})
	}
	return nil
}

// copySettings writes guild-level metadata once every channel id is known.
func (c *Copier) copySettings(ctx context.Context, r *run, source *guild.Guild, tr *idmap.Translator) error {
	verification := source.VerificationLevel
	settings := guild.GuildSettings{
		Name:              source.Name,
		Region:            source.Region,
		AFKChannelID:      tr.Resolve(source.AFKChannelID),
		AFKTimeout:        source.AFKTimeout,
		VerificationLevel: &verification,
		SystemChannelID:   tr.Resolve(source.SystemChannelID),
	}
	if err := c.client.EditGuild(ctx, r.guildID, settings); err != nil {
		return r.fail(KindGuild, source.ID, r.guildID, err)
	}
	r.record(Outcome{Kind: KindGuild, SourceID: source.ID, TargetID: r.guildID, Action: ActionEdited})
	return nil
}
