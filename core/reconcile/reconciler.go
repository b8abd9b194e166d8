package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"guild-backup/core/guild"
	"guild-backup/core/idmap"
	"guild-backup/core/overwrite"
	"guild-backup/core/snapshot"

	"go.uber.org/zap"
)

// Reconciler replays snapshots onto live guilds.
type Reconciler struct {
	engine
}

// NewReconciler creates a Reconciler. A nil sanitizer relays content
// unchanged; a nil logger disables logging.
func NewReconciler(client guild.Client, sanitizer guild.Sanitizer, logger *zap.Logger) *Reconciler {
	return &Reconciler{engine: newEngine(client, sanitizer, logger)}
}

// WithRecorder sets the observer notified of every outcome.
func (rc *Reconciler) WithRecorder(rec Recorder) *Reconciler {
	rc.recorder = rec
	return rc
}

// Reconcile converges the target guild toward snap. The returned report is
// non-nil whenever the input was valid, including when a stage aborted.
func (rc *Reconciler) Reconcile(ctx context.Context, snap *snapshot.Snapshot, targetGuildID string, opts Options) (*Report, error) {
	if err := rc.validate(snap, targetGuildID, opts); err != nil {
		return nil, err
	}

	r := rc.newRun(targetGuildID)
	tr := idmap.New()
	merge := !opts.ClearFirst
	start := time.Now()

	r.logger.Info("Starting reconcile",
		zap.String("source_guild", snap.ID),
		zap.Bool("clear_first", opts.ClearFirst),
		zap.Int("chatlog_depth", opts.ChatlogDepth),
		zap.String("overwrite_match", opts.OverwriteMatch.String()),
		zap.String("requester", opts.Requester),
	)

	if opts.ClearFirst {
		if err := rc.clear(ctx, r); err != nil {
			return r.report, stageError("clear", err)
		}
	}

	if opts.Sections.Roles {
		if err := rc.roles(ctx, r, snap, tr, merge); err != nil {
			return r.report, stageError("roles", err)
		}
	} else if opts.Sections.Channels {
		if err := rc.bindRoles(ctx, r, snap, tr); err != nil {
			return r.report, stageError("roles", err)
		}
	}

	if opts.Sections.Channels {
		if err := rc.channels(ctx, r, snap, tr, opts); err != nil {
			return r.report, stageError("channels", err)
		}
	}

	if opts.Sections.Bans {
		if err := rc.bans(ctx, r, snap, tr, opts); err != nil {
			return r.report, stageError("bans", err)
		}
	}

	r.logger.Info("Reconcile complete",
		zap.Duration("duration", time.Since(start)),
		zap.Int("created", r.report.Summary.Created),
		zap.Int("reused", r.report.Summary.Reused),
		zap.Int("deleted", r.report.Summary.Deleted),
		zap.Int("failed", r.report.Summary.Failed),
	)
	return r.report, nil
}

func (rc *Reconciler) validate(snap *snapshot.Snapshot, targetGuildID string, opts Options) error {
	switch {
	case rc.client == nil:
		return fmt.Errorf("%w: no guild client", ErrInvalidInput)
	case snap == nil:
		return fmt.Errorf("%w: no snapshot", ErrInvalidInput)
	case !guild.ValidID(targetGuildID):
		return fmt.Errorf("%w: target guild id %q", ErrInvalidInput, targetGuildID)
	case opts.ChatlogDepth < 0:
		return fmt.Errorf("%w: negative chatlog depth", ErrInvalidInput)
	case opts.OverwriteMatch != MatchOverwriteCount && opts.OverwriteMatch != MatchOverwriteContent:
		return fmt.Errorf("%w: overwrite match policy %s", ErrInvalidInput, opts.OverwriteMatch)
	case opts.Sections == (Sections{}):
		return fmt.Errorf("%w: no sections selected", ErrInvalidInput)
	}
	if err := snap.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return nil
}

func roleParams(role snapshot.Role) guild.RoleParams {
	perms, color, hoist, mentionable := role.Permissions, role.Color, role.Hoist, role.Mentionable
	return guild.RoleParams{
		Name:        role.Name,
		Permissions: &perms,
		Color:       &color,
		Hoist:       &hoist,
		Mentionable: &mentionable,
	}
}

// editDefaultRole applies the stored everyone-role permissions. Every later
// overwrite builds on this baseline, so a failure aborts the stage.
func (e *engine) editDefaultRole(ctx context.Context, r *run, tr *idmap.Translator, existing []guild.Role, sourceID string, permissions int64) error {
	target, ok := findDefaultRole(existing, r.guildID)
	if !ok {
		return errors.New("target has no everyone-role")
	}
	if _, err := e.client.EditRole(ctx, r.guildID, target.ID, guild.RoleParams{Permissions: &permissions}); err != nil {
		r.record(Outcome{Kind: KindRole, SourceID: sourceID, TargetID: target.ID, Action: ActionFailed, Reason: err.Error()})
		return fmt.Errorf("edit everyone-role: %w", err)
	}
	if err := tr.Record(sourceID, target.ID); err != nil {
		return err
	}
	r.record(Outcome{Kind: KindRole, SourceID: sourceID, TargetID: target.ID, Action: ActionEdited})
	return nil
}

func (rc *Reconciler) roles(ctx context.Context, r *run, snap *snapshot.Snapshot, tr *idmap.Translator, merge bool) error {
	existing, err := rc.client.Roles(ctx, r.guildID)
	if err != nil {
		return err
	}

	stored, _ := snap.DefaultRole()
	if err := rc.editDefaultRole(ctx, r, tr, existing, stored.ID, stored.Permissions); err != nil {
		return err
	}

	claimed := map[string]bool{tr.Resolve(stored.ID): true}
	var placements []placement

	// Bottom-up: each creation lands above the previous one.
	for i := len(snap.Roles) - 1; i >= 0; i-- {
		role := snap.Roles[i]
		if role.Default {
			continue
		}

		if merge {
			if match, ok := matchRole(existing, claimed, r.guildID, role); ok {
				claimed[match.ID] = true
				if r.bind(tr, KindRole, role.ID, match.ID) {
					r.record(Outcome{Kind: KindRole, SourceID: role.ID, TargetID: match.ID, Action: ActionReused})
					placements = append(placements, placement{KindRole, role.ID, match.ID, role.Position})
				}
				continue
			}
		}

		created, err := rc.client.CreateRole(ctx, r.guildID, roleParams(role))
		if err != nil {
			if err := r.fail(KindRole, role.ID, "", fmt.Errorf("create: %w", err)); err != nil {
				return err
			}
			continue
		}
		claimed[created.ID] = true
		if r.bind(tr, KindRole, role.ID, created.ID) {
			r.record(Outcome{Kind: KindRole, SourceID: role.ID, TargetID: created.ID, Action: ActionCreated})
			placements = append(placements, placement{KindRole, role.ID, created.ID, role.Position})
		}
	}

	if merge {
		for _, role := range existing {
			if claimed[role.ID] || role.Managed || isDefaultRole(role, r.guildID) {
				continue
			}
			if err := rc.client.DeleteRole(ctx, r.guildID, role.ID); err != nil {
				if err := r.fail(KindRole, "", role.ID, fmt.Errorf("delete: %w", err)); err != nil {
					return err
				}
				continue
			}
			r.record(Outcome{Kind: KindRole, TargetID: role.ID, Action: ActionDeleted})
		}
	}

	return rc.placeRoles(ctx, r, placements)
}

// matchRole finds an unclaimed target role with the same name, color and
// permissions.
func matchRole(existing []guild.Role, claimed map[string]bool, guildID string, role snapshot.Role) (guild.Role, bool) {
	for _, candidate := range existing {
		if claimed[candidate.ID] || candidate.Managed || isDefaultRole(candidate, guildID) {
			continue
		}
		if candidate.Name == role.Name && candidate.Color == role.Color && candidate.Permissions == role.Permissions {
			return candidate, true
		}
	}
	return guild.Role{}, false
}

// bindRoles maps stored roles onto existing target roles by name when the
// role stage is not run, so channel overwrites can still be resolved.
func (rc *Reconciler) bindRoles(ctx context.Context, r *run, snap *snapshot.Snapshot, tr *idmap.Translator) error {
	existing, err := rc.client.Roles(ctx, r.guildID)
	if err != nil {
		return err
	}
	claimed := make(map[string]bool)
	for _, role := range snap.Roles {
		if role.Default {
			if target, ok := findDefaultRole(existing, r.guildID); ok {
				claimed[target.ID] = true
				_ = tr.Record(role.ID, target.ID)
			}
			continue
		}
		for _, candidate := range existing {
			if claimed[candidate.ID] || candidate.Managed || isDefaultRole(candidate, r.guildID) || candidate.Name != role.Name {
				continue
			}
			claimed[candidate.ID] = true
			_ = tr.Record(role.ID, candidate.ID)
			break
		}
	}
	r.logger.Debug("Bound existing roles", zap.Int("mapped", tr.Len()))
	return nil
}

// overwritesMatch compares live target overwrites against decoded ones.
func overwritesMatch(policy MatchPolicy, live, decoded []guild.Overwrite) bool {
	if policy == MatchOverwriteContent {
		return overwrite.Equal(live, decoded)
	}
	return len(live) == len(decoded)
}

// matchChannel returns the first unclaimed channel of type t accepted by same.
func matchChannel(existing []guild.Channel, claimed map[string]bool, t guild.ChannelType, same func(guild.Channel) bool) (guild.Channel, bool) {
	for _, ch := range existing {
		if ch.Type != t || claimed[ch.ID] {
			continue
		}
		if same(ch) {
			return ch, true
		}
	}
	return guild.Channel{}, false
}

// reuse claims a matched channel, maps it and moves it under parent when its
// current parent differs.
func (e *engine) reuse(ctx context.Context, r *run, tr *idmap.Translator, kind Kind, sourceID string, match guild.Channel, parent string) error {
	if !r.bind(tr, kind, sourceID, match.ID) {
		return nil
	}
	r.record(Outcome{Kind: kind, SourceID: sourceID, TargetID: match.ID, Action: ActionReused})
	if kind == KindCategory || match.ParentID == parent {
		return nil
	}
	if parent == "" {
		// The platform edit cannot clear a parent; the channel stays where it is.
		r.skip(kind, sourceID, "cannot move to top level")
		return nil
	}
	if _, err := e.client.EditChannel(ctx, match.ID, guild.ChannelParams{ParentID: &parent}); err != nil {
		return r.fail(kind, sourceID, match.ID, fmt.Errorf("re-parent: %w", err))
	}
	r.record(Outcome{Kind: kind, SourceID: sourceID, TargetID: match.ID, Action: ActionEdited, Reason: "re-parented"})
	return nil
}

func (rc *Reconciler) channels(ctx context.Context, r *run, snap *snapshot.Snapshot, tr *idmap.Translator, opts Options) error {
	merge := !opts.ClearFirst
	members, err := rc.memberSet(ctx, r)
	if err != nil {
		return err
	}

	// Categories.
	existing, err := rc.client.Channels(ctx, r.guildID)
	if err != nil {
		return err
	}
	claimed := make(map[string]bool)
	var placements []placement
	for _, cat := range snap.Categories {
		decoded := overwrite.Decode(cat.Overwrites, members, tr)
		if merge {
			match, ok := matchChannel(existing, claimed, guild.ChannelCategory, func(ch guild.Channel) bool {
				return ch.Name == cat.Name && overwritesMatch(opts.OverwriteMatch, ch.Overwrites, decoded)
			})
			if ok {
				claimed[match.ID] = true
				if err := rc.reuse(ctx, r, tr, KindCategory, cat.ID, match, ""); err != nil {
					return err
				}
				placements = append(placements, placement{KindCategory, cat.ID, match.ID, cat.Position})
				continue
			}
		}
		id, err := rc.createChannel(ctx, r, tr, channelJob{
			kind:     KindCategory,
			sourceID: cat.ID,
			create:   guild.ChannelParams{Name: cat.Name, Type: guild.ChannelCategory, Overwrites: decoded},
		})
		if err != nil {
			return err
		}
		if id == "" {
			return fmt.Errorf("category %q (%s) could not be created", cat.Name, cat.ID)
		}
		claimed[id] = true
		placements = append(placements, placement{KindCategory, cat.ID, id, cat.Position})
	}
	if err := rc.finishKind(ctx, r, guild.ChannelCategory, merge, claimed, placements); err != nil {
		return err
	}

	// Text channels.
	if existing, err = rc.client.Channels(ctx, r.guildID); err != nil {
		return err
	}
	placements = nil
	for _, text := range snap.TextChannels {
		decoded := overwrite.Decode(text.Overwrites, members, tr)
		parent := tr.Resolve(text.CategoryID())
		if merge {
			match, ok := matchChannel(existing, claimed, guild.ChannelText, func(ch guild.Channel) bool {
				return ch.Name == text.Name && ch.Topic == text.TopicText() && ch.NSFW == text.NSFW &&
					overwritesMatch(opts.OverwriteMatch, ch.Overwrites, decoded)
			})
			if ok {
				claimed[match.ID] = true
				if err := rc.reuse(ctx, r, tr, KindText, text.ID, match, parent); err != nil {
					return err
				}
				placements = append(placements, placement{KindText, text.ID, match.ID, text.Position})
				continue
			}
		}
		topic, nsfw, slowmode := text.TopicText(), text.NSFW, text.SlowmodeDelay
		id, err := rc.createChannel(ctx, r, tr, channelJob{
			kind:      KindText,
			sourceID:  text.ID,
			create:    guild.ChannelParams{Name: text.Name, Type: guild.ChannelText, ParentID: optionalString(parent), Overwrites: decoded},
			configure: &guild.ChannelParams{Topic: &topic, NSFW: &nsfw, RateLimitPerUser: &slowmode},
		})
		if err != nil {
			return err
		}
		if id == "" {
			continue
		}
		claimed[id] = true
		placements = append(placements, placement{KindText, text.ID, id, text.Position})
		if err := rc.replay(ctx, r, id, tail(text.Messages, opts.ChatlogDepth)); err != nil {
			return err
		}
	}
	if err := rc.finishKind(ctx, r, guild.ChannelText, merge, claimed, placements); err != nil {
		return err
	}

	// Voice channels.
	if existing, err = rc.client.Channels(ctx, r.guildID); err != nil {
		return err
	}
	placements = nil
	for _, voice := range snap.VoiceChannels {
		decoded := overwrite.Decode(voice.Overwrites, members, tr)
		parent := tr.Resolve(voice.CategoryID())
		if merge {
			match, ok := matchChannel(existing, claimed, guild.ChannelVoice, func(ch guild.Channel) bool {
				return ch.Name == voice.Name && overwritesMatch(opts.OverwriteMatch, ch.Overwrites, decoded)
			})
			if ok {
				claimed[match.ID] = true
				if err := rc.reuse(ctx, r, tr, KindVoice, voice.ID, match, parent); err != nil {
					return err
				}
				placements = append(placements, placement{KindVoice, voice.ID, match.ID, voice.Position})
				continue
			}
		}
		id, err := rc.createChannel(ctx, r, tr, channelJob{
			kind:      KindVoice,
			sourceID:  voice.ID,
			create:    guild.ChannelParams{Name: voice.Name, Type: guild.ChannelVoice, ParentID: optionalString(parent), Overwrites: decoded},
			configure: voiceSettings(voice.Bitrate, voice.UserLimit),
		})
		if err != nil {
			return err
		}
		if id == "" {
			continue
		}
		claimed[id] = true
		placements = append(placements, placement{KindVoice, voice.ID, id, voice.Position})
	}
	return rc.finishKind(ctx, r, guild.ChannelVoice, merge, claimed, placements)
}

// finishKind prunes unclaimed channels of one type in merge mode and then
// applies position corrections.
func (e *engine) finishKind(ctx context.Context, r *run, t guild.ChannelType, merge bool, claimed map[string]bool, placements []placement) error {
	if merge {
		if err := e.pruneChannels(ctx, r, t, claimed); err != nil {
			return err
		}
	}
	return e.placeChannels(ctx, r, placements)
}

func voiceSettings(bitrate, userLimit int) *guild.ChannelParams {
	params := &guild.ChannelParams{UserLimit: &userLimit}
	if bitrate > 0 {
		params.Bitrate = &bitrate
	}
	return params
}

func (rc *Reconciler) bans(ctx context.Context, r *run, snap *snapshot.Snapshot, tr *idmap.Translator, opts Options) error {
	banned := make(map[string]bool)
	if current, err := rc.client.Bans(ctx, r.guildID); err != nil {
		if aborts(err) {
			return err
		}
		r.logger.Warn("Ban list unavailable", zap.Error(err))
	} else {
		for _, b := range current {
			if b.User != nil {
				banned[b.User.ID] = true
			}
		}
	}

	for _, ban := range snap.Bans {
		userID, ok := tr.Lookup(ban.User.ID)
		if !ok {
			userID = ban.User.ID
		}
		switch {
		case userID == "":
			r.skip(KindBan, "", "ban has no user id")
			continue
		case userID == opts.Requester:
			r.skip(KindBan, ban.User.ID, "user requested this load")
			continue
		case banned[userID]:
			r.skip(KindBan, ban.User.ID, "already banned")
			continue
		}
		if err := rc.client.CreateBan(ctx, r.guildID, userID, ban.ReasonText()); err != nil {
			if err := r.fail(KindBan, ban.User.ID, userID, err); err != nil {
				return err
			}
			continue
		}
		banned[userID] = true
		r.record(Outcome{Kind: KindBan, SourceID: ban.User.ID, TargetID: userID, Action: ActionCreated})
	}
	return nil
}
