package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"guild-backup/core/guild"
	"guild-backup/core/idmap"
	"guild-backup/core/overwrite"

	"go.uber.org/zap"
)

// engine holds the collaborators shared by Reconciler and Copier.
type engine struct {
	client    guild.Client
	sanitizer guild.Sanitizer
	logger    *zap.Logger
	recorder  Recorder
}

func newEngine(client guild.Client, sanitizer guild.Sanitizer, logger *zap.Logger) engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sanitizer == nil {
		sanitizer = guild.SanitizerFunc(func(s string) string { return s })
	}
	return engine{client: client, sanitizer: sanitizer, logger: logger}
}

// run is the state of one invocation. The translator is not
// part of it; stages receive it as a parameter.
type run struct {
	engine  *engine
	guildID string
	report  *Report
	logger  *zap.Logger
}

func (e *engine) newRun(targetGuildID string) *run {
	return &run{
		engine:  e,
		guildID: targetGuildID,
		report:  &Report{Outcomes: []Outcome{}},
		logger:  e.logger.With(zap.String("target_guild", targetGuildID)),
	}
}

func (r *run) record(o Outcome) {
	r.report.Outcomes = append(r.report.Outcomes, o)
	r.report.Summary.add(o.Action)
	if r.engine.recorder != nil {
		r.engine.recorder.Observe(string(o.Kind), string(o.Action))
	}

	fields := []zap.Field{
		zap.String("kind", string(o.Kind)),
		zap.String("source_id", o.SourceID),
		zap.String("target_id", o.TargetID),
		zap.String("action", string(o.Action)),
	}
	switch o.Action {
	case ActionFailed:
		r.logger.Warn("Entity failed", append(fields, zap.String("reason", o.Reason))...)
	case ActionSkipped:
		r.logger.Debug("Entity skipped", append(fields, zap.String("reason", o.Reason))...)
	default:
		r.logger.Debug("Entity reconciled", fields...)
	}
}

// fail records a per-entity failure. It returns err when the failure must
// abort the run and nil when the run may continue.
func (r *run) fail(kind Kind, sourceID, targetID string, err error) error {
	r.record(Outcome{Kind: kind, SourceID: sourceID, TargetID: targetID, Action: ActionFailed, Reason: err.Error()})
	if aborts(err) {
		return err
	}
	return nil
}

func (r *run) skip(kind Kind, sourceID, reason string) {
	r.record(Outcome{Kind: kind, SourceID: sourceID, Action: ActionSkipped, Reason: reason})
}

func aborts(err error) bool {
	return guild.IsFatal(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func stageError(stage string, err error) error {
	return fmt.Errorf("reconcile: stage %s: %w", stage, err)
}

// clear deletes every non-managed, non-default role and every channel.
func (e *engine) clear(ctx context.Context, r *run) error {
	roles, err := e.client.Roles(ctx, r.guildID)
	if err != nil {
		return err
	}
	for _, role := range roles {
		if role.Managed || isDefaultRole(role, r.guildID) {
			continue
		}
		if err := e.client.DeleteRole(ctx, r.guildID, role.ID); err != nil {
			if err := r.fail(KindRole, "", role.ID, fmt.Errorf("delete: %w", err)); err != nil {
				return err
			}
			continue
		}
		r.record(Outcome{Kind: KindRole, TargetID: role.ID, Action: ActionDeleted})
	}

	channels, err := e.client.Channels(ctx, r.guildID)
	if err != nil {
		return err
	}
	for _, ch := range channels {
		if err := e.client.DeleteChannel(ctx, ch.ID); err != nil {
			if err := r.fail(channelKind(ch.Type), "", ch.ID, fmt.Errorf("delete: %w", err)); err != nil {
				return err
			}
			continue
		}
		r.record(Outcome{Kind: channelKind(ch.Type), TargetID: ch.ID, Action: ActionDeleted})
	}
	return nil
}

func isDefaultRole(role guild.Role, guildID string) bool {
	return role.Default || role.ID == guildID
}

func findDefaultRole(roles []guild.Role, guildID string) (guild.Role, bool) {
	for _, role := range roles {
		if isDefaultRole(role, guildID) {
			return role, true
		}
	}
	return guild.Role{}, false
}

func channelKind(t guild.ChannelType) Kind {
	switch t {
	case guild.ChannelCategory:
		return KindCategory
	case guild.ChannelVoice:
		return KindVoice
	default:
		return KindText
	}
}

// placement is a position correction recorded while processing entities.
type placement struct {
	kind     Kind
	sourceID string
	targetID string
	position int
}

// placeRoles moves every recorded role whose live position differs from the
// stored one. Failures are recorded and skipped.
func (e *engine) placeRoles(ctx context.Context, r *run, placements []placement) error {
	if len(placements) == 0 {
		return nil
	}
	roles, err := e.client.Roles(ctx, r.guildID)
	if err != nil {
		return err
	}
	current := make(map[string]int, len(roles))
	for _, role := range roles {
		current[role.ID] = role.Position
	}
	for _, p := range sortPlacements(placements) {
		pos, ok := current[p.targetID]
		if !ok || pos == p.position {
			continue
		}
		if err := e.client.MoveRole(ctx, r.guildID, p.targetID, p.position); err != nil {
			if err := r.fail(p.kind, p.sourceID, p.targetID, fmt.Errorf("move: %w", err)); err != nil {
				return err
			}
			continue
		}
		r.record(Outcome{Kind: p.kind, SourceID: p.sourceID, TargetID: p.targetID, Action: ActionMoved})
	}
	return nil
}

// placeChannels is the channel counterpart of placeRoles.
func (e *engine) placeChannels(ctx context.Context, r *run, placements []placement) error {
	if len(placements) == 0 {
		return nil
	}
	channels, err := e.client.Channels(ctx, r.guildID)
	if err != nil {
		return err
	}
	current := make(map[string]int, len(channels))
	for _, ch := range channels {
		current[ch.ID] = ch.Position
	}
	for _, p := range sortPlacements(placements) {
		pos, ok := current[p.targetID]
		if !ok || pos == p.position {
			continue
		}
		if err := e.client.MoveChannel(ctx, r.guildID, p.targetID, p.position); err != nil {
			if err := r.fail(p.kind, p.sourceID, p.targetID, fmt.Errorf("move: %w", err)); err != nil {
				return err
			}
			continue
		}
		r.record(Outcome{Kind: p.kind, SourceID: p.sourceID, TargetID: p.targetID, Action: ActionMoved})
	}
	return nil
}

func sortPlacements(placements []placement) []placement {
	out := append([]placement(nil), placements...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].position < out[j].position })
	return out
}

// pruneChannels deletes target channels of type t that were not claimed.
func (e *engine) pruneChannels(ctx context.Context, r *run, t guild.ChannelType, claimed map[string]bool) error {
	channels, err := e.client.Channels(ctx, r.guildID)
	if err != nil {
		return err
	}
	for _, ch := range channels {
		if ch.Type != t || claimed[ch.ID] {
			continue
		}
		if err := e.client.DeleteChannel(ctx, ch.ID); err != nil {
			if err := r.fail(channelKind(t), "", ch.ID, fmt.Errorf("delete: %w", err)); err != nil {
				return err
			}
			continue
		}
		r.record(Outcome{Kind: channelKind(t), TargetID: ch.ID, Action: ActionDeleted})
	}
	return nil
}

// bind records a source to target mapping. A conflicting mapping means the
// input repeated an id; it is recorded as a failure of the later entity.
func (r *run) bind(tr *idmap.Translator, kind Kind, sourceID, targetID string) bool {
	if err := tr.Record(sourceID, targetID); err != nil {
		r.record(Outcome{Kind: kind, SourceID: sourceID, TargetID: targetID, Action: ActionFailed, Reason: err.Error()})
		return false
	}
	return true
}

// channelJob describes a category or channel to create on the target.
// Configure, when set, is applied by a second call after creation.
type channelJob struct {
	kind      Kind
	sourceID  string
	create    guild.ChannelParams
	configure *guild.ChannelParams
}

// createChannel creates job on the target and maps its source id. It returns
// "" when the channel could not be created; the failure is already recorded.
// The error is non-nil only when the run must abort.
func (e *engine) createChannel(ctx context.Context, r *run, tr *idmap.Translator, job channelJob) (string, error) {
	ch, err := e.client.CreateChannel(ctx, r.guildID, job.create)
	if err != nil {
		return "", r.fail(job.kind, job.sourceID, "", fmt.Errorf("create: %w", err))
	}
	if !r.bind(tr, job.kind, job.sourceID, ch.ID) {
		return ch.ID, nil
	}

	outcome := Outcome{Kind: job.kind, SourceID: job.sourceID, TargetID: ch.ID, Action: ActionCreated}
	if job.configure != nil {
		if _, err := e.client.EditChannel(ctx, ch.ID, *job.configure); err != nil {
			if aborts(err) {
				r.record(outcome)
				return ch.ID, err
			}
			outcome.Reason = "configure: " + err.Error()
		}
	}
	r.record(outcome)
	return ch.ID, nil
}

// memberSet lists target members for overwrite decoding. A non-fatal listing
// failure yields an empty set, which drops member overwrites.
func (e *engine) memberSet(ctx context.Context, r *run) (overwrite.MemberSet, error) {
	members, err := e.client.Members(ctx, r.guildID)
	if err != nil {
		if aborts(err) {
			return nil, err
		}
		r.logger.Warn("Member list unavailable, member overwrites will be dropped", zap.Error(err))
		return overwrite.MemberSet{}, nil
	}
	return overwrite.NewMemberSet(members), nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
