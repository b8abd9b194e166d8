package reconcile

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is returned before any client call when a run is started
// with unusable arguments.
var ErrInvalidInput = errors.New("reconcile: invalid input")

// DefaultCopyChatlogDepth is the number of messages replayed per channel by
// Copier when CopyOptions.ChatlogDepth is zero.
const DefaultCopyChatlogDepth = 20

// RelayName is the display name of the transient webhook used for replay.
const RelayName = "sync"

// MatchPolicy selects how overwrites are compared when looking for a reusable
// category or channel.
type MatchPolicy int

const (
	// MatchOverwriteCount only compares the number of decoded overwrites.
	MatchOverwriteCount MatchPolicy = iota
	// MatchOverwriteContent compares decoded subjects and their deltas.
	MatchOverwriteContent
)

// String returns the policy name used in configuration and logs.
func (p MatchPolicy) String() string {
	switch p {
	case MatchOverwriteCount:
		return "count"
	case MatchOverwriteContent:
		return "content"
	default:
		return fmt.Sprintf("MatchPolicy(%d)", int(p))
	}
}

// ParseMatchPolicy converts "count" or "content" to a MatchPolicy.
// The empty string selects MatchOverwriteCount.
func ParseMatchPolicy(s string) (MatchPolicy, error) {
	switch s {
	case "", "count":
		return MatchOverwriteCount, nil
	case "content":
		return MatchOverwriteContent, nil
	default:
		return 0, fmt.Errorf("%w: unknown overwrite match policy %q", ErrInvalidInput, s)
	}
}

// Sections selects which stages of a snapshot replay run.
type Sections struct {
	Roles    bool `json:"roles"`
	Channels bool `json:"channels"`
	Bans     bool `json:"bans"`
}

// AllSections enables every stage.
func AllSections() Sections {
	return Sections{Roles: true, Channels: true, Bans: true}
}

// Options controls a snapshot replay.
type Options struct {
	// ChatlogDepth is the number of stored messages replayed per text channel,
	// taken from the most recent end. Zero disables replay.
	ChatlogDepth int

	// ClearFirst deletes roles and channels on the target before rebuilding
	// and disables reuse matching.
	ClearFirst bool

	// Sections selects the stages to run.
	Sections Sections

	// OverwriteMatch selects the overwrite comparison used by reuse matching.
	OverwriteMatch MatchPolicy

	// Requester is the user that asked for the run. A stored ban of the
	// requester is never replayed.
	Requester string
}

// CopyOptions controls a direct copy.
type CopyOptions struct {
	// ChatlogDepth is the number of recent messages relayed per text channel.
	// Zero means DefaultCopyChatlogDepth; negative disables replay.
	ChatlogDepth int

	// Bans copies the source ban list.
	Bans bool
}

func (o CopyOptions) depth() int {
	switch {
	case o.ChatlogDepth == 0:
		return DefaultCopyChatlogDepth
	case o.ChatlogDepth < 0:
		return 0
	default:
		return o.ChatlogDepth
	}
}

// Kind names the entity an outcome refers to.
type Kind string

const (
	KindGuild    Kind = "guild"
	KindRole     Kind = "role"
	KindCategory Kind = "category"
	KindText     Kind = "text"
	KindVoice    Kind = "voice"
	KindMessage  Kind = "message"
	KindBan      Kind = "ban"
)

// Action is what a run did with an entity.
type Action string

const (
	ActionCreated Action = "created"
	ActionReused  Action = "reused"
	ActionEdited  Action = "edited"
	ActionDeleted Action = "deleted"
	ActionMoved   Action = "moved"
	ActionSkipped Action = "skipped"
	ActionFailed  Action = "failed"
)

// Outcome records the result for one entity.
type Outcome struct {
	Kind     Kind   `json:"kind"`
	SourceID string `json:"source_id,omitempty"`
	TargetID string `json:"target_id,omitempty"`
	Action   Action `json:"action"`
	Reason   string `json:"reason,omitempty"`
}

// Summary provides aggregate counts for a report.
type Summary struct {
	Created int `json:"created"`
	Reused  int `json:"reused"`
	Edited  int `json:"edited"`
	Deleted int `json:"deleted"`
	Moved   int `json:"moved"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

func (s *Summary) add(a Action) {
	switch a {
	case ActionCreated:
		s.Created++
	case ActionReused:
		s.Reused++
	case ActionEdited:
		s.Edited++
	case ActionDeleted:
		s.Deleted++
	case ActionMoved:
		s.Moved++
	case ActionSkipped:
		s.Skipped++
	case ActionFailed:
		s.Failed++
	}
}

// Report is the per-entity account of one run.
type Report struct {
	Outcomes []Outcome `json:"outcomes"`
	Summary  Summary   `json:"summary"`
}

// Filter returns the outcomes of the given kind and action.
func (r *Report) Filter(kind Kind, action Action) []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Kind == kind && o.Action == action {
			out = append(out, o)
		}
	}
	return out
}

// Count returns how many outcomes have the given kind and action.
func (r *Report) Count(kind Kind, action Action) int {
	return len(r.Filter(kind, action))
}

// Recorder observes every outcome as it is recorded.
type Recorder interface {
	Observe(kind, action string)
}
