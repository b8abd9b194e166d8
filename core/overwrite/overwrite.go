// Package overwrite converts permission overwrites between their live form
// (keyed by a role-or-member Subject) and their serialized form (keyed by the
// subject's id string).
//
// Decoding runs against a target server: the literal id is first tried as a
// member of the target, then translated as a role created earlier in the run.
// Entries that resolve through neither path are dropped.
package overwrite

import (
	"sort"

	"guild-backup/core/guild"
	"guild-backup/core/idmap"
)

// Delta is a serialized allow/deny pair. Bitmasks are encoded as strings.
type Delta struct {
	Allow int64 `json:"allow,string"`
	Deny  int64 `json:"deny,string"`
}

// Encoded is the serialized overwrite map, keyed by subject id.
type Encoded map[string]Delta

// MemberResolver answers whether an id is a member of the target server.
type MemberResolver interface {
	HasMember(id string) bool
}

// MemberSet is a MemberResolver backed by a set of member ids.
type MemberSet map[string]struct{}

// NewMemberSet builds a MemberSet from a member list.
func NewMemberSet(members []guild.Member) MemberSet {
	set := make(MemberSet, len(members))
	for _, m := range members {
		set[m.User.ID] = struct{}{}
	}
	return set
}

// HasMember implements MemberResolver.
func (s MemberSet) HasMember(id string) bool {
	_, ok := s[id]
	return ok
}

// Encode keys each overwrite by its subject id. One entry per subject.
func Encode(overwrites []guild.Overwrite) Encoded {
	out := make(Encoded, len(overwrites))
	for _, ow := range overwrites {
		out[ow.Subject.ID] = Delta{Allow: ow.Allow, Deny: ow.Deny}
	}
	return out
}

// Decode resolves serialized overwrites against the target. The result is
// ordered by subject id so repeated runs issue identical requests.
func Decode(enc Encoded, members MemberResolver, tr *idmap.Translator) []guild.Overwrite {
	keys := make([]string, 0, len(enc))
	for id := range enc {
		keys = append(keys, id)
	}
	sort.Strings(keys)

	out := make([]guild.Overwrite, 0, len(keys))
	for _, id := range keys {
		d := enc[id]
		if members != nil && members.HasMember(id) {
			out = append(out, guild.Overwrite{
				Subject: guild.Subject{Kind: guild.SubjectMember, ID: id},
				Allow:   d.Allow,
				Deny:    d.Deny,
			})
			continue
		}
		if target, ok := tr.Lookup(id); ok {
			out = append(out, guild.Overwrite{
				Subject: guild.Subject{Kind: guild.SubjectRole, ID: target},
				Allow:   d.Allow,
				Deny:    d.Deny,
			})
		}
	}
	return out
}

// Translate maps live source overwrites onto the target without a serialized
// step: role subjects go through the translator, member subjects keep their id.
// Role subjects with no translation are dropped.
func Translate(overwrites []guild.Overwrite, tr *idmap.Translator) []guild.Overwrite {
	out := make([]guild.Overwrite, 0, len(overwrites))
	for _, ow := range overwrites {
		switch ow.Subject.Kind {
		case guild.SubjectRole:
			target, ok := tr.Lookup(ow.Subject.ID)
			if !ok {
				continue
			}
			ow.Subject.ID = target
			out = append(out, ow)
		case guild.SubjectMember:
			out = append(out, ow)
		}
	}
	return out
}

// Equal reports whether a and b grant the same deltas to the same subjects,
// ignoring order.
func Equal(a, b []guild.Overwrite) bool {
	if len(a) != len(b) {
		return false
	}
	index := make(map[guild.Subject]Delta, len(a))
	for _, ow := range a {
		index[ow.Subject] = Delta{Allow: ow.Allow, Deny: ow.Deny}
	}
	for _, ow := range b {
		d, ok := index[ow.Subject]
		if !ok || d.Allow != ow.Allow || d.Deny != ow.Deny {
			return false
		}
	}
	return true
}
