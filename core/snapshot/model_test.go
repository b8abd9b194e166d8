package snapshot

import (
	"encoding/json"
	"testing"

	"guild-backup/core/overwrite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strp(s string) *string { return &s }

func minimal() *Snapshot {
	return &Snapshot{
		Version: Version,
		ID:      "100",
		Name:    "Guild",
		Roles: []Role{
			{ID: "100", Name: "@everyone", Default: true, Permissions: 1 << 52},
			{ID: "101", Name: "Mod", Position: 1},
		},
		Categories: []Channel{{ID: "200", Name: "Staff"}},
		TextChannels: []TextChannel{{
			Channel: Channel{ID: "201", Name: "mod-chat", Category: strp("200"), Overwrites: overwrite.Encoded{"101": {Allow: 1024}}},
			Topic:   strp("mods"),
		}},
		VoiceChannels: []VoiceChannel{{Channel: Channel{ID: "202", Name: "Lounge"}, Bitrate: 64000}},
	}
}

func TestMarshal_RoundTrip(t *testing.T) {
	snap := minimal()

	raw, err := Marshal(snap)
	require.NoError(t, err)

	back, err := Unmarshal(raw)
	require.NoError(t, err)
	assert.Equal(t, snap.Roles, back.Roles)
	assert.Equal(t, snap.TextChannels[0].Overwrites, back.TextChannels[0].Overwrites)
	assert.Equal(t, "200", back.TextChannels[0].CategoryID())
	assert.Equal(t, "", back.VoiceChannels[0].CategoryID())
}

func TestMarshal_ExplicitNullsAndStringIDs(t *testing.T) {
	raw, err := Marshal(minimal())
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))

	assert.Contains(t, doc, "afk_channel")
	assert.Nil(t, doc["afk_channel"])

	voice := doc["voice_channels"].([]any)[0].(map[string]any)
	assert.Contains(t, voice, "category")
	assert.Nil(t, voice["category"])
	assert.IsType(t, "", voice["id"])

	role := doc["roles"].([]any)[0].(map[string]any)
	assert.Equal(t, "4503599627370496", role["permissions"])
}

func TestUnmarshal_IgnoresUnknownFields(t *testing.T) {
	raw := `{
		"version": 1,
		"id": "100",
		"name": "Guild",
		"future_field": {"anything": true},
		"roles": [{"id": "100", "name": "@everyone", "default": true, "permissions": "0", "shiny": 1}]
	}`
	snap, err := Unmarshal([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "Guild", snap.Name)
	assert.Len(t, snap.Roles, 1)
}

func TestUnmarshal_Rejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"Garbage", `{not json`},
		{"NoDefaultRole", `{"version":1,"id":"1","roles":[{"id":"2","name":"x","permissions":"0"}]}`},
		{"TwoDefaultRoles", `{"version":1,"id":"1","roles":[{"id":"1","default":true,"permissions":"0"},{"id":"2","default":true,"permissions":"0"}]}`},
		{"FutureVersion", `{"version":99,"id":"1","roles":[{"id":"1","default":true,"permissions":"0"}]}`},
		{"MissingGuildID", `{"version":1,"roles":[{"id":"1","default":true,"permissions":"0"}]}`},
		{"DanglingCategory", `{"version":1,"id":"1","roles":[{"id":"1","default":true,"permissions":"0"}],"text_channels":[{"id":"5","name":"a","category":"9"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmarshal([]byte(tt.raw))
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestDefaultRole(t *testing.T) {
	r, ok := minimal().DefaultRole()
	assert.True(t, ok)
	assert.Equal(t, "100", r.ID)

	_, ok = (&Snapshot{}).DefaultRole()
	assert.False(t, ok)
}
