package overwrite

import (
	"encoding/json"
	"testing"

	"guild-backup/core/guild"
	"guild-backup/core/idmap"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roleOW(id string, allow, deny int64) guild.Overwrite {
	return guild.Overwrite{Subject: guild.Subject{Kind: guild.SubjectRole, ID: id}, Allow: allow, Deny: deny}
}

func memberOW(id string, allow, deny int64) guild.Overwrite {
	return guild.Overwrite{Subject: guild.Subject{Kind: guild.SubjectMember, ID: id}, Allow: allow, Deny: deny}
}

func TestEncode(t *testing.T) {
	enc := Encode([]guild.Overwrite{
		roleOW("10", 1024, 0),
		memberOW("20", 0, 2048),
	})

	assert.Len(t, enc, 2)
	assert.Equal(t, Delta{Allow: 1024}, enc["10"])
	assert.Equal(t, Delta{Deny: 2048}, enc["20"])
}

func TestEncode_JSONUsesStringBitmasks(t *testing.T) {
	enc := Encode([]guild.Overwrite{roleOW("10", 1<<60, 3)})

	raw, err := json.Marshal(enc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"10":{"allow":"1152921504606846976","deny":"3"}}`, string(raw))

	var back Encoded
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, enc, back)
}

func TestDecode_RoundTrip(t *testing.T) {
	input := []guild.Overwrite{
		memberOW("20", 0, 2048),
		roleOW("10", 1024, 0),
		roleOW("11", 8, 16),
	}

	tr := idmap.New()
	require.NoError(t, tr.Record("10", "10"))
	require.NoError(t, tr.Record("11", "11"))
	members := MemberSet{"20": {}}

	out := Decode(Encode(input), members, tr)
	assert.True(t, Equal(input, out))
}

func TestDecode_TranslatesRoles(t *testing.T) {
	tr := idmap.New()
	require.NoError(t, tr.Record("10", "910"))

	out := Decode(Encoded{"10": {Allow: 1}}, MemberSet{}, tr)
	require.Len(t, out, 1)
	assert.Equal(t, guild.Subject{Kind: guild.SubjectRole, ID: "910"}, out[0].Subject)
}

func TestDecode_MemberLookupWins(t *testing.T) {
	tr := idmap.New()
	require.NoError(t, tr.Record("20", "920"))

	out := Decode(Encoded{"20": {Deny: 4}}, MemberSet{"20": {}}, tr)
	require.Len(t, out, 1)
	assert.Equal(t, guild.SubjectMember, out[0].Subject.Kind)
	assert.Equal(t, "20", out[0].Subject.ID)
}

func TestDecode_DropsUnresolved(t *testing.T) {
	tr := idmap.New()
	require.NoError(t, tr.Record("10", "910"))

	out := Decode(Encoded{
		"10": {Allow: 1},
		"99": {Allow: 2}, // deleted role, never recreated
		"98": {Deny: 3},  // member that left
	}, MemberSet{}, tr)

	require.Len(t, out, 1)
	assert.Equal(t, "910", out[0].Subject.ID)
}

func TestDecode_NilResolver(t *testing.T) {
	tr := idmap.New()
	require.NoError(t, tr.Record("10", "910"))
	out := Decode(Encoded{"10": {Allow: 1}}, nil, tr)
	assert.Len(t, out, 1)
}

func TestTranslate(t *testing.T) {
	tr := idmap.New()
	require.NoError(t, tr.Record("10", "910"))

	out := Translate([]guild.Overwrite{
		roleOW("10", 1, 0),
		roleOW("11", 2, 0),
		memberOW("20", 0, 4),
	}, tr)

	require.Len(t, out, 2)
	assert.Equal(t, "910", out[0].Subject.ID)
	assert.Equal(t, guild.SubjectMember, out[1].Subject.Kind)
	assert.Equal(t, "20", out[1].Subject.ID)
}

func TestEqual(t *testing.T) {
	a := []guild.Overwrite{roleOW("1", 1, 0), memberOW("2", 0, 1)}
	b := []guild.Overwrite{memberOW("2", 0, 1), roleOW("1", 1, 0)}
	c := []guild.Overwrite{roleOW("1", 1, 0), memberOW("2", 0, 2)}
	d := []guild.Overwrite{roleOW("1", 1, 0), roleOW("2", 0, 1)}

	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, c))
	assert.False(t, Equal(a, d))
	assert.False(t, Equal(a, a[:1]))
	assert.True(t, Equal(nil, []guild.Overwrite{}))
}
