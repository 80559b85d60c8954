package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextPhase(t *testing.T) {
	tests := []struct {
		name      string
		from      Phase
		exhausted bool
		want      Phase
		cycleDone bool
	}{
		{name: "boxset continues", from: PhaseBoxset, want: PhaseBoxset},
		{name: "boxset exhausted", from: PhaseBoxset, exhausted: true, want: PhaseNegative},
		{name: "negative continues", from: PhaseNegative, want: PhaseNegative},
		{name: "negative exhausted completes cycle", from: PhaseNegative, exhausted: true, want: PhaseBoxset, cycleDone: true},
		{name: "movie continues", from: PhaseMovie, want: PhaseMovie},
		{name: "movie exhausted completes cycle", from: PhaseMovie, exhausted: true, want: PhaseBoxset, cycleDone: true},
		{name: "unknown exhausted resets", from: Phase(42), exhausted: true, want: PhaseBoxset, cycleDone: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, done := NextPhase(tt.from, tt.exhausted)
			assert.Equal(t, tt.want, next)
			assert.Equal(t, tt.cycleDone, done)
		})
	}
}

func TestParsePhase(t *testing.T) {
	assert.Equal(t, PhaseNegative, ParsePhase("negative"))
	assert.Equal(t, PhaseMovie, ParsePhase("movie"))
	assert.Equal(t, PhaseBoxset, ParsePhase(""))
	assert.Equal(t, PhaseBoxset, ParsePhase("Movies"))
	assert.False(t, Phase(42).Valid())
	assert.Equal(t, "phase(42)", Phase(42).String())
}

func TestPhaseJSON(t *testing.T) {
	data, err := json.Marshal(struct {
		Phase Phase `json:"phase"`
	}{PhaseNegative})
	require.NoError(t, err)
	assert.JSONEq(t, `{"phase":"negative"}`, string(data))

	var out struct {
		Phase Phase `json:"phase"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"phase":"movie"}`), &out))
	assert.Equal(t, PhaseMovie, out.Phase)
}

func TestScopeKeys(t *testing.T) {
	s := Scope{ServerID: "srv", UserID: "u1"}
	assert.Equal(t, "srv|u1", s.Key())
	assert.Equal(t, "srv|u1|m1", s.EntityKey("m1"))
	assert.False(t, s.IsZero())
	assert.True(t, Scope{}.IsZero())
}

func TestIndexerStateClone(t *testing.T) {
	s := NewIndexerState()
	s.MarkSeen("c1")

	c := s.Clone()
	c.MarkSeen("c2")

	assert.True(t, c.Seen("c1"))
	assert.False(t, s.Seen("c2"))
	assert.ElementsMatch(t, []string{"c1", "c2"}, c.SeenIDs())
}

func TestMembershipNegative(t *testing.T) {
	assert.True(t, Membership{MovieID: "m1"}.IsNegative())
	assert.False(t, Membership{MovieID: "m1", CollectionID: "c1"}.IsNegative())
}
