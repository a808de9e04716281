package status

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/tmdb-matchdesk/internal/store"
)

func match(fields map[string]any) store.Record {
	return store.NewRecord(store.KindTeamMatch, 1, fields)
}

func TestEvaluate_Precedence(t *testing.T) {
	cases := []struct {
		name     string
		fields   map[string]any
		wantCode Code
		wantText string
	}{
		{
			name:     "empty match is not started",
			fields:   map[string]any{"winning_team": nil, "ring_number": nil},
			wantCode: CodeNotStarted,
			wantText: "",
		},
		{
			name:     "holding",
			fields:   map[string]any{"in_holding": true},
			wantCode: CodeInHolding,
			wantText: "Report to holding",
		},
		{
			name:     "sent to ring",
			fields:   map[string]any{"ring_number": json.Number("3"), "in_holding": true},
			wantCode: CodeSentToRing,
			wantText: "Sent to ring 3",
		},
		{
			name:     "at ring",
			fields:   map[string]any{"ring_number": json.Number("2"), "at_ring": true},
			wantCode: CodeAtRing,
			wantText: "At ring 2",
		},
		{
			name:     "competing beats at ring",
			fields:   map[string]any{"ring_number": json.Number("2"), "at_ring": true, "competing": true},
			wantCode: CodeCompeting,
			wantText: "Competing at ring 2",
		},
		{
			name: "winner beats everything",
			fields: map[string]any{
				"winning_team": json.Number("9"),
				"in_holding":   true,
				"ring_number":  json.Number("4"),
				"competing":    true,
			},
			wantCode: CodeComplete,
			wantText: "Complete",
		},
		{
			name:     "competing without a ring falls through to holding",
			fields:   map[string]any{"competing": true, "at_ring": true, "in_holding": true},
			wantCode: CodeInHolding,
			wantText: "Report to holding",
		},
		{
			name:     "competing without a ring or holding is not started",
			fields:   map[string]any{"competing": true},
			wantCode: CodeNotStarted,
			wantText: "",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Evaluate(match(tc.fields))
			assert.Equal(t, tc.wantCode, got.Code)
			assert.Equal(t, tc.wantText, got.Text)
			assert.NotEmpty(t, got.Class)
		})
	}
}

func TestEvaluate_DistinctClasses(t *testing.T) {
	seen := map[string]Code{}
	for _, fields := range []map[string]any{
		{},
		{"in_holding": true},
		{"ring_number": json.Number("1")},
		{"ring_number": json.Number("1"), "at_ring": true},
		{"ring_number": json.Number("1"), "competing": true},
		{"winning_team": json.Number("1")},
	} {
		st := Evaluate(match(fields))
		prev, dup := seen[st.Class]
		require.False(t, dup, "class %q used by %v and %v", st.Class, prev, st.Code)
		seen[st.Class] = st.Code
	}
	assert.Len(t, seen, 6)
}

func TestCodeActive(t *testing.T) {
	assert.False(t, CodeNotStarted.Active())
	assert.True(t, CodeInHolding.Active())
	assert.True(t, CodeSentToRing.Active())
	assert.True(t, CodeAtRing.Active())
	assert.True(t, CodeCompeting.Active())
	assert.False(t, CodeComplete.Active())
}

func TestRoundLabel(t *testing.T) {
	cases := map[int]string{
		0:  "Finals",
		1:  "Semi-Finals",
		2:  "Quarter-Finals",
		3:  "Round of 16",
		4:  "Round of 32",
		5:  "Round of 64",
		31: "Round of 4294967296",
		61: "Round of 4611686018427387904",
		62: "Round 62",
		-1: "Round -1",
	}
	for round, want := range cases {
		assert.Equal(t, want, RoundLabel(round))
	}
}

func TestLevelFields_Monotonic(t *testing.T) {
	cases := []struct {
		level                      Level
		holding, atRing, competing bool
	}{
		{LevelNone, false, false, false},
		{LevelHolding, true, false, false},
		{LevelAtRing, true, true, false},
		{LevelCompeting, true, true, true},
	}
	for _, tc := range cases {
		t.Run(tc.level.String(), func(t *testing.T) {
			f := tc.level.Fields()
			assert.Equal(t, tc.holding, f["in_holding"])
			assert.Equal(t, tc.atRing, f["at_ring"])
			assert.Equal(t, tc.competing, f["competing"])

			// round trip through a stored record
			assert.Equal(t, tc.level, LevelOf(match(f)))
		})
	}
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("at_ring")
	require.NoError(t, err)
	assert.Equal(t, LevelAtRing, l)

	_, err = ParseLevel("sideline")
	assert.ErrorIs(t, err, ErrUnknownLevel)
}
