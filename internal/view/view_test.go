package view

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/tmdb-matchdesk/internal/filter"
	"github.com/DoyleJ11/tmdb-matchdesk/internal/lookup"
	"github.com/DoyleJ11/tmdb-matchdesk/internal/status"
	"github.com/DoyleJ11/tmdb-matchdesk/internal/store"
	"github.com/DoyleJ11/tmdb-matchdesk/internal/store/storetest"
)

func TestProject_OrderedByNumber(t *testing.T) {
	s := storetest.Store()
	r := lookup.New(s)
	rows := Project(s, r, filter.New(r))

	require.Len(t, rows, 4)
	var numbers []int64
	for _, row := range rows {
		numbers = append(numbers, row.Number)
	}
	assert.Equal(t, []int64{101, 102, 103, 201}, numbers)
}

func TestProject_RowContents(t *testing.T) {
	s := storetest.Store()
	r := lookup.New(s)
	rows := Project(s, r, filter.New(r))

	done := rows[2]
	assert.Equal(t, storetest.MatchDone, done.PK)
	assert.Equal(t, "Quarter-Finals", done.Round)
	assert.Equal(t, "Women's Novice", done.Division)
	assert.Equal(t, "Bayside Novice2", done.BlueLabel)
	assert.Equal(t, "Acme Novice1 (L)", done.RedLabel)
	assert.Equal(t, "Bayside Novice2", done.WinnerLabel)
	assert.Equal(t, status.CodeComplete, done.Status.Code)
	assert.Equal(t, "competing", done.ReportLevel)

	atRing := rows[1]
	assert.Equal(t, "Finals", atRing.Round)
	assert.Nil(t, atRing.RedTeam)
	assert.Equal(t, "", atRing.RedLabel)
	require.NotNil(t, atRing.RingNumber)
	assert.Equal(t, int64(2), *atRing.RingNumber)
	assert.Equal(t, "At ring 2", atRing.Status.Text)
}

func TestProject_RespectsFilter(t *testing.T) {
	s := storetest.Store()
	r := lookup.New(s)
	f := filter.New(r)
	require.NoError(t, f.Set(filter.KindActive, ""))

	rows := Project(s, r, f)
	require.Len(t, rows, 2)
	assert.Equal(t, storetest.MatchAtRing, rows[0].PK)
	assert.Equal(t, storetest.MatchHolding, rows[1].PK)
}

func TestProject_DanglingReferenceDoesNotBreakRender(t *testing.T) {
	s := storetest.Store()
	s.ApplyUpdate(store.NewRecord(store.KindTeamMatch, 500, map[string]any{
		"number":    json.Number("999"),
		"round_num": json.Number("3"),
		"blue_team": json.Number("12345"),
	}))
	r := lookup.New(s)
	rows := Project(s, r, filter.New(r))

	last := rows[len(rows)-1]
	assert.Equal(t, int64(500), last.PK)
	assert.Equal(t, lookup.Unresolved, last.BlueLabel)
	assert.Equal(t, lookup.Unresolved, last.Division)
	assert.Equal(t, "Round of 16", last.Round)
}
