// Package view projects the replica into the ordered rows a display shows.
package view

import (
	"cmp"
	"slices"

	"github.com/DoyleJ11/tmdb-matchdesk/internal/filter"
	"github.com/DoyleJ11/tmdb-matchdesk/internal/lookup"
	"github.com/DoyleJ11/tmdb-matchdesk/internal/status"
	"github.com/DoyleJ11/tmdb-matchdesk/internal/store"
)

type Row struct {
	PK          int64         `json:"pk"`
	Number      int64         `json:"number"`
	Round       string        `json:"round"`
	Division    string        `json:"division"`
	BlueTeam    *int64        `json:"blue_team"`
	BlueLabel   string        `json:"blue_label"`
	RedTeam     *int64        `json:"red_team"`
	RedLabel    string        `json:"red_label"`
	RingNumber  *int64        `json:"ring_number"`
	ReportLevel string        `json:"report_level"`
	WinningTeam *int64        `json:"winning_team"`
	WinnerLabel string        `json:"winner_label"`
	Status      status.Status `json:"status"`
}

// Project returns the matches the filter keeps, ordered by match number.
// Status is derived fresh for every row.
func Project(s *store.Store, r *lookup.Resolver, f *filter.Engine) []Row {
	matches := f.Apply(s.All(store.KindTeamMatch))
	slices.SortFunc(matches, func(a, b store.Record) int {
		an, _ := a.Int("number")
		bn, _ := b.Int("number")
		if c := cmp.Compare(an, bn); c != 0 {
			return c
		}
		return cmp.Compare(a.PK, b.PK)
	})

	rows := make([]Row, 0, len(matches))
	for _, m := range matches {
		rows = append(rows, row(r, m))
	}
	return rows
}

func row(r *lookup.Resolver, m store.Record) Row {
	number, _ := m.Int("number")
	round, _ := m.Int("round_num")
	division, _ := r.MatchDivision(m)

	out := Row{
		PK:          m.PK,
		Number:      number,
		Round:       status.RoundLabel(int(round)),
		Division:    division,
		BlueTeam:    ref(m, "blue_team"),
		BlueLabel:   r.SideLabel(m, "blue_team"),
		RedTeam:     ref(m, "red_team"),
		RedLabel:    r.SideLabel(m, "red_team"),
		RingNumber:  ref(m, "ring_number"),
		ReportLevel: status.LevelOf(m).String(),
		WinningTeam: ref(m, "winning_team"),
		WinnerLabel: r.SideLabel(m, "winning_team"),
		Status:      status.Evaluate(m),
	}
	return out
}

func ref(m store.Record, field string) *int64 {
	v, ok := m.Int(field)
	if !ok {
		return nil
	}
	return &v
}
