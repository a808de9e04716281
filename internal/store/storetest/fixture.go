// Package storetest builds a small tournament replica shared by package tests.
package storetest

import (
	"encoding/json"

	"github.com/DoyleJ11/tmdb-matchdesk/internal/store"
)

const Slug = "spring-open"

// Primary keys used by Records.
const (
	DivisionWomenNovice int64 = 1
	DivisionMenA        int64 = 2

	SchoolAcme    int64 = 10
	SchoolBayside int64 = 11

	RegAcmeNovice1    int64 = 50
	RegBaysideNovice2 int64 = 51
	RegBaysideA1      int64 = 52

	// MatchFresh has both sides and nothing set.
	MatchFresh int64 = 100
	// MatchAtRing is at ring 2.
	MatchAtRing int64 = 101
	// MatchHolding is in the men's division, reported to holding.
	MatchHolding int64 = 102
	// MatchDone was won by RegBaysideNovice2 at ring 2.
	MatchDone int64 = 103
)

func n(i int64) json.Number {
	b, _ := json.Marshal(i)
	return json.Number(b)
}

// Records returns a fresh copy of the fixture tournament.
func Records() []store.Record {
	rec := store.NewRecord
	return []store.Record{
		rec(store.KindTournament, 1, map[string]any{"slug": Slug, "location": "Main Gym"}),

		rec(store.KindDivision, DivisionWomenNovice, map[string]any{"sex": "F", "skill_level": "Novice"}),
		rec(store.KindDivision, DivisionMenA, map[string]any{"sex": "M", "skill_level": "A"}),

		rec(store.KindSchool, SchoolAcme, map[string]any{"name": "Acme"}),
		rec(store.KindSchool, SchoolBayside, map[string]any{"name": "Bayside"}),
		rec(store.KindSchool, 12, map[string]any{"name": "Unregistered U"}),
		rec(store.KindSchoolRegistration, 20, map[string]any{"school": n(SchoolAcme), "tournament": n(1)}),
		rec(store.KindSchoolRegistration, 21, map[string]any{"school": n(SchoolBayside), "tournament": n(1)}),

		rec(store.KindTeam, 30, map[string]any{"school": n(SchoolAcme), "division": n(DivisionWomenNovice), "number": n(1), "lightweight": true}),
		rec(store.KindTeam, 31, map[string]any{"school": n(SchoolBayside), "division": n(DivisionWomenNovice), "number": n(2)}),
		rec(store.KindTeam, 32, map[string]any{"school": n(SchoolBayside), "division": n(DivisionMenA), "number": n(1), "heavyweight": true}),

		rec(store.KindTournamentDivision, 40, map[string]any{"division": n(DivisionWomenNovice), "tournament": n(1)}),
		rec(store.KindTournamentDivision, 41, map[string]any{"division": n(DivisionMenA), "tournament": n(1)}),

		rec(store.KindTeamRegistration, RegAcmeNovice1, map[string]any{"team": n(30), "tournament_division": n(40)}),
		rec(store.KindTeamRegistration, RegBaysideNovice2, map[string]any{"team": n(31), "tournament_division": n(40)}),
		rec(store.KindTeamRegistration, RegBaysideA1, map[string]any{"team": n(32), "tournament_division": n(41)}),

		rec(store.KindTeamMatch, MatchFresh, map[string]any{
			"number": n(101), "round_num": n(1), "division": n(40),
			"blue_team": n(RegAcmeNovice1), "red_team": n(RegBaysideNovice2),
			"winning_team": nil, "ring_number": nil,
			"in_holding": false, "at_ring": false, "competing": false,
		}),
		rec(store.KindTeamMatch, MatchAtRing, map[string]any{
			"number": n(102), "round_num": n(0), "division": n(40),
			"blue_team": n(RegAcmeNovice1), "red_team": nil,
			"winning_team": nil, "ring_number": n(2),
			"in_holding": true, "at_ring": true, "competing": false,
		}),
		rec(store.KindTeamMatch, MatchHolding, map[string]any{
			"number": n(201), "round_num": n(0), "division": n(41),
			"blue_team": n(RegBaysideA1), "red_team": nil,
			"winning_team": nil, "ring_number": nil,
			"in_holding": true, "at_ring": false, "competing": false,
		}),
		rec(store.KindTeamMatch, MatchDone, map[string]any{
			"number": n(103), "round_num": n(2), "division": n(40),
			"blue_team": n(RegBaysideNovice2), "red_team": n(RegAcmeNovice1),
			"winning_team": n(RegBaysideNovice2), "ring_number": n(2),
			"in_holding": true, "at_ring": true, "competing": true,
		}),
	}
}

// Store returns a store loaded with Records.
func Store() *store.Store {
	s := store.New()
	s.LoadSnapshot(Records())
	return s
}

type wireRecord struct {
	Model  string         `json:"model"`
	PK     int64          `json:"pk"`
	Fields map[string]any `json:"fields"`
}

// SnapshotJSON is Records as the snapshot endpoint serves them.
func SnapshotJSON() []byte {
	recs := Records()
	out := make([]wireRecord, 0, len(recs))
	for _, r := range recs {
		out = append(out, wireRecord{Model: r.Kind.Wire(), PK: r.PK, Fields: r.Fields})
	}
	b, err := json.Marshal(out)
	if err != nil {
		panic(err)
	}
	return b
}
