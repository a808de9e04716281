package store

import (
	"strings"

	"golang.org/x/text/cases"
)

// Kind is the normalized record kind, e.g. "tmdb_teammatch".
type Kind string

const (
	KindTournament         Kind = "tmdb_tournament"
	KindDivision           Kind = "tmdb_division"
	KindSchool             Kind = "tmdb_school"
	KindSchoolRegistration Kind = "tmdb_schoolregistration"
	KindTeam               Kind = "tmdb_team"
	KindTournamentDivision Kind = "tmdb_tournamentdivision"
	KindTeamRegistration   Kind = "tmdb_teamregistration"
	KindTeamMatch          Kind = "tmdb_teammatch"
)

// NormalizeKind turns a wire model name ("tmdb.TeamMatch") into its store form.
func NormalizeKind(model string) Kind {
	folded := cases.Fold().String(strings.TrimSpace(model))
	return Kind(strings.ReplaceAll(folded, ".", "_"))
}

// NormalizeField maps a wire field name onto the store's underscore form.
func NormalizeField(name string) string {
	return strings.ReplaceAll(name, ".", "_")
}

// Wire returns the dotted namespace.entity form used on the push channel.
func (k Kind) Wire() string {
	return strings.Replace(string(k), "_", ".", 1)
}
