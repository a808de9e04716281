// Package lookup resolves the references between replica records into the
// labels shown to operators and used by filters. A reference to a record the
// replica has not received yet resolves to Unresolved instead of failing.
package lookup

import (
	"fmt"
	"slices"
	"strings"

	"github.com/DoyleJ11/tmdb-matchdesk/internal/store"
)

// Unresolved stands in for any label whose reference chain is broken.
const Unresolved = "(unresolved)"

var sexLabels = map[string]string{
	"F": "Women's",
	"M": "Men's",
}

var skillLabels = map[string]string{
	"A": "A-team",
	"B": "B-team",
	"C": "C-team",
}

var weightClasses = []struct {
	field string
	short string
}{
	{"lightweight", "L"},
	{"middleweight", "M"},
	{"heavyweight", "H"},
}

type Resolver struct {
	s *store.Store
}

func New(s *store.Store) *Resolver {
	return &Resolver{s: s}
}

// DivisionLabel renders a division such as "Women's A-team". Divisions with
// an unknown sex render the skill label alone.
func (r *Resolver) DivisionLabel(divisionPK int64) (string, bool) {
	div, ok := r.s.Get(store.KindDivision, divisionPK)
	if !ok {
		return Unresolved, false
	}
	return divisionLabel(div), true
}

func divisionLabel(div store.Record) string {
	skill := div.String("skill_level")
	if l, ok := skillLabels[skill]; ok {
		skill = l
	}
	sex, ok := sexLabels[strings.ToUpper(div.String("sex"))]
	if !ok {
		return skill
	}
	return sex + " " + skill
}

// MatchDivision resolves the division a match belongs to, through its
// tournament division when present and otherwise through either side's team.
func (r *Resolver) MatchDivision(match store.Record) (string, bool) {
	if tdPK, ok := match.Ref("division"); ok {
		if td, ok := r.s.Get(store.KindTournamentDivision, tdPK); ok {
			if divPK, ok := td.Ref("division"); ok {
				if label, ok := r.DivisionLabel(divPK); ok {
					return label, true
				}
			}
		}
	}
	for _, side := range []string{"blue_team", "red_team"} {
		team, ok := r.sideTeam(match, side)
		if !ok {
			continue
		}
		if divPK, ok := team.Ref("division"); ok {
			if label, ok := r.DivisionLabel(divPK); ok {
				return label, true
			}
		}
	}
	return Unresolved, false
}

// DivisionLabels lists the distinct division labels in the replica, sorted.
func (r *Resolver) DivisionLabels() []string {
	var labels []string
	for _, div := range r.s.All(store.KindDivision) {
		labels = append(labels, divisionLabel(div))
	}
	return sortedUnique(labels)
}

func (r *Resolver) SchoolName(schoolPK int64) (string, bool) {
	school, ok := r.s.Get(store.KindSchool, schoolPK)
	if !ok {
		return Unresolved, false
	}
	return school.String("name"), true
}

// SchoolNames lists the names of registered schools, sorted. When the replica
// holds no school registrations every known school is listed.
func (r *Resolver) SchoolNames() []string {
	var names []string
	regs := r.s.All(store.KindSchoolRegistration)
	if len(regs) == 0 {
		for _, school := range r.s.All(store.KindSchool) {
			names = append(names, school.String("name"))
		}
		return sortedUnique(names)
	}
	for _, reg := range regs {
		pk, ok := reg.Ref("school")
		if !ok {
			continue
		}
		if name, ok := r.SchoolName(pk); ok {
			names = append(names, name)
		}
	}
	return sortedUnique(names)
}

// MatchSchools returns the resolvable school names of both sides.
func (r *Resolver) MatchSchools(match store.Record) []string {
	var names []string
	for _, side := range []string{"blue_team", "red_team"} {
		team, ok := r.sideTeam(match, side)
		if !ok {
			continue
		}
		pk, ok := team.Ref("school")
		if !ok {
			continue
		}
		if name, ok := r.SchoolName(pk); ok {
			names = append(names, name)
		}
	}
	return names
}

// TeamLabel renders a team registration as "Acme A2 (LMH)".
func (r *Resolver) TeamLabel(registrationPK int64) (string, bool) {
	reg, ok := r.s.Get(store.KindTeamRegistration, registrationPK)
	if !ok {
		return Unresolved, false
	}
	teamPK, ok := reg.Ref("team")
	if !ok {
		return Unresolved, false
	}
	team, ok := r.s.Get(store.KindTeam, teamPK)
	if !ok {
		return Unresolved, false
	}
	schoolPK, ok := team.Ref("school")
	if !ok {
		return Unresolved, false
	}
	school, ok := r.SchoolName(schoolPK)
	if !ok {
		return Unresolved, false
	}

	skill := ""
	if divPK, ok := team.Ref("division"); ok {
		if div, ok := r.s.Get(store.KindDivision, divPK); ok {
			skill = div.String("skill_level")
		}
	}
	number, _ := team.Int("number")
	label := fmt.Sprintf("%s %s%d", school, skill, number)

	var weights strings.Builder
	for _, w := range weightClasses {
		has := team.Bool(w.field)
		if _, ok := reg.Ref(w.field); ok {
			// competitor assigned on the registration
			has = true
		}
		if has {
			weights.WriteString(w.short)
		}
	}
	if weights.Len() > 0 {
		label += " (" + weights.String() + ")"
	}
	return label, true
}

// SideLabel renders one side of a match. An empty side renders "".
func (r *Resolver) SideLabel(match store.Record, side string) string {
	pk, ok := match.Ref(side)
	if !ok {
		return ""
	}
	label, _ := r.TeamLabel(pk)
	return label
}

func (r *Resolver) sideTeam(match store.Record, side string) (store.Record, bool) {
	regPK, ok := match.Ref(side)
	if !ok {
		return store.Record{}, false
	}
	reg, ok := r.s.Get(store.KindTeamRegistration, regPK)
	if !ok {
		return store.Record{}, false
	}
	teamPK, ok := reg.Ref("team")
	if !ok {
		return store.Record{}, false
	}
	return r.s.Get(store.KindTeam, teamPK)
}

func sortedUnique(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
