// Package filter holds the operator's active selection over team matches.
// Filters only decide which rows are shown; they never touch the store.
package filter

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/DoyleJ11/tmdb-matchdesk/internal/lookup"
	"github.com/DoyleJ11/tmdb-matchdesk/internal/status"
	"github.com/DoyleJ11/tmdb-matchdesk/internal/store"
)

var ErrUnknownKind = errors.New("unknown filter kind")

type Kind string

const (
	KindAll      Kind = "all"
	KindActive   Kind = "active"
	KindRing     Kind = "ring"
	KindDivision Kind = "division"
	KindSchool   Kind = "school"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.TrimSpace(s)); k {
	case KindAll, KindActive, KindRing, KindDivision, KindSchool:
		return k, nil
	case "":
		return KindAll, nil
	default:
		return KindAll, fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Predicate selects team match records.
type Predicate func(match store.Record) bool

func ShowAll() Predicate {
	return func(store.Record) bool { return true }
}

// Active keeps matches that have started but are not complete.
func Active() Predicate {
	return func(match store.Record) bool {
		return status.Evaluate(match).Code.Active()
	}
}

func ByRing(ring int64) Predicate {
	return func(match store.Record) bool {
		n, ok := match.Int("ring_number")
		return ok && n == ring
	}
}

func ByDivision(r *lookup.Resolver, label string) Predicate {
	return func(match store.Record) bool {
		got, ok := r.MatchDivision(match)
		return ok && got == label
	}
}

func BySchool(r *lookup.Resolver, name string) Predicate {
	return func(match store.Record) bool {
		return slices.Contains(r.MatchSchools(match), name)
	}
}

// Engine owns the active filter. The zero selection is show all.
type Engine struct {
	lookup *lookup.Resolver
	kind   Kind
	value  string
	pred   Predicate
}

func New(r *lookup.Resolver) *Engine {
	e := &Engine{lookup: r}
	e.reset()
	return e
}

func (e *Engine) reset() {
	e.kind = KindAll
	e.value = ""
	e.pred = ShowAll()
}

// Select switches filter kinds. It always falls back to show all first; the
// active filter narrows immediately, the parameterized ones wait for SetValue.
func (e *Engine) Select(kind Kind) error {
	if _, err := ParseKind(string(kind)); err != nil {
		return err
	}
	e.reset()
	e.kind = kind
	if kind == KindActive {
		e.pred = Active()
	}
	return nil
}

// SetValue supplies the parameter for ring, division and school filters.
// Empty or invalid input resets the predicate to show all while keeping the
// selected kind. Kinds without a parameter ignore it.
func (e *Engine) SetValue(value string) {
	value = strings.TrimSpace(value)
	switch e.kind {
	case KindRing:
		ring, err := strconv.ParseInt(value, 10, 64)
		if err != nil || ring <= 0 {
			e.value, e.pred = "", ShowAll()
			return
		}
		e.value, e.pred = strconv.FormatInt(ring, 10), ByRing(ring)
	case KindDivision:
		if value == "" {
			e.value, e.pred = "", ShowAll()
			return
		}
		e.value, e.pred = value, ByDivision(e.lookup, value)
	case KindSchool:
		if value == "" {
			e.value, e.pred = "", ShowAll()
			return
		}
		e.value, e.pred = value, BySchool(e.lookup, value)
	}
}

// Set selects a kind and applies its value in one step.
func (e *Engine) Set(kind Kind, value string) error {
	if err := e.Select(kind); err != nil {
		return err
	}
	e.SetValue(value)
	return nil
}

func (e *Engine) Kind() Kind { return e.kind }

func (e *Engine) Value() string { return e.value }

func (e *Engine) Match(m store.Record) bool { return e.pred(m) }

// Apply returns the matches the active filter keeps, in input order.
func (e *Engine) Apply(matches []store.Record) []store.Record {
	out := make([]store.Record, 0, len(matches))
	for _, m := range matches {
		if e.pred(m) {
			out = append(out, m)
		}
	}
	return out
}

// Options lists the values offered for kind, derived from the current replica.
func (e *Engine) Options(kind Kind) []string {
	switch kind {
	case KindDivision:
		return e.lookup.DivisionLabels()
	case KindSchool:
		return e.lookup.SchoolNames()
	default:
		return nil
	}
}
