package session

import (
	"errors"
	"fmt"

	"github.com/DoyleJ11/tmdb-matchdesk/internal/status"
	"github.com/DoyleJ11/tmdb-matchdesk/internal/store"
)

var (
	ErrInvalidWinner = errors.New("winning team must be the blue or red team")
	ErrInvalidRing   = errors.New("ring number must be positive")
	ErrEmptyChange   = errors.New("change has no fields")
)

// Change is an operator edit. It yields only the fields it changes.
type Change interface {
	patch(match store.Record) (map[string]any, error)
}

// ReportStatus sets in_holding, at_ring and competing together.
type ReportStatus struct {
	Level status.Level
}

func (c ReportStatus) patch(store.Record) (map[string]any, error) {
	if c.Level < status.LevelNone || c.Level > status.LevelCompeting {
		return nil, fmt.Errorf("%w: %d", status.ErrUnknownLevel, int(c.Level))
	}
	return c.Level.Fields(), nil
}

// AssignRing sends a match to a ring. A nil Ring clears the assignment.
type AssignRing struct {
	Ring *int64
}

func (c AssignRing) patch(store.Record) (map[string]any, error) {
	if c.Ring == nil {
		return map[string]any{"ring_number": nil}, nil
	}
	if *c.Ring <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRing, *c.Ring)
	}
	return map[string]any{"ring_number": *c.Ring}, nil
}

// SetWinner records the winning registration. A nil Team clears it.
type SetWinner struct {
	Team *int64
}

func (c SetWinner) patch(match store.Record) (map[string]any, error) {
	if c.Team == nil {
		return map[string]any{"winning_team": nil}, nil
	}
	for _, side := range []string{"blue_team", "red_team"} {
		if pk, ok := match.Ref(side); ok && pk == *c.Team {
			return map[string]any{"winning_team": *c.Team}, nil
		}
	}
	return nil, fmt.Errorf("%w: %d", ErrInvalidWinner, *c.Team)
}

// RawFields sends arbitrary fields unchanged.
type RawFields struct {
	Fields map[string]any
}

func (c RawFields) patch(store.Record) (map[string]any, error) {
	if len(c.Fields) == 0 {
		return nil, ErrEmptyChange
	}
	out := make(map[string]any, len(c.Fields))
	for k, v := range c.Fields {
		out[k] = v
	}
	return out, nil
}
