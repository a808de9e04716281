package status

import (
	"errors"
	"fmt"

	"github.com/DoyleJ11/tmdb-matchdesk/internal/store"
)

var ErrUnknownLevel = errors.New("unknown report level")

// Level is the operator-facing report status. Each level implies the ones
// below it.
type Level int

const (
	LevelNone Level = iota
	LevelHolding
	LevelAtRing
	LevelCompeting
)

func (l Level) String() string {
	switch l {
	case LevelNone:
		return "none"
	case LevelHolding:
		return "holding"
	case LevelAtRing:
		return "at_ring"
	case LevelCompeting:
		return "competing"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

func ParseLevel(s string) (Level, error) {
	switch s {
	case "none", "":
		return LevelNone, nil
	case "holding":
		return LevelHolding, nil
	case "at_ring":
		return LevelAtRing, nil
	case "competing":
		return LevelCompeting, nil
	default:
		return LevelNone, fmt.Errorf("%w: %q", ErrUnknownLevel, s)
	}
}

// Fields encodes the level as the three stored booleans by threshold, so a
// client edit can never break competing => at_ring => in_holding.
func (l Level) Fields() map[string]any {
	return map[string]any{
		"in_holding": l >= LevelHolding,
		"at_ring":    l >= LevelAtRing,
		"competing":  l >= LevelCompeting,
	}
}

// LevelOf decodes the highest flag set on a match.
func LevelOf(match store.Record) Level {
	switch {
	case match.Bool("competing"):
		return LevelCompeting
	case match.Bool("at_ring"):
		return LevelAtRing
	case match.Bool("in_holding"):
		return LevelHolding
	default:
		return LevelNone
	}
}
