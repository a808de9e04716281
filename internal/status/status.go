// Package status derives the display lifecycle of a team match from its
// stored fields. Everything here is pure and evaluated on every projection.
package status

import (
	"fmt"

	"github.com/DoyleJ11/tmdb-matchdesk/internal/store"
)

type Code int

const (
	CodeNotStarted Code = iota
	CodeInHolding
	CodeSentToRing
	CodeAtRing
	CodeCompeting
	CodeComplete
)

func (c Code) String() string {
	switch c {
	case CodeNotStarted:
		return "not started"
	case CodeInHolding:
		return "in holding"
	case CodeSentToRing:
		return "sent to ring"
	case CodeAtRing:
		return "at ring"
	case CodeCompeting:
		return "competing"
	case CodeComplete:
		return "complete"
	default:
		return fmt.Sprintf("Code(%d)", int(c))
	}
}

// Active is true for every code between not started and complete.
func (c Code) Active() bool {
	return c > CodeNotStarted && c < CodeComplete
}

type Status struct {
	Code  Code   `json:"code"`
	Text  string `json:"text"`
	Class string `json:"class"`
}

// Evaluate resolves a match's status. The first matching rule wins:
// winner, competing, at ring, sent to ring, holding, not started.
// competing and at_ring are ignored unless a ring number is set.
func Evaluate(match store.Record) Status {
	if !match.IsNull("winning_team") {
		return Status{Code: CodeComplete, Text: "Complete", Class: "complete"}
	}
	if ring, ok := match.Int("ring_number"); ok {
		switch {
		case match.Bool("competing"):
			return Status{Code: CodeCompeting, Text: fmt.Sprintf("Competing at ring %d", ring), Class: "competing"}
		case match.Bool("at_ring"):
			return Status{Code: CodeAtRing, Text: fmt.Sprintf("At ring %d", ring), Class: "at-ring"}
		default:
			return Status{Code: CodeSentToRing, Text: fmt.Sprintf("Sent to ring %d", ring), Class: "sent-to-ring"}
		}
	}
	if match.Bool("in_holding") {
		return Status{Code: CodeInHolding, Text: "Report to holding", Class: "in-holding"}
	}
	return Status{Code: CodeNotStarted, Text: "", Class: "not-started"}
}

// RoundLabel names a bracket round by its distance from the final.
func RoundLabel(roundNum int) string {
	switch {
	case roundNum == 0:
		return "Finals"
	case roundNum == 1:
		return "Semi-Finals"
	case roundNum == 2:
		return "Quarter-Finals"
	case roundNum < 0 || roundNum >= 62:
		// 1<<(roundNum+1) no longer fits in an int
		return fmt.Sprintf("Round %d", roundNum)
	default:
		return fmt.Sprintf("Round of %d", 1<<(roundNum+1))
	}
}
