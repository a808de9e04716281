// Package journal keeps an append-only audit trail of what a sync session
// received and sent. It is write-mostly; the replica is never rebuilt from it.
package journal

import (
	"context"
	"strings"
	"time"
)

type Event string

const (
	EventSnapshot Event = "snapshot"
	EventInbound  Event = "inbound"
	EventEdit     Event = "edit"
	EventAlert    Event = "alert"
)

type Entry struct {
	SessionID  string
	Slug       string
	Seq        int64
	Event      Event
	Payload    []byte
	RecordedAt time.Time
}

type Journal interface {
	Append(ctx context.Context, e Entry) error
	Entries(ctx context.Context, sessionID string) ([]Entry, error)
	Close() error
}

// Open picks a backend from dsn: empty disables journaling, postgres URLs
// use Postgres and anything else is a SQLite file path.
func Open(dsn string) (Journal, error) {
	dsn = strings.TrimSpace(dsn)
	switch {
	case dsn == "":
		return Nop{}, nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		pg, err := OpenPostgres(dsn)
		if err != nil {
			return nil, err
		}
		return pg, nil
	default:
		lite, err := OpenSQLite(strings.TrimPrefix(dsn, "sqlite://"))
		if err != nil {
			return nil, err
		}
		return lite, nil
	}
}

type Nop struct{}

func (Nop) Append(context.Context, Entry) error { return nil }

func (Nop) Entries(context.Context, string) ([]Entry, error) { return nil, nil }

func (Nop) Close() error { return nil }
