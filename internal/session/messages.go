package session

import (
	"github.com/DoyleJ11/tmdb-matchdesk/internal/channel"
	"github.com/DoyleJ11/tmdb-matchdesk/internal/filter"
	"github.com/DoyleJ11/tmdb-matchdesk/internal/store"
)

// Msg is anything the session loop handles. Every event, whether from the
// push channel, the snapshot fetch, a timer or an operator, arrives here.
type Msg interface{ isSessionMsg() }

// Start connects the push channel. Only the first Start does anything.
type Start struct{}

func (Start) isSessionMsg() {}

// Edit sends one operator change for a team match.
type Edit struct {
	MatchPK int64
	Change  Change
	Reply   chan error
}

func (Edit) isSessionMsg() {}

type SetFilter struct {
	Kind  filter.Kind
	Value string
	Reply chan error
}

func (SetFilter) isSessionMsg() {}

type GetView struct {
	Reply chan View
}

func (GetView) isSessionMsg() {}

type GetOptions struct {
	Kind  filter.Kind
	Reply chan []string
}

func (GetOptions) isSessionMsg() {}

type GetAlerts struct {
	Reply chan []Alert
}

func (GetAlerts) isSessionMsg() {}

// Join subscribes a display. The current view is sent immediately and again
// after every render.
type Join struct {
	ClientID string
	Outbox   chan View
}

func (Join) isSessionMsg() {}

type Leave struct{ ClientID string }

func (Leave) isSessionMsg() {}

type Shutdown struct{}

func (Shutdown) isSessionMsg() {}

// events posted by the session's own helper goroutines

type channelOpened struct{ conn channel.Conn }

func (channelOpened) isSessionMsg() {}

type channelMessage struct{ data []byte }

func (channelMessage) isSessionMsg() {}

type channelClosed struct{ err error }

func (channelClosed) isSessionMsg() {}

type snapshotResult struct {
	records []store.Record
	err     error
}

func (snapshotResult) isSessionMsg() {}

type lostConnectionAlert struct{}

func (lostConnectionAlert) isSessionMsg() {}
