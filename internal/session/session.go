// Package session runs one tournament's sync session: the push channel, the
// snapshot bootstrap, the local replica and the displays watching it.
//
// Everything that touches the replica happens on the session goroutine.
// Dialing, channel reads, the snapshot fetch and the disconnect timer run
// elsewhere and only post events into the inbox.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/DoyleJ11/tmdb-matchdesk/internal/channel"
	"github.com/DoyleJ11/tmdb-matchdesk/internal/filter"
	"github.com/DoyleJ11/tmdb-matchdesk/internal/journal"
	"github.com/DoyleJ11/tmdb-matchdesk/internal/lookup"
	"github.com/DoyleJ11/tmdb-matchdesk/internal/metrics"
	"github.com/DoyleJ11/tmdb-matchdesk/internal/snapshot"
	"github.com/DoyleJ11/tmdb-matchdesk/internal/store"
	"github.com/DoyleJ11/tmdb-matchdesk/internal/types"
	"github.com/DoyleJ11/tmdb-matchdesk/internal/view"
)

var (
	ErrChannelClosed = errors.New("push channel is not open for edits")
	ErrUnknownMatch  = errors.New("unknown team match")
	ErrSessionClosed = errors.New("session is shut down")
)

const (
	DefaultLostConnectionAlertDelay = 3500 * time.Millisecond
	DefaultWriteTimeout             = 3 * time.Second

	maxAlerts = 100
)

// Config wires a session to its collaborators. Slug, ChannelURL, Dialer and
// Fetcher are required; the rest have usable defaults.
type Config struct {
	Slug       string
	ChannelURL string

	Dialer  channel.Dialer
	Fetcher snapshot.Fetcher
	Journal journal.Journal
	Metrics *metrics.Metrics
	Logger  *zap.Logger
	Alerter Alerter

	LostConnectionAlertDelay time.Duration
	WriteTimeout             time.Duration
}

type FilterSelection struct {
	Kind  filter.Kind `json:"kind"`
	Value string      `json:"value"`
}

// View is what a display renders. Rows are already filtered and ordered.
type View struct {
	Slug       string          `json:"slug"`
	SessionID  string          `json:"session_id"`
	State      State           `json:"state"`
	Version    int             `json:"version"`
	NumClients int             `json:"num_clients"`
	Location   string          `json:"location,omitempty"`
	Filter     FilterSelection `json:"filter"`
	Rows       []view.Row      `json:"rows"`
}

type Session struct {
	id    string
	cfg   Config
	log   *zap.Logger
	inbox chan Msg

	state     State
	version   int
	loaded    bool
	failed    bool
	pending   [][]byte
	seq       int64
	conn      channel.Conn
	lostTimer *time.Timer

	store    *store.Store
	resolver *lookup.Resolver
	filter   *filter.Engine

	alerts  []Alert
	clients map[string]chan View

	ctx    context.Context
	cancel context.CancelFunc
}

func New(parent context.Context, cfg Config) *Session {
	if cfg.Journal == nil {
		cfg.Journal = journal.Nop{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New(nil)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.LostConnectionAlertDelay <= 0 {
		cfg.LostConnectionAlertDelay = DefaultLostConnectionAlertDelay
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}

	ctx, cancel := context.WithCancel(parent)
	id := ulid.Make().String()
	log := cfg.Logger.Named("session").With(zap.String("slug", cfg.Slug), zap.String("session_id", id))
	if cfg.Alerter == nil {
		cfg.Alerter = LogAlerter{Logger: log}
	}

	st := store.New()
	res := lookup.New(st)
	s := &Session{
		id:       id,
		cfg:      cfg,
		log:      log,
		inbox:    make(chan Msg, 64),
		state:    StateDisconnected,
		store:    st,
		resolver: res,
		filter:   filter.New(res),
		clients:  make(map[string]chan View),
		ctx:      ctx,
		cancel:   cancel,
	}
	s.cfg.Metrics.ChannelState.WithLabelValues(cfg.Slug).Set(float64(StateDisconnected))

	go s.loop()
	return s
}

func (s *Session) ID() string   { return s.id }
func (s *Session) Slug() string { return s.cfg.Slug }

// Inbox exposes the loop so the hub and tests can post messages directly.
func (s *Session) Inbox() chan<- Msg { return s.inbox }

// Done is closed once the session has shut down.
func (s *Session) Done() <-chan struct{} { return s.ctx.Done() }

func (s *Session) loop() {
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case m := <-s.inbox:
			if !s.handle(m) {
				s.shutdown()
				return
			}
		}
	}
}

// handle processes one message and reports whether the loop should go on.
func (s *Session) handle(m Msg) bool {
	switch msg := m.(type) {
	case Start:
		s.start()

	case channelOpened:
		s.opened(msg.conn)

	case channelMessage:
		s.received(msg.data)

	case channelClosed:
		s.closed(msg.err)

	case snapshotResult:
		s.bootstrapped(msg.records, msg.err)

	case lostConnectionAlert:
		s.alert(fmt.Sprintf("Lost connection to %s. %s", s.cfg.ChannelURL, s.restartHint()))

	case Edit:
		msg.Reply <- s.edit(msg.MatchPK, msg.Change)

	case SetFilter:
		err := s.filter.Set(msg.Kind, msg.Value)
		if err == nil {
			s.render()
		}
		msg.Reply <- err

	case GetView:
		msg.Reply <- s.view()

	case GetOptions:
		msg.Reply <- s.filter.Options(msg.Kind)

	case GetAlerts:
		out := make([]Alert, len(s.alerts))
		copy(out, s.alerts)
		msg.Reply <- out

	case Join:
		s.clients[msg.ClientID] = msg.Outbox
		select {
		case msg.Outbox <- s.view():
		default:
			close(msg.Outbox)
			delete(s.clients, msg.ClientID)
		}

	case Leave:
		if ch, ok := s.clients[msg.ClientID]; ok {
			close(ch)
			delete(s.clients, msg.ClientID)
		}

	case Shutdown:
		return false
	}
	return true
}

func (s *Session) start() {
	if s.state != StateDisconnected {
		s.log.Debug("start ignored", zap.Stringer("state", s.state))
		return
	}
	s.setState(StateConnecting)
	go s.dial()
}

func (s *Session) dial() {
	conn, err := s.cfg.Dialer.Dial(s.ctx, s.cfg.ChannelURL)
	if err != nil {
		s.post(channelClosed{err: fmt.Errorf("dial %s: %w", s.cfg.ChannelURL, err)})
		return
	}
	if !s.post(channelOpened{conn: conn}) {
		_ = conn.Close()
	}
}

func (s *Session) opened(conn channel.Conn) {
	s.conn = conn
	s.setState(StateBootstrapping)
	s.log.Info("push channel open")

	go func() {
		err := channel.ReadLoop(s.ctx, conn, func(data []byte) {
			s.post(channelMessage{data: data})
		})
		s.post(channelClosed{err: err})
	}()
	go func() {
		recs, err := s.cfg.Fetcher.Fetch(s.ctx, s.cfg.Slug)
		s.post(snapshotResult{records: recs, err: err})
	}()
}

func (s *Session) bootstrapped(recs []store.Record, err error) {
	if err != nil {
		s.failed = true
		s.pending = nil
		s.cfg.Metrics.Buffered.WithLabelValues(s.cfg.Slug).Set(0)
		s.log.Error("snapshot fetch failed", zap.Error(err))

		var se *snapshot.StatusError
		if errors.As(err, &se) {
			s.alert(fmt.Sprintf("Error loading tournament data: %d\n%s", se.StatusCode, se.Body))
		} else {
			s.alert(fmt.Sprintf("Error loading tournament data: %v", err))
		}
		return
	}

	s.store.LoadSnapshot(recs)
	s.loaded = true
	s.cfg.Metrics.Records.WithLabelValues(s.cfg.Slug, "snapshot").Add(float64(len(recs)))
	s.record(journal.EventSnapshot, snapshotSummary(recs))
	s.log.Info("snapshot loaded", zap.Int("records", len(recs)), zap.Int("replayed", len(s.pending)))

	if s.state == StateBootstrapping {
		s.setState(StateSynchronized)
	}
	for _, data := range s.pending {
		s.apply(data)
	}
	s.pending = nil
	s.cfg.Metrics.Buffered.WithLabelValues(s.cfg.Slug).Set(0)
	s.render()
}

func (s *Session) received(data []byte) {
	switch {
	case s.loaded:
		if s.apply(data) {
			s.render()
		}
	case s.failed:
		s.cfg.Metrics.Messages.WithLabelValues(s.cfg.Slug, "dropped").Inc()
		s.log.Debug("push message dropped after failed bootstrap")
	default:
		s.pending = append(s.pending, data)
		s.cfg.Metrics.Messages.WithLabelValues(s.cfg.Slug, "buffered").Inc()
		s.cfg.Metrics.Buffered.WithLabelValues(s.cfg.Slug).Set(float64(len(s.pending)))
	}
}

// apply merges one push message into the replica. It reports false when the
// message could not be decoded, in which case nothing was changed.
func (s *Session) apply(data []byte) bool {
	in, err := types.DecodeInbound(data)
	if err != nil {
		s.cfg.Metrics.Messages.WithLabelValues(s.cfg.Slug, "malformed").Inc()
		s.alert(fmt.Sprintf("Malformed update from server: %v", err))
		return false
	}
	s.cfg.Metrics.Messages.WithLabelValues(s.cfg.Slug, "applied").Inc()
	s.record(journal.EventInbound, data)

	for _, rec := range in.Updates {
		s.store.ApplyUpdate(rec)
	}
	for _, d := range in.Deletes {
		s.store.ApplyDelete(d.Kind, d.PK)
	}
	s.cfg.Metrics.Records.WithLabelValues(s.cfg.Slug, "update").Add(float64(len(in.Updates)))
	s.cfg.Metrics.Records.WithLabelValues(s.cfg.Slug, "delete").Add(float64(len(in.Deletes)))

	if in.HasError {
		s.alert("Error from server: " + types.ErrorText(in.Error))
	}
	return true
}

func (s *Session) closed(err error) {
	if s.state == StateDegraded {
		return
	}
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
	s.setState(StateDegraded)
	s.log.Warn("push channel closed", zap.Error(err))

	s.lostTimer = time.AfterFunc(s.cfg.LostConnectionAlertDelay, func() {
		s.post(lostConnectionAlert{})
	})
	s.render()
}

func (s *Session) edit(pk int64, c Change) error {
	if !s.state.Writable() || s.conn == nil {
		s.cfg.Metrics.Edits.WithLabelValues(s.cfg.Slug, "rejected").Inc()
		s.alert("Cannot save changes: " + s.notWritable())
		s.render()
		return ErrChannelClosed
	}
	if c == nil {
		return ErrEmptyChange
	}

	match, ok := s.store.Get(store.KindTeamMatch, pk)
	if !ok {
		s.cfg.Metrics.Edits.WithLabelValues(s.cfg.Slug, "invalid").Inc()
		return fmt.Errorf("%w: %d", ErrUnknownMatch, pk)
	}
	fields, err := c.patch(match)
	if err != nil {
		s.cfg.Metrics.Edits.WithLabelValues(s.cfg.Slug, "invalid").Inc()
		return err
	}
	payload, err := types.EncodePatch(store.KindTeamMatch, pk, fields)
	if err != nil {
		s.cfg.Metrics.Edits.WithLabelValues(s.cfg.Slug, "invalid").Inc()
		return err
	}

	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.WriteTimeout)
	defer cancel()
	if err := s.conn.Write(ctx, payload); err != nil {
		s.cfg.Metrics.Edits.WithLabelValues(s.cfg.Slug, "failed").Inc()
		s.alert(fmt.Sprintf("Failed to send change for match %d: %v", pk, err))
		s.render()
		return fmt.Errorf("send edit: %w", err)
	}

	s.cfg.Metrics.Edits.WithLabelValues(s.cfg.Slug, "sent").Inc()
	s.record(journal.EventEdit, payload)
	s.log.Debug("edit sent", zap.Int64("match", pk), zap.ByteString("payload", payload))
	return nil
}

func (s *Session) alert(message string) {
	a := Alert{At: time.Now(), Message: message}
	s.alerts = append(s.alerts, a)
	if len(s.alerts) > maxAlerts {
		s.alerts = s.alerts[len(s.alerts)-maxAlerts:]
	}
	s.cfg.Metrics.Alerts.WithLabelValues(s.cfg.Slug).Inc()
	s.cfg.Alerter.Alert(s.cfg.Slug, a)
	s.record(journal.EventAlert, []byte(message))
}

func (s *Session) record(ev journal.Event, payload []byte) {
	s.seq++
	err := s.cfg.Journal.Append(s.ctx, journal.Entry{
		SessionID:  s.id,
		Slug:       s.cfg.Slug,
		Seq:        s.seq,
		Event:      ev,
		Payload:    payload,
		RecordedAt: time.Now().UTC(),
	})
	if err != nil {
		s.log.Warn("journal append failed", zap.String("event", string(ev)), zap.Error(err))
	}
}

func (s *Session) setState(st State) {
	s.log.Debug("state change", zap.Stringer("from", s.state), zap.Stringer("to", st))
	s.state = st
	s.cfg.Metrics.ChannelState.WithLabelValues(s.cfg.Slug).Set(float64(st))
}

func (s *Session) view() View {
	v := View{
		Slug:       s.cfg.Slug,
		SessionID:  s.id,
		State:      s.state,
		Version:    s.version,
		NumClients: len(s.clients),
		Filter:     FilterSelection{Kind: s.filter.Kind(), Value: s.filter.Value()},
		Rows:       view.Project(s.store, s.resolver, s.filter),
	}
	if t, ok := s.store.Tournament(); ok {
		v.Location = t.String("location")
	}
	return v
}

// notWritable explains to the operator why edits are refused right now.
func (s *Session) notWritable() string {
	switch {
	case s.failed:
		return "tournament data failed to load. " + s.restartHint()
	case s.state == StateDegraded:
		return "lost connection to the server. " + s.restartHint()
	default:
		return "tournament data is still loading."
	}
}

func (s *Session) restartHint() string {
	return fmt.Sprintf("Restart the session (DELETE then POST /tournaments/%s/session) to reconnect.", s.cfg.Slug)
}

func (s *Session) render() {
	s.version++
	s.cfg.Metrics.Renders.WithLabelValues(s.cfg.Slug).Inc()
	if len(s.clients) == 0 {
		return
	}
	s.broadcast(s.view())
}

func (s *Session) broadcast(v View) {
	for id, ch := range s.clients {
		select {
		case ch <- v:
			// ok
		default:
			// Slow display, drop it.
			close(ch)
			delete(s.clients, id)
		}
	}
}

// post hands an event to the loop from a helper goroutine. It gives up once
// the session is shut down.
func (s *Session) post(m Msg) bool {
	select {
	case s.inbox <- m:
		return true
	case <-s.ctx.Done():
		return false
	}
}

func (s *Session) shutdown() {
	if s.lostTimer != nil {
		s.lostTimer.Stop()
	}
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
	for id, ch := range s.clients {
		close(ch)
		delete(s.clients, id)
	}
	s.cancel()
	s.log.Info("session shut down")
}

func snapshotSummary(recs []store.Record) []byte {
	counts := make(map[store.Kind]int)
	for _, r := range recs {
		counts[r.Kind]++
	}
	b, _ := json.Marshal(counts)
	return b
}
