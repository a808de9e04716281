// Package hub owns the sync sessions, one per tournament slug.
package hub

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/DoyleJ11/tmdb-matchdesk/internal/session"
)

var (
	ErrUnknownSession = errors.New("no session for tournament")
	ErrInvalidSlug    = errors.New("invalid tournament slug")
	ErrHubClosed      = errors.New("hub is shut down")
)

// Factory builds an unstarted session for slug.
type Factory func(ctx context.Context, slug string) (*session.Session, error)

type HubMsg interface{ isHubMsg() }

type EnsureResult struct {
	Session *session.Session
	Created bool
	Err     error
}

// EnsureSession returns the slug's session, creating and starting it first
// if there is none.
type EnsureSession struct {
	Slug  string
	Reply chan EnsureResult
}

type GetSession struct {
	Slug  string
	Reply chan *session.Session
}

type ListSessions struct {
	Reply chan []string
}

// RemoveSession shuts down the slug's session. Reply, if set, reports
// whether there was one.
type RemoveSession struct {
	Slug  string
	Reply chan bool
}

type ShutdownHub struct{}

func (EnsureSession) isHubMsg() {}
func (GetSession) isHubMsg()    {}
func (ListSessions) isHubMsg()  {}
func (RemoveSession) isHubMsg() {}
func (ShutdownHub) isHubMsg()   {}

type Hub struct {
	inbox    chan HubMsg
	sessions map[string]*session.Session
	factory  Factory
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewHub(parent context.Context, factory Factory, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		sessions: make(map[string]*session.Session),
		factory:  factory,
		log:      log.Named("hub"),
		ctx:      ctx,
		cancel:   cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) Done() <-chan struct{} { return h.ctx.Done() }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case EnsureSession:
				msg.Reply <- h.ensure(msg.Slug)

			case GetSession:
				msg.Reply <- h.live(msg.Slug) // May be nil

			case ListSessions:
				out := make([]string, 0, len(h.sessions))
				for slug := range h.sessions {
					if h.live(slug) != nil {
						out = append(out, slug)
					}
				}
				sort.Strings(out)
				msg.Reply <- out

			case RemoveSession:
				s := h.sessions[msg.Slug]
				if s != nil {
					stop(s)
					delete(h.sessions, msg.Slug)
					h.log.Info("session removed", zap.String("slug", msg.Slug), zap.String("session_id", s.ID()))
				}
				if msg.Reply != nil {
					msg.Reply <- s != nil
				}

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) ensure(slug string) EnsureResult {
	if err := ValidateSlug(slug); err != nil {
		return EnsureResult{Err: err}
	}
	if s := h.live(slug); s != nil {
		return EnsureResult{Session: s}
	}

	s, err := h.factory(h.ctx, slug)
	if err != nil {
		return EnsureResult{Err: fmt.Errorf("create session %q: %w", slug, err)}
	}
	select {
	case s.Inbox() <- session.Start{}:
	case <-s.Done():
		return EnsureResult{Err: fmt.Errorf("create session %q: %w", slug, session.ErrSessionClosed)}
	}
	h.sessions[slug] = s
	h.log.Info("session created", zap.String("slug", slug), zap.String("session_id", s.ID()))
	return EnsureResult{Session: s, Created: true}
}

// live returns the slug's session, forgetting it if it has shut down.
func (h *Hub) live(slug string) *session.Session {
	s := h.sessions[slug]
	if s == nil {
		return nil
	}
	select {
	case <-s.Done():
		delete(h.sessions, slug)
		return nil
	default:
		return s
	}
}

func (h *Hub) shutdown() {
	for slug, s := range h.sessions {
		stop(s)
		delete(h.sessions, slug)
	}
	h.cancel()
}

func stop(s *session.Session) {
	select {
	case s.Inbox() <- session.Shutdown{}:
	case <-s.Done():
	}
}

// ValidateSlug rejects slugs that cannot be placed in a URL path segment.
func ValidateSlug(slug string) error {
	if slug == "" || strings.ContainsAny(slug, "/?#% \t\r\n") {
		return fmt.Errorf("%w: %q", ErrInvalidSlug, slug)
	}
	return nil
}

func (h *Hub) send(ctx context.Context, m HubMsg) error {
	select {
	case h.inbox <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.ctx.Done():
		return ErrHubClosed
	}
}

func (h *Hub) Ensure(ctx context.Context, slug string) (*session.Session, error) {
	reply := make(chan EnsureResult, 1)
	if err := h.send(ctx, EnsureSession{Slug: slug, Reply: reply}); err != nil {
		return nil, err
	}
	select {
	case r := <-reply:
		return r.Session, r.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.ctx.Done():
		return nil, ErrHubClosed
	}
}

// Get returns the slug's running session or ErrUnknownSession.
func (h *Hub) Get(ctx context.Context, slug string) (*session.Session, error) {
	reply := make(chan *session.Session, 1)
	if err := h.send(ctx, GetSession{Slug: slug, Reply: reply}); err != nil {
		return nil, err
	}
	select {
	case s := <-reply:
		if s == nil {
			return nil, fmt.Errorf("%w: %q", ErrUnknownSession, slug)
		}
		return s, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.ctx.Done():
		return nil, ErrHubClosed
	}
}

// List returns the slugs with a running session, sorted.
func (h *Hub) List(ctx context.Context) ([]string, error) {
	reply := make(chan []string, 1)
	if err := h.send(ctx, ListSessions{Reply: reply}); err != nil {
		return nil, err
	}
	select {
	case out := <-reply:
		return out, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.ctx.Done():
		return nil, ErrHubClosed
	}
}

// Remove shuts down the slug's session so the next Ensure starts a fresh
// one. It returns ErrUnknownSession if there was none.
func (h *Hub) Remove(ctx context.Context, slug string) error {
	reply := make(chan bool, 1)
	if err := h.send(ctx, RemoveSession{Slug: slug, Reply: reply}); err != nil {
		return err
	}
	select {
	case ok := <-reply:
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownSession, slug)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.ctx.Done():
		return ErrHubClosed
	}
}

func (h *Hub) Shutdown(ctx context.Context) error {
	return h.send(ctx, ShutdownHub{})
}
