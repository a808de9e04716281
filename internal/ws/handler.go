// Package ws streams a session's rendered view to browser displays.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/DoyleJ11/tmdb-matchdesk/internal/filter"
	"github.com/DoyleJ11/tmdb-matchdesk/internal/hub"
	"github.com/DoyleJ11/tmdb-matchdesk/internal/session"
)

const (
	writeTimeout = 3 * time.Second
	idleTimeout  = 60 * time.Second
)

// ServerMessage is what a display receives: a View after every render, or
// an Error for a bad request from that display.
type ServerMessage struct {
	Type  string        `json:"type"`
	View  *session.View `json:"view,omitempty"`
	Error string        `json:"error,omitempty"`
}

// ClientMessage is what a display may send. Only SetFilter is understood.
type ClientMessage struct {
	Type  string `json:"type"`
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

// Handler serves GET /tournaments/{slug}/ws. The session must already exist.
func Handler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("ws")

	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")
		s, err := h.Get(r.Context(), slug)
		if err != nil {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			log.Debug("accept failed", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan session.View, 8)
		clientID := ulid.Make().String()
		if err := s.Join(r.Context(), clientID, out); err != nil {
			_ = conn.Close(websocket.StatusGoingAway, "session closed")
			return
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = s.Leave(ctx, clientID)
		}()
		log.Debug("display joined", zap.String("slug", slug), zap.String("client", clientID))

		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			if err := pump(writeCtx, conn, out, s.Done()); err != nil {
				log.Debug("write failed", zap.String("client", clientID), zap.Error(err))
				writeCancel()
				return
			}
			_ = conn.Close(websocket.StatusGoingAway, "session closed")
		}()

		// Reader loop
		for {
			ctx, cancel := context.WithTimeout(writeCtx, idleTimeout)
			_, data, err := conn.Read(ctx)
			cancel()
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					if !errors.Is(err, context.Canceled) {
						log.Debug("read failed", zap.String("client", clientID), zap.Error(err))
					}
				}
				return
			}

			var cm ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				_ = write(writeCtx, conn, ServerMessage{Type: "Error", Error: "bad json"})
				continue
			}
			if err := handleClient(writeCtx, s, cm); err != nil {
				_ = write(writeCtx, conn, ServerMessage{Type: "Error", Error: err.Error()})
			}
		}
	}
}

// pump writes views from out until out is closed or done fires. The session
// may shut down with a Join still queued, in which case out is never closed.
func pump(ctx context.Context, conn *websocket.Conn, out <-chan session.View, done <-chan struct{}) error {
	for {
		select {
		case v, ok := <-out:
			if !ok {
				// Dropped for falling behind, or the session shut down.
				return nil
			}
			if err := write(ctx, conn, ServerMessage{Type: "View", View: &v}); err != nil {
				return err
			}
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

var errUnknownType = errors.New("unknown type")

func handleClient(ctx context.Context, s *session.Session, cm ClientMessage) error {
	switch cm.Type {
	case "SetFilter":
		kind, err := filter.ParseKind(cm.Kind)
		if err != nil {
			return err
		}
		return s.SetFilter(ctx, kind, cm.Value)
	default:
		return errUnknownType
	}
}

func write(ctx context.Context, conn *websocket.Conn, m ServerMessage) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, payload)
}
