package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/tmdb-matchdesk/internal/filter"
	"github.com/DoyleJ11/tmdb-matchdesk/internal/hub"
	"github.com/DoyleJ11/tmdb-matchdesk/internal/session"
	"github.com/DoyleJ11/tmdb-matchdesk/internal/status"
)

const maxBody = 1 << 16

var errBadPK = errors.New("match pk must be an integer")

type API struct {
	hub *hub.Hub
	log *zap.Logger
}

type sessionResponse struct {
	Slug      string        `json:"slug"`
	SessionID string        `json:"session_id"`
	State     session.State `json:"state"`
}

type filterRequest struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

type reportRequest struct {
	Level string `json:"level"`
}

type ringRequest struct {
	RingNumber *int64 `json:"ring_number"`
}

type winnerRequest struct {
	WinningTeam *int64 `json:"winning_team"`
}

type patchRequest struct {
	Fields map[string]any `json:"fields"`
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// StartSession creates and starts the tournament's session, or returns the
// running one.
func (a *API) StartSession(w http.ResponseWriter, r *http.Request) {
	s, err := a.hub.Ensure(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	v, err := s.View(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Slug: v.Slug, SessionID: v.SessionID, State: v.State})
}

// StopSession shuts the tournament's session down. A following POST to the
// session route starts a fresh one with a new snapshot and channel.
func (a *API) StopSession(w http.ResponseWriter, r *http.Request) {
	if err := a.hub.Remove(r.Context(), chi.URLParam(r, "slug")); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) Tournaments(w http.ResponseWriter, r *http.Request) {
	slugs, err := a.hub.List(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Tournaments []string `json:"tournaments"`
	}{slugs})
}

func (a *API) Matches(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	v, err := s.View(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (a *API) SetFilter(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	var req filterRequest
	if !decode(w, r, &req) {
		return
	}
	kind, err := filter.ParseKind(req.Kind)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := s.SetFilter(r.Context(), kind, req.Value); err != nil {
		a.fail(w, r, err)
		return
	}
	v, err := s.View(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (a *API) FilterOptions(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	kind, err := filter.ParseKind(r.URL.Query().Get("kind"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	opts, err := s.Options(r.Context(), kind)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if opts == nil {
		opts = []string{}
	}
	writeJSON(w, http.StatusOK, struct {
		Kind    filter.Kind `json:"kind"`
		Options []string    `json:"options"`
	}{kind, opts})
}

func (a *API) Report(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if !decode(w, r, &req) {
		return
	}
	level, err := status.ParseLevel(req.Level)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.edit(w, r, session.ReportStatus{Level: level})
}

func (a *API) Ring(w http.ResponseWriter, r *http.Request) {
	var req ringRequest
	if !decode(w, r, &req) {
		return
	}
	a.edit(w, r, session.AssignRing{Ring: req.RingNumber})
}

func (a *API) Winner(w http.ResponseWriter, r *http.Request) {
	var req winnerRequest
	if !decode(w, r, &req) {
		return
	}
	a.edit(w, r, session.SetWinner{Team: req.WinningTeam})
}

// Patch sends fields to the server as given, for tooling that needs a field
// the desk has no control for.
func (a *API) Patch(w http.ResponseWriter, r *http.Request) {
	var req patchRequest
	if !decode(w, r, &req) {
		return
	}
	a.edit(w, r, session.RawFields{Fields: req.Fields})
}

func (a *API) Alerts(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	alerts, err := s.Alerts(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, alerts)
}

// edit sends c for the match in the path. 202 means it was sent; the change
// shows up once the server echoes it.
func (a *API) edit(w http.ResponseWriter, r *http.Request, c session.Change) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	pk, err := strconv.ParseInt(chi.URLParam(r, "pk"), 10, 64)
	if err != nil {
		a.fail(w, r, fmt.Errorf("%w: %q", errBadPK, chi.URLParam(r, "pk")))
		return
	}
	if err := s.Edit(r.Context(), pk, c); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (a *API) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := a.hub.Get(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		a.fail(w, r, err)
		return nil, false
	}
	return s, true
}

func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		a.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeJSON(w, code, struct {
		Error string `json:"error"`
	}{err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrChannelClosed):
		return http.StatusConflict
	case errors.Is(err, hub.ErrUnknownSession),
		errors.Is(err, session.ErrSessionClosed),
		errors.Is(err, session.ErrUnknownMatch):
		return http.StatusNotFound
	case errors.Is(err, session.ErrInvalidWinner),
		errors.Is(err, session.ErrInvalidRing),
		errors.Is(err, session.ErrEmptyChange),
		errors.Is(err, status.ErrUnknownLevel),
		errors.Is(err, filter.ErrUnknownKind),
		errors.Is(err, hub.ErrInvalidSlug),
		errors.Is(err, errBadPK):
		return http.StatusBadRequest
	case errors.Is(err, hub.ErrHubClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, struct {
			Error string `json:"error"`
		}{"bad json: " + err.Error()})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
