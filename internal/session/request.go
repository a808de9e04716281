package session

import (
	"context"

	"github.com/DoyleJ11/tmdb-matchdesk/internal/filter"
)

// send posts m unless ctx ends or the session is gone first.
func (s *Session) send(ctx context.Context, m Msg) error {
	select {
	case s.inbox <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return ErrSessionClosed
	}
}

func await[T any](ctx context.Context, s *Session, reply <-chan T) (T, error) {
	var zero T
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-s.ctx.Done():
		return zero, ErrSessionClosed
	}
}

func (s *Session) Start(ctx context.Context) error {
	return s.send(ctx, Start{})
}

func (s *Session) Shutdown(ctx context.Context) error {
	return s.send(ctx, Shutdown{})
}

func (s *Session) View(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	if err := s.send(ctx, GetView{Reply: reply}); err != nil {
		return View{}, err
	}
	return await(ctx, s, reply)
}

// Edit sends a change for match pk. A nil error means the change was written
// to the push channel; the replica only reflects it once the server echoes it.
func (s *Session) Edit(ctx context.Context, pk int64, c Change) error {
	reply := make(chan error, 1)
	if err := s.send(ctx, Edit{MatchPK: pk, Change: c, Reply: reply}); err != nil {
		return err
	}
	err, waitErr := await(ctx, s, reply)
	if waitErr != nil {
		return waitErr
	}
	return err
}

func (s *Session) SetFilter(ctx context.Context, kind filter.Kind, value string) error {
	reply := make(chan error, 1)
	if err := s.send(ctx, SetFilter{Kind: kind, Value: value, Reply: reply}); err != nil {
		return err
	}
	err, waitErr := await(ctx, s, reply)
	if waitErr != nil {
		return waitErr
	}
	return err
}

func (s *Session) Options(ctx context.Context, kind filter.Kind) ([]string, error) {
	reply := make(chan []string, 1)
	if err := s.send(ctx, GetOptions{Kind: kind, Reply: reply}); err != nil {
		return nil, err
	}
	return await(ctx, s, reply)
}

func (s *Session) Alerts(ctx context.Context) ([]Alert, error) {
	reply := make(chan []Alert, 1)
	if err := s.send(ctx, GetAlerts{Reply: reply}); err != nil {
		return nil, err
	}
	return await(ctx, s, reply)
}

// Join subscribes outbox to rendered views. The session closes outbox on
// Leave, on shutdown, or when the subscriber falls behind.
func (s *Session) Join(ctx context.Context, clientID string, outbox chan View) error {
	return s.send(ctx, Join{ClientID: clientID, Outbox: outbox})
}

func (s *Session) Leave(ctx context.Context, clientID string) error {
	return s.send(ctx, Leave{ClientID: clientID})
}
