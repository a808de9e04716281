package hub

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/tmdb-matchdesk/internal/session"
	"github.com/DoyleJ11/tmdb-matchdesk/internal/session/sessiontest"
)

func countingFactory(n *atomic.Int32) Factory {
	return func(ctx context.Context, slug string) (*session.Session, error) {
		n.Add(1)
		return session.New(ctx, session.Config{
			Slug:       slug,
			ChannelURL: "ws://tmdb.test/" + slug,
			Dialer:     sessiontest.ParkedDialer{},
			Fetcher:    &sessiontest.Fetcher{},
		}), nil
	}
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for shutdown")
	}
}

func TestHub_Ensure_Get_SamePointer(t *testing.T) {
	var made atomic.Int32
	ctx := context.Background()
	h := NewHub(ctx, countingFactory(&made), nil)
	t.Cleanup(func() { _ = h.Shutdown(ctx) })

	s1, err := h.Ensure(ctx, "spring-open")
	require.NoError(t, err)
	s2, err := h.Ensure(ctx, "spring-open")
	require.NoError(t, err)
	s3, err := h.Get(ctx, "spring-open")
	require.NoError(t, err)

	assert.Same(t, s1, s2)
	assert.Same(t, s1, s3)
	assert.Equal(t, int32(1), made.Load())

	v, err := s1.View(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.StateConnecting, v.State, "ensure starts the session")
}

func TestHub_Get_Unknown(t *testing.T) {
	var made atomic.Int32
	ctx := context.Background()
	h := NewHub(ctx, countingFactory(&made), nil)
	t.Cleanup(func() { _ = h.Shutdown(ctx) })

	_, err := h.Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrUnknownSession)
	assert.Zero(t, made.Load())
}

func TestHub_Ensure_Rejects(t *testing.T) {
	ctx := context.Background()

	t.Run("bad slug", func(t *testing.T) {
		var made atomic.Int32
		h := NewHub(ctx, countingFactory(&made), nil)
		t.Cleanup(func() { _ = h.Shutdown(ctx) })

		for _, slug := range []string{"", "a/b", "with space"} {
			_, err := h.Ensure(ctx, slug)
			assert.ErrorIs(t, err, ErrInvalidSlug, slug)
		}
		assert.Zero(t, made.Load())
	})

	t.Run("factory error", func(t *testing.T) {
		boom := errors.New("boom")
		h := NewHub(ctx, func(context.Context, string) (*session.Session, error) { return nil, boom }, nil)
		t.Cleanup(func() { _ = h.Shutdown(ctx) })

		_, err := h.Ensure(ctx, "spring-open")
		assert.ErrorIs(t, err, boom)
		_, err = h.Get(ctx, "spring-open")
		assert.ErrorIs(t, err, ErrUnknownSession)
	})
}

func TestHub_Remove_StopsSession(t *testing.T) {
	var made atomic.Int32
	ctx := context.Background()
	h := NewHub(ctx, countingFactory(&made), nil)
	t.Cleanup(func() { _ = h.Shutdown(ctx) })

	s, err := h.Ensure(ctx, "spring-open")
	require.NoError(t, err)
	require.NoError(t, h.Remove(ctx, "spring-open"))
	waitDone(t, s.Done())

	_, err = h.Get(ctx, "spring-open")
	assert.ErrorIs(t, err, ErrUnknownSession)

	s2, err := h.Ensure(ctx, "spring-open")
	require.NoError(t, err)
	assert.NotSame(t, s, s2)
	assert.NotEqual(t, s.ID(), s2.ID())
	assert.Equal(t, int32(2), made.Load())
}

func TestHub_Remove_Unknown(t *testing.T) {
	var made atomic.Int32
	ctx := context.Background()
	h := NewHub(ctx, countingFactory(&made), nil)
	t.Cleanup(func() { _ = h.Shutdown(ctx) })

	assert.ErrorIs(t, h.Remove(ctx, "spring-open"), ErrUnknownSession)

	_, err := h.Ensure(ctx, "spring-open")
	require.NoError(t, err)
	require.NoError(t, h.Remove(ctx, "spring-open"))
	assert.ErrorIs(t, h.Remove(ctx, "spring-open"), ErrUnknownSession)
}

func TestHub_List(t *testing.T) {
	var made atomic.Int32
	ctx := context.Background()
	h := NewHub(ctx, countingFactory(&made), nil)
	t.Cleanup(func() { _ = h.Shutdown(ctx) })

	got, err := h.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	for _, slug := range []string{"spring-open", "fall-classic", "winter-invite"} {
		_, err := h.Ensure(ctx, slug)
		require.NoError(t, err)
	}
	dead, err := h.Get(ctx, "winter-invite")
	require.NoError(t, err)
	require.NoError(t, dead.Shutdown(ctx))
	waitDone(t, dead.Done())

	got, err = h.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"fall-classic", "spring-open"}, got)
}

func TestHub_DeadSessionReplaced(t *testing.T) {
	var made atomic.Int32
	ctx := context.Background()
	h := NewHub(ctx, countingFactory(&made), nil)
	t.Cleanup(func() { _ = h.Shutdown(ctx) })

	s, err := h.Ensure(ctx, "spring-open")
	require.NoError(t, err)
	require.NoError(t, s.Shutdown(ctx))
	waitDone(t, s.Done())

	s2, err := h.Ensure(ctx, "spring-open")
	require.NoError(t, err)
	assert.NotSame(t, s, s2)
}

func TestHub_Shutdown_StopsAll(t *testing.T) {
	var made atomic.Int32
	ctx := context.Background()
	h := NewHub(ctx, countingFactory(&made), nil)

	a, err := h.Ensure(ctx, "spring-open")
	require.NoError(t, err)
	b, err := h.Ensure(ctx, "fall-classic")
	require.NoError(t, err)

	require.NoError(t, h.Shutdown(ctx))
	waitDone(t, h.Done())
	waitDone(t, a.Done())
	waitDone(t, b.Done())

	_, err = h.Ensure(ctx, "spring-open")
	assert.ErrorIs(t, err, ErrHubClosed)
}
