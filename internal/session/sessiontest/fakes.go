// Package sessiontest provides in-memory push channels and snapshot sources
// for tests that run real sessions.
package sessiontest

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/DoyleJ11/tmdb-matchdesk/internal/channel"
	"github.com/DoyleJ11/tmdb-matchdesk/internal/store"
)

// Conn is a push channel driven by the test. Messages sent on In are read
// by the session; closing In closes the channel from the server side.
// Everything the session writes lands on Writes.
type Conn struct {
	In       chan []byte
	Writes   chan []byte
	WriteErr error

	closed chan struct{}
	once   sync.Once
}

func NewConn() *Conn {
	return &Conn{
		In:     make(chan []byte, 16),
		Writes: make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (c *Conn) Read(ctx context.Context) ([]byte, error) {
	select {
	case b, ok := <-c.In:
		if !ok {
			return nil, channel.ErrClosed
		}
		return b, nil
	case <-c.closed:
		return nil, channel.ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Conn) Write(_ context.Context, data []byte) error {
	if c.WriteErr != nil {
		return c.WriteErr
	}
	c.Writes <- append([]byte(nil), data...)
	return nil
}

func (c *Conn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *Conn) Closed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// Dialer hands out Conn, or fails with Err.
type Dialer struct {
	Conn *Conn
	Err  error

	dials atomic.Int32
}

func (d *Dialer) Dial(context.Context, string) (channel.Conn, error) {
	d.dials.Add(1)
	if d.Err != nil {
		return nil, d.Err
	}
	return d.Conn, nil
}

func (d *Dialer) Dials() int { return int(d.dials.Load()) }

// ParkedDialer blocks until the session goes away.
type ParkedDialer struct{}

func (ParkedDialer) Dial(ctx context.Context, _ string) (channel.Conn, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// Fetcher returns Records and Err, waiting for Release to close first when
// it is set.
type Fetcher struct {
	Release chan struct{}
	Records []store.Record
	Err     error
}

func (f *Fetcher) Fetch(ctx context.Context, _ string) ([]store.Record, error) {
	if f.Release != nil {
		select {
		case <-f.Release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.Records, f.Err
}
