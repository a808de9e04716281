package journal

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseJournal(t *testing.T, j Journal) {
	t.Helper()
	ctx := context.Background()

	at := time.Date(2017, 4, 1, 9, 30, 0, 0, time.UTC)
	require.NoError(t, j.Append(ctx, Entry{SessionID: "s1", Slug: "spring", Seq: 2, Event: EventInbound, Payload: []byte(`{"update":"[]"}`), RecordedAt: at}))
	require.NoError(t, j.Append(ctx, Entry{SessionID: "s1", Slug: "spring", Seq: 1, Event: EventSnapshot, Payload: []byte(`[]`), RecordedAt: at}))
	require.NoError(t, j.Append(ctx, Entry{SessionID: "s2", Slug: "fall", Seq: 1, Event: EventEdit}))

	got, err := j.Entries(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, EventSnapshot, got[0].Event)
	assert.Equal(t, EventInbound, got[1].Event)
	assert.Equal(t, `{"update":"[]"}`, string(got[1].Payload))
	assert.True(t, at.Equal(got[1].RecordedAt))

	other, err := j.Entries(ctx, "s2")
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.False(t, other[0].RecordedAt.IsZero())
}

func TestSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "journal.db")
	j, err := OpenSQLite(path)
	require.NoError(t, err)
	defer func() { assert.NoError(t, j.Close()) }()

	assert.Equal(t, path, j.Path())
	exerciseJournal(t, j)
}

func TestSQLite_ReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, j.Append(context.Background(), Entry{SessionID: "s", Slug: "x", Seq: 1, Event: EventAlert, Payload: []byte("lost")}))
	require.NoError(t, j.Close())

	j2, err := Open(path)
	require.NoError(t, err)
	defer j2.Close()
	got, err := j2.Entries(context.Background(), "s")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "lost", string(got[0].Payload))
}

func TestOpen_EmptyIsNop(t *testing.T) {
	j, err := Open("  ")
	require.NoError(t, err)
	assert.IsType(t, Nop{}, j)
	assert.NoError(t, j.Append(context.Background(), Entry{}))
	got, err := j.Entries(context.Background(), "x")
	assert.NoError(t, err)
	assert.Empty(t, got)
}

func TestPostgres(t *testing.T) {
	dsn := os.Getenv("MATCHDESK_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("MATCHDESK_TEST_POSTGRES_DSN not set")
	}
	j, err := Open(dsn)
	require.NoError(t, err)
	defer j.Close()

	pg := j.(*Postgres)
	require.NoError(t, pg.db.Exec("DELETE FROM sync_journal WHERE session_id IN ('s1','s2')").Error)
	exerciseJournal(t, j)
}
