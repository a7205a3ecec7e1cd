package storage

import (
	"context"
	"path/filepath"
	"testing"

	"ipdossier/internal/investigation"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *pterm.Logger {
	return pterm.DefaultLogger.WithLevel(pterm.LogLevelError)
}

func openTestBolt(t *testing.T, path, namespace string) *BoltAdapter {
	t.Helper()
	a, err := OpenBolt(path, namespace, testLogger())
	require.NoError(t, err)
	return a
}

func TestBoltAdapter_CompareAndSwap(t *testing.T) {
	a := openTestBolt(t, filepath.Join(t.TempDir(), "store.db"), "")
	defer a.Close()
	ctx := context.Background()

	snap, err := a.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, snap.Body)
	assert.Zero(t, snap.Version)

	v, err := a.Save(ctx, []byte(`{"n":1}`), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	_, err = a.Save(ctx, []byte(`{"n":2}`), 0)
	assert.ErrorIs(t, err, investigation.ErrVersionConflict)

	v, err = a.Save(ctx, []byte(`{"n":3}`), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	snap, err = a.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"n":3}`, string(snap.Body))
	assert.Equal(t, int64(2), snap.Version)
}

func TestBoltAdapter_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "store.db")
	ctx := context.Background()

	a := openTestBolt(t, path, "soc")
	store, err := investigation.Open(ctx, a, testLogger())
	require.NoError(t, err)
	_, err = store.RecordLookup(ctx, "192.0.2.5", "alice", "SOCSI-9", "")
	require.NoError(t, err)
	require.NoError(t, store.Close(ctx))
	require.NoError(t, a.Close())

	b := openTestBolt(t, path, "soc")
	defer b.Close()
	reopened, err := investigation.Open(ctx, b, testLogger())
	require.NoError(t, err)
	rec, ok := reopened.Record("192.0.2.5")
	require.True(t, ok)
	assert.Equal(t, 1, rec.SearchCount)

	other := openTestBolt(t, filepath.Join(t.TempDir(), "other.db"), "elsewhere")
	defer other.Close()
	snap, err := other.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, snap.Body)
}

func TestBoltAdapter_CancelledContext(t *testing.T) {
	a := openTestBolt(t, filepath.Join(t.TempDir(), "store.db"), "")
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Save(ctx, []byte(`{}`), 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseVersion(t *testing.T) {
	v, err := parseVersion("")
	require.NoError(t, err)
	assert.Zero(t, v)

	v, err = parseVersion("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	_, err = parseVersion("x")
	assert.Error(t, err)
}

func TestNewRedisAdapter_RejectsBadURL(t *testing.T) {
	_, err := NewRedisAdapter(context.Background(), "http://not-redis", "", testLogger())
	assert.Error(t, err)
}
