package ingestion

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"ipdossier/internal/investigation"
	"ipdossier/internal/storage"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIngester struct {
	mu    sync.Mutex
	calls []FileSubmission
	err   error
}

func (f *fakeIngester) RecordAssessment(_ context.Context, ip string, sub investigation.Submission) (investigation.IPRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ip == "" {
		return investigation.IPRecord{}, fmt.Errorf("%w: ip is required", investigation.ErrInvalidInput)
	}
	f.calls = append(f.calls, FileSubmission{IP: ip, Submission: sub})
	return investigation.IPRecord{IP: ip}, f.err
}

func (f *fakeIngester) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestInbox(t *testing.T, store Ingester) (*Inbox, string) {
	t.Helper()
	dir := t.TempDir()
	for _, sub := range []string{processedDir, failedDir} {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, sub), 0o755))
	}
	return NewInbox(dir, store, pterm.DefaultLogger.WithLevel(pterm.LogLevelError)), dir
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestInbox_ProcessFile_SingleSubmission(t *testing.T) {
	store := &fakeIngester{}
	in, dir := newTestInbox(t, store)

	path := writeFile(t, dir, "a.json", `{"ip":"192.0.2.1","analyst":"alice","calculatedScore":55,"behaviors":["Port_Scan"]}`)
	in.ProcessFile(context.Background(), path)

	require.Equal(t, 1, store.count())
	assert.Equal(t, "192.0.2.1", store.calls[0].IP)
	assert.Equal(t, "alice", store.calls[0].Analyst)
	require.NotNil(t, store.calls[0].CalculatedScore)
	assert.Equal(t, 55, *store.calls[0].CalculatedScore)

	assert.NoFileExists(t, path)
	assert.FileExists(t, filepath.Join(dir, processedDir, "a.json"))
	processed, failed := in.Stats()
	assert.Equal(t, int64(1), processed)
	assert.Zero(t, failed)
}

func TestInbox_ProcessFile_List(t *testing.T) {
	store := &fakeIngester{}
	in, dir := newTestInbox(t, store)

	path := writeFile(t, dir, "batch.json", `[
		{"ip":"192.0.2.1","analyst":"alice"},
		{"ip":"192.0.2.2","analyst":"bob"}
	]`)
	in.ProcessFile(context.Background(), path)

	assert.Equal(t, 2, store.count())
	assert.FileExists(t, filepath.Join(dir, processedDir, "batch.json"))
}

func TestInbox_ProcessFile_RejectsInvalid(t *testing.T) {
	store := &fakeIngester{}
	in, dir := newTestInbox(t, store)

	garbage := writeFile(t, dir, "garbage.json", `{not json`)
	missingIP := writeFile(t, dir, "noip.json", `{"analyst":"alice"}`)

	in.ProcessFile(context.Background(), garbage)
	in.ProcessFile(context.Background(), missingIP)

	assert.Zero(t, store.count())
	assert.FileExists(t, filepath.Join(dir, failedDir, "garbage.json"))
	assert.FileExists(t, filepath.Join(dir, failedDir, "noip.json"))
	_, failed := in.Stats()
	assert.Equal(t, int64(2), failed)
}

func TestInbox_ProcessFile_RejectsWholeFileBeforeIngesting(t *testing.T) {
	store := &fakeIngester{}
	in, dir := newTestInbox(t, store)

	path := writeFile(t, dir, "batch.json", `[
		{"ip":"192.0.2.1","analyst":"alice"},
		{"ip":"192.0.2.2","analyst":"bob","clientImpact":"Huge"},
		{"ip":"192.0.2.3","analyst":"carol"}
	]`)
	in.ProcessFile(context.Background(), path)

	assert.Zero(t, store.count())
	assert.FileExists(t, filepath.Join(dir, failedDir, "batch.json"))
}

func TestInbox_RedroppedFileCountsOnce(t *testing.T) {
	logger := pterm.DefaultLogger.WithLevel(pterm.LogLevelError)
	adapter, err := storage.OpenBolt(filepath.Join(t.TempDir(), "inbox.db"), "inbox_test", logger)
	require.NoError(t, err)
	defer adapter.Close()
	store, err := investigation.Open(context.Background(), adapter, logger)
	require.NoError(t, err)

	in, dir := newTestInbox(t, store)
	const entry = `{"ip":"192.0.2.9","analyst":"alice","client":"HANZA","clientImpact":"%s","behaviors":["Port_Scan"],"calculatedScore":40}`

	bad := writeFile(t, dir, "batch.json", "["+fmt.Sprintf(entry, "High")+","+fmt.Sprintf(entry, "Huge")+"]")
	in.ProcessFile(context.Background(), bad)
	assert.FileExists(t, filepath.Join(dir, failedDir, "batch.json"))
	assert.Empty(t, store.BehaviorStats())
	assert.Zero(t, store.Len())

	fixed := writeFile(t, dir, "batch.json", "["+fmt.Sprintf(entry, "High")+","+fmt.Sprintf(entry, "Critical")+"]")
	in.ProcessFile(context.Background(), fixed)
	assert.FileExists(t, filepath.Join(dir, processedDir, "batch.json"))

	assert.Equal(t, 2, store.BehaviorStats()["Port_Scan"].Occurrences)
	assert.Equal(t, 2, store.ClientStats()["HANZA"].TotalAssessments)
	rec, ok := store.Record("192.0.2.9")
	require.True(t, ok)
	assert.Len(t, rec.RiskAssessments, 2)
}

func TestInbox_ProcessFile_PersistenceFailureStillIngests(t *testing.T) {
	store := &fakeIngester{err: investigation.ErrPersistenceUnavailable}
	in, dir := newTestInbox(t, store)

	path := writeFile(t, dir, "a.json", `{"ip":"192.0.2.1","analyst":"alice"}`)
	in.ProcessFile(context.Background(), path)

	assert.FileExists(t, filepath.Join(dir, processedDir, "a.json"))
}

func TestInbox_ProcessFile_LeavesEmptyAndMissingFiles(t *testing.T) {
	store := &fakeIngester{}
	in, dir := newTestInbox(t, store)

	empty := writeFile(t, dir, "partial.json", "")
	in.ProcessFile(context.Background(), empty)
	in.ProcessFile(context.Background(), filepath.Join(dir, "gone.json"))

	assert.FileExists(t, empty)
	processed, failed := in.Stats()
	assert.Zero(t, processed)
	assert.Zero(t, failed)
}

func TestInbox_ProcessFile_DoesNotOverwriteEarlierFile(t *testing.T) {
	store := &fakeIngester{}
	in, dir := newTestInbox(t, store)

	in.ProcessFile(context.Background(), writeFile(t, dir, "a.json", `{"ip":"192.0.2.1","analyst":"a"}`))
	in.ProcessFile(context.Background(), writeFile(t, dir, "a.json", `{"ip":"192.0.2.2","analyst":"b"}`))

	entries, err := os.ReadDir(filepath.Join(dir, processedDir))
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestInbox_SweepSkipsHiddenAndOtherFiles(t *testing.T) {
	store := &fakeIngester{}
	in, dir := newTestInbox(t, store)

	writeFile(t, dir, "b.json", `{"ip":"192.0.2.2","analyst":"alice"}`)
	writeFile(t, dir, "a.JSON", `{"ip":"192.0.2.1","analyst":"alice"}`)
	writeFile(t, dir, ".staging.json", `{"ip":"192.0.2.3","analyst":"alice"}`)
	writeFile(t, dir, "notes.txt", `hello`)

	in.Sweep(context.Background())

	require.Equal(t, 2, store.count())
	assert.Equal(t, "192.0.2.1", store.calls[0].IP, "sorted by name")
	assert.FileExists(t, filepath.Join(dir, ".staging.json"))
	assert.FileExists(t, filepath.Join(dir, "notes.txt"))
}

func TestInbox_StartPicksUpNewFiles(t *testing.T) {
	store := &fakeIngester{}
	dir := t.TempDir()
	in := NewInbox(dir, store, pterm.DefaultLogger.WithLevel(pterm.LogLevelError))
	in.pollInterval = 50 * time.Millisecond

	writeFile(t, dir, "existing.json", `{"ip":"192.0.2.1","analyst":"alice"}`)

	require.NoError(t, in.Start(context.Background()))
	defer in.Stop()

	assert.Equal(t, 1, store.count(), "existing files are ingested on start")

	staged := filepath.Join(dir, ".new.json")
	require.NoError(t, os.WriteFile(staged, []byte(`{"ip":"192.0.2.2","analyst":"bob"}`), 0o644))
	require.NoError(t, os.Rename(staged, filepath.Join(dir, "new.json")))

	require.Eventually(t, func() bool { return store.count() == 2 }, 5*time.Second, 20*time.Millisecond)
}
