package investigation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/require"
)

const day = 24 * time.Hour

// memAdapter is an in-memory Adapter with switchable failures.
type memAdapter struct {
	mu      sync.Mutex
	body    []byte
	version int64
	loadErr error
	saveErr error
	saves   int
}

func (m *memAdapter) Load(_ context.Context) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return Snapshot{}, m.loadErr
	}
	return Snapshot{Body: append([]byte(nil), m.body...), Version: m.version}, nil
}

func (m *memAdapter) Save(_ context.Context, body []byte, expected int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return 0, m.saveErr
	}
	if expected != m.version {
		return 0, ErrVersionConflict
	}
	m.body = append([]byte(nil), body...)
	m.version++
	m.saves++
	return m.version, nil
}

func (m *memAdapter) setSaveErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveErr = err
}

func (m *memAdapter) snapshot() ([]byte, int64, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.body...), m.version, m.saves
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 5, 10, 9, 30, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func testLogger() *pterm.Logger {
	return pterm.DefaultLogger.WithLevel(pterm.LogLevelError)
}

func openTestStore(t *testing.T, adapter Adapter, clock *testClock, opts ...Option) *Store {
	t.Helper()
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	s, err := Open(context.Background(), adapter, testLogger(), opts...)
	require.NoError(t, err)
	return s
}

func score(v int) *int { return &v }

func submission(analyst string, s int, behaviors ...string) Submission {
	return Submission{
		Analyst:         analyst,
		CalculatedScore: score(s),
		Behaviors:       behaviors,
	}
}

var errBackendDown = errors.New("backend down")
