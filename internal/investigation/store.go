// MIT License
//
// Copyright (c) 2026 Kolin
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.
//
package investigation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pterm/pterm"
)

// Snapshot is what an Adapter hands back: the raw document and the version
// it was stored under. A zero Snapshot means nothing has been stored yet.
type Snapshot struct {
	Body    []byte
	Version int64
}

// Adapter persists the whole document under a fixed namespace.
//
// Save must be atomic and must fail with ErrVersionConflict when the stored
// version differs from expectedVersion (0 meaning "nothing stored yet").
type Adapter interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, body []byte, expectedVersion int64) (int64, error)
}

// Enricher annotates a newly seen address with location and network data.
type Enricher interface {
	Lookup(ip string) (*GeoInfo, error)
}

// Recorder receives store events, typically for metrics.
type Recorder interface {
	AssessmentRecorded(client string, impact ClientImpact, score int)
	LookupRecorded()
	SaveFailed()
	VersionConflict()
	DocumentRecovered(reason string)
	TrackedIPs(n int)
}

type noopRecorder struct{}

func (noopRecorder) AssessmentRecorded(string, ClientImpact, int) {}
func (noopRecorder) LookupRecorded()                              {}
func (noopRecorder) SaveFailed()                                  {}
func (noopRecorder) VersionConflict()                             {}
func (noopRecorder) DocumentRecovered(string)                     {}
func (noopRecorder) TrackedIPs(int)                               {}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithRecorder(r Recorder) Option {
	return func(s *Store) {
		if r != nil {
			s.recorder = r
		}
	}
}

func WithEnricher(e Enricher) Option {
	return func(s *Store) { s.enricher = e }
}

// WithTrendRetention overrides the 90 day trend window.
func WithTrendRetention(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.retention = d
		}
	}
}

// WithSaveRetries sets how many times a write is replayed after a version conflict.
func WithSaveRetries(n int) Option {
	return func(s *Store) {
		if n >= 0 {
			s.saveRetries = n
		}
	}
}

// Store owns the in-memory document and serialises every change to it.
// Each mutating call is one read-modify-write of the full document.
type Store struct {
	adapter  Adapter
	logger   *pterm.Logger
	recorder Recorder
	enricher Enricher

	now         func() time.Time
	retention   time.Duration
	saveRetries int

	mu       sync.RWMutex
	doc      *Document
	version  int64
	dirty    bool
	recovery error
}

// Open loads the document through adapter, migrating it if needed. A missing
// document is initialised and written once. An unreadable or corrupt
// document is replaced by an empty one; the reason is logged and kept in
// Recovery().
func Open(ctx context.Context, adapter Adapter, logger *pterm.Logger, opts ...Option) (*Store, error) {
	if adapter == nil {
		return nil, fmt.Errorf("%w: adapter is required", ErrInvalidInput)
	}
	if logger == nil {
		return nil, fmt.Errorf("%w: logger is required", ErrInvalidInput)
	}

	s := &Store{
		adapter:     adapter,
		logger:      logger,
		recorder:    noopRecorder{},
		now:         time.Now,
		retention:   DefaultTrendRetention,
		saveRetries: 3,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fresh := s.reloadLocked(ctx)
	if (fresh && s.recovery == nil) || s.dirty {
		if fresh {
			s.logger.Info("Initializing empty investigation document")
		} else {
			s.logger.Info("Persisting migrated investigation document")
		}
		if err := s.persistLocked(ctx); err != nil {
			if errors.Is(err, ErrVersionConflict) {
				// Someone else initialised it between our load and save.
				s.reloadLocked(ctx)
			} else {
				s.dirty = true
				s.logger.Warn("Failed to write initial document, will retry on next change",
					s.logger.Args("error", err))
			}
		}
	}

	s.recorder.TrackedIPs(len(s.doc.IPHistory))
	s.logger.Info("Investigation store ready",
		s.logger.Args("ips", len(s.doc.IPHistory), "version", s.version, "schema", s.doc.SchemaVersion))
	return s, nil
}

// reloadLocked replaces the in-memory document with the stored one. It
// returns true when nothing usable was loaded and an empty document is in use.
func (s *Store) reloadLocked(ctx context.Context) bool {
	if s.dirty {
		s.logger.Warn("Discarding unsaved changes while reloading document")
		s.dirty = false
	}

	snap, err := s.adapter.Load(ctx)
	if err != nil {
		s.fallbackLocked(fmt.Errorf("%w: %v", ErrPersistenceUnavailable, err), 0)
		return true
	}
	s.version = snap.Version
	if len(snap.Body) == 0 {
		s.doc = NewDocument()
		s.recovery = nil
		return true
	}

	doc, migrated, err := decodeDocument(snap.Body, s.now().UTC())
	if err != nil {
		s.fallbackLocked(err, snap.Version)
		return true
	}
	s.doc = doc
	s.recovery = nil
	if migrated {
		s.logger.Info("Migrated investigation document",
			s.logger.Args("to_schema", CurrentSchemaVersion, "ips", len(doc.IPHistory)))
		s.dirty = true
	}
	return false
}

// fallbackLocked switches to an empty document. The prior stored document
// is overwritten by the next successful save.
func (s *Store) fallbackLocked(reason error, version int64) {
	s.doc = NewDocument()
	s.version = version
	s.recovery = reason

	kind := "persistence_unavailable"
	if errors.Is(reason, ErrCorruptDocument) {
		kind = "corrupt_document"
	}
	s.recorder.DocumentRecovered(kind)
	s.logger.WithCaller().Warn("Investigation document unusable, continuing with an empty document",
		s.logger.Args("reason", kind, "error", reason))
}

func (s *Store) persistLocked(ctx context.Context) error {
	body, err := json.Marshal(s.doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	version, err := s.adapter.Save(ctx, body, s.version)
	if err != nil {
		if errors.Is(err, ErrVersionConflict) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrPersistenceUnavailable, err)
	}

	s.version = version
	s.dirty = false
	s.logger.Trace("Document saved", s.logger.Args("version", version, "bytes", len(body)))
	return nil
}

// update runs one transaction. fn must validate before mutating: an error
// from fn is returned as is. On a version conflict the document is reloaded
// and fn replayed with the same timestamp. When the adapter fails the change
// stays in memory, the store is marked dirty and ErrPersistenceUnavailable
// is returned.
func (s *Store) update(ctx context.Context, fn func(doc *Document, now time.Time) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	for attempt := 0; ; attempt++ {
		if err := fn(s.doc, now); err != nil {
			return err
		}

		err := s.persistLocked(ctx)
		if err == nil {
			s.recorder.TrackedIPs(len(s.doc.IPHistory))
			return nil
		}

		if errors.Is(err, ErrVersionConflict) && attempt < s.saveRetries {
			s.recorder.VersionConflict()
			s.logger.Debug("Document changed underneath, replaying",
				s.logger.Args("attempt", attempt+1, "version", s.version))
			s.reloadLocked(ctx)
			continue
		}

		s.dirty = true
		s.recorder.SaveFailed()
		s.logger.WithCaller().Warn("Failed to persist document, change kept in memory",
			s.logger.Args("error", err, "attempt", attempt+1))
		if errors.Is(err, ErrPersistenceUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrPersistenceUnavailable, err)
	}
}

// Flush writes the in-memory document if an earlier save failed. If the
// stored document moved on in the meantime the pending changes are dropped
// in favour of it.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return nil
	}
	if err := s.persistLocked(ctx); err != nil {
		s.recorder.SaveFailed()
		if errors.Is(err, ErrVersionConflict) {
			// Another writer got there first; adopt its document.
			s.recorder.VersionConflict()
			s.reloadLocked(ctx)
			return fmt.Errorf("%w: %v", ErrPersistenceUnavailable, err)
		}
		s.logger.WithCaller().Error("Failed to flush document", s.logger.Args("error", err))
		return err
	}
	s.logger.Debug("Flushed pending document changes", s.logger.Args("version", s.version))
	return nil
}

// Close flushes pending changes.
func (s *Store) Close(ctx context.Context) error {
	return s.Flush(ctx)
}

// Dirty reports whether the in-memory document has unsaved changes.
func (s *Store) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// Recovery returns why the last load fell back to an empty document, or nil.
func (s *Store) Recovery() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recovery
}

// Version is the adapter version of the last load or save.
func (s *Store) Version() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Len is the number of tracked IPs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.doc.IPHistory)
}

// Export returns the document as it would be persisted.
func (s *Store) Export() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return json.Marshal(s.doc)
}
