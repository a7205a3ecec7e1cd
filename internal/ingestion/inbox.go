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
package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"ipdossier/internal/investigation"

	"github.com/pterm/pterm"
)

const (
	processedDir = "processed"
	failedDir    = "failed"
)

// Ingester is the part of the store the inbox writes to.
type Ingester interface {
	RecordAssessment(ctx context.Context, ip string, sub investigation.Submission) (investigation.IPRecord, error)
}

// FileSubmission is the content of one inbox file: an assessment plus the
// address it is about.
type FileSubmission struct {
	IP string `json:"ip"`
	investigation.Submission
}

// Inbox ingests assessment files dropped into a directory. Each *.json file
// holds one FileSubmission or a list of them. Ingested files move to
// processed/, rejected ones to failed/.
type Inbox struct {
	dir          string
	store        Ingester
	logger       *pterm.Logger
	pollInterval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex // one file at a time

	totalProcessed atomic.Int64
	totalFailed    atomic.Int64
}

func NewInbox(dir string, store Ingester, logger *pterm.Logger) *Inbox {
	return &Inbox{
		dir:          dir,
		store:        store,
		logger:       logger,
		pollInterval: 30 * time.Second,
	}
}

// Start creates the inbox layout, ingests files already present and then
// follows the directory until Stop.
func (in *Inbox) Start(ctx context.Context) error {
	for _, sub := range []string{processedDir, failedDir} {
		if err := os.MkdirAll(filepath.Join(in.dir, sub), 0o755); err != nil {
			return fmt.Errorf("create inbox directory: %w", err)
		}
	}

	watcher, err := NewDirWatcher(in.dir, in.logger)
	if err != nil {
		return fmt.Errorf("watch inbox: %w", err)
	}

	in.ctx, in.cancel = context.WithCancel(ctx)
	in.Sweep(in.ctx)

	in.wg.Add(1)
	go in.processLoop(watcher)

	in.logger.Info("Started submission inbox", in.logger.Args("dir", in.dir))
	return nil
}

// Stop waits for the file in progress and stops watching.
func (in *Inbox) Stop() {
	if in.cancel == nil {
		return
	}
	in.cancel()
	in.wg.Wait()
	in.logger.Info("Stopped submission inbox",
		in.logger.Args("processed", in.totalProcessed.Load(), "failed", in.totalFailed.Load()))
}

func (in *Inbox) processLoop(watcher *DirWatcher) {
	defer in.wg.Done()
	defer watcher.Close()

	// Catches files whose events were dropped or that were still being written
	ticker := time.NewTicker(in.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-in.ctx.Done():
			return
		case path := <-watcher.Events():
			in.ProcessFile(in.ctx, path)
		case err := <-watcher.Errors():
			in.logger.Debug("Inbox watcher reported an error", in.logger.Args("error", err))
		case <-ticker.C:
			in.Sweep(in.ctx)
		}
	}
}

// Sweep ingests every submission file currently in the inbox, oldest name first.
func (in *Inbox) Sweep(ctx context.Context) {
	entries, err := os.ReadDir(in.dir)
	if err != nil {
		in.logger.WithCaller().Error("Failed to list inbox", in.logger.Args("dir", in.dir, "error", err))
		return
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() && isSubmissionFile(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		if ctx.Err() != nil {
			return
		}
		in.ProcessFile(ctx, filepath.Join(in.dir, name))
	}
}

// ProcessFile ingests one file and moves it out of the inbox. Empty files are
// left alone since they are usually still being written.
func (in *Inbox) ProcessFile(ctx context.Context, path string) {
	in.mu.Lock()
	defer in.mu.Unlock()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		// Already handled via another event
		return
	}
	if err != nil {
		in.logger.WithCaller().Error("Failed to read submission file", in.logger.Args("file", path, "error", err))
		return
	}
	if len(data) == 0 {
		return
	}

	submissions, err := decodeSubmissions(data)
	if err != nil {
		in.reject(path, err)
		return
	}

	// All or nothing: a rejected file must not leave earlier entries counted
	for i, sub := range submissions {
		if err := validateEntry(sub); err != nil {
			in.reject(path, fmt.Errorf("entry %d: %w", i, err))
			return
		}
	}

	ingested := 0
	for i, sub := range submissions {
		_, err := in.store.RecordAssessment(ctx, sub.IP, sub.Submission)
		switch {
		case err == nil:
			ingested++
		case errors.Is(err, investigation.ErrPersistenceUnavailable):
			// Kept in memory and flushed later; the file counts as ingested
			ingested++
			in.logger.Warn("Submission ingested but not yet persisted",
				in.logger.Args("file", path, "entry", i, "ip", sub.IP))
		default:
			in.reject(path, fmt.Errorf("entry %d: %w", i, err))
			if ingested > 0 {
				in.logger.Warn("Earlier entries of a rejected file were already ingested",
					in.logger.Args("file", path, "ingested", ingested))
			}
			return
		}
	}

	in.totalProcessed.Add(1)
	in.move(path, processedDir)
	in.logger.Debug("Ingested submission file", in.logger.Args("file", path, "assessments", ingested))
}

func validateEntry(sub FileSubmission) error {
	if _, err := investigation.NormalizeIP(sub.IP); err != nil {
		return err
	}
	return sub.Validate()
}

func decodeSubmissions(data []byte) ([]FileSubmission, error) {
	var list []FileSubmission
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}
	var single FileSubmission
	if err := json.Unmarshal(data, &single); err != nil {
		return nil, fmt.Errorf("%w: %v", investigation.ErrInvalidInput, err)
	}
	return []FileSubmission{single}, nil
}

func (in *Inbox) reject(path string, reason error) {
	in.totalFailed.Add(1)
	in.logger.Warn("Rejected submission file", in.logger.Args("file", path, "error", reason))
	in.move(path, failedDir)
}

func (in *Inbox) move(path, sub string) {
	target := filepath.Join(in.dir, sub, filepath.Base(path))
	if _, err := os.Stat(target); err == nil {
		ext := filepath.Ext(target)
		target = fmt.Sprintf("%s.%d%s", target[:len(target)-len(ext)], time.Now().UnixNano(), ext)
	}
	if err := os.Rename(path, target); err != nil {
		in.logger.WithCaller().Error("Failed to move submission file",
			in.logger.Args("file", path, "target", target, "error", err))
	}
}

// Stats reports how many files were ingested and rejected since start.
func (in *Inbox) Stats() (processed, failed int64) {
	return in.totalProcessed.Load(), in.totalFailed.Load()
}
