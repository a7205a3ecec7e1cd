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
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pterm/pterm"
)

// DirWatcher reports submission files created or written in a directory
type DirWatcher struct {
	watcher *fsnotify.Watcher
	dir     string
	events  chan string // Paths of *.json files that changed
	errors  chan error
	logger  *pterm.Logger
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewDirWatcher starts watching dir, which must exist
func NewDirWatcher(dir string, logger *pterm.Logger) (*DirWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.WithCaller().Error("Failed to create file watcher", logger.Args("error", err))
		return nil, err
	}

	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		if os.IsPermission(err) {
			logger.Error("Permission denied for inbox directory", logger.Args("dir", dir, "error", err))
		}
		return nil, err
	}

	dw := &DirWatcher{
		watcher: watcher,
		dir:     dir,
		events:  make(chan string, 100),
		errors:  make(chan error, 10),
		logger:  logger,
		stopCh:  make(chan struct{}),
	}

	dw.wg.Add(1)
	go dw.eventLoop()

	logger.Debug("Started watching inbox", logger.Args("dir", dir))
	return dw, nil
}

// isSubmissionFile skips hidden and temporary files so writers can stage
// a file under another name and rename it into place.
func isSubmissionFile(path string) bool {
	name := filepath.Base(path)
	return !strings.HasPrefix(name, ".") && strings.EqualFold(filepath.Ext(name), ".json")
}

func (dw *DirWatcher) eventLoop() {
	defer dw.wg.Done()

	for {
		select {
		case <-dw.stopCh:
			dw.logger.Debug("Inbox watcher stopped")
			return

		case event, ok := <-dw.watcher.Events:
			if !ok {
				dw.logger.Warn("File watcher events channel closed")
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			// Only files directly in the inbox, not processed/ or failed/
			if filepath.Dir(event.Name) != filepath.Clean(dw.dir) || !isSubmissionFile(event.Name) {
				continue
			}

			dw.logger.Trace("Submission file event", dw.logger.Args("file", event.Name, "op", event.Op.String()))
			select {
			case dw.events <- event.Name:
			default:
				// The periodic sweep picks it up
				dw.logger.Warn("Event channel full, dropping event", dw.logger.Args("file", event.Name))
			}

		case err, ok := <-dw.watcher.Errors:
			if !ok {
				dw.logger.Warn("File watcher errors channel closed")
				return
			}
			dw.logger.WithCaller().Error("File watcher error", dw.logger.Args("error", err))
			select {
			case dw.errors <- err:
			default:
				dw.logger.Warn("Error channel full, dropping error")
			}
		}
	}
}

// Events returns the channel of changed submission files
func (dw *DirWatcher) Events() <-chan string {
	return dw.events
}

// Errors returns the channel for watcher errors
func (dw *DirWatcher) Errors() <-chan error {
	return dw.errors
}

// Close stops the watcher and closes its channels
func (dw *DirWatcher) Close() error {
	close(dw.stopCh)
	dw.wg.Wait()

	if err := dw.watcher.Close(); err != nil {
		dw.logger.WithCaller().Error("Failed to close file watcher", dw.logger.Args("error", err))
		return err
	}

	close(dw.events)
	close(dw.errors)
	dw.logger.Debug("Inbox watcher closed")
	return nil
}
