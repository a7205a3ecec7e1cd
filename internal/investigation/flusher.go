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
	"sync"
	"time"

	"github.com/pterm/pterm"
)

// FlushService retries persisting a dirty store on a fixed interval, so a
// backend outage heals without waiting for the next write.
type FlushService struct {
	store    *Store
	logger   *pterm.Logger
	interval time.Duration
	stopChan chan struct{}
	done     chan struct{}

	mu      sync.Mutex
	started bool
	stopped bool
}

func NewFlushService(store *Store, logger *pterm.Logger, interval time.Duration) *FlushService {
	return &FlushService{
		store:    store,
		logger:   logger,
		interval: interval,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs the retry loop in the background. A non-positive interval
// disables it. Starting twice, or after Stop, does nothing.
func (f *FlushService) Start() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.started || f.stopped {
		return
	}
	f.started = true

	if f.interval <= 0 {
		f.logger.Info("Background flush disabled")
		close(f.done)
		return
	}
	f.logger.Debug("Starting background flush", f.logger.Args("interval", f.interval))
	go f.loop()
}

// Stop ends the loop, whether or not it was started. It does not flush; call
// Store.Close for that.
func (f *FlushService) Stop() {
	f.mu.Lock()
	if !f.stopped {
		f.stopped = true
		close(f.stopChan)
		if !f.started {
			close(f.done)
		}
	}
	f.mu.Unlock()
	<-f.done
}

func (f *FlushService) loop() {
	defer close(f.done)

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-f.stopChan:
			return
		case <-ticker.C:
			if !f.store.Dirty() {
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), f.interval)
			if err := f.store.Flush(ctx); err != nil {
				f.logger.Debug("Background flush failed, will retry", f.logger.Args("error", err))
			} else {
				f.logger.Info("Pending document changes persisted")
			}
			cancel()
		}
	}
}
