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
package handlers

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"ipdossier/internal/investigation"
	"ipdossier/internal/version"

	"github.com/gin-gonic/gin"
	"github.com/pterm/pterm"
)

// InboxStats reports submission files handled by the inbox
type InboxStats interface {
	Stats() (processed, failed int64)
}

// SystemHandler handles system statistics requests
type SystemHandler struct {
	store        *investigation.Store
	inbox        InboxStats
	logger       *pterm.Logger
	startTime    time.Time
	storeBackend string
	namespace    string
}

// SystemStats holds process and store statistics
type SystemStats struct {
	// Process Info
	AppVersion    string  `json:"app_version"`
	Uptime        string  `json:"uptime"`
	UptimeSeconds int64   `json:"uptime_seconds"`
	StartTime     string  `json:"start_time"`
	GoVersion     string  `json:"go_version"`
	NumCPU        int     `json:"num_cpu"`
	NumGoroutines int     `json:"num_goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemorySysMB   float64 `json:"memory_sys_mb"`
	GCPauseMs     float64 `json:"gc_pause_ms"`

	// Store Info
	StoreBackend    string `json:"store_backend"`
	Namespace       string `json:"namespace"`
	DocumentVersion int64  `json:"document_version"`
	TrackedIPs      int    `json:"tracked_ips"`
	UnsavedChanges  bool   `json:"unsaved_changes"`
	Recovery        string `json:"recovery,omitempty"`

	// Inbox Info
	InboxEnabled   bool  `json:"inbox_enabled"`
	InboxProcessed int64 `json:"inbox_processed"`
	InboxFailed    int64 `json:"inbox_failed"`
}

// NewSystemHandler creates a new system handler. inbox may be nil.
func NewSystemHandler(
	store *investigation.Store,
	inbox InboxStats,
	logger *pterm.Logger,
	storeBackend string,
	namespace string,
) *SystemHandler {
	return &SystemHandler{
		store:        store,
		inbox:        inbox,
		logger:       logger,
		startTime:    time.Now(),
		storeBackend: storeBackend,
		namespace:    namespace,
	}
}

// GetSystemStats returns process and store statistics
func (h *SystemHandler) GetSystemStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.collectSystemStats())
}

// Health reports "degraded" while the store runs on a recovered document or
// holds changes it could not persist.
func (h *SystemHandler) Health(c *gin.Context) {
	status := "ok"
	if h.store.Dirty() || h.store.Recovery() != nil {
		status = "degraded"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  status,
		"version": version.Version,
	})
}

func (h *SystemHandler) collectSystemStats() *SystemStats {
	stats := &SystemStats{
		AppVersion:      version.Version,
		StartTime:       h.startTime.Format(time.RFC3339),
		GoVersion:       runtime.Version(),
		NumCPU:          runtime.NumCPU(),
		NumGoroutines:   runtime.NumGoroutine(),
		StoreBackend:    h.storeBackend,
		Namespace:       h.namespace,
		DocumentVersion: h.store.Version(),
		TrackedIPs:      h.store.Len(),
		UnsavedChanges:  h.store.Dirty(),
	}

	uptime := time.Since(h.startTime)
	stats.UptimeSeconds = int64(uptime.Seconds())
	stats.Uptime = formatDuration(uptime)

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	stats.MemoryAllocMB = float64(m.Alloc) / 1024 / 1024
	stats.MemorySysMB = float64(m.Sys) / 1024 / 1024
	stats.GCPauseMs = float64(m.PauseNs[(m.NumGC+255)%256]) / 1000000

	if err := h.store.Recovery(); err != nil {
		stats.Recovery = err.Error()
	}

	if h.inbox != nil {
		stats.InboxEnabled = true
		stats.InboxProcessed, stats.InboxFailed = h.inbox.Stats()
	}

	return stats
}

// formatDuration formats a duration into a human-readable string
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = -d
	}

	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return formatPlural(days, "day", hours, "hour")
	}
	if hours > 0 {
		return formatPlural(hours, "hour", minutes, "minute")
	}
	if minutes > 0 {
		return formatPlural(minutes, "minute", seconds, "second")
	}
	return formatPlural(seconds, "second", 0, "")
}

// formatPlural formats numbers with proper pluralization
func formatPlural(n1 int, unit1 string, n2 int, unit2 string) string {
	result := formatSingle(n1, unit1)
	if n2 > 0 && unit2 != "" {
		result += ", " + formatSingle(n2, unit2)
	}
	return result
}

// formatSingle formats a single value with pluralization
func formatSingle(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

