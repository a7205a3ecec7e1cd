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
	"errors"
	"net/http"
	"strconv"

	"ipdossier/internal/investigation"

	"github.com/gin-gonic/gin"
	"github.com/pterm/pterm"
)

const (
	defaultTrendDays = 90
	maxTrendDays     = 365
	maxOverviewLimit = 100
)

// InvestigationHandler exposes the investigation store over HTTP
type InvestigationHandler struct {
	store  *investigation.Store
	logger *pterm.Logger
}

func NewInvestigationHandler(store *investigation.Store, logger *pterm.Logger) *InvestigationHandler {
	return &InvestigationHandler{store: store, logger: logger}
}

type lookupRequest struct {
	Analyst      string `json:"analyst"`
	TicketNumber string `json:"ticketNumber"`
	Notes        string `json:"notes"`
}

type monitorRequest struct {
	Monitored *bool `json:"monitored"`
}

type alertRequest struct {
	Email string                  `json:"email" binding:"required,email"`
	Type  investigation.AlertType `json:"type" binding:"required"`
}

type ticketRequest struct {
	IPs   []string `json:"ips"`
	Notes string   `json:"notes"`
}

// respond writes result, or maps err onto a status code. A write that
// failed to persist still returns the applied result alongside a warning.
func (h *InvestigationHandler) respond(c *gin.Context, status int, result interface{}, err error) {
	switch {
	case err == nil:
		c.JSON(status, result)
	case errors.Is(err, investigation.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, investigation.ErrPersistenceUnavailable):
		h.logger.Warn("Change applied but not persisted",
			h.logger.Args("path", c.FullPath(), "error", err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "change applied in memory but could not be persisted",
			"warning": err.Error(),
			"result":  result,
		})
	default:
		h.logger.WithCaller().Error("Investigation request failed",
			h.logger.Args("path", c.FullPath(), "error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// RecordAssessment handles POST /api/ips/:ip/assessments
func (h *InvestigationHandler) RecordAssessment(c *gin.Context) {
	var sub investigation.Submission
	if err := c.ShouldBindJSON(&sub); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	rec, err := h.store.RecordAssessment(c.Request.Context(), c.Param("ip"), sub)
	h.respond(c, http.StatusCreated, rec, err)
}

// RecordLookup handles POST /api/ips/:ip/lookups
func (h *InvestigationHandler) RecordLookup(c *gin.Context) {
	var req lookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	rec, err := h.store.RecordLookup(c.Request.Context(), c.Param("ip"), req.Analyst, req.TicketNumber, req.Notes)
	h.respond(c, http.StatusOK, rec, err)
}

// GetRecord handles GET /api/ips/:ip
func (h *InvestigationHandler) GetRecord(c *gin.Context) {
	ip, err := investigation.NormalizeIP(c.Param("ip"))
	if err != nil {
		h.respond(c, 0, nil, err)
		return
	}
	rec, ok := h.store.Record(ip)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no record for " + ip})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// GetAnalytics handles GET /api/ips/:ip/analytics. Unknown addresses get
// hasData=false rather than 404.
func (h *InvestigationHandler) GetAnalytics(c *gin.Context) {
	analytics, err := h.store.GetIPAnalytics(c.Param("ip"))
	h.respond(c, http.StatusOK, analytics, err)
}

// GetTrend handles GET /api/ips/:ip/trend?days=N
func (h *InvestigationHandler) GetTrend(c *gin.Context) {
	days := defaultTrendDays
	if d := c.Query("days"); d != "" {
		if val, err := strconv.Atoi(d); err == nil && val > 0 {
			if val <= maxTrendDays {
				days = val
			} else {
				days = maxTrendDays
			}
		}
	}

	trend, err := h.store.GetRiskTrend(c.Param("ip"), days)
	h.respond(c, http.StatusOK, trend, err)
}

// SetMonitored handles PUT /api/ips/:ip/monitor
func (h *InvestigationHandler) SetMonitored(c *gin.Context) {
	var req monitorRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Monitored == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be {\"monitored\": true|false}"})
		return
	}

	rec, err := h.store.SetMonitored(c.Request.Context(), c.Param("ip"), *req.Monitored)
	h.respond(c, http.StatusOK, rec, err)
}

// AddAlert handles POST /api/ips/:ip/alerts
func (h *InvestigationHandler) AddAlert(c *gin.Context) {
	var req alertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	rec, err := h.store.AddAlert(c.Request.Context(), c.Param("ip"), req.Email, req.Type)
	h.respond(c, http.StatusCreated, rec, err)
}

// GetMonitored handles GET /api/ips/monitored
func (h *InvestigationHandler) GetMonitored(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.MonitoredIPs())
}

func (h *InvestigationHandler) GetBehaviorStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.BehaviorStats())
}

func (h *InvestigationHandler) GetClientStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.ClientStats())
}

// GetOverview handles GET /api/analytics/overview?limit=N
func (h *InvestigationHandler) GetOverview(c *gin.Context) {
	limit := 10
	if l := c.Query("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil && val > 0 && val <= maxOverviewLimit {
			limit = val
		}
	}
	c.JSON(http.StatusOK, h.store.Overview(limit))
}

// UpdateTicket handles PUT /api/tickets/:ticket
func (h *InvestigationHandler) UpdateTicket(c *gin.Context) {
	var req ticketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	rel, err := h.store.UpdateTicketRelationship(c.Request.Context(), c.Param("ticket"), req.IPs, req.Notes)
	h.respond(c, http.StatusOK, rel, err)
}

// GetTicket handles GET /api/tickets/:ticket
func (h *InvestigationHandler) GetTicket(c *gin.Context) {
	rel, ok := h.store.TicketRelationship(c.Param("ticket"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown ticket"})
		return
	}
	c.JSON(http.StatusOK, rel)
}
