package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"ipdossier/internal/investigation"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestStatusBucket(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{100, "1xx"},
		{200, "2xx"},
		{301, "3xx"},
		{400, "4xx"},
		{503, "5xx"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, statusBucket(tt.code), "code %d", tt.code)
	}
}

func scrape(t *testing.T) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/metrics", Handler())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestRecorder(t *testing.T) {
	var r Recorder

	r.AssessmentRecorded("LHV", investigation.ImpactHigh, 80)
	r.AssessmentRecorded("", "", 10)
	r.TrackedIPs(12)
	r.VersionConflict()
	r.DocumentRecovered("corrupt_document")

	body := scrape(t)
	assert.Contains(t, body, `ipdossier_assessments_total{impact="High"}`)
	assert.Contains(t, body, `ipdossier_assessments_total{impact="none"}`)
	assert.Contains(t, body, "ipdossier_tracked_ips 12")
	assert.Contains(t, body, `ipdossier_document_recoveries_total{reason="corrupt_document"}`)
	assert.Contains(t, body, "ipdossier_version_conflicts_total")
}

func TestMetricsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/metrics", Handler())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, "ipdossier_tracked_ips")
	assert.Contains(t, body, `ipdossier_http_requests_total{method="GET",path="/ping",status="2xx"}`)
}
