package metrics

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/andresuchdata/gapwatch/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveCycle(t *testing.T) {
	c := NewCollector()
	records := []domain.ChangeRecord{
		{SnapshotRecord: domain.SnapshotRecord{Category: "Bikes", GapScore: 250.1, GapStatus: domain.SeverityCritical},
			Alerts: []domain.Alert{domain.AlertCritical, domain.AlertDemandSpike}},
		{SnapshotRecord: domain.SnapshotRecord{Category: "Socks", GapScore: 12.2, GapStatus: domain.SeverityLow},
			Alerts: []domain.Alert{domain.AlertCritical}},
	}
	c.ObserveCycle("completed", records, domain.KPISummary{AvgGapScore: 131.15}, time.Unix(1700000000, 0))

	if got := testutil.ToFloat64(c.gapScore.WithLabelValues("Bikes")); got != 250.1 {
		t.Errorf("gap score = %v", got)
	}
	if got := testutil.ToFloat64(c.alerts.WithLabelValues(string(domain.AlertCritical))); got != 2 {
		t.Errorf("critical alerts = %v", got)
	}
	if got := testutil.ToFloat64(c.categories.WithLabelValues(string(domain.SeverityHigh))); got != 0 {
		t.Errorf("high categories = %v", got)
	}
	if got := testutil.ToFloat64(c.cyclesTotal.WithLabelValues("completed")); got != 1 {
		t.Errorf("cycles = %v", got)
	}

	// a later cycle without Bikes drops its series
	c.ObserveCycle("completed", records[1:], domain.KPISummary{}, time.Now())
	if n := testutil.CollectAndCount(c.gapScore); n != 1 {
		t.Errorf("expected 1 gap score series, got %d", n)
	}
}

func TestGinMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c := NewCollector()

	r := gin.New()
	r.Use(c.GinMiddleware())
	r.GET("/health", func(ctx *gin.Context) { ctx.String(http.StatusOK, "ok") })
	r.GET("/metrics", gin.WrapH(c.Handler()))

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `http_requests_total{route="/health",status="200"} 1`) {
		t.Errorf("missing request counter:\n%s", w.Body.String())
	}
}

func TestWriteTextfile(t *testing.T) {
	c := NewCollector()
	c.ObserveCycle("degraded", nil, domain.KPISummary{AvgGapScore: 2.5}, time.Unix(1700000000, 0))

	path := filepath.Join(t.TempDir(), "gapwatch.prom")
	if err := c.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), `gapwatch_cycles_total{status="degraded"} 1`) {
		t.Errorf("unexpected textfile:\n%s", raw)
	}
}
