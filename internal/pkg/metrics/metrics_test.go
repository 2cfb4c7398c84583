package metrics_test

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/samirrijal/staymap/internal/pkg/metrics"
)

func TestObserveRender(t *testing.T) {
	before := testutil.ToFloat64(metrics.MarkersDisplaced.WithLabelValues("test"))
	beforeFallbacks := testutil.ToFloat64(metrics.SeparationFallbacks.WithLabelValues("test"))

	metrics.ObserveRender("test", 4, 1, 2, 0, 3*time.Millisecond)

	if got := testutil.ToFloat64(metrics.MarkersDisplaced.WithLabelValues("test")) - before; got != 4 {
		t.Errorf("expected 4 displaced, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.SeparationFallbacks.WithLabelValues("test")) - beforeFallbacks; got != 2 {
		t.Errorf("expected 2 fallbacks, got %v", got)
	}
}

type fakePoolStat struct{}

func (fakePoolStat) AcquiredConns() int32 { return 2 }
func (fakePoolStat) IdleConns() int32     { return 3 }
func (fakePoolStat) TotalConns() int32    { return 5 }

func TestUpdateDBPoolMetrics(t *testing.T) {
	metrics.UpdateDBPoolMetrics(fakePoolStat{})
	if got := testutil.ToFloat64(metrics.DBPoolConnsOpen); got != 5 {
		t.Errorf("expected 5 open conns, got %v", got)
	}

	// Unknown types are ignored.
	metrics.UpdateDBPoolMetrics("nope")
	if got := testutil.ToFloat64(metrics.DBPoolConnsIdle); got != 3 {
		t.Errorf("expected idle conns to stay 3, got %v", got)
	}
}

func TestHandler_ExposesEngineMetrics(t *testing.T) {
	metrics.ObserveRender("search", 1, 0, 0, 1, time.Millisecond)

	app := fiber.New()
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	buf := new(strings.Builder)
	if _, err := io.Copy(buf, resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(buf.String(), "staymap_markers_displaced_total") {
		t.Error("expected engine counter in exposition")
	}
}
