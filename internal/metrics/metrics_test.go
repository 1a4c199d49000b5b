package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"rovops-sim/internal/telemetry"
)

func TestObserveTickSetsGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(reg, "DEPLOY_ARM")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	snap := telemetry.Snapshot{
		Vehicle: telemetry.StandbyVehicle(18),
		Mission: telemetry.MissionState{Status: telemetry.MissionSearching},
	}
	snap.Vehicle.Environment.DepthMeters = 2000
	snap.Vehicle.HullIntegrity.HullPressureKPa = 19614
	snap.Vehicle.Power.ChargePercent = 91.5

	c.ObserveTick(snap, true)

	if got := testutil.ToFloat64(c.Ticks); got != 1 {
		t.Fatalf("ticks = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.MissionStatus.WithLabelValues("searching")); got != 1 {
		t.Fatalf("searching gauge = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.MissionStatus.WithLabelValues("en_route")); got != 0 {
		t.Fatalf("en_route gauge = %v, want 0", got)
	}
	if got := testutil.ToFloat64(c.DepthMeters); got != 2000 {
		t.Fatalf("depth = %v, want 2000", got)
	}
	if got := testutil.ToFloat64(c.HullPressure); got != 19614 {
		t.Fatalf("pressure = %v, want 19614", got)
	}
	if got := testutil.ToFloat64(c.Running); got != 1 {
		t.Fatalf("running = %v, want 1", got)
	}
}

func TestUnknownCommandsShareLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(reg, "DEPLOY_ARM")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.CommandApplied("DEPLOY_ARM")
	c.CommandApplied("FOO_BAR")
	c.CommandApplied("BAZ")

	if got := testutil.ToFloat64(c.Commands.WithLabelValues("DEPLOY_ARM")); got != 1 {
		t.Fatalf("DEPLOY_ARM = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.Commands.WithLabelValues(unknownCommand)); got != 2 {
		t.Fatalf("UNKNOWN = %v, want 2", got)
	}
}

func TestNewReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := New(reg)
	if err != nil {
		t.Fatalf("first New: %v", err)
	}
	second, err := New(reg)
	if err != nil {
		t.Fatalf("second New: %v", err)
	}
	second.Ticks.Inc()
	if got := testutil.ToFloat64(first.Ticks); got != 1 {
		t.Fatalf("collectors not shared: %v", got)
	}
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	c.ObserveTick(telemetry.Snapshot{}, false)
	c.CommandApplied("X")
	c.WriteFailed("telemetry")
	c.FramesDropped(3)
}

func TestHandlerServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(reg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.FramesDropped(2)
	c.WriteFailed("mission_log")

	rr := httptest.NewRecorder()
	c.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	for _, want := range []string{"rov_stream_dropped_frames_total 2", `rov_sink_write_errors_total{stream="mission_log"} 1`} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("metrics output missing %q", want)
		}
	}
}
