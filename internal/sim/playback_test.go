package sim

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"rovops-sim/internal/telemetry"
)

type collectWriter struct{ rows []telemetry.Row }

func (c *collectWriter) Write(r telemetry.Row) error {
	c.rows = append(c.rows, r)
	return nil
}

func TestReplayLog(t *testing.T) {
	rows := []telemetry.Row{
		{VehicleID: "rov-1", MissionStatus: "en_route", DepthMeters: 25, Timestamp: time.Unix(0, 0)},
		{VehicleID: "rov-1", MissionStatus: "en_route", DepthMeters: 50, Timestamp: time.Unix(1, 0)},
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, r := range rows {
		if err := enc.Encode(r); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	cw := &collectWriter{}
	if err := ReplayLog(context.Background(), &buf, cw, 0); err != nil {
		t.Fatalf("ReplayLog: %v", err)
	}
	if len(cw.rows) != len(rows) {
		t.Fatalf("expected %d rows, got %d", len(rows), len(cw.rows))
	}
	for i, r := range rows {
		if cw.rows[i].DepthMeters != r.DepthMeters {
			t.Fatalf("row %d mismatch: %+v vs %+v", i, cw.rows[i], r)
		}
	}
}

func TestReplayLogReportsBadLine(t *testing.T) {
	in := strings.NewReader("{\"vehicle_id\":\"rov-1\"}\nnot json\n")
	err := ReplayLog(context.Background(), in, &collectWriter{}, 0)
	if err == nil || !strings.Contains(err.Error(), "row 2") {
		t.Fatalf("expected error naming row 2, got %v", err)
	}
}

func TestReplayLogStopsOnCancel(t *testing.T) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	_ = enc.Encode(telemetry.Row{Timestamp: time.Unix(0, 0)})
	_ = enc.Encode(telemetry.Row{Timestamp: time.Unix(3600, 0)})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cw := &collectWriter{}
	if err := ReplayLog(ctx, &buf, cw, 1); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(cw.rows) != 1 {
		t.Fatalf("expected only first row before cancel, got %d", len(cw.rows))
	}
}

func TestReplayLogFileRecordedBySimulator(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.jsonl")
	fw, err := NewFileWriter(path, "")
	if err != nil {
		t.Fatalf("NewFileWriter: %v", err)
	}
	s := NewSimulator("rov-1", telemetry.DefaultPhysics(), fw, time.Second, fixedClock())
	s.Tick(context.Background(), StartSimulation{Scenario: "nominal"})
	s.Tick(context.Background(), nil)
	fw.Close()

	cw := &collectWriter{}
	if err := ReplayLogFile(context.Background(), path, cw, 0); err != nil {
		t.Fatalf("ReplayLogFile: %v", err)
	}
	if len(cw.rows) != 2 || cw.rows[1].DepthMeters != 50 {
		t.Fatalf("unexpected replay: %+v", cw.rows)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("stat: %v", err)
	}
}
