package sim

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"

	"rovops-sim/internal/telemetry"
)

const influxTimeout = 5 * time.Second

// pointWriter is the subset of the blocking write API used by InfluxWriter.
type pointWriter interface {
	WritePoint(ctx context.Context, point ...*influxdb2_write.Point) error
}

// InfluxWriter writes telemetry and mission log rows to an InfluxDB v2 bucket.
type InfluxWriter struct {
	client      influxdb2.Client
	api         pointWriter
	measurement string
	logMeasure  string
}

// NewInfluxWriter connects to an InfluxDB v2 server and verifies it is reachable.
func NewInfluxWriter(url, token, org, bucket string) (*InfluxWriter, error) {
	client := influxdb2.NewClientWithOptions(url, token,
		influxdb2.DefaultOptions().
			SetPrecision(time.Millisecond).
			SetHTTPRequestTimeout(uint(influxTimeout/time.Second)))

	ctx, cancel := context.WithTimeout(context.Background(), influxTimeout)
	defer cancel()
	running, err := client.Ping(ctx)
	if err != nil || !running {
		client.Close()
		if err == nil {
			err = fmt.Errorf("server not ready")
		}
		return nil, fmt.Errorf("influxdb ping %s: %w", url, err)
	}

	return &InfluxWriter{
		client:      client,
		api:         client.WriteAPIBlocking(org, bucket),
		measurement: telemetry.TelemetryTableName,
		logMeasure:  telemetry.MissionLogTableName,
	}, nil
}

// Write stores a single telemetry row.
func (w *InfluxWriter) Write(row telemetry.Row) error {
	return w.WriteBatch([]telemetry.Row{row})
}

// WriteBatch stores multiple telemetry rows.
func (w *InfluxWriter) WriteBatch(rows []telemetry.Row) error {
	if len(rows) == 0 {
		return nil
	}
	points := make([]*influxdb2_write.Point, 0, len(rows))
	for _, r := range rows {
		points = append(points, w.telemetryPoint(r))
	}
	return w.write(points)
}

func (w *InfluxWriter) telemetryPoint(r telemetry.Row) *influxdb2_write.Point {
	tags := map[string]string{"vehicle_id": r.VehicleID}
	if r.RunID != "" {
		tags["run_id"] = r.RunID
	}
	if r.Scenario != "" {
		tags["scenario"] = r.Scenario
	}
	fields := map[string]interface{}{
		"charge_percent":     r.ChargePercent,
		"power_status":       r.PowerStatus,
		"propulsion_level":   r.PropulsionLevel,
		"propulsion_status":  r.PropulsionStatus,
		"hull_pressure_kpa":  r.HullPressureKPa,
		"hull_status":        r.HullStatus,
		"arm_status":         r.ArmStatus,
		"sample_collected":   r.SampleCollected,
		"science_package":    r.SciencePackage,
		"depth_meters":       r.DepthMeters,
		"water_temp_celsius": r.WaterTempCelsius,
		"mission_status":     r.MissionStatus,
		"alert_active":       r.AlertActive,
	}
	if r.AlertActive {
		fields["alert_severity"] = r.AlertSeverity
		fields["alert_message"] = r.AlertMessage
	}
	return influxdb2.NewPoint(w.measurement, tags, fields, r.Timestamp)
}

// WriteLog stores a single mission log row.
func (w *InfluxWriter) WriteLog(row telemetry.LogRow) error {
	return w.WriteLogs([]telemetry.LogRow{row})
}

// WriteLogs stores multiple mission log rows.
func (w *InfluxWriter) WriteLogs(rows []telemetry.LogRow) error {
	if len(rows) == 0 {
		return nil
	}
	points := make([]*influxdb2_write.Point, 0, len(rows))
	for _, r := range rows {
		tags := map[string]string{"vehicle_id": r.VehicleID, "level": r.Level}
		if r.RunID != "" {
			tags["run_id"] = r.RunID
		}
		points = append(points, influxdb2.NewPoint(w.logMeasure, tags, map[string]interface{}{"message": r.Message}, r.Timestamp))
	}
	return w.write(points)
}

func (w *InfluxWriter) write(points []*influxdb2_write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), influxTimeout)
	defer cancel()
	if err := w.api.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("influxdb write: %w", err)
	}
	return nil
}

// Close releases the HTTP client.
func (w *InfluxWriter) Close() error {
	if w.client != nil {
		w.client.Close()
	}
	return nil
}
