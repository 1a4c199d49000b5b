package sim

import (
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"rovops-sim/internal/telemetry"
)

const (
	defaultGreptimePort = 4001
	greptimeTimeout     = 5 * time.Second
)

// greptimeClient is the subset of the ingester client used by the writer.
type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeDBWriter writes telemetry and mission log rows to GreptimeDB via
// the gRPC ingester.
type GreptimeDBWriter struct {
	client     greptimeClient
	teleTable  string
	logTable   string
	newContext func() (context.Context, context.CancelFunc)
}

// NewGreptimeDBWriter connects to endpoint ("host" or "host:port"). Empty
// table names fall back to telemetry.TelemetryTableName and
// telemetry.MissionLogTableName.
func NewGreptimeDBWriter(endpoint, database, teleTable, logTable string) (*GreptimeDBWriter, error) {
	host, port, err := splitEndpoint(endpoint)
	if err != nil {
		return nil, err
	}
	cfg := greptime.NewConfig(host).WithPort(port).WithDatabase(database)
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("greptime client: %w", err)
	}
	if teleTable == "" {
		teleTable = telemetry.TelemetryTableName
	}
	if logTable == "" {
		logTable = telemetry.MissionLogTableName
	}
	return &GreptimeDBWriter{client: client, teleTable: teleTable, logTable: logTable}, nil
}

func splitEndpoint(endpoint string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(endpoint)
	if err != nil {
		// No port given.
		return endpoint, defaultGreptimePort, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid greptime port %q: %w", portStr, err)
	}
	return host, port, nil
}

func (w *GreptimeDBWriter) context() (context.Context, context.CancelFunc) {
	if w.newContext != nil {
		return w.newContext()
	}
	return context.WithTimeout(context.Background(), greptimeTimeout)
}

// Write inserts a single telemetry row.
func (w *GreptimeDBWriter) Write(row telemetry.Row) error {
	return w.WriteBatch([]telemetry.Row{row})
}

// WriteBatch inserts multiple telemetry rows.
func (w *GreptimeDBWriter) WriteBatch(rows []telemetry.Row) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := table.New(w.teleTable)
	if err != nil {
		return err
	}
	columns := []struct {
		name  string
		tag   bool
		ctype types.ColumnType
	}{
		{"vehicle_id", true, types.STRING},
		{"run_id", true, types.STRING},
		{"scenario", true, types.STRING},
		{"charge_percent", false, types.FLOAT64},
		{"power_status", false, types.STRING},
		{"propulsion_level", false, types.FLOAT64},
		{"propulsion_status", false, types.STRING},
		{"hull_pressure_kpa", false, types.INT64},
		{"hull_status", false, types.STRING},
		{"arm_status", false, types.STRING},
		{"sample_collected", false, types.BOOLEAN},
		{"science_package", false, types.STRING},
		{"depth_meters", false, types.FLOAT64},
		{"water_temp_celsius", false, types.FLOAT64},
		{"mission_status", false, types.STRING},
		{"alert_active", false, types.BOOLEAN},
		{"alert_severity", false, types.STRING},
		{"alert_message", false, types.STRING},
	}
	for _, c := range columns {
		if c.tag {
			err = tbl.AddTagColumn(c.name, c.ctype)
		} else {
			err = tbl.AddFieldColumn(c.name, c.ctype)
		}
		if err != nil {
			return err
		}
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return err
	}

	for _, r := range rows {
		if err := tbl.AddRow(
			r.VehicleID, r.RunID, r.Scenario,
			r.ChargePercent, r.PowerStatus,
			r.PropulsionLevel, r.PropulsionStatus,
			r.HullPressureKPa, r.HullStatus,
			r.ArmStatus, r.SampleCollected,
			r.SciencePackage,
			r.DepthMeters, r.WaterTempCelsius,
			r.MissionStatus,
			r.AlertActive, r.AlertSeverity, r.AlertMessage,
			r.Timestamp,
		); err != nil {
			return err
		}
	}
	return w.write(tbl)
}

// WriteLog inserts a single mission log row.
func (w *GreptimeDBWriter) WriteLog(row telemetry.LogRow) error {
	return w.WriteLogs([]telemetry.LogRow{row})
}

// WriteLogs inserts multiple mission log rows.
func (w *GreptimeDBWriter) WriteLogs(rows []telemetry.LogRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := table.New(w.logTable)
	if err != nil {
		return err
	}
	if err := tbl.AddTagColumn("vehicle_id", types.STRING); err != nil {
		return err
	}
	if err := tbl.AddTagColumn("run_id", types.STRING); err != nil {
		return err
	}
	if err := tbl.AddFieldColumn("level", types.STRING); err != nil {
		return err
	}
	if err := tbl.AddFieldColumn("message", types.STRING); err != nil {
		return err
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return err
	}
	for _, r := range rows {
		if err := tbl.AddRow(r.VehicleID, r.RunID, r.Level, r.Message, r.Timestamp); err != nil {
			return err
		}
	}
	return w.write(tbl)
}

func (w *GreptimeDBWriter) write(tbl *table.Table) error {
	ctx, cancel := w.context()
	defer cancel()
	if _, err := w.client.Write(ctx, tbl); err != nil {
		return fmt.Errorf("greptime write: %w", err)
	}
	return nil
}

// Close releases the client connection when the client supports it.
func (w *GreptimeDBWriter) Close() error {
	if c, ok := w.client.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
