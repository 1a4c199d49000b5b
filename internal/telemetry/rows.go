package telemetry

import (
	"os"
	"time"

	"rovops-sim/internal/missionlog"
)

// Row is a flattened snapshot ready for time-series sinks.
type Row struct {
	VehicleID        string    `json:"vehicle_id"` // TAG
	RunID            string    `json:"run_id"`     // TAG
	Scenario         string    `json:"scenario"`   // TAG
	ChargePercent    float64   `json:"charge_percent"`
	PowerStatus      string    `json:"power_status"`
	PropulsionLevel  float64   `json:"propulsion_level"`
	PropulsionStatus string    `json:"propulsion_status"`
	HullPressureKPa  int64     `json:"hull_pressure_kpa"`
	HullStatus       string    `json:"hull_status"`
	ArmStatus        string    `json:"arm_status"`
	SampleCollected  bool      `json:"sample_collected"`
	SciencePackage   string    `json:"science_package"`
	DepthMeters      float64   `json:"depth_meters"`
	WaterTempCelsius float64   `json:"water_temp_celsius"`
	MissionStatus    string    `json:"mission_status"`
	AlertActive      bool      `json:"alert_active"`
	AlertSeverity    string    `json:"alert_severity,omitempty"`
	AlertMessage     string    `json:"alert_message,omitempty"`
	Timestamp        time.Time `json:"ts"` // TIME INDEX
}

// NewRow flattens a snapshot.
func NewRow(vehicleID, runID, scenario string, s Snapshot) Row {
	v := s.Vehicle
	return Row{
		VehicleID:        vehicleID,
		RunID:            runID,
		Scenario:         scenario,
		ChargePercent:    v.Power.ChargePercent,
		PowerStatus:      string(v.Power.Status),
		PropulsionLevel:  v.Propulsion.PowerLevelPercent,
		PropulsionStatus: string(v.Propulsion.Status),
		HullPressureKPa:  int64(v.HullIntegrity.HullPressureKPa),
		HullStatus:       string(v.HullIntegrity.Status),
		ArmStatus:        string(v.ManipulatorArm.Status),
		SampleCollected:  v.ManipulatorArm.SampleCollected,
		SciencePackage:   string(v.SciencePackage.Status),
		DepthMeters:      v.Environment.DepthMeters,
		WaterTempCelsius: v.Environment.WaterTempCelsius,
		MissionStatus:    string(s.Mission.Status),
		AlertActive:      s.Alert.Active,
		AlertSeverity:    string(s.Alert.Severity),
		AlertMessage:     s.Alert.Message,
		Timestamp:        s.Timestamp,
	}
}

// LogRow is a mission log entry tagged with its vehicle and run.
type LogRow struct {
	VehicleID string    `json:"vehicle_id"` // TAG
	RunID     string    `json:"run_id"`     // TAG
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"ts"` // TIME INDEX
}

// NewLogRow tags a mission log entry.
func NewLogRow(vehicleID, runID string, e missionlog.Entry) LogRow {
	return LogRow{
		VehicleID: vehicleID,
		RunID:     runID,
		Level:     string(e.Level),
		Message:   e.Message,
		Timestamp: e.Timestamp,
	}
}

// TelemetryTableName holds the table used for snapshots in GreptimeDB.
// It defaults to "rov_telemetry" and can be overridden via GREPTIMEDB_TABLE.
var TelemetryTableName = envOr("GREPTIMEDB_TABLE", "rov_telemetry")

// MissionLogTableName holds the table used for mission log rows.
// It defaults to "rov_mission_log" and can be overridden via MISSION_LOG_TABLE.
var MissionLogTableName = envOr("MISSION_LOG_TABLE", "rov_mission_log")

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
