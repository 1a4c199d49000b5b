package sim

import "rovops-sim/internal/telemetry"

// MissionLogWriter receives mission log entries as they are appended.
type MissionLogWriter interface {
	WriteLog(telemetry.LogRow) error
}

// Optional: mission log writers may support batch mode
type batchLogWriter interface {
	WriteLogs([]telemetry.LogRow) error
}
