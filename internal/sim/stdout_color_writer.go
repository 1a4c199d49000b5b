// ColorStdoutWriter prints human-friendly, colorized telemetry to STDOUT.
package sim

import (
	"fmt"
	"io"
	"os"
	"sync"
	"text/tabwriter"
	"time"

	"rovops-sim/internal/missionlog"
	"rovops-sim/internal/scenario"
	"rovops-sim/internal/telemetry"
)

const (
	colorReset   = "\x1b[0m"
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorBlue    = "\x1b[34m"
	colorMagenta = "\x1b[35m"
	colorCyan    = "\x1b[36m"
	colorGray    = "\x1b[90m"
)

// ColorStdoutWriter prints telemetry rows using ANSI colors.
type ColorStdoutWriter struct {
	vehicleID string
	physics   telemetry.Physics
	out       io.Writer
	once      sync.Once
}

// NewColorStdoutWriter creates a ColorStdoutWriter writing to os.Stdout.
func NewColorStdoutWriter(vehicleID string, physics telemetry.Physics) *ColorStdoutWriter {
	return &ColorStdoutWriter{vehicleID: vehicleID, physics: physics, out: os.Stdout}
}

func (w *ColorStdoutWriter) printOverview() {
	fmt.Fprintln(w.out, "Simulation Configuration:")
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Vehicle:\t%s\n", w.vehicleID)
	fmt.Fprintf(tw, "Target Depth (m):\t%.0f\n", w.physics.TargetDepth)
	fmt.Fprintf(tw, "Descent Rate (m/tick):\t%.1f\n", w.physics.DescentRate)
	fmt.Fprintf(tw, "Ascent Rate (m/tick):\t%.1f\n", w.physics.AscentRate)
	fmt.Fprintf(tw, "Hull Warning (kPa):\t%.1f\n", w.physics.WarningThreshold())
	fmt.Fprintf(tw, "Hull Critical (kPa):\t%.1f\n", w.physics.CriticalThreshold())
	tw.Flush()

	fmt.Fprintln(w.out, "\nScenarios:")
	tw = tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Name\tTitle\n")
	for _, info := range scenario.Catalog() {
		fmt.Fprintf(tw, "%s%s%s\t%s\n", colorCyan, info.Name, colorReset, info.Title)
	}
	tw.Flush()
	fmt.Fprintln(w.out)
}

// Write outputs a single telemetry row in colorized format.
func (w *ColorStdoutWriter) Write(row telemetry.Row) error {
	w.once.Do(w.printOverview)

	fmt.Fprintf(w.out, "%s[%s]%s ", colorGray, row.Timestamp.Format(time.RFC3339), colorReset)
	fmt.Fprintf(w.out, "%srov=%s%s ", colorBlue, row.VehicleID, colorReset)
	fmt.Fprintf(w.out, "%smission=%s%s ", missionColor(row.MissionStatus), row.MissionStatus, colorReset)
	fmt.Fprintf(w.out, "%sdepth=%.1f%s ", colorCyan, row.DepthMeters, colorReset)
	fmt.Fprintf(w.out, "%shull=%d(%s)%s ", hullColor(row.HullStatus), row.HullPressureKPa, row.HullStatus, colorReset)
	fmt.Fprintf(w.out, "%sbatt=%.2f%s ", batteryColor(row.PowerStatus), row.ChargePercent, colorReset)
	fmt.Fprintf(w.out, "%sprop=%s%s ", colorMagenta, row.PropulsionStatus, colorReset)
	fmt.Fprintf(w.out, "%sarm=%s%s", colorYellow, row.ArmStatus, colorReset)
	if row.AlertActive {
		fmt.Fprintf(w.out, " %s%s: %s%s", severityColor(row.AlertSeverity), row.AlertSeverity, row.AlertMessage, colorReset)
	}
	fmt.Fprintln(w.out)
	return nil
}

// WriteBatch outputs multiple telemetry rows.
func (w *ColorStdoutWriter) WriteBatch(rows []telemetry.Row) error {
	for _, r := range rows {
		_ = w.Write(r)
	}
	return nil
}

// WriteLog prints a mission log entry.
func (w *ColorStdoutWriter) WriteLog(row telemetry.LogRow) error {
	w.once.Do(w.printOverview)
	fmt.Fprintf(w.out, "%s[%s]%s %sLOG %-8s%s %s\n",
		colorGray, row.Timestamp.Format(time.RFC3339), colorReset,
		levelColor(row.Level), row.Level, colorReset, row.Message)
	return nil
}

// WriteLogs prints multiple mission log entries.
func (w *ColorStdoutWriter) WriteLogs(rows []telemetry.LogRow) error {
	for _, r := range rows {
		_ = w.WriteLog(r)
	}
	return nil
}

func missionColor(status string) string {
	m := telemetry.MissionStatus(status)
	switch {
	case m == telemetry.MissionSuccess:
		return colorGreen
	case m.Terminal():
		return colorRed
	case m == telemetry.MissionEmergencyAscent:
		return colorYellow
	case m == telemetry.MissionStandby:
		return colorGray
	}
	return colorBlue
}

func hullColor(status string) string {
	switch telemetry.HullStatus(status) {
	case telemetry.HullCritical:
		return colorRed
	case telemetry.HullWarning:
		return colorYellow
	}
	return colorGreen
}

func batteryColor(status string) string {
	if telemetry.PowerStatus(status) == telemetry.PowerFault {
		return colorRed
	}
	return colorGreen
}

func severityColor(sev string) string {
	switch telemetry.Severity(sev) {
	case telemetry.SeverityCritical:
		return colorRed
	case telemetry.SeverityWarning:
		return colorYellow
	}
	return colorCyan
}

func levelColor(level string) string {
	switch missionlog.Level(level) {
	case missionlog.LevelCritical:
		return colorRed
	case missionlog.LevelWarning:
		return colorYellow
	case missionlog.LevelOperator:
		return colorMagenta
	}
	return colorCyan
}
