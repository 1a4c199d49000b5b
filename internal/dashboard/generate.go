package dashboard

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

//go:embed templates/*.tmpl
var templates embed.FS

type panel struct {
	Title  string
	Type   string
	Format string
	SQL    string
	X, Y   int
}

type dashboardData struct {
	TelemetryTable string
	LogTable       string
	Panels         []panel
}

func panels(tele, logs string) []panel {
	where := "WHERE vehicle_id = '$vehicle' AND $__timeFilter(ts)"
	series := func(col string) string {
		return fmt.Sprintf("SELECT ts AS time, %s FROM %s %s ORDER BY ts", col, tele, where)
	}
	return []panel{
		{Title: "Depth (m)", Type: "timeseries", Format: "time_series", SQL: series("depth_meters"), X: 0, Y: 0},
		{Title: "Hull pressure (kPa)", Type: "timeseries", Format: "time_series", SQL: series("hull_pressure_kpa"), X: 12, Y: 0},
		{Title: "Battery charge (%)", Type: "timeseries", Format: "time_series", SQL: series("charge_percent"), X: 0, Y: 8},
		{Title: "Thruster output (%)", Type: "timeseries", Format: "time_series", SQL: series("propulsion_level"), X: 12, Y: 8},
		{
			Title: "Mission status", Type: "stat", Format: "table", X: 0, Y: 16,
			SQL: fmt.Sprintf("SELECT mission_status, scenario, run_id FROM %s %s ORDER BY ts DESC LIMIT 1", tele, where),
		},
		{
			Title: "Mission log", Type: "table", Format: "table", X: 12, Y: 16,
			SQL: fmt.Sprintf("SELECT ts, level, message FROM %s %s ORDER BY ts DESC LIMIT 200", logs, where),
		},
	}
}

// Render writes a Grafana dashboard for the given GreptimeDB tables to
// outDir. GREPTIMEDB_DATASOURCE_UID must name the Grafana datasource.
func Render(outDir, telemetryTable, logTable string) error {
	funcMap := template.FuncMap{
		"env": func(key string) (string, error) {
			v := os.Getenv(key)
			if v == "" {
				return "", fmt.Errorf("environment variable %s not set", key)
			}
			return v, nil
		},
		"add": func(a, b int) int { return a + b },
	}
	names, err := templates.ReadDir("templates")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	data := dashboardData{
		TelemetryTable: telemetryTable,
		LogTable:       logTable,
		Panels:         panels(telemetryTable, logTable),
	}
	for _, entry := range names {
		name := entry.Name()
		t, err := template.New(name).Funcs(funcMap).ParseFS(templates, "templates/"+name)
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := t.Execute(&buf, data); err != nil {
			return err
		}
		if !json.Valid(buf.Bytes()) {
			return fmt.Errorf("rendered %s is not valid JSON", name)
		}
		outPath := filepath.Join(outDir, strings.TrimSuffix(name, ".tmpl"))
		if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
			return err
		}
	}
	return nil
}
