package main

import (
	"github.com/spf13/cobra"

	"rovops-sim/internal/config"
	"rovops-sim/internal/dashboard"
)

var dashboardOut string

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Render the Grafana dashboard",
	Long:  "dashboard renders a Grafana dashboard for the GreptimeDB telemetry and mission log tables. GREPTIMEDB_DATASOURCE_UID must be set.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath, schemaPath)
		if err != nil {
			return err
		}
		return dashboard.Render(dashboardOut, cfg.Sinks.Greptime.TelemetryTable, cfg.Sinks.Greptime.LogTable)
	},
}

func init() {
	dashboardCmd.Flags().StringVar(&dashboardOut, "out", "build", "Directory for rendered dashboards")
}
