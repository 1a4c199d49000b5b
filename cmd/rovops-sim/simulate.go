package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"rovops-sim/internal/admin"
	"rovops-sim/internal/config"
	"rovops-sim/internal/logging"
	"rovops-sim/internal/metrics"
	"rovops-sim/internal/sim"
)

var (
	simOutput    string
	simTick      time.Duration
	simAdminAddr string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the real-time ROV simulator",
	Long:  "simulate starts the simulator in standby, serves the admin API and emits telemetry and mission log entries to the configured sinks.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath, schemaPath)
		if err != nil {
			return err
		}
		if simTick > 0 {
			cfg.TickInterval = config.Duration{Duration: simTick}
		}
		if cmd.Flags().Changed("admin") {
			cfg.Admin.Listen = simAdminAddr
		}
		level, err := logging.ParseLevel(cfg.LogLevel)
		if err != nil {
			return err
		}
		var logOut io.Writer = os.Stderr
		if simOutput == outputTUI {
			logOut = io.Discard
		}
		logger := logging.New(logOut, level)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx = logging.NewContext(ctx, logger)

		writer, cleanup, err := newWriters(cfg, simOutput, stdoutIsTerminal)
		if err != nil {
			return err
		}
		defer cleanup()

		m, err := metrics.New(prometheus.DefaultRegisterer, sim.CommandNames...)
		if err != nil {
			return err
		}
		simulator := sim.NewSimulator(cfg.VehicleID, cfg.PhysicsModel(), writer, cfg.TickInterval.Duration, nil)
		simulator.SetMetrics(m)

		if cfg.Admin.Listen != "" {
			go serveAdmin(ctx, admin.NewServer(simulator, m), cfg.Admin.Listen, writer)
		}

		simulator.Run(ctx)
		logger.Info("ROV simulation stopped", "vehicle_id", cfg.VehicleID)
		return nil
	},
}

func serveAdmin(ctx context.Context, srv *admin.Server, addr string, writer sim.TelemetryWriter) {
	log := logging.FromContext(ctx)
	status, _ := writer.(sim.AdminStatusWriter)
	if status != nil {
		status.SetAdminStatus(true)
	}
	log.Info("admin API listening", "addr", addr)
	err := srv.Start(ctx, addr)
	if status != nil {
		status.SetAdminStatus(false)
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("admin server failed", "addr", addr, "err", err)
	}
}

func init() {
	simulateCmd.Flags().StringVar(&simOutput, "output", outputAuto, "Console output: auto, json, color or tui")
	simulateCmd.Flags().DurationVar(&simTick, "tick", 0, "Override the tick interval (e.g. 200ms, 1s)")
	simulateCmd.Flags().StringVar(&simAdminAddr, "admin", "", "Override the admin API listen address (empty disables it)")
}
