package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"rovops-sim/internal/config"
	"rovops-sim/internal/logging"
	"rovops-sim/internal/sim"
)

var (
	replayInput  string
	replaySpeed  float64
	replayOutput string
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a telemetry log file",
	Long:  "replay feeds telemetry rows from a JSONL recording back into the configured sinks or STDOUT.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if replayInput == "" {
			return fmt.Errorf("input file required")
		}
		if replaySpeed <= 0 {
			return fmt.Errorf("speed must be positive, got %g", replaySpeed)
		}
		cfg, err := config.Load(configPath, schemaPath)
		if err != nil {
			return err
		}
		// A replay never re-records into its own input.
		cfg.Sinks.File = config.FileSink{}
		writer, cleanup, err := newWriters(cfg, replayOutput, stdoutIsTerminal)
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		ctx = logging.NewContext(ctx, logging.New(os.Stderr, slog.LevelInfo))
		return sim.ReplayLogFile(ctx, replayInput, writer, replaySpeed)
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayInput, "input", "", "Path to telemetry log file")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1.0, "Playback speed multiplier")
	replayCmd.Flags().StringVar(&replayOutput, "output", outputAuto, "Console output: auto, json or color")
	replayCmd.MarkFlagRequired("input")
}
