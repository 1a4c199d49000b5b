package main

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"rovops-sim/internal/config"
	"rovops-sim/internal/sim"
	"rovops-sim/internal/telemetry"
)

const (
	outputAuto  = "auto"
	outputJSON  = "json"
	outputColor = "color"
	outputTUI   = "tui"
)

func stdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// consoleWriter picks the STDOUT writer. auto prints colour on a terminal and
// JSON lines otherwise.
func consoleWriter(cfg *config.Config, output string, isTTY func() bool) (sim.TelemetryWriter, error) {
	physics := cfg.PhysicsModel()
	switch output {
	case outputAuto:
		if isTTY() {
			return sim.NewColorStdoutWriter(cfg.VehicleID, physics), nil
		}
		return sim.NewJSONStdoutWriter(), nil
	case outputJSON:
		return sim.NewJSONStdoutWriter(), nil
	case outputColor:
		return sim.NewColorStdoutWriter(cfg.VehicleID, physics), nil
	case outputTUI:
		return sim.NewTUIWriter(cfg.VehicleID, physics), nil
	}
	return nil, fmt.Errorf("unknown output %q", output)
}

// newWriters builds the console writer plus every configured sink. With more
// than one writer they are combined in a MultiWriter. The cleanup function
// closes any resources.
func newWriters(cfg *config.Config, output string, isTTY func() bool) (sim.TelemetryWriter, func(), error) {
	console, err := consoleWriter(cfg, output, isTTY)
	if err != nil {
		return nil, nil, err
	}
	writers := []sim.TelemetryWriter{console}
	closeAll := func() {
		for _, w := range writers {
			if c, ok := w.(io.Closer); ok {
				_ = c.Close()
			}
		}
	}

	sinks := cfg.Sinks
	if sinks.File.Telemetry != "" {
		fw, err := sim.NewFileWriter(sinks.File.Telemetry, sinks.File.MissionLog)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		writers = append(writers, fw)
	}
	if sinks.Greptime.Endpoint != "" {
		gw, err := sim.NewGreptimeDBWriter(sinks.Greptime.Endpoint, sinks.Greptime.Database,
			orDefault(sinks.Greptime.TelemetryTable, telemetry.TelemetryTableName),
			orDefault(sinks.Greptime.LogTable, telemetry.MissionLogTableName))
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		writers = append(writers, gw)
	}
	if sinks.Influx.URL != "" {
		iw, err := sim.NewInfluxWriter(sinks.Influx.URL, sinks.Influx.Token, sinks.Influx.Org, sinks.Influx.Bucket)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		writers = append(writers, iw)
	}

	if len(writers) == 1 {
		return console, closeAll, nil
	}
	logWriters := make([]sim.MissionLogWriter, 0, len(writers))
	for _, w := range writers {
		if lw, ok := w.(sim.MissionLogWriter); ok {
			logWriters = append(logWriters, lw)
		}
	}
	mw := sim.NewMultiWriter(writers, logWriters)
	return mw, func() { _ = mw.Close() }, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
