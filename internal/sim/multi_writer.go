package sim

import (
	"errors"
	"io"

	"rovops-sim/internal/telemetry"
)

// MultiWriter fans telemetry and mission log rows out to multiple writers.
// A failing writer does not stop delivery to the others.
type MultiWriter struct {
	telewriters []TelemetryWriter
	logwriters  []MissionLogWriter
}

// NewMultiWriter creates a new MultiWriter.
func NewMultiWriter(tws []TelemetryWriter, lws []MissionLogWriter) *MultiWriter {
	return &MultiWriter{telewriters: tws, logwriters: lws}
}

// Write sends a telemetry row to all writers.
func (mw *MultiWriter) Write(row telemetry.Row) error {
	var errs []error
	for _, w := range mw.telewriters {
		if err := w.Write(row); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WriteBatch sends multiple telemetry rows to all writers, using batch if supported.
func (mw *MultiWriter) WriteBatch(rows []telemetry.Row) error {
	var errs []error
	for _, w := range mw.telewriters {
		if bw, ok := w.(batchWriter); ok {
			if err := bw.WriteBatch(rows); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		for _, r := range rows {
			if err := w.Write(r); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// WriteLog sends a mission log row to all log writers.
func (mw *MultiWriter) WriteLog(row telemetry.LogRow) error {
	var errs []error
	for _, w := range mw.logwriters {
		if err := w.WriteLog(row); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WriteLogs sends multiple mission log rows to all log writers, using batch if supported.
func (mw *MultiWriter) WriteLogs(rows []telemetry.LogRow) error {
	var errs []error
	for _, w := range mw.logwriters {
		if bw, ok := w.(batchLogWriter); ok {
			if err := bw.WriteLogs(rows); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		for _, r := range rows {
			if err := w.WriteLog(r); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// SetCommander forwards the command submitter to writers that accept commands.
func (mw *MultiWriter) SetCommander(fn func(Command) bool) {
	for _, w := range mw.telewriters {
		if cs, ok := w.(CommandSource); ok {
			cs.SetCommander(fn)
		}
	}
}

// SetAdminStatus forwards admin server status to writers that display it.
func (mw *MultiWriter) SetAdminStatus(listening bool) {
	for _, w := range mw.telewriters {
		if aw, ok := w.(AdminStatusWriter); ok {
			aw.SetAdminStatus(listening)
		}
	}
}

// Close closes every writer that holds resources.
func (mw *MultiWriter) Close() error {
	var errs []error
	seen := map[any]bool{}
	closeOne := func(w any) {
		if seen[w] {
			return
		}
		seen[w] = true
		if c, ok := w.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	for _, w := range mw.telewriters {
		closeOne(w)
	}
	for _, w := range mw.logwriters {
		closeOne(w)
	}
	return errors.Join(errs...)
}
