package sim

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"rovops-sim/internal/telemetry"
)

// JSONStdoutWriter prints telemetry and mission log rows as JSON lines.
type JSONStdoutWriter struct {
	out io.Writer
}

// NewJSONStdoutWriter creates a JSONStdoutWriter writing to os.Stdout.
func NewJSONStdoutWriter() *JSONStdoutWriter {
	return &JSONStdoutWriter{out: os.Stdout}
}

// Write outputs a telemetry row in JSON format.
func (w *JSONStdoutWriter) Write(row telemetry.Row) error {
	return w.print(row)
}

// WriteBatch outputs multiple telemetry rows in JSON format.
func (w *JSONStdoutWriter) WriteBatch(rows []telemetry.Row) error {
	for _, r := range rows {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteLog outputs a mission log row in JSON format.
func (w *JSONStdoutWriter) WriteLog(row telemetry.LogRow) error {
	return w.print(row)
}

// WriteLogs outputs multiple mission log rows in JSON format.
func (w *JSONStdoutWriter) WriteLogs(rows []telemetry.LogRow) error {
	for _, r := range rows {
		if err := w.WriteLog(r); err != nil {
			return err
		}
	}
	return nil
}

func (w *JSONStdoutWriter) print(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w.out, string(data))
	return err
}
