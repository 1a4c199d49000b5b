package sim

import (
	"encoding/json"
	"os"

	"rovops-sim/internal/telemetry"
)

// FileWriter writes telemetry and mission log rows to JSONL files.
type FileWriter struct {
	teleFile *os.File
	logFile  *os.File
	teleEnc  *json.Encoder
	logEnc   *json.Encoder
}

// NewFileWriter creates a FileWriter. logPath may be empty to skip the mission log.
func NewFileWriter(telemetryPath, logPath string) (*FileWriter, error) {
	tf, err := os.Create(telemetryPath)
	if err != nil {
		return nil, err
	}
	fw := &FileWriter{teleFile: tf, teleEnc: json.NewEncoder(tf)}
	if logPath != "" {
		lf, err := os.Create(logPath)
		if err != nil {
			tf.Close()
			return nil, err
		}
		fw.logFile = lf
		fw.logEnc = json.NewEncoder(lf)
	}
	return fw, nil
}

// Write logs a single telemetry row.
func (f *FileWriter) Write(row telemetry.Row) error {
	return f.teleEnc.Encode(row)
}

// WriteBatch logs multiple telemetry rows.
func (f *FileWriter) WriteBatch(rows []telemetry.Row) error {
	for _, r := range rows {
		if err := f.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteLog logs a mission log row, if enabled.
func (f *FileWriter) WriteLog(row telemetry.LogRow) error {
	if f.logEnc == nil {
		return nil
	}
	return f.logEnc.Encode(row)
}

// WriteLogs logs multiple mission log rows.
func (f *FileWriter) WriteLogs(rows []telemetry.LogRow) error {
	for _, r := range rows {
		if err := f.WriteLog(r); err != nil {
			return err
		}
	}
	return nil
}

// Close closes any underlying files.
func (f *FileWriter) Close() error {
	var err error
	if f.teleFile != nil {
		if e := f.teleFile.Close(); e != nil && err == nil {
			err = e
		}
	}
	if f.logFile != nil {
		if e := f.logFile.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}
