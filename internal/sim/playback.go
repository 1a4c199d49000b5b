package sim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"rovops-sim/internal/telemetry"
)

// ReplayLog replays telemetry rows from r to writer. A speed >0 scales the
// recorded spacing between rows; speed <= 0 replays without delay. It stops
// early when ctx is done.
func ReplayLog(ctx context.Context, r io.Reader, writer TelemetryWriter, speed float64) error {
	dec := json.NewDecoder(r)
	var prev time.Time
	for line := 1; ; line++ {
		var row telemetry.Row
		if err := dec.Decode(&row); err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("decode row %d: %w", line, err)
		}
		if !prev.IsZero() && speed > 0 {
			diff := row.Timestamp.Sub(prev)
			if speed != 1 {
				diff = time.Duration(float64(diff) / speed)
			}
			if diff > 0 {
				select {
				case <-time.After(diff):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
		if err := writer.Write(row); err != nil {
			return err
		}
		prev = row.Timestamp
	}
}

// ReplayLogFile opens a file and replays its telemetry rows.
func ReplayLogFile(ctx context.Context, path string, writer TelemetryWriter, speed float64) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return ReplayLog(ctx, f, writer, speed)
}
