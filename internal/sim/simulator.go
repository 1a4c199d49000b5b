// Simulator owning the vehicle, scenario engine and mission log
package sim

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"rovops-sim/internal/logging"
	"rovops-sim/internal/metrics"
	"rovops-sim/internal/missionlog"
	"rovops-sim/internal/scenario"
	"rovops-sim/internal/telemetry"
)

// TelemetryWriter is an interface to support different output writers.
type TelemetryWriter interface {
	Write(telemetry.Row) error
}

// Optional: Writers can also support batch mode
type batchWriter interface {
	WriteBatch([]telemetry.Row) error
}

// commandQueueSize bounds commands waiting for the next tick.
const commandQueueSize = 64

// Simulator is the single authoritative ROV simulation. All state changes go
// through Tick, Reset or a queued command, serialised by mu.
type Simulator struct {
	vehicleID    string
	physics      telemetry.Physics
	tickInterval time.Duration
	now          func() time.Time

	mu     sync.Mutex
	state  scenario.State
	active scenario.Scenario
	log    *missionlog.Log
	runID  string

	// emitMu serialises sink and stream output. Tick takes it before
	// releasing mu, so output follows state order for any number of callers.
	emitMu    sync.Mutex
	writer    TelemetryWriter
	logWriter MissionLogWriter
	metrics   *metrics.Collector
	hub       *Hub

	commands chan Command
}

// NewSimulator creates a simulator in standby. writer may be nil; if it also
// implements MissionLogWriter it receives mission log entries too. A nil now
// uses time.Now.
func NewSimulator(vehicleID string, physics telemetry.Physics, writer TelemetryWriter, tickInterval time.Duration, now func() time.Time) *Simulator {
	if now == nil {
		now = time.Now
	}
	s := &Simulator{
		vehicleID:    vehicleID,
		physics:      physics,
		tickInterval: tickInterval,
		now:          now,
		log:          missionlog.New(now),
		writer:       writer,
		hub:          NewHub(),
		commands:     make(chan Command, commandQueueSize),
	}
	if lw, ok := writer.(MissionLogWriter); ok {
		s.logWriter = lw
	}
	if cs, ok := writer.(CommandSource); ok {
		cs.SetCommander(s.Submit)
	}
	s.state = scenario.Standby(physics)
	return s
}

// SetMetrics attaches a Prometheus collector.
func (s *Simulator) SetMetrics(m *metrics.Collector) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	s.metrics = m
}

// Hub returns the snapshot broadcaster.
func (s *Simulator) Hub() *Hub { return s.hub }

// VehicleID returns the identifier attached to sink rows.
func (s *Simulator) VehicleID() string { return s.vehicleID }

// Tick applies cmd (which may be nil), advances the active scenario and the
// physics by one step, and returns the resulting snapshot. It never fails.
func (s *Simulator) Tick(ctx context.Context, cmd Command) telemetry.Snapshot {
	s.mu.Lock()
	if cmd != nil {
		s.apply(cmd)
	}
	running := s.state.Running
	if running {
		s.state.Timer++
		if s.active != nil {
			s.active.Advance(&s.state, s.log)
		}
		s.state.Vehicle = s.physics.Step(s.state.Vehicle, s.state.Mission)
	}
	snap := s.snapshotLocked()
	row := telemetry.NewRow(s.vehicleID, s.runID, string(s.activeName()), snap)
	var logRows []telemetry.LogRow
	for _, e := range s.log.Drain() {
		logRows = append(logRows, telemetry.NewLogRow(s.vehicleID, s.runID, e))
	}
	stillRunning := s.state.Running
	s.emitMu.Lock()
	s.mu.Unlock()

	s.emitLocked(ctx, cmd, snap, stillRunning, row, logRows)
	s.emitMu.Unlock()
	return snap
}

// Reset returns the simulator to canonical standby and clears the mission log.
func (s *Simulator) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

func (s *Simulator) resetLocked() {
	s.state = scenario.Standby(s.physics)
	s.active = nil
	s.runID = ""
	s.log.Reset()
}

// MissionLogLen returns the number of retained mission log entries.
func (s *Simulator) MissionLogLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.Len()
}

// MissionLog returns the mission log in insertion order.
func (s *Simulator) MissionLog() []missionlog.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.Entries()
}

// Snapshot returns the current state without advancing it.
func (s *Simulator) Snapshot() telemetry.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Running reports whether a scenario is in progress.
func (s *Simulator) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Running
}

// ActiveScenario returns the scenario of the current run, or "" after a reset.
func (s *Simulator) ActiveScenario() scenario.Name {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeName()
}

// RunID identifies the current run. It changes on every successful
// START_SIMULATION and is empty in standby.
func (s *Simulator) RunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runID
}

// Submit queues a command for the next tick of Run. It reports false when the
// queue is full.
func (s *Simulator) Submit(cmd Command) bool {
	select {
	case s.commands <- cmd:
		return true
	default:
		return false
	}
}

func (s *Simulator) activeName() scenario.Name {
	if s.active == nil {
		return ""
	}
	return s.active.Name()
}

func (s *Simulator) snapshotLocked() telemetry.Snapshot {
	return telemetry.Snapshot{
		Timestamp: s.now().UTC(),
		Vehicle:   s.state.Vehicle,
		Mission:   telemetry.MissionState{Status: s.state.Mission},
		Alert:     s.state.Alert,
	}
}

// emitLocked fans a tick's output out to metrics, sinks and stream
// subscribers. Callers hold s.emitMu. Sink failures are logged and never stop
// the simulation.
func (s *Simulator) emitLocked(ctx context.Context, cmd Command, snap telemetry.Snapshot, running bool, row telemetry.Row, logRows []telemetry.LogRow) {
	log := logging.FromContext(ctx)

	if cmd != nil {
		s.metrics.CommandApplied(cmd.Name())
	}
	s.metrics.ObserveTick(snap, running)

	if s.writer != nil {
		if err := s.writer.Write(row); err != nil {
			s.metrics.WriteFailed("telemetry")
			log.Error("telemetry write failed", "vehicle_id", row.VehicleID, "err", err)
		}
	}

	if len(logRows) > 0 && s.logWriter != nil {
		if bw, ok := s.logWriter.(batchLogWriter); ok {
			if err := bw.WriteLogs(logRows); err != nil {
				s.metrics.WriteFailed("mission_log")
				log.Error("mission log batch write failed", "err", err)
			}
		} else {
			for _, r := range logRows {
				if err := s.logWriter.WriteLog(r); err != nil {
					s.metrics.WriteFailed("mission_log")
					log.Error("mission log write failed", "err", err)
				}
			}
		}
	}

	s.metrics.FramesDropped(s.hub.Broadcast(snap))
}

func newRunID() string {
	return uuid.NewString()
}
