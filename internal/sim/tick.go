package sim

import (
	"context"
	"time"

	"rovops-sim/internal/logging"
)

// Run drives the simulation at the configured tick interval until ctx is
// done. Each tick applies at most one queued command, in arrival order.
// Run must be the only caller of Tick while it is running.
func (s *Simulator) Run(ctx context.Context) {
	log := logging.FromContext(ctx).With("vehicle_id", s.vehicleID)
	log.Info("starting simulator", "tick_interval", s.tickInterval)
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	status := s.Snapshot().Mission.Status
	for {
		select {
		case <-ticker.C:
			cmd := s.nextCommand()
			if cmd != nil {
				log.Debug("applying command", "command", cmd.Name())
			}
			snap := s.Tick(ctx, cmd)
			if snap.Mission.Status != status {
				status = snap.Mission.Status
				log.Info("mission status changed", "scenario", s.ActiveScenario(), "mission_status", status)
			}
		case <-ctx.Done():
			log.Info("stopping simulator")
			return
		}
	}
}

// nextCommand returns a queued command or nil when none is waiting.
func (s *Simulator) nextCommand() Command {
	select {
	case cmd := <-s.commands:
		return cmd
	default:
		return nil
	}
}
