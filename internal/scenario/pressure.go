package scenario

import (
	"rovops-sim/internal/missionlog"
	"rovops-sim/internal/telemetry"
)

const (
	// warningEscalationTicks is how long a hull warning may persist before it turns critical.
	warningEscalationTicks = 30
	// criticalBreachTicks is how long a critical hull survives before it breaches.
	criticalBreachTicks = 15
)

// pressureAnomaly keeps descending past the rated depth until the operator
// stops the vehicle or the hull breaches.
type pressureAnomaly struct {
	physics telemetry.Physics
}

func (s *pressureAnomaly) Name() Name { return PressureAnomaly }

func (s *pressureAnomaly) Advance(st *State, log Logger) {
	// Any operator propulsion command hands the run over to the operator.
	if st.Override {
		return
	}
	hull := &st.Vehicle.HullIntegrity

	if st.Mission == telemetry.MissionEnRoute {
		st.Vehicle.Propulsion.Status = telemetry.PropulsionActive
	}

	if hull.Status == telemetry.HullNominal && float64(hull.HullPressureKPa) > s.physics.WarningThreshold() {
		hull.Status = telemetry.HullWarning
		st.Timer = 0
		st.Alert = telemetry.Raise(telemetry.SeverityWarning, "Hull pressure exceeds nominal limits. Halt descent.")
		log.Add(missionlog.LevelWarning, "Hull pressure exceeds nominal limits.")
	}

	if hull.Status == telemetry.HullWarning && st.Timer > warningEscalationTicks {
		hull.Status = telemetry.HullCritical
		st.Timer = 0
		st.Alert = telemetry.Raise(telemetry.SeverityCritical, "CRITICAL: Hull pressure at dangerous levels!")
		log.Add(missionlog.LevelCritical, "Hull pressure has reached a critical level!")
	}

	if hull.Status == telemetry.HullCritical && st.Timer > criticalBreachTicks {
		st.Running = false
		st.SetMission(log, missionlog.LevelCritical, telemetry.MissionFailureHullBreach)
	}
}
