package scenario

import (
	"rovops-sim/internal/missionlog"
	"rovops-sim/internal/telemetry"
)

// faultOnsetTicks is how long the vehicle searches before the power fault hits.
const faultOnsetTicks = 10

// powerFault descends, then suffers a catastrophic battery drain that only
// jettisoning the science package can stop.
type powerFault struct {
	physics telemetry.Physics
}

func (s *powerFault) Name() Name { return PowerFault }

func (s *powerFault) Advance(st *State, log Logger) {
	v := &st.Vehicle

	if st.Mission == telemetry.MissionEnRoute {
		if v.Environment.DepthMeters >= s.physics.TargetDepth {
			st.SetMission(log, missionlog.LevelInfo, telemetry.MissionSearching)
			st.forcePropulsion(telemetry.PropulsionInactive)
			st.Timer = 0
		} else {
			st.forcePropulsion(telemetry.PropulsionActive)
		}
	}

	if st.Mission == telemetry.MissionSearching && st.Timer > faultOnsetTicks && v.Power.Status != telemetry.PowerFault {
		v.Power.Status = telemetry.PowerFault
		st.Timer = 0
		st.Alert = telemetry.Raise(telemetry.SeverityCritical, "Power system fault! Catastrophic drain. Jettison package to save ROV.")
		log.Add(missionlog.LevelCritical, "Power system fault detected. Catastrophic battery drain.")
	}

	if v.Power.Status == telemetry.PowerFault && v.Power.ChargePercent <= 0 {
		st.Running = false
		st.Alert = telemetry.Raise(telemetry.SeverityCritical, "Battery at 0%. Signal lost.")
		log.Add(missionlog.LevelCritical, "Battery at 0%. Signal lost.")
		st.SetMission(log, missionlog.LevelCritical, telemetry.MissionFailureLostSignal)
	}

	if st.Mission == telemetry.MissionEmergencyAscent && v.Environment.DepthMeters <= 0 {
		st.Mission = telemetry.MissionSuccess
		st.Running = false
		st.Alert = telemetry.Alert{}
		log.Add(missionlog.LevelInfo, "ROV returned to surface successfully.")
	}
}
