package scenario

import (
	"rovops-sim/internal/missionlog"
	"rovops-sim/internal/telemetry"
)

// searchPromptTicks is how long the vehicle searches before the target shows up.
const searchPromptTicks = 30

// nominal descends to target depth, searches, waits for a sample and returns.
type nominal struct {
	physics telemetry.Physics
}

func (s *nominal) Name() Name { return Nominal }

func (s *nominal) Advance(st *State, log Logger) {
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

	if st.Mission == telemetry.MissionSearching && st.Timer > searchPromptTicks && !st.Alert.Active {
		st.Alert = telemetry.Raise(telemetry.SeverityInfo, "Bioluminescent signature detected. Ready to deploy manipulator arm.")
		log.Add(missionlog.LevelInfo, "Bioluminescent signature detected. Awaiting operator action.")
	}

	// Thrust for the climb is engaged by the physics autopilot.
	if v.ManipulatorArm.SampleCollected && st.Mission != telemetry.MissionReturning {
		st.Alert = telemetry.Alert{}
		st.SetMission(log, missionlog.LevelInfo, telemetry.MissionReturning)
	}

	if st.Mission == telemetry.MissionReturning && v.Environment.DepthMeters <= 0 {
		v.Propulsion.Status = telemetry.PropulsionInactive
		st.Running = false
		st.SetMission(log, missionlog.LevelInfo, telemetry.MissionSuccess)
	}
}
