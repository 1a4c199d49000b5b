package sim

import (
	"encoding/json"
	"errors"
	"fmt"

	"rovops-sim/internal/missionlog"
	"rovops-sim/internal/scenario"
	"rovops-sim/internal/telemetry"
)

// Command names accepted on the wire.
const (
	CmdStartSimulation    = "START_SIMULATION"
	CmdSetPropulsionState = "SET_PROPULSION_STATE"
	CmdDeployArm          = "DEPLOY_ARM"
	CmdCollectSample      = "COLLECT_SAMPLE"
	CmdJettisonPackage    = "JETTISON_PACKAGE"
	CmdResetSimulation    = "RESET_SIMULATION"
)

// CommandNames lists every known command, for metric labels.
var CommandNames = []string{
	CmdStartSimulation,
	CmdSetPropulsionState,
	CmdDeployArm,
	CmdCollectSample,
	CmdJettisonPackage,
	CmdResetSimulation,
}

// ErrMalformedCommand is returned when a command envelope is not valid JSON.
var ErrMalformedCommand = errors.New("malformed command")

// Command is an operator instruction applied at the start of a tick.
// The set of implementations is closed.
type Command interface {
	Name() string
	command()
}

// StartSimulation resets the vehicle and begins a scenario. Scenario is
// validated when the command is applied.
type StartSimulation struct {
	Scenario scenario.Name
}

// SetPropulsionState hands propulsion to the operator for the rest of the run.
type SetPropulsionState struct {
	Status telemetry.PropulsionStatus
}

// DeployArm unfolds a stowed manipulator arm.
type DeployArm struct{}

// CollectSample grips a sample with a deployed arm.
type CollectSample struct{}

// JettisonPackage drops the science package.
type JettisonPackage struct{}

// ResetSimulation returns the simulator to standby.
type ResetSimulation struct{}

// UnknownCommand carries any command name outside the known set.
type UnknownCommand struct {
	Command string
}

func (StartSimulation) Name() string    { return CmdStartSimulation }
func (SetPropulsionState) Name() string { return CmdSetPropulsionState }
func (DeployArm) Name() string          { return CmdDeployArm }
func (CollectSample) Name() string      { return CmdCollectSample }
func (JettisonPackage) Name() string    { return CmdJettisonPackage }
func (ResetSimulation) Name() string    { return CmdResetSimulation }
func (c UnknownCommand) Name() string   { return c.Command }

func (StartSimulation) command()    {}
func (SetPropulsionState) command() {}
func (DeployArm) command()          {}
func (CollectSample) command()      {}
func (JettisonPackage) command()    {}
func (ResetSimulation) command()    {}
func (UnknownCommand) command()     {}

type envelope struct {
	Command string          `json:"command"`
	Payload json.RawMessage `json:"payload"`
}

// DecodeCommand parses a {"command": ..., "payload": {...}} message.
// Missing or mistyped payload fields yield a command that no-ops when applied.
func DecodeCommand(data []byte) (Command, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCommand, err)
	}
	payload := map[string]any{}
	if len(env.Payload) > 0 {
		// Non-object payloads are treated as empty.
		_ = json.Unmarshal(env.Payload, &payload)
	}

	switch env.Command {
	case CmdStartSimulation:
		return StartSimulation{Scenario: scenario.Name(stringField(payload, "scenario"))}, nil
	case CmdSetPropulsionState:
		return SetPropulsionState{Status: telemetry.PropulsionStatus(rawField(payload, "status"))}, nil
	case CmdDeployArm:
		return DeployArm{}, nil
	case CmdCollectSample:
		return CollectSample{}, nil
	case CmdJettisonPackage:
		return JettisonPackage{}, nil
	case CmdResetSimulation:
		return ResetSimulation{}, nil
	}
	return UnknownCommand{Command: env.Command}, nil
}

func stringField(payload map[string]any, key string) string {
	s, _ := payload[key].(string)
	return s
}

// rawField is stringField that keeps non-string values as their JSON text, so
// the operator log records what was actually sent.
func rawField(payload map[string]any, key string) string {
	switch v := payload[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// apply runs a command against the simulator state. Callers hold s.mu.
func (s *Simulator) apply(cmd Command) {
	switch c := cmd.(type) {
	case StartSimulation:
		s.startScenario(c.Scenario)
	case SetPropulsionState:
		s.log.Addf(missionlog.LevelOperator, "Command Sent: SET_PROPULSION_STATE(%s).", c.Status)
		s.setPropulsion(c.Status)
	case DeployArm:
		s.log.Add(missionlog.LevelOperator, "Command Sent: DEPLOY_ARM.")
		arm := &s.state.Vehicle.ManipulatorArm
		if arm.Status == telemetry.ArmStowed {
			arm.Status = telemetry.ArmDeployed
			s.log.Addf(missionlog.LevelInfo, "Manipulator arm status changed to '%s'.", telemetry.ArmDeployed)
		}
	case CollectSample:
		s.log.Add(missionlog.LevelOperator, "Command Sent: COLLECT_SAMPLE.")
		arm := &s.state.Vehicle.ManipulatorArm
		if arm.Status == telemetry.ArmDeployed {
			arm.Status = telemetry.ArmGripping
			arm.SampleCollected = true
			s.log.Add(missionlog.LevelInfo, "Sample collected successfully.")
		}
	case JettisonPackage:
		s.log.Add(missionlog.LevelOperator, "Command Sent: JETTISON_PACKAGE.")
		s.jettison()
	case ResetSimulation:
		s.resetLocked()
		s.log.Add(missionlog.LevelInfo, "Simulation reset to standby.")
	case UnknownCommand:
		s.log.Addf(missionlog.LevelWarning, "Unknown command: %s", c.Command)
	}
}

func (s *Simulator) startScenario(raw scenario.Name) {
	name, ok := scenario.ParseName(string(raw))
	if !ok {
		s.log.Addf(missionlog.LevelWarning, "Attempted to start unknown scenario: %s", raw)
		return
	}
	sc, err := scenario.New(name, s.physics)
	if err != nil {
		s.log.Addf(missionlog.LevelWarning, "Attempted to start unknown scenario: %s", raw)
		return
	}
	s.resetLocked()
	s.active = sc
	s.runID = newRunID()
	s.state.Running = true
	s.log.Addf(missionlog.LevelInfo, "Scenario Started: %s.", name.Title())
	s.state.SetMission(s.log, missionlog.LevelInfo, telemetry.MissionEnRoute)
}

func (s *Simulator) setPropulsion(raw telemetry.PropulsionStatus) {
	status, ok := telemetry.ParsePropulsionStatus(string(raw))
	if !ok {
		return
	}
	s.state.Vehicle.Propulsion.Status = status
	s.state.Override = true

	hull := &s.state.Vehicle.HullIntegrity
	if s.activeName() == scenario.PressureAnomaly && status == telemetry.PropulsionInactive &&
		(hull.Status == telemetry.HullWarning || hull.Status == telemetry.HullCritical) {
		// Depth is left where it is.
		hull.Status = telemetry.HullNominal
		s.state.Alert = telemetry.Alert{}
		s.state.Timer = 0
		s.log.Add(missionlog.LevelInfo, "Hull pressure returned to nominal.")
		s.log.Add(missionlog.LevelInfo, "Operator intervention successful.")
	}
}

func (s *Simulator) jettison() {
	v := &s.state.Vehicle
	if v.SciencePackage.Status != telemetry.PackageAttached {
		return
	}
	v.SciencePackage.Status = telemetry.PackageJettisoned
	if v.Power.Status != telemetry.PowerFault || s.state.Mission.Terminal() {
		return
	}
	v.Power.Status = telemetry.PowerDischarging
	v.Propulsion.Status = telemetry.PropulsionActive
	s.state.Alert = telemetry.Alert{}
	s.state.Override = true
	s.log.Add(missionlog.LevelInfo, "Science package jettisoned. Power drain stabilized.")
	s.state.SetMission(s.log, missionlog.LevelInfo, telemetry.MissionEmergencyAscent)
}
