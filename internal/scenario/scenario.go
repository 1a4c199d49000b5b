// Package scenario implements the scripted mission state machines.
package scenario

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"rovops-sim/internal/missionlog"
	"rovops-sim/internal/telemetry"
)

// Name identifies a scripted scenario.
type Name string

// Scenario names accepted by START_SIMULATION.
const (
	Nominal         Name = "nominal"
	PressureAnomaly Name = "pressure_anomaly"
	PowerFault      Name = "power_fault"
)

// ParseName validates a scenario name.
func ParseName(s string) (Name, bool) {
	switch Name(s) {
	case Nominal, PressureAnomaly, PowerFault:
		return Name(s), true
	}
	return "", false
}

var titler = cases.Title(language.English)

// Title returns the human readable name, e.g. "Pressure Anomaly".
func (n Name) Title() string {
	return titler.String(strings.ReplaceAll(string(n), "_", " "))
}

// Logger receives mission log entries emitted while advancing.
type Logger interface {
	Add(level missionlog.Level, msg string)
}

// State is the simulator's mutable aggregate shared by the scenario engine and
// the command processor. Timer counts ticks since a scenario transition last
// reset it. Override is sticky for the run: once an operator touches
// propulsion, scenarios stop forcing it.
type State struct {
	Vehicle  telemetry.VehicleState
	Mission  telemetry.MissionStatus
	Alert    telemetry.Alert
	Timer    int
	Running  bool
	Override bool
}

// Standby returns the canonical state after a reset.
func Standby(p telemetry.Physics) State {
	return State{
		Vehicle: telemetry.StandbyVehicle(p.WaterTempCelsius),
		Mission: telemetry.MissionStandby,
	}
}

// SetMission changes the mission status and records the change.
func (st *State) SetMission(log Logger, level missionlog.Level, status telemetry.MissionStatus) {
	st.Mission = status
	log.Add(level, fmt.Sprintf("Mission status changed to '%s'.", status))
}

// forcePropulsion applies scenario-driven thruster changes unless the operator
// has taken control.
func (st *State) forcePropulsion(status telemetry.PropulsionStatus) {
	if !st.Override {
		st.Vehicle.Propulsion.Status = status
	}
}

// Scenario advances mission state and alerts for one tick. Numeric advancement
// is left to the physics step that follows.
type Scenario interface {
	Name() Name
	Advance(st *State, log Logger)
}

// New returns the scenario registered under name.
func New(name Name, p telemetry.Physics) (Scenario, error) {
	switch name {
	case Nominal:
		return &nominal{physics: p}, nil
	case PressureAnomaly:
		return &pressureAnomaly{physics: p}, nil
	case PowerFault:
		return &powerFault{physics: p}, nil
	}
	return nil, fmt.Errorf("unknown scenario %q", name)
}
