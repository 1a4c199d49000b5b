// Vehicle state model and telemetry snapshot types
package telemetry

import "time"

// PowerStatus describes the battery subsystem.
type PowerStatus string

// Power status constants.
const (
	PowerDischarging PowerStatus = "discharging"
	PowerFault       PowerStatus = "fault"
)

// PropulsionStatus describes whether thrusters are engaged.
type PropulsionStatus string

// Propulsion status constants.
const (
	PropulsionActive   PropulsionStatus = "active"
	PropulsionInactive PropulsionStatus = "inactive"
)

// ParsePropulsionStatus validates an operator supplied propulsion status.
func ParsePropulsionStatus(s string) (PropulsionStatus, bool) {
	switch PropulsionStatus(s) {
	case PropulsionActive, PropulsionInactive:
		return PropulsionStatus(s), true
	}
	return "", false
}

// HullStatus describes hull integrity escalation.
type HullStatus string

// Hull status constants.
const (
	HullNominal  HullStatus = "nominal"
	HullWarning  HullStatus = "warning"
	HullCritical HullStatus = "critical"
)

// ArmStatus describes the manipulator arm.
type ArmStatus string

// Manipulator arm status constants.
const (
	ArmStowed   ArmStatus = "stowed"
	ArmDeployed ArmStatus = "deployed"
	ArmGripping ArmStatus = "gripping"
)

// PackageStatus describes the science package.
type PackageStatus string

// Science package status constants.
const (
	PackageAttached   PackageStatus = "attached"
	PackageJettisoned PackageStatus = "jettisoned"
)

// Power holds battery telemetry.
type Power struct {
	ChargePercent float64     `json:"charge_percent"`
	Status        PowerStatus `json:"status"`
}

// Propulsion holds thruster telemetry.
type Propulsion struct {
	PowerLevelPercent float64          `json:"power_level_percent"`
	Status            PropulsionStatus `json:"status"`
}

// HullIntegrity holds hull pressure telemetry. HullPressureKPa is always
// derived from depth by the physics step.
type HullIntegrity struct {
	HullPressureKPa int        `json:"hull_pressure_kpa"`
	Status          HullStatus `json:"status"`
}

// ManipulatorArm holds arm telemetry.
type ManipulatorArm struct {
	Status          ArmStatus `json:"status"`
	SampleCollected bool      `json:"sample_collected"`
}

// SciencePackage holds payload telemetry.
type SciencePackage struct {
	Status PackageStatus `json:"status"`
}

// Environment holds the vehicle's surroundings.
type Environment struct {
	DepthMeters      float64 `json:"depth_meters"`
	WaterTempCelsius float64 `json:"water_temp_celsius"`
}

// VehicleState is the full set of vehicle attributes. It contains only values,
// so copying it yields an independent snapshot.
type VehicleState struct {
	Power          Power          `json:"power"`
	Propulsion     Propulsion     `json:"propulsion"`
	HullIntegrity  HullIntegrity  `json:"hull_integrity"`
	ManipulatorArm ManipulatorArm `json:"manipulator_arm"`
	SciencePackage SciencePackage `json:"science_package"`
	Environment    Environment    `json:"environment"`
}

// StandbyVehicle returns the canonical surfaced, fully charged vehicle.
func StandbyVehicle(waterTempCelsius float64) VehicleState {
	return VehicleState{
		Power:          Power{ChargePercent: 100.0, Status: PowerDischarging},
		Propulsion:     Propulsion{PowerLevelPercent: 0.0, Status: PropulsionInactive},
		HullIntegrity:  HullIntegrity{HullPressureKPa: 0, Status: HullNominal},
		ManipulatorArm: ManipulatorArm{Status: ArmStowed, SampleCollected: false},
		SciencePackage: SciencePackage{Status: PackageAttached},
		Environment:    Environment{DepthMeters: 0.0, WaterTempCelsius: waterTempCelsius},
	}
}

// MissionStatus is the mission phase.
type MissionStatus string

// Mission status constants.
const (
	MissionStandby           MissionStatus = "standby"
	MissionEnRoute           MissionStatus = "en_route"
	MissionSearching         MissionStatus = "searching"
	MissionReturning         MissionStatus = "returning"
	MissionSuccess           MissionStatus = "mission_success"
	MissionEmergencyAscent   MissionStatus = "emergency_ascent"
	MissionFailureHullBreach MissionStatus = "mission_failure_hull_breach"
	MissionFailureLostSignal MissionStatus = "mission_failure_lost_signal"
)

// MissionStatuses lists every mission status in lifecycle order.
var MissionStatuses = []MissionStatus{
	MissionStandby,
	MissionEnRoute,
	MissionSearching,
	MissionReturning,
	MissionSuccess,
	MissionEmergencyAscent,
	MissionFailureHullBreach,
	MissionFailureLostSignal,
}

// Terminal reports whether only a reset can leave this status.
func (m MissionStatus) Terminal() bool {
	switch m {
	case MissionSuccess, MissionFailureHullBreach, MissionFailureLostSignal:
		return true
	}
	return false
}

// Descending reports whether active propulsion drives the vehicle down.
func (m MissionStatus) Descending() bool {
	return m == MissionEnRoute || m == MissionSearching
}

// Ascending reports whether the autopilot is bringing the vehicle up.
func (m MissionStatus) Ascending() bool {
	return m == MissionReturning || m == MissionEmergencyAscent
}

// MissionState wraps the mission status for the wire format.
type MissionState struct {
	Status MissionStatus `json:"status"`
}

// Severity grades an operator alert.
type Severity string

// Alert severity constants.
const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// Alert is the single live operator notification. The zero value is "no alert".
type Alert struct {
	Active   bool     `json:"active"`
	Severity Severity `json:"severity,omitempty"`
	Message  string   `json:"message,omitempty"`
}

// Raise returns an active alert.
func Raise(severity Severity, message string) Alert {
	return Alert{Active: true, Severity: severity, Message: message}
}

// Snapshot is an immutable copy of the simulator's observable state.
type Snapshot struct {
	Timestamp time.Time    `json:"timestamp"`
	Vehicle   VehicleState `json:"rov_state"`
	Mission   MissionState `json:"mission_state"`
	Alert     Alert        `json:"alert"`
}
