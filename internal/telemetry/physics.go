package telemetry

import "math"

const (
	// cruisePowerLevel is the thruster output reported while propulsion is active.
	cruisePowerLevel = 75.0

	baseDrainPerTick       = 0.01
	faultDrainPerTick      = 1.5
	propulsionDrainPerTick = 0.1

	warningPressureFactor  = 1.1
	criticalPressureFactor = 1.2
	maxDepthFactor         = 1.5
)

// Physics holds the tunable constants for depth, pressure and battery.
type Physics struct {
	TargetDepth      float64 // meters
	DescentRate      float64 // meters per tick
	AscentRate       float64 // meters per tick
	PressurePerMeter float64 // kPa per meter
	WaterTempCelsius float64
}

// DefaultPhysics returns the constants used by the training scenarios.
func DefaultPhysics() Physics {
	return Physics{
		TargetDepth:      2000,
		DescentRate:      25,
		AscentRate:       20,
		PressurePerMeter: 9.807,
		WaterTempCelsius: 18.0,
	}
}

// WarningThreshold is the hull pressure in kPa above which the pressure
// anomaly scenario raises a warning.
func (p Physics) WarningThreshold() float64 {
	return p.TargetDepth * p.PressurePerMeter * warningPressureFactor
}

// CriticalThreshold is the nominal critical hull pressure in kPa.
func (p Physics) CriticalThreshold() float64 {
	return p.TargetDepth * p.PressurePerMeter * criticalPressureFactor
}

// MaxDepth is the floor the vehicle never descends past.
func (p Physics) MaxDepth() float64 {
	return p.TargetDepth * maxDepthFactor
}

// Pressure derives hull pressure from depth.
func (p Physics) Pressure(depth float64) int {
	return int(depth * p.PressurePerMeter)
}

// Step advances depth, pressure and battery by one tick and returns the new
// state. It does not touch mission state.
func (p Physics) Step(v VehicleState, mission MissionStatus) VehicleState {
	// Autopilot keeps thrusters on during any ascent, regardless of operator input.
	if mission.Ascending() {
		v.Propulsion.Status = PropulsionActive
	}
	active := v.Propulsion.Status == PropulsionActive

	depth := v.Environment.DepthMeters
	if active {
		switch {
		case mission.Descending():
			depth = math.Min(p.MaxDepth(), depth+p.DescentRate)
		case mission.Ascending():
			depth = math.Max(0, depth-p.AscentRate)
		}
	}
	v.Environment.DepthMeters = depth
	v.HullIntegrity.HullPressureKPa = p.Pressure(depth)

	if active {
		v.Propulsion.PowerLevelPercent = cruisePowerLevel
	} else {
		v.Propulsion.PowerLevelPercent = 0
	}

	v.Power.ChargePercent = math.Max(0, v.Power.ChargePercent-batteryDrain(v))
	return v
}

// batteryDrain returns charge consumed per tick. Fault and thrust penalties stack.
func batteryDrain(v VehicleState) float64 {
	drain := baseDrainPerTick
	if v.Power.Status == PowerFault {
		drain += faultDrainPerTick
	}
	if v.Propulsion.Status == PropulsionActive {
		drain += propulsionDrainPerTick
	}
	return drain
}
