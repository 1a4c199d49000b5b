package telemetry

import (
	"math"
	"testing"
)

func TestPhysicsThresholds(t *testing.T) {
	p := DefaultPhysics()
	if got := p.WarningThreshold(); math.Abs(got-21575.4) > 1e-6 {
		t.Fatalf("warning threshold = %f, want 21575.4", got)
	}
	if got := p.CriticalThreshold(); math.Abs(got-23536.8) > 1e-6 {
		t.Fatalf("critical threshold = %f, want 23536.8", got)
	}
	if p.MaxDepth() != 3000 {
		t.Fatalf("max depth = %f, want 3000", p.MaxDepth())
	}
}

func TestStepDescendsWhenActive(t *testing.T) {
	p := DefaultPhysics()
	v := StandbyVehicle(p.WaterTempCelsius)
	v.Propulsion.Status = PropulsionActive

	next := p.Step(v, MissionEnRoute)
	if next.Environment.DepthMeters != 25 {
		t.Fatalf("depth = %f, want 25", next.Environment.DepthMeters)
	}
	if next.HullIntegrity.HullPressureKPa != 245 {
		t.Fatalf("pressure = %d, want %d", next.HullIntegrity.HullPressureKPa, 245)
	}
	if next.Propulsion.PowerLevelPercent != 75 {
		t.Fatalf("power level = %f, want 75", next.Propulsion.PowerLevelPercent)
	}
	if math.Abs(next.Power.ChargePercent-(100-0.11)) > 1e-9 {
		t.Fatalf("charge = %f, want %f", next.Power.ChargePercent, 100-0.11)
	}
	if v.Environment.DepthMeters != 0 {
		t.Fatalf("input state was mutated")
	}
}

func TestStepHoldsDepthWhenInactive(t *testing.T) {
	p := DefaultPhysics()
	v := StandbyVehicle(p.WaterTempCelsius)
	v.Environment.DepthMeters = 500

	next := p.Step(v, MissionEnRoute)
	if next.Environment.DepthMeters != 500 {
		t.Fatalf("depth changed to %f", next.Environment.DepthMeters)
	}
	if next.Propulsion.PowerLevelPercent != 0 {
		t.Fatalf("power level = %f, want 0", next.Propulsion.PowerLevelPercent)
	}
	if math.Abs(next.Power.ChargePercent-99.99) > 1e-9 {
		t.Fatalf("charge = %f, want 99.99", next.Power.ChargePercent)
	}
}

func TestStepClampsDepth(t *testing.T) {
	p := DefaultPhysics()
	v := StandbyVehicle(p.WaterTempCelsius)
	v.Propulsion.Status = PropulsionActive
	v.Environment.DepthMeters = 2990

	if got := p.Step(v, MissionSearching).Environment.DepthMeters; got != 3000 {
		t.Fatalf("descent depth = %f, want 3000", got)
	}

	v.Environment.DepthMeters = 10
	if got := p.Step(v, MissionReturning).Environment.DepthMeters; got != 0 {
		t.Fatalf("ascent depth = %f, want 0", got)
	}
}

func TestStepAutopilotOverridesOperator(t *testing.T) {
	p := DefaultPhysics()
	v := StandbyVehicle(p.WaterTempCelsius)
	v.Environment.DepthMeters = 100
	v.Propulsion.Status = PropulsionInactive

	next := p.Step(v, MissionEmergencyAscent)
	if next.Propulsion.Status != PropulsionActive {
		t.Fatalf("autopilot did not engage propulsion")
	}
	if next.Environment.DepthMeters != 80 {
		t.Fatalf("depth = %f, want 80", next.Environment.DepthMeters)
	}
}

func TestStepFaultAndThrustDrainStack(t *testing.T) {
	p := DefaultPhysics()
	v := StandbyVehicle(p.WaterTempCelsius)
	v.Power.Status = PowerFault
	v.Propulsion.Status = PropulsionActive

	next := p.Step(v, MissionSearching)
	if want := 100 - 1.61; math.Abs(next.Power.ChargePercent-want) > 1e-9 {
		t.Fatalf("charge = %f, want %f", next.Power.ChargePercent, want)
	}

	v.Power.ChargePercent = 0.5
	if got := p.Step(v, MissionSearching).Power.ChargePercent; got != 0 {
		t.Fatalf("charge = %f, want clamp at 0", got)
	}
}

func TestPressureAlwaysDerivedFromDepth(t *testing.T) {
	p := DefaultPhysics()
	v := StandbyVehicle(p.WaterTempCelsius)
	v.Propulsion.Status = PropulsionActive
	for i := 0; i < 200; i++ {
		v = p.Step(v, MissionEnRoute)
		want := int(math.Floor(v.Environment.DepthMeters * 9.807))
		if v.HullIntegrity.HullPressureKPa != want {
			t.Fatalf("tick %d: pressure %d, want %d", i, v.HullIntegrity.HullPressureKPa, want)
		}
	}
}

func TestMissionStatusPredicates(t *testing.T) {
	for _, m := range []MissionStatus{MissionSuccess, MissionFailureHullBreach, MissionFailureLostSignal} {
		if !m.Terminal() {
			t.Fatalf("%s should be terminal", m)
		}
	}
	if MissionEmergencyAscent.Terminal() || MissionStandby.Terminal() {
		t.Fatalf("non-terminal status reported terminal")
	}
	if _, ok := ParsePropulsionStatus("warp"); ok {
		t.Fatalf("invalid propulsion status accepted")
	}
}
