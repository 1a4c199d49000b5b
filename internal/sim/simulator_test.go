package sim

import (
	"context"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"rovops-sim/internal/metrics"
	"rovops-sim/internal/missionlog"
	"rovops-sim/internal/scenario"
	"rovops-sim/internal/telemetry"
)

func fixedClock() func() time.Time {
	return func() time.Time { return time.Unix(1700000000, 0).UTC() }
}

func newTestSimulator(w TelemetryWriter) *Simulator {
	return NewSimulator("rov-test", telemetry.DefaultPhysics(), w, time.Second, fixedClock())
}

// tickUntil ticks until cond holds, failing after max ticks.
func tickUntil(t *testing.T, s *Simulator, max int, cond func(telemetry.Snapshot) bool) telemetry.Snapshot {
	t.Helper()
	for i := 0; i < max; i++ {
		snap := s.Tick(context.Background(), nil)
		if cond(snap) {
			return snap
		}
	}
	t.Fatalf("condition not met within %d ticks (state %+v)", max, s.Snapshot())
	return telemetry.Snapshot{}
}

func hasMessage(entries []missionlog.Entry, level missionlog.Level, sub string) bool {
	for _, e := range entries {
		if e.Level == level && strings.Contains(e.Message, sub) {
			return true
		}
	}
	return false
}

func TestSimulator_ResetYieldsCanonicalStandby(t *testing.T) {
	s := newTestSimulator(nil)
	s.Tick(context.Background(), StartSimulation{Scenario: scenario.PowerFault})
	for i := 0; i < 120; i++ {
		s.Tick(context.Background(), nil)
	}
	s.Tick(context.Background(), SetPropulsionState{Status: telemetry.PropulsionActive})

	s.Reset()
	want := telemetry.Snapshot{
		Timestamp: fixedClock()(),
		Vehicle:   telemetry.StandbyVehicle(18.0),
		Mission:   telemetry.MissionState{Status: telemetry.MissionStandby},
	}
	if got := s.Snapshot(); got != want {
		t.Fatalf("reset snapshot = %+v, want %+v", got, want)
	}
	if len(s.MissionLog()) != 0 || s.Running() || s.ActiveScenario() != "" || s.RunID() != "" {
		t.Fatalf("reset left run state behind")
	}

	// Reset is idempotent.
	s.Reset()
	if got := s.Snapshot(); got != want {
		t.Fatalf("second reset snapshot = %+v", got)
	}
}

func TestSimulator_StartSimulation(t *testing.T) {
	s := newTestSimulator(nil)
	snap := s.Tick(context.Background(), StartSimulation{Scenario: scenario.PressureAnomaly})

	if snap.Mission.Status != telemetry.MissionEnRoute || !s.Running() {
		t.Fatalf("expected running en_route, got %s", snap.Mission.Status)
	}
	entries := s.MissionLog()
	if len(entries) != 2 {
		t.Fatalf("expected 2 log entries, got %+v", entries)
	}
	if entries[0].Message != "Scenario Started: Pressure Anomaly." || entries[0].Level != missionlog.LevelInfo {
		t.Fatalf("unexpected first entry %+v", entries[0])
	}
	if entries[1].Message != "Mission status changed to 'en_route'." {
		t.Fatalf("unexpected second entry %+v", entries[1])
	}
	first := s.RunID()
	if first == "" {
		t.Fatalf("expected run id")
	}
	s.Tick(context.Background(), StartSimulation{Scenario: scenario.Nominal})
	if s.RunID() == first {
		t.Fatalf("run id not renewed on restart")
	}
	if len(s.MissionLog()) != 2 {
		t.Fatalf("restart did not clear the log: %+v", s.MissionLog())
	}
}

func TestSimulator_StartUnknownScenario(t *testing.T) {
	s := newTestSimulator(nil)
	before := s.Snapshot()
	after := s.Tick(context.Background(), StartSimulation{Scenario: "deep_dive"})
	if after != before {
		t.Fatalf("state changed: %+v", after)
	}
	if !hasMessage(s.MissionLog(), missionlog.LevelWarning, "Attempted to start unknown scenario: deep_dive") {
		t.Fatalf("missing warning: %+v", s.MissionLog())
	}
}

func TestSimulator_UnknownCommand(t *testing.T) {
	s := newTestSimulator(nil)
	before := s.Snapshot()
	after := s.Tick(context.Background(), UnknownCommand{Command: "FOO_BAR"})
	if after != before {
		t.Fatalf("unknown command mutated state: %+v", after)
	}
	entries := s.MissionLog()
	if len(entries) != 1 || entries[0].Level != missionlog.LevelWarning || !strings.Contains(entries[0].Message, "Unknown command") {
		t.Fatalf("unexpected log: %+v", entries)
	}
}

func TestSimulator_ResetCommandLogs(t *testing.T) {
	s := newTestSimulator(nil)
	s.Tick(context.Background(), StartSimulation{Scenario: scenario.Nominal})
	s.Tick(context.Background(), ResetSimulation{})
	entries := s.MissionLog()
	if len(entries) != 1 || entries[0].Message != "Simulation reset to standby." {
		t.Fatalf("unexpected log after reset: %+v", entries)
	}
	if s.Running() {
		t.Fatalf("still running after reset")
	}
}

func TestSimulator_NominalReachesSearchingWithin80Ticks(t *testing.T) {
	s := newTestSimulator(nil)
	s.Tick(context.Background(), StartSimulation{Scenario: scenario.Nominal})
	tickUntil(t, s, 80, func(snap telemetry.Snapshot) bool {
		return snap.Mission.Status == telemetry.MissionSearching
	})
}

func TestSimulator_NominalMission(t *testing.T) {
	s := newTestSimulator(nil)
	ctx := context.Background()
	s.Tick(ctx, StartSimulation{Scenario: scenario.Nominal})
	tickUntil(t, s, 200, func(snap telemetry.Snapshot) bool {
		return snap.Alert.Active && snap.Alert.Severity == telemetry.SeverityInfo
	})

	snap := s.Tick(ctx, DeployArm{})
	if snap.Vehicle.ManipulatorArm.Status != telemetry.ArmDeployed {
		t.Fatalf("arm = %s, want deployed", snap.Vehicle.ManipulatorArm.Status)
	}
	snap = s.Tick(ctx, CollectSample{})
	if snap.Mission.Status != telemetry.MissionReturning || snap.Alert.Active {
		t.Fatalf("expected returning without alert, got %s %+v", snap.Mission.Status, snap.Alert)
	}
	if !snap.Vehicle.ManipulatorArm.SampleCollected {
		t.Fatalf("sample not collected")
	}

	tickUntil(t, s, 200, func(snap telemetry.Snapshot) bool {
		return snap.Mission.Status == telemetry.MissionSuccess
	})
	if s.Running() {
		t.Fatalf("still running after success")
	}
	entries := s.MissionLog()
	for _, want := range []string{
		"Command Sent: DEPLOY_ARM.",
		"Command Sent: COLLECT_SAMPLE.",
	} {
		if !hasMessage(entries, missionlog.LevelOperator, want) {
			t.Fatalf("missing operator entry %q", want)
		}
	}
	for _, want := range []string{
		"Manipulator arm status changed to 'deployed'.",
		"Sample collected successfully.",
		"Mission status changed to 'returning'.",
		"Mission status changed to 'mission_success'.",
	} {
		if !hasMessage(entries, missionlog.LevelInfo, want) {
			t.Fatalf("missing info entry %q", want)
		}
	}

	// Terminal: further ticks change nothing.
	final := s.Snapshot()
	if again := s.Tick(ctx, nil); again != final {
		t.Fatalf("terminal state advanced: %+v", again)
	}
}

func TestSimulator_ArmPreconditions(t *testing.T) {
	s := newTestSimulator(nil)
	ctx := context.Background()
	s.Tick(ctx, CollectSample{})
	if s.Snapshot().Vehicle.ManipulatorArm.SampleCollected {
		t.Fatalf("collected with stowed arm")
	}
	s.Tick(ctx, DeployArm{})
	s.Tick(ctx, DeployArm{})
	entries := s.MissionLog()
	deployed := 0
	for _, e := range entries {
		if e.Message == "Manipulator arm status changed to 'deployed'." {
			deployed++
		}
	}
	if deployed != 1 {
		t.Fatalf("expected one deploy transition, got %d", deployed)
	}
	if len(entries) != 4 {
		t.Fatalf("expected 3 operator entries plus 1 info, got %+v", entries)
	}
}

func TestSimulator_PressureWarningThreshold(t *testing.T) {
	s := newTestSimulator(nil)
	p := telemetry.DefaultPhysics()
	snaps := []telemetry.Snapshot{s.Tick(context.Background(), StartSimulation{Scenario: scenario.PressureAnomaly})}
	for i := 0; i < 200; i++ {
		snap := s.Tick(context.Background(), nil)
		snaps = append(snaps, snap)
		if snap.Vehicle.HullIntegrity.Status == telemetry.HullWarning {
			break
		}
	}
	i := len(snaps) - 1
	if snaps[i].Vehicle.HullIntegrity.Status != telemetry.HullWarning {
		t.Fatalf("warning never raised")
	}
	// The scenario evaluates pressure produced by the previous tick.
	trigger := snaps[i-1].Vehicle
	if float64(trigger.HullIntegrity.HullPressureKPa) <= p.WarningThreshold() || trigger.Environment.DepthMeters <= 2200.9 {
		t.Fatalf("warning raised at pressure %d depth %.1f", trigger.HullIntegrity.HullPressureKPa, trigger.Environment.DepthMeters)
	}
	if prior := snaps[i-2].Vehicle.HullIntegrity.HullPressureKPa; float64(prior) > p.WarningThreshold() {
		t.Fatalf("warning raised late: previous pressure %d already exceeded", prior)
	}
	if snaps[i].Alert.Severity != telemetry.SeverityWarning {
		t.Fatalf("alert = %+v", snaps[i].Alert)
	}
}

func TestSimulator_PressureAnomalyOperatorRecovery(t *testing.T) {
	s := newTestSimulator(nil)
	ctx := context.Background()
	s.Tick(ctx, StartSimulation{Scenario: scenario.PressureAnomaly})
	warn := tickUntil(t, s, 200, func(snap telemetry.Snapshot) bool {
		return snap.Alert.Active && snap.Alert.Severity == telemetry.SeverityWarning
	})

	snap := s.Tick(ctx, SetPropulsionState{Status: telemetry.PropulsionInactive})
	if snap.Vehicle.HullIntegrity.Status != telemetry.HullNominal {
		t.Fatalf("hull = %s, want nominal", snap.Vehicle.HullIntegrity.Status)
	}
	if snap.Alert.Active {
		t.Fatalf("alert still active: %+v", snap.Alert)
	}
	if snap.Vehicle.Environment.DepthMeters < warn.Vehicle.Environment.DepthMeters {
		t.Fatalf("depth snapped from %.1f to %.1f", warn.Vehicle.Environment.DepthMeters, snap.Vehicle.Environment.DepthMeters)
	}
	entries := s.MissionLog()
	n := len(entries)
	if entries[n-3].Level != missionlog.LevelOperator || entries[n-3].Message != "Command Sent: SET_PROPULSION_STATE(inactive)." {
		t.Fatalf("unexpected operator entry %+v", entries[n-3])
	}
	if entries[n-2].Message != "Hull pressure returned to nominal." || entries[n-1].Message != "Operator intervention successful." {
		t.Fatalf("unexpected recovery entries %+v", entries[n-2:])
	}

	for i := 0; i < 200; i++ {
		snap := s.Tick(ctx, nil)
		if snap.Vehicle.HullIntegrity.Status == telemetry.HullCritical {
			t.Fatalf("hull reached critical after operator recovery at tick %d", i)
		}
		if snap.Vehicle.Propulsion.Status != telemetry.PropulsionInactive {
			t.Fatalf("propulsion forced after override")
		}
	}
}

func TestSimulator_PressureAnomalyUnattendedBreaches(t *testing.T) {
	s := newTestSimulator(nil)
	s.Tick(context.Background(), StartSimulation{Scenario: scenario.PressureAnomaly})
	tickUntil(t, s, 400, func(snap telemetry.Snapshot) bool {
		return snap.Mission.Status == telemetry.MissionFailureHullBreach
	})
	if s.Running() {
		t.Fatalf("still running after breach")
	}
	if got := s.Snapshot().Vehicle.Environment.DepthMeters; got > telemetry.DefaultPhysics().MaxDepth() {
		t.Fatalf("depth %.1f exceeds floor", got)
	}
	entries := s.MissionLog()
	if !hasMessage(entries, missionlog.LevelCritical, "Hull pressure has reached a critical level!") ||
		!hasMessage(entries, missionlog.LevelCritical, "Mission status changed to 'mission_failure_hull_breach'.") {
		t.Fatalf("missing escalation entries: %+v", entries)
	}
}

func TestSimulator_PowerFaultJettison(t *testing.T) {
	s := newTestSimulator(nil)
	ctx := context.Background()
	s.Tick(ctx, StartSimulation{Scenario: scenario.PowerFault})
	tickUntil(t, s, 200, func(snap telemetry.Snapshot) bool {
		return snap.Alert.Active && snap.Alert.Severity == telemetry.SeverityCritical
	})

	snap := s.Tick(ctx, JettisonPackage{})
	if snap.Mission.Status != telemetry.MissionEmergencyAscent {
		t.Fatalf("mission = %s, want emergency_ascent", snap.Mission.Status)
	}
	if snap.Alert.Active || snap.Vehicle.Power.Status != telemetry.PowerDischarging {
		t.Fatalf("fault not cleared: %+v", snap)
	}
	if snap.Vehicle.SciencePackage.Status != telemetry.PackageJettisoned {
		t.Fatalf("package not jettisoned")
	}
	if !hasMessage(s.MissionLog(), missionlog.LevelInfo, "Science package jettisoned. Power drain stabilized.") {
		t.Fatalf("missing jettison entry")
	}

	tickUntil(t, s, 200, func(snap telemetry.Snapshot) bool {
		return snap.Mission.Status == telemetry.MissionSuccess
	})
	if s.Running() || s.Snapshot().Alert.Active {
		t.Fatalf("expected a clean stop")
	}
}

func TestSimulator_PowerFaultLostSignal(t *testing.T) {
	s := newTestSimulator(nil)
	ctx := context.Background()
	prev := s.Tick(ctx, StartSimulation{Scenario: scenario.PowerFault})
	for i := 0; i < 400 && s.Running(); i++ {
		snap := s.Tick(ctx, nil)
		if snap.Vehicle.Power.ChargePercent > prev.Vehicle.Power.ChargePercent {
			t.Fatalf("charge increased from %.2f to %.2f", prev.Vehicle.Power.ChargePercent, snap.Vehicle.Power.ChargePercent)
		}
		if snap.Vehicle.Power.ChargePercent < 0 {
			t.Fatalf("negative charge %.2f", snap.Vehicle.Power.ChargePercent)
		}
		prev = snap
	}
	final := s.Snapshot()
	if final.Mission.Status != telemetry.MissionFailureLostSignal {
		t.Fatalf("mission = %s, want lost signal", final.Mission.Status)
	}
	if final.Alert.Message != "Battery at 0%. Signal lost." {
		t.Fatalf("alert = %+v", final.Alert)
	}

	// A jettison after the loss keeps the terminal state.
	snap := s.Tick(ctx, JettisonPackage{})
	if snap.Mission.Status != telemetry.MissionFailureLostSignal {
		t.Fatalf("terminal state left via jettison: %s", snap.Mission.Status)
	}
	if snap.Vehicle.SciencePackage.Status != telemetry.PackageJettisoned {
		t.Fatalf("package still attached")
	}
}

func TestSimulator_JettisonWithoutFault(t *testing.T) {
	s := newTestSimulator(nil)
	ctx := context.Background()
	s.Tick(ctx, StartSimulation{Scenario: scenario.Nominal})
	snap := s.Tick(ctx, JettisonPackage{})
	if snap.Mission.Status != telemetry.MissionEnRoute {
		t.Fatalf("mission changed to %s", snap.Mission.Status)
	}
	if snap.Vehicle.SciencePackage.Status != telemetry.PackageJettisoned {
		t.Fatalf("package not jettisoned")
	}
	entries := s.MissionLog()
	if last := entries[len(entries)-1]; last.Level != missionlog.LevelOperator {
		t.Fatalf("unexpected trailing entry %+v", last)
	}
}

func TestSimulator_OverrideStopsScenarioForcing(t *testing.T) {
	s := newTestSimulator(nil)
	ctx := context.Background()
	s.Tick(ctx, StartSimulation{Scenario: scenario.Nominal})
	stopped := s.Tick(ctx, SetPropulsionState{Status: telemetry.PropulsionInactive})
	for i := 0; i < 50; i++ {
		snap := s.Tick(ctx, nil)
		if snap.Vehicle.Propulsion.Status != telemetry.PropulsionInactive {
			t.Fatalf("scenario forced propulsion after override at tick %d", i)
		}
		if snap.Vehicle.Environment.DepthMeters != stopped.Vehicle.Environment.DepthMeters {
			t.Fatalf("depth moved without thrust")
		}
	}
}

func TestSimulator_InvalidPropulsionStatus(t *testing.T) {
	s := newTestSimulator(nil)
	ctx := context.Background()
	s.Tick(ctx, StartSimulation{Scenario: scenario.Nominal})
	s.Tick(ctx, SetPropulsionState{Status: "reverse"})
	snap := s.Tick(ctx, nil)
	if snap.Vehicle.Propulsion.Status != telemetry.PropulsionActive {
		t.Fatalf("invalid status set override")
	}
	if !hasMessage(s.MissionLog(), missionlog.LevelOperator, "SET_PROPULSION_STATE(reverse)") {
		t.Fatalf("operator entry missing")
	}
}

func TestSimulator_PressureDerivedFromDepth(t *testing.T) {
	s := newTestSimulator(nil)
	s.Tick(context.Background(), StartSimulation{Scenario: scenario.PressureAnomaly})
	for i := 0; i < 150; i++ {
		snap := s.Tick(context.Background(), nil)
		want := int(math.Floor(snap.Vehicle.Environment.DepthMeters * 9.807))
		if snap.Vehicle.HullIntegrity.HullPressureKPa != want {
			t.Fatalf("pressure %d != floor(depth*9.807) %d", snap.Vehicle.HullIntegrity.HullPressureKPa, want)
		}
	}
}

func TestSimulator_EmitsToSinksAndSubscribers(t *testing.T) {
	w := &stubWriter{}
	s := NewSimulator("rov-7", telemetry.DefaultPhysics(), w, time.Second, fixedClock())
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg, CmdStartSimulation)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	s.SetMetrics(m)
	sub := s.Hub().Subscribe()
	defer sub.Close()

	snap := s.Tick(context.Background(), StartSimulation{Scenario: scenario.Nominal})

	if len(w.rows) != 1 || w.rows[0].VehicleID != "rov-7" || w.rows[0].Scenario != "nominal" || w.rows[0].RunID != s.RunID() {
		t.Fatalf("unexpected telemetry rows: %+v", w.rows)
	}
	if len(w.logs) != 2 || w.logs[0].Message != "Scenario Started: Nominal." {
		t.Fatalf("unexpected log rows: %+v", w.logs)
	}
	select {
	case got := <-sub.C:
		if got != snap {
			t.Fatalf("subscriber saw %+v, want %+v", got, snap)
		}
	default:
		t.Fatalf("subscriber received nothing")
	}
	if got := testutil.ToFloat64(m.Commands.WithLabelValues(CmdStartSimulation)); got != 1 {
		t.Fatalf("commands metric = %v", got)
	}

	// Log rows are delivered once.
	s.Tick(context.Background(), nil)
	if len(w.logs) != 2 {
		t.Fatalf("log rows re-delivered: %+v", w.logs)
	}
}

func TestSimulator_ConcurrentTicksEmitInStateOrder(t *testing.T) {
	w := &stubWriter{}
	s := newTestSimulator(w)
	sub := s.Hub().Subscribe()
	defer sub.Close()
	s.Tick(context.Background(), StartSimulation{Scenario: scenario.Nominal})
	<-sub.C

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 5; i++ {
				s.Tick(context.Background(), nil)
			}
		}()
	}
	wg.Wait()

	// The nominal descent adds depth every tick until 2000 m.
	if len(w.rows) != 41 {
		t.Fatalf("expected 41 rows, got %d", len(w.rows))
	}
	for i := 1; i < len(w.rows); i++ {
		if w.rows[i].DepthMeters <= w.rows[i-1].DepthMeters {
			t.Fatalf("row %d depth %.1f not after %.1f", i, w.rows[i].DepthMeters, w.rows[i-1].DepthMeters)
		}
	}
	prev := -1.0
	for len(sub.C) > 0 {
		snap := <-sub.C
		if snap.Vehicle.Environment.DepthMeters <= prev {
			t.Fatalf("stream out of order: %.1f after %.1f", snap.Vehicle.Environment.DepthMeters, prev)
		}
		prev = snap.Vehicle.Environment.DepthMeters
	}
}

func TestSimulator_WriterFailureDoesNotStop(t *testing.T) {
	w := &stubWriter{err: errFake}
	s := NewSimulator("rov-1", telemetry.DefaultPhysics(), w, time.Second, fixedClock())
	s.Tick(context.Background(), StartSimulation{Scenario: scenario.Nominal})
	snap := s.Tick(context.Background(), nil)
	if snap.Vehicle.Environment.DepthMeters != 50 {
		t.Fatalf("depth = %.1f, want 50", snap.Vehicle.Environment.DepthMeters)
	}
}

func TestSimulator_SubmitQueueBounded(t *testing.T) {
	s := newTestSimulator(nil)
	for i := 0; i < commandQueueSize; i++ {
		if !s.Submit(DeployArm{}) {
			t.Fatalf("submit %d rejected", i)
		}
	}
	if s.Submit(DeployArm{}) {
		t.Fatalf("expected full queue to reject")
	}
}

func TestSimulator_CommandSourceReceivesSubmit(t *testing.T) {
	w := &stubWriter{}
	s := newTestSimulator(w)
	if w.commander == nil {
		t.Fatalf("commander not wired")
	}
	if !w.commander(DeployArm{}) {
		t.Fatalf("submit rejected")
	}
	if cmd := s.nextCommand(); cmd == nil || cmd.Name() != CmdDeployArm {
		t.Fatalf("unexpected queued command %v", cmd)
	}
}

func TestSimulator_RunAppliesQueuedCommands(t *testing.T) {
	s := NewSimulator("rov-1", telemetry.DefaultPhysics(), nil, time.Millisecond, nil)
	sub := s.Hub().Subscribe()
	defer sub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	if !s.Submit(StartSimulation{Scenario: scenario.Nominal}) {
		t.Fatalf("submit rejected")
	}
	deadline := time.After(5 * time.Second)
	for running := false; !running; {
		select {
		case snap := <-sub.C:
			running = snap.Mission.Status == telemetry.MissionEnRoute
		case <-deadline:
			t.Fatalf("simulation never started")
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not stop")
	}
}
