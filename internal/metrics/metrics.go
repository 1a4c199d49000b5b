// Package metrics exposes simulator activity as Prometheus metrics.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rovops-sim/internal/telemetry"
)

// unknownCommand labels commands outside the known set to bound cardinality.
const unknownCommand = "UNKNOWN"

// Collector bundles the simulator metrics. A nil *Collector is valid and
// records nothing.
type Collector struct {
	gatherer prometheus.Gatherer

	Ticks         prometheus.Counter
	Commands      *prometheus.CounterVec
	WriteErrors   *prometheus.CounterVec
	DroppedFrames prometheus.Counter
	MissionStatus *prometheus.GaugeVec
	Running       prometheus.Gauge
	DepthMeters   prometheus.Gauge
	ChargePercent prometheus.Gauge
	HullPressure  prometheus.Gauge

	knownCommands map[string]bool
}

// New registers the simulator metrics against reg, defaulting to the global
// registry when nil. Registering twice against the same registry reuses the
// existing collectors.
func New(reg prometheus.Registerer, commands ...string) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}
	c := &Collector{gatherer: gatherer, knownCommands: make(map[string]bool, len(commands))}
	for _, name := range commands {
		c.knownCommands[name] = true
	}

	var err error
	if c.Ticks, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rov_ticks_total",
		Help: "Simulation ticks executed.",
	})); err != nil {
		return nil, err
	}
	if c.Commands, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rov_commands_total",
		Help: "Operator commands applied, labeled by command name.",
	}, []string{"command"})); err != nil {
		return nil, err
	}
	if c.WriteErrors, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rov_sink_write_errors_total",
		Help: "Failed telemetry or mission log writes, labeled by stream.",
	}, []string{"stream"})); err != nil {
		return nil, err
	}
	if c.DroppedFrames, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rov_stream_dropped_frames_total",
		Help: "Snapshots dropped for slow stream subscribers.",
	})); err != nil {
		return nil, err
	}
	if c.MissionStatus, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "rov_mission_status",
		Help: "1 for the current mission status, 0 otherwise.",
	}, []string{"status"})); err != nil {
		return nil, err
	}
	if c.Running, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rov_simulation_running",
		Help: "1 while a scenario is running.",
	})); err != nil {
		return nil, err
	}
	if c.DepthMeters, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rov_depth_meters",
		Help: "Current vehicle depth.",
	})); err != nil {
		return nil, err
	}
	if c.ChargePercent, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rov_battery_charge_percent",
		Help: "Current battery charge.",
	})); err != nil {
		return nil, err
	}
	if c.HullPressure, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rov_hull_pressure_kpa",
		Help: "Current hull pressure.",
	})); err != nil {
		return nil, err
	}
	return c, nil
}

// Handler exposes the /metrics endpoint.
func (c *Collector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// ObserveTick records one tick and the state it produced.
func (c *Collector) ObserveTick(s telemetry.Snapshot, running bool) {
	if c == nil {
		return
	}
	c.Ticks.Inc()
	for _, status := range telemetry.MissionStatuses {
		v := 0.0
		if status == s.Mission.Status {
			v = 1
		}
		c.MissionStatus.WithLabelValues(string(status)).Set(v)
	}
	if running {
		c.Running.Set(1)
	} else {
		c.Running.Set(0)
	}
	c.DepthMeters.Set(s.Vehicle.Environment.DepthMeters)
	c.ChargePercent.Set(s.Vehicle.Power.ChargePercent)
	c.HullPressure.Set(float64(s.Vehicle.HullIntegrity.HullPressureKPa))
}

// CommandApplied counts an operator command.
func (c *Collector) CommandApplied(name string) {
	if c == nil {
		return
	}
	if !c.knownCommands[name] {
		name = unknownCommand
	}
	c.Commands.WithLabelValues(name).Inc()
}

// WriteFailed counts a failed sink write for stream ("telemetry" or "mission_log").
func (c *Collector) WriteFailed(stream string) {
	if c == nil {
		return
	}
	c.WriteErrors.WithLabelValues(stream).Inc()
}

// FramesDropped counts snapshots not delivered to slow subscribers.
func (c *Collector) FramesDropped(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.DroppedFrames.Add(float64(n))
}

func register[T prometheus.Collector](reg prometheus.Registerer, col T) (T, error) {
	if err := reg.Register(col); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			var zero T
			return zero, fmt.Errorf("collector %T already registered with incompatible type", col)
		}
		var zero T
		return zero, err
	}
	return col, nil
}
