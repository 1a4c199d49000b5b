// YAML config loader with CUE validation integration
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"rovops-sim/internal/telemetry"
)

//go:embed simulation.cue
var defaultSchema []byte

// Duration is a time.Duration that unmarshals from strings such as "200ms".
type Duration struct{ time.Duration }

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	var s string
	if err := n.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = v
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// Physics holds the vehicle and environment constants.
type Physics struct {
	TargetDepthM        float64 `yaml:"target_depth_m"`
	DescentRateM        float64 `yaml:"descent_rate_m"`
	AscentRateM         float64 `yaml:"ascent_rate_m"`
	PressurePerMeterKPa float64 `yaml:"pressure_per_meter_kpa"`
	WaterTempCelsius    float64 `yaml:"water_temp_celsius"`
}

// Admin configures the HTTP surface. An empty Listen disables it.
type Admin struct {
	Listen string `yaml:"listen"`
}

// FileSink exports JSONL files. Empty paths disable the export.
type FileSink struct {
	Telemetry  string `yaml:"telemetry"`
	MissionLog string `yaml:"mission_log"`
}

// GreptimeSink configures the GreptimeDB ingester. An empty endpoint disables it.
type GreptimeSink struct {
	Endpoint       string `yaml:"endpoint"`
	Database       string `yaml:"database"`
	TelemetryTable string `yaml:"telemetry_table"`
	LogTable       string `yaml:"log_table"`
}

// InfluxSink configures the InfluxDB v2 writer. An empty URL disables it.
type InfluxSink struct {
	URL    string `yaml:"url"`
	Token  string `yaml:"token"`
	Org    string `yaml:"org"`
	Bucket string `yaml:"bucket"`
}

// Sinks groups the optional telemetry destinations.
type Sinks struct {
	File     FileSink     `yaml:"file"`
	Greptime GreptimeSink `yaml:"greptime"`
	Influx   InfluxSink   `yaml:"influx"`
}

// Config is the root simulator configuration.
type Config struct {
	VehicleID    string   `yaml:"vehicle_id"`
	TickInterval Duration `yaml:"tick_interval"`
	LogLevel     string   `yaml:"log_level"`
	Physics      Physics  `yaml:"physics"`
	Admin        Admin    `yaml:"admin"`
	Sinks        Sinks    `yaml:"sinks"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	p := telemetry.DefaultPhysics()
	return &Config{
		VehicleID:    "rov-01",
		TickInterval: Duration{200 * time.Millisecond},
		LogLevel:     "info",
		Physics: Physics{
			TargetDepthM:        p.TargetDepth,
			DescentRateM:        p.DescentRate,
			AscentRateM:         p.AscentRate,
			PressurePerMeterKPa: p.PressurePerMeter,
			WaterTempCelsius:    p.WaterTempCelsius,
		},
		Admin: Admin{Listen: ":8080"},
		Sinks: Sinks{
			Greptime: GreptimeSink{
				Database:       "public",
				TelemetryTable: telemetry.TelemetryTableName,
				LogTable:       telemetry.MissionLogTableName,
			},
			Influx: InfluxSink{Org: "rovops", Bucket: "rov"},
		},
	}
}

// Load reads configPath, validates it against the CUE schema at schemaPath
// (or the embedded schema when schemaPath is empty), applies environment
// overrides and checks the result. An empty configPath yields the defaults.
func Load(configPath, schemaPath string) (*Config, error) {
	cfg := Default()
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("cannot read config: %w", err)
		}
		schema := defaultSchema
		if schemaPath != "" {
			if schema, err = os.ReadFile(schemaPath); err != nil {
				return nil, fmt.Errorf("cannot read CUE schema: %w", err)
			}
		}
		if err := ValidateWithCue(configPath, data, schema); err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("cannot unmarshal YAML config: %w", err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("VEHICLE_ID"); v != "" {
		c.VehicleID = v
	}
	if v := os.Getenv("TICK_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid TICK_INTERVAL: %w", err)
		}
		c.TickInterval = Duration{d}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("GREPTIMEDB_ENDPOINT"); v != "" {
		c.Sinks.Greptime.Endpoint = v
	}
	if v := os.Getenv("INFLUXDB_URL"); v != "" {
		c.Sinks.Influx.URL = v
	}
	if v := os.Getenv("INFLUXDB_TOKEN"); v != "" {
		c.Sinks.Influx.Token = v
	}
	return nil
}

// Validate rejects configurations the simulator cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.VehicleID == "" {
		errs = append(errs, errors.New("vehicle_id must not be empty"))
	}
	if c.TickInterval.Duration <= 0 {
		errs = append(errs, fmt.Errorf("tick_interval must be positive, got %s", c.TickInterval))
	}
	p := c.Physics
	positive := []struct {
		name string
		v    float64
	}{
		{"physics.target_depth_m", p.TargetDepthM},
		{"physics.descent_rate_m", p.DescentRateM},
		{"physics.ascent_rate_m", p.AscentRateM},
		{"physics.pressure_per_meter_kpa", p.PressurePerMeterKPa},
	}
	for _, f := range positive {
		if f.v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %g", f.name, f.v))
		}
	}
	if c.Sinks.Influx.URL != "" && (c.Sinks.Influx.Org == "" || c.Sinks.Influx.Bucket == "") {
		errs = append(errs, errors.New("sinks.influx requires org and bucket"))
	}
	return errors.Join(errs...)
}

// PhysicsModel converts the configured constants for the simulator.
func (c *Config) PhysicsModel() telemetry.Physics {
	return telemetry.Physics{
		TargetDepth:      c.Physics.TargetDepthM,
		DescentRate:      c.Physics.DescentRateM,
		AscentRate:       c.Physics.AscentRateM,
		PressurePerMeter: c.Physics.PressurePerMeterKPa,
		WaterTempCelsius: c.Physics.WaterTempCelsius,
	}
}
