package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roman-kulish/imu-alignment/internal/align"
	"github.com/roman-kulish/imu-alignment/internal/imu"
)

const defaultDatabase = "imu.db"

// Config represents the main application configuration
type Config struct {
	Settings  Settings        `yaml:"settings" json:"-"`
	Alignment AlignmentConfig `yaml:"alignment" json:"alignment"`
	Live      LiveConfig      `yaml:"live" json:"live"`
	Storage   StorageConfig   `yaml:"storage" json:"-"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel string `yaml:"logLevel"`
}

// AlignmentConfig represents batch alignment settings
type AlignmentConfig struct {
	Devices     int    `yaml:"devices" json:"devices"`
	Termination string `yaml:"termination" json:"termination"`
}

// LiveConfig represents windowed query settings
type LiveConfig struct {
	ReferenceDevice int      `yaml:"referenceDevice" json:"referenceDevice"`
	SamplingRate    int      `yaml:"samplingRate" json:"samplingRate"`
	Tolerance       Duration `yaml:"tolerance" json:"tolerance"`
	WindowSeconds   int      `yaml:"windowSeconds" json:"windowSeconds"`
	Interval        Duration `yaml:"interval" json:"interval"`
	HistorySize     int      `yaml:"historySize" json:"historySize"`
}

// StorageConfig represents storage settings
type StorageConfig struct {
	Database     string `yaml:"database"`
	MaxBatchSize int    `yaml:"maxBatchSize"`
}

// DefaultConfig returns the configuration used when no file is given
func DefaultConfig() *Config {
	return &Config{
		Settings: Settings{
			LogLevel: "info",
		},
		Alignment: AlignmentConfig{
			Devices:     imu.DefaultDevices,
			Termination: align.StopAtFirstExhausted.String(),
		},
		Live: LiveConfig{
			ReferenceDevice: align.DefaultReference,
			SamplingRate:    align.DefaultSamplingRate,
			Tolerance:       Duration(align.DefaultTolerance),
			WindowSeconds:   10,
			Interval:        Duration(10 * time.Second),
			HistorySize:     align.DefaultHistorySize,
		},
		Storage: StorageConfig{
			Database:     defaultDatabase,
			MaxBatchSize: 100,
		},
	}
}

// LoadConfig reads a YAML configuration file on top of the defaults
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	config := DefaultConfig()
	if err = yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err = config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	var errs []error

	if _, err := ParseLogLevel(c.Settings.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.Alignment.Devices <= 0 {
		errs = append(errs, fmt.Errorf("alignment.devices: must be positive, %d given", c.Alignment.Devices))
	}
	if _, err := align.ParseTermination(c.Alignment.Termination); err != nil {
		errs = append(errs, fmt.Errorf("alignment.termination: %w", err))
	}
	if c.Live.ReferenceDevice < 1 || c.Live.ReferenceDevice > c.Alignment.Devices {
		errs = append(errs, fmt.Errorf("live.referenceDevice: must be within 1..%d, %d given", c.Alignment.Devices, c.Live.ReferenceDevice))
	}
	if c.Live.SamplingRate <= 0 {
		errs = append(errs, fmt.Errorf("live.samplingRate: must be positive, %d given", c.Live.SamplingRate))
	}
	if c.Live.WindowSeconds <= 0 || c.Live.WindowSeconds*c.Live.SamplingRate >= imu.CounterModulo {
		errs = append(errs, fmt.Errorf("live.windowSeconds: window of %ds must span fewer than %d ticks", c.Live.WindowSeconds, imu.CounterModulo))
	}
	if c.Live.HistorySize <= 0 {
		errs = append(errs, fmt.Errorf("live.historySize: must be positive, %d given", c.Live.HistorySize))
	}
	if err := c.Live.Tolerance.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("live.tolerance: %w", err))
	}
	if err := c.Live.Interval.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("live.interval: %w", err))
	}
	if c.Storage.Database == "" {
		errs = append(errs, errors.New("storage.database: must not be empty"))
	}

	return errors.Join(errs...)
}

// TerminationPolicy returns the parsed termination policy
func (c *Config) TerminationPolicy() align.Termination {
	t, _ := align.ParseTermination(c.Alignment.Termination)
	return t
}

// ParseLogLevel parses a slog level name such as "debug" or "warn"
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("settings.logLevel: %w", err)
	}
	return level, nil
}

// Duration is a time.Duration read from strings like "2s" or "500ms"
type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	duration, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("app.Duration: failed to parse: %s", err)
	}

	*d = Duration(duration)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d Duration) Validate() error {
	if d < 0 {
		return fmt.Errorf("must not be negative: %s", d)
	}
	return nil
}
