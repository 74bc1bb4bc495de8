// Package config loads and validates the YAML configuration consumed by
// the pipeline.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/ayusman/mudra/internal/action"
	"github.com/ayusman/mudra/internal/classify"
	"github.com/ayusman/mudra/internal/feature"
)

// Camera holds capture device settings.
type Camera struct {
	Devices             []int `mapstructure:"devices"`
	Width               int   `mapstructure:"width"`
	Height              int   `mapstructure:"height"`
	FPS                 int   `mapstructure:"fps"`
	FailureThreshold    int   `mapstructure:"failure_threshold"`
	MaxRecoveryAttempts int   `mapstructure:"max_recovery_attempts"`
	BackoffInitialMs    int   `mapstructure:"backoff_initial_ms"`
	BackoffMaxMs        int   `mapstructure:"backoff_max_ms"`
}

// BackoffInitial returns the initial recovery backoff as a duration.
func (c Camera) BackoffInitial() time.Duration {
	return time.Duration(c.BackoffInitialMs) * time.Millisecond
}

// BackoffMax returns the recovery backoff cap as a duration.
func (c Camera) BackoffMax() time.Duration {
	return time.Duration(c.BackoffMaxMs) * time.Millisecond
}

// Detection holds landmark detection settings.
type Detection struct {
	MaxHands        int     `mapstructure:"max_hands"`
	MinConfidence   float64 `mapstructure:"min_confidence"`
	MinTrackingConf float64 `mapstructure:"min_tracking_confidence"`
}

// Motion holds the optional motion gate settings.
type Motion struct {
	Enabled   bool    `mapstructure:"enabled"`
	Threshold float64 `mapstructure:"threshold"`
}

// Classifier holds model settings.
type Classifier struct {
	Kind               string  `mapstructure:"kind"`
	TestFraction       float64 `mapstructure:"test_fraction"`
	MinSamplesPerLabel int     `mapstructure:"min_samples_per_label"`
	// LayoutVersion must match the compiled feature layout.
	LayoutVersion int `mapstructure:"layout_version"`
}

// Stability holds debounce settings.
type Stability struct {
	MinStreak     int     `mapstructure:"min_streak"`
	ReleaseAfter  int     `mapstructure:"release_after"`
	MinConfidence float64 `mapstructure:"min_confidence"`
}

// Server holds the HTTP surface settings.
type Server struct {
	Addr string `mapstructure:"addr"`
}

// Config is the full validated application configuration.
type Config struct {
	// DataDir overrides the default ~/.mudra data directory.
	DataDir    string                       `mapstructure:"data_dir"`
	Camera     Camera                       `mapstructure:"camera"`
	Detection  Detection                    `mapstructure:"detection"`
	Motion     Motion                       `mapstructure:"motion"`
	Classifier Classifier                   `mapstructure:"classifier"`
	Stability  Stability                    `mapstructure:"stability"`
	Server     Server                       `mapstructure:"server"`
	Actions    map[string]action.Descriptor `mapstructure:"actions"`
}

// Mapping converts the configured actions table to the dispatcher form.
func (c *Config) Mapping() action.Mapping {
	m := make(action.Mapping, len(c.Actions))
	for label, desc := range c.Actions {
		m[classify.Label(label)] = desc
	}
	return m
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("camera.devices", []int{0})
	v.SetDefault("camera.width", 640)
	v.SetDefault("camera.height", 480)
	v.SetDefault("camera.fps", 30)
	v.SetDefault("camera.failure_threshold", 5)
	v.SetDefault("camera.max_recovery_attempts", 3)
	v.SetDefault("camera.backoff_initial_ms", 500)
	v.SetDefault("camera.backoff_max_ms", 5000)
	v.SetDefault("detection.max_hands", 2)
	v.SetDefault("detection.min_confidence", 0.5)
	v.SetDefault("detection.min_tracking_confidence", 0.5)
	v.SetDefault("motion.enabled", false)
	v.SetDefault("motion.threshold", 1.0)
	v.SetDefault("classifier.kind", string(classify.KindMargin))
	v.SetDefault("classifier.test_fraction", 0.2)
	v.SetDefault("classifier.min_samples_per_label", 10)
	v.SetDefault("classifier.layout_version", feature.LayoutVersion)
	v.SetDefault("stability.min_streak", 5)
	v.SetDefault("stability.release_after", 3)
	v.SetDefault("stability.min_confidence", 0.6)
	v.SetDefault("server.addr", ":8080")
}

// Load reads the config file at path (or defaults-only when path is empty)
// and validates it.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every recognized option. Configuration faults are fatal
// at load time, never during the live loop.
func (c *Config) Validate() error {
	if len(c.Camera.Devices) == 0 {
		return fmt.Errorf("camera.devices must name at least one device")
	}
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 || c.Camera.FPS <= 0 {
		return fmt.Errorf("camera resolution and fps must be positive")
	}
	if c.Detection.MinConfidence < 0 || c.Detection.MinConfidence > 1 {
		return fmt.Errorf("detection.min_confidence must be in [0,1]")
	}
	if c.Detection.MaxHands <= 0 {
		return fmt.Errorf("detection.max_hands must be positive")
	}
	if _, err := classify.ParseKind(c.Classifier.Kind); err != nil {
		return err
	}
	if c.Classifier.TestFraction < 0 || c.Classifier.TestFraction >= 1 {
		return fmt.Errorf("classifier.test_fraction must be in [0,1)")
	}
	if c.Classifier.MinSamplesPerLabel <= 0 {
		return fmt.Errorf("classifier.min_samples_per_label must be positive")
	}
	if c.Classifier.LayoutVersion != feature.LayoutVersion {
		return fmt.Errorf("classifier.layout_version %d does not match compiled layout v%d",
			c.Classifier.LayoutVersion, feature.LayoutVersion)
	}
	if c.Stability.MinStreak <= 0 || c.Stability.ReleaseAfter <= 0 {
		return fmt.Errorf("stability.min_streak and stability.release_after must be positive")
	}
	if c.Stability.MinConfidence < 0 || c.Stability.MinConfidence > 1 {
		return fmt.Errorf("stability.min_confidence must be in [0,1]")
	}
	if err := c.Mapping().Validate(); err != nil {
		return err
	}
	return nil
}
