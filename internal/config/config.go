package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	GPS    GPSConfig    `yaml:"gps"`
	Fusion FusionConfig `yaml:"fusion"`
	Report ReportConfig `yaml:"report"`
}

type GPSConfig struct {
	// Device may be empty to auto-detect /dev/ttyACM* or /dev/ttyUSB*.
	Device string       `yaml:"device"`
	Baud   int          `yaml:"baud"`
	Record RecordConfig `yaml:"record"`
	Replay ReplayConfig `yaml:"replay"`
}

type RecordConfig struct {
	Enable bool   `yaml:"enable"`
	Path   string `yaml:"path"`
}

type ReplayConfig struct {
	Enable bool    `yaml:"enable"`
	Path   string  `yaml:"path"`
	Speed  float64 `yaml:"speed"`
	Loop   bool    `yaml:"loop"`
}

type FusionConfig struct {
	Epsilon        float64 `yaml:"epsilon"`
	FallbackWeight float64 `yaml:"fallback_weight"`
	Weighting      string  `yaml:"weighting"`
	UEREM          float64 `yaml:"uere_m"`
}

type ReportConfig struct {
	Interval    time.Duration `yaml:"interval"`
	StaleAfter  time.Duration `yaml:"stale_after"`
	MaxRejected int           `yaml:"max_rejected"`
	EmitGGA     bool          `yaml:"emit_gga"`
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.applyDefaults(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (cfg *Config) applyDefaults() error {
	cfg.GPS.Device = strings.TrimSpace(cfg.GPS.Device)
	if cfg.GPS.Baud == 0 {
		cfg.GPS.Baud = 9600
	}
	if cfg.GPS.Baud < 0 {
		return fmt.Errorf("gps.baud must be > 0")
	}

	if cfg.GPS.Record.Enable && cfg.GPS.Record.Path == "" {
		return fmt.Errorf("gps.record.path is required when gps.record.enable is true")
	}
	if cfg.GPS.Replay.Enable {
		if cfg.GPS.Replay.Path == "" {
			return fmt.Errorf("gps.replay.path is required when gps.replay.enable is true")
		}
		if cfg.GPS.Replay.Speed == 0 {
			cfg.GPS.Replay.Speed = 1
		}
		if cfg.GPS.Replay.Speed < 0 {
			return fmt.Errorf("gps.replay.speed must be > 0")
		}
	}
	if cfg.GPS.Record.Enable && cfg.GPS.Replay.Enable {
		return fmt.Errorf("gps.record and gps.replay cannot both be enabled")
	}

	if cfg.Fusion.Epsilon == 0 {
		cfg.Fusion.Epsilon = 0.1
	}
	if cfg.Fusion.Epsilon < 0 {
		return fmt.Errorf("fusion.epsilon must be > 0")
	}
	if cfg.Fusion.FallbackWeight < 0 {
		return fmt.Errorf("fusion.fallback_weight must be >= 0 (0 selects the median)")
	}
	cfg.Fusion.Weighting = strings.ToLower(strings.TrimSpace(cfg.Fusion.Weighting))
	switch cfg.Fusion.Weighting {
	case "":
		cfg.Fusion.Weighting = "hdop"
	case "hdop", "combined":
	default:
		return fmt.Errorf("fusion.weighting must be 'hdop' or 'combined'")
	}
	if cfg.Fusion.UEREM == 0 {
		cfg.Fusion.UEREM = 3.0
	}
	if cfg.Fusion.UEREM < 0 {
		return fmt.Errorf("fusion.uere_m must be > 0")
	}

	if cfg.Report.Interval == 0 {
		cfg.Report.Interval = 1 * time.Second
	}
	if cfg.Report.Interval < 0 {
		return fmt.Errorf("report.interval must be > 0")
	}
	if cfg.Report.StaleAfter == 0 {
		cfg.Report.StaleAfter = 3 * time.Second
	}
	if cfg.Report.StaleAfter < 0 {
		return fmt.Errorf("report.stale_after must be > 0")
	}
	if cfg.Report.MaxRejected == 0 {
		cfg.Report.MaxRejected = 32
	}
	if cfg.Report.MaxRejected < 0 {
		return fmt.Errorf("report.max_rejected must be >= 0")
	}
	return nil
}
