// Package config loads the daemon configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/cbegin/eqlink-go/internal/device"
)

const (
	BackendEbiten  = "ebiten"
	BackendDiscard = "discard"
)

type Config struct {
	LogLevel  string    `yaml:"log_level"`
	Link      Link      `yaml:"link"`
	Audio     Audio     `yaml:"audio"`
	Devices   Devices   `yaml:"devices"`
	Transport Transport `yaml:"transport"`
}

type Link struct {
	Listen string `yaml:"listen"`
	Path   string `yaml:"path"`
}

type Audio struct {
	Backend        string   `yaml:"backend"`
	SampleRate     int      `yaml:"sample_rate"`
	CrossoverOrder int      `yaml:"crossover_order"`
	Loudness       Loudness `yaml:"loudness"`
}

type Loudness struct {
	BassHz   float64 `yaml:"bass_hz"`
	TrebleHz float64 `yaml:"treble_hz"`
}

// Devices selects the output enumerator. A non-empty Static list replaces
// the procfs enumeration.
type Devices struct {
	ProcPCM string         `yaml:"proc_pcm"`
	Static  []StaticDevice `yaml:"static"`
}

type StaticDevice struct {
	Name string `yaml:"name"`
	// Type is "default", "digital" (or "spdif") or "other".
	Type string `yaml:"type"`
}

// Transport names a stream source opened at startup, typically a FIFO fed
// by the transport layer. An empty Path waits for a transport to be attached.
type Transport struct {
	Path      string `yaml:"path"`
	BlockSize int    `yaml:"block_size"`
	Rate      int    `yaml:"rate"`
}

func Default() Config {
	return Config{
		LogLevel: "info",
		Link: Link{
			Listen: "127.0.0.1:8642",
			Path:   "/eqlink",
		},
		Audio: Audio{
			Backend:        BackendEbiten,
			SampleRate:     48000,
			CrossoverOrder: 4,
			Loudness: Loudness{
				BassHz:   80,
				TrebleHz: 10000,
			},
		},
		Devices: Devices{
			ProcPCM: "/proc/asound/pcm",
		},
		Transport: Transport{
			BlockSize: 4096,
			Rate:      44100,
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	if c.Link.Path == "" || !strings.HasPrefix(c.Link.Path, "/") {
		errs = append(errs, fmt.Errorf("link.path %q must start with /", c.Link.Path))
	}
	switch c.Audio.Backend {
	case BackendEbiten, BackendDiscard:
	default:
		errs = append(errs, fmt.Errorf("audio.backend %q is not one of %s, %s", c.Audio.Backend, BackendEbiten, BackendDiscard))
	}
	if c.Audio.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate must be positive, got %d", c.Audio.SampleRate))
	}
	if o := c.Audio.CrossoverOrder; o < 2 || o%2 != 0 {
		errs = append(errs, fmt.Errorf("audio.crossover_order must be even and at least 2, got %d", o))
	}
	if c.Audio.Loudness.BassHz <= 0 || c.Audio.Loudness.TrebleHz <= c.Audio.Loudness.BassHz {
		errs = append(errs, fmt.Errorf("audio.loudness needs 0 < bass_hz < treble_hz"))
	}
	for i, d := range c.Devices.Static {
		if d.Name == "" {
			errs = append(errs, fmt.Errorf("devices.static[%d] has no name", i))
		}
		if _, err := device.ParseClass(d.Type); err != nil {
			errs = append(errs, fmt.Errorf("devices.static[%d]: %w", i, err))
		}
	}
	if c.Transport.Path != "" && (c.Transport.BlockSize <= 0 || c.Transport.Rate <= 0) {
		errs = append(errs, errors.New("transport.block_size and transport.rate must be positive"))
	}
	return errors.Join(errs...)
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}
