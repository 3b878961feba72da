// Package config loads the YAML run configuration shared by the scenario
// commands and the engine bridge. Command-line flags override file values.
package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/simrunner/internal/core/observability/log"
	"github.com/zeusync/simrunner/internal/core/sim"
)

const (
	// EngineDryRun selects the in-process engine.
	EngineDryRun = "dryrun"

	ViewerHeadless = "headless"
	ViewerTerminal = "terminal"

	FormatJSON    = "json"
	FormatConsole = "console"
)

var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrEngineURL     = errors.New("invalid engine url")
)

type Config struct {
	Engine   Engine          `yaml:"engine"`
	Init     sim.InitOptions `yaml:"init"`
	Log      Log             `yaml:"log"`
	DryRun   DryRun          `yaml:"dryrun"`
	Viewer   Viewer          `yaml:"viewer"`
	Scenario Scenario        `yaml:"scenario"`
	Bridge   Bridge          `yaml:"bridge"`
}

// Engine selects where the simulation runs. URL is "dryrun" or a
// ws://, wss:// or quic:// address of an engine bridge.
type Engine struct {
	URL         string        `yaml:"url"`
	CallTimeout time.Duration `yaml:"call_timeout"`
}

type Log struct {
	// Level is overridden to debug when Init.Debug is set.
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

type DryRun struct {
	// Catalog is an optional YAML model catalog merged over the built-in one.
	Catalog   string `yaml:"catalog"`
	Waypoints int    `yaml:"waypoints"`
}

type Viewer struct {
	Kind      string `yaml:"kind"`
	AltScreen bool   `yaml:"alt_screen"`
}

type Scenario struct {
	MaxSteps  int64  `yaml:"max_steps"`
	VideoFile string `yaml:"video_file"`
}

// Bridge configures the engine bridge server.
type Bridge struct {
	Listen     string `yaml:"listen"`
	QUICListen string `yaml:"quic_listen"`
	CertFile   string `yaml:"cert_file"`
	KeyFile    string `yaml:"key_file"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Engine: Engine{
			URL:         EngineDryRun,
			CallTimeout: 30 * time.Second,
		},
		Init: sim.InitOptions{
			Backend: sim.BackendMetal,
			Theme:   sim.ThemeLight,
			Debug:   true,
		},
		Log: Log{
			Level:      "info",
			Format:     FormatConsole,
			MaxSizeMB:  20,
			MaxBackups: 3,
		},
		DryRun: DryRun{Waypoints: 200},
		Viewer: Viewer{Kind: ViewerHeadless},
		Bridge: Bridge{Listen: ":8765"},
	}
}

// Load reads path over Default. An empty path returns Default.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads YAML from r over Default and validates the result.
// Unknown keys are rejected.
func Decode(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validateEngineURL(c.Engine.URL); err != nil {
		return err
	}
	if c.Engine.CallTimeout < 0 {
		return fmt.Errorf("%w: negative engine.call_timeout", ErrInvalidConfig)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	switch c.Log.Format {
	case FormatJSON, FormatConsole:
	default:
		return fmt.Errorf("%w: log.format %q, want json or console", ErrInvalidConfig, c.Log.Format)
	}
	switch c.Init.Theme {
	case sim.ThemeDark, sim.ThemeLight, "":
	default:
		return fmt.Errorf("%w: init.theme %q", ErrInvalidConfig, c.Init.Theme)
	}
	switch c.Viewer.Kind {
	case ViewerHeadless, ViewerTerminal:
	default:
		return fmt.Errorf("%w: viewer.kind %q, want headless or terminal", ErrInvalidConfig, c.Viewer.Kind)
	}
	if c.DryRun.Waypoints < 0 {
		return fmt.Errorf("%w: negative dryrun.waypoints", ErrInvalidConfig)
	}
	if c.Scenario.MaxSteps < 0 {
		return fmt.Errorf("%w: negative scenario.max_steps", ErrInvalidConfig)
	}
	if (c.Bridge.CertFile == "") != (c.Bridge.KeyFile == "") {
		return fmt.Errorf("%w: bridge.cert_file and bridge.key_file go together", ErrInvalidConfig)
	}
	return nil
}

// LogLevel is the effective logger level.
func (c *Config) LogLevel() log.Level {
	if c.Init.Debug {
		return log.LevelDebug
	}
	level, _ := log.ParseLevel(c.Log.Level)
	return level
}

// IsDryRun reports whether the engine runs in process.
func (c *Config) IsDryRun() bool {
	return c.Engine.URL == EngineDryRun
}

func validateEngineURL(raw string) error {
	if raw == EngineDryRun {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEngineURL, err)
	}
	switch u.Scheme {
	case "ws", "wss", "quic":
	default:
		return fmt.Errorf("%w: %q, want dryrun, ws://, wss:// or quic://", ErrEngineURL, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: %q has no host", ErrEngineURL, raw)
	}
	return nil
}
