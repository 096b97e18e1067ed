package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Kind is the expected value of the config envelope's kind field.
const Kind = "advent"

// OuterConfig is the config file envelope: a kind selector and its definition.
type OuterConfig struct {
	Kind string      `mapstructure:"kind"`
	Def  interface{} `mapstructure:"def"`
}

// Config holds the server and session settings. None of it is persisted state; the
// calendar itself always starts closed.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Session SessionConfig `yaml:"session"`
	// LogLevel is one of debug, info, error.
	LogLevel string `yaml:"loglevel"`
	// Seed fixes the random source when non-zero, which makes snowflakes repeatable.
	Seed int64 `yaml:"seed"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
}

type SessionConfig struct {
	// IdleTimeout is how long a session may go without a connected client before eviction.
	IdleTimeout string `yaml:"idletimeout"`
	// SweepSchedule is a cron spec for the idle-session sweep, e.g. "@every 1m".
	SweepSchedule string `yaml:"sweepschedule"`
	// RequireDraw keeps a cell closed when its snowflake could not be drawn.
	RequireDraw bool `yaml:"requiredraw"`
}

const (
	defaultPort          = "8080"
	defaultIdleTimeout   = "10m"
	defaultSweepSchedule = "@every 1m"
	defaultLogLevel      = "info"
)

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: defaultPort},
		Session: SessionConfig{
			IdleTimeout:   defaultIdleTimeout,
			SweepSchedule: defaultSweepSchedule,
		},
		LogLevel: defaultLogLevel,
	}
}

// Normalize fills zero values with defaults, so partial files behave.
func (cfg *Config) Normalize() {
	if cfg.Server.Port == "" {
		cfg.Server.Port = defaultPort
	}
	if cfg.Session.IdleTimeout == "" {
		cfg.Session.IdleTimeout = defaultIdleTimeout
	}
	if cfg.Session.SweepSchedule == "" {
		cfg.Session.SweepSchedule = defaultSweepSchedule
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}
}

// Addr is the listen address, host:port.
func (cfg *Config) Addr() string {
	return cfg.Server.Host + ":" + cfg.Server.Port
}

// IdleTimeout parses the session idle timeout.
func (cfg *Config) IdleTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(cfg.Session.IdleTimeout)
	if err != nil {
		return 0, fmt.Errorf("session idle timeout: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("session idle timeout must be positive, got %s", d)
	}
	return d, nil
}

// ErrWrongKind is returned when the file's envelope is not an advent config.
var ErrWrongKind = errors.New("config kind mismatch")

// FromYaml reads the config envelope at path with viper and decodes its def section.
// A missing file yields the defaults.
func FromYaml(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}

	vp := viper.New()
	vp.SetConfigFile(path)
	vp.SetConfigType("yaml")

	var err error
	if err = vp.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	outerConfig := &OuterConfig{}
	if err = vp.Unmarshal(outerConfig); err != nil {
		return nil, fmt.Errorf("decode config envelope: %w", err)
	}
	if outerConfig.Kind != Kind {
		return nil, fmt.Errorf("%w: want %q, got %q", ErrWrongKind, Kind, outerConfig.Kind)
	}

	// Viper lower-cases every key, hence the lower-case yaml tags on Config.
	var spec []byte
	if spec, err = yaml.Marshal(outerConfig.Def); err != nil {
		return nil, err
	}

	cfg := Default()
	if err = yaml.Unmarshal(spec, cfg); err != nil {
		return nil, fmt.Errorf("decode config def: %w", err)
	}
	cfg.Normalize()

	if _, err = cfg.IdleTimeout(); err != nil {
		return nil, err
	}
	return cfg, nil
}
