package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrInvalid is returned when a configuration value is out of range.
var ErrInvalid = errors.New("invalid configuration")

// Ferrimagnetic override values.
const (
	FerrimagneticAuto  = "auto"
	FerrimagneticTrue  = "true"
	FerrimagneticFalse = "false"
)

// EnumerationConfig controls which orderings are requested.
type EnumerationConfig struct {
	NumOrderings         int           `mapstructure:"num_orderings"`
	MaxCellSize          int           `mapstructure:"max_cell_size"`
	Timeout              time.Duration `mapstructure:"timeout"`
	AttemptFerrimagnetic string        `mapstructure:"attempt_ferrimagnetic"`
	AttemptAFMByMotif    bool          `mapstructure:"attempt_afm_by_motif"`
	InputMagmomMode      string        `mapstructure:"input_magmom_mode"`
}

// CalcConfig holds the calculation parameters copied into task payloads.
type CalcConfig struct {
	Command        string         `mapstructure:"command"`
	DBFile         string         `mapstructure:"db_file"`
	PerformBader   bool           `mapstructure:"perform_bader"`
	InputOverrides map[string]any `mapstructure:"input_overrides"`
}

// CommandConfig names an external program.
type CommandConfig struct {
	Command string `mapstructure:"command"`
}

// StoreConfig selects where plans are persisted.
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// TelemetryConfig enables the JSONL event stream.
type TelemetryConfig struct {
	Path string `mapstructure:"path"`
}

// LogConfig configures the slog logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Config holds all runtime configuration for a magorder invocation.
// Values are populated from .magorder.yaml, MAGORDER_* env vars, and CLI flags.
type Config struct {
	Enumeration    EnumerationConfig  `mapstructure:"enumeration"`
	DefaultMagmoms map[string]float64 `mapstructure:"default_magmoms"`
	Calc           CalcConfig         `mapstructure:"calc"`
	Generator      CommandConfig      `mapstructure:"generator"`
	Matcher        CommandConfig      `mapstructure:"matcher"`
	Symmetry       CommandConfig      `mapstructure:"symmetry"`
	Store          StoreConfig        `mapstructure:"store"`
	Telemetry      TelemetryConfig    `mapstructure:"telemetry"`
	Log            LogConfig          `mapstructure:"log"`
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags, and validates the
// result.
func Load() (Config, error) {
	viper.SetDefault("enumeration.num_orderings", 10)
	viper.SetDefault("enumeration.max_cell_size", 0)
	viper.SetDefault("enumeration.timeout", time.Duration(0))
	viper.SetDefault("enumeration.attempt_ferrimagnetic", FerrimagneticAuto)
	viper.SetDefault("enumeration.attempt_afm_by_motif", false)
	viper.SetDefault("enumeration.input_magmom_mode", "none")
	viper.SetDefault("default_magmoms", map[string]float64{})
	viper.SetDefault("calc.command", "vasp_std")
	viper.SetDefault("calc.db_file", "db.json")
	viper.SetDefault("calc.perform_bader", true)
	viper.SetDefault("calc.input_overrides", map[string]any{})
	viper.SetDefault("generator.command", "")
	viper.SetDefault("matcher.command", "")
	viper.SetDefault("symmetry.command", "")
	viper.SetDefault("store.driver", "sqlite")
	viper.SetDefault("store.dsn", "magorder.db")
	viper.SetDefault("telemetry.path", "")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges and enumerated options.
func (c Config) Validate() error {
	e := c.Enumeration
	if e.NumOrderings < 1 {
		return fmt.Errorf("%w: enumeration.num_orderings must be positive, got %d", ErrInvalid, e.NumOrderings)
	}
	if e.MaxCellSize < 0 {
		return fmt.Errorf("%w: enumeration.max_cell_size must not be negative, got %d", ErrInvalid, e.MaxCellSize)
	}
	if e.Timeout < 0 {
		return fmt.Errorf("%w: enumeration.timeout must not be negative", ErrInvalid)
	}
	if _, err := ParseFerrimagnetic(e.AttemptFerrimagnetic); err != nil {
		return err
	}
	switch e.InputMagmomMode {
	case "none", "replace_all", "replace_all_if_undefined", "respect_sign", "respect_zeros":
	default:
		return fmt.Errorf("%w: enumeration.input_magmom_mode %q", ErrInvalid, e.InputMagmomMode)
	}
	switch c.Store.Driver {
	case "sqlite", "mysql":
	default:
		return fmt.Errorf("%w: store.driver %q (want sqlite or mysql)", ErrInvalid, c.Store.Driver)
	}
	return nil
}

// ParseFerrimagnetic converts an auto/true/false override into a tri-state
// pointer: nil means auto.
func ParseFerrimagnetic(s string) (*bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", FerrimagneticAuto:
		return nil, nil
	case FerrimagneticTrue:
		v := true
		return &v, nil
	case FerrimagneticFalse:
		v := false
		return &v, nil
	}
	return nil, fmt.Errorf("%w: attempt_ferrimagnetic %q (want auto, true or false)", ErrInvalid, s)
}
