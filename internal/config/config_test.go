package config

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

// resetViper clears all viper state between tests to avoid cross-contamination.
func resetViper() {
	viper.Reset()
}

func TestLoad_Defaults(t *testing.T) {
	resetViper()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"NumOrderings", cfg.Enumeration.NumOrderings, 10},
		{"MaxCellSize", cfg.Enumeration.MaxCellSize, 0},
		{"Timeout", cfg.Enumeration.Timeout, time.Duration(0)},
		{"AttemptFerrimagnetic", cfg.Enumeration.AttemptFerrimagnetic, "auto"},
		{"AttemptAFMByMotif", cfg.Enumeration.AttemptAFMByMotif, false},
		{"InputMagmomMode", cfg.Enumeration.InputMagmomMode, "none"},
		{"CalcCommand", cfg.Calc.Command, "vasp_std"},
		{"DBFile", cfg.Calc.DBFile, "db.json"},
		{"PerformBader", cfg.Calc.PerformBader, true},
		{"GeneratorCommand", cfg.Generator.Command, ""},
		{"StoreDriver", cfg.Store.Driver, "sqlite"},
		{"StoreDSN", cfg.Store.DSN, "magorder.db"},
		{"TelemetryPath", cfg.Telemetry.Path, ""},
		{"LogLevel", cfg.Log.Level, "info"},
		{"LogFormat", cfg.Log.Format, "text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	tests := []struct {
		name   string
		envKey string
		envVal string
		field  func(Config) any
		want   any
	}{
		{
			name:   "num_orderings",
			envKey: "MAGORDER_ENUMERATION_NUM_ORDERINGS",
			envVal: "4",
			field:  func(c Config) any { return c.Enumeration.NumOrderings },
			want:   4,
		},
		{
			name:   "timeout",
			envKey: "MAGORDER_ENUMERATION_TIMEOUT",
			envVal: "90s",
			field:  func(c Config) any { return c.Enumeration.Timeout },
			want:   90 * time.Second,
		},
		{
			name:   "afm_by_motif",
			envKey: "MAGORDER_ENUMERATION_ATTEMPT_AFM_BY_MOTIF",
			envVal: "true",
			field:  func(c Config) any { return c.Enumeration.AttemptAFMByMotif },
			want:   true,
		},
		{
			name:   "generator",
			envKey: "MAGORDER_GENERATOR_COMMAND",
			envVal: "/opt/enum/bin/enumerate",
			field:  func(c Config) any { return c.Generator.Command },
			want:   "/opt/enum/bin/enumerate",
		},
		{
			name:   "store_driver",
			envKey: "MAGORDER_STORE_DRIVER",
			envVal: "mysql",
			field:  func(c Config) any { return c.Store.Driver },
			want:   "mysql",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetViper()
			// Set env prefix so MAGORDER_* env vars map to nested config keys.
			viper.SetEnvPrefix("MAGORDER")
			viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
			viper.AutomaticEnv()

			os.Setenv(tt.envKey, tt.envVal)
			defer os.Unsetenv(tt.envKey)

			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() returned unexpected error: %v", err)
			}
			got := tt.field(cfg)
			if got != tt.want {
				t.Errorf("%s: got %v (%T), want %v (%T)", tt.name, got, got, tt.want, tt.want)
			}
		})
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  any
	}{
		{"zero orderings", "enumeration.num_orderings", 0},
		{"negative cell size", "enumeration.max_cell_size", -1},
		{"bad ferrimagnetic", "enumeration.attempt_ferrimagnetic", "sometimes"},
		{"bad magmom mode", "enumeration.input_magmom_mode", "guess"},
		{"bad driver", "store.driver", "postgres"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetViper()
			viper.Set(tt.key, tt.val)
			_, err := Load()
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("Load() error = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestParseFerrimagnetic(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want string // "nil", "true", "false"
	}{
		{"auto", "nil"},
		{"", "nil"},
		{"TRUE", "true"},
		{"false", "false"},
	}
	for _, tt := range tests {
		got, err := ParseFerrimagnetic(tt.in)
		if err != nil {
			t.Fatalf("ParseFerrimagnetic(%q): %v", tt.in, err)
		}
		s := "nil"
		if got != nil {
			if *got {
				s = "true"
			} else {
				s = "false"
			}
		}
		if s != tt.want {
			t.Errorf("ParseFerrimagnetic(%q) = %s, want %s", tt.in, s, tt.want)
		}
	}
}
