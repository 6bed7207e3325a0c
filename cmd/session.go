package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/magorder/internal/config"
	"github.com/papapumpkin/magorder/internal/enumerate"
	"github.com/papapumpkin/magorder/internal/extproc"
	"github.com/papapumpkin/magorder/internal/logging"
	"github.com/papapumpkin/magorder/internal/magnetism"
	"github.com/papapumpkin/magorder/internal/telemetry"
	"github.com/papapumpkin/magorder/internal/ui"
	"github.com/papapumpkin/magorder/internal/workflow"
)

// session holds what every command needs: configuration, logger, printer
// and the optional telemetry stream.
type session struct {
	cfg     config.Config
	logger  *slog.Logger
	printer *ui.Printer
	tel     *telemetry.Emitter
}

func newSession(cmd *cobra.Command) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	level := cfg.Log.Level
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = "debug"
	}
	s := &session{
		cfg:     cfg,
		logger:  logging.New(level, cfg.Log.Format, cmd.ErrOrStderr()),
		printer: ui.New(cmd.ErrOrStderr(), colorEnabled(cmd)),
	}
	if cfg.Telemetry.Path != "" {
		tel, err := telemetry.NewEmitter(cfg.Telemetry.Path)
		if err != nil {
			return nil, err
		}
		s.tel = tel
	}
	return s, nil
}

func (s *session) Close() {
	if err := s.tel.Close(); err != nil {
		s.logger.Warn("closing telemetry", "error", err)
	}
}

func (s *session) context(ctx context.Context) context.Context {
	return logging.WithLogger(ctx, s.logger)
}

func colorEnabled(cmd *cobra.Command) bool {
	noColor, _ := cmd.Flags().GetBool("no-color")
	return !noColor && os.Getenv("NO_COLOR") == ""
}

// graphWidth is the terminal width used for graph drawings.
func graphWidth() int {
	if n, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && n > 20 {
		return n
	}
	return 100
}

// collaborators wires the configured external programs. requireGenerator
// turns a missing generator command into a configuration error.
func (s *session) collaborators(requireGenerator bool) (workflow.Collaborators, error) {
	c := workflow.Collaborators{Classifier: magnetism.Classifier{}}
	c.Telemetry = s.tel

	gen, err := s.runner("generator", s.cfg.Generator.Command)
	if err != nil {
		return c, err
	}
	switch {
	case gen != nil:
		c.Generator = extproc.Generator{Runner: *gen}
	case requireGenerator:
		return c, fmt.Errorf("%w: generator.command is not set", config.ErrInvalid)
	}

	if m, err := s.runner("matcher", s.cfg.Matcher.Command); err != nil {
		return c, err
	} else if m != nil {
		c.Matcher = extproc.Matcher{Runner: *m}
	}
	if sym, err := s.runner("symmetry", s.cfg.Symmetry.Command); err != nil {
		return c, err
	} else if sym != nil {
		c.Symmetry = extproc.Symmetry{Runner: *sym}
	}
	return c, nil
}

func (s *session) runner(name, command string) (*extproc.Runner, error) {
	if command == "" {
		s.logger.Debug("no external program configured, using built-in", "collaborator", name)
		return nil, nil
	}
	r, err := extproc.NewRunner(command)
	if err != nil {
		return nil, fmt.Errorf("%w: %s.command: %v", config.ErrInvalid, name, err)
	}
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return &r, nil
}

func (s *session) calcOptions() workflow.CalcOptions {
	return workflow.CalcOptions{
		Command:        s.cfg.Calc.Command,
		DBFile:         s.cfg.Calc.DBFile,
		PerformBader:   s.cfg.Calc.PerformBader,
		InputOverrides: s.cfg.Calc.InputOverrides,
	}
}

func (s *session) orderingOptions() (workflow.Options, error) {
	e := s.cfg.Enumeration
	ferri, err := config.ParseFerrimagnetic(e.AttemptFerrimagnetic)
	if err != nil {
		return workflow.Options{}, err
	}
	mode, err := magnetism.ParseMode(e.InputMagmomMode)
	if err != nil {
		return workflow.Options{}, fmt.Errorf("%w: %v", config.ErrInvalid, err)
	}
	return workflow.Options{
		Options: enumerate.Options{
			DefaultMagmoms:  s.cfg.DefaultMagmoms,
			InputMagmomMode: mode,
			Overrides: enumerate.Overrides{
				AttemptFerrimagnetic: ferri,
				AttemptAFMByMotif:    e.AttemptAFMByMotif,
			},
			NumOrderings: e.NumOrderings,
			MaxCellSize:  e.MaxCellSize,
			Timeout:      e.Timeout,
		},
		Calc: s.calcOptions(),
	}, nil
}
