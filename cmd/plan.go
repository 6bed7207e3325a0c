package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papapumpkin/magorder/internal/dag"
	"github.com/papapumpkin/magorder/internal/store"
	"github.com/papapumpkin/magorder/internal/structure"
	"github.com/papapumpkin/magorder/internal/watch"
	"github.com/papapumpkin/magorder/internal/workflow"
)

var planCmd = &cobra.Command{
	Use:   "plan <structure-file>",
	Short: "Enumerate magnetic orderings and build the calculation workflow",
	Long: `Reads a structure (TOML or JSON), enumerates candidate collinear
orderings of its magnetic sites, removes duplicates, locates the input
ordering in the pool and prints the resulting relax/static/aggregate
workflow.

With --save the plan is written to the configured store. With --watch the
plan is rebuilt whenever the structure file changes.`,
	Args: cobra.ExactArgs(1),
	RunE: runPlan,
}

func init() {
	planCmd.Flags().String("ferrimagnetic", "auto", "ferrimagnetic strategies: auto, true or false")
	planCmd.Flags().Bool("afm-by-motif", false, "also attempt antiferromagnetic-by-motif orderings")
	planCmd.Flags().Int("num-orderings", 10, "orderings to keep per strategy call")
	planCmd.Flags().Int("max-cell-size", 0, "largest supercell multiple to search (0 picks automatically)")
	planCmd.Flags().Duration("timeout", 0, "time limit for each generator call (0 means none)")
	planCmd.Flags().Bool("json", false, "output the plan as JSON")
	planCmd.Flags().Bool("save", false, "persist the plan to the configured store")
	planCmd.Flags().Bool("watch", false, "rebuild the plan whenever the structure file changes")
	planCmd.Flags().String("report", "", "print a task report instead of the graph: plan or tracks")

	_ = viper.BindPFlag("enumeration.attempt_ferrimagnetic", planCmd.Flags().Lookup("ferrimagnetic"))
	_ = viper.BindPFlag("enumeration.attempt_afm_by_motif", planCmd.Flags().Lookup("afm-by-motif"))
	_ = viper.BindPFlag("enumeration.num_orderings", planCmd.Flags().Lookup("num-orderings"))
	_ = viper.BindPFlag("enumeration.max_cell_size", planCmd.Flags().Lookup("max-cell-size"))
	_ = viper.BindPFlag("enumeration.timeout", planCmd.Flags().Lookup("timeout"))

	rootCmd.AddCommand(planCmd)
}

// planOutput selects how a built plan is shown and kept.
type planOutput struct {
	json   bool
	save   bool
	report string
}

func planOutputFlags(cmd *cobra.Command) (planOutput, error) {
	var out planOutput
	out.json, _ = cmd.Flags().GetBool("json")
	out.save, _ = cmd.Flags().GetBool("save")
	if cmd.Flags().Lookup("report") != nil {
		out.report, _ = cmd.Flags().GetString("report")
	}
	switch out.report {
	case "", "plan", "tracks":
	default:
		return out, fmt.Errorf("unknown report %q (want plan or tracks)", out.report)
	}
	return out, nil
}

func runPlan(cmd *cobra.Command, args []string) error {
	out, err := planOutputFlags(cmd)
	if err != nil {
		return err
	}
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	opts, err := s.orderingOptions()
	if err != nil {
		return err
	}
	collab, err := s.collaborators(true)
	if err != nil {
		return err
	}

	build := func(ctx context.Context, st structure.Structure) (*workflow.Plan, error) {
		return workflow.BuildMagneticOrderingPlan(ctx, st, opts, collab)
	}

	ctx, stop := signal.NotifyContext(s.context(cmd.Context()), os.Interrupt, syscall.SIGTERM)
	defer stop()

	path := args[0]
	if watching, _ := cmd.Flags().GetBool("watch"); watching {
		return s.watchPlan(ctx, cmd, path, out, build)
	}
	return s.buildAndShow(ctx, cmd, path, out, build)
}

type planBuilder func(ctx context.Context, st structure.Structure) (*workflow.Plan, error)

// buildAndShow loads the structure at path, builds a plan and prints,
// saves or encodes it as requested.
func (s *session) buildAndShow(ctx context.Context, cmd *cobra.Command, path string, out planOutput, build planBuilder) error {
	st, err := structure.Load(path)
	if err != nil {
		return err
	}
	s.logger.Debug("structure loaded", "path", path, "formula", st.ReducedFormula(), "sites", st.Len())

	plan, err := build(ctx, st)
	if err != nil {
		return fmt.Errorf("building plan for %s: %w", path, err)
	}

	if out.save {
		if err := s.savePlan(ctx, plan); err != nil {
			return err
		}
	}

	if out.json {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(plan)
	}

	s.printer.PlanSummary(plan)
	switch out.report {
	case "plan":
		return s.printer.Report(plan.Graph, dag.ExecutionPlanStrategy{Label: taskLabel(plan.Graph)})
	case "tracks":
		return s.printer.Report(plan.Graph, dag.TrackAssignmentStrategy{})
	}
	return s.printer.Graph(plan, graphWidth())
}

func taskLabel(g *workflow.Graph) func(string) string {
	return func(id string) string {
		if n, ok := g.Node(id); ok {
			return n.Name
		}
		return ""
	}
}

func (s *session) savePlan(ctx context.Context, plan *workflow.Plan) error {
	st, err := store.Open(ctx, s.cfg.Store.Driver, s.cfg.Store.DSN)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.SavePlan(ctx, plan); err != nil {
		return err
	}
	s.printer.Success(fmt.Sprintf("saved run %s to %s store", plan.RunID, st.Driver()))
	return nil
}

// watchPlan builds once, then rebuilds on every change to path until the
// context is cancelled. Build errors are reported and watching continues.
func (s *session) watchPlan(ctx context.Context, cmd *cobra.Command, path string, out planOutput, build planBuilder) error {
	w, err := watch.New(path)
	if err != nil {
		return fmt.Errorf("watching %s: %w", path, err)
	}
	if err := w.Start(); err != nil {
		return fmt.Errorf("watching %s: %w", path, err)
	}
	defer w.Stop()

	if err := s.buildAndShow(ctx, cmd, path, out, build); err != nil {
		s.printer.Error(err.Error())
	}
	s.printer.Watching(w.File)

	for {
		select {
		case <-ctx.Done():
			return nil
		case change, ok := <-w.Changes:
			if !ok {
				return nil
			}
			if change.Kind == watch.ChangeRemoved {
				s.printer.Warn(fmt.Sprintf("%s was removed; waiting for it to return", change.File))
				continue
			}
			s.logger.Info("structure changed, rebuilding", "path", change.File)
			if err := s.buildAndShow(ctx, cmd, path, out, build); err != nil {
				s.printer.Error(err.Error())
			}
		}
	}
}
