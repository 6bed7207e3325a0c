package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/magorder/internal/structure"
	"github.com/papapumpkin/magorder/internal/workflow"
)

var deformationCmd = &cobra.Command{
	Use:   "deformation <structure-file>",
	Short: "Build the magnetic deformation workflow",
	Long: `Builds a workflow that relaxes the structure twice, once without and
once with spin polarization, and compares the two to measure the
volume change caused by magnetism.`,
	Args: cobra.ExactArgs(1),
	RunE: runDeformation,
}

func init() {
	deformationCmd.Flags().Bool("json", false, "output the plan as JSON")
	deformationCmd.Flags().Bool("save", false, "persist the plan to the configured store")
	rootCmd.AddCommand(deformationCmd)
}

func runDeformation(cmd *cobra.Command, args []string) error {
	out, err := planOutputFlags(cmd)
	if err != nil {
		return err
	}
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	collab, err := s.collaborators(false)
	if err != nil {
		return err
	}
	opts := workflow.DeformationOptions{Calc: s.calcOptions()}

	return s.buildAndShow(s.context(cmd.Context()), cmd, args[0], out,
		func(ctx context.Context, st structure.Structure) (*workflow.Plan, error) {
			return workflow.BuildMagneticDeformationPlan(ctx, st, opts, collab)
		})
}
