package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/magorder/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs [run-id]",
	Short: "List stored plans, or show one",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRuns,
}

func init() {
	runsCmd.Flags().Bool("json", false, "output as JSON")
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := s.context(cmd.Context())
	st, err := store.Open(ctx, s.cfg.Store.Driver, s.cfg.Store.DSN)
	if err != nil {
		return err
	}
	defer st.Close()

	asJSON, _ := cmd.Flags().GetBool("json")
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")

	if len(args) == 0 {
		runs, err := st.ListRuns(ctx)
		if err != nil {
			return err
		}
		if asJSON {
			return enc.Encode(runs)
		}
		s.printer.Runs(runs)
		return nil
	}

	rec, err := st.LoadRun(ctx, args[0])
	if err != nil {
		return err
	}
	if asJSON {
		return enc.Encode(rec)
	}
	s.printer.Run(rec)
	return nil
}
