package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/magorder/internal/enumerate"
	"github.com/papapumpkin/magorder/internal/magnetism"
	"github.com/papapumpkin/magorder/internal/structure"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <structure-file>",
	Short: "Classify a structure and show which strategies would run",
	Long: `Sanitizes the structure, classifies its input ordering, profiles the
coordination environments of its magnetic sites and lists the selected
enumeration strategies. Nothing is enumerated.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().Bool("json", false, "output the analysis as JSON")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	opts, err := s.orderingOptions()
	if err != nil {
		return err
	}
	collab, err := s.collaborators(false)
	if err != nil {
		return err
	}

	st, err := structure.Load(args[0])
	if err != nil {
		return err
	}
	an, err := enumerate.Analyze(s.context(cmd.Context()), st, opts.Options, collab.Collaborators)
	if err != nil {
		return fmt.Errorf("inspecting %s: %w", args[0], err)
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(newInspectJSON(an))
	}
	s.printer.Analysis(an)
	return nil
}

// inspectJSON is the machine-readable form of an analysis.
type inspectJSON struct {
	Formula                string                      `json:"formula"`
	Ordering               magnetism.Ordering          `json:"ordering"`
	MagneticSpecies        []magnetism.MagneticSpecies `json:"magnetic_species"`
	NumMagneticSites       int                         `json:"num_magnetic_sites"`
	NumUniqueMagneticSites int                         `json:"num_unique_magnetic_sites"`
	Environments           []int                       `json:"coordination_environments"`
	Strategies             []enumerate.Strategy        `json:"strategies"`
}

func newInspectJSON(an *enumerate.Analysis) inspectJSON {
	san := an.Sanitized
	return inspectJSON{
		Formula:                san.Formula,
		Ordering:               san.OriginalOrdering,
		MagneticSpecies:        san.MagneticSpecies,
		NumMagneticSites:       san.NumMagneticSites,
		NumUniqueMagneticSites: san.NumUniqueMagneticSites,
		Environments:           an.Environments.Unique,
		Strategies:             an.Strategies,
	}
}
