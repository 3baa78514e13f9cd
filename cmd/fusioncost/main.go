package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "fusioncost",
		Short: "Fusion power plant costing and cashflow engine",
	}

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(sweepCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(materialsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	var asJSON, asMarkdown, save bool

	cmd := &cobra.Command{
		Use:   "run [scenario-file]",
		Short: "Evaluate one scenario and print its costs and financial metrics",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runScenario(args[0], runOptions{json: asJSON, markdown: asMarkdown, save: save})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full result as JSON")
	cmd.Flags().BoolVar(&asMarkdown, "markdown", false, "Print the Markdown summary")
	cmd.Flags().BoolVar(&save, "save", false, "Store the result in the result cache")
	return cmd
}

func sweepCmd() *cobra.Command {
	var (
		workers int
		drivers []string
		bands   []float64
		asJSON  bool
		save    bool
	)

	cmd := &cobra.Command{
		Use:   "sweep [scenario-file]",
		Short: "Run a sensitivity sweep around a scenario and print the tornado",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(cmd.Context(), args[0], sweepOptions{
				workers: workers,
				drivers: drivers,
				bands:   bands,
				json:    asJSON,
				save:    save,
			})
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Concurrent scenario evaluations (default from FUSION_SWEEP_WORKERS)")
	cmd.Flags().StringSliceVarP(&drivers, "drivers", "d", nil, "Drivers to perturb (default all)")
	cmd.Flags().Float64SliceVarP(&bands, "bands", "b", nil, "Relative bands, e.g. -0.1,0.1 (default ±2% to ±14%)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full sweep as JSON")
	cmd.Flags().BoolVar(&save, "save", false, "Store the sweep in the database")
	return cmd
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [scenario-file]",
		Short: "Validate a scenario file without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runValidate(args[0])
		},
	}
}

func materialsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "materials",
		Short: "List the material property table",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			printMaterials()
			return nil
		},
	}
}
