// Package cmd - project command
package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"egu-projection/adapters/tabular"
	"egu-projection/core/engine"
	"egu-projection/core/store"
	"egu-projection/core/types"
	"egu-projection/internal/config"
)

var (
	scenarioFile string
	inputPrefix  string
	outputPrefix string
)

// projectCmd represents the project command
var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Run one projection scenario",
	Long: `Read the input tables, run the projection pipeline for every region and
fuel group, and write the result tables.

The scenario file (HCL) names the base and future years and the ozone
season. Input and output locations come from the app config or environment,
with optional per-run file prefixes.

Examples:
  egu-projection project --scenario run2030.hcl
  egu-projection project --scenario run2030.hcl --input-prefix east_`,
	RunE: runProject,
}

func init() {
	projectCmd.Flags().StringVarP(&scenarioFile, "scenario", "s", "", "scenario definition file (HCL)")
	projectCmd.Flags().StringVar(&inputPrefix, "input-prefix", "", "prefix for input CSV file names")
	projectCmd.Flags().StringVar(&outputPrefix, "output-prefix", "", "prefix for output CSV file names")
	_ = projectCmd.MarkFlagRequired("scenario")
}

func runProject(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	startTime := time.Now()

	scenario, err := config.LoadScenario(scenarioFile)
	if err != nil {
		return err
	}
	fmt.Printf("Scenario: %s\n", scenario)

	cal, err := types.NewCalendar(scenario.BaseYear, scenario.FutureYear, scenario.OzoneStart, scenario.OzoneEnd)
	if err != nil {
		return fmt.Errorf("building calendar: %w", err)
	}

	w := store.New(cal)
	loader := tabular.NewLoader(appCfg.InputDir, inputPrefix)
	if err := loader.Load(w); err != nil {
		return err
	}
	for table, n := range loader.Rejected {
		fmt.Printf("Warning: %d rows rejected from %s\n", n, table)
	}

	eng := engine.New(w)
	if err := eng.Run(ctx); err != nil {
		return err
	}

	if err := tabular.NewExporter(appCfg.OutputDir, outputPrefix).Export(w); err != nil {
		return err
	}

	fmt.Printf("Run %s completed in %s\n", eng.RunID(), time.Since(startTime).Round(time.Millisecond))
	fmt.Printf("  groups: %d  generic units: %d  deficit hours: %d\n",
		len(w.Groups()), len(w.GenericUnits), len(w.Deficits))
	return nil
}
