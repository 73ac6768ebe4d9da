// Package cmd provides the CLI commands for egu-projection.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"egu-projection/internal/config"
	"egu-projection/internal/logging"
)

var (
	cfgFile string
	verbose bool
	quiet   bool

	appCfg *config.App
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "egu-projection",
	Short: "Project hourly electricity generation and emissions into a future year",
	Long: `egu-projection grows observed base-year unit activity into a future year,
hour by hour, within each region and fuel bin.

It ranks hours and units, solves peak/non-peak growth factors, assigns
generation under unit limits, synthesizes generic capacity where demand
outruns the fleet, checks spinning reserve, and resolves emission rates.

Examples:
  egu-projection project --scenario run2030.hcl
  egu-projection project --scenario run2030.hcl --input-prefix case1_ --output-prefix case1_`,
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "app config file (YAML; environment overrides apply)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "log warnings and errors only")

	rootCmd.AddCommand(projectCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	cfg, err := config.LoadApp(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	appCfg = cfg

	if verbose {
		appCfg.Logging.Level = "debug"
	}
	if quiet {
		appCfg.Logging.Level = "warn"
	}
	if err := logging.Initialize(appCfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
	}
}

// versionCmd prints version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("egu-projection version 0.1.0")
	},
}
