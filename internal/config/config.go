// Package config provides configuration management.
//
// Configuration comes in two layers: App covers environment-level settings
// (logging, file locations) and is read with cleanenv from YAML plus
// environment variables; Scenario covers the modeling run itself (years,
// ozone season) and is read from an HCL file so a run is reproducible from
// a single checked-in document.
package config

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/ilyakaznacheev/cleanenv"

	"egu-projection/internal/errors"
	"egu-projection/internal/logging"
)

// App is the application-level configuration
type App struct {
	// Logging contains logging configuration
	Logging logging.Config `json:"logging" yaml:"logging"`

	// InputDir is the directory holding input CSV tables
	InputDir string `json:"input_dir" yaml:"input_dir" env:"EGU_INPUT_DIR" env-default:"."`

	// OutputDir is the directory where report tables are written
	OutputDir string `json:"output_dir" yaml:"output_dir" env:"EGU_OUTPUT_DIR" env-default:"."`
}

// DefaultApp returns a default application configuration
func DefaultApp() *App {
	return &App{
		Logging:   logging.DefaultConfig(),
		InputDir:  ".",
		OutputDir: ".",
	}
}

// LoadApp reads application configuration from an optional YAML file,
// overlaid with environment variables. An empty path loads environment
// variables over defaults.
func LoadApp(path string) (*App, error) {
	cfg := DefaultApp()
	if path != "" {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, errors.Wrapf(errors.TypeConfig, err, "reading app config %s", path)
		}
		return cfg, nil
	}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, errors.Wrap(errors.TypeConfig, "reading app config from environment", err)
	}
	return cfg, nil
}

// Scenario identifies one projection run: the historical base year, the
// target future year, and the ozone season window applied to both.
type Scenario struct {
	// BaseYear is the historical year supplying observed activity
	BaseYear int `hcl:"base_year"`

	// FutureYear is the target year being projected
	FutureYear int `hcl:"future_year"`

	// OzoneStart is the ozone season start as "MM-DD"
	OzoneStart string `hcl:"ozone_start,optional"`

	// OzoneEnd is the ozone season end as "MM-DD"
	OzoneEnd string `hcl:"ozone_end,optional"`
}

// Validate checks scenario consistency
func (s *Scenario) Validate() error {
	if s.BaseYear < 1990 || s.BaseYear > 2100 {
		return errors.Newf(errors.TypeConfig, "base_year %d out of range", s.BaseYear)
	}
	if s.FutureYear < s.BaseYear {
		return errors.Newf(errors.TypeConfig, "future_year %d precedes base_year %d", s.FutureYear, s.BaseYear)
	}
	if (s.OzoneStart == "") != (s.OzoneEnd == "") {
		return errors.New(errors.TypeConfig, "ozone_start and ozone_end must be set together")
	}
	return nil
}

// LoadScenario reads a scenario definition from an HCL file
func LoadScenario(path string) (*Scenario, error) {
	var s Scenario
	if err := hclsimple.DecodeFile(path, nil, &s); err != nil {
		return nil, errors.Wrapf(errors.TypeConfig, err, "reading scenario %s", path)
	}
	if s.OzoneStart == "" {
		s.OzoneStart = "05-01"
		s.OzoneEnd = "09-30"
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// String renders the scenario for run logs
func (s *Scenario) String() string {
	return fmt.Sprintf("base %d -> future %d (ozone %s..%s)", s.BaseYear, s.FutureYear, s.OzoneStart, s.OzoneEnd)
}
