// Package engine orchestrates one full projection run over a working set.
//
// The pipeline runs region by region, fuel group by fuel group: rate limits,
// hierarchies, growth solving, the assignment loop with its
// deficit/synthesize/restart cycle, excess allocation, and emission
// resolution. Spinning reserve is checked per region once its groups are
// done, and the rollup tables are built last.
package engine

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"egu-projection/core/assign"
	"egu-projection/core/emissions"
	"egu-projection/core/generic"
	"egu-projection/core/growth"
	"egu-projection/core/hierarchy"
	"egu-projection/core/rates"
	"egu-projection/core/reserve"
	"egu-projection/core/store"
	"egu-projection/core/summary"
	"egu-projection/core/types"
	"egu-projection/internal/errors"
	"egu-projection/internal/logging"
)

// maxRestarts bounds the deficit/synthesize/restart cycle per group. One
// synthesis pass covers the whole detected shortfall, so more than a handful
// of restarts means synthesis is not actually adding usable capacity.
const maxRestarts = 10

// Engine runs the projection pipeline over one working set
type Engine struct {
	w     *store.WorkingSet
	synth *generic.Synthesizer
	runID string
}

// New creates an engine for a populated working set
func New(w *store.WorkingSet) *Engine {
	return &Engine{
		w:     w,
		synth: generic.NewSynthesizer(),
		runID: uuid.NewString(),
	}
}

// RunID identifies this run in logs and output metadata
func (e *Engine) RunID() string {
	return e.runID
}

// Run executes the full pipeline. Group-configuration problems skip the
// affected group with a warning; data-consistency problems fail the run.
// The context is checked between regions.
func (e *Engine) Run(ctx context.Context) error {
	logging.Info("projection run starting",
		zap.String("run_id", e.runID),
		zap.Int("base_year", e.w.Calendar.BaseYear),
		zap.Int("future_year", e.w.Calendar.FutureYear),
		zap.Int("groups", len(e.w.Groups())),
	)

	for _, region := range e.regions() {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(errors.TypeInternal, "run cancelled", err)
		}
		for _, g := range e.w.GroupsInRegion(region) {
			if err := e.runGroup(g); err != nil {
				// Configuration and capacity-exhaustion problems are scoped
				// to the group; data problems poison the whole run.
				if errors.IsType(err, errors.TypeConfig) || errors.IsType(err, errors.TypeCapacity) {
					logging.Warn("skipping group", logging.Region(g.Region), logging.Fuel(g.Fuel), zap.Error(err))
					continue
				}
				return err
			}
		}
		reserve.Check(e.w, region)
	}

	summary.BuildUnitActivity(e.w)
	summary.BuildCapacityDemand(e.w)
	summary.BuildCapAnalyses(e.w)
	summary.BuildReserveRollups(e.w)

	logging.Info("projection run complete",
		zap.String("run_id", e.runID),
		zap.Int("generic_units", len(e.w.GenericUnits)),
		zap.Int("deficit_hours", len(e.w.Deficits)),
	)
	return nil
}

// regions returns the regions to process. Groups exist only where units were
// ingested, so GenParams must be materialized for each group first.
func (e *Engine) regions() []string {
	for g := range e.w.Units {
		e.w.EnsureGenParams(g)
	}
	return e.w.Regions()
}

// runGroup runs the per-group stages of the pipeline
func (e *Engine) runGroup(g types.GroupKey) error {
	logging.Debug("processing group", logging.Region(g.Region), logging.Fuel(g.Fuel))

	rates.BuildGroup(e.w, g)
	rates.BuildOptimalLoads(e.w, g)
	if err := hierarchy.BuildTemporal(e.w, g); err != nil {
		return err
	}
	hierarchy.BuildUnits(e.w, g)

	growth.PrepareBase(e.w, g)
	growth.Solve(e.w, g)
	if err := growth.Apply(e.w, g); err != nil {
		return err
	}

	assign.BuildProxyProfiles(e.w, g)

	initialCapacity := e.w.FleetCapacity(g)
	hadDeficit := false
	for attempt := 0; ; attempt++ {
		outcome := assign.Run(e.w, g)
		if outcome.Complete() {
			break
		}
		hadDeficit = true
		if attempt >= maxRestarts {
			return errors.Newf(errors.TypeCapacity,
				"assignment still short %.1f MW of capacity after %d synthesis rounds",
				outcome.Deficit, attempt).WithGroup(g.Region, g.Fuel)
		}
		logging.Info("capacity deficit detected; synthesizing generic units",
			logging.Region(g.Region), logging.Fuel(g.Fuel),
			zap.Float64("deficit_mw", outcome.Deficit),
		)
		added, err := e.synth.Fill(e.w, g, outcome.Deficit)
		if err != nil {
			return err
		}
		if added == 0 {
			return errors.Newf(errors.TypeCapacity,
				"capacity deficit of %.1f MW and no generic units could be added",
				outcome.Deficit).WithGroup(g.Region, g.Fuel)
		}
	}
	if hadDeficit {
		generic.RecordDeficits(e.w, g, initialCapacity)
	}

	assign.AllocateExcess(e.w, g)
	emissions.Resolve(e.w, g)
	return nil
}
