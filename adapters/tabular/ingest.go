package tabular

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"egu-projection/core/store"
	"egu-projection/core/types"
	"egu-projection/internal/errors"
	"egu-projection/internal/logging"
)

// Input table schemas. Column order is the contract; the header row is
// skipped, not matched.
var (
	unitSchema = &Schema{Table: "units", Columns: []Column{
		{Name: "region", Type: Identifier, Required: true},
		{Name: "fuel", Type: Identifier, Required: true},
		{Name: "state", Type: Identifier},
		{Name: "facility_name", Type: Identifier},
		{Name: "facility_id", Type: Identifier, Required: true},
		{Name: "unit_id", Type: Identifier, Required: true},
		{Name: "status", Type: Enum, Required: true, Values: []string{"Full", "Partial", "New", "Non-EGU"}},
		{Name: "online", Type: Date},
		{Name: "offline", Type: Date},
		{Name: "max_hourly_hi", Type: Float, Min: fptr(0)},
		{Name: "heat_rate", Type: Float, Min: fptr(0)},
		{Name: "nameplate_mw", Type: Float, Min: fptr(0)},
		{Name: "base_uf", Type: Float, Min: fptr(0)},
		{Name: "max_annual_uf", Type: Float, Min: fptr(0)},
		{Name: "capacity_limit", Type: Float, Min: fptr(0)},
		{Name: "capacity_limited", Type: Identifier},
		{Name: "optimal_load", Type: Float, Min: fptr(0)},
		{Name: "max_operating_hours", Type: Int, Min: fptr(0), Max: fptr(8784)},
	}}

	hourlySchema = &Schema{Table: "hourly_base", Columns: []Column{
		{Name: "region", Type: Identifier, Required: true},
		{Name: "fuel", Type: Identifier, Required: true},
		{Name: "facility_id", Type: Identifier, Required: true},
		{Name: "unit_id", Type: Identifier, Required: true},
		{Name: "calendar_hour", Type: Int, Required: true, Min: fptr(1), Max: fptr(8784)},
		{Name: "gen", Type: Float, Min: fptr(0)},
		{Name: "heat_input", Type: Float, Min: fptr(0)},
		{Name: "so2_mass", Type: Float, Min: fptr(0)},
		{Name: "nox_mass", Type: Float, Min: fptr(0)},
		{Name: "co2_mass", Type: Float, Min: fptr(0)},
		{Name: "op_time", Type: Float, Min: fptr(0), Max: fptr(1)},
	}}

	growthSchema = &Schema{Table: "growth_rates", Columns: []Column{
		{Name: "region", Type: Identifier, Required: true},
		{Name: "fuel", Type: Identifier, Required: true},
		{Name: "avg_factor", Type: Float, Required: true, Min: fptr(0)},
		{Name: "peak_factor", Type: Float, Required: true, Min: fptr(0)},
		{Name: "transition_peak", Type: Int, Required: true, Min: fptr(1)},
		{Name: "transition_nonpeak", Type: Int, Required: true, Min: fptr(1)},
	}}

	granularityValues = []string{"hourly", "daily", "monthly", "quarterly", "seasonal", "annual"}

	paramsSchema = &Schema{Table: "run_params", Columns: []Column{
		{Name: "region", Type: Identifier, Required: true},
		{Name: "fuel", Type: Identifier, Required: true},
		{Name: "new_unit_max_mw", Type: Float, Min: fptr(0)},
		{Name: "new_unit_min_mw", Type: Float, Min: fptr(0)},
		{Name: "demand_cushion", Type: Float, Min: fptr(0)},
		{Name: "facilities", Type: Identifier},
		{Name: "max_uf", Type: Float, Min: fptr(0)},
		{Name: "deficit_review_rank", Type: Int, Required: true, Min: fptr(1)},
		{Name: "optimal_load_pct", Type: Float, Min: fptr(0), Max: fptr(100)},
		{Name: "placement_pct", Type: Float, Min: fptr(0), Max: fptr(100)},
		{Name: "emission_factor_pct", Type: Float, Min: fptr(0), Max: fptr(100)},
		{Name: "proxy_pct", Type: Float, Min: fptr(0), Max: fptr(100)},
		{Name: "hierarchy", Type: Enum, Required: true, Values: []string{"HOURLY", "6-HOUR", "24-HOUR"}},
		{Name: "nox_granularity", Type: Enum, Values: granularityValues},
		{Name: "so2_granularity", Type: Enum, Values: granularityValues},
		{Name: "max_operating_hours", Type: Int, Min: fptr(0), Max: fptr(8784)},
		{Name: "stat_multiplier", Type: Float, Min: fptr(0)},
		{Name: "heat_rate_lower", Type: Float, Min: fptr(0)},
		{Name: "heat_rate_upper", Type: Float, Min: fptr(0)},
		{Name: "so2_lower", Type: Float, Min: fptr(0)},
		{Name: "so2_upper", Type: Float, Min: fptr(0)},
		{Name: "nox_lower", Type: Float, Min: fptr(0)},
		{Name: "nox_upper", Type: Float, Min: fptr(0)},
	}}

	controlSchema = &Schema{Table: "control_emissions", Columns: []Column{
		{Name: "facility_id", Type: Identifier, Required: true},
		{Name: "unit_id", Type: Identifier, Required: true},
		{Name: "pollutant", Type: Enum, Required: true, Values: []string{"SO2", "NOX", "CO2"}},
		{Name: "start", Type: Date, Required: true},
		{Name: "end", Type: Date},
		{Name: "rate", Type: Float, Min: fptr(0)},
		{Name: "efficiency", Type: Float, Min: fptr(0), Max: fptr(100)},
	}}

	transferSchema = &Schema{Table: "demand_transfers", Columns: []Column{
		{Name: "region", Type: Identifier, Required: true},
		{Name: "fuel", Type: Identifier, Required: true},
		{Name: "calendar_hour", Type: Int, Required: true, Min: fptr(1), Max: fptr(8784)},
		{Name: "amount", Type: Float, Required: true},
	}}

	capSchema = &Schema{Table: "state_caps", Columns: []Column{
		{Name: "name", Type: Identifier, Required: true},
		{Name: "states", Type: Identifier, Required: true},
		{Name: "pollutant", Type: Enum, Required: true, Values: []string{"SO2", "NOX"}},
		{Name: "period", Type: Enum, Required: true, Values: []string{"Annual", "OS"}},
		{Name: "cap_tons", Type: Float, Required: true, Min: fptr(0)},
		{Name: "year_applicable", Type: Int, Required: true},
		{Name: "comments", Type: Identifier},
	}}

	stateCodeSchema = &Schema{Table: "state_codes", Columns: []Column{
		{Name: "state", Type: Identifier, Required: true},
		{Name: "code", Type: Identifier, Required: true},
	}}
)

// Loader ingests the input tables for one run
type Loader struct {
	dir    string
	prefix string

	// Rejected counts rows dropped during validation, per table
	Rejected map[string]int
}

// NewLoader creates a loader over a directory of prefixed CSV files
func NewLoader(dir, prefix string) *Loader {
	return &Loader{dir: dir, prefix: prefix, Rejected: make(map[string]int)}
}

func (l *Loader) path(table string) string {
	return filepath.Join(l.dir, l.prefix+table+".csv")
}

// Load reads every input table into the working set. The unit, hourly, and
// growth tables are mandatory; the rest are optional.
func (l *Loader) Load(w *store.WorkingSet) error {
	if err := l.readTable(unitSchema, true, func(r *Row) error { return loadUnit(w, r) }); err != nil {
		return err
	}
	if err := l.readTable(paramsSchema, false, func(r *Row) error { return loadParams(w, r) }); err != nil {
		return err
	}
	if err := l.readTable(hourlySchema, true, func(r *Row) error { return loadHourly(w, r) }); err != nil {
		return err
	}
	if err := l.readTable(growthSchema, true, func(r *Row) error { return loadGrowth(w, r) }); err != nil {
		return err
	}
	if err := l.readTable(controlSchema, false, func(r *Row) error { return loadControl(w, r) }); err != nil {
		return err
	}
	if err := l.readTable(transferSchema, false, func(r *Row) error { return loadTransfer(w, r) }); err != nil {
		return err
	}
	if err := l.readTable(capSchema, false, func(r *Row) error { return loadCap(w, r) }); err != nil {
		return err
	}
	if err := l.readTable(stateCodeSchema, false, func(r *Row) error {
		w.StateCodes[r.String(0)] = r.String(1)
		return nil
	}); err != nil {
		return err
	}
	return nil
}

// readTable streams one CSV table through a row handler. Validation and
// handler failures reject the row, not the table.
func (l *Loader) readTable(schema *Schema, required bool, fn func(*Row) error) error {
	path := l.path(schema.Table)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			logging.Debug("optional input table absent", zap.String("table", schema.Table))
			return nil
		}
		return errors.Ingest("opening "+path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	line := 0
	loaded := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Ingest("parsing "+path, err)
		}
		line++
		if line == 1 {
			// Header row.
			continue
		}

		if err := schema.validate(record); err == nil {
			err = fn(&Row{schema: schema, line: line, fields: record})
			if err == nil {
				loaded++
				continue
			}
			logging.Warn("row rejected", zap.String("table", schema.Table), zap.Int("line", line), zap.Error(err))
		} else {
			logging.Warn("row rejected", zap.String("table", schema.Table), zap.Int("line", line), zap.Error(err))
		}
		l.Rejected[schema.Table]++
	}

	logging.Info("table loaded",
		zap.String("table", schema.Table),
		zap.Int("rows", loaded),
		zap.Int("rejected", l.Rejected[schema.Table]),
	)
	return nil
}

func loadUnit(w *store.WorkingSet, r *Row) error {
	u := &types.Unit{
		Key:          types.UnitKey{Facility: r.String(4), Unit: r.String(5)},
		Region:       r.String(0),
		Fuel:         r.String(1),
		State:        r.String(2),
		FacilityName: r.String(3),
		Status:       types.BaseStatus(r.String(6)),
		Online:       types.OnlineDefault,
		Offline:      types.OfflineDefault,
	}
	if d, ok := r.Date(7); ok {
		u.Online = d
	}
	if d, ok := r.Date(8); ok {
		u.Offline = d
	}
	if !u.Online.Before(u.Offline) {
		return errors.Data("online date does not precede offline date")
	}
	u.MaxHourlyHI, _ = r.Float(9)
	u.HeatRate, _ = r.Float(10)
	u.NameplateMW, _ = r.Float(11)
	u.BaseUF, _ = r.Float(12)
	u.MaxAnnualUF = r.FloatPtr(13)
	u.CapacityLimit = r.FloatPtr(14)
	u.CapacityLimited = r.Bool(15)
	u.OptimalLoad = r.FloatPtr(16)
	u.MaxOperatingHours = r.IntPtr(17)

	w.AddUnit(u)
	return nil
}

func loadHourly(w *store.WorkingSet, r *Row) error {
	g := types.GroupKey{Region: r.String(0), Fuel: r.String(1)}
	k := types.UnitKey{Facility: r.String(2), Unit: r.String(3)}
	if w.Unit(g, k) == nil {
		return errors.Data("hourly observation for unknown unit")
	}
	hour, _ := r.Int(4)
	if hour > w.Calendar.Hours() {
		return errors.Data("calendar hour beyond the paired calendar")
	}

	obs := ensureBase(w, g, k)
	o := &obs[hour-1]
	o.Gen, _ = r.Float(5)
	o.HeatInput, _ = r.Float(6)
	o.SO2Mass, _ = r.Float(7)
	o.NOxMass, _ = r.Float(8)
	o.CO2Mass, _ = r.Float(9)
	o.OpTime, _ = r.Float(10)
	return nil
}

func loadGrowth(w *store.WorkingSet, r *Row) error {
	g := types.GroupKey{Region: r.String(0), Fuel: r.String(1)}
	gr := &types.GrowthRate{}
	gr.AvgFactor, _ = r.Float(2)
	gr.PeakFactor, _ = r.Float(3)
	gr.TransitionPeak, _ = r.Int(4)
	gr.TransitionNonPeak, _ = r.Int(5)
	if gr.TransitionNonPeak < gr.TransitionPeak {
		return errors.Data("non-peak transition rank precedes peak transition rank")
	}
	w.Growth[g] = gr
	return nil
}

func loadParams(w *store.WorkingSet, r *Row) error {
	g := types.GroupKey{Region: r.String(0), Fuel: r.String(1)}
	p := &types.RunParams{
		Hierarchy:      types.HierarchyCode(strings.ToUpper(r.String(12))),
		RateHardBounds: map[types.Pollutant]types.Bounds{},
	}
	p.NewUnitMaxMW, _ = r.Float(2)
	p.NewUnitMinMW, _ = r.Float(3)
	p.DemandCushion, _ = r.Float(4)
	p.Facilities = r.List(5)
	p.MaxUF, _ = r.Float(6)
	p.DeficitReviewRank, _ = r.Int(7)
	p.OptimalLoadPct, _ = r.Float(8)
	p.PlacementPct, _ = r.Float(9)
	p.EmissionFactorPct, _ = r.Float(10)
	p.ProxyPct, _ = r.Float(11)
	p.NOxGranularity = parseGranularity(r.String(13), types.GranularitySeasonal)
	p.SO2Granularity = parseGranularity(r.String(14), types.GranularityAnnual)
	p.MaxOperatingHours = r.IntPtr(15)
	p.StatMultiplier, _ = r.Float(16)
	p.HeatRateHardBounds = types.Bounds{Lower: r.FloatPtr(17), Upper: r.FloatPtr(18)}
	p.RateHardBounds[types.SO2] = types.Bounds{Lower: r.FloatPtr(19), Upper: r.FloatPtr(20)}
	p.RateHardBounds[types.NOx] = types.Bounds{Lower: r.FloatPtr(21), Upper: r.FloatPtr(22)}
	w.Params[g] = p
	return nil
}

func loadControl(w *store.WorkingSet, r *Row) error {
	c := types.ControlEmission{
		Facility:  r.String(0),
		Unit:      r.String(1),
		Pollutant: types.Pollutant(strings.ToUpper(r.String(2))),
		End:       types.OfflineDefault,
	}
	c.Start, _ = r.Date(3)
	if d, ok := r.Date(4); ok {
		c.End = d
	}
	c.Rate = r.FloatPtr(5)
	c.Efficiency = r.FloatPtr(6)
	if (c.Rate == nil) == (c.Efficiency == nil) {
		return errors.Data("exactly one of rate and efficiency must be set")
	}
	k := types.UnitKey{Facility: c.Facility, Unit: c.Unit}
	w.Controls[k] = append(w.Controls[k], c)
	return nil
}

func loadTransfer(w *store.WorkingSet, r *Row) error {
	g := types.GroupKey{Region: r.String(0), Fuel: r.String(1)}
	hour, _ := r.Int(2)
	if hour > w.Calendar.Hours() {
		return errors.Data("calendar hour beyond the paired calendar")
	}
	amount, _ := r.Float(3)
	if w.Transfers[g] == nil {
		w.Transfers[g] = make([]float64, w.Calendar.Hours())
	}
	w.Transfers[g][hour-1] += amount
	return nil
}

func loadCap(w *store.WorkingSet, r *Row) error {
	cap := types.CapListing{
		Name:      r.String(0),
		States:    r.List(1),
		Pollutant: types.Pollutant(strings.ToUpper(r.String(2))),
		Period:    r.String(3),
		Comments:  r.String(6),
	}
	cap.CapTons, _ = r.Float(4)
	cap.YearApplicable, _ = r.Int(5)
	w.CapListings = append(w.CapListings, cap)
	return nil
}

// ensureBase materializes a unit's full-calendar observation slice
func ensureBase(w *store.WorkingSet, g types.GroupKey, k types.UnitKey) []types.HourlyBase {
	if w.Base[g] == nil {
		w.Base[g] = make(map[types.UnitKey][]types.HourlyBase)
	}
	obs := w.Base[g][k]
	if obs == nil {
		obs = make([]types.HourlyBase, w.Calendar.Hours())
		for i := range obs {
			obs[i].CalendarHour = i + 1
		}
		w.Base[g][k] = obs
	}
	return obs
}

func parseGranularity(s string, fallback types.RateGranularity) types.RateGranularity {
	switch strings.ToLower(s) {
	case "hourly":
		return types.GranularityHourly
	case "daily":
		return types.GranularityDaily
	case "monthly":
		return types.GranularityMonthly
	case "quarterly":
		return types.GranularityQuarterly
	case "seasonal":
		return types.GranularitySeasonal
	case "annual":
		return types.GranularityAnnual
	}
	return fallback
}
