package tabular

import (
	"bufio"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"egu-projection/core/store"
	"egu-projection/core/types"
	"egu-projection/internal/errors"
	"egu-projection/internal/logging"
)

// Exporter writes the run's result tables as prefixed CSV files
type Exporter struct {
	dir    string
	prefix string
}

// NewExporter creates an exporter into a directory
func NewExporter(dir, prefix string) *Exporter {
	return &Exporter{dir: dir, prefix: prefix}
}

// Export writes every output table, including the full hourly projections
func (e *Exporter) Export(w *store.WorkingSet) error {
	tables := []struct {
		name  string
		write func(*csv.Writer, *store.WorkingSet) error
	}{
		{"generic_units", writeGenericUnits},
		{"demand_deficits", writeDeficits},
		{"reserve_checks", writeReserveChecks},
		{"unit_activity", writeUnitActivity},
		{"cap_analysis", writeCapAnalyses},
		{"capacity_demand", writeCapacityDemand},
		{"reserve_rollup", writeReserveRollups},
		{"hourly_projections", writeHourly},
	}
	for _, t := range tables {
		if err := e.writeTable(t.name, w, t.write); err != nil {
			return err
		}
	}
	return nil
}

func (e *Exporter) writeTable(name string, w *store.WorkingSet, fn func(*csv.Writer, *store.WorkingSet) error) error {
	path := filepath.Join(e.dir, e.prefix+name+".csv")
	f, err := os.Create(path)
	if err != nil {
		return errors.Export("creating "+path, err)
	}
	defer f.Close()

	buf := bufio.NewWriter(f)
	cw := csv.NewWriter(buf)
	if err := fn(cw, w); err != nil {
		return errors.Export("writing "+path, err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Export("writing "+path, err)
	}
	if err := buf.Flush(); err != nil {
		return errors.Export("flushing "+path, err)
	}
	logging.Debug("table written", zap.String("table", name))
	return nil
}

// ff renders a float without trailing zero noise
func ff(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func fi(v int) string {
	return strconv.Itoa(v)
}

func fb(v bool) string {
	if v {
		return "Y"
	}
	return "N"
}

func writeGenericUnits(cw *csv.Writer, w *store.WorkingSet) error {
	if err := cw.Write([]string{"record_id", "region", "fuel", "size_mw", "facility_id", "unit_id", "facility_name", "state"}); err != nil {
		return err
	}
	for _, u := range w.GenericUnits {
		if err := cw.Write([]string{u.RecordID, u.Region, u.Fuel, ff(u.SizeMW), u.Facility, u.UnitID, u.FacilityName, u.State}); err != nil {
			return err
		}
	}
	return nil
}

func writeDeficits(cw *csv.Writer, w *store.WorkingSet) error {
	if err := cw.Write([]string{"region", "fuel", "calendar_hour", "rank", "demand", "initial_capacity", "shortfall", "final_capacity"}); err != nil {
		return err
	}
	for _, d := range w.Deficits {
		row := []string{d.Region, d.Fuel, fi(d.CalendarHour), fi(d.Rank), ff(d.Demand), ff(d.InitialCapacity), ff(d.Shortfall), ff(d.FinalCapacity)}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func writeReserveChecks(cw *csv.Writer, w *store.WorkingSet) error {
	if err := cw.Write([]string{"region", "calendar_hour", "rank", "pass", "needed", "available", "deficit"}); err != nil {
		return err
	}
	for _, c := range w.ReserveChecks {
		row := []string{c.Region, fi(c.CalendarHour), fi(c.Rank), fb(c.Pass), ff(c.Needed), ff(c.Available), ff(c.Deficit)}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func writeUnitActivity(cw *csv.Writer, w *store.WorkingSet) error {
	header := []string{
		"region", "fuel", "state", "facility_id", "unit_id", "facility_name",
		"fy_gen", "fy_heat_input", "fy_hours", "hours_at_max",
		"by_gen", "by_heat_input", "by_hours",
		"max_hourly_hi", "heat_rate", "capacity_mw", "uf",
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, a := range w.UnitActivities {
		row := []string{
			a.Region, a.Fuel, a.State, a.Facility, a.UnitID, a.FacilityName,
			ff(a.FYGen), ff(a.FYHI), fi(a.FYHours), fi(a.HoursAtMax),
			ff(a.BYGen), ff(a.BYHI), fi(a.BYHours),
			ff(a.MaxHourlyHI), ff(a.HeatRate), ff(a.CapacityMW), ff(a.UF),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func writeCapAnalyses(cw *csv.Writer, w *store.WorkingSet) error {
	if err := cw.Write([]string{"name", "period", "pollutant", "cap_tons", "year_applicable", "projected_tons", "comments"}); err != nil {
		return err
	}
	for _, c := range w.CapAnalyses {
		row := []string{c.Name, c.Period, string(c.Pollutant), ff(c.CapTons), fi(c.YearApplicable), c.ProjectedTons, c.Comments}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func writeCapacityDemand(cw *csv.Writer, w *store.WorkingSet) error {
	if err := cw.Write([]string{"region", "fuel", "by_gen", "by_heat_input", "fy_gen", "fy_heat_input", "new_capacity_mw"}); err != nil {
		return err
	}
	for _, c := range w.CapacityDemands {
		row := []string{c.Region, c.Fuel, ff(c.BYGen), ff(c.BYHI), ff(c.FYGen), ff(c.FYHI), ff(c.NewCapacityMW)}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func writeReserveRollups(cw *csv.Writer, w *store.WorkingSet) error {
	if err := cw.Write([]string{"region", "met", "max_deficit"}); err != nil {
		return err
	}
	for _, r := range w.ReserveRollups {
		if err := cw.Write([]string{r.Region, fb(r.Met), ff(r.MaxDeficit)}); err != nil {
			return err
		}
	}
	return nil
}

// writeHourly is the full per-unit-per-hour projection table, in calendar
// order within each unit.
func writeHourly(cw *csv.Writer, w *store.WorkingSet) error {
	header := []string{
		"region", "fuel", "facility_id", "unit_id", "calendar_hour", "rank",
		"gen", "heat_input",
		"so2_rate", "so2_mass", "nox_rate", "nox_mass", "co2_mass",
		"hourly_limited", "annual_limited", "hours_limited",
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, g := range w.Groups() {
		for _, k := range w.UnitRanks[g] {
			rows := w.Assignments[g][k]
			if rows == nil {
				continue
			}
			byCalendar := make([]*types.Assignment, w.Calendar.Hours())
			for _, a := range rows {
				if a != nil {
					byCalendar[a.CalendarHour-1] = a
				}
			}
			for _, a := range byCalendar {
				if a == nil {
					continue
				}
				out := []string{
					g.Region, g.Fuel, k.Facility, k.Unit, fi(a.CalendarHour), fi(a.Rank),
					ff(a.Load), ff(a.HeatInput),
					ff(a.SO2Rate), ff(a.SO2Mass), ff(a.NOxRate), ff(a.NOxMass), ff(a.CO2Mass),
					fb(a.HourlyLimited), fb(a.AnnualLimited), fb(a.HoursLimited),
				}
				if err := cw.Write(out); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
