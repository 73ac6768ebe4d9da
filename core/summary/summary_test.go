package summary

import (
	"math"
	"testing"

	"egu-projection/core/store"
	"egu-projection/core/types"
)

var testGroup = types.GroupKey{Region: "ERC", Fuel: "Coal"}

func newTestSet(t *testing.T) *store.WorkingSet {
	t.Helper()
	cal, err := types.NewCalendar(2019, 2023, "05-01", "09-30")
	if err != nil {
		t.Fatalf("building calendar: %v", err)
	}
	w := store.New(cal)
	// Builders enumerate groups through their generation parameters, so the
	// group must be materialized just as the engine does before running them.
	w.EnsureGenParams(testGroup)
	return w
}

func addUnit(w *store.WorkingSet, id, state string, status types.BaseStatus) *types.Unit {
	u := &types.Unit{
		Key:         types.UnitKey{Facility: "F1", Unit: id},
		Region:      testGroup.Region,
		Fuel:        testGroup.Fuel,
		State:       state,
		Status:      status,
		Online:      types.OnlineDefault,
		Offline:     types.OfflineDefault,
		MaxHourlyHI: 1000,
		HeatRate:    10000,
	}
	w.AddUnit(u)
	w.UnitRanks[testGroup] = append(w.UnitRanks[testGroup], u.Key)
	return u
}

// fillAssignments writes a flat projection for a unit: load MW and the
// matching heat input at every hour, with running totals.
func fillAssignments(w *store.WorkingSet, u *types.Unit, load, so2, nox float64) {
	rows := w.UnitAssignments(testGroup, u.Key)
	hi := u.HeatRate * load / 1000.0
	var cumHI, cumGen float64
	for i := range rows {
		cumHI += hi
		cumGen += load
		rows[i] = &types.Assignment{
			CalendarHour: i + 1, Rank: i + 1,
			Load: load, HeatInput: hi,
			CumHI: cumHI, CumGen: cumGen, CumHours: i + 1,
			SO2Mass: so2, NOxMass: nox,
		}
	}
}

// TestBuildUnitActivity tests the annual rollup and utilization fraction
func TestBuildUnitActivity(t *testing.T) {
	w := newTestSet(t)
	u := addUnit(w, "E1", "TX", types.StatusFull)
	fillAssignments(w, u, 50, 0, 0)

	obs := make([]types.HourlyBase, w.Calendar.Hours())
	obs[0] = types.HourlyBase{CalendarHour: 1, Gen: 80, HeatInput: 800, OpTime: 1}
	obs[1] = types.HourlyBase{CalendarHour: 2, Gen: 70, HeatInput: 700, OpTime: 0.5}
	w.Base[testGroup] = map[types.UnitKey][]types.HourlyBase{u.Key: obs}

	BuildUnitActivity(w)

	if len(w.UnitActivities) != 1 {
		t.Fatalf("want 1 activity row, got %d", len(w.UnitActivities))
	}
	a := w.UnitActivities[0]
	hours := float64(w.Calendar.Hours())

	if a.FYGen != 50*hours {
		t.Errorf("FYGen = %v, want %v", a.FYGen, 50*hours)
	}
	if a.FYHours != w.Calendar.Hours() {
		t.Errorf("FYHours = %d, want %d", a.FYHours, w.Calendar.Hours())
	}
	if a.BYGen != 150 || a.BYHI != 1500 || a.BYHours != 2 {
		t.Errorf("base-year totals = %v/%v/%d, want 150/1500/2", a.BYGen, a.BYHI, a.BYHours)
	}
	// 500 mmBtu every hour against a 1000 mmBtu limit is 50% utilization.
	if math.Abs(a.UF-0.5) > 1e-12 {
		t.Errorf("UF = %v, want 0.5", a.UF)
	}
}

// TestBuildCapAnalyses tests cap accounting, the pounds-to-tons conversion,
// and ozone-season filtering.
func TestBuildCapAnalyses(t *testing.T) {
	w := newTestSet(t)
	inState := addUnit(w, "E1", "TX", types.StatusFull)
	outState := addUnit(w, "E2", "OK", types.StatusFull)
	fillAssignments(w, inState, 50, 2, 1) // 2 lbs SO2, 1 lb NOx each hour
	fillAssignments(w, outState, 50, 100, 100)

	w.CapListings = []types.CapListing{
		{Name: "TX", States: []string{"TX"}, Pollutant: types.SO2, Period: "Annual", CapTons: 10},
		{Name: "TX", States: []string{"TX"}, Pollutant: types.NOx, Period: "OS", CapTons: 5},
	}

	BuildCapAnalyses(w)

	if len(w.CapAnalyses) != 2 {
		t.Fatalf("want 2 analyses, got %d", len(w.CapAnalyses))
	}

	// 2 lbs/hr across 8760 hours is 17520 lbs = 8.76 tons, TX only.
	if got := w.CapAnalyses[0].ProjectedTons; got != "8.760" {
		t.Errorf("annual SO2 tons = %s, want 8.760", got)
	}

	// Ozone season covers 3672 hours (May 1 through Sep 30), 1 lb each.
	if got := w.CapAnalyses[1].ProjectedTons; got != "1.836" {
		t.Errorf("ozone NOx tons = %s, want 1.836", got)
	}
}

// TestBuildReserveRollups tests region condensation of hourly checks
func TestBuildReserveRollups(t *testing.T) {
	w := newTestSet(t)
	w.ReserveChecks = []types.ReserveCheck{
		{Region: "ERC", Pass: true},
		{Region: "ERC", Pass: false, Deficit: 30},
		{Region: "ERC", Pass: false, Deficit: 80},
		{Region: "WEC", Pass: true},
	}

	BuildReserveRollups(w)

	if len(w.ReserveRollups) != 2 {
		t.Fatalf("want 2 rollups, got %d", len(w.ReserveRollups))
	}
	erc := w.ReserveRollups[0]
	if erc.Region != "ERC" || erc.Met || erc.MaxDeficit != 80 {
		t.Errorf("ERC rollup = %+v, want failed with max deficit 80", erc)
	}
	wec := w.ReserveRollups[1]
	if wec.Region != "WEC" || !wec.Met {
		t.Errorf("WEC rollup = %+v, want met", wec)
	}
}

// TestBuildCapacityDemand tests the per-group rollup including new capacity
func TestBuildCapacityDemand(t *testing.T) {
	w := newTestSet(t)
	u := addUnit(w, "E1", "TX", types.StatusFull)
	n := addUnit(w, "N1", "TX", types.StatusNew)
	n.Online = w.Calendar.FirstFutureDay()
	fillAssignments(w, u, 50, 0, 0)
	fillAssignments(w, n, 10, 0, 0)

	BuildCapacityDemand(w)

	if len(w.CapacityDemands) != 1 {
		t.Fatalf("want 1 rollup, got %d", len(w.CapacityDemands))
	}
	cd := w.CapacityDemands[0]
	hours := float64(w.Calendar.Hours())
	if cd.FYGen != 60*hours {
		t.Errorf("FYGen = %v, want %v", cd.FYGen, 60*hours)
	}
	if cd.NewCapacityMW != 100 {
		t.Errorf("NewCapacityMW = %v, want 100 from the new unit only", cd.NewCapacityMW)
	}
}
