package rates

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
	return store.New(cal)
}

func addUnitWithBase(w *store.WorkingSet, id string, obs []types.HourlyBase) types.UnitKey {
	u := &types.Unit{
		Key:     types.UnitKey{Facility: "F1", Unit: id},
		Region:  testGroup.Region,
		Fuel:    testGroup.Fuel,
		Status:  types.StatusFull,
		Online:  types.OnlineDefault,
		Offline: types.OfflineDefault,
	}
	w.AddUnit(u)
	full := make([]types.HourlyBase, w.Calendar.Hours())
	copy(full, obs)
	for i := range full {
		full[i].CalendarHour = i + 1
	}
	if w.Base[testGroup] == nil {
		w.Base[testGroup] = make(map[types.UnitKey][]types.HourlyBase)
	}
	w.Base[testGroup][u.Key] = full
	return u.Key
}

// TestBuildGroupAverages tests that average rates come from summed totals
func TestBuildGroupAverages(t *testing.T) {
	w := newTestSet(t)
	k := addUnitWithBase(w, "E1", []types.HourlyBase{
		{Gen: 100, HeatInput: 1000, SO2Mass: 500, NOxMass: 200},
		{Gen: 50, HeatInput: 600, SO2Mass: 400, NOxMass: 100},
	})

	BuildGroup(w, testGroup)

	table := w.Rates[types.FullKey{Group: testGroup, Unit: k}]
	if table == nil {
		t.Fatal("no rate table built")
	}

	// 1600 mmBtu over 150 MWh is 10666.7 Btu/kWh.
	wantHeatRate := 1600.0 * 1000 / 150
	if math.Abs(table.AvgHeatRate-wantHeatRate) > 1e-9 {
		t.Errorf("AvgHeatRate = %v, want %v", table.AvgHeatRate, wantHeatRate)
	}

	// 900 lbs over 1600 mmBtu.
	if got := table.Annual[types.SO2]; math.Abs(got-900.0/1600) > 1e-12 {
		t.Errorf("annual SO2 rate = %v, want %v", got, 900.0/1600)
	}
	if got := table.Annual[types.NOx]; math.Abs(got-300.0/1600) > 1e-12 {
		t.Errorf("annual NOx rate = %v, want %v", got, 300.0/1600)
	}

	// Both observations are outside the ozone season (January hours).
	if _, ok := table.Ozone[types.SO2]; ok {
		t.Error("no ozone-season activity, so no ozone rate should be defined")
	}
	if _, ok := table.NonOzone[types.SO2]; !ok {
		t.Error("non-ozone rate should be defined")
	}
}

// TestBuildGroupBounds tests the statistical interval and hard-bound tighten
func TestBuildGroupBounds(t *testing.T) {
	w := newTestSet(t)
	obs := make([]types.HourlyBase, 10)
	for i := range obs {
		// Heat rates near 10000 Btu/kWh with mild spread.
		obs[i] = types.HourlyBase{Gen: 100, HeatInput: 1000 + float64(i)*10}
	}
	k := addUnitWithBase(w, "E1", obs)

	upper := 10200.0
	w.Params[testGroup] = &types.RunParams{
		StatMultiplier:     2.0,
		HeatRateHardBounds: types.Bounds{Upper: &upper},
	}

	BuildGroup(w, testGroup)

	b := w.Rates[types.FullKey{Group: testGroup, Unit: k}].HeatRateBounds
	if b.Lower == nil || b.Upper == nil {
		t.Fatal("expected two-sided bounds from 10 samples")
	}
	if *b.Upper != 10200 {
		t.Errorf("hard bound should tighten the upper limit: got %v", *b.Upper)
	}
	if *b.Lower < 0 {
		t.Errorf("lower bound must not be negative: %v", *b.Lower)
	}
	mean := 10450.0 // mean of 10000..10900 step 100
	if *b.Lower >= mean {
		t.Errorf("lower bound %v should sit below the sample mean", *b.Lower)
	}
}

// TestBuildGroupSparseData tests that units with too little data get
// unbounded limits rather than failures.
func TestBuildGroupSparseData(t *testing.T) {
	w := newTestSet(t)
	k := addUnitWithBase(w, "E1", []types.HourlyBase{{Gen: 100, HeatInput: 1000}})

	BuildGroup(w, testGroup)

	b := w.Rates[types.FullKey{Group: testGroup, Unit: k}].HeatRateBounds
	if b.Lower != nil || b.Upper != nil {
		t.Errorf("single sample should yield unbounded limits: %+v", b)
	}
}

// TestBuildGroupHeatRateFill tests that a unit reporting no heat rate takes
// its observed average, clamped to the effective bounds, while a configured
// heat rate is never overwritten.
func TestBuildGroupHeatRateFill(t *testing.T) {
	obs := make([]types.HourlyBase, 10)
	for i := range obs {
		// Hourly heat rates 10000..10900 Btu/kWh, averaging 10450.
		obs[i] = types.HourlyBase{Gen: 100, HeatInput: 1000 + float64(i)*10}
	}

	t.Run("missing rate takes the average", func(t *testing.T) {
		w := newTestSet(t)
		k := addUnitWithBase(w, "E1", obs)

		BuildGroup(w, testGroup)

		if got := w.Unit(testGroup, k).HeatRate; got != 10450 {
			t.Errorf("filled heat rate = %v, want the observed average 10450", got)
		}
	})

	t.Run("filled rate clamps to the hard bound", func(t *testing.T) {
		w := newTestSet(t)
		k := addUnitWithBase(w, "E1", obs)
		upper := 10200.0
		w.Params[testGroup] = &types.RunParams{HeatRateHardBounds: types.Bounds{Upper: &upper}}

		BuildGroup(w, testGroup)

		if got := w.Unit(testGroup, k).HeatRate; got != 10200 {
			t.Errorf("filled heat rate = %v, want the 10200 bound", got)
		}
	})

	t.Run("configured rate survives even out of bounds", func(t *testing.T) {
		w := newTestSet(t)
		k := addUnitWithBase(w, "E1", obs)
		w.Unit(testGroup, k).HeatRate = 20000

		BuildGroup(w, testGroup)

		if got := w.Unit(testGroup, k).HeatRate; got != 20000 {
			t.Errorf("configured heat rate overwritten: %v", got)
		}
	})
}

// TestBuildOptimalLoads tests the percentile threshold derivation
func TestBuildOptimalLoads(t *testing.T) {
	w := newTestSet(t)
	obs := make([]types.HourlyBase, 100)
	for i := range obs {
		obs[i] = types.HourlyBase{Gen: float64(i + 1), HeatInput: 10}
	}
	k := addUnitWithBase(w, "E1", obs)
	w.Params[testGroup] = &types.RunParams{OptimalLoadPct: 90}

	BuildOptimalLoads(w, testGroup)

	u := w.Unit(testGroup, k)
	if u.OptimalLoad == nil {
		t.Fatal("optimal load not derived")
	}
	if *u.OptimalLoad < 85 || *u.OptimalLoad > 95 {
		t.Errorf("90th percentile of 1..100 = %v, want near 90", *u.OptimalLoad)
	}

	// A configured threshold is never overwritten.
	configured := 42.0
	u2key := addUnitWithBase(w, "E2", obs)
	w.Unit(testGroup, u2key).OptimalLoad = &configured
	BuildOptimalLoads(w, testGroup)
	if got := *w.Unit(testGroup, u2key).OptimalLoad; got != 42 {
		t.Errorf("configured optimal load overwritten: %v", got)
	}
}
