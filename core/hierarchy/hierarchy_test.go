package hierarchy

import (
	"testing"

	"egu-projection/core/store"
	"egu-projection/core/types"
	"egu-projection/internal/errors"
)

var testGroup = types.GroupKey{Region: "ERC", Fuel: "Gas"}

func newTestSet(t *testing.T) *store.WorkingSet {
	t.Helper()
	cal, err := types.NewCalendar(2019, 2023, "05-01", "09-30")
	if err != nil {
		t.Fatalf("building calendar: %v", err)
	}
	return store.New(cal)
}

func addUnit(w *store.WorkingSet, id string, baseUF float64, status types.BaseStatus) *types.Unit {
	u := &types.Unit{
		Key:     types.UnitKey{Facility: "F1", Unit: id},
		Region:  testGroup.Region,
		Fuel:    testGroup.Fuel,
		Status:  status,
		Online:  types.OnlineDefault,
		Offline: types.OfflineDefault,
		BaseUF:  baseUF,
	}
	w.AddUnit(u)
	return u
}

func setDemand(w *store.WorkingSet, id string, gen map[int]float64) {
	k := types.UnitKey{Facility: "F1", Unit: id}
	if w.Base[testGroup] == nil {
		w.Base[testGroup] = make(map[types.UnitKey][]types.HourlyBase)
	}
	obs := make([]types.HourlyBase, w.Calendar.Hours())
	for i := range obs {
		obs[i].CalendarHour = i + 1
	}
	for hour, g := range gen {
		obs[hour-1].Gen = g
	}
	w.Base[testGroup][k] = obs
}

// TestBuildTemporalHourly tests that hourly ranking is a permutation with the
// highest-demand hour first and calendar order breaking ties.
func TestBuildTemporalHourly(t *testing.T) {
	w := newTestSet(t)
	w.Params[testGroup] = &types.RunParams{Hierarchy: types.HierarchyHourly}
	addUnit(w, "U1", 0.5, types.StatusFull)
	setDemand(w, "U1", map[int]float64{100: 500, 200: 900, 300: 700})

	if err := BuildTemporal(w, testGroup); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	parms := w.GenParams[testGroup]
	seen := make([]bool, len(parms)+1)
	for _, p := range parms {
		if p.Rank < 1 || p.Rank > len(parms) || seen[p.Rank] {
			t.Fatalf("rank %d invalid or duplicated", p.Rank)
		}
		seen[p.Rank] = true
	}

	if parms[199].Rank != 1 {
		t.Errorf("hour 200 rank = %d, want 1", parms[199].Rank)
	}
	if parms[299].Rank != 2 {
		t.Errorf("hour 300 rank = %d, want 2", parms[299].Rank)
	}
	if parms[99].Rank != 3 {
		t.Errorf("hour 100 rank = %d, want 3", parms[99].Rank)
	}
	// All-zero hours keep calendar order among themselves.
	if parms[0].Rank >= parms[1].Rank {
		t.Errorf("zero-demand ties should rank in calendar order: %d then %d", parms[0].Rank, parms[1].Rank)
	}
}

// TestBuildTemporalBucketed tests that a 24-hour bucket is ranked by its peak
// hour and its hours take consecutive ranks in calendar order.
func TestBuildTemporalBucketed(t *testing.T) {
	w := newTestSet(t)
	w.Params[testGroup] = &types.RunParams{Hierarchy: types.Hierarchy24Hour}
	addUnit(w, "U1", 0.5, types.StatusFull)
	// Day 10 (hours 217..240) peaks above day 1.
	setDemand(w, "U1", map[int]float64{220: 900, 5: 100})

	if err := BuildTemporal(w, testGroup); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	parms := w.GenParams[testGroup]
	for i := 0; i < 24; i++ {
		if got := parms[216+i].Rank; got != i+1 {
			t.Fatalf("day-10 hour %d rank = %d, want %d", 217+i, got, i+1)
		}
	}
	if parms[0].Rank != 25 {
		t.Errorf("day-1 first hour rank = %d, want 25", parms[0].Rank)
	}
}

// TestBuildTemporalConfigErrors tests that bad group configuration is a
// group-scoped configuration error.
func TestBuildTemporalConfigErrors(t *testing.T) {
	w := newTestSet(t)
	if err := BuildTemporal(w, testGroup); !errors.IsType(err, errors.TypeConfig) {
		t.Errorf("missing params: got %v, want config error", err)
	}

	w.Params[testGroup] = &types.RunParams{Hierarchy: "WEEKLY"}
	if err := BuildTemporal(w, testGroup); !errors.IsType(err, errors.TypeConfig) {
		t.Errorf("unknown hierarchy: got %v, want config error", err)
	}
}

// TestAnchorRank tests the percentile insertion arithmetic
func TestAnchorRank(t *testing.T) {
	tests := []struct {
		name   string
		ranked int
		pct    float64
		want   int
	}{
		{"95th percentile of 100 units", 100, 95, 6},
		{"50th percentile of 10 units", 10, 50, 6},
		{"100th percentile goes to the top", 100, 100, 0},
		{"0th percentile goes to the bottom", 100, 0, 100},
		{"empty group", 0, 95, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := anchorRank(tt.ranked, tt.pct); got != tt.want {
				t.Errorf("anchorRank(%d, %v) = %d, want %d", tt.ranked, tt.pct, got, tt.want)
			}
		})
	}
}

// TestBuildUnits tests the two-pass unit ranking and percentile splice
func TestBuildUnits(t *testing.T) {
	w := newTestSet(t)
	w.Params[testGroup] = &types.RunParams{Hierarchy: types.HierarchyHourly, PlacementPct: 50}

	addUnit(w, "LOW", 0.3, types.StatusFull)
	addUnit(w, "HIGH", 0.9, types.StatusFull)
	addUnit(w, "MID", 0.6, types.StatusPartial)
	addUnit(w, "SKIP", 0.9, types.StatusNonGenerating)

	retired := addUnit(w, "GONE", 0.8, types.StatusFull)
	retired.Offline = w.Calendar.FirstFutureDay()

	uf := 0.5
	arriving := addUnit(w, "NEW1", 0, types.StatusNew)
	arriving.Online = w.Calendar.FirstFutureDay()
	arriving.MaxAnnualUF = &uf

	BuildUnits(w, testGroup)

	got := w.UnitRanks[testGroup]
	want := []string{"HIGH", "MID", "NEW1", "LOW"}
	if len(got) != len(want) {
		t.Fatalf("ranked %d units, want %d: %v", len(got), len(want), got)
	}
	for i, id := range want {
		if got[i].Unit != id {
			t.Errorf("rank %d = %s, want %s", i+1, got[i].Unit, id)
		}
	}
}

// TestInsertAfterNew tests splicing synthesized units behind the last new one
func TestInsertAfterNew(t *testing.T) {
	w := newTestSet(t)
	w.Params[testGroup] = &types.RunParams{Hierarchy: types.HierarchyHourly, PlacementPct: 50}

	addUnit(w, "A", 0.9, types.StatusFull)
	addUnit(w, "B", 0.5, types.StatusFull)
	n := addUnit(w, "N", 0, types.StatusNew)
	n.Online = w.Calendar.FirstFutureDay()
	w.UnitRanks[testGroup] = []types.UnitKey{
		{Facility: "F1", Unit: "A"},
		{Facility: "F1", Unit: "N"},
		{Facility: "F1", Unit: "B"},
	}

	g1 := addUnit(w, "G1", 0, types.StatusNew)
	g1.Online = w.Calendar.FirstFutureDay()
	g1.GenericID = "G99001"
	rank := InsertAfterNew(w, testGroup, g1.Key)

	if rank != 3 {
		t.Errorf("inserted rank = %d, want 3", rank)
	}
	got := w.UnitRanks[testGroup]
	if got[2].Unit != "G1" || got[3].Unit != "B" {
		t.Errorf("order after insert: %v", got)
	}
}
