package growth

import (
	"math"
	"testing"

	"egu-projection/core/store"
	"egu-projection/core/types"
	"egu-projection/internal/errors"
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

// rankByDemand assigns hierarchy ranks directly for solver tests
func rankByDemand(w *store.WorkingSet, demand []float64) {
	parms := w.EnsureGenParams(testGroup)
	type hd struct {
		idx int
		d   float64
	}
	order := make([]hd, len(parms))
	for i := range parms {
		d := 0.0
		if i < len(demand) {
			d = demand[i]
		}
		parms[i].BaseActual = d
		order[i] = hd{i, d}
	}
	for rank := 0; rank < len(order); rank++ {
		best := rank
		for j := rank + 1; j < len(order); j++ {
			if order[j].d > order[best].d {
				best = j
			}
		}
		order[rank], order[best] = order[best], order[rank]
		parms[order[rank].idx].Rank = rank + 1
	}
}

// TestFactorAt tests the two-segment growth curve
func TestFactorAt(t *testing.T) {
	tests := []struct {
		name string
		rank int
		want float64
	}{
		{"inside the peak segment", 50, 1.5},
		{"last peak rank", 100, 1.5},
		{"midway through the transition", 200, 1.35},
		{"first non-peak rank", 300, 1.2},
		{"deep in the non-peak segment", 5000, 1.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FactorAt(1.5, 1.2, 100, 300, tt.rank)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("FactorAt(rank %d) = %v, want %v", tt.rank, got, tt.want)
			}
		})
	}
}

// TestSolveRoundTrip tests that the solved non-peak factor reproduces the
// average-growth annual total.
func TestSolveRoundTrip(t *testing.T) {
	w := newTestSet(t)

	demand := make([]float64, w.Calendar.Hours())
	for i := range demand {
		demand[i] = 100 + 50*math.Sin(float64(i)/100) + float64(i%7)
	}
	rankByDemand(w, demand)

	gr := &types.GrowthRate{
		AvgFactor:         1.2,
		PeakFactor:        1.5,
		TransitionPeak:    100,
		TransitionNonPeak: 300,
	}
	w.Growth[testGroup] = gr

	baseAnnual := 0.0
	for _, d := range demand {
		baseAnnual += d
	}

	Solve(w, testGroup)

	got := annualTotal(w.GenParams[testGroup], gr, gr.NonPeakFactor)
	want := baseAnnual * gr.AvgFactor
	if math.Abs(got-want) > 1e-9*want {
		t.Errorf("regrown total %v, want %v (non-peak %v)", got, want, gr.NonPeakFactor)
	}
	if gr.NonPeakFactor >= gr.PeakFactor {
		t.Errorf("non-peak factor %v should sit below peak %v when avg < peak", gr.NonPeakFactor, gr.PeakFactor)
	}
}

// TestSolveDegenerateCases tests the short circuits that skip root finding
func TestSolveDegenerateCases(t *testing.T) {
	t.Run("flat curve", func(t *testing.T) {
		w := newTestSet(t)
		rankByDemand(w, []float64{100, 90, 80})
		gr := &types.GrowthRate{AvgFactor: 1.1, PeakFactor: 1.1, TransitionPeak: 1, TransitionNonPeak: 2}
		w.Growth[testGroup] = gr
		Solve(w, testGroup)
		if gr.NonPeakFactor != 1.1 {
			t.Errorf("NonPeakFactor = %v, want 1.1", gr.NonPeakFactor)
		}
	})

	t.Run("no base generation", func(t *testing.T) {
		w := newTestSet(t)
		rankByDemand(w, nil)
		gr := &types.GrowthRate{AvgFactor: 1.3, PeakFactor: 1.6, TransitionPeak: 1, TransitionNonPeak: 2}
		w.Growth[testGroup] = gr
		Solve(w, testGroup)
		if gr.NonPeakFactor != 1.3 {
			t.Errorf("NonPeakFactor = %v, want the average factor", gr.NonPeakFactor)
		}
	})
}

// TestSolveNegativeClamp tests that an unreachable average clamps the
// non-peak factor to zero instead of going negative.
func TestSolveNegativeClamp(t *testing.T) {
	w := newTestSet(t)
	// Nearly all generation sits in the peak segment, so even zero non-peak
	// growth overshoots a small average factor.
	demand := make([]float64, w.Calendar.Hours())
	demand[0] = 1000
	for i := 1; i < len(demand); i++ {
		demand[i] = 0.001
	}
	rankByDemand(w, demand)

	gr := &types.GrowthRate{
		AvgFactor:         0.5,
		PeakFactor:        2.0,
		TransitionPeak:    1,
		TransitionNonPeak: 2,
	}
	w.Growth[testGroup] = gr
	Solve(w, testGroup)

	if gr.NonPeakFactor != 0 {
		t.Errorf("NonPeakFactor = %v, want clamp to 0", gr.NonPeakFactor)
	}
}

// TestPrepareBase tests the retired-generation split
func TestPrepareBase(t *testing.T) {
	w := newTestSet(t)

	live := &types.Unit{
		Key: types.UnitKey{Facility: "F1", Unit: "LIVE"}, Region: testGroup.Region, Fuel: testGroup.Fuel,
		Status: types.StatusFull, Online: types.OnlineDefault, Offline: types.OfflineDefault,
	}
	gone := &types.Unit{
		Key: types.UnitKey{Facility: "F1", Unit: "GONE"}, Region: testGroup.Region, Fuel: testGroup.Fuel,
		Status: types.StatusFull, Online: types.OnlineDefault, Offline: w.Calendar.FirstFutureDay(),
	}
	w.AddUnit(live)
	w.AddUnit(gone)

	w.Base[testGroup] = make(map[types.UnitKey][]types.HourlyBase)
	for _, u := range []*types.Unit{live, gone} {
		obs := make([]types.HourlyBase, w.Calendar.Hours())
		obs[0].Gen = 100
		w.Base[testGroup][u.Key] = obs
	}

	PrepareBase(w, testGroup)

	p := w.GenParams[testGroup][0]
	if p.BaseActual != 200 {
		t.Errorf("BaseActual = %v, want 200", p.BaseActual)
	}
	if p.BaseRetired != 100 {
		t.Errorf("BaseRetired = %v, want 100", p.BaseRetired)
	}
}

// TestApplyNegativeTransfer tests that a transfer driving projection negative
// fails the run as a data error.
func TestApplyNegativeTransfer(t *testing.T) {
	w := newTestSet(t)
	rankByDemand(w, []float64{100})
	w.Growth[testGroup] = &types.GrowthRate{
		AvgFactor: 1.0, PeakFactor: 1.0, NonPeakFactor: 1.0,
		TransitionPeak: 1, TransitionNonPeak: 2,
	}
	w.Transfers[testGroup] = make([]float64, w.Calendar.Hours())
	w.Transfers[testGroup][0] = -500

	err := Apply(w, testGroup)
	if !errors.IsType(err, errors.TypeData) {
		t.Errorf("got %v, want data error", err)
	}
}
