package assign

import (
	"math"
	"testing"

	"egu-projection/core/types"
)

// TestAllocateExcessTwoPass tests that excess raises a unit first to its
// optimal-load threshold, then to its hourly maximum, and that whatever
// cannot be placed stays in the pool.
func TestAllocateExcessTwoPass(t *testing.T) {
	w := newTestSet(t)
	u := addExisting(w, "E1", 1000, 10000) // 100 MW capacity
	optimal := 60.0
	u.OptimalLoad = &optimal
	w.Params[testGroup] = &types.RunParams{Hierarchy: types.HierarchyHourly}
	setBase(w, "E1", map[int]float64{1: 40})

	parms := seedRanks(w)
	parms[0].BaseActual = 40
	parms[0].Future = 40

	if outcome := Run(w, testGroup); !outcome.Complete() {
		t.Fatalf("unexpected deficit %v", outcome.Deficit)
	}
	parms[0].ExcessPool = 100

	AllocateExcess(w, testGroup)

	row := w.Assignments[testGroup][u.Key][0]
	if math.Abs(row.Load-100) > 1e-9 {
		t.Errorf("load = %v, want the 100 MW hourly maximum", row.Load)
	}
	if math.Abs(row.HeatInput-1000) > 1e-9 {
		t.Errorf("heat input = %v, want 1000", row.HeatInput)
	}
	if !row.HourlyLimited {
		t.Error("unit raised to its maximum should be flagged hourly limited")
	}
	// 40 MW already assigned, 60 MW absorbed, 40 MW genuinely unplaceable.
	if math.Abs(parms[0].ExcessPool-40) > 1e-9 {
		t.Errorf("remaining pool = %v, want 40", parms[0].ExcessPool)
	}

	// The cumulative chain carries the raise through year end.
	last := w.Assignments[testGroup][u.Key][w.Calendar.Hours()-1]
	if math.Abs(last.CumHI-1000) > 1e-9 {
		t.Errorf("year-end cumulative heat input = %v, want 1000", last.CumHI)
	}
	if math.Abs(last.CumGen-100) > 1e-9 {
		t.Errorf("year-end cumulative generation = %v, want 100", last.CumGen)
	}
}

// TestAllocateExcessNonNegative tests the excess non-negativity property:
// leftover pool is never negative, and is only nonzero when every eligible
// unit is pinned at a limit.
func TestAllocateExcessNonNegative(t *testing.T) {
	w := newTestSet(t)
	addExisting(w, "E1", 1000, 10000)
	addExisting(w, "E2", 500, 10000)
	w.Params[testGroup] = &types.RunParams{Hierarchy: types.HierarchyHourly}
	setBase(w, "E1", map[int]float64{1: 20})
	setBase(w, "E2", map[int]float64{1: 20})

	parms := seedRanks(w)
	parms[0].BaseActual = 40
	parms[0].Future = 40

	if outcome := Run(w, testGroup); !outcome.Complete() {
		t.Fatalf("unexpected deficit %v", outcome.Deficit)
	}
	parms[0].ExcessPool = 500 // far beyond combined 150 MW capacity

	AllocateExcess(w, testGroup)

	if parms[0].ExcessPool < 0 {
		t.Fatalf("pool went negative: %v", parms[0].ExcessPool)
	}
	for _, id := range []string{"E1", "E2"} {
		row := w.Assignments[testGroup][types.UnitKey{Facility: "F1", Unit: id}][0]
		if !row.HourlyLimited {
			t.Errorf("unit %s should be pinned at its hourly maximum with excess left over", id)
		}
	}
}

// TestAllocateExcessHonorsAnnualFlag tests that a unit already at its annual
// cap is skipped entirely.
func TestAllocateExcessHonorsAnnualFlag(t *testing.T) {
	w := newTestSet(t)
	u := addExisting(w, "E1", 1000, 10000)
	w.Params[testGroup] = &types.RunParams{Hierarchy: types.HierarchyHourly}
	setBase(w, "E1", map[int]float64{1: 40})

	parms := seedRanks(w)
	parms[0].BaseActual = 40
	parms[0].Future = 40

	if outcome := Run(w, testGroup); !outcome.Complete() {
		t.Fatalf("unexpected deficit %v", outcome.Deficit)
	}
	rows := w.Assignments[testGroup][u.Key]
	rows[w.Calendar.Hours()-1].AnnualLimited = true
	parms[0].ExcessPool = 100

	AllocateExcess(w, testGroup)

	if got := rows[0].Load; got != 40 {
		t.Errorf("load = %v, want untouched 40", got)
	}
	if parms[0].ExcessPool != 100 {
		t.Errorf("pool = %v, want untouched 100", parms[0].ExcessPool)
	}
}
