package assign

import (
	"strings"

	"egu-projection/core/store"
	"egu-projection/core/types"
	"egu-projection/internal/logging"
)

// defaultProxyPct is used when a group has no configured proxy percentage
const defaultProxyPct = 50.0

// BuildProxyProfiles seeds a proxy-generation profile for every new unit in
// a group that does not already have one. Planned new units get their
// profiles here before the first assignment pass; synthesized units get
// theirs through the same routine at creation time.
func BuildProxyProfiles(w *store.WorkingSet, g types.GroupKey) {
	for _, k := range w.UnitRanks[g] {
		u := w.Unit(g, k)
		if u == nil || !u.IsNew() {
			continue
		}
		if w.Proxy[g] != nil && w.Proxy[g][k] != nil {
			continue
		}
		ComputeProxy(w, g, u)
	}
}

// ComputeProxy builds one new unit's proxy load profile and stores it.
//
// A new coal unit runs flat at its capacity scaled by the proxy percentage.
// A new unit of any other fuel copies the hourly shape of the next-lower
// ranked existing unit, scaled by the capacity ratio between the two. The
// donor's optimal-load threshold is scaled onto the new unit as well, capped
// at the new unit's hourly load limit. Hours are walked in hierarchy order
// so the annual load limit cuts off the lowest-value hours first.
func ComputeProxy(w *store.WorkingSet, g types.GroupKey, u *types.Unit) {
	proxyPct := defaultProxyPct
	if params := w.Params[g]; params != nil && params.ProxyPct > 0 {
		proxyPct = params.ProxyPct
	} else {
		logging.Warn("no proxy percentage configured, using default",
			logging.Region(g.Region), logging.Fuel(g.Fuel),
			logging.Facility(u.Key.Facility), logging.Unit(u.Key.Unit),
		)
	}

	if u.MaxHourlyHI <= 0 || u.HeatRate <= 0 {
		logging.Warn("new unit missing max heat input or heat rate; proxy profile left empty",
			logging.Region(g.Region), logging.Fuel(g.Fuel),
			logging.Facility(u.Key.Facility), logging.Unit(u.Key.Unit),
		)
		w.SetProxy(g, u.Key, make([]float64, w.Calendar.Hours()))
		return
	}

	hourlyLimit := u.MaxHourlyHI * 1000.0 / u.HeatRate
	annualLimit := 0.0
	groupDefault := 0.0
	if params := w.Params[g]; params != nil {
		groupDefault = params.MaxUF
	}
	if uf := u.EffectiveUF(groupDefault); uf > 0 {
		annualLimit = hourlyLimit * float64(w.Calendar.Hours()) * uf
	}

	donor, ratio := donorUnit(w, g, u)
	if donor != nil && donor.OptimalLoad != nil && ratio > 0 {
		optimal := ratio * *donor.OptimalLoad
		if optimal > hourlyLimit {
			optimal = hourlyLimit
		}
		u.OptimalLoad = &optimal
	}

	isCoal := strings.EqualFold(g.Fuel, "coal")
	profile := make([]float64, w.Calendar.Hours())
	cumulative := 0.0

	for _, p := range w.HoursByRank(g) {
		futureDate := w.Calendar.FutureDate(p.CalendarHour)
		if !u.ActiveOn(futureDate) {
			continue
		}
		load := 0.0
		switch {
		case isCoal:
			load = hourlyLimit * proxyPct / 100.0
		case donor != nil && ratio > 0:
			if obs := w.Base[g][donor.Key]; obs != nil {
				if base := obs[p.CalendarHour-1].Gen; base > 0 {
					load = base * ratio
				}
			}
		}
		if load <= 0 {
			continue
		}
		if load > hourlyLimit {
			load = hourlyLimit
		}
		if annualLimit > 0 && load > annualLimit-cumulative {
			load = annualLimit - cumulative
		}
		if load < 0 {
			load = 0
		}
		cumulative += load
		profile[p.CalendarHour-1] = load
	}

	w.SetProxy(g, u.Key, profile)
}

// donorUnit finds the next-lower-ranked existing unit below a new unit in
// the allocation order, with the capacity ratio of new to donor.
func donorUnit(w *store.WorkingSet, g types.GroupKey, u *types.Unit) (*types.Unit, float64) {
	ranked := w.UnitRanks[g]
	pos := -1
	for i, k := range ranked {
		if k == u.Key {
			pos = i
			break
		}
	}
	if pos < 0 {
		return nil, 0
	}
	for i := pos + 1; i < len(ranked); i++ {
		d := w.Unit(g, ranked[i])
		if d == nil || d.IsNew() {
			continue
		}
		if d.MaxHourlyHI <= 0 || d.HeatRate <= 0 {
			logging.Warn("existing unit below new unit lacks heat data; cannot scale proxy",
				logging.Region(g.Region), logging.Fuel(g.Fuel),
				logging.Facility(d.Key.Facility), logging.Unit(d.Key.Unit),
			)
			return d, 0
		}
		ratio := (u.MaxHourlyHI / u.HeatRate) / (d.MaxHourlyHI / d.HeatRate)
		return d, ratio
	}
	logging.Warn("no existing unit available to shape proxy generation for new unit",
		logging.Region(g.Region), logging.Fuel(g.Fuel),
		logging.Facility(u.Key.Facility), logging.Unit(u.Key.Unit),
	)
	return nil, 0
}
