// Simulation ties the economic systems together and runs them each day.
package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/talgya/realmsim/internal/econ"
	"github.com/talgya/realmsim/internal/world"
)

// Simulation holds the shared state graph and wires the systems in
// their fixed daily order.
type Simulation struct {
	World *world.World
	State *econ.State

	Economy    *econ.EconomySystem
	Quota      *econ.QuotaSystem
	Fiscal     *econ.FiscalSystem
	Population *econ.PopulationSystem

	Analytics *econ.Analytics

	LastTick uint64 // most recent day processed
	Stats    PerfStats
}

// PerfStats tracks per-phase wall time for the most recent day.
type PerfStats struct {
	EconomyNs  int64 `json:"economy_ns"`
	QuotaNs    int64 `json:"quota_ns"`
	FiscalNs   int64 `json:"fiscal_ns"`
	SnapshotNs int64 `json:"snapshot_ns"`
	DaysRun    int64 `json:"days_run"`
}

// NewSimulation wires the systems onto one state graph.
func NewSimulation(w *world.World, s *econ.State) *Simulation {
	return &Simulation{
		World:      w,
		State:      s,
		Economy:    econ.NewEconomySystem(s),
		Quota:      econ.NewQuotaSystem(s),
		Fiscal:     econ.NewFiscalSystem(s),
		Population: econ.NewPopulationSystem(s),
		Analytics:  econ.NewAnalytics(s.Tun.SnapshotRingSize),
	}
}

// CurrentTick returns the most recently processed day number.
func (sim *Simulation) CurrentTick() uint64 {
	return sim.LastTick
}

// TickDay runs one simulated day: production and consumption, then
// quota propagation for the next day, then the fiscal pipeline.
func (sim *Simulation) TickDay(day uint64) {
	sim.LastTick = day

	start := time.Now()
	sim.Economy.Tick()
	tEco := time.Now()
	sim.Quota.Tick()
	tQuota := time.Now()
	sim.Fiscal.Tick()
	tFiscal := time.Now()

	snap := econ.TakeSnapshot(sim.State, day)
	sim.Analytics.Push(snap)
	tSnap := time.Now()

	sim.Stats = PerfStats{
		EconomyNs:  tEco.Sub(start).Nanoseconds(),
		QuotaNs:    tQuota.Sub(tEco).Nanoseconds(),
		FiscalNs:   tFiscal.Sub(tQuota).Nanoseconds(),
		SnapshotNs: tSnap.Sub(tFiscal).Nanoseconds(),
		DaysRun:    sim.Stats.DaysRun + 1,
	}

	slog.Info("daily report",
		"day", day,
		"population", fmt.Sprintf("%.0f", snap.TotalPopulation),
		"satisfaction", fmt.Sprintf("%.3f", snap.SatisfactionAvg),
		"starving", snap.StarvingCounties,
		"distressed", snap.DistressedCounties,
		"county_treasury", fmt.Sprintf("%.0f", snap.CountyTreasury),
		"minted", fmt.Sprintf("%.0f", snap.Minted),
		"trade_local", fmt.Sprintf("%.1f", snap.TradeVolume[econ.ScopeIntraProvince]),
		"trade_realm", fmt.Sprintf("%.1f", snap.TradeVolume[econ.ScopeCrossProvince]),
		"trade_world", fmt.Sprintf("%.1f", snap.TradeVolume[econ.ScopeCrossRealm]),
		"tick_ms", (sim.Stats.EconomyNs+sim.Stats.QuotaNs+sim.Stats.FiscalNs)/1e6,
	)
}

// TickMonth runs on the month boundary: demographics, then the
// population-derived caches that the daily systems read.
func (sim *Simulation) TickMonth(day uint64) {
	sim.Population.TickMonth()
	sim.State.RefreshPopulationCaches()
	sim.Quota.RefreshHostCaches()

	slog.Info("monthly update",
		"day", day,
		"population", fmt.Sprintf("%.0f", sim.State.TotalPopulation()),
	)
}

// TickYear logs the annual summary.
func (sim *Simulation) TickYear(day uint64) {
	snap := sim.Analytics.Latest()
	if snap == nil {
		return
	}
	slog.Info("annual summary",
		"day", day,
		"population", fmt.Sprintf("%.0f", snap.TotalPopulation),
		"satisfaction", fmt.Sprintf("%.3f", snap.SatisfactionAvg),
		"realm_treasury", fmt.Sprintf("%.0f", snap.RealmTreasury),
		"minted", fmt.Sprintf("%.0f", snap.Minted),
	)
}
