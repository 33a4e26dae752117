// Package econ is the daily economic core: production and consumption,
// upstream facility quotas, and the fiscal pipeline of taxation,
// minting, trade, and relief over the county/province/realm hierarchy.
//
// All three systems share one mutable state graph and run in a fixed
// order each simulated day; later phases read quantities written by
// earlier phases within the same tick.
package econ

import (
	"math/rand"

	"github.com/talgya/realmsim/internal/config"
	"github.com/talgya/realmsim/internal/registry"
	"github.com/talgya/realmsim/internal/world"
)

// Trade scopes, in cascading order. Each later scope adds a toll or
// tariff layer on top of the market fee.
const (
	ScopeIntraProvince = 0
	ScopeCrossProvince = 1
	ScopeCrossRealm    = 2
	ScopeCount         = 3
)

// Facility is one placed facility instance, owned by its hosting
// county.
type Facility struct {
	Type   registry.FacilityID
	County int
	Cell   int // hosting cell index in the world grid

	Throughput float64 // output units this tick
	Workers    float64 // workforce employed this tick
}

// CountyEconomy is the per-county mutable record. All per-good slices
// share the registry good count; stock never goes negative.
type CountyEconomy struct {
	ID       int
	Province int

	Population float64
	Treasury   float64

	// BasicSatisfaction is a ~30-day EMA of need fulfillment.
	BasicSatisfaction float64

	Stock          []float64
	Production     []float64
	Consumption    []float64
	UnmetNeed      []float64
	Productivity   []float64
	TaxPaid        []float64
	ReliefReceived []float64

	TradeBought [ScopeCount][]float64
	TradeSold   [ScopeCount][]float64

	FacilityQuota     []float64
	FacilityInputNeed []float64

	// FacilityWorkers is labor employed by local facilities this
	// tick; the remainder of the population works raw extraction.
	FacilityWorkers float64

	// StapleShortfall is today's unfilled share of the staple budget.
	StapleShortfall float64

	Facilities []int // indices into State.Facilities
}

// ProvinceEconomy is the middle-tier accumulator.
type ProvinceEconomy struct {
	ID    int
	Realm int

	Stockpile    []float64
	TaxCollected []float64
	ReliefGiven  []float64
	AdminSpent   []float64
	Imports      []float64
	Exports      []float64

	Treasury float64

	// MarketCounty hosts the provincial market and collects its fees.
	MarketCounty int

	// PopCache is refreshed monthly, not every tick.
	PopCache float64
}

// RealmEconomy is the top-tier accumulator.
type RealmEconomy struct {
	ID int

	Stockpile    []float64
	TaxCollected []float64
	ReliefGiven  []float64
	AdminSpent   []float64
	Deficit      []float64 // unmet admin consumption, observability only
	Imports      []float64
	Exports      []float64

	Treasury float64
	Minted   float64

	MarketCounty int
	PopCache     float64
}

// State is the shared economic state graph. Created once at init,
// sized to the map topology, never resized during a run.
type State struct {
	Reg *registry.Registry
	Tun config.Tuning

	Counties   []CountyEconomy
	Provinces  []ProvinceEconomy
	Realms     []RealmEconomy
	Facilities []Facility

	// MarketPrice is the current per-good reference price shared by
	// every market scope.
	MarketPrice []float64

	// Adjacency mirrors the world county graph.
	Adjacency [][]int

	// realmCounties flattens realm -> all member county ids.
	realmCounties [][]int
	provCounties  [][]int

	// globalMarketCounty hosts the cross-realm market.
	globalMarketCounty int
}

// NewState builds the economic state graph from the static world
// topology, seeds facilities by placement rule, and fills the
// hierarchy caches. The rng covers facility seeding only.
func NewState(w *world.World, reg *registry.Registry, tun config.Tuning, rng *rand.Rand) *State {
	n := reg.GoodCount()
	s := &State{
		Reg:         reg,
		Tun:         tun,
		Counties:    make([]CountyEconomy, len(w.Counties)),
		Provinces:   make([]ProvinceEconomy, len(w.Provinces)),
		Realms:      make([]RealmEconomy, len(w.Realms)),
		MarketPrice: make([]float64, n),
		Adjacency:   w.Adjacency,
	}

	for g := range s.MarketPrice {
		s.MarketPrice[g] = reg.Goods[g].BasePrice
	}

	productivity := w.Productivity(reg)

	for i := range w.Counties {
		wc := &w.Counties[i]
		c := &s.Counties[i]
		c.ID = i
		c.Province = wc.Province
		c.Population = float64(wc.InitialPop)
		c.Treasury = float64(wc.InitialPop) * 2
		c.BasicSatisfaction = 0.7

		c.Stock = make([]float64, n)
		c.Production = make([]float64, n)
		c.Consumption = make([]float64, n)
		c.UnmetNeed = make([]float64, n)
		c.Productivity = productivity[i]
		c.TaxPaid = make([]float64, n)
		c.ReliefReceived = make([]float64, n)
		for sc := 0; sc < ScopeCount; sc++ {
			c.TradeBought[sc] = make([]float64, n)
			c.TradeSold[sc] = make([]float64, n)
		}
		c.FacilityQuota = make([]float64, n)
		c.FacilityInputNeed = make([]float64, n)

		// Opening stocks: a few days of staples, durables near target.
		for _, g := range reg.Staples {
			c.Stock[g] = c.Population * tun.StapleBudgetPerCapita * 3 / float64(len(reg.Staples))
		}
		for g := range reg.Goods {
			if reg.Goods[g].TargetPerCapita > 0 {
				c.Stock[g] = c.Population * reg.Goods[g].TargetPerCapita * 0.8
			}
		}
	}

	for i := range w.Provinces {
		p := &s.Provinces[i]
		p.ID = i
		p.Realm = w.Provinces[i].Realm
		p.Stockpile = make([]float64, n)
		p.TaxCollected = make([]float64, n)
		p.ReliefGiven = make([]float64, n)
		p.AdminSpent = make([]float64, n)
		p.Imports = make([]float64, n)
		p.Exports = make([]float64, n)
	}

	for i := range w.Realms {
		r := &s.Realms[i]
		r.ID = i
		r.Stockpile = make([]float64, n)
		r.TaxCollected = make([]float64, n)
		r.ReliefGiven = make([]float64, n)
		r.AdminSpent = make([]float64, n)
		r.Deficit = make([]float64, n)
		r.Imports = make([]float64, n)
		r.Exports = make([]float64, n)
	}

	s.provCounties = make([][]int, len(w.Provinces))
	for i := range w.Provinces {
		s.provCounties[i] = w.Provinces[i].Counties
	}
	s.realmCounties = make([][]int, len(w.Realms))
	for ri := range w.Realms {
		for _, pi := range w.Realms[ri].Provinces {
			s.realmCounties[ri] = append(s.realmCounties[ri], w.Provinces[pi].Counties...)
		}
	}

	s.seedFacilities(w, rng)
	s.RefreshPopulationCaches()

	return s
}

// seedFacilities performs the one-shot facility placement: a county
// hosts a facility type when its productivity for the placement good
// clears the threshold.
func (s *State) seedFacilities(w *world.World, rng *rand.Rand) {
	for ci := range s.Counties {
		c := &s.Counties[ci]
		for fi := range s.Reg.Facilities {
			def := &s.Reg.Facilities[fi]
			if def.PlacementGood != registry.NoGood &&
				c.Productivity[def.PlacementGood] < def.PlacementMin {
				continue
			}
			cell := -1
			if len(w.Counties[ci].Cells) > 0 {
				cell = w.Counties[ci].Cells[rng.Intn(len(w.Counties[ci].Cells))]
			}
			idx := len(s.Facilities)
			s.Facilities = append(s.Facilities, Facility{
				Type:   def.ID,
				County: ci,
				Cell:   cell,
			})
			c.Facilities = append(c.Facilities, idx)
		}
	}
}

// RefreshPopulationCaches recomputes the province/realm population
// aggregates and re-elects market counties. Called monthly, not every
// tick — population only changes on the monthly boundary.
func (s *State) RefreshPopulationCaches() {
	for pi := range s.Provinces {
		p := &s.Provinces[pi]
		p.PopCache = 0
		best, bestPop := -1, -1.0
		for _, ci := range s.provCounties[pi] {
			pop := s.Counties[ci].Population
			p.PopCache += pop
			if pop > bestPop {
				best, bestPop = ci, pop
			}
		}
		p.MarketCounty = best
	}
	globalBest, globalPop := -1, -1.0
	for ri := range s.Realms {
		r := &s.Realms[ri]
		r.PopCache = 0
		best, bestPop := -1, -1.0
		for _, ci := range s.realmCounties[ri] {
			pop := s.Counties[ci].Population
			r.PopCache += pop
			if pop > bestPop {
				best, bestPop = ci, pop
			}
		}
		r.MarketCounty = best
		if bestPop > globalPop {
			globalBest, globalPop = best, bestPop
		}
	}
	s.globalMarketCounty = globalBest
}

// TotalPopulation sums county populations.
func (s *State) TotalPopulation() float64 {
	total := 0.0
	for i := range s.Counties {
		total += s.Counties[i].Population
	}
	return total
}

// RealmOf returns the realm id for a county.
func (s *State) RealmOf(ci int) int {
	return s.Provinces[s.Counties[ci].Province].Realm
}

// zero resets a per-good slice in place.
func zero(xs []float64) {
	for i := range xs {
		xs[i] = 0
	}
}
