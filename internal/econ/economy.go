// EconomySystem — daily per-county production, facility processing,
// and consumption. Runs first in the tick pipeline; the quota and
// fiscal systems read the quantities written here.
package econ

import "github.com/talgya/realmsim/internal/registry"

// EconomySystem computes production and consumption for every county.
type EconomySystem struct {
	s *State

	// Scratch, sized to the good count at init and reused per county.
	durAllow []float64
	sameOut  []int
}

// NewEconomySystem creates the production/consumption system.
func NewEconomySystem(s *State) *EconomySystem {
	return &EconomySystem{
		s:        s,
		durAllow: make([]float64, s.Reg.GoodCount()),
		sameOut:  make([]int, s.Reg.GoodCount()),
	}
}

// Tick runs one simulated day of production and consumption.
func (e *EconomySystem) Tick() {
	for ci := range e.s.Counties {
		e.tickCounty(&e.s.Counties[ci])
	}
}

func (e *EconomySystem) tickCounty(c *CountyEconomy) {
	zero(c.Production)
	zero(c.Consumption)
	zero(c.UnmetNeed)
	zero(c.FacilityInputNeed)
	c.StapleShortfall = 0
	c.FacilityWorkers = 0

	e.assignFacilityLabor(c)
	e.produceRaw(c)
	e.processFacilities(c)
	e.consumeNonStaples(c)
	e.consumeStaplePool(c)
	e.updateSatisfaction(c)
	e.decayStocks(c)
}

// assignFacilityLabor computes each facility's output target and
// workforce. Labor is assigned before raw production so the workforce
// split is self-consistent.
func (e *EconomySystem) assignFacilityLabor(c *CountyEconomy) {
	reg := e.s.Reg

	// Facilities with the same output share the county quota evenly.
	zeroInts(e.sameOut)
	for _, fi := range c.Facilities {
		f := &e.s.Facilities[fi]
		if def := reg.Facility(f.Type); def != nil {
			e.sameOut[def.Output]++
		}
	}

	remaining := c.Population
	for _, fi := range c.Facilities {
		f := &e.s.Facilities[fi]
		def := reg.Facility(f.Type)
		if def == nil {
			f.Workers, f.Throughput = 0, 0
			continue // stale facility type: skip, never fault
		}

		target := def.BaselineOutput
		if n := e.sameOut[def.Output]; n > 0 {
			if q := c.FacilityQuota[def.Output] / float64(n); q > target {
				target = q
			}
		}

		workers := target * def.LaborPerUnit
		if cap := def.MaxLaborFrac * c.Population; workers > cap {
			workers = cap
		}
		if workers > remaining {
			workers = remaining
		}
		remaining -= workers
		f.Workers = workers
		c.FacilityWorkers += workers

		// Labor-capped output target for the processing step.
		if def.LaborPerUnit > 0 {
			f.Throughput = workers / def.LaborPerUnit
		} else {
			f.Throughput = target
		}

		// Local input demand at today's targets, read by raw
		// production caps and by trade supply.
		for _, in := range def.Inputs {
			c.FacilityInputNeed[in.Good] += f.Throughput * in.Amount / def.OutputAmount
		}
	}
}

// produceRaw adds county raw output: population × productivity ×
// workforce fraction, price-throttled below par, and capped at local
// facility demand for goods nobody consumes directly.
func (e *EconomySystem) produceRaw(c *CountyEconomy) {
	reg := e.s.Reg

	wf := 1.0
	if c.Population > 0 {
		wf = (c.Population - c.FacilityWorkers) / c.Population
		if wf < 0 {
			wf = 0
		}
	}

	for g := range c.Productivity {
		rate := c.Productivity[g]
		if rate <= 0 {
			continue
		}
		def := &reg.Goods[g]

		out := c.Population * rate * wf

		// Price-signal governor on overproduction: output throttles
		// when the market price has fallen below par.
		if def.BasePrice > 0 && e.s.MarketPrice[g] < def.BasePrice {
			mul := e.s.MarketPrice[g] / def.BasePrice
			if mul < e.s.Tun.PriceGovernorFloor {
				mul = e.s.Tun.PriceGovernorFloor
			}
			out *= mul
		}

		// Pure facility inputs never stockpile beyond local demand.
		if !reg.DirectDemand[g] && !def.Precious {
			if need := c.FacilityInputNeed[g]; out > need {
				out = need
			}
		}

		c.Stock[g] += out
		c.Production[g] += out
	}
}

// processFacilities runs every local facility: throughput is the
// minimum of the labor-capped target, the material cap from all
// inputs, and (for durables) the remaining stock-gap allowance.
func (e *EconomySystem) processFacilities(c *CountyEconomy) {
	reg := e.s.Reg
	tun := e.s.Tun

	// Durable output allowance per good:
	// (maintenance wear + gap × catch-up) × buffer. Prevents runaway
	// overproduction once the target stock is reached.
	for g := range e.durAllow {
		def := &reg.Goods[g]
		if def.TargetPerCapita <= 0 {
			e.durAllow[g] = -1 // no cap
			continue
		}
		target := c.Population * def.TargetPerCapita
		gap := target - c.Stock[g]
		if gap < 0 {
			gap = 0
		}
		e.durAllow[g] = (c.Stock[g]*def.Spoilage + gap*tun.DurableCatchUpRate) * tun.DurableBufferMul
	}

	for _, fi := range c.Facilities {
		f := &e.s.Facilities[fi]
		def := reg.Facility(f.Type)
		if def == nil {
			continue
		}

		out := f.Throughput // labor-capped target from labor assignment

		// Material cap across all inputs.
		for _, in := range def.Inputs {
			perUnit := in.Amount / def.OutputAmount
			if perUnit <= 0 {
				continue
			}
			if cap := c.Stock[in.Good] / perUnit; cap < out {
				out = cap
			}
		}

		if allow := e.durAllow[def.Output]; allow >= 0 {
			if out > allow {
				out = allow
			}
			e.durAllow[def.Output] = allow - out
		}

		if out <= 0 {
			f.Throughput = 0
			continue
		}
		f.Throughput = out

		// Inputs drain proportionally to actual throughput.
		for _, in := range def.Inputs {
			used := out * in.Amount / def.OutputAmount
			c.Stock[in.Good] -= used
			if c.Stock[in.Good] < 0 {
				c.Stock[in.Good] = 0
			}
			c.Consumption[in.Good] += used
		}
		c.Stock[def.Output] += out
		c.Production[def.Output] += out
	}
}

// consumeNonStaples handles durables (wear only; the deficit is a
// signal, not forced consumption) and simple consumables.
func (e *EconomySystem) consumeNonStaples(c *CountyEconomy) {
	reg := e.s.Reg
	for g := range reg.Goods {
		def := &reg.Goods[g]
		if def.Tier == registry.TierStaple {
			continue // pooled below
		}

		if def.TargetPerCapita > 0 {
			wear := c.Stock[g] * def.Spoilage
			c.Stock[g] -= wear
			c.Consumption[g] += wear
			target := c.Population * def.TargetPerCapita
			if gap := target - c.Stock[g]; gap > 0 {
				c.UnmetNeed[g] += gap
			}
			continue
		}

		if def.PerCapita > 0 {
			want := c.Population * def.PerCapita
			take := want
			if take > c.Stock[g] {
				take = c.Stock[g]
			}
			c.Stock[g] -= take
			c.Consumption[g] += take
			if want > take {
				c.UnmetNeed[g] += want - take
			}
		}
	}
}

// consumeStaplePool drains all staple goods against one shared
// calorie-equivalent budget. Above-budget supply is consumed
// proportionally; below-budget supply is drained fully (starvation).
func (e *EconomySystem) consumeStaplePool(c *CountyEconomy) {
	budget := c.Population * e.s.Tun.StapleBudgetPerCapita
	if budget <= 0 {
		return
	}

	supply := 0.0
	for _, g := range e.s.Reg.Staples {
		supply += c.Stock[g]
	}

	if supply >= budget {
		// Proportional draw: substitutable food sources as one pool.
		for _, g := range e.s.Reg.Staples {
			take := c.Stock[g] / supply * budget
			c.Stock[g] -= take
			c.Consumption[g] += take
		}
		return
	}

	// Starvation branch: everything edible is eaten.
	for _, g := range e.s.Reg.Staples {
		take := c.Stock[g]
		c.Stock[g] = 0
		c.Consumption[g] += take
	}
	c.StapleShortfall = budget - supply
	// Spread the shortfall signal across the pool for observability.
	for _, g := range e.s.Reg.Staples {
		c.UnmetNeed[g] += c.StapleShortfall / float64(len(e.s.Reg.Staples))
	}
}

// updateSatisfaction folds today's fulfillment into the EMA. Weights
// are proportional to each component's share of the survival budget.
func (e *EconomySystem) updateSatisfaction(c *CountyEconomy) {
	reg := e.s.Reg

	budget := c.Population * e.s.Tun.StapleBudgetPerCapita
	weightSum, blend := 0.0, 0.0

	if budget > 0 {
		ratio := (budget - c.StapleShortfall) / budget
		if ratio < 0 {
			ratio = 0
		}
		weightSum += budget
		blend += budget * ratio
	}

	for g := range reg.Goods {
		def := &reg.Goods[g]
		if def.Tier != registry.TierBasic {
			continue
		}
		var want, ratio float64
		switch {
		case def.TargetPerCapita > 0:
			target := c.Population * def.TargetPerCapita
			if target <= 0 {
				continue
			}
			want = target * def.Spoilage // daily replacement demand
			ratio = c.Stock[g] / target
			if ratio > 1 {
				ratio = 1
			}
		case def.PerCapita > 0:
			want = c.Population * def.PerCapita
			if want <= 0 {
				continue
			}
			unmet := c.UnmetNeed[g]
			if unmet > want {
				unmet = want
			}
			ratio = (want - unmet) / want
		default:
			continue
		}
		weightSum += want
		blend += want * ratio
	}

	if weightSum <= 0 {
		return // zero population: no update, no division
	}
	blend /= weightSum

	alpha := e.s.Tun.SatisfactionAlpha
	c.BasicSatisfaction += alpha * (blend - c.BasicSatisfaction)
}

// decayStocks applies spoilage to perishables. Durables already paid
// their wear during consumption.
func (e *EconomySystem) decayStocks(c *CountyEconomy) {
	reg := e.s.Reg
	for g := range reg.Goods {
		def := &reg.Goods[g]
		if def.Spoilage <= 0 || def.TargetPerCapita > 0 {
			continue
		}
		c.Stock[g] -= c.Stock[g] * def.Spoilage
	}
}

func zeroInts(xs []int) {
	for i := range xs {
		xs[i] = 0
	}
}
