// FiscalSystem — the strict daily phase pipeline of administrative
// consumption, hierarchical taxation, minting, cascading trade, and
// relief. Phase order is a correctness invariant: every phase assumes
// the earlier ones already mutated stock and treasury.
package econ

import "github.com/talgya/realmsim/internal/registry"

// FiscalSystem runs phases 1-8 of the daily fiscal pipeline.
type FiscalSystem struct {
	s *State

	goldOre   registry.GoodID
	silverOre registry.GoodID

	// Scratch buffers, sized once at init, overwritten every tick.
	supply      []float64   // per county, one good at a time
	demand      []float64   // per county, one good at a time
	stapleGap   []float64   // per county remaining staple deficit
	needLeft    [][]float64 // per county per good remaining deficit
	reliefShr   []float64   // per county relief share
	everyCounty []int       // all county ids, for the cross-realm pass

	aggSupply []float64 // per good, for the daily price update
	aggDemand []float64
}

// NewFiscalSystem creates the fiscal pipeline and its scratch state.
func NewFiscalSystem(s *State) *FiscalSystem {
	nC, nG := len(s.Counties), s.Reg.GoodCount()
	f := &FiscalSystem{
		s:         s,
		supply:    make([]float64, nC),
		demand:    make([]float64, nC),
		stapleGap: make([]float64, nC),
		needLeft:  make([][]float64, nC),
		reliefShr: make([]float64, nC),
		aggSupply: make([]float64, nG),
		aggDemand: make([]float64, nG),
	}
	for i := range f.needLeft {
		f.needLeft[i] = make([]float64, nG)
	}
	// Minting is disabled for an ore the registry does not define.
	var ok bool
	if f.goldOre, ok = s.Reg.Lookup("goldOre"); !ok {
		f.goldOre = registry.NoGood
	}
	if f.silverOre, ok = s.Reg.Lookup("silverOre"); !ok {
		f.silverOre = registry.NoGood
	}
	return f
}

// Tick runs the full fiscal pipeline for one day.
func (f *FiscalSystem) Tick() {
	f.resetDaily()

	f.countyAdmin()     // phase 1
	f.countyTax()       // phase 2
	f.provinceAdmin()   // phase 3
	f.provinceTax()     // phase 4
	f.realmAdminWages() // phase 5
	f.mint()            // phase 5b
	f.runTradePasses()  // phase 6
	f.granary()         // phase 7
	f.relief()          // phase 8
	f.updatePrices()
}

// resetDaily zeroes the per-tick accumulators. Buffers are reused,
// never reallocated.
func (f *FiscalSystem) resetDaily() {
	s := f.s
	for ci := range s.Counties {
		c := &s.Counties[ci]
		zero(c.TaxPaid)
		zero(c.ReliefReceived)
		for sc := 0; sc < ScopeCount; sc++ {
			zero(c.TradeBought[sc])
			zero(c.TradeSold[sc])
		}
	}
	for pi := range s.Provinces {
		p := &s.Provinces[pi]
		zero(p.TaxCollected)
		zero(p.ReliefGiven)
		zero(p.AdminSpent)
		zero(p.Imports)
		zero(p.Exports)
	}
	for ri := range s.Realms {
		r := &s.Realms[ri]
		zero(r.TaxCollected)
		zero(r.ReliefGiven)
		zero(r.AdminSpent)
		zero(r.Deficit)
		zero(r.Imports)
		zero(r.Exports)
	}
	zero(f.aggSupply)
	zero(f.aggDemand)
}

// countyAdmin draws county upkeep from stock. Shortfall is recorded
// as realm deficit and never blocks the pipeline.
func (f *FiscalSystem) countyAdmin() {
	s := f.s
	for ci := range s.Counties {
		c := &s.Counties[ci]
		r := &s.Realms[s.RealmOf(ci)]
		for g := range s.Reg.Goods {
			rate := s.Reg.Goods[g].AdminRate[0]
			if rate <= 0 {
				continue
			}
			need := c.Population * rate
			take := need
			if take > c.Stock[g] {
				take = c.Stock[g]
			}
			c.Stock[g] -= take
			c.Consumption[g] += take
			if need > take {
				r.Deficit[g] += need - take
			}
		}
	}
}

// countyTax confiscates precious ore outright and taxes other
// surplus-above-retain stock, compensating the county in cash at a
// discount of base price when the province treasury allows.
func (f *FiscalSystem) countyTax() {
	s := f.s
	rate := s.Tun.SurplusTaxRate
	for ci := range s.Counties {
		c := &s.Counties[ci]
		p := &s.Provinces[c.Province]
		for g := range s.Reg.Goods {
			def := &s.Reg.Goods[g]

			var tax float64
			if def.Precious {
				tax = c.Stock[g] // 100% moves up
			} else {
				surplus := c.Stock[g] - c.Population*def.RetainPerCapita
				if surplus <= 0 {
					continue
				}
				tax = surplus * rate
			}
			if tax <= 0 {
				continue
			}

			c.Stock[g] -= tax
			c.TaxPaid[g] += tax
			p.Stockpile[g] += tax
			p.TaxCollected[g] += tax

			if !def.Precious && def.BasePrice > 0 {
				comp := tax * def.BasePrice * s.Tun.TaxCompDiscount
				if comp > p.Treasury {
					comp = p.Treasury
				}
				p.Treasury -= comp
				c.Treasury += comp
			}
		}
	}
}

// provinceAdmin draws provincial upkeep from the province stockpile.
func (f *FiscalSystem) provinceAdmin() {
	s := f.s
	for pi := range s.Provinces {
		p := &s.Provinces[pi]
		r := &s.Realms[p.Realm]
		for g := range s.Reg.Goods {
			rate := s.Reg.Goods[g].AdminRate[1]
			if rate <= 0 {
				continue
			}
			need := p.PopCache * rate
			take := need
			if take > p.Stockpile[g] {
				take = p.Stockpile[g]
			}
			p.Stockpile[g] -= take
			p.AdminSpent[g] += take
			if need > take {
				r.Deficit[g] += need - take
			}
		}
	}
}

// provinceTax moves provincial surplus up to the realm: precious ore
// fully, other goods above the provincial retain level at the
// configured rate.
func (f *FiscalSystem) provinceTax() {
	s := f.s
	rate := s.Tun.SurplusTaxRate
	for pi := range s.Provinces {
		p := &s.Provinces[pi]
		r := &s.Realms[p.Realm]
		for g := range s.Reg.Goods {
			def := &s.Reg.Goods[g]

			var tax float64
			if def.Precious {
				tax = p.Stockpile[g]
			} else {
				surplus := p.Stockpile[g] - p.PopCache*def.RetainPerCapita
				if surplus <= 0 {
					continue
				}
				tax = surplus * rate
			}
			if tax <= 0 {
				continue
			}

			p.Stockpile[g] -= tax
			r.Stockpile[g] += tax
			r.TaxCollected[g] += tax

			if !def.Precious && def.BasePrice > 0 {
				comp := tax * def.BasePrice * s.Tun.TaxCompDiscount
				if comp > r.Treasury {
					comp = r.Treasury
				}
				r.Treasury -= comp
				p.Treasury += comp
			}
		}
	}
}

// realmAdminWages draws realm upkeep from the realm stockpile, then
// redistributes administrative wages back to counties proportional to
// population. Money is conserved, not destroyed.
func (f *FiscalSystem) realmAdminWages() {
	s := f.s
	for ri := range s.Realms {
		r := &s.Realms[ri]
		for g := range s.Reg.Goods {
			rate := s.Reg.Goods[g].AdminRate[2]
			if rate <= 0 {
				continue
			}
			need := r.PopCache * rate
			take := need
			if take > r.Stockpile[g] {
				take = r.Stockpile[g]
			}
			r.Stockpile[g] -= take
			r.AdminSpent[g] += take
			if need > take {
				r.Deficit[g] += need - take
			}
		}

		if r.PopCache <= 0 {
			continue // skip, no claimants
		}
		wages := r.Treasury * s.Tun.AdminWageRate
		r.Treasury -= wages
		for _, ci := range s.realmCounties[ri] {
			c := &s.Counties[ci]
			c.Treasury += wages * c.Population / r.PopCache
		}
	}
}

// mint converts confiscated gold and silver ore into currency at the
// fixed smelting-yield and price-per-kg constants.
func (f *FiscalSystem) mint() {
	s := f.s
	for ri := range s.Realms {
		r := &s.Realms[ri]
		minted := 0.0
		if f.goldOre != registry.NoGood && r.Stockpile[f.goldOre] > 0 {
			minted += r.Stockpile[f.goldOre] * s.Tun.GoldSmeltYield * s.Tun.GoldPricePerKg
			r.Stockpile[f.goldOre] = 0
		}
		if f.silverOre != registry.NoGood && r.Stockpile[f.silverOre] > 0 {
			minted += r.Stockpile[f.silverOre] * s.Tun.SilverSmeltYield * s.Tun.SilverPricePerKg
			r.Stockpile[f.silverOre] = 0
		}
		if minted <= 0 {
			continue
		}
		r.Treasury += minted
		r.Minted += minted
	}
}

// granary requisitions staple surplus from member counties at a
// discounted price, filling the provincial buffer gradually toward N
// days of ideal per-capita consumption.
func (f *FiscalSystem) granary() {
	s := f.s
	nStaples := float64(len(s.Reg.Staples))
	if nStaples == 0 {
		return
	}

	for pi := range s.Provinces {
		p := &s.Provinces[pi]
		for _, g := range s.Reg.Staples {
			def := &s.Reg.Goods[g]
			target := p.PopCache * s.Tun.StapleBudgetPerCapita * float64(s.Tun.GranaryDays) / nStaples
			gap := target - p.Stockpile[g]
			if gap <= 0 {
				continue
			}
			want := gap * s.Tun.GranaryFillRate // fills gradually, never all at once

			price := s.MarketPrice[g] * s.Tun.GranaryDiscount
			if price <= 0 {
				continue
			}
			if afford := p.Treasury / price; want > afford {
				want = afford
			}
			if want <= 0 {
				continue
			}

			total := 0.0
			for _, ci := range s.provCounties[pi] {
				c := &s.Counties[ci]
				sur := c.Stock[g] - c.Population*def.RetainPerCapita
				if sur < 0 {
					sur = 0
				}
				f.supply[ci] = sur
				total += sur
			}
			if total <= 0 {
				continue
			}
			if want > total {
				want = total
			}

			for _, ci := range s.provCounties[pi] {
				if f.supply[ci] <= 0 {
					continue
				}
				take := want * f.supply[ci] / total
				c := &s.Counties[ci]
				c.Stock[g] -= take
				c.Treasury += take * price
				p.Treasury -= take * price
				p.Stockpile[g] += take
			}
		}
	}
}

// relief distributes staple stockpiles to famine counties, strictly
// after trade so routine redistribution happens via price signals and
// relief stays a backstop. Only counties below the satisfaction
// threshold qualify; each receives in proportion to its share of the
// total measured deficit. Province stockpiles go first, then realm
// stockpiles cover what remains.
func (f *FiscalSystem) relief() {
	s := f.s
	for pi := range s.Provinces {
		p := &s.Provinces[pi]
		f.reliefPass(s.provCounties[pi], p.Stockpile, p.ReliefGiven)
	}
	for ri := range s.Realms {
		r := &s.Realms[ri]
		f.reliefPass(s.realmCounties[ri], r.Stockpile, r.ReliefGiven)
	}
}

// reliefPass drains one stockpile into one group of counties.
// Deficit shares are fixed at pass start; each grant is capped by the
// county's remaining deficit.
func (f *FiscalSystem) reliefPass(counties []int, stockpile, given []float64) {
	s := f.s

	totalDeficit := 0.0
	for _, ci := range counties {
		c := &s.Counties[ci]
		f.reliefShr[ci] = 0
		if c.BasicSatisfaction >= s.Tun.ReliefThreshold {
			continue
		}
		if f.stapleGap[ci] > 0 {
			f.reliefShr[ci] = f.stapleGap[ci]
			totalDeficit += f.stapleGap[ci]
		}
	}
	if totalDeficit <= 0 {
		return // skip, no claimants
	}

	for _, g := range s.Reg.Staples {
		avail := stockpile[g]
		if avail <= 0 {
			continue
		}
		for _, ci := range counties {
			share := f.reliefShr[ci] / totalDeficit
			if share <= 0 {
				continue
			}
			give := avail * share
			if give > f.stapleGap[ci] {
				give = f.stapleGap[ci]
			}
			c := &s.Counties[ci]
			c.Stock[g] += give
			c.ReliefReceived[g] += give
			stockpile[g] -= give
			given[g] += give
			f.stapleGap[ci] -= give
		}
	}
}

// updatePrices nudges each good's reference price toward the ratio of
// aggregate demand to supply observed in today's local trade passes,
// bounded by the registry floor and ceiling.
func (f *FiscalSystem) updatePrices() {
	s := f.s
	const smoothing = 0.2
	for g := range s.Reg.Goods {
		def := &s.Reg.Goods[g]
		if !def.Tradeable || def.BasePrice <= 0 {
			continue
		}
		sup, dem := f.aggSupply[g], f.aggDemand[g]
		var target float64
		switch {
		case sup <= 0 && dem <= 0:
			target = def.BasePrice
		case sup <= 0:
			target = def.MaxPrice
		default:
			target = def.BasePrice * dem / sup
		}
		if target < def.MinPrice {
			target = def.MinPrice
		}
		if target > def.MaxPrice {
			target = def.MaxPrice
		}
		s.MarketPrice[g] += smoothing * (target - s.MarketPrice[g])
	}
}
