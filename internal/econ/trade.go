// Cascading trade passes — phase 6 of the fiscal pipeline. Three
// scopes run in strict order (intra-province, cross-province,
// cross-realm); each scope consumes surplus before the next, wider
// one sees it. Within a pass, per-county supply and demand are fully
// materialized into scratch buffers before any mutation, so clearing
// is independent of county iteration order.
package econ

// runTradePasses seeds the remaining-deficit buffers from today's
// unmet need, then clears each scope in cascade.
func (f *FiscalSystem) runTradePasses() {
	s := f.s

	for ci := range s.Counties {
		c := &s.Counties[ci]
		f.stapleGap[ci] = c.StapleShortfall
		for g := range c.UnmetNeed {
			if s.Reg.IsStaple[g] {
				// Buying any staple fills the shared pool; tracked
				// via stapleGap instead of per-good need.
				f.needLeft[ci][g] = 0
			} else {
				f.needLeft[ci][g] = c.UnmetNeed[g]
			}
		}
	}

	for pi := range s.Provinces {
		f.tradePass(s.provCounties[pi], ScopeIntraProvince, s.Provinces[pi].MarketCounty)
	}
	for ri := range s.Realms {
		f.tradePass(s.realmCounties[ri], ScopeCrossProvince, s.Realms[ri].MarketCounty)
	}
	f.tradePass(f.allCounties(), ScopeCrossRealm, s.globalMarketCounty)
}

// allCounties returns every county id; the cross-realm pass spans the
// whole map.
func (f *FiscalSystem) allCounties() []int {
	if f.everyCounty == nil {
		f.everyCounty = make([]int, len(f.s.Counties))
		for i := range f.everyCounty {
			f.everyCounty[i] = i
		}
	}
	return f.everyCounty
}

// tradePass clears one scope: a single-round proportional double
// auction per good, processed in fixed buy-priority order so scarce
// treasury is spent on staples before luxuries.
func (f *FiscalSystem) tradePass(counties []int, scope int, market int) {
	s := f.s

	feeRate := 0.0
	if market >= 0 {
		feeRate = s.Tun.MarketFeeRate
	}
	tollRate := 0.0
	if scope >= ScopeCrossProvince {
		tollRate = s.Tun.CrossProvinceToll
	}
	tariffRate := 0.0
	if scope >= ScopeCrossRealm {
		tariffRate = s.Tun.CrossRealmTariff
	}

	for _, g := range s.Reg.TradeOrder {
		def := &s.Reg.Goods[g]
		price := s.MarketPrice[g]
		if price <= 0 {
			continue
		}
		costPerUnit := price * (1 + feeRate + tollRate + tariffRate)

		staple := s.Reg.IsStaple[g]

		// Sweep 1: materialize supply and affordability-capped demand
		// before any mutation.
		totalSupply, totalDemand := 0.0, 0.0
		for _, ci := range counties {
			c := &s.Counties[ci]

			sup := c.Stock[g] - c.Population*def.RetainPerCapita - c.FacilityInputNeed[g]
			if sup < 0 {
				sup = 0
			}
			f.supply[ci] = sup
			totalSupply += sup

			var raw float64
			if staple {
				raw = f.stapleGap[ci]
			} else {
				raw = f.needLeft[ci][int(g)]
			}
			dem := raw
			// A county cannot buy more than it can pay for.
			if afford := c.Treasury / costPerUnit; dem > afford {
				dem = afford
			}
			if dem < 0 {
				dem = 0
			}
			f.demand[ci] = dem
			totalDemand += dem
		}

		if scope == ScopeIntraProvince {
			f.aggSupply[g] += totalSupply
			f.aggDemand[g] += totalDemand
		}

		if totalSupply <= 0 || totalDemand <= 0 {
			continue // skip, no claimants on one side
		}

		fillRatio := 1.0
		if totalDemand > totalSupply {
			fillRatio = totalSupply / totalDemand
		}
		sellRatio := 1.0
		if totalSupply > totalDemand {
			sellRatio = totalDemand / totalSupply
		}

		// Sweep 2: apply the clearing against the pre-computed values.
		for _, ci := range counties {
			c := &s.Counties[ci]

			if sold := f.supply[ci] * sellRatio; sold > 0 {
				c.Stock[g] -= sold
				c.Treasury += sold * price
				c.TradeSold[scope][g] += sold
				switch scope {
				case ScopeCrossProvince:
					s.Provinces[c.Province].Exports[g] += sold
				case ScopeCrossRealm:
					s.Realms[s.RealmOf(ci)].Exports[g] += sold
				}
			}

			bought := f.demand[ci] * fillRatio
			if bought <= 0 {
				continue
			}
			c.Stock[g] += bought
			c.Treasury -= bought * costPerUnit
			c.TradeBought[scope][g] += bought

			surBase := bought * price
			if feeRate > 0 {
				s.Counties[market].Treasury += surBase * feeRate
			}
			if tollRate > 0 {
				s.Provinces[c.Province].Treasury += surBase * tollRate
			}
			if tariffRate > 0 {
				s.Realms[s.RealmOf(ci)].Treasury += surBase * tariffRate
			}

			switch scope {
			case ScopeCrossProvince:
				s.Provinces[c.Province].Imports[g] += bought
			case ScopeCrossRealm:
				s.Realms[s.RealmOf(ci)].Imports[g] += bought
			}

			if staple {
				f.stapleGap[ci] -= bought
				if f.stapleGap[ci] < 0 {
					f.stapleGap[ci] = 0
				}
			} else {
				f.needLeft[ci][int(g)] -= bought
				if f.needLeft[ci][int(g)] < 0 {
					f.needLeft[ci][int(g)] = 0
				}
			}
		}
	}
}
