// FacilityQuotaSystem — daily upstream demand propagation. Aggregates
// downstream consumption and administrative need per facility-output
// good, apportions it across hosting counties by population share,
// then walks recipes in reverse so a tool quota creates iron demand
// and iron demand creates ore demand.
package econ

import "github.com/talgya/realmsim/internal/registry"

// QuotaSystem assigns per-county output targets for facility goods.
type QuotaSystem struct {
	s *State

	// outputs lists the distinct facility-output goods.
	outputs []registry.GoodID

	// facOrder lists facility defs in decreasing recipe height, so
	// propagation reaches transitively through chains (tools before
	// iron before charcoal).
	facOrder []registry.FacilityID

	// Host caches, refreshed monthly with the population caches.
	// provHosts[p][g] lists counties in province p hosting a
	// facility that outputs g; provHostPop is their population sum.
	provHosts    [][][]int
	provHostPop  [][]float64
	realmHosts   [][][]int
	realmHostPop [][]float64

	// realmPool accumulates need that found no host in its province.
	realmPool [][]float64

	// sameOut counts same-output facilities per county during
	// propagation (scratch).
	sameOut []int
}

// NewQuotaSystem creates the quota system and its static orderings.
func NewQuotaSystem(s *State) *QuotaSystem {
	q := &QuotaSystem{
		s:       s,
		sameOut: make([]int, s.Reg.GoodCount()),
	}

	seen := make(map[registry.GoodID]bool)
	for i := range s.Reg.Facilities {
		out := s.Reg.Facilities[i].Output
		if !seen[out] {
			seen[out] = true
			q.outputs = append(q.outputs, out)
		}
	}

	q.facOrder = recipeHeightOrder(s.Reg)

	nG := s.Reg.GoodCount()
	q.provHosts = make([][][]int, len(s.Provinces))
	q.provHostPop = make([][]float64, len(s.Provinces))
	for i := range s.Provinces {
		q.provHosts[i] = make([][]int, nG)
		q.provHostPop[i] = make([]float64, nG)
	}
	q.realmHosts = make([][][]int, len(s.Realms))
	q.realmHostPop = make([][]float64, len(s.Realms))
	q.realmPool = make([][]float64, len(s.Realms))
	for i := range s.Realms {
		q.realmHosts[i] = make([][]int, nG)
		q.realmHostPop[i] = make([]float64, nG)
		q.realmPool[i] = make([]float64, nG)
	}

	q.RefreshHostCaches()
	return q
}

// recipeHeightOrder sorts facility ids by the recipe height of their
// output, tallest first. Height is 0 for raw goods and grows by one
// per processing stage, computed to fixpoint.
func recipeHeightOrder(reg *registry.Registry) []registry.FacilityID {
	height := make([]int, reg.GoodCount())
	for changed := true; changed; {
		changed = false
		for i := range reg.Facilities {
			def := &reg.Facilities[i]
			h := 0
			for _, in := range def.Inputs {
				if height[in.Good] >= h {
					h = height[in.Good] + 1
				}
			}
			if h > height[def.Output] {
				height[def.Output] = h
				changed = true
			}
		}
	}

	order := make([]registry.FacilityID, 0, len(reg.Facilities))
	for i := range reg.Facilities {
		order = append(order, reg.Facilities[i].ID)
	}
	// Insertion sort by descending output height; the table is small.
	for i := 1; i < len(order); i++ {
		for j := i; j > 0; j-- {
			a := height[reg.Facilities[order[j-1]].Output]
			b := height[reg.Facilities[order[j]].Output]
			if a >= b {
				break
			}
			order[j-1], order[j] = order[j], order[j-1]
		}
	}
	return order
}

// RefreshHostCaches rebuilds the population-weighted host lists.
// Monthly, for performance; the quota computation itself is daily.
func (q *QuotaSystem) RefreshHostCaches() {
	s := q.s
	for pi := range q.provHosts {
		for g := range q.provHosts[pi] {
			q.provHosts[pi][g] = q.provHosts[pi][g][:0]
			q.provHostPop[pi][g] = 0
		}
	}
	for ri := range q.realmHosts {
		for g := range q.realmHosts[ri] {
			q.realmHosts[ri][g] = q.realmHosts[ri][g][:0]
			q.realmHostPop[ri][g] = 0
		}
	}

	for ci := range s.Counties {
		c := &s.Counties[ci]
		pi := c.Province
		ri := s.Provinces[pi].Realm
		for _, fi := range c.Facilities {
			def := s.Reg.Facility(s.Facilities[fi].Type)
			if def == nil {
				continue
			}
			g := def.Output
			if !contains(q.provHosts[pi][g], ci) {
				q.provHosts[pi][g] = append(q.provHosts[pi][g], ci)
				q.provHostPop[pi][g] += c.Population
			}
			if !contains(q.realmHosts[ri][g], ci) {
				q.realmHosts[ri][g] = append(q.realmHosts[ri][g], ci)
				q.realmHostPop[ri][g] += c.Population
			}
		}
	}
}

// Tick computes today's facility quotas for every county.
func (q *QuotaSystem) Tick() {
	s := q.s
	for ci := range s.Counties {
		zero(s.Counties[ci].FacilityQuota)
	}
	for ri := range q.realmPool {
		zero(q.realmPool[ri])
	}

	q.apportionDownstreamNeed()
	q.PropagateUpstream()
}

// apportionDownstreamNeed spreads consumption + admin need for each
// facility-output good over the hosting counties, province first,
// spilling to realm-level hosts when a province has none.
func (q *QuotaSystem) apportionDownstreamNeed() {
	s := q.s

	for _, g := range q.outputs {
		def := &s.Reg.Goods[g]

		for pi := range s.Provinces {
			p := &s.Provinces[pi]
			need := p.PopCache * def.AdminRate[1]
			for _, ci := range s.provCounties[pi] {
				need += q.countyDailyNeed(&s.Counties[ci], def)
			}
			if need <= 0 {
				continue
			}

			hosts := q.provHosts[pi][g]
			hostPop := q.provHostPop[pi][g]
			if len(hosts) == 0 || hostPop <= 0 {
				q.realmPool[p.Realm][g] += need
				continue
			}
			for _, ci := range hosts {
				share := s.Counties[ci].Population / hostPop
				s.Counties[ci].FacilityQuota[g] += need * share
			}
		}

		for ri := range s.Realms {
			r := &s.Realms[ri]
			need := q.realmPool[ri][g] + r.PopCache*def.AdminRate[2]
			if need <= 0 {
				continue
			}
			hosts := q.realmHosts[ri][g]
			hostPop := q.realmHostPop[ri][g]
			if len(hosts) == 0 || hostPop <= 0 {
				continue // nobody can make it anywhere in the realm
			}
			for _, ci := range hosts {
				share := s.Counties[ci].Population / hostPop
				s.Counties[ci].FacilityQuota[g] += need * share
			}
		}
	}
}

// countyDailyNeed is the county's direct daily demand for one good:
// staple budget share, per-capita draw, or durable replacement plus
// catch-up, plus county-tier admin upkeep.
func (q *QuotaSystem) countyDailyNeed(c *CountyEconomy, def *registry.GoodDef) float64 {
	need := c.Population * def.AdminRate[0]
	switch {
	case def.Tier == registry.TierStaple:
		need += c.Population * q.s.Tun.StapleBudgetPerCapita / float64(len(q.s.Reg.Staples))
	case def.TargetPerCapita > 0:
		target := c.Population * def.TargetPerCapita
		need += target * def.Spoilage
		if gap := target - c.Stock[def.ID]; gap > 0 {
			need += gap * q.s.Tun.DurableCatchUpRate
		}
	case def.PerCapita > 0:
		need += c.Population * def.PerCapita
	}
	return need
}

// PropagateUpstream walks facility recipes output-to-input in
// decreasing recipe height, adding input demand in the hosting
// county: quota[input] += quota[output] × inputAmount / outputAmount.
func (q *QuotaSystem) PropagateUpstream() {
	s := q.s
	for _, fid := range q.facOrder {
		def := s.Reg.Facility(fid)
		if def == nil {
			continue
		}
		for ci := range s.Counties {
			c := &s.Counties[ci]
			if !q.hostsType(c, fid) {
				continue
			}
			out := c.FacilityQuota[def.Output]
			if out <= 0 {
				continue
			}
			for _, in := range def.Inputs {
				c.FacilityQuota[in.Good] += out * in.Amount / def.OutputAmount
			}
		}
	}
}

func (q *QuotaSystem) hostsType(c *CountyEconomy, fid registry.FacilityID) bool {
	for _, fi := range c.Facilities {
		if q.s.Facilities[fi].Type == fid {
			return true
		}
	}
	return false
}

func contains(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}
