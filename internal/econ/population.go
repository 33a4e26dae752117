// Monthly population dynamics: births, deaths, and migration toward
// better-fed neighbors. Reads and writes only Population and the
// satisfaction EMA; everything else in the state graph is untouched.
package econ

// PopulationSystem applies demographic change on month boundaries.
type PopulationSystem struct {
	s *State

	delta []float64 // scratch, net population change per county
}

// NewPopulationSystem creates the monthly demographics system.
func NewPopulationSystem(s *State) *PopulationSystem {
	return &PopulationSystem{
		s:     s,
		delta: make([]float64, len(s.Counties)),
	}
}

// TickMonth applies one month of births, deaths, and migration.
// Fully deterministic: rates scale with the satisfaction EMA, no
// random draws.
func (p *PopulationSystem) TickMonth() {
	s := p.s
	tun := s.Tun

	for ci := range s.Counties {
		c := &s.Counties[ci]
		if c.Population <= 0 {
			p.delta[ci] = 0
			continue
		}
		sat := clamp01(c.BasicSatisfaction)

		births := c.Population * tun.BirthRateMonthly * sat
		deaths := c.Population * tun.DeathRateMonthly * (1.5 - sat)
		if c.StapleShortfall > 0 {
			// Famine mortality scales with the unfed share of the
			// staple budget on the month-boundary day.
			budget := c.Population * tun.StapleBudgetPerCapita
			if budget > 0 {
				unfed := c.StapleShortfall / budget
				deaths += c.Population * tun.StarvationDeaths * clamp01(unfed)
			}
		}
		p.delta[ci] = births - deaths
	}

	p.migrate()

	for ci := range s.Counties {
		c := &s.Counties[ci]
		c.Population += p.delta[ci]
		if c.Population < 0 {
			c.Population = 0
		}
	}
}

// migrate moves a small population fraction along county adjacency,
// from each county to its best-satisfied neighbor when that neighbor
// is noticeably better off. All flows are computed against the
// pre-move populations, so ordering cannot bias the result.
func (p *PopulationSystem) migrate() {
	s := p.s
	if s.Tun.MigrationRate <= 0 || len(s.Adjacency) != len(s.Counties) {
		return
	}

	for ci := range s.Counties {
		c := &s.Counties[ci]
		if c.Population <= 0 {
			continue
		}

		best, bestSat := -1, c.BasicSatisfaction+0.05
		for _, ni := range s.Adjacency[ci] {
			if s.Counties[ni].BasicSatisfaction > bestSat {
				best, bestSat = ni, s.Counties[ni].BasicSatisfaction
			}
		}
		if best < 0 {
			continue
		}

		flow := c.Population * s.Tun.MigrationRate
		p.delta[ci] -= flow
		p.delta[best] += flow
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
