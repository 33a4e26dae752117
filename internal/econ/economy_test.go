package econ

import (
	"math"
	"testing"
)

func TestStaplePoolProportional(t *testing.T) {
	s := testState(t, 40)
	e := NewEconomySystem(s)
	c := &s.Counties[0]

	bread := good(t, s, "bread")
	sausage := good(t, s, "sausage")
	c.Stock[bread] = 50
	c.Stock[sausage] = 30

	// Budget 40 against supply 80: proportional draw.
	e.consumeStaplePool(c)

	if !almostEqual(c.Consumption[bread], 25) {
		t.Fatalf("bread consumption = %v, want 25", c.Consumption[bread])
	}
	if !almostEqual(c.Consumption[sausage], 15) {
		t.Fatalf("sausage consumption = %v, want 15", c.Consumption[sausage])
	}
	if !almostEqual(c.Stock[bread], 25) {
		t.Fatalf("bread remaining = %v, want 25", c.Stock[bread])
	}
	if !almostEqual(c.Stock[sausage], 15) {
		t.Fatalf("sausage remaining = %v, want 15", c.Stock[sausage])
	}
	if c.StapleShortfall != 0 {
		t.Fatalf("shortfall = %v, want 0", c.StapleShortfall)
	}
}

func TestStaplePoolStarvation(t *testing.T) {
	s := testState(t, 40)
	e := NewEconomySystem(s)
	c := &s.Counties[0]

	bread := good(t, s, "bread")
	cheese := good(t, s, "cheese")
	c.Stock[bread] = 10
	c.Stock[cheese] = 5

	e.consumeStaplePool(c)

	if c.Stock[bread] != 0 || c.Stock[cheese] != 0 {
		t.Fatalf("stocks not drained: bread=%v cheese=%v", c.Stock[bread], c.Stock[cheese])
	}
	if !almostEqual(c.StapleShortfall, 25) {
		t.Fatalf("shortfall = %v, want 25", c.StapleShortfall)
	}
	perStaple := 25.0 / float64(len(s.Reg.Staples))
	if !almostEqual(c.UnmetNeed[bread], perStaple) {
		t.Fatalf("unmet need spread = %v, want %v", c.UnmetNeed[bread], perStaple)
	}
}

func TestZeroPopulationCountyIsInert(t *testing.T) {
	s := testState(t, 0)
	e := NewEconomySystem(s)
	c := &s.Counties[0]
	before := c.BasicSatisfaction

	for day := 0; day < 10; day++ {
		e.tickCounty(c)
	}

	if c.BasicSatisfaction != before {
		t.Fatalf("satisfaction moved on empty county: %v", c.BasicSatisfaction)
	}
	for g, v := range c.Stock {
		if math.IsNaN(v) || v < 0 {
			t.Fatalf("stock[%d] = %v", g, v)
		}
	}
	if c.StapleShortfall != 0 {
		t.Fatalf("shortfall = %v on empty county", c.StapleShortfall)
	}
}

func TestDurableOutputCap(t *testing.T) {
	s := testState(t, 100)
	e := NewEconomySystem(s)
	c := &s.Counties[0]

	addFacility(t, s, 0, "kiln")
	clay := good(t, s, "clay")
	charcoal := good(t, s, "charcoal")
	pottery := good(t, s, "pottery")

	// Stock at target: only maintenance wear may be replaced.
	def := s.Reg.Good(pottery)
	c.Stock[pottery] = c.Population * def.TargetPerCapita
	c.Stock[clay] = 1000
	c.Stock[charcoal] = 1000
	s.Facilities[0].Throughput = 50 // ample labor target

	e.processFacilities(c)

	wantCap := c.Population * def.TargetPerCapita * def.Spoilage * s.Tun.DurableBufferMul
	if c.Production[pottery] > wantCap+1e-9 {
		t.Fatalf("pottery output %v exceeds allowance %v", c.Production[pottery], wantCap)
	}
}

func TestDurableCatchUpBelowTarget(t *testing.T) {
	s := testState(t, 100)
	e := NewEconomySystem(s)
	c := &s.Counties[0]

	addFacility(t, s, 0, "kiln")
	clay := good(t, s, "clay")
	charcoal := good(t, s, "charcoal")
	pottery := good(t, s, "pottery")

	def := s.Reg.Good(pottery)
	target := c.Population * def.TargetPerCapita
	c.Stock[pottery] = target / 2
	c.Stock[clay] = 1000
	c.Stock[charcoal] = 1000
	s.Facilities[0].Throughput = 50

	e.processFacilities(c)

	gap := target - target/2
	wantCap := (target/2*def.Spoilage + gap*s.Tun.DurableCatchUpRate) * s.Tun.DurableBufferMul
	if c.Production[pottery] > wantCap+1e-9 {
		t.Fatalf("pottery output %v exceeds allowance %v", c.Production[pottery], wantCap)
	}
	if c.Production[pottery] <= 0 {
		t.Fatalf("no catch-up production below target")
	}
}

func TestFacilityInputsDrainProportionally(t *testing.T) {
	s := testState(t, 1000)
	e := NewEconomySystem(s)
	c := &s.Counties[0]

	addFacility(t, s, 0, "smelter")
	ironOre := good(t, s, "ironOre")
	charcoal := good(t, s, "charcoal")
	iron := good(t, s, "iron")

	// Enough ore for 5 units only; labor target is higher.
	c.Stock[ironOre] = 10
	c.Stock[charcoal] = 100
	s.Facilities[0].Throughput = 20

	e.processFacilities(c)

	if !almostEqual(c.Production[iron], 5) {
		t.Fatalf("iron output = %v, want material-capped 5", c.Production[iron])
	}
	if !almostEqual(c.Consumption[ironOre], 10) {
		t.Fatalf("ore drained = %v, want 10", c.Consumption[ironOre])
	}
	if !almostEqual(c.Consumption[charcoal], 5) {
		t.Fatalf("charcoal drained = %v, want 5", c.Consumption[charcoal])
	}
}

func TestPriceGovernorThrottlesRawOutput(t *testing.T) {
	s := testState(t, 100)
	e := NewEconomySystem(s)
	c := &s.Counties[0]

	bread := good(t, s, "bread")
	c.Productivity[bread] = 1.0

	e.produceRaw(c)
	atPar := c.Production[bread]

	zero(c.Production)
	c.Stock[bread] = 0
	s.MarketPrice[bread] = s.Reg.Good(bread).BasePrice / 2
	e.produceRaw(c)
	throttled := c.Production[bread]

	if !almostEqual(throttled, atPar/2) {
		t.Fatalf("throttled output = %v, want %v", throttled, atPar/2)
	}

	// The governor floors out: prices near zero never stop production.
	zero(c.Production)
	c.Stock[bread] = 0
	s.MarketPrice[bread] = 1e-9
	e.produceRaw(c)
	if !almostEqual(c.Production[bread], atPar*s.Tun.PriceGovernorFloor) {
		t.Fatalf("floored output = %v, want %v", c.Production[bread], atPar*s.Tun.PriceGovernorFloor)
	}
}

func TestSatisfactionEMAConverges(t *testing.T) {
	s := testState(t, 100)
	e := NewEconomySystem(s)
	c := &s.Counties[0]
	bread := good(t, s, "bread")

	// Fully fed every day: satisfaction climbs toward 1.
	for day := 0; day < 120; day++ {
		c.Stock[bread] = 200
		e.tickCounty(c)
	}
	fed := c.BasicSatisfaction
	if fed < 0.85 {
		t.Fatalf("fed satisfaction = %v, want near 1", fed)
	}

	// Total famine: satisfaction falls.
	for day := 0; day < 60; day++ {
		e.tickCounty(c)
	}
	if c.BasicSatisfaction >= fed {
		t.Fatalf("satisfaction did not fall under famine: %v", c.BasicSatisfaction)
	}
}

func TestLaborCappedByPopulation(t *testing.T) {
	s := testState(t, 10)
	e := NewEconomySystem(s)
	c := &s.Counties[0]

	addFacility(t, s, 0, "smithy")
	tools := good(t, s, "tools")
	c.FacilityQuota[tools] = 1000 // absurd quota

	e.assignFacilityLabor(c)

	if c.FacilityWorkers > c.Population {
		t.Fatalf("workers %v exceed population %v", c.FacilityWorkers, c.Population)
	}
	fid, _ := s.Reg.LookupFacility("smithy")
	def := s.Reg.Facility(fid)
	if s.Facilities[0].Workers > def.MaxLaborFrac*c.Population+1e-9 {
		t.Fatalf("workers %v exceed labor fraction cap", s.Facilities[0].Workers)
	}
}
