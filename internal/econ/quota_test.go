package econ

import "testing"

func TestPropagateUpstreamSingleStage(t *testing.T) {
	s := testState(t, 500)
	addFacility(t, s, 0, "smithy")
	q := NewQuotaSystem(s)
	c := &s.Counties[0]

	tools := good(t, s, "tools")
	iron := good(t, s, "iron")
	charcoal := good(t, s, "charcoal")

	c.FacilityQuota[tools] = 10
	q.PropagateUpstream()

	// Smithy: 2 iron + 0.5 charcoal per tool.
	if !almostEqual(c.FacilityQuota[iron], 20) {
		t.Fatalf("iron quota = %v, want 20", c.FacilityQuota[iron])
	}
	if !almostEqual(c.FacilityQuota[charcoal], 5) {
		t.Fatalf("charcoal quota = %v, want 5", c.FacilityQuota[charcoal])
	}
}

func TestPropagateUpstreamTransitive(t *testing.T) {
	s := testState(t, 500)
	addFacility(t, s, 0, "smithy")
	addFacility(t, s, 0, "smelter")
	addFacility(t, s, 0, "charcoalBurner")
	q := NewQuotaSystem(s)
	c := &s.Counties[0]

	tools := good(t, s, "tools")
	iron := good(t, s, "iron")
	ironOre := good(t, s, "ironOre")
	charcoal := good(t, s, "charcoal")
	timber := good(t, s, "timber")

	c.FacilityQuota[tools] = 10
	q.PropagateUpstream()

	// tools → iron 20, charcoal 5; iron 20 → ore 40, charcoal 20;
	// charcoal 25 → timber 50. Height ordering makes this one pass.
	if !almostEqual(c.FacilityQuota[iron], 20) {
		t.Fatalf("iron quota = %v, want 20", c.FacilityQuota[iron])
	}
	if !almostEqual(c.FacilityQuota[ironOre], 40) {
		t.Fatalf("ore quota = %v, want 40", c.FacilityQuota[ironOre])
	}
	if !almostEqual(c.FacilityQuota[charcoal], 25) {
		t.Fatalf("charcoal quota = %v, want 25", c.FacilityQuota[charcoal])
	}
	if !almostEqual(c.FacilityQuota[timber], 50) {
		t.Fatalf("timber quota = %v, want 50", c.FacilityQuota[timber])
	}
}

func TestApportionByPopulationShare(t *testing.T) {
	s := testState(t, 300, 100)
	addFacility(t, s, 0, "tailor")
	addFacility(t, s, 1, "tailor")
	q := NewQuotaSystem(s)

	clothes := good(t, s, "clothes")
	q.Tick()

	q0 := s.Counties[0].FacilityQuota[clothes]
	q1 := s.Counties[1].FacilityQuota[clothes]
	if q0 <= 0 || q1 <= 0 {
		t.Fatalf("quotas not assigned: %v, %v", q0, q1)
	}
	// Hosts split the provincial need 3:1 by population.
	if !almostEqual(q0/q1, 3) {
		t.Fatalf("quota ratio = %v, want 3", q0/q1)
	}
}

func TestOnlyHostsReceiveQuota(t *testing.T) {
	s := testState(t, 200, 200)
	addFacility(t, s, 0, "kiln")
	q := NewQuotaSystem(s)

	pottery := good(t, s, "pottery")
	q.Tick()

	// The single host picks up the whole provincial need.
	if s.Counties[0].FacilityQuota[pottery] <= 0 {
		t.Fatalf("host county got no quota")
	}
	if s.Counties[1].FacilityQuota[pottery] != 0 {
		t.Fatalf("non-host county got quota %v", s.Counties[1].FacilityQuota[pottery])
	}
}

func TestRecipeHeightOrder(t *testing.T) {
	s := testState(t, 100)
	order := recipeHeightOrder(s.Reg)
	if len(order) != len(s.Reg.Facilities) {
		t.Fatalf("order length = %d, want %d", len(order), len(s.Reg.Facilities))
	}

	pos := make(map[string]int)
	for i, fid := range order {
		pos[s.Reg.Facilities[fid].Name] = i
	}
	// Taller recipes first: smithy consumes smelter output, smelter
	// consumes charcoalBurner output.
	if pos["smithy"] > pos["smelter"] {
		t.Fatalf("smithy after smelter: %v", pos)
	}
	if pos["smelter"] > pos["charcoalBurner"] {
		t.Fatalf("smelter after charcoalBurner: %v", pos)
	}
}

func TestQuotaZeroedEachTick(t *testing.T) {
	s := testState(t, 200)
	addFacility(t, s, 0, "brewery")
	q := NewQuotaSystem(s)

	ale := good(t, s, "ale")
	q.Tick()
	first := s.Counties[0].FacilityQuota[ale]
	q.Tick()
	second := s.Counties[0].FacilityQuota[ale]

	if !almostEqual(first, second) {
		t.Fatalf("quota accumulated across ticks: %v then %v", first, second)
	}
}
