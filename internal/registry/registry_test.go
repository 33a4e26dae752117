package registry

import "testing"

func TestBuild(t *testing.T) {
	reg, err := Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if reg.GoodCount() != len(goodTable) {
		t.Fatalf("good count = %d, want %d", reg.GoodCount(), len(goodTable))
	}
	if len(reg.Facilities) != len(facilityTable) {
		t.Fatalf("facility count = %d, want %d", len(reg.Facilities), len(facilityTable))
	}
}

func TestLookup(t *testing.T) {
	reg, err := Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	id, ok := reg.Lookup("bread")
	if !ok {
		t.Fatalf("bread not found")
	}
	if reg.Goods[id].Name != "bread" {
		t.Fatalf("lookup returned %q", reg.Goods[id].Name)
	}

	if _, ok := reg.Lookup("unobtainium"); ok {
		t.Fatalf("unknown good resolved")
	}

	if def := reg.Good(GoodID(reg.GoodCount())); def != nil {
		t.Fatalf("out-of-range id resolved to %q", def.Name)
	}
}

func TestStaples(t *testing.T) {
	reg, err := Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	want := map[string]bool{
		"bread": true, "sausage": true, "cheese": true,
		"saltedFish": true, "stockfish": true,
	}
	if len(reg.Staples) != len(want) {
		t.Fatalf("staple count = %d, want %d", len(reg.Staples), len(want))
	}
	for _, g := range reg.Staples {
		if !want[reg.Goods[g].Name] {
			t.Fatalf("unexpected staple %q", reg.Goods[g].Name)
		}
	}
}

func TestStapleMaskMatchesStapleList(t *testing.T) {
	reg, err := Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(reg.IsStaple) != reg.GoodCount() {
		t.Fatalf("mask length = %d, want %d", len(reg.IsStaple), reg.GoodCount())
	}
	inList := make(map[GoodID]bool)
	for _, g := range reg.Staples {
		inList[g] = true
	}
	for g := range reg.Goods {
		if reg.IsStaple[g] != inList[GoodID(g)] {
			t.Fatalf("mask disagrees with staple list at %q", reg.Goods[g].Name)
		}
		if reg.IsStaple[g] != (reg.Goods[g].Tier == TierStaple) {
			t.Fatalf("mask disagrees with tier at %q", reg.Goods[g].Name)
		}
	}
}

func TestBuildRejectsRecipeCycles(t *testing.T) {
	r := &Registry{Goods: make([]GoodDef, 2)}
	r.Facilities = []FacilityDef{
		{Name: "ab", Inputs: []Input{{Good: 0, Amount: 1}}, Output: 1, OutputAmount: 1},
		{Name: "ba", Inputs: []Input{{Good: 1, Amount: 1}}, Output: 0, OutputAmount: 1},
	}
	if err := r.validateAcyclic(); err == nil {
		t.Fatalf("cyclic recipe table accepted")
	}

	r.Facilities = r.Facilities[:1]
	if err := r.validateAcyclic(); err != nil {
		t.Fatalf("acyclic table rejected: %v", err)
	}
}

func TestPreciousNotTradeable(t *testing.T) {
	reg, err := Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	for g := range reg.Goods {
		def := &reg.Goods[g]
		if def.Precious && def.Tradeable {
			t.Fatalf("%q is precious and tradeable", def.Name)
		}
		if def.Precious && def.BasePrice != 0 {
			t.Fatalf("%q is precious with nonzero base price", def.Name)
		}
	}
}

func TestTradeOrderTierPriority(t *testing.T) {
	reg, err := Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	rank := map[NeedTier]int{
		TierStaple: 0, TierBasic: 1, TierComfort: 2, TierLuxury: 3, TierNone: 4,
	}
	prev := -1
	for _, g := range reg.TradeOrder {
		def := &reg.Goods[g]
		if !def.Tradeable {
			t.Fatalf("non-tradeable %q in trade order", def.Name)
		}
		r := rank[def.Tier]
		if r < prev {
			t.Fatalf("trade order not tier-sorted at %q", def.Name)
		}
		prev = r
	}
}

func TestFacilityReferencesResolve(t *testing.T) {
	reg, err := Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	for i := range reg.Facilities {
		def := &reg.Facilities[i]
		if int(def.Output) >= reg.GoodCount() {
			t.Fatalf("%q output unresolved", def.Name)
		}
		if len(def.Inputs) == 0 {
			t.Fatalf("%q has no inputs", def.Name)
		}
		for _, in := range def.Inputs {
			if int(in.Good) >= reg.GoodCount() {
				t.Fatalf("%q input unresolved", def.Name)
			}
			if in.Amount <= 0 {
				t.Fatalf("%q input amount %v", def.Name, in.Amount)
			}
		}
	}
}

func TestDirectDemandCoversAdminGoods(t *testing.T) {
	reg, err := Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	for g := range reg.Goods {
		def := &reg.Goods[g]
		hasAdmin := def.AdminRate[0] > 0 || def.AdminRate[1] > 0 || def.AdminRate[2] > 0
		if hasAdmin && !reg.DirectDemand[g] {
			t.Fatalf("admin good %q not in direct demand", def.Name)
		}
		if def.Tier == TierStaple && !reg.DirectDemand[g] {
			t.Fatalf("staple %q not in direct demand", def.Name)
		}
	}
}
