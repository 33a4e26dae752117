package registry

import (
	"fmt"
	"math"
)

// Registry is the immutable configuration object shared by every
// system. Build it once at startup and pass it by reference.
type Registry struct {
	Goods      []GoodDef
	Facilities []FacilityDef

	goodByName     map[string]GoodID
	facilityByName map[string]FacilityID

	// Derived lookups, computed once at build time.
	Staples    []GoodID // goods drawn from the shared staple pool
	IsStaple   []bool   // per-good staple mask, indexed by dense id
	TradeOrder []GoodID // buy-priority order: staples before luxuries

	// DirectDemand[g] is true when the good has consumer, durable, or
	// administrative demand of its own. Production of goods without it
	// is capped at local facility input need.
	DirectDemand []bool
}

// Build constructs the registry from the declarative tables and
// validates every cross-reference. Any error here is a configuration
// error and should abort startup.
func Build() (*Registry, error) {
	r := &Registry{
		Goods:          make([]GoodDef, len(goodTable)),
		goodByName:     make(map[string]GoodID, len(goodTable)),
		facilityByName: make(map[string]FacilityID, len(facilityTable)),
	}

	for i, def := range goodTable {
		def.ID = GoodID(i)
		if def.Name == "" {
			return nil, fmt.Errorf("good %d: empty name", i)
		}
		if _, dup := r.goodByName[def.Name]; dup {
			return nil, fmt.Errorf("good %q: duplicate name", def.Name)
		}
		if err := validateGood(&def); err != nil {
			return nil, fmt.Errorf("good %q: %w", def.Name, err)
		}
		r.Goods[i] = def
		r.goodByName[def.Name] = def.ID
	}

	r.Facilities = make([]FacilityDef, 0, len(facilityTable))
	for i, spec := range facilityTable {
		def, err := r.resolveFacility(spec)
		if err != nil {
			return nil, fmt.Errorf("facility %q: %w", spec.name, err)
		}
		def.ID = FacilityID(i)
		if _, dup := r.facilityByName[def.Name]; dup {
			return nil, fmt.Errorf("facility %q: duplicate name", def.Name)
		}
		r.Facilities = append(r.Facilities, def)
		r.facilityByName[def.Name] = def.ID
	}

	if err := r.validateAcyclic(); err != nil {
		return nil, err
	}

	r.deriveLookups()
	return r, nil
}

// validateAcyclic rejects recipe cycles. Recipe heights stabilize
// within one pass per facility on an acyclic table; a cycle keeps
// raising heights forever, and downstream height-ordered traversals
// rely on termination here.
func (r *Registry) validateAcyclic() error {
	height := make([]int, len(r.Goods))
	for pass := 0; ; pass++ {
		changed := false
		for i := range r.Facilities {
			def := &r.Facilities[i]
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
		if !changed {
			return nil
		}
		if pass > len(r.Facilities) {
			return fmt.Errorf("facility recipes contain a cycle")
		}
	}
}

func validateGood(def *GoodDef) error {
	rates := []float64{
		def.PerCapita, def.BasePrice, def.MinPrice, def.MaxPrice,
		def.Spoilage, def.TargetPerCapita, def.RetainPerCapita,
		def.AdminRate[0], def.AdminRate[1], def.AdminRate[2],
	}
	for _, v := range rates {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("non-finite or negative rate %v", v)
		}
	}
	if def.MinPrice > def.BasePrice || def.BasePrice > def.MaxPrice {
		return fmt.Errorf("price ordering violated: min=%v base=%v max=%v",
			def.MinPrice, def.BasePrice, def.MaxPrice)
	}
	if def.Spoilage > 1 {
		return fmt.Errorf("spoilage %v > 1", def.Spoilage)
	}
	if def.Precious && def.Tradeable {
		return fmt.Errorf("precious goods are not tradeable")
	}
	return nil
}

func (r *Registry) resolveFacility(spec facilitySpec) (FacilityDef, error) {
	def := FacilityDef{
		Name:           spec.name,
		OutputAmount:   spec.outputAmount,
		LaborPerUnit:   spec.laborPerUnit,
		MaxLaborFrac:   spec.maxLaborFrac,
		PlacementMin:   spec.placementMin,
		BaselineOutput: spec.baseline,
	}
	if len(spec.inputs) == 0 {
		return def, fmt.Errorf("processing facility with no inputs")
	}
	if spec.outputAmount <= 0 || math.IsNaN(spec.outputAmount) {
		return def, fmt.Errorf("bad output amount %v", spec.outputAmount)
	}
	if spec.laborPerUnit < 0 || spec.maxLaborFrac <= 0 || spec.maxLaborFrac > 1 {
		return def, fmt.Errorf("bad labor parameters (perUnit=%v maxFrac=%v)",
			spec.laborPerUnit, spec.maxLaborFrac)
	}

	out, ok := r.goodByName[spec.output]
	if !ok {
		return def, fmt.Errorf("unknown output good %q", spec.output)
	}
	def.Output = out

	for _, in := range spec.inputs {
		id, ok := r.goodByName[in.good]
		if !ok {
			return def, fmt.Errorf("unknown input good %q", in.good)
		}
		if in.amount <= 0 || math.IsNaN(in.amount) {
			return def, fmt.Errorf("bad input amount %v for %q", in.amount, in.good)
		}
		def.Inputs = append(def.Inputs, Input{Good: id, Amount: in.amount})
	}

	def.PlacementGood = NoGood
	if spec.placementGood != "" {
		id, ok := r.goodByName[spec.placementGood]
		if !ok {
			return def, fmt.Errorf("unknown placement good %q", spec.placementGood)
		}
		def.PlacementGood = id
	}

	return def, nil
}

// deriveLookups computes the staple set, the trade priority order, and
// the direct-demand flags.
func (r *Registry) deriveLookups() {
	n := len(r.Goods)
	r.DirectDemand = make([]bool, n)
	r.IsStaple = make([]bool, n)

	for i := range r.Goods {
		def := &r.Goods[i]
		if def.Tier == TierStaple {
			r.Staples = append(r.Staples, def.ID)
			r.IsStaple[i] = true
		}
		hasAdmin := def.AdminRate[0] > 0 || def.AdminRate[1] > 0 || def.AdminRate[2] > 0
		r.DirectDemand[i] = def.Tier == TierStaple || def.PerCapita > 0 ||
			def.TargetPerCapita > 0 || hasAdmin
	}

	// Scarce treasury is spent on necessities first.
	tierOrder := []NeedTier{TierStaple, TierBasic, TierComfort, TierLuxury, TierNone}
	for _, tier := range tierOrder {
		for i := range r.Goods {
			if r.Goods[i].Tier == tier && r.Goods[i].Tradeable {
				r.TradeOrder = append(r.TradeOrder, r.Goods[i].ID)
			}
		}
	}
}

// GoodCount returns the number of registered goods. All per-good
// arrays in the economy state share this length.
func (r *Registry) GoodCount() int { return len(r.Goods) }

// Lookup resolves a symbolic good name to its dense id.
func (r *Registry) Lookup(name string) (GoodID, bool) {
	id, ok := r.goodByName[name]
	return id, ok
}

// LookupFacility resolves a symbolic facility name to its dense id.
func (r *Registry) LookupFacility(name string) (FacilityID, bool) {
	id, ok := r.facilityByName[name]
	return id, ok
}

// Good returns the definition for id, or nil when the id is out of
// range. Callers treat nil as "skip", never as a fault.
func (r *Registry) Good(id GoodID) *GoodDef {
	if int(id) >= len(r.Goods) {
		return nil
	}
	return &r.Goods[id]
}

// Facility returns the definition for id, or nil when unknown.
func (r *Registry) Facility(id FacilityID) *FacilityDef {
	if int(id) >= len(r.Facilities) {
		return nil
	}
	return &r.Facilities[id]
}
