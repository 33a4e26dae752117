// Package registry defines the static good and facility tables.
// Symbolic names resolve to dense integer ids once at build time;
// every hot-path array in the economy is indexed by GoodID.
package registry

// GoodID is a dense index into the good table, stable for the
// lifetime of one simulation run.
type GoodID uint16

// NoGood marks an unresolved good reference.
const NoGood GoodID = 0xFFFF

// Category classifies where a good sits in a production chain.
type Category uint8

const (
	CatRaw Category = iota
	CatRefined
	CatFinished
)

// NeedTier classifies consumer demand for a good.
type NeedTier uint8

const (
	TierNone NeedTier = iota
	TierStaple
	TierBasic
	TierComfort
	TierLuxury
)

// GoodDef describes one good. Immutable after Build.
type GoodDef struct {
	ID       GoodID
	Name     string
	Category Category
	Tier     NeedTier

	// PerCapita is daily direct consumption per person. Staples are
	// drawn from the shared pool instead and keep this at 0.
	PerCapita float64

	// AdminRate is per-capita daily administrative upkeep at the
	// county, province, and realm tiers.
	AdminRate [3]float64

	BasePrice float64
	MinPrice  float64
	MaxPrice  float64

	// Spoilage is the daily stock fraction lost to decay; for
	// durables it doubles as the maintenance-wear rate.
	Spoilage float64

	// TargetPerCapita > 0 marks a durable with a target stock level.
	TargetPerCapita float64

	// RetainPerCapita is the per-person stock exempt from taxation
	// and trade supply.
	RetainPerCapita float64

	Precious  bool
	Tradeable bool
}

// goodTable is the declarative good list. Dense ids are assigned in
// declaration order by Build.
var goodTable = []GoodDef{
	{Name: "bread", Category: CatRaw, Tier: TierStaple, BasePrice: 1.0, MinPrice: 0.2, MaxPrice: 5.0, Spoilage: 0.05, RetainPerCapita: 1.0, Tradeable: true},
	{Name: "timber", Category: CatRaw, Tier: TierNone, BasePrice: 0.5, MinPrice: 0.1, MaxPrice: 2.5, AdminRate: [3]float64{0.0010, 0.0006, 0.0004}, RetainPerCapita: 0.1, Tradeable: true},
	{Name: "ironOre", Category: CatRaw, Tier: TierNone, BasePrice: 5.0, MinPrice: 1.0, MaxPrice: 25.0, Tradeable: true},
	{Name: "goldOre", Category: CatRaw, Tier: TierNone, Precious: true},
	{Name: "silverOre", Category: CatRaw, Tier: TierNone, Precious: true},
	{Name: "salt", Category: CatRaw, Tier: TierBasic, PerCapita: 0.02, BasePrice: 3.0, MinPrice: 0.6, MaxPrice: 15.0, RetainPerCapita: 0.1, Tradeable: true},
	{Name: "wool", Category: CatRaw, Tier: TierNone, BasePrice: 2.0, MinPrice: 0.4, MaxPrice: 10.0, Tradeable: true},
	{Name: "stone", Category: CatRaw, Tier: TierNone, BasePrice: 0.3, MinPrice: 0.06, MaxPrice: 1.5, AdminRate: [3]float64{0.0012, 0.0008, 0.0005}, Tradeable: true},
	{Name: "ale", Category: CatRefined, Tier: TierBasic, PerCapita: 0.10, BasePrice: 0.8, MinPrice: 0.16, MaxPrice: 4.0, Spoilage: 0.02, AdminRate: [3]float64{0.0005, 0.0004, 0.0003}, Tradeable: true},
	{Name: "clay", Category: CatRaw, Tier: TierNone, BasePrice: 0.2, MinPrice: 0.04, MaxPrice: 1.0, Tradeable: true},
	{Name: "pottery", Category: CatFinished, Tier: TierComfort, BasePrice: 2.0, MinPrice: 0.4, MaxPrice: 10.0, Spoilage: 0.004, TargetPerCapita: 0.5, Tradeable: true},
	{Name: "furniture", Category: CatFinished, Tier: TierLuxury, BasePrice: 5.0, MinPrice: 1.0, MaxPrice: 25.0, Spoilage: 0.002, TargetPerCapita: 0.3, Tradeable: true},
	{Name: "iron", Category: CatRefined, Tier: TierNone, BasePrice: 10.0, MinPrice: 2.0, MaxPrice: 50.0, Tradeable: true},
	{Name: "tools", Category: CatFinished, Tier: TierBasic, BasePrice: 15.0, MinPrice: 3.0, MaxPrice: 75.0, Spoilage: 0.006, TargetPerCapita: 0.2, AdminRate: [3]float64{0.0002, 0.0002, 0.0001}, Tradeable: true},
	{Name: "charcoal", Category: CatRefined, Tier: TierNone, BasePrice: 2.0, MinPrice: 0.4, MaxPrice: 10.0, RetainPerCapita: 0.05, Tradeable: true},
	{Name: "clothes", Category: CatFinished, Tier: TierBasic, BasePrice: 3.0, MinPrice: 0.6, MaxPrice: 15.0, Spoilage: 0.008, TargetPerCapita: 1.0, Tradeable: true},
	{Name: "pork", Category: CatRaw, Tier: TierNone, BasePrice: 2.0, MinPrice: 0.4, MaxPrice: 10.0, Spoilage: 0.08, Tradeable: true},
	{Name: "sausage", Category: CatRefined, Tier: TierStaple, BasePrice: 4.0, MinPrice: 0.8, MaxPrice: 20.0, Spoilage: 0.02, RetainPerCapita: 0.5, Tradeable: true},
	{Name: "bacon", Category: CatRefined, Tier: TierComfort, PerCapita: 0.03, BasePrice: 5.0, MinPrice: 1.0, MaxPrice: 25.0, Spoilage: 0.01, Tradeable: true},
	{Name: "milk", Category: CatRaw, Tier: TierComfort, PerCapita: 0.05, BasePrice: 1.5, MinPrice: 0.3, MaxPrice: 7.5, Spoilage: 0.15, Tradeable: true},
	{Name: "cheese", Category: CatRefined, Tier: TierStaple, BasePrice: 6.0, MinPrice: 1.2, MaxPrice: 30.0, Spoilage: 0.008, RetainPerCapita: 0.5, Tradeable: true},
	{Name: "fish", Category: CatRaw, Tier: TierComfort, PerCapita: 0.05, BasePrice: 1.5, MinPrice: 0.3, MaxPrice: 7.5, Spoilage: 0.20, Tradeable: true},
	{Name: "saltedFish", Category: CatRefined, Tier: TierStaple, BasePrice: 3.0, MinPrice: 0.6, MaxPrice: 15.0, Spoilage: 0.01, RetainPerCapita: 0.5, Tradeable: true},
	{Name: "stockfish", Category: CatRefined, Tier: TierStaple, BasePrice: 2.5, MinPrice: 0.5, MaxPrice: 12.5, Spoilage: 0.005, RetainPerCapita: 0.5, Tradeable: true},
}
