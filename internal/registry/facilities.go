package registry

// FacilityID is a dense index into the facility table.
type FacilityID uint16

// NoFacility marks an unresolved facility reference.
const NoFacility FacilityID = 0xFFFF

// Input is one weighted recipe input.
type Input struct {
	Good   GoodID
	Amount float64 // units consumed per unit of output
}

// FacilityDef describes one facility recipe: N weighted inputs to a
// single output. Immutable after Build.
type FacilityDef struct {
	ID   FacilityID
	Name string

	Inputs       []Input
	Output       GoodID
	OutputAmount float64 // output units per recipe cycle

	// LaborPerUnit is workers required per output unit per day.
	LaborPerUnit float64

	// MaxLaborFrac caps facility workers at this fraction of county
	// population.
	MaxLaborFrac float64

	// Placement: a county qualifies to host this facility when its
	// productivity for PlacementGood is at least PlacementMin.
	PlacementGood GoodID
	PlacementMin  float64

	// BaselineOutput is the idle daily output target when no quota
	// has been assigned yet.
	BaselineOutput float64
}

// facilitySpec is the declarative recipe list; good names resolve to
// dense ids at build time.
type facilitySpec struct {
	name          string
	inputs        []inputSpec
	output        string
	outputAmount  float64
	laborPerUnit  float64
	maxLaborFrac  float64
	placementGood string
	placementMin  float64
	baseline      float64
}

type inputSpec struct {
	good   string
	amount float64
}

var facilityTable = []facilitySpec{
	{
		name:          "charcoalBurner",
		inputs:        []inputSpec{{"timber", 2.0}},
		output:        "charcoal",
		outputAmount:  1,
		laborPerUnit:  0.5,
		maxLaborFrac:  0.10,
		placementGood: "timber",
		placementMin:  0.2,
		baseline:      2,
	},
	{
		name:          "smelter",
		inputs:        []inputSpec{{"ironOre", 2.0}, {"charcoal", 1.0}},
		output:        "iron",
		outputAmount:  1,
		laborPerUnit:  2.0,
		maxLaborFrac:  0.15,
		placementGood: "ironOre",
		placementMin:  0.1,
		baseline:      1,
	},
	{
		name:          "smithy",
		inputs:        []inputSpec{{"iron", 2.0}, {"charcoal", 0.5}},
		output:        "tools",
		outputAmount:  1,
		laborPerUnit:  3.0,
		maxLaborFrac:  0.10,
		placementGood: "ironOre",
		placementMin:  0.05,
		baseline:      0.5,
	},
	{
		name:          "kiln",
		inputs:        []inputSpec{{"clay", 3.0}, {"charcoal", 0.5}},
		output:        "pottery",
		outputAmount:  1,
		laborPerUnit:  1.0,
		maxLaborFrac:  0.10,
		placementGood: "clay",
		placementMin:  0.1,
		baseline:      1,
	},
	{
		name:          "workshop",
		inputs:        []inputSpec{{"timber", 4.0}, {"iron", 0.2}},
		output:        "furniture",
		outputAmount:  1,
		laborPerUnit:  2.5,
		maxLaborFrac:  0.08,
		placementGood: "timber",
		placementMin:  0.15,
		baseline:      0.5,
	},
	{
		name:          "tailor",
		inputs:        []inputSpec{{"wool", 3.0}},
		output:        "clothes",
		outputAmount:  1,
		laborPerUnit:  1.5,
		maxLaborFrac:  0.12,
		placementGood: "wool",
		placementMin:  0.1,
		baseline:      1,
	},
	{
		name:          "brewery",
		inputs:        []inputSpec{{"bread", 1.5}},
		output:        "ale",
		outputAmount:  1,
		laborPerUnit:  0.4,
		maxLaborFrac:  0.08,
		placementGood: "bread",
		placementMin:  0.3,
		baseline:      3,
	},
	{
		name:          "butcher",
		inputs:        []inputSpec{{"pork", 1.2}, {"salt", 0.1}},
		output:        "sausage",
		outputAmount:  1,
		laborPerUnit:  0.6,
		maxLaborFrac:  0.08,
		placementGood: "pork",
		placementMin:  0.1,
		baseline:      2,
	},
	{
		name:          "smokehouse",
		inputs:        []inputSpec{{"pork", 1.5}, {"salt", 0.2}},
		output:        "bacon",
		outputAmount:  1,
		laborPerUnit:  0.6,
		maxLaborFrac:  0.06,
		placementGood: "pork",
		placementMin:  0.1,
		baseline:      1,
	},
	{
		name:          "creamery",
		inputs:        []inputSpec{{"milk", 4.0}, {"salt", 0.1}},
		output:        "cheese",
		outputAmount:  1,
		laborPerUnit:  0.8,
		maxLaborFrac:  0.08,
		placementGood: "milk",
		placementMin:  0.1,
		baseline:      1,
	},
	{
		name:          "saltery",
		inputs:        []inputSpec{{"fish", 1.2}, {"salt", 0.3}},
		output:        "saltedFish",
		outputAmount:  1,
		laborPerUnit:  0.5,
		maxLaborFrac:  0.10,
		placementGood: "fish",
		placementMin:  0.1,
		baseline:      2,
	},
	{
		name:          "dryingYard",
		inputs:        []inputSpec{{"fish", 1.5}},
		output:        "stockfish",
		outputAmount:  1,
		laborPerUnit:  0.3,
		maxLaborFrac:  0.10,
		placementGood: "fish",
		placementMin:  0.15,
		baseline:      2,
	},
}
