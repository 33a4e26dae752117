// Package world builds the static map input for the economy: a biome
// grid grouped into counties, provinces, and realms, with a county
// adjacency graph and per-county productivity derived from a static
// biome table. The economy never mutates anything in this package.
package world

// Biome identifies the dominant terrain of one map cell.
type Biome uint8

const (
	BiomeOcean Biome = iota
	BiomePlains
	BiomeFarmland
	BiomeForest
	BiomeHills
	BiomeMountains
)

// BiomeName returns a human-readable biome name.
func BiomeName(b Biome) string {
	switch b {
	case BiomeOcean:
		return "ocean"
	case BiomePlains:
		return "plains"
	case BiomeFarmland:
		return "farmland"
	case BiomeForest:
		return "forest"
	case BiomeHills:
		return "hills"
	case BiomeMountains:
		return "mountains"
	default:
		return "unknown"
	}
}

// Yield is the daily per-capita output one land cell of a biome
// contributes to a county's productivity for one good.
type Yield struct {
	Good   string
	Amount float64
}

// biomeYields is the static biome to productivity table. Values are
// averaged over a county's land cells, so a county of pure farmland
// reaches bread productivity 1.6.
var biomeYields = map[Biome][]Yield{
	BiomePlains: {
		{"bread", 0.9},
		{"wool", 0.15},
		{"milk", 0.12},
		{"pork", 0.10},
		{"clay", 0.20},
	},
	BiomeFarmland: {
		{"bread", 1.6},
		{"pork", 0.18},
		{"milk", 0.15},
		{"clay", 0.10},
	},
	BiomeForest: {
		{"timber", 0.8},
		{"pork", 0.08},
	},
	BiomeHills: {
		{"wool", 0.35},
		{"stone", 0.30},
		{"milk", 0.10},
		{"ironOre", 0.05},
	},
	BiomeMountains: {
		{"stone", 0.50},
		{"ironOre", 0.20},
		{"goldOre", 0.004},
		{"silverOre", 0.010},
	},
}

// coastYields are added on top of the biome yield for coastal cells.
var coastYields = []Yield{
	{"fish", 0.6},
	{"salt", 0.12},
}
