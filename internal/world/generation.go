// Map generation using layered simplex noise. Generates elevation,
// rainfall, and temperature fields, derives biomes, then groups land
// cells into the county/province/realm hierarchy.
package world

import (
	"math"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/realmsim/internal/registry"
)

// GenConfig holds map generation parameters.
type GenConfig struct {
	Width  int   // cell grid width
	Height int   // cell grid height
	Seed   int64 // random seed (0 = random)

	SeaLevel    float64 // elevation threshold for ocean
	HillLevel   float64 // elevation threshold for hills
	MountainLvl float64 // elevation threshold for mountains

	CountySize          int // county block edge length in cells
	CountiesPerProvince int
	ProvincesPerRealm   int
}

// DefaultGenConfig returns a mid-sized map (~60 counties).
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Width:               96,
		Height:              64,
		SeaLevel:            0.32,
		HillLevel:           0.60,
		MountainLvl:         0.74,
		CountySize:          8,
		CountiesPerProvince: 5,
		ProvincesPerRealm:   4,
	}
}

// SmallTestConfig returns a tiny deterministic map for tests.
func SmallTestConfig() GenConfig {
	cfg := DefaultGenConfig()
	cfg.Width = 40
	cfg.Height = 32
	cfg.Seed = 42
	cfg.CountiesPerProvince = 3
	cfg.ProvincesPerRealm = 2
	return cfg
}

// Cell is one map cell. Static after generation.
type Cell struct {
	X, Y  int
	Biome Biome
	Land  bool
	Coast bool

	Elevation   float64
	Rainfall    float64
	Temperature float64
}

// County is a block of cells hosting one CountyEconomy.
type County struct {
	ID       int
	Province int
	Cells    []int // cell indices
	Land     int   // land cell count
	CoastLen int   // coastal cell count

	InitialPop int
}

// Province groups counties under one ProvinceEconomy.
type Province struct {
	ID       int
	Realm    int
	Counties []int
}

// Realm is the top tier of the hierarchy.
type Realm struct {
	ID        int
	Provinces []int
}

// World is the static, pre-built map input consumed by the economy.
type World struct {
	Cfg       GenConfig
	Cells     []Cell
	Counties  []County
	Provinces []Province
	Realms    []Realm

	// Adjacency[c] lists the county ids bordering county c.
	Adjacency [][]int
}

// Generate builds a complete world from the configuration. All
// randomness in the simulation is consumed here and in initial
// facility seeding; the daily tick itself is pure arithmetic.
func Generate(cfg GenConfig) *World {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}

	elevNoise := opensimplex.NewNormalized(seed)
	rainNoise := opensimplex.NewNormalized(seed + 1)
	tempNoise := opensimplex.NewNormalized(seed + 2)

	w := &World{Cfg: cfg, Cells: make([]Cell, cfg.Width*cfg.Height)}

	cx := float64(cfg.Width) / 2
	cy := float64(cfg.Height) / 2
	maxDist := math.Sqrt(cx*cx + cy*cy)

	for y := 0; y < cfg.Height; y++ {
		for x := 0; x < cfg.Width; x++ {
			fx, fy := float64(x), float64(y)

			elev := octaveNoise(elevNoise, fx, fy, 4, 0.05, 0.5)
			rain := octaveNoise(rainNoise, fx, fy, 3, 0.04, 0.5)
			temp := octaveNoise(tempNoise, fx, fy, 3, 0.03, 0.5)

			// Continental shaping: ocean border at map edges.
			dist := math.Sqrt((fx-cx)*(fx-cx)+(fy-cy)*(fy-cy)) / maxDist
			falloff := 1.0 - math.Pow(dist, 3.0)
			if falloff < 0 {
				falloff = 0
			}
			elev *= falloff

			// Temperature decreases with elevation and latitude.
			temp = temp*0.6 + (1.0-math.Abs(fy-cy)/cy)*0.3 + (1.0-elev)*0.1

			cell := Cell{
				X: x, Y: y,
				Elevation:   elev,
				Rainfall:    rain,
				Temperature: temp,
			}
			cell.Biome = deriveBiome(elev, rain, temp, cfg)
			cell.Land = cell.Biome != BiomeOcean
			w.Cells[y*cfg.Width+x] = cell
		}
	}

	markCoast(w)
	buildCounties(w, rand.New(rand.NewSource(seed+100)))
	buildHierarchy(w)

	return w
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}

// deriveBiome determines the biome from environmental parameters.
func deriveBiome(elev, rain, temp float64, cfg GenConfig) Biome {
	switch {
	case elev < cfg.SeaLevel:
		return BiomeOcean
	case elev > cfg.MountainLvl:
		return BiomeMountains
	case elev > cfg.HillLevel:
		return BiomeHills
	case rain > 0.55 && temp < 0.55:
		return BiomeForest
	case rain > 0.42 && temp > 0.45:
		return BiomeFarmland
	default:
		return BiomePlains
	}
}

// markCoast flags land cells with at least one 4-neighbor ocean cell.
func markCoast(w *World) {
	width, height := w.Cfg.Width, w.Cfg.Height
	at := func(x, y int) *Cell {
		if x < 0 || y < 0 || x >= width || y >= height {
			return nil
		}
		return &w.Cells[y*width+x]
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := at(x, y)
			if !c.Land {
				continue
			}
			for _, d := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
				n := at(x+d[0], y+d[1])
				if n != nil && !n.Land {
					c.Coast = true
					break
				}
			}
		}
	}
}

// buildCounties groups cells into CountySize blocks; blocks with
// enough land become counties, and neighboring blocks become
// adjacent counties.
func buildCounties(w *World, rng *rand.Rand) {
	cfg := w.Cfg
	blocksX := cfg.Width / cfg.CountySize
	blocksY := cfg.Height / cfg.CountySize
	minLand := cfg.CountySize * cfg.CountySize / 4

	blockCounty := make([]int, blocksX*blocksY)
	for i := range blockCounty {
		blockCounty[i] = -1
	}

	for by := 0; by < blocksY; by++ {
		for bx := 0; bx < blocksX; bx++ {
			var cells []int
			land, coast := 0, 0
			foodScore := 0.0
			for y := by * cfg.CountySize; y < (by+1)*cfg.CountySize; y++ {
				for x := bx * cfg.CountySize; x < (bx+1)*cfg.CountySize; x++ {
					idx := y*cfg.Width + x
					cells = append(cells, idx)
					c := &w.Cells[idx]
					if c.Land {
						land++
						switch c.Biome {
						case BiomeFarmland:
							foodScore += 1.6
						case BiomePlains:
							foodScore += 0.9
						}
					}
					if c.Coast {
						coast++
						foodScore += 0.6
					}
				}
			}
			if land < minLand {
				continue
			}

			id := len(w.Counties)
			blockCounty[by*blocksX+bx] = id
			pop := 150 + int(foodScore*12) + rng.Intn(100)
			w.Counties = append(w.Counties, County{
				ID:         id,
				Province:   -1,
				Cells:      cells,
				Land:       land,
				CoastLen:   coast,
				InitialPop: pop,
			})
		}
	}

	w.Adjacency = make([][]int, len(w.Counties))
	for by := 0; by < blocksY; by++ {
		for bx := 0; bx < blocksX; bx++ {
			a := blockCounty[by*blocksX+bx]
			if a < 0 {
				continue
			}
			if bx+1 < blocksX {
				if b := blockCounty[by*blocksX+bx+1]; b >= 0 {
					w.Adjacency[a] = append(w.Adjacency[a], b)
					w.Adjacency[b] = append(w.Adjacency[b], a)
				}
			}
			if by+1 < blocksY {
				if b := blockCounty[(by+1)*blocksX+bx]; b >= 0 {
					w.Adjacency[a] = append(w.Adjacency[a], b)
					w.Adjacency[b] = append(w.Adjacency[b], a)
				}
			}
		}
	}
}

// buildHierarchy assigns counties to provinces and provinces to
// realms in scan order, which keeps neighbors together because
// counties are created row by row.
func buildHierarchy(w *World) {
	cfg := w.Cfg
	for i := range w.Counties {
		pid := i / cfg.CountiesPerProvince
		for pid >= len(w.Provinces) {
			w.Provinces = append(w.Provinces, Province{ID: len(w.Provinces), Realm: -1})
		}
		w.Counties[i].Province = pid
		w.Provinces[pid].Counties = append(w.Provinces[pid].Counties, i)
	}
	for i := range w.Provinces {
		rid := i / cfg.ProvincesPerRealm
		for rid >= len(w.Realms) {
			w.Realms = append(w.Realms, Realm{ID: len(w.Realms)})
		}
		w.Provinces[i].Realm = rid
		w.Realms[rid].Provinces = append(w.Realms[rid].Provinces, i)
	}
}

// BiomeCounts returns a summary of biome distribution over the map.
func BiomeCounts(w *World) map[Biome]int {
	counts := make(map[Biome]int)
	for i := range w.Cells {
		counts[w.Cells[i].Biome]++
	}
	return counts
}

// Productivity computes the per-county, per-good daily output rate
// per worker from the static biome table. Counties with zero land
// cells keep productivity 0 for every good.
func (w *World) Productivity(reg *registry.Registry) [][]float64 {
	out := make([][]float64, len(w.Counties))
	for i := range w.Counties {
		row := make([]float64, reg.GoodCount())
		out[i] = row
		county := &w.Counties[i]
		if county.Land == 0 {
			continue // guard: avoid divide by zero below
		}
		for _, ci := range county.Cells {
			cell := &w.Cells[ci]
			if !cell.Land {
				continue
			}
			for _, y := range biomeYields[cell.Biome] {
				if id, ok := reg.Lookup(y.Good); ok {
					row[id] += y.Amount
				}
			}
			if cell.Coast {
				for _, y := range coastYields {
					if id, ok := reg.Lookup(y.Good); ok {
						row[id] += y.Amount
					}
				}
			}
		}
		for g := range row {
			row[g] /= float64(county.Land)
		}
	}
	return out
}
