// Daily snapshot aggregation — a pure projection of the state graph
// for external analytics. Never read back into simulation state.
package econ

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
)

// GoodTotals aggregates one good across all tiers.
type GoodTotals struct {
	Production  float64 `json:"production"`
	Consumption float64 `json:"consumption"`
	Stock       float64 `json:"stock"` // county + province + realm
	UnmetNeed   float64 `json:"unmetNeed"`
	Price       float64 `json:"price"`
}

// EconomySnapshot is one day's aggregate view of the economy.
type EconomySnapshot struct {
	Day             uint64  `json:"day"`
	TotalPopulation float64 `json:"totalPopulation"`

	Goods []GoodTotals `json:"goods"` // indexed by dense good id

	StarvingCounties   int `json:"starvingCounties"`
	DistressedCounties int `json:"distressedCounties"`

	SatisfactionMin float64 `json:"satisfactionMin"`
	SatisfactionMax float64 `json:"satisfactionMax"`
	SatisfactionAvg float64 `json:"satisfactionAvg"` // population-weighted

	CountyTreasury   float64 `json:"countyTreasury"`
	ProvinceTreasury float64 `json:"provinceTreasury"`
	RealmTreasury    float64 `json:"realmTreasury"`
	Minted           float64 `json:"minted"`

	TradeVolume [ScopeCount]float64 `json:"tradeVolume"`
	TaxVolume   float64             `json:"taxVolume"`
	Relief      float64             `json:"relief"`
}

// TakeSnapshot aggregates the current state into a snapshot record.
func TakeSnapshot(s *State, day uint64) EconomySnapshot {
	snap := EconomySnapshot{
		Day:             day,
		Goods:           make([]GoodTotals, s.Reg.GoodCount()),
		SatisfactionMin: math.Inf(1),
		SatisfactionMax: math.Inf(-1),
	}

	weightedSat := 0.0
	for ci := range s.Counties {
		c := &s.Counties[ci]
		snap.TotalPopulation += c.Population
		snap.CountyTreasury += c.Treasury
		weightedSat += c.BasicSatisfaction * c.Population

		if c.BasicSatisfaction < snap.SatisfactionMin {
			snap.SatisfactionMin = c.BasicSatisfaction
		}
		if c.BasicSatisfaction > snap.SatisfactionMax {
			snap.SatisfactionMax = c.BasicSatisfaction
		}
		if c.StapleShortfall > 0 {
			snap.StarvingCounties++
		}
		if c.BasicSatisfaction < s.Tun.ReliefThreshold {
			snap.DistressedCounties++
		}

		for g := range snap.Goods {
			gt := &snap.Goods[g]
			gt.Production += c.Production[g]
			gt.Consumption += c.Consumption[g]
			gt.Stock += c.Stock[g]
			gt.UnmetNeed += c.UnmetNeed[g]
			snap.TaxVolume += c.TaxPaid[g]
			snap.Relief += c.ReliefReceived[g]
			for sc := 0; sc < ScopeCount; sc++ {
				snap.TradeVolume[sc] += c.TradeBought[sc][g]
			}
		}
	}

	for pi := range s.Provinces {
		p := &s.Provinces[pi]
		snap.ProvinceTreasury += p.Treasury
		for g := range snap.Goods {
			snap.Goods[g].Stock += p.Stockpile[g]
		}
	}
	for ri := range s.Realms {
		r := &s.Realms[ri]
		snap.RealmTreasury += r.Treasury
		snap.Minted += r.Minted
		for g := range snap.Goods {
			snap.Goods[g].Stock += r.Stockpile[g]
		}
	}

	for g := range snap.Goods {
		snap.Goods[g].Price = s.MarketPrice[g]
	}

	if snap.TotalPopulation > 0 {
		snap.SatisfactionAvg = weightedSat / snap.TotalPopulation
	}
	if math.IsInf(snap.SatisfactionMin, 1) {
		snap.SatisfactionMin, snap.SatisfactionMax = 0, 0
	}

	return snap
}

// Digest returns a stable hash of the snapshot, used by determinism
// checks: identical state plus identical inputs must produce
// bit-identical digests.
func (snap *EconomySnapshot) Digest() string {
	h := sha256.New()
	put := func(v float64) {
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		h.Write(buf[:])
	}
	var day [8]byte
	binary.LittleEndian.PutUint64(day[:], snap.Day)
	h.Write(day[:])
	put(snap.TotalPopulation)
	for i := range snap.Goods {
		gt := &snap.Goods[i]
		put(gt.Production)
		put(gt.Consumption)
		put(gt.Stock)
		put(gt.UnmetNeed)
		put(gt.Price)
	}
	put(float64(snap.StarvingCounties))
	put(float64(snap.DistressedCounties))
	put(snap.SatisfactionMin)
	put(snap.SatisfactionMax)
	put(snap.SatisfactionAvg)
	put(snap.CountyTreasury)
	put(snap.ProvinceTreasury)
	put(snap.RealmTreasury)
	put(snap.Minted)
	for sc := 0; sc < ScopeCount; sc++ {
		put(snap.TradeVolume[sc])
	}
	put(snap.TaxVolume)
	put(snap.Relief)
	return hex.EncodeToString(h.Sum(nil))
}

// Analytics is a bounded ring buffer of daily snapshots.
type Analytics struct {
	ring []EconomySnapshot
	head int // next write position
	size int
}

// NewAnalytics creates a ring buffer holding capacity snapshots.
func NewAnalytics(capacity int) *Analytics {
	if capacity < 1 {
		capacity = 1
	}
	return &Analytics{ring: make([]EconomySnapshot, capacity)}
}

// Push appends a snapshot, evicting the oldest when full.
func (a *Analytics) Push(snap EconomySnapshot) {
	a.ring[a.head] = snap
	a.head = (a.head + 1) % len(a.ring)
	if a.size < len(a.ring) {
		a.size++
	}
}

// Latest returns the most recent snapshot, or nil when empty.
func (a *Analytics) Latest() *EconomySnapshot {
	if a.size == 0 {
		return nil
	}
	idx := (a.head - 1 + len(a.ring)) % len(a.ring)
	return &a.ring[idx]
}

// Series returns the retained snapshots oldest-first.
func (a *Analytics) Series() []EconomySnapshot {
	out := make([]EconomySnapshot, 0, a.size)
	start := (a.head - a.size + len(a.ring)) % len(a.ring)
	for i := 0; i < a.size; i++ {
		out = append(out, a.ring[(start+i)%len(a.ring)])
	}
	return out
}

// Len returns the number of retained snapshots.
func (a *Analytics) Len() int { return a.size }
