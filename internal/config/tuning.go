// Package config loads the numeric tuning knobs for the economic
// simulation from a YAML file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tuning holds every tunable constant of the daily tick pipeline.
type Tuning struct {
	TickIntervalMs int `yaml:"tick_interval_ms"`
	DaysPerMonth   int `yaml:"days_per_month"`
	DaysPerYear    int `yaml:"days_per_year"`

	// Consumption.
	StapleBudgetPerCapita float64 `yaml:"staple_budget_per_capita"`
	SatisfactionAlpha     float64 `yaml:"satisfaction_alpha"`

	// Production.
	PriceGovernorFloor float64 `yaml:"price_governor_floor"`
	DurableCatchUpRate float64 `yaml:"durable_catch_up_rate"`
	DurableBufferMul   float64 `yaml:"durable_buffer_mul"`

	// Taxation.
	SurplusTaxRate  float64 `yaml:"surplus_tax_rate"`
	TaxCompDiscount float64 `yaml:"tax_comp_discount"`
	AdminWageRate   float64 `yaml:"admin_wage_rate"`

	// Minting.
	GoldSmeltYield   float64 `yaml:"gold_smelt_yield"`
	SilverSmeltYield float64 `yaml:"silver_smelt_yield"`
	GoldPricePerKg   float64 `yaml:"gold_price_per_kg"`
	SilverPricePerKg float64 `yaml:"silver_price_per_kg"`

	// Trade.
	CrossProvinceToll float64 `yaml:"cross_province_toll"`
	CrossRealmTariff  float64 `yaml:"cross_realm_tariff"`
	MarketFeeRate     float64 `yaml:"market_fee_rate"`

	// Granary and relief.
	GranaryDays     int     `yaml:"granary_days"`
	GranaryFillRate float64 `yaml:"granary_fill_rate"`
	GranaryDiscount float64 `yaml:"granary_discount"`
	ReliefThreshold float64 `yaml:"relief_threshold"`

	// Population (monthly).
	BirthRateMonthly float64 `yaml:"birth_rate_monthly"`
	DeathRateMonthly float64 `yaml:"death_rate_monthly"`
	StarvationDeaths float64 `yaml:"starvation_deaths"`
	MigrationRate    float64 `yaml:"migration_rate"`

	// Observability.
	SnapshotRingSize   int `yaml:"snapshot_ring_size"`
	ArchiveRatePerHour int `yaml:"archive_rate_per_hour"`
}

// Default returns the baseline tuning used when no file is supplied.
// Tests build on these values.
func Default() Tuning {
	return Tuning{
		TickIntervalMs: 1000,
		DaysPerMonth:   30,
		DaysPerYear:    360,

		StapleBudgetPerCapita: 1.0,
		SatisfactionAlpha:     0.065, // ~30-day half-life EMA

		PriceGovernorFloor: 0.2,
		DurableCatchUpRate: 0.05,
		DurableBufferMul:   1.25,

		SurplusTaxRate:  0.20,
		TaxCompDiscount: 0.5,
		AdminWageRate:   0.02,

		GoldSmeltYield:   0.2,
		SilverSmeltYield: 0.5,
		GoldPricePerKg:   1000,
		SilverPricePerKg: 80,

		CrossProvinceToll: 0.05,
		CrossRealmTariff:  0.10,
		MarketFeeRate:     0.02,

		GranaryDays:     30,
		GranaryFillRate: 0.05,
		GranaryDiscount: 0.7,
		ReliefThreshold: 0.6,

		BirthRateMonthly: 0.004,
		DeathRateMonthly: 0.003,
		StarvationDeaths: 0.01,
		MigrationRate:    0.002,

		SnapshotRingSize:   365,
		ArchiveRatePerHour: 6,
	}
}

// Load reads tuning from a YAML file, layered over Default so a
// partial file only overrides what it names.
func Load(path string) (Tuning, error) {
	t := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, err
	}
	return t, nil
}

// Validate rejects configurations that would corrupt the arithmetic
// of the tick pipeline. Fails fast at startup.
func (t Tuning) Validate() error {
	switch {
	case t.DaysPerMonth <= 0 || t.DaysPerYear <= 0:
		return fmt.Errorf("calendar lengths must be positive")
	case t.StapleBudgetPerCapita < 0:
		return fmt.Errorf("staple_budget_per_capita must be >= 0")
	case t.SatisfactionAlpha <= 0 || t.SatisfactionAlpha > 1:
		return fmt.Errorf("satisfaction_alpha must be in (0, 1]")
	case t.SurplusTaxRate < 0 || t.SurplusTaxRate > 1:
		return fmt.Errorf("surplus_tax_rate must be in [0, 1]")
	case t.GranaryFillRate < 0 || t.GranaryFillRate > 1:
		return fmt.Errorf("granary_fill_rate must be in [0, 1]")
	case t.BirthRateMonthly < 0 || t.DeathRateMonthly < 0:
		return fmt.Errorf("population rates must be >= 0")
	case t.MigrationRate < 0 || t.MigrationRate > 1:
		return fmt.Errorf("migration_rate must be in [0, 1]")
	case t.SnapshotRingSize <= 0:
		return fmt.Errorf("snapshot_ring_size must be positive")
	case t.ArchiveRatePerHour <= 0:
		return fmt.Errorf("archive_rate_per_hour must be positive")
	}
	return nil
}
