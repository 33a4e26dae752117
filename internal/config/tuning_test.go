package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default tuning invalid: %v", err)
	}
}

func TestLoadLayersOverDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.yaml")
	body := "surplus_tax_rate: 0.35\ngranary_days: 60\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	tun, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tun.SurplusTaxRate != 0.35 {
		t.Fatalf("surplus_tax_rate = %v, want 0.35", tun.SurplusTaxRate)
	}
	if tun.GranaryDays != 60 {
		t.Fatalf("granary_days = %v, want 60", tun.GranaryDays)
	}
	// Untouched keys keep their defaults.
	def := Default()
	if tun.MarketFeeRate != def.MarketFeeRate {
		t.Fatalf("market_fee_rate = %v, want default %v", tun.MarketFeeRate, def.MarketFeeRate)
	}
	if tun.DaysPerMonth != def.DaysPerMonth {
		t.Fatalf("days_per_month = %v, want default %v", tun.DaysPerMonth, def.DaysPerMonth)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.yaml")
	if err := os.WriteFile(path, []byte("surplus_tax_rate: 1.5\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("tax rate above 1 accepted")
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.yaml")
	if err := os.WriteFile(path, []byte("{not yaml"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("malformed yaml accepted")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("missing file accepted")
	}
}

func TestValidateRejectsBadCalendar(t *testing.T) {
	tun := Default()
	tun.DaysPerMonth = 0
	if err := tun.Validate(); err == nil {
		t.Fatalf("zero-day month accepted")
	}
}

func TestValidateRejectsBadArchiveRate(t *testing.T) {
	tun := Default()
	tun.ArchiveRatePerHour = 0
	if err := tun.Validate(); err == nil {
		t.Fatalf("zero archive rate accepted")
	}
}

func TestValidateRejectsBadAlpha(t *testing.T) {
	tun := Default()
	tun.SatisfactionAlpha = 0
	if err := tun.Validate(); err == nil {
		t.Fatalf("zero alpha accepted")
	}
	tun.SatisfactionAlpha = 1.2
	if err := tun.Validate(); err == nil {
		t.Fatalf("alpha above 1 accepted")
	}
}
