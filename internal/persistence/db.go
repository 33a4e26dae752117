// Package persistence provides SQLite-based simulation state storage.
// The static world is regenerated from its seed on resume; only the
// mutable economic state is stored.
package persistence

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/realmsim/internal/econ"
)

// DB wraps a SQLite connection for simulation state persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS counties (
		id INTEGER PRIMARY KEY,
		province INTEGER NOT NULL,
		population REAL NOT NULL,
		treasury REAL NOT NULL,
		satisfaction REAL NOT NULL,
		stock_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS provinces (
		id INTEGER PRIMARY KEY,
		realm INTEGER NOT NULL,
		treasury REAL NOT NULL,
		stockpile_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS realms (
		id INTEGER PRIMARY KEY,
		treasury REAL NOT NULL,
		minted REAL NOT NULL,
		stockpile_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS snapshots (
		day INTEGER PRIMARY KEY,
		digest TEXT NOT NULL,
		data_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// InitRun records a fresh run's identity and world seed. The run id is
// generated here; callers read it back with Meta("run_id").
func (db *DB) InitRun(seed int64) (string, error) {
	runID := uuid.New().String()
	if err := db.SaveMeta("run_id", runID); err != nil {
		return "", err
	}
	if err := db.SaveMeta("seed", strconv.FormatInt(seed, 10)); err != nil {
		return "", err
	}
	return runID, nil
}

// SaveState performs a full transactional replace of the mutable
// economic state plus the day counter.
func (db *DB) SaveState(s *econ.State, day uint64) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"counties", "provinces", "realms"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return err
		}
	}

	stmt, err := tx.Preparex(`INSERT INTO counties
		(id, province, population, treasury, satisfaction, stock_json)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range s.Counties {
		c := &s.Counties[i]
		stockJSON, _ := json.Marshal(c.Stock)
		if _, err := stmt.Exec(c.ID, c.Province, c.Population, c.Treasury,
			c.BasicSatisfaction, string(stockJSON)); err != nil {
			return fmt.Errorf("insert county %d: %w", c.ID, err)
		}
	}

	for i := range s.Provinces {
		p := &s.Provinces[i]
		stockJSON, _ := json.Marshal(p.Stockpile)
		if _, err := tx.Exec(
			"INSERT INTO provinces (id, realm, treasury, stockpile_json) VALUES (?, ?, ?, ?)",
			p.ID, p.Realm, p.Treasury, string(stockJSON)); err != nil {
			return fmt.Errorf("insert province %d: %w", p.ID, err)
		}
	}

	for i := range s.Realms {
		r := &s.Realms[i]
		stockJSON, _ := json.Marshal(r.Stockpile)
		if _, err := tx.Exec(
			"INSERT INTO realms (id, treasury, minted, stockpile_json) VALUES (?, ?, ?, ?)",
			r.ID, r.Treasury, r.Minted, string(stockJSON)); err != nil {
			return fmt.Errorf("insert realm %d: %w", r.ID, err)
		}
	}

	pricesJSON, _ := json.Marshal(s.MarketPrice)
	if _, err := tx.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES ('market_prices', ?)",
		string(pricesJSON)); err != nil {
		return err
	}
	if _, err := tx.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES ('last_day', ?)",
		strconv.FormatUint(day, 10)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Info("state saved", "day", day, "counties", len(s.Counties))
	return nil
}

// LoadState restores the mutable fields into an already-constructed
// state graph and returns the saved day counter. The graph must have
// been built from the same world seed: row counts are checked, not
// reconciled.
func (db *DB) LoadState(s *econ.State) (uint64, error) {
	type countyRow struct {
		ID           int     `db:"id"`
		Province     int     `db:"province"`
		Population   float64 `db:"population"`
		Treasury     float64 `db:"treasury"`
		Satisfaction float64 `db:"satisfaction"`
		StockJSON    string  `db:"stock_json"`
	}
	var counties []countyRow
	if err := db.conn.Select(&counties, "SELECT * FROM counties ORDER BY id"); err != nil {
		return 0, fmt.Errorf("load counties: %w", err)
	}
	if len(counties) != len(s.Counties) {
		return 0, fmt.Errorf("county count mismatch: db has %d, world has %d",
			len(counties), len(s.Counties))
	}
	for _, row := range counties {
		c := &s.Counties[row.ID]
		c.Population = row.Population
		c.Treasury = row.Treasury
		c.BasicSatisfaction = row.Satisfaction
		if err := json.Unmarshal([]byte(row.StockJSON), &c.Stock); err != nil {
			return 0, fmt.Errorf("county %d stock: %w", row.ID, err)
		}
	}

	type tierRow struct {
		ID            int     `db:"id"`
		Realm         int     `db:"realm"`
		Treasury      float64 `db:"treasury"`
		Minted        float64 `db:"minted"`
		StockpileJSON string  `db:"stockpile_json"`
	}
	var provinces []tierRow
	if err := db.conn.Select(&provinces,
		"SELECT id, realm, treasury, stockpile_json FROM provinces ORDER BY id"); err != nil {
		return 0, fmt.Errorf("load provinces: %w", err)
	}
	for _, row := range provinces {
		if row.ID >= len(s.Provinces) {
			return 0, fmt.Errorf("province %d out of range", row.ID)
		}
		p := &s.Provinces[row.ID]
		p.Treasury = row.Treasury
		if err := json.Unmarshal([]byte(row.StockpileJSON), &p.Stockpile); err != nil {
			return 0, fmt.Errorf("province %d stockpile: %w", row.ID, err)
		}
	}

	var realms []tierRow
	if err := db.conn.Select(&realms,
		"SELECT id, treasury, minted, stockpile_json FROM realms ORDER BY id"); err != nil {
		return 0, fmt.Errorf("load realms: %w", err)
	}
	for _, row := range realms {
		if row.ID >= len(s.Realms) {
			return 0, fmt.Errorf("realm %d out of range", row.ID)
		}
		r := &s.Realms[row.ID]
		r.Treasury = row.Treasury
		r.Minted = row.Minted
		if err := json.Unmarshal([]byte(row.StockpileJSON), &r.Stockpile); err != nil {
			return 0, fmt.Errorf("realm %d stockpile: %w", row.ID, err)
		}
	}

	if raw, err := db.Meta("market_prices"); err == nil {
		if err := json.Unmarshal([]byte(raw), &s.MarketPrice); err != nil {
			return 0, fmt.Errorf("market prices: %w", err)
		}
	}

	s.RefreshPopulationCaches()

	raw, err := db.Meta("last_day")
	if err != nil {
		return 0, fmt.Errorf("load day counter: %w", err)
	}
	day, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse day counter: %w", err)
	}

	slog.Info("state loaded", "day", day, "counties", len(counties))
	return day, nil
}

// SaveSnapshot appends one daily snapshot.
func (db *DB) SaveSnapshot(snap *econ.EconomySnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	_, err = db.conn.Exec(
		"INSERT OR REPLACE INTO snapshots (day, digest, data_json) VALUES (?, ?, ?)",
		snap.Day, snap.Digest(), string(data))
	return err
}

// Snapshots returns up to limit snapshots ending at the most recent,
// oldest-first.
func (db *DB) Snapshots(limit int) ([]econ.EconomySnapshot, error) {
	var rows []struct {
		Day      uint64 `db:"day"`
		DataJSON string `db:"data_json"`
	}
	err := db.conn.Select(&rows,
		"SELECT day, data_json FROM snapshots ORDER BY day DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	out := make([]econ.EconomySnapshot, len(rows))
	for i, row := range rows {
		if err := json.Unmarshal([]byte(row.DataJSON), &out[len(rows)-1-i]); err != nil {
			return nil, fmt.Errorf("snapshot day %d: %w", row.Day, err)
		}
	}
	return out, nil
}

// SaveMeta stores a key-value pair in world metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// Meta retrieves a metadata value.
func (db *DB) Meta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	return value, err
}

// Seed returns the stored world seed, or an error when the database
// holds no run.
func (db *DB) Seed() (int64, error) {
	raw, err := db.Meta("seed")
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(raw, 10, 64)
}
