package market

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Repository persists the synthetic universe in universe.db. The data is
// regenerable from its seed, so the database runs on the cache profile and a
// lost file just means the next solve regenerates it.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a universe repository backed by universe.db.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "market").Logger(),
	}
}

// InitSchema creates the universe tables if they do not exist.
func (r *Repository) InitSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS universes (
			seed INTEGER PRIMARY KEY,
			num_assets INTEGER NOT NULL,
			periods INTEGER NOT NULL,
			generated_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS assets (
			seed INTEGER NOT NULL,
			symbol TEXT NOT NULL,
			drift REAL NOT NULL,
			volatility REAL NOT NULL,
			PRIMARY KEY (seed, symbol)
		)`,
		`CREATE TABLE IF NOT EXISTS prices (
			seed INTEGER NOT NULL,
			symbol TEXT NOT NULL,
			period INTEGER NOT NULL,
			price REAL NOT NULL,
			PRIMARY KEY (seed, symbol, period)
		)`,
	}
	for _, stmt := range statements {
		if _, err := r.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create universe schema: %w", err)
		}
	}
	return nil
}

// Save stores a generated universe, replacing any previous universe with the
// same seed. Prices are batched inside a single transaction.
func (r *Repository) Save(u *Universe) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin universe save: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		"DELETE FROM prices WHERE seed = ?",
		"DELETE FROM assets WHERE seed = ?",
		"DELETE FROM universes WHERE seed = ?",
	} {
		if _, err := tx.Exec(stmt, u.Seed); err != nil {
			return fmt.Errorf("failed to clear previous universe: %w", err)
		}
	}

	_, err = tx.Exec(
		"INSERT INTO universes (seed, num_assets, periods, generated_at) VALUES (?, ?, ?, ?)",
		u.Seed, len(u.Assets), u.Periods, u.GeneratedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert universe: %w", err)
	}

	assetStmt, err := tx.Prepare("INSERT INTO assets (seed, symbol, drift, volatility) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer assetStmt.Close()

	priceStmt, err := tx.Prepare("INSERT INTO prices (seed, symbol, period, price) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer priceStmt.Close()

	prices := u.Prices()
	for i, asset := range u.Assets {
		if _, err := assetStmt.Exec(u.Seed, asset.Symbol, asset.Drift, asset.Volatility); err != nil {
			return fmt.Errorf("failed to insert asset %s: %w", asset.Symbol, err)
		}
		if i < len(prices) {
			for period, price := range prices[i] {
				if _, err := priceStmt.Exec(u.Seed, asset.Symbol, period, price); err != nil {
					return fmt.Errorf("failed to insert price for %s: %w", asset.Symbol, err)
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit universe save: %w", err)
	}

	r.log.Debug().Int64("seed", u.Seed).Int("assets", len(u.Assets)).Msg("Universe saved")
	return nil
}

// Load retrieves a stored universe by seed, including price series. Returns
// nil (not an error) when no universe with that seed exists.
func (r *Repository) Load(seed int64) (*Universe, error) {
	var numAssets, periods int
	var generatedAt int64
	err := r.db.QueryRow(
		"SELECT num_assets, periods, generated_at FROM universes WHERE seed = ?", seed,
	).Scan(&numAssets, &periods, &generatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load universe %d: %w", seed, err)
	}

	u := &Universe{
		Seed:        seed,
		Periods:     periods,
		GeneratedAt: time.Unix(generatedAt, 0).UTC(),
	}

	rows, err := r.db.Query(
		"SELECT symbol, drift, volatility FROM assets WHERE seed = ? ORDER BY symbol", seed,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load assets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var asset Asset
		if err := rows.Scan(&asset.Symbol, &asset.Drift, &asset.Volatility); err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		asset.CreatedAt = u.GeneratedAt
		u.Assets = append(u.Assets, asset)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	prices := make([][]float64, len(u.Assets))
	for i, asset := range u.Assets {
		series, err := r.loadPrices(seed, asset.Symbol)
		if err != nil {
			return nil, err
		}
		prices[i] = series
	}
	u.SetPrices(prices)

	return u, nil
}

func (r *Repository) loadPrices(seed int64, symbol string) ([]float64, error) {
	rows, err := r.db.Query(
		"SELECT price FROM prices WHERE seed = ? AND symbol = ? ORDER BY period", seed, symbol,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load prices for %s: %w", symbol, err)
	}
	defer rows.Close()

	var series []float64
	for rows.Next() {
		var price float64
		if err := rows.Scan(&price); err != nil {
			return nil, err
		}
		series = append(series, price)
	}
	return series, rows.Err()
}
