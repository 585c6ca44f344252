package selection

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/eigenfolio/eigenfolio/internal/modules/solvers"
)

// Repository persists selection runs in runs.db. The eigenstate distribution
// is stored as a msgpack blob alongside the scalar run columns, and decoded
// candidates live in their own table for querying.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a runs repository backed by runs.db.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "selection").Logger(),
	}
}

// InitSchema creates the run tables if they do not exist.
func (r *Repository) InitSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			solver TEXT NOT NULL,
			num_assets INTEGER NOT NULL,
			budget INTEGER NOT NULL,
			risk_aversion REAL NOT NULL,
			penalty REAL NOT NULL,
			seed INTEGER NOT NULL,
			eigenvalue REAL NOT NULL,
			iterations INTEGER NOT NULL,
			evaluations INTEGER NOT NULL,
			converged INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			distribution BLOB,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS run_candidates (
			run_id TEXT NOT NULL,
			rank INTEGER NOT NULL,
			bitstring TEXT NOT NULL,
			probability REAL NOT NULL,
			objective REAL NOT NULL,
			selected INTEGER NOT NULL,
			feasible INTEGER NOT NULL,
			PRIMARY KEY (run_id, rank)
		)`,
	}
	for _, stmt := range statements {
		if _, err := r.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create runs schema: %w", err)
		}
	}
	return nil
}

// Save stores a completed run with its candidates.
func (r *Repository) Save(run *Run) error {
	var blob []byte
	if run.Result != nil {
		encoded, err := msgpack.Marshal(run.Result.Distribution)
		if err != nil {
			return fmt.Errorf("failed to encode distribution: %w", err)
		}
		blob = encoded
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin run save: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs (
			id, solver, num_assets, budget, risk_aversion, penalty, seed,
			eigenvalue, iterations, evaluations, converged, duration_ms,
			distribution, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID, run.Solver, run.NumAssets, run.Budget, run.RiskAversion,
		run.Penalty, run.Seed, run.Eigenvalue, run.Iterations,
		run.Evaluations, boolToInt(run.Converged), run.DurationMS,
		blob, run.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	if run.Interpretation != nil {
		stmt, err := tx.Prepare(`
			INSERT INTO run_candidates (run_id, rank, bitstring, probability, objective, selected, feasible)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for rank, c := range run.Interpretation.Candidates {
			_, err := stmt.Exec(run.ID, rank, c.Bitstring, c.Probability, c.Objective, c.Selected, boolToInt(c.Feasible))
			if err != nil {
				return fmt.Errorf("failed to insert candidate %d: %w", rank, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run save: %w", err)
	}

	r.log.Debug().Str("run_id", run.ID).Str("solver", run.Solver).Msg("Run saved")
	return nil
}

// Get loads a run by ID, including its distribution and candidates. Returns
// nil (not an error) when the run doesn't exist.
func (r *Repository) Get(id string) (*Run, error) {
	run, blob, err := r.scanRun(r.db.QueryRow(`
		SELECT id, solver, num_assets, budget, risk_aversion, penalty, seed,
			eigenvalue, iterations, evaluations, converged, duration_ms,
			distribution, created_at
		FROM runs WHERE id = ?
	`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", id, err)
	}

	if len(blob) > 0 {
		var dist []solvers.StateProbability
		if err := msgpack.Unmarshal(blob, &dist); err != nil {
			return nil, fmt.Errorf("failed to decode distribution for run %s: %w", id, err)
		}
		run.Result = &solvers.Result{
			Solver:       run.Solver,
			Eigenvalue:   run.Eigenvalue,
			Distribution: dist,
			Iterations:   run.Iterations,
			Evaluations:  run.Evaluations,
			Converged:    run.Converged,
		}
	}

	candidates, err := r.loadCandidates(id)
	if err != nil {
		return nil, err
	}
	if len(candidates) > 0 {
		run.Interpretation = rebuildInterpretation(candidates)
	}

	return run, nil
}

// List returns the most recent runs without distributions or candidates,
// newest first.
func (r *Repository) List(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(`
		SELECT id, solver, num_assets, budget, risk_aversion, penalty, seed,
			eigenvalue, iterations, evaluations, converged, duration_ms,
			distribution, created_at
		FROM runs ORDER BY created_at DESC, id LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, _, err := r.scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Delete removes a run and its candidates. Idempotent.
func (r *Repository) Delete(id string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM run_candidates WHERE run_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete candidates for run %s: %w", id, err)
	}
	if _, err := tx.Exec("DELETE FROM runs WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete run %s: %w", id, err)
	}
	return tx.Commit()
}

// Count returns the total number of stored runs.
func (r *Repository) Count() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM runs").Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *Repository) scanRun(row rowScanner) (*Run, []byte, error) {
	var (
		run       Run
		converged int
		blob      []byte
		createdAt int64
	)
	err := row.Scan(
		&run.ID, &run.Solver, &run.NumAssets, &run.Budget, &run.RiskAversion,
		&run.Penalty, &run.Seed, &run.Eigenvalue, &run.Iterations,
		&run.Evaluations, &converged, &run.DurationMS, &blob, &createdAt,
	)
	if err != nil {
		return nil, nil, err
	}
	run.Converged = converged != 0
	run.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &run, blob, nil
}

func (r *Repository) loadCandidates(runID string) ([]Candidate, error) {
	rows, err := r.db.Query(`
		SELECT bitstring, probability, objective, selected, feasible
		FROM run_candidates WHERE run_id = ? ORDER BY rank
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidates: %w", err)
	}
	defer rows.Close()

	var candidates []Candidate
	for rows.Next() {
		var c Candidate
		var feasible int
		if err := rows.Scan(&c.Bitstring, &c.Probability, &c.Objective, &c.Selected, &feasible); err != nil {
			return nil, err
		}
		c.Feasible = feasible != 0
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

// rebuildInterpretation reconstructs TopCandidate/BestFeasible from stored
// candidates, which keep their original probability-descending order.
func rebuildInterpretation(candidates []Candidate) *Interpretation {
	interp := &Interpretation{Candidates: candidates}
	top := candidates[0]
	interp.TopCandidate = &top
	for i := range candidates {
		c := candidates[i]
		if !c.Feasible {
			continue
		}
		if interp.BestFeasible == nil || c.Objective < interp.BestFeasible.Objective {
			best := c
			interp.BestFeasible = &best
		}
	}
	return interp
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
