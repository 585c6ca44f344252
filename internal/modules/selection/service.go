package selection

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/eigenfolio/eigenfolio/internal/config"
	"github.com/eigenfolio/eigenfolio/internal/modules/market"
	"github.com/eigenfolio/eigenfolio/internal/modules/qubo"
	"github.com/eigenfolio/eigenfolio/internal/modules/settings"
	"github.com/eigenfolio/eigenfolio/internal/modules/solvers"
)

// Service runs portfolio selections. One solve is: resolve parameters,
// obtain the universe, build the penalized binary objective, map it onto a
// diagonal Pauli operator, run the chosen backend, interpret the eigenstate
// distribution, persist, and return the run.
type Service struct {
	cfg          *config.Config
	marketSvc    *market.Service
	repo         *Repository
	settingsRepo *settings.Repository
	broadcaster  *Broadcaster
	log          zerolog.Logger
}

// NewService creates the selection service.
func NewService(
	cfg *config.Config,
	marketSvc *market.Service,
	repo *Repository,
	settingsRepo *settings.Repository,
	broadcaster *Broadcaster,
	log zerolog.Logger,
) *Service {
	return &Service{
		cfg:          cfg,
		marketSvc:    marketSvc,
		repo:         repo,
		settingsRepo: settingsRepo,
		broadcaster:  broadcaster,
		log:          log.With().Str("service", "selection").Logger(),
	}
}

// resolvedParams is a SolveRequest with every field filled in from defaults.
type resolvedParams struct {
	Solver       string
	NumAssets    int
	Budget       int
	RiskAversion float64
	Penalty      float64
	Seed         int64
}

// resolve merges a request with configured defaults and validates the
// combination.
func (s *Service) resolve(req SolveRequest) (resolvedParams, error) {
	p := resolvedParams{
		Solver:       req.Solver,
		NumAssets:    s.cfg.NumAssets,
		Budget:       s.cfg.Budget,
		RiskAversion: s.cfg.RiskAversion,
		Penalty:      s.cfg.Penalty,
		Seed:         s.cfg.Seed,
	}
	if p.Solver == "" {
		p.Solver = solvers.SolverExact
	}
	if req.NumAssets != nil {
		p.NumAssets = *req.NumAssets
	}
	if req.Budget != nil {
		p.Budget = *req.Budget
	}
	if req.RiskAversion != nil {
		p.RiskAversion = *req.RiskAversion
	}
	if req.Penalty != nil {
		p.Penalty = *req.Penalty
	}
	if req.Seed != nil {
		p.Seed = *req.Seed
	}

	switch p.Solver {
	case solvers.SolverExact, solvers.SolverVQE, solvers.SolverQAOA:
	default:
		return p, fmt.Errorf("unknown solver %q", p.Solver)
	}
	if p.NumAssets < 1 {
		return p, fmt.Errorf("num_assets must be at least 1, got %d", p.NumAssets)
	}
	if p.Budget < 0 || p.Budget > p.NumAssets {
		return p, fmt.Errorf("budget %d outside [0, %d]", p.Budget, p.NumAssets)
	}
	if p.RiskAversion < 0 {
		return p, fmt.Errorf("risk_aversion must be non-negative, got %f", p.RiskAversion)
	}
	return p, nil
}

// buildSolver constructs the requested backend, honoring solver tuning
// stored in settings and publishing progress to the broadcaster.
func (s *Service) buildSolver(name string, seed int64, runID string) solvers.MinimumEigensolver {
	progress := func(ev solvers.IterationEvent) {
		s.broadcaster.Publish(ProgressEvent{RunID: runID, IterationEvent: ev})
	}

	maxIter, _ := s.settingsRepo.GetInt(settings.KeyMaxIterations, 400)

	switch name {
	case solvers.SolverVQE:
		cfg := solvers.DefaultVQEConfig(seed)
		cfg.MaxIterations = maxIter
		cfg.Reps, _ = s.settingsRepo.GetInt(settings.KeyVQEReps, cfg.Reps)
		cfg.Restarts, _ = s.settingsRepo.GetInt(settings.KeyVQERestarts, cfg.Restarts)
		cfg.OnIteration = progress
		return solvers.NewVQESolver(cfg)
	case solvers.SolverQAOA:
		cfg := solvers.DefaultQAOAConfig(seed)
		cfg.MaxIterations = maxIter
		cfg.Layers, _ = s.settingsRepo.GetInt(settings.KeyQAOALayers, cfg.Layers)
		cfg.Restarts, _ = s.settingsRepo.GetInt(settings.KeyQAOARestarts, cfg.Restarts)
		cfg.OnIteration = progress
		return solvers.NewQAOASolver(cfg)
	default:
		return solvers.NewExactSolver()
	}
}

// Solve executes one selection run end to end and persists it.
func (s *Service) Solve(ctx context.Context, req SolveRequest) (*Run, error) {
	params, err := s.resolve(req)
	if err != nil {
		return nil, err
	}

	universe, err := s.marketSvc.GetUniverse(params.NumAssets, params.Seed)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain universe: %w", err)
	}

	problem, err := qubo.BuildPortfolioQUBO(
		universe.ExpectedReturns, universe.Covariance,
		params.RiskAversion, params.Budget, params.Penalty,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build objective: %w", err)
	}

	hamiltonian := problem.ToHamiltonian()
	runID := uuid.New().String()
	backend := s.buildSolver(params.Solver, params.Seed, runID)

	s.log.Info().
		Str("run_id", runID).
		Str("solver", params.Solver).
		Int("assets", params.NumAssets).
		Int("budget", params.Budget).
		Float64("risk_aversion", params.RiskAversion).
		Msg("Starting selection run")

	started := time.Now()
	result, err := backend.ComputeMinimumEigenvalue(ctx, hamiltonian)
	if err != nil {
		return nil, fmt.Errorf("solver %s failed: %w", params.Solver, err)
	}
	duration := time.Since(started)

	symbols := make([]string, len(universe.Assets))
	for i, asset := range universe.Assets {
		symbols[i] = asset.Symbol
	}

	run := &Run{
		ID:             runID,
		Solver:         params.Solver,
		NumAssets:      params.NumAssets,
		Budget:         params.Budget,
		RiskAversion:   params.RiskAversion,
		Penalty:        problem.Penalty,
		Seed:           params.Seed,
		Eigenvalue:     result.Eigenvalue,
		Iterations:     result.Iterations,
		Evaluations:    result.Evaluations,
		Converged:      result.Converged,
		DurationMS:     duration.Milliseconds(),
		CreatedAt:      time.Now().UTC(),
		Result:         result,
		Interpretation: Interpret(result, problem, symbols),
	}

	if err := s.repo.Save(run); err != nil {
		// The computation succeeded; losing the record is worth a log but
		// not a failed request.
		s.log.Error().Err(err).Str("run_id", runID).Msg("Failed to persist run")
	}

	s.log.Info().
		Str("run_id", runID).
		Float64("eigenvalue", result.Eigenvalue).
		Dur("duration", duration).
		Bool("converged", result.Converged).
		Msg("Selection run complete")

	return run, nil
}

// Compare runs all three backends on identical parameters, newest universe
// included, and returns the runs keyed by solver name.
func (s *Service) Compare(ctx context.Context, req SolveRequest) (map[string]*Run, error) {
	results := make(map[string]*Run, 3)
	for _, name := range []string{solvers.SolverExact, solvers.SolverVQE, solvers.SolverQAOA} {
		req.Solver = name
		run, err := s.Solve(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("compare failed at %s: %w", name, err)
		}
		results[name] = run
	}
	return results, nil
}

// GetRun loads a stored run and re-attaches candidate symbols from the
// active universe when shapes match (symbols aren't persisted).
func (s *Service) GetRun(id string) (*Run, error) {
	run, err := s.repo.Get(id)
	if err != nil || run == nil {
		return run, err
	}

	if universe := s.marketSvc.Active(); universe != nil &&
		universe.Seed == run.Seed && len(universe.Assets) == run.NumAssets &&
		run.Interpretation != nil {
		attachSymbols(run.Interpretation, universe)
	}
	return run, nil
}

// ListRuns returns recent run summaries.
func (s *Service) ListRuns(limit int) ([]*Run, error) {
	return s.repo.List(limit)
}

// DeleteRun removes a stored run.
func (s *Service) DeleteRun(id string) error {
	return s.repo.Delete(id)
}

func attachSymbols(interp *Interpretation, universe *market.Universe) {
	resolve := func(c *Candidate) {
		c.Symbols = nil
		for i := 0; i < len(c.Bitstring) && i < len(universe.Assets); i++ {
			if c.Bitstring[i] == '1' {
				c.Symbols = append(c.Symbols, universe.Assets[i].Symbol)
			}
		}
	}
	for i := range interp.Candidates {
		resolve(&interp.Candidates[i])
	}
	if interp.TopCandidate != nil {
		resolve(interp.TopCandidate)
	}
	if interp.BestFeasible != nil {
		resolve(interp.BestFeasible)
	}
}
