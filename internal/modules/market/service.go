package market

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/eigenfolio/eigenfolio/pkg/formulas"
)

// Service provides the asset universe to the rest of the application. It
// caches the active universe in memory and persists every generated universe
// so a seed can be revisited.
type Service struct {
	repo *Repository
	log  zerolog.Logger

	mu     sync.RWMutex
	active *Universe
}

// NewService creates the market service.
func NewService(repo *Repository, log zerolog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With().Str("service", "market").Logger(),
	}
}

// GetUniverse returns a universe for the given parameters, in preference
// order: the in-memory active universe, the stored one, or a freshly
// generated one. The stored copy is only reused when its shape still matches
// the requested parameters.
func (s *Service) GetUniverse(numAssets int, seed int64) (*Universe, error) {
	s.mu.RLock()
	if s.active != nil && s.active.Seed == seed && len(s.active.Assets) == numAssets {
		u := s.active
		s.mu.RUnlock()
		return u, nil
	}
	s.mu.RUnlock()

	stored, err := s.repo.Load(seed)
	if err != nil {
		s.log.Warn().Err(err).Int64("seed", seed).Msg("Failed to load stored universe, regenerating")
	}
	if stored != nil && len(stored.Assets) == numAssets {
		if err := s.rehydrate(stored); err == nil {
			s.setActive(stored)
			return stored, nil
		}
		s.log.Warn().Int64("seed", seed).Msg("Stored universe unusable, regenerating")
	}

	return s.Regenerate(numAssets, seed)
}

// Regenerate always builds a fresh universe, persists it, and makes it the
// active one.
func (s *Service) Regenerate(numAssets int, seed int64) (*Universe, error) {
	universe, err := Generate(DefaultGeneratorConfig(numAssets, seed))
	if err != nil {
		return nil, fmt.Errorf("failed to generate universe: %w", err)
	}

	if err := s.repo.Save(universe); err != nil {
		// Persistence failure isn't fatal: the universe is regenerable.
		s.log.Error().Err(err).Int64("seed", seed).Msg("Failed to persist universe")
	}

	s.setActive(universe)
	s.log.Info().
		Int64("seed", seed).
		Int("assets", numAssets).
		Int("periods", universe.Periods).
		Msg("Synthetic universe generated")
	return universe, nil
}

// Active returns the current in-memory universe, or nil when none has been
// generated yet.
func (s *Service) Active() *Universe {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *Service) setActive(u *Universe) {
	s.mu.Lock()
	s.active = u
	s.mu.Unlock()
}

// rehydrate recomputes the derived statistics of a universe loaded from
// storage, which persists only assets and prices.
func (s *Service) rehydrate(u *Universe) error {
	prices := u.Prices()
	if len(prices) != len(u.Assets) {
		return fmt.Errorf("stored universe has %d price series for %d assets", len(prices), len(u.Assets))
	}

	returns := make([][]float64, len(prices))
	for i, series := range prices {
		if len(series) < 3 {
			return fmt.Errorf("price series for %s too short", u.Assets[i].Symbol)
		}
		returns[i] = formulas.CalculateReturns(series)
	}

	u.ExpectedReturns = make([]float64, len(returns))
	u.Stats = u.Stats[:0]
	for i := range returns {
		u.ExpectedReturns[i] = stat.Mean(returns[i], nil)
		u.Stats = append(u.Stats, assetStats(u.Assets[i], prices[i], returns[i]))
	}
	u.Covariance = covarianceMatrix(returns)
	return nil
}
