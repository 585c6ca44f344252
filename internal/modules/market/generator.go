package market

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/eigenfolio/eigenfolio/pkg/formulas"
)

// DefaultPeriods is one trading year of daily prices.
const DefaultPeriods = formulas.TradingDaysPerYear

// GeneratorConfig controls synthetic universe generation.
type GeneratorConfig struct {
	NumAssets int
	Periods   int
	Seed      int64

	// Drift and volatility ranges the per-asset GBM parameters are drawn
	// from, annualized.
	MinDrift      float64
	MaxDrift      float64
	MinVolatility float64
	MaxVolatility float64

	// Correlation blends a shared market shock into every asset's returns.
	Correlation float64

	InitialPrice float64
}

// DefaultGeneratorConfig returns the tutorial defaults: a year of daily data
// with moderately correlated assets.
func DefaultGeneratorConfig(numAssets int, seed int64) GeneratorConfig {
	return GeneratorConfig{
		NumAssets:     numAssets,
		Periods:       DefaultPeriods,
		Seed:          seed,
		MinDrift:      -0.05,
		MaxDrift:      0.25,
		MinVolatility: 0.10,
		MaxVolatility: 0.40,
		Correlation:   0.3,
		InitialPrice:  100.0,
	}
}

// Generate produces a seeded universe: geometric Brownian motion price paths
// per asset with a common market factor, then sample statistics over the
// resulting daily returns. The same seed always yields the same universe.
func Generate(cfg GeneratorConfig) (*Universe, error) {
	if cfg.NumAssets < 1 {
		return nil, fmt.Errorf("need at least one asset, got %d", cfg.NumAssets)
	}
	if cfg.Periods < 3 {
		return nil, fmt.Errorf("need at least 3 periods for covariance estimation, got %d", cfg.Periods)
	}
	if cfg.Correlation < 0 || cfg.Correlation >= 1 {
		return nil, fmt.Errorf("correlation must be in [0,1), got %f", cfg.Correlation)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	dt := 1.0 / float64(formulas.TradingDaysPerYear)
	now := time.Now().UTC()

	assets := make([]Asset, cfg.NumAssets)
	prices := make([][]float64, cfg.NumAssets)
	for i := range assets {
		assets[i] = Asset{
			Symbol:     fmt.Sprintf("SYN%02d", i),
			Drift:      cfg.MinDrift + rng.Float64()*(cfg.MaxDrift-cfg.MinDrift),
			Volatility: cfg.MinVolatility + rng.Float64()*(cfg.MaxVolatility-cfg.MinVolatility),
			CreatedAt:  now,
		}
		prices[i] = make([]float64, cfg.Periods)
		prices[i][0] = cfg.InitialPrice
	}

	// Shared market shock per period gives the universe a realistic
	// correlation structure instead of independent random walks.
	sharedWeight := math.Sqrt(cfg.Correlation)
	ownWeight := math.Sqrt(1 - cfg.Correlation)
	for period := 1; period < cfg.Periods; period++ {
		market := rng.NormFloat64()
		for i := range assets {
			shock := sharedWeight*market + ownWeight*rng.NormFloat64()
			drift := (assets[i].Drift - 0.5*assets[i].Volatility*assets[i].Volatility) * dt
			diffusion := assets[i].Volatility * math.Sqrt(dt) * shock
			prices[i][period] = prices[i][period-1] * math.Exp(drift+diffusion)
		}
	}

	returns := make([][]float64, cfg.NumAssets)
	for i := range prices {
		returns[i] = formulas.CalculateReturns(prices[i])
	}

	universe := &Universe{
		Seed:            cfg.Seed,
		Periods:         cfg.Periods,
		Assets:          assets,
		ExpectedReturns: make([]float64, cfg.NumAssets),
		Covariance:      covarianceMatrix(returns),
		GeneratedAt:     now,
	}
	for i := range returns {
		universe.ExpectedReturns[i] = stat.Mean(returns[i], nil)
		universe.Stats = append(universe.Stats, assetStats(assets[i], prices[i], returns[i]))
	}

	universe.prices = prices
	return universe, nil
}

// covarianceMatrix estimates the sample covariance of the per-asset return
// series (assets as columns).
func covarianceMatrix(returns [][]float64) *mat.SymDense {
	n := len(returns)
	periods := len(returns[0])

	data := make([]float64, periods*n)
	for p := 0; p < periods; p++ {
		for i := 0; i < n; i++ {
			data[p*n+i] = returns[i][p]
		}
	}
	observations := mat.NewDense(periods, n, data)
	cov := mat.NewSymDense(n, nil)
	stat.CovarianceMatrix(cov, observations, nil)
	return cov
}

func assetStats(asset Asset, prices, returns []float64) AssetStats {
	mean := stat.Mean(returns, nil)
	return AssetStats{
		Symbol:               asset.Symbol,
		MeanReturn:           mean,
		AnnualizedReturn:     formulas.AnnualizedReturn(mean),
		AnnualizedVolatility: formulas.AnnualizedVolatility(returns),
		LastPrice:            prices[len(prices)-1],
		SMA20:                formulas.SMA(prices, 20),
		RSI14:                formulas.RSI(prices, 14),
		Momentum10:           formulas.Momentum(prices, 10),
	}
}
