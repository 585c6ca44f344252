// Package market owns the synthetic asset universe: generating seeded price
// histories, deriving return statistics (expected returns and covariance)
// that feed the optimizer, and persisting the universe in universe.db so a
// run can be reproduced and inspected later.
package market

import (
	"time"

	"gonum.org/v1/gonum/mat"
)

// Asset is one member of the synthetic universe.
type Asset struct {
	Symbol     string    `json:"symbol"`
	Drift      float64   `json:"drift"`      // annualized GBM drift used to generate it
	Volatility float64   `json:"volatility"` // annualized GBM volatility used to generate it
	CreatedAt  time.Time `json:"created_at"`
}

// PricePoint is one step of an asset's generated price series.
type PricePoint struct {
	Symbol string  `json:"symbol"`
	Period int     `json:"period"`
	Price  float64 `json:"price"`
}

// AssetStats summarizes one asset's generated history for the API.
type AssetStats struct {
	Symbol               string  `json:"symbol"`
	MeanReturn           float64 `json:"mean_return"`
	AnnualizedReturn     float64 `json:"annualized_return"`
	AnnualizedVolatility float64 `json:"annualized_volatility"`
	LastPrice            float64 `json:"last_price"`
	SMA20                float64 `json:"sma_20"`
	RSI14                float64 `json:"rsi_14"`
	Momentum10           float64 `json:"momentum_10"`
}

// Universe bundles the generated assets with the statistics the selection
// service consumes.
type Universe struct {
	Seed            int64         `json:"seed"`
	Periods         int           `json:"periods"`
	Assets          []Asset       `json:"assets"`
	ExpectedReturns []float64     `json:"expected_returns"`
	Covariance      *mat.SymDense `json:"-"`
	Stats           []AssetStats  `json:"stats"`
	GeneratedAt     time.Time     `json:"generated_at"`

	prices [][]float64
}

// Prices returns the generated price series, one slice per asset in universe
// order. Nil for universes loaded without their price history.
func (u *Universe) Prices() [][]float64 {
	return u.prices
}

// SetPrices attaches price series loaded from storage.
func (u *Universe) SetPrices(prices [][]float64) {
	u.prices = prices
}

// CovarianceRows exposes the covariance matrix as JSON-friendly rows.
func (u *Universe) CovarianceRows() [][]float64 {
	if u.Covariance == nil {
		return nil
	}
	n := u.Covariance.SymmetricDim()
	rows := make([][]float64, n)
	for i := 0; i < n; i++ {
		rows[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			rows[i][j] = u.Covariance.At(i, j)
		}
	}
	return rows
}
