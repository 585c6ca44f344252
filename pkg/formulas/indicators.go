package formulas

import (
	talib "github.com/markcheno/go-talib"
)

// SMA returns the latest simple moving average of the given period, or 0 when
// there is not enough data.
func SMA(prices []float64, period int) float64 {
	if len(prices) < period || period <= 0 {
		return 0
	}
	values := talib.Sma(prices, period)
	return values[len(values)-1]
}

// RSI returns the latest Relative Strength Index value for the given period.
// RSI needs period+1 data points; returns a neutral 50 when data is too short.
func RSI(prices []float64, period int) float64 {
	if len(prices) <= period || period <= 0 {
		return 50
	}
	values := talib.Rsi(prices, period)
	return values[len(values)-1]
}

// Momentum returns the latest rate-of-change over the given period as a
// fraction (0.05 = +5%).
func Momentum(prices []float64, period int) float64 {
	if len(prices) <= period || period <= 0 {
		return 0
	}
	values := talib.Roc(prices, period)
	return values[len(values)-1] / 100.0
}
