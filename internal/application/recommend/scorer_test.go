package recommend

import (
	"testing"
	"time"

	"stocksim-backend/internal/application/pricesync"

	"github.com/stretchr/testify/assert"
)

func series(closes []float64, volumes []float64) []pricesync.Bar {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]pricesync.Bar, len(closes))
	for i, c := range closes {
		v := 100.0
		if volumes != nil {
			v = volumes[i]
		}
		bars[i] = pricesync.Bar{Date: day.AddDate(0, 0, i), Close: c, Volume: v}
	}
	return bars
}

func ramp(from float64, n int, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = from + float64(i)*step
	}
	return out
}

func flat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestEvaluate_EmptySeriesIsNeutral(t *testing.T) {
	s := Evaluate(nil)
	assert.Equal(t, Signals{}, s.Signals)
	assert.Equal(t, 50.0, s.Probability)
	assert.Equal(t, "composite technical indicators", s.Reason)
}

func TestEvaluate_ShortSeriesContributesZero(t *testing.T) {
	s := Evaluate(series(ramp(10, 5, 1), nil))
	assert.Equal(t, Signals{}, s.Signals)
	assert.Equal(t, 50.0, s.Probability)
}

func TestEvaluate_SteadyUptrend(t *testing.T) {
	s := Evaluate(series(ramp(1, 25, 1), nil))
	assert.Equal(t, 0.8, s.Signals.Trend)
	assert.Equal(t, -0.7, s.Signals.Reversion)
	assert.Equal(t, 0.0, s.Signals.Volume)
	assert.Equal(t, 1.0, s.Signals.Momentum)
	assert.Equal(t, 0.2, s.Signals.Volatility)
	assert.InDelta(t, 67.0, s.Probability, 1e-9)
	assert.Equal(t, "moving averages bullish, RSI overbought", s.Reason)
}

func TestEvaluate_FlatSeries(t *testing.T) {
	s := Evaluate(series(flat(10, 25), nil))
	assert.Equal(t, 0.0, s.Signals.Trend)
	assert.Equal(t, 0.0, s.Signals.Reversion)
	assert.Equal(t, 0.0, s.Signals.Momentum)
	assert.Equal(t, 0.2, s.Signals.Volatility)
	assert.InDelta(t, 51.5, s.Probability, 1e-9)
}

func TestReversionSignal_Oversold(t *testing.T) {
	assert.Equal(t, 0.7, reversionSignal(ramp(30, 15, -1)))
	assert.Equal(t, 0.0, reversionSignal(ramp(30, 14, -1)))
}

func TestVolumeSignal(t *testing.T) {
	closes := append(flat(10, 11), 11)
	spike := append(flat(100, 11), 1000)
	assert.Equal(t, 0.6, volumeSignal(closes, spike))

	falling := append(flat(10, 11), 9)
	assert.Equal(t, -0.6, volumeSignal(falling, spike))

	quiet := append(flat(100, 11), 10)
	assert.Equal(t, -0.2, volumeSignal(closes, quiet))

	assert.Equal(t, 0.0, volumeSignal(flat(10, 12), flat(0, 12)))
}

func TestMomentumSignal_NeedsSixCloses(t *testing.T) {
	assert.Equal(t, 0.0, momentumSignal(ramp(10, 5, 1)))
	assert.InDelta(t, -1.0, momentumSignal(ramp(20, 6, -1)), 1e-9)

	// r3 = 1%, r5 = 1%: (0.006 + 0.004) * 10
	closes := []float64{100, 100, 100, 100, 100, 101}
	assert.InDelta(t, 0.1, momentumSignal(closes), 1e-9)
}

func TestVolatilitySignal(t *testing.T) {
	choppy := make([]float64, 12)
	for i := range choppy {
		choppy[i] = 10
		if i%2 == 1 {
			choppy[i] = 12
		}
	}
	assert.Equal(t, -0.4, volatilitySignal(choppy))
	assert.Equal(t, 0.0, volatilitySignal(flat(10, 10)))
	assert.Equal(t, 0.2, volatilitySignal(flat(10, 11)))
}

func TestTrendSignal(t *testing.T) {
	assert.Equal(t, -0.8, trendSignal(ramp(40, 20, -1)))
	assert.Equal(t, 0.0, trendSignal(ramp(40, 19, -1)))

	// dip below a rising short average
	closes := append(ramp(1, 19, 1), 16)
	assert.Equal(t, -0.6, trendSignal(closes))
}
