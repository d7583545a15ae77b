package recommend

import (
	"math"
	"strings"

	"stocksim-backend/internal/application/pricesync"
)

const (
	weightTrend      = 0.25
	weightReversion  = 0.20
	weightVolume     = 0.15
	weightMomentum   = 0.25
	weightVolatility = 0.15
)

// Signals holds the five component signals, each in [-1, 1].
type Signals struct {
	Trend      float64 `json:"trend"`
	Reversion  float64 `json:"mean_reversion"`
	Volume     float64 `json:"volume"`
	Momentum   float64 `json:"momentum"`
	Volatility float64 `json:"volatility"`
}

// Score is the composite outcome for one series.
type Score struct {
	Signals     Signals `json:"signals"`
	Probability float64 `json:"probability"`
	Reason      string  `json:"reason"`
}

// Evaluate scores a daily series ordered oldest first. Each signal that lacks enough history
// contributes 0.
func Evaluate(bars []pricesync.Bar) Score {
	closes := make([]float64, len(bars))
	volumes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
		volumes[i] = b.Volume
	}

	sig := Signals{
		Trend:      trendSignal(closes),
		Reversion:  reversionSignal(closes),
		Volume:     volumeSignal(closes, volumes),
		Momentum:   momentumSignal(closes),
		Volatility: volatilitySignal(closes),
	}
	total := sig.Trend*weightTrend +
		sig.Reversion*weightReversion +
		sig.Volume*weightVolume +
		sig.Momentum*weightMomentum +
		sig.Volatility*weightVolatility

	return Score{
		Signals:     sig,
		Probability: clip((total+1)*50, 0, 100),
		Reason:      reason(sig),
	}
}

func reason(sig Signals) string {
	var parts []string
	if math.Abs(sig.Trend) > 0.5 {
		if sig.Trend > 0 {
			parts = append(parts, "moving averages bullish")
		} else {
			parts = append(parts, "moving averages bearish")
		}
	}
	if math.Abs(sig.Reversion) > 0.5 {
		if sig.Reversion > 0 {
			parts = append(parts, "RSI oversold")
		} else {
			parts = append(parts, "RSI overbought")
		}
	}
	if math.Abs(sig.Volume) > 0.4 {
		if sig.Volume > 0 {
			parts = append(parts, "volume expanding")
		} else {
			parts = append(parts, "volume contracting")
		}
	}
	if len(parts) == 0 {
		return "composite technical indicators"
	}
	return strings.Join(parts, ", ")
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func clip(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// trendSignal compares the last close with its 5 and 20 period moving averages.
func trendSignal(closes []float64) float64 {
	n := len(closes)
	if n < 20 {
		return 0
	}
	price := closes[n-1]
	ma5 := mean(closes[n-5:])
	ma20 := mean(closes[n-20:])
	switch {
	case price > ma5 && ma5 > ma20:
		return 0.8
	case price > ma5:
		return 0.6
	case price < ma5 && ma5 < ma20:
		return -0.8
	case price < ma5:
		return -0.6
	}
	return 0
}

// reversionSignal reads a 14 period RSI using simple averages of gains and losses.
func reversionSignal(closes []float64) float64 {
	n := len(closes)
	if n < 15 {
		return 0
	}
	var gain, loss float64
	for i := n - 14; i < n; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	gain /= 14
	loss /= 14

	var rsi float64
	switch {
	case loss == 0 && gain == 0:
		return 0
	case loss == 0:
		rsi = 100
	default:
		rsi = 100 - 100/(1+gain/loss)
	}

	switch {
	case rsi < 30:
		return 0.7
	case rsi > 70:
		return -0.7
	case rsi < 50:
		return 0.3
	}
	return -0.3
}

// volumeSignal weighs the last bar's volume against the 10 bar mean together with the
// direction of the last close.
func volumeSignal(closes, volumes []float64) float64 {
	n := len(closes)
	if n < 10 {
		return 0
	}
	avg := mean(volumes[n-10:])
	if avg == 0 {
		return 0
	}
	ratio := volumes[n-1] / avg

	var change float64
	if prev := closes[n-2]; prev != 0 {
		change = (closes[n-1] - prev) / prev
	}
	switch {
	case ratio > 1.5 && change > 0:
		return 0.6
	case ratio > 1.5 && change < 0:
		return -0.6
	case ratio < 0.8:
		return -0.2
	}
	return 0
}

func pctChange(closes []float64, periods int) (float64, bool) {
	n := len(closes)
	if n <= periods {
		return 0, false
	}
	base := closes[n-1-periods]
	if base == 0 {
		return 0, false
	}
	return (closes[n-1] - base) / base, true
}

// momentumSignal blends 3 and 5 period returns.
func momentumSignal(closes []float64) float64 {
	r3, ok3 := pctChange(closes, 3)
	r5, ok5 := pctChange(closes, 5)
	if !ok3 || !ok5 {
		return 0
	}
	return clip((r3*0.6+r5*0.4)*10, -1, 1)
}

// volatilitySignal penalises a high sample standard deviation of the last 10 returns.
func volatilitySignal(closes []float64) float64 {
	n := len(closes)
	if n < 11 {
		return 0
	}
	returns := make([]float64, 0, 10)
	for i := n - 10; i < n; i++ {
		prev := closes[i-1]
		if prev == 0 {
			return 0
		}
		returns = append(returns, (closes[i]-prev)/prev)
	}
	m := mean(returns)
	var ss float64
	for _, r := range returns {
		ss += (r - m) * (r - m)
	}
	vol := math.Sqrt(ss / float64(len(returns)-1))

	switch {
	case vol > 0.05:
		return -0.4
	case vol < 0.02:
		return 0.2
	}
	return 0.1
}
