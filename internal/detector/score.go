package detector

import "math/big"

// Slippage grows quadratically with the trade-size-to-liquidity ratio.
const slippageCurveK = 0.1

// Profit buckets in percent, slippage buckets as fractions.
const (
	thinProfitPct   = 0.1
	smallProfitPct  = 1.0
	mildSlippage    = 0.01
	heavySlippage   = 0.05
	confidenceFloor = 0.1
)

func slippageEstimate(amountIn uint64, liquidity *big.Int, maxSlippage float64) float64 {
	if liquidity == nil || liquidity.Sign() <= 0 {
		return maxSlippage
	}
	liq, _ := new(big.Float).SetInt(liquidity).Float64()
	ratio := float64(amountIn) / liq
	est := slippageCurveK * ratio * ratio
	if est > maxSlippage {
		return maxSlippage
	}
	return est
}

// riskScore sums a profit contribution and a slippage contribution, clamped
// to [0,1]. Thin margins and heavy slippage both push the score up.
func riskScore(profitPct, slippage float64) float64 {
	var score float64
	switch {
	case profitPct < thinProfitPct:
		score += 0.5
	case profitPct < smallProfitPct:
		score += 0.3
	default:
		score += 0.1
	}
	switch {
	case slippage > heavySlippage:
		score += 0.4
	case slippage > mildSlippage:
		score += 0.2
	default:
		score += 0.1
	}
	if score > 1 {
		return 1
	}
	if score < 0 {
		return 0
	}
	return score
}

// confidenceScore starts at 1.0 and is multiplicatively discounted by the
// same buckets, floored at 0.1.
func confidenceScore(profitPct, slippage float64) float64 {
	conf := 1.0
	switch {
	case profitPct < thinProfitPct:
		conf *= 0.6
	case profitPct < smallProfitPct:
		conf *= 0.8
	default:
		conf *= 0.9
	}
	switch {
	case slippage > heavySlippage:
		conf *= 0.7
	case slippage > mildSlippage:
		conf *= 0.9
	}
	if conf < confidenceFloor {
		return confidenceFloor
	}
	return conf
}
