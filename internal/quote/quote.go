// Package quote computes constant-product swap quotes with fee deduction.
// All math runs in a widened integer domain via math/big; division truncates
// toward zero, so AmountOut is never overstated.
package quote

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"

	"github.com/you/sol-arb-bot/internal/types"
)

var (
	ErrEmptyReserves  = errors.New("pool has empty reserves")
	ErrTokenNotInPool = errors.New("token not in pool")
)

const bpsDenom = 10_000

// Quote prices a swap of amountIn of tokenIn against the pool's current
// reserves: amount_in_eff = amount_in * (10000 - fee_bps) / 10000,
// amount_out = reserve_out * amount_in_eff / (reserve_in + amount_in_eff).
func Quote(pool *types.PoolState, tokenIn solana.PublicKey, amountIn uint64, slippageBps uint32) (types.SwapQuote, error) {
	reserveIn, reserveOut, ok := pool.ReservesFor(tokenIn)
	if !ok {
		return types.SwapQuote{}, fmt.Errorf("%w: %s is neither side of pool %s", ErrTokenNotInPool, tokenIn, pool.ID)
	}
	if reserveIn == 0 || reserveOut == 0 {
		return types.SwapQuote{}, fmt.Errorf("%w: pool %s reserves (%d, %d)", ErrEmptyReserves, pool.ID, pool.ReserveA, pool.ReserveB)
	}

	feeBps := pool.FeeBps
	if feeBps > bpsDenom {
		feeBps = bpsDenom
	}
	if slippageBps > bpsDenom {
		slippageBps = bpsDenom
	}

	in := new(big.Int).SetUint64(amountIn)
	rIn := new(big.Int).SetUint64(reserveIn)
	rOut := new(big.Int).SetUint64(reserveOut)

	eff := new(big.Int).Mul(in, big.NewInt(int64(bpsDenom-feeBps)))
	eff.Quo(eff, big.NewInt(bpsDenom))

	num := new(big.Int).Mul(rOut, eff)
	den := new(big.Int).Add(rIn, eff)
	out := new(big.Int).Quo(num, den)

	minOut := new(big.Int).Mul(out, big.NewInt(int64(bpsDenom-slippageBps)))
	minOut.Quo(minOut, big.NewInt(bpsDenom))

	outToken, _ := pool.OtherSide(tokenIn)

	return types.SwapQuote{
		PoolID:         pool.ID,
		Kind:           pool.Kind,
		TokenIn:        tokenIn,
		TokenOut:       outToken.Mint,
		AmountIn:       amountIn,
		AmountOut:      out.Uint64(),
		MinAmountOut:   minOut.Uint64(),
		FeeAmount:      amountIn - eff.Uint64(),
		PriceImpactBps: priceImpactBps(eff, rIn, rOut, out),
	}, nil
}

// priceImpactBps measures how far the executed price falls below the spot
// price implied by the fee-adjusted input.
func priceImpactBps(eff, reserveIn, reserveOut, out *big.Int) int32 {
	if eff.Sign() == 0 || reserveIn.Sign() == 0 {
		return 0
	}
	ideal := new(big.Int).Mul(eff, reserveOut)
	ideal.Quo(ideal, reserveIn)
	if ideal.Sign() == 0 {
		return 0
	}
	diff := new(big.Int).Sub(ideal, out)
	diff.Mul(diff, big.NewInt(bpsDenom))
	diff.Quo(diff, ideal)
	bps := diff.Int64()
	if bps < 0 {
		bps = 0
	}
	if bps > bpsDenom {
		bps = bpsDenom
	}
	return int32(bps)
}
