package quote

import (
	"math/big"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/you/sol-arb-bot/internal/types"
)

func testPool(reserveA, reserveB uint64, feeBps uint32) types.PoolState {
	return types.PoolState{
		ID:        solana.NewWallet().PublicKey(),
		Kind:      types.DexRaydiumV4,
		TokenA:    types.Token{Mint: solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112"), Symbol: "SOL", Decimals: 9},
		TokenB:    types.Token{Mint: solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"), Symbol: "USDC", Decimals: 6},
		ReserveA:  reserveA,
		ReserveB:  reserveB,
		FeeBps:    feeBps,
		Liquidity: big.NewInt(1),
		Lifecycle: types.PoolActive,
	}
}

func TestQuote_ConstantProduct(t *testing.T) {
	pool := testPool(1_000_000_000_000, 98_000_000, 25) // 1000 SOL / 98 USDC

	q, err := Quote(&pool, pool.TokenA.Mint, 1_000_000_000, 100)
	require.NoError(t, err)

	// eff = 1e9 * 9975 / 10000 = 997500000
	// out = 98e6 * 997500000 / (1e12 + 997500000) = 97657 (floored)
	assert.Equal(t, uint64(997_500_000), q.AmountIn-q.FeeAmount)
	assert.Equal(t, uint64(2_500_000), q.FeeAmount)
	assert.Equal(t, uint64(97_657), q.AmountOut)
	assert.Equal(t, pool.TokenB.Mint, q.TokenOut)
	assert.LessOrEqual(t, q.MinAmountOut, q.AmountOut)
}

func TestQuote_MinOutBounds(t *testing.T) {
	pool := testPool(1_000_000_000_000, 98_000_000, 25)

	for slippage := uint32(0); slippage <= 10_000; slippage += 250 {
		q, err := Quote(&pool, pool.TokenA.Mint, 5_000_000_000, slippage)
		require.NoError(t, err)
		assert.LessOrEqual(t, q.MinAmountOut, q.AmountOut, "slippage %d", slippage)
	}

	q, err := Quote(&pool, pool.TokenA.Mint, 5_000_000_000, 0)
	require.NoError(t, err)
	assert.Equal(t, q.AmountOut, q.MinAmountOut)

	q, err = Quote(&pool, pool.TokenA.Mint, 5_000_000_000, 10_000)
	require.NoError(t, err)
	assert.Zero(t, q.MinAmountOut)
}

func TestQuote_MonotoneInAmountIn(t *testing.T) {
	pool := testPool(800_000_000_000, 100_000_000, 30)

	var prev uint64
	for _, amt := range []uint64{1, 1_000, 1_000_000, 1_000_000_000, 50_000_000_000, 800_000_000_000} {
		q, err := Quote(&pool, pool.TokenA.Mint, amt, 50)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, q.AmountOut, prev, "amount_in %d", amt)
		prev = q.AmountOut
	}
}

func TestQuote_Direction(t *testing.T) {
	pool := testPool(1_000_000_000_000, 98_000_000, 25)

	q, err := Quote(&pool, pool.TokenB.Mint, 98_000_000, 0)
	require.NoError(t, err)
	assert.Equal(t, pool.TokenA.Mint, q.TokenOut)
	// selling the whole USDC reserve buys just under half the SOL side
	assert.Less(t, q.AmountOut, uint64(500_000_000_000))
	assert.Greater(t, q.AmountOut, uint64(490_000_000_000))
}

func TestQuote_EmptyReserves(t *testing.T) {
	for _, rs := range [][2]uint64{{0, 98_000_000}, {1_000_000_000, 0}, {0, 0}} {
		pool := testPool(rs[0], rs[1], 25)
		_, err := Quote(&pool, pool.TokenA.Mint, 1_000_000_000, 100)
		assert.ErrorIs(t, err, ErrEmptyReserves)
	}
}

func TestQuote_TokenNotInPool(t *testing.T) {
	pool := testPool(1_000_000_000, 98_000_000, 25)
	_, err := Quote(&pool, solana.NewWallet().PublicKey(), 1_000_000_000, 100)
	assert.ErrorIs(t, err, ErrTokenNotInPool)
}

func TestQuote_FullFeeYieldsNothing(t *testing.T) {
	pool := testPool(1_000_000_000, 98_000_000, 10_000)
	q, err := Quote(&pool, pool.TokenA.Mint, 1_000_000_000, 0)
	require.NoError(t, err)
	assert.Zero(t, q.AmountOut)
	assert.Equal(t, q.AmountIn, q.FeeAmount)
}

func TestQuote_PriceImpactGrowsWithSize(t *testing.T) {
	pool := testPool(1_000_000_000_000, 98_000_000, 25)

	small, err := Quote(&pool, pool.TokenA.Mint, 1_000_000, 0)
	require.NoError(t, err)
	large, err := Quote(&pool, pool.TokenA.Mint, 500_000_000_000, 0)
	require.NoError(t, err)
	assert.Greater(t, large.PriceImpactBps, small.PriceImpactBps)
}
