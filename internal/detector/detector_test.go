package detector

import (
	"math/big"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/you/sol-arb-bot/internal/config"
	"github.com/you/sol-arb-bot/internal/types"
)

var (
	solMint  = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	usdcMint = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
)

func pool(kind types.DexKind, mintA, mintB solana.PublicKey, reserveA, reserveB uint64, feeBps uint32) types.PoolState {
	return types.PoolState{
		ID:        solana.NewWallet().PublicKey(),
		Kind:      kind,
		TokenA:    types.Token{Mint: mintA, Decimals: 9},
		TokenB:    types.Token{Mint: mintB, Decimals: 9},
		ReserveA:  reserveA,
		ReserveB:  reserveB,
		FeeBps:    feeBps,
		Liquidity: big.NewInt(1_000_000_000_000),
		Lifecycle: types.PoolActive,
	}
}

func detectorWith(t *testing.T, baseAmount uint64, pools ...types.PoolState) *Detector {
	t.Helper()
	cfg := config.Default()
	cfg.Trade.BaseAmount = baseAmount
	d := New(cfg, zap.NewNop())
	d.Observe(pools, time.Now())
	return d
}

// Two pools for the same pair priced 0.098 vs 0.125 quote-per-base leave a
// 27% spread; a 100-unit trade at 25 bps fees captures roughly 1.4%.
func TestDetect_TwoHopCrossDex(t *testing.T) {
	p1 := pool(types.DexRaydiumV4, solMint, usdcMint, 1_000_000_000_000, 98_000_000, 25)
	p2 := pool(types.DexOrcaWhirlpool, solMint, usdcMint, 800_000_000_000, 100_000_000, 25)

	d := detectorWith(t, 100_000_000_000, p1, p2)
	routes := d.Detect(time.Now())
	require.NotEmpty(t, routes)

	best := routes[0]
	assert.Len(t, best.Steps, 2)
	assert.True(t, best.CycleClosed())
	assert.NotEqual(t, best.Steps[0].Kind, best.Steps[1].Kind)
	assert.Greater(t, best.ExpectedProfit, uint64(0))
	assert.InDelta(t, 1.4, best.ProfitPct, 0.3)
	assert.LessOrEqual(t, best.RiskScore, 0.7)
	assert.GreaterOrEqual(t, best.ConfidenceScore, 0.8)
}

// Heavy fees eat the same spread entirely.
func TestDetect_FeesKillTheSpread(t *testing.T) {
	p1 := pool(types.DexRaydiumV4, solMint, usdcMint, 1_000_000_000_000, 98_000_000, 1_000)
	p2 := pool(types.DexOrcaWhirlpool, solMint, usdcMint, 800_000_000_000, 100_000_000, 1_000)

	d := detectorWith(t, 100_000_000_000, p1, p2)
	assert.Empty(t, d.Detect(time.Now()))
}

func TestDetect_SameDexNeverPairs(t *testing.T) {
	p1 := pool(types.DexRaydiumV4, solMint, usdcMint, 1_000_000_000_000, 98_000_000, 25)
	p2 := pool(types.DexRaydiumV4, solMint, usdcMint, 800_000_000_000, 100_000_000, 25)

	d := detectorWith(t, 100_000_000_000, p1, p2)
	assert.Empty(t, d.Detect(time.Now()))
}

func TestDetect_SinglePoolNoRoutes(t *testing.T) {
	p1 := pool(types.DexRaydiumV4, solMint, usdcMint, 1_000_000_000_000, 98_000_000, 25)
	d := detectorWith(t, 100_000_000_000, p1)
	assert.Empty(t, d.Detect(time.Now()))
}

func TestDetect_StaleEntriesEvicted(t *testing.T) {
	p1 := pool(types.DexRaydiumV4, solMint, usdcMint, 1_000_000_000_000, 98_000_000, 25)
	p2 := pool(types.DexOrcaWhirlpool, solMint, usdcMint, 800_000_000_000, 100_000_000, 25)

	cfg := config.Default()
	cfg.Trade.BaseAmount = 100_000_000_000
	d := New(cfg, zap.NewNop())

	now := time.Now()
	d.Observe([]types.PoolState{p1, p2}, now)

	require.NotEmpty(t, d.Detect(now))
	assert.Empty(t, d.Detect(now.Add(cfg.PriceTTL()+time.Second)))
	assert.Zero(t, d.cache.Len())
}

func TestDetect_PausedPoolExcluded(t *testing.T) {
	p1 := pool(types.DexRaydiumV4, solMint, usdcMint, 1_000_000_000_000, 98_000_000, 25)
	p2 := pool(types.DexOrcaWhirlpool, solMint, usdcMint, 800_000_000_000, 100_000_000, 25)
	p2.Lifecycle = types.PoolPaused

	d := detectorWith(t, 100_000_000_000, p1, p2)
	assert.Empty(t, d.Detect(time.Now()))
}

func TestDetect_Triangular(t *testing.T) {
	tokenC := solana.NewWallet().PublicKey()

	pAB := pool(types.DexRaydiumV4, solMint, usdcMint, 1_000_000_000_000, 1_000_000_000_000, 25)
	pBC := pool(types.DexOrcaWhirlpool, usdcMint, tokenC, 1_000_000_000_000, 1_000_000_000_000, 25)
	pCA := pool(types.DexRaydiumV4, tokenC, solMint, 1_000_000_000_000, 1_200_000_000_000, 25)

	d := detectorWith(t, 1_000_000_000, pAB, pBC, pCA)
	routes := d.Detect(time.Now())
	require.NotEmpty(t, routes)

	var triangular *types.ArbitrageRoute
	for i := range routes {
		if len(routes[i].Steps) == 3 {
			triangular = &routes[i]
			break
		}
	}
	require.NotNil(t, triangular)
	assert.True(t, triangular.CycleClosed())
	assert.Greater(t, triangular.ExpectedProfit, uint64(0))
}

// A profitable triangle is reachable from all three start tokens; exactly
// one route must come out.
func TestDetect_TriangularEmittedOnce(t *testing.T) {
	tokenC := solana.NewWallet().PublicKey()

	pAB := pool(types.DexRaydiumV4, solMint, usdcMint, 1_000_000_000_000, 1_000_000_000_000, 25)
	pBC := pool(types.DexOrcaWhirlpool, usdcMint, tokenC, 1_000_000_000_000, 1_000_000_000_000, 25)
	pCA := pool(types.DexRaydiumV4, tokenC, solMint, 1_000_000_000_000, 1_200_000_000_000, 25)

	d := detectorWith(t, 1_000_000_000, pAB, pBC, pCA)
	routes := d.Detect(time.Now())
	require.Len(t, routes, 1)
	assert.Len(t, routes[0].Steps, 3)
}

func TestDetect_NoDuplicateCycles(t *testing.T) {
	tokenC := solana.NewWallet().PublicKey()

	p1 := pool(types.DexRaydiumV4, solMint, usdcMint, 1_000_000_000_000, 98_000_000, 25)
	p2 := pool(types.DexOrcaWhirlpool, solMint, usdcMint, 800_000_000_000, 100_000_000, 25)
	p3 := pool(types.DexOrcaWhirlpool, usdcMint, tokenC, 1_000_000_000_000, 1_000_000_000_000, 25)
	p4 := pool(types.DexRaydiumV4, tokenC, solMint, 1_000_000_000_000, 1_200_000_000_000, 25)

	d := detectorWith(t, 1_000_000_000, p1, p2, p3, p4)
	routes := d.Detect(time.Now())
	require.NotEmpty(t, routes)

	seen := make(map[string]bool, len(routes))
	for _, r := range routes {
		key := cycleKey(r.Steps)
		assert.False(t, seen[key], "cycle %s emitted twice", key)
		seen[key] = true
	}
}

func TestDetect_OrderedBestFirst(t *testing.T) {
	// wide spread pair
	p1 := pool(types.DexRaydiumV4, solMint, usdcMint, 1_000_000_000_000, 98_000_000, 25)
	p2 := pool(types.DexOrcaWhirlpool, solMint, usdcMint, 800_000_000_000, 100_000_000, 25)
	// narrower spread pair on a separate, much deeper token
	tokenX := solana.NewWallet().PublicKey()
	p3 := pool(types.DexRaydiumV4, tokenX, usdcMint, 10_000_000_000_000, 1_000_000_000, 25)
	p4 := pool(types.DexOrcaWhirlpool, tokenX, usdcMint, 9_500_000_000_000, 1_000_000_000, 25)

	d := detectorWith(t, 100_000_000_000, p1, p2, p3, p4)
	routes := d.Detect(time.Now())
	require.GreaterOrEqual(t, len(routes), 2)
	for i := 1; i < len(routes); i++ {
		assert.GreaterOrEqual(t, routes[i-1].ProfitPct, routes[i].ProfitPct)
	}
}

func TestRiskScoreBuckets(t *testing.T) {
	assert.InDelta(t, 0.6, riskScore(0.05, 0.001), 1e-9)  // thin profit, low slip
	assert.InDelta(t, 0.4, riskScore(0.5, 0.001), 1e-9)   // small profit
	assert.InDelta(t, 0.2, riskScore(2.0, 0.001), 1e-9)   // healthy profit
	assert.InDelta(t, 0.5, riskScore(2.0, 0.06), 1e-9)    // heavy slippage
	assert.InDelta(t, 0.9, riskScore(0.05, 0.06), 1e-9)   // both bad
	assert.InDelta(t, 0.3, riskScore(2.0, 0.02), 1e-9)    // mild slippage
	assert.LessOrEqual(t, riskScore(0.0, 1.0), 1.0)
}

func TestConfidenceBuckets(t *testing.T) {
	assert.InDelta(t, 0.9, confidenceScore(2.0, 0.001), 1e-9)
	assert.InDelta(t, 0.8, confidenceScore(0.5, 0.001), 1e-9)
	assert.InDelta(t, 0.6, confidenceScore(0.05, 0.001), 1e-9)
	assert.InDelta(t, 0.42, confidenceScore(0.05, 0.06), 1e-9)
	assert.GreaterOrEqual(t, confidenceScore(0.0, 1.0), 0.1)
}

func TestSlippageEstimate(t *testing.T) {
	liq := big.NewInt(1_000_000_000_000)

	small := slippageEstimate(1_000_000_000, liq, 0.05)
	large := slippageEstimate(500_000_000_000, liq, 0.05)
	assert.Less(t, small, large)
	assert.LessOrEqual(t, large, 0.05)

	// unknown liquidity is treated as worst case
	assert.Equal(t, 0.05, slippageEstimate(1, nil, 0.05))
	assert.Equal(t, 0.05, slippageEstimate(1, big.NewInt(0), 0.05))
}
