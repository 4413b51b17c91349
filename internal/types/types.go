package types

import (
	"math/big"
	"time"

	"github.com/gagliardetto/solana-go"
)

// DexKind tags which venue a pool (and its account layout) belongs to.
type DexKind string

const (
	DexRaydiumV4     DexKind = "raydium_v4"
	DexOrcaWhirlpool DexKind = "orca_whirlpool"
)

type PoolLifecycle string

const (
	PoolActive PoolLifecycle = "active"
	PoolPaused PoolLifecycle = "paused"
	PoolClosed PoolLifecycle = "closed"
)

// Token metadata resolved from the live mint account, never guessed.
type Token struct {
	Mint     solana.PublicKey
	Symbol   string
	Decimals uint8
}

// PoolState is the decoded view of an on-chain pool account. ReserveA/ReserveB
// are only meaningful after a vault balance refresh: the pool struct itself
// carries structural metadata, not current reserves.
type PoolState struct {
	ID             solana.PublicKey
	Kind           DexKind
	TokenA         Token
	TokenB         Token
	VaultA         solana.PublicKey
	VaultB         solana.PublicKey
	ReserveA       uint64
	ReserveB       uint64
	FeeBps         uint32
	ProtocolFeeBps uint32
	Liquidity      *big.Int
	Lifecycle      PoolLifecycle
}

func (p *PoolState) HasToken(mint solana.PublicKey) bool {
	return p.TokenA.Mint.Equals(mint) || p.TokenB.Mint.Equals(mint)
}

// OtherSide returns the opposite token of the pair, false when mint is not in the pool.
func (p *PoolState) OtherSide(mint solana.PublicKey) (Token, bool) {
	switch {
	case p.TokenA.Mint.Equals(mint):
		return p.TokenB, true
	case p.TokenB.Mint.Equals(mint):
		return p.TokenA, true
	}
	return Token{}, false
}

// ReservesFor orients the reserves for a swap of tokenIn into the pool.
func (p *PoolState) ReservesFor(tokenIn solana.PublicKey) (reserveIn, reserveOut uint64, ok bool) {
	switch {
	case p.TokenA.Mint.Equals(tokenIn):
		return p.ReserveA, p.ReserveB, true
	case p.TokenB.Mint.Equals(tokenIn):
		return p.ReserveB, p.ReserveA, true
	}
	return 0, 0, false
}

// SwapQuote is the output of the quote engine for one pool and direction.
// Invariant: MinAmountOut <= AmountOut.
type SwapQuote struct {
	PoolID         solana.PublicKey
	Kind           DexKind
	TokenIn        solana.PublicKey
	TokenOut       solana.PublicKey
	AmountIn       uint64
	AmountOut      uint64
	MinAmountOut   uint64
	FeeAmount      uint64
	PriceImpactBps int32
}

// ArbitrageStep is one leg of a route.
type ArbitrageStep struct {
	Kind             DexKind
	PoolID           solana.PublicKey
	TokenIn          Token
	TokenOut         Token
	AmountIn         uint64
	AmountOut        uint64
	MinAmountOut     uint64
	FeeAmount        uint64
	SlippageEstimate float64
	GasEstimate      uint64
}

// ArbitrageRoute is an ordered cycle of steps: the input token of step 0
// equals the output token of the last step.
type ArbitrageRoute struct {
	ID                    string
	Steps                 []ArbitrageStep
	ExpectedProfit        uint64
	ProfitPct             float64
	RiskScore             float64
	ConfidenceScore       float64
	ExecutionTimeEstimate time.Duration
	Timestamp             time.Time
}

func (r *ArbitrageRoute) InputAmount() uint64 {
	if len(r.Steps) == 0 {
		return 0
	}
	return r.Steps[0].AmountIn
}

func (r *ArbitrageRoute) CycleClosed() bool {
	if len(r.Steps) == 0 {
		return false
	}
	return r.Steps[0].TokenIn.Mint.Equals(r.Steps[len(r.Steps)-1].TokenOut.Mint)
}

// Expired reports whether the route sat unexecuted past its estimate window.
func (r *ArbitrageRoute) Expired(now time.Time) bool {
	return now.Sub(r.Timestamp) > r.ExecutionTimeEstimate
}

type TradeStatus string

const (
	TradePending   TradeStatus = "pending"
	TradeExecuting TradeStatus = "executing"
	TradeCompleted TradeStatus = "completed"
	TradeFailed    TradeStatus = "failed"
	TradeCancelled TradeStatus = "cancelled"
)

func (s TradeStatus) Terminal() bool {
	return s == TradeCompleted || s == TradeFailed || s == TradeCancelled
}

// ActiveTrade lives in the coordinator's live map from risk validation until
// it reaches a terminal status and is folded into DailyStats.
type ActiveTrade struct {
	ID             string
	Route          ArbitrageRoute
	Status         TradeStatus
	ExecutionStart time.Time
	LastUpdate     time.Time
	Attempts       uint32
	MaxAttempts    uint32
}

// DailyStats aggregates outcomes per calendar day, updated exactly once per
// terminal trade.
type DailyStats struct {
	Date             string
	TotalTrades      uint32
	SuccessfulTrades uint32
	TotalProfit      uint64
	TotalLoss        uint64
	NetProfit        int64
	StartBalance     uint64
	EndBalance       uint64
}

// ApplyTrade folds one terminal trade into the aggregate. profit is signed:
// negative values count toward TotalLoss.
func (d *DailyStats) ApplyTrade(profit int64, success bool) {
	d.TotalTrades++
	if success {
		d.SuccessfulTrades++
	}
	if profit >= 0 {
		d.TotalProfit += uint64(profit)
	} else {
		d.TotalLoss += uint64(-profit)
	}
	d.NetProfit = int64(d.TotalProfit) - int64(d.TotalLoss)
	end := int64(d.StartBalance) + d.NetProfit
	if end < 0 {
		end = 0
	}
	d.EndBalance = uint64(end)
}

func (d *DailyStats) SuccessRate() float64 {
	if d.TotalTrades == 0 {
		return 0
	}
	return float64(d.SuccessfulTrades) / float64(d.TotalTrades)
}

func (d *DailyStats) ROI() float64 {
	if d.StartBalance == 0 {
		return 0
	}
	return float64(d.NetProfit) / float64(d.StartBalance)
}

// ExecutionResult is the terminal outcome of one coordinated trade.
type ExecutionResult struct {
	TradeID      string
	RouteID      string
	Status       TradeStatus
	Signature    solana.Signature
	Err          string
	ComputeUnits uint64
	Profit       int64
	Ts           time.Time
}
