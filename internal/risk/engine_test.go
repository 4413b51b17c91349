package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/you/sol-arb-bot/internal/config"
	"github.com/you/sol-arb-bot/internal/types"
)

func goodRoute() types.ArbitrageRoute {
	return types.ArbitrageRoute{
		ID: "r1",
		Steps: []types.ArbitrageStep{
			{AmountIn: 100_000_000, SlippageEstimate: 0.001},
			{SlippageEstimate: 0.002},
		},
		ProfitPct:       1.5,
		RiskScore:       0.3,
		ConfidenceScore: 0.9,
	}
}

func engine() *Engine {
	return NewEngine(config.Default().Risk)
}

func TestValidate_Passes(t *testing.T) {
	r := goodRoute()
	err := engine().Validate(&r, Snapshot{}, time.Now())
	assert.NoError(t, err)
}

func TestValidate_Gates(t *testing.T) {
	now := time.Now()

	cases := []struct {
		name   string
		mutate func(*types.ArbitrageRoute, *Snapshot)
		reason Reason
	}{
		{"position size", func(r *types.ArbitrageRoute, _ *Snapshot) {
			r.Steps[0].AmountIn = 2_000_000_000
		}, ReasonPositionSize},
		{"profit", func(r *types.ArbitrageRoute, _ *Snapshot) {
			r.ProfitPct = 0.1
		}, ReasonProfit},
		{"slippage", func(r *types.ArbitrageRoute, _ *Snapshot) {
			r.Steps[1].SlippageEstimate = 0.08
		}, ReasonSlippage},
		{"risk score", func(r *types.ArbitrageRoute, _ *Snapshot) {
			r.RiskScore = 0.9
		}, ReasonRiskScore},
		{"confidence", func(r *types.ArbitrageRoute, _ *Snapshot) {
			r.ConfidenceScore = 0.5
		}, ReasonConfidence},
		{"concurrency", func(_ *types.ArbitrageRoute, s *Snapshot) {
			s.ActiveTrades = 3
		}, ReasonConcurrency},
		{"daily loss", func(_ *types.ArbitrageRoute, s *Snapshot) {
			s.DailyLoss = 100_000_000
		}, ReasonDailyLoss},
		{"cooldown", func(_ *types.ArbitrageRoute, s *Snapshot) {
			s.LastTradeTime = now.Add(-time.Second)
		}, ReasonCooldown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := goodRoute()
			var snap Snapshot
			tc.mutate(&r, &snap)

			err := engine().Validate(&r, snap, now)
			assert.Error(t, err)
			assert.Equal(t, tc.reason, RejectionReason(err))
		})
	}
}

func TestValidate_CooldownElapsed(t *testing.T) {
	now := time.Now()
	r := goodRoute()
	snap := Snapshot{LastTradeTime: now.Add(-6 * time.Second)}
	assert.NoError(t, engine().Validate(&r, snap, now))
}

func TestRejectionReason_PlainError(t *testing.T) {
	assert.Equal(t, Reason(""), RejectionReason(assert.AnError))
	assert.Equal(t, Reason(""), RejectionReason(nil))
}
