// Package risk gates candidate routes against the configured thresholds.
// Every check is pure: the live counters (active trades, daily loss, last
// trade time) are supplied by the caller, so rejection has no side effects.
package risk

import (
	"errors"
	"fmt"
	"time"

	"github.com/you/sol-arb-bot/internal/config"
	"github.com/you/sol-arb-bot/internal/types"
)

// Reason identifies which gate rejected the route.
type Reason string

const (
	ReasonPositionSize Reason = "position_size"
	ReasonProfit       Reason = "profit_below_threshold"
	ReasonSlippage     Reason = "slippage_above_tolerance"
	ReasonRiskScore    Reason = "risk_score"
	ReasonConfidence   Reason = "confidence_score"
	ReasonConcurrency  Reason = "max_concurrent_trades"
	ReasonDailyLoss    Reason = "max_daily_loss"
	ReasonCooldown     Reason = "cooldown"
)

// Rejected reports which threshold a route violated and by how much.
type Rejected struct {
	Reason Reason
	Detail string
}

func (r *Rejected) Error() string {
	return fmt.Sprintf("risk rejected (%s): %s", r.Reason, r.Detail)
}

// RejectionReason extracts the gate reason from an error chain, or "".
func RejectionReason(err error) Reason {
	var rj *Rejected
	if errors.As(err, &rj) {
		return rj.Reason
	}
	return ""
}

// Snapshot is the coordinator's live state at validation time.
type Snapshot struct {
	ActiveTrades  int
	DailyLoss     int64
	LastTradeTime time.Time
}

type Engine struct {
	cfg config.RiskConfig
}

func NewEngine(cfg config.RiskConfig) *Engine {
	return &Engine{cfg: cfg}
}

// Validate runs the gates in order and returns the first violation as a
// *Rejected error. Cooldown is checked last so the other thresholds surface
// first in logs.
func (e *Engine) Validate(route *types.ArbitrageRoute, snap Snapshot, now time.Time) error {
	if pos := route.InputAmount(); pos > e.cfg.MaxPositionSize {
		return &Rejected{ReasonPositionSize, fmt.Sprintf("position %d > max %d", pos, e.cfg.MaxPositionSize)}
	}
	if route.ProfitPct < e.cfg.MinProfitPct {
		return &Rejected{ReasonProfit, fmt.Sprintf("profit %.4f%% < min %.4f%%", route.ProfitPct, e.cfg.MinProfitPct)}
	}
	if slip := maxStepSlippage(route); slip*100 > e.cfg.MaxSlippagePct {
		return &Rejected{ReasonSlippage, fmt.Sprintf("slippage %.4f%% > max %.4f%%", slip*100, e.cfg.MaxSlippagePct)}
	}
	if route.RiskScore > e.cfg.MaxRiskScore {
		return &Rejected{ReasonRiskScore, fmt.Sprintf("risk %.2f > max %.2f", route.RiskScore, e.cfg.MaxRiskScore)}
	}
	if route.ConfidenceScore < e.cfg.MinConfidenceScore {
		return &Rejected{ReasonConfidence, fmt.Sprintf("confidence %.2f < min %.2f", route.ConfidenceScore, e.cfg.MinConfidenceScore)}
	}
	if snap.ActiveTrades >= e.cfg.MaxConcurrent {
		return &Rejected{ReasonConcurrency, fmt.Sprintf("%d trades in flight, limit %d", snap.ActiveTrades, e.cfg.MaxConcurrent)}
	}
	if snap.DailyLoss >= e.cfg.MaxDailyLoss {
		return &Rejected{ReasonDailyLoss, fmt.Sprintf("daily loss %d >= max %d", snap.DailyLoss, e.cfg.MaxDailyLoss)}
	}
	if cd := time.Duration(e.cfg.CooldownMs) * time.Millisecond; !snap.LastTradeTime.IsZero() {
		if elapsed := now.Sub(snap.LastTradeTime); elapsed < cd {
			return &Rejected{ReasonCooldown, fmt.Sprintf("%s since last trade, cooldown %s", elapsed.Round(time.Millisecond), cd)}
		}
	}
	return nil
}

func maxStepSlippage(route *types.ArbitrageRoute) float64 {
	var worst float64
	for _, s := range route.Steps {
		if s.SlippageEstimate > worst {
			worst = s.SlippageEstimate
		}
	}
	return worst
}
