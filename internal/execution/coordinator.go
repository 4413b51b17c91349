// Package execution gates candidate routes, drives each trade through its
// lifecycle, and keeps the per-day accounting.
package execution

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/you/sol-arb-bot/internal/config"
	"github.com/you/sol-arb-bot/internal/ledger"
	"github.com/you/sol-arb-bot/internal/metrics"
	"github.com/you/sol-arb-bot/internal/risk"
	"github.com/you/sol-arb-bot/internal/types"
)

var (
	ErrRouteExpired = errors.New("route expired before execution")
	ErrStopped      = errors.New("coordinator stopped")
)

// PoolSource resolves a route step's pool id back to full pool state.
type PoolSource interface {
	Pool(id solana.PublicKey) (types.PoolState, bool)
}

// Coordinator owns all mutable trade state: the active-trade map, daily
// stats, and the cooldown timer. Collaborators only get read access through
// accessors.
type Coordinator struct {
	cfg    *config.Config
	engine *risk.Engine
	reader ledger.Reader
	writer ledger.Writer
	pools  PoolSource
	wallet solana.PrivateKey
	log    *zap.Logger

	mu        sync.Mutex
	active    map[string]*types.ActiveTrade
	cancels   map[string]context.CancelFunc
	stats     map[string]*types.DailyStats
	lastTrade time.Time
	balance   uint64
	stopped   bool
}

func NewCoordinator(cfg *config.Config, engine *risk.Engine, reader ledger.Reader, writer ledger.Writer,
	pools PoolSource, wallet solana.PrivateKey, startBalance uint64, log *zap.Logger) *Coordinator {
	return &Coordinator{
		cfg:     cfg,
		engine:  engine,
		reader:  reader,
		writer:  writer,
		pools:   pools,
		wallet:  wallet,
		log:     log,
		active:  make(map[string]*types.ActiveTrade),
		cancels: make(map[string]context.CancelFunc),
		stats:   make(map[string]*types.DailyStats),
		balance: startBalance,
	}
}

// Execute runs one route end to end: gates, assembly, simulation, send,
// confirm, bookkeeping. Rejections leave no trace beyond a log line and a
// counter; every accepted route produces exactly one terminal trade.
func (c *Coordinator) Execute(ctx context.Context, route *types.ArbitrageRoute) (types.ExecutionResult, error) {
	now := time.Now()
	if route.Expired(now) {
		return types.ExecutionResult{}, fmt.Errorf("%w: route %s from %s", ErrRouteExpired, route.ID, route.Timestamp.Format(time.RFC3339))
	}

	trade, tradeCtx, err := c.admit(ctx, route, now)
	if err != nil {
		if reason := risk.RejectionReason(err); reason != "" {
			metrics.RiskRejections.WithLabelValues(string(reason)).Inc()
			c.log.Debug("route rejected", zap.String("route", route.ID), zap.Error(err))
		}
		return types.ExecutionResult{}, err
	}
	defer c.release(trade.ID)

	start := time.Now()
	res := c.drive(tradeCtx, trade, route)
	metrics.ExecutionLatency.Observe(time.Since(start).Seconds())
	metrics.TradesExecuted.WithLabelValues(string(res.Status)).Inc()
	return res, nil
}

// admit runs risk validation and registers the trade under the lock. The
// cooldown timer is armed here so rapid retries are throttled even when the
// attempt later fails.
func (c *Coordinator) admit(ctx context.Context, route *types.ArbitrageRoute, now time.Time) (*types.ActiveTrade, context.Context, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return nil, nil, ErrStopped
	}

	snap := risk.Snapshot{
		ActiveTrades:  len(c.active),
		DailyLoss:     int64(c.todayLocked(now).TotalLoss),
		LastTradeTime: c.lastTrade,
	}
	if err := c.engine.Validate(route, snap, now); err != nil {
		return nil, nil, err
	}

	trade := &types.ActiveTrade{
		ID:             uuid.NewString(),
		Route:          *route,
		Status:         types.TradePending,
		ExecutionStart: now,
		LastUpdate:     now,
		MaxAttempts:    uint32(c.cfg.Execution.MaxAttempts),
	}
	tradeCtx, cancel := context.WithCancel(ctx)
	c.active[trade.ID] = trade
	c.cancels[trade.ID] = cancel
	c.lastTrade = now
	return trade, tradeCtx, nil
}

func (c *Coordinator) drive(ctx context.Context, trade *types.ActiveTrade, route *types.ArbitrageRoute) types.ExecutionResult {
	c.setStatus(trade, types.TradeExecuting)

	tx, err := c.assemble(ctx, route)
	if err != nil {
		return c.finish(trade, failStatus(ctx), solana.Signature{}, 0, 0, err)
	}

	sim, err := c.writer.Simulate(ctx, tx)
	if err != nil {
		return c.finish(trade, failStatus(ctx), solana.Signature{}, 0, 0, err)
	}
	if sim.Failed() {
		return c.finish(trade, types.TradeFailed, solana.Signature{}, 0, sim.UnitsConsumed,
			fmt.Errorf("simulation failed: %s", sim.Err))
	}

	sig, err := c.sendWithRetry(ctx, trade, tx)
	if err != nil {
		return c.finish(trade, failStatus(ctx), solana.Signature{}, 0, sim.UnitsConsumed, err)
	}

	confirmCtx, cancel := context.WithTimeout(ctx, c.cfg.ConfirmDeadline())
	defer cancel()
	if err := c.writer.Confirm(confirmCtx, sig); err != nil {
		return c.finish(trade, failStatus(ctx), sig, 0, sim.UnitsConsumed, err)
	}

	return c.finish(trade, types.TradeCompleted, sig, int64(route.ExpectedProfit), sim.UnitsConsumed, nil)
}

// failStatus maps an errored stage to its terminal status. A trade
// interrupted by StopAll or caller shutdown reads as cancelled no matter
// which stage it was caught in.
func failStatus(ctx context.Context) types.TradeStatus {
	if ctx.Err() != nil {
		return types.TradeCancelled
	}
	return types.TradeFailed
}

func (c *Coordinator) sendWithRetry(ctx context.Context, trade *types.ActiveTrade, tx *solana.Transaction) (solana.Signature, error) {
	var lastErr error
	for attempt := uint32(0); attempt < trade.MaxAttempts; attempt++ {
		c.mu.Lock()
		trade.Attempts = attempt + 1
		trade.LastUpdate = time.Now()
		c.mu.Unlock()

		sig, err := c.writer.Send(ctx, tx)
		if err == nil {
			return sig, nil
		}
		lastErr = err
		c.log.Warn("send attempt failed",
			zap.String("trade", trade.ID), zap.Uint32("attempt", attempt+1), zap.Error(err))

		if attempt+1 < trade.MaxAttempts {
			select {
			case <-ctx.Done():
				return solana.Signature{}, ctx.Err()
			case <-time.After(c.cfg.RetryDelay()):
			}
		}
	}
	return solana.Signature{}, lastErr
}

// finish records the terminal status and folds the outcome into DailyStats
// exactly once.
func (c *Coordinator) finish(trade *types.ActiveTrade, status types.TradeStatus,
	sig solana.Signature, profit int64, units uint64, cause error) types.ExecutionResult {

	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	trade.Status = status
	trade.LastUpdate = now

	day := c.todayLocked(now)
	day.ApplyTrade(profit, status == types.TradeCompleted)
	metrics.NetProfit.Set(float64(day.NetProfit))

	bal := int64(c.balance) + profit
	if bal < 0 {
		bal = 0
	}
	c.balance = uint64(bal)
	c.lastTrade = now

	res := types.ExecutionResult{
		TradeID:      trade.ID,
		RouteID:      trade.Route.ID,
		Status:       status,
		Signature:    sig,
		ComputeUnits: units,
		Profit:       profit,
		Ts:           now,
	}
	if cause != nil {
		res.Err = cause.Error()
		c.log.Warn("trade finished", zap.String("trade", trade.ID), zap.String("status", string(status)), zap.Error(cause))
	} else {
		c.log.Info("trade completed",
			zap.String("trade", trade.ID),
			zap.String("signature", sig.String()),
			zap.Int64("profit", profit))
	}
	return res
}

func (c *Coordinator) setStatus(trade *types.ActiveTrade, status types.TradeStatus) {
	c.mu.Lock()
	trade.Status = status
	trade.LastUpdate = time.Now()
	c.mu.Unlock()
}

func (c *Coordinator) release(tradeID string) {
	c.mu.Lock()
	if cancel, ok := c.cancels[tradeID]; ok {
		cancel()
		delete(c.cancels, tradeID)
	}
	delete(c.active, tradeID)
	c.mu.Unlock()
}

// StopAll cancels every in-flight trade and refuses new routes. Concurrency
// slots drain as each trade goroutine observes its cancelled context,
// finishes as cancelled, and unwinds through release.
func (c *Coordinator) StopAll() {
	c.mu.Lock()
	c.stopped = true
	for id, cancel := range c.cancels {
		cancel()
		c.log.Info("cancelling in-flight trade", zap.String("trade", id))
	}
	c.mu.Unlock()
}

// todayLocked returns today's stats bucket, creating it on first use.
// Callers must hold c.mu.
func (c *Coordinator) todayLocked(now time.Time) *types.DailyStats {
	key := now.Format("2006-01-02")
	day, ok := c.stats[key]
	if !ok {
		day = &types.DailyStats{Date: key, StartBalance: c.balance}
		c.stats[key] = day
	}
	return day
}

func (c *Coordinator) ActiveCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.active)
}

func (c *Coordinator) LastTradeTime() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastTrade
}

func (c *Coordinator) Balance() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balance
}

// Stats returns a copy of the aggregate for the given day, zero when no
// trade has finished that day.
func (c *Coordinator) Stats(day string) types.DailyStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d, ok := c.stats[day]; ok {
		return *d
	}
	return types.DailyStats{Date: day}
}

func (c *Coordinator) TodayStats() types.DailyStats {
	return c.Stats(time.Now().Format("2006-01-02"))
}
