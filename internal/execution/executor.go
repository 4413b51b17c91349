package execution

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/you/sol-arb-bot/internal/config"
	"github.com/you/sol-arb-bot/internal/types"
)

// ResultSink receives terminal trade outcomes, e.g. the redis feed. A nil
// sink disables publishing.
type ResultSink interface {
	PublishResult(ctx context.Context, res types.ExecutionResult) error
}

// Executor pulls queued routes and drives the coordinator. Trades run in
// their own goroutines; the coordinator's concurrency gate bounds how many
// are in flight.
type Executor struct {
	cfg   *config.Config
	coord *Coordinator
	sink  ResultSink
	log   *zap.Logger
}

func NewExecutor(cfg *config.Config, coord *Coordinator, sink ResultSink, log *zap.Logger) *Executor {
	return &Executor{cfg: cfg, coord: coord, sink: sink, log: log}
}

func (e *Executor) Run(ctx context.Context, in <-chan types.ArbitrageRoute) {
	t := time.NewTicker(e.cfg.ExecutorTick())
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			e.coord.StopAll()
			return
		case <-t.C:
			e.drain(ctx, in)
		}
	}
}

// drain empties the queue without blocking the tick.
func (e *Executor) drain(ctx context.Context, in <-chan types.ArbitrageRoute) {
	for {
		select {
		case route := <-in:
			e.dispatch(ctx, route)
		default:
			return
		}
	}
}

func (e *Executor) dispatch(ctx context.Context, route types.ArbitrageRoute) {
	if route.Expired(time.Now()) {
		e.log.Debug("skipping expired route", zap.String("route", route.ID))
		return
	}
	if e.cfg.DryRun {
		e.log.Info("dry run: would execute route",
			zap.String("route", route.ID),
			zap.Int("hops", len(route.Steps)),
			zap.Uint64("expected_profit", route.ExpectedProfit),
			zap.Float64("profit_pct", route.ProfitPct))
		return
	}

	go func() {
		res, err := e.coord.Execute(ctx, &route)
		if err != nil {
			return // rejection already logged and counted
		}
		if e.sink != nil {
			if err := e.sink.PublishResult(ctx, res); err != nil {
				e.log.Warn("result publish failed", zap.String("trade", res.TradeID), zap.Error(err))
			}
		}
	}()
}
