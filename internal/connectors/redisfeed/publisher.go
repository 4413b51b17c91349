// Package redisfeed publishes found routes and terminal trade outcomes to
// redis streams for external consumers.
package redisfeed

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/you/sol-arb-bot/internal/config"
	"github.com/you/sol-arb-bot/internal/types"
)

type Publisher struct {
	rdb    *redis.Client
	stream string
}

func NewPublisher(cfg *config.Config) *Publisher {
	return &Publisher{
		rdb:    redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr}),
		stream: cfg.Redis.Stream,
	}
}

func (p *Publisher) PublishRoute(ctx context.Context, route types.ArbitrageRoute) error {
	return p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"kind":            "route",
			"route_id":        route.ID,
			"hops":            len(route.Steps),
			"expected_profit": route.ExpectedProfit,
			"profit_pct":      route.ProfitPct,
			"risk":            route.RiskScore,
			"confidence":      route.ConfidenceScore,
			"ts_ms":           route.Timestamp.UnixMilli(),
		},
	}).Err()
}

func (p *Publisher) PublishResult(ctx context.Context, res types.ExecutionResult) error {
	return p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"kind":      "trade",
			"trade_id":  res.TradeID,
			"route_id":  res.RouteID,
			"status":    string(res.Status),
			"signature": res.Signature.String(),
			"profit":    res.Profit,
			"err":       res.Err,
			"ts_ms":     res.Ts.UnixMilli(),
		},
	}).Err()
}

func (p *Publisher) Close() error { return p.rdb.Close() }
