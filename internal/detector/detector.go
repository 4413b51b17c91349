// Package detector searches fresh pool states for profitable cycles across
// distinct venues and scores them for risk and confidence.
package detector

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/you/sol-arb-bot/internal/config"
	"github.com/you/sol-arb-bot/internal/metrics"
	"github.com/you/sol-arb-bot/internal/quote"
	"github.com/you/sol-arb-bot/internal/types"
)

const (
	// window within which a route is considered executable before it expires
	routeExecWindow = 30 * time.Second
	// flat per-leg fee estimate in lamports
	stepGasLamports = 5_000
)

type Detector struct {
	cfg   *config.Config
	cache *PriceCache
	log   *zap.Logger
}

func New(cfg *config.Config, log *zap.Logger) *Detector {
	return &Detector{
		cfg:   cfg,
		cache: NewPriceCache(cfg.PriceTTL()),
		log:   log,
	}
}

// Cache exposes the price cache so the coordinator can look up full pool
// state for the routes it executes.
func (d *Detector) Cache() *PriceCache { return d.cache }

// Observe folds a refreshed pool snapshot into the price cache.
func (d *Detector) Observe(pools []types.PoolState, now time.Time) {
	d.cache.Put(pools, now)
}

// Detect runs one search cycle over the fresh pools: two-hop pairs first,
// then the bounded multi-hop graph walk. Results are ordered best first,
// highest profit percentage then lowest risk, with one route per pool
// cycle regardless of how many rotations the search visited.
func (d *Detector) Detect(now time.Time) []types.ArbitrageRoute {
	pools := d.cache.Fresh(now)
	metrics.PoolsTracked.Set(float64(len(pools)))
	if len(pools) < 2 {
		return nil
	}

	routes := d.twoHop(pools, now)
	if d.cfg.Trade.MaxHops >= 3 {
		routes = append(routes, d.multiHop(pools, now)...)
	}

	sort.SliceStable(routes, func(i, j int) bool {
		if routes[i].ProfitPct != routes[j].ProfitPct {
			return routes[i].ProfitPct > routes[j].ProfitPct
		}
		return routes[i].RiskScore < routes[j].RiskScore
	})
	return dedupeCycles(routes)
}

// dedupeCycles collapses rotations and re-orientations of the same pool
// cycle, which the pair scan and the graph walk both revisit. Routes arrive
// ordered best first, so the first occurrence of each cycle wins.
func dedupeCycles(routes []types.ArbitrageRoute) []types.ArbitrageRoute {
	seen := make(map[string]struct{}, len(routes))
	out := routes[:0]
	for _, r := range routes {
		key := cycleKey(r.Steps)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}

func cycleKey(steps []types.ArbitrageStep) string {
	ids := make([]string, len(steps))
	for i, s := range steps {
		ids[i] = s.PoolID.String()
	}
	sort.Strings(ids)
	return strings.Join(ids, "/")
}

// twoHop pairs pools that share both mints, requiring the legs to come from
// different venues, and simulates buy-then-sell in both directions.
func (d *Detector) twoHop(pools []types.PoolState, now time.Time) []types.ArbitrageRoute {
	groups := make(map[string][]int)
	for i, p := range pools {
		groups[pairKey(p.TokenA.Mint, p.TokenB.Mint)] = append(groups[pairKey(p.TokenA.Mint, p.TokenB.Mint)], i)
	}

	var routes []types.ArbitrageRoute
	for _, idx := range groups {
		if len(idx) < 2 {
			continue
		}
		for _, i := range idx {
			for _, j := range idx {
				if i == j || pools[i].Kind == pools[j].Kind {
					continue
				}
				for _, start := range []solana.PublicKey{pools[i].TokenA.Mint, pools[i].TokenB.Mint} {
					if r, ok := d.tryCycle([]*types.PoolState{&pools[i], &pools[j]}, start, now); ok {
						routes = append(routes, r)
					}
				}
			}
		}
	}
	return routes
}

// multiHop walks the token graph depth-first from every token, bounded by
// the configured hop count. A walk that cannot close a profitable cycle
// yields nothing.
func (d *Detector) multiHop(pools []types.PoolState, now time.Time) []types.ArbitrageRoute {
	byToken := make(map[solana.PublicKey][]*types.PoolState)
	for i := range pools {
		p := &pools[i]
		byToken[p.TokenA.Mint] = append(byToken[p.TokenA.Mint], p)
		byToken[p.TokenB.Mint] = append(byToken[p.TokenB.Mint], p)
	}

	var routes []types.ArbitrageRoute
	for start := range byToken {
		path := make([]*types.PoolState, 0, d.cfg.Trade.MaxHops)
		used := make(map[solana.PublicKey]bool)
		d.walk(byToken, start, start, path, used, now, &routes)
	}
	return routes
}

func (d *Detector) walk(byToken map[solana.PublicKey][]*types.PoolState, start, at solana.PublicKey,
	path []*types.PoolState, used map[solana.PublicKey]bool, now time.Time, routes *[]types.ArbitrageRoute) {

	if len(path) >= 3 && at.Equals(start) {
		if r, ok := d.tryCycle(path, start, now); ok {
			*routes = append(*routes, r)
		}
		return
	}
	if len(path) >= d.cfg.Trade.MaxHops {
		return
	}

	for _, p := range byToken[at] {
		if used[p.ID] {
			continue
		}
		next, ok := p.OtherSide(at)
		if !ok {
			continue
		}
		// closing the cycle early as a two-hop is the twoHop pass's job
		if next.Mint.Equals(start) && len(path) < 2 {
			continue
		}
		used[p.ID] = true
		d.walk(byToken, start, next.Mint, append(path, p), used, now, routes)
		delete(used, p.ID)
	}
}

// tryCycle quotes the legs in order and builds a scored route when the cycle
// closes with positive profit and passes the emission thresholds.
func (d *Detector) tryCycle(path []*types.PoolState, start solana.PublicKey, now time.Time) (types.ArbitrageRoute, bool) {
	kinds := make(map[types.DexKind]bool, len(path))
	for _, p := range path {
		kinds[p.Kind] = true
	}
	if len(kinds) < 2 {
		return types.ArbitrageRoute{}, false
	}

	amountIn := d.cfg.Trade.BaseAmount
	tokenIn := start
	steps := make([]types.ArbitrageStep, 0, len(path))
	worstSlippage := 0.0
	maxSlip := d.cfg.Risk.MaxSlippagePct / 100

	for _, p := range path {
		q, err := quote.Quote(p, tokenIn, amountIn, d.cfg.Trade.SlippageBps)
		if err != nil {
			return types.ArbitrageRoute{}, false
		}
		in, _ := p.OtherSide(q.TokenOut)
		out, _ := p.OtherSide(tokenIn)
		slip := slippageEstimate(q.AmountIn, p.Liquidity, maxSlip)
		if slip > worstSlippage {
			worstSlippage = slip
		}
		steps = append(steps, types.ArbitrageStep{
			Kind:             p.Kind,
			PoolID:           p.ID,
			TokenIn:          in,
			TokenOut:         out,
			AmountIn:         q.AmountIn,
			AmountOut:        q.AmountOut,
			MinAmountOut:     q.MinAmountOut,
			FeeAmount:        q.FeeAmount,
			SlippageEstimate: slip,
			GasEstimate:      stepGasLamports,
		})
		tokenIn = q.TokenOut
		amountIn = q.AmountOut
	}

	if !tokenIn.Equals(start) {
		return types.ArbitrageRoute{}, false
	}
	profit := int64(amountIn) - int64(d.cfg.Trade.BaseAmount)
	if profit <= 0 {
		return types.ArbitrageRoute{}, false
	}

	profitPct := float64(profit) / float64(d.cfg.Trade.BaseAmount) * 100
	risk := riskScore(profitPct, worstSlippage)
	conf := confidenceScore(profitPct, worstSlippage)

	if profitPct < d.cfg.Risk.MinProfitPct || risk > d.cfg.Risk.MaxRiskScore || conf < d.cfg.Risk.MinConfidenceScore {
		return types.ArbitrageRoute{}, false
	}

	return types.ArbitrageRoute{
		ID:                    uuid.NewString(),
		Steps:                 steps,
		ExpectedProfit:        uint64(profit),
		ProfitPct:             profitPct,
		RiskScore:             risk,
		ConfidenceScore:       conf,
		ExecutionTimeEstimate: routeExecWindow,
		Timestamp:             now,
	}, true
}

// Run consumes pool snapshots and periodically publishes the routes of each
// detection cycle. A full output channel drops routes rather than stalling
// the loop.
func (d *Detector) Run(ctx context.Context, in <-chan []types.PoolState, out chan<- types.ArbitrageRoute) {
	t := time.NewTicker(d.cfg.DetectorTick())
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case pools := <-in:
			d.Observe(pools, time.Now())
		case <-t.C:
			routes := d.Detect(time.Now())
			if len(routes) == 0 {
				continue
			}
			metrics.BestProfitPct.Set(routes[0].ProfitPct)
			for _, r := range routes {
				select {
				case out <- r:
					metrics.RoutesFound.Inc()
					d.log.Info("route found",
						zap.String("route", r.ID),
						zap.Int("hops", len(r.Steps)),
						zap.Float64("profit_pct", r.ProfitPct),
						zap.Float64("risk", r.RiskScore),
						zap.Float64("confidence", r.ConfidenceScore))
				default:
					metrics.RoutesDropped.Inc()
					d.log.Warn("route channel full; dropping", zap.String("route", r.ID))
				}
			}
		}
	}
}

func pairKey(a, b solana.PublicKey) string {
	if a.String() < b.String() {
		return a.String() + "/" + b.String()
	}
	return b.String() + "/" + a.String()
}
