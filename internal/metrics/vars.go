package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	PoolsTracked = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "arb_pools_tracked",
		Help: "Pools currently held in the fresh price cache",
	})

	RoutesFound = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arb_routes_found_total",
		Help: "Profitable routes emitted by the detector",
	})

	RoutesDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arb_routes_dropped_total",
		Help: "Routes dropped because the execution queue was full",
	})

	RiskRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "arb_risk_rejections_total",
		Help: "Routes rejected by the risk gates, by reason",
	}, []string{"reason"})

	TradesExecuted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "arb_trades_total",
		Help: "Terminal trades by status",
	}, []string{"status"})

	DecodeErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arb_decode_errors_total",
		Help: "Pool account decode failures",
	})

	RefreshErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arb_refresh_errors_total",
		Help: "Reserve refresh failures",
	})

	BestProfitPct = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "arb_best_profit_pct",
		Help: "Profit percentage of the best route in the latest detection cycle",
	})

	ExecutionLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "arb_execution_latency_seconds",
		Help:    "Time from route pickup to terminal trade status",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	})

	NetProfit = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "arb_daily_net_profit_lamports",
		Help: "Net profit accumulated today, in lamports",
	})
)

func init() {
	prometheus.MustRegister(
		PoolsTracked,
		RoutesFound,
		RoutesDropped,
		RiskRejections,
		TradesExecuted,
		DecodeErrors,
		RefreshErrors,
		BestProfitPct,
		ExecutionLatency,
		NetProfit,
	)
}
