// Package bot wires the components together: data refresh feeding the
// detection loop, the detection loop feeding the execution loop, and the
// ambient servers around them.
package bot

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/you/sol-arb-bot/internal/config"
	"github.com/you/sol-arb-bot/internal/connectors/chainfeed"
	"github.com/you/sol-arb-bot/internal/connectors/redisfeed"
	"github.com/you/sol-arb-bot/internal/detector"
	"github.com/you/sol-arb-bot/internal/dex/core"
	"github.com/you/sol-arb-bot/internal/dex/orca"
	"github.com/you/sol-arb-bot/internal/dex/raydium"
	"github.com/you/sol-arb-bot/internal/execution"
	"github.com/you/sol-arb-bot/internal/ledger"
	"github.com/you/sol-arb-bot/internal/marketdata"
	"github.com/you/sol-arb-bot/internal/metrics"
	"github.com/you/sol-arb-bot/internal/risk"
	"github.com/you/sol-arb-bot/internal/tokenmeta"
	"github.com/you/sol-arb-bot/internal/types"
)

type Bot struct {
	cfg *config.Config
	log *zap.Logger
}

func New(cfg *config.Config, log *zap.Logger) *Bot {
	return &Bot{cfg: cfg, log: log}
}

// RegisterVenues installs the configured venue implementations into the
// registry. Safe to call once per process.
func RegisterVenues(kinds []types.DexKind) error {
	for _, kind := range kinds {
		if core.Get(kind) != nil {
			continue
		}
		var err error
		switch kind {
		case types.DexRaydiumV4:
			err = core.Register(raydium.Venue())
		case types.DexOrcaWhirlpool:
			err = core.Register(orca.Venue())
		default:
			err = fmt.Errorf("unknown dex kind %q", kind)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (b *Bot) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigs
		b.log.Warn("received signal, shutting down...")
		cancel()
	}()

	if err := RegisterVenues(b.cfg.DEX.Venues); err != nil {
		return err
	}
	if len(b.cfg.Pools) == 0 {
		return fmt.Errorf("no pools configured")
	}

	var wallet solana.PrivateKey
	if b.cfg.Chain.WalletPK != "" {
		var err error
		wallet, err = solana.PrivateKeyFromBase58(b.cfg.Chain.WalletPK)
		if err != nil {
			return fmt.Errorf("parse wallet key: %w", err)
		}
	} else {
		if !b.cfg.DryRun {
			return fmt.Errorf("wallet_pk is required outside dry-run")
		}
		wallet = solana.NewWallet().PrivateKey
	}

	metrics.Serve(ctx, b.cfg.Metrics.Listen, nil, b.log)

	client := ledger.NewClient(b.cfg.Chain.RPCHTTP)
	meta := tokenmeta.NewService(client, b.cfg.Tokens, b.log)
	md := marketdata.NewRunner(b.cfg, client, meta, b.log)
	det := detector.New(b.cfg, b.log)
	engine := risk.NewEngine(b.cfg.Risk)
	coord := execution.NewCoordinator(b.cfg, engine, client, client, det.Cache(), wallet, 0, b.log)

	var feed *redisfeed.Publisher
	var sink execution.ResultSink
	if b.cfg.Redis.Addr != "" {
		feed = redisfeed.NewPublisher(b.cfg)
		defer feed.Close()
		sink = feed
	}
	exec := execution.NewExecutor(b.cfg, coord, sink, b.log)

	snapCh := make(chan []types.PoolState, 64)
	foundCh := make(chan types.ArbitrageRoute, 64)
	execCh := make(chan types.ArbitrageRoute, 64)
	wake := make(chan struct{}, 1)

	go md.Run(ctx, snapCh, wake)
	go det.Run(ctx, snapCh, foundCh)
	go b.forwardRoutes(ctx, foundCh, execCh, feed)
	go exec.Run(ctx, execCh)

	programs := make([]solana.PublicKey, 0, len(b.cfg.DEX.Venues))
	for _, v := range core.Enabled(b.cfg.DEX.Venues) {
		programs = append(programs, v.Program)
	}
	cf := chainfeed.New(b.cfg.Chain.RPCWS, programs, b.log)
	go cf.Run(ctx, wake)

	if b.cfg.DryRun {
		b.log.Warn("DRY-RUN: no transactions will be sent")
	}
	b.log.Info("bot started",
		zap.Int("pools", len(b.cfg.Pools)),
		zap.Int("venues", len(programs)),
		zap.Bool("dry_run", b.cfg.DryRun))

	<-ctx.Done()
	b.log.Info("bot finished")
	return nil
}

// forwardRoutes hands found routes to the execution queue and mirrors them to
// the redis feed when one is configured.
func (b *Bot) forwardRoutes(ctx context.Context, in <-chan types.ArbitrageRoute, out chan<- types.ArbitrageRoute, feed *redisfeed.Publisher) {
	for {
		select {
		case <-ctx.Done():
			return
		case route := <-in:
			if feed != nil {
				if err := feed.PublishRoute(ctx, route); err != nil {
					b.log.Warn("route publish failed", zap.String("route", route.ID), zap.Error(err))
				}
			}
			select {
			case out <- route:
			default:
				metrics.RoutesDropped.Inc()
				b.log.Warn("execution queue full; dropping route", zap.String("route", route.ID))
			}
		}
	}
}

func NewLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.MessageKey = "msg"
	cfg.EncoderConfig.CallerKey = "caller"
	cfg.EncoderConfig.StacktraceKey = "stacktrace"
	cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339)
	return cfg.Build()
}
