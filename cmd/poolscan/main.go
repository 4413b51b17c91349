// poolscan lists pool accounts owned by the configured DEX programs. It is
// the discovery companion to arb-bot: scan, pick pools, paste them into the
// config.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/you/sol-arb-bot/internal/bot"
	"github.com/you/sol-arb-bot/internal/decoder"
	"github.com/you/sol-arb-bot/internal/dex/core"
	"github.com/you/sol-arb-bot/internal/ledger"
	"github.com/you/sol-arb-bot/internal/types"
)

func main() {
	rpcURL := flag.String("rpc", "https://api.mainnet-beta.solana.com", "rpc endpoint")
	dex := flag.String("dex", "", "scan a single dex kind (raydium_v4, orca_whirlpool); empty scans all")
	limit := flag.Int("limit", 50, "max pools to print per dex")
	timeout := flag.Duration("timeout", 2*time.Minute, "scan timeout")
	flag.Parse()

	logger, err := bot.NewLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	kinds := []types.DexKind{types.DexRaydiumV4, types.DexOrcaWhirlpool}
	if *dex != "" {
		kinds = []types.DexKind{types.DexKind(*dex)}
	}
	if err := bot.RegisterVenues(kinds); err != nil {
		logger.Fatal("venue registration failed", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client := ledger.NewClient(*rpcURL)
	exit := 0
	for _, kind := range kinds {
		if err := scan(ctx, client, kind, *limit); err != nil {
			logger.Error("scan failed", zap.String("dex", string(kind)), zap.Error(err))
			exit = 1
		}
	}
	os.Exit(exit)
}

func scan(ctx context.Context, client *ledger.Client, kind types.DexKind, limit int) error {
	venue := core.Get(kind)
	if venue == nil {
		return fmt.Errorf("unregistered dex kind %q", kind)
	}

	accounts, err := client.ProgramAccounts(ctx, venue.Program, uint64(venue.Layout.MinSize))
	if err != nil {
		return err
	}

	fmt.Printf("%s (%s): %d accounts\n", kind, venue.Program, len(accounts))
	printed := 0
	for _, acc := range accounts {
		if printed >= limit {
			fmt.Printf("  ... and %d more\n", len(accounts)-printed)
			break
		}
		pool, err := decoder.Decode(kind, acc.Data)
		if err != nil {
			continue
		}
		pool.ID = acc.Pubkey
		fmt.Printf("  %s  %s/%s  fee=%dbps  liquidity=%s  %s\n",
			pool.ID, pool.TokenA.Mint, pool.TokenB.Mint,
			pool.FeeBps, pool.Liquidity, pool.Lifecycle)
		printed++
	}
	return nil
}
