// Package marketdata periodically refreshes configured pools from the chain
// and publishes decoded snapshots to the detection loop.
package marketdata

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/you/sol-arb-bot/internal/config"
	"github.com/you/sol-arb-bot/internal/decoder"
	"github.com/you/sol-arb-bot/internal/ledger"
	"github.com/you/sol-arb-bot/internal/metrics"
	"github.com/you/sol-arb-bot/internal/tokenmeta"
	"github.com/you/sol-arb-bot/internal/types"
)

// SPL token account: amount is the u64 after mint and owner.
const (
	tokenAccountSize  = 165
	tokenAmountOffset = 64
)

type poolRef struct {
	addr solana.PublicKey
	kind types.DexKind
}

type Runner struct {
	cfg    *config.Config
	reader ledger.Reader
	meta   *tokenmeta.Service
	log    *zap.Logger
	refs   []poolRef
}

func NewRunner(cfg *config.Config, reader ledger.Reader, meta *tokenmeta.Service, log *zap.Logger) *Runner {
	r := &Runner{cfg: cfg, reader: reader, meta: meta, log: log}
	for _, p := range cfg.Pools {
		pk, err := solana.PublicKeyFromBase58(p.Address)
		if err != nil {
			log.Warn("skipping pool with bad address", zap.String("address", p.Address), zap.Error(err))
			continue
		}
		r.refs = append(r.refs, poolRef{addr: pk, kind: p.Dex})
	}
	return r
}

// Run refreshes on every tick and on every wake nudge from the chain feed.
// A full snapshot channel drops the snapshot rather than stalling.
func (r *Runner) Run(ctx context.Context, out chan<- []types.PoolState, wake <-chan struct{}) {
	t := time.NewTicker(r.cfg.RefreshInterval())
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-wake:
		case <-t.C:
		}

		pools := r.refresh(ctx)
		if len(pools) == 0 {
			continue
		}
		select {
		case out <- pools:
		default:
			r.log.Warn("snapshot channel full; dropping")
		}
	}
}

// refresh batch-fetches the pool accounts, decodes them, then batch-fetches
// the vault token accounts so quotes run against live reserves.
func (r *Runner) refresh(ctx context.Context) []types.PoolState {
	if len(r.refs) == 0 {
		return nil
	}

	addrs := make([]solana.PublicKey, len(r.refs))
	for i, ref := range r.refs {
		addrs[i] = ref.addr
	}
	raws, err := r.reader.MultipleAccountData(ctx, addrs...)
	if err != nil {
		metrics.RefreshErrors.Inc()
		r.log.Warn("pool account fetch failed", zap.Error(err))
		return nil
	}

	pools := make([]types.PoolState, 0, len(r.refs))
	var vaults []solana.PublicKey
	for i, raw := range raws {
		if raw == nil {
			continue
		}
		pool, err := decoder.Decode(r.refs[i].kind, raw)
		if err != nil {
			metrics.DecodeErrors.Inc()
			r.log.Debug("pool decode failed",
				zap.String("pool", r.refs[i].addr.String()), zap.Error(err))
			continue
		}
		pool.ID = r.refs[i].addr
		pools = append(pools, pool)
		vaults = append(vaults, pool.VaultA, pool.VaultB)
	}
	if len(pools) == 0 {
		return nil
	}

	vaultRaws, err := r.reader.MultipleAccountData(ctx, vaults...)
	if err != nil {
		metrics.RefreshErrors.Inc()
		r.log.Warn("vault fetch failed", zap.Error(err))
		return nil
	}

	out := pools[:0]
	for i := range pools {
		balA, okA := tokenAmount(vaultRaws[2*i])
		balB, okB := tokenAmount(vaultRaws[2*i+1])
		if !okA || !okB {
			metrics.RefreshErrors.Inc()
			continue
		}
		pool := decoder.RefreshReserves(pools[i], balA, balB)
		if err := r.meta.Fill(ctx, &pool); err != nil {
			r.log.Debug("token metadata unresolved", zap.String("pool", pool.ID.String()), zap.Error(err))
			continue
		}
		out = append(out, pool)
	}
	return out
}

func tokenAmount(raw []byte) (uint64, bool) {
	if len(raw) < tokenAccountSize {
		return 0, false
	}
	return binary.LittleEndian.Uint64(raw[tokenAmountOffset : tokenAmountOffset+8]), true
}
