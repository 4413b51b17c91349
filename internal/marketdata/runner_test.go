package marketdata

import (
	"context"
	"encoding/binary"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/you/sol-arb-bot/internal/config"
	"github.com/you/sol-arb-bot/internal/dex/core"
	"github.com/you/sol-arb-bot/internal/dex/orca"
	"github.com/you/sol-arb-bot/internal/dex/raydium"
	"github.com/you/sol-arb-bot/internal/ledger"
	"github.com/you/sol-arb-bot/internal/tokenmeta"
	"github.com/you/sol-arb-bot/internal/types"
)

func init() {
	if core.Get(types.DexRaydiumV4) == nil {
		if err := core.Register(raydium.Venue()); err != nil {
			panic(err)
		}
	}
	if core.Get(types.DexOrcaWhirlpool) == nil {
		if err := core.Register(orca.Venue()); err != nil {
			panic(err)
		}
	}
}

type stubReader struct {
	accounts map[solana.PublicKey][]byte
}

func (s *stubReader) AccountData(_ context.Context, pk solana.PublicKey) ([]byte, error) {
	raw, ok := s.accounts[pk]
	if !ok {
		return nil, ledger.ErrAccountNotFound
	}
	return raw, nil
}

func (s *stubReader) MultipleAccountData(_ context.Context, pks ...solana.PublicKey) ([][]byte, error) {
	out := make([][]byte, len(pks))
	for i, pk := range pks {
		out[i] = s.accounts[pk]
	}
	return out, nil
}

func (s *stubReader) TokenBalance(context.Context, solana.PublicKey) (uint64, error) { return 0, nil }
func (s *stubReader) ProgramAccounts(context.Context, solana.PublicKey, uint64) ([]ledger.KeyedAccount, error) {
	return nil, nil
}
func (s *stubReader) LatestBlockhash(context.Context) (solana.Hash, error) {
	return solana.Hash{}, nil
}

func raydiumAccount(mintA, mintB, vaultA, vaultB solana.PublicKey) []byte {
	l := raydium.Layout
	raw := make([]byte, l.MinSize)
	copy(raw[0:8], l.Discriminator[:])
	copy(raw[l.MintA:], mintA[:])
	copy(raw[l.MintB:], mintB[:])
	copy(raw[l.VaultA:], vaultA[:])
	copy(raw[l.VaultB:], vaultB[:])
	binary.LittleEndian.PutUint16(raw[l.FeeRate:], 25)
	binary.LittleEndian.PutUint64(raw[l.Liquidity:], 1_000_000)
	return raw
}

func tokenAccountRaw(amount uint64) []byte {
	raw := make([]byte, tokenAccountSize)
	binary.LittleEndian.PutUint64(raw[tokenAmountOffset:], amount)
	return raw
}

func mintAccountRaw(decimals uint8) []byte {
	raw := make([]byte, 82)
	raw[44] = decimals
	return raw
}

func TestRefresh(t *testing.T) {
	poolPK := solana.NewWallet().PublicKey()
	mintA := solana.NewWallet().PublicKey()
	mintB := solana.NewWallet().PublicKey()
	vaultA := solana.NewWallet().PublicKey()
	vaultB := solana.NewWallet().PublicKey()

	reader := &stubReader{accounts: map[solana.PublicKey][]byte{
		poolPK: raydiumAccount(mintA, mintB, vaultA, vaultB),
		vaultA: tokenAccountRaw(1_000_000_000),
		vaultB: tokenAccountRaw(98_000_000),
		mintA:  mintAccountRaw(9),
		mintB:  mintAccountRaw(6),
	}}

	cfg := config.Default()
	cfg.Pools = []config.PoolEntry{{Address: poolPK.String(), Dex: types.DexRaydiumV4}}

	meta := tokenmeta.NewService(reader, nil, zap.NewNop())
	r := NewRunner(cfg, reader, meta, zap.NewNop())

	pools := r.refresh(context.Background())
	require.Len(t, pools, 1)

	p := pools[0]
	assert.Equal(t, poolPK, p.ID)
	assert.Equal(t, uint64(1_000_000_000), p.ReserveA)
	assert.Equal(t, uint64(98_000_000), p.ReserveB)
	assert.Equal(t, uint8(9), p.TokenA.Decimals)
	assert.Equal(t, uint8(6), p.TokenB.Decimals)
}

func TestRefresh_SkipsBadAccounts(t *testing.T) {
	good := solana.NewWallet().PublicKey()
	bad := solana.NewWallet().PublicKey()
	missing := solana.NewWallet().PublicKey()
	mintA := solana.NewWallet().PublicKey()
	mintB := solana.NewWallet().PublicKey()
	vaultA := solana.NewWallet().PublicKey()
	vaultB := solana.NewWallet().PublicKey()

	reader := &stubReader{accounts: map[solana.PublicKey][]byte{
		good:   raydiumAccount(mintA, mintB, vaultA, vaultB),
		bad:    make([]byte, 16), // truncated garbage
		vaultA: tokenAccountRaw(5),
		vaultB: tokenAccountRaw(7),
		mintA:  mintAccountRaw(9),
		mintB:  mintAccountRaw(9),
	}}

	cfg := config.Default()
	cfg.Pools = []config.PoolEntry{
		{Address: good.String(), Dex: types.DexRaydiumV4},
		{Address: bad.String(), Dex: types.DexRaydiumV4},
		{Address: missing.String(), Dex: types.DexOrcaWhirlpool},
	}

	meta := tokenmeta.NewService(reader, nil, zap.NewNop())
	r := NewRunner(cfg, reader, meta, zap.NewNop())

	pools := r.refresh(context.Background())
	require.Len(t, pools, 1)
	assert.Equal(t, good, pools[0].ID)
}

func TestRun_PublishesSnapshots(t *testing.T) {
	poolPK := solana.NewWallet().PublicKey()
	mintA := solana.NewWallet().PublicKey()
	mintB := solana.NewWallet().PublicKey()
	vaultA := solana.NewWallet().PublicKey()
	vaultB := solana.NewWallet().PublicKey()

	reader := &stubReader{accounts: map[solana.PublicKey][]byte{
		poolPK: raydiumAccount(mintA, mintB, vaultA, vaultB),
		vaultA: tokenAccountRaw(1),
		vaultB: tokenAccountRaw(2),
		mintA:  mintAccountRaw(9),
		mintB:  mintAccountRaw(9),
	}}

	cfg := config.Default()
	cfg.Timings.RefreshIntervalMs = 10
	cfg.Pools = []config.PoolEntry{{Address: poolPK.String(), Dex: types.DexRaydiumV4}}

	meta := tokenmeta.NewService(reader, nil, zap.NewNop())
	r := NewRunner(cfg, reader, meta, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := make(chan []types.PoolState, 1)
	go r.Run(ctx, out, nil)

	select {
	case pools := <-out:
		require.Len(t, pools, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot published")
	}
}
