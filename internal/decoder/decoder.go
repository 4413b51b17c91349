// Package decoder turns raw pool account buffers into typed PoolState using
// the declarative layouts registered per DEX kind.
package decoder

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"

	"github.com/you/sol-arb-bot/internal/dex/core"
	"github.com/you/sol-arb-bot/internal/types"
)

var (
	ErrTruncated        = errors.New("pool account buffer truncated")
	ErrBadDiscriminator = errors.New("pool account discriminator mismatch")
)

// Decode validates the discriminator and buffer length, then reads every
// field at its declared offset. It never reads past the end of raw.
func Decode(kind types.DexKind, raw []byte) (types.PoolState, error) {
	v := core.Get(kind)
	if v == nil {
		return types.PoolState{}, fmt.Errorf("unregistered dex kind %q", kind)
	}
	l := v.Layout

	if len(raw) < 8 {
		return types.PoolState{}, fmt.Errorf("%w: %d bytes, need at least 8 for discriminator", ErrTruncated, len(raw))
	}
	if !bytes.Equal(raw[:8], l.Discriminator[:]) {
		return types.PoolState{}, fmt.Errorf("%w: got %x, want %x", ErrBadDiscriminator, raw[:8], l.Discriminator[:])
	}
	if len(raw) < l.MinSize {
		return types.PoolState{}, fmt.Errorf("%w: %d bytes, schema %s needs %d", ErrTruncated, len(raw), kind, l.MinSize)
	}

	pool := types.PoolState{
		Kind:           kind,
		TokenA:         types.Token{Mint: readPubkey(raw, l.MintA)},
		TokenB:         types.Token{Mint: readPubkey(raw, l.MintB)},
		VaultA:         readPubkey(raw, l.VaultA),
		VaultB:         readPubkey(raw, l.VaultB),
		FeeBps:         uint32(readU16(raw, l.FeeRate)),
		ProtocolFeeBps: uint32(readU16(raw, l.ProtocolFeeRate)),
		Liquidity:      readU128(raw, l.Liquidity),
		Lifecycle:      types.PoolActive,
	}
	// A pool with zero in-range liquidity cannot fill anything; treat as paused
	// until a refresh proves otherwise.
	if pool.Liquidity.Sign() == 0 {
		pool.Lifecycle = types.PoolPaused
	}
	return pool, nil
}

// Identify matches raw against every registered layout. Foreign accounts are
// reported as not-a-pool rather than an error so bulk scans can skip them.
func Identify(raw []byte) (types.DexKind, bool) {
	if len(raw) < 8 {
		return "", false
	}
	for _, v := range core.All() {
		if len(raw) >= v.Layout.MinSize && bytes.Equal(raw[:8], v.Layout.Discriminator[:]) {
			return v.Kind, true
		}
	}
	return "", false
}

// IsPoolAccount is the cheap discriminator+length filter applied before a
// full decode.
func IsPoolAccount(raw []byte) bool {
	_, ok := Identify(raw)
	return ok
}

// RefreshReserves overwrites the reserves with freshly fetched vault balances.
// Mandatory before quoting: the embedded pool fields are structural metadata,
// not current reserves.
func RefreshReserves(pool types.PoolState, vaultABalance, vaultBBalance uint64) types.PoolState {
	pool.ReserveA = vaultABalance
	pool.ReserveB = vaultBBalance
	return pool
}

func readPubkey(raw []byte, off int) solana.PublicKey {
	if off < 0 {
		return solana.PublicKey{}
	}
	return solana.PublicKeyFromBytes(raw[off : off+32])
}

func readU16(raw []byte, off int) uint16 {
	if off < 0 {
		return 0
	}
	return binary.LittleEndian.Uint16(raw[off : off+2])
}

func readU128(raw []byte, off int) *big.Int {
	if off < 0 {
		return new(big.Int)
	}
	// little-endian on chain, big.Int wants big-endian
	be := make([]byte, 16)
	for i := 0; i < 16; i++ {
		be[15-i] = raw[off+i]
	}
	return new(big.Int).SetBytes(be)
}
