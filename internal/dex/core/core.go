package core

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/you/sol-arb-bot/internal/types"
)

// PoolLayout declares where each field lives inside a pool account buffer.
// Offsets are validated once at registration instead of being re-checked on
// every read.
type PoolLayout struct {
	Discriminator [8]byte
	MinSize       int

	MintA  int // 32 bytes
	MintB  int // 32 bytes
	VaultA int // 32 bytes
	VaultB int // 32 bytes

	FeeRate         int // u16 LE, basis points
	ProtocolFeeRate int // u16 LE, basis points
	Liquidity       int // u128 LE
	SqrtPrice       int // u128 LE
	TickIndex       int // i32 LE, -1 when the schema has no tick field
}

func (l PoolLayout) Validate() error {
	check := func(name string, off, width int) error {
		if off < 0 {
			return nil // field absent from this schema
		}
		if off+width > l.MinSize {
			return fmt.Errorf("layout field %s: offset %d width %d exceeds min size %d", name, off, width, l.MinSize)
		}
		return nil
	}
	for _, f := range []struct {
		name  string
		off   int
		width int
	}{
		{"mint_a", l.MintA, 32},
		{"mint_b", l.MintB, 32},
		{"vault_a", l.VaultA, 32},
		{"vault_b", l.VaultB, 32},
		{"fee_rate", l.FeeRate, 2},
		{"protocol_fee_rate", l.ProtocolFeeRate, 2},
		{"liquidity", l.Liquidity, 16},
		{"sqrt_price", l.SqrtPrice, 16},
		{"tick_index", l.TickIndex, 4},
	} {
		if err := check(f.name, f.off, f.width); err != nil {
			return err
		}
	}
	return nil
}

// SwapParams carries everything a venue needs to build one protected swap leg.
type SwapParams struct {
	Pool         *types.PoolState
	TokenIn      solana.PublicKey
	TokenOut     solana.PublicKey
	UserSource   solana.PublicKey
	UserDest     solana.PublicKey
	Owner        solana.PublicKey
	AmountIn     uint64
	MinAmountOut uint64
}

// SwapBuilder builds the venue-specific swap instruction. MinAmountOut is the
// on-chain protection floor; the unprotected quote amount never goes on the wire.
type SwapBuilder interface {
	BuildSwapInstruction(p SwapParams) (solana.Instruction, error)
}

// Venue bundles one DEX kind's capabilities: program id, account layout and
// instruction builder, selected by tagged kind rather than runtime inspection.
type Venue struct {
	Kind    types.DexKind
	Program solana.PublicKey
	Layout  PoolLayout
	Builder SwapBuilder
}
