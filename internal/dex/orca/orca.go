// Package orca implements the Orca Whirlpool venue: pool account layout and
// swap instruction builder.
package orca

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"

	"github.com/you/sol-arb-bot/internal/dex/core"
	"github.com/you/sol-arb-bot/internal/types"
)

var ProgramID = solana.MustPublicKeyFromBase58("whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc")

// anchor sighash of the whirlpool swap instruction
var swapDiscriminator = [8]byte{0xf8, 0xc6, 0x9e, 0x91, 0xe1, 0x75, 0x87, 0xc8}

// Field offsets follow the serialized whirlpool account; the fee rate sits
// after the tick array bitmap and fee growth accumulators.
var Layout = core.PoolLayout{
	Discriminator:   [8]byte{0x0b, 0x0b, 0x0b, 0x0b, 0x0b, 0x0b, 0x0b, 0x0b},
	MinSize:         812,
	MintA:           41,
	MintB:           73,
	VaultA:          105,
	VaultB:          137,
	ProtocolFeeRate: 329,
	FeeRate:         331,
	SqrtPrice:       335,
	TickIndex:       351,
	Liquidity:       379,
}

func Venue() *core.Venue {
	return &core.Venue{
		Kind:    types.DexOrcaWhirlpool,
		Program: ProgramID,
		Layout:  Layout,
		Builder: Builder{},
	}
}

type Builder struct{}

func (Builder) BuildSwapInstruction(p core.SwapParams) (solana.Instruction, error) {
	aToB := p.Pool.TokenA.Mint.Equals(p.TokenIn)

	// swap(amount, other_amount_threshold, sqrt_price_limit, amount_specified_is_input, a_to_b)
	data := make([]byte, 42)
	copy(data[0:8], swapDiscriminator[:])
	binary.LittleEndian.PutUint64(data[8:16], p.AmountIn)
	binary.LittleEndian.PutUint64(data[16:24], p.MinAmountOut)
	// sqrt_price_limit stays zero: the min-out threshold is the protection
	data[40] = 1 // amount_specified_is_input
	if aToB {
		data[41] = 1
	}

	accounts := solana.AccountMetaSlice{
		solana.Meta(solana.TokenProgramID),
		solana.Meta(p.Owner).SIGNER(),
		solana.Meta(p.Pool.ID).WRITE(),
		solana.Meta(p.UserSource).WRITE(),
		solana.Meta(p.Pool.VaultA).WRITE(),
		solana.Meta(p.UserDest).WRITE(),
		solana.Meta(p.Pool.VaultB).WRITE(),
	}
	return solana.NewInstruction(ProgramID, accounts, data), nil
}
