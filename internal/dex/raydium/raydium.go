// Package raydium implements the Raydium V4 venue: pool account layout and
// swap instruction builder.
package raydium

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"

	"github.com/you/sol-arb-bot/internal/dex/core"
	"github.com/you/sol-arb-bot/internal/types"
)

var ProgramID = solana.MustPublicKeyFromBase58("675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8")

// swap instruction tag in the Raydium V4 program
const swapInstructionTag = 9

// Field offsets follow the serialized pool account: discriminator, nonce,
// program, mints, vaults, fee rates, sqrt price, tick, liquidity, owed fees,
// bump.
var Layout = core.PoolLayout{
	Discriminator:   [8]byte{0x0c, 0x0c, 0x0c, 0x0c, 0x0c, 0x0c, 0x0c, 0x0c},
	MinSize:         226,
	MintA:           41,
	MintB:           73,
	VaultA:          105,
	VaultB:          137,
	FeeRate:         169,
	ProtocolFeeRate: 171,
	SqrtPrice:       173,
	TickIndex:       189,
	Liquidity:       193,
}

func Venue() *core.Venue {
	return &core.Venue{
		Kind:    types.DexRaydiumV4,
		Program: ProgramID,
		Layout:  Layout,
		Builder: Builder{},
	}
}

type Builder struct{}

func (Builder) BuildSwapInstruction(p core.SwapParams) (solana.Instruction, error) {
	data := make([]byte, 17)
	data[0] = swapInstructionTag
	binary.LittleEndian.PutUint64(data[1:9], p.AmountIn)
	binary.LittleEndian.PutUint64(data[9:17], p.MinAmountOut)

	accounts := solana.AccountMetaSlice{
		solana.Meta(p.Pool.ID).WRITE(),
		solana.Meta(p.Pool.VaultA).WRITE(),
		solana.Meta(p.Pool.VaultB).WRITE(),
		solana.Meta(p.UserSource).WRITE(),
		solana.Meta(p.UserDest).WRITE(),
		solana.Meta(p.Owner).SIGNER(),
		solana.Meta(solana.TokenProgramID),
	}
	return solana.NewInstruction(ProgramID, accounts, data), nil
}
