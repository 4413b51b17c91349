package execution

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/you/sol-arb-bot/internal/dex/core"
	"github.com/you/sol-arb-bot/internal/types"
)

var computeBudgetProgram = solana.MustPublicKeyFromBase58("ComputeBudget111111111111111111111111111111")

func setComputeUnitLimit(units uint32) solana.Instruction {
	data := make([]byte, 5)
	data[0] = 0x02
	binary.LittleEndian.PutUint32(data[1:], units)
	return solana.NewInstruction(computeBudgetProgram, solana.AccountMetaSlice{}, data)
}

func setComputeUnitPrice(microLamports uint64) solana.Instruction {
	data := make([]byte, 9)
	data[0] = 0x03
	binary.LittleEndian.PutUint64(data[1:], microLamports)
	return solana.NewInstruction(computeBudgetProgram, solana.AccountMetaSlice{}, data)
}

// assemble builds the atomic route transaction: compute budget first, then
// one protected swap leg per step. Every leg carries the quoted
// min_amount_out so a partial fill aborts the whole transaction.
func (c *Coordinator) assemble(ctx context.Context, route *types.ArbitrageRoute) (*solana.Transaction, error) {
	blockhash, err := c.reader.LatestBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("blockhash: %w", err)
	}

	owner := c.wallet.PublicKey()
	instructions := []solana.Instruction{
		setComputeUnitLimit(c.cfg.Execution.ComputeUnitLimit),
		setComputeUnitPrice(c.cfg.Execution.ComputeUnitPrice),
	}

	for _, step := range route.Steps {
		pool, ok := c.pools.Pool(step.PoolID)
		if !ok {
			return nil, fmt.Errorf("pool %s no longer tracked", step.PoolID)
		}
		venue := core.Get(step.Kind)
		if venue == nil {
			return nil, fmt.Errorf("unregistered dex kind %q", step.Kind)
		}
		source, _, err := solana.FindAssociatedTokenAddress(owner, step.TokenIn.Mint)
		if err != nil {
			return nil, fmt.Errorf("source ata: %w", err)
		}
		dest, _, err := solana.FindAssociatedTokenAddress(owner, step.TokenOut.Mint)
		if err != nil {
			return nil, fmt.Errorf("dest ata: %w", err)
		}

		ix, err := venue.Builder.BuildSwapInstruction(core.SwapParams{
			Pool:         &pool,
			TokenIn:      step.TokenIn.Mint,
			TokenOut:     step.TokenOut.Mint,
			UserSource:   source,
			UserDest:     dest,
			Owner:        owner,
			AmountIn:     step.AmountIn,
			MinAmountOut: step.MinAmountOut,
		})
		if err != nil {
			return nil, fmt.Errorf("build %s leg: %w", step.Kind, err)
		}
		instructions = append(instructions, ix)
	}

	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(owner))
	if err != nil {
		return nil, fmt.Errorf("build transaction: %w", err)
	}
	if _, err := tx.Sign(func(pub solana.PublicKey) *solana.PrivateKey {
		if pub.Equals(owner) {
			return &c.wallet
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}
	return tx, nil
}
