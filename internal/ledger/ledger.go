// Package ledger wraps chain access behind narrow Reader and Writer
// interfaces so the data loop and the coordinator can be tested against
// stubs.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

var ErrAccountNotFound = errors.New("account not found")

// KeyedAccount pairs an account's address with its raw data.
type KeyedAccount struct {
	Pubkey solana.PublicKey
	Data   []byte
}

// SimulationResult is the outcome of a preflight simulation. Err is non-empty
// when the program would have failed on chain.
type SimulationResult struct {
	Err           string
	UnitsConsumed uint64
	Logs          []string
}

func (s SimulationResult) Failed() bool { return s.Err != "" }

// Reader covers every chain read the engine performs.
type Reader interface {
	AccountData(ctx context.Context, account solana.PublicKey) ([]byte, error)
	MultipleAccountData(ctx context.Context, accounts ...solana.PublicKey) ([][]byte, error)
	TokenBalance(ctx context.Context, tokenAccount solana.PublicKey) (uint64, error)
	ProgramAccounts(ctx context.Context, program solana.PublicKey, dataSize uint64) ([]KeyedAccount, error)
	LatestBlockhash(ctx context.Context) (solana.Hash, error)
}

// Writer covers transaction submission. Confirm blocks until the signature
// reaches confirmed commitment or ctx expires.
type Writer interface {
	Simulate(ctx context.Context, tx *solana.Transaction) (SimulationResult, error)
	Send(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	Confirm(ctx context.Context, sig solana.Signature) error
}

// Client implements Reader and Writer over JSON-RPC.
type Client struct {
	rpc          *rpc.Client
	commitment   rpc.CommitmentType
	confirmEvery time.Duration
}

func NewClient(endpoint string) *Client {
	return &Client{
		rpc:          rpc.New(endpoint),
		commitment:   rpc.CommitmentConfirmed,
		confirmEvery: 500 * time.Millisecond,
	}
}

func (c *Client) AccountData(ctx context.Context, account solana.PublicKey) ([]byte, error) {
	res, err := c.rpc.GetAccountInfoWithOpts(ctx, account, &rpc.GetAccountInfoOpts{Commitment: c.commitment})
	if err != nil {
		return nil, fmt.Errorf("get account %s: %w", account, err)
	}
	if res == nil || res.Value == nil {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, account)
	}
	return res.Value.Data.GetBinary(), nil
}

// MultipleAccountData fetches accounts in one batch call. Missing accounts
// come back as nil slices at their position rather than failing the batch.
func (c *Client) MultipleAccountData(ctx context.Context, accounts ...solana.PublicKey) ([][]byte, error) {
	if len(accounts) == 0 {
		return nil, nil
	}
	res, err := c.rpc.GetMultipleAccountsWithOpts(ctx, accounts, &rpc.GetMultipleAccountsOpts{Commitment: c.commitment})
	if err != nil {
		return nil, fmt.Errorf("get multiple accounts: %w", err)
	}
	out := make([][]byte, len(accounts))
	for i, acc := range res.Value {
		if acc != nil {
			out[i] = acc.Data.GetBinary()
		}
	}
	return out, nil
}

func (c *Client) TokenBalance(ctx context.Context, tokenAccount solana.PublicKey) (uint64, error) {
	res, err := c.rpc.GetTokenAccountBalance(ctx, tokenAccount, c.commitment)
	if err != nil {
		return 0, fmt.Errorf("get token balance %s: %w", tokenAccount, err)
	}
	if res == nil || res.Value == nil {
		return 0, fmt.Errorf("%w: token account %s", ErrAccountNotFound, tokenAccount)
	}
	amount, err := strconv.ParseUint(res.Value.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse balance %q: %w", res.Value.Amount, err)
	}
	return amount, nil
}

func (c *Client) ProgramAccounts(ctx context.Context, program solana.PublicKey, dataSize uint64) ([]KeyedAccount, error) {
	opts := &rpc.GetProgramAccountsOpts{Commitment: c.commitment}
	if dataSize > 0 {
		opts.Filters = []rpc.RPCFilter{{DataSize: dataSize}}
	}
	res, err := c.rpc.GetProgramAccountsWithOpts(ctx, program, opts)
	if err != nil {
		return nil, fmt.Errorf("get program accounts %s: %w", program, err)
	}
	out := make([]KeyedAccount, 0, len(res))
	for _, ka := range res {
		if ka == nil || ka.Account == nil {
			continue
		}
		out = append(out, KeyedAccount{Pubkey: ka.Pubkey, Data: ka.Account.Data.GetBinary()})
	}
	return out, nil
}

func (c *Client) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	res, err := c.rpc.GetLatestBlockhash(ctx, c.commitment)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("get latest blockhash: %w", err)
	}
	return res.Value.Blockhash, nil
}

func (c *Client) Simulate(ctx context.Context, tx *solana.Transaction) (SimulationResult, error) {
	res, err := c.rpc.SimulateTransaction(ctx, tx)
	if err != nil {
		return SimulationResult{}, fmt.Errorf("simulate: %w", err)
	}
	sim := SimulationResult{Logs: res.Value.Logs}
	if res.Value.Err != nil {
		sim.Err = fmt.Sprintf("%v", res.Value.Err)
	}
	if res.Value.UnitsConsumed != nil {
		sim.UnitsConsumed = *res.Value.UnitsConsumed
	}
	return sim, nil
}

func (c *Client) Send(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       true, // the coordinator simulates explicitly first
		PreflightCommitment: rpc.CommitmentProcessed,
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("send transaction: %w", err)
	}
	return sig, nil
}

// Confirm polls signature status until confirmed or finalized. The caller
// bounds the wait through ctx.
func (c *Client) Confirm(ctx context.Context, sig solana.Signature) error {
	ticker := time.NewTicker(c.confirmEvery)
	defer ticker.Stop()
	for {
		statuses, err := c.rpc.GetSignatureStatuses(ctx, true, sig)
		if err == nil && statuses != nil && len(statuses.Value) > 0 && statuses.Value[0] != nil {
			st := statuses.Value[0]
			if st.Err != nil {
				return fmt.Errorf("transaction %s failed on chain: %v", sig, st.Err)
			}
			if st.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
				st.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("confirm %s: %w", sig, ctx.Err())
		case <-ticker.C:
		}
	}
}
