// Package tokenmeta resolves token decimals and symbols from live mint
// accounts. Decimals are read from the chain, never assumed from the mint
// address; config overrides supply symbols for display.
package tokenmeta

import (
	"context"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/you/sol-arb-bot/internal/config"
	"github.com/you/sol-arb-bot/internal/ledger"
	"github.com/you/sol-arb-bot/internal/types"
)

// SPL mint account layout: decimals is the u8 after the 4+32 byte mint
// authority COption and the u64 supply.
const (
	mintAccountSize = 82
	decimalsOffset  = 44
)

type Service struct {
	reader ledger.Reader
	log    *zap.Logger

	mu        sync.RWMutex
	cache     map[solana.PublicKey]types.Token
	overrides map[solana.PublicKey]config.TokenOverride
}

func NewService(reader ledger.Reader, overrides []config.TokenOverride, log *zap.Logger) *Service {
	s := &Service{
		reader:    reader,
		log:       log,
		cache:     make(map[solana.PublicKey]types.Token),
		overrides: make(map[solana.PublicKey]config.TokenOverride),
	}
	for _, o := range overrides {
		pk, err := solana.PublicKeyFromBase58(o.Mint)
		if err != nil {
			log.Warn("skipping token override with bad mint", zap.String("mint", o.Mint), zap.Error(err))
			continue
		}
		s.overrides[pk] = o
	}
	return s
}

// Resolve returns cached metadata or fetches the mint account. An override
// with a non-zero decimals value short-circuits the chain read entirely.
func (s *Service) Resolve(ctx context.Context, mint solana.PublicKey) (types.Token, error) {
	s.mu.RLock()
	tok, ok := s.cache[mint]
	s.mu.RUnlock()
	if ok {
		return tok, nil
	}

	if o, ok := s.overrides[mint]; ok && o.Decimals > 0 {
		tok = types.Token{Mint: mint, Symbol: o.Symbol, Decimals: o.Decimals}
		s.store(tok)
		return tok, nil
	}

	raw, err := s.reader.AccountData(ctx, mint)
	if err != nil {
		return types.Token{}, fmt.Errorf("fetch mint %s: %w", mint, err)
	}
	if len(raw) < mintAccountSize {
		return types.Token{}, fmt.Errorf("mint %s account is %d bytes, want %d", mint, len(raw), mintAccountSize)
	}

	tok = types.Token{Mint: mint, Decimals: raw[decimalsOffset]}
	if o, ok := s.overrides[mint]; ok {
		tok.Symbol = o.Symbol
	} else {
		tok.Symbol = shortMint(mint)
	}
	s.store(tok)
	return tok, nil
}

// Fill resolves the pool's token pair in place, keeping the mints decoded
// from the pool account.
func (s *Service) Fill(ctx context.Context, pool *types.PoolState) error {
	a, err := s.Resolve(ctx, pool.TokenA.Mint)
	if err != nil {
		return err
	}
	b, err := s.Resolve(ctx, pool.TokenB.Mint)
	if err != nil {
		return err
	}
	pool.TokenA = a
	pool.TokenB = b
	return nil
}

func (s *Service) store(tok types.Token) {
	s.mu.Lock()
	s.cache[tok.Mint] = tok
	s.mu.Unlock()
}

func shortMint(mint solana.PublicKey) string {
	str := mint.String()
	if len(str) > 8 {
		return str[:4] + ".." + str[len(str)-4:]
	}
	return str
}
