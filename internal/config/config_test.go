package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/you/sol-arb-bot/internal/types"
)

func TestLoad_Defaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dry_run: true\n"), 0o600))

	c, err := Load(path)
	require.NoError(t, err)

	assert.True(t, c.DryRun)
	assert.Equal(t, 3, c.Risk.MaxConcurrent)
	assert.Equal(t, 5000, c.Risk.CooldownMs)
	assert.Equal(t, 0.7, c.Risk.MaxRiskScore)
	assert.Equal(t, 0.8, c.Risk.MinConfidenceScore)
	assert.Equal(t, 400, c.Timings.DetectorTickMs)
	assert.Equal(t, 100, c.Timings.ExecutorTickMs)
	assert.Equal(t, []types.DexKind{types.DexRaydiumV4, types.DexOrcaWhirlpool}, c.DEX.Venues)
}

func TestLoad_Overrides(t *testing.T) {
	raw := `
risk:
  max_concurrent_trades: 1
  cooldown_ms: 250
pools:
  - address: 58oQChx4yWmvKdwLLZzBi4ChoCc2fqCUWBkwMihLYQo2
    dex: raydium_v4
tokens:
  - mint: So11111111111111111111111111111111111111112
    symbol: SOL
    decimals: 9
`
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 1, c.Risk.MaxConcurrent)
	assert.Equal(t, 250, c.Risk.CooldownMs)
	require.Len(t, c.Pools, 1)
	assert.Equal(t, types.DexRaydiumV4, c.Pools[0].Dex)
	require.Len(t, c.Tokens, 1)
	assert.Equal(t, uint8(9), c.Tokens[0].Decimals)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
