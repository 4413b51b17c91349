package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/you/sol-arb-bot/internal/types"
)

type PoolEntry struct {
	Address string        `yaml:"address"`
	Dex     types.DexKind `yaml:"dex"`
}

type TokenOverride struct {
	Mint     string `yaml:"mint"`
	Symbol   string `yaml:"symbol"`
	Decimals uint8  `yaml:"decimals"`
}

type RiskConfig struct {
	MaxPositionSize    uint64  `yaml:"max_position_size"`
	MaxDailyLoss       int64   `yaml:"max_daily_loss"`
	MaxConcurrent      int     `yaml:"max_concurrent_trades"`
	MinProfitPct       float64 `yaml:"min_profit_pct"`
	MaxSlippagePct     float64 `yaml:"max_slippage_pct"`
	MaxRiskScore       float64 `yaml:"max_risk_score"`
	MinConfidenceScore float64 `yaml:"min_confidence_score"`
	CooldownMs         int     `yaml:"cooldown_ms"`
}

type Config struct {
	DryRun bool `yaml:"dry_run"`

	Chain struct {
		RPCHTTP  string `yaml:"rpc_http"`
		RPCWS    string `yaml:"rpc_ws"`
		WalletPK string `yaml:"wallet_pk"`
	} `yaml:"chain"`

	DEX struct {
		Venues []types.DexKind `yaml:"venues"`
	} `yaml:"dex"`

	Pools  []PoolEntry     `yaml:"pools"`
	Tokens []TokenOverride `yaml:"tokens"`

	Risk RiskConfig `yaml:"risk"`

	Trade struct {
		BaseAmount  uint64 `yaml:"base_amount"`
		SlippageBps uint32 `yaml:"slippage_bps"`
		MaxHops     int    `yaml:"max_hops"`
	} `yaml:"trade"`

	Execution struct {
		ComputeUnitLimit  uint32 `yaml:"compute_unit_limit"`
		ComputeUnitPrice  uint64 `yaml:"compute_unit_price_micro"`
		MaxAttempts       int    `yaml:"max_attempts"`
		RetryDelayMs      int    `yaml:"retry_delay_ms"`
		ConfirmDeadlineMs int    `yaml:"confirm_deadline_ms"`
	} `yaml:"execution"`

	Timings struct {
		DetectorTickMs    int `yaml:"detector_tick_ms"`
		ExecutorTickMs    int `yaml:"executor_tick_ms"`
		RefreshIntervalMs int `yaml:"refresh_interval_ms"`
		PriceTTLMs        int `yaml:"price_ttl_ms"`
	} `yaml:"timings"`

	Redis struct {
		Addr   string `yaml:"addr"`
		Stream string `yaml:"stream"`
	} `yaml:"redis"`

	Metrics struct {
		Listen string `yaml:"listen"`
	} `yaml:"metrics"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	c.applyDefaults()
	return &c, nil
}

// Default returns a config with every default applied and no pools, for tests
// and dry-run experiments.
func Default() *Config {
	var c Config
	c.applyDefaults()
	return &c
}

func (c *Config) applyDefaults() {
	if c.Chain.RPCHTTP == "" {
		c.Chain.RPCHTTP = "https://api.mainnet-beta.solana.com"
	}
	if len(c.DEX.Venues) == 0 {
		c.DEX.Venues = []types.DexKind{types.DexRaydiumV4, types.DexOrcaWhirlpool}
	}
	if c.Risk.MaxPositionSize == 0 {
		c.Risk.MaxPositionSize = 1_000_000_000 // 1 SOL
	}
	if c.Risk.MaxDailyLoss == 0 {
		c.Risk.MaxDailyLoss = 100_000_000
	}
	if c.Risk.MaxConcurrent == 0 {
		c.Risk.MaxConcurrent = 3
	}
	if c.Risk.MinProfitPct == 0 {
		c.Risk.MinProfitPct = 0.5
	}
	if c.Risk.MaxSlippagePct == 0 {
		c.Risk.MaxSlippagePct = 5.0
	}
	if c.Risk.MaxRiskScore == 0 {
		c.Risk.MaxRiskScore = 0.7
	}
	if c.Risk.MinConfidenceScore == 0 {
		c.Risk.MinConfidenceScore = 0.8
	}
	if c.Risk.CooldownMs == 0 {
		c.Risk.CooldownMs = 5000
	}
	if c.Trade.BaseAmount == 0 {
		c.Trade.BaseAmount = 100_000_000 // 0.1 SOL
	}
	if c.Trade.SlippageBps == 0 {
		c.Trade.SlippageBps = 50
	}
	if c.Trade.MaxHops == 0 {
		c.Trade.MaxHops = 3
	}
	if c.Execution.ComputeUnitLimit == 0 {
		c.Execution.ComputeUnitLimit = 400_000
	}
	if c.Execution.ComputeUnitPrice == 0 {
		c.Execution.ComputeUnitPrice = 10_000
	}
	if c.Execution.MaxAttempts == 0 {
		c.Execution.MaxAttempts = 3
	}
	if c.Execution.RetryDelayMs == 0 {
		c.Execution.RetryDelayMs = 1000
	}
	if c.Execution.ConfirmDeadlineMs == 0 {
		c.Execution.ConfirmDeadlineMs = 60_000
	}
	if c.Timings.DetectorTickMs == 0 {
		c.Timings.DetectorTickMs = 400
	}
	if c.Timings.ExecutorTickMs == 0 {
		c.Timings.ExecutorTickMs = 100
	}
	if c.Timings.RefreshIntervalMs == 0 {
		c.Timings.RefreshIntervalMs = 400
	}
	if c.Timings.PriceTTLMs == 0 {
		c.Timings.PriceTTLMs = 10_000
	}
	if c.Metrics.Listen == "" {
		c.Metrics.Listen = ":9090"
	}
	if c.Redis.Stream == "" {
		c.Redis.Stream = "arb:routes"
	}
}

func (c *Config) DetectorTick() time.Duration {
	return time.Duration(c.Timings.DetectorTickMs) * time.Millisecond
}
func (c *Config) ExecutorTick() time.Duration {
	return time.Duration(c.Timings.ExecutorTickMs) * time.Millisecond
}
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Timings.RefreshIntervalMs) * time.Millisecond
}
func (c *Config) PriceTTL() time.Duration {
	return time.Duration(c.Timings.PriceTTLMs) * time.Millisecond
}
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.Risk.CooldownMs) * time.Millisecond
}
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Execution.RetryDelayMs) * time.Millisecond
}
func (c *Config) ConfirmDeadline() time.Duration {
	return time.Duration(c.Execution.ConfirmDeadlineMs) * time.Millisecond
}
