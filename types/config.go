package types

import "time"

const (
	DefaultProverTimeout = 60 * time.Second
	DefaultLegTimeout    = 2 * time.Minute

	DispatchSequential = "sequential"
	DispatchConcurrent = "concurrent"
)

// ChainConfig describes one settlement deployment.
type ChainConfig struct {
	// Human readable network name, used in logs and metrics labels.
	Name string `yaml:"name" json:"name"`

	// JSON-RPC endpoint of the chain.
	RPCURL string `yaml:"rpcUrl" json:"rpcUrl" validate:"required,url"`

	// Address of the settlement contract exposing executePayment.
	Contract string `yaml:"contract" json:"contract" validate:"required,eth_addr"`

	// Environment variable that overrides RPCURL when set.
	RPCEnv string `yaml:"rpcEnv,omitempty" json:"rpcEnv,omitempty"`
}

// Config contains global configuration for the payment orchestrator.
type Config struct {
	Chains map[ChainID]ChainConfig `yaml:"chains" json:"chains" validate:"required,min=1,dive"`

	// Base URL of the prover service (the /prove path is appended).
	ProverURL     string        `yaml:"proverUrl" json:"proverUrl" validate:"required,url"`
	ProverTimeout time.Duration `yaml:"proverTimeout,omitempty" json:"proverTimeout,omitempty"`

	// Bound on simulate + submit + receipt wait for a single leg.
	LegTimeout time.Duration `yaml:"legTimeout,omitempty" json:"legTimeout,omitempty"`

	// Network the signer is "connected" to: used for the balance pre-flight
	// and as the default chain list of x402 payments.
	ActiveChain ChainID `yaml:"activeChain" json:"activeChain" validate:"required"`

	Dispatch      string `yaml:"dispatch,omitempty" json:"dispatch,omitempty" validate:"omitempty,oneof=sequential concurrent"`
	DispatchLimit int    `yaml:"dispatchLimit,omitempty" json:"dispatchLimit,omitempty" validate:"gte=0"`

	// Accept the zero address returned by x402 discovery as a recipient.
	AllowZeroRecipient bool `yaml:"allowZeroRecipient,omitempty" json:"allowZeroRecipient,omitempty"`

	LogLevel      string `yaml:"logLevel,omitempty" json:"logLevel,omitempty"`
	EnableMetrics bool   `yaml:"enableMetrics,omitempty" json:"enableMetrics,omitempty"`
}

// ApplyDefaults fills zero-valued timeouts and dispatch mode.
func (c *Config) ApplyDefaults() {
	if c.ProverTimeout <= 0 {
		c.ProverTimeout = DefaultProverTimeout
	}
	if c.LegTimeout <= 0 {
		c.LegTimeout = DefaultLegTimeout
	}
	if c.Dispatch == "" {
		c.Dispatch = DispatchSequential
	}
}

// IsSupported reports whether a chain has an endpoint configured.
func (c *Config) IsSupported(id ChainID) bool {
	cc, ok := c.Chains[id]
	return ok && cc.RPCURL != ""
}
