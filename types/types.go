package types

import (
	"fmt"
	"math/big"
)

// PaymentRequest is the caller input for one logical payment.
type PaymentRequest struct {
	// Recipient address on every selected chain (0x-prefixed hex).
	Recipient string `json:"recipient" validate:"required,eth_addr"`

	// Total amount in atomic units of the asset, as a decimal string.
	// Represented as a string because Go does not support uint256.
	Amount string `json:"amount" validate:"required,number"`

	// Address of the ERC-20 token. Empty means the chain's native currency.
	Token string `json:"token,omitempty" validate:"omitempty,eth_addr"`

	// Chains to settle on. Order is significant: the first chain absorbs
	// the split remainder and seeds the nonce.
	Chains []ChainID `json:"chains" validate:"required,min=1,dive,required"`

	// Optional payer secret, decimal or 0x-prefixed hex. Generated when empty.
	// A secret must never be reused across payments.
	Secret string `json:"secret,omitempty"`
}

// Groth16Proof holds the proof points as decimal strings, in the
// coordinate order the settlement contract expects.
type Groth16Proof struct {
	A [2]string    `json:"a"`
	B [2][2]string `json:"b"`
	C [2]string    `json:"c"`
}

// ProofArtifact is the opaque output of the prover service. It is forwarded
// unchanged to every chain leg.
type ProofArtifact struct {
	Proof         Groth16Proof `json:"proof"`
	PublicSignals []string     `json:"publicSignals"`
}

// Validate checks that every proof element and public signal is an unsigned
// integer that fits in a uint256 word.
func (p *ProofArtifact) Validate() error {
	if len(p.PublicSignals) != 2 {
		return fmt.Errorf("expected 2 public signals, got %d", len(p.PublicSignals))
	}
	for i, s := range p.PublicSignals {
		if _, err := parseWord(s); err != nil {
			return fmt.Errorf("publicSignals[%d]: %w", i, err)
		}
	}
	_, _, _, err := p.Proof.Words()
	return err
}

// Words converts the proof into the uint256 words used for ABI packing.
func (p Groth16Proof) Words() (a [2]*big.Int, b [2][2]*big.Int, c [2]*big.Int, err error) {
	for i := 0; i < 2; i++ {
		if a[i], err = parseWord(p.A[i]); err != nil {
			return a, b, c, fmt.Errorf("proof.a[%d]: %w", i, err)
		}
		if c[i], err = parseWord(p.C[i]); err != nil {
			return a, b, c, fmt.Errorf("proof.c[%d]: %w", i, err)
		}
		for j := 0; j < 2; j++ {
			if b[i][j], err = parseWord(p.B[i][j]); err != nil {
				return a, b, c, fmt.Errorf("proof.b[%d][%d]: %w", i, j, err)
			}
		}
	}
	return a, b, c, nil
}

func parseWord(s string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", s)
	}
	if n.Sign() < 0 || n.BitLen() > 256 {
		return nil, fmt.Errorf("value %q does not fit in uint256", s)
	}
	return n, nil
}

// ChainAllocation is the amount assigned to one chain of a split payment.
type ChainAllocation struct {
	ChainID ChainID  `json:"chainId"`
	Amount  *big.Int `json:"amount"`
}

// Leg carries everything one chain needs to settle its part of a payment.
// Proof, Commitment and Nonce are shared by every leg of the same payment.
type Leg struct {
	ChainID    ChainID
	Proof      Groth16Proof
	Commitment *big.Int
	Recipient  string
	Amount     *big.Int
	Token      string
	Nonce      [32]byte
}

// ExecutionResult is the outcome of one chain leg.
type ExecutionResult struct {
	ChainID     ChainID `json:"chainId"`
	Success     bool    `json:"success"`
	Amount      string  `json:"amount,omitempty"`
	TxHash      string  `json:"txHash,omitempty"`
	BlockNumber uint64  `json:"blockNumber,omitempty"`

	// ErrorKind is one of the error codes in errors.go when Success is false.
	ErrorKind string `json:"errorKind,omitempty"`
	Detail    string `json:"detail,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

// OrchestrationResult aggregates every leg of one payment. TxHash is the
// first chain's transaction, empty when that leg failed.
type OrchestrationResult struct {
	PaymentID  string            `json:"paymentId"`
	TxHash     string            `json:"txHash,omitempty"`
	Commitment string            `json:"commitment"`
	Nonce      string            `json:"nonce"`
	Results    []ExecutionResult `json:"results"`
}

// Succeeded returns the legs that were included on chain.
func (r *OrchestrationResult) Succeeded() []ExecutionResult {
	out := make([]ExecutionResult, 0, len(r.Results))
	for _, res := range r.Results {
		if res.Success {
			out = append(out, res)
		}
	}
	return out
}

// Failed returns the legs that did not settle.
func (r *OrchestrationResult) Failed() []ExecutionResult {
	out := make([]ExecutionResult, 0, len(r.Results))
	for _, res := range r.Results {
		if !res.Success {
			out = append(out, res)
		}
	}
	return out
}

// Complete reports whether every leg settled.
func (r *OrchestrationResult) Complete() bool {
	return len(r.Results) > 0 && len(r.Failed()) == 0
}

// X402Request pays whoever an x402 discovery URL names.
type X402Request struct {
	URL    string    `json:"url" validate:"required,url"`
	Amount string    `json:"amount" validate:"required,number"`
	Token  string    `json:"token,omitempty" validate:"omitempty,eth_addr"`
	Chains []ChainID `json:"chains,omitempty"`
}

// X402Result is returned by an x402 payment.
type X402Result struct {
	TxHash     string            `json:"txHash"`
	Commitment string            `json:"commitment"`
	Recipient  string            `json:"recipient"`
	Results    []ExecutionResult `json:"results"`
}

// ProverStatus is the liveness object served by GET /prove.
type ProverStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
