package types

import (
	"context"
	"errors"
	"fmt"
)

// HekaError is the single error type of the payment protocol. Code is one of
// the constants below.
type HekaError struct {
	Code      string  `json:"code"`
	Message   string  `json:"message"`
	ChainID   ChainID `json:"chainId,omitempty"`
	Retryable bool    `json:"retryable,omitempty"`
	Err       error   `json:"-"`
}

func (e HekaError) Error() string {
	msg := e.Message
	if e.ChainID != 0 {
		msg = fmt.Sprintf("chain %d: %s", e.ChainID, msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e HekaError) Unwrap() error {
	return e.Err
}

// Error codes
const (
	ErrValidation          = "VALIDATION_ERROR"
	ErrUnsupportedChain    = "UNSUPPORTED_CHAIN"
	ErrInsufficientBalance = "INSUFFICIENT_BALANCE"
	ErrProofGeneration     = "PROOF_GENERATION_FAILED"
	ErrSimulationRevert    = "SIMULATION_REVERTED"
	ErrExecution           = "EXECUTION_FAILED"
	ErrCommitmentMismatch  = "COMMITMENT_MISMATCH"
	ErrConfig              = "CONFIG_ERROR"
)

// NewError builds a HekaError with a formatted message.
func NewError(code string, format string, args ...any) *HekaError {
	return &HekaError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap attaches err as the cause of a new HekaError. A deadline anywhere in
// the chain keeps the requested code but marks the error retryable.
func Wrap(code string, chain ChainID, err error, message string) *HekaError {
	var he *HekaError
	if errors.As(err, &he) && he.Code == code {
		return he
	}
	out := &HekaError{
		Code:    code,
		Message: message,
		ChainID: chain,
		Err:     err,
	}
	if errors.Is(err, context.DeadlineExceeded) {
		out.Message = message + ": timed out"
		out.Retryable = true
	}
	return out
}

// CodeOf returns the HekaError code carried by err, or "" when err is not a
// protocol error.
func CodeOf(err error) string {
	var he *HekaError
	if errors.As(err, &he) {
		return he.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code string) bool {
	return CodeOf(err) == code
}

// IsRetryable reports whether the caller may retry the failed operation.
func IsRetryable(err error) bool {
	var he *HekaError
	return errors.As(err, &he) && he.Retryable
}
