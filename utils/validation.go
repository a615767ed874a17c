package utils

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
	"github.com/vitwit/heka402/types"
)

// ValidatePaymentRequest checks a request before any network access: struct
// tags first, then that the total is a positive integer.
func ValidatePaymentRequest(req *types.PaymentRequest) (*big.Int, error) {
	if req == nil {
		return nil, types.NewError(types.ErrValidation, "payment request is required")
	}
	if err := validate.Struct(req); err != nil {
		return nil, &types.HekaError{
			Code:    types.ErrValidation,
			Message: fmt.Sprintf("validation failed: %v", err),
			Err:     err,
		}
	}

	amount, err := ValidateBigInt(req.Amount)
	if err != nil {
		return nil, types.Wrap(types.ErrValidation, 0, err, "invalid amount")
	}
	if amount.Sign() <= 0 {
		return nil, types.NewError(types.ErrValidation, "amount must be greater than zero")
	}
	return amount, nil
}

// ValidateX402Request checks an x402 payment request.
func ValidateX402Request(req *types.X402Request) error {
	if req == nil {
		return types.NewError(types.ErrValidation, "x402 request is required")
	}
	if err := validate.Struct(req); err != nil {
		return &types.HekaError{
			Code:    types.ErrValidation,
			Message: fmt.Sprintf("validation failed: %v", err),
			Err:     err,
		}
	}
	return nil
}

// ValidateAmount checks if an amount string is a valid non-negative decimal
func ValidateAmount(amount string) (*decimal.Decimal, error) {
	if amount == "" {
		return nil, fmt.Errorf("amount cannot be empty")
	}

	dec, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount format: %w", err)
	}

	if dec.IsNegative() {
		return nil, fmt.Errorf("amount cannot be negative")
	}

	return &dec, nil
}

// ValidateBigInt checks if a string is a valid base-10 integer
func ValidateBigInt(value string) (*big.Int, error) {
	if value == "" {
		return nil, fmt.Errorf("value cannot be empty")
	}

	n, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", value)
	}
	if n.BitLen() > 256 {
		return nil, fmt.Errorf("value %q does not fit in uint256", value)
	}

	return n, nil
}

// ParseAmountWithDecimals converts a human amount such as "1.5" into atomic
// units. Precision beyond decimals is rejected rather than truncated.
func ParseAmountWithDecimals(amount string, decimals int) (*big.Int, error) {
	dec, err := ValidateAmount(amount)
	if err != nil {
		return nil, err
	}

	scaled := dec.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("amount %s has more than %d decimals", amount, decimals)
	}

	return scaled.BigInt(), nil
}

// FormatAmountFromBigInt formats atomic units as a decimal string with the
// given number of decimals.
func FormatAmountFromBigInt(amount *big.Int, decimals int) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -int32(decimals)).String()
}
