package clients

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/vitwit/heka402/field"
	"github.com/vitwit/heka402/types"
)

const executePaymentMethod = "executePayment"

const settlementABI = `
[
  {
    "name": "executePayment",
    "type": "function",
    "stateMutability": "payable",
    "inputs": [
      { "name": "a", "type": "uint256[2]" },
      { "name": "b", "type": "uint256[2][2]" },
      { "name": "c", "type": "uint256[2]" },
      { "name": "commitment", "type": "bytes32" },
      { "name": "recipient", "type": "address" },
      { "name": "amount", "type": "uint256" },
      { "name": "token", "type": "address" },
      { "name": "nonce", "type": "bytes32" }
    ],
    "outputs": []
  }
]
`

const erc20ABI = `
[
  {
    "name": "balanceOf",
    "type": "function",
    "stateMutability": "view",
    "inputs": [{ "name": "owner", "type": "address" }],
    "outputs": [{ "name": "", "type": "uint256" }]
  }
]
`

var (
	settlementContractABI = mustParseABI(settlementABI)
	erc20ContractABI      = mustParseABI(erc20ABI)
)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("invalid embedded ABI: %v", err))
	}
	return parsed
}

// PaymentCall is one executePayment invocation with every argument in its
// ABI type.
type PaymentCall struct {
	A          [2]*big.Int
	B          [2][2]*big.Int
	C          [2]*big.Int
	Commitment [32]byte
	Recipient  common.Address
	Amount     *big.Int
	Token      common.Address
	Nonce      [32]byte
}

// NewPaymentCall converts a leg into ABI arguments. The commitment goes
// through field.ToBytes32 so it is never truncated.
func NewPaymentCall(leg *types.Leg) (*PaymentCall, error) {
	a, b, c, err := leg.Proof.Words()
	if err != nil {
		return nil, err
	}

	commitment, err := field.ToBytes32(leg.Commitment)
	if err != nil {
		return nil, fmt.Errorf("encode commitment: %w", err)
	}

	if !common.IsHexAddress(leg.Recipient) {
		return nil, fmt.Errorf("invalid recipient %q", leg.Recipient)
	}

	var token common.Address
	if leg.Token != "" {
		if !common.IsHexAddress(leg.Token) {
			return nil, fmt.Errorf("invalid token %q", leg.Token)
		}
		token = common.HexToAddress(leg.Token)
	}

	if leg.Amount == nil || leg.Amount.Sign() < 0 {
		return nil, fmt.Errorf("invalid leg amount")
	}

	return &PaymentCall{
		A:          a,
		B:          b,
		C:          c,
		Commitment: commitment,
		Recipient:  common.HexToAddress(leg.Recipient),
		Amount:     new(big.Int).Set(leg.Amount),
		Token:      token,
		Nonce:      leg.Nonce,
	}, nil
}

// IsNative reports whether the payment moves the chain's native currency.
func (p *PaymentCall) IsNative() bool {
	return p.Token == (common.Address{})
}

// Value is the native currency attached to the call: the amount for native
// payments, zero for ERC-20 payments.
func (p *PaymentCall) Value() *big.Int {
	if p.IsNative() {
		return new(big.Int).Set(p.Amount)
	}
	return new(big.Int)
}

// Pack ABI-encodes the executePayment calldata.
func (p *PaymentCall) Pack() ([]byte, error) {
	return settlementContractABI.Pack(
		executePaymentMethod,
		p.A,
		p.B,
		p.C,
		p.Commitment,
		p.Recipient,
		p.Amount,
		p.Token,
		p.Nonce,
	)
}
