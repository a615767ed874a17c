package field

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// SecretSize is the number of random bytes in a generated secret.
const SecretSize = 32

// NewSecret reads SecretSize bytes from r (crypto/rand when nil) and returns
// them 0x-hex encoded. The caller owns the secret and must not reuse it for
// another payment: reuse links payments together.
func NewSecret(r io.Reader) (string, error) {
	if r == nil {
		r = rand.Reader
	}
	buf := make([]byte, SecretSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("read secret entropy: %w", err)
	}
	return hexutil.Encode(buf), nil
}

// ParseSecret accepts a decimal or 0x-prefixed hex integer.
func ParseSecret(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty secret")
	}
	var (
		n  *big.Int
		ok bool
	)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		n, ok = new(big.Int).SetString(s[2:], 16)
	} else {
		n, ok = new(big.Int).SetString(s, 10)
	}
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("secret must be a non-negative decimal or 0x-hex integer")
	}
	return n, nil
}
