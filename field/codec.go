package field

import (
	"fmt"
	"math/big"
)

// ToBytes32 encodes a field element as the big-endian, zero left-padded
// bytes32 the settlement contract receives. Values that are negative or do
// not fit in 32 bytes are rejected instead of truncated.
func ToBytes32(n *big.Int) ([32]byte, error) {
	var out [32]byte
	if n == nil {
		return out, fmt.Errorf("nil value")
	}
	if n.Sign() < 0 {
		return out, fmt.Errorf("negative value %s", n)
	}
	if n.BitLen() > 256 {
		return out, fmt.Errorf("value %s overflows bytes32", n)
	}
	n.FillBytes(out[:])
	return out, nil
}

// FromBytes32 decodes a big-endian bytes32 back into an integer.
func FromBytes32(b [32]byte) *big.Int {
	return new(big.Int).SetBytes(b[:])
}
