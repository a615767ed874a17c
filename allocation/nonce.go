package allocation

import (
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/vitwit/heka402/types"
)

// DeriveNonce hashes the packed tuple (uint256 chains[0], address signer,
// uint256 issuedAt) with keccak256. The result is shared by every leg of the
// payment. Uniqueness is not enforced here: each settlement contract keeps
// its own replay set.
func DeriveNonce(chains []types.ChainID, signer common.Address, issuedAt int64) ([32]byte, error) {
	if len(chains) == 0 {
		return [32]byte{}, types.NewError(types.ErrValidation, "at least one chain is required to derive a nonce")
	}
	if issuedAt < 0 {
		return [32]byte{}, types.NewError(types.ErrValidation, "issuedAt must not be negative")
	}

	chain := new(big.Int).SetUint64(uint64(chains[0]))
	ts := big.NewInt(issuedAt)

	return crypto.Keccak256Hash(
		math.U256Bytes(chain),
		signer.Bytes(),
		math.U256Bytes(ts),
	), nil
}

// IssueClock hands out strictly increasing millisecond timestamps, so two
// payments issued by the same process never share an issuedAt even when the
// wall clock stalls or steps back.
type IssueClock struct {
	mu   sync.Mutex
	now  func() time.Time
	last int64
}

// NewIssueClock returns a clock reading from now, or time.Now when nil.
func NewIssueClock(now func() time.Time) *IssueClock {
	if now == nil {
		now = time.Now
	}
	return &IssueClock{now: now}
}

// Next returns the next issuance timestamp in Unix milliseconds.
func (c *IssueClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	ts := c.now().UnixMilli()
	if ts <= c.last {
		ts = c.last + 1
	}
	c.last = ts
	return ts
}
