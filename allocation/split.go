// Package allocation derives the per-payment values shared by every chain
// leg: the amount each chain receives and the replay-guard nonce.
package allocation

import (
	"math/big"

	"github.com/vitwit/heka402/types"
)

// Split divides total across chains. Every chain receives floor(total/n);
// the chain at index 0 also receives total mod n, so the allocations always
// sum to total. The same inputs always produce the same split.
func Split(total *big.Int, chains []types.ChainID) ([]types.ChainAllocation, error) {
	if len(chains) == 0 {
		return nil, types.NewError(types.ErrValidation, "at least one chain is required to split a payment")
	}
	if total == nil || total.Sign() < 0 {
		return nil, types.NewError(types.ErrValidation, "split total must be a non-negative integer")
	}

	count := big.NewInt(int64(len(chains)))
	base, remainder := new(big.Int).QuoRem(total, count, new(big.Int))

	out := make([]types.ChainAllocation, len(chains))
	for i, id := range chains {
		amount := new(big.Int).Set(base)
		if i == 0 {
			amount.Add(amount, remainder)
		}
		out[i] = types.ChainAllocation{ChainID: id, Amount: amount}
	}
	return out, nil
}

// Sum adds up the allocated amounts.
func Sum(allocs []types.ChainAllocation) *big.Int {
	total := new(big.Int)
	for _, a := range allocs {
		total.Add(total, a.Amount)
	}
	return total
}
