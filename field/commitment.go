package field

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	coeffSecret    = big.NewInt(3)
	coeffRecipient = big.NewInt(5)
	coeffAmount    = big.NewInt(7)
	coeffLinear    = big.NewInt(11)
)

// Trace holds every intermediate value of a commitment derivation.
type Trace struct {
	Secret        *big.Int
	RecipientHash *big.Int
	Amount        *big.Int
	T1            *big.Int
	T2            *big.Int
	T2Squared     *big.Int
	Commitment    *big.Int
}

// RecipientHash is keccak256 over the 20 raw address bytes (Solidity
// abi.encodePacked(address)), reduced into the field.
func RecipientHash(recipient string) (*big.Int, error) {
	if !common.IsHexAddress(recipient) {
		return nil, fmt.Errorf("invalid recipient address %q", recipient)
	}
	h := crypto.Keccak256(common.HexToAddress(recipient).Bytes())
	return Reduce(new(big.Int).SetBytes(h)), nil
}

// Commit derives the commitment for (secret, recipient, amount).
func Commit(secret *big.Int, recipient string, amount *big.Int) (*Trace, error) {
	rh, err := RecipientHash(recipient)
	if err != nil {
		return nil, err
	}
	return CommitWithHash(secret, rh, amount), nil
}

// CommitWithHash derives the commitment from an already computed recipient
// hash:
//
//	t1 = 3*secret + 5*recipientHash
//	t2 = t1 + 7*amount
//	commitment = 11*t2 + t2^2
//
// with a reduction after every step.
func CommitWithHash(secret, recipientHash, amount *big.Int) *Trace {
	t := &Trace{
		Secret:        Reduce(secret),
		RecipientHash: Reduce(recipientHash),
		Amount:        Reduce(amount),
	}

	t.T1 = Reduce(new(big.Int).Add(
		new(big.Int).Mul(t.Secret, coeffSecret),
		new(big.Int).Mul(t.RecipientHash, coeffRecipient),
	))
	t.T2 = Reduce(new(big.Int).Add(t.T1, new(big.Int).Mul(t.Amount, coeffAmount)))
	t.T2Squared = Reduce(new(big.Int).Mul(t.T2, t.T2))
	t.Commitment = Reduce(new(big.Int).Add(new(big.Int).Mul(t.T2, coeffLinear), t.T2Squared))

	return t
}

// Values returns the trace in derivation order.
func (t *Trace) Values() []*big.Int {
	return []*big.Int{t.Secret, t.RecipientHash, t.Amount, t.T1, t.T2, t.T2Squared, t.Commitment}
}
