// Package field implements the BN254 scalar-field arithmetic and the payment
// commitment that the external Groth16 circuit re-derives.
//
// Every value is reduced into [0, P) after each arithmetic step, exactly as
// the circuit does. Changing the formula on one side only makes every proof
// fail on chain.
package field

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// Prime is the BN254 scalar field modulus shared with the prover:
// 21888242871839275222246405745257275088548364400416034343698204186575808495617.
var Prime = fr.Modulus()

// Reduce returns n mod P normalized into [0, P). Negative inputs wrap around.
// n is not modified.
func Reduce(n *big.Int) *big.Int {
	// big.Int.Mod is Euclidean: the result is never negative for P > 0.
	return new(big.Int).Mod(n, Prime)
}

// InField reports whether n already lies in [0, P).
func InField(n *big.Int) bool {
	return n.Sign() >= 0 && n.Cmp(Prime) < 0
}
