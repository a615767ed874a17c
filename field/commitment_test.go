package field

import (
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustInt(t *testing.T, s string) *big.Int {
	t.Helper()
	n, ok := new(big.Int).SetString(s, 10)
	require.True(t, ok, s)
	return n
}

func TestPrimeMatchesBN254(t *testing.T) {
	assert.Equal(t,
		"21888242871839275222246405745257275088548364400416034343698204186575808495617",
		Prime.String())
}

func TestReduceNegativeWrapsIntoField(t *testing.T) {
	got := Reduce(big.NewInt(-5))
	assert.Equal(t,
		"21888242871839275222246405745257275088548364400416034343698204186575808495612",
		got.String())
	assert.True(t, InField(got))

	assert.Equal(t, "0", Reduce(Prime).String())
	assert.False(t, InField(Prime))
}

func TestCommitWithHashReferenceVector(t *testing.T) {
	amount := mustInt(t, "1000000000000000000")
	trace := CommitWithHash(big.NewInt(12345), big.NewInt(67890), amount)

	assert.Equal(t, "376485", trace.T1.String())
	assert.Equal(t, "7000000000000376485", trace.T2.String())
	assert.Equal(t, "49000000000005270790000000141740955225", trace.T2Squared.String())
	assert.Equal(t, "49000000000005270867000000141745096560", trace.Commitment.String())

	// t2 = t1 + 7*amount and commitment = 11*t2 + t2^2, both below P here
	expectedT2 := new(big.Int).Add(trace.T1, new(big.Int).Mul(amount, big.NewInt(7)))
	assert.Equal(t, expectedT2.String(), trace.T2.String())

	word, err := ToBytes32(trace.Commitment)
	require.NoError(t, err)
	assert.Equal(t, "0x0000000000000000000000000000000024dd0e85b17eb74d97437bf5da168770", hexWord(word))
}

func TestCommitIsDeterministic(t *testing.T) {
	secret := mustInt(t, "987654321987654321")
	amount := big.NewInt(42)
	recipient := "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"

	a, err := Commit(secret, recipient, amount)
	require.NoError(t, err)
	b, err := Commit(secret, recipient, amount)
	require.NoError(t, err)

	assert.Equal(t, a.Commitment, b.Commitment)
	assert.Equal(t, a.Values(), b.Values())
}

func TestRecipientHashIgnoresChecksumCase(t *testing.T) {
	checksummed, err := RecipientHash("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	require.NoError(t, err)
	lower, err := RecipientHash("0x70997970c51812dc3a010c7d01b50e0d17dc79c8")
	require.NoError(t, err)

	assert.Equal(t, checksummed, lower)
	assert.True(t, InField(checksummed))
}

func TestRecipientHashRejectsInvalidAddress(t *testing.T) {
	for _, addr := range []string{"", "0x1234", "not-an-address"} {
		_, err := RecipientHash(addr)
		assert.Error(t, err, addr)

		_, err = Commit(big.NewInt(1), addr, big.NewInt(1))
		assert.Error(t, err, addr)
	}
}

// commitFr recomputes the commitment with gnark-crypto's Montgomery field
// arithmetic, independently of math/big.
func commitFr(secret, recipientHash, amount *big.Int) *big.Int {
	var s, rh, a, three, five, seven, eleven fr.Element
	s.SetBigInt(secret)
	rh.SetBigInt(recipientHash)
	a.SetBigInt(amount)
	three.SetUint64(3)
	five.SetUint64(5)
	seven.SetUint64(7)
	eleven.SetUint64(11)

	var t1, t2, tmp, sq, c fr.Element
	t1.Mul(&s, &three)
	tmp.Mul(&rh, &five)
	t1.Add(&t1, &tmp)

	tmp.Mul(&a, &seven)
	t2.Add(&t1, &tmp)

	sq.Square(&t2)
	c.Mul(&t2, &eleven)
	c.Add(&c, &sq)

	return c.BigInt(new(big.Int))
}

func bytesToInt(b []byte) *big.Int {
	return new(big.Int).SetBytes(b)
}

func TestCommitProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	// 40 bytes exceeds P, so inputs outside the field are covered too.
	word := gen.SliceOfN(40, gen.UInt8())

	properties.Property("every intermediate value lies in [0, P)", prop.ForAll(
		func(s, rh, a []byte) bool {
			trace := CommitWithHash(bytesToInt(s), bytesToInt(rh), bytesToInt(a))
			for _, v := range trace.Values() {
				if !InField(v) {
					return false
				}
			}
			return true
		},
		word, word, word,
	))

	properties.Property("matches gnark-crypto field arithmetic", prop.ForAll(
		func(s, rh, a []byte) bool {
			trace := CommitWithHash(bytesToInt(s), bytesToInt(rh), bytesToInt(a))
			return trace.Commitment.Cmp(commitFr(bytesToInt(s), bytesToInt(rh), bytesToInt(a))) == 0
		},
		word, word, word,
	))

	properties.Property("is deterministic", prop.ForAll(
		func(s, rh, a []byte) bool {
			x := CommitWithHash(bytesToInt(s), bytesToInt(rh), bytesToInt(a))
			y := CommitWithHash(bytesToInt(s), bytesToInt(rh), bytesToInt(a))
			return x.Commitment.Cmp(y.Commitment) == 0
		},
		word, word, word,
	))

	properties.TestingRun(t)
}
