package field

import (
	"bytes"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hexWord(w [32]byte) string {
	return hexutil.Encode(w[:])
}

func TestToBytes32PadsBigEndian(t *testing.T) {
	w, err := ToBytes32(big.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, "0x"+strings.Repeat("00", 31)+"01", hexWord(w))

	w, err = ToBytes32(big.NewInt(0x0102))
	require.NoError(t, err)
	assert.Equal(t, byte(0x01), w[30])
	assert.Equal(t, byte(0x02), w[31])

	w, err = ToBytes32(new(big.Int))
	require.NoError(t, err)
	assert.Equal(t, [32]byte{}, w)
}

func TestToBytes32Bounds(t *testing.T) {
	max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	w, err := ToBytes32(max)
	require.NoError(t, err)
	assert.Equal(t, "0x"+strings.Repeat("ff", 32), hexWord(w))

	_, err = ToBytes32(new(big.Int).Lsh(big.NewInt(1), 256))
	assert.Error(t, err)

	_, err = ToBytes32(big.NewInt(-1))
	assert.Error(t, err)

	_, err = ToBytes32(nil)
	assert.Error(t, err)
}

func TestFromBytes32InvertsFieldElements(t *testing.T) {
	v := new(big.Int).Sub(Prime, big.NewInt(1))
	w, err := ToBytes32(v)
	require.NoError(t, err)
	assert.Equal(t, 0, FromBytes32(w).Cmp(v))
}

func TestNewSecret(t *testing.T) {
	s, err := NewSecret(bytes.NewReader(bytes.Repeat([]byte{0xab}, SecretSize)))
	require.NoError(t, err)
	assert.Equal(t, "0x"+strings.Repeat("ab", SecretSize), s)

	_, err = NewSecret(bytes.NewReader([]byte{1, 2, 3}))
	assert.Error(t, err)

	a, err := NewSecret(nil)
	require.NoError(t, err)
	b, err := NewSecret(nil)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	n, err := ParseSecret(a)
	require.NoError(t, err)
	assert.LessOrEqual(t, n.BitLen(), SecretSize*8)
}

func TestParseSecret(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "12345", want: "12345"},
		{in: "0123", want: "123"},
		{in: "0x10", want: "16"},
		{in: "0XfF", want: "255"},
		{in: "  42 ", want: "42"},
		{in: "", wantErr: true},
		{in: "-1", wantErr: true},
		{in: "0x", wantErr: true},
		{in: "abc", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseSecret(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got.String(), tt.in)
	}
}
