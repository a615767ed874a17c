package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommitCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{
		"commit",
		"--secret", "12345",
		"--to", "0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
		"--amount", "1",
		"--decimals", "18",
	})
	require.NoError(t, rootCmd.Execute())

	var got map[string]string
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "1000000000000000000", got["amount"])
	assert.NotEmpty(t, got["commitment"])
	assert.Len(t, got["bytes32"], 66)
}

func TestAtomicAmount(t *testing.T) {
	got, err := atomicAmount("2.5", 6)
	require.NoError(t, err)
	assert.Equal(t, "2500000", got)

	got, err = atomicAmount("2500000", -1)
	require.NoError(t, err)
	assert.Equal(t, "2500000", got)
}
