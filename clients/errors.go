package clients

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/vitwit/heka402/types"
)

// Revert reasons that point at the proof/commitment binding rather than at
// balances or replay protection.
var commitmentRevertMarkers = []string{
	"commitment",
	"invalid proof",
	"proof verification failed",
}

// RevertReason extracts the Solidity revert reason carried by an eth_call
// error. ok is false when err does not describe a revert.
func RevertReason(err error) (reason string, ok bool) {
	if err == nil {
		return "", false
	}

	var de rpc.DataError
	if errors.As(err, &de) {
		if data, isStr := de.ErrorData().(string); isStr {
			if raw, decErr := hexutil.Decode(data); decErr == nil {
				if msg, unpackErr := abi.UnpackRevert(raw); unpackErr == nil {
					return msg, true
				}
			}
		}
		return de.Error(), true
	}

	if strings.Contains(strings.ToLower(err.Error()), "revert") {
		return err.Error(), true
	}
	return "", false
}

// classifySimulation turns an eth_call failure into a protocol error.
// Reverts become SIMULATION_REVERTED, or COMMITMENT_MISMATCH when the reason
// names the proof binding; transport failures become EXECUTION_FAILED.
// Either way no transaction has been sent.
func classifySimulation(chain types.ChainID, err error) *types.HekaError {
	reason, isRevert := RevertReason(err)
	if !isRevert {
		return types.Wrap(types.ErrExecution, chain, err, "simulation call failed")
	}

	code := types.ErrSimulationRevert
	lower := strings.ToLower(reason)
	for _, marker := range commitmentRevertMarkers {
		if strings.Contains(lower, marker) {
			code = types.ErrCommitmentMismatch
			break
		}
	}

	return &types.HekaError{
		Code:    code,
		Message: fmt.Sprintf("executePayment would revert: %s", reason),
		ChainID: chain,
		Err:     err,
	}
}
