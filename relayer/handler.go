// Package relayer exposes single-leg settlement over HTTP, for callers that
// hold a proof but no funded signer on the target chain.
package relayer

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gin-gonic/gin"

	"github.com/vitwit/heka402/logger"
	"github.com/vitwit/heka402/types"
)

// LegExecutor settles one leg. *heka402.Heka402 satisfies it.
type LegExecutor interface {
	IsChainSupported(id types.ChainID) bool
	ExecuteLeg(ctx context.Context, leg types.Leg) types.ExecutionResult
}

// RelayRequest is the body of POST /api/relayer. Commitment accepts a
// 0x-prefixed bytes32 or a decimal integer; Nonce is a 0x-prefixed bytes32.
type RelayRequest struct {
	Proof      types.Groth16Proof `json:"proof"`
	Commitment string             `json:"commitment" binding:"required"`
	Recipient  string             `json:"recipient" binding:"required,eth_addr"`
	Amount     string             `json:"amount" binding:"required,number"`
	Token      string             `json:"token,omitempty" binding:"omitempty,eth_addr"`
	Nonce      string             `json:"nonce" binding:"required"`
	ChainID    types.ChainID      `json:"chainId" binding:"required"`
}

// RelayResponse is returned when the leg is included on chain.
type RelayResponse struct {
	TxHash      string        `json:"txHash"`
	BlockNumber uint64        `json:"blockNumber"`
	ChainID     types.ChainID `json:"chainId"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type Handler struct {
	executor LegExecutor
	logger   logger.Logger
}

func NewHandler(exec LegExecutor, l logger.Logger) *Handler {
	if l == nil {
		l = logger.NoopLogger{}
	}
	return &Handler{executor: exec, logger: l}
}

// Relay settles the posted leg and answers with its transaction.
func (h *Handler) Relay(c *gin.Context) {
	var req RelayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error(), Code: types.ErrValidation})
		return
	}

	if !h.executor.IsChainSupported(req.ChainID) {
		c.JSON(http.StatusBadRequest, errorResponse{
			Error: fmt.Sprintf("chain %d is not supported", req.ChainID),
			Code:  types.ErrUnsupportedChain,
		})
		return
	}

	leg, err := req.toLeg()
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error(), Code: types.ErrValidation})
		return
	}

	res := h.executor.ExecuteLeg(c.Request.Context(), leg)
	if !res.Success {
		h.logger.Warn("relay failed", map[string]any{
			"chain_id":   uint64(res.ChainID),
			"error_kind": res.ErrorKind,
		})
		c.JSON(http.StatusInternalServerError, errorResponse{Error: res.Detail, Code: res.ErrorKind})
		return
	}

	h.logger.Info("relayed", map[string]any{
		"chain_id": uint64(res.ChainID),
		"tx_hash":  res.TxHash,
	})
	c.JSON(http.StatusOK, RelayResponse{
		TxHash:      res.TxHash,
		BlockNumber: res.BlockNumber,
		ChainID:     res.ChainID,
	})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (r *RelayRequest) toLeg() (types.Leg, error) {
	commitment, err := parseCommitment(r.Commitment)
	if err != nil {
		return types.Leg{}, err
	}

	amount, ok := new(big.Int).SetString(r.Amount, 10)
	if !ok {
		return types.Leg{}, fmt.Errorf("invalid amount %q", r.Amount)
	}

	raw, err := hexutil.Decode(r.Nonce)
	if err != nil || len(raw) != 32 {
		return types.Leg{}, fmt.Errorf("nonce must be a 0x-prefixed 32-byte value")
	}
	var nonce [32]byte
	copy(nonce[:], raw)

	if _, _, _, err := r.Proof.Words(); err != nil {
		return types.Leg{}, err
	}

	return types.Leg{
		ChainID:    r.ChainID,
		Proof:      r.Proof,
		Commitment: commitment,
		Recipient:  r.Recipient,
		Amount:     amount,
		Token:      r.Token,
		Nonce:      nonce,
	}, nil
}

func parseCommitment(s string) (*big.Int, error) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		raw, err := hexutil.Decode(s)
		if err != nil || len(raw) > 32 {
			return nil, fmt.Errorf("commitment must be at most 32 bytes of hex")
		}
		return new(big.Int).SetBytes(raw), nil
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("invalid commitment %q", s)
	}
	return n, nil
}
