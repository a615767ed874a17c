// Package settlement runs payment legs against per-chain settlement
// contracts. Every leg is simulated before anything is signed, so a leg that
// would revert never costs gas.
package settlement

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vitwit/heka402/clients"
	"github.com/vitwit/heka402/logger"
	"github.com/vitwit/heka402/metrics"
	"github.com/vitwit/heka402/types"
)

// Executor settles a single leg.
type Executor interface {
	Execute(ctx context.Context, leg types.Leg) types.ExecutionResult
}

var _ Executor = (*SettlementService)(nil)

// SettlementService manages chain clients and executes legs on them.
type SettlementService struct {
	mu      sync.RWMutex
	clients map[types.ChainID]clients.Client
	timeout time.Duration
	logger  logger.Logger
	metrics metrics.Recorder
}

// NewSettlementService creates a service whose legs are each bounded by
// timeout (simulation, submission and receipt wait together).
func NewSettlementService(timeout time.Duration, l logger.Logger, m metrics.Recorder) *SettlementService {
	if timeout <= 0 {
		timeout = types.DefaultLegTimeout
	}
	if l == nil {
		l = logger.NoopLogger{}
	}
	if m == nil {
		m = metrics.NoopRecorder{}
	}
	return &SettlementService{
		clients: make(map[types.ChainID]clients.Client),
		timeout: timeout,
		logger:  l,
		metrics: m,
	}
}

// AddClient registers the client for its chain, replacing any previous one.
func (s *SettlementService) AddClient(c clients.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.clients[c.ChainID()]; ok && old != c {
		old.Close()
	}
	s.clients[c.ChainID()] = c
}

// Client returns the client for a chain.
func (s *SettlementService) Client(id types.ChainID) (clients.Client, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.clients[id]
	return c, ok
}

// IsChainSupported reports whether a client is configured for id.
func (s *SettlementService) IsChainSupported(id types.ChainID) bool {
	_, ok := s.Client(id)
	return ok
}

// SupportedChains returns the configured chain ids in ascending order.
func (s *SettlementService) SupportedChains() []types.ChainID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]types.ChainID, 0, len(s.clients))
	for id := range s.clients {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Execute runs one leg: simulate, then submit, then wait for inclusion.
// Failures never escape as errors; they are reported in the result.
func (s *SettlementService) Execute(ctx context.Context, leg types.Leg) types.ExecutionResult {
	labels := map[string]string{metrics.LabelChain: leg.ChainID.String()}
	fields := map[string]any{"chain_id": uint64(leg.ChainID)}

	client, ok := s.Client(leg.ChainID)
	if !ok {
		return s.fail(leg, &types.HekaError{
			Code:    types.ErrUnsupportedChain,
			Message: "no rpc endpoint configured",
			ChainID: leg.ChainID,
		})
	}

	legCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	call, err := clients.NewPaymentCall(&leg)
	if err != nil {
		return s.fail(leg, types.Wrap(types.ErrValidation, leg.ChainID, err, "build executePayment call"))
	}

	stop := metrics.Timer(s.metrics, metrics.OpSimulate, labels)
	err = client.Simulate(legCtx, call)
	stop()
	if err != nil {
		return s.fail(leg, err)
	}
	s.logger.Debug("simulation passed", fields)

	stop = metrics.Timer(s.metrics, metrics.OpSubmit, labels)
	tx, err := client.Submit(legCtx, call)
	stop()
	if err != nil {
		return s.fail(leg, err)
	}
	txHash := tx.Hash()
	s.logger.Info("transaction submitted", logger.Merge(fields, map[string]any{"tx_hash": txHash.Hex()}))

	stop = metrics.Timer(s.metrics, metrics.OpAwaitReceipt, labels)
	receipt, err := client.WaitReceipt(legCtx, txHash)
	stop()
	if err != nil {
		res := s.fail(leg, types.Wrap(types.ErrExecution, leg.ChainID, err, "transaction failed after simulation"))
		res.TxHash = txHash.Hex()
		return res
	}

	s.metrics.IncCounter(metrics.LegSucceeded, labels)
	res := types.ExecutionResult{
		ChainID:     leg.ChainID,
		Success:     true,
		Amount:      leg.Amount.String(),
		TxHash:      txHash.Hex(),
		BlockNumber: receipt.BlockNumber.Uint64(),
	}
	s.logger.Info("leg settled", logger.Merge(fields, map[string]any{
		"tx_hash":      res.TxHash,
		"block_number": res.BlockNumber,
	}))
	return res
}

func (s *SettlementService) fail(leg types.Leg, err error) types.ExecutionResult {
	kind := types.CodeOf(err)
	if kind == "" {
		kind = types.ErrExecution
	}

	amount := ""
	if leg.Amount != nil {
		amount = leg.Amount.String()
	}

	s.metrics.IncCounter(metrics.LegFailed, map[string]string{
		metrics.LabelChain:  leg.ChainID.String(),
		metrics.LabelReason: kind,
	})
	s.logger.Warn("leg failed", map[string]any{
		"chain_id":   uint64(leg.ChainID),
		"error_kind": kind,
		"error":      err.Error(),
	})

	return types.ExecutionResult{
		ChainID:   leg.ChainID,
		Success:   false,
		Amount:    amount,
		ErrorKind: kind,
		Detail:    err.Error(),
		Retryable: types.IsRetryable(err),
	}
}

// Close closes all client connections
func (s *SettlementService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, client := range s.clients {
		client.Close()
		delete(s.clients, id)
	}
}

// String is used in logs.
func (s *SettlementService) String() string {
	return fmt.Sprintf("settlement(%v)", s.SupportedChains())
}
