// Package heka402 splits one logical payment across several EVM chains. A
// single commitment, zero-knowledge proof and replay nonce are computed once
// and presented to every chain's settlement contract, and each chain leg is
// simulated before it is signed.
package heka402

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"io"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"

	"github.com/vitwit/heka402/allocation"
	"github.com/vitwit/heka402/clients"
	"github.com/vitwit/heka402/discovery"
	"github.com/vitwit/heka402/field"
	"github.com/vitwit/heka402/logger"
	"github.com/vitwit/heka402/metrics"
	"github.com/vitwit/heka402/prover"
	"github.com/vitwit/heka402/settlement"
	"github.com/vitwit/heka402/types"
	"github.com/vitwit/heka402/utils"
)

// Version information
const (
	Version = "0.1.0"

	nativeDecimals = 18
)

// Resolver finds the recipient behind an x402 discovery URL. It never fails:
// the zero address stands for "no recipient".
type Resolver interface {
	Resolve(ctx context.Context, url string) string
}

// Heka402 is the payment orchestrator.
type Heka402 struct {
	config *types.Config
	signer common.Address

	settlementService *settlement.SettlementService
	prover            prover.Prover
	resolver          Resolver
	dispatcher        settlement.Dispatcher
	clock             *allocation.IssueClock
	secrets           io.Reader

	logger  logger.Logger
	metrics metrics.Recorder
}

// New creates an orchestrator for cfg that signs with key. Unless
// WithSettlement is given, an EVM client is dialed for every configured chain.
func New(ctx context.Context, cfg *types.Config, key *ecdsa.PrivateKey, opts ...Option) (*Heka402, error) {
	if cfg == nil {
		return nil, types.NewError(types.ErrConfig, "config is required")
	}
	if key == nil {
		return nil, types.NewError(types.ErrConfig, "signer key is required")
	}
	cfg.ApplyDefaults()

	h := &Heka402{
		config: cfg,
		signer: crypto.PubkeyToAddress(key.PublicKey),
	}
	for _, opt := range opts {
		opt(h)
	}

	if h.logger == nil {
		h.logger = logger.NoopLogger{}
		if cfg.LogLevel != "" {
			zl, err := logger.NewZapLogger(cfg.LogLevel)
			if err != nil {
				return nil, types.Wrap(types.ErrConfig, 0, err, "create logger")
			}
			h.logger = zl
		}
	}
	if h.metrics == nil {
		h.metrics = metrics.NoopRecorder{}
		if cfg.EnableMetrics {
			rec, err := metrics.NewPrometheusRecorder(nil)
			if err != nil {
				return nil, types.Wrap(types.ErrConfig, 0, err, "register metrics")
			}
			h.metrics = rec
		}
	}
	if h.prover == nil {
		h.prover = prover.NewHTTPProver(cfg.ProverURL, cfg.ProverTimeout)
	}
	if h.resolver == nil {
		h.resolver = discovery.NewResolver(0, h.logger)
	}
	if h.dispatcher == nil {
		h.dispatcher = settlement.NewDispatcher(cfg.Dispatch, cfg.DispatchLimit)
	}
	if h.clock == nil {
		h.clock = allocation.NewIssueClock(nil)
	}

	if h.settlementService == nil {
		svc := settlement.NewSettlementService(cfg.LegTimeout, h.logger, h.metrics)
		for id, cc := range cfg.Chains {
			client, err := clients.NewEVMClient(ctx, id, cc, key)
			if err != nil {
				svc.Close()
				return nil, types.Wrap(types.ErrConfig, id, err, "create chain client")
			}
			svc.AddClient(client)
		}
		h.settlementService = svc
	}

	return h, nil
}

// Signer returns the address that signs every leg.
func (h *Heka402) Signer() common.Address {
	return h.signer
}

// SupportedChains returns the chains a payment may target.
func (h *Heka402) SupportedChains() []types.ChainID {
	return h.settlementService.SupportedChains()
}

// IsChainSupported reports whether a chain can be used in a payment.
func (h *Heka402) IsChainSupported(id types.ChainID) bool {
	return h.settlementService.IsChainSupported(id)
}

// ExecutePayment runs one split payment. Failures before the chain legs
// start (validation, balance, proof) are returned as an error and nothing is
// sent. Once legs start, every leg gets its own ExecutionResult and legs that
// succeeded are never rolled back.
func (h *Heka402) ExecutePayment(ctx context.Context, req *types.PaymentRequest) (*types.OrchestrationResult, error) {
	paymentID := uuid.NewString()
	fields := map[string]any{"payment_id": paymentID}
	defer metrics.Timer(h.metrics, metrics.OpPayment, nil)()

	total, secret, err := h.validate(req)
	if err != nil {
		h.reject(fields, err)
		return nil, err
	}
	h.metrics.IncCounter(metrics.PaymentStarted, nil)
	h.logger.Info("payment validated", logger.Merge(fields, map[string]any{
		"recipient": req.Recipient,
		"amount":    total.String(),
		"chains":    req.Chains,
	}))

	if err := h.checkBalance(ctx, req.Token, fields); err != nil {
		h.reject(fields, err)
		return nil, err
	}

	if secret == nil {
		raw, err := field.NewSecret(h.secrets)
		if err != nil {
			return nil, types.Wrap(types.ErrValidation, 0, err, "generate secret")
		}
		if secret, err = field.ParseSecret(raw); err != nil {
			return nil, types.Wrap(types.ErrValidation, 0, err, "generate secret")
		}
	}

	trace, err := field.Commit(secret, req.Recipient, total)
	if err != nil {
		return nil, types.Wrap(types.ErrValidation, 0, err, "compute commitment")
	}
	commitment, err := field.ToBytes32(trace.Commitment)
	if err != nil {
		return nil, types.Wrap(types.ErrValidation, 0, err, "encode commitment")
	}

	stop := metrics.Timer(h.metrics, metrics.OpProve, nil)
	artifact, err := h.prover.RequestProof(ctx, prover.ProofRequest{
		Secret:    secret.String(),
		Recipient: req.Recipient,
		Amount:    total.String(),
	})
	stop()
	if err != nil {
		h.metrics.IncCounter(metrics.ProofFailed, nil)
		err = types.Wrap(types.ErrProofGeneration, 0, err, "request proof")
		h.reject(fields, err)
		return nil, err
	}
	h.logger.Info("proof received", logger.Merge(fields, map[string]any{
		"commitment": hexutil.Encode(commitment[:]),
	}))

	allocs, err := allocation.Split(total, req.Chains)
	if err != nil {
		return nil, err
	}
	nonce, err := allocation.DeriveNonce(req.Chains, h.signer, h.clock.Next())
	if err != nil {
		return nil, err
	}

	legs := make([]types.Leg, 0, len(allocs))
	for _, a := range allocs {
		legs = append(legs, types.Leg{
			ChainID:    a.ChainID,
			Proof:      artifact.Proof,
			Commitment: trace.Commitment,
			Recipient:  req.Recipient,
			Amount:     a.Amount,
			Token:      req.Token,
			Nonce:      nonce,
		})
		h.logger.Debug("leg allocated", logger.Merge(fields, map[string]any{
			"chain_id": uint64(a.ChainID),
			"amount":   a.Amount.String(),
		}))
	}

	results := h.dispatcher.Dispatch(ctx, legs, h.settlementService)

	out := &types.OrchestrationResult{
		PaymentID:  paymentID,
		Commitment: hexutil.Encode(commitment[:]),
		Nonce:      hexutil.Encode(nonce[:]),
		Results:    results,
	}
	if len(results) > 0 && results[0].Success {
		out.TxHash = results[0].TxHash
	}

	h.logger.Info("payment finished", logger.Merge(fields, map[string]any{
		"tx_hash":   out.TxHash,
		"succeeded": len(out.Succeeded()),
		"failed":    len(out.Failed()),
	}))
	return out, nil
}

// QuickPayment pays amount atomic units of the native currency to
// recipient, on the active chain when no chains are given.
func (h *Heka402) QuickPayment(ctx context.Context, recipient, amount string, chains ...types.ChainID) (*types.OrchestrationResult, error) {
	if len(chains) == 0 {
		chains = []types.ChainID{h.config.ActiveChain}
	}
	return h.ExecutePayment(ctx, &types.PaymentRequest{
		Recipient: recipient,
		Amount:    amount,
		Chains:    chains,
	})
}

// X402Payment resolves the recipient behind req.URL and pays it. Discovery
// falls back to the zero address, which is refused unless the configuration
// allows it.
func (h *Heka402) X402Payment(ctx context.Context, req *types.X402Request) (*types.X402Result, error) {
	if err := utils.ValidateX402Request(req); err != nil {
		return nil, err
	}

	recipient := h.resolver.Resolve(ctx, req.URL)
	if discovery.IsZero(recipient) && !h.config.AllowZeroRecipient {
		return nil, types.NewError(types.ErrValidation, "x402 discovery at %s returned no recipient", req.URL)
	}
	h.logger.Info("x402 recipient resolved", map[string]any{
		"url":       req.URL,
		"recipient": recipient,
	})

	chains := req.Chains
	if len(chains) == 0 {
		chains = []types.ChainID{h.config.ActiveChain}
	}

	res, err := h.ExecutePayment(ctx, &types.PaymentRequest{
		Recipient: recipient,
		Amount:    req.Amount,
		Token:     req.Token,
		Chains:    chains,
	})
	if err != nil {
		return nil, err
	}

	return &types.X402Result{
		TxHash:     res.TxHash,
		Commitment: res.Commitment,
		Recipient:  recipient,
		Results:    res.Results,
	}, nil
}

// ProverStatus queries the prover's liveness endpoint.
func (h *Heka402) ProverStatus(ctx context.Context) (*types.ProverStatus, error) {
	return h.prover.Status(ctx)
}

// ExecuteLeg runs a single prepared leg. It is what the relayer serves.
func (h *Heka402) ExecuteLeg(ctx context.Context, leg types.Leg) types.ExecutionResult {
	return h.settlementService.Execute(ctx, leg)
}

// Close closes all client connections
func (h *Heka402) Close() {
	h.settlementService.Close()
}

// validate performs every check that needs no network access.
func (h *Heka402) validate(req *types.PaymentRequest) (*big.Int, *big.Int, error) {
	total, err := utils.ValidatePaymentRequest(req)
	if err != nil {
		return nil, nil, err
	}

	for _, id := range req.Chains {
		if !h.settlementService.IsChainSupported(id) {
			return nil, nil, &types.HekaError{
				Code:    types.ErrUnsupportedChain,
				Message: "no rpc endpoint configured",
				ChainID: id,
			}
		}
	}

	var secret *big.Int
	if req.Secret != "" {
		if secret, err = field.ParseSecret(req.Secret); err != nil {
			return nil, nil, types.Wrap(types.ErrValidation, 0, err, "invalid secret")
		}
	}
	return total, secret, nil
}

// checkBalance is the pre-flight on the active chain: a signer with no
// native balance cannot pay gas anywhere.
func (h *Heka402) checkBalance(ctx context.Context, token string, fields map[string]any) error {
	active := h.config.ActiveChain
	client, ok := h.settlementService.Client(active)
	if !ok {
		return &types.HekaError{
			Code:    types.ErrUnsupportedChain,
			Message: "active chain has no rpc endpoint configured",
			ChainID: active,
		}
	}

	bal, err := client.Balance(ctx)
	if err != nil {
		return types.Wrap(types.ErrExecution, active, err, "fetch signer balance")
	}
	h.logger.Info("signer balance", logger.Merge(fields, map[string]any{
		"chain_id": uint64(active),
		"signer":   h.signer.Hex(),
		"balance":  utils.FormatAmountFromBigInt(bal, nativeDecimals),
	}))
	if bal.Sign() <= 0 {
		return &types.HekaError{
			Code:    types.ErrInsufficientBalance,
			Message: fmt.Sprintf("signer %s has no balance", h.signer.Hex()),
			ChainID: active,
		}
	}

	if token != "" {
		tb, err := client.TokenBalance(ctx, common.HexToAddress(token))
		if err != nil {
			h.logger.Warn("token balance unavailable", logger.Merge(fields, map[string]any{
				"token": token,
				"error": err.Error(),
			}))
			return nil
		}
		h.logger.Info("signer token balance", logger.Merge(fields, map[string]any{
			"token":   token,
			"balance": tb.String(),
		}))
	}
	return nil
}

func (h *Heka402) reject(fields map[string]any, err error) {
	code := types.CodeOf(err)
	h.metrics.IncCounter(metrics.PaymentRejected, map[string]string{metrics.LabelReason: code})
	h.logger.Warn("payment rejected", logger.Merge(fields, map[string]any{
		"error_kind": code,
		"error":      err.Error(),
	}))
}

// GetVersion returns version information
func GetVersion() map[string]any {
	chains := make([]string, 0)
	for _, cc := range types.DefaultChains() {
		chains = append(chains, cc.Name)
	}
	sort.Strings(chains)
	return map[string]any{
		"library_version":  Version,
		"default_networks": chains,
		"assets":           []string{"native", "erc20"},
	}
}
