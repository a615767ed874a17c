package clients

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/vitwit/heka402/types"
)

const (
	defaultPollInterval = 2 * time.Second
	// Gas estimate headroom, in percent.
	gasHeadroom = 20
)

var _ Client = (*EVMClient)(nil)

// EVMClient executes settlement-contract calls on one EVM chain.
type EVMClient struct {
	chainID  types.ChainID
	contract common.Address
	backend  Backend
	key      *ecdsa.PrivateKey
	from     common.Address

	pollInterval time.Duration

	// submitMu keeps account-nonce assignment and broadcast atomic so
	// concurrent payments from the same signer are not reordered.
	submitMu sync.Mutex

	chainMu      sync.Mutex
	chainChecked bool
}

// NewEVMClient dials the chain's RPC endpoint.
func NewEVMClient(ctx context.Context, chainID types.ChainID, cfg types.ChainConfig, key *ecdsa.PrivateKey) (*EVMClient, error) {
	backend, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s RPC: %w", cfg.Name, err)
	}
	return NewEVMClientWithBackend(chainID, common.HexToAddress(cfg.Contract), backend, key)
}

// NewEVMClientWithBackend builds a client over an existing backend.
func NewEVMClientWithBackend(chainID types.ChainID, contract common.Address, backend Backend, key *ecdsa.PrivateKey) (*EVMClient, error) {
	if key == nil {
		return nil, errors.New("signer key is required")
	}
	if contract == (common.Address{}) {
		return nil, fmt.Errorf("chain %d: settlement contract address is not configured", chainID)
	}
	return &EVMClient{
		chainID:      chainID,
		contract:     contract,
		backend:      backend,
		key:          key,
		from:         crypto.PubkeyToAddress(key.PublicKey),
		pollInterval: defaultPollInterval,
	}, nil
}

// SetPollInterval changes how often WaitReceipt polls for the receipt.
func (e *EVMClient) SetPollInterval(d time.Duration) {
	if d > 0 {
		e.pollInterval = d
	}
}

// ChainID implements Client.
func (e *EVMClient) ChainID() types.ChainID {
	return e.chainID
}

// Signer implements Client.
func (e *EVMClient) Signer() common.Address {
	return e.from
}

// Close implements Client.
func (e *EVMClient) Close() {
	e.backend.Close()
}

// Balance implements Client.
func (e *EVMClient) Balance(ctx context.Context) (*big.Int, error) {
	return e.backend.BalanceAt(ctx, e.from, nil)
}

// TokenBalance implements Client by calling the ERC-20 balanceOf view.
func (e *EVMClient) TokenBalance(ctx context.Context, token common.Address) (*big.Int, error) {
	data, err := erc20ContractABI.Pack("balanceOf", e.from)
	if err != nil {
		return nil, err
	}
	out, err := e.backend.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, err
	}
	values, err := erc20ContractABI.Unpack("balanceOf", out)
	if err != nil {
		return nil, err
	}
	bal, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected balanceOf result %T", values[0])
	}
	return bal, nil
}

// Simulate implements Client. It runs executePayment through eth_call with
// the exact arguments and value of the real transaction. Nothing is signed
// or broadcast.
func (e *EVMClient) Simulate(ctx context.Context, call *PaymentCall) error {
	if err := e.ensureChain(ctx); err != nil {
		return err
	}

	msg, err := e.callMsg(call)
	if err != nil {
		return types.Wrap(types.ErrExecution, e.chainID, err, "pack executePayment")
	}

	if _, err := e.backend.CallContract(ctx, msg, nil); err != nil {
		return classifySimulation(e.chainID, err)
	}
	return nil
}

// Submit implements Client. It signs and broadcasts executePayment; callers
// must have simulated the same call first.
func (e *EVMClient) Submit(ctx context.Context, call *PaymentCall) (*ethtypes.Transaction, error) {
	msg, err := e.callMsg(call)
	if err != nil {
		return nil, types.Wrap(types.ErrExecution, e.chainID, err, "pack executePayment")
	}

	e.submitMu.Lock()
	defer e.submitMu.Unlock()

	gas, err := e.backend.EstimateGas(ctx, msg)
	if err != nil {
		return nil, types.Wrap(types.ErrExecution, e.chainID, err, "estimate gas")
	}
	gas += gas * gasHeadroom / 100

	gasPrice, err := e.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, types.Wrap(types.ErrExecution, e.chainID, err, "suggest gas price")
	}

	nonce, err := e.backend.PendingNonceAt(ctx, e.from)
	if err != nil {
		return nil, types.Wrap(types.ErrExecution, e.chainID, err, "fetch account nonce")
	}

	tx := ethtypes.NewTx(&ethtypes.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       &e.contract,
		Value:    msg.Value,
		Data:     msg.Data,
	})

	signer := ethtypes.LatestSignerForChainID(new(big.Int).SetUint64(uint64(e.chainID)))
	signed, err := ethtypes.SignTx(tx, signer, e.key)
	if err != nil {
		return nil, types.Wrap(types.ErrExecution, e.chainID, err, "sign transaction")
	}

	if err := e.backend.SendTransaction(ctx, signed); err != nil {
		return nil, types.Wrap(types.ErrExecution, e.chainID, err, "broadcast transaction")
	}
	return signed, nil
}

// WaitReceipt implements Client. It polls until the transaction is included
// or ctx ends. A receipt with failed status is an EXECUTION_FAILED error.
func (e *EVMClient) WaitReceipt(ctx context.Context, hash common.Hash) (*ethtypes.Receipt, error) {
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := e.backend.TransactionReceipt(ctx, hash)
		switch {
		case err == nil:
			if receipt.Status != ethtypes.ReceiptStatusSuccessful {
				return receipt, &types.HekaError{
					Code:    types.ErrExecution,
					Message: fmt.Sprintf("transaction %s reverted in block %s", hash.Hex(), receipt.BlockNumber),
					ChainID: e.chainID,
				}
			}
			return receipt, nil
		case errors.Is(err, ethereum.NotFound):
			// not mined yet
		default:
			return nil, types.Wrap(types.ErrExecution, e.chainID, err, "fetch receipt")
		}

		select {
		case <-ctx.Done():
			return nil, types.Wrap(types.ErrExecution, e.chainID, ctx.Err(), "wait for transaction "+hash.Hex())
		case <-ticker.C:
		}
	}
}

func (e *EVMClient) callMsg(call *PaymentCall) (ethereum.CallMsg, error) {
	data, err := call.Pack()
	if err != nil {
		return ethereum.CallMsg{}, err
	}
	return ethereum.CallMsg{
		From:  e.from,
		To:    &e.contract,
		Value: call.Value(),
		Data:  data,
	}, nil
}

// ensureChain verifies once that the endpoint serves the configured chain,
// so a misconfigured RPC URL cannot sign for the wrong network.
func (e *EVMClient) ensureChain(ctx context.Context) error {
	e.chainMu.Lock()
	defer e.chainMu.Unlock()

	if e.chainChecked {
		return nil
	}

	id, err := e.backend.ChainID(ctx)
	if err != nil {
		return types.Wrap(types.ErrExecution, e.chainID, err, "fetch chain id")
	}
	if !id.IsUint64() || types.ChainID(id.Uint64()) != e.chainID {
		return &types.HekaError{
			Code:    types.ErrConfig,
			Message: fmt.Sprintf("rpc endpoint serves chain %s", id),
			ChainID: e.chainID,
		}
	}

	e.chainChecked = true
	return nil
}
