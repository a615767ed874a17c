// Package clienttest provides an in-memory chain client for tests.
package clienttest

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/vitwit/heka402/clients"
	"github.com/vitwit/heka402/types"
)

var _ clients.Client = (*FakeClient)(nil)

// FakeClient records every call and answers from its fields.
type FakeClient struct {
	mu sync.Mutex

	ID     types.ChainID
	From   common.Address
	Native *big.Int
	Token  *big.Int

	SimulateErr error
	SubmitErr   error
	ReceiptErr  error
	BalanceErr  error
	Block       uint64

	// Delay is applied to Simulate, honouring ctx.
	Delay time.Duration
	// OnSimulate is invoked at the start of every Simulate.
	OnSimulate func(types.ChainID)

	Simulated    []*clients.PaymentCall
	Submitted    []*clients.PaymentCall
	BalanceCalls int
	Closed       bool
}

// New returns a client for id with a funded signer.
func New(id types.ChainID) *FakeClient {
	return &FakeClient{
		ID:     id,
		From:   common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"),
		Native: big.NewInt(1e18),
		Token:  big.NewInt(0),
		Block:  100,
	}
}

func (f *FakeClient) ChainID() types.ChainID { return f.ID }

func (f *FakeClient) Signer() common.Address { return f.From }

func (f *FakeClient) Balance(context.Context) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.BalanceCalls++
	if f.BalanceErr != nil {
		return nil, f.BalanceErr
	}
	return new(big.Int).Set(f.Native), nil
}

func (f *FakeClient) TokenBalance(context.Context, common.Address) (*big.Int, error) {
	return new(big.Int).Set(f.Token), nil
}

func (f *FakeClient) Simulate(ctx context.Context, call *clients.PaymentCall) error {
	if f.OnSimulate != nil {
		f.OnSimulate(f.ID)
	}
	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
			return types.Wrap(types.ErrExecution, f.ID, ctx.Err(), "simulation call failed")
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.Simulated = append(f.Simulated, call)
	return f.SimulateErr
}

func (f *FakeClient) Submit(_ context.Context, call *clients.PaymentCall) (*ethtypes.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SubmitErr != nil {
		return nil, f.SubmitErr
	}
	f.Submitted = append(f.Submitted, call)

	to := common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	return ethtypes.NewTx(&ethtypes.LegacyTx{
		Nonce:    uint64(f.ID)*1_000 + uint64(len(f.Submitted)),
		To:       &to,
		Value:    call.Value(),
		Gas:      21_000,
		GasPrice: big.NewInt(1),
	}), nil
}

func (f *FakeClient) WaitReceipt(_ context.Context, hash common.Hash) (*ethtypes.Receipt, error) {
	if f.ReceiptErr != nil {
		return nil, f.ReceiptErr
	}
	return &ethtypes.Receipt{
		Status:      ethtypes.ReceiptStatusSuccessful,
		TxHash:      hash,
		BlockNumber: new(big.Int).SetUint64(f.Block),
	}, nil
}

func (f *FakeClient) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
}

// SubmittedCount returns how many transactions were broadcast.
func (f *FakeClient) SubmittedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Submitted)
}
