package settlement

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitwit/heka402/clients/clienttest"
	"github.com/vitwit/heka402/types"
)

func testLeg(chain types.ChainID, amount int64) types.Leg {
	return types.Leg{
		ChainID: chain,
		Proof: types.Groth16Proof{
			A: [2]string{"1", "2"},
			B: [2][2]string{{"3", "4"}, {"5", "6"}},
			C: [2]string{"7", "8"},
		},
		Commitment: big.NewInt(99),
		Recipient:  "0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
		Amount:     big.NewInt(amount),
		Nonce:      [32]byte{1},
	}
}

func newService(t *testing.T, fakes ...*clienttest.FakeClient) *SettlementService {
	t.Helper()
	svc := NewSettlementService(time.Second, nil, nil)
	for _, f := range fakes {
		svc.AddClient(f)
	}
	return svc
}

func TestExecuteSuccess(t *testing.T) {
	fake := clienttest.New(types.ChainSepolia)
	fake.Block = 777
	svc := newService(t, fake)

	res := svc.Execute(context.Background(), testLeg(types.ChainSepolia, 40))

	require.True(t, res.Success, res.Detail)
	assert.Equal(t, types.ChainSepolia, res.ChainID)
	assert.Equal(t, uint64(777), res.BlockNumber)
	assert.NotEmpty(t, res.TxHash)
	assert.Equal(t, "40", res.Amount)
	require.Len(t, fake.Simulated, 1)
	require.Len(t, fake.Submitted, 1)
	assert.Equal(t, fake.Simulated[0], fake.Submitted[0], "simulated and submitted arguments must match")
}

func TestExecuteSimulationFailureGatesSubmit(t *testing.T) {
	fake := clienttest.New(types.ChainBaseSepolia)
	fake.SimulateErr = &types.HekaError{Code: types.ErrSimulationRevert, Message: "would revert", ChainID: types.ChainBaseSepolia}
	svc := newService(t, fake)

	res := svc.Execute(context.Background(), testLeg(types.ChainBaseSepolia, 40))

	assert.False(t, res.Success)
	assert.Equal(t, types.ErrSimulationRevert, res.ErrorKind)
	assert.Empty(t, res.TxHash)
	assert.Equal(t, 0, fake.SubmittedCount())
}

func TestExecuteUnsupportedChainMakesNoCalls(t *testing.T) {
	fake := clienttest.New(types.ChainSepolia)
	svc := newService(t, fake)

	res := svc.Execute(context.Background(), testLeg(types.ChainPolygonAmoy, 1))

	assert.False(t, res.Success)
	assert.Equal(t, types.ErrUnsupportedChain, res.ErrorKind)
	assert.Empty(t, fake.Simulated)
}

func TestExecuteFailureAfterSimulation(t *testing.T) {
	fake := clienttest.New(types.ChainSepolia)
	fake.ReceiptErr = &types.HekaError{Code: types.ErrExecution, Message: "transaction reverted"}
	svc := newService(t, fake)

	res := svc.Execute(context.Background(), testLeg(types.ChainSepolia, 1))

	assert.False(t, res.Success)
	assert.Equal(t, types.ErrExecution, res.ErrorKind)
	assert.NotEmpty(t, res.TxHash, "the broadcast hash is reported even when inclusion fails")
}

func TestExecuteSubmitErrorIsExecutionFailure(t *testing.T) {
	fake := clienttest.New(types.ChainSepolia)
	fake.SubmitErr = types.Wrap(types.ErrExecution, types.ChainSepolia, errors.New("nonce too low"), "broadcast transaction")
	svc := newService(t, fake)

	res := svc.Execute(context.Background(), testLeg(types.ChainSepolia, 1))
	assert.Equal(t, types.ErrExecution, res.ErrorKind)
	assert.Contains(t, res.Detail, "nonce too low")
}

func TestExecuteLegTimeoutIsRetryable(t *testing.T) {
	fake := clienttest.New(types.ChainSepolia)
	fake.Delay = time.Second
	svc := NewSettlementService(20*time.Millisecond, nil, nil)
	svc.AddClient(fake)

	res := svc.Execute(context.Background(), testLeg(types.ChainSepolia, 1))
	assert.False(t, res.Success)
	assert.True(t, res.Retryable)
	assert.Equal(t, 0, fake.SubmittedCount())
}

func TestExecuteInvalidLeg(t *testing.T) {
	svc := newService(t, clienttest.New(types.ChainSepolia))
	leg := testLeg(types.ChainSepolia, 1)
	leg.Recipient = "nope"

	res := svc.Execute(context.Background(), leg)
	assert.Equal(t, types.ErrValidation, res.ErrorKind)
}

func TestSupportedChainsAndClose(t *testing.T) {
	a := clienttest.New(types.ChainSepolia)
	b := clienttest.New(types.ChainArbitrumSepolia)
	svc := newService(t, a, b)

	assert.Equal(t, []types.ChainID{types.ChainArbitrumSepolia, types.ChainSepolia}, svc.SupportedChains())
	assert.True(t, svc.IsChainSupported(types.ChainSepolia))
	assert.False(t, svc.IsChainSupported(types.ChainBaseSepolia))

	replacement := clienttest.New(types.ChainSepolia)
	svc.AddClient(replacement)
	assert.True(t, a.Closed, "replaced client is closed")

	svc.Close()
	assert.True(t, b.Closed)
	assert.True(t, replacement.Closed)
	assert.Empty(t, svc.SupportedChains())
}

type recordingExecutor struct {
	mu      sync.Mutex
	order   []types.ChainID
	running atomic.Int32
	peak    atomic.Int32
	delay   time.Duration
}

func (r *recordingExecutor) Execute(_ context.Context, leg types.Leg) types.ExecutionResult {
	n := r.running.Add(1)
	for {
		p := r.peak.Load()
		if n <= p || r.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(r.delay)
	r.running.Add(-1)

	r.mu.Lock()
	r.order = append(r.order, leg.ChainID)
	r.mu.Unlock()
	return types.ExecutionResult{ChainID: leg.ChainID, Success: true}
}

func TestSequentialDispatcherKeepsCallerOrder(t *testing.T) {
	legs := []types.Leg{
		testLeg(types.ChainBaseSepolia, 1),
		testLeg(types.ChainSepolia, 1),
		testLeg(types.ChainPolygonAmoy, 1),
	}
	exec := &recordingExecutor{}

	results := SequentialDispatcher{}.Dispatch(context.Background(), legs, exec)

	want := []types.ChainID{types.ChainBaseSepolia, types.ChainSepolia, types.ChainPolygonAmoy}
	assert.Equal(t, want, exec.order)
	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, want[i], r.ChainID)
	}
	assert.Equal(t, int32(1), exec.peak.Load())
}

func TestConcurrentDispatcherResultsInLegOrder(t *testing.T) {
	chains := []types.ChainID{
		types.ChainSepolia,
		types.ChainOptimismSepolia,
		types.ChainArbitrumSepolia,
		types.ChainPolygonAmoy,
		types.ChainBaseSepolia,
	}
	legs := make([]types.Leg, 0, len(chains))
	for _, id := range chains {
		legs = append(legs, testLeg(id, 1))
	}
	exec := &recordingExecutor{delay: 20 * time.Millisecond}

	results := ConcurrentDispatcher{Limit: 2}.Dispatch(context.Background(), legs, exec)

	require.Len(t, results, len(chains))
	for i, r := range results {
		assert.Equal(t, chains[i], r.ChainID)
	}
	assert.LessOrEqual(t, exec.peak.Load(), int32(2))
	assert.ElementsMatch(t, chains, exec.order)
}

func TestNewDispatcher(t *testing.T) {
	assert.Equal(t, SequentialDispatcher{}, NewDispatcher("", 0))
	assert.Equal(t, SequentialDispatcher{}, NewDispatcher(types.DispatchSequential, 3))
	assert.Equal(t, ConcurrentDispatcher{Limit: 3}, NewDispatcher(types.DispatchConcurrent, 3))
}
