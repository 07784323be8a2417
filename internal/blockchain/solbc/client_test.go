// internal/blockchain/solbc/client_test.go
package solbc

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type MockNode struct {
	mock.Mock
}

func (m *MockNode) GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	args := m.Called(ctx, commitment)
	res, _ := args.Get(0).(*rpc.GetLatestBlockhashResult)
	return res, args.Error(1)
}

func (m *MockNode) GetMinimumBalanceForRentExemption(ctx context.Context, dataSize uint64, commitment rpc.CommitmentType) (uint64, error) {
	args := m.Called(ctx, dataSize, commitment)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockNode) GetBlockHeight(ctx context.Context, commitment rpc.CommitmentType) (uint64, error) {
	args := m.Called(ctx, commitment)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockNode) GetSignatureStatuses(ctx context.Context, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	args := m.Called(ctx, signatures)
	res, _ := args.Get(0).(*rpc.GetSignatureStatusesResult)
	return res, args.Error(1)
}

func (m *MockNode) GetBalance(ctx context.Context, pubkey solana.PublicKey, commitment rpc.CommitmentType) (uint64, error) {
	args := m.Called(ctx, pubkey, commitment)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockNode) SendTransaction(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error) {
	args := m.Called(ctx, tx, opts)
	return args.Get(0).(solana.Signature), args.Error(1)
}

func statusResult(status rpc.ConfirmationStatusType, txErr interface{}) *rpc.GetSignatureStatusesResult {
	return &rpc.GetSignatureStatusesResult{
		Value: []*rpc.SignatureStatusesResult{{ConfirmationStatus: status, Err: txErr}},
	}
}

func newTestClient(t *testing.T, node Node) *Client {
	return NewClient(node, zaptest.NewLogger(t), WithConfirmPolling(time.Millisecond, time.Second))
}

func TestGetLatestBlockhash(t *testing.T) {
	node := new(MockNode)
	hash := solana.Hash{7}
	node.On("GetLatestBlockhash", mock.Anything, rpc.CommitmentConfirmed).Return(&rpc.GetLatestBlockhashResult{
		Value: &rpc.LatestBlockhashResult{Blockhash: hash, LastValidBlockHeight: 321},
	}, nil).Once()

	rec, err := newTestClient(t, node).GetLatestBlockhash(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Recency{Blockhash: hash, LastValidBlockHeight: 321}, rec)
	node.AssertExpectations(t)
}

func TestWaitForConfirmationConfirmed(t *testing.T) {
	node := new(MockNode)
	sig := solana.Signature{1}
	node.On("GetSignatureStatuses", mock.Anything, mock.Anything).Return(&rpc.GetSignatureStatusesResult{
		Value: []*rpc.SignatureStatusesResult{nil},
	}, nil).Once()
	node.On("GetBlockHeight", mock.Anything, rpc.CommitmentConfirmed).Return(uint64(100), nil).Once()
	node.On("GetSignatureStatuses", mock.Anything, mock.Anything).
		Return(statusResult(rpc.ConfirmationStatusProcessed, nil), nil).Once()
	node.On("GetBlockHeight", mock.Anything, rpc.CommitmentConfirmed).Return(uint64(101), nil).Once()
	node.On("GetSignatureStatuses", mock.Anything, mock.Anything).
		Return(statusResult(rpc.ConfirmationStatusConfirmed, nil), nil).Once()

	err := newTestClient(t, node).WaitForConfirmation(context.Background(), sig, 200)
	require.NoError(t, err)
	node.AssertExpectations(t)
}

func TestWaitForConfirmationExpired(t *testing.T) {
	node := new(MockNode)
	node.On("GetSignatureStatuses", mock.Anything, mock.Anything).
		Return(&rpc.GetSignatureStatusesResult{}, nil)
	node.On("GetBlockHeight", mock.Anything, mock.Anything).Return(uint64(201), nil)

	err := newTestClient(t, node).WaitForConfirmation(context.Background(), solana.Signature{1}, 200)
	assert.ErrorIs(t, err, ErrBlockHeightExceeded)
	node.AssertNumberOfCalls(t, "GetSignatureStatuses", 1)
}

func TestWaitForConfirmationTransactionError(t *testing.T) {
	node := new(MockNode)
	node.On("GetSignatureStatuses", mock.Anything, mock.Anything).
		Return(statusResult(rpc.ConfirmationStatusConfirmed, map[string]interface{}{"InstructionError": []interface{}{3, "Custom"}}), nil)

	err := newTestClient(t, node).WaitForConfirmation(context.Background(), solana.Signature{1}, 200)
	assert.ErrorIs(t, err, ErrTransactionFailed)
	node.AssertNotCalled(t, "GetBlockHeight", mock.Anything, mock.Anything)
}

func TestWaitForConfirmationRetriesRPCErrors(t *testing.T) {
	node := new(MockNode)
	node.On("GetSignatureStatuses", mock.Anything, mock.Anything).Return(nil, errors.New("502")).Twice()
	node.On("GetSignatureStatuses", mock.Anything, mock.Anything).
		Return(statusResult(rpc.ConfirmationStatusFinalized, nil), nil).Once()

	err := newTestClient(t, node).WaitForConfirmation(context.Background(), solana.Signature{1}, 200)
	require.NoError(t, err)
	node.AssertExpectations(t)
}

func TestWaitForConfirmationCanceled(t *testing.T) {
	node := new(MockNode)
	node.On("GetSignatureStatuses", mock.Anything, mock.Anything).Return(&rpc.GetSignatureStatusesResult{}, nil)
	node.On("GetBlockHeight", mock.Anything, mock.Anything).Return(uint64(1), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := NewClient(node, zaptest.NewLogger(t), WithConfirmPolling(5*time.Millisecond, time.Minute)).
		WaitForConfirmation(ctx, solana.Signature{1}, 200)
	assert.Error(t, err)
}

func TestReached(t *testing.T) {
	assert.True(t, reached(rpc.ConfirmationStatusConfirmed, rpc.CommitmentConfirmed))
	assert.True(t, reached(rpc.ConfirmationStatusFinalized, rpc.CommitmentConfirmed))
	assert.False(t, reached(rpc.ConfirmationStatusProcessed, rpc.CommitmentConfirmed))
	assert.False(t, reached(rpc.ConfirmationStatusConfirmed, rpc.CommitmentFinalized))
	assert.True(t, reached(rpc.ConfirmationStatusProcessed, rpc.CommitmentProcessed))
}

func TestIsAlreadyProcessed(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{err: nil},
		{err: errors.New("Transaction simulation failed: This transaction has already been processed"), want: true},
		{err: fmt.Errorf("wrapped: %w", errors.New("AlreadyProcessed")), want: true},
		{err: errors.New("Blockhash not found")},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsAlreadyProcessed(tt.err))
	}
}

func TestAnalyzeSendError(t *testing.T) {
	rpcErr := &jsonrpc.RPCError{
		Code:    -32002,
		Message: "Transaction simulation failed: Error processing Instruction 4: custom program error: 0x0",
		Data: map[string]interface{}{
			"logs": []interface{}{
				"Program metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s invoke [1]",
				"Program metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s failed: custom program error: 0x0",
			},
		},
	}
	info := AnalyzeSendError(fmt.Errorf("send: %w", rpcErr))

	assert.Equal(t, -32002, info.Code)
	assert.True(t, info.SimulationFailed)
	assert.False(t, info.AlreadyProcessed)
	assert.Len(t, info.Logs, 2)
	assert.Contains(t, info.FailedLog(), "failed: custom program error")

	plain := AnalyzeSendError(errors.New("connection refused"))
	assert.Equal(t, "connection refused", plain.Message)
	assert.Empty(t, plain.Logs)
}
