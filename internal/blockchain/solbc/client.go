// internal/blockchain/solbc/client.go
package solbc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	solrpc "github.com/rovshanmuradov/token-launcher/internal/blockchain/solbc/rpc"
)

const (
	defaultPollInterval = 500 * time.Millisecond
	defaultTimeout      = 90 * time.Second
)

// Recency is a recent blockhash together with the last block height at which
// a transaction referencing it is still accepted.
type Recency struct {
	Blockhash            solana.Hash
	LastValidBlockHeight uint64
}

// Node: то, что Client требует от RPC-слоя.
type Node interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	GetMinimumBalanceForRentExemption(ctx context.Context, dataSize uint64, commitment rpc.CommitmentType) (uint64, error)
	GetBlockHeight(ctx context.Context, commitment rpc.CommitmentType) (uint64, error)
	GetSignatureStatuses(ctx context.Context, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
	GetBalance(ctx context.Context, pubkey solana.PublicKey, commitment rpc.CommitmentType) (uint64, error)
	SendTransaction(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
}

var _ Node = (*solrpc.RPCClient)(nil)

// Client – тонкий адаптер для взаимодействия с блокчейном Solana через solana-go.
type Client struct {
	node         Node
	commitment   rpc.CommitmentType
	pollInterval time.Duration
	timeout      time.Duration
	logger       *zap.Logger
}

type Option func(*Client)

func WithCommitment(c rpc.CommitmentType) Option {
	return func(cl *Client) { cl.commitment = c }
}

// WithConfirmPolling задает интервал опроса статуса и верхнюю границу ожидания.
func WithConfirmPolling(interval, timeout time.Duration) Option {
	return func(cl *Client) {
		if interval > 0 {
			cl.pollInterval = interval
		}
		if timeout > 0 {
			cl.timeout = timeout
		}
	}
}

// NewClient создаёт клиент поверх RPC-узла (обычно solrpc.RPCClient с failover).
func NewClient(node Node, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		node:         node,
		commitment:   rpc.CommitmentConfirmed,
		pollInterval: defaultPollInterval,
		timeout:      defaultTimeout,
		logger:       logger.Named("solbc-client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetLatestBlockhash получает blockhash и lastValidBlockHeight на уровне commitment клиента.
func (c *Client) GetLatestBlockhash(ctx context.Context) (Recency, error) {
	result, err := c.node.GetLatestBlockhash(ctx, c.commitment)
	if err != nil {
		c.logger.Error("GetLatestBlockhash error", zap.Error(err))
		return Recency{}, err
	}
	if result == nil || result.Value == nil {
		return Recency{}, errors.New("empty blockhash response")
	}
	return Recency{
		Blockhash:            result.Value.Blockhash,
		LastValidBlockHeight: result.Value.LastValidBlockHeight,
	}, nil
}

func (c *Client) GetMinimumBalanceForRentExemption(ctx context.Context, dataSize uint64) (uint64, error) {
	lamports, err := c.node.GetMinimumBalanceForRentExemption(ctx, dataSize, c.commitment)
	if err != nil {
		c.logger.Error("GetMinimumBalanceForRentExemption error", zap.Uint64("size", dataSize), zap.Error(err))
		return 0, err
	}
	return lamports, nil
}

// GetBalance получает баланс аккаунта.
func (c *Client) GetBalance(ctx context.Context, pubkey solana.PublicKey) (uint64, error) {
	balance, err := c.node.GetBalance(ctx, pubkey, c.commitment)
	if err != nil {
		c.logger.Debug("GetBalance error", zap.String("pubkey", pubkey.String()), zap.Error(err))
		return 0, err
	}
	return balance, nil
}

// SendTransaction отправляет подписанную транзакцию один раз.
func (c *Client) SendTransaction(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error) {
	sig, err := c.node.SendTransaction(ctx, tx, opts)
	if err != nil {
		info := AnalyzeSendError(err)
		c.logger.Error("SendTransaction error",
			zap.Int("code", info.Code),
			zap.Bool("simulation_failed", info.SimulationFailed),
			zap.String("failed_log", info.FailedLog()),
			zap.Error(err))
		return solana.Signature{}, err
	}
	return sig, nil
}

var errPending = errors.New("transaction not confirmed yet")

// WaitForConfirmation опрашивает статус подписи, пока она не достигнет
// commitment клиента. Ожидание прекращается с ErrBlockHeightExceeded, как
// только высота блока превысит lastValidBlockHeight.
func (c *Client) WaitForConfirmation(ctx context.Context, sig solana.Signature, lastValidBlockHeight uint64) error {
	polls := 0
	operation := func() (struct{}, error) {
		polls++
		statuses, err := c.node.GetSignatureStatuses(ctx, sig)
		if err != nil {
			c.logger.Warn("Error getting signature statuses", zap.Error(err))
			return struct{}{}, err
		}
		if statuses != nil && len(statuses.Value) > 0 && statuses.Value[0] != nil {
			status := statuses.Value[0]
			if status.Err != nil {
				return struct{}{}, backoff.Permanent(fmt.Errorf("%w: %v", ErrTransactionFailed, status.Err))
			}
			if reached(status.ConfirmationStatus, c.commitment) {
				return struct{}{}, nil
			}
		}

		height, err := c.node.GetBlockHeight(ctx, c.commitment)
		if err != nil {
			c.logger.Warn("Error getting block height", zap.Error(err))
			return struct{}{}, errPending
		}
		if height > lastValidBlockHeight {
			return struct{}{}, backoff.Permanent(ErrBlockHeightExceeded)
		}
		return struct{}{}, errPending
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(c.pollInterval)),
		backoff.WithMaxElapsedTime(c.timeout))
	if err != nil {
		if errors.Is(err, errPending) {
			return fmt.Errorf("confirmation timeout after %s", c.timeout)
		}
		return err
	}

	c.logger.Debug("Transaction confirmed",
		zap.String("signature", sig.String()),
		zap.Int("polls", polls))
	return nil
}

func reached(status rpc.ConfirmationStatusType, want rpc.CommitmentType) bool {
	switch status {
	case rpc.ConfirmationStatusFinalized:
		return true
	case rpc.ConfirmationStatusConfirmed:
		return want != rpc.CommitmentFinalized
	case rpc.ConfirmationStatusProcessed:
		return want == rpc.CommitmentProcessed
	}
	return false
}
