// internal/blockchain/solbc/rpc/rpc.go
package rpc

import (
	"context"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

// Основные константы
const (
	retryAttempts = 2
	retryDelay    = 500 * time.Millisecond
	reqTimeout    = 10 * time.Second
)

// RPCClient ходит в несколько узлов по кругу. Чтения переключаются на
// следующий узел при ошибке, отправка транзакции идёт в один узел.
type RPCClient struct {
	nodes   []*solanarpc.Client
	urls    []string
	current int
	mu      sync.RWMutex
	logger  *zap.Logger
}

// NewClient создает новый RPC клиент
func NewClient(urls []string, logger *zap.Logger) (*RPCClient, error) {
	if len(urls) == 0 {
		return nil, ErrNoRPCNodes
	}

	nodes := make([]*solanarpc.Client, len(urls))
	for i, url := range urls {
		nodes[i] = solanarpc.New(url)
	}

	return &RPCClient{
		nodes:  nodes,
		urls:   urls,
		logger: logger.Named("rpc-client"),
	}, nil
}

// URLs возвращает список узлов.
func (c *RPCClient) URLs() []string {
	return append([]string(nil), c.urls...)
}

func (c *RPCClient) next() (*solanarpc.Client, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	node, url := c.nodes[c.current], c.urls[c.current]
	c.current = (c.current + 1) % len(c.nodes)
	return node, url
}

// ExecuteWithRetry выполняет RPC-запрос с автоматическим переключением узлов при ошибке.
// Только для идемпотентных запросов.
func (c *RPCClient) ExecuteWithRetry(ctx context.Context, method string, operation func(context.Context, *solanarpc.Client) error) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, reqTimeout)
	defer cancel()

	attempts := max(retryAttempts, len(c.nodes))
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if timeoutCtx.Err() != nil {
			break
		}
		node, url := c.next()

		err := operation(timeoutCtx, node)
		if err == nil {
			return nil
		}
		lastErr = NewError(err, url, method)
		if !IsRetryable(err) {
			return lastErr
		}

		c.logger.Debug("RPC request failed, trying next node",
			zap.String("url", url),
			zap.String("method", method),
			zap.Error(err),
			zap.Int("attempt", attempt+1))

		if attempt < attempts-1 {
			select {
			case <-timeoutCtx.Done():
			case <-time.After(retryDelay):
			}
		}
	}

	if lastErr == nil {
		return ErrTimeout
	}
	if ctx.Err() == nil && timeoutCtx.Err() != nil {
		c.logger.Warn("RPC request timed out", zap.String("method", method), zap.Error(lastErr))
	}
	return lastErr
}

// GetLatestBlockhash получает последний blockhash и высоту его истечения.
func (c *RPCClient) GetLatestBlockhash(ctx context.Context, commitment solanarpc.CommitmentType) (*solanarpc.GetLatestBlockhashResult, error) {
	var result *solanarpc.GetLatestBlockhashResult
	err := c.ExecuteWithRetry(ctx, "getLatestBlockhash", func(ctx context.Context, client *solanarpc.Client) error {
		var err error
		result, err = client.GetLatestBlockhash(ctx, commitment)
		return err
	})
	return result, err
}

func (c *RPCClient) GetMinimumBalanceForRentExemption(ctx context.Context, dataSize uint64, commitment solanarpc.CommitmentType) (uint64, error) {
	var lamports uint64
	err := c.ExecuteWithRetry(ctx, "getMinimumBalanceForRentExemption", func(ctx context.Context, client *solanarpc.Client) error {
		var err error
		lamports, err = client.GetMinimumBalanceForRentExemption(ctx, dataSize, commitment)
		return err
	})
	return lamports, err
}

func (c *RPCClient) GetBlockHeight(ctx context.Context, commitment solanarpc.CommitmentType) (uint64, error) {
	var height uint64
	err := c.ExecuteWithRetry(ctx, "getBlockHeight", func(ctx context.Context, client *solanarpc.Client) error {
		var err error
		height, err = client.GetBlockHeight(ctx, commitment)
		return err
	})
	return height, err
}

func (c *RPCClient) GetSignatureStatuses(ctx context.Context, signatures ...solana.Signature) (*solanarpc.GetSignatureStatusesResult, error) {
	var result *solanarpc.GetSignatureStatusesResult
	err := c.ExecuteWithRetry(ctx, "getSignatureStatuses", func(ctx context.Context, client *solanarpc.Client) error {
		var err error
		result, err = client.GetSignatureStatuses(ctx, false, signatures...)
		return err
	})
	return result, err
}

func (c *RPCClient) GetBalance(ctx context.Context, pubkey solana.PublicKey, commitment solanarpc.CommitmentType) (uint64, error) {
	var balance uint64
	err := c.ExecuteWithRetry(ctx, "getBalance", func(ctx context.Context, client *solanarpc.Client) error {
		result, err := client.GetBalance(ctx, pubkey, commitment)
		if err != nil {
			return err
		}
		balance = result.Value
		return nil
	})
	return balance, err
}

// SendTransaction отправляет транзакцию в один узел без переключения:
// повтор отправки решает вызывающий.
func (c *RPCClient) SendTransaction(ctx context.Context, tx *solana.Transaction, opts solanarpc.TransactionOpts) (solana.Signature, error) {
	node, url := c.next()
	sig, err := node.SendTransactionWithOpts(ctx, tx, opts)
	if err != nil {
		return solana.Signature{}, NewError(err, url, "sendTransaction")
	}
	return sig, nil
}

// Close закрывает клиент
func (c *RPCClient) Close() {}
