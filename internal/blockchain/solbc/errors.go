// internal/blockchain/solbc/errors.go
package solbc

import (
	"errors"
	"strings"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
)

var (
	// ErrBlockHeightExceeded транзакция не подтверждена до истечения blockhash.
	ErrBlockHeightExceeded = errors.New("block height exceeded: transaction expired")
	// ErrTransactionFailed транзакция попала в блок с ошибкой.
	ErrTransactionFailed = errors.New("transaction failed")
)

// SendErrorInfo is what can be extracted from a failed broadcast.
type SendErrorInfo struct {
	Code             int
	Message          string
	SimulationFailed bool
	AlreadyProcessed bool
	Logs             []string
}

// IsAlreadyProcessed reports whether the node rejected the transaction as a
// duplicate of one it has already seen.
func IsAlreadyProcessed(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already been processed") || strings.Contains(msg, "alreadyprocessed")
}

// AnalyzeSendError разбирает ошибку отправки, включая логи preflight-симуляции.
func AnalyzeSendError(err error) SendErrorInfo {
	if err == nil {
		return SendErrorInfo{}
	}
	info := SendErrorInfo{
		Message:          err.Error(),
		AlreadyProcessed: IsAlreadyProcessed(err),
	}

	var rpcErr *jsonrpc.RPCError
	if !errors.As(err, &rpcErr) {
		return info
	}
	info.Code = rpcErr.Code
	info.Message = rpcErr.Message
	info.SimulationFailed = strings.Contains(rpcErr.Message, "Transaction simulation failed")

	if dataMap, ok := rpcErr.Data.(map[string]interface{}); ok {
		if logs, ok := dataMap["logs"].([]interface{}); ok {
			for _, entry := range logs {
				if s, ok := entry.(string); ok {
					info.Logs = append(info.Logs, s)
				}
			}
		}
	}
	return info
}

// FailedLog возвращает первую строку лога с ошибкой программы.
func (i SendErrorInfo) FailedLog() string {
	for _, l := range i.Logs {
		if strings.Contains(l, "failed:") || strings.Contains(l, "Error:") {
			return l
		}
	}
	return ""
}
