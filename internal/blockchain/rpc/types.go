// internal/blockchain/rpc/types.go
package rpc

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"go.uber.org/zap"
)

// ContractCaller is the subset of the Ethereum RPC used for read-only calls.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// LatencyRecorder receives the outcome of every call made through the pool.
type LatencyRecorder interface {
	RecordRPCLatency(method, endpoint string, duration time.Duration, success bool)
}

// NodeClient представляет отдельный RPC узел
type NodeClient struct {
	Caller  ContractCaller
	URL     string
	metrics *metrics

	// host only; provider URLs carry API keys in the path
	label string
}

// metrics содержит метрики производительности RPC узла
type metrics struct {
	successCount uint64
	errorCount   uint64
	latency      time.Duration
	mutex        sync.RWMutex
}

// Pool представляет пул RPC клиентов
type Pool struct {
	clients  []*NodeClient
	logger   *zap.Logger
	recorder LatencyRecorder
	next     int
	mutex    sync.Mutex
}
