// internal/blockchain/rpc/pool.go
package rpc

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum"
	"go.uber.org/zap"
)

// NewPool создает новый пул клиентов
func NewPool(clients []*NodeClient, recorder LatencyRecorder, logger *zap.Logger) *Pool {
	return &Pool{
		clients:  clients,
		logger:   logger.Named("rpc_pool"),
		recorder: recorder,
	}
}

// DialPool connects to every URL; the pool fails only if no endpoint could be dialed.
func DialPool(ctx context.Context, urls []string, recorder LatencyRecorder, logger *zap.Logger) (*Pool, error) {
	clients := make([]*NodeClient, 0, len(urls))
	for _, url := range urls {
		c, err := DialClient(ctx, url)
		if err != nil {
			logger.Warn("Failed to initialize node", zap.String("endpoint", endpointLabel(url)), zap.Error(err))
			continue
		}
		clients = append(clients, c)
	}
	if len(clients) == 0 {
		return nil, ErrNoClients
	}
	return NewPool(clients, recorder, logger), nil
}

// GetNextClient возвращает следующий клиент по кругу
func (p *Pool) GetNextClient() *NodeClient {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if len(p.clients) == 0 {
		return nil
	}
	c := p.clients[p.next]
	p.next = (p.next + 1) % len(p.clients)
	return c
}

// Size returns the number of endpoints in the pool.
func (p *Pool) Size() int {
	return len(p.clients)
}

// Call executes one eth_call on the next node. There is no retry: a failed call
// is returned as *Error to the caller.
func (p *Pool) Call(ctx context.Context, method string, msg ethereum.CallMsg) ([]byte, error) {
	client := p.GetNextClient()
	if client == nil {
		return nil, NewError(ErrNoClients, "", method)
	}

	start := time.Now()
	out, err := client.Caller.CallContract(ctx, msg, nil)
	elapsed := time.Since(start)

	client.UpdateMetrics(err == nil, elapsed)
	if p.recorder != nil {
		p.recorder.RecordRPCLatency(method, client.label, elapsed, err == nil)
	}

	if err != nil {
		p.logger.Debug("RPC call failed",
			zap.String("method", method),
			zap.String("endpoint", client.label),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return nil, NewError(err, client.label, method)
	}
	return out, nil
}

// Close closes every node connection.
func (p *Pool) Close() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	for _, c := range p.clients {
		c.Close()
	}
	return nil
}
