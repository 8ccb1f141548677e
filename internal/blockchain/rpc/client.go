// internal/blockchain/rpc/client.go
package rpc

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
)

// NewClient создает новый экземпляр NodeClient
func NewClient(caller ContractCaller, rawURL string) *NodeClient {
	return &NodeClient{
		Caller:  caller,
		URL:     rawURL,
		metrics: &metrics{},
		label:   endpointLabel(rawURL),
	}
}

func endpointLabel(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Host
}

// DialClient connects to an Ethereum JSON-RPC endpoint.
func DialClient(ctx context.Context, rawURL string) (*NodeClient, error) {
	ec, err := ethclient.DialContext(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", endpointLabel(rawURL), err)
	}
	return NewClient(ec, rawURL), nil
}

// DialBackend returns a full client on the first endpoint that answers. It backs
// transaction submission, which the read pool does not cover.
func DialBackend(ctx context.Context, urls []string) (*ethclient.Client, error) {
	var errs []error
	for _, u := range urls {
		ec, err := ethclient.DialContext(ctx, u)
		if err == nil {
			return ec, nil
		}
		errs = append(errs, fmt.Errorf("dial %s: %w", endpointLabel(u), err))
	}
	if len(errs) == 0 {
		return nil, ErrNoClients
	}
	return nil, errors.Join(errs...)
}

// Close releases the underlying connection when the caller holds one.
func (c *NodeClient) Close() {
	if closer, ok := c.Caller.(interface{ Close() }); ok {
		closer.Close()
	}
}

// GetMetrics возвращает текущие метрики узла
func (c *NodeClient) GetMetrics() (uint64, uint64, time.Duration) {
	c.metrics.mutex.RLock()
	defer c.metrics.mutex.RUnlock()

	return atomic.LoadUint64(&c.metrics.successCount),
		atomic.LoadUint64(&c.metrics.errorCount),
		c.metrics.latency
}

// UpdateMetrics обновляет метрики узла
func (c *NodeClient) UpdateMetrics(success bool, latency time.Duration) {
	c.metrics.mutex.Lock()
	defer c.metrics.mutex.Unlock()

	if success {
		atomic.AddUint64(&c.metrics.successCount, 1)
	} else {
		atomic.AddUint64(&c.metrics.errorCount, 1)
	}

	if c.metrics.latency == 0 {
		c.metrics.latency = latency
		return
	}
	c.metrics.latency = (c.metrics.latency + latency) / 2
}
