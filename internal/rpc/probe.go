package rpc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Mohsinsiddi/ogview/internal/chain"
)

var (
	// ErrWrongChain marks an endpoint that serves a different chain id.
	ErrWrongChain = errors.New("endpoint serves a different chain")
	// ErrStale marks an endpoint lagging too far behind the best block.
	ErrStale = errors.New("endpoint is behind the best block")
)

const probeTimeout = 5 * time.Second

// Endpoint is the measured state of one RPC URL.
type Endpoint struct {
	URL         string
	Latency     time.Duration
	BlockNumber uint64
	ChainID     int64
	Err         error
}

// Healthy reports whether the endpoint answered correctly.
func (e Endpoint) Healthy() bool { return e.Err == nil }

// Probe measures url. When wantChainID is non-zero the endpoint must also
// report that chain id.
func Probe(ctx context.Context, url string, wantChainID int64) Endpoint {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	c := chain.NewEVMClient(url)
	latency, block, err := c.Ping(ctx)
	ep := Endpoint{URL: url, Latency: latency, BlockNumber: block, Err: err}
	if err != nil || wantChainID == 0 {
		return ep
	}

	id, err := c.ChainID(ctx)
	if err != nil {
		ep.Err = fmt.Errorf("eth_chainId: %w", err)
		return ep
	}
	ep.ChainID = id.Int64()
	if ep.ChainID != wantChainID {
		ep.Err = fmt.Errorf("%w: got %d, want %d", ErrWrongChain, ep.ChainID, wantChainID)
	}
	return ep
}

// Benchmark probes every URL concurrently. Results keep the input order
// and endpoints more than staleBlocks behind the best block are marked stale.
func Benchmark(ctx context.Context, urls []string, wantChainID int64) []Endpoint {
	results := make([]Endpoint, len(urls))
	var wg sync.WaitGroup
	for i, url := range urls {
		wg.Add(1)
		go func(idx int, u string) {
			defer wg.Done()
			results[idx] = Probe(ctx, u, wantChainID)
		}(i, url)
	}
	wg.Wait()
	return markStale(results)
}

func markStale(eps []Endpoint) []Endpoint {
	var best uint64
	for _, e := range eps {
		if e.Healthy() && e.BlockNumber > best {
			best = e.BlockNumber
		}
	}
	for i := range eps {
		e := &eps[i]
		if e.Healthy() && best-e.BlockNumber > staleBlocks {
			e.Err = fmt.Errorf("%w: block %d, best %d", ErrStale, e.BlockNumber, best)
		}
	}
	return eps
}
