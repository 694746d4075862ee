// Package rpc benchmarks JSON-RPC endpoints and picks one to use.
package rpc

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/samber/lo"
)

// ErrNoHealthyRPC is returned when no healthy RPC endpoint is available.
var ErrNoHealthyRPC = errors.New("no healthy RPC endpoint available")

// Algorithm defines how an RPC endpoint is selected.
type Algorithm string

const (
	AlgorithmFastest    Algorithm = "fastest"
	AlgorithmRoundRobin Algorithm = "round-robin"
	AlgorithmFailover   Algorithm = "failover"

	// Discard nodes more than this many blocks behind the best.
	staleBlocks = 3
)

// Algorithms lists the accepted algorithm names.
var Algorithms = []Algorithm{AlgorithmFastest, AlgorithmRoundRobin, AlgorithmFailover}

// ParseAlgorithm validates s. Empty selects AlgorithmFastest.
func ParseAlgorithm(s string) (Algorithm, error) {
	if s == "" {
		return AlgorithmFastest, nil
	}
	a := Algorithm(s)
	if !slices.Contains(Algorithms, a) {
		return "", fmt.Errorf("unknown RPC algorithm %q (want one of %v)", s, Algorithms)
	}
	return a, nil
}

// Picker selects an endpoint from benchmark results.
type Picker struct {
	algo Algorithm

	mu   sync.Mutex
	next int
}

// NewPicker creates a Picker using algo.
func NewPicker(algo Algorithm) *Picker {
	return &Picker{algo: algo}
}

// Pick chooses among the healthy endpoints:
//   - fastest: lowest latency
//   - round-robin: rotates on every call
//   - failover: first in input order
func (p *Picker) Pick(eps []Endpoint) (Endpoint, error) {
	healthy := lo.Filter(eps, func(e Endpoint, _ int) bool { return e.Healthy() })
	if len(healthy) == 0 {
		return Endpoint{}, ErrNoHealthyRPC
	}

	switch p.algo {
	case AlgorithmRoundRobin:
		p.mu.Lock()
		defer p.mu.Unlock()
		e := healthy[p.next%len(healthy)]
		p.next++
		return e, nil
	case AlgorithmFailover:
		return healthy[0], nil
	default:
		return lo.MinBy(healthy, func(a, b Endpoint) bool { return a.Latency < b.Latency }), nil
	}
}

// Select benchmarks urls and returns the one the algorithm picks. A single
// candidate is returned without probing.
func Select(ctx context.Context, urls []string, wantChainID int64, algo Algorithm) (string, error) {
	urls = lo.Uniq(lo.Compact(urls))
	switch len(urls) {
	case 0:
		return "", ErrNoHealthyRPC
	case 1:
		return urls[0], nil
	}
	ep, err := NewPicker(algo).Pick(Benchmark(ctx, urls, wantChainID))
	if err != nil {
		return "", err
	}
	return ep.URL, nil
}

// Ranked orders endpoints for display: healthy first, then by latency.
func Ranked(eps []Endpoint) []Endpoint {
	out := slices.Clone(eps)
	slices.SortStableFunc(out, func(a, b Endpoint) int {
		if a.Healthy() != b.Healthy() {
			if a.Healthy() {
				return -1
			}
			return 1
		}
		return cmp.Compare(a.Latency, b.Latency)
	})
	return out
}
