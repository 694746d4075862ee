package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

// nodeServer answers eth_blockNumber and eth_chainId, optionally after a delay.
func nodeServer(t *testing.T, block uint64, chainID int64, delay time.Duration) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
			ID     int    `json:"id"`
		}
		json.NewDecoder(r.Body).Decode(&req) //nolint:errcheck
		if delay > 0 {
			time.Sleep(delay)
		}
		var result string
		switch req.Method {
		case "eth_blockNumber":
			result = fmt.Sprintf("0x%x", block)
		case "eth_chainId":
			result = fmt.Sprintf("0x%x", chainID)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%d,"result":"%s"}`, req.ID, result)
	}))
	t.Cleanup(srv.Close)
	return srv
}

const deadURL = "http://127.0.0.1:19994"

// ---------------------------------------------------------------------------
// Probe
// ---------------------------------------------------------------------------

func TestProbeHealthy(t *testing.T) {
	srv := nodeServer(t, 1000, 1, 0)
	ep := Probe(context.Background(), srv.URL, 1)
	require.NoError(t, ep.Err)
	assert.True(t, ep.Healthy())
	assert.Equal(t, uint64(1000), ep.BlockNumber)
	assert.Equal(t, int64(1), ep.ChainID)
	assert.Greater(t, ep.Latency, time.Duration(0))
}

func TestProbeWrongChain(t *testing.T) {
	srv := nodeServer(t, 1000, 11155111, 0)
	ep := Probe(context.Background(), srv.URL, 1)
	assert.ErrorIs(t, ep.Err, ErrWrongChain)
	assert.False(t, ep.Healthy())
}

func TestProbeSkipsChainCheck(t *testing.T) {
	srv := nodeServer(t, 5, 999, 0)
	ep := Probe(context.Background(), srv.URL, 0)
	assert.True(t, ep.Healthy())
	assert.Zero(t, ep.ChainID)
}

func TestProbeUnreachable(t *testing.T) {
	ep := Probe(context.Background(), deadURL, 1)
	assert.Error(t, ep.Err)
	assert.False(t, ep.Healthy())
}

// ---------------------------------------------------------------------------
// Benchmark
// ---------------------------------------------------------------------------

func TestBenchmarkPreservesOrderAndMarksStale(t *testing.T) {
	fresh := nodeServer(t, 1000, 1, 0)
	lagging := nodeServer(t, 990, 1, 0)
	edge := nodeServer(t, 997, 1, 0)

	eps := Benchmark(context.Background(), []string{lagging.URL, deadURL, fresh.URL, edge.URL}, 1)
	require.Len(t, eps, 4)
	assert.Equal(t, lagging.URL, eps[0].URL)
	assert.ErrorIs(t, eps[0].Err, ErrStale)
	assert.Error(t, eps[1].Err)
	assert.True(t, eps[2].Healthy())
	assert.True(t, eps[3].Healthy(), "exactly at the threshold is still healthy")
}

// ---------------------------------------------------------------------------
// Picker
// ---------------------------------------------------------------------------

func endpoints() []Endpoint {
	return []Endpoint{
		{URL: "https://slow", Latency: 300 * time.Millisecond},
		{URL: "https://dead", Err: fmt.Errorf("refused")},
		{URL: "https://fast", Latency: 20 * time.Millisecond},
		{URL: "https://mid", Latency: 90 * time.Millisecond},
	}
}

func TestPickFastest(t *testing.T) {
	ep, err := NewPicker(AlgorithmFastest).Pick(endpoints())
	require.NoError(t, err)
	assert.Equal(t, "https://fast", ep.URL)
}

func TestPickFailover(t *testing.T) {
	ep, err := NewPicker(AlgorithmFailover).Pick(endpoints())
	require.NoError(t, err)
	assert.Equal(t, "https://slow", ep.URL)
}

func TestPickRoundRobinCycles(t *testing.T) {
	p := NewPicker(AlgorithmRoundRobin)
	var got []string
	for range 4 {
		ep, err := p.Pick(endpoints())
		require.NoError(t, err)
		got = append(got, ep.URL)
	}
	assert.Equal(t, []string{"https://slow", "https://fast", "https://mid", "https://slow"}, got)
}

func TestPickNoneHealthy(t *testing.T) {
	_, err := NewPicker(AlgorithmFastest).Pick([]Endpoint{{URL: "x", Err: ErrStale}})
	assert.ErrorIs(t, err, ErrNoHealthyRPC)
	_, err = NewPicker(AlgorithmFailover).Pick(nil)
	assert.ErrorIs(t, err, ErrNoHealthyRPC)
}

func TestParseAlgorithm(t *testing.T) {
	a, err := ParseAlgorithm("")
	require.NoError(t, err)
	assert.Equal(t, AlgorithmFastest, a)

	a, err = ParseAlgorithm("failover")
	require.NoError(t, err)
	assert.Equal(t, AlgorithmFailover, a)

	_, err = ParseAlgorithm("random")
	assert.Error(t, err)
}

func TestRanked(t *testing.T) {
	got := Ranked(endpoints())
	urls := make([]string, len(got))
	for i, e := range got {
		urls[i] = e.URL
	}
	assert.Equal(t, []string{"https://fast", "https://mid", "https://slow", "https://dead"}, urls)
}

// ---------------------------------------------------------------------------
// Select
// ---------------------------------------------------------------------------

func TestSelectSingleURLSkipsProbe(t *testing.T) {
	url, err := Select(context.Background(), []string{deadURL, "", deadURL}, 1, AlgorithmFastest)
	require.NoError(t, err)
	assert.Equal(t, deadURL, url)
}

func TestSelectNoURLs(t *testing.T) {
	_, err := Select(context.Background(), nil, 1, AlgorithmFastest)
	assert.ErrorIs(t, err, ErrNoHealthyRPC)
}

func TestSelectPicksFastest(t *testing.T) {
	slow := nodeServer(t, 100, 1, 150*time.Millisecond)
	fast := nodeServer(t, 100, 1, 0)
	url, err := Select(context.Background(), []string{slow.URL, fast.URL, deadURL}, 1, AlgorithmFastest)
	require.NoError(t, err)
	assert.Equal(t, fast.URL, url)
}
