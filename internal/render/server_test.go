package render_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Mohsinsiddi/ogview/internal/artblocks"
	"github.com/Mohsinsiddi/ogview/internal/artblocks/artblockstest"
	"github.com/Mohsinsiddi/ogview/internal/cascade"
	"github.com/Mohsinsiddi/ogview/internal/deployments"
	"github.com/Mohsinsiddi/ogview/internal/logging"
	"github.com/Mohsinsiddi/ogview/internal/render"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func newServer(t *testing.T, fc *artblockstest.Chain, opts ...render.ServerOption) *httptest.Server {
	t.Helper()
	reg := deployments.New([]deployments.Deployment{{Address: core, Label: "Test Core"}})
	opts = append([]render.ServerOption{render.WithNetwork("testnet")}, opts...)
	srv := httptest.NewServer(render.NewServer(newReader(fc), reg, opts...).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string, header ...string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func decode(t *testing.T, body string) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	return out
}

// ---------------------------------------------------------------------------
// JSON endpoints
// ---------------------------------------------------------------------------

func TestHealthz(t *testing.T) {
	srv := newServer(t, newChain())
	resp, body := get(t, srv.URL+"/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode(t, body)
	assert.Equal(t, "ok", out["status"])
	assert.Equal(t, "testnet", out["network"])
}

func TestAPIDeployments(t *testing.T) {
	srv := newServer(t, newChain())
	resp, body := get(t, srv.URL+"/api/deployments")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	out := decode(t, body)
	list := out["deployments"].([]any)
	require.Len(t, list, 1)
	first := list[0].(map[string]any)
	assert.Equal(t, core.Hex(), first["address"])
	assert.Equal(t, "Test Core", first["label"])
	assert.Equal(t, "auto", first["version"])
}

func TestAPIRange(t *testing.T) {
	srv := newServer(t, newChain())
	resp, body := get(t, srv.URL+"/api/contracts/"+strings.ToLower(core.Hex())+"/range")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode(t, body)
	assert.Equal(t, float64(0), out["min"])
	assert.Equal(t, float64(2), out["max"])
}

func TestAPIRangeUnknownContract(t *testing.T) {
	srv := newServer(t, newChain())
	resp, body := get(t, srv.URL+"/api/contracts/0x00000000000000000000000000000000000000ff/range")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, "UNKNOWN_CONTRACT")
}

func TestAPIProject(t *testing.T) {
	srv := newServer(t, newChain())
	resp, body := get(t, srv.URL+"/api/contracts/"+core.Hex()+"/projects/1")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode(t, body)
	assert.Equal(t, float64(5), out["invocations"])
	assert.Equal(t, "1000000", out["first_token_id"])
	onChain := out["on_chain"].(map[string]any)
	assert.Equal(t, true, onChain["dependency_fully_on_chain"])
}

func TestAPIProjectBadID(t *testing.T) {
	srv := newServer(t, newChain())
	resp, _ := get(t, srv.URL+"/api/contracts/"+core.Hex()+"/projects/-1")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// ---------------------------------------------------------------------------
// /token
// ---------------------------------------------------------------------------

func TestTokenRoute(t *testing.T) {
	fc := newChain()
	fc.SetTokenHTML(core, artblocks.TokenID(1, 3), "<html>raw</html>")
	srv := newServer(t, fc)

	resp, body := get(t, srv.URL+render.TokenPath(core.Hex(), 1, 3))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "<html>raw</html>", body)
	assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))
	etag := resp.Header.Get("ETag")
	assert.Equal(t, render.ETag("<html>raw</html>"), etag)

	resp, body = get(t, srv.URL+render.TokenPath(core.Hex(), 1, 3), "If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, resp.StatusCode)
	assert.Empty(t, body)
}

func TestTokenRouteBadParams(t *testing.T) {
	srv := newServer(t, newChain())
	for _, path := range []string{
		"/token/0x1234/1/1",
		"/token/" + core.Hex() + "/x/1",
		"/token/" + core.Hex() + "/1/-3",
		"/token/" + core.Hex() + "/1/1000000",
	} {
		resp, _ := get(t, srv.URL+path)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, path)
	}
}

func TestTokenRouteFailure(t *testing.T) {
	srv := newServer(t, newChain())
	unknown := common.HexToAddress("0x00000000000000000000000000000000000000ee")
	resp, body := get(t, srv.URL+render.TokenPath(unknown.Hex(), 1, 1))
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, body, render.GenericError)
}

func TestTokenRouteCollapsesConcurrentRequests(t *testing.T) {
	fc := newChain()
	release := make(chan struct{})
	fc.SetGate(func(ctx context.Context, _ common.Address, method string) error {
		if method == "getTokenHtml" {
			<-release
		}
		return nil
	})
	srv := newServer(t, fc)

	const n = 5
	var wg sync.WaitGroup
	codes := make([]int, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, _ := get(t, srv.URL+render.TokenPath(core.Hex(), 0, 1))
			codes[i] = resp.StatusCode
		}()
	}
	time.Sleep(200 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, c := range codes {
		assert.Equal(t, http.StatusOK, c)
	}
	assert.Equal(t, 1, fc.CountCalls("getTokenHtml"))
}

// ---------------------------------------------------------------------------
// viewer page
// ---------------------------------------------------------------------------

func TestPageRendersSandboxedFrame(t *testing.T) {
	srv := newServer(t, newChain())
	resp, body := get(t, srv.URL+render.PageURL("", sel(1, 4)))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Contains(t, body, `sandbox="allow-scripts"`)
	assert.Contains(t, body, `srcdoc="&lt;html&gt;&lt;body&gt;`)
	assert.Contains(t, body, "token 1000004")
	assert.Contains(t, body, `value="1"`)
	assert.Contains(t, body, `value="4"`)
	assert.Contains(t, body, "selected")
	assert.Contains(t, body, render.TokenPath(core.Hex(), 1, 4))
	assert.NotContains(t, body, render.GenericError)
}

func TestPageDefaultsWithoutQuery(t *testing.T) {
	srv := newServer(t, newChain())
	_, body := get(t, srv.URL+"/")
	assert.Contains(t, body, "token 0")
	assert.Contains(t, body, "Test Core")
}

func TestPageShowsGenericErrorOnFailure(t *testing.T) {
	fc := newChain()
	reg := deployments.New([]deployments.Deployment{{Address: core}})
	reader := artblocks.NewReader(fc, common.Address{}, common.Address{})
	srv := httptest.NewServer(render.NewServer(reader, reg).Handler())
	defer srv.Close()

	_, body := get(t, srv.URL+"/")
	assert.Contains(t, body, render.GenericError)
	assert.NotContains(t, body, "<iframe")
}

func TestPageLogsInvocationFailure(t *testing.T) {
	fc := newChain()
	fc.SetGate(func(_ context.Context, _ common.Address, method string) error {
		if method == "projectStateData" {
			return errors.New("node unavailable")
		}
		return nil
	})
	v3 := deployments.V3
	reg := deployments.New([]deployments.Deployment{{Address: core, Version: &v3}})
	var logs lockedBuffer
	srv := httptest.NewServer(render.NewServer(newReader(fc), reg, render.WithServerLogger(logging.NewWithWriter(&logs, true))).Handler())
	defer srv.Close()

	_, body := get(t, srv.URL+render.PageURL("", sel(1, 4)))
	assert.Contains(t, body, render.GenericError)
	assert.Contains(t, logs.String(), "node unavailable")
}

func TestPageURL(t *testing.T) {
	assert.Equal(t, "http://h/", render.PageURL("http://h", cascade.Selection{}))
	got := render.PageURL("http://h", sel(3, 7))
	assert.Equal(t, "http://h/?contractAddress="+core.Hex()+"&projectId=3&tokenInvocation=7", got)
}

// ---------------------------------------------------------------------------
// lifecycle
// ---------------------------------------------------------------------------

func TestServeShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := render.NewServer(newReader(newChain()), deployments.New(nil))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestDiscoverMergesRegistry(t *testing.T) {
	extra := common.HexToAddress("0x00000000000000000000000000000000000000c2")
	fc := newChain().SetSupported(core, extra)
	s := render.NewServer(newReader(fc), deployments.New([]deployments.Deployment{{Address: core, Label: "Test Core"}}))

	s.Discover(context.Background())
	all := s.Registry().All()
	require.Len(t, all, 2)
	assert.Equal(t, "Test Core", all[0].Label)
	assert.Equal(t, extra, all[1].Address)
}
