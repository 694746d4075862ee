package render

import (
	"context"
	"encoding/hex"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/Mohsinsiddi/ogview/internal/artblocks"
	"github.com/Mohsinsiddi/ogview/internal/cascade"
	"github.com/Mohsinsiddi/ogview/internal/chain"
	"github.com/Mohsinsiddi/ogview/internal/deployments"
	"github.com/Mohsinsiddi/ogview/internal/logging"
	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/crypto/sha3"
	"golang.org/x/sync/singleflight"
)

// DefaultAddr is the render server's default listen address.
const DefaultAddr = "127.0.0.1:7878"

const shutdownTimeout = 5 * time.Second

// Reader is everything the server reads from chain. *artblocks.Reader
// satisfies it.
type Reader interface {
	cascade.Reader
	Source
}

// Server serves the viewer page, raw token markup and a small JSON API.
type Server struct {
	reader  Reader
	network string
	mode    Mode
	log     *slog.Logger

	mu       sync.RWMutex
	registry *deployments.Registry

	markup singleflight.Group
	router chi.Router
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithNetwork sets the network name shown on the page and in /healthz.
func WithNetwork(name string) ServerOption {
	return func(s *Server) { s.network = name }
}

// WithServerMode sets the markup accessor.
func WithServerMode(m Mode) ServerOption {
	return func(s *Server) { s.mode = m }
}

// WithServerLogger sets the request and error logger.
func WithServerLogger(l *slog.Logger) ServerOption {
	return func(s *Server) { s.log = logging.OrDiscard(l) }
}

// NewServer builds a server over the given deployments.
func NewServer(reader Reader, registry *deployments.Registry, opts ...ServerOption) *Server {
	s := &Server{
		reader:   reader,
		registry: registry,
		log:      logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)

	r.Get("/", s.handlePage)
	r.Get("/healthz", s.handleHealth)
	r.Get("/token/{contractAddress}/{projectId}/{tokenInvocation}", s.handleToken)
	r.Route("/api", func(api chi.Router) {
		api.Get("/deployments", s.handleDeployments)
		api.Get("/contracts/{address}/range", s.handleRange)
		api.Get("/contracts/{address}/projects/{projectId}", s.handleProject)
	})
	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Registry returns the deployments the server currently knows.
func (s *Server) Registry() *deployments.Registry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry
}

// Discover merges core contracts from the dependency registry. Failures
// are logged and leave the registry unchanged.
func (s *Server) Discover(ctx context.Context) {
	found, err := s.reader.SupportedCoreContracts(ctx)
	if err != nil {
		s.log.Debug("core contract discovery failed", "err", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registry = s.registry.Merge(found)
}

// ListenAndServe listens on addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.log.Info("render server listening", "addr", ln.Addr().String(), "network", s.network)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	s.log.Info("render server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// ---------------------------------------------------------------------------
// handlers
// ---------------------------------------------------------------------------

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "network": s.network})
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	addr := chi.URLParam(r, "contractAddress")
	if !common.IsHexAddress(addr) {
		writeError(w, http.StatusBadRequest, "BAD_CONTRACT", "contractAddress must be a 20-byte hex address")
		return
	}
	projectID, err := strconv.ParseUint(chi.URLParam(r, "projectId"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_PROJECT", "projectId must be a non-negative integer")
		return
	}
	invocation, err := strconv.ParseUint(chi.URLParam(r, "tokenInvocation"), 10, 64)
	if err != nil || invocation >= artblocks.TokenIDMultiplier {
		writeError(w, http.StatusBadRequest, "BAD_TOKEN", "tokenInvocation must be an integer below 1000000")
		return
	}

	core := common.HexToAddress(addr)
	body, err := s.tokenMarkup(r.Context(), core, projectID, invocation)
	if err != nil {
		s.log.Warn("token fetch failed", "contract", core.Hex(), "project", projectID, "token", invocation, "err", err)
		writeError(w, http.StatusBadGateway, "FETCH_FAILED", GenericError)
		return
	}

	etag := ETag(body)
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, max-age=60")
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

// tokenMarkup collapses concurrent reads of the same token into one call.
// The shared call is detached from any single request's cancellation.
func (s *Server) tokenMarkup(ctx context.Context, core common.Address, projectID, invocation uint64) (string, error) {
	tokenID := artblocks.TokenID(projectID, invocation)
	key := core.Hex() + "/" + tokenID.String() + "/" + s.mode.String()
	ch := s.markup.DoChan(key, func() (interface{}, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*chain.DefaultTimeout)
		defer cancel()
		return Markup(fctx, s.reader, s.mode, core, tokenID)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s *Server) handleDeployments(w http.ResponseWriter, _ *http.Request) {
	all := s.Registry().All()
	out := make([]deploymentJSON, 0, len(all))
	for _, d := range all {
		out = append(out, toDeploymentJSON(d))
	}
	writeJSON(w, http.StatusOK, map[string]any{"network": s.network, "deployments": out})
}

func (s *Server) handleRange(w http.ResponseWriter, r *http.Request) {
	d, ok := s.lookup(w, chi.URLParam(r, "address"))
	if !ok {
		return
	}
	rng, err := s.reader.ProjectRange(r.Context(), d)
	if err != nil {
		s.log.Warn("project range read failed", "contract", d.Address.Hex(), "err", err)
		writeError(w, http.StatusBadGateway, "RPC_ERROR", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"contract": d.Address.Hex(),
		"min":      rng.Min,
		"max":      rng.Max,
	})
}

func (s *Server) handleProject(w http.ResponseWriter, r *http.Request) {
	d, ok := s.lookup(w, chi.URLParam(r, "address"))
	if !ok {
		return
	}
	projectID, err := strconv.ParseUint(chi.URLParam(r, "projectId"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_PROJECT", "projectId must be a non-negative integer")
		return
	}
	count, err := s.reader.ProjectInvocations(r.Context(), d, projectID)
	if err != nil {
		s.log.Warn("invocation read failed", "contract", d.Address.Hex(), "project", projectID, "err", err)
		writeError(w, http.StatusBadGateway, "RPC_ERROR", err.Error())
		return
	}
	resp := map[string]any{
		"contract":       d.Address.Hex(),
		"project_id":     projectID,
		"invocations":    count,
		"first_token_id": artblocks.TokenID(projectID, 0).String(),
	}
	if st, err := s.reader.OnChainStatus(r.Context(), d.Address, projectID); err == nil {
		resp["on_chain"] = st
	} else {
		s.log.Debug("on-chain status unavailable", "contract", d.Address.Hex(), "project", projectID, "err", err)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) lookup(w http.ResponseWriter, address string) (deployments.Deployment, bool) {
	d, err := s.Registry().Resolve(address)
	if err != nil {
		writeError(w, http.StatusNotFound, "UNKNOWN_CONTRACT", err.Error())
		return deployments.Deployment{}, false
	}
	return d, true
}

// ETag returns a strong entity tag for body: the quoted keccak-256 hex digest.
func ETag(body string) string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(body))
	return `"` + hex.EncodeToString(h.Sum(nil)) + `"`
}

// PageURL builds a shareable viewer link for sel rooted at base.
func PageURL(base string, sel cascade.Selection) string {
	q := url.Values{}
	if sel.Contract != "" {
		q.Set("contractAddress", sel.Contract)
	}
	if sel.ProjectID != nil {
		q.Set("projectId", strconv.FormatUint(*sel.ProjectID, 10))
	}
	if sel.Token != nil {
		q.Set("tokenInvocation", strconv.FormatUint(*sel.Token, 10))
	}
	u := base + "/"
	if enc := q.Encode(); enc != "" {
		u += "?" + enc
	}
	return u
}

// TokenPath is the raw markup route for one token.
func TokenPath(contract string, projectID, invocation uint64) string {
	return "/token/" + contract + "/" + strconv.FormatUint(projectID, 10) + "/" + strconv.FormatUint(invocation, 10)
}
