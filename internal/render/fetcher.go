// Package render fetches token markup from the generator and serves it to
// a browser inside a sandboxed frame.
package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"

	"github.com/Mohsinsiddi/ogview/internal/artblocks"
	"github.com/Mohsinsiddi/ogview/internal/cascade"
	"github.com/Mohsinsiddi/ogview/internal/logging"
	"github.com/ethereum/go-ethereum/common"
)

// GenericError is the only failure message shown to users; the cause is logged.
const GenericError = "Error fetching token data, please make sure you've provided a valid contract address and token id combination"

// ErrIncompleteSelection is returned when contract, project or token is missing.
var ErrIncompleteSelection = errors.New("incomplete selection: contract, project and token are required")

// Mode selects the generator accessor used for markup.
type Mode int

const (
	// ModeHTML reads getTokenHtml.
	ModeHTML Mode = iota
	// ModeDataURI reads getTokenHtmlBase64EncodedDataUri and decodes it.
	ModeDataURI
)

func (m Mode) String() string {
	if m == ModeDataURI {
		return "data-uri"
	}
	return "html"
}

// ParseMode maps "html" or "data-uri" to a Mode. Empty selects ModeHTML.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "html":
		return ModeHTML, nil
	case "data-uri":
		return ModeDataURI, nil
	}
	return ModeHTML, fmt.Errorf("unknown render mode %q (want html or data-uri)", s)
}

// Source reads token markup. *artblocks.Reader satisfies it.
type Source interface {
	TokenHTML(ctx context.Context, core common.Address, tokenID *big.Int) (string, error)
	TokenHTMLDataURI(ctx context.Context, core common.Address, tokenID *big.Int) (string, error)
}

// Markup reads the markup for one token using the given mode.
func Markup(ctx context.Context, src Source, mode Mode, core common.Address, tokenID *big.Int) (string, error) {
	if mode != ModeDataURI {
		return src.TokenHTML(ctx, core, tokenID)
	}
	uri, err := src.TokenHTMLDataURI(ctx, core, tokenID)
	if err != nil {
		return "", err
	}
	_, body, err := artblocks.DecodeDataURI(uri)
	if err != nil {
		return "", fmt.Errorf("token %s: %w", tokenID, err)
	}
	return string(body), nil
}

// Status is the fetcher's observable state. Err holds the user-facing
// message, never the cause.
type Status struct {
	Loading bool
	Err     string
	TokenID *big.Int
	HTML    string
}

// Fetcher loads markup for the latest selection. Starting a fetch cancels
// the previous one, and a superseded fetch never touches Status.
type Fetcher struct {
	src  Source
	mode Mode
	log  *slog.Logger

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	status Status
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithMode sets the markup accessor.
func WithMode(m Mode) FetcherOption {
	return func(f *Fetcher) { f.mode = m }
}

// WithFetcherLogger sets the logger that receives failure causes.
func WithFetcherLogger(l *slog.Logger) FetcherOption {
	return func(f *Fetcher) { f.log = logging.OrDiscard(l) }
}

// NewFetcher creates a Fetcher reading from src.
func NewFetcher(src Source, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{src: src, log: logging.Discard()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Status returns the current status.
func (f *Fetcher) Status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

// Fetch loads markup for sel. It returns cascade.ErrSuperseded when a newer
// Fetch started before this one finished.
func (f *Fetcher) Fetch(ctx context.Context, sel cascade.Selection) (string, error) {
	if !common.IsHexAddress(sel.Contract) || sel.ProjectID == nil || sel.Token == nil {
		return "", ErrIncompleteSelection
	}
	if *sel.Token >= artblocks.TokenIDMultiplier {
		return "", fmt.Errorf("%w: token invocation %d is not below %d", ErrIncompleteSelection, *sel.Token, artblocks.TokenIDMultiplier)
	}
	core := common.HexToAddress(sel.Contract)
	tokenID := artblocks.TokenID(*sel.ProjectID, *sel.Token)

	f.mu.Lock()
	f.gen++
	gen := f.gen
	if f.cancel != nil {
		f.cancel()
	}
	fctx, cancel := context.WithCancel(ctx)
	defer cancel()
	f.cancel = cancel
	f.status = Status{Loading: true, TokenID: tokenID}
	f.mu.Unlock()

	html, err := Markup(fctx, f.src, f.mode, core, tokenID)

	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.gen {
		return "", cascade.ErrSuperseded
	}
	f.cancel = nil
	if err != nil {
		f.log.Warn("token fetch failed", "contract", core.Hex(), "token", tokenID.String(), "mode", f.mode.String(), "err", err)
		f.status = Status{Err: GenericError, TokenID: tokenID}
		return "", err
	}
	f.status = Status{TokenID: tokenID, HTML: html}
	return html, nil
}

// Reset cancels any in-flight fetch and clears the status.
func (f *Fetcher) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gen++
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	f.status = Status{}
}
