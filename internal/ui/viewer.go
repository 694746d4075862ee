package ui

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Mohsinsiddi/ogview/internal/artblocks"
	"github.com/Mohsinsiddi/ogview/internal/cascade"
	"github.com/Mohsinsiddi/ogview/internal/render"
)

type viewerField int

const (
	fieldContract viewerField = iota
	fieldProject
	fieldToken
	fieldCount
)

func (f viewerField) label() string {
	switch f {
	case fieldContract:
		return "Contract"
	case fieldProject:
		return "Project"
	default:
		return "Token"
	}
}

// StateMsg carries a controller snapshot into the viewer.
type StateMsg cascade.State

type renderMsg render.Status

type opDoneMsg struct {
	op    string
	err   error
	state cascade.State
}

type flashMsg string

// ViewerConfig configures the interactive viewer.
type ViewerConfig struct {
	Network string
	Version string
	Initial cascade.Selection
	// PageBase is the render server root used by "o"; empty disables it.
	PageBase string
	// Open launches a URL. Defaults to OpenBrowser.
	Open func(url string) error
}

// ViewerModel is the Bubble Tea model for browsing contract, project and
// token. All controller calls run inside commands; state arrives as
// StateMsg from a subscription or with the command's completion.
type ViewerModel struct {
	ctx     context.Context
	ctl     *cascade.Controller
	fetcher *render.Fetcher
	cfg     ViewerConfig

	focus    viewerField
	input    string
	state    cascade.State
	status   render.Status
	fetchKey string
	lastErr  string
	flash    string
	quitting bool
}

// NewViewerModel creates a viewer over ctl that renders with fetcher.
func NewViewerModel(ctx context.Context, ctl *cascade.Controller, fetcher *render.Fetcher, cfg ViewerConfig) ViewerModel {
	if cfg.Open == nil {
		cfg.Open = OpenBrowser
	}
	return ViewerModel{ctx: ctx, ctl: ctl, fetcher: fetcher, cfg: cfg}
}

// State returns the last snapshot the viewer applied.
func (m ViewerModel) State() cascade.State { return m.state }

// RenderStatus returns the last markup fetch status the viewer applied.
func (m ViewerModel) RenderStatus() render.Status { return m.status }

func (m ViewerModel) Init() tea.Cmd {
	sel := m.cfg.Initial
	return m.op("initialize", func(ctx context.Context, ctl *cascade.Controller) error {
		return ctl.Initialize(ctx, sel)
	})
}

// op runs fn against the controller off the event loop.
func (m ViewerModel) op(name string, fn func(context.Context, *cascade.Controller) error) tea.Cmd {
	ctx, ctl := m.ctx, m.ctl
	return func() tea.Msg {
		err := fn(ctx, ctl)
		return opDoneMsg{op: name, err: err, state: ctl.State()}
	}
}

func (m ViewerModel) fetchCmd(sel cascade.Selection) tea.Cmd {
	ctx, f := m.ctx, m.fetcher
	return func() tea.Msg {
		if _, err := f.Fetch(ctx, sel); errors.Is(err, cascade.ErrSuperseded) {
			return nil
		}
		return renderMsg(f.Status())
	}
}

// applyState adopts s unless a newer snapshot was already applied and
// starts a markup fetch when the token id changed.
func (m ViewerModel) applyState(s cascade.State) (ViewerModel, tea.Cmd) {
	if s.Seq <= m.state.Seq {
		return m, nil
	}
	m.state = s
	id, ok := s.TokenID()
	if !ok {
		if m.fetchKey != "" {
			m.fetchKey = ""
			m.fetcher.Reset()
			m.status = render.Status{}
		}
		return m, nil
	}
	key := s.Contract + "/" + id.String()
	if key == m.fetchKey {
		return m, nil
	}
	m.fetchKey = key
	m.status = render.Status{Loading: true, TokenID: id}
	return m, m.fetchCmd(s.Selection)
}

func (m ViewerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case StateMsg:
		return m.applyState(cascade.State(msg))

	case opDoneMsg:
		switch {
		case msg.err == nil:
			m.lastErr = ""
		case !errors.Is(msg.err, cascade.ErrSuperseded):
			m.lastErr = msg.err.Error()
		}
		return m.applyState(msg.state)

	case renderMsg:
		if msg.TokenID != nil && m.fetchKey == m.state.Contract+"/"+msg.TokenID.String() {
			m.status = render.Status(msg)
		}
		return m, nil

	case flashMsg:
		m.flash = string(msg)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m ViewerModel) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.flash = ""
	switch key.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "q":
		if m.input == "" {
			m.quitting = true
			return m, tea.Quit
		}
	case "esc":
		if m.input == "" {
			m.quitting = true
			return m, tea.Quit
		}
		m.input = ""
	case "tab", "down", "j":
		m.focus = (m.focus + 1) % fieldCount
		m.input = ""
	case "shift+tab", "up", "k":
		m.focus = (m.focus + fieldCount - 1) % fieldCount
		m.input = ""
	case "left", "h":
		return m.step(-1)
	case "right", "l":
		return m.step(1)
	case "backspace":
		if m.input != "" {
			m.input = m.input[:len(m.input)-1]
		}
	case "enter":
		return m.commitInput()
	case "r":
		return m.refresh()
	case "o":
		return m.openPage()
	default:
		if m.focus != fieldContract && len(key.Runes) == 1 && key.Runes[0] >= '0' && key.Runes[0] <= '9' && len(m.input) < 20 {
			m.input += string(key.Runes)
		}
	}
	return m, nil
}

// step moves the focused field by delta, clamped to its bounds.
func (m ViewerModel) step(delta int) (tea.Model, tea.Cmd) {
	m.input = ""
	switch m.focus {
	case fieldContract:
		all := m.ctl.Registry().All()
		if len(all) == 0 {
			return m, nil
		}
		idx := 0
		for i, d := range all {
			if strings.EqualFold(d.Address.Hex(), m.state.Contract) {
				idx = (i + delta + len(all)) % len(all)
				break
			}
		}
		addr := all[idx].Address.Hex()
		return m, m.op("contract", func(ctx context.Context, ctl *cascade.Controller) error {
			return ctl.SetContract(ctx, addr)
		})
	case fieldProject:
		if m.state.ProjectID == nil {
			return m, nil
		}
		return m.setProject(offset(*m.state.ProjectID, delta))
	default:
		if m.state.Token == nil {
			return m, nil
		}
		return m.setToken(offset(*m.state.Token, delta))
	}
}

func offset(v uint64, delta int) uint64 {
	if delta < 0 {
		if v == 0 {
			return 0
		}
		return v - 1
	}
	if v == math.MaxUint64 {
		return v
	}
	return v + 1
}

// commitInput applies the typed number to the focused field, clamped.
func (m ViewerModel) commitInput() (tea.Model, tea.Cmd) {
	if m.input == "" || m.focus == fieldContract {
		return m, nil
	}
	v, err := strconv.ParseUint(m.input, 10, 64)
	if err != nil {
		v = math.MaxUint64
	}
	m.input = ""
	if m.focus == fieldProject {
		return m.setProject(v)
	}
	return m.setToken(v)
}

func (m ViewerModel) setProject(v uint64) (tea.Model, tea.Cmd) {
	clamped, ok := m.ctl.ClampProject(v)
	if !ok {
		m.flash = "project range is still loading"
		return m, nil
	}
	if m.state.ProjectID != nil && *m.state.ProjectID == clamped && m.state.Invocations != nil {
		return m, nil
	}
	return m, m.op("project", func(ctx context.Context, ctl *cascade.Controller) error {
		return ctl.SetProject(ctx, clamped)
	})
}

func (m ViewerModel) setToken(v uint64) (tea.Model, tea.Cmd) {
	clamped, ok := m.ctl.ClampToken(v)
	if !ok {
		m.flash = "invocations are still loading"
		return m, nil
	}
	if m.state.Token != nil && *m.state.Token == clamped {
		return m, nil
	}
	return m, m.op("token", func(_ context.Context, ctl *cascade.Controller) error {
		return ctl.SetToken(clamped)
	})
}

// refresh re-fetches the markup, or retries the failed cascade step.
func (m ViewerModel) refresh() (tea.Model, tea.Cmd) {
	s := m.state
	switch {
	case s.Complete():
		id, _ := s.TokenID()
		m.fetchKey = s.Contract + "/" + id.String()
		m.status = render.Status{Loading: true, TokenID: id}
		return m, m.fetchCmd(s.Selection)
	case s.Busy():
		return m, nil
	case s.ProjectRange != nil && s.ProjectID != nil:
		pid := *s.ProjectID
		return m, m.op("project", func(ctx context.Context, ctl *cascade.Controller) error {
			return ctl.SetProject(ctx, pid)
		})
	case s.Deployment != nil:
		addr := s.Contract
		return m, m.op("contract", func(ctx context.Context, ctl *cascade.Controller) error {
			return ctl.SetContract(ctx, addr)
		})
	}
	return m, nil
}

func (m ViewerModel) openPage() (tea.Model, tea.Cmd) {
	if m.cfg.PageBase == "" {
		m.flash = "render server is not running"
		return m, nil
	}
	url := render.PageURL(m.cfg.PageBase, m.state.Selection)
	open := m.cfg.Open
	return m, func() tea.Msg {
		if err := open(url); err != nil {
			return flashMsg("could not open browser: " + err.Error())
		}
		return flashMsg("opened " + url)
	}
}

func (m ViewerModel) View() string {
	if m.quitting {
		return ""
	}
	s := m.state

	var sb strings.Builder
	sb.WriteString(Banner(m.cfg.Version))
	sb.WriteString("\n  " + ChainName(m.cfg.Network) + "\n\n")

	for f := fieldContract; f < fieldCount; f++ {
		label := padR(f.label(), 10)
		prefix := "    "
		if f == m.focus {
			prefix = "  ▸ "
			label = StyleHeader.Render(label)
		} else {
			label = StyleMeta.Render(label)
		}
		sb.WriteString(prefix + label + "  " + m.fieldValue(f) + "\n")
	}

	if id, ok := s.TokenID(); ok {
		sb.WriteString("    " + StyleMeta.Render(padR("Token id", 10)) + "  " + Val(id.String()) + "\n")
	}
	if s.OnChain != nil {
		sb.WriteString("    " + StyleMeta.Render(padR("On-chain", 10)) + "  " + onChainSummary(*s.OnChain) + "\n")
	}

	sb.WriteString("\n  " + m.statusLine() + "\n")
	if m.flash != "" {
		sb.WriteString("  " + Meta(m.flash) + "\n")
	}
	sb.WriteString("\n" + StyleMeta.Render("  [ ↑↓ ] field   [ ←→ ] step   [ 0-9 Enter ] jump   [ r ] reload   [ o ] open   [ q ] quit") + "\n")
	return sb.String()
}

func (m ViewerModel) fieldValue(f viewerField) string {
	s := m.state
	if f == m.focus && m.input != "" {
		return Val(m.input) + StyleMeta.Render("▏")
	}
	switch f {
	case fieldContract:
		if s.Deployment == nil {
			return Meta("—")
		}
		return Val(s.Deployment.DisplayName()) + "  " + Addr(TruncateAddr(s.Contract)) + "  " + Meta(s.Deployment.VersionString())
	case fieldProject:
		v := Meta("—")
		if s.ProjectID != nil {
			v = Val(strconv.FormatUint(*s.ProjectID, 10))
		}
		if s.ProjectRange != nil {
			v += "  " + Meta("range "+s.ProjectRange.String())
		}
		return v
	default:
		v := Meta("—")
		if s.Token != nil {
			v = Val(strconv.FormatUint(*s.Token, 10))
		}
		if s.Invocations != nil {
			v += "  " + Meta(fmt.Sprintf("of %d minted", *s.Invocations))
		}
		return v
	}
}

func (m ViewerModel) statusLine() string {
	s := m.state
	switch {
	case s.Loading.ProjectRange:
		return Warn("resolving project range…")
	case s.Loading.Invocations:
		return Warn("reading invocations…")
	case m.status.Loading:
		return Warn("fetching token markup…")
	case m.status.Err != "":
		return Err(m.status.Err)
	case m.lastErr != "":
		return Err(trimErr(m.lastErr, 90))
	case m.status.HTML != "":
		return Success(fmt.Sprintf("token %s rendered, %d bytes of markup", m.status.TokenID, len(m.status.HTML)))
	}
	return Meta("idle")
}

func onChainSummary(st artblocks.OnChainStatus) string {
	mark := func(ok bool, label string) string {
		if ok {
			return StyleSuccess.Render("✓ " + label)
		}
		return StyleWarning.Render("✗ " + label)
	}
	return mark(st.DependencyFullyOnChain, "dependency on chain") + "  " +
		mark(!st.InjectsDecentralizedStorageNetworkAssets, "no storage-network assets") + "  " +
		mark(!st.HasOffChainFlexDepRegDependencies, "no off-chain deps")
}

// RunViewer runs the viewer full-screen until the user quits.
func RunViewer(ctx context.Context, ctl *cascade.Controller, fetcher *render.Fetcher, cfg ViewerConfig) error {
	m := NewViewerModel(ctx, ctl, fetcher, cfg)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	unsubscribe := ctl.Subscribe(func(s cascade.State) { p.Send(StateMsg(s)) })
	defer unsubscribe()

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
