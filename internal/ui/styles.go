package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette.
var (
	ColorSuccess   = lipgloss.Color("#00D26A") // green, resolved values
	ColorWarning   = lipgloss.Color("#FFB800") // yellow, loading and warnings
	ColorError     = lipgloss.Color("#FF4444") // red, failures
	ColorAddress   = lipgloss.Color("#00B4D8") // cyan, contract addresses
	ColorValue     = lipgloss.Color("#FFFFFF") // white bold, ids and counts
	ColorMeta      = lipgloss.Color("#555555") // dim gray, hints and metadata
	ColorBorder    = lipgloss.Color("#1E3A5F") // dark blue, chrome
	ColorChain     = lipgloss.Color("#9B5DE5") // purple, network names
	ColorHighlight = lipgloss.Color("#F15BB5") // pink, focused field
)

// Base styles.
var (
	StyleSuccess = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
	StyleWarning = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)
	StyleError   = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	StyleAddress = lipgloss.NewStyle().Foreground(ColorAddress)
	StyleValue   = lipgloss.NewStyle().Foreground(ColorValue).Bold(true)
	StyleMeta    = lipgloss.NewStyle().Foreground(ColorMeta)
	StyleChain   = lipgloss.NewStyle().Foreground(ColorChain).Bold(true)

	StyleBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	StyleHeader = lipgloss.NewStyle().
			Foreground(ColorHighlight).
			Bold(true).
			Underline(true)

	StyleSelected = lipgloss.NewStyle().
			Background(ColorHighlight).
			Foreground(lipgloss.Color("#000000")).
			Bold(true)

	StyleTitle = lipgloss.NewStyle().
			Foreground(ColorChain).
			Bold(true).
			MarginBottom(1)

	StyleDim = lipgloss.NewStyle().Foreground(ColorMeta)
)

// Banner returns the ogview banner shown by the interactive viewer.
func Banner(version string) string {
	art := `
   ___   __ _ __   __ (_)  ___ __      __
  / _ \ / _' |\ \ / / | | / _ \\ \ /\ / /
 | (_) | (_| | \ V /  | ||  __/ \ V  V /
  \___/ \__, |  \_/   |_| \___|  \_/\_/
        |___/`

	tagline := StyleMeta.Render("  on-chain generative art viewer  " + version)
	return StyleChain.Render(art) + "\n" + tagline + "\n"
}

// Success formats a success message.
func Success(msg string) string { return StyleSuccess.Render("✓ " + msg) }

// Warn formats a warning message.
func Warn(msg string) string { return StyleWarning.Render("⚠ " + msg) }

// Err formats an error message.
func Err(msg string) string { return StyleError.Render("✗ " + msg) }

// Info formats a neutral status line.
func Info(msg string) string { return StyleAddress.Render("ℹ " + msg) }

// Hint formats a follow-up suggestion.
func Hint(msg string) string { return StyleMeta.Render("→ " + msg) }

// Addr formats an address.
func Addr(a string) string { return StyleAddress.Render(a) }

// Val formats a value.
func Val(v string) string { return StyleValue.Render(v) }

// Meta formats metadata text.
func Meta(m string) string { return StyleMeta.Render(m) }

// ChainName formats a network name.
func ChainName(c string) string { return StyleChain.Render(c) }

// TruncateAddr shortens an address for display: 0x1234…5678.
func TruncateAddr(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}

// padR pads s to visible width n, ANSI-safe.
func padR(s string, n int) string {
	w := lipgloss.Width(s)
	if w >= n {
		return s
	}
	return s + strings.Repeat(" ", n-w)
}

// trimErr shortens noisy RPC errors for a single status line.
func trimErr(s string, max int) string {
	for _, marker := range []string{"dial tcp", "connection refused", "context deadline", "execution reverted"} {
		if idx := strings.Index(s, marker); idx >= 0 {
			s = s[idx:]
			break
		}
	}
	if max > 0 && len([]rune(s)) > max {
		return string([]rune(s)[:max]) + "…"
	}
	return s
}
