package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// ---------------------------------------------------------------------------
// message helpers
// ---------------------------------------------------------------------------

func TestMessageHelpersKeepText(t *testing.T) {
	cases := []struct {
		name   string
		render func(string) string
		prefix string
	}{
		{"success", Success, "✓"},
		{"warn", Warn, "⚠"},
		{"err", Err, "✗"},
		{"info", Info, "ℹ"},
		{"hint", Hint, "→"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := tc.render("project range resolved")
			assert.Contains(t, out, tc.prefix)
			assert.Contains(t, out, "project range resolved")
		})
	}
}

func TestPlainHelpersKeepText(t *testing.T) {
	assert.Contains(t, Addr("0xABCDEF"), "0xABCDEF")
	assert.Contains(t, Val("250"), "250")
	assert.Contains(t, Meta("v3"), "v3")
	assert.Contains(t, ChainName("mainnet"), "mainnet")
}

func TestBannerShowsVersion(t *testing.T) {
	out := Banner("v0.4.0")
	assert.Contains(t, out, "generative art viewer")
	assert.Contains(t, out, "v0.4.0")
}

// ---------------------------------------------------------------------------
// TruncateAddr / padR / trimErr
// ---------------------------------------------------------------------------

func TestTruncateAddr(t *testing.T) {
	assert.Equal(t, "0x1234", TruncateAddr("0x1234"))
	assert.Equal(t, "0x12345678", TruncateAddr("0x12345678"))
	assert.Equal(t, "0x99a9…B069", TruncateAddr("0x99a9B7c1116f9ceEB1652de04d5969CcE509B069"))
}

func TestPadR(t *testing.T) {
	assert.Equal(t, "ab   ", padR("ab", 5))
	assert.Equal(t, "abcdef", padR("abcdef", 3))
}

func TestTrimErr(t *testing.T) {
	assert.Equal(t, "execution reverted", trimErr("rpc error: call failed: execution reverted", 0))
	assert.Equal(t, "dial tcp…", trimErr(`Post "http://x": dial tcp 127.0.0.1:1: connect`, 8))
	assert.Equal(t, "short", trimErr("short", 30))
}
