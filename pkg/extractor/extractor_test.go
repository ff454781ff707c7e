package extractor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWalletAddress(t *testing.T) {
	addr := "0x4E5B2e1dc63F6b91cb6Cd759936495434C7e972F"

	tests := []struct {
		name string
		text string
		want string
	}{
		{"plain address", "check " + addr + " please", addr},
		{"address only", addr, addr},
		{"no address", "hey @bot how is my portfolio doing", ""},
		{"empty text", "", ""},
		{"too short", "0x4E5B2e1dc63F6b91cb6Cd759936495434C7e972", ""},
		{"too long", addr + "a", ""},
		{"non-hex chars", "0xZZ5B2e1dc63F6b91cb6Cd759936495434C7e972F", ""},
		{"mixed case hex", "0xabcdefABCDEF0123456789abcdefABCDEF012345", "0xabcdefABCDEF0123456789abcdefABCDEF012345"},
		{"embedded in sentence with punctuation", "wallet: " + addr + ", thanks", addr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WalletAddress(tt.text))
		})
	}
}

func TestWalletAddressFirstMatchWins(t *testing.T) {
	first := "0x1111111111111111111111111111111111111111"
	second := "0x2222222222222222222222222222222222222222"

	got := WalletAddress("compare " + first + " with " + second)
	assert.Equal(t, first, got)

	// Order in text decides, not any other property of the addresses.
	got = WalletAddress("compare " + second + " with " + first)
	assert.Equal(t, second, got)
}

func TestWalletAddressShape(t *testing.T) {
	got := WalletAddress("my wallet is 0xdAC17F958D2ee523a2206206994597C13D831ec7 ok")
	assert.True(t, strings.HasPrefix(got, "0x"))
	assert.Len(t, got, 42)
}
