package extractor

import "regexp"

var evmAddrRe = regexp.MustCompile(`\b(0x[a-fA-F0-9]{40})\b`)

// WalletAddress returns the first EVM wallet address found in text, or ""
// when there is none. When several addresses appear, only the first one by
// position is used.
func WalletAddress(text string) string {
	return evmAddrRe.FindString(text)
}
