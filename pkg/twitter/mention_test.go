package twitter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"leading mention", "@bot hey there", "hey there"},
		{"case insensitive", "@BOT hey @Bot there", "hey there"},
		{"mid-text mention", "hey @bot what about 0xabc", "hey what about 0xabc"},
		{"no mention", "just some text", "just some text"},
		{"only the mention", "@bot", ""},
		{"whitespace collapsed", "@bot   hey    there  ", "hey there"},
		{"other mentions kept", "@bot ask @alice about it", "ask @alice about it"},
		{"longer handle not stripped", "@botling is a different account @bot", "@botling is a different account"},
		{"handle after multi-byte runes", "ȺȺȺȺȺ@bot hello", "ȺȺȺȺȺ hello"},
		{"handle at end after multi-byte runes", "ȺȺȺȺȺ@bot", "ȺȺȺȺȺ"},
		{"multi-byte runes around every occurrence", "é@bot é @BOT é", "é é é"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanText(tt.raw, "bot"))
		})
	}
}

func TestCleanTextHandleWithAt(t *testing.T) {
	// Callers may configure the handle with or without the leading @.
	assert.Equal(t, "hey", CleanText("@bot hey", "@bot"))
}
