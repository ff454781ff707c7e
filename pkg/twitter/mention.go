package twitter

import (
	"regexp"
	"strings"
	"time"
)

// Mention is the normalized inbound event: someone referenced the bot's
// handle in a post. Both entry adapters (webhook delivery and poll search)
// produce this shape; everything downstream treats it as read-only.
type Mention struct {
	ID          string
	Actor       string // handle of the posting account, without @
	RawText     string
	CleanedText string
	CreatedAt   time.Time
}

var spaceRe = regexp.MustCompile(`\s+`)

// CleanText strips every occurrence of the bot's own @handle from raw text,
// case-insensitively, and normalizes whitespace. Other @-mentions are kept,
// including longer handles that merely share a prefix (@botling when the bot
// is @bot). Handle characters are [A-Za-z0-9_], so the trailing \b only
// fires where the handle actually ends.
func CleanText(raw, botHandle string) string {
	handle := strings.TrimPrefix(botHandle, "@")
	re := regexp.MustCompile(`(?i)@` + regexp.QuoteMeta(handle) + `\b`)
	out := re.ReplaceAllString(raw, "")
	return strings.TrimSpace(spaceRe.ReplaceAllString(out, " "))
}
