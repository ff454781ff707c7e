// Package webhook implements the push entry point: the platform's
// challenge-response check (CRC) and the account-activity event payload that
// delivers mentions directly to the bot.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/mentionbot/pkg/twitter"
)

// CRCResponse computes the keyed-hash answer to a challenge token. The
// platform periodically sends a crc_token and expects
// sha256= + base64(HMAC-SHA256(secret, token)) back within seconds.
func CRCResponse(secret, crcToken string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(crcToken))
	return "sha256=" + base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Event is the subset of the account-activity delivery we care about.
type Event struct {
	ForUserID         string `json:"for_user_id"`
	TweetCreateEvents []struct {
		IDStr     string `json:"id_str"`
		Text      string `json:"text"`
		CreatedAt string `json:"created_at"`
		User      struct {
			ScreenName string `json:"screen_name"`
		} `json:"user"`
	} `json:"tweet_create_events"`
}

const createdAtLayout = "Mon Jan 02 15:04:05 -0700 2006"

// ParseMentions normalizes a raw event delivery into mentions addressed to
// the bot. The bot's own tweets (including the replies it just posted, which
// the platform echoes back) are dropped, as is anything not actually
// mentioning the handle.
func ParseMentions(body []byte, botHandle string) ([]twitter.Mention, error) {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, err
	}

	needle := "@" + strings.ToLower(strings.TrimPrefix(botHandle, "@"))
	var mentions []twitter.Mention
	for _, t := range ev.TweetCreateEvents {
		if strings.EqualFold(t.User.ScreenName, botHandle) {
			continue
		}
		if !strings.Contains(strings.ToLower(t.Text), needle) {
			continue
		}
		ts, _ := time.Parse(createdAtLayout, t.CreatedAt)
		mentions = append(mentions, twitter.Mention{
			ID:          t.IDStr,
			Actor:       t.User.ScreenName,
			RawText:     t.Text,
			CleanedText: twitter.CleanText(t.Text, botHandle),
			CreatedAt:   ts,
		})
	}
	return mentions, nil
}
