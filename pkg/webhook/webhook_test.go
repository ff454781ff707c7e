package webhook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCRCResponse(t *testing.T) {
	// HMAC-SHA256("secret", "challenge"), base64, sha256= prefix.
	got := CRCResponse("secret", "challenge")
	assert.Equal(t, "sha256=oeUF6Wxqoezggrue+wbIDxKRPSF6esKwizR2MHh9HaA=", got)

	// Different secret, different answer.
	assert.NotEqual(t, got, CRCResponse("other", "challenge"))
}

func TestParseMentions(t *testing.T) {
	body := []byte(`{
		"for_user_id": "99",
		"tweet_create_events": [
			{
				"id_str": "T1",
				"text": "@bot hey there",
				"created_at": "Fri Aug 28 10:00:00 +0000 2026",
				"user": {"screen_name": "alice"}
			},
			{
				"id_str": "T2",
				"text": "@alice thanks for reaching out",
				"created_at": "Fri Aug 28 10:00:05 +0000 2026",
				"user": {"screen_name": "Bot"}
			},
			{
				"id_str": "T3",
				"text": "nothing to do with us",
				"created_at": "Fri Aug 28 10:00:10 +0000 2026",
				"user": {"screen_name": "carol"}
			}
		]
	}`)

	mentions, err := ParseMentions(body, "bot")
	require.NoError(t, err)

	// The bot's own echoed reply and the unrelated tweet are dropped.
	require.Len(t, mentions, 1)
	m := mentions[0]
	assert.Equal(t, "T1", m.ID)
	assert.Equal(t, "alice", m.Actor)
	assert.Equal(t, "@bot hey there", m.RawText)
	assert.Equal(t, "hey there", m.CleanedText)
	assert.Equal(t, 2026, m.CreatedAt.Year())
}

func TestParseMentionsEmptyDelivery(t *testing.T) {
	mentions, err := ParseMentions([]byte(`{"for_user_id":"99"}`), "bot")
	require.NoError(t, err)
	assert.Empty(t, mentions)
}

func TestParseMentionsMalformed(t *testing.T) {
	_, err := ParseMentions([]byte(`{not json`), "bot")
	assert.Error(t, err)
}
