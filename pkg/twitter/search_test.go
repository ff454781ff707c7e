package twitter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentionbot/pkg/config"
)

func searchConfig(baseURL string) *config.Config {
	return &config.Config{
		BotHandle:          "bot",
		TwitterBaseURL:     baseURL,
		TwitterBearerToken: "bearer-token",
		SearchPageSize:     20,
		RequestTimeout:     2 * time.Second,
	}
}

func TestRecentMentionsNormalization(t *testing.T) {
	var gotQuery, gotAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]string{
				{"id": "2", "text": "@bot and me", "author_id": "u2", "created_at": "2026-08-28T10:01:00Z"},
				{"id": "1", "text": "@bot hey there", "author_id": "u1", "created_at": "2026-08-28T10:00:00Z"},
				{"id": "3", "text": "@bot my own post", "author_id": "u3", "created_at": "2026-08-28T10:02:00Z"},
			},
			"includes": map[string]interface{}{
				"users": []map[string]string{
					{"id": "u1", "username": "alice"},
					{"id": "u2", "username": "carol"},
					{"id": "u3", "username": "Bot"}, // the bot itself
				},
			},
		})
	}))
	defer ts.Close()

	s := NewSearcher(searchConfig(ts.URL))
	mentions, err := s.RecentMentions(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "@bot -is:retweet", gotQuery)
	assert.Equal(t, "Bearer bearer-token", gotAuth)

	// The bot's own post is dropped; the rest come back oldest first.
	require.Len(t, mentions, 2)
	assert.Equal(t, "1", mentions[0].ID)
	assert.Equal(t, "alice", mentions[0].Actor)
	assert.Equal(t, "@bot hey there", mentions[0].RawText)
	assert.Equal(t, "hey there", mentions[0].CleanedText)
	assert.Equal(t, "2", mentions[1].ID)
}

func TestRecentMentionsSinceIDWatermark(t *testing.T) {
	var sinceIDs []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sinceIDs = append(sinceIDs, r.URL.Query().Get("since_id"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]string{
				{"id": "5", "text": "@bot hi", "author_id": "u1", "created_at": "2026-08-28T10:00:00Z"},
			},
			"includes": map[string]interface{}{
				"users": []map[string]string{{"id": "u1", "username": "alice"}},
			},
		})
	}))
	defer ts.Close()

	s := NewSearcher(searchConfig(ts.URL))
	mentions, err := s.RecentMentions(context.Background())
	require.NoError(t, err)

	// Fetching alone never moves the watermark; the caller confirms the
	// consumed mentions once the batch is done.
	_, err = s.RecentMentions(context.Background())
	require.NoError(t, err)

	s.Advance(mentions)
	_, err = s.RecentMentions(context.Background())
	require.NoError(t, err)

	require.Len(t, sinceIDs, 3)
	assert.Equal(t, "", sinceIDs[0], "first poll has no watermark")
	assert.Equal(t, "", sinceIDs[1], "unconfirmed mentions stay below the watermark")
	assert.Equal(t, "5", sinceIDs[2], "confirmed mentions advance the watermark")
}

func TestAdvanceOrdersNumericIDs(t *testing.T) {
	s := NewSearcher(searchConfig("http://unused"))

	s.Advance([]Mention{{ID: "99"}})
	assert.Equal(t, "99", s.sinceID)

	s.Advance([]Mention{{ID: "100"}})
	assert.Equal(t, "100", s.sinceID, "a longer numeric id is the larger one")

	s.Advance([]Mention{{ID: "99"}})
	assert.Equal(t, "100", s.sinceID, "the watermark never moves backwards")
}

func TestRecentMentionsUpstreamError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	s := NewSearcher(searchConfig(ts.URL))
	_, err := s.RecentMentions(context.Background())
	assert.ErrorContains(t, err, "status 500")
}

func TestRecentMentionsEmpty(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	s := NewSearcher(searchConfig(ts.URL))
	mentions, err := s.RecentMentions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, mentions)
}
