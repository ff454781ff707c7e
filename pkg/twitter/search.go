package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mentionbot/pkg/config"
)

// Searcher finds recent mentions of the bot via the v2 recent-search API.
// It keeps a since_id watermark so successive polls only see new mentions;
// the watermark advances through Advance once the caller knows which
// mentions a batch consumed. The dedup store remains the real duplicate
// guard (the watermark is lost on restart and webhook deliveries bypass it
// entirely).
type Searcher struct {
	baseURL     string
	bearerToken string
	botHandle   string
	pageSize    int
	client      *http.Client

	mu      sync.Mutex
	sinceID string
}

func NewSearcher(cfg *config.Config) *Searcher {
	return &Searcher{
		baseURL:     strings.TrimRight(cfg.TwitterBaseURL, "/"),
		bearerToken: cfg.TwitterBearerToken,
		botHandle:   cfg.BotHandle,
		pageSize:    cfg.SearchPageSize,
		client:      &http.Client{Timeout: cfg.RequestTimeout},
	}
}

// RecentMentions returns new mentions of the bot, oldest first.
func (s *Searcher) RecentMentions(ctx context.Context) ([]Mention, error) {
	q := url.Values{
		"query":        {fmt.Sprintf("@%s -is:retweet", s.botHandle)},
		"max_results":  {strconv.Itoa(s.pageSize)},
		"tweet.fields": {"author_id,created_at"},
		"expansions":   {"author_id"},
		"user.fields":  {"username"},
	}
	s.mu.Lock()
	if s.sinceID != "" {
		q.Set("since_id", s.sinceID)
	}
	s.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		s.baseURL+"/2/tweets/search/recent?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.bearerToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mention search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mention search status %d", resp.StatusCode)
	}

	var payload struct {
		Data []struct {
			ID        string `json:"id"`
			Text      string `json:"text"`
			AuthorID  string `json:"author_id"`
			CreatedAt string `json:"created_at"`
		} `json:"data"`
		Includes struct {
			Users []struct {
				ID       string `json:"id"`
				Username string `json:"username"`
			} `json:"users"`
		} `json:"includes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("mention search decode: %w", err)
	}

	usernames := make(map[string]string, len(payload.Includes.Users))
	for _, u := range payload.Includes.Users {
		usernames[u.ID] = u.Username
	}

	var mentions []Mention
	for _, t := range payload.Data {
		actor := usernames[t.AuthorID]
		if actor == "" || strings.EqualFold(actor, s.botHandle) {
			continue // unknown author or our own post
		}
		ts, _ := time.Parse(time.RFC3339, t.CreatedAt)
		mentions = append(mentions, Mention{
			ID:          t.ID,
			Actor:       actor,
			RawText:     t.Text,
			CleanedText: CleanText(t.Text, s.botHandle),
			CreatedAt:   ts,
		})
	}

	sort.Slice(mentions, func(i, j int) bool { return mentions[i].CreatedAt.Before(mentions[j].CreatedAt) })
	if len(mentions) > 0 {
		log.Info().Int("count", len(mentions)).Msg("📱 new mentions found")
	}
	return mentions, nil
}

// Advance moves the since_id watermark past the given mentions. The caller
// invokes it after a batch with only the mentions the pipeline actually
// consumed; anything left untried when the batch budget ran out stays below
// the watermark and comes back on the next poll.
func (s *Searcher) Advance(mentions []Mention) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range mentions {
		if idLess(s.sinceID, m.ID) {
			s.sinceID = m.ID
		}
	}
}

// idLess orders numeric string IDs: a shorter ID is always smaller, equal
// lengths compare lexicographically. Plain string compare would put "99"
// above "100".
func idLess(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}
