// Package publish posts the generated reply back to the platform as a
// threaded response. Posting is a non-idempotent side effect: a reply that
// went out cannot be taken back, so callers must never blindly retry an
// ambiguous transport failure (see the pipeline's retry classification).
package publish

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/dghubble/oauth1"

	"github.com/mentionbot/pkg/config"
	"github.com/mentionbot/pkg/retry"
)

type Publisher struct {
	baseURL string
	client  *http.Client // OAuth 1.0a signing transport
}

func New(cfg *config.Config) *Publisher {
	oauthCfg := oauth1.NewConfig(cfg.TwitterConsumerKey, cfg.TwitterConsumerSecret)
	token := oauth1.NewToken(cfg.TwitterAccessToken, cfg.TwitterAccessSecret)

	client := oauthCfg.Client(oauth1.NoContext, token)
	client.Timeout = cfg.RequestTimeout

	return &Publisher{
		baseURL: strings.TrimRight(cfg.TwitterBaseURL, "/"),
		client:  client,
	}
}

// Reply posts text as a threaded reply to the given mention. A 429 response
// surfaces as retry.RateLimitError: the platform definitely rejected the
// post, so retrying cannot duplicate it. Any other failure carries the
// upstream status and body for diagnosis.
func (p *Publisher) Reply(ctx context.Context, inReplyToID, text string) error {
	form := url.Values{
		"status":                       {text},
		"in_reply_to_status_id":        {inReplyToID},
		"auto_populate_reply_metadata": {"true"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/1.1/statuses/update.json", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("publish reply: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return &retry.RateLimitError{Op: "publish"}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("publish status %d: %s", resp.StatusCode, clip(string(body), 300))
	}
	return nil
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
