// Package portfolio fetches wallet analytics used to enrich reply generation.
// Enrichment is always optional: the pipeline treats any failure here as
// "no enrichment" and keeps going.
package portfolio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/mentionbot/pkg/config"
)

// Enrichment carries the two analytics datasets for a wallet. It is all or
// nothing; a partial pair is never handed to the reply generator.
type Enrichment struct {
	Portfolio  json.RawMessage
	Strategies json.RawMessage
}

type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func New(cfg *config.Config) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.PortfolioBaseURL, "/"),
		apiKey:  cfg.PortfolioAPIKey,
		client:  &http.Client{Timeout: cfg.RequestTimeout},
	}
}

// Fetch issues the balances and strategies lookups concurrently. The two
// reads are independent, so they share only the context; if either fails the
// whole enrichment is reported failed.
func (c *Client) Fetch(ctx context.Context, address string) (*Enrichment, error) {
	var e Enrichment

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		data, err := c.get(ctx, "/v1/wallets/"+address+"/balances")
		if err != nil {
			return fmt.Errorf("balances: %w", err)
		}
		e.Portfolio = data
		return nil
	})
	g.Go(func() error {
		data, err := c.get(ctx, "/v1/wallets/"+address+"/strategies")
		if err != nil {
			return fmt.Errorf("strategies: %w", err)
		}
		e.Strategies = data
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &e, nil
}

func (c *Client) get(ctx context.Context, path string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
	return json.RawMessage(body), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
