// Package reply builds the mention-reply prompt and calls a hosted LLM
// (Anthropic or OpenAI, auto-detected from configured keys). Whatever the
// model returns, the final reply always names the original actor and always
// fits the platform's 280-character ceiling.
package reply

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/mentionbot/pkg/config"
	"github.com/mentionbot/pkg/portfolio"
	"github.com/mentionbot/pkg/retry"
)

const (
	maxReplyLen = 280

	// Used when the model returns nothing usable; finalize prepends the
	// actor's handle so even the apology addresses them.
	fallbackReply = "sorry, I couldn't come up with a good reply this time. Try me again in a bit!"
)

type Generator struct {
	provider  string // "anthropic" or "openai"
	apiKey    string
	model     string
	baseURL   string
	maxTokens int
	client    *http.Client
}

func NewGenerator(cfg *config.Config) *Generator {
	g := &Generator{
		maxTokens: cfg.AIMaxTokens,
		client:    &http.Client{Timeout: cfg.RequestTimeout},
	}

	switch {
	case cfg.AnthropicAPIKey != "":
		g.provider = "anthropic"
		g.apiKey = cfg.AnthropicAPIKey
		g.model = modelOr(cfg.AIModel, "claude-sonnet-4-20250514")
		g.baseURL = urlOr(cfg.LLMBaseURL, "https://api.anthropic.com") + "/v1/messages"
	case cfg.OpenAIAPIKey != "":
		g.provider = "openai"
		g.apiKey = cfg.OpenAIAPIKey
		g.model = modelOr(cfg.AIModel, "gpt-4o")
		g.baseURL = urlOr(cfg.LLMBaseURL, "https://api.openai.com") + "/v1/chat/completions"
	}

	if g.provider != "" {
		log.Info().Str("provider", g.provider).Str("model", g.model).Msg("🤖 reply generator initialized")
	}
	return g
}

// Generate produces the reply text for one mention. walletAddr and enrichment
// may be empty/nil. The LLM call's error propagates unchanged so the caller's
// retry wrapper can classify it; rate limiting surfaces as retry.RateLimitError.
func (g *Generator) Generate(ctx context.Context, actor, text, walletAddr string, enrichment *portfolio.Enrichment) (string, error) {
	prompt := buildPrompt(actor, text, walletAddr, enrichment)

	out, err := g.call(ctx, prompt)
	if err != nil {
		return "", err
	}
	return finalize(actor, out), nil
}

func buildPrompt(actor, text, walletAddr string, enrichment *portfolio.Enrichment) string {
	var b strings.Builder

	fmt.Fprintf(&b, `You are a friendly crypto portfolio assistant replying to a mention on social media.

RULES:
- Reply in at most 280 characters. Shorter is better.
- No hashtags and no @-mentions of third parties unless the user explicitly asked for them.
- Be specific and helpful, never generic filler.

USER: @%s
MESSAGE: %s
`, actor, text)

	if walletAddr != "" {
		fmt.Fprintf(&b, "\nWALLET: %s\n", walletAddr)
	}

	if enrichment != nil {
		fmt.Fprintf(&b, `
PORTFOLIO DATA (balances):
%s

STRATEGY POSITIONS:
%s

Use this data to include one concrete, portfolio-aware insight in the reply.
`, clip(string(enrichment.Portfolio), 1500), clip(string(enrichment.Strategies), 1500))
	}

	b.WriteString("\nReturn ONLY the reply text, no quotes, no preamble.")
	return b.String()
}

// finalize enforces the reply guarantees: non-empty, addresses the actor,
// hard ceiling of 280 characters.
func finalize(actor, out string) string {
	out = strings.TrimSpace(strings.Trim(strings.TrimSpace(out), `"`))
	if out == "" {
		out = fallbackReply
	}

	handle := "@" + actor
	if !strings.Contains(strings.ToLower(out), strings.ToLower(handle)) {
		out = handle + " " + out
	}

	if r := []rune(out); len(r) > maxReplyLen {
		out = string(r[:maxReplyLen])
	}
	return out
}

func (g *Generator) call(ctx context.Context, prompt string) (string, error) {
	switch g.provider {
	case "anthropic":
		return g.callAnthropic(ctx, prompt)
	case "openai":
		return g.callOpenAI(ctx, prompt)
	default:
		return "", fmt.Errorf("no AI provider configured")
	}
}

func (g *Generator) callAnthropic(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]interface{}{
		"model":      g.model,
		"max_tokens": g.maxTokens,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}

	body, _ := json.Marshal(reqBody)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", g.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusTooManyRequests {
		return "", &retry.RateLimitError{Op: "anthropic"}
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("anthropic API error %d: %s", resp.StatusCode, clip(string(respBody), 300))
	}

	var result struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	json.Unmarshal(respBody, &result)

	if len(result.Content) > 0 {
		return result.Content[0].Text, nil
	}
	return "", nil
}

func (g *Generator) callOpenAI(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]interface{}{
		"model": g.model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"max_tokens": g.maxTokens,
	}

	body, _ := json.Marshal(reqBody)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusTooManyRequests {
		return "", &retry.RateLimitError{Op: "openai"}
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openai API error %d: %s", resp.StatusCode, clip(string(respBody), 300))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	json.Unmarshal(respBody, &result)

	if len(result.Choices) > 0 {
		return result.Choices[0].Message.Content, nil
	}
	return "", nil
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func modelOr(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

func urlOr(v, fallback string) string {
	if v != "" {
		return strings.TrimRight(v, "/")
	}
	return fallback
}
