// Package pipeline is the per-batch orchestrator: it takes normalized
// mentions from either entry adapter and runs each one through dedup check,
// wallet extraction, optional enrichment, reply generation, and publishing,
// under a wall-clock budget for the whole batch. One mention's failure never
// aborts the batch.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mentionbot/pkg/dedup"
	"github.com/mentionbot/pkg/extractor"
	"github.com/mentionbot/pkg/portfolio"
	"github.com/mentionbot/pkg/retry"
	"github.com/mentionbot/pkg/twitter"
)

// Collaborators are injected as interfaces so each can be replaced in tests.

type DedupStore interface {
	Has(id string) bool
	Insert(id, actor, text string)
	Stats() dedup.Stats
}

type Enricher interface {
	Fetch(ctx context.Context, address string) (*portfolio.Enrichment, error)
}

type Generator interface {
	Generate(ctx context.Context, actor, text, walletAddr string, enrichment *portfolio.Enrichment) (string, error)
}

type Publisher interface {
	Reply(ctx context.Context, inReplyToID, text string) error
}

const (
	StatusSuccess        = "success"
	StatusPartialSuccess = "partial_success"
	StatusError          = "error"
)

// Result is the batch outcome contract returned to the caller.
type Result struct {
	Status         string      `json:"status"`
	ProcessedCount int         `json:"processedCount"`
	Stats          dedup.Stats `json:"stats"`
	ElapsedMillis  int64       `json:"elapsedMillis"`
	Errors         []string    `json:"errors,omitempty"`
	Note           string      `json:"note,omitempty"`

	// Attempted is how many mentions the loop consumed (processed, skipped
	// or failed) before stopping. Mentions past this index were never
	// started and stay eligible for a later run.
	Attempted int `json:"-"`
}

type Pipeline struct {
	store     DedupStore
	enricher  Enricher
	generator Generator
	publisher Publisher

	retryPolicy   retry.Policy
	batchBudget   time.Duration
	callTimeout   time.Duration
	enrichTimeout time.Duration
}

type Options struct {
	RetryPolicy   retry.Policy
	BatchBudget   time.Duration
	CallTimeout   time.Duration
	EnrichTimeout time.Duration
}

func New(store DedupStore, enricher Enricher, generator Generator, publisher Publisher, opts Options) *Pipeline {
	if opts.BatchBudget <= 0 {
		opts.BatchBudget = 25 * time.Second
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 10 * time.Second
	}
	if opts.EnrichTimeout <= 0 {
		opts.EnrichTimeout = 8 * time.Second
	}
	if opts.RetryPolicy.Attempts == 0 {
		opts.RetryPolicy = retry.DefaultPolicy(3)
	}
	return &Pipeline{
		store:         store,
		enricher:      enricher,
		generator:     generator,
		publisher:     publisher,
		retryPolicy:   opts.RetryPolicy,
		batchBudget:   opts.BatchBudget,
		callTimeout:   opts.CallTimeout,
		enrichTimeout: opts.EnrichTimeout,
	}
}

// Run processes one batch of mentions strictly in the order received. The
// budget is checked once per mention, before starting it: a mention that is
// already in flight when the budget runs out is allowed to finish, and the
// untried remainder is simply left for the next run (not marked failed).
func (p *Pipeline) Run(ctx context.Context, mentions []twitter.Mention) Result {
	start := time.Now()
	var processed int
	var errs []string
	note := ""
	attempted := len(mentions)

	for i, m := range mentions {
		if time.Since(start) > p.batchBudget {
			note = "stopped early: batch budget exceeded"
			attempted = i
			log.Warn().Dur("elapsed", time.Since(start)).Int("untried", len(mentions)-i).Msg("⏱️ batch budget exceeded")
			break
		}

		if p.store.Has(m.ID) {
			log.Debug().Str("mention_id", m.ID).Msg("already processed, skipping")
			continue
		}

		if err := p.processOne(ctx, m); err != nil {
			log.Error().Err(err).Str("mention_id", m.ID).Str("actor", m.Actor).Msg("mention processing failed")
			errs = append(errs, fmt.Sprintf("%s: %v", m.ID, err))
			continue
		}
		processed++
	}

	status := StatusSuccess
	if len(errs) > 0 {
		status = StatusPartialSuccess
	}

	return Result{
		Status:         status,
		ProcessedCount: processed,
		Stats:          p.store.Stats(),
		ElapsedMillis:  time.Since(start).Milliseconds(),
		Errors:         errs,
		Note:           note,
		Attempted:      attempted,
	}
}

func (p *Pipeline) processOne(ctx context.Context, m twitter.Mention) error {
	addr := extractor.WalletAddress(m.RawText)

	// Enrichment is an optional enhancement, never a blocking dependency:
	// a failure here downgrades to "no enrichment" and the mention goes on.
	var enrichment *portfolio.Enrichment
	if addr != "" && p.enricher != nil {
		ectx, cancel := context.WithTimeout(ctx, p.enrichTimeout)
		e, err := p.enricher.Fetch(ectx, addr)
		cancel()
		if err != nil {
			log.Warn().Err(err).Str("wallet", addr).Msg("enrichment failed, continuing without it")
		} else {
			enrichment = e
		}
	}

	text, err := retry.Do(ctx, p.retryPolicy, "generate", func(ctx context.Context) (string, error) {
		cctx, cancel := context.WithTimeout(ctx, p.callTimeout)
		defer cancel()
		return p.generator.Generate(cctx, m.Actor, m.CleanedText, addr, enrichment)
	})
	if err != nil {
		return fmt.Errorf("generate reply: %w", err)
	}

	// Publishing is not idempotent. The retry policy only fires on a definite
	// 429 rejection, where we know nothing was posted; ambiguous transport
	// failures propagate without retry rather than risk a duplicate reply.
	err = retry.DoFunc(ctx, p.retryPolicy, "publish", func(ctx context.Context) error {
		cctx, cancel := context.WithTimeout(ctx, p.callTimeout)
		defer cancel()
		return p.publisher.Reply(cctx, m.ID, text)
	})
	if err != nil {
		return fmt.Errorf("publish reply: %w", err)
	}

	p.store.Insert(m.ID, m.Actor, m.RawText)
	log.Info().Str("mention_id", m.ID).Str("actor", m.Actor).Bool("enriched", enrichment != nil).Msg("✅ reply posted")
	return nil
}
