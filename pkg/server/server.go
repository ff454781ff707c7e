// Package server hosts the two entry points: the account-activity webhook
// (push) and the manual/scheduled poll trigger (pull). Both normalize events
// into mentions and hand them to the same pipeline.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/mentionbot/pkg/config"
	"github.com/mentionbot/pkg/pipeline"
	"github.com/mentionbot/pkg/twitter"
	"github.com/mentionbot/pkg/webhook"
)

type Server struct {
	cfg      *config.Config
	pipe     *pipeline.Pipeline
	searcher *twitter.Searcher
	store    pipeline.DedupStore
}

func New(cfg *config.Config, pipe *pipeline.Pipeline, searcher *twitter.Searcher, store pipeline.DedupStore) *Server {
	return &Server{cfg: cfg, pipe: pipe, searcher: searcher, store: store}
}

func (s *Server) Run() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/webhook", s.handleWebhook)
	mux.HandleFunc("/run", s.handleRun)
	mux.HandleFunc("/api/stats", s.handleStats)

	addr := fmt.Sprintf(":%d", s.cfg.ListenPort)
	log.Info().Str("addr", addr).Msg("🌐 server started")
	return http.ListenAndServe(addr, mux)
}

// handleWebhook answers the CRC handshake on GET and accepts event
// deliveries on POST. Deliveries are always acknowledged with 200 whatever
// the processing outcome; a non-2xx would make the platform retry the whole
// delivery and storm us with duplicates.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		token := r.URL.Query().Get("crc_token")
		if token == "" {
			http.Error(w, "missing crc_token", http.StatusBadRequest)
			return
		}
		writeJSON(w, map[string]string{
			"response_token": webhook.CRCResponse(s.cfg.TwitterWebhookSecret, token),
		})

	case http.MethodPost:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusOK)
			return
		}

		mentions, err := webhook.ParseMentions(body, s.cfg.BotHandle)
		if err != nil {
			log.Warn().Err(err).Msg("webhook payload parse failed")
			w.WriteHeader(http.StatusOK)
			return
		}

		if len(mentions) > 0 {
			res := s.pipe.Run(r.Context(), mentions)
			log.Info().Str("status", res.Status).Int("processed", res.ProcessedCount).Msg("webhook batch done")
		}
		w.WriteHeader(http.StatusOK)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleRun triggers one poll batch. Unlike the webhook path, the caller
// gets the real structured outcome back.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	res := s.RunBatch(r.Context())
	writeJSON(w, res)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.store.Stats())
}

// RunBatch searches for new mentions and runs them through the pipeline.
// A search failure is a setup/transport-level error: no mention was touched,
// so the whole result is marked error rather than partial. The search
// watermark only advances over mentions the batch actually consumed, so
// anything left untried by the batch budget is fetched again next poll.
func (s *Server) RunBatch(ctx context.Context) pipeline.Result {
	mentions, err := s.searcher.RecentMentions(ctx)
	if err != nil {
		log.Error().Err(err).Msg("mention search failed")
		return pipeline.Result{
			Status: pipeline.StatusError,
			Stats:  s.store.Stats(),
			Errors: []string{err.Error()},
		}
	}
	res := s.pipe.Run(ctx, mentions)
	s.searcher.Advance(mentions[:res.Attempted])
	return res
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}
