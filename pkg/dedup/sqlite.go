package dedup

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

const schema = `
CREATE TABLE IF NOT EXISTS processed_mentions (
    mention_id TEXT PRIMARY KEY,
    actor TEXT NOT NULL,
    snippet TEXT NOT NULL,
    inserted_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_processed_inserted ON processed_mentions(inserted_at);
`

// SQLiteStore is the durable variant of the processed-mention store. Same
// contract as Store, but dedup history survives process restarts. Every
// operation fails open: an internal error degrades to "not processed" / zero
// stats rather than blocking replies, at the cost of a possible duplicate.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open dedup db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("init dedup schema: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Has(id string) bool {
	s.evict()
	var one int
	err := s.db.QueryRow("SELECT 1 FROM processed_mentions WHERE mention_id=?", id).Scan(&one)
	if err == sql.ErrNoRows {
		return false
	}
	if err != nil {
		log.Warn().Err(err).Str("mention_id", id).Msg("dedup lookup failed, assuming not processed")
		return false
	}
	return true
}

// Insert stores a record stamped with the current time. A duplicate id
// overwrites the existing record (last write wins, same as the memory store).
func (s *SQLiteStore) Insert(id, actor, text string) {
	s.evict()
	_, err := s.db.Exec(`
		INSERT INTO processed_mentions (mention_id, actor, snippet, inserted_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(mention_id) DO UPDATE SET
			actor=excluded.actor, snippet=excluded.snippet, inserted_at=excluded.inserted_at`,
		id, actor, truncate(text, snippetMax), s.now().UnixMilli())
	if err != nil {
		log.Warn().Err(err).Str("mention_id", id).Msg("dedup insert failed")
	}
}

func (s *SQLiteStore) Stats() Stats {
	s.evict()
	now := s.now()
	var st Stats
	err := s.db.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN inserted_at > ? THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN inserted_at > ? THEN 1 ELSE 0 END), 0)
		FROM processed_mentions`,
		now.Add(-time.Hour).UnixMilli(),
		now.Add(-Retention).UnixMilli()).
		Scan(&st.Total, &st.LastHour, &st.Last24h)
	if err != nil {
		log.Warn().Err(err).Msg("dedup stats failed, reporting zero")
		return Stats{}
	}
	return st
}

func (s *SQLiteStore) evict() {
	cutoff := s.now().Add(-Retention).UnixMilli()
	if _, err := s.db.Exec("DELETE FROM processed_mentions WHERE inserted_at < ?", cutoff); err != nil {
		log.Warn().Err(err).Msg("dedup eviction failed")
	}
}
