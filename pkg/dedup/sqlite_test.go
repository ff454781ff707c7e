package dedup

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T, at time.Time) (*SQLiteStore, *time.Time) {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "dedup.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	now := at
	s.now = func() time.Time { return now }
	return s, &now
}

func TestSQLiteStoreInsertAndHas(t *testing.T) {
	s, _ := newTestSQLiteStore(t, time.Now())

	assert.False(t, s.Has("T1"))
	s.Insert("T1", "alice", "@bot hey there")
	assert.True(t, s.Has("T1"))

	// Duplicate insert overwrites, does not duplicate.
	s.Insert("T1", "alice", "again")
	assert.Equal(t, 1, s.Stats().Total)
}

func TestSQLiteStoreEviction(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s, now := newTestSQLiteStore(t, base)

	s.Insert("T1", "alice", "hello")

	*now = base.Add(23*time.Hour + 59*time.Minute)
	assert.True(t, s.Has("T1"))

	*now = base.Add(24*time.Hour + time.Minute)
	assert.False(t, s.Has("T1"))
	assert.Equal(t, Stats{}, s.Stats())
}

func TestSQLiteStoreStats(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s, now := newTestSQLiteStore(t, base)

	s.Insert("a", "alice", "x")
	*now = base.Add(2 * time.Hour)
	s.Insert("b", "bob", "y")

	*now = base.Add(2*time.Hour + 30*time.Minute)
	st := s.Stats()
	assert.Equal(t, 2, st.Total)
	assert.Equal(t, 1, st.LastHour)
	assert.Equal(t, 2, st.Last24h)
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dedup.db")

	s1, err := NewSQLiteStore(path)
	require.NoError(t, err)
	s1.Insert("T1", "alice", "hello")
	require.NoError(t, s1.Close())

	s2, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer s2.Close()
	assert.True(t, s2.Has("T1"))
}
