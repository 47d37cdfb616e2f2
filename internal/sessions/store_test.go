package sessions

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackzampolin/sift/internal/session"
)

func TestStore_CRUD(t *testing.T) {
	s := NewStore(Config{})

	a := session.New(session.Config{ID: "a"})
	b := session.New(session.Config{ID: "b"})
	require.NoError(t, s.Add(a))
	require.NoError(t, s.Add(b))
	assert.Equal(t, 2, s.Count())

	got, err := s.Get("a")
	require.NoError(t, err)
	assert.Same(t, a, got)

	_, err = s.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID())

	require.NoError(t, s.Delete("a"))
	assert.ErrorIs(t, s.Delete("a"), ErrNotFound)
	assert.Equal(t, 1, s.Count())

	s.Flush()
	assert.Equal(t, 0, s.Count())
}

func TestStore_MaxSessions(t *testing.T) {
	s := NewStore(Config{MaxSessions: 1})
	require.NoError(t, s.Add(session.New(session.Config{})))
	assert.ErrorIs(t, s.Add(session.New(session.Config{})), ErrFull)
}

func TestStore_Expiry(t *testing.T) {
	s := NewStore(Config{TTL: 50 * time.Millisecond, CleanupInterval: 10 * time.Millisecond})
	require.NoError(t, s.Add(session.New(session.Config{ID: "idle"})))

	// Count does not touch expiry, so the janitor gets to purge the item.
	assert.Eventually(t, func() bool {
		return s.Count() == 0
	}, time.Second, 10*time.Millisecond)

	_, err := s.Get("idle")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_GetRefreshesExpiry(t *testing.T) {
	s := NewStore(Config{TTL: 150 * time.Millisecond, CleanupInterval: 10 * time.Millisecond})
	require.NoError(t, s.Add(session.New(session.Config{ID: "active"})))

	// Touch the session well past its original TTL.
	deadline := time.Now().Add(400 * time.Millisecond)
	for time.Now().Before(deadline) {
		_, err := s.Get("active")
		require.NoError(t, err)
		time.Sleep(30 * time.Millisecond)
	}
}

func TestStore_GetDoesNotRestoreDeleted(t *testing.T) {
	for i := 0; i < 50; i++ {
		s := NewStore(Config{})
		require.NoError(t, s.Add(session.New(session.Config{ID: "gone"})))

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, _ = s.Get("gone")
			}
		}()
		require.NoError(t, s.Delete("gone"))
		wg.Wait()

		assert.Equal(t, 0, s.Count(), "deleted session came back")
		_, err := s.Get("gone")
		assert.ErrorIs(t, err, ErrNotFound)
	}
}
