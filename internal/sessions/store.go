// Package sessions keeps live sessions in memory with idle expiry.
package sessions

import (
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/jackzampolin/sift/internal/session"
)

// Defaults match the config defaults.
const (
	DefaultTTL             = time.Hour
	DefaultCleanupInterval = 10 * time.Minute
)

var (
	ErrNotFound = errors.New("session not found")
	ErrFull     = errors.New("too many active sessions")
)

// Config configures a Store.
type Config struct {
	TTL             time.Duration // idle time before a session expires
	CleanupInterval time.Duration // how often expired sessions are purged
	MaxSessions     int           // 0 means unlimited
	Logger          *slog.Logger
}

// Store holds sessions keyed by ID. Each Get counts as activity and
// pushes the session's expiry out by TTL.
type Store struct {
	cache       *cache.Cache
	maxSessions int
	logger      *slog.Logger
}

// NewStore creates a session store.
func NewStore(cfg Config) *Store {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultCleanupInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Store{
		cache:       cache.New(cfg.TTL, cfg.CleanupInterval),
		maxSessions: cfg.MaxSessions,
		logger:      cfg.Logger,
	}
	s.cache.OnEvicted(func(id string, _ any) {
		s.logger.Debug("session evicted", "session_id", id)
	})
	return s
}

// Add stores a session.
func (s *Store) Add(sess *session.Session) error {
	if s.maxSessions > 0 && s.cache.ItemCount() >= s.maxSessions {
		return ErrFull
	}
	s.cache.Set(sess.ID(), sess, cache.DefaultExpiration)
	s.logger.Debug("session created", "session_id", sess.ID())
	return nil
}

// Get returns the session and refreshes its expiry.
func (s *Store) Get(id string) (*session.Session, error) {
	x, found := s.cache.Get(id)
	if !found {
		return nil, ErrNotFound
	}
	sess := x.(*session.Session)
	// Replace fails if a Delete or expiry removed the item since Get.
	if err := s.cache.Replace(id, sess, cache.DefaultExpiration); err != nil {
		return nil, ErrNotFound
	}
	return sess, nil
}

// Delete removes a session.
func (s *Store) Delete(id string) error {
	if _, found := s.cache.Get(id); !found {
		return ErrNotFound
	}
	s.cache.Delete(id)
	return nil
}

// List returns live sessions, oldest first. It does not refresh expiry.
func (s *Store) List() []*session.Session {
	items := s.cache.Items()
	out := make([]*session.Session, 0, len(items))
	for _, item := range items {
		out = append(out, item.Object.(*session.Session))
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Summary(), out[j].Summary()
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID < b.ID
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return out
}

// Count returns the number of stored sessions, including expired ones not
// yet purged.
func (s *Store) Count() int {
	return s.cache.ItemCount()
}

// Flush removes every session.
func (s *Store) Flush() {
	s.cache.Flush()
}
