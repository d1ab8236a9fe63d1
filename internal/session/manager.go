package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/skillproof/proctor-backend/internal/blobstore"
	"github.com/skillproof/proctor-backend/internal/config"
	"github.com/skillproof/proctor-backend/internal/model"
	"github.com/skillproof/proctor-backend/internal/submission"
)

var ErrSessionNotFound = errors.New("session not found")

// Manager owns the live session registry. At most one live session exists
// per (user, test) pair; a second create for the same pair rejoins the
// existing session instead of spawning a duplicate attempt.
type Manager struct {
	cfg      *config.Config
	rdb      *redis.Client
	protocol *submission.Protocol
	blobs    blobstore.Store
	log      zerolog.Logger

	mu     sync.RWMutex
	byID   map[uuid.UUID]*Session
	byPair map[string]*Session
}

func NewManager(cfg *config.Config, rdb *redis.Client, protocol *submission.Protocol, blobs blobstore.Store, log zerolog.Logger) *Manager {
	return &Manager{
		cfg:      cfg,
		rdb:      rdb,
		protocol: protocol,
		blobs:    blobs,
		log:      log.With().Str("component", "session-manager").Logger(),
		byID:     make(map[uuid.UUID]*Session),
		byPair:   make(map[string]*Session),
	}
}

func pairKey(userID, testID string) string {
	return userID + "|" + testID
}

// Create registers a fresh session for the pair, restoring any autosaved
// answers left by a previous attempt that died before finishing setup.
// When a live session already exists for the pair it is returned as-is, so
// a reload rejoins rather than restarts.
func (m *Manager) Create(ctx context.Context, userID string, def *model.TestDefinition) (*Session, bool, error) {
	key := pairKey(userID, def.ID)

	m.mu.Lock()
	if existing, ok := m.byPair[key]; ok {
		m.mu.Unlock()
		return existing, true, nil
	}
	m.mu.Unlock()

	restored, err := m.restoreAnswers(ctx, userID, def)
	if err != nil {
		m.log.Warn().Err(err).Str("test_id", def.ID).Msg("answer restore failed, starting clean")
		restored = nil
	}

	s := newSession(m, userID, def, restored)

	m.mu.Lock()
	defer m.mu.Unlock()
	// Re-check under the lock; a concurrent create may have won.
	if existing, ok := m.byPair[key]; ok {
		return existing, true, nil
	}
	m.byID[s.ID] = s
	m.byPair[key] = s

	if err := m.rdb.Set(ctx, config.CacheKey.UserActiveTestKey(userID, def.ID), s.ID.String(), 0).Err(); err != nil {
		m.log.Warn().Err(err).Msg("failed to record active test")
	}

	m.log.Info().
		Str("session_id", s.ID.String()).
		Str("test_id", def.ID).
		Str("user_id", userID).
		Msg("session created")
	return s, false, nil
}

func (m *Manager) restoreAnswers(ctx context.Context, userID string, def *model.TestDefinition) (map[string]model.Answer, error) {
	raw, err := m.rdb.HGetAll(ctx, config.CacheKey.SessionAnswersKey(def.ID, userID)).Result()
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}

	restored := make(map[string]model.Answer, len(raw))
	for qid, payload := range raw {
		if def.QuestionByID(qid) == nil {
			continue
		}
		var ans model.Answer
		if err := json.Unmarshal([]byte(payload), &ans); err != nil {
			continue
		}
		restored[qid] = ans
	}
	return restored, nil
}

// Get looks up a live session by ID.
func (m *Manager) Get(id uuid.UUID) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.byID[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// remove drops a finished session from both indexes.
func (m *Manager) remove(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, s.ID)
	key := pairKey(s.UserID, s.Def.ID)
	if m.byPair[key] == s {
		delete(m.byPair, key)
	}
}

// snapshot returns the live sessions for the reaper pass.
func (m *Manager) snapshot() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Session, 0, len(m.byID))
	for _, s := range m.byID {
		out = append(out, s)
	}
	return out
}

// RunReaper drives per-second ticks over every live session: countdown
// expiry, setup timeouts, and abandonment all run off this loop.
func (m *Manager) RunReaper(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	m.log.Info().Msg("session reaper started")
	for {
		select {
		case <-ctx.Done():
			m.log.Info().Msg("session reaper stopped")
			return
		case now := <-ticker.C:
			for _, s := range m.snapshot() {
				s.tick(now)
			}
		}
	}
}
