package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"spotfinder_go_backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	SessionsKey      = "debesties_sessions"
	LegacyHistoryKey = "debesties_history"

	SessionTitleMaxRunes = 40
	LegacyTitleRunes     = 30
	titleEllipsis        = "..."
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidColor    = errors.New("invalid session color")
	ErrEmptyTitle      = errors.New("session title is empty")
)

// SessionStore keeps the ordered session collection (newest first) and writes
// the whole collection to the KV slot after every mutation.
type SessionStore struct {
	mu       sync.RWMutex
	kv       KVStore
	sessions []models.ChatSession
	now      func() time.Time
	newID    func() string
}

func NewSessionStore(kv KVStore) *SessionStore {
	return &SessionStore{
		kv:       kv,
		sessions: []models.ChatSession{},
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

// DeriveTitle builds a session title from the first user message.
func DeriveTitle(text string) string {
	runes := []rune(text)
	if len(runes) > SessionTitleMaxRunes {
		return string(runes[:SessionTitleMaxRunes]) + titleEllipsis
	}
	return text
}

func legacyTitle(text string) string {
	runes := []rune(text)
	if len(runes) > LegacyTitleRunes {
		runes = runes[:LegacyTitleRunes]
	}
	return string(runes) + titleEllipsis
}

// Load restores the collection from the KV slot. Sessions under the current
// key always win; otherwise a non-empty legacy history is wrapped into a
// single session. The legacy key is only ever read. Unreadable data leaves an
// empty collection.
func (s *SessionStore) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = []models.ChatSession{}

	raw, ok, err := s.kv.Get(SessionsKey)
	if err != nil {
		log.Error().Err(err).Str("key", SessionsKey).Msg("Failed to load sessions")
		return
	}
	if ok {
		sessions, err := decodeSessions(raw)
		if err != nil {
			log.Error().Err(err).Str("key", SessionsKey).Msg("Failed to load sessions")
			return
		}
		s.sessions = sessions
		return
	}

	legacy, ok, err := s.kv.Get(LegacyHistoryKey)
	if err != nil || !ok {
		if err != nil {
			log.Error().Err(err).Str("key", LegacyHistoryKey).Msg("Failed to read legacy history")
		}
		return
	}

	var messages []models.Message
	if err := json.Unmarshal([]byte(legacy), &messages); err != nil {
		log.Error().Err(err).Str("key", LegacyHistoryKey).Msg("Failed to load sessions")
		return
	}
	if len(messages) == 0 {
		return
	}

	s.sessions = []models.ChatSession{{
		ID:        s.newID(),
		Title:     legacyTitle(messages[0].Text),
		Messages:  messages,
		UpdatedAt: s.now(),
	}}
	log.Info().Int("messages", len(messages)).Msg("Migrated legacy history into a session")

	if err := s.persistLocked(); err != nil {
		log.Error().Err(err).Msg("Failed to persist migrated sessions")
	}
}

func decodeSessions(raw string) ([]models.ChatSession, error) {
	var sessions []models.ChatSession
	if err := json.Unmarshal([]byte(raw), &sessions); err != nil {
		return nil, fmt.Errorf("decode sessions: %w", err)
	}
	for i := range sessions {
		if sessions[i].Messages == nil {
			sessions[i].Messages = []models.Message{}
		}
	}
	if sessions == nil {
		sessions = []models.ChatSession{}
	}
	return sessions, nil
}

// Encode returns the persisted JSON form of the current collection.
func (s *SessionStore) Encode() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return json.Marshal(s.sessions)
}

func (s *SessionStore) persistLocked() error {
	data, err := json.Marshal(s.sessions)
	if err != nil {
		return fmt.Errorf("encode sessions: %w", err)
	}
	if err := s.kv.Set(SessionsKey, string(data)); err != nil {
		return fmt.Errorf("persist sessions: %w", err)
	}
	return nil
}

func (s *SessionStore) indexLocked(id string) int {
	for i := range s.sessions {
		if s.sessions[i].ID == id {
			return i
		}
	}
	return -1
}

// mutate applies fn to the session with the given id, stamps UpdatedAt and
// persists.
func (s *SessionStore) mutate(id string, fn func(*models.ChatSession)) (models.ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx == -1 {
		return models.ChatSession{}, ErrSessionNotFound
	}
	fn(&s.sessions[idx])
	s.sessions[idx].UpdatedAt = s.now()

	updated := s.sessions[idx].Clone()
	return updated, s.persistLocked()
}

// Create adds a new empty session titled after the first message.
func (s *SessionStore) Create(firstMessageText string) (models.ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := models.ChatSession{
		ID:        s.newID(),
		Title:     DeriveTitle(firstMessageText),
		Messages:  []models.Message{},
		UpdatedAt: s.now(),
	}
	s.sessions = append([]models.ChatSession{session}, s.sessions...)

	return session.Clone(), s.persistLocked()
}

func (s *SessionStore) Get(id string) (models.ChatSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexLocked(id)
	if idx == -1 {
		return models.ChatSession{}, false
	}
	return s.sessions[idx].Clone(), true
}

func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// ListByRecency returns copies of all sessions, most recently updated first.
func (s *SessionStore) ListByRecency() []models.ChatSession {
	s.mu.RLock()
	out := make([]models.ChatSession, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, session.Clone())
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

func (s *SessionStore) Rename(id, title string) (models.ChatSession, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return models.ChatSession{}, ErrEmptyTitle
	}
	return s.mutate(id, func(session *models.ChatSession) {
		session.Title = title
	})
}

// SetColor tags the session; an empty color clears the tag.
func (s *SessionStore) SetColor(id string, color models.SessionColor) (models.ChatSession, error) {
	if color != "" && !color.Valid() {
		return models.ChatSession{}, ErrInvalidColor
	}
	return s.mutate(id, func(session *models.ChatSession) {
		session.Color = color
	})
}

func (s *SessionStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx == -1 {
		return ErrSessionNotFound
	}
	s.sessions = append(s.sessions[:idx], s.sessions[idx+1:]...)
	return s.persistLocked()
}

func (s *SessionStore) AppendMessage(sessionID string, message models.Message) (models.ChatSession, error) {
	return s.mutate(sessionID, func(session *models.ChatSession) {
		session.Messages = append(session.Messages, message)
	})
}

func (s *SessionStore) ReplaceMessages(sessionID string, messages []models.Message) (models.ChatSession, error) {
	replacement := append([]models.Message{}, messages...)
	return s.mutate(sessionID, func(session *models.ChatSession) {
		session.Messages = replacement
	})
}
