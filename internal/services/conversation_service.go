package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"spotfinder_go_backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const ConversationTopic = "conversation"

type EventType string

const (
	EventSessionUpdated EventType = "session_updated"
	EventSessionDeleted EventType = "session_deleted"
	EventStateUpdated   EventType = "state_updated"
)

// ConversationEvent is published to ConversationTopic after every change.
type ConversationEvent struct {
	Type      EventType           `json:"type"`
	SessionID string              `json:"sessionId,omitempty"`
	Session   *models.ChatSession `json:"session,omitempty"`
	State     *models.AppState    `json:"state,omitempty"`
}

type noopPublisher struct{}

func (noopPublisher) Publish(string, interface{}) {}

// ConversationService owns the app state and runs turns against the session
// store. Only one model call is outstanding at a time; a second submission
// while one is in flight is rejected with ErrBusy.
type ConversationService struct {
	mu      sync.Mutex
	store   *SessionStore
	gateway ModelGateway
	codec   ResponseCodec
	events  EventPublisher
	state   models.AppState
	now     func() time.Time
	newID   func() string
}

func NewConversationService(store *SessionStore, gateway ModelGateway, codec ResponseCodec, events EventPublisher, lang models.Language) *ConversationService {
	if events == nil {
		events = noopPublisher{}
	}
	if !lang.Valid() {
		lang = models.LanguageEnglish
	}
	return &ConversationService{
		store:   store,
		gateway: gateway,
		codec:   codec,
		events:  events,
		state:   models.AppState{Language: lang},
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
	}
}

func (c *ConversationService) Store() *SessionStore {
	return c.store
}

// State returns a snapshot of the process-wide state.
func (c *ConversationService) State() models.AppState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *ConversationService) snapshotLocked() models.AppState {
	st := c.state
	if st.ActiveSessionID != nil {
		id := *st.ActiveSessionID
		st.ActiveSessionID = &id
	}
	if st.Location != nil {
		loc := *st.Location
		st.Location = &loc
	}
	return st
}

func (c *ConversationService) publishSession(session models.ChatSession) {
	c.events.Publish(ConversationTopic, ConversationEvent{
		Type:      EventSessionUpdated,
		SessionID: session.ID,
		Session:   &session,
	})
}

func (c *ConversationService) publishState(state models.AppState) {
	c.events.Publish(ConversationTopic, ConversationEvent{Type: EventStateUpdated, State: &state})
}

func (c *ConversationService) requestOptionsLocked() RequestOptions {
	opts := RequestOptions{UseThinking: c.state.DeepThink}
	if c.state.Location != nil {
		loc := *c.state.Location
		opts.Location = &loc
	}
	return opts
}

// Submit appends the query to the active session (creating one when none is
// active), calls the model and appends the answer or an error message.
func (c *ConversationService) Submit(ctx context.Context, query string) (models.ChatSession, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return models.ChatSession{}, ErrEmptyQuery
	}

	c.mu.Lock()
	// Suggestion clicks arrive here too and are rejected like any other query.
	if c.state.InFlight {
		c.mu.Unlock()
		return models.ChatSession{}, ErrBusy
	}

	var session models.ChatSession
	found := false
	if c.state.ActiveSessionID != nil {
		session, found = c.store.Get(*c.state.ActiveSessionID)
	}
	if !found {
		created, err := c.store.Create(query)
		if err != nil {
			log.Error().Err(err).Str("sessionID", created.ID).Msg("Failed to persist new session")
		}
		session = created
	}

	userMsg := models.Message{
		ID:        c.newID(),
		Role:      models.RoleUser,
		Text:      query,
		Timestamp: c.now(),
	}
	history := HistoryWindow(session.Messages)
	session, err := c.store.AppendMessage(session.ID, userMsg)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			c.mu.Unlock()
			return models.ChatSession{}, err
		}
		log.Error().Err(err).Str("sessionID", session.ID).Msg("Failed to persist user message")
	}

	plan := turnPlan{sessionID: session.ID, query: query, history: history}
	id := session.ID
	c.state.ActiveSessionID = &id
	c.state.QueryParam = query

	return c.runLocked(ctx, plan, session)
}

// Regenerate replaces a model message with a fresh answer to the user message
// right before it. Targets that are not model messages preceded by a user
// message are rejected without touching the session.
func (c *ConversationService) Regenerate(ctx context.Context, messageID string) (models.ChatSession, error) {
	c.mu.Lock()
	session, err := c.activeSessionLocked()
	if err != nil {
		c.mu.Unlock()
		return models.ChatSession{}, err
	}

	plan, err := planRegenerate(session, messageID)
	if err != nil {
		c.mu.Unlock()
		return models.ChatSession{}, err
	}
	return c.truncateAndRunLocked(ctx, plan)
}

// EditAndResubmit rewrites a user message, drops everything after it and asks
// the model again.
func (c *ConversationService) EditAndResubmit(ctx context.Context, messageID, newText string) (models.ChatSession, error) {
	newText = strings.TrimSpace(newText)
	if newText == "" {
		return models.ChatSession{}, ErrEmptyQuery
	}

	c.mu.Lock()
	session, err := c.activeSessionLocked()
	if err != nil {
		c.mu.Unlock()
		return models.ChatSession{}, err
	}

	plan, err := planEdit(session, messageID, newText, c.now())
	if err != nil {
		c.mu.Unlock()
		return models.ChatSession{}, err
	}
	return c.truncateAndRunLocked(ctx, plan)
}

func (c *ConversationService) activeSessionLocked() (models.ChatSession, error) {
	if c.state.InFlight {
		return models.ChatSession{}, ErrBusy
	}
	if c.state.ActiveSessionID == nil {
		return models.ChatSession{}, ErrNoActiveSession
	}
	session, ok := c.store.Get(*c.state.ActiveSessionID)
	if !ok {
		return models.ChatSession{}, ErrSessionNotFound
	}
	return session, nil
}

func (c *ConversationService) truncateAndRunLocked(ctx context.Context, plan turnPlan) (models.ChatSession, error) {
	session, err := c.store.ReplaceMessages(plan.sessionID, plan.base)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			c.mu.Unlock()
			return models.ChatSession{}, err
		}
		log.Error().Err(err).Str("sessionID", plan.sessionID).Msg("Failed to persist truncated session")
	}
	return c.runLocked(ctx, plan, session)
}

// runLocked is entered holding c.mu with phase one applied to the store. It
// marks the turn in flight, releases the lock for the model call and applies
// phase two when the call settles.
func (c *ConversationService) runLocked(ctx context.Context, plan turnPlan, provisional models.ChatSession) (models.ChatSession, error) {
	c.state.InFlight = true
	lang := c.state.Language
	opts := c.requestOptionsLocked()
	state := c.snapshotLocked()
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.state.InFlight = false
		state := c.snapshotLocked()
		c.mu.Unlock()
		c.publishState(state)
	}()

	c.publishSession(provisional)
	c.publishState(state)

	req := BuildRequest(plan.query, plan.history, lang, opts)
	outcome := c.call(context.WithoutCancel(ctx), req)

	c.mu.Lock()
	msg := outcome.message(c.newID(), lang, opts.UseThinking, c.now())
	var (
		session models.ChatSession
		err     error
	)
	if plan.base != nil {
		session, err = c.store.ReplaceMessages(plan.sessionID, append(plan.base, msg))
	} else {
		session, err = c.store.AppendMessage(plan.sessionID, msg)
	}
	c.mu.Unlock()

	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			log.Warn().Str("sessionID", plan.sessionID).Msg("Session deleted before the response arrived; dropping it")
			return models.ChatSession{}, err
		}
		log.Error().Err(err).Str("sessionID", plan.sessionID).Msg("Failed to persist model message")
	}

	c.publishSession(session)
	return session, nil
}

func (c *ConversationService) call(ctx context.Context, req *GenerationRequest) TurnOutcome {
	result, err := c.gateway.Generate(ctx, req)
	if err != nil {
		log.Error().Err(err).Msg("Search request failed")
		return TurnOutcome{Err: err}
	}
	return TurnOutcome{
		Parsed:    c.codec.Parse(result.Text),
		Grounding: result.GroundingMetadata,
	}
}

// DeepLink submits q when the app has no sessions yet and nothing is in
// flight. It reports whether a submission happened.
func (c *ConversationService) DeepLink(ctx context.Context, q string) (models.ChatSession, bool, error) {
	q = strings.TrimSpace(q)
	c.mu.Lock()
	eligible := q != "" && c.state.ActiveSessionID == nil && !c.state.InFlight && c.store.Len() == 0
	c.mu.Unlock()
	if !eligible {
		return models.ChatSession{}, false, nil
	}

	session, err := c.Submit(ctx, q)
	if err != nil {
		return models.ChatSession{}, false, err
	}
	return session, true, nil
}

// NewChat clears the active session so the next submission starts a new one.
func (c *ConversationService) NewChat() models.AppState {
	c.mu.Lock()
	c.state.ActiveSessionID = nil
	c.state.QueryParam = ""
	state := c.snapshotLocked()
	c.mu.Unlock()

	c.publishState(state)
	return state
}

func (c *ConversationService) SelectSession(id string) (models.ChatSession, error) {
	session, ok := c.store.Get(id)
	if !ok {
		return models.ChatSession{}, ErrSessionNotFound
	}

	c.mu.Lock()
	c.state.ActiveSessionID = &id
	state := c.snapshotLocked()
	c.mu.Unlock()

	c.publishState(state)
	return session, nil
}

func (c *ConversationService) ListSessions() []models.ChatSession {
	return c.store.ListByRecency()
}

func (c *ConversationService) GetSession(id string) (models.ChatSession, error) {
	session, ok := c.store.Get(id)
	if !ok {
		return models.ChatSession{}, ErrSessionNotFound
	}
	return session, nil
}

func (c *ConversationService) RenameSession(id, title string) (models.ChatSession, error) {
	session, err := c.store.Rename(id, title)
	if err != nil && (errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrEmptyTitle)) {
		return models.ChatSession{}, err
	}
	if err != nil {
		log.Error().Err(err).Str("sessionID", id).Msg("Failed to persist rename")
	}
	c.publishSession(session)
	return session, nil
}

func (c *ConversationService) SetSessionColor(id string, color models.SessionColor) (models.ChatSession, error) {
	session, err := c.store.SetColor(id, color)
	if err != nil && (errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrInvalidColor)) {
		return models.ChatSession{}, err
	}
	if err != nil {
		log.Error().Err(err).Str("sessionID", id).Msg("Failed to persist color")
	}
	c.publishSession(session)
	return session, nil
}

// DeleteSession removes the session and clears the active pointer if it
// pointed at it.
func (c *ConversationService) DeleteSession(id string) error {
	c.mu.Lock()
	err := c.store.Delete(id)
	if errors.Is(err, ErrSessionNotFound) {
		c.mu.Unlock()
		return err
	}
	if err != nil {
		log.Error().Err(err).Str("sessionID", id).Msg("Failed to persist deletion")
	}
	if c.state.ActiveSessionID != nil && *c.state.ActiveSessionID == id {
		c.state.ActiveSessionID = nil
	}
	state := c.snapshotLocked()
	c.mu.Unlock()

	c.events.Publish(ConversationTopic, ConversationEvent{Type: EventSessionDeleted, SessionID: id})
	c.publishState(state)
	return nil
}

func (c *ConversationService) SetLanguage(lang models.Language) (models.AppState, error) {
	if !lang.Valid() {
		return models.AppState{}, ErrInvalidLanguage
	}
	c.mu.Lock()
	c.state.Language = lang
	state := c.snapshotLocked()
	c.mu.Unlock()

	c.publishState(state)
	return state, nil
}

func (c *ConversationService) SetDeepThink(enabled bool) models.AppState {
	c.mu.Lock()
	c.state.DeepThink = enabled
	state := c.snapshotLocked()
	c.mu.Unlock()

	c.publishState(state)
	return state
}
