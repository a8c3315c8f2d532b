package wsocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"spotfinder_go_backend/internal/services"
	"spotfinder_go_backend/internal/utils/broker"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

type Handler struct {
	conversationService *services.ConversationService
	upgrader            websocket.Upgrader
	pingInterval        time.Duration
}

// Message is a client command, or an error/ack sent back to the client.
// Conversation events are written as services.ConversationEvent.
type Message struct {
	Type      string `json:"type"`
	Content   string `json:"content,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	MessageID string `json:"messageId,omitempty"`
}

// conn serializes writes; gorilla allows one concurrent writer.
type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(v)
}

func NewHandler(conversationService *services.ConversationService, upgrader websocket.Upgrader, pingInterval time.Duration) *Handler {
	return &Handler{
		conversationService: conversationService,
		upgrader:            upgrader,
		pingInterval:        pingInterval,
	}
}

func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request, messageBroker *broker.Broker) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Error upgrading connection")
		return
	}
	defer ws.Close()
	c := &conn{ws: ws}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events := messageBroker.Subscribe(services.ConversationTopic)
	defer messageBroker.Unsubscribe(services.ConversationTopic, events)

	state := h.conversationService.State()
	if err := c.writeJSON(services.ConversationEvent{Type: services.EventStateUpdated, State: &state}); err != nil {
		log.Error().Err(err).Msg("Error sending initial state")
		return
	}

	go h.forwardEvents(ctx, c, events)

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			log.Debug().Err(err).Msg("WebSocket closed")
			return
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Warn().Err(err).Msg("Error unmarshaling message")
			continue
		}
		h.dispatch(ctx, c, msg)
	}
}

func (h *Handler) forwardEvents(ctx context.Context, c *conn, events <-chan interface{}) {
	interval := h.pingInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := c.writeJSON(event); err != nil {
				log.Error().Err(err).Msg("Error sending conversation event")
				return
			}
		case <-ticker.C:
			c.mu.Lock()
			err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			c.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// dispatch runs turn commands in the background; their results reach the
// client as conversation events.
func (h *Handler) dispatch(ctx context.Context, c *conn, msg Message) {
	switch msg.Type {
	case "submit":
		go h.run(ctx, c, msg, func(ctx context.Context) error {
			_, err := h.conversationService.Submit(ctx, msg.Content)
			return err
		})
	case "regenerate":
		go h.run(ctx, c, msg, func(ctx context.Context) error {
			_, err := h.conversationService.Regenerate(ctx, msg.MessageID)
			return err
		})
	case "edit":
		go h.run(ctx, c, msg, func(ctx context.Context) error {
			_, err := h.conversationService.EditAndResubmit(ctx, msg.MessageID, msg.Content)
			return err
		})
	case "select":
		if _, err := h.conversationService.SelectSession(msg.SessionID); err != nil {
			h.sendError(c, msg, err)
		}
	case "new_chat":
		h.conversationService.NewChat()
	case "get_state":
		state := h.conversationService.State()
		if err := c.writeJSON(services.ConversationEvent{Type: services.EventStateUpdated, State: &state}); err != nil {
			log.Error().Err(err).Msg("Error sending state")
		}
	default:
		log.Warn().Str("type", msg.Type).Msg("Unknown message type")
		h.sendError(c, msg, errors.New("unknown message type"))
	}
}

func (h *Handler) run(ctx context.Context, c *conn, msg Message, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		h.sendError(c, msg, err)
	}
}

func (h *Handler) sendError(c *conn, msg Message, err error) {
	if werr := c.writeJSON(Message{
		Type:      "error",
		Content:   err.Error(),
		SessionID: msg.SessionID,
		MessageID: msg.MessageID,
	}); werr != nil {
		log.Error().Err(werr).Msg("Error sending error message")
	}
}
