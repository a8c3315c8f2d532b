package wsocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"spotfinder_go_backend/internal/models"
	"spotfinder_go_backend/internal/services"
	"spotfinder_go_backend/internal/utils/broker"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGateway struct{}

func (stubGateway) Generate(context.Context, *services.GenerationRequest) (*services.GenerationResult, error) {
	return &services.GenerationResult{Text: "Try El Farolito."}, nil
}

type mapKV map[string]string

func (kv mapKV) Get(key string) (string, bool, error) {
	v, ok := kv[key]
	return v, ok, nil
}

func (kv mapKV) Set(key, value string) error {
	kv[key] = value
	return nil
}

// frame holds whichever of the two outbound shapes arrived.
type frame struct {
	Type      string              `json:"type"`
	Content   string              `json:"content"`
	Session   *models.ChatSession `json:"session"`
	State     *models.AppState    `json:"state"`
	MessageID string              `json:"messageId"`
}

func dial(t *testing.T) *websocket.Conn {
	t.Helper()
	messageBroker := broker.NewBroker()
	store := services.NewSessionStore(mapKV{})
	store.Load()
	svc := services.NewConversationService(store, stubGateway{}, services.NewMarkerCodec(), messageBroker, models.LanguageEnglish)
	handler := NewHandler(svc, websocket.Upgrader{}, time.Minute)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.HandleWebSocket(w, r, messageBroker)
	}))
	t.Cleanup(server.Close)

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func readUntil(t *testing.T, ws *websocket.Conn, match func(frame) bool) frame {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		_, raw, err := ws.ReadMessage()
		require.NoError(t, err)
		var f frame
		require.NoError(t, json.Unmarshal(raw, &f))
		if match(f) {
			return f
		}
	}
}

func TestHandleWebSocket_SendsInitialState(t *testing.T) {
	ws := dial(t)

	f := readUntil(t, ws, func(frame) bool { return true })

	assert.Equal(t, string(services.EventStateUpdated), f.Type)
	require.NotNil(t, f.State)
	assert.Nil(t, f.State.ActiveSessionID)
}

func TestHandleWebSocket_SubmitStreamsAnswer(t *testing.T) {
	ws := dial(t)
	readUntil(t, ws, func(frame) bool { return true })

	require.NoError(t, ws.WriteJSON(Message{Type: "submit", Content: "best tacos nearby"}))

	f := readUntil(t, ws, func(f frame) bool {
		return f.Type == string(services.EventSessionUpdated) && f.Session != nil && len(f.Session.Messages) == 2
	})
	assert.Equal(t, "best tacos nearby", f.Session.Title)
	assert.Equal(t, "Try El Farolito.", f.Session.Messages[1].Text)
}

func TestHandleWebSocket_ErrorReplies(t *testing.T) {
	ws := dial(t)
	readUntil(t, ws, func(frame) bool { return true })

	require.NoError(t, ws.WriteJSON(Message{Type: "dance"}))
	f := readUntil(t, ws, func(f frame) bool { return f.Type == "error" })
	assert.Equal(t, "unknown message type", f.Content)

	require.NoError(t, ws.WriteJSON(Message{Type: "regenerate", MessageID: "nope"}))
	f = readUntil(t, ws, func(f frame) bool { return f.Type == "error" })
	assert.Equal(t, "nope", f.MessageID)
}
