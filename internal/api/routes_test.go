package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"spotfinder_go_backend/internal/models"
	"spotfinder_go_backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type MockModelGateway struct {
	mock.Mock
}

func (m *MockModelGateway) Generate(ctx context.Context, req *services.GenerationRequest) (*services.GenerationResult, error) {
	args := m.Called(ctx, req)
	result, _ := args.Get(0).(*services.GenerationResult)
	return result, args.Error(1)
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

type testServer struct {
	router       *gin.Engine
	conversation *services.ConversationService
}

func newTestServer(t *testing.T, limiter *rate.Limiter) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gateway := new(MockModelGateway)
	gateway.On("Generate", mock.Anything, mock.Anything).
		Return(&services.GenerationResult{Text: "Try **El Farolito**.\n" + services.QuestionsMarker + "\nOpen late?"}, nil)

	store := services.NewSessionStore(mapKV{})
	store.Load()
	conversation := services.NewConversationService(store, gateway, services.NewMarkerCodec(), nil, models.LanguageEnglish)

	r := gin.New()
	SetupRoutes(r, conversation, services.NewExportService(store, services.NewPDFExporter()), limiter)
	return &testServer{router: r, conversation: conversation}
}

func (s *testServer) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) submit(t *testing.T, query string) models.ChatSession {
	t.Helper()
	w := s.do(http.MethodPost, "/api/chat/submit", gin.H{"query": query})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var session models.ChatSession
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &session))
	return session
}

func TestSubmitAndFetchSession(t *testing.T) {
	s := newTestServer(t, nil)

	session := s.submit(t, "best tacos nearby")
	require.Len(t, session.Messages, 2)
	assert.Equal(t, "best tacos nearby", session.Title)
	assert.Equal(t, []string{"Open late?"}, session.Messages[1].RelatedQuestions)

	w := s.do(http.MethodGet, "/api/sessions/"+session.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/api/sessions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listing struct {
		Sessions []models.ChatSession `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listing))
	assert.Len(t, listing.Sessions, 1)

	w = s.do(http.MethodGet, "/api/state", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var state models.AppState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	require.NotNil(t, state.ActiveSessionID)
	assert.Equal(t, session.ID, *state.ActiveSessionID)
}

func TestSubmit_ValidationErrors(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodPost, "/api/chat/submit", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/chat/submit", gin.H{"query": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmit_RateLimited(t *testing.T) {
	s := newTestServer(t, rate.NewLimiter(rate.Every(time.Hour), 1))

	s.submit(t, "best tacos nearby")
	w := s.do(http.MethodPost, "/api/chat/submit", gin.H{"query": "and burritos?"})

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestRegenerateAndEditErrors(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodPost, "/api/chat/regenerate", gin.H{"messageId": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	session := s.submit(t, "best tacos nearby")

	w = s.do(http.MethodPost, "/api/chat/regenerate", gin.H{"messageId": session.Messages[0].ID})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = s.do(http.MethodPost, "/api/chat/edit", gin.H{"messageId": session.Messages[0].ID, "text": "best burritos"})
	require.Equal(t, http.StatusOK, w.Code)
	var edited models.ChatSession
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &edited))
	assert.Equal(t, "best burritos", edited.Messages[0].Text)
}

func TestUpdateSession(t *testing.T) {
	s := newTestServer(t, nil)
	session := s.submit(t, "best tacos nearby")
	path := "/api/sessions/" + session.ID

	w := s.do(http.MethodPatch, path, gin.H{"title": "Taco crawl", "color": "amber"})
	require.Equal(t, http.StatusOK, w.Code)
	var updated models.ChatSession
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, "Taco crawl", updated.Title)
	assert.Equal(t, models.ColorAmber, updated.Color)

	w = s.do(http.MethodPatch, path, gin.H{"color": "plaid"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = s.do(http.MethodPatch, path, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPatch, "/api/sessions/missing", gin.H{"title": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteSession(t *testing.T) {
	s := newTestServer(t, nil)
	session := s.submit(t, "best tacos nearby")

	w := s.do(http.MethodDelete, "/api/sessions/"+session.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Nil(t, s.conversation.State().ActiveSessionID)

	w = s.do(http.MethodDelete, "/api/sessions/"+session.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSelectAndNewChat(t *testing.T) {
	s := newTestServer(t, nil)
	session := s.submit(t, "best tacos nearby")

	w := s.do(http.MethodPost, "/api/sessions/new", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, s.conversation.State().ActiveSessionID)

	w = s.do(http.MethodPost, "/api/sessions/"+session.ID+"/select", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, session.ID, *s.conversation.State().ActiveSessionID)
}

func TestExportSession(t *testing.T) {
	s := newTestServer(t, nil)
	session := s.submit(t, "best tacos nearby")

	w := s.do(http.MethodGet, "/api/sessions/"+session.ID+"/export", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Disposition"), "attachment; filename=SpotFinder-best_tacos_near-"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))
}

func TestPreferences(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodPut, "/api/preferences", gin.H{"language": "fr", "deepThink": true})
	require.Equal(t, http.StatusOK, w.Code)
	var state models.AppState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.Equal(t, models.LanguageFrench, state.Language)
	assert.True(t, state.DeepThink)

	w = s.do(http.MethodPut, "/api/preferences", gin.H{"language": "de"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLocationToggle(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodPost, "/api/preferences/location", gin.H{"denied": true})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "Could not access location.")

	w = s.do(http.MethodPost, "/api/preferences/location", gin.H{"latitude": 37.76, "longitude": -122.42})
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, s.conversation.State().Location)

	w = s.do(http.MethodDelete, "/api/preferences/location", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, s.conversation.State().Location)
}

func TestDeepLink(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodGet, "/api/search?q=best+tacos+nearby", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var first struct {
		Submitted bool               `json:"submitted"`
		Session   models.ChatSession `json:"session"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))
	assert.True(t, first.Submitted)
	assert.Equal(t, "best tacos nearby", first.Session.Title)

	w = s.do(http.MethodGet, "/api/search?q=best+tacos+nearby", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"submitted":false`)
}
