// Package app wires the services shared by the HTTP server and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"spotfinder_go_backend/cmd/api/config"
	"spotfinder_go_backend/internal/api"
	"spotfinder_go_backend/internal/database"
	"spotfinder_go_backend/internal/models"
	"spotfinder_go_backend/internal/services"
	"spotfinder_go_backend/internal/utils/broker"
	"spotfinder_go_backend/internal/wsocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

var ErrMissingAPIKey = errors.New("GOOGLE_AI_STUDIO_API_KEY is not set in the environment")

type App struct {
	Config       *config.Config
	Broker       *broker.Broker
	Store        *services.SessionStore
	Conversation *services.ConversationService
	Export       *services.ExportService
}

// New opens the database, loads the session collection and connects to the
// Gemini API.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg.GenAIAPIKey == "" {
		return nil, ErrMissingAPIKey
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GenAIAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	gateway := services.NewGeminiGateway(client.Models, cfg.ModelStandard, cfg.ModelDeepThink, cfg.GenerateTimeout)

	database.InitDB(cfg.DBDriver, cfg.DSN())
	return NewWithGateway(cfg, services.NewKVStoreDB(database.DB), gateway), nil
}

// NewWithGateway assembles the services around an existing KV slot and
// gateway.
func NewWithGateway(cfg *config.Config, kv services.KVStore, gateway services.ModelGateway) *App {
	store := services.NewSessionStore(kv)
	store.Load()
	log.Info().Int("sessions", store.Len()).Msg("Session collection loaded")

	messageBroker := broker.NewBroker()
	conversation := services.NewConversationService(
		store,
		gateway,
		services.NewMarkerCodec(),
		messageBroker,
		models.Language(cfg.DefaultLanguage),
	)

	return &App{
		Config:       cfg,
		Broker:       messageBroker,
		Store:        store,
		Conversation: conversation,
		Export:       services.NewExportService(store, services.NewPDFExporter()),
	}
}

// SubmitLimiter allows perMinute submissions per minute with an equal burst.
// Non-positive values disable limiting.
func SubmitLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
}

func (a *App) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	// CORS middleware configuration
	r.Use(cors.New(cors.Config{
		AllowOrigins:     a.Config.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	allowed := make(map[string]bool, len(a.Config.AllowedOrigins))
	for _, origin := range a.Config.AllowedOrigins {
		allowed[origin] = true
	}
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || allowed[origin]
		},
	}
	wsHandler := wsocket.NewHandler(a.Conversation, upgrader, 30*time.Second)

	api.SetupRoutes(r, a.Conversation, a.Export, SubmitLimiter(a.Config.SubmitRatePerMin))
	r.GET("/ws", func(c *gin.Context) {
		wsHandler.HandleWebSocket(c.Writer, c.Request, a.Broker)
	})
	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("Request handled")
	}
}
