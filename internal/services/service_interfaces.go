package services

import (
	"context"
	"io"

	"spotfinder_go_backend/internal/models"

	"google.golang.org/genai"
)

// ResponseCodec turns the model's single free-text reply into typed segments.
type ResponseCodec interface {
	Parse(raw string) ParsedResponse
}

// ContentGenerator is the slice of *genai.Models the gateway needs.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type ModelGateway interface {
	Generate(ctx context.Context, req *GenerationRequest) (*GenerationResult, error)
}

// KVStore is the durable get/set slot the session collection is persisted to.
type KVStore interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

// Locator resolves the user's current position.
type Locator interface {
	CurrentPosition(ctx context.Context) (models.Location, error)
}

// Exporter renders one session as a document.
type Exporter interface {
	Export(session *models.ChatSession, w io.Writer) error
	Extension() string
}

type EventPublisher interface {
	Publish(topic string, msg interface{})
}
