package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"spotfinder_go_backend/internal/models"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

type GenerationResult struct {
	Text              string
	GroundingMetadata *models.GroundingMetadata
}

var ErrNilRequest = errors.New("nil generation request")

// GatewayError is the single failure signal for a model call.
type GatewayError struct {
	Model string
	Err   error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("model gateway error [%s]: %v", e.Model, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

type GeminiGateway struct {
	generator      ContentGenerator
	standardModel  string
	deepThinkModel string
	timeout        time.Duration
}

func NewGeminiGateway(generator ContentGenerator, standardModel, deepThinkModel string, timeout time.Duration) *GeminiGateway {
	return &GeminiGateway{
		generator:      generator,
		standardModel:  standardModel,
		deepThinkModel: deepThinkModel,
		timeout:        timeout,
	}
}

func (g *GeminiGateway) ModelFor(req *GenerationRequest) string {
	if req.DeepThink {
		return g.deepThinkModel
	}
	return g.standardModel
}

func (g *GeminiGateway) Generate(ctx context.Context, req *GenerationRequest) (*GenerationResult, error) {
	if req == nil {
		return nil, &GatewayError{Err: ErrNilRequest}
	}
	model := g.ModelFor(req)

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	resp, err := g.generator.GenerateContent(ctx, model, toGenaiContents(req.Contents), toGenaiConfig(req))
	if err != nil {
		log.Error().Err(err).Str("model", model).Msg("Gemini search error")
		return nil, &GatewayError{Model: model, Err: err}
	}
	if resp == nil {
		return nil, &GatewayError{Model: model, Err: errors.New("empty response")}
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		text = Translate(req.Language).NothingFound
	}

	result := &GenerationResult{Text: text}
	if len(resp.Candidates) > 0 && resp.Candidates[0] != nil {
		result.GroundingMetadata = fromGenaiGrounding(resp.Candidates[0].GroundingMetadata)
	}
	return result, nil
}

func toGenaiContents(turns []HistoryTurn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		role := genai.RoleUser
		if t.Role == models.RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(t.Text, role))
	}
	return contents
}

func toGenaiConfig(req *GenerationRequest) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.SystemInstruction, genai.RoleUser),
	}

	if req.ThinkingBudget > 0 {
		config.ThinkingConfig = &genai.ThinkingConfig{
			ThinkingBudget: genai.Ptr(req.ThinkingBudget),
		}
	}

	for _, tool := range req.Tools {
		switch tool {
		case ToolGoogleSearch:
			config.Tools = append(config.Tools, &genai.Tool{GoogleSearch: &genai.GoogleSearch{}})
		case ToolGoogleMaps:
			config.Tools = append(config.Tools, &genai.Tool{GoogleMaps: &genai.GoogleMaps{}})
		}
	}

	if req.RetrievalBias != nil {
		config.ToolConfig = &genai.ToolConfig{
			RetrievalConfig: &genai.RetrievalConfig{
				LatLng: &genai.LatLng{
					Latitude:  genai.Ptr(req.RetrievalBias.Latitude),
					Longitude: genai.Ptr(req.RetrievalBias.Longitude),
				},
			},
		}
	}
	return config
}

func fromGenaiGrounding(gm *genai.GroundingMetadata) *models.GroundingMetadata {
	if gm == nil {
		return nil
	}
	out := &models.GroundingMetadata{}
	for _, chunk := range gm.GroundingChunks {
		if chunk == nil {
			continue
		}
		switch {
		case chunk.Web != nil:
			out.GroundingChunks = append(out.GroundingChunks, models.GroundingChunk{
				Web: &models.Source{URI: chunk.Web.URI, Title: chunk.Web.Title},
			})
		case chunk.Maps != nil:
			out.GroundingChunks = append(out.GroundingChunks, models.GroundingChunk{
				Maps: &models.Source{URI: chunk.Maps.URI, Title: chunk.Maps.Title},
			})
		}
	}
	return out
}
