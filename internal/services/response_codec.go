package services

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"spotfinder_go_backend/internal/models"

	"github.com/rs/zerolog/log"
)

const (
	ChartMarker     = "___CHART_DATA___"
	QuestionsMarker = "___RELATED_QUESTIONS___"

	MaxRelatedQuestions = 3
)

// ParsedResponse is the typed form of one raw model reply.
type ParsedResponse struct {
	Answer           string
	ChartSpec        *models.ChartSpec
	RelatedQuestions []string
}

// MarkerCodec splits the reply on the two literal section markers. Markers are
// case-sensitive substrings; a missing marker just leaves its section empty.
type MarkerCodec struct{}

func NewMarkerCodec() *MarkerCodec {
	return &MarkerCodec{}
}

// A "*" only counts as a bullet when followed by whitespace, so bold stays intact.
var enumerationPrefix = regexp.MustCompile(`^(?:[\d\-.\s\[\]•]|\*\s)+`)

func (c *MarkerCodec) Parse(raw string) ParsedResponse {
	parsed := ParsedResponse{
		Answer:           raw,
		RelatedQuestions: []string{},
	}

	if split := firstMarkerIndex(raw); split != -1 {
		parsed.Answer = strings.TrimSpace(raw[:split])
	}

	if idx := strings.Index(raw, ChartMarker); idx != -1 {
		start := idx + len(ChartMarker)
		end := len(raw)
		if q := strings.Index(raw[start:], QuestionsMarker); q != -1 {
			end = start + q
		}
		chart, err := decodeChart(raw[start:end])
		if err != nil {
			log.Warn().Err(err).Msg("Failed to parse chart JSON")
		} else {
			parsed.ChartSpec = chart
		}
	}

	if idx := strings.Index(raw, QuestionsMarker); idx != -1 {
		parsed.RelatedQuestions = parseQuestions(raw[idx+len(QuestionsMarker):])
	}

	return parsed
}

func firstMarkerIndex(s string) int {
	i1 := strings.Index(s, ChartMarker)
	i2 := strings.Index(s, QuestionsMarker)
	switch {
	case i1 == -1:
		return i2
	case i2 == -1:
		return i1
	case i1 < i2:
		return i1
	default:
		return i2
	}
}

func decodeChart(section string) (*models.ChartSpec, error) {
	cleaned := strings.TrimSpace(section)
	cleaned = strings.ReplaceAll(cleaned, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")

	var chart models.ChartSpec
	if err := json.Unmarshal([]byte(cleaned), &chart); err != nil {
		return nil, fmt.Errorf("decode chart section: %w", err)
	}
	if !chart.Type.Valid() {
		return nil, fmt.Errorf("unsupported chart type %q", chart.Type)
	}
	return &chart, nil
}

func parseQuestions(section string) []string {
	questions := []string{}
	for _, line := range strings.Split(strings.TrimSpace(section), "\n") {
		line = strings.TrimSpace(enumerationPrefix.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		questions = append(questions, line)
		if len(questions) == MaxRelatedQuestions {
			break
		}
	}
	return questions
}
