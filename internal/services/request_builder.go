package services

import (
	"strings"

	"spotfinder_go_backend/internal/models"
)

const (
	// HistoryWindowSize is the number of prior messages sent as context.
	HistoryWindowSize = 6

	DeepThinkBudget int32 = 32768
)

type ToolKind string

const (
	ToolGoogleSearch ToolKind = "google_search"
	ToolGoogleMaps   ToolKind = "google_maps"
)

type HistoryTurn struct {
	Role models.Role
	Text string
}

type RequestOptions struct {
	UseThinking bool
	Location    *models.Location
}

// GenerationRequest is the provider-neutral form of one model call.
type GenerationRequest struct {
	DeepThink         bool
	Language          models.Language
	SystemInstruction string
	ThinkingBudget    int32
	Tools             []ToolKind
	RetrievalBias     *models.Location
	Contents          []HistoryTurn
}

const missionInstruction = `You are "SpotFinder", the ultimate AI companion for finding recommendations, locations, trends, and facts.

YOUR MISSION:
- Help users find the absolute best spots, products, and answers.
`

const formattingInstruction = `
FORMATTING & STRUCTURE:
- Use **bold** for place names, key items, or prices to make them stand out.
- Use bullet points (•) for lists of recommendations.
- Use clear paragraphs with spacing. Avoid walls of text.
- Be concise and organized.

DATA VISUALIZATION:
If the user asks for a comparison (e.g., prices, ratings, stats) or trends, you MUST provide data for a chart.
Format the chart section exactly as follows:
` + ChartMarker + `
{
  "type": "bar" (or "line" or "pie"),
  "title": "Short Chart Title",
  "xLabel": "Label for X axis (optional)",
  "yLabel": "Label for Y axis (optional)",
  "data": [
    {"label": "Item A", "value": 10},
    {"label": "Item B", "value": 20}
  ]
}
`

const exampleInstruction = `
Example format:
Here are the best spots I found:

• **The Place**: It's amazing because...
• **Another Spot**: Great for...

` + ChartMarker + `
{ ...json... }

` + QuestionsMarker + `
Question 1?
Question 2?
Question 3?
`

func languageInstruction(lang models.Language) string {
	name, answerLang := "English.", "English"
	if lang == models.LanguageFrench {
		name, answerLang = "French (Français).", "French"
	}
	return `
LANGUAGE: ` + name + `
TONE: Helpful, smart, and efficient. Use emojis sparingly. Be natural and direct.
IMPORTANT: Do NOT use overly casual slang.
RESPONSE FORMAT:
1. Your main answer (in ` + answerLang + `), beautifully structured with **bold** text and lists.
2. (Optional) ` + ChartMarker + ` and JSON.
3. A separator: "` + QuestionsMarker + `"
4. A list of 3 short, catchy follow-up questions in ` + answerLang + `.
`
}

// SystemInstruction returns the full instruction text for the given language.
func SystemInstruction(lang models.Language) string {
	var b strings.Builder
	b.WriteString(missionInstruction)
	b.WriteString(formattingInstruction)
	b.WriteString(languageInstruction(lang))
	b.WriteString(exampleInstruction)
	return b.String()
}

// HistoryWindow maps the trailing HistoryWindowSize messages to request turns.
// The caller passes only messages that precede the query being answered.
func HistoryWindow(messages []models.Message) []HistoryTurn {
	if len(messages) > HistoryWindowSize {
		messages = messages[len(messages)-HistoryWindowSize:]
	}
	turns := make([]HistoryTurn, 0, len(messages))
	for _, m := range messages {
		turns = append(turns, HistoryTurn{Role: m.Role, Text: m.Text})
	}
	return turns
}

func BuildRequest(query string, history []HistoryTurn, lang models.Language, opts RequestOptions) *GenerationRequest {
	if !lang.Valid() {
		lang = models.LanguageEnglish
	}

	req := &GenerationRequest{
		DeepThink:         opts.UseThinking,
		Language:          lang,
		SystemInstruction: SystemInstruction(lang),
	}

	if opts.UseThinking {
		req.ThinkingBudget = DeepThinkBudget
	} else {
		req.Tools = []ToolKind{ToolGoogleSearch, ToolGoogleMaps}
		if opts.Location != nil {
			loc := *opts.Location
			req.RetrievalBias = &loc
		}
	}

	req.Contents = make([]HistoryTurn, 0, len(history)+1)
	req.Contents = append(req.Contents, history...)
	req.Contents = append(req.Contents, HistoryTurn{Role: models.RoleUser, Text: query})
	return req
}
