package models

type Language string

const (
	LanguageEnglish Language = "en"
	LanguageFrench  Language = "fr"
)

func (l Language) Valid() bool {
	return l == LanguageEnglish || l == LanguageFrench
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// AppState is the process-wide conversation state exposed to clients.
type AppState struct {
	ActiveSessionID *string   `json:"activeSessionId"`
	InFlight        bool      `json:"inFlight"`
	Language        Language  `json:"language"`
	DeepThink       bool      `json:"deepThink"`
	Location        *Location `json:"location,omitempty"`
	Locating        bool      `json:"locating"`
	QueryParam      string    `json:"queryParam,omitempty"`
}
