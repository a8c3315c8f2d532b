package services

import "spotfinder_go_backend/internal/models"

// Strings holds the user-facing text the backend itself produces.
type Strings struct {
	ErrorMessage        string
	NothingFound        string
	LocationUnavailable string
	ExportUnavailable   string
	DefaultTitle        string
}

var translations = map[models.Language]Strings{
	models.LanguageEnglish: {
		ErrorMessage:        "Oops! I had trouble searching for that. It might be a network issue. Try again?",
		NothingFound:        "I couldn't find anything for that, sorry!",
		LocationUnavailable: "Could not access location.",
		ExportUnavailable:   "PDF library not loaded. Please refresh.",
		DefaultTitle:        "New Chat",
	},
	models.LanguageFrench: {
		ErrorMessage:        "Oups ! J'ai eu du mal à chercher ça. C'est peut-être un problème de réseau. Réessayer ?",
		NothingFound:        "Je n'ai rien trouvé pour ça, désolé !",
		LocationUnavailable: "Impossible d'accéder à la position.",
		ExportUnavailable:   "Export PDF indisponible. Veuillez actualiser.",
		DefaultTitle:        "Nouvelle Discussion",
	},
}

// Translate falls back to English for unknown languages.
func Translate(lang models.Language) Strings {
	if s, ok := translations[lang]; ok {
		return s
	}
	return translations[models.LanguageEnglish]
}
