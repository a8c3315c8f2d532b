package services

import (
	"errors"
	"time"

	"spotfinder_go_backend/internal/models"
)

var (
	ErrBusy            = errors.New("a response is already being generated")
	ErrEmptyQuery      = errors.New("query is empty")
	ErrNoActiveSession = errors.New("no active session")
	ErrMessageNotFound = errors.New("message not found")
	ErrInvalidTarget   = errors.New("message cannot be used for this action")
	ErrInvalidLanguage = errors.New("unsupported language")
)

// turnPlan is phase one of a turn: the session tail to show immediately and
// the request inputs for the model call.
type turnPlan struct {
	sessionID string
	query     string
	history   []HistoryTurn
	// base is the message list the outcome is appended to. Nil means append
	// to whatever the session holds when the call settles.
	base []models.Message
}

// TurnOutcome is phase two: either a parsed response or the gateway failure.
type TurnOutcome struct {
	Parsed    ParsedResponse
	Grounding *models.GroundingMetadata
	Err       error
}

// planRegenerate drops the target model message and everything after it. The
// preceding user message is kept and replayed.
func planRegenerate(session models.ChatSession, messageID string) (turnPlan, error) {
	idx := session.IndexOf(messageID)
	if idx == -1 {
		return turnPlan{}, ErrMessageNotFound
	}
	if session.Messages[idx].Role != models.RoleModel {
		return turnPlan{}, ErrInvalidTarget
	}
	if idx == 0 || session.Messages[idx-1].Role != models.RoleUser {
		return turnPlan{}, ErrInvalidTarget
	}

	kept := append([]models.Message{}, session.Messages[:idx]...)
	return turnPlan{
		sessionID: session.ID,
		query:     session.Messages[idx-1].Text,
		history:   HistoryWindow(session.Messages[:idx-1]),
		base:      kept,
	}, nil
}

// planEdit truncates just before the edited user message and re-adds it with
// the new text and a fresh timestamp.
func planEdit(session models.ChatSession, messageID, newText string, now time.Time) (turnPlan, error) {
	idx := session.IndexOf(messageID)
	if idx == -1 {
		return turnPlan{}, ErrMessageNotFound
	}
	if session.Messages[idx].Role != models.RoleUser {
		return turnPlan{}, ErrInvalidTarget
	}

	edited := session.Messages[idx]
	edited.Text = newText
	edited.Timestamp = now

	base := append([]models.Message{}, session.Messages[:idx]...)
	return turnPlan{
		sessionID: session.ID,
		query:     newText,
		history:   HistoryWindow(session.Messages[:idx]),
		base:      append(base, edited),
	}, nil
}

// message converts the outcome into the model message appended to the session.
func (o TurnOutcome) message(id string, lang models.Language, thinking bool, now time.Time) models.Message {
	if o.Err != nil {
		return models.Message{
			ID:        id,
			Role:      models.RoleModel,
			Text:      Translate(lang).ErrorMessage,
			Timestamp: now,
			IsError:   true,
		}
	}
	return models.Message{
		ID:                id,
		Role:              models.RoleModel,
		Text:              o.Parsed.Answer,
		Timestamp:         now,
		GroundingMetadata: o.Grounding,
		RelatedQuestions:  o.Parsed.RelatedQuestions,
		ChartSpec:         o.Parsed.ChartSpec,
		IsThinking:        thinking,
	}
}
