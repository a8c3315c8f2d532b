package models

import (
	"time"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// SessionColor is the tag a user can attach to a session in the sidebar.
type SessionColor string

const (
	ColorViolet  SessionColor = "violet"
	ColorRose    SessionColor = "rose"
	ColorAmber   SessionColor = "amber"
	ColorEmerald SessionColor = "emerald"
	ColorCyan    SessionColor = "cyan"
	ColorSlate   SessionColor = "slate"
)

var SessionColors = []SessionColor{ColorViolet, ColorRose, ColorAmber, ColorEmerald, ColorCyan, ColorSlate}

func (c SessionColor) Valid() bool {
	for _, known := range SessionColors {
		if c == known {
			return true
		}
	}
	return false
}

// Message is one chat turn half. JSON names match the format persisted by the
// browser client so existing stored sessions load unchanged.
type Message struct {
	ID                string             `json:"id"`
	Role              Role               `json:"role"`
	Text              string             `json:"text"`
	Timestamp         time.Time          `json:"timestamp"`
	GroundingMetadata *GroundingMetadata `json:"groundingMetadata,omitempty"`
	RelatedQuestions  []string           `json:"relatedQuestions,omitempty"`
	ChartSpec         *ChartSpec         `json:"chartData,omitempty"`
	IsError           bool               `json:"isError,omitempty"`
	IsThinking        bool               `json:"isThinking,omitempty"`
}

type ChatSession struct {
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	Messages  []Message    `json:"messages"`
	UpdatedAt time.Time    `json:"updatedAt"`
	Color     SessionColor `json:"color,omitempty"`
}

// Clone returns a copy whose message slice can be modified without touching s.
func (s ChatSession) Clone() ChatSession {
	out := s
	out.Messages = append([]Message(nil), s.Messages...)
	if out.Messages == nil {
		out.Messages = []Message{}
	}
	return out
}

// IndexOf returns the position of the message with the given id, or -1.
func (s ChatSession) IndexOf(messageID string) int {
	for i, m := range s.Messages {
		if m.ID == messageID {
			return i
		}
	}
	return -1
}
