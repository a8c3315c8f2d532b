package models

import (
	"time"
)

// KVEntry is one durable key-value slot. Session collections are stored as a
// single JSON document per key.
type KVEntry struct {
	Key       string `gorm:"primaryKey;size:128"`
	Value     string `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
