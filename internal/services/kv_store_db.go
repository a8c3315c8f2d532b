package services

import (
	"errors"

	"spotfinder_go_backend/internal/models"

	"gorm.io/gorm"
)

// DefaultKVStore implements KVStore on a gorm table.
type DefaultKVStore struct {
	db *gorm.DB
}

func NewKVStoreDB(db *gorm.DB) KVStore {
	return &DefaultKVStore{db: db}
}

// Get returns the stored value and whether the key exists.
func (s *DefaultKVStore) Get(key string) (string, bool, error) {
	var entry models.KVEntry
	err := s.db.Where(&models.KVEntry{Key: key}).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return entry.Value, true, nil
}

// Set creates the key or overwrites its value.
func (s *DefaultKVStore) Set(key, value string) error {
	var entry models.KVEntry
	result := s.db.Where(models.KVEntry{Key: key}).Assign(models.KVEntry{Value: value}).FirstOrCreate(&entry)
	return result.Error
}
