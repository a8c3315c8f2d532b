package services

import (
	"context"
	"errors"
	"fmt"

	"spotfinder_go_backend/internal/models"

	"github.com/rs/zerolog/log"
)

// LocatorFunc adapts a function to Locator.
type LocatorFunc func(ctx context.Context) (models.Location, error)

func (f LocatorFunc) CurrentPosition(ctx context.Context) (models.Location, error) {
	return f(ctx)
}

var (
	ErrLocationPending = errors.New("a location request is already pending")
	ErrLocationDenied  = errors.New("location access denied")
)

// LocationError carries the alert shown to the user when the position could
// not be read.
type LocationError struct {
	Alert string
	Err   error
}

func (e *LocationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Alert, e.Err)
}

func (e *LocationError) Unwrap() error {
	return e.Err
}

// ToggleLocation turns location bias off when it is on. When it is off it asks
// the locator for a position; on failure the toggle stays off and a
// *LocationError is returned.
func (c *ConversationService) ToggleLocation(ctx context.Context, locator Locator) (models.AppState, error) {
	c.mu.Lock()
	if c.state.Location != nil {
		c.state.Location = nil
		state := c.snapshotLocked()
		c.mu.Unlock()
		c.publishState(state)
		return state, nil
	}
	if c.state.Locating {
		c.mu.Unlock()
		return models.AppState{}, ErrLocationPending
	}
	c.state.Locating = true
	lang := c.state.Language
	c.mu.Unlock()

	loc, err := locator.CurrentPosition(ctx)

	c.mu.Lock()
	c.state.Locating = false
	if err == nil {
		c.state.Location = &loc
	}
	state := c.snapshotLocked()
	c.mu.Unlock()
	c.publishState(state)

	if err != nil {
		log.Warn().Err(err).Msg("Location access denied")
		return state, &LocationError{Alert: Translate(lang).LocationUnavailable, Err: err}
	}
	return state, nil
}

// ClearLocation turns location bias off.
func (c *ConversationService) ClearLocation() models.AppState {
	c.mu.Lock()
	c.state.Location = nil
	state := c.snapshotLocked()
	c.mu.Unlock()

	c.publishState(state)
	return state
}
