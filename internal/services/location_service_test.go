package services

import (
	"context"
	"testing"
	"time"

	"spotfinder_go_backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func fixedLocator(loc models.Location, err error) Locator {
	return LocatorFunc(func(context.Context) (models.Location, error) {
		return loc, err
	})
}

func TestToggleLocation_OnThenOff(t *testing.T) {
	f := newConversationFixture(t)
	sf := models.Location{Latitude: 37.76, Longitude: -122.42}

	state, err := f.svc.ToggleLocation(context.Background(), fixedLocator(sf, nil))
	require.NoError(t, err)
	require.NotNil(t, state.Location)
	assert.Equal(t, sf, *state.Location)
	assert.False(t, state.Locating)

	state, err = f.svc.ToggleLocation(context.Background(), fixedLocator(models.Location{}, ErrLocationDenied))
	require.NoError(t, err)
	assert.Nil(t, state.Location)
}

func TestToggleLocation_DeniedRevertsWithLocalizedAlert(t *testing.T) {
	f := newConversationFixture(t)
	_, err := f.svc.SetLanguage(models.LanguageFrench)
	require.NoError(t, err)

	state, err := f.svc.ToggleLocation(context.Background(), fixedLocator(models.Location{}, ErrLocationDenied))

	var locErr *LocationError
	require.ErrorAs(t, err, &locErr)
	assert.Equal(t, "Impossible d'accéder à la position.", locErr.Alert)
	assert.ErrorIs(t, err, ErrLocationDenied)
	assert.Nil(t, state.Location)
	assert.False(t, state.Locating)
}

func TestToggleLocation_SinglePendingRequest(t *testing.T) {
	f := newConversationFixture(t)
	release := make(chan struct{})
	slow := LocatorFunc(func(context.Context) (models.Location, error) {
		<-release
		return models.Location{Latitude: 1, Longitude: 2}, nil
	})

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.ToggleLocation(context.Background(), slow)
		done <- err
	}()
	assert.Eventually(t, func() bool { return f.svc.State().Locating }, time.Second, 5*time.Millisecond)

	_, err := f.svc.ToggleLocation(context.Background(), fixedLocator(models.Location{}, nil))
	assert.ErrorIs(t, err, ErrLocationPending)

	close(release)
	require.NoError(t, <-done)
	assert.NotNil(t, f.svc.State().Location)
}

func TestLocation_BiasesNextRequest(t *testing.T) {
	f := newConversationFixture(t)
	f.answerWith(tacoAnswer)
	sf := models.Location{Latitude: 37.76, Longitude: -122.42}
	_, err := f.svc.ToggleLocation(context.Background(), fixedLocator(sf, nil))
	require.NoError(t, err)

	_, err = f.svc.Submit(context.Background(), "best tacos nearby")
	require.NoError(t, err)
	require.NotNil(t, f.lastRequest().RetrievalBias)
	assert.Equal(t, sf, *f.lastRequest().RetrievalBias)

	f.svc.ClearLocation()
	_, err = f.svc.Submit(context.Background(), "and burritos?")
	require.NoError(t, err)
	assert.Nil(t, f.lastRequest().RetrievalBias)
	f.gateway.AssertCalled(t, "Generate", mock.Anything, mock.Anything)
}
