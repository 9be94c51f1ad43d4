package chronicle

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/aviary-sim/aviary/internal/llm"
	"github.com/aviary-sim/aviary/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRoster struct {
	avatars []*models.Avatar
	err     error
}

func (f *fakeRoster) InitializeAvatars(ctx context.Context) ([]*models.Avatar, []models.Location, error) {
	return f.avatars, nil, f.err
}

type fakeReader struct {
	msgs []models.Message
	err  error
}

func (f *fakeReader) Messages(ctx context.Context, locationID string) ([]models.Message, error) {
	return f.msgs, f.err
}

type fakeContextStore struct {
	saved []models.CharacterContext
	err   error
}

func (f *fakeContextStore) SaveCharacterContext(ctx context.Context, cc models.CharacterContext) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, cc)
	return nil
}

type echoCompleter struct {
	prompts []string
	err     error
}

func (e *echoCompleter) Complete(ctx context.Context, persona llm.Persona, turns []models.Turn) (string, error) {
	if e.err != nil {
		return "", e.err
	}
	e.prompts = append(e.prompts, turns[len(turns)-1].Content)
	return "generated #" + persona.Name, nil
}

func forestAvatar(name string) *models.Avatar {
	return &models.Avatar{
		Name:     name,
		Location: &models.Location{ID: "c1", Name: "Forest", Type: models.LocationChannel},
	}
}

func TestUpdateGeneratesAllThreeEntries(t *testing.T) {
	store := &fakeContextStore{}
	completer := &echoCompleter{}
	c := New(&fakeRoster{}, &fakeReader{msgs: []models.Message{
		{Author: models.Author{Username: "Ben"}, Content: "hello moths"},
	}}, store, completer, slog.New(slog.DiscardHandler))

	err := c.Update(context.Background(), forestAvatar("Luna"))
	require.NoError(t, err)

	require.Len(t, completer.prompts, 3)
	assert.Contains(t, completer.prompts[0], "describe your dream")
	assert.Contains(t, completer.prompts[1], "Ben: hello moths")
	assert.Contains(t, completer.prompts[2], "journal entry")

	require.Len(t, store.saved, 1)
	assert.Equal(t, "Luna", store.saved[0].Name)
	assert.NotEmpty(t, store.saved[0].Dream)
}

func TestUpdateRequiresLocation(t *testing.T) {
	c := New(&fakeRoster{}, &fakeReader{}, &fakeContextStore{}, &echoCompleter{}, slog.New(slog.DiscardHandler))

	err := c.Update(context.Background(), &models.Avatar{Name: "Ghost"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "no location"))
}

func TestUpdateAllContinuesPastFailures(t *testing.T) {
	store := &fakeContextStore{}
	roster := &fakeRoster{avatars: []*models.Avatar{
		{Name: "Ghost"}, // no location, fails
		forestAvatar("Luna"),
	}}
	c := New(roster, &fakeReader{}, store, &echoCompleter{}, slog.New(slog.DiscardHandler))

	c.UpdateAll(context.Background())

	require.Len(t, store.saved, 1)
	assert.Equal(t, "Luna", store.saved[0].Name)
}

func TestUpdateSurfacesCompleterFailure(t *testing.T) {
	boom := errors.New("backend down")
	c := New(&fakeRoster{}, &fakeReader{}, &fakeContextStore{}, &echoCompleter{err: boom}, slog.New(slog.DiscardHandler))

	err := c.Update(context.Background(), forestAvatar("Luna"))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}
