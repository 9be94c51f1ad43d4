// Package directory caches the world's locations and manages the avatar
// roster held by the directory service.
package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aviary-sim/aviary/internal/client"
	"github.com/aviary-sim/aviary/internal/models"
	"golang.org/x/sync/errgroup"
)

const (
	locationsPath = "/discord/locations"
	avatarsPath   = "/avatars"

	// locationTTL bounds directory read load; location topology changes
	// rarely compared to the 2s poll cadence.
	locationTTL = 5 * time.Second
)

// ErrMissingID is returned when an avatar without a directory identity is
// persisted. Unlike transport failures this is a caller bug and is loud.
var ErrMissingID = errors.New("avatar has no directory id")

// Directory owns the location cache and roster access. All state lives on
// the struct so multiple worlds or test harnesses can run in isolation.
type Directory struct {
	api *client.Client
	log *slog.Logger
	now func() time.Time

	mu        sync.Mutex
	cached    []models.Location
	fetchedAt time.Time
}

// New creates a directory backed by the world API.
func New(api *client.Client, log *slog.Logger) *Directory {
	return &Directory{api: api, log: log, now: time.Now}
}

// Locations returns the cached locations when fetched within the TTL,
// otherwise fetches fresh and replaces the cache.
func (d *Directory) Locations(ctx context.Context) ([]models.Location, error) {
	d.mu.Lock()
	if d.cached != nil && d.now().Sub(d.fetchedAt) < locationTTL {
		cached := d.cached
		d.mu.Unlock()
		return cached, nil
	}
	d.mu.Unlock()
	return d.Refresh(ctx)
}

// Refresh unconditionally fetches locations and replaces the cache.
func (d *Directory) Refresh(ctx context.Context) ([]models.Location, error) {
	var locations []models.Location
	if err := d.api.Get(ctx, locationsPath, nil, &locations); err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	d.mu.Lock()
	d.cached = locations
	d.fetchedAt = d.now()
	d.mu.Unlock()
	return locations, nil
}

// Avatars returns the raw roster from the directory service.
func (d *Directory) Avatars(ctx context.Context) ([]models.Avatar, error) {
	var avatars []models.Avatar
	if err := d.api.Get(ctx, avatarsPath, nil, &avatars); err != nil {
		return nil, fmt.Errorf("list avatars: %w", err)
	}
	return avatars, nil
}

// InitializeAvatars fetches locations and the roster concurrently and binds
// each avatar to its location record, falling back to the first available
// location when the stored name no longer resolves. The resolved location is
// folded into the avatar's remembered set.
func (d *Directory) InitializeAvatars(ctx context.Context) ([]*models.Avatar, []models.Location, error) {
	var (
		locations []models.Location
		roster    []models.Avatar
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		locations, err = d.Locations(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		roster, err = d.Avatars(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if len(locations) == 0 {
		return nil, nil, errors.New("no locations found")
	}

	avatars := make([]*models.Avatar, 0, len(roster))
	for i := range roster {
		avatar := roster[i]
		avatar.Location = models.FindLocation(locations, avatar.LocationName)
		if avatar.Location == nil {
			avatar.Location = &locations[0]
		}
		avatar.RememberLocation(avatar.Location.Name)
		avatars = append(avatars, &avatar)
	}
	return avatars, locations, nil
}

// avatarPatch is the partial update persisted on location changes.
type avatarPatch struct {
	Location  string     `json:"location,omitempty"`
	Remember  []string   `json:"remember,omitempty"`
	NextCheck *time.Time `json:"next_check,omitempty"`
}

// UpdateAvatarLocation recomputes the remembered set and persists the
// avatar's location to the directory. A missing identity is returned loudly;
// transport failures are logged and swallowed so a directory hiccup never
// aborts an avatar's cycle.
func (d *Directory) UpdateAvatarLocation(ctx context.Context, avatar *models.Avatar) error {
	if avatar == nil || avatar.Location == nil {
		return errors.New("invalid avatar or location")
	}
	if avatar.ID == "" {
		return ErrMissingID
	}

	avatar.LocationName = avatar.Location.Name
	avatar.RememberLocation(avatar.Location.Name)
	d.log.Info("avatar moved", "avatar", avatar.Name, "emoji", avatar.Emoji,
		"location", avatar.Location.Name, "remember", avatar.Remember)

	patch := avatarPatch{Location: avatar.LocationName, Remember: avatar.Remember}
	if err := d.api.Patch(ctx, avatarsPath+"/"+avatar.ID, patch); err != nil {
		d.log.Error("failed to update avatar location", "avatar", avatar.Name, "error", err)
	}
	return nil
}

// SaveNextCheck persists the decision gate's back-off hint. Fire and forget;
// failures are logged only.
func (d *Directory) SaveNextCheck(ctx context.Context, avatar *models.Avatar, next time.Time) {
	avatar.NextCheck = next
	if avatar.ID == "" {
		return
	}
	patch := avatarPatch{NextCheck: &next}
	if err := d.api.Patch(ctx, avatarsPath+"/"+avatar.ID, patch); err != nil {
		d.log.Error("failed to persist next_check", "avatar", avatar.Name, "error", err)
	}
}
