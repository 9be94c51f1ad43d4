// Package messages retrieves chat messages and shapes them into the bounded
// conversation windows avatars respond to.
package messages

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/aviary-sim/aviary/internal/client"
	"github.com/aviary-sim/aviary/internal/models"
	"github.com/aviary-sim/aviary/internal/retry"
	"golang.org/x/sync/errgroup"
)

const (
	messagesPath = "/discord/messages"
	mentionsPath = "/discord/messages/mention"

	// windowSize bounds the conversation window per response cycle.
	windowSize = 10
)

// Mark is a per-avatar high-water mark: messages at or before it have
// already been processed and are excluded from fetches. AtIDs carries the
// processed messages that share the boundary timestamp, so order ties are
// excluded by ID instead of being lost to the time cutoff.
type Mark struct {
	ID    string
	At    time.Time
	AtIDs []string
}

// Zero reports whether the mark has never been advanced.
func (m Mark) Zero() bool {
	return m.ID == "" && m.At.IsZero()
}

// Seen reports whether the ID was processed at the boundary timestamp.
func (m Mark) Seen(id string) bool {
	if id == m.ID {
		return true
	}
	for _, seen := range m.AtIDs {
		if seen == id {
			return true
		}
	}
	return false
}

// Advance returns the mark after processing the fetched messages, which are
// sorted ascending by creation time. Every fetched message sharing the new
// boundary timestamp is recorded, and the previous boundary set carries over
// when the timestamp did not move.
func Advance(mark Mark, fetched []models.Message) Mark {
	if len(fetched) == 0 {
		return mark
	}
	last := fetched[len(fetched)-1]
	next := Mark{ID: last.ID, At: last.CreatedAt}
	if !mark.Zero() && last.CreatedAt.Equal(mark.At) {
		next.AtIDs = append(next.AtIDs, mark.AtIDs...)
		next.AtIDs = append(next.AtIDs, mark.ID)
	}
	for _, m := range fetched[:len(fetched)-1] {
		if m.CreatedAt.Equal(last.CreatedAt) {
			next.AtIDs = append(next.AtIDs, m.ID)
		}
	}
	return next
}

// Service reads from the message store.
type Service struct {
	api   *client.Client
	log   *slog.Logger
	fetch retry.Policy
}

// New creates a message service.
func New(api *client.Client, log *slog.Logger) *Service {
	return &Service{
		api:   api,
		log:   log,
		fetch: retry.Fixed(3, time.Second),
	}
}

// Messages lists messages in a location.
func (s *Service) Messages(ctx context.Context, locationID string) ([]models.Message, error) {
	var msgs []models.Message
	query := url.Values{"location": {locationID}}
	err := s.fetch.Do(ctx, func(ctx context.Context) error {
		return s.api.Get(ctx, messagesPath, query, &msgs)
	})
	if err != nil {
		return nil, fmt.Errorf("list messages for %s: %w", locationID, err)
	}
	return msgs, nil
}

// Mentions lists messages mentioning the given name since a message ID.
func (s *Service) Mentions(ctx context.Context, name, since string) ([]models.Message, error) {
	var msgs []models.Message
	query := url.Values{"name": {name}}
	if since != "" {
		query.Set("since", since)
	}
	err := s.fetch.Do(ctx, func(ctx context.Context) error {
		return s.api.Get(ctx, mentionsPath, query, &msgs)
	})
	if err != nil {
		return nil, fmt.Errorf("list mentions for %s: %w", name, err)
	}
	return msgs, nil
}

// Fetch gathers messages across the avatar's remembered locations, drops
// everything the high-water mark has already covered (timestamp ties are
// resolved by ID), then sorts ascending by creation time and keeps the most
// recent windowSize. Filtering happens before truncation so unseen messages
// are never lost to the cap.
func (s *Service) Fetch(ctx context.Context, avatar *models.Avatar, locations []models.Location, mark Mark) ([]models.Message, error) {
	names := avatar.RememberedLocations()

	var (
		mu  sync.Mutex
		all []models.Message
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, name := range names {
		loc := models.FindLocation(locations, name)
		if loc == nil {
			continue
		}
		locationID := loc.ID
		g.Go(func() error {
			msgs, err := s.Messages(gctx, locationID)
			if err != nil {
				return err
			}
			mu.Lock()
			all = append(all, msgs...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if !mark.Zero() {
		unseen := all[:0]
		for _, m := range all {
			if m.CreatedAt.After(mark.At) ||
				(m.CreatedAt.Equal(mark.At) && !mark.Seen(m.ID)) {
				unseen = append(unseen, m)
			}
		}
		all = unseen
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	if len(all) > windowSize {
		all = all[len(all)-windowSize:]
	}
	return all, nil
}
