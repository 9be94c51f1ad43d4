// Package chronicle periodically refreshes each avatar's slow narrative
// state: a dream, a memory grounded in recent conversation, and a journal
// entry.
package chronicle

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aviary-sim/aviary/internal/llm"
	"github.com/aviary-sim/aviary/internal/models"
)

// DefaultInterval is how often all avatars are chronicled.
const DefaultInterval = 6 * time.Hour

// roster lists the avatars to chronicle, bound to their locations.
type roster interface {
	InitializeAvatars(ctx context.Context) ([]*models.Avatar, []models.Location, error)
}

// reader fetches recent messages from a location.
type reader interface {
	Messages(ctx context.Context, locationID string) ([]models.Message, error)
}

// contextStore persists the generated narrative state.
type contextStore interface {
	SaveCharacterContext(ctx context.Context, cc models.CharacterContext) error
}

// Chronicler walks the roster and rewrites each avatar's dream, memory and
// journal. One avatar failing never stops the others.
type Chronicler struct {
	directory roster
	messages  reader
	store     contextStore
	completer llm.Completer
	log       *slog.Logger
}

// New creates a chronicler.
func New(directory roster, messages reader, store contextStore, completer llm.Completer, log *slog.Logger) *Chronicler {
	return &Chronicler{
		directory: directory,
		messages:  messages,
		store:     store,
		completer: completer,
		log:       log,
	}
}

// Run chronicles on the interval until the context ends. The first pass
// waits a full interval; a fresh daemon has nothing to chronicle yet.
func (c *Chronicler) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.UpdateAll(ctx)
		}
	}
}

// UpdateAll refreshes every avatar's narrative state sequentially.
func (c *Chronicler) UpdateAll(ctx context.Context) {
	avatars, _, err := c.directory.InitializeAvatars(ctx)
	if err != nil {
		c.log.Error("chronicle pass skipped", "error", err)
		return
	}

	c.log.Info("chronicling avatars", "count", len(avatars))
	for _, avatar := range avatars {
		if err := c.Update(ctx, avatar); err != nil {
			c.log.Error("failed to chronicle avatar", "avatar", avatar.Name, "error", err)
		}
	}
}

// Update regenerates one avatar's dream, memory and journal and persists
// them.
func (c *Chronicler) Update(ctx context.Context, avatar *models.Avatar) error {
	if avatar.Location == nil {
		return fmt.Errorf("avatar %s has no location", avatar.Name)
	}

	msgs, err := c.messages.Messages(ctx, avatar.Location.ID)
	if err != nil {
		return fmt.Errorf("fetch recent messages: %w", err)
	}
	lines := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		lines = append(lines, fmt.Sprintf("%s: %s", msg.Author.Name(), msg.Content))
	}
	recent := strings.Join(lines, "\n")

	persona := llm.PersonaFor(avatar)
	dream, err := c.completer.Complete(ctx, persona, prompt(
		fmt.Sprintf("As %s, describe your dream.", avatar.Name)))
	if err != nil {
		return fmt.Errorf("dream: %w", err)
	}
	memory, err := c.completer.Complete(ctx, persona, prompt(
		fmt.Sprintf("As %s, recall a memory based on these recent messages: \n%s", avatar.Name, recent)))
	if err != nil {
		return fmt.Errorf("memory: %w", err)
	}
	journal, err := c.completer.Complete(ctx, persona, prompt(
		fmt.Sprintf("As %s, write a journal entry about your recent experiences.", avatar.Name)))
	if err != nil {
		return fmt.Errorf("journal: %w", err)
	}

	cc := models.CharacterContext{Name: avatar.Name, Dream: dream, Memory: memory, Journal: journal}
	if err := c.store.SaveCharacterContext(ctx, cc); err != nil {
		return fmt.Errorf("persist character context: %w", err)
	}

	c.log.Info("chronicled avatar", "avatar", avatar.Name)
	return nil
}

func prompt(content string) []models.Turn {
	return []models.Turn{{Role: models.RoleUser, Content: content}}
}
