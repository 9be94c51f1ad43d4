package world

import (
	"context"
	"fmt"

	"github.com/aviary-sim/aviary/internal/models"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

type roomRecord struct {
	ID          surrealmodels.RecordID `json:"id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
}

// EnsureRoom returns the room with the given name, creating it with a
// default description when an avatar wanders somewhere new.
func (s *Store) EnsureRoom(ctx context.Context, name string) (*models.Room, error) {
	results, err := surrealdb.Query[[]roomRecord](ctx, s.db, `
		SELECT * FROM room WHERE name = $name LIMIT 1
	`, map[string]any{"name": name})
	if err != nil {
		return nil, fmt.Errorf("get room: %w", err)
	}
	records := firstResult(results)
	if len(records) > 0 && len(records[0]) > 0 {
		r := records[0][0]
		return &models.Room{Name: r.Name, Description: r.Description}, nil
	}

	room := models.Room{
		Name:        name,
		Description: fmt.Sprintf("A newly discovered room called %s.", name),
	}
	_, err = surrealdb.Query[any](ctx, s.db, `
		CREATE room CONTENT { name: $name, description: $description }
	`, map[string]any{"name": room.Name, "description": room.Description})
	if err != nil {
		return nil, fmt.Errorf("create room: %w", err)
	}
	return &room, nil
}

// SaveCharacterContext upserts the chronicler's narrative state for a
// character.
func (s *Store) SaveCharacterContext(ctx context.Context, cc models.CharacterContext) error {
	_, err := surrealdb.Query[any](ctx, s.db, `
		UPSERT character SET
			name = $name,
			dream = $dream,
			memory = $memory,
			journal = $journal,
			updated = time::now()
		WHERE name = $name
	`, map[string]any{
		"name":    cc.Name,
		"dream":   cc.Dream,
		"memory":  cc.Memory,
		"journal": cc.Journal,
	})
	if err != nil {
		return fmt.Errorf("save character context: %w", err)
	}
	return nil
}

// CharacterContext fetches the stored narrative state, nil if absent.
func (s *Store) CharacterContext(ctx context.Context, name string) (*models.CharacterContext, error) {
	results, err := surrealdb.Query[[]models.CharacterContext](ctx, s.db, `
		SELECT name, dream, memory, journal FROM character WHERE name = $name LIMIT 1
	`, map[string]any{"name": name})
	if err != nil {
		return nil, fmt.Errorf("get character context: %w", err)
	}
	records := firstResult(results)
	if len(records) == 0 || len(records[0]) == 0 {
		return nil, nil
	}
	cc := records[0][0]
	return &cc, nil
}
