package world

import (
	"context"
	"fmt"

	"github.com/aviary-sim/aviary/internal/models"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Crafting artifacts: new items can only be created where both are present.
const (
	artifactLantern = "Moonlit Lantern"
	artifactSphere  = "Celestial Sphere"
)

// itemRecord is the stored shape of an item.
type itemRecord struct {
	ID          surrealmodels.RecordID `json:"id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Location    string                 `json:"location"`
	TakenBy     *string                `json:"taken_by,omitempty"`
	AvatarURL   string                 `json:"avatar,omitempty"`
}

func (r itemRecord) toModel() models.Item {
	item := models.Item{
		Name:        r.Name,
		Description: r.Description,
		Location:    r.Location,
		AvatarURL:   r.AvatarURL,
	}
	if r.TakenBy != nil {
		item.TakenBy = *r.TakenBy
	}
	return item
}

func toItems(records []itemRecord) []models.Item {
	items := make([]models.Item, len(records))
	for i, r := range records {
		items[i] = r.toModel()
	}
	return items
}

func firstResult[T any](results *[]surrealdb.QueryResult[T]) []T {
	if results == nil || len(*results) == 0 {
		return nil
	}
	return []T{(*results)[0].Result}
}

// Item retrieves an item by name. Returns nil if it does not exist.
func (s *Store) Item(ctx context.Context, name string) (*models.Item, error) {
	results, err := surrealdb.Query[[]itemRecord](ctx, s.db, `
		SELECT * FROM item WHERE name = $name LIMIT 1
	`, map[string]any{"name": name})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	records := firstResult(results)
	if len(records) == 0 || len(records[0]) == 0 {
		return nil, nil
	}
	item := records[0][0].toModel()
	return &item, nil
}

// Items lists every item in the world, ordered by name.
func (s *Store) Items(ctx context.Context) ([]models.Item, error) {
	results, err := surrealdb.Query[[]itemRecord](ctx, s.db, `
		SELECT * FROM item ORDER BY name
	`, nil)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	records := firstResult(results)
	if len(records) == 0 {
		return []models.Item{}, nil
	}
	return toItems(records[0]), nil
}

// ItemsByHolder lists the items an avatar is carrying.
func (s *Store) ItemsByHolder(ctx context.Context, holder string) ([]models.Item, error) {
	results, err := surrealdb.Query[[]itemRecord](ctx, s.db, `
		SELECT * FROM item WHERE taken_by = $holder
	`, map[string]any{"holder": holder})
	if err != nil {
		return nil, fmt.Errorf("items by holder: %w", err)
	}
	records := firstResult(results)
	if len(records) == 0 {
		return []models.Item{}, nil
	}
	return toItems(records[0]), nil
}

// ItemsByLocation lists the items lying in a location.
func (s *Store) ItemsByLocation(ctx context.Context, location string) ([]models.Item, error) {
	results, err := surrealdb.Query[[]itemRecord](ctx, s.db, `
		SELECT * FROM item WHERE location = $location
	`, map[string]any{"location": location})
	if err != nil {
		return nil, fmt.Errorf("items by location: %w", err)
	}
	records := firstResult(results)
	if len(records) == 0 {
		return []models.Item{}, nil
	}
	return toItems(records[0]), nil
}

// Take marks an item as held by the avatar. The update only matches while
// taken_by is NONE, so two avatars racing for the same item cannot both win.
func (s *Store) Take(ctx context.Context, avatarName, itemName string) (bool, error) {
	results, err := surrealdb.Query[[]itemRecord](ctx, s.db, `
		UPDATE item SET taken_by = $avatar WHERE name = $name AND taken_by = NONE
	`, map[string]any{"avatar": avatarName, "name": itemName})
	if err != nil {
		return false, fmt.Errorf("take item: %w", err)
	}
	records := firstResult(results)
	return len(records) > 0 && len(records[0]) > 0, nil
}

// Drop releases an item. Only the current holder's update matches.
func (s *Store) Drop(ctx context.Context, avatarName, itemName string) (bool, error) {
	results, err := surrealdb.Query[[]itemRecord](ctx, s.db, `
		UPDATE item SET taken_by = NONE WHERE name = $name AND taken_by = $avatar
	`, map[string]any{"avatar": avatarName, "name": itemName})
	if err != nil {
		return false, fmt.Errorf("drop item: %w", err)
	}
	records := firstResult(results)
	return len(records) > 0 && len(records[0]) > 0, nil
}

// SyncItemLocations moves every held item to its holder's current location.
// holderLocation maps avatar names to location names; holders missing from
// the map keep their last known spot.
func (s *Store) SyncItemLocations(ctx context.Context, holderLocation map[string]string) error {
	results, err := surrealdb.Query[[]itemRecord](ctx, s.db, `
		SELECT * FROM item WHERE taken_by != NONE
	`, nil)
	if err != nil {
		return fmt.Errorf("list held items: %w", err)
	}
	records := firstResult(results)
	if len(records) == 0 {
		return nil
	}
	for _, record := range records[0] {
		if record.TakenBy == nil {
			continue
		}
		location, ok := holderLocation[*record.TakenBy]
		if !ok || location == record.Location {
			continue
		}
		_, err := surrealdb.Query[any](ctx, s.db, `
			UPDATE item SET location = $location WHERE name = $name
		`, map[string]any{"location": location, "name": record.Name})
		if err != nil {
			return fmt.Errorf("sync item %s: %w", record.Name, err)
		}
	}
	return nil
}

// CreateItem inserts a new item and returns a user-visible result message.
// Creation requires the two crafting artifacts to be present in the target
// location (when they exist at all) and rejects duplicate names. The message
// is data for the avatar, not an error.
func (s *Store) CreateItem(ctx context.Context, item models.Item) (string, error) {
	lantern, err := s.Item(ctx, artifactLantern)
	if err != nil {
		return "", err
	}
	sphere, err := s.Item(ctx, artifactSphere)
	if err != nil {
		return "", err
	}
	if lantern != nil && sphere != nil {
		if lantern.Location != item.Location || sphere.Location != item.Location {
			return "Item NOT Created. The Moonlit Lantern and Celestial Sphere must both be present to create.", nil
		}
	}

	existing, err := s.Item(ctx, item.Name)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return "Item with the same name already exists.", nil
	}

	_, err = surrealdb.Query[any](ctx, s.db, `
		CREATE item CONTENT {
			name: $name,
			description: $description,
			location: $location,
			taken_by: NONE,
			avatar: $avatar
		}
	`, map[string]any{
		"name":        item.Name,
		"description": item.Description,
		"location":    item.Location,
		"avatar":      item.AvatarURL,
	})
	if err != nil {
		return "", fmt.Errorf("create item: %w", err)
	}
	return fmt.Sprintf("🔮 %s successfully created", item.Name), nil
}
