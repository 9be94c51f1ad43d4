// Package world contains integration tests for the SurrealDB world store.
package world

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/aviary-sim/aviary/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var testStore *Store

// TestMain sets up and tears down the SurrealDB container for all tests.
func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	// Disable ryuk (cleanup container) as it can cause issues in some environments
	os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "surrealdb/surrealdb:v3.0.0-beta.1",
			ExposedPorts: []string{"8000/tcp"},
			Cmd:          []string{"start", "--log", "info", "--user", "root", "--pass", "root"},
			WaitingFor:   wait.ForLog("Started web server").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("Failed to start SurrealDB container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		log.Fatalf("Failed to get container host: %v", err)
	}
	if host == "" || host == "null" {
		host = "localhost"
	}
	mappedPort, err := container.MappedPort(ctx, "8000")
	if err != nil {
		log.Fatalf("Failed to get mapped port: %v", err)
	}

	testStore, err = NewStore(ctx, Config{
		URL:       fmt.Sprintf("ws://%s:%s/rpc", host, mappedPort.Port()),
		Namespace: "test",
		Database:  "test",
		Username:  "root",
		Password:  "root",
	}, nil)
	if err != nil {
		log.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := testStore.InitSchema(ctx); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	code := m.Run()

	_ = testStore.Close(ctx)
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func testContext(t *testing.T) context.Context {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func wipeItems(t *testing.T, ctx context.Context) {
	t.Helper()
	_, err := testStore.Query(ctx, `DELETE item; DELETE room; DELETE character`, nil)
	require.NoError(t, err)
}

func seedItem(t *testing.T, ctx context.Context, item models.Item) {
	t.Helper()
	vars := map[string]any{
		"name":        item.Name,
		"description": item.Description,
		"location":    item.Location,
	}
	sql := `CREATE item CONTENT { name: $name, description: $description, location: $location, taken_by: NONE }`
	if item.TakenBy != "" {
		vars["taken_by"] = item.TakenBy
		sql = `CREATE item CONTENT { name: $name, description: $description, location: $location, taken_by: $taken_by }`
	}
	_, err := testStore.Query(ctx, sql, vars)
	require.NoError(t, err)
}

func TestTakeAndDrop(t *testing.T) {
	ctx := testContext(t)
	wipeItems(t, ctx)
	seedItem(t, ctx, models.Item{Name: "Lantern", Description: "an old lantern", Location: "Forest"})

	ok, err := testStore.Take(ctx, "Luna", "Lantern")
	require.NoError(t, err)
	assert.True(t, ok)

	item, err := testStore.Item(ctx, "Lantern")
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, "Luna", item.TakenBy)

	// A second avatar cannot take a held item; the update matches nothing.
	ok, err = testStore.Take(ctx, "Rook", "Lantern")
	require.NoError(t, err)
	assert.False(t, ok)
	item, err = testStore.Item(ctx, "Lantern")
	require.NoError(t, err)
	assert.Equal(t, "Luna", item.TakenBy)

	// Only the holder can drop.
	ok, err = testStore.Drop(ctx, "Rook", "Lantern")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = testStore.Drop(ctx, "Luna", "Lantern")
	require.NoError(t, err)
	assert.True(t, ok)
	item, err = testStore.Item(ctx, "Lantern")
	require.NoError(t, err)
	assert.False(t, item.Held())
}

func TestTakeMissingItem(t *testing.T) {
	ctx := testContext(t)
	wipeItems(t, ctx)

	ok, err := testStore.Take(ctx, "Luna", "Nonexistent")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestItemsByHolderAndLocation(t *testing.T) {
	ctx := testContext(t)
	wipeItems(t, ctx)
	seedItem(t, ctx, models.Item{Name: "Map", Location: "Forest", TakenBy: "Luna"})
	seedItem(t, ctx, models.Item{Name: "Compass", Location: "Forest"})
	seedItem(t, ctx, models.Item{Name: "Oar", Location: "Lake"})

	held, err := testStore.ItemsByHolder(ctx, "Luna")
	require.NoError(t, err)
	require.Len(t, held, 1)
	assert.Equal(t, "Map", held[0].Name)

	inForest, err := testStore.ItemsByLocation(ctx, "Forest")
	require.NoError(t, err)
	assert.Len(t, inForest, 2)
}

func TestSyncItemLocationsFollowsHolder(t *testing.T) {
	ctx := testContext(t)
	wipeItems(t, ctx)
	seedItem(t, ctx, models.Item{Name: "Map", Location: "Forest", TakenBy: "Luna"})
	seedItem(t, ctx, models.Item{Name: "Compass", Location: "Forest"})

	err := testStore.SyncItemLocations(ctx, map[string]string{"Luna": "Lake"})
	require.NoError(t, err)

	item, err := testStore.Item(ctx, "Map")
	require.NoError(t, err)
	assert.Equal(t, "Lake", item.Location)

	// Unheld items stay put.
	item, err = testStore.Item(ctx, "Compass")
	require.NoError(t, err)
	assert.Equal(t, "Forest", item.Location)
}

func TestCreateItemArtifactPrecondition(t *testing.T) {
	ctx := testContext(t)
	wipeItems(t, ctx)
	seedItem(t, ctx, models.Item{Name: "Moonlit Lantern", Location: "Forest"})
	seedItem(t, ctx, models.Item{Name: "Celestial Sphere", Location: "Lake"})

	msg, err := testStore.CreateItem(ctx, models.Item{Name: "Wand", Description: "a twig", Location: "Forest"})
	require.NoError(t, err)
	assert.Equal(t, "Item NOT Created. The Moonlit Lantern and Celestial Sphere must both be present to create.", msg)

	item, err := testStore.Item(ctx, "Wand")
	require.NoError(t, err)
	assert.Nil(t, item, "no insert may happen when the precondition fails")
}

func TestCreateItemSucceedsWithArtifactsPresent(t *testing.T) {
	ctx := testContext(t)
	wipeItems(t, ctx)
	seedItem(t, ctx, models.Item{Name: "Moonlit Lantern", Location: "Forest"})
	seedItem(t, ctx, models.Item{Name: "Celestial Sphere", Location: "Forest"})

	msg, err := testStore.CreateItem(ctx, models.Item{Name: "Wand", Description: "a twig", Location: "Forest"})
	require.NoError(t, err)
	assert.Equal(t, "🔮 Wand successfully created", msg)

	// Duplicate names are rejected.
	msg, err = testStore.CreateItem(ctx, models.Item{Name: "Wand", Description: "another twig", Location: "Forest"})
	require.NoError(t, err)
	assert.Equal(t, "Item with the same name already exists.", msg)
}

func TestCreateItemWithoutArtifactsInWorld(t *testing.T) {
	ctx := testContext(t)
	wipeItems(t, ctx)

	// When the artifacts don't exist at all the precondition is waived.
	msg, err := testStore.CreateItem(ctx, models.Item{Name: "Pebble", Description: "a pebble", Location: "Lake"})
	require.NoError(t, err)
	assert.Equal(t, "🔮 Pebble successfully created", msg)
}

func TestEnsureRoomCreatesOnce(t *testing.T) {
	ctx := testContext(t)
	wipeItems(t, ctx)

	room, err := testStore.EnsureRoom(ctx, "Grotto")
	require.NoError(t, err)
	assert.Equal(t, "A newly discovered room called Grotto.", room.Description)

	_, err = testStore.Query(ctx, `UPDATE room SET description = "dripping walls" WHERE name = "Grotto"`, nil)
	require.NoError(t, err)

	room, err = testStore.EnsureRoom(ctx, "Grotto")
	require.NoError(t, err)
	assert.Equal(t, "dripping walls", room.Description)
}

func TestCharacterContextRoundTrip(t *testing.T) {
	ctx := testContext(t)
	wipeItems(t, ctx)

	err := testStore.SaveCharacterContext(ctx, models.CharacterContext{
		Name: "Luna", Dream: "of moths", Memory: "the lake at dusk", Journal: "quiet day",
	})
	require.NoError(t, err)

	cc, err := testStore.CharacterContext(ctx, "Luna")
	require.NoError(t, err)
	require.NotNil(t, cc)
	assert.Equal(t, "of moths", cc.Dream)

	// Upsert replaces, never duplicates.
	err = testStore.SaveCharacterContext(ctx, models.CharacterContext{Name: "Luna", Dream: "of lanterns"})
	require.NoError(t, err)
	cc, err = testStore.CharacterContext(ctx, "Luna")
	require.NoError(t, err)
	assert.Equal(t, "of lanterns", cc.Dream)
}
