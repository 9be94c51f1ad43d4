// Package world provides the SurrealDB-backed item, room and character
// store with auto-reconnect support.
package world

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/contrib/rews"
	"github.com/surrealdb/surrealdb.go/pkg/connection"
	"github.com/surrealdb/surrealdb.go/pkg/connection/gorillaws"
	"github.com/surrealdb/surrealdb.go/pkg/logger"
	"github.com/surrealdb/surrealdb.go/surrealcbor"
)

func init() {
	// Force HTTP/1.1 for WSS connections to prevent HTTP/2 ALPN negotiation.
	// WebSocket upgrade requires HTTP/1.1 semantics which fail under HTTP/2.
	gorillaws.DefaultDialer.TLSClientConfig = &tls.Config{
		NextProtos: []string{"http/1.1"},
	}
}

// Config holds SurrealDB connection configuration.
type Config struct {
	URL       string
	Namespace string
	Database  string
	Username  string
	Password  string
}

// Store wraps the SurrealDB connection with auto-reconnect.
type Store struct {
	conn   *rews.Connection[*gorillaws.Connection]
	db     *surrealdb.DB
	cfg    Config
	logger logger.Logger
}

// NewStore connects to SurrealDB with an auto-reconnecting WebSocket.
func NewStore(ctx context.Context, cfg Config, log *slog.Logger) (*Store, error) {
	var sdkLogger logger.Logger
	if log != nil {
		sdkLogger = logger.New(log.Handler())
	} else {
		sdkLogger = logger.New(slog.Default().Handler())
	}

	// surrealcbor handles SurrealDB's custom CBOR tags
	codec := surrealcbor.New()

	// gorillaws requires the URL without the /rpc suffix (it adds it)
	baseURL := strings.TrimSuffix(cfg.URL, "/rpc")

	conn := rews.New(
		func(ctx context.Context) (*gorillaws.Connection, error) {
			ws := gorillaws.New(&connection.Config{
				BaseURL:     baseURL,
				Marshaler:   codec,
				Unmarshaler: codec,
				Logger:      sdkLogger,
			})
			return ws, nil
		},
		5*time.Second,
		codec,
		sdkLogger,
	)

	retryer := rews.NewExponentialBackoffRetryer()
	retryer.InitialDelay = 1 * time.Second
	retryer.MaxDelay = 30 * time.Second
	retryer.Multiplier = 2.0
	retryer.MaxRetries = 10
	conn.Retryer = retryer

	sdkLogger.Info("connecting to SurrealDB", "url", cfg.URL)
	if err := conn.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	db, err := surrealdb.FromConnection(ctx, conn)
	if err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("from connection: %w", err)
	}

	if _, err := db.SignIn(ctx, surrealdb.Auth{
		Username: cfg.Username,
		Password: cfg.Password,
	}); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("signin: %w", err)
	}

	if err := db.Use(ctx, cfg.Namespace, cfg.Database); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("use: %w", err)
	}

	sdkLogger.Info("SurrealDB connection established")
	return &Store{conn: conn, db: db, cfg: cfg, logger: sdkLogger}, nil
}

// Close closes the SurrealDB connection.
func (s *Store) Close(ctx context.Context) error {
	s.logger.Info("closing SurrealDB connection")
	return s.conn.Close(ctx)
}

// SchemaSQL defines the world tables. Items are keyed by name; taken_by is
// NONE while an item lies in a room.
const SchemaSQL = `
    DEFINE TABLE IF NOT EXISTS item SCHEMALESS;
    DEFINE FIELD IF NOT EXISTS name ON item TYPE string;
    DEFINE FIELD IF NOT EXISTS description ON item TYPE string;
    DEFINE FIELD IF NOT EXISTS location ON item TYPE string;
    DEFINE FIELD IF NOT EXISTS taken_by ON item TYPE option<string>;
    DEFINE INDEX IF NOT EXISTS item_name ON item FIELDS name UNIQUE;
    DEFINE INDEX IF NOT EXISTS item_location ON item FIELDS location;

    DEFINE TABLE IF NOT EXISTS room SCHEMALESS;
    DEFINE FIELD IF NOT EXISTS name ON room TYPE string;
    DEFINE FIELD IF NOT EXISTS description ON room TYPE string;
    DEFINE INDEX IF NOT EXISTS room_name ON room FIELDS name UNIQUE;

    DEFINE TABLE IF NOT EXISTS character SCHEMALESS;
    DEFINE FIELD IF NOT EXISTS name ON character TYPE string;
    DEFINE FIELD IF NOT EXISTS updated ON character TYPE datetime DEFAULT time::now();
    DEFINE INDEX IF NOT EXISTS character_name ON character FIELDS name UNIQUE;
`

// InitSchema initializes the database schema.
func (s *Store) InitSchema(ctx context.Context) error {
	if _, err := surrealdb.Query[any](ctx, s.db, SchemaSQL, nil); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// Query executes a SurrealQL query with parameters, for tests and cleanup.
func (s *Store) Query(ctx context.Context, sql string, vars map[string]any) (*[]surrealdb.QueryResult[any], error) {
	return surrealdb.Query[any](ctx, s.db, sql, vars)
}
