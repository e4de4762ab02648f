package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/target/passkey-lab/internal/data/pgxutil"
)

// Collection names the store recognizes. Table names are never interpolated
// from caller input outside this allowlist.
const (
	CollectionUsers       = "users"
	CollectionCredentials = "public_key_credentials"
	CollectionMappings    = "federation_mappings"
)

var knownCollections = map[string]struct{}{
	CollectionUsers:       {},
	CollectionCredentials: {},
	CollectionMappings:    {},
}

// DocumentStore is a key-to-JSON-document store backed by PostgreSQL JSONB
// tables, one table per collection. Secondary lookups resolve through
// expression indexes created by the migrations.
type DocumentStore struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewDocumentStore creates a DocumentStore with the real time provider.
func NewDocumentStore(db *sql.DB) *DocumentStore {
	return &DocumentStore{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewDocumentStoreWithTimeProvider creates a DocumentStore with a custom time
// provider (useful for tests).
func NewDocumentStoreWithTimeProvider(db *sql.DB, tp TimeProvider) *DocumentStore {
	return &DocumentStore{DB: db, timeProvider: tp}
}

func checkCollection(collection string) error {
	if _, ok := knownCollections[collection]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}
	return nil
}

// Find returns the document stored under key, or ErrDocNotFound.
func (s *DocumentStore) Find(ctx context.Context, collection, key string) (json.RawMessage, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	if key == "" {
		return nil, ErrDocNotFound
	}

	var doc []byte
	query := fmt.Sprintf(`SELECT doc FROM %s WHERE key = $1`, collection)
	if err := pgxutil.WithPgxConn(ctx, s.DB, func(conn *pgx.Conn) error {
		return conn.QueryRow(ctx, query, key).Scan(&doc)
	}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDocNotFound
		}
		return nil, fmt.Errorf("find %s/%s: %w", collection, key, err)
	}
	return doc, nil
}

// FindWhere returns all documents whose top-level field equals value.
func (s *DocumentStore) FindWhere(ctx context.Context, collection, field, value string) ([]json.RawMessage, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT doc FROM %s WHERE doc->>$1 = $2 ORDER BY key`, collection)
	return s.queryDocs(ctx, query, field, value)
}

// FindWhereBefore returns up to limit documents whose timestamp field is set
// and earlier than cutoff. Used by the retention sweep.
func (s *DocumentStore) FindWhereBefore(ctx context.Context, collection, field string, cutoff time.Time, limit int) ([]json.RawMessage, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}

	query := fmt.Sprintf(`
		SELECT doc FROM %s
		WHERE doc->>$1 IS NOT NULL AND (doc->>$1)::timestamptz < $2
		ORDER BY key
		LIMIT $3`, collection)
	return s.queryDocs(ctx, query, field, cutoff.UTC(), limit)
}

func (s *DocumentStore) queryDocs(ctx context.Context, query string, args ...any) ([]json.RawMessage, error) {
	var out []json.RawMessage
	if err := pgxutil.WithPgxConn(ctx, s.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var doc []byte
			if scanErr := rows.Scan(&doc); scanErr != nil {
				return scanErr
			}
			out = append(out, doc)
		}
		return rows.Err()
	}); err != nil {
		return nil, fmt.Errorf("find where: %w", err)
	}
	return out, nil
}

// Set stores the document under key, inserting or replacing as needed.
// Unique-index violations (username, passkey handle) surface as pg errors
// for the typed repositories to classify.
func (s *DocumentStore) Set(ctx context.Context, collection, key string, doc any) error {
	if err := checkCollection(collection); err != nil {
		return err
	}
	if key == "" {
		return errors.New("document key is required")
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (key, doc, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET doc = EXCLUDED.doc, updated_at = EXCLUDED.updated_at`,
		collection)
	updatedAt := s.timeProvider.Now().UTC()
	if err := pgxutil.WithPgxConn(ctx, s.DB, func(conn *pgx.Conn) error {
		_, execErr := conn.Exec(ctx, query, key, payload, updatedAt)
		return execErr
	}); err != nil {
		return err
	}
	return nil
}

// Delete removes the document under key. Deleting an absent key returns
// ErrDocNotFound so callers can distinguish idempotent repeats.
func (s *DocumentStore) Delete(ctx context.Context, collection, key string) error {
	if err := checkCollection(collection); err != nil {
		return err
	}
	if key == "" {
		return ErrDocNotFound
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, collection)
	var deleted int64
	if err := pgxutil.WithPgxConn(ctx, s.DB, func(conn *pgx.Conn) error {
		tag, execErr := conn.Exec(ctx, query, key)
		if execErr != nil {
			return execErr
		}
		deleted = tag.RowsAffected()
		return nil
	}); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, key, err)
	}
	if deleted == 0 {
		return ErrDocNotFound
	}
	return nil
}

// DeleteWhere removes all documents whose field equals value and returns the
// number removed.
func (s *DocumentStore) DeleteWhere(ctx context.Context, collection, field, value string) (int64, error) {
	if err := checkCollection(collection); err != nil {
		return 0, err
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE doc->>$1 = $2`, collection)
	var deleted int64
	if err := pgxutil.WithPgxConn(ctx, s.DB, func(conn *pgx.Conn) error {
		tag, execErr := conn.Exec(ctx, query, field, value)
		if execErr != nil {
			return execErr
		}
		deleted = tag.RowsAffected()
		return nil
	}); err != nil {
		return 0, fmt.Errorf("delete where: %w", err)
	}
	return deleted, nil
}
