package uploads

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/packbazaar/bazaar/pkg/packfile"
)

// Store persists upload records in a SQL database. Queries are written
// with ? placeholders and rebound for postgres at execution time, so the
// same store runs against lib/pq and go-sqlite3.
type Store struct {
	db       *sql.DB
	postgres bool
}

// NewStore creates an upload store. driverName selects placeholder style
// ("postgres" or "sqlite3").
func NewStore(db *sql.DB, driverName string) *Store {
	return &Store{db: db, postgres: driverName == "postgres"}
}

// rebind converts ? placeholders to $n for postgres
func (s *Store) rebind(query string) string {
	if !s.postgres {
		return query
	}
	out := make([]byte, 0, len(query)+8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			out = append(out, fmt.Sprintf("$%d", n)...)
			continue
		}
		out = append(out, query[i])
	}
	return string(out)
}

// Migrate creates the uploads table if it does not exist
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS uploads (
			id               TEXT PRIMARY KEY,
			owner_id         TEXT,
			filename         TEXT NOT NULL,
			content_type     TEXT NOT NULL,
			size             BIGINT NOT NULL,
			blob_key         TEXT NOT NULL,
			validity         TEXT NOT NULL,
			validation_error TEXT NOT NULL DEFAULT '',
			descriptor       TEXT,
			created_at       TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to migrate uploads table: %w", err)
	}
	return nil
}

// Create inserts a new upload record
func (s *Store) Create(ctx context.Context, upload *Upload) error {
	var descriptor interface{}
	if upload.Descriptor != nil {
		data, err := json.Marshal(upload.Descriptor)
		if err != nil {
			return fmt.Errorf("failed to marshal descriptor: %w", err)
		}
		descriptor = string(data)
	}

	query := s.rebind(`
		INSERT INTO uploads (
			id, owner_id, filename, content_type, size, blob_key,
			validity, validation_error, descriptor, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)

	_, err := s.db.ExecContext(ctx, query,
		upload.ID, upload.OwnerID, upload.Filename, upload.ContentType,
		upload.Size, upload.BlobKey, string(upload.Validity),
		upload.ValidationError, descriptor, upload.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert upload: %w", err)
	}
	return nil
}

// Get retrieves an upload record by id
func (s *Store) Get(ctx context.Context, id string) (*Upload, error) {
	query := s.rebind(`
		SELECT id, owner_id, filename, content_type, size, blob_key,
		       validity, validation_error, descriptor, created_at
		FROM uploads
		WHERE id = ?
	`)

	var upload Upload
	var validity string
	var descriptor sql.NullString
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&upload.ID, &upload.OwnerID, &upload.Filename, &upload.ContentType,
		&upload.Size, &upload.BlobKey, &validity,
		&upload.ValidationError, &descriptor, &upload.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get upload: %w", err)
	}

	upload.Validity = Validity(validity)
	if descriptor.Valid && descriptor.String != "" {
		var d packfile.Descriptor
		if err := json.Unmarshal([]byte(descriptor.String), &d); err != nil {
			return nil, fmt.Errorf("failed to unmarshal descriptor: %w", err)
		}
		upload.Descriptor = d
	}

	return &upload, nil
}

// DeleteOlderThan removes upload records created before the cutoff and
// returns how many were removed. Blob payloads are left alone: promoted
// entities reference them by content key.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := s.rebind(`DELETE FROM uploads WHERE created_at < ?`)

	res, err := s.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale uploads: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted uploads: %w", err)
	}
	return n, nil
}
