package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// cacheSize bounds the detail-read cache; listings always hit the database
const cacheSize = 512

// Store persists catalog entities. Queries use ? placeholders rebound for
// postgres at execution time, so the same store runs against lib/pq and
// go-sqlite3. Detail reads go through an LRU cache invalidated on every
// write.
type Store struct {
	db       *sql.DB
	postgres bool
	cache    *lru.Cache[string, Entity]
}

// NewStore creates a catalog store. driverName selects placeholder style
// ("postgres" or "sqlite3").
func NewStore(db *sql.DB, driverName string) (*Store, error) {
	cache, err := lru.New[string, Entity](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create entity cache: %w", err)
	}
	return &Store{db: db, postgres: driverName == "postgres", cache: cache}, nil
}

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

// Migrate creates the entities table if it does not exist
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS entities (
			id               TEXT PRIMARY KEY,
			kind             TEXT NOT NULL,
			name             TEXT NOT NULL DEFAULT '',
			authors          TEXT NOT NULL DEFAULT '[]',
			filename         TEXT NOT NULL DEFAULT '',
			hash             TEXT NOT NULL,
			size             BIGINT NOT NULL,
			version          TEXT NOT NULL DEFAULT '',
			active           BOOLEAN NOT NULL DEFAULT FALSE,
			status           TEXT NOT NULL,
			language         TEXT NOT NULL DEFAULT '',
			platform_version TEXT NOT NULL DEFAULT '',
			description      TEXT NOT NULL DEFAULT '',
			created_at       TIMESTAMP NOT NULL,
			updated_at       TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to migrate entities table: %w", err)
	}
	return nil
}

// Create inserts a new entity
func (s *Store) Create(ctx context.Context, entity *Entity) error {
	authors, err := json.Marshal(entity.Authors)
	if err != nil {
		return fmt.Errorf("failed to marshal authors: %w", err)
	}

	query := s.rebind(`
		INSERT INTO entities (
			id, kind, name, authors, filename, hash, size, version,
			active, status, language, platform_version, description,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)

	_, err = s.db.ExecContext(ctx, query,
		entity.ID, string(entity.Kind), entity.Name, string(authors),
		entity.Filename, entity.Hash, entity.Size, entity.Version,
		entity.Active, string(entity.Status), entity.Language,
		entity.PlatformVersion, entity.Description,
		entity.CreatedAt, entity.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert entity: %w", err)
	}

	s.cache.Remove(entity.ID)
	return nil
}

// Update rewrites every mutable column of an existing entity
func (s *Store) Update(ctx context.Context, entity *Entity) error {
	authors, err := json.Marshal(entity.Authors)
	if err != nil {
		return fmt.Errorf("failed to marshal authors: %w", err)
	}

	query := s.rebind(`
		UPDATE entities SET
			name = ?, authors = ?, filename = ?, hash = ?, size = ?,
			version = ?, active = ?, status = ?, language = ?,
			platform_version = ?, description = ?, updated_at = ?
		WHERE id = ?
	`)

	res, err := s.db.ExecContext(ctx, query,
		entity.Name, string(authors), entity.Filename, entity.Hash,
		entity.Size, entity.Version, entity.Active, string(entity.Status),
		entity.Language, entity.PlatformVersion, entity.Description,
		entity.UpdatedAt, entity.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update entity: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check entity update: %w", err)
	}
	if n == 0 {
		return NewError(ErrNotFound, "no entity found")
	}

	s.cache.Remove(entity.ID)
	return nil
}

// Get retrieves an entity by id
func (s *Store) Get(ctx context.Context, id string) (*Entity, error) {
	if cached, ok := s.cache.Get(id); ok {
		entity := cached
		return &entity, nil
	}

	query := s.rebind(`
		SELECT id, kind, name, authors, filename, hash, size, version,
		       active, status, language, platform_version, description,
		       created_at, updated_at
		FROM entities
		WHERE id = ?
	`)

	entity, err := scanEntity(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, NewError(ErrNotFound, "no entity found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entity: %w", err)
	}

	s.cache.Add(id, *entity)
	return entity, nil
}

// Transition moves a pending entity to the target status. activate also
// flips the active flag on. The WHERE clause makes the update conditional
// on the pending state, so concurrent transitions serialize in the
// database and only one caller sees true.
func (s *Store) Transition(ctx context.Context, id string, kind Kind, to Status, activate bool) (bool, error) {
	var query string
	args := []interface{}{string(to), time.Now().UTC(), id, string(kind)}
	if activate {
		query = s.rebind(`
			UPDATE entities SET status = ?, active = TRUE, updated_at = ?
			WHERE id = ? AND kind = ? AND status = 'pending'
		`)
	} else {
		query = s.rebind(`
			UPDATE entities SET status = ?, updated_at = ?
			WHERE id = ? AND kind = ? AND status = 'pending'
		`)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to transition entity: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check entity transition: %w", err)
	}

	s.cache.Remove(id)
	return n > 0, nil
}

// Filter narrows a listing. Nil fields are unconstrained.
type Filter struct {
	Kind   Kind
	Status *Status
	Active *bool
}

// List returns entities matching the filter, newest first
func (s *Store) List(ctx context.Context, filter Filter) ([]*Entity, error) {
	query := `
		SELECT id, kind, name, authors, filename, hash, size, version,
		       active, status, language, platform_version, description,
		       created_at, updated_at
		FROM entities
		WHERE kind = ?
	`
	args := []interface{}{string(filter.Kind)}

	if filter.Status != nil {
		query += ` AND status = ?`
		args = append(args, string(*filter.Status))
	}
	if filter.Active != nil {
		query += ` AND active = ?`
		args = append(args, *filter.Active)
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}
	defer rows.Close()

	var entities []*Entity
	for rows.Next() {
		entity, err := scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entity: %w", err)
		}
		entities = append(entities, entity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entities: %w", err)
	}
	return entities, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntity(row rowScanner) (*Entity, error) {
	var entity Entity
	var kind, status, authors string
	err := row.Scan(
		&entity.ID, &kind, &entity.Name, &authors, &entity.Filename,
		&entity.Hash, &entity.Size, &entity.Version, &entity.Active,
		&status, &entity.Language, &entity.PlatformVersion,
		&entity.Description, &entity.CreatedAt, &entity.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	entity.Kind = Kind(kind)
	entity.Status = Status(status)
	if err := json.Unmarshal([]byte(authors), &entity.Authors); err != nil {
		return nil, fmt.Errorf("failed to unmarshal authors: %w", err)
	}
	return &entity, nil
}
