package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/deusflow/newsky/internal/logger"
)

// PostgresStore keeps posted ids in a table, ordered by insertion. Each
// pipeline has its own namespace of rows and its own advisory lock.
type PostgresStore struct {
	db       *sql.DB
	conn     *sql.Conn // holds the session-level advisory lock
	pipeline string
	capacity int
}

func NewPostgresStore(ctx context.Context, connectionString, pipeline string, capacity int) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if capacity <= 0 {
		capacity = DefaultCap
	}
	ps := &PostgresStore{db: db, pipeline: pipeline, capacity: capacity}

	if err := ps.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("postgres posted store connected")
	return ps, nil
}

func (ps *PostgresStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS posted_items (
		id SERIAL PRIMARY KEY,
		pipeline TEXT NOT NULL DEFAULT '',
		item_id TEXT NOT NULL,
		posted_at TIMESTAMP NOT NULL DEFAULT NOW(),
		UNIQUE (pipeline, item_id)
	);
	`
	_, err := ps.db.ExecContext(ctx, schema)
	return err
}

func (ps *PostgresStore) Lock(ctx context.Context) error {
	conn, err := ps.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquiring connection: %w", err)
	}

	var ok bool
	if err := conn.QueryRowContext(ctx, `SELECT pg_try_advisory_lock(hashtext('newsky:' || $1))`, ps.pipeline).Scan(&ok); err != nil {
		conn.Close()
		return fmt.Errorf("taking advisory lock: %w", err)
	}
	if !ok {
		conn.Close()
		return ErrLocked
	}

	ps.conn = conn
	return nil
}

func (ps *PostgresStore) Unlock() error {
	if ps.conn == nil {
		return nil
	}
	conn := ps.conn
	ps.conn = nil
	defer conn.Close()

	if _, err := conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock(hashtext('newsky:' || $1))`, ps.pipeline); err != nil {
		return fmt.Errorf("releasing advisory lock: %w", err)
	}
	return nil
}

// Load returns the most recent ids, oldest first.
func (ps *PostgresStore) Load(ctx context.Context) (*PostedSet, error) {
	rows, err := ps.db.QueryContext(ctx,
		`SELECT item_id FROM posted_items WHERE pipeline = $1 ORDER BY id DESC LIMIT $2`, ps.pipeline, ps.capacity)
	if err != nil {
		return NewPostedSet(), fmt.Errorf("querying posted items: %w", err)
	}
	defer rows.Close()

	var newestFirst []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return NewPostedSet(), fmt.Errorf("scanning posted item: %w", err)
		}
		newestFirst = append(newestFirst, id)
	}
	if err := rows.Err(); err != nil {
		return NewPostedSet(), fmt.Errorf("reading posted items: %w", err)
	}

	set := NewPostedSet()
	for i := len(newestFirst) - 1; i >= 0; i-- {
		set.Add(newestFirst[i])
	}
	return set, nil
}

// Save inserts ids not yet stored, in set order, then prunes to capacity.
func (ps *PostgresStore) Save(ctx context.Context, set *PostedSet) error {
	set.Trim(ps.capacity)

	tx, err := ps.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, id := range set.IDs() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO posted_items (pipeline, item_id) VALUES ($1, $2) ON CONFLICT (pipeline, item_id) DO NOTHING`, ps.pipeline, id); err != nil {
			return fmt.Errorf("inserting %s: %w", id, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM posted_items
		WHERE pipeline = $1
		  AND id NOT IN (SELECT id FROM posted_items WHERE pipeline = $1 ORDER BY id DESC LIMIT $2)
	`, ps.pipeline, ps.capacity); err != nil {
		return fmt.Errorf("pruning posted items: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing posted items: %w", err)
	}
	return nil
}

func (ps *PostgresStore) Close() error {
	unlockErr := ps.Unlock()
	if ps.db != nil {
		if err := ps.db.Close(); err != nil {
			return err
		}
	}
	return unlockErr
}
