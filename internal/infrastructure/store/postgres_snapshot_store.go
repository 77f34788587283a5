package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresSnapshotStore persists ticket snapshots in PostgreSQL so
// reprint baselines survive a process restart.
type PostgresSnapshotStore struct {
	db *sql.DB
}

func NewPostgresSnapshotStore(db *sql.DB) *PostgresSnapshotStore {
	return &PostgresSnapshotStore{db: db}
}

// InitSchema creates the snapshot table if it does not exist.
func (s *PostgresSnapshotStore) InitSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS pos_ticket_snapshots (
			owner      TEXT PRIMARY KEY,
			quantities JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("failed to create snapshot table: %w", err)
	}
	return nil
}

func (s *PostgresSnapshotStore) Get(ctx context.Context, owner string) (*TicketSnapshot, error) {
	var (
		raw       []byte
		updatedAt time.Time
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT quantities, updated_at FROM pos_ticket_snapshots WHERE owner = $1",
		owner,
	).Scan(&raw, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot for %s: %w", owner, err)
	}

	snapshot := &TicketSnapshot{Owner: owner, UpdatedAt: updatedAt}
	if err := json.Unmarshal(raw, &snapshot.Quantities); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot for %s: %w", owner, err)
	}
	return snapshot, nil
}

func (s *PostgresSnapshotStore) Save(ctx context.Context, snapshot *TicketSnapshot) error {
	raw, err := json.Marshal(snapshot.Quantities)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot for %s: %w", snapshot.Owner, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO pos_ticket_snapshots (owner, quantities, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (owner) DO UPDATE
		SET quantities = EXCLUDED.quantities, updated_at = EXCLUDED.updated_at`,
		snapshot.Owner, raw, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to save snapshot for %s: %w", snapshot.Owner, err)
	}
	return nil
}

func (s *PostgresSnapshotStore) Delete(ctx context.Context, owner string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM pos_ticket_snapshots WHERE owner = $1", owner)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot for %s: %w", owner, err)
	}
	return nil
}

// ConnectPostgres establishes a connection to PostgreSQL.
func ConnectPostgres(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}
