package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dshills/stategraph-go/graph"
	_ "modernc.org/sqlite"
)

// SQLiteStore is a SQLite-backed graph.CheckpointStore, storing checkpoints
// in a single file. Suited for local development, prototyping, and
// single-process deployments; uses WAL mode for concurrent reads.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
	path   string
}

// NewSQLiteStore opens path (use ":memory:" for an ephemeral database),
// enables WAL mode, and ensures the checkpoints table exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	s := &SQLiteStore{db: db, path: path}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) createTables(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS checkpoints (
			id TEXT NOT NULL,
			thread_id TEXT NOT NULL,
			parent_id TEXT DEFAULT '',
			step INTEGER NOT NULL,
			channel_values TEXT NOT NULL,
			pending_nodes TEXT NOT NULL,
			metadata_source TEXT NOT NULL,
			metadata_node_name TEXT DEFAULT '',
			created_at TEXT NOT NULL,
			PRIMARY KEY (thread_id, id)
		)
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create checkpoints table: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		"CREATE INDEX IF NOT EXISTS idx_checkpoints_thread_step ON checkpoints(thread_id, step)"); err != nil {
		return fmt.Errorf("failed to create idx_checkpoints_thread_step: %w", err)
	}
	return nil
}

// Put inserts or replaces a checkpoint.
func (s *SQLiteStore) Put(ctx context.Context, cp graph.Checkpoint) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	channelValuesJSON, err := json.Marshal(cp.ChannelValues)
	if err != nil {
		return fmt.Errorf("failed to marshal channel values: %w", err)
	}
	pendingNodesJSON, err := json.Marshal(cp.PendingNodes)
	if err != nil {
		return fmt.Errorf("failed to marshal pending nodes: %w", err)
	}

	query := `
		INSERT INTO checkpoints
			(id, thread_id, parent_id, step, channel_values, pending_nodes, metadata_source, metadata_node_name, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(thread_id, id) DO UPDATE SET
			parent_id = excluded.parent_id,
			step = excluded.step,
			channel_values = excluded.channel_values,
			pending_nodes = excluded.pending_nodes,
			metadata_source = excluded.metadata_source,
			metadata_node_name = excluded.metadata_node_name,
			created_at = excluded.created_at
	`
	_, err = s.db.ExecContext(ctx, query,
		cp.ID, cp.ThreadID, cp.ParentID, cp.Step,
		string(channelValuesJSON), string(pendingNodesJSON),
		string(cp.Metadata.Source), cp.Metadata.NodeName, cp.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// Get retrieves one checkpoint by thread and id.
func (s *SQLiteStore) Get(ctx context.Context, threadID, id string) (graph.Checkpoint, error) {
	if err := s.checkOpen(); err != nil {
		return graph.Checkpoint{}, err
	}
	query := `
		SELECT id, thread_id, parent_id, step, channel_values, pending_nodes, metadata_source, metadata_node_name, created_at
		FROM checkpoints WHERE thread_id = ? AND id = ?
	`
	return s.scanOne(s.db.QueryRowContext(ctx, query, threadID, id))
}

// GetLatest returns the highest-Step checkpoint for threadID.
func (s *SQLiteStore) GetLatest(ctx context.Context, threadID string) (graph.Checkpoint, error) {
	if err := s.checkOpen(); err != nil {
		return graph.Checkpoint{}, err
	}
	query := `
		SELECT id, thread_id, parent_id, step, channel_values, pending_nodes, metadata_source, metadata_node_name, created_at
		FROM checkpoints WHERE thread_id = ? ORDER BY step DESC LIMIT 1
	`
	return s.scanOne(s.db.QueryRowContext(ctx, query, threadID))
}

func (s *SQLiteStore) scanOne(row *sql.Row) (graph.Checkpoint, error) {
	var (
		cp                graph.Checkpoint
		channelValuesJSON string
		pendingNodesJSON  string
		source            string
		createdAtStr      string
	)
	err := row.Scan(&cp.ID, &cp.ThreadID, &cp.ParentID, &cp.Step,
		&channelValuesJSON, &pendingNodesJSON, &source, &cp.Metadata.NodeName, &createdAtStr)
	if err == sql.ErrNoRows {
		return graph.Checkpoint{}, ErrNotFound
	}
	if err != nil {
		return graph.Checkpoint{}, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	return s.finish(cp, channelValuesJSON, pendingNodesJSON, source, createdAtStr)
}

func (s *SQLiteStore) finish(cp graph.Checkpoint, channelValuesJSON, pendingNodesJSON, source, createdAtStr string) (graph.Checkpoint, error) {
	cp.Metadata.Source = graph.Source(source)
	cp.Metadata.Step = cp.Step
	createdAt, err := time.Parse(time.RFC3339Nano, createdAtStr)
	if err != nil {
		return graph.Checkpoint{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	cp.CreatedAt = createdAt
	if err := json.Unmarshal([]byte(channelValuesJSON), &cp.ChannelValues); err != nil {
		return graph.Checkpoint{}, fmt.Errorf("failed to unmarshal channel values: %w", err)
	}
	if err := json.Unmarshal([]byte(pendingNodesJSON), &cp.PendingNodes); err != nil {
		return graph.Checkpoint{}, fmt.Errorf("failed to unmarshal pending nodes: %w", err)
	}
	return cp, nil
}

// List returns every checkpoint for threadID, sorted by Step ascending.
func (s *SQLiteStore) List(ctx context.Context, threadID string) ([]graph.Checkpoint, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	query := `
		SELECT id, thread_id, parent_id, step, channel_values, pending_nodes, metadata_source, metadata_node_name, created_at
		FROM checkpoints WHERE thread_id = ? ORDER BY step ASC
	`
	rows, err := s.db.QueryContext(ctx, query, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []graph.Checkpoint
	for rows.Next() {
		var (
			cp                graph.Checkpoint
			channelValuesJSON string
			pendingNodesJSON  string
			source            string
			createdAtStr      string
		)
		if err := rows.Scan(&cp.ID, &cp.ThreadID, &cp.ParentID, &cp.Step,
			&channelValuesJSON, &pendingNodesJSON, &source, &cp.Metadata.NodeName, &createdAtStr); err != nil {
			return nil, fmt.Errorf("failed to scan checkpoint row: %w", err)
		}
		cp, err = s.finish(cp, channelValuesJSON, pendingNodesJSON, source, createdAtStr)
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating checkpoint rows: %w", err)
	}
	return out, nil
}

// DeleteThread removes every checkpoint belonging to threadID.
func (s *SQLiteStore) DeleteThread(ctx context.Context, threadID string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM checkpoints WHERE thread_id = ?`, threadID)
	if err != nil {
		return fmt.Errorf("failed to delete thread: %w", err)
	}
	return nil
}

func (s *SQLiteStore) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}
	return nil
}

// Close closes the database connection. Safe to call more than once.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// Ping verifies the database connection is alive.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.db.PingContext(ctx)
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.path
}

var _ graph.CheckpointStore = (*SQLiteStore)(nil)
