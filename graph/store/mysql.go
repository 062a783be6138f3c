package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dshills/stategraph-go/graph"
	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore is a MySQL/MariaDB-backed graph.CheckpointStore. Designed for
// production workflows that need checkpoints to survive process restarts
// and be shared across workers.
type MySQLStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewMySQLStore opens dsn, verifies connectivity, and ensures the
// checkpoints table exists.
//
// DSN format: [username[:password]@][protocol[(address)]]/dbname[?params]
//
// Never hardcode credentials; read the DSN from the environment.
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	s := &MySQLStore{db: db}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

func (m *MySQLStore) createTables(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS checkpoints (
			id VARCHAR(255) NOT NULL,
			thread_id VARCHAR(255) NOT NULL,
			parent_id VARCHAR(255) DEFAULT '',
			step INT NOT NULL,
			channel_values JSON NOT NULL,
			pending_nodes JSON NOT NULL,
			metadata_source VARCHAR(64) NOT NULL,
			metadata_node_name VARCHAR(255) DEFAULT '',
			created_at TIMESTAMP(6) NOT NULL,
			PRIMARY KEY (thread_id, id),
			INDEX idx_thread_step (thread_id, step)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci
	`
	if _, err := m.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create checkpoints table: %w", err)
	}
	return nil
}

// Put inserts or replaces a checkpoint.
func (m *MySQLStore) Put(ctx context.Context, cp graph.Checkpoint) error {
	if err := m.checkOpen(); err != nil {
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
		ON DUPLICATE KEY UPDATE
			parent_id = VALUES(parent_id),
			step = VALUES(step),
			channel_values = VALUES(channel_values),
			pending_nodes = VALUES(pending_nodes),
			metadata_source = VALUES(metadata_source),
			metadata_node_name = VALUES(metadata_node_name),
			created_at = VALUES(created_at)
	`
	_, err = m.db.ExecContext(ctx, query,
		cp.ID, cp.ThreadID, cp.ParentID, cp.Step,
		channelValuesJSON, pendingNodesJSON,
		string(cp.Metadata.Source), cp.Metadata.NodeName, cp.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// Get retrieves one checkpoint by thread and id.
func (m *MySQLStore) Get(ctx context.Context, threadID, id string) (graph.Checkpoint, error) {
	if err := m.checkOpen(); err != nil {
		return graph.Checkpoint{}, err
	}
	query := `
		SELECT id, thread_id, parent_id, step, channel_values, pending_nodes, metadata_source, metadata_node_name, created_at
		FROM checkpoints WHERE thread_id = ? AND id = ?
	`
	return m.scanOne(m.db.QueryRowContext(ctx, query, threadID, id))
}

// GetLatest returns the highest-Step checkpoint for threadID.
func (m *MySQLStore) GetLatest(ctx context.Context, threadID string) (graph.Checkpoint, error) {
	if err := m.checkOpen(); err != nil {
		return graph.Checkpoint{}, err
	}
	query := `
		SELECT id, thread_id, parent_id, step, channel_values, pending_nodes, metadata_source, metadata_node_name, created_at
		FROM checkpoints WHERE thread_id = ? ORDER BY step DESC LIMIT 1
	`
	return m.scanOne(m.db.QueryRowContext(ctx, query, threadID))
}

func (m *MySQLStore) scanOne(row *sql.Row) (graph.Checkpoint, error) {
	var (
		cp                graph.Checkpoint
		channelValuesJSON []byte
		pendingNodesJSON  []byte
		source            string
	)
	err := row.Scan(&cp.ID, &cp.ThreadID, &cp.ParentID, &cp.Step,
		&channelValuesJSON, &pendingNodesJSON, &source, &cp.Metadata.NodeName, &cp.CreatedAt)
	if err == sql.ErrNoRows {
		return graph.Checkpoint{}, ErrNotFound
	}
	if err != nil {
		return graph.Checkpoint{}, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	cp.Metadata.Source = graph.Source(source)
	cp.Metadata.Step = cp.Step
	if err := json.Unmarshal(channelValuesJSON, &cp.ChannelValues); err != nil {
		return graph.Checkpoint{}, fmt.Errorf("failed to unmarshal channel values: %w", err)
	}
	if err := json.Unmarshal(pendingNodesJSON, &cp.PendingNodes); err != nil {
		return graph.Checkpoint{}, fmt.Errorf("failed to unmarshal pending nodes: %w", err)
	}
	return cp, nil
}

// List returns every checkpoint for threadID, sorted by Step ascending.
func (m *MySQLStore) List(ctx context.Context, threadID string) ([]graph.Checkpoint, error) {
	if err := m.checkOpen(); err != nil {
		return nil, err
	}
	query := `
		SELECT id, thread_id, parent_id, step, channel_values, pending_nodes, metadata_source, metadata_node_name, created_at
		FROM checkpoints WHERE thread_id = ? ORDER BY step ASC
	`
	rows, err := m.db.QueryContext(ctx, query, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []graph.Checkpoint
	for rows.Next() {
		var (
			cp                graph.Checkpoint
			channelValuesJSON []byte
			pendingNodesJSON  []byte
			source            string
		)
		if err := rows.Scan(&cp.ID, &cp.ThreadID, &cp.ParentID, &cp.Step,
			&channelValuesJSON, &pendingNodesJSON, &source, &cp.Metadata.NodeName, &cp.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan checkpoint row: %w", err)
		}
		cp.Metadata.Source = graph.Source(source)
		cp.Metadata.Step = cp.Step
		if err := json.Unmarshal(channelValuesJSON, &cp.ChannelValues); err != nil {
			return nil, fmt.Errorf("failed to unmarshal channel values: %w", err)
		}
		if err := json.Unmarshal(pendingNodesJSON, &cp.PendingNodes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal pending nodes: %w", err)
		}
		out = append(out, cp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating checkpoint rows: %w", err)
	}
	return out, nil
}

// DeleteThread removes every checkpoint belonging to threadID.
func (m *MySQLStore) DeleteThread(ctx context.Context, threadID string) error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	_, err := m.db.ExecContext(ctx, `DELETE FROM checkpoints WHERE thread_id = ?`, threadID)
	if err != nil {
		return fmt.Errorf("failed to delete thread: %w", err)
	}
	return nil
}

func (m *MySQLStore) checkOpen() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return fmt.Errorf("store is closed")
	}
	return nil
}

// Close closes the database connection pool. Safe to call more than once.
func (m *MySQLStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	return m.db.Close()
}

// Ping verifies the database connection is alive.
func (m *MySQLStore) Ping(ctx context.Context) error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	return m.db.PingContext(ctx)
}

// Stats returns database connection pool statistics.
func (m *MySQLStore) Stats() sql.DBStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.db.Stats()
}

var _ graph.CheckpointStore = (*MySQLStore)(nil)
