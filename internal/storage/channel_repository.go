package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// ChannelConnection is a configured sync target: the external channel
// manager the calendar pushes rates and availability to.
type ChannelConnection struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	BaseURL         string     `json:"base_url"`
	PropertyCode    string     `json:"property_code"`
	SyncIntervalMin int        `json:"sync_interval_min"`
	Enabled         bool       `json:"enabled"`
	LastSyncAt      *time.Time `json:"last_sync_at,omitempty"`
	LastSyncStatus  string     `json:"last_sync_status"`
	LastSyncError   *string    `json:"last_sync_error,omitempty"`
}

// ChannelRepository persists channel-connection records.
type ChannelRepository struct {
	db *DB
}

// NewChannelRepository creates a channel-connection repository.
func NewChannelRepository(db *DB) *ChannelRepository {
	return &ChannelRepository{db: db}
}

const channelColumns = `id, name, base_url, property_code, sync_interval_min, enabled,
	last_sync_at, last_sync_status, last_sync_error`

// List returns all channel connections ordered by name.
func (r *ChannelRepository) List(ctx context.Context) ([]ChannelConnection, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+channelColumns+" FROM channel_connections ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("querying channel connections: %w", err)
	}
	defer rows.Close()

	var conns []ChannelConnection
	for rows.Next() {
		conn, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		conns = append(conns, conn)
	}
	return conns, rows.Err()
}

// GetByID returns a single channel connection, or nil when not found.
func (r *ChannelRepository) GetByID(ctx context.Context, id string) (*ChannelConnection, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+channelColumns+" FROM channel_connections WHERE id = ?", id)

	conn, err := scanChannel(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

// Create inserts a new channel connection and returns its ID.
func (r *ChannelRepository) Create(ctx context.Context, conn ChannelConnection) (string, error) {
	id := GenerateID()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO channel_connections (id, name, base_url, property_code, sync_interval_min, enabled)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, conn.Name, conn.BaseURL, conn.PropertyCode, conn.SyncIntervalMin, conn.Enabled)
	if err != nil {
		return "", fmt.Errorf("creating channel connection: %w", err)
	}
	return id, nil
}

// Update modifies an existing channel connection. It reports whether a
// row was updated.
func (r *ChannelRepository) Update(ctx context.Context, conn ChannelConnection) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE channel_connections SET
			name = ?, base_url = ?, property_code = ?, sync_interval_min = ?, enabled = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, conn.Name, conn.BaseURL, conn.PropertyCode, conn.SyncIntervalMin, conn.Enabled, conn.ID)
	if err != nil {
		return false, fmt.Errorf("updating channel connection: %w", err)
	}

	n, _ := result.RowsAffected()
	return n > 0, nil
}

// Delete removes a channel connection. It reports whether a row was
// deleted.
func (r *ChannelRepository) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM channel_connections WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("deleting channel connection: %w", err)
	}

	n, _ := result.RowsAffected()
	return n > 0, nil
}

// RecordSyncResult stores the outcome of the latest sync against a
// connection.
func (r *ChannelRepository) RecordSyncResult(ctx context.Context, id, status string, syncErr error) error {
	var errMsg *string
	if syncErr != nil {
		msg := syncErr.Error()
		errMsg = &msg
	}

	_, err := r.db.ExecContext(ctx, `
		UPDATE channel_connections SET
			last_sync_at = CURRENT_TIMESTAMP, last_sync_status = ?, last_sync_error = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, status, errMsg, id)
	if err != nil {
		return fmt.Errorf("recording sync result: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanChannel(s scanner) (ChannelConnection, error) {
	var conn ChannelConnection
	var lastSyncAt sql.NullTime
	var lastSyncError sql.NullString

	err := s.Scan(&conn.ID, &conn.Name, &conn.BaseURL, &conn.PropertyCode,
		&conn.SyncIntervalMin, &conn.Enabled, &lastSyncAt, &conn.LastSyncStatus, &lastSyncError)
	if err != nil {
		return ChannelConnection{}, err
	}

	if lastSyncAt.Valid {
		t := lastSyncAt.Time
		conn.LastSyncAt = &t
	}
	if lastSyncError.Valid {
		e := lastSyncError.String
		conn.LastSyncError = &e
	}
	return conn, nil
}
