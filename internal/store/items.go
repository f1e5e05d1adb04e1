// ABOUTME: Item persistence for the SQL store
// ABOUTME: Every single-item statement is scoped by owner_id in its WHERE clause

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const itemColumns = `id, owner_id, title, description, last_modified, completed_at`

// CreateItem inserts a new item and sets item.ID to the assigned identifier.
func (s *SQLStore) CreateItem(ctx context.Context, item *Item) error {
	query := `
		INSERT INTO items (owner_id, title, description, last_modified, completed_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`

	err := s.queryRow(ctx, query,
		item.OwnerID,
		item.Title,
		item.Description,
		formatTime(item.LastModified),
		nullTime(item.CompletedAt),
	).Scan(&item.ID)
	if err != nil {
		return fmt.Errorf("inserting item: %w", err)
	}

	s.logger.Debug("created item", "id", item.ID, "owner_id", item.OwnerID)
	return nil
}

// GetItem retrieves an item by ID for its owner.
// Returns ErrNotFound if the item doesn't exist or belongs to someone else.
func (s *SQLStore) GetItem(ctx context.Context, ownerID string, id int64) (*Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = ? AND owner_id = ?`

	item, err := scanItem(s.queryRow(ctx, query, id, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying item: %w", err)
	}
	return item, nil
}

// ListItems returns the owner's open or completed items, most recently
// modified first.
func (s *SQLStore) ListItems(ctx context.Context, ownerID string, completed bool) ([]*Item, error) {
	filter := "completed_at IS NULL"
	if completed {
		filter = "completed_at IS NOT NULL"
	}
	query := `
		SELECT ` + itemColumns + `
		FROM items
		WHERE owner_id = ? AND ` + filter + `
		ORDER BY last_modified DESC, id DESC
	`

	rows, err := s.query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := []*Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating items: %w", err)
	}
	return items, nil
}

// UpdateItem writes title, description and last_modified of an existing item.
// Owner and completion state are never changed here.
func (s *SQLStore) UpdateItem(ctx context.Context, item *Item) error {
	query := `
		UPDATE items
		SET title = ?, description = ?, last_modified = ?
		WHERE id = ? AND owner_id = ?
	`

	result, err := s.exec(ctx, query,
		item.Title,
		item.Description,
		formatTime(item.LastModified),
		item.ID,
		item.OwnerID,
	)
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}
	return affectedOne(result, ErrNotFound)
}

// CompleteItem stamps completed_at and last_modified with at.
// Completing an already completed item overwrites the timestamp.
func (s *SQLStore) CompleteItem(ctx context.Context, ownerID string, id int64, at time.Time) error {
	query := `
		UPDATE items
		SET completed_at = ?, last_modified = ?
		WHERE id = ? AND owner_id = ?
	`

	stamp := formatTime(at)
	result, err := s.exec(ctx, query, stamp, stamp, id, ownerID)
	if err != nil {
		return fmt.Errorf("completing item: %w", err)
	}
	return affectedOne(result, ErrNotFound)
}

// DeleteItem permanently removes an item.
func (s *SQLStore) DeleteItem(ctx context.Context, ownerID string, id int64) error {
	result, err := s.exec(ctx, `DELETE FROM items WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	if err := affectedOne(result, ErrNotFound); err != nil {
		return err
	}

	s.logger.Debug("deleted item", "id", id, "owner_id", ownerID)
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*Item, error) {
	var item Item
	var lastModifiedStr string
	var completedAtStr sql.NullString

	if err := row.Scan(
		&item.ID,
		&item.OwnerID,
		&item.Title,
		&item.Description,
		&lastModifiedStr,
		&completedAtStr,
	); err != nil {
		return nil, err
	}

	var err error
	item.LastModified, err = parseTime(lastModifiedStr)
	if err != nil {
		return nil, fmt.Errorf("parsing last_modified: %w", err)
	}

	if completedAtStr.Valid {
		completedAt, err := parseTime(completedAtStr.String)
		if err != nil {
			return nil, fmt.Errorf("parsing completed_at: %w", err)
		}
		item.CompletedAt = &completedAt
	}

	return &item, nil
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}
