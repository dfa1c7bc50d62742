package store

import (
	"context"
	"fmt"
)

// InsertReferenceItems writes the whole batch in one transaction, so a bulk
// add either persists every name or none of them.
func (s *PostgresStore) InsertReferenceItems(ctx context.Context, items []ReferenceItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert reference items: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, item := range items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO reference_items (id, list_name, name, created_by, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, item.ID, item.List, item.Name, item.CreatedBy, item.CreatedAt); err != nil {
			return fmt.Errorf("insert reference item %q: %w", item.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reference items: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListReferenceItems(ctx context.Context, list string) ([]ReferenceItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, list_name, name, created_by, created_at
		FROM reference_items
		WHERE list_name=$1
		ORDER BY name ASC, id ASC
	`, list)
	if err != nil {
		return nil, fmt.Errorf("list reference items: %w", err)
	}
	defer rows.Close()

	items := make([]ReferenceItem, 0)
	for rows.Next() {
		var item ReferenceItem
		if err := rows.Scan(&item.ID, &item.List, &item.Name, &item.CreatedBy, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan reference item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reference items: %w", err)
	}
	return items, nil
}
