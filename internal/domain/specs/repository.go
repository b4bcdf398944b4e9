// Package specs ingests technical specification documents and keeps the
// extracted requirement items.
package specs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/FACorreiaa/auto-qm-form/pkg/db"
)

// SpecItem is one extracted specification requirement
type SpecItem struct {
	ID           int64           `json:"id"`
	SpecID       string          `json:"spec_id"`
	ItemName     string          `json:"item_name"`
	ItemType     *string         `json:"item_type"`
	Requirements []string        `json:"requirements"`
	Notes        *string         `json:"notes"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Repository handles spec item persistence
type Repository struct {
	pool db.Querier
}

// NewRepository creates a new specs repository
func NewRepository(pool db.Querier) *Repository {
	return &Repository{pool: pool}
}

// InsertItems stores all items in one transaction
func (r *Repository) InsertItems(ctx context.Context, items []SpecItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, it := range items {
		reqs, err := json.Marshal(it.Requirements)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal requirements: %w", err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO spec_items (spec_id, item_name, item_type, requirements, notes, metadata)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, it.SpecID, it.ItemName, it.ItemType, reqs, it.Notes, []byte(it.Metadata))
		if err != nil {
			return 0, fmt.Errorf("failed to insert spec item %q: %w", it.ItemName, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit spec items: %w", err)
	}
	return len(items), nil
}

// ListItems returns the items of one specification in insertion order
func (r *Repository) ListItems(ctx context.Context, specID string) ([]SpecItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, spec_id, item_name, item_type, requirements, notes, metadata, created_at
		FROM spec_items
		WHERE spec_id = $1
		ORDER BY id
	`, specID)
	if err != nil {
		return nil, fmt.Errorf("failed to list spec items: %w", err)
	}
	defer rows.Close()

	items := make([]SpecItem, 0)
	for rows.Next() {
		var it SpecItem
		var reqs, meta []byte
		if err := rows.Scan(&it.ID, &it.SpecID, &it.ItemName, &it.ItemType, &reqs, &it.Notes, &meta, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan spec item: %w", err)
		}
		if len(reqs) > 0 {
			if err := json.Unmarshal(reqs, &it.Requirements); err != nil {
				return nil, fmt.Errorf("failed to decode requirements: %w", err)
			}
		}
		it.Metadata = meta
		items = append(items, it)
	}

	return items, rows.Err()
}
