package repository

import (
	"context"
	"fmt"

	"github.com/FACorreiaa/auto-qm-form/internal/domain/budget/parser"
	"github.com/FACorreiaa/auto-qm-form/pkg/db"
)

// PostgresBudgetRepository implements BudgetRepository on Postgres
type PostgresBudgetRepository struct {
	pool db.Querier
}

// NewPostgresBudgetRepository creates a new repository
func NewPostgresBudgetRepository(pool db.Querier) *PostgresBudgetRepository {
	return &PostgresBudgetRepository{pool: pool}
}

const insertItemSQL = `
	INSERT INTO budget_items (
		budget_id, name, type, unit, quantity, unit_price, total_price, description, metadata
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`

// InsertItems stores all items in one transaction
func (r *PostgresBudgetRepository) InsertItems(ctx context.Context, items []BudgetItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, it := range items {
		_, err := tx.Exec(ctx, insertItemSQL,
			it.BudgetID, it.Name, string(it.Type), it.Unit, it.Quantity,
			it.UnitPrice, it.TotalPrice, it.Description, []byte(it.Metadata),
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert budget item %q: %w", it.Name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit budget items: %w", err)
	}

	return len(items), nil
}

// ListItems returns a budget's items in insertion order
func (r *PostgresBudgetRepository) ListItems(ctx context.Context, budgetID string, types ...parser.ItemType) ([]BudgetItem, error) {
	query := `
		SELECT item_id, budget_id, name, type, unit, quantity, unit_price,
			total_price, description, metadata, created_at
		FROM budget_items
		WHERE budget_id = $1`
	args := []any{budgetID}

	if len(types) > 0 {
		names := make([]string, len(types))
		for i, t := range types {
			names[i] = string(t)
		}
		query += ` AND type = ANY($2)`
		args = append(args, names)
	}
	query += ` ORDER BY item_id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list budget items: %w", err)
	}
	defer rows.Close()

	items := make([]BudgetItem, 0)
	for rows.Next() {
		var it BudgetItem
		var itemType string
		var meta []byte
		if err := rows.Scan(
			&it.ID, &it.BudgetID, &it.Name, &itemType, &it.Unit, &it.Quantity,
			&it.UnitPrice, &it.TotalPrice, &it.Description, &meta, &it.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan budget item: %w", err)
		}
		it.Type = parser.ItemType(itemType)
		it.Metadata = meta
		items = append(items, it)
	}

	return items, rows.Err()
}
