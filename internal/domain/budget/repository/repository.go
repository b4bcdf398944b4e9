// Package repository provides data access for budget line items.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/FACorreiaa/auto-qm-form/internal/domain/budget/parser"
)

// BudgetItem is a persisted budget line
type BudgetItem struct {
	ID          int64           `db:"item_id" json:"item_id"`
	BudgetID    string          `db:"budget_id" json:"budget_id"`
	Name        string          `db:"name" json:"name"`
	Type        parser.ItemType `db:"type" json:"type"`
	Unit        *string         `db:"unit" json:"unit"`
	Quantity    *float64        `db:"quantity" json:"quantity"`
	UnitPrice   *float64        `db:"unit_price" json:"unit_price"`
	TotalPrice  *float64        `db:"total_price" json:"total_price"`
	Description *string         `db:"description" json:"description"`
	Metadata    json.RawMessage `db:"metadata" json:"metadata,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// FromLineItem converts a parsed line into a row ready for insertion.
func FromLineItem(item parser.LineItem) (BudgetItem, error) {
	meta, err := json.Marshal(item.Metadata)
	if err != nil {
		return BudgetItem{}, fmt.Errorf("failed to marshal item metadata: %w", err)
	}
	return BudgetItem{
		BudgetID:    item.BudgetID,
		Name:        item.Name,
		Type:        item.Type,
		Unit:        item.Unit,
		Quantity:    item.Quantity,
		UnitPrice:   item.UnitPrice,
		TotalPrice:  item.TotalPrice,
		Description: item.Description,
		Metadata:    meta,
	}, nil
}

// BudgetRepository defines the budget item store
type BudgetRepository interface {
	// InsertItems stores all items in one transaction and returns the count
	InsertItems(ctx context.Context, items []BudgetItem) (int, error)

	// ListItems returns a budget's items in insertion order, optionally
	// restricted to the given types
	ListItems(ctx context.Context, budgetID string, types ...parser.ItemType) ([]BudgetItem, error)
}
