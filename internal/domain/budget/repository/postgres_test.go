package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/auto-qm-form/internal/domain/budget/parser"
)

var itemColumns = []string{
	"item_id", "budget_id", "name", "type", "unit", "quantity", "unit_price",
	"total_price", "description", "metadata", "created_at",
}

func strPtr(s string) *string   { return &s }
func f64Ptr(f float64) *float64 { return &f }

func TestFromLineItem(t *testing.T) {
	code := "1.1"
	item := parser.LineItem{
		BudgetID: "B1",
		Name:     "電纜",
		Type:     parser.TypeMaterial,
		Unit:     strPtr("M"),
		Quantity: f64Ptr(10),
		Metadata: parser.Metadata{
			RawName:          "電纜",
			MergedSegments:   []string{"電纜"},
			HierarchyCode:    &code,
			HierarchyNumeric: []int{1, 1},
			SourceFileID:     "f1",
		},
	}

	row, err := FromLineItem(item)
	require.NoError(t, err)
	assert.Equal(t, "B1", row.BudgetID)
	assert.Equal(t, parser.TypeMaterial, row.Type)

	var meta map[string]interface{}
	require.NoError(t, json.Unmarshal(row.Metadata, &meta))
	assert.Equal(t, "1.1", meta["hierarchy_code"])
	assert.Equal(t, "f1", meta["source_file_id"])
	assert.Nil(t, meta["code_clean"])
}

func TestPostgresBudgetRepository_InsertItems(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresBudgetRepository(mock)
	items := []BudgetItem{
		{BudgetID: "B1", Name: "電纜", Type: parser.TypeMaterial, Unit: strPtr("M"), Quantity: f64Ptr(10)},
		{BudgetID: "B1", Name: "交換器", Type: parser.TypeEquipment},
	}

	mock.ExpectBegin()
	for _, it := range items {
		mock.ExpectExec(`INSERT INTO budget_items`).
			WithArgs(it.BudgetID, it.Name, string(it.Type), it.Unit, it.Quantity,
				it.UnitPrice, it.TotalPrice, it.Description, pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	mock.ExpectCommit()

	n, err := repo.InsertItems(context.Background(), items)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresBudgetRepository_InsertItems_RollsBack(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresBudgetRepository(mock)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO budget_items`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	n, err := repo.InsertItems(context.Background(), []BudgetItem{{BudgetID: "B1", Name: "x", Type: parser.TypeWork}})
	assert.Error(t, err)
	assert.Equal(t, 0, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresBudgetRepository_InsertItems_Empty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	n, err := NewPostgresBudgetRepository(mock).InsertItems(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresBudgetRepository_ListItems(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresBudgetRepository(mock)
	now := time.Now()

	t.Run("filtered by type", func(t *testing.T) {
		mock.ExpectQuery(`SELECT item_id, budget_id, name, type`).
			WithArgs("B1", []string{"material", "equipment"}).
			WillReturnRows(pgxmock.NewRows(itemColumns).
				AddRow(int64(1), "B1", "電纜", "material", strPtr("M"), f64Ptr(10), f64Ptr(5), f64Ptr(50), nil, []byte(`{"raw_name":"電纜"}`), now).
				AddRow(int64(2), "B1", "交換器", "equipment", nil, nil, nil, nil, nil, nil, now))

		items, err := repo.ListItems(context.Background(), "B1", parser.TypeMaterial, parser.TypeEquipment)
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, int64(1), items[0].ID)
		assert.Equal(t, parser.TypeMaterial, items[0].Type)
		assert.Equal(t, 50.0, *items[0].TotalPrice)
		assert.JSONEq(t, `{"raw_name":"電纜"}`, string(items[0].Metadata))
		assert.Nil(t, items[1].Unit)
	})

	t.Run("all types", func(t *testing.T) {
		mock.ExpectQuery(`SELECT item_id, budget_id, name, type`).
			WithArgs("B2").
			WillReturnRows(pgxmock.NewRows(itemColumns))

		items, err := repo.ListItems(context.Background(), "B2")
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
