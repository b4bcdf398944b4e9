package api

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/auto-qm-form/internal/domain/budget/parser"
	"github.com/FACorreiaa/auto-qm-form/internal/domain/budget/repository"
	formservice "github.com/FACorreiaa/auto-qm-form/internal/domain/form/service"
)

type stubBudgetRepo struct{ items []repository.BudgetItem }

func (s stubBudgetRepo) InsertItems(context.Context, []repository.BudgetItem) (int, error) {
	return 0, nil
}

func (s stubBudgetRepo) ListItems(context.Context, string, ...parser.ItemType) ([]repository.BudgetItem, error) {
	return s.items, nil
}

func TestBudgetAdapter_ListBudgetItems(t *testing.T) {
	a := newBudgetAdapter(stubBudgetRepo{items: []repository.BudgetItem{
		{ID: 1, Name: "電纜", Type: parser.TypeMaterial},
		{ID: 2, Name: "安裝", Type: parser.TypeWork},
	}})

	lines, err := a.ListBudgetItems(context.Background(), "B1")
	require.NoError(t, err)
	assert.Equal(t, []formservice.BudgetLine{
		{ItemID: 1, Name: "電纜", Type: "material"},
		{ItemID: 2, Name: "安裝", Type: "work"},
	}, lines)
}
