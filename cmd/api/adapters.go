package api

import (
	"context"

	"github.com/FACorreiaa/auto-qm-form/internal/domain/budget/repository"
	formservice "github.com/FACorreiaa/auto-qm-form/internal/domain/form/service"
	"github.com/FACorreiaa/auto-qm-form/internal/domain/standards"
)

// budgetAdapter adapts the budget item store to form's BudgetSource interface
type budgetAdapter struct {
	repo repository.BudgetRepository
}

// newBudgetAdapter creates a new adapter
func newBudgetAdapter(repo repository.BudgetRepository) formservice.BudgetSource {
	return &budgetAdapter{repo: repo}
}

// ListBudgetItems implements formservice.BudgetSource
func (a *budgetAdapter) ListBudgetItems(ctx context.Context, budgetID string) ([]formservice.BudgetLine, error) {
	items, err := a.repo.ListItems(ctx, budgetID)
	if err != nil {
		return nil, err
	}

	lines := make([]formservice.BudgetLine, len(items))
	for i, it := range items {
		lines[i] = formservice.BudgetLine{ItemID: it.ID, Name: it.Name, Type: string(it.Type)}
	}
	return lines, nil
}

// referenceAdapter adapts standards.Service to form's ReferenceLibrary interface
type referenceAdapter struct {
	svc *standards.Service
}

// newReferenceAdapter creates a new adapter
func newReferenceAdapter(svc *standards.Service) formservice.ReferenceLibrary {
	return &referenceAdapter{svc: svc}
}

// ListStandards implements formservice.ReferenceLibrary
func (a *referenceAdapter) ListStandards(ctx context.Context, itemType string) ([]formservice.ReferenceStandard, error) {
	stds, err := a.svc.ListStandards(ctx, itemType)
	if err != nil {
		return nil, err
	}

	out := make([]formservice.ReferenceStandard, len(stds))
	for i, s := range stds {
		out[i] = formservice.ReferenceStandard{
			StandardID:         s.StandardID,
			ItemName:           s.ItemName,
			ItemType:           s.ItemType,
			InspectionItems:    s.InspectionItems,
			InspectionMethods:  s.InspectionMethods,
			AcceptanceCriteria: s.AcceptanceCriteria,
			Frequency:          s.Frequency,
			ResponsibleParty:   s.ResponsibleParty,
			Notes:              s.Notes,
		}
	}
	return out, nil
}

// TemplateExists implements formservice.ReferenceLibrary
func (a *referenceAdapter) TemplateExists(ctx context.Context, templateID int64) (bool, error) {
	tpl, err := a.svc.GetTemplate(ctx, templateID)
	if err != nil {
		return false, err
	}
	return tpl != nil, nil
}
