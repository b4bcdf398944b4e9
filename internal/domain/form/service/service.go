// Package service drafts per-item quality standards for a budget and renders
// the final quality management form.
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/FACorreiaa/auto-qm-form/internal/domain/form/repository"
	"github.com/FACorreiaa/auto-qm-form/pkg/observability"
	"github.com/FACorreiaa/auto-qm-form/pkg/storage"
)

// ErrNotFound is returned when a temp file, temp item or template is missing
var ErrNotFound = errors.New("not found")

const (
	typeMaterial  = "material"
	typeEquipment = "equipment"

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// BudgetLine is the view of a stored budget item the workspace needs
type BudgetLine struct {
	ItemID int64
	Name   string
	Type   string
}

// ReferenceStandard is a library standard that may seed a temp item
type ReferenceStandard struct {
	StandardID         int64
	ItemName           string
	ItemType           string
	InspectionItems    []string
	InspectionMethods  []string
	AcceptanceCriteria []string
	Frequency          *string
	ResponsibleParty   *string
	Notes              *string
}

// BudgetSource lists the stored items of a budget
type BudgetSource interface {
	ListBudgetItems(ctx context.Context, budgetID string) ([]BudgetLine, error)
}

// ReferenceLibrary exposes the standards library and blank templates
type ReferenceLibrary interface {
	ListStandards(ctx context.Context, itemType string) ([]ReferenceStandard, error)
	TemplateExists(ctx context.Context, templateID int64) (bool, error)
}

// ManagementItem is a budget item that needs a quality standard
type ManagementItem struct {
	BudgetItemID int64  `json:"budget_item_id"`
	Name         string `json:"name"`
	Type         string `json:"type"`
}

// ManagementItems is returned by IdentifyManagementItems
type ManagementItems struct {
	Status  bool             `json:"status"`
	Items   []ManagementItem `json:"items"`
	Message string           `json:"message"`
}

// TempCreated is returned by CreateTempStandards
type TempCreated struct {
	Status       bool   `json:"status"`
	Message      string `json:"message"`
	TempFileID   int64  `json:"temp_file_id"`
	ItemsCount   int    `json:"items_count"`
	MatchedCount int    `json:"matched_count"`
}

// TempStandards is returned by GetTempStandards
type TempStandards struct {
	Status    bool                  `json:"status"`
	Standards []repository.TempItem `json:"standards"`
}

// FormGenerated is returned by GenerateFinalForm
type FormGenerated struct {
	Status         bool   `json:"status"`
	Message        string `json:"message"`
	FormID         int64  `json:"form_id"`
	DownloadFileID string `json:"download_file_id"`
}

// FormService coordinates the temp workspace and the form writer
type FormService struct {
	repo      repository.FormRepository
	budgets   BudgetSource
	library   ReferenceLibrary
	store     storage.Storage
	metrics   *observability.Metrics
	retention time.Duration
	logger    *slog.Logger
}

// NewFormService creates a new form service. Temp files older than
// retentionDays are removed by ExpireTempFiles; zero disables expiry.
func NewFormService(
	repo repository.FormRepository,
	budgets BudgetSource,
	library ReferenceLibrary,
	store storage.Storage,
	metrics *observability.Metrics,
	retentionDays int,
	logger *slog.Logger,
) *FormService {
	return &FormService{
		repo:      repo,
		budgets:   budgets,
		library:   library,
		store:     store,
		metrics:   metrics,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		logger:    logger,
	}
}

// IdentifyManagementItems returns the material and equipment items of a budget
func (s *FormService) IdentifyManagementItems(ctx context.Context, budgetID string) (*ManagementItems, error) {
	lines, err := s.budgets.ListBudgetItems(ctx, budgetID)
	if err != nil {
		return nil, fmt.Errorf("failed to list budget items: %w", err)
	}

	items := make([]ManagementItem, 0, len(lines))
	for _, l := range lines {
		if !isManaged(l.Type) {
			continue
		}
		items = append(items, ManagementItem{BudgetItemID: l.ItemID, Name: l.Name, Type: l.Type})
	}
	return &ManagementItems{Status: true, Items: items, Message: "ok"}, nil
}

// CreateTempStandards opens a temp workspace for a budget with one item per
// material or equipment line. A line is pre-filled from the first standard of
// the same type whose name matches case-insensitively.
func (s *FormService) CreateTempStandards(ctx context.Context, budgetID string, specID *string) (result *TempCreated, err error) {
	ctx, span := observability.StartSpan(ctx, "FormService.CreateTempStandards",
		attribute.String("budget_id", budgetID),
	)
	defer func() { observability.EndSpan(span, err) }()

	lines, err := s.budgets.ListBudgetItems(ctx, budgetID)
	if err != nil {
		return nil, fmt.Errorf("failed to list budget items: %w", err)
	}

	byType := make(map[string][]ReferenceStandard, 2)
	for _, t := range []string{typeMaterial, typeEquipment} {
		stds, err := s.library.ListStandards(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s standards: %w", t, err)
		}
		byType[t] = stds
	}

	items := make([]repository.TempItem, 0, len(lines))
	matched := 0
	for _, l := range lines {
		if !isManaged(l.Type) {
			continue
		}
		item := repository.TempItem{
			BudgetItemID: l.ItemID,
			ItemName:     l.Name,
			ItemType:     l.Type,
		}
		if std := matchStandard(l.Name, byType[l.Type]); std != nil {
			id := std.StandardID
			item.ReferenceStandardID = &id
			item.InspectionItems = std.InspectionItems
			item.InspectionMethods = std.InspectionMethods
			item.AcceptanceCriteria = std.AcceptanceCriteria
			item.Frequency = std.Frequency
			item.ResponsibleParty = std.ResponsibleParty
			item.Notes = std.Notes
			matched++
		}
		items = append(items, item)
	}

	id, err := s.repo.CreateTempFile(ctx, repository.TempFile{BudgetID: budgetID, SpecID: specID}, items)
	if err != nil {
		return nil, err
	}

	s.logger.Info("temp standards created",
		slog.String("budget_id", budgetID),
		slog.Int64("temp_file_id", id),
		slog.Int("items", len(items)),
		slog.Int("matched", matched),
	)

	return &TempCreated{
		Status:       true,
		Message:      "temp created",
		TempFileID:   id,
		ItemsCount:   len(lines),
		MatchedCount: matched,
	}, nil
}

// GetTempStandards lists a temp file's items, or only itemID when given
func (s *FormService) GetTempStandards(ctx context.Context, tempFileID int64, itemID *int64) (*TempStandards, error) {
	items, err := s.repo.ListTempItems(ctx, tempFileID, itemID)
	if err != nil {
		return nil, err
	}
	return &TempStandards{Status: true, Standards: items}, nil
}

// UpdateTempStandardItem applies the non-nil fields of update
func (s *FormService) UpdateTempStandardItem(ctx context.Context, tempItemID int64, update repository.ItemUpdate) error {
	ok, err := s.repo.UpdateTempItem(ctx, tempItemID, update)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("temp item %d: %w", tempItemID, ErrNotFound)
	}
	return nil
}

// GenerateFinalForm renders a temp file into an XLSX form, stores it and
// records the generated form
func (s *FormService) GenerateFinalForm(ctx context.Context, tempFileID, templateID int64, formName string) (result *FormGenerated, err error) {
	ctx, span := observability.StartSpan(ctx, "FormService.GenerateFinalForm",
		attribute.Int64("temp_file_id", tempFileID),
		attribute.Int64("template_id", templateID),
	)
	defer func() { observability.EndSpan(span, err) }()

	tf, err := s.repo.GetTempFile(ctx, tempFileID)
	if err != nil {
		return nil, err
	}
	exists, err := s.library.TemplateExists(ctx, templateID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up template: %w", err)
	}
	if tf == nil || !exists {
		return nil, ErrNotFound
	}

	items, err := s.repo.ListTempItems(ctx, tempFileID, nil)
	if err != nil {
		return nil, err
	}

	data, err := RenderForm(items)
	if err != nil {
		return nil, fmt.Errorf("failed to render form: %w", err)
	}

	info, err := s.store.Upload(ctx, storage.TypeGeneratedForm, formName+".xlsx", xlsxContentType, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to store form: %w", err)
	}

	meta, err := json.Marshal(map[string]string{"generated_at": time.Now().UTC().Format(time.RFC3339)})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal form metadata: %w", err)
	}

	formID, err := s.repo.CreateGeneratedForm(ctx, repository.GeneratedForm{
		TempFileID: &tempFileID,
		TemplateID: templateID,
		FormName:   formName,
		FileID:     info.ID.String(),
		FileFormat: "excel",
		Metadata:   meta,
	})
	if err != nil {
		if delErr := s.store.Delete(ctx, info.ID); delErr != nil {
			s.logger.Warn("failed to remove orphaned form file",
				slog.String("file_id", info.ID.String()),
				slog.Any("error", delErr),
			)
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.FormsGenerated.Inc()
	}
	s.logger.Info("form generated",
		slog.Int64("form_id", formID),
		slog.Int64("temp_file_id", tempFileID),
		slog.Int("rows", len(items)),
	)

	return &FormGenerated{
		Status:         true,
		Message:        "form generated",
		FormID:         formID,
		DownloadFileID: info.ID.String(),
	}, nil
}

// ExpireTempFiles removes temp workspaces older than the retention window
func (s *FormService) ExpireTempFiles(ctx context.Context, now time.Time) (int64, error) {
	if s.retention <= 0 {
		return 0, nil
	}
	n, err := s.repo.DeleteTempFilesBefore(ctx, now.Add(-s.retention))
	if err != nil {
		return 0, err
	}
	if s.metrics != nil && n > 0 {
		s.metrics.TempExpired.Add(float64(n))
	}
	return n, nil
}

func isManaged(itemType string) bool {
	return itemType == typeMaterial || itemType == typeEquipment
}

func matchStandard(name string, candidates []ReferenceStandard) *ReferenceStandard {
	for i := range candidates {
		if strings.EqualFold(candidates[i].ItemName, name) {
			return &candidates[i]
		}
	}
	return nil
}
