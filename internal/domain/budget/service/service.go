// Package service implements budget imports and budget read models.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/FACorreiaa/auto-qm-form/internal/domain/budget/parser"
	"github.com/FACorreiaa/auto-qm-form/internal/domain/budget/repository"
	"github.com/FACorreiaa/auto-qm-form/pkg/money"
	"github.com/FACorreiaa/auto-qm-form/pkg/observability"
	"github.com/FACorreiaa/auto-qm-form/pkg/storage"
)

// ErrUnsupportedFileType is returned for simple imports that are neither csv nor excel
var ErrUnsupportedFileType = errors.New("unsupported file_type")

// ImportResult is returned by ImportComplexBudget
type ImportResult struct {
	Status       bool           `json:"status"`
	Message      string         `json:"message"`
	BudgetID     string         `json:"budget_id"`
	Inserted     int            `json:"inserted"`
	Warnings     []string       `json:"warnings"`
	Stats        parser.Summary `json:"stats"`
	SourceFileID string         `json:"source_file_id"`
}

// NamedItem is a compact {id, name} view of a budget item
type NamedItem struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ManagementItems lists the items that need quality management
type ManagementItems struct {
	Materials []NamedItem `json:"materials"`
	Equipment []NamedItem `json:"equipment"`
}

// Summary aggregates a stored budget
type Summary struct {
	BudgetID   string                           `json:"budget_id"`
	ItemCount  int                              `json:"item_count"`
	ByType     map[parser.ItemType]int          `json:"by_type"`
	WorkRatio  float64                          `json:"work_ratio"`
	Totals     map[parser.ItemType]*money.Money `json:"totals"`
	GrandTotal *money.Money                     `json:"grand_total"`
}

// BudgetService coordinates the blob store, the parser and the item store
type BudgetService struct {
	repo     repository.BudgetRepository
	store    storage.Storage
	metrics  *observability.Metrics
	currency string
	logger   *slog.Logger
}

// NewBudgetService creates a new budget service
func NewBudgetService(repo repository.BudgetRepository, store storage.Storage, metrics *observability.Metrics, currency string, logger *slog.Logger) *BudgetService {
	return &BudgetService{
		repo:     repo,
		store:    store,
		metrics:  metrics,
		currency: money.ResolveCurrency(currency),
		logger:   logger,
	}
}

// ImportComplexBudget stores the raw document, parses it and persists the
// resulting items. The raw document is stored even when no header is found.
func (s *BudgetService) ImportComplexBudget(ctx context.Context, data []byte, filename, budgetID string) (result *ImportResult, err error) {
	ctx, span := observability.StartSpan(ctx, "BudgetService.ImportComplexBudget",
		attribute.String("budget_id", budgetID),
		attribute.String("filename", filename),
	)
	defer func() { observability.EndSpan(span, err) }()

	info, err := s.store.Upload(ctx, storage.TypeBudgetRaw, filename, contentTypeFor(filename), bytes.NewReader(data))
	if err != nil {
		s.countImport("complex", "error")
		return nil, fmt.Errorf("failed to store budget file: %w", err)
	}

	src := parser.Source{
		FileID:   info.ID.String(),
		FileName: filename,
		FileType: parser.SourceTypeRaw,
	}

	parsed, err := parseDocument(data, filename, budgetID, src)
	if err != nil {
		if errors.Is(err, parser.ErrHeaderNotFound) {
			s.countImport("complex", "header_not_found")
			s.logger.Warn("budget header not found",
				slog.String("budget_id", budgetID),
				slog.String("source_file_id", src.FileID),
			)
			return nil, err
		}
		s.countImport("complex", "error")
		return nil, fmt.Errorf("failed to parse budget: %w", err)
	}

	rows := make([]repository.BudgetItem, 0, len(parsed.Items))
	for _, it := range parsed.Items {
		row, err := repository.FromLineItem(it)
		if err != nil {
			s.countImport("complex", "error")
			return nil, err
		}
		rows = append(rows, row)
	}

	inserted, err := s.repo.InsertItems(ctx, rows)
	if err != nil {
		s.countImport("complex", "error")
		return nil, fmt.Errorf("failed to save budget items: %w", err)
	}

	outcome := parsed.Outcome(inserted)
	s.countImport("complex", "ok")
	s.observeParse(outcome.ByType, len(parsed.Warnings))

	s.logger.Info("complex budget imported",
		slog.String("budget_id", budgetID),
		slog.String("source_file_id", src.FileID),
		slog.Int("inserted", inserted),
		slog.Int("warnings", len(parsed.Warnings)),
		slog.Float64("work_ratio", outcome.WorkRatio),
	)

	return &ImportResult{
		Status:       true,
		Message:      fmt.Sprintf("imported %d items", inserted),
		BudgetID:     budgetID,
		Inserted:     inserted,
		Warnings:     outcome.Warnings,
		Stats:        parser.Summary{ByType: outcome.ByType, WorkRatio: outcome.WorkRatio},
		SourceFileID: src.FileID,
	}, nil
}

// ListManagementItems returns the material and equipment items of a budget
func (s *BudgetService) ListManagementItems(ctx context.Context, budgetID string) (*ManagementItems, error) {
	items, err := s.repo.ListItems(ctx, budgetID, parser.TypeMaterial, parser.TypeEquipment)
	if err != nil {
		return nil, fmt.Errorf("failed to list budget items: %w", err)
	}

	out := &ManagementItems{Materials: []NamedItem{}, Equipment: []NamedItem{}}
	for _, it := range items {
		switch it.Type {
		case parser.TypeMaterial:
			out.Materials = append(out.Materials, NamedItem{ID: it.ID, Name: it.Name})
		case parser.TypeEquipment:
			out.Equipment = append(out.Equipment, NamedItem{ID: it.ID, Name: it.Name})
		}
	}
	return out, nil
}

// Summary counts a stored budget's items per type and totals their prices
// in the configured currency
func (s *BudgetService) Summary(ctx context.Context, budgetID string) (*Summary, error) {
	items, err := s.repo.ListItems(ctx, budgetID)
	if err != nil {
		return nil, fmt.Errorf("failed to list budget items: %w", err)
	}

	lines := make([]parser.LineItem, len(items))
	prices := make(map[parser.ItemType][]*float64)
	all := make([]*float64, 0, len(items))
	for i, it := range items {
		lines[i] = parser.LineItem{Name: it.Name, Type: it.Type}
		prices[it.Type] = append(prices[it.Type], it.TotalPrice)
		all = append(all, it.TotalPrice)
	}

	stats := parser.Summarize(lines)
	totals := make(map[parser.ItemType]*money.Money, len(prices))
	for t, p := range prices {
		totals[t] = money.Sum(s.currency, p...)
	}

	return &Summary{
		BudgetID:   budgetID,
		ItemCount:  len(items),
		ByType:     stats.ByType,
		WorkRatio:  stats.WorkRatio,
		Totals:     totals,
		GrandTotal: money.Sum(s.currency, all...),
	}, nil
}

func (s *BudgetService) countImport(kind, status string) {
	if s.metrics == nil {
		return
	}
	s.metrics.BudgetImports.WithLabelValues(kind, status).Inc()
}

func (s *BudgetService) observeParse(byType map[parser.ItemType]int, warnings int) {
	if s.metrics == nil {
		return
	}
	for t, n := range byType {
		s.metrics.ItemsParsed.WithLabelValues(string(t)).Add(float64(n))
	}
	s.metrics.ParseWarnings.Add(float64(warnings))
}

func parseDocument(data []byte, filename, budgetID string, src parser.Source) (*parser.Result, error) {
	if isXLSX(filename) {
		rows, err := parser.RowsFromXLSX(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		return parser.ParseRows(rows, budgetID, src)
	}
	return parser.Parse(data, budgetID, src)
}

func isXLSX(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".xlsx")
}

func contentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return "text/csv"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}
