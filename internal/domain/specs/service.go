package specs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/FACorreiaa/auto-qm-form/pkg/llm"
	"github.com/FACorreiaa/auto-qm-form/pkg/observability"
	"github.com/FACorreiaa/auto-qm-form/pkg/storage"
)

// SpecRepository is the spec item store
type SpecRepository interface {
	InsertItems(ctx context.Context, items []SpecItem) (int, error)
	ListItems(ctx context.Context, specID string) ([]SpecItem, error)
}

// TextParser extracts name/spec pairs from text
type TextParser interface {
	ParseText(ctx context.Context, text, task string) (*llm.ParseResult, error)
}

// ImportResult is returned by ImportTechnicalSpecs
type ImportResult struct {
	Status       bool   `json:"status"`
	Message      string `json:"message"`
	SpecID       string `json:"spec_id"`
	SourceFileID string `json:"source_file_id"`
}

// ParsedItem is the compact view of a stored spec item
type ParsedItem struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name"`
	Requirements []string `json:"requirements"`
}

// Parsed lists the stored items of one specification
type Parsed struct {
	Status    bool         `json:"status"`
	Message   string       `json:"message"`
	SpecsData []ParsedItem `json:"specs_data"`
}

type itemMetadata struct {
	SourceFileID string `json:"source_file_id"`
	SourceName   string `json:"source_file_original_name"`
	FileType     string `json:"file_type"`
}

// Service ingests specification documents
type Service struct {
	repo    SpecRepository
	store   storage.Storage
	parser  TextParser
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewService creates a new specs service
func NewService(repo SpecRepository, store storage.Storage, parser TextParser, metrics *observability.Metrics, logger *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		store:   store,
		parser:  parser,
		metrics: metrics,
		logger:  logger,
	}
}

// ImportTechnicalSpecs stores the document, extracts its text and saves one
// item per extracted name/spec pair.
func (s *Service) ImportTechnicalSpecs(ctx context.Context, data []byte, filename, fileType, specID string) (result *ImportResult, err error) {
	ctx, span := observability.StartSpan(ctx, "SpecService.ImportTechnicalSpecs",
		attribute.String("spec_id", specID),
		attribute.String("file_type", fileType),
	)
	defer func() { observability.EndSpan(span, err) }()

	text, err := ExtractText(data, fileType)
	if err != nil {
		return nil, err
	}

	info, err := s.store.Upload(ctx, storage.TypeSpecRaw, filename, "application/octet-stream", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to store spec file: %w", err)
	}

	parsed, err := s.parser.ParseText(ctx, text, llm.TaskExtractSpecs)
	if err != nil {
		return nil, fmt.Errorf("failed to extract spec items: %w", err)
	}

	meta, err := json.Marshal(itemMetadata{
		SourceFileID: info.ID.String(),
		SourceName:   filename,
		FileType:     fileType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal spec metadata: %w", err)
	}

	items := make([]SpecItem, 0, len(parsed.RawItems))
	for _, raw := range parsed.RawItems {
		items = append(items, SpecItem{
			SpecID:       specID,
			ItemName:     raw.Name,
			Requirements: []string{raw.Spec},
			Metadata:     meta,
		})
	}

	count, err := s.repo.InsertItems(ctx, items)
	if err != nil {
		return nil, fmt.Errorf("failed to save spec items: %w", err)
	}
	if s.metrics != nil {
		s.metrics.SpecItems.Add(float64(count))
	}

	s.logger.Info("technical specs imported",
		slog.String("spec_id", specID),
		slog.String("file_type", fileType),
		slog.Int("items", count),
	)

	return &ImportResult{
		Status:       true,
		Message:      fmt.Sprintf("parsed %d spec items", count),
		SpecID:       specID,
		SourceFileID: info.ID.String(),
	}, nil
}

// ParseTechnicalSpecs lists the stored items of a specification
func (s *Service) ParseTechnicalSpecs(ctx context.Context, specID string) (*Parsed, error) {
	items, err := s.repo.ListItems(ctx, specID)
	if err != nil {
		return nil, fmt.Errorf("failed to list spec items: %w", err)
	}

	out := make([]ParsedItem, 0, len(items))
	for _, it := range items {
		out = append(out, ParsedItem{ID: it.ID, Name: it.ItemName, Requirements: it.Requirements})
	}

	return &Parsed{Status: true, Message: "ok", SpecsData: out}, nil
}
