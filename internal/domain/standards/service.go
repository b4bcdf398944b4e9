package standards

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/FACorreiaa/auto-qm-form/pkg/storage"
)

// StandardsRepository is the reference library store
type StandardsRepository interface {
	InsertStandardIfAbsent(ctx context.Context, qs QualityStandard) (bool, error)
	ListStandards(ctx context.Context, itemType string) ([]QualityStandard, error)
	CreateTemplate(ctx context.Context, tpl BlankTemplate) (int64, error)
	GetTemplate(ctx context.Context, templateID int64) (*BlankTemplate, error)
	ListTemplates(ctx context.Context) ([]BlankTemplate, error)
	CreateReferenceFile(ctx context.Context, ref ReferenceFile) (int64, error)
}

// ReferenceUpload is returned by ImportReferenceData
type ReferenceUpload struct {
	Status      bool   `json:"status"`
	ReferenceID int64  `json:"reference_id"`
	Message     string `json:"message"`
}

// TemplateUpload is returned by ImportBlankTemplate
type TemplateUpload struct {
	Status     bool  `json:"status"`
	TemplateID int64 `json:"template_id"`
}

// TemplateSummary is one entry of the template list
type TemplateSummary struct {
	TemplateID int64  `json:"template_id"`
	Name       string `json:"name"`
}

// TemplateList is returned by ListTemplates
type TemplateList struct {
	Status    bool              `json:"status"`
	Templates []TemplateSummary `json:"templates"`
}

// ReferenceHit is one reference search result
type ReferenceHit struct {
	StandardID int64   `json:"standard_id"`
	ItemName   string  `json:"item_name"`
	ItemType   string  `json:"item_type"`
	Source     *string `json:"source"`
}

// ReferenceResults is returned by SearchReferenceData
type ReferenceResults struct {
	Status  bool           `json:"status"`
	Results []ReferenceHit `json:"results"`
}

// StandardRef is one quality standard lookup result
type StandardRef struct {
	StandardID int64   `json:"standard_id"`
	ItemName   string  `json:"item_name"`
	Source     *string `json:"source"`
}

// StandardMatches is returned by SearchQualityStandards
type StandardMatches struct {
	Status    bool          `json:"status"`
	Standards []StandardRef `json:"standards"`
}

// Service manages the reference library
type Service struct {
	repo   StandardsRepository
	store  storage.Storage
	index  *SearchIndex
	logger *slog.Logger
}

// NewService creates a new standards service. A nil index disables
// full-text matching.
func NewService(repo StandardsRepository, store storage.Storage, index *SearchIndex, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		store:  store,
		index:  index,
		logger: logger,
	}
}

// ImportReferenceData stores a reference document under its category
func (s *Service) ImportReferenceData(ctx context.Context, data []byte, filename, category string, description *string) (*ReferenceUpload, error) {
	info, err := s.store.Upload(ctx, storage.ReferenceType(category), filename, "application/octet-stream", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to store reference file: %w", err)
	}

	id, err := s.repo.CreateReferenceFile(ctx, ReferenceFile{
		Category:    category,
		Description: description,
		FileID:      info.ID.String(),
		FileName:    filename,
	})
	if err != nil {
		s.discard(ctx, info)
		return nil, err
	}

	s.logger.Info("reference file uploaded",
		slog.Int64("reference_id", id),
		slog.String("category", category),
		slog.String("file_id", info.ID.String()),
	)

	return &ReferenceUpload{Status: true, ReferenceID: id, Message: "uploaded"}, nil
}

// ImportBlankTemplate stores an empty form template under a unique name
func (s *Service) ImportBlankTemplate(ctx context.Context, data []byte, filename, name string, description *string) (*TemplateUpload, error) {
	info, err := s.store.Upload(ctx, storage.TypeTemplate, filename, "application/octet-stream", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to store template file: %w", err)
	}

	id, err := s.repo.CreateTemplate(ctx, BlankTemplate{
		TemplateName: name,
		FileID:       info.ID.String(),
		Description:  description,
	})
	if err != nil {
		s.discard(ctx, info)
		return nil, err
	}

	s.logger.Info("template uploaded",
		slog.Int64("template_id", id),
		slog.String("name", name),
	)

	return &TemplateUpload{Status: true, TemplateID: id}, nil
}

// GetTemplate returns a template, or nil when it does not exist
func (s *Service) GetTemplate(ctx context.Context, templateID int64) (*BlankTemplate, error) {
	return s.repo.GetTemplate(ctx, templateID)
}

// ListTemplates returns every template's id and name
func (s *Service) ListTemplates(ctx context.Context) (*TemplateList, error) {
	templates, err := s.repo.ListTemplates(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]TemplateSummary, 0, len(templates))
	for _, t := range templates {
		out = append(out, TemplateSummary{TemplateID: t.TemplateID, Name: t.TemplateName})
	}
	return &TemplateList{Status: true, Templates: out}, nil
}

// ListStandards returns the standards of one type, or all of them
func (s *Service) ListStandards(ctx context.Context, itemType string) ([]QualityStandard, error) {
	return s.repo.ListStandards(ctx, itemType)
}

// SearchReferenceData filters standards by category (item type) and, when a
// keyword is given, keeps close fuzzy matches, case-insensitive substring
// matches and full-text hits on the inspection text.
func (s *Service) SearchReferenceData(ctx context.Context, keyword, category string) (*ReferenceResults, error) {
	standards, err := s.repo.ListStandards(ctx, category)
	if err != nil {
		return nil, err
	}

	if keyword != "" {
		keep := s.nameMatches(keyword, standards, referenceLimit, referenceThreshold)
		if s.index != nil {
			hits, err := s.index.Search(keyword, category, referenceLimit)
			if err != nil {
				s.logger.Warn("full-text search failed", slog.String("keyword", keyword), slog.Any("error", err))
			}
			for _, h := range hits {
				keep[h.StandardID] = true
			}
		}
		standards = filterStandards(standards, keep)
	}

	out := make([]ReferenceHit, 0, len(standards))
	for _, qs := range standards {
		out = append(out, ReferenceHit{
			StandardID: qs.StandardID,
			ItemName:   qs.ItemName,
			ItemType:   qs.ItemType,
			Source:     qs.Source,
		})
	}
	return &ReferenceResults{Status: true, Results: out}, nil
}

// SearchQualityStandards looks up standards of one type by name. Without
// fuzzy matching only case-insensitive equal names match.
func (s *Service) SearchQualityStandards(ctx context.Context, itemType, itemName string, fuzzy bool) (*StandardMatches, error) {
	standards, err := s.repo.ListStandards(ctx, itemType)
	if err != nil {
		return nil, err
	}

	var keep map[int64]bool
	if fuzzy {
		keep = s.nameMatches(itemName, standards, lookupLimit, lookupThreshold)
	} else {
		keep = make(map[int64]bool)
		for _, qs := range standards {
			if normalize(qs.ItemName) == normalize(itemName) {
				keep[qs.StandardID] = true
			}
		}
	}

	matched := filterStandards(standards, keep)
	out := make([]StandardRef, 0, len(matched))
	for _, qs := range matched {
		out = append(out, StandardRef{StandardID: qs.StandardID, ItemName: qs.ItemName, Source: qs.Source})
	}
	return &StandardMatches{Status: true, Standards: out}, nil
}

// Seed inserts standards whose (item_name, item_type) is not stored yet and
// rebuilds the search index. It returns the number of new rows.
func (s *Service) Seed(ctx context.Context, standards []QualityStandard) (int, error) {
	inserted := 0
	for _, qs := range standards {
		ok, err := s.repo.InsertStandardIfAbsent(ctx, qs)
		if err != nil {
			return inserted, err
		}
		if ok {
			inserted++
		}
	}

	s.logger.Info("quality standards seeded",
		slog.Int("given", len(standards)),
		slog.Int("inserted", inserted),
	)

	if err := s.RefreshIndex(ctx); err != nil {
		return inserted, err
	}
	return inserted, nil
}

// RefreshIndex reloads every standard into the search index
func (s *Service) RefreshIndex(ctx context.Context) error {
	if s.index == nil {
		return nil
	}
	standards, err := s.repo.ListStandards(ctx, "")
	if err != nil {
		return err
	}
	return s.index.Rebuild(standards)
}

// nameMatches returns the ids of standards whose name is a close fuzzy match
// of keyword or contains it.
func (s *Service) nameMatches(keyword string, standards []QualityStandard, limit, threshold int) map[int64]bool {
	names := make([]string, len(standards))
	for i, qs := range standards {
		names[i] = qs.ItemName
	}

	closeNames := make(map[string]bool)
	for _, m := range CloseMatches(keyword, names, limit, threshold) {
		closeNames[m.Name] = true
	}

	keep := make(map[int64]bool)
	for _, qs := range standards {
		if closeNames[qs.ItemName] || containsFold(qs.ItemName, keyword) {
			keep[qs.StandardID] = true
		}
	}
	return keep
}

func filterStandards(standards []QualityStandard, keep map[int64]bool) []QualityStandard {
	out := make([]QualityStandard, 0, len(keep))
	for _, qs := range standards {
		if keep[qs.StandardID] {
			out = append(out, qs)
		}
	}
	return out
}

// discard removes a stored blob whose database record could not be written
func (s *Service) discard(ctx context.Context, info *storage.FileInfo) {
	if err := s.store.Delete(ctx, info.ID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.logger.Warn("failed to remove orphaned file",
			slog.String("file_id", info.ID.String()),
			slog.Any("error", err),
		)
	}
}
