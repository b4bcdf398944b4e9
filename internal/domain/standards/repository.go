// Package standards is the reference library: quality standards, blank form
// templates and uploaded reference documents, plus search over standards.
package standards

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/FACorreiaa/auto-qm-form/pkg/db"
)

// ErrTemplateExists is returned when a template name is already taken
var ErrTemplateExists = errors.New("template name already exists")

const uniqueViolation = "23505"

// QualityStandard is one inspection standard for a material or equipment item
type QualityStandard struct {
	StandardID         int64     `json:"standard_id" yaml:"-"`
	ItemName           string    `json:"item_name" yaml:"item_name"`
	ItemType           string    `json:"item_type" yaml:"item_type"`
	Source             *string   `json:"source" yaml:"source"`
	InspectionItems    []string  `json:"inspection_items" yaml:"inspection_items"`
	InspectionMethods  []string  `json:"inspection_methods" yaml:"inspection_methods"`
	AcceptanceCriteria []string  `json:"acceptance_criteria" yaml:"acceptance_criteria"`
	Frequency          *string   `json:"frequency" yaml:"frequency"`
	ResponsibleParty   *string   `json:"responsible_party" yaml:"responsible_party"`
	Notes              *string   `json:"notes" yaml:"notes"`
	CreatedAt          time.Time `json:"created_at" yaml:"-"`
}

// BlankTemplate is an uploaded empty quality management form
type BlankTemplate struct {
	TemplateID   int64     `json:"template_id"`
	TemplateName string    `json:"template_name"`
	FileID       string    `json:"file_id"`
	Description  *string   `json:"description"`
	CreatedAt    time.Time `json:"created_at"`
}

// ReferenceFile is an uploaded reference document kept as-is
type ReferenceFile struct {
	ID          int64     `json:"id"`
	Category    string    `json:"category"`
	Description *string   `json:"description"`
	FileID      string    `json:"file_id"`
	FileName    string    `json:"file_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// Repository handles reference library persistence
type Repository struct {
	pool db.Querier
}

// NewRepository creates a new standards repository
func NewRepository(pool db.Querier) *Repository {
	return &Repository{pool: pool}
}

// InsertStandardIfAbsent stores a standard unless one with the same name and
// type exists. It reports whether a row was written.
func (r *Repository) InsertStandardIfAbsent(ctx context.Context, qs QualityStandard) (bool, error) {
	items, methods, criteria, err := encodeLists(qs)
	if err != nil {
		return false, err
	}

	tag, err := r.pool.Exec(ctx, `
		INSERT INTO quality_standards (
			item_name, item_type, source, inspection_items, inspection_methods,
			acceptance_criteria, frequency, responsible_party, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (item_name, item_type) DO NOTHING
	`, qs.ItemName, qs.ItemType, qs.Source, items, methods, criteria,
		qs.Frequency, qs.ResponsibleParty, qs.Notes)
	if err != nil {
		return false, fmt.Errorf("failed to insert quality standard %q: %w", qs.ItemName, err)
	}

	return tag.RowsAffected() > 0, nil
}

// ListStandards returns standards ordered by id. An empty itemType lists all.
func (r *Repository) ListStandards(ctx context.Context, itemType string) ([]QualityStandard, error) {
	query := `
		SELECT standard_id, item_name, item_type, source, inspection_items,
			inspection_methods, acceptance_criteria, frequency, responsible_party,
			notes, created_at
		FROM quality_standards`
	var args []any
	if itemType != "" {
		query += ` WHERE item_type = $1`
		args = append(args, itemType)
	}
	query += ` ORDER BY standard_id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list quality standards: %w", err)
	}
	defer rows.Close()

	standards := make([]QualityStandard, 0)
	for rows.Next() {
		var qs QualityStandard
		var items, methods, criteria []byte
		if err := rows.Scan(
			&qs.StandardID, &qs.ItemName, &qs.ItemType, &qs.Source,
			&items, &methods, &criteria,
			&qs.Frequency, &qs.ResponsibleParty, &qs.Notes, &qs.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan quality standard: %w", err)
		}
		if err := decodeLists(&qs, items, methods, criteria); err != nil {
			return nil, err
		}
		standards = append(standards, qs)
	}

	return standards, rows.Err()
}

// CreateTemplate records an uploaded template and returns its id
func (r *Repository) CreateTemplate(ctx context.Context, tpl BlankTemplate) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO blank_templates (template_name, file_id, description)
		VALUES ($1, $2, $3)
		RETURNING template_id
	`, tpl.TemplateName, tpl.FileID, tpl.Description).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return 0, ErrTemplateExists
		}
		return 0, fmt.Errorf("failed to insert template: %w", err)
	}
	return id, nil
}

// GetTemplate returns a template by id, or nil when it does not exist
func (r *Repository) GetTemplate(ctx context.Context, templateID int64) (*BlankTemplate, error) {
	var tpl BlankTemplate
	err := r.pool.QueryRow(ctx, `
		SELECT template_id, template_name, file_id, description, created_at
		FROM blank_templates
		WHERE template_id = $1
	`, templateID).Scan(&tpl.TemplateID, &tpl.TemplateName, &tpl.FileID, &tpl.Description, &tpl.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return &tpl, nil
}

// ListTemplates returns all templates ordered by id
func (r *Repository) ListTemplates(ctx context.Context) ([]BlankTemplate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT template_id, template_name, file_id, description, created_at
		FROM blank_templates
		ORDER BY template_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	templates := make([]BlankTemplate, 0)
	for rows.Next() {
		var tpl BlankTemplate
		if err := rows.Scan(&tpl.TemplateID, &tpl.TemplateName, &tpl.FileID, &tpl.Description, &tpl.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		templates = append(templates, tpl)
	}
	return templates, rows.Err()
}

// CreateReferenceFile records an uploaded reference document and returns its id
func (r *Repository) CreateReferenceFile(ctx context.Context, ref ReferenceFile) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO reference_files (category, description, file_id, file_name)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, ref.Category, ref.Description, ref.FileID, ref.FileName).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert reference file: %w", err)
	}
	return id, nil
}

func encodeLists(qs QualityStandard) (items, methods, criteria []byte, err error) {
	if items, err = marshalList(qs.InspectionItems); err != nil {
		return nil, nil, nil, err
	}
	if methods, err = marshalList(qs.InspectionMethods); err != nil {
		return nil, nil, nil, err
	}
	if criteria, err = marshalList(qs.AcceptanceCriteria); err != nil {
		return nil, nil, nil, err
	}
	return items, methods, criteria, nil
}

func decodeLists(qs *QualityStandard, items, methods, criteria []byte) error {
	for _, f := range []struct {
		raw []byte
		dst *[]string
	}{
		{items, &qs.InspectionItems},
		{methods, &qs.InspectionMethods},
		{criteria, &qs.AcceptanceCriteria},
	} {
		if len(f.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(f.raw, f.dst); err != nil {
			return fmt.Errorf("failed to decode standard list: %w", err)
		}
	}
	return nil
}

// marshalList stores a nil list as SQL NULL
func marshalList(list []string) ([]byte, error) {
	if list == nil {
		return nil, nil
	}
	b, err := json.Marshal(list)
	if err != nil {
		return nil, fmt.Errorf("failed to encode standard list: %w", err)
	}
	return b, nil
}
