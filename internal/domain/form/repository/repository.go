// Package repository provides data access for the temporary standards
// workspace and generated forms.
package repository

import (
	"context"
	"encoding/json"
	"time"
)

// TempFile groups the temporary standards drafted for one budget
type TempFile struct {
	TempFileID int64     `json:"temp_file_id"`
	BudgetID   string    `json:"budget_id"`
	SpecID     *string   `json:"spec_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// TempItem is an editable standard attached to one budget item
type TempItem struct {
	TempItemID          int64     `json:"temp_item_id"`
	TempFileID          int64     `json:"-"`
	BudgetItemID        int64     `json:"budget_item_id"`
	ItemName            string    `json:"item_name"`
	ItemType            string    `json:"item_type"`
	ReferenceStandardID *int64    `json:"reference_standard_id"`
	InspectionItems     []string  `json:"inspection_items"`
	InspectionMethods   []string  `json:"inspection_methods"`
	AcceptanceCriteria  []string  `json:"acceptance_criteria"`
	Frequency           *string   `json:"frequency"`
	ResponsibleParty    *string   `json:"responsible_party"`
	Notes               *string   `json:"notes"`
	IsModified          bool      `json:"is_modified"`
	LastModified        time.Time `json:"last_modified"`
}

// ItemUpdate carries the fields of a temp item to overwrite. Nil fields are
// left unchanged.
type ItemUpdate struct {
	InspectionItems    []string
	InspectionMethods  []string
	AcceptanceCriteria []string
	Frequency          *string
	ResponsibleParty   *string
	Notes              *string
}

// GeneratedForm records a rendered quality management form
type GeneratedForm struct {
	FormID       int64           `json:"form_id"`
	TempFileID   *int64          `json:"temp_file_id"`
	TemplateID   int64           `json:"template_id"`
	FormName     string          `json:"form_name"`
	FileID       string          `json:"file_id"`
	FileFormat   string          `json:"file_format"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
	CreationDate time.Time       `json:"creation_date"`
}

// FormRepository defines the workspace store
type FormRepository interface {
	// CreateTempFile stores a temp file and its items in one transaction
	CreateTempFile(ctx context.Context, file TempFile, items []TempItem) (int64, error)

	// GetTempFile returns nil when the temp file does not exist
	GetTempFile(ctx context.Context, tempFileID int64) (*TempFile, error)

	// ListTempItems returns a temp file's items, optionally only one of them
	ListTempItems(ctx context.Context, tempFileID int64, itemID *int64) ([]TempItem, error)

	// UpdateTempItem applies an update and reports whether the item exists
	UpdateTempItem(ctx context.Context, tempItemID int64, update ItemUpdate) (bool, error)

	// CreateGeneratedForm records a generated form and returns its id
	CreateGeneratedForm(ctx context.Context, form GeneratedForm) (int64, error)

	// DeleteTempFilesBefore removes temp files created before cutoff
	DeleteTempFilesBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
