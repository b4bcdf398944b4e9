package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/FACorreiaa/auto-qm-form/pkg/db"
)

// PostgresFormRepository implements FormRepository on Postgres
type PostgresFormRepository struct {
	pool db.Querier
}

// NewPostgresFormRepository creates a new repository
func NewPostgresFormRepository(pool db.Querier) *PostgresFormRepository {
	return &PostgresFormRepository{pool: pool}
}

const insertTempItemSQL = `
	INSERT INTO temp_standard_items (
		temp_file_id, budget_item_id, item_name, item_type, reference_standard_id,
		inspection_items, inspection_methods, acceptance_criteria,
		frequency, responsible_party, notes
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`

// CreateTempFile stores a temp file and its items in one transaction
func (r *PostgresFormRepository) CreateTempFile(ctx context.Context, file TempFile, items []TempItem) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	if err := tx.QueryRow(ctx, `
		INSERT INTO temp_standard_files (budget_id, spec_id)
		VALUES ($1, $2)
		RETURNING temp_file_id
	`, file.BudgetID, file.SpecID).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to insert temp file: %w", err)
	}

	for _, it := range items {
		inspItems, methods, criteria, err := encodeLists(it.InspectionItems, it.InspectionMethods, it.AcceptanceCriteria)
		if err != nil {
			return 0, err
		}
		if _, err := tx.Exec(ctx, insertTempItemSQL,
			id, it.BudgetItemID, it.ItemName, it.ItemType, it.ReferenceStandardID,
			inspItems, methods, criteria, it.Frequency, it.ResponsibleParty, it.Notes,
		); err != nil {
			return 0, fmt.Errorf("failed to insert temp item %q: %w", it.ItemName, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit temp file: %w", err)
	}
	return id, nil
}

// GetTempFile returns nil when the temp file does not exist
func (r *PostgresFormRepository) GetTempFile(ctx context.Context, tempFileID int64) (*TempFile, error) {
	var f TempFile
	err := r.pool.QueryRow(ctx, `
		SELECT temp_file_id, budget_id, spec_id, created_at
		FROM temp_standard_files
		WHERE temp_file_id = $1
	`, tempFileID).Scan(&f.TempFileID, &f.BudgetID, &f.SpecID, &f.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get temp file: %w", err)
	}
	return &f, nil
}

// ListTempItems returns a temp file's items in insertion order
func (r *PostgresFormRepository) ListTempItems(ctx context.Context, tempFileID int64, itemID *int64) ([]TempItem, error) {
	query := `
		SELECT temp_item_id, temp_file_id, budget_item_id, item_name, item_type,
			reference_standard_id, inspection_items, inspection_methods,
			acceptance_criteria, frequency, responsible_party, notes,
			is_modified, last_modified
		FROM temp_standard_items
		WHERE temp_file_id = $1`
	args := []any{tempFileID}
	if itemID != nil {
		query += ` AND temp_item_id = $2`
		args = append(args, *itemID)
	}
	query += ` ORDER BY temp_item_id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list temp items: %w", err)
	}
	defer rows.Close()

	items := make([]TempItem, 0)
	for rows.Next() {
		var it TempItem
		var inspItems, methods, criteria []byte
		if err := rows.Scan(
			&it.TempItemID, &it.TempFileID, &it.BudgetItemID, &it.ItemName, &it.ItemType,
			&it.ReferenceStandardID, &inspItems, &methods, &criteria,
			&it.Frequency, &it.ResponsibleParty, &it.Notes, &it.IsModified, &it.LastModified,
		); err != nil {
			return nil, fmt.Errorf("failed to scan temp item: %w", err)
		}
		if err := decodeList(inspItems, &it.InspectionItems); err != nil {
			return nil, err
		}
		if err := decodeList(methods, &it.InspectionMethods); err != nil {
			return nil, err
		}
		if err := decodeList(criteria, &it.AcceptanceCriteria); err != nil {
			return nil, err
		}
		items = append(items, it)
	}

	return items, rows.Err()
}

// UpdateTempItem overwrites the non-nil fields, marks the item modified and
// bumps last_modified
func (r *PostgresFormRepository) UpdateTempItem(ctx context.Context, tempItemID int64, update ItemUpdate) (bool, error) {
	items, methods, criteria, err := encodeLists(update.InspectionItems, update.InspectionMethods, update.AcceptanceCriteria)
	if err != nil {
		return false, err
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE temp_standard_items SET
			inspection_items    = COALESCE($2, inspection_items),
			inspection_methods  = COALESCE($3, inspection_methods),
			acceptance_criteria = COALESCE($4, acceptance_criteria),
			frequency           = COALESCE($5, frequency),
			responsible_party   = COALESCE($6, responsible_party),
			notes               = COALESCE($7, notes),
			is_modified         = true,
			last_modified       = now()
		WHERE temp_item_id = $1
	`, tempItemID, items, methods, criteria, update.Frequency, update.ResponsibleParty, update.Notes)
	if err != nil {
		return false, fmt.Errorf("failed to update temp item: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// CreateGeneratedForm records a generated form and returns its id
func (r *PostgresFormRepository) CreateGeneratedForm(ctx context.Context, form GeneratedForm) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO generated_forms (temp_file_id, template_id, form_name, file_id, file_format, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING form_id
	`, form.TempFileID, form.TemplateID, form.FormName, form.FileID, form.FileFormat, []byte(form.Metadata)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert generated form: %w", err)
	}
	return id, nil
}

// DeleteTempFilesBefore removes temp files created before cutoff. Their items
// go with them.
func (r *PostgresFormRepository) DeleteTempFilesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM temp_standard_files WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired temp files: %w", err)
	}
	return tag.RowsAffected(), nil
}

func encodeLists(lists ...[]string) (a, b, c []byte, err error) {
	out := make([][]byte, 3)
	for i, l := range lists {
		if l == nil {
			continue
		}
		if out[i], err = json.Marshal(l); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to encode list: %w", err)
		}
	}
	return out[0], out[1], out[2], nil
}

func decodeList(raw []byte, dst *[]string) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("failed to decode list: %w", err)
	}
	return nil
}
