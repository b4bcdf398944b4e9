package standards

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var standardColumns = []string{
	"standard_id", "item_name", "item_type", "source", "inspection_items",
	"inspection_methods", "acceptance_criteria", "frequency", "responsible_party",
	"notes", "created_at",
}

var templateColumns = []string{"template_id", "template_name", "file_id", "description", "created_at"}

func TestRepository_InsertStandardIfAbsent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRepository(mock)
	qs := QualityStandard{ItemName: "鋼筋", ItemType: "material", InspectionItems: []string{"材質"}}

	mock.ExpectExec(`INSERT INTO quality_standards`).
		WithArgs("鋼筋", "material", (*string)(nil), []byte(`["材質"]`), []byte(nil), []byte(nil),
			(*string)(nil), (*string)(nil), (*string)(nil)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO quality_standards`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	ok, err := repo.InsertStandardIfAbsent(context.Background(), qs)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.InsertStandardIfAbsent(context.Background(), qs)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ListStandards(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRepository(mock)
	now := time.Now()

	mock.ExpectQuery(`FROM quality_standards WHERE item_type = \$1`).
		WithArgs("material").
		WillReturnRows(pgxmock.NewRows(standardColumns).
			AddRow(int64(1), "鋼筋", "material", strPtr("ref_manual_A"), []byte(`["材質","尺寸"]`),
				[]byte(`["游標卡尺量測"]`), nil, strPtr("每批"), strPtr("監造"), nil, now))

	got, err := repo.ListStandards(context.Background(), "material")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"材質", "尺寸"}, got[0].InspectionItems)
	assert.Equal(t, []string{"游標卡尺量測"}, got[0].InspectionMethods)
	assert.Nil(t, got[0].AcceptanceCriteria)
	assert.Equal(t, "每批", *got[0].Frequency)

	mock.ExpectQuery(`FROM quality_standards ORDER BY standard_id`).
		WillReturnRows(pgxmock.NewRows(standardColumns))

	got, err = repo.ListStandards(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, got)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_CreateTemplate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRepository(mock)
	tpl := BlankTemplate{TemplateName: "標準表", FileID: "f1"}

	mock.ExpectQuery(`INSERT INTO blank_templates`).
		WithArgs("標準表", "f1", (*string)(nil)).
		WillReturnRows(pgxmock.NewRows([]string{"template_id"}).AddRow(int64(7)))
	mock.ExpectQuery(`INSERT INTO blank_templates`).
		WithArgs("標準表", "f1", (*string)(nil)).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectQuery(`INSERT INTO blank_templates`).
		WithArgs("標準表", "f1", (*string)(nil)).
		WillReturnError(errors.New("connection reset"))

	id, err := repo.CreateTemplate(context.Background(), tpl)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	_, err = repo.CreateTemplate(context.Background(), tpl)
	assert.ErrorIs(t, err, ErrTemplateExists)

	_, err = repo.CreateTemplate(context.Background(), tpl)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrTemplateExists)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetTemplate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRepository(mock)

	mock.ExpectQuery(`FROM blank_templates`).
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows(templateColumns).AddRow(int64(7), "標準表", "f1", nil, time.Now()))
	mock.ExpectQuery(`FROM blank_templates`).
		WithArgs(int64(8)).
		WillReturnError(pgx.ErrNoRows)

	tpl, err := repo.GetTemplate(context.Background(), 7)
	require.NoError(t, err)
	require.NotNil(t, tpl)
	assert.Equal(t, "標準表", tpl.TemplateName)

	tpl, err = repo.GetTemplate(context.Background(), 8)
	require.NoError(t, err)
	assert.Nil(t, tpl)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_CreateReferenceFile(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`INSERT INTO reference_files`).
		WithArgs("material", strPtr("手冊"), "f2", "manual.pdf").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(3)))

	id, err := NewRepository(mock).CreateReferenceFile(context.Background(), ReferenceFile{
		Category: "material", Description: strPtr("手冊"), FileID: "f2", FileName: "manual.pdf",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}
