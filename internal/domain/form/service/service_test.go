package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/auto-qm-form/internal/domain/form/repository"
	"github.com/FACorreiaa/auto-qm-form/pkg/observability"
	"github.com/FACorreiaa/auto-qm-form/pkg/storage"
)

type fakeFormRepo struct {
	files      map[int64]repository.TempFile
	items      map[int64][]repository.TempItem
	forms      []repository.GeneratedForm
	formErr    error
	cutoff     time.Time
	deleteRows int64
}

func newFakeFormRepo() *fakeFormRepo {
	return &fakeFormRepo{
		files: make(map[int64]repository.TempFile),
		items: make(map[int64][]repository.TempItem),
	}
}

func (f *fakeFormRepo) CreateTempFile(_ context.Context, file repository.TempFile, items []repository.TempItem) (int64, error) {
	id := int64(len(f.files) + 1)
	file.TempFileID = id
	f.files[id] = file
	for i := range items {
		items[i].TempItemID = id*100 + int64(i+1)
		items[i].TempFileID = id
	}
	f.items[id] = items
	return id, nil
}

func (f *fakeFormRepo) GetTempFile(_ context.Context, id int64) (*repository.TempFile, error) {
	file, ok := f.files[id]
	if !ok {
		return nil, nil
	}
	return &file, nil
}

func (f *fakeFormRepo) ListTempItems(_ context.Context, tempFileID int64, itemID *int64) ([]repository.TempItem, error) {
	out := make([]repository.TempItem, 0)
	for _, it := range f.items[tempFileID] {
		if itemID != nil && it.TempItemID != *itemID {
			continue
		}
		out = append(out, it)
	}
	return out, nil
}

func (f *fakeFormRepo) UpdateTempItem(_ context.Context, tempItemID int64, u repository.ItemUpdate) (bool, error) {
	for fid, items := range f.items {
		for i := range items {
			if items[i].TempItemID != tempItemID {
				continue
			}
			if u.InspectionItems != nil {
				items[i].InspectionItems = u.InspectionItems
			}
			if u.Frequency != nil {
				items[i].Frequency = u.Frequency
			}
			items[i].IsModified = true
			f.items[fid] = items
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeFormRepo) CreateGeneratedForm(_ context.Context, form repository.GeneratedForm) (int64, error) {
	if f.formErr != nil {
		return 0, f.formErr
	}
	f.forms = append(f.forms, form)
	return int64(len(f.forms)), nil
}

func (f *fakeFormRepo) DeleteTempFilesBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return f.deleteRows, nil
}

type fakeBudgets struct{ lines []BudgetLine }

func (f fakeBudgets) ListBudgetItems(_ context.Context, _ string) ([]BudgetLine, error) {
	return f.lines, nil
}

type fakeLibrary struct {
	standards []ReferenceStandard
	templates map[int64]bool
}

func (f fakeLibrary) ListStandards(_ context.Context, itemType string) ([]ReferenceStandard, error) {
	var out []ReferenceStandard
	for _, s := range f.standards {
		if s.ItemType == itemType {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f fakeLibrary) TemplateExists(_ context.Context, id int64) (bool, error) {
	return f.templates[id], nil
}

func strPtr(s string) *string { return &s }

func testLines() []BudgetLine {
	return []BudgetLine{
		{ItemID: 1, Name: "Rebar", Type: "material"},
		{ItemID: 2, Name: "鋼筋綁紮", Type: "work"},
		{ItemID: 3, Name: "網路交換器", Type: "equipment"},
		{ItemID: 4, Name: "水泥", Type: "material"},
	}
}

func testLibrary() fakeLibrary {
	return fakeLibrary{
		standards: []ReferenceStandard{
			{StandardID: 7, ItemName: "rebar", ItemType: "material",
				InspectionItems: []string{"外觀", "尺寸"}, InspectionMethods: []string{"目視"},
				AcceptanceCriteria: []string{"無鏽蝕"}, Frequency: strPtr("每批"), ResponsibleParty: strPtr("監造")},
			{StandardID: 8, ItemName: "網路交換器", ItemType: "material"},
		},
		templates: map[int64]bool{2: true},
	}
}

func newTestService(t *testing.T, repo *fakeFormRepo) (*FormService, *storage.LocalStorage, *observability.Metrics) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	metrics := observability.NewMetrics(nil)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewFormService(repo, fakeBudgets{lines: testLines()}, testLibrary(), store, metrics, 30, logger), store, metrics
}

func TestFormService_IdentifyManagementItems(t *testing.T) {
	svc, _, _ := newTestService(t, newFakeFormRepo())

	res, err := svc.IdentifyManagementItems(context.Background(), "B1")
	require.NoError(t, err)
	assert.True(t, res.Status)
	assert.Equal(t, "ok", res.Message)
	assert.Equal(t, []ManagementItem{
		{BudgetItemID: 1, Name: "Rebar", Type: "material"},
		{BudgetItemID: 3, Name: "網路交換器", Type: "equipment"},
		{BudgetItemID: 4, Name: "水泥", Type: "material"},
	}, res.Items)
}

func TestFormService_CreateTempStandards(t *testing.T) {
	repo := newFakeFormRepo()
	svc, _, _ := newTestService(t, repo)

	res, err := svc.CreateTempStandards(context.Background(), "B1", strPtr("S1"))
	require.NoError(t, err)
	assert.Equal(t, "temp created", res.Message)
	assert.Equal(t, int64(1), res.TempFileID)
	assert.Equal(t, 4, res.ItemsCount)
	assert.Equal(t, 1, res.MatchedCount)

	assert.Equal(t, "S1", *repo.files[1].SpecID)
	items := repo.items[1]
	require.Len(t, items, 3)

	rebar := items[0]
	require.NotNil(t, rebar.ReferenceStandardID)
	assert.Equal(t, int64(7), *rebar.ReferenceStandardID)
	assert.Equal(t, []string{"外觀", "尺寸"}, rebar.InspectionItems)
	assert.Equal(t, "每批", *rebar.Frequency)

	// a standard with the same name but another type is not a match
	assert.Nil(t, items[1].ReferenceStandardID)
	assert.Nil(t, items[1].InspectionItems)
}

func TestFormService_GetAndUpdateTempStandards(t *testing.T) {
	repo := newFakeFormRepo()
	svc, _, _ := newTestService(t, repo)
	ctx := context.Background()

	_, err := svc.CreateTempStandards(ctx, "B1", nil)
	require.NoError(t, err)

	all, err := svc.GetTempStandards(ctx, 1, nil)
	require.NoError(t, err)
	assert.Len(t, all.Standards, 3)

	id := int64(102)
	one, err := svc.GetTempStandards(ctx, 1, &id)
	require.NoError(t, err)
	require.Len(t, one.Standards, 1)
	assert.Equal(t, "網路交換器", one.Standards[0].ItemName)

	err = svc.UpdateTempStandardItem(ctx, 102, repository.ItemUpdate{
		InspectionItems: []string{"通電測試"},
		Frequency:       strPtr("每台"),
	})
	require.NoError(t, err)
	one, err = svc.GetTempStandards(ctx, 1, &id)
	require.NoError(t, err)
	assert.Equal(t, []string{"通電測試"}, one.Standards[0].InspectionItems)
	assert.True(t, one.Standards[0].IsModified)

	err = svc.UpdateTempStandardItem(ctx, 999, repository.ItemUpdate{Notes: strPtr("x")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFormService_GenerateFinalForm(t *testing.T) {
	repo := newFakeFormRepo()
	svc, store, metrics := newTestService(t, repo)
	ctx := context.Background()

	_, err := svc.CreateTempStandards(ctx, "B1", nil)
	require.NoError(t, err)

	res, err := svc.GenerateFinalForm(ctx, 1, 2, "品管表")
	require.NoError(t, err)
	assert.Equal(t, "form generated", res.Message)
	assert.Equal(t, int64(1), res.FormID)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FormsGenerated))

	require.Len(t, repo.forms, 1)
	assert.Equal(t, "excel", repo.forms[0].FileFormat)
	assert.Equal(t, res.DownloadFileID, repo.forms[0].FileID)
	assert.Contains(t, string(repo.forms[0].Metadata), "generated_at")

	rc, info, err := store.Download(ctx, uuid.MustParse(res.DownloadFileID))
	require.NoError(t, err)
	defer rc.Close()
	assert.Equal(t, "品管表.xlsx", info.Name)
	assert.Equal(t, storage.TypeGeneratedForm, info.LogicalType)

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	wb, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer wb.Close()

	rows, err := wb.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, FormHeaders, rows[0])

	want := map[string]string{
		"A2": "Rebar", "B2": "material", "C2": "外觀, 尺寸", "D2": "目視",
		"E2": "無鏽蝕", "F2": "每批", "G2": "監造", "H2": "",
		"A3": "網路交換器", "C3": "", "A4": "水泥",
	}
	for cell, v := range want {
		got, err := wb.GetCellValue(SheetName, cell)
		require.NoError(t, err)
		assert.Equal(t, v, got, cell)
	}
}

func TestFormService_GenerateFinalForm_NotFound(t *testing.T) {
	repo := newFakeFormRepo()
	svc, store, _ := newTestService(t, repo)
	ctx := context.Background()

	_, err := svc.CreateTempStandards(ctx, "B1", nil)
	require.NoError(t, err)

	_, err = svc.GenerateFinalForm(ctx, 42, 2, "x")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.GenerateFinalForm(ctx, 1, 42, "x")
	assert.ErrorIs(t, err, ErrNotFound)

	files, err := store.List(ctx, storage.TypeGeneratedForm)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestFormService_GenerateFinalForm_RemovesBlobOnRecordFailure(t *testing.T) {
	repo := newFakeFormRepo()
	repo.formErr = errors.New("insert failed")
	svc, store, metrics := newTestService(t, repo)
	ctx := context.Background()

	_, err := svc.CreateTempStandards(ctx, "B1", nil)
	require.NoError(t, err)

	_, err = svc.GenerateFinalForm(ctx, 1, 2, "x")
	require.Error(t, err)

	files, err := store.List(ctx, storage.TypeGeneratedForm)
	require.NoError(t, err)
	assert.Empty(t, files)
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.FormsGenerated))
}

func TestFormService_ExpireTempFiles(t *testing.T) {
	repo := newFakeFormRepo()
	repo.deleteRows = 3
	svc, _, metrics := newTestService(t, repo)
	now := time.Date(2026, 3, 31, 3, 0, 0, 0, time.UTC)

	n, err := svc.ExpireTempFiles(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC), repo.cutoff)
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.TempExpired))

	disabled := NewFormService(repo, fakeBudgets{}, fakeLibrary{}, nil, nil, 0, slog.New(slog.NewTextHandler(io.Discard, nil)))
	n, err = disabled.ExpireTempFiles(context.Background(), now)
	require.NoError(t, err)
	assert.Zero(t, n)
}
