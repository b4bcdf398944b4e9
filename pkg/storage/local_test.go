package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) (*LocalStorage, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := NewLocalStorage(dir)
	require.NoError(t, err)
	return s, dir
}

func TestLocalStorage_UploadDownload(t *testing.T) {
	s, dir := newTestStorage(t)
	ctx := context.Background()

	info, err := s.Upload(ctx, TypeBudgetRaw, "預算書.csv", "text/csv", strings.NewReader("a,b,c"))
	require.NoError(t, err)

	assert.Equal(t, "預算書.csv", info.Name)
	assert.Equal(t, TypeBudgetRaw, info.LogicalType)
	assert.Equal(t, int64(5), info.Size)
	assert.True(t, strings.HasPrefix(info.Path, filepath.Join("budget", "raw")))
	assert.FileExists(t, filepath.Join(dir, info.Path))

	rc, got, err := s.Download(ctx, info.ID)
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "a,b,c", string(data))
	assert.Equal(t, info.ID, got.ID)
}

func TestLocalStorage_UnknownID(t *testing.T) {
	s, _ := newTestStorage(t)

	_, err := s.GetInfo(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = s.Download(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStorage_ListAndDelete(t *testing.T) {
	s, dir := newTestStorage(t)
	ctx := context.Background()

	a, err := s.Upload(ctx, TypeTemplate, "tpl.xlsx", "", bytes.NewReader([]byte("x")))
	require.NoError(t, err)
	_, err = s.Upload(ctx, ReferenceType("material"), "ref.pdf", "", bytes.NewReader([]byte("y")))
	require.NoError(t, err)

	templates, err := s.List(ctx, TypeTemplate)
	require.NoError(t, err)
	require.Len(t, templates, 1)
	assert.Equal(t, a.ID, templates[0].ID)

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, s.Delete(ctx, a.ID))
	_, err = os.Stat(filepath.Join(dir, a.Path))
	assert.True(t, os.IsNotExist(err))

	_, err = s.GetInfo(ctx, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLogicalDir(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"budget/raw", filepath.Join("budget", "raw")},
		{"reference/material", filepath.Join("reference", "material")},
		{"reference/../../etc", filepath.Join("reference", "etc")},
		{"reference/.meta", "reference"},
		{"", "misc"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, logicalDir(tt.in))
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "__etc_passwd", sanitizeFilename("../etc/passwd"))
	assert.Equal(t, "a_b.csv", sanitizeFilename("a:b.csv"))
}
