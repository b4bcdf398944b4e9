package respond

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func multipartRequest(t *testing.T, fields map[string]string, file string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != "" {
		fw, err := mw.CreateFormFile("file", file)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestError(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, http.StatusBadRequest, "header_not_found")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":false,"message":"header_not_found"}`, rec.Body.String())
}

func TestReadUpload(t *testing.T) {
	t.Run("reads file and fields", func(t *testing.T) {
		req := multipartRequest(t, map[string]string{"budget_id": "B1"}, "budget.csv", []byte("a,b"))

		up, err := ReadUpload(httptest.NewRecorder(), req, "file", 1<<20)
		require.NoError(t, err)
		assert.Equal(t, "budget.csv", up.Filename)
		assert.Equal(t, []byte("a,b"), up.Data)
		assert.Equal(t, "B1", req.FormValue("budget_id"))
	})

	t.Run("missing file", func(t *testing.T) {
		req := multipartRequest(t, map[string]string{"budget_id": "B1"}, "", nil)

		_, err := ReadUpload(httptest.NewRecorder(), req, "file", 1<<20)
		assert.ErrorIs(t, err, ErrFileRequired)
	})

	t.Run("too large", func(t *testing.T) {
		req := multipartRequest(t, nil, "big.csv", bytes.Repeat([]byte("x"), 2048))

		_, err := ReadUpload(httptest.NewRecorder(), req, "file", 1024)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrFileRequired)
	})

	t.Run("body over cap", func(t *testing.T) {
		req := multipartRequest(t, nil, "big.csv", bytes.Repeat([]byte("x"), 2<<20))

		_, err := ReadUpload(httptest.NewRecorder(), req, "file", 1024)
		var maxErr *http.MaxBytesError
		require.ErrorAs(t, err, &maxErr)
		assert.Equal(t, int64(1024+1<<20), maxErr.Limit)
	})
}
