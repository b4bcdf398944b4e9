// Package respond holds the JSON and multipart helpers shared by HTTP handlers.
package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// ErrFileRequired is returned when a multipart request carries no file part
var ErrFileRequired = errors.New("file_required")

// Failure is the body of every unsuccessful response
type Failure struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
}

// JSON writes v with the given status code
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Warn("failed to encode response", slog.Any("error", err))
	}
}

// Error writes {"status": false, "message": msg}
func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, Failure{Status: false, Message: msg})
}

// Upload is a file read from a multipart form
type Upload struct {
	Filename string
	Data     []byte
}

// ReadUpload parses a multipart form of at most maxBytes and reads the named
// file part into memory. The request body is capped at maxBytes plus 1 MiB
// for the other form fields.
func ReadUpload(w http.ResponseWriter, r *http.Request, field string, maxBytes int64) (*Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1<<20)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		return nil, fmt.Errorf("failed to parse multipart form: %w", err)
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, ErrFileRequired
		}
		return nil, fmt.Errorf("failed to read form file: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("upload exceeds %d bytes", maxBytes)
	}

	return &Upload{Filename: header.Filename, Data: data}, nil
}
