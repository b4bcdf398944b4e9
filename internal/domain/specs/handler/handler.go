// Package handler exposes specification ingestion over HTTP.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/FACorreiaa/auto-qm-form/internal/domain/specs"
	"github.com/FACorreiaa/auto-qm-form/pkg/respond"
)

// SpecService is the subset of the specs service used by the handler
type SpecService interface {
	ImportTechnicalSpecs(ctx context.Context, data []byte, filename, fileType, specID string) (*specs.ImportResult, error)
	ParseTechnicalSpecs(ctx context.Context, specID string) (*specs.Parsed, error)
}

// SpecsHandler serves the /specs routes
type SpecsHandler struct {
	svc       SpecService
	maxUpload int64
	logger    *slog.Logger
}

// NewSpecsHandler creates a new specs handler
func NewSpecsHandler(svc SpecService, maxUpload int64, logger *slog.Logger) *SpecsHandler {
	return &SpecsHandler{svc: svc, maxUpload: maxUpload, logger: logger}
}

// RegisterRoutes mounts the specs routes on mux
func (h *SpecsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /specs/import", h.Import)
	mux.HandleFunc("GET /specs/{spec_id}/parsed", h.Parsed)
}

// Import accepts a multipart spec_id + file upload
func (h *SpecsHandler) Import(w http.ResponseWriter, r *http.Request) {
	upload, err := respond.ReadUpload(w, r, "file", h.maxUpload)
	if err != nil {
		if errors.Is(err, respond.ErrFileRequired) {
			respond.Error(w, http.StatusBadRequest, "file required")
			return
		}
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	specID := strings.TrimSpace(r.FormValue("spec_id"))
	if specID == "" {
		respond.Error(w, http.StatusBadRequest, "spec_id_required")
		return
	}

	fileType := specs.FileTypeFromName(upload.Filename)
	result, err := h.svc.ImportTechnicalSpecs(r.Context(), upload.Data, upload.Filename, fileType, specID)
	if err != nil {
		if errors.Is(err, specs.ErrUnsupportedFileType) {
			respond.Error(w, http.StatusBadRequest, specs.ErrUnsupportedFileType.Error())
			return
		}
		h.logger.Error("spec import failed",
			slog.String("spec_id", specID),
			slog.String("file_type", fileType),
			slog.Any("error", err),
		)
		respond.Error(w, http.StatusUnprocessableEntity, "spec import failed")
		return
	}

	respond.JSON(w, http.StatusOK, result)
}

// Parsed lists the stored items of a specification
func (h *SpecsHandler) Parsed(w http.ResponseWriter, r *http.Request) {
	specID := r.PathValue("spec_id")

	parsed, err := h.svc.ParseTechnicalSpecs(r.Context(), specID)
	if err != nil {
		h.logger.Error("failed to list spec items", slog.String("spec_id", specID), slog.Any("error", err))
		respond.Error(w, http.StatusInternalServerError, "failed to list spec items")
		return
	}

	respond.JSON(w, http.StatusOK, parsed)
}
