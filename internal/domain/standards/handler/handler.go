// Package handler exposes the reference library over HTTP.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/FACorreiaa/auto-qm-form/internal/domain/standards"
	"github.com/FACorreiaa/auto-qm-form/pkg/respond"
)

// StandardsService is the subset of the standards service used by the handler
type StandardsService interface {
	ImportReferenceData(ctx context.Context, data []byte, filename, category string, description *string) (*standards.ReferenceUpload, error)
	ImportBlankTemplate(ctx context.Context, data []byte, filename, name string, description *string) (*standards.TemplateUpload, error)
	ListTemplates(ctx context.Context) (*standards.TemplateList, error)
	SearchReferenceData(ctx context.Context, keyword, category string) (*standards.ReferenceResults, error)
	SearchQualityStandards(ctx context.Context, itemType, itemName string, fuzzy bool) (*standards.StandardMatches, error)
}

// ReferenceHandler serves the /reference routes and the standards lookup
type ReferenceHandler struct {
	svc       StandardsService
	maxUpload int64
	logger    *slog.Logger
}

// NewReferenceHandler creates a new reference handler
func NewReferenceHandler(svc StandardsService, maxUpload int64, logger *slog.Logger) *ReferenceHandler {
	return &ReferenceHandler{svc: svc, maxUpload: maxUpload, logger: logger}
}

// RegisterRoutes mounts the reference routes on mux
func (h *ReferenceHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /reference/upload", h.UploadReference)
	mux.HandleFunc("POST /reference/template/upload", h.UploadTemplate)
	mux.HandleFunc("GET /reference/template/list", h.ListTemplates)
	mux.HandleFunc("GET /reference/search", h.Search)
	mux.HandleFunc("GET /form/standards/search", h.SearchStandards)
}

// UploadReference stores a reference document under a category
func (h *ReferenceHandler) UploadReference(w http.ResponseWriter, r *http.Request) {
	upload, ok := h.readUpload(w, r)
	if !ok {
		return
	}
	category := strings.TrimSpace(r.FormValue("category"))
	if category == "" {
		respond.Error(w, http.StatusBadRequest, "category_required")
		return
	}

	res, err := h.svc.ImportReferenceData(r.Context(), upload.Data, upload.Filename, category, formValue(r, "description"))
	if err != nil {
		h.logger.Error("reference upload failed", slog.String("category", category), slog.Any("error", err))
		respond.Error(w, http.StatusInternalServerError, "upload failed")
		return
	}
	respond.JSON(w, http.StatusOK, res)
}

// UploadTemplate stores a blank form template
func (h *ReferenceHandler) UploadTemplate(w http.ResponseWriter, r *http.Request) {
	upload, ok := h.readUpload(w, r)
	if !ok {
		return
	}
	name := strings.TrimSpace(r.FormValue("template_name"))
	if name == "" {
		respond.Error(w, http.StatusBadRequest, "template_name_required")
		return
	}

	res, err := h.svc.ImportBlankTemplate(r.Context(), upload.Data, upload.Filename, name, formValue(r, "description"))
	if err != nil {
		if errors.Is(err, standards.ErrTemplateExists) {
			respond.Error(w, http.StatusConflict, standards.ErrTemplateExists.Error())
			return
		}
		h.logger.Error("template upload failed", slog.String("template_name", name), slog.Any("error", err))
		respond.Error(w, http.StatusInternalServerError, "upload failed")
		return
	}
	respond.JSON(w, http.StatusOK, res)
}

// ListTemplates returns every template's id and name
func (h *ReferenceHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.ListTemplates(r.Context())
	if err != nil {
		h.logger.Error("failed to list templates", slog.Any("error", err))
		respond.Error(w, http.StatusInternalServerError, "failed to list templates")
		return
	}
	respond.JSON(w, http.StatusOK, res)
}

// Search filters standards by ?category= and ?keyword=
func (h *ReferenceHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := h.svc.SearchReferenceData(r.Context(), strings.TrimSpace(q.Get("keyword")), strings.TrimSpace(q.Get("category")))
	if err != nil {
		h.logger.Error("reference search failed", slog.Any("error", err))
		respond.Error(w, http.StatusInternalServerError, "search failed")
		return
	}
	respond.JSON(w, http.StatusOK, res)
}

// SearchStandards looks up standards by ?item_type=, ?item_name= and
// ?fuzzy= (default true)
func (h *ReferenceHandler) SearchStandards(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	itemType := strings.TrimSpace(q.Get("item_type"))
	itemName := strings.TrimSpace(q.Get("item_name"))
	if itemType == "" || itemName == "" {
		respond.Error(w, http.StatusBadRequest, "item_type and item_name are required")
		return
	}

	fuzzy := true
	if v := q.Get("fuzzy"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			respond.Error(w, http.StatusBadRequest, "invalid fuzzy flag")
			return
		}
		fuzzy = parsed
	}

	res, err := h.svc.SearchQualityStandards(r.Context(), itemType, itemName, fuzzy)
	if err != nil {
		h.logger.Error("standards search failed", slog.Any("error", err))
		respond.Error(w, http.StatusInternalServerError, "search failed")
		return
	}
	respond.JSON(w, http.StatusOK, res)
}

func (h *ReferenceHandler) readUpload(w http.ResponseWriter, r *http.Request) (*respond.Upload, bool) {
	upload, err := respond.ReadUpload(w, r, "file", h.maxUpload)
	if err != nil {
		if errors.Is(err, respond.ErrFileRequired) {
			respond.Error(w, http.StatusBadRequest, respond.ErrFileRequired.Error())
			return nil, false
		}
		respond.Error(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return upload, true
}

// formValue returns nil for an absent or blank form field
func formValue(r *http.Request, key string) *string {
	v := strings.TrimSpace(r.FormValue(key))
	if v == "" {
		return nil
	}
	return &v
}
