// Package handler exposes budget imports and budget read models over HTTP.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/FACorreiaa/auto-qm-form/internal/domain/budget/parser"
	"github.com/FACorreiaa/auto-qm-form/internal/domain/budget/service"
	"github.com/FACorreiaa/auto-qm-form/pkg/respond"
)

// BudgetService is the subset of the budget service used by the handler
type BudgetService interface {
	ImportComplexBudget(ctx context.Context, data []byte, filename, budgetID string) (*service.ImportResult, error)
	ImportSimpleBudget(ctx context.Context, data []byte, fileType, budgetID string) (*service.SimpleImportResult, error)
	ListManagementItems(ctx context.Context, budgetID string) (*service.ManagementItems, error)
	Summary(ctx context.Context, budgetID string) (*service.Summary, error)
}

// BudgetHandler serves the /budget routes
type BudgetHandler struct {
	svc       BudgetService
	maxUpload int64
	logger    *slog.Logger
}

// NewBudgetHandler creates a new budget handler
func NewBudgetHandler(svc BudgetService, maxUpload int64, logger *slog.Logger) *BudgetHandler {
	return &BudgetHandler{svc: svc, maxUpload: maxUpload, logger: logger}
}

// RegisterRoutes mounts the budget routes on mux
func (h *BudgetHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /budget/import", h.ImportComplex)
	mux.HandleFunc("POST /budget/import/simple", h.ImportSimple)
	mux.HandleFunc("GET /budget/{budget_id}/items", h.ListItems)
	mux.HandleFunc("GET /budget/{budget_id}/summary", h.Summary)
}

// ImportComplex accepts a multipart budget_id + file upload of a
// hierarchically numbered budget sheet
func (h *BudgetHandler) ImportComplex(w http.ResponseWriter, r *http.Request) {
	upload, ok := h.readUpload(w, r)
	if !ok {
		return
	}
	budgetID := strings.TrimSpace(r.FormValue("budget_id"))
	if budgetID == "" {
		respond.Error(w, http.StatusBadRequest, "budget_id_required")
		return
	}

	result, err := h.svc.ImportComplexBudget(r.Context(), upload.Data, upload.Filename, budgetID)
	if err != nil {
		if errors.Is(err, parser.ErrHeaderNotFound) {
			respond.Error(w, http.StatusUnprocessableEntity, parser.ErrHeaderNotFound.Error())
			return
		}
		h.logger.Error("complex budget import failed",
			slog.String("budget_id", budgetID),
			slog.Any("error", err),
		)
		respond.Error(w, http.StatusInternalServerError, "import failed")
		return
	}

	respond.JSON(w, http.StatusOK, result)
}

// ImportSimple accepts a multipart budget_id + file_type + file upload of a
// column-mapped sheet
func (h *BudgetHandler) ImportSimple(w http.ResponseWriter, r *http.Request) {
	upload, ok := h.readUpload(w, r)
	if !ok {
		return
	}
	budgetID := strings.TrimSpace(r.FormValue("budget_id"))
	if budgetID == "" {
		respond.Error(w, http.StatusBadRequest, "budget_id_required")
		return
	}
	fileType := strings.ToLower(strings.TrimSpace(r.FormValue("file_type")))
	if fileType == "" {
		fileType = service.FileTypeCSV
	}

	result, err := h.svc.ImportSimpleBudget(r.Context(), upload.Data, fileType, budgetID)
	if err != nil {
		if errors.Is(err, service.ErrUnsupportedFileType) {
			respond.Error(w, http.StatusBadRequest, service.ErrUnsupportedFileType.Error())
			return
		}
		h.logger.Error("simple budget import failed",
			slog.String("budget_id", budgetID),
			slog.Any("error", err),
		)
		respond.Error(w, http.StatusInternalServerError, "import failed")
		return
	}

	respond.JSON(w, http.StatusOK, result)
}

// ListItems returns the materials and equipment of a budget
func (h *BudgetHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	budgetID := r.PathValue("budget_id")

	items, err := h.svc.ListManagementItems(r.Context(), budgetID)
	if err != nil {
		h.logger.Error("failed to list budget items", slog.String("budget_id", budgetID), slog.Any("error", err))
		respond.Error(w, http.StatusInternalServerError, "failed to list items")
		return
	}

	respond.JSON(w, http.StatusOK, items)
}

// Summary returns per-type counts and totals of a budget
func (h *BudgetHandler) Summary(w http.ResponseWriter, r *http.Request) {
	budgetID := r.PathValue("budget_id")

	sum, err := h.svc.Summary(r.Context(), budgetID)
	if err != nil {
		h.logger.Error("failed to summarize budget", slog.String("budget_id", budgetID), slog.Any("error", err))
		respond.Error(w, http.StatusInternalServerError, "failed to summarize budget")
		return
	}

	respond.JSON(w, http.StatusOK, sum)
}

func (h *BudgetHandler) readUpload(w http.ResponseWriter, r *http.Request) (*respond.Upload, bool) {
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
