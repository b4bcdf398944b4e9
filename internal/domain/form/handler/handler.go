// Package handler exposes the form workspace over HTTP.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/FACorreiaa/auto-qm-form/internal/domain/form/repository"
	"github.com/FACorreiaa/auto-qm-form/internal/domain/form/service"
	"github.com/FACorreiaa/auto-qm-form/pkg/respond"
)

// FormService is the subset of the form service used by the handler
type FormService interface {
	IdentifyManagementItems(ctx context.Context, budgetID string) (*service.ManagementItems, error)
	CreateTempStandards(ctx context.Context, budgetID string, specID *string) (*service.TempCreated, error)
	GetTempStandards(ctx context.Context, tempFileID int64, itemID *int64) (*service.TempStandards, error)
	UpdateTempStandardItem(ctx context.Context, tempItemID int64, update repository.ItemUpdate) error
	GenerateFinalForm(ctx context.Context, tempFileID, templateID int64, formName string) (*service.FormGenerated, error)
}

// FormHandler serves the /form workspace routes
type FormHandler struct {
	svc    FormService
	logger *slog.Logger
}

// NewFormHandler creates a new form handler
func NewFormHandler(svc FormService, logger *slog.Logger) *FormHandler {
	return &FormHandler{svc: svc, logger: logger}
}

// RegisterRoutes mounts the form routes on mux
func (h *FormHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /form/identify/{budget_id}", h.Identify)
	mux.HandleFunc("POST /form/temp/create", h.CreateTemp)
	mux.HandleFunc("GET /form/temp/{temp_file_id}", h.GetTemp)
	mux.HandleFunc("POST /form/temp/item/update", h.UpdateTempItem)
	mux.HandleFunc("POST /form/generate", h.Generate)
}

// Identify lists the budget items that need a quality standard
func (h *FormHandler) Identify(w http.ResponseWriter, r *http.Request) {
	budgetID := strings.TrimSpace(r.PathValue("budget_id"))
	res, err := h.svc.IdentifyManagementItems(r.Context(), budgetID)
	if err != nil {
		h.logger.Error("identify failed", slog.String("budget_id", budgetID), slog.Any("error", err))
		respond.Error(w, http.StatusInternalServerError, "identify failed")
		return
	}
	respond.JSON(w, http.StatusOK, res)
}

// CreateTemp opens a temp standards workspace for a budget
func (h *FormHandler) CreateTemp(w http.ResponseWriter, r *http.Request) {
	budgetID := strings.TrimSpace(r.FormValue("budget_id"))
	if budgetID == "" {
		respond.Error(w, http.StatusBadRequest, "budget_id_required")
		return
	}

	res, err := h.svc.CreateTempStandards(r.Context(), budgetID, optional(r, "spec_id"))
	if err != nil {
		h.logger.Error("temp create failed", slog.String("budget_id", budgetID), slog.Any("error", err))
		respond.Error(w, http.StatusInternalServerError, "temp create failed")
		return
	}
	respond.JSON(w, http.StatusOK, res)
}

// GetTemp returns the items of a temp workspace, optionally only ?item_id=
func (h *FormHandler) GetTemp(w http.ResponseWriter, r *http.Request) {
	tempFileID, err := strconv.ParseInt(r.PathValue("temp_file_id"), 10, 64)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid temp_file_id")
		return
	}

	var itemID *int64
	if v := r.URL.Query().Get("item_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			respond.Error(w, http.StatusBadRequest, "invalid item_id")
			return
		}
		itemID = &id
	}

	res, err := h.svc.GetTempStandards(r.Context(), tempFileID, itemID)
	if err != nil {
		h.logger.Error("temp lookup failed", slog.Int64("temp_file_id", tempFileID), slog.Any("error", err))
		respond.Error(w, http.StatusInternalServerError, "temp lookup failed")
		return
	}
	respond.JSON(w, http.StatusOK, res)
}

// UpdateTempItem edits one temp item. List fields are comma separated.
func (h *FormHandler) UpdateTempItem(w http.ResponseWriter, r *http.Request) {
	tempItemID, err := strconv.ParseInt(strings.TrimSpace(r.FormValue("temp_item_id")), 10, 64)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid temp_item_id")
		return
	}

	update := repository.ItemUpdate{
		InspectionItems:    splitList(r.FormValue("inspection_items")),
		InspectionMethods:  splitList(r.FormValue("inspection_methods")),
		AcceptanceCriteria: splitList(r.FormValue("acceptance_criteria")),
		Frequency:          optional(r, "frequency"),
		ResponsibleParty:   optional(r, "responsible_party"),
		Notes:              optional(r, "notes"),
	}

	if err := h.svc.UpdateTempStandardItem(r.Context(), tempItemID, update); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, "not found")
			return
		}
		h.logger.Error("temp item update failed", slog.Int64("temp_item_id", tempItemID), slog.Any("error", err))
		respond.Error(w, http.StatusInternalServerError, "update failed")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"status": true, "message": "updated"})
}

// Generate renders the final form of a temp workspace
func (h *FormHandler) Generate(w http.ResponseWriter, r *http.Request) {
	tempFileID, err := strconv.ParseInt(strings.TrimSpace(r.FormValue("temp_file_id")), 10, 64)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid temp_file_id")
		return
	}
	templateID, err := strconv.ParseInt(strings.TrimSpace(r.FormValue("template_id")), 10, 64)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid template_id")
		return
	}
	formName := strings.TrimSpace(r.FormValue("form_name"))
	if formName == "" {
		respond.Error(w, http.StatusBadRequest, "form_name_required")
		return
	}

	res, err := h.svc.GenerateFinalForm(r.Context(), tempFileID, templateID, formName)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, "temp_file or template not found")
			return
		}
		h.logger.Error("form generation failed",
			slog.Int64("temp_file_id", tempFileID),
			slog.Int64("template_id", templateID),
			slog.Any("error", err),
		)
		respond.Error(w, http.StatusInternalServerError, "form generation failed")
		return
	}
	respond.JSON(w, http.StatusOK, res)
}

// splitList turns "a, b ,c" into [a b c]; blank input means no change
func splitList(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

func optional(r *http.Request, key string) *string {
	v := r.FormValue(key)
	if v == "" {
		return nil
	}
	return &v
}
