package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	platformerrors "github.com/atelierpress/be-print-dossiers/internal/platform/errors"
	"github.com/atelierpress/be-print-dossiers/internal/platform/logger"
	"github.com/atelierpress/be-print-dossiers/internal/platform/middleware"
	"github.com/atelierpress/be-print-dossiers/internal/repository"
	"github.com/atelierpress/be-print-dossiers/internal/service"
	"github.com/atelierpress/be-print-dossiers/internal/workflow"
)

// HTTPHandler handles HTTP requests for the dossier workflow.
type HTTPHandler struct {
	service *service.DossierService
	log     *logger.Logger
}

// NewHTTPHandler creates a new HTTP handler.
func NewHTTPHandler(svc *service.DossierService, log *logger.Logger) *HTTPHandler {
	return &HTTPHandler{
		service: svc,
		log:     log,
	}
}

// rejectionStatus maps each workflow rejection reason to its HTTP status.
// Every reason gets a distinct, actionable answer instead of a generic 404.
var rejectionStatus = map[workflow.RejectionReason]int{
	workflow.ReasonNotReachable:       http.StatusConflict,
	workflow.ReasonNotOwner:           http.StatusForbidden,
	workflow.ReasonWrongMachineFamily: http.StatusForbidden,
	workflow.ReasonCommentRequired:    http.StatusUnprocessableEntity,
	workflow.ReasonFolderLocked:       http.StatusLocked,
}

// CreateDossier handles dossier creation requests.
func (h *HTTPHandler) CreateDossier(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	var req service.CreateDossierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	dossier, err := h.service.CreateDossier(r.Context(), p, &req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, dossierResponse(dossier))
}

// GetDossier returns a dossier with its status history.
func (h *HTTPHandler) GetDossier(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.principal(w, r); !ok {
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Dossier ID is required", http.StatusBadRequest)
		return
	}

	dossier, history, err := h.service.GetDossier(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	entries := make([]map[string]any, 0, len(history))
	for _, e := range history {
		entries = append(entries, historyResponse(e))
	}

	resp := dossierResponse(dossier)
	resp["history"] = entries
	h.writeJSON(w, http.StatusOK, resp)
}

// ListDossiers returns dossiers matching the query filters.
func (h *HTTPHandler) ListDossiers(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.principal(w, r); !ok {
		return
	}

	var filter repository.DossierFilter

	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := workflow.ParseStatus(raw)
		if err != nil {
			http.Error(w, "Unknown status filter", http.StatusBadRequest)
			return
		}
		filter.Status = &status
	}
	if raw := r.URL.Query().Get("machine_family"); raw != "" {
		family, err := workflow.ParseMachineFamily(raw)
		if err != nil {
			http.Error(w, "Unknown machine family filter", http.StatusBadRequest)
			return
		}
		filter.MachineFamily = &family
	}
	if createdBy := r.URL.Query().Get("created_by"); createdBy != "" {
		filter.CreatedBy = &createdBy
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 50
	}

	dossiers, total, err := h.service.ListDossiers(r.Context(), filter, page, pageSize)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	items := make([]map[string]any, 0, len(dossiers))
	for _, d := range dossiers {
		items = append(items, dossierResponse(d))
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"dossiers": items,
		"total":    total,
		"page":     page,
		"pageSize": pageSize,
	})
}

// TransitionDossier requests a status change on a dossier.
func (h *HTTPHandler) TransitionDossier(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	var req struct {
		ID           string `json:"id"`
		TargetStatus string `json:"target_status"`
		Comment      string `json:"comment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ID == "" {
		http.Error(w, "Dossier ID is required", http.StatusBadRequest)
		return
	}

	target, err := workflow.ParseStatus(req.TargetStatus)
	if err != nil {
		http.Error(w, "Unknown target status", http.StatusBadRequest)
		return
	}

	dossier, err := h.service.Transition(r.Context(), p, req.ID, target, req.Comment)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, dossierResponse(dossier))
}

// AvailableTransitions returns the statuses the caller may move the dossier
// to from its current state.
func (h *HTTPHandler) AvailableTransitions(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Dossier ID is required", http.StatusBadRequest)
		return
	}

	statuses, err := h.service.AvailableTransitions(r.Context(), p, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	targets := make([]map[string]string, 0, len(statuses))
	for _, s := range statuses {
		targets = append(targets, map[string]string{
			"status": string(s),
			"label":  s.Label(),
		})
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"transitions": targets})
}

// SignOffDossier records the preparer's validation.
func (h *HTTPHandler) SignOffDossier(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		http.Error(w, "Dossier ID is required", http.StatusBadRequest)
		return
	}

	if err := h.service.SignOff(r.Context(), p, req.ID); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "validated"})
}

// AssignMachineFamily binds the dossier to a machine family.
func (h *HTTPHandler) AssignMachineFamily(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	var req struct {
		ID            string `json:"id"`
		MachineFamily string `json:"machine_family"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		http.Error(w, "Dossier ID is required", http.StatusBadRequest)
		return
	}

	if err := h.service.AssignMachineFamily(r.Context(), p, req.ID, req.MachineFamily); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "assigned"})
}

// DeleteDossier removes a dossier that never entered the pipeline.
func (h *HTTPHandler) DeleteDossier(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Dossier ID is required", http.StatusBadRequest)
		return
	}

	if err := h.service.DeleteDossier(r.Context(), p, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ── helpers ───────────────────────────────────────────────────────────────────

// principal resolves the authenticated workflow principal, writing the
// error response itself when resolution fails.
func (h *HTTPHandler) principal(w http.ResponseWriter, r *http.Request) (workflow.Principal, bool) {
	raw, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return workflow.Principal{}, false
	}
	role, err := workflow.ParseRole(raw.Role)
	if err != nil {
		http.Error(w, "Unknown role", http.StatusForbidden)
		return workflow.Principal{}, false
	}
	return workflow.Principal{UserID: raw.UserID, Role: role}, true
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var rejected *service.TransitionRejectedError
	if errors.As(err, &rejected) {
		status, ok := rejectionStatus[rejected.Reason]
		if !ok {
			status = http.StatusForbidden
		}
		h.writeJSON(w, status, map[string]string{
			"reason":  string(rejected.Reason),
			"message": rejected.Reason.Message(),
		})
		return
	}

	status := platformerrors.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
	}
	h.writeJSON(w, status, map[string]string{
		"message": platformerrors.MessageOf(err),
	})
}

func (h *HTTPHandler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func dossierResponse(d *repository.Dossier) map[string]any {
	return map[string]any{
		"id":                 d.ID,
		"reference":          d.Reference,
		"client_name":        d.ClientName,
		"status":             string(d.Status),
		"status_label":       d.Status.Label(),
		"machine_family":     string(d.MachineFamily),
		"preparer_validated": d.PreparerValidated,
		"description":        d.Description,
		"notes":              d.Notes,
		"created_by":         d.CreatedBy,
		"created_at":         d.CreatedAt,
		"updated_at":         d.UpdatedAt,
	}
}

func historyResponse(e workflow.HistoryEntry) map[string]any {
	return map[string]any{
		"id":          e.ID,
		"from_status": string(e.FromStatus),
		"to_status":   string(e.ToStatus),
		"changed_by":  e.ChangedByUserID,
		"changed_at":  e.ChangedAt,
		"comment":     e.Comment,
	}
}
