package journals

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

// Handler wires journal entry endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers journal routes under a company scope.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/journals", h.List)
	r.Post("/journals", h.CreateDraft)
	r.Get("/journals/{id}", h.Show)
	r.Put("/journals/{id}/lines", h.ReplaceLines)
	r.Post("/journals/{id}/post", h.Post)
	r.Post("/journals/{id}/cancel", h.Cancel)
}

// createDraftRequest is the JSON body for draft creation.
type createDraftRequest struct {
	Date          time.Time     `json:"date"`
	SourceModule  SourceModule  `json:"sourceModule"`
	ReferenceCode string        `json:"referenceCode"`
	Description   string        `json:"description"`
	Lines         []PostingLine `json:"lines"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	companyID, ok := companyParam(w, r)
	if !ok {
		return
	}
	filter := ListFilter{}
	if v := r.URL.Query().Get("status"); v != "" {
		filter.Status = JournalStatus(v)
	}
	if v := r.URL.Query().Get("source"); v != "" {
		filter.Source = SourceModule(v)
	}
	if from, err := time.Parse("2006-01-02", r.URL.Query().Get("from")); err == nil {
		filter.From = from
	}
	if to, err := time.Parse("2006-01-02", r.URL.Query().Get("to")); err == nil {
		filter.To = to
	}
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		filter.Limit = limit
	}

	entries, err := h.service.ListEntries(r.Context(), companyID, filter)
	if err != nil {
		h.logger.Error("list journals failed", "error", err, "company_id", companyID)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"journals": entries})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	companyID, ok := companyParam(w, r)
	if !ok {
		return
	}
	id, ok := entryParam(w, r)
	if !ok {
		return
	}

	entry, err := h.service.GetEntry(r.Context(), companyID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) CreateDraft(w http.ResponseWriter, r *http.Request) {
	companyID, ok := companyParam(w, r)
	if !ok {
		return
	}
	var body createDraftRequest
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	source := body.SourceModule
	if source == "" {
		source = SourceManual
	}

	entry, err := h.service.CreateDraft(r.Context(), PostingRequest{
		CompanyID:     companyID,
		Date:          body.Date,
		SourceModule:  source,
		ReferenceCode: body.ReferenceCode,
		Description:   body.Description,
		ActorID:       actorID(r),
		Lines:         body.Lines,
	})
	if err != nil {
		h.logger.Error("create journal draft failed", "error", err, "company_id", companyID)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) ReplaceLines(w http.ResponseWriter, r *http.Request) {
	companyID, ok := companyParam(w, r)
	if !ok {
		return
	}
	id, ok := entryParam(w, r)
	if !ok {
		return
	}
	var body struct {
		Lines []PostingLine `json:"lines"`
	}
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}

	entry, err := h.service.ReplaceDraftLines(r.Context(), companyID, id, actorID(r), body.Lines)
	if err != nil {
		h.logger.Error("replace journal lines failed", "error", err, "company_id", companyID, "id", id)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) Post(w http.ResponseWriter, r *http.Request) {
	companyID, ok := companyParam(w, r)
	if !ok {
		return
	}
	id, ok := entryParam(w, r)
	if !ok {
		return
	}

	entry, err := h.service.Post(r.Context(), companyID, id, actorID(r))
	if err != nil {
		h.logger.Error("post journal failed", "error", err, "company_id", companyID, "id", id)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	companyID, ok := companyParam(w, r)
	if !ok {
		return
	}
	id, ok := entryParam(w, r)
	if !ok {
		return
	}

	entry, err := h.service.Cancel(r.Context(), companyID, id, actorID(r))
	if err != nil {
		h.logger.Error("cancel journal failed", "error", err, "company_id", companyID, "id", id)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func companyParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	companyID, err := strconv.ParseInt(chi.URLParam(r, "companyID"), 10, 64)
	if err != nil || companyID < 1 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid company id")
		return 0, false
	}
	return companyID, true
}

func entryParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid journal id")
		return 0, false
	}
	return id, true
}

func actorID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(r.Header.Get("X-Actor-ID"), 10, 64)
	return id
}
