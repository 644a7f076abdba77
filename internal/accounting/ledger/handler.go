package ledger

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

// Handler wires account ledger endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	cache   *Cache
}

func NewHandler(logger *slog.Logger, service *Service, cache *Cache) *Handler {
	return &Handler{logger: logger, service: service, cache: cache}
}

// MountRoutes registers ledger routes under a company scope.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/ledger/{accountID}", h.Show)
	r.Get("/ledger/{accountID}.csv", h.Export)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	result, ok := h.query(w, r, chi.URLParam(r, "accountID"))
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	result, ok := h.query(w, r, chi.URLParam(r, "accountID"))
	if !ok {
		return
	}
	httpx.CSVHeaders(w, "ledger-"+result.AccountNumber+".csv")
	if err := WriteCSV(w, result); err != nil {
		h.logger.Error("ledger csv export failed", "error", err)
	}
}

func (h *Handler) query(w http.ResponseWriter, r *http.Request, accountParam string) (AccountLedger, bool) {
	companyID, err := strconv.ParseInt(chi.URLParam(r, "companyID"), 10, 64)
	if err != nil || companyID < 1 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid company id")
		return AccountLedger{}, false
	}
	accountID, err := strconv.ParseInt(accountParam, 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid account id")
		return AccountLedger{}, false
	}
	from, err := time.Parse("2006-01-02", r.URL.Query().Get("from"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "from must be YYYY-MM-DD")
		return AccountLedger{}, false
	}
	to, err := time.Parse("2006-01-02", r.URL.Query().Get("to"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "to must be YYYY-MM-DD")
		return AccountLedger{}, false
	}

	result, err := h.cache.Fetch(r.Context(), Key(companyID, accountID, from, to), func(ctx context.Context) (AccountLedger, error) {
		return h.service.Query(ctx, companyID, accountID, from, to)
	})
	if err != nil {
		h.logger.Error("ledger query failed", "error", err, "company_id", companyID, "account_id", accountID)
		httpx.RespondError(w, err)
		return AccountLedger{}, false
	}
	return result, true
}
