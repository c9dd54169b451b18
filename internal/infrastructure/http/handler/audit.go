package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rezkam/taskflow/internal/application/audit"
	"github.com/rezkam/taskflow/internal/domain"
	"github.com/rezkam/taskflow/internal/infrastructure/http/response"
)

// AuditHandler serves the audit service's read-only query surface.
type AuditHandler struct {
	svc *audit.Service
}

// NewAuditHandler creates a new audit query handler.
func NewAuditHandler(svc *audit.Service) *AuditHandler {
	return &AuditHandler{svc: svc}
}

// Routes returns the audit query subtree.
func (h *AuditHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/audit", h.Query)
	return r
}

// auditQueryResponse is one page of audit entries.
type auditQueryResponse struct {
	Entries  []*domain.AuditEntry `json:"entries"`
	Total    int                  `json:"total"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"page_size"`
}

// Query handles GET /audit?event_type=&user_id=&from=&to=&page=&page_size=.
// Paging is clamped: page >= 1, page_size 1..200 (default 50). Entries are
// ordered by event time descending.
func (h *AuditHandler) Query(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := domain.AuditFilter{
		EventType: q.Get("event_type"),
		ActorID:   q.Get("user_id"),
	}

	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			response.ValidationError(w, "from", "must be an RFC 3339 timestamp")
			return
		}
		filter.From = &t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			response.ValidationError(w, "to", "must be an RFC 3339 timestamp")
			return
		}
		filter.To = &t
	}

	// Unparseable paging values fall back to the defaults via Normalize.
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.PageSize, _ = strconv.Atoi(q.Get("page_size"))
	filter.Normalize()

	entries, total, err := h.svc.Query(r.Context(), filter)
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	if entries == nil {
		entries = []*domain.AuditEntry{}
	}

	response.OK(w, auditQueryResponse{
		Entries:  entries,
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	})
}
