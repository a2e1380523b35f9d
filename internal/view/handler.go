package view

import (
	"net/http"

	"github.com/frahmantamala/civic-report/internal"
	"github.com/frahmantamala/civic-report/internal/issue"
	"github.com/frahmantamala/civic-report/internal/transport"
)

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

// GetDashboard handles GET /dashboard
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	identity, ok := internal.IdentityFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrMissingToken)
		return
	}

	ctx, cancel := internal.WithTimeout(r.Context(), internal.DefaultStoreTimeout)
	defer cancel()

	q := r.URL.Query()
	dashboard, err := h.Service.Dashboard(ctx, identity, issue.ListFilter{
		Category: q.Get("category"),
		Status:   q.Get("status"),
		Priority: q.Get("priority"),
	})
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, dashboard)
}
