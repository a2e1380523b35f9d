package category

import (
	"net/http"

	"github.com/frahmantamala/civic-report/internal/transport"
)

type ServiceAPI interface {
	GetAllCategories() []CategoryResponse
	GetCategoryByName(name string) *CategoryResponse
	IsValidCategory(name string) bool
	GetDepartments() []string
}

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

func (h *Handler) GetCategories(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, CategoriesResponse{
		Categories:  h.Service.GetAllCategories(),
		Departments: h.Service.GetDepartments(),
	})
}
