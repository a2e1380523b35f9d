package category

import (
	"log/slog"

	"github.com/frahmantamala/civic-report/internal/issue"
)

// Service serves the fixed category catalogue and its department routing.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	return &Service{
		logger: logger,
	}
}

func (s *Service) GetAllCategories() []CategoryResponse {
	routes := issue.Routes()
	responses := make([]CategoryResponse, 0, len(routes))
	for _, r := range routes {
		responses = append(responses, CategoryResponse{Name: r.Category, Department: r.Department})
	}

	s.logger.Debug("retrieved categories", "count", len(responses))
	return responses
}

func (s *Service) GetCategoryByName(name string) *CategoryResponse {
	dept, ok := issue.DepartmentFor(name)
	if !ok {
		return nil
	}
	return &CategoryResponse{Name: name, Department: dept}
}

func (s *Service) IsValidCategory(name string) bool {
	return s.GetCategoryByName(name) != nil
}

func (s *Service) GetDepartments() []string {
	return issue.Departments()
}
