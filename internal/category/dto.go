package category

type CategoryResponse struct {
	Name       string `json:"name"`
	Department string `json:"department"`
}

type CategoriesResponse struct {
	Categories  []CategoryResponse `json:"categories"`
	Departments []string           `json:"departments"`
}
