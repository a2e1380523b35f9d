package issue

import (
	"encoding/json"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/frahmantamala/civic-report/internal"
	"github.com/frahmantamala/civic-report/internal/media"
	"github.com/frahmantamala/civic-report/internal/transport"
)

const multipartMemory = 8 << 20

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

// ListIssues handles GET /issues
func (h *Handler) ListIssues(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := internal.WithTimeout(r.Context(), internal.DefaultStoreTimeout)
	defer cancel()

	q := r.URL.Query()
	issues, err := h.Service.List(ctx, ListFilter{
		Category: q.Get("category"),
		Status:   q.Get("status"),
		Priority: q.Get("priority"),
	})
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ToIssuesResponse(issues))
}

// GetIssue handles GET /issues/{id}
func (h *Handler) GetIssue(w http.ResponseWriter, r *http.Request) {
	id, ok := h.ParseIDParam(r, "id")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid issue id")
		return
	}

	ctx, cancel := internal.WithTimeout(r.Context(), internal.DefaultStoreTimeout)
	defer cancel()

	issue, err := h.Service.Get(ctx, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, IssueEnvelope{Issue: issue.ToResponse()})
}

// ListMyIssues handles GET /issues/mine
func (h *Handler) ListMyIssues(w http.ResponseWriter, r *http.Request) {
	identity, _ := internal.IdentityFromContext(r.Context())

	ctx, cancel := internal.WithTimeout(r.Context(), internal.DefaultStoreTimeout)
	defer cancel()

	issues, err := h.Service.ListByReporter(ctx, identity)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ToIssuesResponse(issues))
}

// CreateIssue handles POST /issues. It accepts multipart form data with
// optional images[] files, or a plain JSON body without images.
func (h *Handler) CreateIssue(w http.ResponseWriter, r *http.Request) {
	identity, _ := internal.IdentityFromContext(r.Context())

	var (
		dto     CreateIssueDTO
		uploads []media.Upload
	)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
			h.WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	} else {
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			h.WriteError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}
		defer r.MultipartForm.RemoveAll()

		var appErr *internal.AppError
		dto, appErr = dtoFromForm(r)
		if appErr != nil {
			h.WriteAppError(w, appErr)
			return
		}

		files, closeAll, err := openUploads(r.MultipartForm.File["images"])
		defer closeAll()
		if err != nil {
			h.WriteError(w, http.StatusBadRequest, "failed to read uploaded images")
			return
		}
		uploads = files
	}

	issue, err := h.Service.Create(r.Context(), identity, dto, uploads)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, IssueEnvelope{Issue: issue.ToResponse()})
}

// UpdateIssue handles PUT /issues/{id}
func (h *Handler) UpdateIssue(w http.ResponseWriter, r *http.Request) {
	identity, _ := internal.IdentityFromContext(r.Context())

	id, ok := h.ParseIDParam(r, "id")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid issue id")
		return
	}

	dto, err := DecodeUpdate(r.Body)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	ctx, cancel := internal.WithTimeout(r.Context(), internal.DefaultStoreTimeout)
	defer cancel()

	issue, err := h.Service.Update(ctx, identity, id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, IssueEnvelope{Issue: issue.ToResponse()})
}

// AssignIssue handles PUT /issues/{id}/assign
func (h *Handler) AssignIssue(w http.ResponseWriter, r *http.Request) {
	identity, _ := internal.IdentityFromContext(r.Context())

	id, ok := h.ParseIDParam(r, "id")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid issue id")
		return
	}

	var dto AssignDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx, cancel := internal.WithTimeout(r.Context(), internal.DefaultStoreTimeout)
	defer cancel()

	issue, err := h.Service.Assign(ctx, identity, id, dto.AdminID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, IssueEnvelope{Issue: issue.ToResponse()})
}

// UpvoteIssue handles POST /issues/{id}/upvote
func (h *Handler) UpvoteIssue(w http.ResponseWriter, r *http.Request) {
	identity, _ := internal.IdentityFromContext(r.Context())

	id, ok := h.ParseIDParam(r, "id")
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid issue id")
		return
	}

	ctx, cancel := internal.WithTimeout(r.Context(), internal.DefaultStoreTimeout)
	defer cancel()

	resp, err := h.Service.Upvote(ctx, identity, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}

// AdminIssues handles GET /admin/issues
func (h *Handler) AdminIssues(w http.ResponseWriter, r *http.Request) {
	identity, _ := internal.IdentityFromContext(r.Context())

	ctx, cancel := internal.WithTimeout(r.Context(), internal.DefaultStoreTimeout)
	defer cancel()

	issues, err := h.Service.AdminIssues(ctx, identity)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ToIssuesResponse(issues))
}

func dtoFromForm(r *http.Request) (CreateIssueDTO, *internal.AppError) {
	dto := CreateIssueDTO{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Category:    r.FormValue("category"),
		Priority:    r.FormValue("priority"),
		Location:    r.FormValue("location"),
	}

	var err *internal.AppError
	if dto.Lat, err = parseCoordinate(r.FormValue("lat"), "lat"); err != nil {
		return dto, err
	}
	if dto.Lng, err = parseCoordinate(r.FormValue("lng"), "lng"); err != nil {
		return dto, err
	}
	return dto, nil
}

func parseCoordinate(raw, field string) (*float64, *internal.AppError) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, internal.NewValidationFieldError(field, field+" must be a number", internal.ErrCodeInvalidCoordinate)
	}
	return &v, nil
}

func openUploads(headers []*multipart.FileHeader) ([]media.Upload, func(), error) {
	var opened []multipart.File
	closeAll := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}

	uploads := make([]media.Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, closeAll, err
		}
		opened = append(opened, f)
		uploads = append(uploads, media.Upload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Body:        f,
		})
	}
	return uploads, closeAll, nil
}
