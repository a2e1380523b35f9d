package issue

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/frahmantamala/civic-report/internal"
	"github.com/frahmantamala/civic-report/internal/core/common/validation"
)

type CreateIssueDTO struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Priority    string   `json:"priority"`
	Location    string   `json:"location"`
	Lat         *float64 `json:"lat,omitempty"`
	Lng         *float64 `json:"lng,omitempty"`
}

func (d *CreateIssueDTO) Normalize() {
	d.Title = strings.TrimSpace(d.Title)
	d.Description = strings.TrimSpace(d.Description)
	d.Category = strings.TrimSpace(d.Category)
	d.Priority = strings.TrimSpace(d.Priority)
	d.Location = strings.TrimSpace(d.Location)
	if d.Priority == "" {
		d.Priority = string(PriorityMedium)
	}
}

func (d CreateIssueDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("title", d.Title).Required().MaxLength(200)
	v.Field("description", d.Description).Required().MaxLength(5000)
	v.Field("location", d.Location).Required().MaxLength(500)
	v.Field("category", d.Category).Required().OneOf(Categories(), internal.ErrCodeInvalidCategory)
	v.Field("priority", d.Priority).OneOf(Priorities, internal.ErrCodeInvalidPriority)
	v.Field("lat", d.Lat).Between(-90, 90, internal.ErrCodeInvalidCoordinate)
	v.Field("lng", d.Lng).Between(-180, 180, internal.ErrCodeInvalidCoordinate)
	if (d.Lat == nil) != (d.Lng == nil) {
		v.Field("coordinates", nil).Custom(func(interface{}) *internal.AppError {
			return internal.NewValidationFieldError("coordinates", "lat and lng must be given together", internal.ErrCodeInvalidCoordinate)
		})
	}
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// UpdateIssueDTO carries a partial update. Keys outside the mutable set are
// collected in Rejected so the service can refuse the whole request.
type UpdateIssueDTO struct {
	Status          *string
	AssignedOfficer *string
	AssignedAdmin   *int64
	Rejected        []string
}

func (d UpdateIssueDTO) Empty() bool {
	return d.Status == nil && d.AssignedOfficer == nil && d.AssignedAdmin == nil && len(d.Rejected) == 0
}

// DecodeUpdate reads a JSON object into an UpdateIssueDTO.
func DecodeUpdate(r io.Reader) (UpdateIssueDTO, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return UpdateIssueDTO{}, internal.NewValidationError("invalid request body", internal.ErrCodeValidationFailed)
	}

	var dto UpdateIssueDTO
	for key, value := range raw {
		switch key {
		case "status":
			var s string
			if err := json.Unmarshal(value, &s); err != nil {
				return dto, internal.NewValidationFieldError("status", "status must be a string", internal.ErrCodeInvalidStatus)
			}
			dto.Status = &s
		case "assignedOfficer":
			var s string
			if err := json.Unmarshal(value, &s); err != nil {
				return dto, internal.NewValidationFieldError("assignedOfficer", "assignedOfficer must be a string", internal.ErrCodeValidationFailed)
			}
			s = strings.TrimSpace(s)
			dto.AssignedOfficer = &s
		case "assignedAdmin":
			var id *int64
			if err := json.Unmarshal(value, &id); err != nil || id == nil || *id <= 0 {
				return dto, internal.NewValidationFieldError("assignedAdmin", "assignedAdmin must be an admin id", internal.ErrCodeValidationFailed)
			}
			dto.AssignedAdmin = id
		default:
			dto.Rejected = append(dto.Rejected, key)
		}
	}
	sort.Strings(dto.Rejected)
	return dto, nil
}

type AssignDTO struct {
	AdminID int64 `json:"adminId"`
}

func (d AssignDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("adminId", d.AdminID).Required().MinInt(1, internal.ErrCodeValidationFailed)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// ListFilter narrows List. Empty fields and "all" mean no constraint.
type ListFilter struct {
	Category string
	Status   string
	Priority string
}

func (f *ListFilter) Normalize() {
	f.Category = normalizeFilterValue(f.Category)
	f.Status = normalizeFilterValue(f.Status)
	f.Priority = normalizeFilterValue(f.Priority)
}

func (f ListFilter) Validate() error {
	v := validation.NewValidator()
	v.Field("category", f.Category).OneOf(Categories(), internal.ErrCodeInvalidCategory)
	v.Field("status", f.Status).OneOf(Statuses, internal.ErrCodeInvalidStatus)
	v.Field("priority", f.Priority).OneOf(Priorities, internal.ErrCodeInvalidPriority)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

func normalizeFilterValue(s string) string {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "all") {
		return ""
	}
	return s
}

type IssueResponse struct {
	ID              int64        `json:"id"`
	Title           string       `json:"title"`
	Description     string       `json:"description"`
	Category        string       `json:"category"`
	Department      string       `json:"department"`
	Priority        string       `json:"priority"`
	Status          string       `json:"status"`
	Location        string       `json:"location"`
	Coordinates     *Coordinates `json:"coordinates,omitempty"`
	ReportedBy      int64        `json:"reportedBy"`
	ReporterContact string       `json:"reporterContact,omitempty"`
	ReporterAddress string       `json:"reporterAddress,omitempty"`
	AssignedAdmin   *int64       `json:"assignedAdmin"`
	AssignedOfficer string       `json:"assignedOfficer"`
	Timeline        string       `json:"timeline"`
	Upvotes         int64        `json:"upvotes"`
	Images          []string     `json:"images"`
	CreatedAt       time.Time    `json:"createdAt"`
	UpdatedAt       time.Time    `json:"updatedAt"`
}

type IssueEnvelope struct {
	Issue IssueResponse `json:"issue"`
}

type IssuesResponse struct {
	Issues []IssueResponse `json:"issues"`
	Total  int             `json:"total"`
}

type UpvoteResponse struct {
	IssueID int64 `json:"issueId"`
	Upvotes int64 `json:"upvotes"`
}

func (i *Issue) ToResponse() IssueResponse {
	dept, _ := DepartmentFor(i.Category)
	images := i.Images
	if images == nil {
		images = []string{}
	}
	return IssueResponse{
		ID:              i.ID,
		Title:           i.Title,
		Description:     i.Description,
		Category:        i.Category,
		Department:      dept,
		Priority:        string(i.Priority),
		Status:          string(i.Status),
		Location:        i.Location,
		Coordinates:     i.Coordinates,
		ReportedBy:      i.ReportedBy,
		ReporterContact: i.ReporterContact,
		ReporterAddress: i.ReporterAddress,
		AssignedAdmin:   i.AssignedAdmin,
		AssignedOfficer: i.AssignedOfficer,
		Timeline:        i.Timeline,
		Upvotes:         i.Upvotes,
		Images:          images,
		CreatedAt:       i.CreatedAt,
		UpdatedAt:       i.UpdatedAt,
	}
}

func ToIssuesResponse(issues []*Issue) IssuesResponse {
	out := make([]IssueResponse, 0, len(issues))
	for _, i := range issues {
		out = append(out, i.ToResponse())
	}
	return IssuesResponse{Issues: out, Total: len(out)}
}

func rejectedFieldsError(fields []string) error {
	return internal.NewForbiddenError(
		fmt.Sprintf("fields cannot be changed: %s", strings.Join(fields, ", ")),
		internal.ErrCodeImmutableField,
	)
}
