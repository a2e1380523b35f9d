package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/frahmantamala/civic-report/internal"
	"github.com/frahmantamala/civic-report/internal/core/common/database"
	issueDatamodel "github.com/frahmantamala/civic-report/internal/core/datamodel/issue"
	userDatamodel "github.com/frahmantamala/civic-report/internal/core/datamodel/user"
	"github.com/frahmantamala/civic-report/internal/core/user"
	"github.com/frahmantamala/civic-report/internal/issue"
	"gorm.io/gorm"
)

type IssueRepository struct {
	db *gorm.DB
}

func NewIssueRepository(db *gorm.DB) *IssueRepository {
	return &IssueRepository{db: db}
}

var _ issue.RepositoryAPI = (*IssueRepository)(nil)

func (r *IssueRepository) Create(ctx context.Context, i *issue.Issue, reporterPoints int64) error {
	row := fromDomain(i)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("insert issue: %w", err)
		}

		if reporterPoints > 0 {
			res := tx.Model(&userDatamodel.User{}).
				Where("id = ?", i.ReportedBy).
				UpdateColumn("points", gorm.Expr("points + ?", reporterPoints))
			if res.Error != nil {
				return fmt.Errorf("credit reporter points: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				return internal.ErrUserNotFound
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	i.ID = row.ID
	i.CreatedAt = row.CreatedAt
	i.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *IssueRepository) GetByID(ctx context.Context, id int64) (*issue.Issue, error) {
	var row issueDatamodel.Issue
	err := r.withImages(r.db.WithContext(ctx)).Where("id = ?", id).First(&row).Error
	if err != nil {
		if database.IsNotFound(err) {
			return nil, internal.ErrIssueNotFound
		}
		return nil, fmt.Errorf("get issue: %w", err)
	}
	return toDomain(&row), nil
}

func (r *IssueRepository) List(ctx context.Context, filter issue.ListFilter) ([]*issue.Issue, error) {
	query := r.db.WithContext(ctx).Model(&issueDatamodel.Issue{})
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Priority != "" {
		query = query.Where("priority = ?", filter.Priority)
	}
	return r.find(query, "list issues")
}

func (r *IssueRepository) ListByReporter(ctx context.Context, userID int64) ([]*issue.Issue, error) {
	query := r.db.WithContext(ctx).Model(&issueDatamodel.Issue{}).Where("reported_by = ?", userID)
	return r.find(query, "list issues by reporter")
}

func (r *IssueRepository) ListVisibleTo(ctx context.Context, adminID int64, categories []string) ([]*issue.Issue, error) {
	query := r.db.WithContext(ctx).Model(&issueDatamodel.Issue{})
	if len(categories) == 0 {
		query = query.Where("assigned_admin = ?", adminID)
	} else {
		query = query.Where("assigned_admin = ? OR (assigned_admin IS NULL AND category IN ?)", adminID, categories)
	}
	return r.find(query, "list visible issues")
}

// Apply writes status, officer and assignee with one UPDATE guarded by the
// status the caller read.
func (r *IssueRepository) Apply(ctx context.Context, id int64, change issue.Change) error {
	updates := map[string]interface{}{
		"updated_at": time.Now(),
	}
	if change.To != nil {
		updates["status"] = string(*change.To)
	}
	if change.Officer != nil {
		updates["assigned_officer"] = *change.Officer
	}
	if change.AssignedAdmin != nil {
		updates["assigned_admin"] = *change.AssignedAdmin
	}

	res := r.db.WithContext(ctx).Model(&issueDatamodel.Issue{}).
		Where("id = ? AND status = ?", id, string(change.From)).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("update issue: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		if err := r.exists(ctx, id); err != nil {
			return err
		}
		return internal.ErrConcurrentUpdate
	}
	return nil
}

func (r *IssueRepository) Assign(ctx context.Context, id int64, adminID int64) error {
	return r.updateColumns(ctx, id, map[string]interface{}{
		"assigned_admin": adminID,
		"updated_at":     time.Now(),
	})
}

func (r *IssueRepository) Upvote(ctx context.Context, issueID, userID int64, voterPoints int64) (int64, error) {
	var upvotes int64

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row issueDatamodel.Issue
		if err := tx.Select("id").Where("id = ?", issueID).First(&row).Error; err != nil {
			if database.IsNotFound(err) {
				return internal.ErrIssueNotFound
			}
			return fmt.Errorf("load issue: %w", err)
		}

		var existing int64
		if err := tx.Model(&issueDatamodel.Vote{}).
			Where("issue_id = ? AND user_id = ?", issueID, userID).
			Count(&existing).Error; err != nil {
			return fmt.Errorf("check vote: %w", err)
		}
		if existing > 0 {
			return internal.ErrAlreadyVoted
		}

		// the unique (issue_id, user_id) index settles races the count above cannot see
		if err := tx.Create(&issueDatamodel.Vote{IssueID: issueID, UserID: userID}).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return internal.ErrAlreadyVoted
			}
			return fmt.Errorf("insert vote: %w", err)
		}

		if err := tx.Model(&issueDatamodel.Issue{}).
			Where("id = ?", issueID).
			UpdateColumn("upvotes", gorm.Expr("upvotes + 1")).Error; err != nil {
			return fmt.Errorf("increment upvotes: %w", err)
		}

		if voterPoints > 0 {
			if err := tx.Model(&userDatamodel.User{}).
				Where("id = ? AND role = ?", userID, string(user.RoleCitizen)).
				UpdateColumn("points", gorm.Expr("points + ?", voterPoints)).Error; err != nil {
				return fmt.Errorf("credit voter points: %w", err)
			}
		}

		if err := tx.Select("upvotes").Where("id = ?", issueID).First(&row).Error; err != nil {
			return fmt.Errorf("reload upvotes: %w", err)
		}
		upvotes = row.Upvotes
		return nil
	})
	if err != nil {
		return 0, err
	}
	return upvotes, nil
}

func (r *IssueRepository) VotedIssueIDs(ctx context.Context, userID int64) ([]int64, error) {
	ids := []int64{}
	err := r.db.WithContext(ctx).Model(&issueDatamodel.Vote{}).
		Where("user_id = ?", userID).
		Order("issue_id").
		Pluck("issue_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list voted issues: %w", err)
	}
	return ids, nil
}

func (r *IssueRepository) find(query *gorm.DB, op string) ([]*issue.Issue, error) {
	var rows []issueDatamodel.Issue
	if err := r.withImages(query).Order("created_at DESC").Order("id DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	issues := make([]*issue.Issue, 0, len(rows))
	for i := range rows {
		issues = append(issues, toDomain(&rows[i]))
	}
	return issues, nil
}

func (r *IssueRepository) withImages(query *gorm.DB) *gorm.DB {
	return query.Preload("Images", func(db *gorm.DB) *gorm.DB {
		return db.Order("position")
	})
}

func (r *IssueRepository) updateColumns(ctx context.Context, id int64, updates map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&issueDatamodel.Issue{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("update issue: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return r.exists(ctx, id)
	}
	return nil
}

func (r *IssueRepository) exists(ctx context.Context, id int64) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&issueDatamodel.Issue{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("check issue: %w", err)
	}
	if count == 0 {
		return internal.ErrIssueNotFound
	}
	return nil
}

func fromDomain(i *issue.Issue) issueDatamodel.Issue {
	row := issueDatamodel.Issue{
		Title:           i.Title,
		Description:     i.Description,
		Category:        i.Category,
		Priority:        string(i.Priority),
		Status:          string(i.Status),
		Location:        i.Location,
		ReportedBy:      i.ReportedBy,
		ReporterContact: i.ReporterContact,
		ReporterAddress: i.ReporterAddress,
		AssignedAdmin:   i.AssignedAdmin,
		AssignedOfficer: i.AssignedOfficer,
		Timeline:        i.Timeline,
		Upvotes:         i.Upvotes,
	}
	if i.Coordinates != nil {
		lat, lng := i.Coordinates.Lat, i.Coordinates.Lng
		row.Latitude = &lat
		row.Longitude = &lng
	}
	for pos, ref := range i.Images {
		row.Images = append(row.Images, issueDatamodel.IssueImage{Position: pos, Reference: ref})
	}
	return row
}

func toDomain(row *issueDatamodel.Issue) *issue.Issue {
	i := &issue.Issue{
		ID:              row.ID,
		Title:           row.Title,
		Description:     row.Description,
		Category:        row.Category,
		Priority:        issue.Priority(row.Priority),
		Status:          issue.Status(row.Status),
		Location:        row.Location,
		ReportedBy:      row.ReportedBy,
		ReporterContact: row.ReporterContact,
		ReporterAddress: row.ReporterAddress,
		AssignedAdmin:   row.AssignedAdmin,
		AssignedOfficer: row.AssignedOfficer,
		Timeline:        row.Timeline,
		Upvotes:         row.Upvotes,
		Images:          make([]string, 0, len(row.Images)),
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
	if row.Latitude != nil && row.Longitude != nil {
		i.Coordinates = &issue.Coordinates{Lat: *row.Latitude, Lng: *row.Longitude}
	}
	for _, img := range row.Images {
		i.Images = append(i.Images, img.Reference)
	}
	return i
}

