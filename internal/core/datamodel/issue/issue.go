package issue

import "time"

type Issue struct {
	ID              int64        `gorm:"primaryKey"`
	Title           string       `gorm:"column:title;not null"`
	Description     string       `gorm:"column:description;not null"`
	Category        string       `gorm:"column:category;not null;index"`
	Priority        string       `gorm:"column:priority;not null;default:Medium"`
	Status          string       `gorm:"column:status;not null;default:Open;index"`
	Location        string       `gorm:"column:location;not null"`
	Latitude        *float64     `gorm:"column:latitude"`
	Longitude       *float64     `gorm:"column:longitude"`
	ReportedBy      int64        `gorm:"column:reported_by;not null;index"`
	ReporterContact string       `gorm:"column:reporter_contact"`
	ReporterAddress string       `gorm:"column:reporter_address"`
	AssignedAdmin   *int64       `gorm:"column:assigned_admin;index"`
	AssignedOfficer string       `gorm:"column:assigned_officer"`
	Timeline        string       `gorm:"column:timeline"`
	Upvotes         int64        `gorm:"column:upvotes;not null;default:1"`
	Images          []IssueImage `gorm:"foreignKey:IssueID"`
	CreatedAt       time.Time    `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt       time.Time    `gorm:"column:updated_at;autoUpdateTime"`
}

func (Issue) TableName() string {
	return "issues"
}

type IssueImage struct {
	ID        int64     `gorm:"primaryKey"`
	IssueID   int64     `gorm:"column:issue_id;not null;index"`
	Position  int       `gorm:"column:position;not null"`
	Reference string    `gorm:"column:reference;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (IssueImage) TableName() string {
	return "issue_images"
}

// Vote records that a user upvoted an issue. The (issue_id, user_id) pair is unique.
type Vote struct {
	ID        int64     `gorm:"primaryKey"`
	IssueID   int64     `gorm:"column:issue_id;not null;uniqueIndex:idx_issue_votes_issue_user"`
	UserID    int64     `gorm:"column:user_id;not null;uniqueIndex:idx_issue_votes_issue_user;index"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Vote) TableName() string {
	return "issue_votes"
}
