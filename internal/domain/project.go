package domain

import (
	"strings"
	"time"
)

// IdentifierPlaceholder is substituted with the hash identifier in survey URL templates.
const IdentifierPlaceholder = "[identifier]"

// ProjectStatus represents the commercial state of a project.
type ProjectStatus string

const (
	ProjectStatusLive    ProjectStatus = "live"
	ProjectStatusPaused  ProjectStatus = "paused"
	ProjectStatusClosed  ProjectStatus = "closed"
	ProjectStatusPending ProjectStatus = "pending"
)

// GroupProject groups child projects that are reported together.
type GroupProject struct {
	ID        uint      `gorm:"primaryKey" json:"project_id"`
	Code      string    `gorm:"type:text;uniqueIndex:idx_group_projects_code" json:"project_code"`
	Name      string    `gorm:"type:text;not null" json:"project_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for GroupProject.
func (GroupProject) TableName() string {
	return "group_projects"
}

// Project is the survey configuration consumed by the dispatcher.
// Survey links are templates containing IdentifierPlaceholder.
type Project struct {
	ID             uint          `gorm:"primaryKey" json:"project_id"`
	GroupProjectID *uint         `gorm:"index:idx_projects_group" json:"group_project_id,omitempty"`
	Code           string        `gorm:"type:text;uniqueIndex:idx_projects_code" json:"project_code"`
	Name           string        `gorm:"type:text;not null" json:"project_name"`
	Manager        string        `gorm:"type:text" json:"project_manager"`
	CountryCode    string        `gorm:"type:text" json:"country_code"`
	SurveyLiveLink string        `gorm:"type:text" json:"survey_live_link"`
	SurveyTestLink string        `gorm:"type:text" json:"survey_test_link"`
	ProjectCPI     float64       `json:"project_cpi"`
	SupplierCPI    float64       `json:"supplier_cpi"`
	Status         ProjectStatus `gorm:"type:text;default:live" json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// TableName returns the database table name for Project.
func (Project) TableName() string {
	return "projects"
}

// SurveyLink returns the URL template for the requested mode.
func (p *Project) SurveyLink(test bool) string {
	if test {
		return p.SurveyTestLink
	}
	return p.SurveyLiveLink
}

// RestrictsCountry reports whether the project only admits respondents from CountryCode.
func (p *Project) RestrictsCountry() bool {
	return strings.TrimSpace(p.CountryCode) != ""
}
