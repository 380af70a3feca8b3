package repository

import (
	"context"

	"github.com/timmy/panelgate/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProjectRepository reads and seeds project configuration.
type ProjectRepository struct {
	db *gorm.DB
}

// NewProjectRepository creates a new ProjectRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *ProjectRepository: repository instance bound to db.
func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// GetByID retrieves a project by its ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: project ID.
// Returns:
//   - *domain.Project: project if found.
//   - error: domain.ErrNotFound when no project has this ID.
func (r *ProjectRepository) GetByID(ctx context.Context, id uint) (*domain.Project, error) {
	var project domain.Project
	if err := r.db.WithContext(ctx).First(&project, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &project, nil
}

// GetGroupByID retrieves a group project by its ID.
func (r *ProjectRepository) GetGroupByID(ctx context.Context, id uint) (*domain.GroupProject, error) {
	var group domain.GroupProject
	if err := r.db.WithContext(ctx).First(&group, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &group, nil
}

// ListByGroup returns the child projects of a group ordered by ID.
func (r *ProjectRepository) ListByGroup(ctx context.Context, groupID uint) ([]*domain.Project, error) {
	var projects []*domain.Project
	err := r.db.WithContext(ctx).
		Where("group_project_id = ?", groupID).
		Order("id ASC").
		Find(&projects).Error
	return projects, err
}

// UpsertGroup creates or updates a group project keyed by code.
func (r *ProjectRepository) UpsertGroup(ctx context.Context, group *domain.GroupProject) error {
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "updated_at"}),
	}).Create(group).Error; err != nil {
		return err
	}
	var stored domain.GroupProject
	if err := r.db.WithContext(ctx).First(&stored, "code = ?", group.Code).Error; err != nil {
		return err
	}
	*group = stored
	return nil
}

// Upsert creates or updates a project keyed by code.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - project: project to create or update; its ID is refreshed from the store.
// Returns:
//   - error: non-nil if the upsert fails.
func (r *ProjectRepository) Upsert(ctx context.Context, project *domain.Project) error {
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"group_project_id", "name", "manager", "country_code",
			"survey_live_link", "survey_test_link", "project_cpi", "supplier_cpi",
			"status", "updated_at",
		}),
	}).Create(project).Error; err != nil {
		return err
	}
	var stored domain.Project
	if err := r.db.WithContext(ctx).First(&stored, "code = ?", project.Code).Error; err != nil {
		return err
	}
	*project = stored
	return nil
}
