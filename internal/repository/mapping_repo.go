package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/timmy/panelgate/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MappingRepository handles supplier mapping lookups.
type MappingRepository struct {
	db *gorm.DB
}

// NewMappingRepository creates a new MappingRepository.
func NewMappingRepository(db *gorm.DB) *MappingRepository {
	return &MappingRepository{db: db}
}

// GetBySTID resolves an active mapping by its token.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - stid: supplier mapping token.
// Returns:
//   - *domain.SupplierMapping: mapping if found and active.
//   - error: domain.ErrNotFound for unknown or deactivated tokens.
func (r *MappingRepository) GetBySTID(ctx context.Context, stid string) (*domain.SupplierMapping, error) {
	var mapping domain.SupplierMapping
	err := r.db.WithContext(ctx).
		Where("stid = ? AND active = ?", stid, true).
		First(&mapping).Error
	if err != nil {
		return nil, translate(err)
	}
	return &mapping, nil
}

// FirstByProject returns the oldest active mapping of a project.
func (r *MappingRepository) FirstByProject(ctx context.Context, projectID uint) (*domain.SupplierMapping, error) {
	var mapping domain.SupplierMapping
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND active = ?", projectID, true).
		Order("id ASC").
		First(&mapping).Error
	if err != nil {
		return nil, translate(err)
	}
	return &mapping, nil
}

// ListByProject returns every mapping of a project, active or not.
func (r *MappingRepository) ListByProject(ctx context.Context, projectID uint) ([]*domain.SupplierMapping, error) {
	var mappings []*domain.SupplierMapping
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("id ASC").
		Find(&mappings).Error
	return mappings, err
}

// Create inserts a mapping under a token nobody holds yet. An existing row
// with the same token is left untouched and domain.ErrSTIDTaken is returned.
func (r *MappingRepository) Create(ctx context.Context, mapping *domain.SupplierMapping) error {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "stid"}},
		DoNothing: true,
	}).Create(mapping)
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return domain.ErrSTIDTaken
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrSTIDTaken
	}
	return nil
}

// Upsert creates a mapping or updates its configuration keyed by stid.
// The token stays bound to its project and supplier: a mapping that exists
// under another project or supplier yields domain.ErrSTIDTaken. Usage
// counters are never overwritten.
func (r *MappingRepository) Upsert(ctx context.Context, mapping *domain.SupplierMapping) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stored domain.SupplierMapping
		err := tx.Where("stid = ?", mapping.STID).First(&stored).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := tx.Create(mapping).Error; err != nil {
				if isUniqueViolation(err) {
					return domain.ErrSTIDTaken
				}
				return err
			}
			return nil
		}
		if err != nil {
			return err
		}

		if stored.ProjectID != mapping.ProjectID || stored.SupplierID != mapping.SupplierID {
			return fmt.Errorf("stid %s is held by project %d supplier %d: %w",
				mapping.STID, stored.ProjectID, stored.SupplierID, domain.ErrSTIDTaken)
		}

		err = tx.Model(&domain.SupplierMapping{}).
			Where("id = ?", stored.ID).
			Updates(map[string]interface{}{
				"is_test_link":     mapping.IsTestLink,
				"click_quota":      mapping.ClickQuota,
				"complete_quota":   mapping.CompleteQuota,
				"project_cpi":      mapping.ProjectCPI,
				"supplier_cpi":     mapping.SupplierCPI,
				"redirection_type": mapping.RedirectionType,
				"active":           mapping.Active,
				"updated_at":       time.Now(),
			}).Error
		if err != nil {
			return err
		}
		var fresh domain.SupplierMapping
		if err := tx.First(&fresh, stored.ID).Error; err != nil {
			return err
		}
		*mapping = fresh
		return nil
	})
}

// Deactivate turns a mapping off. Its token resolves as not found afterwards.
func (r *MappingRepository) Deactivate(ctx context.Context, stid string) error {
	result := r.db.WithContext(ctx).
		Model(&domain.SupplierMapping{}).
		Where("stid = ?", stid).
		Update("active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
