package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/timmy/panelgate/internal/domain"
	"gorm.io/gorm"
)

// DispatchRepository is the append-only click ledger. Records are written
// at dispatch and updated at most once, by Finalize.
type DispatchRepository struct {
	db      *gorm.DB
	retries int
}

// NewDispatchRepository creates a new DispatchRepository.
// Parameters:
//   - db: GORM database handle used for queries.
//   - retries: extra attempts for transactions that fail with a transient store error.
// Returns:
//   - *DispatchRepository: repository instance bound to db.
func NewDispatchRepository(db *gorm.DB, retries int) *DispatchRepository {
	return &DispatchRepository{db: db, retries: retries}
}

// ExistsBySupplierUser reports whether uid already clicked through this mapping.
func (r *DispatchRepository) ExistsBySupplierUser(ctx context.Context, stid, uid string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.DispatchRecord{}).
		Where("stid = ? AND supplier_identifier = ?", stid, uid).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ExistsByIP reports whether ip is already in the ledger.
// A projectID of zero searches every project.
func (r *DispatchRepository) ExistsByIP(ctx context.Context, ip string, projectID uint) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&domain.DispatchRecord{}).Where("ip_address = ?", ip)
	if projectID != 0 {
		q = q.Where("project_id = ?", projectID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create appends a record that carries no identifier, such as a screen rejection.
func (r *DispatchRepository) Create(ctx context.Context, rec *domain.DispatchRecord) error {
	return withRetry(ctx, r.retries, func(ctx context.Context) error {
		rec.ID = 0
		return r.db.WithContext(ctx).Create(rec).Error
	})
}

// CreateAdmitted writes an admitted record and, when reserve is set, takes one
// click of quota from the mapping in the same transaction.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - rec: record carrying a freshly minted hash identifier.
//   - mappingID: mapping whose quota is reserved.
//   - reserve: false for test dispatches, which never consume quota.
// Returns:
//   - error: domain.ErrQuotaExhausted when no quota is left,
//     domain.ErrIdentifierTaken when rec's identifier is already issued.
func (r *DispatchRepository) CreateAdmitted(ctx context.Context, rec *domain.DispatchRecord, mappingID uint, reserve bool) error {
	return withRetry(ctx, r.retries, func(ctx context.Context) error {
		rec.ID = 0
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if reserve {
				if err := reserveClick(tx, mappingID); err != nil {
					return err
				}
			}
			if err := tx.Create(rec).Error; err != nil {
				if isUniqueViolation(err) {
					return fmt.Errorf("%w: %s", domain.ErrIdentifierTaken, rec.Identifier())
				}
				return err
			}
			return nil
		})
	})
}

func reserveClick(tx *gorm.DB, mappingID uint) error {
	result := tx.Model(&domain.SupplierMapping{}).
		Where("id = ? AND active = ?", mappingID, true).
		Where("clicks_used < click_quota").
		Where("(complete_quota = 0 OR completes_used < complete_quota)").
		Updates(map[string]interface{}{
			"clicks_used": gorm.Expr("clicks_used + ?", 1),
			"updated_at":  time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrQuotaExhausted
	}
	return nil
}

// GetByHash retrieves a record by its hash identifier.
func (r *DispatchRepository) GetByHash(ctx context.Context, hash string) (*domain.DispatchRecord, error) {
	var rec domain.DispatchRecord
	if err := r.db.WithContext(ctx).First(&rec, "hash_identifier = ?", hash).Error; err != nil {
		return nil, translate(err)
	}
	return &rec, nil
}

// Finalize records the completion outcome of an active record exactly once.
// A live complete also advances the mapping's completes counter, which never
// passes a non-zero complete quota. Completes beyond it are still recorded
// on the dispatch record.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - rec: record previously loaded by GetByHash; updated in place on success.
//   - status: completion-time status.
//   - endedAt: completion time.
//   - loi: length of interview in whole minutes.
// Returns:
//   - error: domain.ErrAlreadyFinalized when another completion won.
func (r *DispatchRepository) Finalize(ctx context.Context, rec *domain.DispatchRecord, status domain.LinkStatus, endedAt time.Time, loi int) error {
	err := withRetry(ctx, r.retries, func(ctx context.Context) error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			result := tx.Model(&domain.DispatchRecord{}).
				Where("hash_identifier = ? AND ended_at IS NULL", rec.Identifier()).
				Where("status IN ?", []domain.LinkStatus{domain.StatusSentToLive, domain.StatusSentToTest}).
				Updates(map[string]interface{}{
					"status":     status,
					"ended_at":   endedAt,
					"loi":        loi,
					"updated_at": time.Now(),
				})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return domain.ErrAlreadyFinalized
			}

			if status == domain.StatusComplete && !rec.IsTestLink {
				return tx.Model(&domain.SupplierMapping{}).
					Where("stid = ?", rec.STID).
					Where("(complete_quota = 0 OR completes_used < complete_quota)").
					Update("completes_used", gorm.Expr("completes_used + ?", 1)).Error
			}
			return nil
		})
	})
	if err != nil {
		return err
	}

	rec.Status = status
	rec.EndedAt = &endedAt
	rec.LOI = loi
	return nil
}

// StatusCounts groups the records of a project by current status.
func (r *DispatchRepository) StatusCounts(ctx context.Context, projectID uint) ([]domain.StatusCount, error) {
	var rows []domain.StatusCount
	err := r.db.WithContext(ctx).
		Model(&domain.DispatchRecord{}).
		Select("status, COUNT(*) AS count").
		Where("project_id = ?", projectID).
		Group("status").
		Scan(&rows).Error
	return rows, err
}

// TestLinkCount counts the test dispatches of a project.
func (r *DispatchRepository) TestLinkCount(ctx context.Context, projectID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.DispatchRecord{}).
		Where("project_id = ? AND is_test_link = ?", projectID, true).
		Count(&count).Error
	return count, err
}

// CompletedLOIs returns the positive LOI values of completed records.
func (r *DispatchRepository) CompletedLOIs(ctx context.Context, projectID uint) ([]int, error) {
	var lois []int
	err := r.db.WithContext(ctx).
		Model(&domain.DispatchRecord{}).
		Where("project_id = ? AND status = ? AND loi > 0", projectID, domain.StatusComplete).
		Order("loi ASC").
		Pluck("loi", &lois).Error
	return lois, err
}

// ExportBatches streams the records of a project in ID order, batchSize at a time.
func (r *DispatchRepository) ExportBatches(ctx context.Context, projectID uint, batchSize int, fn func([]domain.DispatchRecord) error) error {
	var batch []domain.DispatchRecord
	result := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
			return fn(batch)
		})
	return result.Error
}
