package domain

import "time"

// SupplierMapping is one supplier's participation in one project, addressed by
// the opaque STID token embedded in supplier links. Mappings are deactivated,
// never deleted, because dispatch records reference them by token.
type SupplierMapping struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	STID       string `gorm:"column:stid;type:text;not null;uniqueIndex:idx_supplier_mappings_stid" json:"stid"`
	ProjectID  uint   `gorm:"not null;index:idx_supplier_mappings_project" json:"project_id"`
	SupplierID uint   `gorm:"not null" json:"supplier_id"`
	IsTestLink bool   `gorm:"not null;default:false" json:"is_test_link"`

	// ClickQuota bounds admitted live clicks; ClicksUsed is advanced only by
	// the atomic reservation in the dispatch repository.
	ClickQuota int `gorm:"not null;default:0" json:"click_quota"`
	ClicksUsed int `gorm:"not null;default:0" json:"clicks_used"`

	// CompleteQuota of zero disables completion tracking.
	CompleteQuota int `gorm:"not null;default:0" json:"complete_quota"`
	CompletesUsed int `gorm:"not null;default:0" json:"completes_used"`

	ProjectCPI      float64   `json:"project_cpi"`
	SupplierCPI     float64   `json:"supplier_cpi"`
	RedirectionType int       `gorm:"default:1" json:"redirection_type"`
	Active          bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName returns the database table name for SupplierMapping.
func (SupplierMapping) TableName() string {
	return "supplier_mappings"
}
