package domain

import "time"

// DispatchRecord is the ledger row written for every respondent click.
// It is created at dispatch and mutated at most once, by reconciliation.
// Rejected clicks have no HashIdentifier.
type DispatchRecord struct {
	ID             uint    `gorm:"primaryKey" json:"id"`
	HashIdentifier *string `gorm:"type:text;uniqueIndex:idx_dispatch_records_hash" json:"hash_identifier,omitempty"`

	STID               string `gorm:"column:stid;type:text;not null;index:idx_dispatch_records_stid_uid,priority:1" json:"stid"`
	SupplierIdentifier string `gorm:"type:text;not null;index:idx_dispatch_records_stid_uid,priority:2" json:"supplier_identifier"`
	ProjectID          uint   `gorm:"not null;index:idx_dispatch_records_project_status,priority:1;index:idx_dispatch_records_project_ip,priority:1" json:"project_id"`
	SupplierID         uint   `gorm:"not null" json:"supplier_id"`

	IPAddress   string `gorm:"type:text;index:idx_dispatch_records_ip;index:idx_dispatch_records_project_ip,priority:2" json:"ip_address"`
	CountryCode string `gorm:"type:text" json:"country_code"`
	DeviceType  string `gorm:"type:text" json:"device_type"`
	Browser     string `gorm:"type:text" json:"browser"`
	UserAgent   string `gorm:"type:text" json:"-"`

	// CPI snapshot at dispatch time.
	ProjectCPI  float64 `json:"project_cpi"`
	SupplierCPI float64 `json:"supplier_cpi"`

	DispatchStatus LinkStatus `gorm:"type:text;not null" json:"dispatch_status"`
	Status         LinkStatus `gorm:"type:text;index:idx_dispatch_records_project_status,priority:2" json:"status"`
	FailureReason  string     `gorm:"type:text" json:"failure_reason,omitempty"`
	IsTestLink     bool       `json:"test_link"`

	StartedAt time.Time  `gorm:"not null" json:"start_date_time"`
	EndedAt   *time.Time `json:"end_date_time,omitempty"`
	LOI       int        `gorm:"column:loi;not null;default:0" json:"loi"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for DispatchRecord.
func (DispatchRecord) TableName() string {
	return "dispatch_records"
}

// Identifier returns the hash identifier or "" for rejected records.
func (r *DispatchRecord) Identifier() string {
	if r.HashIdentifier == nil {
		return ""
	}
	return *r.HashIdentifier
}

// Finalized reports whether the record already carries a completion outcome.
func (r *DispatchRecord) Finalized() bool {
	return r.EndedAt != nil || !r.Status.IsActive()
}

// LengthOfInterview returns whole minutes elapsed between start and end, never negative.
func LengthOfInterview(start, end time.Time) int {
	d := end.Sub(start)
	if d <= 0 {
		return 0
	}
	return int(d / time.Minute)
}
