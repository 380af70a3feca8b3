package domain

// StatusCount is one row of a per-status breakdown of a project's records.
type StatusCount struct {
	Status LinkStatus
	Count  int64
}

// StatusSummary aggregates dispatch records of one project (or a roll-up of several).
type StatusSummary struct {
	Counts        map[LinkStatus]int64 `json:"status_counts"`
	UnknownCount  int64                `json:"unknown_status_count"`
	TotalClicks   int64                `json:"report_count"`
	TestLinkCount int64                `json:"test_link_count"`
	MedianLOI     float64              `json:"median_loi"`
}

// NewStatusSummary returns a summary with a zero count for every known status.
func NewStatusSummary() *StatusSummary {
	counts := make(map[LinkStatus]int64, len(AllStatuses))
	for _, s := range AllStatuses {
		counts[s] = 0
	}
	return &StatusSummary{Counts: counts}
}

// Add records n rows with status s, routing unrecognized statuses to the unknown bucket.
func (s *StatusSummary) Add(status LinkStatus, n int64) {
	s.TotalClicks += n
	if status.IsKnown() {
		s.Counts[status] += n
		return
	}
	s.UnknownCount += n
}

// Merge adds other's counts into s. MedianLOI is not merged; it must be
// recomputed from the pooled LOI values.
func (s *StatusSummary) Merge(other *StatusSummary) {
	if other == nil {
		return
	}
	for status, n := range other.Counts {
		s.Counts[status] += n
	}
	s.UnknownCount += other.UnknownCount
	s.TotalClicks += other.TotalClicks
	s.TestLinkCount += other.TestLinkCount
}

// ProjectReport is the per-project dashboard entry.
type ProjectReport struct {
	Project *Project       `json:"project"`
	Summary *StatusSummary `json:"summary"`
}

// GroupReport rolls up child projects of a group project.
type GroupReport struct {
	Group    *GroupProject    `json:"group"`
	Children []*ProjectReport `json:"child_projects"`
	Summary  *StatusSummary   `json:"summary"`
}
