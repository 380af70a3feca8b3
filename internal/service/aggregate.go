package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/timmy/panelgate/internal/domain"
	"github.com/timmy/panelgate/internal/logger"
	"golang.org/x/sync/errgroup"
)

// Median returns the median of values; the mean of the two middle values for
// an even count and 0 for an empty slice. values is not modified.
func Median(values []int) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := append([]int(nil), values...)
	sort.Ints(sorted)
	mid := n / 2
	if n%2 == 0 {
		return float64(sorted[mid-1]+sorted[mid]) / 2
	}
	return float64(sorted[mid])
}

// ReportLedger is the read side of the ledger used for aggregation.
type ReportLedger interface {
	StatusCounts(ctx context.Context, projectID uint) ([]domain.StatusCount, error)
	TestLinkCount(ctx context.Context, projectID uint) (int64, error)
	CompletedLOIs(ctx context.Context, projectID uint) ([]int, error)
}

// ReportProjects loads the project configuration reports are keyed on.
type ReportProjects interface {
	GetByID(ctx context.Context, id uint) (*domain.Project, error)
	GetGroupByID(ctx context.Context, id uint) (*domain.GroupProject, error)
	ListByGroup(ctx context.Context, groupID uint) ([]*domain.Project, error)
}

// ReportService computes status breakdowns from the ledger on demand.
type ReportService struct {
	ledger      ReportLedger
	projects    ReportProjects
	concurrency int
	logger      *logger.Logger
}

// NewReportService creates a new ReportService. concurrency bounds the
// child projects summarized in parallel for a group.
func NewReportService(ledger ReportLedger, projects ReportProjects, concurrency int, log *logger.Logger) *ReportService {
	if concurrency < 1 {
		concurrency = 4
	}
	return &ReportService{ledger: ledger, projects: projects, concurrency: concurrency, logger: log}
}

// ProjectReport summarizes one project.
func (s *ReportService) ProjectReport(ctx context.Context, projectID uint) (*domain.ProjectReport, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("project report %d: %w", projectID, err)
	}
	summary, lois, err := s.summarize(ctx, projectID)
	if err != nil {
		return nil, err
	}
	summary.MedianLOI = Median(lois)
	return &domain.ProjectReport{Project: project, Summary: summary}, nil
}

// GroupReport summarizes every child of a group and rolls them up. The group
// median is taken over the pooled LOIs of all children.
func (s *ReportService) GroupReport(ctx context.Context, groupID uint) (*domain.GroupReport, error) {
	start := time.Now()
	ctx = logger.SetComponent(logger.Attach(ctx, s.logger), "report")
	group, err := s.projects.GetGroupByID(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("group report %d: %w", groupID, err)
	}
	children, err := s.projects.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("group report %d: %w", groupID, err)
	}

	reports := make([]*domain.ProjectReport, len(children))
	childLOIs := make([][]int, len(children))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, child := range children {
		g.Go(func() error {
			summary, lois, err := s.summarize(gctx, child.ID)
			if err != nil {
				return err
			}
			summary.MedianLOI = Median(lois)
			reports[i] = &domain.ProjectReport{Project: child, Summary: summary}
			childLOIs[i] = lois
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("group report %d: %w", groupID, err)
	}

	total := domain.NewStatusSummary()
	var pooled []int
	for i, r := range reports {
		total.Merge(r.Summary)
		pooled = append(pooled, childLOIs[i]...)
	}
	total.MedianLOI = Median(pooled)

	logger.With(logger.Fields{
		logger.FieldCount: len(children),
	}).WithDuration(time.Since(start)).Debug(ctx, "Group report built: group=%d", groupID)

	return &domain.GroupReport{Group: group, Children: reports, Summary: total}, nil
}

func (s *ReportService) summarize(ctx context.Context, projectID uint) (*domain.StatusSummary, []int, error) {
	counts, err := s.ledger.StatusCounts(ctx, projectID)
	if err != nil {
		return nil, nil, fmt.Errorf("status counts for project %d: %w", projectID, err)
	}
	summary := domain.NewStatusSummary()
	for _, c := range counts {
		summary.Add(c.Status, c.Count)
	}

	if summary.TestLinkCount, err = s.ledger.TestLinkCount(ctx, projectID); err != nil {
		return nil, nil, fmt.Errorf("test link count for project %d: %w", projectID, err)
	}

	lois, err := s.ledger.CompletedLOIs(ctx, projectID)
	if err != nil {
		return nil, nil, fmt.Errorf("completed lois for project %d: %w", projectID, err)
	}
	return summary, lois, nil
}
