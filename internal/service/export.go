package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"path"
	"strconv"
	"time"

	"github.com/timmy/panelgate/internal/domain"
	"github.com/timmy/panelgate/internal/logger"
	"github.com/timmy/panelgate/internal/storage"
)

const exportBatchSize = 500

var exportHeader = []string{
	"Hash Identifier", "STID", "Supplier ID", "Supplier UID", "IP Address", "Country",
	"Device Type", "Browser", "Dispatch Status", "Status", "Test Link",
	"Started At", "Ended At", "LOI", "Project CPI", "Supplier CPI",
}

// ExportLedger streams ledger rows for export.
type ExportLedger interface {
	ExportBatches(ctx context.Context, projectID uint, batchSize int, fn func([]domain.DispatchRecord) error) error
}

// ExportService renders a project's dispatch records as CSV.
type ExportService struct {
	ledger   ExportLedger
	projects ProjectLookup
	storage  storage.ObjectStorage
	prefix   string
	now      func() time.Time
}

// NewExportService creates a new ExportService. objectStorage may be nil, in
// which case Upload is unavailable.
func NewExportService(ledger ExportLedger, projects ProjectLookup, objectStorage storage.ObjectStorage, prefix string) *ExportService {
	return &ExportService{
		ledger:   ledger,
		projects: projects,
		storage:  objectStorage,
		prefix:   prefix,
		now:      time.Now,
	}
}

// Project returns the project an export would cover.
func (s *ExportService) Project(ctx context.Context, projectID uint) (*domain.Project, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("export project %d: %w", projectID, err)
	}
	return project, nil
}

// WriteCSV writes every record of projectID to w, header first.
func (s *ExportService) WriteCSV(ctx context.Context, projectID uint, w io.Writer) (int, error) {
	if _, err := s.Project(ctx, projectID); err != nil {
		return 0, err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return 0, err
	}

	rows := 0
	err := s.ledger.ExportBatches(ctx, projectID, exportBatchSize, func(batch []domain.DispatchRecord) error {
		for i := range batch {
			if err := cw.Write(exportRow(&batch[i])); err != nil {
				return err
			}
		}
		rows += len(batch)
		cw.Flush()
		return cw.Error()
	})
	if err != nil {
		return rows, fmt.Errorf("export project %d: %w", projectID, err)
	}
	cw.Flush()
	return rows, cw.Error()
}

// Upload renders the export and stores it under
// <prefix>/project-<id>/<timestamp>.csv, returning a download URL.
func (s *ExportService) Upload(ctx context.Context, projectID uint) (string, error) {
	if s.storage == nil {
		return "", fmt.Errorf("%w: object storage is not configured", domain.ErrUpstreamUnavailable)
	}

	start := time.Now()
	var buf bytes.Buffer
	rows, err := s.WriteCSV(ctx, projectID, &buf)
	if err != nil {
		return "", err
	}

	key, err := s.freeKey(ctx, projectID)
	if err != nil {
		return "", err
	}
	size := int64(buf.Len())
	if err := s.storage.Upload(ctx, key, bytes.NewReader(buf.Bytes()), size, "text/csv"); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	url, err := s.storage.GetURL(ctx, key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}

	logger.With(logger.Fields{
		logger.FieldCount:     rows,
		logger.FieldSize:      size,
		logger.FieldProjectID: projectID,
	}).WithDuration(time.Since(start)).Info(ctx, "Report export uploaded: key=%s", key)

	return url, nil
}

// freeKey picks <prefix>/project-<id>/<timestamp>.csv, adding a -N suffix
// when an export already landed in the same second.
func (s *ExportService) freeKey(ctx context.Context, projectID uint) (string, error) {
	base := path.Join(s.prefix, fmt.Sprintf("project-%d", projectID), s.now().UTC().Format("20060102T150405Z"))
	key := base + ".csv"
	for n := 1; ; n++ {
		exists, err := s.storage.Exists(ctx, key)
		if err != nil {
			return "", fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
		}
		if !exists {
			return key, nil
		}
		key = fmt.Sprintf("%s-%d.csv", base, n)
	}
}

func exportRow(r *domain.DispatchRecord) []string {
	ended := ""
	if r.EndedAt != nil {
		ended = r.EndedAt.UTC().Format(time.RFC3339)
	}
	return []string{
		r.Identifier(),
		r.STID,
		strconv.FormatUint(uint64(r.SupplierID), 10),
		r.SupplierIdentifier,
		r.IPAddress,
		r.CountryCode,
		r.DeviceType,
		r.Browser,
		string(r.DispatchStatus),
		string(r.Status),
		strconv.FormatBool(r.IsTestLink),
		r.StartedAt.UTC().Format(time.RFC3339),
		ended,
		strconv.Itoa(r.LOI),
		strconv.FormatFloat(r.ProjectCPI, 'f', 2, 64),
		strconv.FormatFloat(r.SupplierCPI, 'f', 2, 64),
	}
}
