package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/panelgate/internal/domain"
	"github.com/timmy/panelgate/internal/logger"
)

// RejectionLedger persists records that carry no identifier.
type RejectionLedger interface {
	Create(ctx context.Context, rec *domain.DispatchRecord) error
}

// FirstMappingLookup finds the mapping used for project test links.
type FirstMappingLookup interface {
	FirstByProject(ctx context.Context, projectID uint) (*domain.SupplierMapping, error)
}

// DispatchConfig holds configuration for the dispatch service.
type DispatchConfig struct {
	BaseURL    string
	GeoTimeout time.Duration
}

// DispatchRequest is one respondent click.
type DispatchRequest struct {
	STID      string
	UID       string
	IP        string
	UserAgent string
}

// DispatchResult is the outcome of a click. Link is always set: the survey
// URL on admission, the thank-you page otherwise.
type DispatchResult struct {
	Link   string
	Status domain.LinkStatus
	Record *domain.DispatchRecord
}

// Admitted reports whether the respondent was sent to a survey.
func (r *DispatchResult) Admitted() bool {
	return r.Status.IsActive()
}

// Err returns nil for admitted clicks and a domain.ErrRejectedByPolicy
// error naming the failed check otherwise.
func (r *DispatchResult) Err() error {
	if r.Admitted() {
		return nil
	}
	return fmt.Errorf("%w: %s", domain.ErrRejectedByPolicy, r.Status)
}

// DispatchService routes respondent clicks to surveys.
type DispatchService struct {
	resolver   *IdentityResolver
	screen     *Screen
	issuer     *Issuer
	rejections RejectionLedger
	mappings   FirstMappingLookup
	geo        GeoLocator
	logger     *logger.Logger
	baseURL    string
	geoTimeout time.Duration
	now        func() time.Time
}

// NewDispatchService creates a new dispatch service.
// Parameters:
//   - resolver: stid to project resolver.
//   - screen: fraud and duplication screen.
//   - issuer: identifier minting and admitted record writer.
//   - rejections: ledger for rejected clicks.
//   - mappings: lookup used by TestLink.
//   - geo: IP to country locator; nil disables lookups.
//   - log: logger instance.
//   - cfg: dispatch configuration.
//
// Returns:
//   - *DispatchService: initialized dispatch service.
func NewDispatchService(
	resolver *IdentityResolver,
	screen *Screen,
	issuer *Issuer,
	rejections RejectionLedger,
	mappings FirstMappingLookup,
	geo GeoLocator,
	log *logger.Logger,
	cfg DispatchConfig,
) *DispatchService {
	timeout := cfg.GeoTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &DispatchService{
		resolver:   resolver,
		screen:     screen,
		issuer:     issuer,
		rejections: rejections,
		mappings:   mappings,
		geo:        geo,
		logger:     log,
		baseURL:    cfg.BaseURL,
		geoTimeout: timeout,
		now:        time.Now,
	}
}

// SetClock replaces the time source.
func (s *DispatchService) SetClock(now func() time.Time) {
	s.now = now
}

// Dispatch resolves, screens and admits one click.
// Policy rejections are not errors: they return a result whose Link points
// at the thank-you page. Errors are reserved for invalid input, unknown
// tokens and store failures.
func (s *DispatchService) Dispatch(ctx context.Context, req DispatchRequest) (*DispatchResult, error) {
	start := time.Now()
	req.STID = strings.TrimSpace(req.STID)
	req.UID = strings.TrimSpace(req.UID)
	if req.STID == "" || req.UID == "" {
		return nil, fmt.Errorf("%w: stid and uid are required", domain.ErrInvalidInput)
	}
	ctx = logger.SetComponent(logger.Attach(ctx, s.logger), "dispatch")
	ctx = logger.SetSTID(ctx, req.STID)

	res, err := s.resolver.Resolve(ctx, req.STID)
	if err != nil {
		return nil, err
	}
	ctx = logger.SetProjectID(ctx, res.Project.ID)

	admission := Decide(res.Mapping)
	country := ResolveCountry(ctx, s.geo, req.IP, s.geoTimeout)
	device := ParseDevice(req.UserAgent)

	rec := &domain.DispatchRecord{
		STID:               res.Mapping.STID,
		SupplierIdentifier: req.UID,
		ProjectID:          res.Project.ID,
		SupplierID:         res.Mapping.SupplierID,
		IPAddress:          req.IP,
		CountryCode:        country,
		DeviceType:         device.DeviceType,
		Browser:            device.Browser,
		UserAgent:          req.UserAgent,
		ProjectCPI:         res.Mapping.ProjectCPI,
		SupplierCPI:        res.Mapping.SupplierCPI,
		IsTestLink:         admission.Test,
		StartedAt:          s.now(),
	}

	if admission.Screen {
		verdict, err := s.screen.Evaluate(ctx, Click{
			STID:    res.Mapping.STID,
			UID:     req.UID,
			IP:      req.IP,
			Country: country,
			Project: res.Project,
		})
		if err != nil {
			return nil, err
		}
		if verdict != "" {
			return s.reject(ctx, rec, verdict, start)
		}
	}

	template := res.Project.SurveyLink(admission.Test)
	if err := ValidateTemplate(template); err != nil {
		return nil, fmt.Errorf("project %d: %w", res.Project.ID, err)
	}

	rec.DispatchStatus = admission.Status
	rec.Status = admission.Status
	link, err := s.issuer.Issue(ctx, rec, template, res.Mapping.ID, admission.Reserve)
	if errors.Is(err, domain.ErrQuotaExhausted) {
		return s.reject(ctx, rec, domain.StatusOverQuota, start)
	}
	if err != nil {
		return nil, err
	}

	logger.With(logger.Fields{
		logger.FieldStatus:         string(rec.Status),
		logger.FieldHashIdentifier: rec.Identifier(),
	}).WithDuration(time.Since(start)).Info(ctx, "Click admitted")

	return &DispatchResult{Link: link, Status: rec.Status, Record: rec}, nil
}

func (s *DispatchService) reject(ctx context.Context, rec *domain.DispatchRecord, status domain.LinkStatus, start time.Time) (*DispatchResult, error) {
	rec.HashIdentifier = nil
	rec.DispatchStatus = status
	rec.Status = status
	rec.FailureReason = status.Label()

	if err := s.rejections.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("record rejected click: %w", err)
	}

	entry := logger.With(logger.Fields{
		logger.FieldStatus:      string(status),
		logger.FieldSupplierUID: rec.SupplierIdentifier,
		logger.FieldClientIP:    rec.IPAddress,
	}).WithDuration(time.Since(start))
	if status == domain.StatusOverQuota {
		entry.Info(ctx, "Click rejected: quota exhausted")
	} else {
		entry.Warn(ctx, "Click rejected by screen: %s", status.Label())
	}

	return &DispatchResult{
		Link:   ThanksURL(s.baseURL, domain.FailureShortCode(status), rec.SupplierIdentifier),
		Status: status,
		Record: rec,
	}, nil
}

// TestLink returns an entry URL for trying a project end to end, using the
// project's first active mapping and a random respondent id.
func (s *DispatchService) TestLink(ctx context.Context, projectID uint) (string, error) {
	if projectID == 0 {
		return "", fmt.Errorf("%w: project_id is required", domain.ErrInvalidInput)
	}
	mapping, err := s.mappings.FirstByProject(ctx, projectID)
	if err != nil {
		return "", fmt.Errorf("test link for project %d: %w", projectID, err)
	}
	ctx = logger.SetProjectID(logger.Attach(ctx, s.logger), projectID)
	logger.CtxDebug(ctx, "Issued project test link: stid=%s", mapping.STID)
	return TestSurveyURL(s.baseURL, mapping.STID, uuid.NewString()), nil
}
