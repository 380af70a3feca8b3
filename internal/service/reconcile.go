package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/timmy/panelgate/internal/domain"
	"github.com/timmy/panelgate/internal/logger"
)

// CompletionLedger loads and finalizes dispatched records.
type CompletionLedger interface {
	GetByHash(ctx context.Context, hash string) (*domain.DispatchRecord, error)
	Finalize(ctx context.Context, rec *domain.DispatchRecord, status domain.LinkStatus, endedAt time.Time, loi int) error
}

// CompletionResult carries the thank-you redirect for a finished respondent.
type CompletionResult struct {
	RedirectLink string
	Record       *domain.DispatchRecord
}

// CompletionReconciler applies survey end signals to the ledger.
type CompletionReconciler struct {
	ledger  CompletionLedger
	baseURL string
	logger  *logger.Logger
	now     func() time.Time
}

// NewCompletionReconciler creates a new CompletionReconciler.
func NewCompletionReconciler(ledger CompletionLedger, baseURL string, log *logger.Logger) *CompletionReconciler {
	return &CompletionReconciler{ledger: ledger, baseURL: baseURL, logger: log, now: time.Now}
}

// SetClock replaces the time source.
func (r *CompletionReconciler) SetClock(now func() time.Time) {
	r.now = now
}

// Complete finalizes the record issued under identifier with the reported
// end reason. A record can be finalized once; later signals return
// domain.ErrAlreadyFinalized and leave the record untouched.
func (r *CompletionReconciler) Complete(ctx context.Context, identifier, end string) (*CompletionResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, fmt.Errorf("%w: uid is required", domain.ErrInvalidInput)
	}
	reason, err := domain.ParseEndReason(end)
	if err != nil {
		return nil, err
	}
	ctx = logger.SetComponent(logger.Attach(ctx, r.logger), "reconcile")
	ctx = logger.SetHashIdentifier(ctx, identifier)

	rec, err := r.ledger.GetByHash(ctx, identifier)
	if err != nil {
		return nil, fmt.Errorf("completion for %s: %w", identifier, err)
	}
	if rec.Finalized() {
		return nil, fmt.Errorf("completion for %s (%s): %w", identifier, rec.Status, domain.ErrAlreadyFinalized)
	}

	endedAt := r.now()
	loi := domain.LengthOfInterview(rec.StartedAt, endedAt)
	if err := r.ledger.Finalize(ctx, rec, reason.Status, endedAt, loi); err != nil {
		return nil, fmt.Errorf("completion for %s: %w", identifier, err)
	}

	logger.With(logger.Fields{
		logger.FieldStatus:    string(reason.Status),
		logger.FieldProjectID: rec.ProjectID,
		logger.FieldLOI:       loi,
	}).Info(ctx, "Dispatch reconciled")

	return &CompletionResult{
		RedirectLink: ThanksURL(r.baseURL, reason.ShortCode, identifier),
		Record:       rec,
	}, nil
}
