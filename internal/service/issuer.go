package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/timmy/panelgate/internal/domain"
	"github.com/timmy/panelgate/internal/logger"
)

// IdentifierGenerator mints hash identifiers.
type IdentifierGenerator interface {
	NewIdentifier() string
}

// UUIDGenerator mints Prefix + random UUID v4 identifiers.
type UUIDGenerator struct {
	Prefix string
}

// NewIdentifier implements IdentifierGenerator.
func (g UUIDGenerator) NewIdentifier() string {
	return g.Prefix + uuid.NewString()
}

// AdmissionLedger persists admitted dispatches.
type AdmissionLedger interface {
	CreateAdmitted(ctx context.Context, rec *domain.DispatchRecord, mappingID uint, reserve bool) error
}

// Issuer mints identifiers, writes the admitted record and builds the survey URL.
type Issuer struct {
	gen      IdentifierGenerator
	ledger   AdmissionLedger
	attempts int
	logger   *logger.Logger
}

// NewIssuer creates a new Issuer. attempts bounds identifier regeneration on collision.
func NewIssuer(gen IdentifierGenerator, ledger AdmissionLedger, attempts int, log *logger.Logger) *Issuer {
	if attempts < 1 {
		attempts = 1
	}
	return &Issuer{gen: gen, ledger: ledger, attempts: attempts, logger: log}
}

// ValidateTemplate reports domain.ErrInvalidInput for templates without the placeholder.
func ValidateTemplate(template string) error {
	if !strings.Contains(template, domain.IdentifierPlaceholder) {
		return fmt.Errorf("%w: survey link has no %s placeholder", domain.ErrInvalidInput, domain.IdentifierPlaceholder)
	}
	return nil
}

// BuildSurveyURL substitutes identifier into every placeholder of template.
func BuildSurveyURL(template, identifier string) (string, error) {
	if err := ValidateTemplate(template); err != nil {
		return "", err
	}
	return strings.ReplaceAll(template, domain.IdentifierPlaceholder, url.QueryEscape(identifier)), nil
}

// Issue stores rec under a fresh identifier and returns the destination URL.
// A colliding identifier rolls back the write, including any quota
// reservation, and is retried with a new identifier.
func (i *Issuer) Issue(ctx context.Context, rec *domain.DispatchRecord, template string, mappingID uint, reserve bool) (string, error) {
	if err := ValidateTemplate(template); err != nil {
		return "", err
	}
	ctx = logger.Attach(ctx, i.logger)

	for attempt := 1; attempt <= i.attempts; attempt++ {
		identifier := i.gen.NewIdentifier()
		rec.HashIdentifier = &identifier

		err := i.ledger.CreateAdmitted(ctx, rec, mappingID, reserve)
		if err == nil {
			return BuildSurveyURL(template, identifier)
		}
		if !errors.Is(err, domain.ErrIdentifierTaken) {
			rec.HashIdentifier = nil
			return "", err
		}

		logger.With(logger.Fields{
			logger.FieldAttempt:        attempt,
			logger.FieldHashIdentifier: identifier,
		}).Warn(ctx, "Hash identifier collision, regenerating")
	}

	rec.HashIdentifier = nil
	return "", fmt.Errorf("%w: no unique identifier after %d attempts", domain.ErrConflict, i.attempts)
}
