package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/timmy/panelgate/internal/config"
	"github.com/timmy/panelgate/internal/domain"
)

// ScreenOrder is the order in which fraud checks run. The first failing
// check decides the rejection status.
var ScreenOrder = [...]domain.LinkStatus{
	domain.StatusDuplicateSupplierUser,
	domain.StatusGeoIPMismatch,
	domain.StatusDuplicateIP,
}

// ScreenStore answers the ledger questions asked by the screen.
type ScreenStore interface {
	ExistsBySupplierUser(ctx context.Context, stid, uid string) (bool, error)
	// ExistsByIP searches every project when projectID is zero.
	ExistsByIP(ctx context.Context, ip string, projectID uint) (bool, error)
}

// ScreenPolicy holds the tunable parts of the screen.
type ScreenPolicy struct {
	IPScope                  string
	UnknownCountryIsMismatch bool
}

// ScreenPolicyFromConfig maps config onto a ScreenPolicy.
func ScreenPolicyFromConfig(cfg config.ScreenConfig) ScreenPolicy {
	return ScreenPolicy{IPScope: cfg.IPScope, UnknownCountryIsMismatch: cfg.UnknownCountryIsMismatch}
}

// Click is an inbound respondent click as seen by the screen.
type Click struct {
	STID    string
	UID     string
	IP      string
	Country string
	Project *domain.Project
}

// Screen evaluates clicks against prior ledger entries and the project's geo restriction.
type Screen struct {
	store  ScreenStore
	policy ScreenPolicy
}

// NewScreen creates a new Screen.
func NewScreen(store ScreenStore, policy ScreenPolicy) *Screen {
	return &Screen{store: store, policy: policy}
}

// Evaluate runs the checks in ScreenOrder and returns the first failing
// status, or "" when the click passes.
func (s *Screen) Evaluate(ctx context.Context, click Click) (domain.LinkStatus, error) {
	for _, check := range ScreenOrder {
		failed, err := s.run(ctx, check, click)
		if err != nil {
			return "", fmt.Errorf("screen %s: %w", check, err)
		}
		if failed {
			return check, nil
		}
	}
	return "", nil
}

func (s *Screen) run(ctx context.Context, check domain.LinkStatus, click Click) (bool, error) {
	switch check {
	case domain.StatusDuplicateSupplierUser:
		return s.store.ExistsBySupplierUser(ctx, click.STID, click.UID)
	case domain.StatusGeoIPMismatch:
		return s.geoMismatch(click), nil
	case domain.StatusDuplicateIP:
		if click.IP == "" {
			return false, nil
		}
		var projectID uint
		if s.policy.IPScope != config.IPScopeGlobal {
			projectID = click.Project.ID
		}
		return s.store.ExistsByIP(ctx, click.IP, projectID)
	default:
		return false, fmt.Errorf("unknown check %q", check)
	}
}

func (s *Screen) geoMismatch(click Click) bool {
	if !click.Project.RestrictsCountry() {
		return false
	}
	if click.Country == "" {
		return s.policy.UnknownCountryIsMismatch
	}
	return !strings.EqualFold(strings.TrimSpace(click.Project.CountryCode), click.Country)
}
