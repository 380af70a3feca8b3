package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/timmy/panelgate/internal/domain"
)

// MappingLookup resolves supplier mapping tokens.
type MappingLookup interface {
	GetBySTID(ctx context.Context, stid string) (*domain.SupplierMapping, error)
}

// ProjectLookup loads project configuration.
type ProjectLookup interface {
	GetByID(ctx context.Context, id uint) (*domain.Project, error)
}

// Resolution is the configuration a click is routed against.
type Resolution struct {
	Mapping *domain.SupplierMapping
	Project *domain.Project
}

// IdentityResolver turns a supplier token into its mapping and project.
type IdentityResolver struct {
	mappings MappingLookup
	projects ProjectLookup
}

// NewIdentityResolver creates a new IdentityResolver.
func NewIdentityResolver(mappings MappingLookup, projects ProjectLookup) *IdentityResolver {
	return &IdentityResolver{mappings: mappings, projects: projects}
}

// Resolve looks up stid. Unknown or inactive tokens and mappings whose project
// is gone all return domain.ErrNotFound.
func (r *IdentityResolver) Resolve(ctx context.Context, stid string) (*Resolution, error) {
	stid = strings.TrimSpace(stid)
	if stid == "" {
		return nil, fmt.Errorf("%w: stid is required", domain.ErrInvalidInput)
	}

	mapping, err := r.mappings.GetBySTID(ctx, stid)
	if err != nil {
		return nil, fmt.Errorf("resolve stid %q: %w", stid, err)
	}

	project, err := r.projects.GetByID(ctx, mapping.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("resolve project %d for stid %q: %w", mapping.ProjectID, stid, err)
	}

	return &Resolution{Mapping: mapping, Project: project}, nil
}
