package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/timmy/panelgate/internal/domain"
	"github.com/timmy/panelgate/internal/logger"
)

// ImportFile is the configuration document accepted by the importer.
type ImportFile struct {
	Groups   []ImportGroup   `json:"groups"`
	Projects []ImportProject `json:"projects"`
}

type ImportGroup struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type ImportProject struct {
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	GroupCode   string          `json:"group_code,omitempty"`
	Manager     string          `json:"manager,omitempty"`
	Country     string          `json:"country,omitempty"`
	LiveLink    string          `json:"survey_live_link"`
	TestLink    string          `json:"survey_test_link"`
	ProjectCPI  float64         `json:"project_cpi"`
	SupplierCPI float64         `json:"supplier_cpi"`
	Status      string          `json:"status,omitempty"`
	Mappings    []ImportMapping `json:"mappings"`
}

type ImportMapping struct {
	// STID is generated when empty.
	STID            string   `json:"stid,omitempty"`
	SupplierID      uint     `json:"supplier_id"`
	TestLink        bool     `json:"test_link"`
	ClickQuota      int      `json:"click_quota"`
	CompleteQuota   int      `json:"complete_quota"`
	SupplierCPI     *float64 `json:"supplier_cpi,omitempty"`
	RedirectionType int      `json:"redirection_type,omitempty"`
	Active          *bool    `json:"active,omitempty"`
}

// ImportSummary counts what an import wrote.
type ImportSummary struct {
	Groups   int
	Projects int
	Mappings int
	// STIDs lists every mapping token, generated ones included, by project code.
	STIDs map[string][]string
}

// ConfigStore is the write side of project configuration.
type ConfigStore interface {
	UpsertGroup(ctx context.Context, group *domain.GroupProject) error
	Upsert(ctx context.Context, project *domain.Project) error
}

// MappingStore is the write side of supplier mappings.
type MappingStore interface {
	Create(ctx context.Context, mapping *domain.SupplierMapping) error
	Upsert(ctx context.Context, mapping *domain.SupplierMapping) error
	Deactivate(ctx context.Context, stid string) error
}

// stidAttempts bounds token regeneration when a generated stid is taken.
const stidAttempts = 5

// Importer loads project configuration documents into the store.
type Importer struct {
	projects ConfigStore
	mappings MappingStore
	newSTID  func() string
}

// NewImporter creates a new Importer.
func NewImporter(projects ConfigStore, mappings MappingStore) *Importer {
	return &Importer{projects: projects, mappings: mappings, newSTID: NewSTID}
}

// NewSTID returns a fresh mapping token: the first 8 hex digits of a random UUID.
func NewSTID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// ParseImportFile decodes a configuration document, rejecting unknown fields.
func ParseImportFile(r io.Reader) (*ImportFile, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var f ImportFile
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: decode import file: %v", domain.ErrInvalidInput, err)
	}
	return &f, nil
}

// Validate checks the document before anything is written.
func (f *ImportFile) Validate() error {
	groups := make(map[string]bool, len(f.Groups))
	for _, g := range f.Groups {
		if g.Code == "" || g.Name == "" {
			return fmt.Errorf("%w: group code and name are required", domain.ErrInvalidInput)
		}
		groups[g.Code] = true
	}
	for _, p := range f.Projects {
		if p.Code == "" || p.Name == "" {
			return fmt.Errorf("%w: project code and name are required", domain.ErrInvalidInput)
		}
		if p.GroupCode != "" && !groups[p.GroupCode] {
			return fmt.Errorf("%w: project %s references unknown group %s", domain.ErrInvalidInput, p.Code, p.GroupCode)
		}
		for _, link := range []string{p.LiveLink, p.TestLink} {
			if err := ValidateTemplate(link); err != nil {
				return fmt.Errorf("project %s: %w", p.Code, err)
			}
		}
		for _, m := range p.Mappings {
			if m.ClickQuota < 0 || m.CompleteQuota < 0 {
				return fmt.Errorf("%w: project %s has a negative quota", domain.ErrInvalidInput, p.Code)
			}
		}
	}
	return nil
}

// Import validates f and upserts groups, projects and mappings in that order.
func (i *Importer) Import(ctx context.Context, f *ImportFile) (*ImportSummary, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	ctx = logger.SetComponent(ctx, "import")
	summary := &ImportSummary{STIDs: make(map[string][]string)}
	groupIDs := make(map[string]uint, len(f.Groups))
	for _, g := range f.Groups {
		group := &domain.GroupProject{Code: g.Code, Name: g.Name}
		if err := i.projects.UpsertGroup(ctx, group); err != nil {
			return summary, fmt.Errorf("import group %s: %w", g.Code, err)
		}
		groupIDs[g.Code] = group.ID
		summary.Groups++
	}

	for _, p := range f.Projects {
		project := &domain.Project{
			Code:           p.Code,
			Name:           p.Name,
			Manager:        p.Manager,
			CountryCode:    strings.ToUpper(strings.TrimSpace(p.Country)),
			SurveyLiveLink: p.LiveLink,
			SurveyTestLink: p.TestLink,
			ProjectCPI:     p.ProjectCPI,
			SupplierCPI:    p.SupplierCPI,
			Status:         domain.ProjectStatus(p.Status),
		}
		if project.Status == "" {
			project.Status = domain.ProjectStatusLive
		}
		if id, ok := groupIDs[p.GroupCode]; ok {
			project.GroupProjectID = &id
		}
		if err := i.projects.Upsert(ctx, project); err != nil {
			return summary, fmt.Errorf("import project %s: %w", p.Code, err)
		}
		summary.Projects++

		for _, m := range p.Mappings {
			stid, err := i.importMapping(ctx, project, m)
			if err != nil {
				return summary, fmt.Errorf("import project %s mapping: %w", p.Code, err)
			}
			summary.STIDs[p.Code] = append(summary.STIDs[p.Code], stid)
			summary.Mappings++
		}
	}

	logger.With(logger.Fields{
		logger.FieldCount: summary.Projects,
	}).Info(ctx, "Configuration imported: groups=%d, mappings=%d", summary.Groups, summary.Mappings)
	return summary, nil
}

func (i *Importer) importMapping(ctx context.Context, project *domain.Project, m ImportMapping) (string, error) {
	mapping := &domain.SupplierMapping{
		STID:            m.STID,
		ProjectID:       project.ID,
		SupplierID:      m.SupplierID,
		IsTestLink:      m.TestLink,
		ClickQuota:      m.ClickQuota,
		CompleteQuota:   m.CompleteQuota,
		ProjectCPI:      project.ProjectCPI,
		SupplierCPI:     project.SupplierCPI,
		RedirectionType: m.RedirectionType,
		Active:          true,
	}
	if m.SupplierCPI != nil {
		mapping.SupplierCPI = *m.SupplierCPI
	}
	if mapping.RedirectionType == 0 {
		mapping.RedirectionType = 1
	}

	var err error
	if mapping.STID == "" {
		err = i.createWithFreshSTID(ctx, mapping)
	} else {
		err = i.mappings.Upsert(ctx, mapping)
	}
	if err != nil {
		return "", err
	}
	if m.Active != nil && !*m.Active {
		if err := i.mappings.Deactivate(ctx, mapping.STID); err != nil {
			return "", err
		}
	}
	return mapping.STID, nil
}

// createWithFreshSTID inserts mapping under a newly generated token, drawing
// again while the token is already held by another mapping.
func (i *Importer) createWithFreshSTID(ctx context.Context, mapping *domain.SupplierMapping) error {
	for attempt := 1; attempt <= stidAttempts; attempt++ {
		mapping.STID = i.newSTID()
		err := i.mappings.Create(ctx, mapping)
		if !errors.Is(err, domain.ErrSTIDTaken) {
			return err
		}
		logger.CtxWarn(ctx, "Generated stid %s already in use, regenerating (attempt %d)", mapping.STID, attempt)
	}
	return fmt.Errorf("%w: no free stid after %d attempts", domain.ErrConflict, stidAttempts)
}
