package service

import (
	"context"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/panelgate/internal/domain"
	"github.com/timmy/panelgate/internal/repository/repotest"
)

const importDoc = `{
  "groups": [{"code": "G-7", "name": "Wave 7"}],
  "projects": [{
    "code": "P-701",
    "name": "Coffee habits",
    "group_code": "G-7",
    "country": "us",
    "survey_live_link": "https://s.example.com/live?rid=[identifier]",
    "survey_test_link": "https://s.example.com/test?rid=[identifier]",
    "project_cpi": 3.5,
    "supplier_cpi": 1.75,
    "mappings": [
      {"stid": "fixed001", "supplier_id": 3, "click_quota": 100},
      {"supplier_id": 4, "test_link": true},
      {"stid": "retired1", "supplier_id": 5, "click_quota": 10, "active": false}
    ]
  }]
}`

func TestImporter_Import(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	ctx := context.Background()

	f, err := ParseImportFile(strings.NewReader(importDoc))
	require.NoError(t, err)

	summary, err := NewImporter(h.projects, h.mappings).Import(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Groups)
	assert.Equal(t, 1, summary.Projects)
	assert.Equal(t, 3, summary.Mappings)

	stids := summary.STIDs["P-701"]
	require.Len(t, stids, 3)
	assert.Equal(t, "fixed001", stids[0])
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{8}$`), stids[1])

	m, err := h.mappings.GetBySTID(ctx, "fixed001")
	require.NoError(t, err)
	assert.Equal(t, 100, m.ClickQuota)
	assert.Equal(t, 1.75, m.SupplierCPI)

	p, err := h.projects.GetByID(ctx, m.ProjectID)
	require.NoError(t, err)
	assert.Equal(t, "US", p.CountryCode)
	require.NotNil(t, p.GroupProjectID)

	_, err = h.mappings.GetBySTID(ctx, "retired1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// re-import is idempotent for explicit tokens
	f2, err := ParseImportFile(strings.NewReader(importDoc))
	require.NoError(t, err)
	_, err = NewImporter(h.projects, h.mappings).Import(ctx, f2)
	require.NoError(t, err)
	again, err := h.mappings.GetBySTID(ctx, "fixed001")
	require.NoError(t, err)
	assert.Equal(t, m.ID, again.ID)
}

func TestImportFile_Validate(t *testing.T) {
	link := "https://s.example.com/?r=[identifier]"
	tests := []struct {
		name string
		file ImportFile
	}{
		{"project without code", ImportFile{Projects: []ImportProject{{Name: "x", LiveLink: link, TestLink: link}}}},
		{"unknown group", ImportFile{Projects: []ImportProject{{Code: "p", Name: "x", GroupCode: "nope", LiveLink: link, TestLink: link}}}},
		{"live link without placeholder", ImportFile{Projects: []ImportProject{{Code: "p", Name: "x", LiveLink: "https://s.example.com/", TestLink: link}}}},
		{"negative quota", ImportFile{Projects: []ImportProject{{Code: "p", Name: "x", LiveLink: link, TestLink: link, Mappings: []ImportMapping{{ClickQuota: -1}}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.file.Validate(), domain.ErrInvalidInput)
		})
	}
}

func TestParseImportFile_RejectsUnknownFields(t *testing.T) {
	_, err := ParseImportFile(strings.NewReader(`{"projects": [], "clients": []}`))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNewSTID(t *testing.T) {
	a, b := NewSTID(), NewSTID()
	assert.Len(t, a, 8)
	assert.NotEqual(t, a, b)
}

func otherProjectDoc(mapping string) string {
	return `{"projects": [{
    "code": "P-OTHER",
    "name": "Other study",
    "survey_live_link": "https://s.example.com/live?rid=[identifier]",
    "survey_test_link": "https://s.example.com/test?rid=[identifier]",
    "mappings": [` + mapping + `]
  }]}`
}

func TestImporter_RefusesTokenHeldByAnotherProject(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	seed := repotest.Seed(t, h.db, repotest.Fixture{ClickQuota: 5})
	ctx := context.Background()

	res, err := h.dispatch.Dispatch(ctx, DispatchRequest{STID: seed.Mapping.STID, UID: "r1", IP: "192.0.2.1"})
	require.NoError(t, err)
	require.True(t, res.Admitted())

	f, err := ParseImportFile(strings.NewReader(otherProjectDoc(
		`{"stid": "` + seed.Mapping.STID + `", "supplier_id": 99, "click_quota": 1}`)))
	require.NoError(t, err)
	_, err = NewImporter(h.projects, h.mappings).Import(ctx, f)
	assert.ErrorIs(t, err, domain.ErrConflict)

	stored := repotest.Reload(t, h.db, seed.Mapping)
	assert.Equal(t, seed.Project.ID, stored.ProjectID)
	assert.EqualValues(t, 7, stored.SupplierID)
	assert.Equal(t, 5, stored.ClickQuota)
	assert.Equal(t, 1, stored.ClicksUsed)
}

func TestImporter_RegeneratesTakenSTID(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	seed := repotest.Seed(t, h.db, repotest.Fixture{ClickQuota: 5})
	ctx := context.Background()

	draws := []string{seed.Mapping.STID, seed.Mapping.STID, "fresh001"}
	importer := NewImporter(h.projects, h.mappings)
	importer.newSTID = func() string {
		next := draws[0]
		draws = draws[1:]
		return next
	}

	f, err := ParseImportFile(strings.NewReader(otherProjectDoc(`{"supplier_id": 99, "click_quota": 1}`)))
	require.NoError(t, err)
	summary, err := importer.Import(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh001"}, summary.STIDs["P-OTHER"])

	stored := repotest.Reload(t, h.db, seed.Mapping)
	assert.Equal(t, seed.Project.ID, stored.ProjectID)
	assert.Equal(t, 5, stored.ClickQuota)

	created, err := h.mappings.GetBySTID(ctx, "fresh001")
	require.NoError(t, err)
	assert.EqualValues(t, 99, created.SupplierID)
	assert.NotEqual(t, seed.Project.ID, created.ProjectID)
}

func TestImporter_GivesUpWhenEveryDrawIsTaken(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	seed := repotest.Seed(t, h.db, repotest.Fixture{})

	importer := NewImporter(h.projects, h.mappings)
	draws := 0
	importer.newSTID = func() string {
		draws++
		return seed.Mapping.STID
	}

	f, err := ParseImportFile(strings.NewReader(otherProjectDoc(`{"supplier_id": 99}`)))
	require.NoError(t, err)
	_, err = importer.Import(context.Background(), f)
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, stidAttempts, draws)
}
