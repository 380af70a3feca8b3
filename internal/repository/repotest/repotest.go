// Package repotest opens throwaway SQLite databases and seeds dispatch fixtures for tests.
package repotest

import (
	"path/filepath"
	"testing"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/timmy/panelgate/internal/domain"
	"github.com/timmy/panelgate/internal/repository"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenDB returns a migrated database backed by a file in t.TempDir().
// The pool is limited to one connection so concurrent callers serialize on
// the store the way they would on a single SQLite writer.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "panelgate.db")
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := repository.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// Fixture describes the project and mapping created by Seed.
type Fixture struct {
	Country    string
	ClickQuota int
	// CompleteQuota of zero leaves completion tracking off.
	CompleteQuota int
	TestLink      bool
	GroupID       *uint
}

// Seeded holds the rows created by Seed.
type Seeded struct {
	Project *domain.Project
	Mapping *domain.SupplierMapping
}

// Seed creates one project and one active supplier mapping.
func Seed(t *testing.T, db *gorm.DB, f Fixture) Seeded {
	t.Helper()

	code := uuid.NewString()[:8]
	project := &domain.Project{
		GroupProjectID: f.GroupID,
		Code:           "P-" + code,
		Name:           "Project " + code,
		CountryCode:    f.Country,
		SurveyLiveLink: "https://survey.example.com/live?rid=" + domain.IdentifierPlaceholder,
		SurveyTestLink: "https://survey.example.com/test?rid=" + domain.IdentifierPlaceholder,
		ProjectCPI:     4.5,
		SupplierCPI:    2.25,
		Status:         domain.ProjectStatusLive,
	}
	if err := db.Create(project).Error; err != nil {
		t.Fatalf("create project: %v", err)
	}

	mapping := &domain.SupplierMapping{
		STID:          code,
		ProjectID:     project.ID,
		SupplierID:    7,
		IsTestLink:    f.TestLink,
		ClickQuota:    f.ClickQuota,
		CompleteQuota: f.CompleteQuota,
		ProjectCPI:    project.ProjectCPI,
		SupplierCPI:   project.SupplierCPI,
		Active:        true,
	}
	if err := db.Create(mapping).Error; err != nil {
		t.Fatalf("create mapping: %v", err)
	}

	return Seeded{Project: project, Mapping: mapping}
}

// Reload re-reads the mapping so tests can observe counter changes.
func Reload(t *testing.T, db *gorm.DB, m *domain.SupplierMapping) *domain.SupplierMapping {
	t.Helper()
	var fresh domain.SupplierMapping
	if err := db.First(&fresh, m.ID).Error; err != nil {
		t.Fatalf("reload mapping: %v", err)
	}
	return &fresh
}
