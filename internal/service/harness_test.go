package service

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/timmy/panelgate/internal/config"
	"github.com/timmy/panelgate/internal/logger"
	"github.com/timmy/panelgate/internal/repository"
	"github.com/timmy/panelgate/internal/repository/repotest"
	"gorm.io/gorm"
)

const testBaseURL = "https://panel.example.com"

// staticLocator resolves IPs from a fixed table.
type staticLocator map[string]string

func (l staticLocator) Country(_ context.Context, ip string) (string, error) {
	return l[ip], nil
}

// sequenceGenerator hands out identifiers in order, then falls back to UUIDs.
type sequenceGenerator struct {
	mu  sync.Mutex
	ids []string
}

func (g *sequenceGenerator) NewIdentifier() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.ids) == 0 {
		return UUIDGenerator{Prefix: "ADR-"}.NewIdentifier()
	}
	id := g.ids[0]
	g.ids = g.ids[1:]
	return id
}

type harness struct {
	db         *gorm.DB
	dispatches *repository.DispatchRepository
	mappings   *repository.MappingRepository
	projects   *repository.ProjectRepository
	dispatch   *DispatchService
	reconciler *CompletionReconciler
}

type harnessOptions struct {
	gen         IdentifierGenerator
	geo         GeoLocator
	policy      *ScreenPolicy
	screenStore func(ScreenStore) ScreenStore
}

func newHarness(t *testing.T, opts harnessOptions) *harness {
	t.Helper()

	db := repotest.OpenDB(t)
	h := &harness{
		db:         db,
		dispatches: repository.NewDispatchRepository(db, 3),
		mappings:   repository.NewMappingRepository(db),
		projects:   repository.NewProjectRepository(db),
	}

	gen := opts.gen
	if gen == nil {
		gen = UUIDGenerator{Prefix: "ADR-"}
	}
	geo := opts.geo
	if geo == nil {
		geo = staticLocator{}
	}
	policy := ScreenPolicy{IPScope: config.IPScopeProject, UnknownCountryIsMismatch: true}
	if opts.policy != nil {
		policy = *opts.policy
	}
	var store ScreenStore = h.dispatches
	if opts.screenStore != nil {
		store = opts.screenStore(store)
	}

	log := logger.New(&logger.Config{Level: "error", Output: io.Discard})
	h.dispatch = NewDispatchService(
		NewIdentityResolver(h.mappings, h.projects),
		NewScreen(store, policy),
		NewIssuer(gen, h.dispatches, 5, log),
		h.dispatches,
		h.mappings,
		geo,
		log,
		DispatchConfig{BaseURL: testBaseURL, GeoTimeout: time.Second},
	)
	h.reconciler = NewCompletionReconciler(h.dispatches, testBaseURL, log)
	return h
}
