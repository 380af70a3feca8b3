package repository_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/panelgate/internal/domain"
	"github.com/timmy/panelgate/internal/repository"
	"github.com/timmy/panelgate/internal/repository/repotest"
)

func admitted(seed repotest.Seeded, hash, uid string, test bool) *domain.DispatchRecord {
	status := domain.StatusSentToLive
	if test {
		status = domain.StatusSentToTest
	}
	return &domain.DispatchRecord{
		HashIdentifier:     &hash,
		STID:               seed.Mapping.STID,
		SupplierIdentifier: uid,
		ProjectID:          seed.Project.ID,
		SupplierID:         seed.Mapping.SupplierID,
		IPAddress:          "203.0.113.9",
		DispatchStatus:     status,
		Status:             status,
		IsTestLink:         test,
		StartedAt:          time.Now(),
	}
}

func TestCreateAdmitted_ReservesQuota(t *testing.T) {
	db := repotest.OpenDB(t)
	seed := repotest.Seed(t, db, repotest.Fixture{ClickQuota: 1})
	repo := repository.NewDispatchRepository(db, 0)
	ctx := context.Background()

	require.NoError(t, repo.CreateAdmitted(ctx, admitted(seed, "ADR-1", "u1", false), seed.Mapping.ID, true))
	assert.Equal(t, 1, repotest.Reload(t, db, seed.Mapping).ClicksUsed)

	err := repo.CreateAdmitted(ctx, admitted(seed, "ADR-2", "u2", false), seed.Mapping.ID, true)
	require.ErrorIs(t, err, domain.ErrQuotaExhausted)
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = repo.GetByHash(ctx, "ADR-2")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 1, repotest.Reload(t, db, seed.Mapping).ClicksUsed)
}

func TestCreateAdmitted_CompleteQuotaBlocksClicks(t *testing.T) {
	db := repotest.OpenDB(t)
	seed := repotest.Seed(t, db, repotest.Fixture{ClickQuota: 10, CompleteQuota: 1})
	require.NoError(t, db.Model(seed.Mapping).Update("completes_used", 1).Error)
	repo := repository.NewDispatchRepository(db, 0)

	err := repo.CreateAdmitted(context.Background(), admitted(seed, "ADR-1", "u1", false), seed.Mapping.ID, true)
	assert.ErrorIs(t, err, domain.ErrQuotaExhausted)
}

func TestCreateAdmitted_DuplicateIdentifierRollsBackReservation(t *testing.T) {
	db := repotest.OpenDB(t)
	seed := repotest.Seed(t, db, repotest.Fixture{ClickQuota: 5})
	repo := repository.NewDispatchRepository(db, 0)
	ctx := context.Background()

	require.NoError(t, repo.CreateAdmitted(ctx, admitted(seed, "ADR-same", "u1", false), seed.Mapping.ID, true))
	err := repo.CreateAdmitted(ctx, admitted(seed, "ADR-same", "u2", false), seed.Mapping.ID, true)
	require.ErrorIs(t, err, domain.ErrIdentifierTaken)

	assert.Equal(t, 1, repotest.Reload(t, db, seed.Mapping).ClicksUsed)
}

func TestCreateAdmitted_TestDispatchSkipsQuota(t *testing.T) {
	db := repotest.OpenDB(t)
	seed := repotest.Seed(t, db, repotest.Fixture{ClickQuota: 0, TestLink: true})
	repo := repository.NewDispatchRepository(db, 0)

	require.NoError(t, repo.CreateAdmitted(context.Background(), admitted(seed, "ADR-t", "u1", true), seed.Mapping.ID, false))
	assert.Equal(t, 0, repotest.Reload(t, db, seed.Mapping).ClicksUsed)
}

func TestCreateAdmitted_ParallelReservationsNeverOversell(t *testing.T) {
	db := repotest.OpenDB(t)
	seed := repotest.Seed(t, db, repotest.Fixture{ClickQuota: 3})
	repo := repository.NewDispatchRepository(db, 2)
	ctx := context.Background()

	const n = 10
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			hash := "ADR-" + string(rune('a'+i))
			errs[i] = repo.CreateAdmitted(ctx, admitted(seed, hash, hash, false), seed.Mapping.ID, true)
		}(i)
	}
	wg.Wait()

	var ok, exhausted int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrQuotaExhausted):
			exhausted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 3, ok)
	assert.Equal(t, n-3, exhausted)
	assert.Equal(t, 3, repotest.Reload(t, db, seed.Mapping).ClicksUsed)
}

func TestFinalize_OnlyOnce(t *testing.T) {
	db := repotest.OpenDB(t)
	seed := repotest.Seed(t, db, repotest.Fixture{ClickQuota: 5, CompleteQuota: 5})
	repo := repository.NewDispatchRepository(db, 0)
	ctx := context.Background()

	require.NoError(t, repo.CreateAdmitted(ctx, admitted(seed, "ADR-f", "u1", false), seed.Mapping.ID, true))
	rec, err := repo.GetByHash(ctx, "ADR-f")
	require.NoError(t, err)

	end := rec.StartedAt.Add(9 * time.Minute)
	require.NoError(t, repo.Finalize(ctx, rec, domain.StatusComplete, end, 9))
	assert.Equal(t, domain.StatusComplete, rec.Status)
	assert.Equal(t, 1, repotest.Reload(t, db, seed.Mapping).CompletesUsed)

	stale, err := repo.GetByHash(ctx, "ADR-f")
	require.NoError(t, err)
	stale.Status = domain.StatusSentToLive
	stale.EndedAt = nil
	err = repo.Finalize(ctx, stale, domain.StatusTerminate, end.Add(time.Minute), 10)
	require.ErrorIs(t, err, domain.ErrAlreadyFinalized)

	stored, err := repo.GetByHash(ctx, "ADR-f")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusComplete, stored.Status)
	assert.Equal(t, 9, stored.LOI)
	assert.Equal(t, 1, repotest.Reload(t, db, seed.Mapping).CompletesUsed)
}

func TestFinalize_CompletesCounterStopsAtQuota(t *testing.T) {
	db := repotest.OpenDB(t)
	seed := repotest.Seed(t, db, repotest.Fixture{ClickQuota: 5, CompleteQuota: 1})
	repo := repository.NewDispatchRepository(db, 0)
	ctx := context.Background()

	// both respondents are in the survey before either completes
	first := admitted(seed, "ADR-c1", "u1", false)
	second := admitted(seed, "ADR-c2", "u2", false)
	require.NoError(t, repo.CreateAdmitted(ctx, first, seed.Mapping.ID, true))
	require.NoError(t, repo.CreateAdmitted(ctx, second, seed.Mapping.ID, true))

	require.NoError(t, repo.Finalize(ctx, first, domain.StatusComplete, first.StartedAt.Add(5*time.Minute), 5))
	require.NoError(t, repo.Finalize(ctx, second, domain.StatusComplete, second.StartedAt.Add(6*time.Minute), 6))

	stored := repotest.Reload(t, db, seed.Mapping)
	assert.Equal(t, 1, stored.CompletesUsed)
	assert.LessOrEqual(t, stored.CompletesUsed, stored.CompleteQuota)

	rec, err := repo.GetByHash(ctx, "ADR-c2")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusComplete, rec.Status)
}

func TestExistsChecks(t *testing.T) {
	db := repotest.OpenDB(t)
	seed := repotest.Seed(t, db, repotest.Fixture{ClickQuota: 5})
	other := repotest.Seed(t, db, repotest.Fixture{ClickQuota: 5})
	repo := repository.NewDispatchRepository(db, 0)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &domain.DispatchRecord{
		STID:               seed.Mapping.STID,
		SupplierIdentifier: "u1",
		ProjectID:          seed.Project.ID,
		SupplierID:         seed.Mapping.SupplierID,
		IPAddress:          "198.51.100.1",
		DispatchStatus:     domain.StatusGeoIPMismatch,
		Status:             domain.StatusGeoIPMismatch,
		StartedAt:          time.Now(),
	}))

	tests := []struct {
		name string
		run  func() (bool, error)
		want bool
	}{
		{"same user same stid", func() (bool, error) { return repo.ExistsBySupplierUser(ctx, seed.Mapping.STID, "u1") }, true},
		{"same user other stid", func() (bool, error) { return repo.ExistsBySupplierUser(ctx, other.Mapping.STID, "u1") }, false},
		{"ip in project", func() (bool, error) { return repo.ExistsByIP(ctx, "198.51.100.1", seed.Project.ID) }, true},
		{"ip other project", func() (bool, error) { return repo.ExistsByIP(ctx, "198.51.100.1", other.Project.ID) }, false},
		{"ip global", func() (bool, error) { return repo.ExistsByIP(ctx, "198.51.100.1", 0) }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.run()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReportQueries(t *testing.T) {
	db := repotest.OpenDB(t)
	seed := repotest.Seed(t, db, repotest.Fixture{ClickQuota: 10})
	repo := repository.NewDispatchRepository(db, 0)
	ctx := context.Background()

	for i, loi := range []int{12, 0, 5} {
		hash := "ADR-r" + string(rune('0'+i))
		rec := admitted(seed, hash, hash, false)
		require.NoError(t, repo.CreateAdmitted(ctx, rec, seed.Mapping.ID, true))
		require.NoError(t, repo.Finalize(ctx, rec, domain.StatusComplete, rec.StartedAt, loi))
	}
	require.NoError(t, repo.CreateAdmitted(ctx, admitted(seed, "ADR-t", "t", true), seed.Mapping.ID, false))

	counts, err := repo.StatusCounts(ctx, seed.Project.ID)
	require.NoError(t, err)
	got := map[domain.LinkStatus]int64{}
	for _, c := range counts {
		got[c.Status] = c.Count
	}
	assert.Equal(t, map[domain.LinkStatus]int64{domain.StatusComplete: 3, domain.StatusSentToTest: 1}, got)

	lois, err := repo.CompletedLOIs(ctx, seed.Project.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{5, 12}, lois)

	tl, err := repo.TestLinkCount(ctx, seed.Project.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, tl)

	var exported int
	require.NoError(t, repo.ExportBatches(ctx, seed.Project.ID, 2, func(batch []domain.DispatchRecord) error {
		exported += len(batch)
		return nil
	}))
	assert.Equal(t, 4, exported)
}
