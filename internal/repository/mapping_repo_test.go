package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/panelgate/internal/domain"
	"github.com/timmy/panelgate/internal/repository"
	"github.com/timmy/panelgate/internal/repository/repotest"
)

func TestMappingRepository_GetBySTID(t *testing.T) {
	db := repotest.OpenDB(t)
	seed := repotest.Seed(t, db, repotest.Fixture{ClickQuota: 1})
	repo := repository.NewMappingRepository(db)
	ctx := context.Background()

	got, err := repo.GetBySTID(ctx, seed.Mapping.STID)
	require.NoError(t, err)
	assert.Equal(t, seed.Project.ID, got.ProjectID)

	_, err = repo.GetBySTID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, repo.Deactivate(ctx, seed.Mapping.STID))
	_, err = repo.GetBySTID(ctx, seed.Mapping.STID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, repo.Deactivate(ctx, "missing"), domain.ErrNotFound)
}

func TestMappingRepository_UpsertKeepsCounters(t *testing.T) {
	db := repotest.OpenDB(t)
	seed := repotest.Seed(t, db, repotest.Fixture{ClickQuota: 5})
	require.NoError(t, db.Model(seed.Mapping).Update("clicks_used", 4).Error)
	repo := repository.NewMappingRepository(db)

	update := &domain.SupplierMapping{
		STID:        seed.Mapping.STID,
		ProjectID:   seed.Project.ID,
		SupplierID:  seed.Mapping.SupplierID,
		ClickQuota:  50,
		ProjectCPI:  6,
		SupplierCPI: 3,
		Active:      true,
	}
	require.NoError(t, repo.Upsert(context.Background(), update))

	assert.Equal(t, seed.Mapping.ID, update.ID)
	assert.Equal(t, 50, update.ClickQuota)
	assert.Equal(t, 4, update.ClicksUsed)
}

func TestMappingRepository_UpsertRefusesTokenOfAnotherMapping(t *testing.T) {
	db := repotest.OpenDB(t)
	held := repotest.Seed(t, db, repotest.Fixture{ClickQuota: 5})
	other := repotest.Seed(t, db, repotest.Fixture{})
	require.NoError(t, db.Model(held.Mapping).Update("clicks_used", 1).Error)
	repo := repository.NewMappingRepository(db)

	tests := []struct {
		name       string
		projectID  uint
		supplierID uint
	}{
		{"other project", other.Project.ID, held.Mapping.SupplierID},
		{"other supplier", held.Project.ID, 99},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.Upsert(context.Background(), &domain.SupplierMapping{
				STID:       held.Mapping.STID,
				ProjectID:  tt.projectID,
				SupplierID: tt.supplierID,
				ClickQuota: 1,
				Active:     true,
			})
			assert.ErrorIs(t, err, domain.ErrSTIDTaken)
			assert.ErrorIs(t, err, domain.ErrConflict)

			stored := repotest.Reload(t, db, held.Mapping)
			assert.Equal(t, held.Project.ID, stored.ProjectID)
			assert.Equal(t, held.Mapping.SupplierID, stored.SupplierID)
			assert.Equal(t, 5, stored.ClickQuota)
			assert.Equal(t, 1, stored.ClicksUsed)
		})
	}
}

func TestMappingRepository_CreateLeavesExistingToken(t *testing.T) {
	db := repotest.OpenDB(t)
	held := repotest.Seed(t, db, repotest.Fixture{ClickQuota: 5})
	other := repotest.Seed(t, db, repotest.Fixture{})
	repo := repository.NewMappingRepository(db)
	ctx := context.Background()

	clash := &domain.SupplierMapping{STID: held.Mapping.STID, ProjectID: other.Project.ID, SupplierID: 99, ClickQuota: 1, Active: true}
	assert.ErrorIs(t, repo.Create(ctx, clash), domain.ErrSTIDTaken)

	stored := repotest.Reload(t, db, held.Mapping)
	assert.Equal(t, held.Project.ID, stored.ProjectID)
	assert.Equal(t, 5, stored.ClickQuota)

	fresh := &domain.SupplierMapping{STID: "new00001", ProjectID: other.Project.ID, SupplierID: 99, Active: true}
	require.NoError(t, repo.Create(ctx, fresh))
	assert.NotZero(t, fresh.ID)

	got, err := repo.GetBySTID(ctx, "new00001")
	require.NoError(t, err)
	assert.Equal(t, other.Project.ID, got.ProjectID)
}

func TestProjectRepository_ListByGroup(t *testing.T) {
	db := repotest.OpenDB(t)
	projects := repository.NewProjectRepository(db)
	ctx := context.Background()

	group := &domain.GroupProject{Code: "G-1", Name: "Wave 1"}
	require.NoError(t, projects.UpsertGroup(ctx, group))
	require.NotZero(t, group.ID)

	a := repotest.Seed(t, db, repotest.Fixture{GroupID: &group.ID})
	b := repotest.Seed(t, db, repotest.Fixture{GroupID: &group.ID})
	repotest.Seed(t, db, repotest.Fixture{})

	children, err := projects.ListByGroup(ctx, group.ID)
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, a.Project.ID, children[0].ID)
	assert.Equal(t, b.Project.ID, children[1].ID)

	_, err = projects.GetByID(ctx, 9999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = projects.GetGroupByID(ctx, 9999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
