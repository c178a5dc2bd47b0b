package mysqlstore

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mysql"

	"github.com/catalog/catalog-go/internal/model"
	"github.com/catalog/catalog-go/internal/repository"
)

func setupMySQL(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()

	container, err := mysql.Run(ctx, "mysql:8.0",
		mysql.WithDatabase("catalog_test"),
		mysql.WithUsername("catalog"),
		mysql.WithPassword("catalog"),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	dsn, err := container.ConnectionString(ctx, "parseTime=true")
	require.NoError(t, err)

	db, err := Open(ctx, dsn, 10*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func TestIntegration_UserLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	users := setupMySQL(t).Users()

	ann := &model.User{Name: "Ann", Email: "ann@x.com", HashedPassword: "hash"}
	require.NoError(t, users.Insert(ctx, ann))
	require.NotEmpty(t, ann.ID)

	err := users.Insert(ctx, &model.User{Name: "Dup", Email: "ann@x.com", HashedPassword: "h"})
	assert.ErrorIs(t, err, repository.ErrDuplicateEmail)

	// Emails compare case-sensitively, as in the other backends.
	upper := &model.User{Name: "Upper", Email: "Ann@x.com", HashedPassword: "h"}
	require.NoError(t, users.Insert(ctx, upper))
	byEmail, err := users.FindByEmail(ctx, "Ann@x.com")
	require.NoError(t, err)
	assert.Equal(t, upper.ID, byEmail.ID)

	found, err := users.FindByEmail(ctx, "ann@x.com")
	require.NoError(t, err)
	assert.Equal(t, ann.ID, found.ID)

	updated, err := users.Update(ctx, ann.ID, model.UserUpdate{Name: "Annie", Email: "ann@x.com"})
	require.NoError(t, err)
	assert.Equal(t, "Annie", updated.Name)

	_, err = users.Update(ctx, uuid.NewString(), model.UserUpdate{Name: "Nobody", Email: "n@x.com"})
	assert.ErrorIs(t, err, repository.ErrUserNotFound)

	require.NoError(t, users.Delete(ctx, ann.ID))
	_, err = users.FindByID(ctx, ann.ID)
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestIntegration_ListWithCreatorDropsOrphans(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	db := setupMySQL(t)

	ann := &model.User{Name: "Ann", Email: "ann@x.com", HashedPassword: "hash"}
	require.NoError(t, db.Users().Insert(ctx, ann))

	desc := "steel"
	owned := &model.Product{Name: "Owned", Description: &desc, Price: 3, Category: "tools", CreatorID: ann.ID}
	orphan := &model.Product{Name: "Orphan", Price: 4, Category: "tools", CreatorID: uuid.NewString()}
	require.NoError(t, db.Products().Insert(ctx, owned))
	require.NoError(t, db.Products().Insert(ctx, orphan))

	all, err := db.Products().List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	listing, err := db.Products().ListWithCreator(ctx)
	require.NoError(t, err)
	require.Len(t, listing, 1)
	assert.Equal(t, "Owned", listing[0].Name)
	require.NotNil(t, listing[0].Description)
	assert.Equal(t, "steel", *listing[0].Description)
	assert.Equal(t, "ann@x.com", listing[0].Creator.Email)
}
