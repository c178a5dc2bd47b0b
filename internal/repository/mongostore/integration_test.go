package mongostore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/catalog/catalog-go/internal/model"
	"github.com/catalog/catalog-go/internal/repository"
)

func setupMongo(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()

	container, err := mongodb.Run(ctx, "mongo:7")
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := Connect(ctx, uri, "catalog_test", 10*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(context.Background()) })

	return db
}

func TestIntegration_UserLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	users := setupMongo(t).Users()

	ann := &model.User{Name: "Ann", Email: "ann@x.com", HashedPassword: "hash"}
	require.NoError(t, users.Insert(ctx, ann))
	require.NotEmpty(t, ann.ID)

	err := users.Insert(ctx, &model.User{Name: "Dup", Email: "ann@x.com"})
	assert.ErrorIs(t, err, repository.ErrDuplicateEmail)

	found, err := users.FindByEmail(ctx, "ann@x.com")
	require.NoError(t, err)
	assert.Equal(t, ann.ID, found.ID)
	assert.Equal(t, "hash", found.HashedPassword)

	updated, err := users.Update(ctx, ann.ID, model.UserUpdate{Name: "Annie", Email: "ann@x.com"})
	require.NoError(t, err)
	assert.Equal(t, "Annie", updated.Name)

	require.NoError(t, users.Delete(ctx, ann.ID))
	_, err = users.FindByID(ctx, ann.ID)
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestIntegration_ListWithCreatorDropsOrphans(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	db := setupMongo(t)

	ann := &model.User{Name: "Ann", Email: "ann@x.com", HashedPassword: "hash"}
	require.NoError(t, db.Users().Insert(ctx, ann))

	owned := &model.Product{Name: "Owned", Price: 3, Category: "tools", CreatorID: ann.ID}
	orphan := &model.Product{Name: "Orphan", Price: 4, Category: "tools", CreatorID: bson.NewObjectID().Hex()}
	require.NoError(t, db.Products().Insert(ctx, owned))
	require.NoError(t, db.Products().Insert(ctx, orphan))

	all, err := db.Products().List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	listing, err := db.Products().ListWithCreator(ctx)
	require.NoError(t, err)
	require.Len(t, listing, 1)
	assert.Equal(t, "Owned", listing[0].Name)
	assert.Equal(t, "ann@x.com", listing[0].Creator.Email)
}
