package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/rpupo63/blog-backend/errs"
	"github.com/rpupo63/blog-backend/models"
)

func openSQLite(t *testing.T) Database {
	t.Helper()
	db, err := Open(map[string]string{
		"DB_TYPE":     "sqlite",
		"SQLITE_PATH": filepath.Join(t.TempDir(), "blog.db"),
	})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return New(db)
}

func newBlog(title string, published bool, createdAt time.Time, tags ...string) *models.Blog {
	b := &models.Blog{
		Title:        title,
		Slug:         models.Slugify(title),
		Excerpt:      "excerpt",
		Content:      "content",
		Thumbnail:    "https://cdn.example.com/a.png",
		Category:     "Tech",
		AuthorName:   "Bob",
		AuthorAvatar: "https://cdn.example.com/b.png",
		SEOKeywords:  datatypes.JSONSlice[string]{"go"},
		Published:    published,
		ReadTime:     models.DefaultReadTime,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
		Tags:         models.NewTags(uuid.Nil, tags),
	}
	if published {
		b.PublishedAt = &createdAt
	}
	return b
}

func TestOpen_RejectsUnknownType(t *testing.T) {
	_, err := Open(map[string]string{"DB_TYPE": "oracle"})
	assert.ErrorIs(t, err, errs.ErrConfigInvalid)
}

func TestPostgresDSN(t *testing.T) {
	assert.Equal(t, "postgres://u:p@h/db", postgresDSN(map[string]string{"DATABASE_URL": "postgres://u:p@h/db"}))

	dsn := postgresDSN(map[string]string{"DB_HOST": "db", "DB_USER": "blog", "DB_NAME": "blog", "DB_PASSWORD": "secret"})
	assert.Contains(t, dsn, "host=db")
	assert.Contains(t, dsn, "password=secret")
	assert.Contains(t, dsn, "port=5432")
}

func TestBlogRepo_InsertListAndOrdering(t *testing.T) {
	ctx := context.Background()
	store := openSQLite(t)
	repo := store.BlogRepo()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	older := newBlog("Older", true, base, "b", "a", "c")
	newer := newBlog("Newer", true, base.Add(time.Hour))
	draft := newBlog("Draft", false, base.Add(2*time.Hour))
	for _, b := range []*models.Blog{older, newer, draft} {
		require.NoError(t, repo.Insert(ctx, b))
		assert.NotEqual(t, uuid.Nil, b.ID)
	}

	public, err := repo.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, public, 2)
	assert.Equal(t, "Newer", public[0].Title)
	assert.Equal(t, []string{"b", "a", "c"}, public[1].TagValues())
	assert.Equal(t, datatypes.JSONSlice[string]{"go"}, public[1].SEOKeywords)

	all, err := repo.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Draft", all[0].Title)

	got, err := repo.Get(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "c"}, got.TagValues())

	_, err = repo.Get(ctx, uuid.New())
	assert.True(t, errs.IsNotFound(err))
}

func TestBlogRepo_PatchReplacesTagsAndRejectsUnknownID(t *testing.T) {
	ctx := context.Background()
	repo := openSQLite(t).BlogRepo()
	b := newBlog("Post", false, time.Now().UTC(), "old")
	require.NoError(t, repo.Insert(ctx, b))

	tags := []string{"new", "tags"}
	updated, err := repo.Patch(ctx, b.ID, map[string]any{"title": "Renamed", "updated_at": time.Now().UTC()}, &tags)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, []string{"new", "tags"}, updated.TagValues())

	updated, err = repo.Patch(ctx, b.ID, map[string]any{"featured": true}, nil)
	require.NoError(t, err)
	assert.True(t, updated.Featured)
	assert.Equal(t, []string{"new", "tags"}, updated.TagValues())

	_, err = repo.Patch(ctx, uuid.New(), map[string]any{"title": "x"}, nil)
	assert.True(t, errs.IsNotFound(err))
}

func TestBlogRepo_DeleteRemovesTags(t *testing.T) {
	ctx := context.Background()
	store := openSQLite(t)
	b := newBlog("Post", true, time.Now().UTC(), "x", "y")
	require.NoError(t, store.BlogRepo().Insert(ctx, b))

	require.NoError(t, store.BlogRepo().Delete(ctx, b.ID))

	tags, err := store.BlogTagRepo().FindByBlog(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, tags)
	assert.True(t, errs.IsNotFound(store.BlogRepo().Delete(ctx, b.ID)))
}

func TestBlogRepo_AddCounterClampsAtZero(t *testing.T) {
	ctx := context.Background()
	repo := openSQLite(t).BlogRepo()
	b := newBlog("Post", true, time.Now().UTC())
	require.NoError(t, repo.Insert(ctx, b))

	require.NoError(t, repo.AddCounter(ctx, b.ID, models.CounterLikes, -1))
	require.NoError(t, repo.AddCounter(ctx, b.ID, models.CounterViews, 1))
	require.NoError(t, repo.AddCounter(ctx, b.ID, models.CounterViews, 1))

	got, err := repo.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Zero(t, got.Likes)
	assert.Equal(t, int64(2), got.Views)

	assert.True(t, errs.IsNotFound(repo.AddCounter(ctx, uuid.New(), models.CounterViews, 1)))
	assert.True(t, errs.IsValidationError(repo.AddCounter(ctx, b.ID, models.Counter("title"), 1)))
}

func TestAdminRepo_ProvisionIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := openSQLite(t).AdminRepo()

	first, err := repo.Provision(ctx, models.Admin{UID: "u1", Email: "a@example.com", IsAdmin: true})
	require.NoError(t, err)
	assert.True(t, first.IsAdmin)

	second, err := repo.Provision(ctx, models.Admin{UID: "u1", Email: "changed@example.com", IsAdmin: true})
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", second.Email)

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = repo.FindByUID(ctx, "missing")
	assert.True(t, errs.IsNotFound(err))
}

func TestCredentialRepo_LowercasesAndRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	repo := openSQLite(t).CredentialRepo()

	require.NoError(t, repo.Create(ctx, &models.Credential{Email: " Ada@Example.com ", PasswordHash: "h"}))

	got, err := repo.FindByEmail(ctx, "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", got.Email)

	err = repo.Create(ctx, &models.Credential{Email: "ada@example.com", PasswordHash: "h"})
	assert.True(t, errs.IsAlreadyExists(err))
}

func TestErrorClassification(t *testing.T) {
	rls := &pgconn.PgError{Code: pgInsufficientPrivilege, Message: "new row violates row-level security policy"}

	assert.True(t, errs.IsPermissionDenied(readError("list", "blogs", rls)))
	assert.True(t, errs.IsNotFound(readError("find", "blog", gorm.ErrRecordNotFound)))

	writeErr := writeError("update", "blog", rls)
	assert.True(t, errs.IsMutationError(writeErr))
	assert.True(t, errs.IsPermissionDenied(writeErr))

	assert.True(t, errs.IsMutationError(writeError("create", "blog", errors.New("disk full"))))
	assert.True(t, isDuplicate(&pgconn.PgError{Code: "23505"}))
	assert.Nil(t, readError("find", "blog", nil))
}
