package categories

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	categories []*Category
	nextID     int64
}

func (f *fakeRepo) List(_ context.Context, userID int64) ([]*Category, error) {
	var out []*Category
	for _, c := range f.categories {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeRepo) GetByID(_ context.Context, userID, id int64) (*Category, error) {
	for _, c := range f.categories {
		if c.ID == id && c.UserID == userID {
			found := *c
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeRepo) Create(_ context.Context, category *Category) error {
	f.nextID++
	category.ID = f.nextID
	stored := *category
	f.categories = append(f.categories, &stored)
	return nil
}

func (f *fakeRepo) Update(_ context.Context, category *Category) error {
	for i, c := range f.categories {
		if c.ID == category.ID && c.UserID == category.UserID {
			stored := *category
			f.categories[i] = &stored
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakeRepo) Delete(_ context.Context, userID, id int64) error {
	for i, c := range f.categories {
		if c.ID == id && c.UserID == userID {
			f.categories = append(f.categories[:i], f.categories[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakeRepo) ExistsByName(_ context.Context, userID int64, name string) (bool, error) {
	for _, c := range f.categories {
		if c.UserID == userID && c.Name == name {
			return true, nil
		}
	}
	return false, nil
}

type fakeCache struct {
	store   map[string][]byte
	deleted []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{store: map[string][]byte{}}
}

// Get always misses so the service is exercised against the repository.
func (f *fakeCache) Get(_ context.Context, _ string, _ any) (bool, error) {
	return false, nil
}

func (f *fakeCache) Set(_ context.Context, key string, _ any, _ time.Duration) error {
	f.store[key] = []byte("x")
	return nil
}

func (f *fakeCache) DeletePatterns(_ context.Context, patterns ...string) {
	f.deleted = append(f.deleted, patterns...)
}

func newTestService(repo *fakeRepo) (*Service, *fakeCache) {
	c := newFakeCache()
	return NewService(repo, c, slog.New(slog.NewTextHandler(io.Discard, nil))), c
}

func TestCreateCategory(t *testing.T) {
	repo := &fakeRepo{}
	svc, fc := newTestService(repo)

	category, err := svc.Create(context.Background(), 7, "Groceries")
	require.NoError(t, err)
	assert.Equal(t, int64(1), category.ID)
	assert.Contains(t, fc.deleted, "user:7:categories")

	t.Run("duplicate name conflicts", func(t *testing.T) {
		_, err := svc.Create(context.Background(), 7, "Groceries")
		assert.ErrorIs(t, err, ErrCategoryExists)
	})

	t.Run("same name for another user is fine", func(t *testing.T) {
		_, err := svc.Create(context.Background(), 8, "Groceries")
		assert.NoError(t, err)
	})
}

func TestRenameCategory(t *testing.T) {
	repo := &fakeRepo{}
	svc, _ := newTestService(repo)
	_, err := svc.Create(context.Background(), 7, "Groceries")
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), 7, "Transport")
	require.NoError(t, err)

	t.Run("rename", func(t *testing.T) {
		category, err := svc.Rename(context.Background(), 7, 1, "Food")
		require.NoError(t, err)
		assert.Equal(t, "Food", category.Name)
	})

	t.Run("rename onto an existing name conflicts", func(t *testing.T) {
		_, err := svc.Rename(context.Background(), 7, 1, "Transport")
		assert.ErrorIs(t, err, ErrCategoryExists)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := svc.Rename(context.Background(), 7, 99, "Anything")
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})
}

func TestSuggestCategories(t *testing.T) {
	repo := &fakeRepo{}
	svc, _ := newTestService(repo)
	for _, name := range []string{"Groceries", "Transport", "Entertainment"} {
		_, err := svc.Create(context.Background(), 7, name)
		require.NoError(t, err)
	}

	t.Run("fuzzy match is case insensitive", func(t *testing.T) {
		suggestions, err := svc.Suggest(context.Background(), 7, "groc")
		require.NoError(t, err)
		require.NotEmpty(t, suggestions)
		assert.Equal(t, "Groceries", suggestions[0].Name)
	})

	t.Run("no match yields empty list", func(t *testing.T) {
		suggestions, err := svc.Suggest(context.Background(), 7, "zzz")
		require.NoError(t, err)
		assert.Empty(t, suggestions)
	})
}
