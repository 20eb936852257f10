package categories

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/finmind-app/finmind-api/pkg/cache"
)

// ErrCategoryExists is returned when the user already has a category with
// the requested name.
var ErrCategoryExists = errors.New("category already exists")

const listCacheTTL = 5 * time.Minute

// ListCache caches the per-user category list. *cache.Cache satisfies it.
type ListCache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	DeletePatterns(ctx context.Context, patterns ...string)
}

// Service implements category operations
type Service struct {
	repo   Repository
	cache  ListCache
	logger *slog.Logger
}

// NewService creates a new category service
func NewService(repo Repository, listCache ListCache, logger *slog.Logger) *Service {
	return &Service{repo: repo, cache: listCache, logger: logger}
}

// List returns the user's categories ordered by name
func (s *Service) List(ctx context.Context, userID int64) ([]*Category, error) {
	key := cache.CategoriesKey(userID)
	var cached []*Category
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}

	categories, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("listed categories",
		slog.Int64("user_id", userID),
		slog.Int("count", len(categories)),
	)

	if err := s.cache.Set(ctx, key, categories, listCacheTTL); err != nil {
		s.logger.Warn("failed to cache categories", slog.Any("error", err))
	}
	return categories, nil
}

// Create adds a category, enforcing per-user name uniqueness
func (s *Service) Create(ctx context.Context, userID int64, name string) (*Category, error) {
	exists, err := s.repo.ExistsByName(ctx, userID, name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrCategoryExists
	}

	category := &Category{UserID: userID, Name: name}
	if err := s.repo.Create(ctx, category); err != nil {
		return nil, err
	}

	s.logger.Info("created category",
		slog.Int64("id", category.ID),
		slog.Int64("user_id", userID),
	)
	s.cache.DeletePatterns(ctx, cache.CategoriesKey(userID))
	return category, nil
}

// Rename changes a category's name
func (s *Service) Rename(ctx context.Context, userID, id int64, name string) (*Category, error) {
	category, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if category.Name != name {
		exists, err := s.repo.ExistsByName(ctx, userID, name)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, ErrCategoryExists
		}
	}

	category.Name = name
	if err := s.repo.Update(ctx, category); err != nil {
		return nil, err
	}
	s.cache.DeletePatterns(ctx, cache.CategoriesKey(userID))
	return category, nil
}

// Delete removes a category owned by the user
func (s *Service) Delete(ctx context.Context, userID, id int64) error {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return err
	}
	s.cache.DeletePatterns(ctx, cache.CategoriesKey(userID))
	return nil
}

// Suggestion is a fuzzy name match ranked by edit distance.
type Suggestion struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Distance int    `json:"distance"`
}

// Suggest fuzzy-matches the query against the user's category names,
// best matches first.
func (s *Service) Suggest(ctx context.Context, userID int64, query string) ([]Suggestion, error) {
	categories, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(categories))
	byName := make(map[string]*Category, len(categories))
	for i, c := range categories {
		names[i] = c.Name
		byName[c.Name] = c
	}

	ranks := fuzzy.RankFindNormalizedFold(query, names)
	sort.Sort(ranks)

	suggestions := make([]Suggestion, 0, len(ranks))
	for _, rank := range ranks {
		c := byName[rank.Target]
		suggestions = append(suggestions, Suggestion{
			ID:       c.ID,
			Name:     c.Name,
			Distance: rank.Distance,
		})
	}
	return suggestions, nil
}
