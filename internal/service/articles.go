package service

import (
	"context"
	"fmt"

	"github.com/iago/content-orchestrator-back/internal/cache"
	"github.com/iago/content-orchestrator-back/internal/domain"
	"github.com/iago/content-orchestrator-back/internal/repository"
)

type ArticlesService struct {
	repo  repository.ArticlesRepository
	cache *cache.Cache
}

// NewArticlesService shares listCache with the topics service so both lists
// of a brand are invalidated together.
func NewArticlesService(repo repository.ArticlesRepository, listCache *cache.Cache) *ArticlesService {
	if listCache == nil {
		listCache = cache.New(cache.Config{})
	}
	return &ArticlesService{repo: repo, cache: listCache}
}

func (s *ArticlesService) List(ctx context.Context, filter domain.ArticleListFilter) ([]domain.Article, error) {
	key := cache.Key(cache.BrandNamespace(articlesListKind, filter.BrandID), filter.UserID, filter.SessionID)
	return cache.Load(s.cache, key, func() ([]domain.Article, error) {
		articles, err := s.repo.ListArticles(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("list articles: %w", err)
		}
		return articles, nil
	})
}
