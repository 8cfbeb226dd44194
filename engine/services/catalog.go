package services

import (
	"context"

	"github.com/sahilm/fuzzy"

	"github.com/carrersbcn/giuros-engine/engine/cache"
	"github.com/carrersbcn/giuros-engine/engine/database/models"
	"github.com/carrersbcn/giuros-engine/engine/database/repositories"
)

const shopCatalogCacheKey = "shop:catalog"

// shopSearchItems implements fuzzy.Source over the shop catalog
type shopSearchItems []*models.ShopItem

func (items shopSearchItems) Len() int            { return len(items) }
func (items shopSearchItems) String(i int) string { return items[i].Name }

// CatalogService serves the shop catalog through the TTL cache and resolves
// loosely-typed item queries (admin tooling, support commands) with fuzzy
// matching against item names.
type CatalogService struct {
	shopRepo repositories.ShopRepository
	catalog  *cache.TTLCache
}

func NewCatalogService(shopRepo repositories.ShopRepository, catalog *cache.TTLCache) *CatalogService {
	return &CatalogService{shopRepo: shopRepo, catalog: catalog}
}

// ActiveItems returns the purchasable catalog, cached for the catalog TTL.
func (s *CatalogService) ActiveItems(ctx context.Context) ([]*models.ShopItem, error) {
	if cached, ok := s.catalog.Get(shopCatalogCacheKey); ok {
		return cached.([]*models.ShopItem), nil
	}

	items, err := s.shopRepo.GetActiveItems(ctx)
	if err != nil {
		return nil, err
	}

	s.catalog.Set(shopCatalogCacheKey, items)
	return items, nil
}

// Search fuzzy-matches query against item names, best matches first.
func (s *CatalogService) Search(ctx context.Context, query string, limit int) ([]*models.ShopItem, error) {
	items, err := s.ActiveItems(ctx)
	if err != nil {
		return nil, err
	}

	matches := fuzzy.FindFrom(query, shopSearchItems(items))
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	results := make([]*models.ShopItem, len(matches))
	for i, match := range matches {
		results[i] = items[match.Index]
	}
	return results, nil
}

// Invalidate drops the cached catalog after content tooling writes.
func (s *CatalogService) Invalidate() {
	s.catalog.Invalidate(shopCatalogCacheKey)
}
