package services

import (
	"context"
	"errors"

	"cinepos/internal/cache"
	"cinepos/internal/domain"
	applog "cinepos/internal/log"
	"cinepos/internal/metrics"
)

// ProductRepo is the CRUD surface shared by the seat and concession repos.
type ProductRepo interface {
	FindAll(ctx context.Context) ([]domain.Product, error)
	FindByID(ctx context.Context, id string) (domain.Product, error)
	Save(ctx context.Context, p domain.Product) (domain.Product, error)
	Update(ctx context.Context, id string, p domain.Product) (domain.Product, error)
	Delete(ctx context.Context, id string, logical bool) (domain.Product, error)
}

// ProductService keeps a FIFO cache in front of a product repository. Point
// reads fill the cache, writes refresh it and deletes evict from it, so after
// any call through the service the cache never disagrees with the repository.
type ProductService struct {
	kind    domain.Kind
	repo    ProductRepo
	cache   *cache.Cache[string, domain.Product]
	metrics *metrics.Metrics
}

func NewProductService(kind domain.Kind, repo ProductRepo, cacheSize int, m *metrics.Metrics) *ProductService {
	c := cache.New[string, domain.Product](cacheSize)
	c.OnEvict = func(id string, _ domain.Product) {
		m.CacheEvict(string(kind))
		applog.Debug("cache.evict", map[string]any{"kind": string(kind), "id": id})
	}
	return &ProductService{kind: kind, repo: repo, cache: c, metrics: m}
}

// FindAll always reads the repository.
func (s *ProductService) FindAll(ctx context.Context) ([]domain.Product, error) {
	return s.repo.FindAll(ctx)
}

// FindByID answers from the cache when it can and fills it otherwise.
func (s *ProductService) FindByID(ctx context.Context, id string) (domain.Product, error) {
	if p, ok := s.cache.Get(id); ok {
		s.metrics.CacheHit(string(s.kind))
		applog.Debug("cache.hit", map[string]any{"kind": string(s.kind), "id": id})
		return p, nil
	}
	s.metrics.CacheMiss(string(s.kind))
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Product{}, domain.NewProductError(s.kind, domain.ErrNotFound, id, "", nil)
		}
		return domain.Product{}, err
	}
	s.cache.Put(id, p)
	return p, nil
}

// Cached peeks at the cache without touching the repository.
func (s *ProductService) Cached(id string) (domain.Product, bool) { return s.cache.Get(id) }

// Save persists p and caches what the repository returned.
func (s *ProductService) Save(ctx context.Context, p domain.Product) (domain.Product, error) {
	saved, err := s.repo.Save(ctx, p)
	if err != nil {
		return domain.Product{}, err
	}
	s.cache.Put(saved.ID, saved)
	return saved, nil
}

// Update goes to the repository even when id is cached.
func (s *ProductService) Update(ctx context.Context, id string, p domain.Product) (domain.Product, error) {
	updated, err := s.repo.Update(ctx, id, p)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Product{}, domain.NewProductError(s.kind, domain.ErrNotFound, id, "update", nil)
		}
		return domain.Product{}, err
	}
	s.cache.Put(id, updated)
	return updated, nil
}

func (s *ProductService) Delete(ctx context.Context, id string, logical bool) (domain.Product, error) {
	deleted, err := s.repo.Delete(ctx, id, logical)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Product{}, domain.NewProductError(s.kind, domain.ErrNotDeleted, id, "no such product", nil)
		}
		return domain.Product{}, err
	}
	s.cache.Remove(id)
	return deleted, nil
}
