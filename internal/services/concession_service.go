package services

import (
	"context"
	"errors"
	"fmt"

	"cinepos/internal/domain"
	applog "cinepos/internal/log"
	"cinepos/internal/metrics"
	"cinepos/internal/storage"
)

// ConcessionRepo is the concession repository as the concession service sees it.
type ConcessionRepo interface {
	ProductRepo
	FindByName(ctx context.Context, name string) (domain.Product, error)
	Stock(ctx context.Context, id string) (int, error)
}

type ConcessionService struct {
	*ProductService
	Repo ConcessionRepo
}

func NewConcessionService(repo ConcessionRepo, cacheSize int, m *metrics.Metrics) *ConcessionService {
	return &ConcessionService{ProductService: NewProductService(domain.KindConcession, repo, cacheSize, m), Repo: repo}
}

// Available reads current stock straight from the database.
func (s *ConcessionService) Available(ctx context.Context, id string) (int, error) {
	return s.Repo.Stock(ctx, id)
}

// SetStock replaces the stock of concession id.
func (s *ConcessionService) SetStock(ctx context.Context, id string, stock int) (domain.Product, error) {
	if stock < 0 {
		return domain.Product{}, domain.NewProductError(domain.KindConcession, domain.ErrNotUpdated, id, fmt.Sprintf("stock %d is negative", stock), nil)
	}
	p, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	updated, err := s.Update(ctx, id, p.WithStock(stock))
	if err != nil {
		return domain.Product{}, err
	}
	applog.Audit("stock.set", map[string]any{"id": id, "from": p.Concession.Stock, "stock": stock})
	return updated, nil
}

func (s *ConcessionService) FindByName(ctx context.Context, name string) (domain.Product, error) {
	return s.Repo.FindByName(ctx, name)
}

func (s *ConcessionService) LoadCSV(path string) ([]domain.Product, error) {
	return storage.LoadConcessionsCSV(path)
}

// ImportCSV saves concessions from path that are not known by id or by name.
func (s *ConcessionService) ImportCSV(ctx context.Context, path string) ([]domain.Product, error) {
	items, err := s.LoadCSV(path)
	if err != nil {
		return nil, err
	}
	var saved []domain.Product
	for _, it := range items {
		known, err := s.known(ctx, it)
		if err != nil {
			return saved, err
		}
		if known {
			continue
		}
		p, err := s.Save(ctx, it)
		if err != nil {
			return saved, err
		}
		saved = append(saved, p)
	}
	applog.Info("concessions.import", map[string]any{"file": path, "read": len(items), "saved": len(saved)})
	return saved, nil
}

func (s *ConcessionService) known(ctx context.Context, p domain.Product) (bool, error) {
	if p.ID != "" {
		_, err := s.FindByID(ctx, p.ID)
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return false, err
		}
	}
	_, err := s.FindByName(ctx, p.Name)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	return false, err
}
