package services

import (
	"context"
	"errors"
	"time"

	"cinepos/internal/domain"
	applog "cinepos/internal/log"
	"cinepos/internal/metrics"
	"cinepos/internal/storage"
)

// SeatRepo is the seat repository as the seat service sees it.
type SeatRepo interface {
	ProductRepo
	FindAllSoldBy(ctx context.Context, date time.Time) ([]domain.Product, error)
	DefaultSeats() []domain.Product
}

type SeatService struct {
	*ProductService
	Repo SeatRepo
}

func NewSeatService(repo SeatRepo, cacheSize int, m *metrics.Metrics) *SeatService {
	return &SeatService{ProductService: NewProductService(domain.KindSeat, repo, cacheSize, m), Repo: repo}
}

// LoadCSV parses a seat file without touching the cache or the database.
func (s *SeatService) LoadCSV(path string) ([]domain.Product, error) {
	return storage.LoadSeatsCSV(path)
}

// ImportCSV saves every seat from path that is not stored yet and returns
// the ones it saved.
func (s *SeatService) ImportCSV(ctx context.Context, path string) ([]domain.Product, error) {
	seats, err := s.LoadCSV(path)
	if err != nil {
		return nil, err
	}
	var saved []domain.Product
	for _, seat := range seats {
		_, err := s.FindByID(ctx, seat.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return saved, err
		}
		p, err := s.Save(ctx, seat)
		if err != nil {
			return saved, err
		}
		saved = append(saved, p)
	}
	applog.Info("seats.import", map[string]any{"file": path, "read": len(seats), "saved": len(saved)})
	return saved, nil
}

// SetClass moves seat id to another class; its price follows.
func (s *SeatService) SetClass(ctx context.Context, id string, class domain.SeatClass) (domain.Product, error) {
	if !class.Valid() {
		return domain.Product{}, domain.NewProductError(domain.KindSeat, domain.ErrNotUpdated, id, "unknown class "+string(class), nil)
	}
	return s.modify(ctx, id, func(info *domain.SeatInfo) { info.Class = class })
}

// SetState marks seat id ACTIVE, MAINTENANCE or OUT_OF_SERVICE. Occupancy
// is left alone.
func (s *SeatService) SetState(ctx context.Context, id string, state domain.SeatState) (domain.Product, error) {
	if !state.Valid() {
		return domain.Product{}, domain.NewProductError(domain.KindSeat, domain.ErrNotUpdated, id, "unknown state "+string(state), nil)
	}
	return s.modify(ctx, id, func(info *domain.SeatInfo) { info.State = state })
}

func (s *SeatService) modify(ctx context.Context, id string, change func(*domain.SeatInfo)) (domain.Product, error) {
	seat, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	info := *seat.Seat
	change(&info)
	seat.Seat = &info
	updated, err := s.Update(ctx, id, seat)
	if err != nil {
		return domain.Product{}, err
	}
	applog.Audit("seat.update", map[string]any{"id": id, "class": string(info.Class), "state": string(info.State)})
	return updated, nil
}

func (s *SeatService) FindAllSoldBy(ctx context.Context, date time.Time) ([]domain.Product, error) {
	return s.Repo.FindAllSoldBy(ctx, date)
}

func (s *SeatService) DefaultSeats() []domain.Product { return s.Repo.DefaultSeats() }

// ExportJSON writes the seat map as it stood on date: the default chart with
// every seat sold by then marked SOLD. It returns the file written.
func (s *SeatService) ExportJSON(ctx context.Context, dir string, date time.Time) (string, error) {
	sold, err := s.FindAllSoldBy(ctx, date)
	if err != nil {
		return "", err
	}
	byID := make(map[string]domain.Product, len(sold))
	for _, p := range sold {
		byID[p.ID] = p.WithOccupancy(domain.OccupancySold)
	}
	chart := s.DefaultSeats()
	for i, p := range chart {
		if soldSeat, ok := byID[p.ID]; ok {
			chart[i] = soldSeat
		}
	}
	path := storage.SeatStateFile(dir, date)
	if err := storage.ExportSeatsJSON(path, chart); err != nil {
		return "", err
	}
	applog.Info("seats.export", map[string]any{"file": path, "sold": len(sold)})
	return path, nil
}
