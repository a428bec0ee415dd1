package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"cinepos/internal/domain"
	applog "cinepos/internal/log"
)

var (
	ErrSeatUnavailable = errors.New("seat not available")
	ErrEmptyPurchase   = errors.New("purchase is empty")
	ErrBadQuantity     = errors.New("quantity must be positive")
)

// PurchaseService builds sales one selection at a time, the way a till
// operator does: pick seats, add concessions, then confirm or cancel.
type PurchaseService struct {
	Seats       *SeatService
	Concessions *ConcessionService
	Customers   *CustomerService
	Sales       *SaleService
}

func NewPurchaseService(seats *SeatService, concessions *ConcessionService, customers *CustomerService, sales *SaleService) *PurchaseService {
	return &PurchaseService{Seats: seats, Concessions: concessions, Customers: customers, Sales: sales}
}

// Purchase is an open selection. Reserved seats stay RESERVED in the
// database until Confirm or Cancel.
type Purchase struct {
	svc   *PurchaseService
	lines []domain.SaleLine
}

func (s *PurchaseService) Begin() *Purchase { return &Purchase{svc: s} }

func (p *Purchase) Lines() []domain.SaleLine {
	out := make([]domain.SaleLine, len(p.lines))
	copy(out, p.lines)
	return out
}

func (p *Purchase) Total() decimal.Decimal { return domain.Sale{Lines: p.lines}.Total() }

// SelectSeat reserves an ACTIVE, FREE seat and adds it to the purchase.
func (p *Purchase) SelectSeat(ctx context.Context, id string) (domain.Product, error) {
	seat, err := p.svc.Seats.FindByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	if !seat.Selectable() || seat.Deleted() {
		return domain.Product{}, fmt.Errorf("%w: %s is %s/%s", ErrSeatUnavailable, id, seat.Seat.State, seat.Seat.Occupancy)
	}
	reserved, err := p.svc.Seats.Update(ctx, id, seat.WithOccupancy(domain.OccupancyReserved))
	if err != nil {
		return domain.Product{}, err
	}
	p.lines = append(p.lines, domain.LineFor(reserved, 1))
	applog.Debug("purchase.seat", map[string]any{"id": id})
	return reserved, nil
}

// AddConcession adds qty units, merging with an earlier line for the same
// item. Stock is checked here and again at confirmation; nothing is taken
// out of stock yet.
func (p *Purchase) AddConcession(ctx context.Context, id string, qty int) (domain.Product, error) {
	if qty <= 0 {
		return domain.Product{}, ErrBadQuantity
	}
	item, err := p.svc.Concessions.FindByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	stock, err := p.svc.Concessions.Available(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	idx := -1
	for i, l := range p.lines {
		if l.ProductKind == domain.KindConcession && l.ProductID == item.ID {
			idx = i
			break
		}
	}
	want := qty
	if idx >= 0 {
		want += p.lines[idx].Quantity
	}
	if want > stock {
		return domain.Product{}, domain.NewProductError(domain.KindConcession, domain.ErrNotUpdated, id,
			fmt.Sprintf("insufficient stock: have %d, requested %d", stock, want), nil)
	}
	if idx >= 0 {
		p.lines[idx].Quantity = want
	} else {
		p.lines = append(p.lines, domain.LineFor(item, qty))
	}
	return item, nil
}

// Cancel releases every reserved seat and empties the purchase.
func (p *Purchase) Cancel(ctx context.Context) error {
	err := p.releaseSeats(ctx)
	p.lines = nil
	applog.Info("purchase.cancel", nil)
	return err
}

// Confirm resolves the customer, creates the sale and marks its seats SOLD.
// A bad contact leaves the purchase open for another try; a rejected sale
// releases the seats and empties the purchase.
func (p *Purchase) Confirm(ctx context.Context, contact domain.Contact) (domain.Sale, error) {
	if len(p.lines) == 0 {
		return domain.Sale{}, ErrEmptyPurchase
	}
	customer, err := p.svc.Customers.FindOrCreate(ctx, contact)
	if err != nil {
		return domain.Sale{}, err
	}

	sale, err := p.svc.Sales.CreateSale(ctx, domain.Sale{Customer: customer, Lines: p.Lines()})
	if err != nil {
		if rerr := p.releaseSeats(ctx); rerr != nil {
			applog.Error("purchase.release", rerr, nil)
		}
		p.lines = nil
		return domain.Sale{}, err
	}
	p.lines = nil

	for _, id := range sale.SeatIDs() {
		seat, err := p.svc.Seats.Repo.FindByID(ctx, id)
		if err == nil {
			_, err = p.svc.Seats.Update(ctx, id, seat.WithOccupancy(domain.OccupancySold))
		}
		if err != nil {
			return sale, fmt.Errorf("sale %s stored but seat %s not marked sold: %w", sale.ID, id, err)
		}
	}
	if _, err := p.svc.Sales.WritePurchaseReceipt(ctx, sale); err != nil {
		return sale, err
	}
	return sale, nil
}

func (p *Purchase) releaseSeats(ctx context.Context) error {
	var errs []error
	for _, l := range p.lines {
		if l.ProductKind != domain.KindSeat {
			continue
		}
		errs = append(errs, p.svc.Sales.releaseSeat(ctx, l.ProductID))
	}
	return errors.Join(errs...)
}
