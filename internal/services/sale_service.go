package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"cinepos/internal/domain"
	applog "cinepos/internal/log"
	"cinepos/internal/metrics"
	"cinepos/internal/storage"
)

// SaleStore is the sale repository as the coordinator uses it.
type SaleStore interface {
	Create(ctx context.Context, s domain.Sale) error
	MarkDeleted(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (domain.Sale, error)
	ListLatest(ctx context.Context) ([]domain.Sale, error)
	ListByDate(ctx context.Context, date time.Time) ([]domain.Sale, error)
}

// SaleService runs sale creation as customer -> lines -> stock -> persist.
// Each stage returns (value, error) and the first error stops the pipeline;
// the error is a *domain.SaleError naming the stage.
type SaleService struct {
	Customers   CustomerStore
	Seats       *SeatService
	Concessions *ConcessionService
	Sales       SaleStore
	Receipts    *storage.Receipts // nil disables receipt files
	Metrics     *metrics.Metrics

	Now func() time.Time
}

func NewSaleService(customers CustomerStore, seats *SeatService, concessions *ConcessionService, sales SaleStore, receipts *storage.Receipts, m *metrics.Metrics) *SaleService {
	return &SaleService{
		Customers:   customers,
		Seats:       seats,
		Concessions: concessions,
		Sales:       sales,
		Receipts:    receipts,
		Metrics:     m,
		Now:         time.Now,
	}
}

func invalid(stage domain.Stage, id, msg string, err error) error {
	return &domain.SaleError{Reason: domain.ErrSaleInvalid, Stage: stage, ID: id, Msg: msg, Err: err}
}

// ValidateCustomer checks that c is stored and returns the stored copy.
func (s *SaleService) ValidateCustomer(ctx context.Context, c domain.Customer) (domain.Customer, error) {
	stored, err := s.Customers.ByID(ctx, c.ID)
	if errors.Is(err, domain.ErrCustomerNotFound) {
		return domain.Customer{}, invalid(domain.StageCustomer, fmt.Sprint(c.ID), "customer does not exist", err)
	}
	if err != nil {
		return domain.Customer{}, &domain.SaleError{Reason: domain.ErrSaleStorage, Stage: domain.StageCustomer, ID: fmt.Sprint(c.ID), Msg: "looking up customer", Err: err}
	}
	if stored.IsDeleted {
		return domain.Customer{}, invalid(domain.StageCustomer, fmt.Sprint(c.ID), "customer is deleted", nil)
	}
	return stored, nil
}

// ValidateLines first checks that every product exists, then that every
// quantity is positive, that seats are sold one per line and that
// concessions have enough stock. Quantities of
// the same concession across lines are added up.
func (s *SaleService) ValidateLines(ctx context.Context, lines []domain.SaleLine) ([]domain.SaleLine, error) {
	if len(lines) == 0 {
		return nil, invalid(domain.StageLines, "", "sale has no lines", nil)
	}

	current := make(map[string]domain.Product, len(lines))
	for _, l := range lines {
		p, err := s.repoFor(l.ProductKind).FindByID(ctx, l.ProductID)
		if err != nil {
			return nil, invalid(domain.StageLines, l.ProductID, "product does not exist", err)
		}
		if p.Deleted() {
			return nil, invalid(domain.StageLines, l.ProductID, "product is deleted", nil)
		}
		current[lineKey(l)] = p
	}

	requested := make(map[string]int)
	for _, l := range lines {
		if l.Quantity <= 0 {
			return nil, invalid(domain.StageLines, l.ProductID, fmt.Sprintf("quantity %d must be positive", l.Quantity), nil)
		}
		if l.ProductKind == domain.KindSeat {
			if l.Quantity != 1 {
				return nil, invalid(domain.StageLines, l.ProductID, fmt.Sprintf("seat quantity %d must be 1", l.Quantity), nil)
			}
			continue
		}
		requested[l.ProductID] += l.Quantity
		stock := current[lineKey(l)].Concession.Stock
		if requested[l.ProductID] > stock {
			return nil, invalid(domain.StageLines, l.ProductID,
				fmt.Sprintf("insufficient stock: have %d, requested %d", stock, requested[l.ProductID]), nil)
		}
	}
	return lines, nil
}

// AdjustStock takes each concession line's quantity out of stock. On failure
// the decrements already applied are put back before returning.
func (s *SaleService) AdjustStock(ctx context.Context, lines []domain.SaleLine) ([]domain.SaleLine, error) {
	var applied []domain.SaleLine
	for _, l := range lines {
		if l.ProductKind != domain.KindConcession {
			continue
		}
		if err := s.moveStock(ctx, l.ProductID, -l.Quantity); err != nil {
			s.restoreStock(ctx, applied)
			return nil, &domain.SaleError{Reason: domain.ErrSaleNotPersisted, Stage: domain.StageStock, ID: l.ProductID, Msg: "stock update failed", Err: err}
		}
		applied = append(applied, l)
	}
	return lines, nil
}

// CreateSale validates, adjusts stock and stores sale with its lines. Ids,
// timestamps and a missing purchase date are filled in.
func (s *SaleService) CreateSale(ctx context.Context, sale domain.Sale) (domain.Sale, error) {
	created, err := s.createSale(ctx, sale)
	if err != nil {
		stage := domain.StageOf(err)
		s.Metrics.SaleFailed(string(stage))
		applog.Error("sale.create", err, map[string]any{"stage": string(stage), "customer": sale.Customer.MembershipCode})
		return domain.Sale{}, err
	}
	s.Metrics.SaleCreated(created.Total())
	applog.Audit("sale.create", map[string]any{
		"sale_id":  created.ID,
		"customer": created.Customer.MembershipCode,
		"lines":    len(created.Lines),
		"total":    created.Total().StringFixed(2),
	})
	return created, nil
}

func (s *SaleService) createSale(ctx context.Context, sale domain.Sale) (domain.Sale, error) {
	customer, err := s.ValidateCustomer(ctx, sale.Customer)
	if err != nil {
		return domain.Sale{}, err
	}
	sale.Customer = customer

	lines, err := s.ValidateLines(ctx, sale.Lines)
	if err != nil {
		return domain.Sale{}, err
	}
	lines, err = s.AdjustStock(ctx, lines)
	if err != nil {
		return domain.Sale{}, err
	}
	sale.Lines = lines

	persisted, err := s.persist(ctx, sale)
	if err != nil {
		s.restoreStock(ctx, lines)
		return domain.Sale{}, err
	}
	return persisted, nil
}

func (s *SaleService) persist(ctx context.Context, sale domain.Sale) (domain.Sale, error) {
	now := s.Now()
	if sale.ID == "" {
		sale.ID = uuid.NewString()
	}
	if sale.PurchaseDate.IsZero() {
		y, m, d := now.Date()
		sale.PurchaseDate = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
	sale.CreatedAt, sale.UpdatedAt = &now, &now
	sale.IsDeleted = false

	lines := make([]domain.SaleLine, len(sale.Lines))
	for i, l := range sale.Lines {
		if l.ID == "" {
			l.ID = uuid.NewString()
		}
		l.CreatedAt, l.UpdatedAt = &now, &now
		lines[i] = l
	}
	sale.Lines = lines

	if err := s.Sales.Create(ctx, sale); err != nil {
		var se *domain.SaleError
		if errors.As(err, &se) {
			return domain.Sale{}, err
		}
		return domain.Sale{}, &domain.SaleError{Reason: domain.ErrSaleNotPersisted, Stage: domain.StagePersist, ID: sale.ID, Err: err}
	}
	return sale, nil
}

// ReturnSale undoes a sale: seats go back to FREE, concession stock is
// restored and the sale is logically deleted. If any step fails the steps
// already applied are undone, so the sale stays live and stock is unchanged.
// A receipt failure is reported with the returned sale; the return itself
// stands.
func (s *SaleService) ReturnSale(ctx context.Context, id string) (domain.Sale, error) {
	sale, err := s.Sales.Get(ctx, id)
	if err != nil {
		return domain.Sale{}, err
	}
	if sale.IsDeleted {
		applog.Security("sale.return_repeat", map[string]any{"sale_id": id, "customer": sale.Customer.MembershipCode})
		return domain.Sale{}, invalid(domain.StageReturn, id, "sale already returned", nil)
	}

	var done []returnStep
	for _, l := range sale.Lines {
		step, err := s.returnLine(ctx, l)
		if err != nil {
			s.undoReturn(ctx, done)
			return domain.Sale{}, &domain.SaleError{Reason: domain.ErrSaleNotPersisted, Stage: domain.StageReturn, ID: id, Msg: "returning " + lineKey(l), Err: err}
		}
		done = append(done, step)
	}
	if err := s.Sales.MarkDeleted(ctx, id); err != nil {
		s.undoReturn(ctx, done)
		return domain.Sale{}, err
	}
	sale.IsDeleted = true
	s.Metrics.SaleReturned()
	applog.Audit("sale.return", map[string]any{"sale_id": id, "customer": sale.Customer.MembershipCode, "total": sale.Total().StringFixed(2)})

	if s.Receipts != nil {
		if _, err := s.Receipts.WriteReturn(sale, s.productNames(ctx, sale), s.Now()); err != nil {
			return sale, &domain.SaleError{Reason: domain.ErrSaleStorage, Stage: domain.StageExport, ID: id, Err: err}
		}
	}
	return sale, nil
}

// WritePurchaseReceipt renders the purchase receipt of a stored sale.
func (s *SaleService) WritePurchaseReceipt(ctx context.Context, sale domain.Sale) (string, error) {
	if s.Receipts == nil {
		return "", nil
	}
	path, err := s.Receipts.WritePurchase(sale, s.productNames(ctx, sale))
	if err != nil {
		return "", &domain.SaleError{Reason: domain.ErrSaleStorage, Stage: domain.StageExport, ID: sale.ID, Err: err}
	}
	return path, nil
}

// ExportJSON writes sale id, live or returned, as JSON under dir and returns
// the file written.
func (s *SaleService) ExportJSON(ctx context.Context, id, dir string) (string, error) {
	sale, err := s.Sales.Get(ctx, id)
	if err != nil {
		return "", err
	}
	path := storage.SaleFile(dir, sale)
	if err := storage.ExportSaleJSON(path, sale, s.productNames(ctx, sale)); err != nil {
		return "", &domain.SaleError{Reason: domain.ErrSaleStorage, Stage: domain.StageExport, ID: id, Err: err}
	}
	applog.Debug("sale.export", map[string]any{"sale_id": id, "file": path})
	return path, nil
}

func (s *SaleService) FindByID(ctx context.Context, id string) (domain.Sale, error) {
	return s.Sales.Get(ctx, id)
}

func (s *SaleService) FindAll(ctx context.Context) ([]domain.Sale, error) {
	return s.Sales.ListLatest(ctx)
}

// RevenueByDate sums the totals of live sales purchased on date.
func (s *SaleService) RevenueByDate(ctx context.Context, date time.Time) (decimal.Decimal, error) {
	sales, err := s.Sales.ListByDate(ctx, date)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, sale := range sales {
		total = total.Add(sale.Total())
	}
	return total, nil
}

// moveStock re-reads concession id and shifts its stock by delta through the
// concession service, keeping its cache current.
func (s *SaleService) moveStock(ctx context.Context, id string, delta int) error {
	p, err := s.Concessions.Repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	next := p.Concession.Stock + delta
	if next < 0 {
		return domain.NewProductError(domain.KindConcession, domain.ErrNotUpdated, id,
			fmt.Sprintf("stock %d cannot cover %d", p.Concession.Stock, -delta), nil)
	}
	if _, err := s.Concessions.Update(ctx, id, p.WithStock(next)); err != nil {
		return err
	}
	s.Metrics.StockMoved(delta)
	applog.Audit("stock.adjust", map[string]any{"id": id, "delta": delta, "stock": next})
	return nil
}

// restoreStock gives back the quantities of already-adjusted lines. Failures
// are logged; there is nothing left to fall back to.
func (s *SaleService) restoreStock(ctx context.Context, lines []domain.SaleLine) {
	for _, l := range lines {
		if l.ProductKind != domain.KindConcession {
			continue
		}
		if err := s.moveStock(ctx, l.ProductID, l.Quantity); err != nil {
			applog.Error("stock.restore", err, map[string]any{"id": l.ProductID, "qty": l.Quantity})
		}
	}
}

// returnStep is one line a return has processed, with the seat occupancy
// it replaced.
type returnStep struct {
	line domain.SaleLine
	prev domain.Occupancy
}

func (s *SaleService) returnLine(ctx context.Context, l domain.SaleLine) (returnStep, error) {
	step := returnStep{line: l}
	if l.ProductKind != domain.KindSeat {
		return step, s.moveStock(ctx, l.ProductID, l.Quantity)
	}
	seat, err := s.Seats.Repo.FindByID(ctx, l.ProductID)
	if err != nil {
		return step, err
	}
	step.prev = seat.Seat.Occupancy
	_, err = s.Seats.Update(ctx, l.ProductID, seat.WithOccupancy(domain.OccupancyFree))
	return step, err
}

// undoReturn puts back what a failed return already did: seats regain their
// previous occupancy and restocked units are taken out.
func (s *SaleService) undoReturn(ctx context.Context, steps []returnStep) {
	for _, st := range steps {
		var err error
		if st.line.ProductKind == domain.KindSeat {
			err = s.setOccupancy(ctx, st.line.ProductID, st.prev)
		} else {
			err = s.moveStock(ctx, st.line.ProductID, -st.line.Quantity)
		}
		if err != nil {
			applog.Error("sale.return_undo", err, map[string]any{"product": lineKey(st.line), "qty": st.line.Quantity})
		}
	}
}

func (s *SaleService) releaseSeat(ctx context.Context, id string) error {
	return s.setOccupancy(ctx, id, domain.OccupancyFree)
}

func (s *SaleService) setOccupancy(ctx context.Context, id string, occ domain.Occupancy) error {
	seat, err := s.Seats.Repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	_, err = s.Seats.Update(ctx, id, seat.WithOccupancy(occ))
	return err
}

func (s *SaleService) repoFor(k domain.Kind) ProductRepo {
	if k == domain.KindSeat {
		return s.Seats.Repo
	}
	return s.Concessions.Repo
}

func (s *SaleService) productNames(ctx context.Context, sale domain.Sale) map[string]string {
	names := make(map[string]string, len(sale.Lines))
	for _, l := range sale.Lines {
		if l.ProductKind != domain.KindConcession {
			continue
		}
		if p, err := s.Concessions.FindByID(ctx, l.ProductID); err == nil {
			names[l.ProductID] = p.Name
		}
	}
	return names
}

func lineKey(l domain.SaleLine) string { return string(l.ProductKind) + "/" + l.ProductID }
