package services_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"cinepos/internal/domain"
	"cinepos/internal/metrics"
	"cinepos/internal/repos"
	"cinepos/internal/services"
	"cinepos/internal/storage"
)

type env struct {
	db          *sqlx.DB
	dataDir     string
	seatRepo    *repos.SeatRepo
	concRepo    *repos.ConcessionRepo
	custRepo    *repos.CustomerRepo
	saleRepo    *repos.SaleRepo
	seats       *services.SeatService
	concessions *services.ConcessionService
	customers   *services.CustomerService
	sales       *services.SaleService
	purchases   *services.PurchaseService
	receipts    *storage.Receipts
	metrics     *metrics.Metrics
	customer    domain.Customer
}

// newEnv opens a fresh database with the default chart, one concession
// ("palomitas", 3.00, stock 20) and one customer (ABC123).
func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()
	db, err := repos.OpenDB(filepath.Join(dir, "cinepos.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	e := &env{
		db:       db,
		dataDir:  filepath.Join(dir, "data"),
		seatRepo: repos.NewSeatRepo(db),
		concRepo: repos.NewConcessionRepo(db),
		custRepo: repos.NewCustomerRepo(db),
		saleRepo: repos.NewSaleRepo(db),
		metrics:  metrics.New(),
	}
	e.receipts, err = storage.NewReceipts(e.dataDir)
	require.NoError(t, err)
	e.seats = services.NewSeatService(e.seatRepo, 5, e.metrics)
	e.concessions = services.NewConcessionService(e.concRepo, 5, e.metrics)
	e.customers, err = services.NewCustomerService(e.custRepo)
	require.NoError(t, err)
	e.sales = services.NewSaleService(e.custRepo, e.seats, e.concessions, e.saleRepo, e.receipts, e.metrics)
	e.purchases = services.NewPurchaseService(e.seats, e.concessions, e.customers, e.sales)

	_, err = e.concRepo.Save(ctx, domain.NewConcession("palomitas", "Palomitas", decimal.NewFromInt(3), 20, domain.CategoryFood))
	require.NoError(t, err)
	e.customer, err = e.custRepo.Save(ctx, domain.Customer{Name: "Ana", Email: "ana@cine.test", MembershipCode: "ABC123"})
	require.NoError(t, err)
	return e
}

func (e *env) stock(t *testing.T, id string) int {
	t.Helper()
	n, err := e.concRepo.Stock(context.Background(), id)
	require.NoError(t, err)
	return n
}

func (e *env) occupancy(t *testing.T, id string) domain.Occupancy {
	t.Helper()
	p, err := e.seatRepo.FindByID(context.Background(), id)
	require.NoError(t, err)
	return p.Seat.Occupancy
}

// countingRepo records how often the repository is read by id.
type countingRepo struct {
	services.ProductRepo
	finds int
}

func (r *countingRepo) FindByID(ctx context.Context, id string) (domain.Product, error) {
	r.finds++
	return r.ProductRepo.FindByID(ctx, id)
}
