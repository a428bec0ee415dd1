package repos_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cinepos/internal/domain"
	"cinepos/internal/repos"
)

func testDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := repos.OpenDB(filepath.Join(t.TempDir(), "cinepos.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestDefaultSeats_Layout(t *testing.T) {
	seats := repos.DefaultSeats()
	require.Len(t, seats, 35)

	byID := map[string]domain.Product{}
	vip := 0
	for _, s := range seats {
		byID[s.ID] = s
		require.True(t, s.Selectable(), s.ID)
		if s.Seat.Class == domain.SeatVIP {
			vip++
		}
	}
	assert.Equal(t, 9, vip)
	assert.Equal(t, domain.SeatVIP, byID["C4"].Seat.Class)
	assert.True(t, byID["B3"].Price.Equal(decimal.NewFromInt(8)))
	assert.Equal(t, domain.SeatNormal, byID["A3"].Seat.Class)
	assert.Equal(t, domain.SeatNormal, byID["B2"].Seat.Class)
	assert.True(t, byID["A1"].Price.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, 4, byID["E7"].Seat.Row)
	assert.Equal(t, 6, byID["E7"].Seat.Column)
}

func TestSeatRepo_SeededAndFound(t *testing.T) {
	ctx := context.Background()
	r := repos.NewSeatRepo(testDB(t))

	all, err := r.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 35)

	a1, err := r.FindByID(ctx, "A1")
	require.NoError(t, err)
	assert.Equal(t, domain.KindSeat, a1.Kind)
	assert.NotNil(t, a1.CreatedAt)
	require.NotNil(t, a1.IsDeleted)
	assert.False(t, *a1.IsDeleted)

	_, err = r.FindByID(ctx, "Z9")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSeatRepo_UpdateKeepsCreatedAt(t *testing.T) {
	ctx := context.Background()
	r := repos.NewSeatRepo(testDB(t))

	before, err := r.FindByID(ctx, "A1")
	require.NoError(t, err)

	after, err := r.Update(ctx, "A1", before.WithOccupancy(domain.OccupancyReserved))
	require.NoError(t, err)
	assert.Equal(t, domain.OccupancyReserved, after.Seat.Occupancy)
	assert.Equal(t, before.CreatedAt, after.CreatedAt)
	require.NotNil(t, after.UpdatedAt)

	_, err = r.Update(ctx, "Z9", before)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSeatRepo_PriceFollowsClass(t *testing.T) {
	ctx := context.Background()
	r := repos.NewSeatRepo(testDB(t))

	s := domain.NewSeat("F1", 5, 0, domain.SeatVIP, domain.SeatActive, domain.OccupancyFree)
	s.Price = decimal.NewFromInt(100)
	saved, err := r.Save(ctx, s)
	require.NoError(t, err)
	assert.True(t, saved.Price.Equal(decimal.NewFromInt(8)), saved.Price.String())
}

func TestSeatRepo_Delete(t *testing.T) {
	ctx := context.Background()
	r := repos.NewSeatRepo(testDB(t))

	gone, err := r.Delete(ctx, "A1", true)
	require.NoError(t, err)
	assert.True(t, gone.Deleted())

	still, err := r.FindByID(ctx, "A1")
	require.NoError(t, err)
	assert.True(t, still.Deleted())

	removed, err := r.Delete(ctx, "A2", false)
	require.NoError(t, err)
	assert.Equal(t, "A2", removed.ID)
	assert.False(t, removed.Deleted())
	_, err = r.FindByID(ctx, "A2")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = r.Delete(ctx, "A2", false)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConcessionRepo_CRUD(t *testing.T) {
	ctx := context.Background()
	r := repos.NewConcessionRepo(testDB(t))

	saved, err := r.Save(ctx, domain.NewConcession("", "Nachos", decimal.RequireFromString("3.5"), 10, domain.CategoryFood))
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, 10, saved.Concession.Stock)

	byName, err := r.FindByName(ctx, "nachos")
	require.NoError(t, err)
	assert.Equal(t, saved.ID, byName.ID)

	_, err = r.Update(ctx, saved.ID, saved.WithStock(-1))
	assert.ErrorIs(t, err, domain.ErrNotUpdated)

	upd, err := r.Update(ctx, saved.ID, saved.WithStock(4))
	require.NoError(t, err)
	assert.Equal(t, 4, upd.Concession.Stock)

	qty, err := r.Stock(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, qty)

	_, err = r.Save(ctx, domain.NewConcession("cola", "Cola", decimal.NewFromInt(2), 3, domain.CategoryDrink))
	require.NoError(t, err)
	all, err := r.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = r.Save(ctx, domain.NewConcession("cola", "Cola again", decimal.NewFromInt(2), 3, domain.CategoryDrink))
	assert.ErrorIs(t, err, domain.ErrNotSaved)
}

func TestCustomerRepo_SaveAndLookup(t *testing.T) {
	ctx := context.Background()
	r := repos.NewCustomerRepo(testDB(t))

	c, err := r.Save(ctx, domain.Customer{Name: "Ana", Email: "ana@cine.test", MembershipCode: "abc123"})
	require.NoError(t, err)
	assert.NotZero(t, c.ID)
	assert.Equal(t, "ABC123", c.MembershipCode)

	byCode, err := r.ByCode(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, c.ID, byCode.ID)

	taken, err := r.CodeTaken(ctx, "ABC123")
	require.NoError(t, err)
	assert.True(t, taken)

	_, err = r.ByID(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrCustomerNotFound)

	del, err := r.Delete(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, del.IsDeleted)
}

func TestSaleRepo_CreateGetAndSoldSeats(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	seats := repos.NewSeatRepo(db)
	sales := repos.NewSaleRepo(db)
	cust, err := repos.NewCustomerRepo(db).Save(ctx, domain.Customer{Name: "Ana", Email: "ana@cine.test", MembershipCode: "ABC123"})
	require.NoError(t, err)

	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	sale := domain.Sale{
		ID:           uuid.NewString(),
		Customer:     cust,
		PurchaseDate: day,
		Lines: []domain.SaleLine{
			{ID: uuid.NewString(), ProductKind: domain.KindSeat, ProductID: "B3", Quantity: 1, UnitPrice: decimal.NewFromInt(8)},
			{ID: uuid.NewString(), ProductKind: domain.KindConcession, ProductID: "palomitas", Quantity: 2, UnitPrice: decimal.NewFromInt(3)},
		},
	}
	require.NoError(t, sales.Create(ctx, sale))

	got, err := sales.Get(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, cust.ID, got.Customer.ID)
	require.Len(t, got.Lines, 2)
	assert.Equal(t, "B3", got.Lines[0].ProductID)
	assert.True(t, got.Total().Equal(decimal.NewFromInt(14)))
	assert.True(t, day.Equal(got.PurchaseDate))

	sold, err := seats.FindAllSoldBy(ctx, day.AddDate(0, 0, -1))
	require.NoError(t, err)
	assert.Empty(t, sold)

	sold, err = seats.FindAllSoldBy(ctx, day)
	require.NoError(t, err)
	require.Len(t, sold, 1)
	assert.Equal(t, "B3", sold[0].ID)

	byDate, err := sales.ListByDate(ctx, day)
	require.NoError(t, err)
	assert.Len(t, byDate, 1)

	require.NoError(t, sales.MarkDeleted(ctx, sale.ID))
	sold, err = seats.FindAllSoldBy(ctx, day)
	require.NoError(t, err)
	assert.Empty(t, sold)

	got, err = sales.Get(ctx, sale.ID)
	require.NoError(t, err)
	assert.True(t, got.IsDeleted)

	_, err = sales.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrSaleNotFound)
	assert.ErrorIs(t, sales.MarkDeleted(ctx, "missing"), domain.ErrSaleNotFound)
}

func TestSaleRepo_CreateIsAtomic(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	sales := repos.NewSaleRepo(db)
	cust, err := repos.NewCustomerRepo(db).Save(ctx, domain.Customer{Name: "Ana", Email: "ana@cine.test", MembershipCode: "ABC123"})
	require.NoError(t, err)

	lineID := uuid.NewString()
	sale := domain.Sale{
		ID:           uuid.NewString(),
		Customer:     cust,
		PurchaseDate: time.Now(),
		Lines: []domain.SaleLine{
			{ID: lineID, ProductKind: domain.KindSeat, ProductID: "A1", Quantity: 1, UnitPrice: decimal.NewFromInt(5)},
			{ID: lineID, ProductKind: domain.KindSeat, ProductID: "A2", Quantity: 1, UnitPrice: decimal.NewFromInt(5)},
		},
	}
	err = sales.Create(ctx, sale)
	assert.ErrorIs(t, err, domain.ErrSaleNotPersisted)

	_, err = sales.Get(ctx, sale.ID)
	assert.ErrorIs(t, err, domain.ErrSaleNotFound)
}
