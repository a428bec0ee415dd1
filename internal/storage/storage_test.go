package storage_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cinepos/internal/domain"
	"cinepos/internal/storage"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadSeatsCSV(t *testing.T) {
	path := writeFile(t, "butacas.csv", `id,precio,fila,columna,tipo,estado,ocupacion
A1,5.0,0,0,NORMAL,ACTIVA,LIBRE
b3, 8.0, 1, 2, VIP, MAINTENANCE, FREE
`)
	seats, err := storage.LoadSeatsCSV(path)
	require.NoError(t, err)
	require.Len(t, seats, 2)
	assert.Equal(t, "A1", seats[0].ID)
	assert.Equal(t, domain.SeatActive, seats[0].Seat.State)
	assert.Equal(t, "B3", seats[1].ID)
	assert.Equal(t, domain.SeatVIP, seats[1].Seat.Class)
	assert.Equal(t, domain.SeatMaintenance, seats[1].Seat.State)
	assert.True(t, seats[1].Price.Equal(decimal.NewFromInt(8)))
}

func TestLoadSeatsCSV_Errors(t *testing.T) {
	_, err := storage.LoadSeatsCSV(filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorIs(t, err, storage.ErrLoad)

	bad := writeFile(t, "bad.csv", "h1,h2,h3,h4,h5,h6,h7\nA1,5,0,0,GOLD,ACTIVE,FREE\n")
	_, err = storage.LoadSeatsCSV(bad)
	assert.ErrorIs(t, err, storage.ErrLoad)

	short := writeFile(t, "short.csv", "h1,h2,h3,h4,h5,h6,h7\nA1,5,0\n")
	_, err = storage.LoadSeatsCSV(short)
	assert.ErrorIs(t, err, storage.ErrLoad)
}

func TestLoadConcessionsCSV(t *testing.T) {
	path := writeFile(t, "complementos.csv", `id,nombre,precio,stock,categoria
palomitas,Palomitas,3.5,20,COMIDA
,Agua,1.5,30,DRINK
`)
	items, err := storage.LoadConcessionsCSV(path)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, domain.CategoryFood, items[0].Concession.Category)
	assert.Equal(t, 20, items[0].Concession.Stock)
	assert.True(t, items[0].Price.Equal(decimal.RequireFromString("3.5")))
	assert.Empty(t, items[1].ID)

	neg := writeFile(t, "neg.csv", "a,b,c,d,e\nx,X,1,-2,FOOD\n")
	_, err = storage.LoadConcessionsCSV(neg)
	assert.ErrorIs(t, err, storage.ErrLoad)
}

func TestExportSeatsJSON_OmitsNulls(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "seats.json")
	seat := domain.NewSeat("A1", 0, 0, domain.SeatNormal, domain.SeatActive, domain.OccupancySold)
	require.NoError(t, storage.ExportSeatsJSON(path, []domain.Product{seat}))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var got []map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	require.Len(t, got, 1)
	assert.Equal(t, "A1", got[0]["id"])
	assert.Equal(t, "SOLD", got[0]["ocupacion"])
	assert.Equal(t, "Butaca", got[0]["tipoProducto"])
	_, has := got[0]["createdAt"]
	assert.False(t, has)
	_, has = got[0]["isDeleted"]
	assert.False(t, has)
}

func TestSeatStateFile(t *testing.T) {
	got := storage.SeatStateFile("data", time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, filepath.Join("data", "EstadoCine-2026-03-10.json"), got)
}

func TestReceipts_PurchaseThenReturn(t *testing.T) {
	dir := t.TempDir()
	r, err := storage.NewReceipts(dir)
	require.NoError(t, err)

	sale := domain.Sale{
		ID:           "sale-1",
		Customer:     domain.Customer{ID: 1, Name: "Ana", Email: "ana@cine.test", MembershipCode: "ABC123"},
		PurchaseDate: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		Lines: []domain.SaleLine{
			{ProductKind: domain.KindSeat, ProductID: "A1", Quantity: 1, UnitPrice: decimal.NewFromInt(5)},
			{ProductKind: domain.KindSeat, ProductID: "A2", Quantity: 1, UnitPrice: decimal.NewFromInt(5)},
			{ProductKind: domain.KindConcession, ProductID: "palomitas", Quantity: 2, UnitPrice: decimal.RequireFromString("3.5")},
		},
	}

	path, err := r.WritePurchase(sale, map[string]string{"palomitas": "Palomitas"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "compras", "entrada_A1-A2_ABC123_10-03-2026.html"), path)
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	body := string(b)
	assert.True(t, strings.Contains(body, "Palomitas"), body)
	assert.True(t, strings.Contains(body, "17.00"), body)
	assert.True(t, strings.Contains(body, "ABC123"), body)

	ret, err := r.WriteReturn(sale, nil, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.FileExists(t, ret)
	assert.NoFileExists(t, path)
}

func TestExportSaleJSON(t *testing.T) {
	dir := t.TempDir()
	sale := domain.Sale{
		ID:           "sale-1",
		Customer:     domain.Customer{ID: 7, Name: "Ana", Email: "ana@cine.test", MembershipCode: "ABC123"},
		PurchaseDate: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		Lines: []domain.SaleLine{
			{ID: "l-1", ProductKind: domain.KindSeat, ProductID: "C4", Quantity: 1, UnitPrice: decimal.NewFromInt(8)},
			{ID: "l-2", ProductKind: domain.KindConcession, ProductID: "palomitas", Quantity: 2, UnitPrice: decimal.RequireFromString("3.5")},
		},
	}
	path := storage.SaleFile(dir, sale)
	assert.Equal(t, filepath.Join(dir, "ventas", "venta_sale-1.json"), path)
	require.NoError(t, storage.ExportSaleJSON(path, sale, map[string]string{"palomitas": "Palomitas"}))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var got struct {
		ID       string `json:"id"`
		Customer struct {
			MembershipCode string `json:"numSocio"`
		} `json:"cliente"`
		Lines []struct {
			Kind     string          `json:"tipoProducto"`
			Name     string          `json:"nombre"`
			Quantity int             `json:"cantidad"`
			Subtotal decimal.Decimal `json:"subtotal"`
		} `json:"lineas"`
		Total        decimal.Decimal `json:"total"`
		PurchaseDate string          `json:"fechaCompra"`
		IsDeleted    bool            `json:"isDeleted"`
	}
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "sale-1", got.ID)
	assert.Equal(t, "ABC123", got.Customer.MembershipCode)
	assert.Equal(t, "2026-03-10", got.PurchaseDate)
	assert.False(t, got.IsDeleted)
	assert.True(t, got.Total.Equal(decimal.NewFromInt(15)), got.Total.String())
	require.Len(t, got.Lines, 2)
	assert.Equal(t, "Butaca", got.Lines[0].Kind)
	assert.Equal(t, "C4", got.Lines[0].Name)
	assert.Equal(t, "Palomitas", got.Lines[1].Name)
	assert.Equal(t, 2, got.Lines[1].Quantity)
	assert.True(t, got.Lines[1].Subtotal.Equal(decimal.NewFromInt(7)))
}

func TestParseClassAndState(t *testing.T) {
	c, ok := storage.ParseClass(" vip ")
	assert.True(t, ok)
	assert.Equal(t, domain.SeatVIP, c)
	_, ok = storage.ParseClass("premium")
	assert.False(t, ok)

	st, ok := storage.ParseState("mantenimiento")
	assert.True(t, ok)
	assert.Equal(t, domain.SeatMaintenance, st)
	st, ok = storage.ParseState("OUT_OF_SERVICE")
	assert.True(t, ok)
	assert.Equal(t, domain.SeatOutOfService, st)
	_, ok = storage.ParseState("broken")
	assert.False(t, ok)
}
