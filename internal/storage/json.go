package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"cinepos/internal/domain"
)

type seatJSON struct {
	ID        string           `json:"id"`
	Name      string           `json:"nombre,omitempty"`
	Kind      domain.Kind      `json:"tipoProducto"`
	Price     decimal.Decimal  `json:"precio"`
	Row       int              `json:"fila"`
	Column    int              `json:"columna"`
	Class     domain.SeatClass `json:"tipo"`
	State     domain.SeatState `json:"estado"`
	Occupancy domain.Occupancy `json:"ocupacion"`
	CreatedAt *time.Time       `json:"createdAt,omitempty"`
	UpdatedAt *time.Time       `json:"updatedAt,omitempty"`
	IsDeleted *bool            `json:"isDeleted,omitempty"`
}

// ExportSeatsJSON writes the seats as an indented JSON array, creating the
// parent directory when needed.
func ExportSeatsJSON(path string, seats []domain.Product) error {
	out := make([]seatJSON, 0, len(seats))
	for _, s := range seats {
		if !s.IsSeat() {
			continue
		}
		out = append(out, seatJSON{
			ID: s.ID, Name: s.Name, Kind: s.Kind, Price: s.Price,
			Row: s.Seat.Row, Column: s.Seat.Column, Class: s.Seat.Class,
			State: s.Seat.State, Occupancy: s.Seat.Occupancy,
			CreatedAt: s.CreatedAt, UpdatedAt: s.UpdatedAt, IsDeleted: s.IsDeleted,
		})
	}
	return writeJSON(path, out)
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	return nil
}

// SeatStateFile names the seat map exported for date.
func SeatStateFile(dir string, date time.Time) string {
	return filepath.Join(dir, "EstadoCine-"+date.Format(domain.DateLayout)+".json")
}

type customerJSON struct {
	ID             int64  `json:"id"`
	Name           string `json:"nombre"`
	Email          string `json:"email"`
	MembershipCode string `json:"numSocio"`
}

type saleLineJSON struct {
	ID        string          `json:"id"`
	Kind      domain.Kind     `json:"tipoProducto"`
	ProductID string          `json:"productoId"`
	Name      string          `json:"nombre,omitempty"`
	Quantity  int             `json:"cantidad"`
	UnitPrice decimal.Decimal `json:"precio"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	CreatedAt *time.Time      `json:"createdAt,omitempty"`
	UpdatedAt *time.Time      `json:"updatedAt,omitempty"`
}

type saleJSON struct {
	ID           string          `json:"id"`
	Customer     customerJSON    `json:"cliente"`
	Lines        []saleLineJSON  `json:"lineas"`
	Total        decimal.Decimal `json:"total"`
	PurchaseDate string          `json:"fechaCompra"`
	CreatedAt    *time.Time      `json:"createdAt,omitempty"`
	UpdatedAt    *time.Time      `json:"updatedAt,omitempty"`
	IsDeleted    bool            `json:"isDeleted"`
}

// ExportSaleJSON writes one sale with its customer and lines. names maps
// product ids to display names; seats fall back to their id.
func ExportSaleJSON(path string, s domain.Sale, names map[string]string) error {
	out := saleJSON{
		ID: s.ID,
		Customer: customerJSON{
			ID: s.Customer.ID, Name: s.Customer.Name,
			Email: s.Customer.Email, MembershipCode: s.Customer.MembershipCode,
		},
		Lines:        make([]saleLineJSON, 0, len(s.Lines)),
		Total:        s.Total(),
		PurchaseDate: s.PurchaseDate.Format(domain.DateLayout),
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
		IsDeleted:    s.IsDeleted,
	}
	for _, l := range s.Lines {
		name := names[l.ProductID]
		if name == "" && l.ProductKind == domain.KindSeat {
			name = l.ProductID
		}
		out.Lines = append(out.Lines, saleLineJSON{
			ID: l.ID, Kind: l.ProductKind, ProductID: l.ProductID, Name: name,
			Quantity: l.Quantity, UnitPrice: l.UnitPrice, Subtotal: l.Subtotal(),
			CreatedAt: l.CreatedAt, UpdatedAt: l.UpdatedAt,
		})
	}
	return writeJSON(path, out)
}

// SaleFile names the JSON export of sale s.
func SaleFile(dir string, s domain.Sale) string {
	return filepath.Join(dir, "ventas", "venta_"+s.ID+".json")
}
