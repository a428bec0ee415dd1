package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind tags the concrete shape of a Product. The values are what gets stored
// in sale_lines.product_type.
type Kind string

const (
	KindSeat       Kind = "Butaca"
	KindConcession Kind = "Complemento"
)

type SeatClass string

const (
	SeatNormal SeatClass = "NORMAL"
	SeatVIP    SeatClass = "VIP"
)

// Price is fixed per class.
func (c SeatClass) Price() decimal.Decimal {
	if c == SeatVIP {
		return decimal.NewFromInt(8)
	}
	return decimal.NewFromInt(5)
}

func (c SeatClass) Valid() bool { return c == SeatNormal || c == SeatVIP }

type SeatState string

const (
	SeatActive       SeatState = "ACTIVE"
	SeatMaintenance  SeatState = "MAINTENANCE"
	SeatOutOfService SeatState = "OUT_OF_SERVICE"
)

func (s SeatState) Valid() bool {
	switch s {
	case SeatActive, SeatMaintenance, SeatOutOfService:
		return true
	}
	return false
}

type Occupancy string

const (
	OccupancyFree     Occupancy = "FREE"
	OccupancyReserved Occupancy = "RESERVED"
	OccupancySold     Occupancy = "SOLD"
)

func (o Occupancy) Valid() bool {
	switch o {
	case OccupancyFree, OccupancyReserved, OccupancySold:
		return true
	}
	return false
}

type Category string

const (
	CategoryFood  Category = "FOOD"
	CategoryDrink Category = "DRINK"
	CategoryOther Category = "OTHER"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryFood, CategoryDrink, CategoryOther:
		return true
	}
	return false
}

// SeatInfo holds the seat-only fields of a Product.
type SeatInfo struct {
	Row       int       `json:"fila"`
	Column    int       `json:"columna"`
	Class     SeatClass `json:"tipo"`
	State     SeatState `json:"estado"`
	Occupancy Occupancy `json:"ocupacion"`
}

// ConcessionInfo holds the concession-only fields of a Product.
type ConcessionInfo struct {
	Stock    int      `json:"stock"`
	Category Category `json:"categoria"`
}

// Product is either a seat or a concession. Exactly one of Seat and
// Concession is set, matching Kind.
type Product struct {
	Kind      Kind            `json:"tipo"`
	ID        string          `json:"id"`
	Name      string          `json:"nombre"`
	Price     decimal.Decimal `json:"precio"`
	CreatedAt *time.Time      `json:"createdAt,omitempty"`
	UpdatedAt *time.Time      `json:"updatedAt,omitempty"`
	IsDeleted *bool           `json:"isDeleted,omitempty"`

	Seat       *SeatInfo       `json:"butaca,omitempty"`
	Concession *ConcessionInfo `json:"complemento,omitempty"`
}

// NewSeat builds a seat whose name is its id and whose price follows its class.
func NewSeat(id string, row, column int, class SeatClass, state SeatState, occ Occupancy) Product {
	return Product{
		Kind:  KindSeat,
		ID:    id,
		Name:  id,
		Price: class.Price(),
		Seat:  &SeatInfo{Row: row, Column: column, Class: class, State: state, Occupancy: occ},
	}
}

func NewConcession(id, name string, price decimal.Decimal, stock int, cat Category) Product {
	return Product{
		Kind:       KindConcession,
		ID:         id,
		Name:       name,
		Price:      price,
		Concession: &ConcessionInfo{Stock: stock, Category: cat},
	}
}

func (p Product) IsSeat() bool       { return p.Kind == KindSeat && p.Seat != nil }
func (p Product) IsConcession() bool { return p.Kind == KindConcession && p.Concession != nil }

// Deleted reports the logical-delete flag, treating unknown as false.
func (p Product) Deleted() bool { return p.IsDeleted != nil && *p.IsDeleted }

// Selectable reports whether a seat can be put into a purchase.
func (p Product) Selectable() bool {
	return p.IsSeat() && p.Seat.State == SeatActive && p.Seat.Occupancy == OccupancyFree
}

// WithOccupancy returns a copy of a seat with a new occupancy.
func (p Product) WithOccupancy(o Occupancy) Product {
	s := *p.Seat
	s.Occupancy = o
	p.Seat = &s
	return p
}

// WithStock returns a copy of a concession with a new stock value.
func (p Product) WithStock(stock int) Product {
	c := *p.Concession
	c.Stock = stock
	p.Concession = &c
	return p
}

func Bool(b bool) *bool { return &b }
