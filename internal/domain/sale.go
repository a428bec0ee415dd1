package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the storage format of purchase dates.
const DateLayout = "2006-01-02"

type SaleLine struct {
	ID          string
	ProductKind Kind
	ProductID   string
	Quantity    int
	UnitPrice   decimal.Decimal // price at the moment of sale
	CreatedAt   *time.Time
	UpdatedAt   *time.Time
	IsDeleted   bool
}

// Subtotal is unit price times quantity.
func (l SaleLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Sale struct {
	ID           string
	Customer     Customer
	Lines        []SaleLine
	PurchaseDate time.Time
	CreatedAt    *time.Time
	UpdatedAt    *time.Time
	IsDeleted    bool
}

// Total is recomputed from the lines on every call.
func (s Sale) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range s.Lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// SeatIDs lists the seats of the sale in line order.
func (s Sale) SeatIDs() []string {
	var ids []string
	for _, l := range s.Lines {
		if l.ProductKind == KindSeat {
			ids = append(ids, l.ProductID)
		}
	}
	return ids
}

// LineFor builds a sale line priced from the product's current price.
func LineFor(p Product, qty int) SaleLine {
	return SaleLine{ProductKind: p.Kind, ProductID: p.ID, Quantity: qty, UnitPrice: p.Price}
}
