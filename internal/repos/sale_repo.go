package repos

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"cinepos/internal/domain"
)

type SaleRepo struct{ db *sqlx.DB }

func NewSaleRepo(db *sqlx.DB) *SaleRepo { return &SaleRepo{db: db} }

// ---------- Rows ----------
type saleRow struct {
	ID           string      `db:"id"`
	PurchaseDate string      `db:"purchase_date"`
	CreatedAt    string      `db:"created_at"`
	UpdatedAt    string      `db:"updated_at"`
	IsDeleted    bool        `db:"is_deleted"`
	Customer     customerRow `db:"customer"`
}

type saleLineRow struct {
	ID          string          `db:"id"`
	SaleID      string          `db:"sale_id"`
	ProductType string          `db:"product_type"`
	ProductID   string          `db:"product_id"`
	Quantity    int             `db:"quantity"`
	UnitPrice   decimal.Decimal `db:"unit_price"`
	CreatedAt   string          `db:"created_at"`
	UpdatedAt   string          `db:"updated_at"`
	IsDeleted   bool            `db:"is_deleted"`
}

const saleSelect = `
	SELECT v.id, v.purchase_date,
	       COALESCE(v.created_at,'') AS created_at, COALESCE(v.updated_at,'') AS updated_at, v.is_deleted,
	       c.id AS "customer.id", c.name AS "customer.name", c.email AS "customer.email",
	       c.membership_code AS "customer.membership_code",
	       COALESCE(c.created_at,'') AS "customer.created_at", COALESCE(c.updated_at,'') AS "customer.updated_at",
	       c.is_deleted AS "customer.is_deleted"
	FROM sales v
	JOIN customers c ON c.id = v.customer_id`

func (r saleRow) sale(lines []saleLineRow) domain.Sale {
	date, _ := time.Parse(domain.DateLayout, r.PurchaseDate)
	s := domain.Sale{
		ID:           r.ID,
		Customer:     r.Customer.customer(),
		PurchaseDate: date,
		CreatedAt:    parseStamp(r.CreatedAt),
		UpdatedAt:    parseStamp(r.UpdatedAt),
		IsDeleted:    r.IsDeleted,
	}
	for _, l := range lines {
		s.Lines = append(s.Lines, domain.SaleLine{
			ID:          l.ID,
			ProductKind: domain.Kind(l.ProductType),
			ProductID:   l.ProductID,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			CreatedAt:   parseStamp(l.CreatedAt),
			UpdatedAt:   parseStamp(l.UpdatedAt),
			IsDeleted:   l.IsDeleted,
		})
	}
	return s
}

func saleErr(reason error, stage domain.Stage, id string, err error) error {
	return &domain.SaleError{Reason: reason, Stage: stage, ID: id, Err: err}
}

// ---------- Writes ----------

// Create inserts the sale header and every line in a single transaction.
// Ids and timestamps must already be set on s.
func (r *SaleRepo) Create(ctx context.Context, s domain.Sale) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return saleErr(domain.ErrSaleNotPersisted, domain.StagePersist, s.ID, err)
	}
	defer func() { _ = tx.Rollback() }()

	created, updated := stampOrNow(s.CreatedAt), stampOrNow(s.UpdatedAt)
	if _, err := tx.ExecContext(ctx, `
	  INSERT INTO sales(id, customer_id, purchase_date, total, created_at, updated_at, is_deleted)
	  VALUES(?, ?, ?, ?, ?, ?, 0)
	`, s.ID, s.Customer.ID, s.PurchaseDate.Format(domain.DateLayout), s.Total().String(), created, updated); err != nil {
		return saleErr(domain.ErrSaleNotPersisted, domain.StagePersist, s.ID, err)
	}
	for _, l := range s.Lines {
		if _, err := tx.ExecContext(ctx, `
		  INSERT INTO sale_lines(id, sale_id, product_type, product_id, quantity, unit_price, created_at, updated_at, is_deleted)
		  VALUES(?, ?, ?, ?, ?, ?, ?, ?, 0)
		`, l.ID, s.ID, string(l.ProductKind), l.ProductID, l.Quantity, l.UnitPrice.String(), created, updated); err != nil {
			return saleErr(domain.ErrSaleNotPersisted, domain.StagePersist, s.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return saleErr(domain.ErrSaleNotPersisted, domain.StagePersist, s.ID, err)
	}
	return nil
}

// MarkDeleted logically deletes a sale and its lines.
func (r *SaleRepo) MarkDeleted(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return saleErr(domain.ErrSaleNotPersisted, domain.StageReturn, id, err)
	}
	defer func() { _ = tx.Rollback() }()

	ts := stamp(time.Now())
	res, err := tx.ExecContext(ctx, `UPDATE sales SET is_deleted = 1, updated_at = ? WHERE id = ?`, ts, id)
	if err != nil {
		return saleErr(domain.ErrSaleNotPersisted, domain.StageReturn, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return saleErr(domain.ErrSaleNotFound, domain.StageReturn, id, nil)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE sale_lines SET is_deleted = 1, updated_at = ? WHERE sale_id = ?`, ts, id); err != nil {
		return saleErr(domain.ErrSaleNotPersisted, domain.StageReturn, id, err)
	}
	if err := tx.Commit(); err != nil {
		return saleErr(domain.ErrSaleNotPersisted, domain.StageReturn, id, err)
	}
	return nil
}

// ---------- Reads ----------

func (r *SaleRepo) Get(ctx context.Context, id string) (domain.Sale, error) {
	var row saleRow
	err := r.db.GetContext(ctx, &row, saleSelect+` WHERE v.id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Sale{}, saleErr(domain.ErrSaleNotFound, domain.StageLookup, id, nil)
	}
	if err != nil {
		return domain.Sale{}, saleErr(domain.ErrSaleNotFound, domain.StageLookup, id, err)
	}
	lines, err := r.lines(ctx, []string{id})
	if err != nil {
		return domain.Sale{}, saleErr(domain.ErrSaleNotFound, domain.StageLookup, id, err)
	}
	return row.sale(lines[id]), nil
}

// ListLatest returns every sale, newest purchase first.
func (r *SaleRepo) ListLatest(ctx context.Context) ([]domain.Sale, error) {
	return r.list(ctx, saleSelect+` ORDER BY v.purchase_date DESC, datetime(v.created_at) DESC`)
}

// ListByDate returns live sales purchased on date.
func (r *SaleRepo) ListByDate(ctx context.Context, date time.Time) ([]domain.Sale, error) {
	return r.list(ctx, saleSelect+` WHERE v.purchase_date = ? AND v.is_deleted = 0 ORDER BY datetime(v.created_at)`,
		date.Format(domain.DateLayout))
}

func (r *SaleRepo) list(ctx context.Context, query string, args ...any) ([]domain.Sale, error) {
	var rows []saleRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, saleErr(domain.ErrSaleNotFound, domain.StageLookup, "*", err)
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	lines, err := r.lines(ctx, ids)
	if err != nil {
		return nil, saleErr(domain.ErrSaleNotFound, domain.StageLookup, "*", err)
	}
	out := make([]domain.Sale, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.sale(lines[row.ID]))
	}
	return out, nil
}

// lines loads the lines of the given sales, grouped by sale id.
func (r *SaleRepo) lines(ctx context.Context, saleIDs []string) (map[string][]saleLineRow, error) {
	out := make(map[string][]saleLineRow, len(saleIDs))
	if len(saleIDs) == 0 {
		return out, nil
	}
	query, args, err := sqlx.In(`
		SELECT id, sale_id, product_type, product_id, quantity, unit_price,
		       COALESCE(created_at,'') AS created_at, COALESCE(updated_at,'') AS updated_at, is_deleted
		FROM sale_lines
		WHERE sale_id IN (?)
		ORDER BY rowid
	`, saleIDs)
	if err != nil {
		return nil, err
	}
	var rows []saleLineRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	for _, l := range rows {
		out[l.SaleID] = append(out[l.SaleID], l)
	}
	return out, nil
}

func stampOrNow(t *time.Time) string {
	if t == nil {
		return stamp(time.Now())
	}
	return stamp(*t)
}
