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

type ConcessionRepo struct{ db *sqlx.DB }

func NewConcessionRepo(db *sqlx.DB) *ConcessionRepo { return &ConcessionRepo{db: db} }

type concessionRow struct {
	ID        string          `db:"id"`
	Name      string          `db:"name"`
	Price     decimal.Decimal `db:"price"`
	Stock     int             `db:"stock"`
	Category  string          `db:"category"`
	CreatedAt string          `db:"created_at"`
	UpdatedAt string          `db:"updated_at"`
	IsDeleted sql.NullBool    `db:"is_deleted"`
}

const concessionColumns = `
    id, name, price, stock, category,
    COALESCE(created_at,'') AS created_at, COALESCE(updated_at,'') AS updated_at, is_deleted`

func (r concessionRow) product() domain.Product {
	p := domain.NewConcession(r.ID, r.Name, r.Price, r.Stock, domain.Category(r.Category))
	p.CreatedAt = parseStamp(r.CreatedAt)
	p.UpdatedAt = parseStamp(r.UpdatedAt)
	if r.IsDeleted.Valid {
		p.IsDeleted = domain.Bool(r.IsDeleted.Bool)
	}
	return p
}

func concessionErr(reason error, id, msg string, err error) error {
	return domain.NewProductError(domain.KindConcession, reason, id, msg, err)
}

func (r *ConcessionRepo) FindAll(ctx context.Context) ([]domain.Product, error) {
	var rows []concessionRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT `+concessionColumns+` FROM concessions ORDER BY category, name`); err != nil {
		return nil, concessionErr(domain.ErrNotFetched, "*", "listing concessions", err)
	}
	out := make([]domain.Product, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.product())
	}
	return out, nil
}

func (r *ConcessionRepo) FindByID(ctx context.Context, id string) (domain.Product, error) {
	return r.findOne(ctx, id, `SELECT `+concessionColumns+` FROM concessions WHERE id = ?`, id)
}

// FindByName matches case-insensitively; CSV imports use it to skip known items.
func (r *ConcessionRepo) FindByName(ctx context.Context, name string) (domain.Product, error) {
	return r.findOne(ctx, name, `SELECT `+concessionColumns+` FROM concessions WHERE LOWER(name) = LOWER(?) LIMIT 1`, name)
}

func (r *ConcessionRepo) findOne(ctx context.Context, key, query string, arg any) (domain.Product, error) {
	var row concessionRow
	err := r.db.GetContext(ctx, &row, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, concessionErr(domain.ErrNotFound, key, "", nil)
	}
	if err != nil {
		return domain.Product{}, concessionErr(domain.ErrNotFetched, key, "", err)
	}
	return row.product(), nil
}

// Stock returns current stock for a concession.
func (r *ConcessionRepo) Stock(ctx context.Context, id string) (int, error) {
	var qty int
	err := r.db.GetContext(ctx, &qty, `SELECT stock FROM concessions WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, concessionErr(domain.ErrNotFound, id, "", nil)
	}
	if err != nil {
		return 0, concessionErr(domain.ErrNotFetched, id, "stock", err)
	}
	return qty, nil
}

// Save inserts a concession. An empty id is generated by the database.
func (r *ConcessionRepo) Save(ctx context.Context, p domain.Product) (domain.Product, error) {
	if !p.IsConcession() {
		return domain.Product{}, concessionErr(domain.ErrNotSaved, p.ID, "not a concession", nil)
	}
	if p.Concession.Stock < 0 {
		return domain.Product{}, concessionErr(domain.ErrNotSaved, p.ID, "negative stock", nil)
	}
	ts := stamp(time.Now())
	var id string
	err := r.db.GetContext(ctx, &id, `
		INSERT INTO concessions(id,name,price,stock,category,created_at,updated_at,is_deleted)
		VALUES(COALESCE(NULLIF(?,''), lower(hex(randomblob(8)))),?,?,?,?,?,?,0)
		RETURNING id
	`, p.ID, p.Name, p.Price.String(), p.Concession.Stock, string(p.Concession.Category), ts, ts)
	if err != nil {
		return domain.Product{}, concessionErr(domain.ErrNotSaved, p.ID, "", err)
	}
	return r.reload(ctx, id, domain.ErrNotSaved)
}

// Update overwrites the mutable fields of concession id. Stock may not go
// below zero; the table check rejects it too.
func (r *ConcessionRepo) Update(ctx context.Context, id string, p domain.Product) (domain.Product, error) {
	if !p.IsConcession() {
		return domain.Product{}, concessionErr(domain.ErrNotUpdated, id, "not a concession", nil)
	}
	if p.Concession.Stock < 0 {
		return domain.Product{}, concessionErr(domain.ErrNotUpdated, id, "negative stock", nil)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE concessions
		SET name = ?, price = ?, stock = ?, category = ?, updated_at = ?
		WHERE id = ?
	`, p.Name, p.Price.String(), p.Concession.Stock, string(p.Concession.Category), stamp(time.Now()), id)
	if err != nil {
		return domain.Product{}, concessionErr(domain.ErrNotUpdated, id, "", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Product{}, concessionErr(domain.ErrNotFound, id, "", nil)
	}
	return r.reload(ctx, id, domain.ErrNotUpdated)
}

func (r *ConcessionRepo) Delete(ctx context.Context, id string, logical bool) (domain.Product, error) {
	current, err := r.FindByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	if logical {
		if _, err := r.db.ExecContext(ctx, `UPDATE concessions SET is_deleted = 1, updated_at = ? WHERE id = ?`, stamp(time.Now()), id); err != nil {
			return domain.Product{}, concessionErr(domain.ErrNotDeleted, id, "", err)
		}
		return r.reload(ctx, id, domain.ErrNotDeleted)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM concessions WHERE id = ?`, id); err != nil {
		return domain.Product{}, concessionErr(domain.ErrNotDeleted, id, "", err)
	}
	return current, nil
}

func (r *ConcessionRepo) reload(ctx context.Context, id string, reason error) (domain.Product, error) {
	p, err := r.FindByID(ctx, id)
	if err != nil {
		return domain.Product{}, concessionErr(reason, id, "reading back", err)
	}
	return p, nil
}
