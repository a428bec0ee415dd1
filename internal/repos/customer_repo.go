package repos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"cinepos/internal/domain"
)

type CustomerRepo struct{ DB *sqlx.DB }

func NewCustomerRepo(db *sqlx.DB) *CustomerRepo { return &CustomerRepo{DB: db} }

type customerRow struct {
	ID             int64  `db:"id"`
	Name           string `db:"name"`
	Email          string `db:"email"`
	MembershipCode string `db:"membership_code"`
	CreatedAt      string `db:"created_at"`
	UpdatedAt      string `db:"updated_at"`
	IsDeleted      bool   `db:"is_deleted"`
}

const customerColumns = `id,name,email,membership_code,COALESCE(created_at,'') AS created_at,COALESCE(updated_at,'') AS updated_at,is_deleted`

func (r customerRow) customer() domain.Customer {
	return domain.Customer{
		ID:             r.ID,
		Name:           r.Name,
		Email:          r.Email,
		MembershipCode: r.MembershipCode,
		CreatedAt:      parseStamp(r.CreatedAt),
		UpdatedAt:      parseStamp(r.UpdatedAt),
		IsDeleted:      r.IsDeleted,
	}
}

func (r *CustomerRepo) ByID(ctx context.Context, id int64) (domain.Customer, error) {
	return r.one(ctx, fmt.Sprint(id), `SELECT `+customerColumns+` FROM customers WHERE id=?`, id)
}

// ByCode looks a customer up by membership code, ignoring case.
func (r *CustomerRepo) ByCode(ctx context.Context, code string) (domain.Customer, error) {
	return r.one(ctx, code, `SELECT `+customerColumns+` FROM customers WHERE membership_code=?`, strings.ToUpper(code))
}

func (r *CustomerRepo) one(ctx context.Context, key, query string, arg any) (domain.Customer, error) {
	var row customerRow
	err := r.DB.GetContext(ctx, &row, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Customer{}, fmt.Errorf("customer %s: %w", key, domain.ErrCustomerNotFound)
	}
	if err != nil {
		return domain.Customer{}, fmt.Errorf("customer %s: %w", key, err)
	}
	return row.customer(), nil
}

func (r *CustomerRepo) All(ctx context.Context) ([]domain.Customer, error) {
	var rows []customerRow
	if err := r.DB.SelectContext(ctx, &rows, `SELECT `+customerColumns+` FROM customers WHERE is_deleted=0 ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	out := make([]domain.Customer, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.customer())
	}
	return out, nil
}

// CodeTaken reports whether a membership code is already assigned.
func (r *CustomerRepo) CodeTaken(ctx context.Context, code string) (bool, error) {
	var n int
	if err := r.DB.GetContext(ctx, &n, `SELECT COUNT(*) FROM customers WHERE membership_code=?`, strings.ToUpper(code)); err != nil {
		return false, fmt.Errorf("check code %s: %w", code, err)
	}
	return n > 0, nil
}

// Save inserts c and returns it with the generated id.
func (r *CustomerRepo) Save(ctx context.Context, c domain.Customer) (domain.Customer, error) {
	ts := stamp(time.Now())
	var id int64
	err := r.DB.GetContext(ctx, &id, `
		INSERT INTO customers(name,email,membership_code,created_at,updated_at,is_deleted)
		VALUES(?,?,?,?,?,0)
		RETURNING id
	`, c.Name, c.Email, strings.ToUpper(c.MembershipCode), ts, ts)
	if err != nil {
		return domain.Customer{}, fmt.Errorf("save customer %s: %w", c.MembershipCode, err)
	}
	return r.ByID(ctx, id)
}

func (r *CustomerRepo) Update(ctx context.Context, c domain.Customer) (domain.Customer, error) {
	res, err := r.DB.ExecContext(ctx, `UPDATE customers SET name=?,email=?,updated_at=? WHERE id=?`,
		c.Name, c.Email, stamp(time.Now()), c.ID)
	if err != nil {
		return domain.Customer{}, fmt.Errorf("update customer %d: %w", c.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Customer{}, fmt.Errorf("customer %d: %w", c.ID, domain.ErrCustomerNotFound)
	}
	return r.ByID(ctx, c.ID)
}

// Delete is always logical; sales keep pointing at the row.
func (r *CustomerRepo) Delete(ctx context.Context, id int64) (domain.Customer, error) {
	res, err := r.DB.ExecContext(ctx, `UPDATE customers SET is_deleted=1,updated_at=? WHERE id=?`, stamp(time.Now()), id)
	if err != nil {
		return domain.Customer{}, fmt.Errorf("delete customer %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Customer{}, fmt.Errorf("customer %d: %w", id, domain.ErrCustomerNotFound)
	}
	return r.ByID(ctx, id)
}
