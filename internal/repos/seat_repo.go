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

type SeatRepo struct{ db *sqlx.DB }

func NewSeatRepo(db *sqlx.DB) *SeatRepo { return &SeatRepo{db: db} }

type seatRow struct {
	ID        string          `db:"id"`
	Name      string          `db:"name"`
	Price     decimal.Decimal `db:"price"`
	Row       int             `db:"row_idx"`
	Column    int             `db:"col_idx"`
	Class     string          `db:"class"`
	State     string          `db:"state"`
	Occupancy string          `db:"occupancy"`
	CreatedAt string          `db:"created_at"`
	UpdatedAt string          `db:"updated_at"`
	IsDeleted sql.NullBool    `db:"is_deleted"`
}

const seatColumns = `
    s.id, s.name, s.price, s.row_idx, s.col_idx, s.class, s.state, s.occupancy,
    COALESCE(s.created_at,'') AS created_at, COALESCE(s.updated_at,'') AS updated_at, s.is_deleted`

func (r seatRow) product() domain.Product {
	p := domain.NewSeat(r.ID, r.Row, r.Column, domain.SeatClass(r.Class), domain.SeatState(r.State), domain.Occupancy(r.Occupancy))
	p.Name = r.Name
	p.Price = r.Price
	p.CreatedAt = parseStamp(r.CreatedAt)
	p.UpdatedAt = parseStamp(r.UpdatedAt)
	if r.IsDeleted.Valid {
		p.IsDeleted = domain.Bool(r.IsDeleted.Bool)
	}
	return p
}

func seatErr(reason error, id, msg string, err error) error {
	return domain.NewProductError(domain.KindSeat, reason, id, msg, err)
}

func (r *SeatRepo) FindAll(ctx context.Context) ([]domain.Product, error) {
	var rows []seatRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT `+seatColumns+` FROM seats s ORDER BY s.row_idx, s.col_idx`); err != nil {
		return nil, seatErr(domain.ErrNotFetched, "*", "listing seats", err)
	}
	out := make([]domain.Product, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.product())
	}
	return out, nil
}

func (r *SeatRepo) FindByID(ctx context.Context, id string) (domain.Product, error) {
	var row seatRow
	err := r.db.GetContext(ctx, &row, `SELECT `+seatColumns+` FROM seats s WHERE s.id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, seatErr(domain.ErrNotFound, id, "", nil)
	}
	if err != nil {
		return domain.Product{}, seatErr(domain.ErrNotFetched, id, "", err)
	}
	return row.product(), nil
}

// Save inserts a seat. Its price is taken from its class.
func (r *SeatRepo) Save(ctx context.Context, p domain.Product) (domain.Product, error) {
	if !p.IsSeat() {
		return domain.Product{}, seatErr(domain.ErrNotSaved, p.ID, "not a seat", nil)
	}
	now := time.Now()
	name := p.Name
	if name == "" {
		name = p.ID
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO seats(id,name,price,row_idx,col_idx,class,state,occupancy,created_at,updated_at,is_deleted)
		VALUES(?,?,?,?,?,?,?,?,?,?,0)
	`, p.ID, name, p.Seat.Class.Price().String(), p.Seat.Row, p.Seat.Column, string(p.Seat.Class), string(p.Seat.State), string(p.Seat.Occupancy), stamp(now), stamp(now))
	if err != nil {
		return domain.Product{}, seatErr(domain.ErrNotSaved, p.ID, "", err)
	}
	return r.reload(ctx, p.ID, domain.ErrNotSaved)
}

// Update overwrites the mutable fields of seat id. The creation timestamp is
// left untouched.
func (r *SeatRepo) Update(ctx context.Context, id string, p domain.Product) (domain.Product, error) {
	if !p.IsSeat() {
		return domain.Product{}, seatErr(domain.ErrNotUpdated, id, "not a seat", nil)
	}
	name := p.Name
	if name == "" {
		name = id
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE seats
		SET name = ?, price = ?, row_idx = ?, col_idx = ?, class = ?, state = ?, occupancy = ?, updated_at = ?
		WHERE id = ?
	`, name, p.Seat.Class.Price().String(), p.Seat.Row, p.Seat.Column, string(p.Seat.Class), string(p.Seat.State), string(p.Seat.Occupancy), stamp(time.Now()), id)
	if err != nil {
		return domain.Product{}, seatErr(domain.ErrNotUpdated, id, "", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Product{}, seatErr(domain.ErrNotFound, id, "", nil)
	}
	return r.reload(ctx, id, domain.ErrNotUpdated)
}

// Delete removes seat id. A logical delete only sets the flag; a physical
// delete returns the seat as it was before removal.
func (r *SeatRepo) Delete(ctx context.Context, id string, logical bool) (domain.Product, error) {
	current, err := r.FindByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	if logical {
		if _, err := r.db.ExecContext(ctx, `UPDATE seats SET is_deleted = 1, updated_at = ? WHERE id = ?`, stamp(time.Now()), id); err != nil {
			return domain.Product{}, seatErr(domain.ErrNotDeleted, id, "", err)
		}
		return r.reload(ctx, id, domain.ErrNotDeleted)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM seats WHERE id = ?`, id); err != nil {
		return domain.Product{}, seatErr(domain.ErrNotDeleted, id, "", err)
	}
	return current, nil
}

// FindAllSoldBy lists seats that appear in a live sale bought on or before date.
func (r *SeatRepo) FindAllSoldBy(ctx context.Context, date time.Time) ([]domain.Product, error) {
	var rows []seatRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT DISTINCT `+seatColumns+`
		FROM seats s
		JOIN sale_lines l ON l.product_type = ? AND l.product_id = s.id
		JOIN sales v ON v.id = l.sale_id
		WHERE l.is_deleted = 0 AND v.is_deleted = 0 AND v.purchase_date <= ?
		ORDER BY s.row_idx, s.col_idx
	`, string(domain.KindSeat), date.Format(domain.DateLayout))
	if err != nil {
		return nil, seatErr(domain.ErrNotFetched, "*", "sold seats", err)
	}
	out := make([]domain.Product, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.product())
	}
	return out, nil
}

func (r *SeatRepo) DefaultSeats() []domain.Product { return DefaultSeats() }

func (r *SeatRepo) reload(ctx context.Context, id string, reason error) (domain.Product, error) {
	p, err := r.FindByID(ctx, id)
	if err != nil {
		return domain.Product{}, seatErr(reason, id, "reading back", err)
	}
	return p, nil
}
