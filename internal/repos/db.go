package repos

import (
	"context"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"cinepos/internal/domain"
)

func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// One connection: every statement sees the same database, including
	// the PRAGMA below, and ":memory:" keeps working.
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		return nil, err
	}

	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	// The seating chart always exists; concessions and customers come from
	// imports or the seed command.
	if err := seedSeatsIfEmpty(db); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
PRAGMA foreign_keys = ON;

-- Customers
CREATE TABLE IF NOT EXISTS customers(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  email TEXT NOT NULL,
  membership_code TEXT NOT NULL UNIQUE,
  created_at TEXT,
  updated_at TEXT,
  is_deleted INTEGER NOT NULL DEFAULT 0
);

-- Seats
CREATE TABLE IF NOT EXISTS seats(
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  price TEXT NOT NULL,
  row_idx INTEGER NOT NULL,
  col_idx INTEGER NOT NULL,
  class TEXT NOT NULL CHECK (class IN ('NORMAL','VIP')),
  state TEXT NOT NULL CHECK (state IN ('ACTIVE','MAINTENANCE','OUT_OF_SERVICE')),
  occupancy TEXT NOT NULL CHECK (occupancy IN ('FREE','RESERVED','SOLD')),
  created_at TEXT,
  updated_at TEXT,
  is_deleted INTEGER
);

-- Concessions
CREATE TABLE IF NOT EXISTS concessions(
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  price TEXT NOT NULL,
  stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
  category TEXT NOT NULL CHECK (category IN ('FOOD','DRINK','OTHER')),
  created_at TEXT,
  updated_at TEXT,
  is_deleted INTEGER
);
CREATE INDEX IF NOT EXISTS idx_concessions_name ON concessions(LOWER(name));

-- Sales
CREATE TABLE IF NOT EXISTS sales(
  id TEXT PRIMARY KEY,
  customer_id INTEGER NOT NULL REFERENCES customers(id),
  purchase_date TEXT NOT NULL,
  total TEXT NOT NULL,
  created_at TEXT,
  updated_at TEXT,
  is_deleted INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_sales_purchase_date ON sales(purchase_date);

-- Sale lines point at either table, so product_id has no foreign key.
CREATE TABLE IF NOT EXISTS sale_lines(
  id TEXT PRIMARY KEY,
  sale_id TEXT NOT NULL REFERENCES sales(id) ON DELETE CASCADE,
  product_type TEXT NOT NULL CHECK (product_type IN ('Butaca','Complemento')),
  product_id TEXT NOT NULL,
  quantity INTEGER NOT NULL CHECK (quantity >= 1),
  unit_price TEXT NOT NULL,
  created_at TEXT,
  updated_at TEXT,
  is_deleted INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_sale_lines_sale    ON sale_lines(sale_id);
CREATE INDEX IF NOT EXISTS idx_sale_lines_product ON sale_lines(product_type, product_id);
`
	_, err := db.Exec(schema)
	return err
}

func seedSeatsIfEmpty(db *sqlx.DB) error {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM seats`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	log.Println("[seed] inserting default seating chart")

	ts := stamp(time.Now())
	tx := db.MustBegin()
	defer func() { _ = tx.Rollback() }()
	for _, s := range DefaultSeats() {
		if _, err := tx.Exec(`
			INSERT INTO seats(id,name,price,row_idx,col_idx,class,state,occupancy,created_at,updated_at,is_deleted)
			VALUES(?,?,?,?,?,?,?,?,?,?,0)
		`, s.ID, s.Name, s.Price.String(), s.Seat.Row, s.Seat.Column, string(s.Seat.Class), string(s.Seat.State), string(s.Seat.Occupancy), ts, ts); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SeedDemo inserts a few concessions and a walk-in customer (idempotent).
func SeedDemo(ctx context.Context, db *sqlx.DB) error {
	ts := stamp(time.Now())
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO concessions(id,name,price,stock,category,created_at,updated_at,is_deleted)
		VALUES
		  ('palomitas','Palomitas','3','20','FOOD',?,?,0),
		  ('perrito','Perrito','4.5','15','FOOD',?,?,0),
		  ('refresco','Refresco','2.5','30','DRINK',?,?,0),
		  ('agua','Agua','1.5','30','DRINK',?,?,0),
		  ('gafas3d','Gafas 3D','1','10','OTHER',?,?,0)
		ON CONFLICT(id) DO NOTHING
	`, ts, ts, ts, ts, ts, ts, ts, ts, ts, ts); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO customers(name,email,membership_code,created_at,updated_at)
		VALUES('Invitado','invitado@cinepos.test','AAA000',?,?)
		ON CONFLICT(membership_code) DO NOTHING
	`, ts, ts); err != nil {
		return err
	}

	return tx.Commit()
}

// DefaultSeats returns the canonical 5x7 chart, rows A..E and columns 1..7.
// Columns 3..5 of rows B, C and D are VIP.
func DefaultSeats() []domain.Product {
	const rows, cols = 5, 7
	out := make([]domain.Product, 0, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			class := domain.SeatNormal
			if r >= 1 && r <= 3 && c >= 2 && c <= 4 {
				class = domain.SeatVIP
			}
			id := string(rune('A'+r)) + string(rune('1'+c))
			out = append(out, domain.NewSeat(id, r, c, class, domain.SeatActive, domain.OccupancyFree))
		}
	}
	return out
}

func stamp(t time.Time) string { return t.UTC().Format(time.RFC3339) }

// parseStamp returns nil for empty or unparsable values.
func parseStamp(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}
