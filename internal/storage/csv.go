package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"cinepos/internal/domain"
)

// Older exports use Spanish enum names; both spellings are accepted.
var (
	classAlias = map[string]domain.SeatClass{"NORMAL": domain.SeatNormal, "VIP": domain.SeatVIP}
	stateAlias = map[string]domain.SeatState{
		"ACTIVE": domain.SeatActive, "ACTIVA": domain.SeatActive,
		"MAINTENANCE": domain.SeatMaintenance, "MANTENIMIENTO": domain.SeatMaintenance,
		"OUT_OF_SERVICE": domain.SeatOutOfService, "FUERASERVICIO": domain.SeatOutOfService,
	}
	occupancyAlias = map[string]domain.Occupancy{
		"FREE": domain.OccupancyFree, "LIBRE": domain.OccupancyFree,
		"RESERVED": domain.OccupancyReserved, "ENRESERVA": domain.OccupancyReserved,
		"SOLD": domain.OccupancySold, "OCUPADA": domain.OccupancySold,
	}
	categoryAlias = map[string]domain.Category{
		"FOOD": domain.CategoryFood, "COMIDA": domain.CategoryFood,
		"DRINK": domain.CategoryDrink, "BEBIDA": domain.CategoryDrink,
		"OTHER": domain.CategoryOther, "OTROS": domain.CategoryOther,
	}
)

// ParseClass reads a seat class in either spelling.
func ParseClass(s string) (domain.SeatClass, bool) {
	c, ok := classAlias[strings.ToUpper(strings.TrimSpace(s))]
	return c, ok
}

// ParseState reads a seat state in either spelling.
func ParseState(s string) (domain.SeatState, bool) {
	st, ok := stateAlias[strings.ToUpper(strings.TrimSpace(s))]
	return st, ok
}

// LoadSeatsCSV parses id,price,row,column,class,state,occupancy records.
// The price column is read for validation only; a seat's price follows its
// class.
func LoadSeatsCSV(path string) ([]domain.Product, error) {
	records, err := readCSV(path, 7)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Product, 0, len(records))
	for i, rec := range records {
		line := i + 2
		if _, err := decimal.NewFromString(rec[1]); err != nil {
			return nil, fmt.Errorf("%w: %s:%d price %q", ErrLoad, path, line, rec[1])
		}
		row, err1 := strconv.Atoi(rec[2])
		col, err2 := strconv.Atoi(rec[3])
		if err := errors.Join(err1, err2); err != nil {
			return nil, fmt.Errorf("%w: %s:%d: %v", ErrLoad, path, line, err)
		}
		class, ok1 := classAlias[strings.ToUpper(rec[4])]
		state, ok2 := stateAlias[strings.ToUpper(rec[5])]
		occ, ok3 := occupancyAlias[strings.ToUpper(rec[6])]
		if !ok1 || !ok2 || !ok3 {
			return nil, fmt.Errorf("%w: %s:%d unknown class, state or occupancy", ErrLoad, path, line)
		}
		out = append(out, domain.NewSeat(strings.ToUpper(rec[0]), row, col, class, state, occ))
	}
	return out, nil
}

// LoadConcessionsCSV parses id,name,price,stock,category records.
func LoadConcessionsCSV(path string) ([]domain.Product, error) {
	records, err := readCSV(path, 5)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Product, 0, len(records))
	for i, rec := range records {
		line := i + 2
		price, err := decimal.NewFromString(rec[2])
		if err != nil || price.IsNegative() {
			return nil, fmt.Errorf("%w: %s:%d price %q", ErrLoad, path, line, rec[2])
		}
		stock, err := strconv.Atoi(rec[3])
		if err != nil || stock < 0 {
			return nil, fmt.Errorf("%w: %s:%d stock %q", ErrLoad, path, line, rec[3])
		}
		cat, ok := categoryAlias[strings.ToUpper(rec[4])]
		if !ok {
			return nil, fmt.Errorf("%w: %s:%d category %q", ErrLoad, path, line, rec[4])
		}
		out = append(out, domain.NewConcession(rec[0], rec[1], price, stock, cat))
	}
	return out, nil
}

// readCSV returns every record after the header, trimmed.
func readCSV(path string, fields int) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = fields
	r.TrimLeadingSpace = true

	if _, err := r.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %s header: %v", ErrLoad, path, err)
	}
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLoad, path, err)
	}
	for _, rec := range records {
		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
		}
	}
	return records, nil
}
