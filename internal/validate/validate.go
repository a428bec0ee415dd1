package validate

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	reEmail = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	reName  = regexp.MustCompile(`^[A-Za-zÁÉÍÓÚÜÑáéíóúüñ ]{3,15}$`)
	reCode  = regexp.MustCompile(`^[A-Z]{3}[0-9]{3}$`)
	reSeat  = regexp.MustCompile(`^[A-Z][1-9][0-9]?$`)
	reID    = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
)

func Email(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) == 0 || len(s) > 50 {
		return "", false
	}
	return s, reEmail.MatchString(s)
}

// Name validates a customer name: 3 to 15 letters or spaces.
func Name(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, reName.MatchString(s)
}

// MembershipCode normalises to upper case and checks 3 letters + 3 digits.
func MembershipCode(s string) (string, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	return s, reCode.MatchString(s)
}

// SeatID validates a chart position such as "A1" or "C12".
func SeatID(s string) (string, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	return s, reSeat.MatchString(s)
}

// ID validates a simple resource identifier (concession ids).
func ID(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != "" && reID.MatchString(s)
}

// MaxQty caps a single concession request.
const MaxQty = 50

// Qty parses a purchase quantity in 1..MaxQty.
func Qty(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 || n > MaxQty {
		return 0, false
	}
	return n, true
}

// Date parses YYYY-MM-DD; an empty string means today.
func Date(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		y, m, d := time.Now().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
	}
	t, err := time.Parse("2006-01-02", s)
	return t, err == nil
}
