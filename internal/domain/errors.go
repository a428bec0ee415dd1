package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrNotFetched = errors.New("not fetched")
	ErrNotSaved   = errors.New("not saved")
	ErrNotUpdated = errors.New("not updated")
	ErrNotDeleted = errors.New("not deleted")
)

var ErrCustomerNotFound = errors.New("customer not found")

var (
	ErrSaleNotFound     = errors.New("sale not found")
	ErrSaleInvalid      = errors.New("sale invalid")
	ErrSaleNotPersisted = errors.New("sale not persisted")
	ErrSaleStorage      = errors.New("sale storage")
)

// ProductError reports a failed seat or concession operation. Reason is one
// of the ErrNot* sentinels; Err is the underlying cause, if any.
type ProductError struct {
	Kind   Kind
	Reason error
	ID     string
	Msg    string
	Err    error
}

func (e *ProductError) Error() string {
	s := fmt.Sprintf("%s %q %v", e.Kind, e.ID, e.Reason)
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *ProductError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Reason}
	}
	return []error{e.Reason, e.Err}
}

func NewProductError(kind Kind, reason error, id, msg string, err error) *ProductError {
	return &ProductError{Kind: kind, Reason: reason, ID: id, Msg: msg, Err: err}
}

// Stage names the step of sale creation that failed.
type Stage string

const (
	StageCustomer Stage = "customer"
	StageLines    Stage = "lines"
	StageStock    Stage = "stock"
	StagePersist  Stage = "persist"
	StageReturn   Stage = "return"
	StageExport   Stage = "export"
	StageLookup   Stage = "lookup"
)

type SaleError struct {
	Reason error
	Stage  Stage
	ID     string
	Msg    string
	Err    error
}

func (e *SaleError) Error() string {
	s := fmt.Sprintf("%v [%s]", e.Reason, e.Stage)
	if e.ID != "" {
		s += " " + e.ID
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *SaleError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Reason}
	}
	return []error{e.Reason, e.Err}
}

// StageOf returns the failing stage of a sale error, or "" for other errors.
func StageOf(err error) Stage {
	var se *SaleError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
