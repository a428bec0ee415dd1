package services

import (
	"context"
	"errors"
	"fmt"

	nanoid "github.com/jaevor/go-nanoid"

	"cinepos/internal/domain"
	applog "cinepos/internal/log"
	"cinepos/internal/validate"
)

var (
	ErrInvalidContact = errors.New("invalid contact")
	ErrCodeExhausted  = errors.New("could not find a free membership code")
)

// CustomerStore is the customer repository as services use it.
type CustomerStore interface {
	ByID(ctx context.Context, id int64) (domain.Customer, error)
	ByCode(ctx context.Context, code string) (domain.Customer, error)
	CodeTaken(ctx context.Context, code string) (bool, error)
	Save(ctx context.Context, c domain.Customer) (domain.Customer, error)
	Update(ctx context.Context, c domain.Customer) (domain.Customer, error)
	All(ctx context.Context) ([]domain.Customer, error)
}

type CustomerService struct {
	Customers CustomerStore

	// NewCode returns a candidate membership code; it is retried until free.
	NewCode func() string
}

const codeAttempts = 20

func NewCustomerService(customers CustomerStore) (*CustomerService, error) {
	letters, err := nanoid.CustomASCII("ABCDEFGHIJKLMNOPQRSTUVWXYZ", 3)
	if err != nil {
		return nil, err
	}
	digits, err := nanoid.CustomASCII("0123456789", 3)
	if err != nil {
		return nil, err
	}
	return &CustomerService{
		Customers: customers,
		NewCode:   func() string { return letters() + digits() },
	}, nil
}

// FindOrCreate returns the customer owning c.MembershipCode, or registers a
// new one with a fresh code when the code is empty or unknown.
func (s *CustomerService) FindOrCreate(ctx context.Context, c domain.Contact) (domain.Customer, error) {
	if c.MembershipCode != "" {
		code, ok := validate.MembershipCode(c.MembershipCode)
		if !ok {
			return domain.Customer{}, fmt.Errorf("%w: membership code %q", ErrInvalidContact, c.MembershipCode)
		}
		found, err := s.Customers.ByCode(ctx, code)
		if err == nil && !found.IsDeleted {
			return found, nil
		}
		if err != nil && !errors.Is(err, domain.ErrCustomerNotFound) {
			return domain.Customer{}, err
		}
		applog.Info("customer.code_unknown", map[string]any{"code": code})
	}

	name, ok := validate.Name(c.Name)
	if !ok {
		return domain.Customer{}, fmt.Errorf("%w: name %q", ErrInvalidContact, c.Name)
	}
	email, ok := validate.Email(c.Email)
	if !ok {
		return domain.Customer{}, fmt.Errorf("%w: email %q", ErrInvalidContact, c.Email)
	}
	code, err := s.freeCode(ctx)
	if err != nil {
		return domain.Customer{}, err
	}
	created, err := s.Customers.Save(ctx, domain.Customer{Name: name, Email: email, MembershipCode: code})
	if err != nil {
		return domain.Customer{}, err
	}
	applog.Audit("customer.create", map[string]any{"customer": created.MembershipCode, "id": created.ID})
	return created, nil
}

// List returns the customers that are not deleted, oldest first.
func (s *CustomerService) List(ctx context.Context) ([]domain.Customer, error) {
	return s.Customers.All(ctx)
}

// UpdateContact changes the name and email of the customer owning code. The
// membership code itself never changes.
func (s *CustomerService) UpdateContact(ctx context.Context, code string, c domain.Contact) (domain.Customer, error) {
	code, ok := validate.MembershipCode(code)
	if !ok {
		return domain.Customer{}, fmt.Errorf("%w: membership code %q", ErrInvalidContact, code)
	}
	name, ok := validate.Name(c.Name)
	if !ok {
		return domain.Customer{}, fmt.Errorf("%w: name %q", ErrInvalidContact, c.Name)
	}
	email, ok := validate.Email(c.Email)
	if !ok {
		return domain.Customer{}, fmt.Errorf("%w: email %q", ErrInvalidContact, c.Email)
	}
	found, err := s.Customers.ByCode(ctx, code)
	if err != nil {
		return domain.Customer{}, err
	}
	if found.IsDeleted {
		return domain.Customer{}, fmt.Errorf("customer %s: %w", code, domain.ErrCustomerNotFound)
	}
	found.Name, found.Email = name, email
	updated, err := s.Customers.Update(ctx, found)
	if err != nil {
		return domain.Customer{}, err
	}
	applog.Audit("customer.update", map[string]any{"customer": updated.MembershipCode, "id": updated.ID})
	return updated, nil
}

func (s *CustomerService) freeCode(ctx context.Context) (string, error) {
	for i := 0; i < codeAttempts; i++ {
		code, ok := validate.MembershipCode(s.NewCode())
		if !ok {
			continue
		}
		taken, err := s.Customers.CodeTaken(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", ErrCodeExhausted
}
