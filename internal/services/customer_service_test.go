package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cinepos/internal/domain"
	"cinepos/internal/services"
)

func TestCustomerService_ReusesKnownCode(t *testing.T) {
	e := newEnv(t)
	got, err := e.customers.FindOrCreate(context.Background(), domain.Contact{MembershipCode: " abc123 "})
	require.NoError(t, err)
	assert.Equal(t, e.customer.ID, got.ID)
}

func TestCustomerService_UnknownCodeRegistersNewCustomer(t *testing.T) {
	e := newEnv(t)
	got, err := e.customers.FindOrCreate(context.Background(), domain.Contact{Name: "Marta", Email: "marta@cine.test", MembershipCode: "ZZZ999"})
	require.NoError(t, err)
	assert.NotEqual(t, e.customer.ID, got.ID)
	assert.NotEqual(t, "ZZZ999", got.MembershipCode)
}

func TestCustomerService_RetriesTakenCodes(t *testing.T) {
	e := newEnv(t)
	codes := []string{"ABC123", "bad", "XYZ789"}
	e.customers.NewCode = func() string {
		c := codes[0]
		codes = codes[1:]
		return c
	}

	got, err := e.customers.FindOrCreate(context.Background(), domain.Contact{Name: "Marta", Email: "marta@cine.test"})
	require.NoError(t, err)
	assert.Equal(t, "XYZ789", got.MembershipCode)
}

func TestCustomerService_GivesUpWhenNoCodeIsFree(t *testing.T) {
	e := newEnv(t)
	e.customers.NewCode = func() string { return "ABC123" }

	_, err := e.customers.FindOrCreate(context.Background(), domain.Contact{Name: "Marta", Email: "marta@cine.test"})
	assert.ErrorIs(t, err, services.ErrCodeExhausted)
}

func TestCustomerService_RejectsBadInput(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.customers.FindOrCreate(ctx, domain.Contact{MembershipCode: "AB12"})
	assert.ErrorIs(t, err, services.ErrInvalidContact)
	_, err = e.customers.FindOrCreate(ctx, domain.Contact{Name: "Marta", Email: "marta"})
	assert.ErrorIs(t, err, services.ErrInvalidContact)
}

func TestCustomerService_GeneratedCodesLookRight(t *testing.T) {
	e := newEnv(t)
	for i := 0; i < 20; i++ {
		assert.Regexp(t, `^[A-Z]{3}[0-9]{3}$`, e.customers.NewCode())
	}
}

func TestCustomerService_ListAndUpdateContact(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	other, err := e.customers.FindOrCreate(ctx, domain.Contact{Name: "Marta", Email: "marta@cine.test"})
	require.NoError(t, err)

	all, err := e.customers.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, e.customer.ID, all[0].ID)
	assert.Equal(t, other.ID, all[1].ID)

	updated, err := e.customers.UpdateContact(ctx, "abc123", domain.Contact{Name: "Ana Maria", Email: "anamaria@cine.test"})
	require.NoError(t, err)
	assert.Equal(t, e.customer.ID, updated.ID)
	assert.Equal(t, "ABC123", updated.MembershipCode)
	assert.Equal(t, "Ana Maria", updated.Name)
	assert.Equal(t, "anamaria@cine.test", updated.Email)
	require.NotNil(t, updated.CreatedAt)
	assert.True(t, updated.CreatedAt.Equal(*e.customer.CreatedAt))

	_, err = e.customers.UpdateContact(ctx, "QQQ111", domain.Contact{Name: "Ana", Email: "ana@cine.test"})
	assert.ErrorIs(t, err, domain.ErrCustomerNotFound)
	_, err = e.customers.UpdateContact(ctx, "ABC123", domain.Contact{Name: "Ana", Email: "nope"})
	assert.ErrorIs(t, err, services.ErrInvalidContact)

	_, err = e.custRepo.Delete(ctx, other.ID)
	require.NoError(t, err)
	all, err = e.customers.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
