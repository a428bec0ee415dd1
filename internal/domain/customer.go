package domain

import "time"

type Customer struct {
	ID             int64
	Name           string
	Email          string
	MembershipCode string
	CreatedAt      *time.Time
	UpdatedAt      *time.Time
	IsDeleted      bool
}

// Contact is what a buyer types in at the till. An empty MembershipCode
// means a first-time customer.
type Contact struct {
	Name           string
	Email          string
	MembershipCode string
}
