package models

import "time"

const CollectionUsers = "users"

// Roles a user document can carry.
const (
	RoleBusiness = "business"
	RoleCustomer = "customer"
	RoleStaff    = "staff"
	RoleAdmin    = "admin"
)

// Field names on user documents.
const (
	FieldLinkedCustomerID = "linkedCustomerId"
	FieldUpdatedAt        = "updatedAt"
	FieldCreatedAt        = "createdAt"
)

type User struct {
	ID                string    `json:"id"`
	Role              string    `json:"role"`
	Email             string    `json:"email,omitempty"`
	PhoneNumber       string    `json:"phoneNumber,omitempty"`
	LinkedCustomerID  string    `json:"linkedCustomerId,omitempty"`
	BusinessID        string    `json:"businessId,omitempty"`
	Businesses        []string  `json:"businesses,omitempty"`
	CurrentBusinessID string    `json:"currentBusinessId,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// IsValidRole reports whether role is one of the known user roles.
func IsValidRole(role string) bool {
	switch role {
	case RoleBusiness, RoleCustomer, RoleStaff, RoleAdmin:
		return true
	}
	return false
}
