package models

import (
	"strings"
	"time"
)

const CollectionCustomers = "customers"

// Field names on customer documents.
const (
	FieldFirstName       = "firstName"
	FieldLastName        = "lastName"
	FieldEmail           = "email"
	FieldPhone           = "phone"
	FieldPhoneNormalized = "phone_normalized"
	FieldUserID          = "userId"
	FieldJoinDate        = "joinDate"
)

// Customer is a loyalty participant. UserID is set at most once.
type Customer struct {
	ID              string    `json:"id"`
	FirstName       string    `json:"firstName"`
	LastName        string    `json:"lastName"`
	Email           string    `json:"email"`
	Phone           string    `json:"phone"`
	PhoneNormalized string    `json:"phone_normalized"`
	UserID          string    `json:"userId,omitempty"`
	JoinDate        time.Time `json:"joinDate"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func (c *Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// IsLinked reports whether the customer has been claimed by a user.
func (c *Customer) IsLinked() bool {
	return c.UserID != ""
}
