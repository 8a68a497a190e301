package models

import "time"

const CollectionInvitations = "invitations"

// Invitation statuses. pending moves to accepted or declined exactly once.
const (
	InvitationPending  = "pending"
	InvitationAccepted = "accepted"
	InvitationDeclined = "declined"
)

// Field names on invitation documents.
const (
	FieldBusinessID    = "businessId"
	FieldBusinessName  = "businessName"
	FieldCustomerPhone = "customerPhone"
	FieldStatus        = "status"
	FieldAcceptedAt    = "acceptedAt"
	FieldDeclinedAt    = "declinedAt"
)

type Invitation struct {
	ID            string     `json:"id"`
	BusinessID    string     `json:"businessId"`
	BusinessName  string     `json:"businessName"`
	CustomerPhone string     `json:"customerPhone"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"createdAt"`
	AcceptedAt    *time.Time `json:"acceptedAt,omitempty"`
	DeclinedAt    *time.Time `json:"declinedAt,omitempty"`
}

func (i *Invitation) IsPending() bool {
	return i.Status == InvitationPending
}
