package dtos

import (
	"time"

	"loyalty-backend/linking"
	"loyalty-backend/models"
)

// RegisterLinkRequest is sent by the client right after sign-up.
type RegisterLinkRequest struct {
	Phone string `json:"phone" binding:"omitempty,phone"`
	Email string `json:"email" binding:"omitempty,email"`
	Name  string `json:"name" binding:"max=200"`
}

// RegisterLinkResponse reports the outcome of linking a new account. Linked is
// false when no customer could be resolved; the account itself is unaffected.
type RegisterLinkResponse struct {
	CustomerID          string   `json:"customer_id"`
	Linked              bool     `json:"linked"`
	AcceptedInvitations []string `json:"accepted_invitations"`
}

// AcceptInvitationsRequest accepts every pending invitation for Phone on behalf of CustomerID.
type AcceptInvitationsRequest struct {
	CustomerID string `json:"customer_id" binding:"required"`
	Phone      string `json:"phone" binding:"required,phone"`
}

// CreateInvitationRequest is a business inviting a phone number.
type CreateInvitationRequest struct {
	Phone        string `json:"phone" binding:"required,phone"`
	BusinessName string `json:"business_name" binding:"max=200"`
}

type CustomerResponse struct {
	ID           string    `json:"id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email,omitempty"`
	Phone        string    `json:"phone"`
	DisplayPhone string    `json:"display_phone"`
	Linked       bool      `json:"linked"`
	JoinDate     time.Time `json:"join_date"`
}

func NewCustomerResponse(c *models.Customer) CustomerResponse {
	return CustomerResponse{
		ID:           c.ID,
		FirstName:    c.FirstName,
		LastName:     c.LastName,
		Email:        c.Email,
		Phone:        c.Phone,
		DisplayPhone: linking.FormatPhoneForDisplay(c.Phone),
		Linked:       c.IsLinked(),
		JoinDate:     c.JoinDate,
	}
}

type InvitationResponse struct {
	ID           string     `json:"id"`
	BusinessID   string     `json:"business_id"`
	BusinessName string     `json:"business_name"`
	Phone        string     `json:"phone"`
	DisplayPhone string     `json:"display_phone"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	AcceptedAt   *time.Time `json:"accepted_at,omitempty"`
	DeclinedAt   *time.Time `json:"declined_at,omitempty"`
}

func NewInvitationResponse(inv models.Invitation) InvitationResponse {
	return InvitationResponse{
		ID:           inv.ID,
		BusinessID:   inv.BusinessID,
		BusinessName: inv.BusinessName,
		Phone:        inv.CustomerPhone,
		DisplayPhone: linking.FormatPhoneForDisplay(inv.CustomerPhone),
		Status:       inv.Status,
		CreatedAt:    inv.CreatedAt,
		AcceptedAt:   inv.AcceptedAt,
		DeclinedAt:   inv.DeclinedAt,
	}
}

func NewInvitationResponses(invs []models.Invitation) []InvitationResponse {
	out := make([]InvitationResponse, 0, len(invs))
	for _, inv := range invs {
		out = append(out, NewInvitationResponse(inv))
	}
	return out
}

type RelationshipResponse struct {
	ID               string    `json:"id"`
	BusinessID       string    `json:"business_id"`
	BusinessName     string    `json:"business_name,omitempty"`
	RelationshipType string    `json:"relationship_type"`
	Status           string    `json:"status"`
	InvitationID     string    `json:"invitation_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

func NewRelationshipResponses(rels []models.BusinessRelationship) []RelationshipResponse {
	out := make([]RelationshipResponse, 0, len(rels))
	for _, r := range rels {
		out = append(out, RelationshipResponse{
			ID:               r.ID,
			BusinessID:       r.BusinessID,
			BusinessName:     r.BusinessName,
			RelationshipType: r.RelationshipType,
			Status:           r.Status,
			InvitationID:     r.InvitationID,
			CreatedAt:        r.CreatedAt,
		})
	}
	return out
}
