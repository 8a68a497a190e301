package models

import "time"

const CollectionBusinessRelationships = "businessRelationships"

const (
	RelationshipInvited = "invited"
	RelationshipLoyalty = "loyalty"
	RelationshipCoupon  = "coupon"
)

const (
	RelationshipActive   = "active"
	RelationshipInactive = "inactive"
)

const (
	FieldCustomerID       = "customerId"
	FieldRelationshipType = "relationshipType"
	FieldInvitationID     = "invitationId"
)

// BusinessRelationship is the active association between a business and a resolved customer.
type BusinessRelationship struct {
	ID               string    `json:"id"`
	BusinessID       string    `json:"businessId"`
	BusinessName     string    `json:"businessName,omitempty"`
	CustomerID       string    `json:"customerId"`
	RelationshipType string    `json:"relationshipType"`
	Status           string    `json:"status"`
	InvitationID     string    `json:"invitationId,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}
