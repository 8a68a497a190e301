package linking

import (
	"context"
	"errors"
	"fmt"

	"loyalty-backend/docstore"
	"loyalty-backend/models"

	"github.com/sirupsen/logrus"
)

// FindInvitationsByPhone returns the pending invitations addressed to phone,
// newest first.
func (r *Resolver) FindInvitationsByPhone(ctx context.Context, phone string) []models.Invitation {
	invitations, err := r.findPendingInvitations(ctx, phone)
	if err != nil {
		r.log.WithError(err).WithField("phone", phone).Error("invitation lookup by phone failed")
		return []models.Invitation{}
	}
	return invitations
}

func (r *Resolver) findPendingInvitations(ctx context.Context, phone string) ([]models.Invitation, error) {
	normalized := NormalizePhone(phone)
	if normalized == "" {
		return []models.Invitation{}, nil
	}

	docs, err := r.store.Query(ctx, docstore.Query{
		Collection: models.CollectionInvitations,
		Field:      models.FieldCustomerPhone,
		Value:      normalized,
		OrderBy:    models.FieldCreatedAt,
		Direction:  docstore.Desc,
	})
	if err != nil {
		return nil, fmt.Errorf("query invitations: %w", err)
	}

	invitations := make([]models.Invitation, 0, len(docs))
	for _, doc := range docs {
		if doc.String(models.FieldStatus) != models.InvitationPending {
			continue
		}
		var inv models.Invitation
		if err := doc.DataTo(&inv); err != nil {
			return nil, fmt.Errorf("decode invitation %s: %w", doc.ID, err)
		}
		invitations = append(invitations, inv)
	}
	return invitations, nil
}

// AcceptPendingInvitations accepts every pending invitation for phone on behalf
// of customerID and returns the IDs it accepted. Each invitation is accepted in
// its own transaction together with the relationship it creates; a failure stops
// the run and leaves earlier acceptances in place.
func (r *Resolver) AcceptPendingInvitations(ctx context.Context, customerID, phone string) []string {
	accepted := []string{}
	entry := r.log.WithFields(logrus.Fields{"customer_id": customerID, "phone": phone})
	if customerID == "" {
		entry.Warn("invitation accept skipped: missing customer id")
		return accepted
	}

	invitations, err := r.findPendingInvitations(ctx, phone)
	if err != nil {
		entry.WithError(err).Error("invitation accept failed: lookup")
		return accepted
	}

	for _, inv := range invitations {
		invEntry := entry.WithField("invitation_id", inv.ID)
		err := r.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
			return acceptInvitation(tx, customerID, inv.ID)
		})
		if errors.Is(err, ErrInvitationNotPending) || errors.Is(err, ErrInvitationNotFound) {
			// Resolved by someone else since the lookup.
			invEntry.WithError(err).Info("invitation skipped")
			continue
		}
		if err != nil {
			r.logCollapsed(invEntry, err, "invitation accept failed")
			break
		}
		invEntry.WithField("business_id", inv.BusinessID).Info("invitation accepted")
		accepted = append(accepted, inv.ID)
	}
	return accepted
}

func acceptInvitation(tx docstore.Tx, customerID, invitationID string) error {
	doc, err := tx.Get(models.CollectionInvitations, invitationID)
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrInvitationNotFound
	}
	if err != nil {
		return err
	}
	if doc.String(models.FieldStatus) != models.InvitationPending {
		return ErrInvitationNotPending
	}

	err = tx.Set(models.CollectionInvitations, invitationID, docstore.Fields{
		models.FieldStatus:     models.InvitationAccepted,
		models.FieldAcceptedAt: docstore.ServerTimestamp,
	}, docstore.Merge())
	if err != nil {
		return err
	}

	return tx.Set(models.CollectionBusinessRelationships, docstore.NewID(), docstore.Fields{
		models.FieldBusinessID:       doc.String(models.FieldBusinessID),
		models.FieldBusinessName:     doc.String(models.FieldBusinessName),
		models.FieldCustomerID:       customerID,
		models.FieldRelationshipType: models.RelationshipInvited,
		models.FieldStatus:           models.RelationshipActive,
		models.FieldInvitationID:     invitationID,
		models.FieldCreatedAt:        docstore.ServerTimestamp,
	})
}

// CreateInvitation records a business's pending invitation to a phone number.
func (r *Resolver) CreateInvitation(ctx context.Context, businessID, businessName, phone string) (string, error) {
	normalized := NormalizePhone(phone)
	if businessID == "" || normalized == "" {
		return "", ErrInvalidInput
	}

	id, err := r.store.Add(ctx, models.CollectionInvitations, docstore.Fields{
		models.FieldBusinessID:    businessID,
		models.FieldBusinessName:  businessName,
		models.FieldCustomerPhone: normalized,
		models.FieldStatus:        models.InvitationPending,
		models.FieldCreatedAt:     docstore.ServerTimestamp,
	})
	if err != nil {
		return "", fmt.Errorf("create invitation: %w", err)
	}
	r.log.WithFields(logrus.Fields{"invitation_id": id, "business_id": businessID}).Info("invitation created")
	return id, nil
}

// GetInvitation returns the invitation with the given ID, or nil.
func (r *Resolver) GetInvitation(ctx context.Context, invitationID string) *models.Invitation {
	if invitationID == "" {
		return nil
	}
	doc, err := r.store.Get(ctx, models.CollectionInvitations, invitationID)
	if err != nil {
		if !errors.Is(err, docstore.ErrNotFound) {
			r.log.WithError(err).WithField("invitation_id", invitationID).Error("invitation read failed")
		}
		return nil
	}
	var inv models.Invitation
	if err := doc.DataTo(&inv); err != nil {
		r.log.WithError(err).WithField("invitation_id", invitationID).Error("invitation decode failed")
		return nil
	}
	return &inv
}

// DeclineInvitation moves a pending invitation to declined. Accepted and
// declined invitations are left alone.
func (r *Resolver) DeclineInvitation(ctx context.Context, invitationID string) bool {
	entry := r.log.WithField("invitation_id", invitationID)
	if invitationID == "" {
		return false
	}

	err := r.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		doc, err := tx.Get(models.CollectionInvitations, invitationID)
		if errors.Is(err, docstore.ErrNotFound) {
			return ErrInvitationNotFound
		}
		if err != nil {
			return err
		}
		if doc.String(models.FieldStatus) != models.InvitationPending {
			return ErrInvitationNotPending
		}
		return tx.Update(models.CollectionInvitations, invitationID, docstore.Fields{
			models.FieldStatus:     models.InvitationDeclined,
			models.FieldDeclinedAt: docstore.ServerTimestamp,
		})
	})
	if err != nil {
		r.logCollapsed(entry, err, "invitation decline failed")
		return false
	}
	entry.Info("invitation declined")
	return true
}

// ListRelationships returns the business relationships of a customer.
func (r *Resolver) ListRelationships(ctx context.Context, customerID string) []models.BusinessRelationship {
	out := []models.BusinessRelationship{}
	if customerID == "" {
		return out
	}
	docs, err := r.store.Query(ctx, docstore.Query{
		Collection: models.CollectionBusinessRelationships,
		Field:      models.FieldCustomerID,
		Value:      customerID,
		OrderBy:    models.FieldCreatedAt,
		Direction:  docstore.Desc,
	})
	if err != nil {
		r.log.WithError(err).WithField("customer_id", customerID).Error("relationship lookup failed")
		return out
	}
	for _, doc := range docs {
		var rel models.BusinessRelationship
		if err := doc.DataTo(&rel); err != nil {
			r.log.WithError(err).WithField("relationship_id", doc.ID).Error("relationship decode failed")
			continue
		}
		out = append(out, rel)
	}
	return out
}
