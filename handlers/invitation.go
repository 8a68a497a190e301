package handlers

import (
	"errors"
	"net/http"

	"loyalty-backend/dtos"
	"loyalty-backend/linking"
	"loyalty-backend/middleware"
	"loyalty-backend/utils"

	"github.com/gin-gonic/gin"
)

type InvitationHandler struct {
	Resolver *linking.Resolver
}

// ListInvitations returns the pending invitations for a phone the caller owns.
func (h *InvitationHandler) ListInvitations(c *gin.Context) {
	phone := c.Query("phone")
	normalized := linking.NormalizePhone(phone)
	if normalized == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phone is required"})
		return
	}

	ctx := c.Request.Context()
	if !callerIsAdmin(c) && !callerPhones(ctx, h.Resolver, callerID(c))[normalized] {
		c.JSON(http.StatusForbidden, gin.H{"error": "Phone number does not belong to this account"})
		return
	}

	invitations := h.Resolver.FindInvitationsByPhone(ctx, phone)
	c.JSON(http.StatusOK, dtos.NewInvitationResponses(invitations))
}

func (h *InvitationHandler) AcceptInvitations(c *gin.Context) {
	var req dtos.AcceptInvitationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	ctx := c.Request.Context()
	customer := h.Resolver.GetCustomer(ctx, req.CustomerID)
	if customer == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Customer not found"})
		return
	}
	if !callerIsAdmin(c) {
		if customer.UserID != callerID(c) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Not your customer record"})
			return
		}
		if !customerHasPhone(customer, req.Phone) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Phone number does not belong to this customer"})
			return
		}
	}

	accepted := h.Resolver.AcceptPendingInvitations(ctx, customer.ID, req.Phone)
	c.JSON(http.StatusOK, gin.H{"accepted_invitations": accepted})
}

// DeclineInvitation lets the invited customer, or the inviting business,
// decline a pending invitation.
func (h *InvitationHandler) DeclineInvitation(c *gin.Context) {
	ctx := c.Request.Context()
	inv := h.Resolver.GetInvitation(ctx, c.Param("id"))
	if inv == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invitation not found"})
		return
	}

	allowed := callerIsAdmin(c) ||
		(inv.BusinessID != "" && c.GetString(middleware.ContextBusinessID) == inv.BusinessID) ||
		callerPhones(ctx, h.Resolver, callerID(c))[linking.NormalizePhone(inv.CustomerPhone)]
	if !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "Invitation is not addressed to this account"})
		return
	}

	if !inv.IsPending() {
		c.JSON(http.StatusConflict, gin.H{"error": "Invitation is no longer pending"})
		return
	}
	if !h.Resolver.DeclineInvitation(ctx, inv.ID) {
		c.JSON(http.StatusConflict, gin.H{"error": "Failed to decline invitation"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": inv.ID, "status": "declined"})
}

// CreateInvitation invites a phone number to the caller's business.
func (h *InvitationHandler) CreateInvitation(c *gin.Context) {
	var req dtos.CreateInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	ctx := c.Request.Context()
	businessID := c.GetString(middleware.ContextBusinessID)
	id, err := h.Resolver.CreateInvitation(ctx, businessID, req.BusinessName, req.Phone)
	if errors.Is(err, linking.ErrInvalidInput) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phone and business are required"})
		return
	}
	if err != nil {
		h.Resolver.Logger().WithError(err).WithField("business_id", businessID).Error("CreateInvitation: store write failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create invitation"})
		return
	}

	inv := h.Resolver.GetInvitation(ctx, id)
	if inv == nil {
		c.JSON(http.StatusCreated, gin.H{"id": id})
		return
	}
	c.JSON(http.StatusCreated, dtos.NewInvitationResponse(*inv))
}
