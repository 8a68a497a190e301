package handlers

import (
	"net/http"

	"loyalty-backend/dtos"
	"loyalty-backend/linking"
	"loyalty-backend/middleware"
	"loyalty-backend/utils"

	"github.com/gin-gonic/gin"
)

type CustomerHandler struct {
	Resolver *linking.Resolver
}

// RegisterLink links the caller's new account to a customer record and accepts
// any invitations waiting for their phone. The phone must be the one on the
// caller's user document. A failed link is reported in the body, never as an
// error status.
func (h *CustomerHandler) RegisterLink(c *gin.Context) {
	var req dtos.RegisterLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	ctx := c.Request.Context()
	resp := dtos.RegisterLinkResponse{AcceptedInvitations: []string{}}
	if req.Phone == "" {
		c.JSON(http.StatusOK, resp)
		return
	}

	user := h.Resolver.GetUser(ctx, callerID(c))
	if !callerIsAdmin(c) {
		if user == nil || !linking.PhoneEqual(user.PhoneNumber, req.Phone) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Phone number does not belong to this account"})
			return
		}
	}
	if user != nil && user.LinkedCustomerID != "" {
		linked := h.Resolver.GetCustomer(ctx, user.LinkedCustomerID)
		if linked == nil || !customerHasPhone(linked, req.Phone) {
			c.JSON(http.StatusOK, resp)
			return
		}
	}

	email := req.Email
	if email == "" {
		email = c.GetString(middleware.ContextUserEmail)
	}

	resp.CustomerID = h.Resolver.ProcessUserRegistration(ctx, callerID(c), req.Phone, email, req.Name)
	if resp.CustomerID != "" {
		resp.Linked = true
		resp.AcceptedInvitations = h.Resolver.AcceptPendingInvitations(ctx, resp.CustomerID, req.Phone)
	}

	c.JSON(http.StatusOK, resp)
}

// LinkCustomer claims a customer record for the caller. Only admins and users
// holding one of the customer's phone numbers may claim it.
func (h *CustomerHandler) LinkCustomer(c *gin.Context) {
	ctx := c.Request.Context()
	customerID := c.Param("id")

	if customer := h.Resolver.GetCustomer(ctx, customerID); customer != nil && !callerIsAdmin(c) {
		owns := false
		for phone := range callerPhones(ctx, h.Resolver, callerID(c)) {
			if customerHasPhone(customer, phone) {
				owns = true
				break
			}
		}
		if !owns {
			c.JSON(http.StatusForbidden, gin.H{"error": "Phone number does not match this customer"})
			return
		}
	}

	linked := h.Resolver.LinkUserToCustomer(ctx, callerID(c), customerID)
	c.JSON(http.StatusOK, gin.H{"linked": linked, "customer_id": customerID})
}

func (h *CustomerHandler) LookupCustomer(c *gin.Context) {
	phone := c.Query("phone")
	if linking.NormalizePhone(phone) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phone is required"})
		return
	}

	customer := h.Resolver.FindCustomerByPhone(c.Request.Context(), phone)
	if customer == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Customer not found"})
		return
	}
	c.JSON(http.StatusOK, dtos.NewCustomerResponse(customer))
}

func (h *CustomerHandler) GetRelationships(c *gin.Context) {
	ctx := c.Request.Context()
	customer := h.Resolver.GetCustomer(ctx, c.Param("id"))
	if customer == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Customer not found"})
		return
	}
	if !callerIsAdmin(c) && customer.UserID != callerID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not your customer record"})
		return
	}

	rels := h.Resolver.ListRelationships(ctx, customer.ID)
	c.JSON(http.StatusOK, dtos.NewRelationshipResponses(rels))
}
