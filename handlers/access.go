package handlers

import (
	"context"

	"loyalty-backend/linking"
	"loyalty-backend/middleware"
	"loyalty-backend/models"

	"github.com/gin-gonic/gin"
)

func callerID(c *gin.Context) string {
	return c.GetString(middleware.ContextUserID)
}

func callerIsAdmin(c *gin.Context) bool {
	return c.GetString(middleware.ContextUserRole) == models.RoleAdmin
}

// callerPhones returns the normalized phone numbers the caller has proven
// ownership of: the phone on their user document and the phones of the
// customer they are linked to.
func callerPhones(ctx context.Context, r *linking.Resolver, userID string) map[string]bool {
	phones := map[string]bool{}
	add := func(p string) {
		if n := linking.NormalizePhone(p); n != "" {
			phones[n] = true
		}
	}

	user := r.GetUser(ctx, userID)
	if user == nil {
		return phones
	}
	add(user.PhoneNumber)
	if customer := r.GetCustomer(ctx, user.LinkedCustomerID); customer != nil && customer.UserID == userID {
		add(customer.Phone)
		add(customer.PhoneNormalized)
	}
	return phones
}

// customerHasPhone reports whether phone is one of the customer's numbers.
func customerHasPhone(customer *models.Customer, phone string) bool {
	n := linking.NormalizePhone(phone)
	if n == "" {
		return false
	}
	return n == linking.NormalizePhone(customer.Phone) || n == customer.PhoneNormalized
}
