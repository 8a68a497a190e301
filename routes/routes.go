package routes

import (
	"time"

	"loyalty-backend/handlers"
	"loyalty-backend/linking"
	"loyalty-backend/middleware"
	"loyalty-backend/models"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, resolver *linking.Resolver) {
	// Initialize handlers
	customerHandler := &handlers.CustomerHandler{Resolver: resolver}
	invitationHandler := &handlers.InvitationHandler{Resolver: resolver}

	// Phone lookups reveal whether a number is a customer; keep them slow.
	lookupLimiter := middleware.NewRateLimiter(30, time.Minute)

	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware())
	{
		// Account linking
		api.POST("/customers/register-link", customerHandler.RegisterLink)
		api.POST("/customers/:id/link", customerHandler.LinkCustomer)
		api.GET("/customers/:id/relationships", customerHandler.GetRelationships)

		// Invitations addressed to the caller
		api.GET("/invitations", invitationHandler.ListInvitations)
		api.POST("/invitations/accept", invitationHandler.AcceptInvitations)
		api.POST("/invitations/:id/decline", invitationHandler.DeclineInvitation)
	}

	// Staff-side customer lookup
	lookup := api.Group("")
	lookup.Use(middleware.RequireRoles(models.RoleBusiness, models.RoleStaff, models.RoleAdmin))
	lookup.Use(lookupLimiter.Middleware())
	{
		lookup.GET("/customers/lookup", customerHandler.LookupCustomer)
	}

	// Business routes (require a business in the token)
	business := api.Group("/business")
	business.Use(middleware.RequireRoles(models.RoleBusiness, models.RoleStaff))
	business.Use(middleware.BusinessMiddleware())
	{
		business.POST("/invitations", invitationHandler.CreateInvitation)
	}

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
}
