package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/tutorease/tutorease-api/internal/middleware"
	"github.com/tutorease/tutorease-api/internal/models"
	"github.com/tutorease/tutorease-api/internal/service"
)

// RouterDeps groups everything route registration needs.
type RouterDeps struct {
	Auth        *AuthHandler
	Offerings   *OfferingHandler
	Bookings    *BookingHandler
	Assignments *AssignmentHandler
	Dashboard   *DashboardHandler
	AuthService *service.AuthService
}

// RegisterRoutes mounts the versioned API surface.
func RegisterRoutes(r *gin.Engine, deps RouterDeps) {
	v1 := r.Group("/api/v1")

	auth := v1.Group("/auth")
	{
		auth.POST("/register", deps.Auth.Register)
		auth.POST("/login", deps.Auth.Login)
		auth.POST("/refresh", deps.Auth.Refresh)
		auth.POST("/logout", middleware.JWT(deps.AuthService), deps.Auth.Logout)
		auth.GET("/me", middleware.JWT(deps.AuthService), deps.Auth.Me)
	}

	// The payment gateway calls back without a user token.
	v1.POST("/payments/:id/callback", deps.Bookings.PaymentCallback)

	authed := v1.Group("")
	authed.Use(middleware.JWT(deps.AuthService))

	offerings := authed.Group("/offerings")
	{
		offerings.GET("", deps.Offerings.Search)
		offerings.GET("/:id", deps.Offerings.Get)
		offerings.POST("", middleware.RequireRoles(models.RoleTutor), deps.Offerings.Create)
		offerings.PUT("/:id", middleware.RequireRoles(models.RoleTutor), deps.Offerings.Update)
		offerings.DELETE("/:id", middleware.RequireRoles(models.RoleTutor), deps.Offerings.Deactivate)
	}
	authed.GET("/me/offerings", middleware.RequireRoles(models.RoleTutor), deps.Offerings.Mine)
	authed.GET("/tutors/:id/ratings", deps.Bookings.TutorRatings)

	bookings := authed.Group("/bookings")
	{
		bookings.GET("", deps.Bookings.List)
		bookings.GET("/:id", deps.Bookings.Get)
		bookings.POST("", middleware.RequireRoles(models.RoleStudent), deps.Bookings.Create)
		bookings.POST("/:id/confirm", middleware.RequireRoles(models.RoleTutor), deps.Bookings.Confirm)
		bookings.POST("/:id/start", middleware.RequireRoles(models.RoleTutor), deps.Bookings.Start)
		bookings.POST("/:id/cancel", deps.Bookings.Cancel)
		bookings.POST("/:id/payment", middleware.RequireRoles(models.RoleStudent), deps.Bookings.InitiatePayment)
		bookings.POST("/:id/mark-paid", middleware.RequireRoles(models.RoleTutor), deps.Bookings.MarkPhysicalPaid)
		bookings.POST("/:id/rate", middleware.RequireRoles(models.RoleStudent), deps.Bookings.Rate)
	}

	assignments := authed.Group("/assignments")
	{
		assignments.GET("", deps.Assignments.List)
		assignments.GET("/:id", deps.Assignments.Get)
		assignments.POST("", middleware.RequireRoles(models.RoleTutor), deps.Assignments.Create)
		assignments.POST("/:id/submit", middleware.RequireRoles(models.RoleStudent), deps.Assignments.Submit)
		assignments.POST("/:id/complete", middleware.RequireRoles(models.RoleTutor), deps.Assignments.MarkCompleted)
		assignments.POST("/:id/feedback", middleware.RequireRoles(models.RoleTutor), deps.Assignments.Feedback)
	}

	dashboard := authed.Group("/dashboard")
	{
		dashboard.GET("/admin", middleware.RequireRoles(models.RoleAdmin), deps.Dashboard.Admin)
		dashboard.GET("/tutor", middleware.RequireRoles(models.RoleTutor), deps.Dashboard.Tutor)
	}
}
