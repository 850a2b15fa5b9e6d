package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dpm2/maintenance-api/pkg/models"
)

// Version is reported by the service banner
const Version = "1.0.0"

// Register mounts every route on r. metrics may be nil.
func (h *Handler) Register(r *gin.Engine, metrics http.Handler) {
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Maintenance Dispatch API",
			"version": Version,
		})
	})
	r.GET("/healthz", h.Health)
	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics))
	}
	r.POST("/auth/login", h.Login)

	api := r.Group("/api")
	api.Use(h.AuthMiddleware())
	{
		api.GET("/me", h.Me)
		api.PUT("/users/:id/password", h.ChangePassword)

		api.POST("/requests", h.CreateRequest)
		api.GET("/requests", h.ListRequests)
		api.GET("/requests/:id", h.GetRequest)
		api.PUT("/requests/:id/status", h.UpdateRequestStatus)
		api.POST("/requests/:id/assign", h.RequireRole(models.RoleAdmin, models.RoleManager), h.AssignTechnician)

		api.GET("/technicians", h.ListTechnicians)
		api.GET("/technicians/:id", h.GetTechnician)
		api.GET("/technicians/:id/jobs", h.TechnicianJobs)
		api.PUT("/technicians/:id/availability", h.SetAvailability)
		api.POST("/technicians/:id/schedule", h.AddSchedule)
		api.GET("/technicians/:id/schedule", h.ListSchedule)
		api.POST("/technicians/:id/ratings", h.RequireRole(models.RoleTenant), h.RateTechnician)
	}

	admin := r.Group("/admin")
	admin.Use(h.AuthMiddleware(), h.RequireRole(models.RoleAdmin, models.RoleManager))
	{
		admin.POST("/users", h.CreateUser)
		admin.GET("/users/:id", h.GetUser)
		admin.PUT("/users/:id", h.UpdateUser)
		admin.DELETE("/users/:id", h.DeleteUser)
		admin.PUT("/users/:id/password-reset", h.ResetPassword)

		admin.GET("/properties", h.ListProperties)
		admin.POST("/properties", h.CreateProperty)
		admin.GET("/properties/:id", h.GetProperty)
		admin.PUT("/properties/:id", h.UpdateProperty)
		admin.DELETE("/properties/:id", h.DeleteProperty)

		admin.POST("/keys", h.GenerateKey)
		admin.GET("/keys", h.ListKeys)
		admin.DELETE("/keys/:id", h.RevokeKey)
		admin.GET("/keys/:id/usage", h.GetUsage)

		admin.GET("/dispatch/state", h.GetDispatchState)
		admin.PUT("/dispatch/state", h.SetDispatchState)
	}

	integrations := r.Group("/integrations")
	integrations.Use(h.APIKeyMiddleware())
	{
		integrations.GET("/me", h.GetMyUsage)
		integrations.POST("/requests/:id/assign", h.IntegrationAssign)
	}
}

// Health reports whether the database answers
func (h *Handler) Health(c *gin.Context) {
	sqlDB, err := h.Store.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
