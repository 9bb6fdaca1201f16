// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"fleetops/internal/http/handlers"
	"fleetops/internal/http/middleware"
	"fleetops/internal/infra"
)

func NewRouter(session handlers.Session, verifier infra.TokenVerifier, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(log), middleware.Logging(log))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	api := r.Group("/api", middleware.Auth(verifier))
	// token rotation and ride mutations need an operator role claim
	ops := api.Group("", middleware.RequireRole("operator", "admin"))

	sessionHandler := handlers.NewSessionHandler(session, log)
	api.GET("/session", sessionHandler.Get)
	ops.PUT("/session/token", sessionHandler.RotateToken)

	fleetHandler := handlers.NewFleetHandler(session)
	api.GET("/drivers", fleetHandler.ListDrivers)
	api.GET("/drivers/:id", fleetHandler.GetDriver)
	api.GET("/rides", fleetHandler.ListRides)
	api.GET("/rides/:id", fleetHandler.GetRide)
	api.GET("/schedules", fleetHandler.Schedules)

	dispatchHandler := handlers.NewDispatchHandler(session)
	ops.POST("/rides/:id/assign", dispatchHandler.Assign)
	ops.POST("/rides/:id/cancel", dispatchHandler.Cancel)
	ops.POST("/rides/:id/reassign", dispatchHandler.Reassign)
	ops.POST("/dispatch/batch", dispatchHandler.Batch)
	ops.POST("/dispatch/window", dispatchHandler.Window)
	ops.POST("/dispatch/high-price", dispatchHandler.HighPrice)

	billingHandler := handlers.NewBillingHandler(session)
	api.GET("/billing", billingHandler.Report)
	api.GET("/billing/reports", billingHandler.History)
	api.GET("/billing/reports/:id", billingHandler.ArchivedReport)

	return r
}
