package main

import (
	"github.com/gin-gonic/gin"

	"balramcms/api/handlers"
	"balramcms/api/middleware"
	"balramcms/api/utils"
)

type routerDeps struct {
	CORSOrigins []string
	JWT         *utils.JWTManager

	Telemetry  *handlers.TelemetryHandlers
	Shops      *handlers.ShopHandlers
	Properties *handlers.PropertyHandlers
	Auth       *handlers.AuthHandlers
	System     *handlers.SystemHandlers
}

// newRouter mounts every route under /api. Catalog mutations need a JWT;
// telemetry and reads are public.
func newRouter(d routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORSMiddleware(d.CORSOrigins))

	api := r.Group("/api")
	{
		api.GET("/health", d.System.Health)
		api.GET("/metrics", d.System.MetricsText)

		telemetry := api.Group("/telemetry")
		{
			telemetry.POST("", d.Telemetry.Ingest)
			telemetry.GET("/analytics", d.Telemetry.Analytics)
			telemetry.GET("/realtime", d.Telemetry.Realtime)
		}

		auth := api.Group("/auth")
		{
			auth.POST("/signup", d.Auth.Signup)
			auth.POST("/login", d.Auth.Login)
			auth.POST("/logout", d.Auth.Logout)
		}

		requireAuth := middleware.AuthRequired(d.JWT)

		shops := api.Group("/shops")
		{
			shops.GET("", d.Shops.List)
			shops.GET("/:id", d.Shops.Get)
			shops.POST("", requireAuth, d.Shops.Create)
			shops.PUT("/:id", requireAuth, d.Shops.Update)
			shops.DELETE("/:id", requireAuth, d.Shops.Delete)
		}

		properties := api.Group("/properties")
		{
			properties.GET("", d.Properties.List)
			properties.GET("/:id", d.Properties.Get)
			properties.POST("", requireAuth, d.Properties.Create)
			properties.PUT("/:id", requireAuth, d.Properties.Update)
			properties.DELETE("/:id", requireAuth, d.Properties.Delete)
		}
	}

	d.System.RegisterRoutes(r)
	r.NoRoute(d.System.NotFound)
	return r
}
