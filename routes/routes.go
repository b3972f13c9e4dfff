package routes

import (
	"net/http"
	"time"

	"turbotransfer/handlers"
	"turbotransfer/middleware"
	"turbotransfer/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		health := utils.GetHealthStatus()
		status := "ok"
		if !health.Healthy() {
			status = "degraded"
		}
		c.JSON(http.StatusOK, gin.H{"status": status, "message": "Hi, I'm TurboTransfer", "health": health})
	})
}

// RegisterSessionRoutes registers pairing and session management endpoints.
func RegisterSessionRoutes(api *gin.RouterGroup, hb *handlers.HandlerBundle) {
	group := api.Group("/session")
	{
		// Public pairing endpoints.
		group.GET("/init", hb.Session.InitHandler)
		group.POST("/verify", hb.Session.VerifyHandler)

		// A peer may disconnect itself; everything else is the host's call.
		group.POST("/disconnect/:id", middleware.RequireCaller(), hb.Session.DisconnectHandler)

		host := group.Group("")
		host.Use(middleware.RequireHost())
		host.GET("/status", hb.Session.StatusHandler)
		host.POST("/block/:id", hb.Session.BlockHandler)
		host.POST("/reset", hb.Session.ResetHandler)
		host.GET("/link", hb.Session.LinkHandler)
	}
}

// RegisterFileRoutes registers transfer endpoints.
func RegisterFileRoutes(api *gin.RouterGroup, hb *handlers.HandlerBundle) {
	group := api.Group("/files")
	{
		callers := group.Group("")
		callers.Use(middleware.RequireCaller())
		callers.GET("/", hb.Files.ListHandler)
		callers.POST("/upload", hb.Files.UploadHandler)
		callers.POST("/delete", hb.Files.DeleteHandler)
		callers.POST("/zip", hb.Files.ZipHandler)
		callers.GET("/download/*name", hb.Files.DownloadHandler)
		callers.GET("/thumbnail/*name", hb.Files.ThumbnailHandler)

		host := group.Group("")
		host.Use(middleware.RequireHost())
		host.GET("/config", hb.Files.GetConfigHandler)
		host.POST("/config", hb.Files.UpdateConfigHandler)
		host.GET("/analytics/history", hb.Files.AnalyticsHandler)
		host.POST("/purge", hb.Files.PurgeHandler)
	}
}

// RegisterHostRoutes registers host information, clipboard and power endpoints.
func RegisterHostRoutes(api *gin.RouterGroup, hb *handlers.HandlerBundle) {
	group := api.Group("/host")
	{
		group.GET("/info", hb.Host.InfoHandler)
		group.GET("/clipboard", middleware.RequireCaller(), hb.Host.GetClipboardHandler)
		group.POST("/clipboard", middleware.RequireCaller(), hb.Host.SetClipboardHandler)
		group.POST("/command", middleware.RequireSession(), hb.Host.CommandHandler)
	}
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type",
			utils.HeaderSessionID, utils.HeaderIsHost, utils.HeaderFilename, utils.HeaderFilesize,
		},
		ExposeHeaders: []string{"Content-Length", "Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}))

	RegisterHealthRoute(r)

	api := r.Group("/api")
	api.Use(middleware.IdentifyCaller(hb.Sessions, hb.HostLoopbackOnly))
	RegisterSessionRoutes(api, hb)
	RegisterFileRoutes(api, hb)
	RegisterHostRoutes(api, hb)
}
