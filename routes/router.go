package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/cppla/discourse/board"
	"github.com/cppla/discourse/config"
	"github.com/cppla/discourse/controllers"
	"github.com/cppla/discourse/gateway"
	"github.com/cppla/discourse/metrics"
	"github.com/cppla/discourse/middleware"
	"github.com/cppla/discourse/utils"
)

// Deps is everything the HTTP surface is built from.
type Deps struct {
	Config  config.AppConfig
	Gateway gateway.Gateway
	Board   *board.Board
	Boot    *board.Bootstrapper
	Drafts  *board.DraftStore
	Prefs   *board.PreferenceStore
	// StorageRoot is served under /storage when objects live on local disk.
	StorageRoot string
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(d Deps) *gin.Engine {
	cfg := d.Config
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}
	controllers.RegisterValidators()

	r := gin.New()
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		r.Use(utils.RecoveryWithZap(utils.Logger, false))
	}
	r.Use(metrics.Middleware())

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", middleware.TokenHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	if d.StorageRoot != "" {
		r.Static("/storage", d.StorageRoot)
	}

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok", "gateway": cfg.GatewayDriver})
	})
	r.GET("/metrics", metrics.Handler())

	postController := controllers.NewPostController(d.Board, d.Prefs)
	draftController := controllers.NewDraftController(d.Board, d.Drafts, int64(cfg.MaxUploadMB)<<20)
	authController := controllers.NewAuthController(d.Gateway)
	configController := controllers.NewConfigController(d.Prefs)

	secure := strings.HasPrefix(cfg.PublicBaseURL, "https://")
	api := r.Group("/api/v1")
	api.Use(middleware.RateLimitMiddleware(cfg.RateLimitPerMinute), middleware.Session(d.Boot, secure))

	api.GET("/session", authController.Me)
	api.GET("/categories", configController.GetCategories)
	api.GET("/posts", postController.ListPosts)
	api.GET("/posts/trending", postController.Trending)
	api.GET("/posts/:id", postController.GetPost)

	protected := api.Group("")
	protected.Use(middleware.SessionRequired())
	protected.DELETE("/session", authController.Logout)

	protected.POST("/posts", draftController.Publish)
	protected.POST("/posts/:id/vote", postController.Vote)
	protected.POST("/posts/:id/comments", postController.CreateComment)
	protected.PUT("/posts/:id", postController.UpdatePost)
	protected.DELETE("/posts/:id", postController.DeletePost)

	protected.POST("/drafts", draftController.CreateDraft)
	protected.GET("/drafts/:id", draftController.GetDraft)
	protected.PATCH("/drafts/:id", draftController.StageDraft)
	protected.DELETE("/drafts/:id", draftController.DeleteDraft)
	protected.POST("/drafts/:id/image", draftController.UploadImage)
	protected.DELETE("/drafts/:id/image", draftController.RemoveImage)
	protected.POST("/drafts/:id/next", draftController.Next)
	protected.POST("/drafts/:id/back", draftController.Back)
	protected.POST("/drafts/:id/submit", draftController.Submit)

	protected.GET("/preferences/theme", configController.GetTheme)
	protected.PUT("/preferences/theme", configController.PutTheme)
	protected.POST("/preferences/theme/toggle", configController.ToggleTheme)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		ctx.JSON(http.StatusNotFound, gin.H{"message": "not found"})
	})

	return r
}
