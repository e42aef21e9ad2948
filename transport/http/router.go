package http

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/layer-3/trusttag/ports"
	"github.com/layer-3/trusttag/service"
)

// RouterConfig holds the transport settings
type RouterConfig struct {
	Cookie         CookieConfig
	AllowedOrigins []string
	// WorldID enables /api/verify-human when set
	WorldID ports.WorldIDVerifier
}

// SetupRouter sets up the Gin router
func SetupRouter(authService *service.AuthService, cfg RouterConfig, logger *log.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(logger))

	// Cookies only travel cross-origin with credentials and explicit origins
	if len(cfg.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	handlers := NewAuthHandlers(authService, cfg.Cookie, logger)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Both prefixed and bare paths are served for older frontends
	for _, prefix := range []string{"", "/api"} {
		router.GET(prefix+"/nonce", handlers.Nonce)
		router.POST(prefix+"/complete-siwe", handlers.CompleteSiwe)
	}

	api := router.Group("/api")
	api.Use(AuthMiddleware(authService))
	{
		api.GET("/me", handlers.Me)
		api.POST("/logout", handlers.Logout)
		if cfg.WorldID != nil {
			api.POST("/verify-human", WorldIDGuard(cfg.WorldID, logger), handlers.VerifyHuman)
		}
	}

	return router
}
