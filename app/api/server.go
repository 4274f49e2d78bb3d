package api

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// NewServer creates the HTTP server with all routes configured
func NewServer(handler *Handler, apiAccessKey string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	r.Use(gin.Recovery())

	// CORS middleware for API endpoints
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, X-API-Key, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	setupRoutes(r, handler, apiAccessKey)

	return r
}

// setupRoutes configures all the application routes
func setupRoutes(r *gin.Engine, handler *Handler, apiAccessKey string) {
	r.POST("/upload/article", handler.UploadArticle)
	r.POST("/upload/template", handler.UploadTemplate)

	r.GET("/articles", handler.ListArticles)
	r.GET("/articles/:id", handler.GetArticle)
	r.PATCH("/articles/:id", handler.PatchArticle)
	r.DELETE("/articles/:id", handler.DeleteArticle)
	r.GET("/articles/:id/preview", handler.GetArticlePreview)
	r.POST("/articles/sort", handler.SortArticles)

	r.GET("/settings", handler.GetSettings)
	r.PUT("/settings", handler.PutSettings)

	r.GET("/formats", handler.ListFormats)
	r.GET("/journal/preview", handler.GetJournalPreview)

	r.POST("/generate", handler.Generate)
	r.GET("/generate/:id/status", handler.GetGenerationStatus)
	r.GET("/generate/:id/download", handler.DownloadGeneration)

	r.POST("/archive", handler.CreateArchiveEntry)
	r.GET("/archive", handler.ListArchive)
	r.GET("/archive/years", handler.ListArchiveYears)
	r.GET("/archive/:id", handler.GetArchiveEntry)
	r.GET("/archive/:id/download", handler.DownloadArchiveEntry)

	// Archive deletion is destructive and guarded when a key is configured.
	if apiAccessKey != "" {
		r.DELETE("/archive/:id", authMiddleware(apiAccessKey), handler.DeleteArchiveEntry)
		log.Printf("Archive deletion enabled with authentication")
	} else {
		r.DELETE("/archive/:id", handler.DeleteArchiveEntry)
		log.Printf("Archive deletion enabled without authentication (API_ACCESS_KEY not set)")
	}

	r.GET("/health", handler.GetHealth)
	r.GET("/stats", handler.GetStats)

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"service":     "Zhurnal",
			"description": "Journal assembly service: upload articles, sort, plan, generate and archive PDF issues",
			"endpoints": map[string]string{
				"upload":   "/upload/article (POST, multipart)",
				"articles": "/articles?session_id=<id>",
				"settings": "/settings?session_id=<id>",
				"preview":  "/journal/preview?session_id=<id>",
				"generate": "/generate (POST)",
				"archive":  "/archive",
				"health":   "/health",
				"stats":    "/stats",
			},
		})
	})

	// Favicon handler (return 204 to avoid 404s)
	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(204)
	})
}

// authMiddleware creates authentication middleware for guarded endpoints
func authMiddleware(apiAccessKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		providedKey := c.GetHeader("X-API-Key")

		if providedKey == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				providedKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if providedKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "API key required",
				"message": "Provide API key in X-API-Key header or Authorization: Bearer <key>",
			})
			c.Abort()
			return
		}

		if providedKey != apiAccessKey {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid API key",
				"message": "The provided API key is not valid",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
