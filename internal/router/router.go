package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/qbank-core/internal/auth"
	"github.com/stemsi/qbank-core/internal/config"
	"github.com/stemsi/qbank-core/internal/handler"
	"github.com/stemsi/qbank-core/internal/middleware"
	"github.com/stemsi/qbank-core/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Question   *handler.QuestionHandler
	ChangeFeed *handler.ChangeFeedHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	tokens *auth.TokenService,
	handlers *Handlers,
	writeLimiter *middleware.RateLimiter,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.RequestLogger(log))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// ─── Question bank API (JWT) ───────────────────────────────────────
	questions := router.Group("/api/v1/users/:user_id/question-banks/:bank_id/questions")
	questions.Use(middleware.RequireJWT(tokens), middleware.NoStore())
	{
		reads := questions.Group("")
		reads.Use(middleware.Brotli())
		{
			reads.GET("", handlers.Question.ListQuestions)
			reads.GET("/:source_id", handlers.Question.GetQuestion)
		}

		writes := questions.Group("")
		writes.Use(writeLimiter.Middleware())
		{
			writes.PUT("/:source_id", handlers.Question.UpsertQuestion)
			writes.POST("/:source_id/publish", handlers.Question.PublishQuestion)
			writes.POST("/:source_id/archive", handlers.Question.ArchiveQuestion)
		}
	}

	// ─── Change feed (WebSocket, JWT header or ?token=) ───────────────
	router.GET("/api/v1/users/:user_id/question-banks/:bank_id/changes",
		middleware.RequireJWT(tokens), handlers.ChangeFeed.StreamChanges)

	router.NoRoute(func(c *gin.Context) {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	})

	return router
}
