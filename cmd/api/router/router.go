package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"chat-layer/assistant"
	"chat-layer/cmd/api/handlers"
	"chat-layer/cmd/api/middleware"
	"chat-layer/cmd/api/services"
	"chat-layer/config"
	"chat-layer/db"
	_ "chat-layer/docs"
	"chat-layer/engine"
	"chat-layer/eventbus"
	"chat-layer/repositories"
)

func New(authSvc *services.AuthService, bus eventbus.EventBus) *gin.Engine {
	r := gin.Default()

	// The widget is embedded on third-party origins, so CORS stays open.
	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Fingerprint", "X-Request-Id"}
	r.Use(cors.New(corsCfg))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		if err := db.Client().Ping(ctx, readpref.Primary()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "mongo": "down", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Swagger
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	cfg := config.GetConfig()
	database := db.Database()

	sessionsRepo := repositories.NewChatSessionRepository(database)
	messagesRepo := repositories.NewChatMessageRepository(database)
	metricsRepo := repositories.NewUsageMetricRepository(database)
	assistantsRepo := repositories.NewAssistantRepository(database)
	webhooksRepo := repositories.NewWebhookRepository(database)
	suggestionsRepo := repositories.NewSuggestionRepository(database)

	orch := assistant.New(assistant.Config{
		Engine:          engine.New(cfg.Engine.BaseURL, config.EngineAPIKey()),
		Sessions:        sessionsRepo,
		Messages:        messagesRepo,
		PollInterval:    cfg.Engine.PollInterval,
		ToolWaitTimeout: cfg.Engine.ToolWaitTimeout,
	})

	convSvc := services.NewConversationService(orch, sessionsRepo, messagesRepo, metricsRepo, bus)
	sugSvc := services.NewSuggestionService(sessionsRepo, messagesRepo, suggestionsRepo)
	asstSvc := services.NewAssistantService(assistantsRepo)
	whSvc := services.NewWebhookService(webhooksRepo)
	anaSvc := services.NewAnalyticsService(metricsRepo)

	// v1 routes
	api := r.Group("/api/v1")
	api.Use(middleware.RequestTrace(), middleware.Fingerprint())
	{
		api.POST("/threads", handlers.StartThreadHandler(convSvc))
		api.POST("/threads/stream", handlers.StartThreadStreamHandler(convSvc))
		api.POST("/threads/:thread_id/messages", handlers.AddMessageHandler(convSvc))
		api.POST("/threads/:thread_id/runs", handlers.CreateRunHandler(convSvc))
		api.POST("/threads/:thread_id/runs/stream", handlers.CreateRunStreamHandler(convSvc))
		api.POST("/threads/:thread_id/runs/:run_id/submit", handlers.SubmitToolOutputsHandler(convSvc))
		api.POST("/threads/:thread_id/runs/:run_id/submit/stream", handlers.SubmitToolOutputsStreamHandler(convSvc))

		api.GET("/sessions", handlers.ListSessionsHandler(convSvc))
		api.GET("/sessions/:session_id", handlers.GetSessionHandler(convSvc))
		api.DELETE("/sessions/:session_id", handlers.DeleteSessionHandler(convSvc))
		api.POST("/sessions/:session_id/suggestions", handlers.GenerateSuggestionsHandler(sugSvc))
		api.GET("/sessions/:session_id/suggestions", handlers.ListSuggestionsHandler(sugSvc))

		api.POST("/admin/login", handlers.AdminLoginHandler(authSvc))

		admin := api.Group("/admin")
		admin.Use(middleware.AdminAuthMiddleware(authSvc))
		{
			admin.POST("/assistants", handlers.CreateAssistantHandler(asstSvc))
			admin.GET("/assistants", handlers.ListAssistantsHandler(asstSvc))
			admin.GET("/assistants/:assistant_id", handlers.GetAssistantHandler(asstSvc))
			admin.PUT("/assistants/:assistant_id", handlers.UpdateAssistantHandler(asstSvc))
			admin.DELETE("/assistants/:assistant_id", handlers.DeleteAssistantHandler(asstSvc))

			admin.POST("/webhooks", handlers.CreateWebhookHandler(whSvc))
			admin.GET("/webhooks", handlers.ListWebhooksHandler(whSvc))
			admin.GET("/webhooks/:webhook_id", handlers.GetWebhookHandler(whSvc))
			admin.DELETE("/webhooks/:webhook_id", handlers.DeleteWebhookHandler(whSvc))

			admin.GET("/analytics/usage", handlers.UsageSummaryHandler(anaSvc))
		}
	}

	return r
}
