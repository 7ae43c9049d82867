package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/finportal/marketing-console-backend/internal/config"
	"github.com/finportal/marketing-console-backend/internal/handlers"
	"github.com/finportal/marketing-console-backend/internal/middleware"
	"github.com/finportal/marketing-console-backend/internal/services"
	"github.com/finportal/marketing-console-backend/internal/services/api_key"
	"github.com/finportal/marketing-console-backend/internal/services/auth"
	"github.com/finportal/marketing-console-backend/internal/services/excel"
)

// Services are the shared service instances the routes are built on
type Services struct {
	Attributes *services.AttributeService
	Contacts   *services.ContactService
	Segments   *services.SegmentService
	Campaigns  *services.CampaignService
	Projects   *services.ProjectService
	APIKeys    *api_key.Service
	Auth       *auth.AuthService
	Excel      *excel.Service
	SSEHub     *services.SSEHub
}

// SetupRouter configures the Gin router with every API route
func SetupRouter(cfg *config.Config, svc Services) *gin.Engine {
	gin.SetMode(cfg.GinMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Tracing(cfg.Telemetry.ServiceName))
	r.Use(middleware.Logger())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Admin-Token"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: !allowsAnyOrigin(cfg.CORSOrigins),
		MaxAge:           12 * time.Hour,
	}))

	apiKeyMiddleware := middleware.NewAPIKeyMiddleware(svc.APIKeys)
	bearerTokenMiddleware := middleware.NewBearerTokenMiddleware(svc.Auth)

	authHandler := handlers.NewAuthHandler(svc.Auth)
	adminHandler := handlers.NewAdminHandler(svc.Projects, svc.Auth)
	apiKeyHandler := handlers.NewAPIKeyHandler(svc.APIKeys)
	attributeHandler := handlers.NewAttributeHandler(svc.Attributes)
	contactHandler := handlers.NewContactHandler(svc.Contacts, svc.Segments)
	campaignHandler := handlers.NewCampaignHandler(svc.Campaigns)
	excelHandler := handlers.NewExcelHandler(svc.Campaigns, svc.Excel)
	progressHandler := handlers.NewProgressHandler(svc.Campaigns, svc.SSEHub, 0)

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	logrus.Info("Swagger UI endpoint registered at /swagger/index.html")

	api := r.Group("/api/v1")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status": "ok",
				"time":   time.Now().Format(time.RFC3339),
			})
		})

		admin := api.Group("/admin")
		admin.Use(middleware.AdminTokenMiddleware(cfg.Auth.AdminToken))
		{
			admin.POST("/projects", adminHandler.CreateProject)
			admin.GET("/projects/:id", adminHandler.GetProject)
			admin.POST("/projects/:id/token", adminHandler.IssueToken)
		}

		protected := api.Group("")
		protected.Use(apiKeyMiddleware.APIKeyAuthMiddleware())
		protected.Use(bearerTokenMiddleware.BearerTokenAuthMiddleware())
		{
			authGroup := protected.Group("/auth")
			{
				authGroup.POST("/token", authHandler.Token)
				authGroup.GET("/me", authHandler.Me)
			}

			apiKeys := protected.Group("/api-keys")
			{
				apiKeys.POST("", apiKeyHandler.Generate)
				apiKeys.GET("", apiKeyHandler.List)
				apiKeys.DELETE("/:id", apiKeyHandler.Revoke)
			}

			attributes := protected.Group("/attributes")
			{
				attributes.POST("", attributeHandler.RegisterAttributes)
				attributes.GET("", attributeHandler.ListAttributes)
				attributes.PUT("/:key", attributeHandler.UpdateAttribute)
				attributes.DELETE("/:key", attributeHandler.DeleteAttribute)
			}

			contacts := protected.Group("/contacts")
			{
				contacts.POST("", contactHandler.CreateContact)
				contacts.POST("/import", contactHandler.ImportContacts)
				contacts.GET("", contactHandler.ListContacts)
				contacts.GET("/:id", contactHandler.GetContact)
			}

			protected.POST("/segments/preview", contactHandler.PreviewSegment)

			campaigns := protected.Group("/campaigns")
			{
				campaigns.POST("", campaignHandler.CreateCampaign)
				campaigns.GET("", campaignHandler.ListCampaigns)
				campaigns.GET("/:id", campaignHandler.GetCampaign)
				campaigns.PUT("/:id", campaignHandler.UpdateCampaign)
				campaigns.DELETE("/:id", campaignHandler.DeleteCampaign)
				campaigns.POST("/:id/execute", campaignHandler.Execute)
				campaigns.POST("/:id/activate", campaignHandler.Activate)
				campaigns.POST("/:id/pause", campaignHandler.Pause)
				campaigns.POST("/:id/cancel", campaignHandler.Cancel)
				campaigns.POST("/:id/duplicate", campaignHandler.Duplicate)
				campaigns.POST("/:id/test-send", campaignHandler.TestSend)
				campaigns.POST("/:id/test-send-custom", campaignHandler.TestSendCustom)
				campaigns.POST("/:id/retry-failed", campaignHandler.RetryFailed)
				campaigns.POST("/:id/preview", campaignHandler.Preview)
				campaigns.GET("/:id/messages", campaignHandler.ListMessages)
				campaigns.GET("/:id/messages/export", excelHandler.ExportCampaignMessages)
				campaigns.GET("/:id/events", progressHandler.StreamProgress)
			}
		}
	}

	return r
}

func allowsAnyOrigin(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
