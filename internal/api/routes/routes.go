package routes

import (
	"time"

	"pairplan-service/internal/api/handlers"
	"pairplan-service/internal/api/middleware"
	"pairplan-service/internal/config"
	"pairplan-service/internal/database"
	"pairplan-service/internal/realtime"
	"pairplan-service/internal/repositories/postgres"
	"pairplan-service/internal/services"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

type Router struct {
	engine              *gin.Engine
	authHandler         *handlers.AuthHandler
	userHandler         *handlers.UserHandler
	partnerHandler      *handlers.PartnerHandler
	eventHandler        *handlers.EventHandler
	taskHandler         *handlers.TaskHandler
	proposalHandler     *handlers.ProposalHandler
	availabilityHandler *handlers.AvailabilityHandler
	wsHandler           *handlers.WSHandler
	rateLimitMW         *middleware.RateLimitMiddleware
	authMW              *middleware.AuthMiddleware
}

func NewRouter(
	cfg *config.Config,
	db *gorm.DB,
	redisClient *database.RedisClient,
	minioClient *database.MinIOClient,
	manager *realtime.Manager,
	dispatcher *realtime.Dispatcher,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS())
	engine.Use(middleware.LogApi())

	// Repositories
	userRepo := postgres.NewUserRepository(db)
	partnershipRepo := postgres.NewPartnershipRepository(db)
	eventRepo := postgres.NewEventRepository(db)
	taskRepo := postgres.NewTaskRepository(db)
	proposalRepo := postgres.NewProposalRepository(db)

	// Services
	redisService := services.NewRedisService(redisClient)
	userService := services.NewUserService(userRepo, minioClient, cfg.JWT.Secret, cfg.JWT.ExpirationTime)
	partnerService := services.NewPartnerService(partnershipRepo, userRepo, dispatcher)
	eventService := services.NewEventService(eventRepo, partnerService, redisService, dispatcher)
	taskService := services.NewTaskService(taskRepo, partnerService)
	proposalService := services.NewProposalService(proposalRepo, eventService, partnerService, dispatcher)
	availabilityService := services.NewAvailabilityService(eventRepo, partnerService, redisService)

	return &Router{
		engine:              engine,
		authHandler:         handlers.NewAuthHandler(userService),
		userHandler:         handlers.NewUserHandler(userService),
		partnerHandler:      handlers.NewPartnerHandler(partnerService),
		eventHandler:        handlers.NewEventHandler(eventService),
		taskHandler:         handlers.NewTaskHandler(taskService),
		proposalHandler:     handlers.NewProposalHandler(proposalService),
		availabilityHandler: handlers.NewAvailabilityHandler(availabilityService),
		wsHandler:           handlers.NewWSHandler(manager, eventService, redisService),
		rateLimitMW:         middleware.NewRateLimitMiddleware(redisService),
		authMW:              middleware.NewAuthMiddleware(cfg.JWT.Secret),
	}
}

func (r *Router) SetupRoutes() {
	r.engine.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	r.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.engine.Group("/api/v1")

	// Public routes
	authRoutes := api.Group("/auth")
	authRoutes.Use(r.rateLimitMW.RateLimitIP(50, time.Minute))
	{
		authRoutes.POST("/register", r.authHandler.Register)
		authRoutes.POST("/login", r.authHandler.Login)
	}

	// Websocket routes authenticate via query token since browsers cannot
	// set headers on websocket upgrades
	api.GET("/partner/ws", r.authMW.RequireWSAuth(), r.wsHandler.Presence)
	api.GET("/events/:id/ws", r.authMW.RequireWSAuth(), r.wsHandler.EventRoom)

	// Authenticated routes
	auth := api.Group("/")
	auth.Use(r.authMW.RequireAuth())
	{
		users := auth.Group("/users")
		users.Use(r.rateLimitMW.RateLimit(100, time.Minute))
		{
			users.GET("/me", r.userHandler.GetProfile)
			users.PUT("/me", r.userHandler.UpdateProfile)
			users.POST("/me/avatar", r.userHandler.UploadAvatar)
		}

		partner := auth.Group("/partner")
		partner.Use(r.rateLimitMW.RateLimit(100, time.Minute))
		{
			partner.GET("", r.partnerHandler.GetPartner)
			partner.DELETE("", r.partnerHandler.Disconnect)
			partner.POST("/invite", r.partnerHandler.Invite)
			partner.GET("/invites", r.partnerHandler.PendingInvites)
			partner.POST("/invites/:id/accept", r.partnerHandler.Accept)
			partner.POST("/invites/:id/decline", r.partnerHandler.Decline)
		}

		events := auth.Group("/events")
		events.Use(r.rateLimitMW.RateLimit(200, time.Minute))
		{
			events.GET("", r.eventHandler.List)
			events.POST("", r.eventHandler.Create)
			events.GET("/:id", r.eventHandler.Get)
			events.PUT("/:id", r.eventHandler.Update)
			events.DELETE("/:id", r.eventHandler.Delete)

			events.GET("/:id/messages", r.eventHandler.ListMessages)
			events.POST("/:id/messages", r.eventHandler.SendMessage)
			events.DELETE("/:id/messages/:messageId", r.eventHandler.DeleteMessage)

			events.GET("/:id/checklist", r.eventHandler.ListChecklist)
			events.POST("/:id/checklist", r.eventHandler.CreateChecklistItem)
			events.PUT("/:id/checklist/:itemId", r.eventHandler.UpdateChecklistItem)
			events.DELETE("/:id/checklist/:itemId", r.eventHandler.DeleteChecklistItem)
		}

		tasks := auth.Group("/tasks")
		tasks.Use(r.rateLimitMW.RateLimit(200, time.Minute))
		{
			tasks.GET("", r.taskHandler.List)
			tasks.POST("", r.taskHandler.Create)
			tasks.PUT("/:id", r.taskHandler.Update)
			tasks.DELETE("/:id", r.taskHandler.Delete)
		}

		proposals := auth.Group("/proposals")
		proposals.Use(r.rateLimitMW.RateLimit(100, time.Minute))
		{
			proposals.GET("", r.proposalHandler.List)
			proposals.POST("", r.proposalHandler.Create)
			proposals.GET("/:id", r.proposalHandler.Get)
			proposals.POST("/:id/accept", r.proposalHandler.Accept)
			proposals.POST("/:id/decline", r.proposalHandler.Decline)
		}

		availability := auth.Group("/availability")
		availability.Use(r.rateLimitMW.RateLimit(30, time.Minute))
		{
			availability.POST("/slots", r.availabilityHandler.FindSlots)
		}
	}
}

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
