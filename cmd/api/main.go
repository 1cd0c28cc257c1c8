package main

import (
	"os"

	_ "fabworks/api/swagger" // swagger docs
	"fabworks/internal/database"
	"fabworks/internal/gateway"
	"fabworks/internal/handler"
	"fabworks/internal/logger"
	"fabworks/internal/middleware"
	"fabworks/internal/notify"
	"fabworks/internal/repository"
	"fabworks/internal/service"
	ws "fabworks/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// @title           Fabworks Quote-to-Delivery API
// @version         1.0
// @description     Manufacturing workflow backend: inquiries, quotations, orders and payments.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Env vars may also come from the environment directly.
	_ = godotenv.Load("configs/.env")

	logger.Init(envOr("APP_ENV", "development"))
	defer logger.Sync()

	dsn := "postgres://" + envOr("DB_USER", "postgres") +
		":" + envOr("DB_PASSWORD", "postgres") +
		"@" + envOr("DB_HOST", "localhost") +
		":" + envOr("DB_PORT", "5432") +
		"/" + envOr("DB_NAME", "fabworks") +
		"?sslmode=" + envOr("DB_SSLMODE", "disable")

	db, err := database.NewConnection(dsn)
	if err != nil {
		logger.L().Fatal("database connection failed", zap.Error(err))
	}
	logger.L().Info("connected to postgres")

	// WebSocket hub for the back-office live feed
	wsHub := ws.NewHub()
	go wsHub.Run()

	// Outbound notification channels
	dispatcher := notify.NewDispatcher(
		notify.NewEmailSender(notify.EmailConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     envOr("SMTP_PORT", "587"),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     envOr("SMTP_FROM", "noreply@fabworks.local"),
		}),
		notify.NewSMSSender(notify.SMSConfig{
			GatewayURL: os.Getenv("SMS_GATEWAY_URL"),
			APIKey:     os.Getenv("SMS_API_KEY"),
			SenderID:   envOr("SMS_SENDER_ID", "FABWORKS"),
		}),
		notify.NewWebsocketSender(wsHub),
	)

	// Repositories
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	inquiryRepo := repository.NewInquiryRepository(db)
	quotationRepo := repository.NewQuotationRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	statsRepo := repository.NewStatisticsRepository(db)

	// Services
	events := service.NewWorkflowNotifier(dispatcher, notificationRepo, userRepo)
	userService := service.NewUserService(userRepo)
	inquiryService := service.NewInquiryService(inquiryRepo, auditRepo, txManager, events)
	orderService := service.NewOrderService(orderRepo, inquiryRepo, auditRepo, txManager, events)
	quotationService := service.NewQuotationService(quotationRepo, inquiryRepo, auditRepo, txManager, orderService, events)
	paymentVerifier := gateway.NewClient(gateway.Config{
		BaseURL: envOr("PAYMENT_GATEWAY_URL", "http://localhost:9090"),
		APIKey:  os.Getenv("PAYMENT_GATEWAY_API_KEY"),
	})
	paymentService := service.NewPaymentService(orderRepo, auditRepo, txManager, quotationService, paymentVerifier, events)
	notificationService := service.NewNotificationService(notificationRepo)
	auditService := service.NewAuditService(auditRepo)
	statisticsService := service.NewStatisticsService(statsRepo)

	// Handlers
	userHandler := handler.NewUserHandler(userService)
	inquiryHandler := handler.NewInquiryHandler(inquiryService)
	quotationHandler := handler.NewQuotationHandler(quotationService)
	orderHandler := handler.NewOrderHandler(orderService)
	paymentHandler := handler.NewPaymentHandler(paymentService)
	notificationHandler := handler.NewNotificationHandler(notificationService)
	auditHandler := handler.NewAuditHandler(auditService)
	statisticsHandler := handler.NewStatisticsHandler(statisticsService)

	// Set up Gin Router
	router := gin.New()
	router.Use(gin.Recovery(), logger.RequestLogger())

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:5174"} // Frontend URL
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		ws.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	// Register API Routes
	root := router.Group("")
	userHandler.RegisterRoutes(root)
	inquiryHandler.RegisterRoutes(root)
	quotationHandler.RegisterRoutes(root)
	orderHandler.RegisterRoutes(root)
	paymentHandler.RegisterRoutes(root)
	notificationHandler.RegisterRoutes(root)
	auditHandler.RegisterRoutes(root)
	statisticsHandler.RegisterRoutes(root)

	port := envOr("PORT", "8080")
	logger.L().Info("server listening", zap.String("port", port))
	if err := router.Run(":" + port); err != nil {
		logger.L().Fatal("server failed", zap.Error(err))
	}
}
