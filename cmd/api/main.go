package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/FidelisKagashe26/MeetMe/internal/config"
	"github.com/FidelisKagashe26/MeetMe/internal/handler"
	"github.com/FidelisKagashe26/MeetMe/internal/middleware"
	"github.com/FidelisKagashe26/MeetMe/internal/migration"
	"github.com/FidelisKagashe26/MeetMe/internal/repository"
	"github.com/FidelisKagashe26/MeetMe/internal/routes"
	"github.com/FidelisKagashe26/MeetMe/internal/service"
	"github.com/FidelisKagashe26/MeetMe/internal/ws"
	pkgjwt "github.com/FidelisKagashe26/MeetMe/pkg/jwt"
	pkglogger "github.com/FidelisKagashe26/MeetMe/pkg/logger"
	pkgredis "github.com/FidelisKagashe26/MeetMe/pkg/redis"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// @title           MeetMe Chat API
// @version         1.0
// @description     Real-time buyer/seller chat backend for the MeetMe marketplace
//
// @host            localhost:8080
// @BasePath        /api/v1
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Authorization header using the Bearer scheme. Example: "Bearer {token}"

// getConfigPath returns config file path based on APP_ENV environment variable
func getConfigPath() string {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf("configs/config.%s.yaml", env)
}

func main() {
	dotenvFiles := config.LoadDotEnv()

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}
	pkglogger.InitStructured(env)
	logger := pkglogger.GetLogger()
	logger.Info().Str("env", env).Strs("dotenv", dotenvFiles).Msg("starting meetme chat backend")

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config %s: %v", configPath, err)
	}

	db, err := initDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := migration.Run(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	logger.Info().Str("host", cfg.Database.Host).Msg("connected to MySQL")

	// Redis is optional: without it the hub stays purely in-process,
	// which is the assumed single-node deployment.
	var redisClient *goredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(
			cfg.Redis.Host,
			cfg.Redis.Port,
			cfg.Redis.Password,
			cfg.Redis.DB,
			cfg.Redis.PoolSize,
		)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, hub runs in-process only")
			redisClient = nil
		} else {
			logger.Info().Msg("connected to Redis")
		}
	}

	jwtManager := pkgjwt.NewManager(cfg.JWT.Secret, cfg.JWT.AccessTTLSeconds)

	hub := ws.NewHub(redisClient)
	go hub.Run()
	defer hub.Stop()

	// Repositories
	convRepo := repository.NewConversationRepository(db)
	msgRepo := repository.NewMessageRepository(db)
	stateRepo := repository.NewParticipantStateRepository(db)
	notifRepo := repository.NewNotificationRepository(db)
	sellerRepo := repository.NewSellerRepository(db)
	productRepo := repository.NewProductRepository(db)

	// Services
	chatService := service.NewChatService(
		convRepo, msgRepo, stateRepo, notifRepo, sellerRepo, productRepo,
		hub,
		service.ChatOptions{
			TypingIncludesSender:      cfg.Chat.TypingIncludesSenderOrDefault(),
			NotificationPreviewLength: cfg.Chat.NotificationPreviewLength,
		},
	)
	notificationService := service.NewNotificationService(notifRepo)

	// Handlers
	chatHandler := handler.NewChatHandler(chatService)
	notificationHandler := handler.NewNotificationHandler(notificationService)
	wsHandler := handler.NewWSHandler(hub, chatService, jwtManager, cfg.CORS.AllowedOrigins)

	if env != "local" && env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())

	corsConfig := cors.DefaultConfig()
	if len(cfg.CORS.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.CORS.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	routes.Setup(router, chatHandler, notificationHandler, wsHandler, jwtManager)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info().Str("addr", addr).Msg("listening")
	if err := router.Run(addr); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}

func initDB(cfg *config.Config) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	}
	return gorm.Open(mysql.Open(cfg.Database.DSN()), gormCfg)
}
