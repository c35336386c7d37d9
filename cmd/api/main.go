package main

import (
	"context"
	"log"
	"time"

	"medichat/config"
	"medichat/internal/chat"
	"medichat/internal/domain"
	"medichat/internal/gateway"
	"medichat/internal/handler"
	"medichat/internal/identity"
	internalredis "medichat/internal/redis"
	"medichat/internal/repository"
	"medichat/internal/server"
	"medichat/internal/storage"
	"medichat/pkg/database"
	"medichat/pkg/logger"
)

func main() {
	cfg := config.LoadConfig()

	logMode := logger.DevelopmentMode
	if cfg.AppMode == server.ReleaseMode {
		logMode = logger.ProductionMode
	}
	l := logger.New(logMode)
	defer l.Sync()

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&identity.DirectoryUser{},
		&domain.Session{},
		&domain.Participant{},
		&domain.Message{},
		&domain.Attachment{},
		&domain.ReadReceipt{},
	); err != nil {
		log.Fatalf("Failed to apply GORM migrations: %v", err)
	}

	redisClient := internalredis.NewClient(internalredis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := gateway.NewHub()
	go hub.Run(ctx)

	// Message events publish to redis and fan back in through the bridge,
	// so every instance behind the load balancer delivers them.
	publisher := internalredis.NewPublisher(redisClient)
	subscriber := internalredis.NewSubscriber(redisClient)
	bridge := gateway.NewRedisBridge(subscriber, hub)
	go func() {
		if err := bridge.Run(ctx); err != nil {
			l.Errorf("redis bridge stopped: %v", err)
		}
	}()

	directory := identity.NewGormDirectory(db)
	provider := identity.NewJWTProvider(cfg.JWTSecret, directory)

	sessionRepo := repository.NewSessionRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	chatService := chat.NewService(
		sessionRepo,
		messageRepo,
		directory,
		gateway.NewRedisBroadcaster(publisher),
		l,
		chat.Options{
			EditWindow:       time.Duration(cfg.EditWindowMin) * time.Minute,
			MaxContentLength: cfg.MaxMessageLen,
		},
	)

	presence := internalredis.NewPresenceStore(redisClient, 5*time.Minute)
	limiter := internalredis.NewRateLimiter(redisClient, internalredis.RateLimitConfig{
		MessageLimit:  cfg.MessageRateLimit,
		MessageWindow: time.Minute,
	})

	gatewayHandler := gateway.NewHandler(
		provider,
		chatService,
		hub,
		presence,
		publisher,
		l,
		time.Duration(cfg.ConnectTimeoutSec)*time.Second,
	)

	attachmentStore, err := storage.NewAttachmentStore(ctx, storage.S3Config{
		Region:     cfg.S3Region,
		Bucket:     cfg.S3Bucket,
		AccessKey:  cfg.S3AccessKey,
		SecretKey:  cfg.S3SecretKey,
		Endpoint:   cfg.S3Endpoint,
		PublicBase: cfg.S3PublicBase,
		PresignTTL: time.Duration(cfg.S3PresignTTLMin) * time.Minute,
	})
	if err != nil {
		log.Fatalf("Failed to initialise attachment storage: %v", err)
	}

	srv := server.New(cfg, l)
	srv.SetupRoutes(&server.Handlers{
		Session:   handler.NewSessionHandler(chatService),
		Message:   handler.NewMessageHandler(chatService),
		Upload:    handler.NewUploadHandler(attachmentStore),
		Directory: handler.NewDirectoryHandler(directory),
		Presence:  handler.NewPresenceHandler(presence),
		Gateway:   gatewayHandler,
	}, provider, limiter, db)

	if err := srv.Start(); err != nil {
		log.Fatalf("Server exited with error: %v", err)
	}
}
