package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/wuwenbin0122/vishai/internal/api"
	"github.com/wuwenbin0122/vishai/internal/auth"
	"github.com/wuwenbin0122/vishai/internal/chat"
	"github.com/wuwenbin0122/vishai/internal/db"
	"github.com/wuwenbin0122/vishai/internal/reply"
	"github.com/wuwenbin0122/vishai/internal/store"
	"github.com/wuwenbin0122/vishai/internal/utils"
	"github.com/wuwenbin0122/vishai/internal/ws"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("config: no .env file loaded: %v", err)
	}

	cfg, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("config: failed to load: %v", err)
	}

	baseLogger, err := utils.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("logger: failed to initialise: %v", err)
	}
	defer func() { _ = baseLogger.Sync() }()
	logger := baseLogger.Sugar()

	ctx := context.Background()

	mongoStore, err := db.NewMongo(ctx, cfg.Mongo)
	if err != nil {
		logger.Fatalw("mongo: failed to connect", "error", err)
	}
	defer func() {
		if err := mongoStore.Close(context.Background()); err != nil {
			logger.Warnw("mongo: close error", "error", err)
		}
	}()

	if err := mongoStore.EnsureCollections(ctx); err != nil {
		logger.Fatalw("mongo: ensure collections", "error", err)
	}
	logger.Infow("mongo connected", "database", cfg.Mongo.Database)

	users, closeUsers := buildUserStore(ctx, cfg, mongoStore, logger)
	defer closeUsers()

	denylist, closeDenylist := buildDenylist(ctx, cfg, logger)
	defer closeDenylist()

	authService, err := auth.NewService(cfg.JWTSecret, cfg.TokenTTL, users, denylist)
	if err != nil {
		logger.Fatalw("failed to initialise auth service", "error", err)
	}

	if cfg.Gemini.APIKey == "" {
		logger.Warn("GEMINI_API_KEY is not set; every reply will be the fallback text")
	}
	generator := reply.NewClient(cfg.Gemini, logger.Named("reply"))
	chatService := chat.NewService(store.NewMongoChats(mongoStore.Conversations), generator, logger.Named("chat"))

	hub := ws.NewHub(logger.Named("hub"))
	socket := ws.NewServer(hub, authService, chatService, cfg.FrontendOrigins, logger.Named("ws"))

	handler := api.NewHandler(authService, chatService, api.Options{
		Socket:  socket.Handle,
		DBState: mongoStore.State,
		Logger:  logger.Named("api"),
	})

	router := setupRouter(handler, cfg.FrontendOrigins, baseLogger)

	// No WriteTimeout: a chat turn waits on the reply provider.
	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Infow("server listening", "addr", server.Addr, "origins", cfg.FrontendOrigins)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalw("server crashed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	hub.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warnw("graceful shutdown failed", "error", err)
	}

	logger.Info("server stopped cleanly")
}

func setupRouter(handler *api.Handler, origins []string, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(api.RequestLogger(logger.Named("http")), gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	handler.RegisterRoutes(router)

	return router
}

func buildUserStore(ctx context.Context, cfg *utils.Config, mongoStore *db.Mongo, logger *zap.SugaredLogger) (store.UserStore, func()) {
	switch cfg.UserStore {
	case utils.UserStorePostgres:
		postgres, err := db.NewPostgres(ctx, cfg.Postgres)
		if err != nil {
			logger.Fatalw("postgres: failed to connect", "error", err)
		}
		if err := postgres.Ping(ctx); err != nil {
			logger.Fatalw("postgres: ping failed", "error", err)
		}
		if err := postgres.EnsureSchema(ctx); err != nil {
			logger.Fatalw("postgres: ensure schema", "error", err)
		}
		logger.Info("user store: postgres")
		return store.NewPostgresUsers(postgres.Pool), postgres.Close
	case utils.UserStoreMemory:
		logger.Warn("user store: memory; accounts are lost on restart")
		return store.NewMemoryUsers(), func() {}
	default:
		logger.Info("user store: mongo")
		return store.NewMongoUsers(mongoStore.Users), func() {}
	}
}

func buildDenylist(ctx context.Context, cfg *utils.Config, logger *zap.SugaredLogger) (auth.Denylist, func()) {
	if cfg.Redis.URL == "" {
		return auth.NewMemoryDenylist(), func() {}
	}

	client, err := db.NewRedis(ctx, cfg.Redis.URL)
	if err != nil {
		logger.Fatalw("redis: failed to connect", "error", err)
	}
	logger.Info("token denylist: redis")

	return auth.NewRedisDenylist(client), func() {
		if err := client.Close(); err != nil {
			logger.Warnw("redis: close error", "error", err)
		}
	}
}
