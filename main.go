package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	apirest "github.com/ayutane/daylink/api/rest"
	"github.com/ayutane/daylink/cache"
	"github.com/ayutane/daylink/config"
	dbadapter "github.com/ayutane/daylink/db"
	mw "github.com/ayutane/daylink/middleware"
	"github.com/ayutane/daylink/model"
	"github.com/ayutane/daylink/service"
	"github.com/ayutane/daylink/upload"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	if cfg.Security.JWTSecret == "" {
		log.Fatal("security.jwt_secret must be set")
	}

	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	logger.Info("DB initialized", zap.String("mode", cfg.Database.Mode))

	// ---- Cache ----
	c, err := cache.New(cache.Config{
		RedisAddr:     cfg.Cache.RedisAddr,
		RedisPassword: cfg.Cache.RedisPassword,
		RedisDB:       cfg.Cache.RedisDB,
		GCInterval:    cfg.Cache.LocalGCInterval,
	})
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	logger.Info("Cache initialized")

	// ---- Upload store ----
	store, err := upload.NewStore(cfg.Uploads.Dir, cfg.Uploads.MaxImageMB, cfg.Uploads.MaxAvatarMB, logger)
	if err != nil {
		log.Fatalf("uploads: %v", err)
	}

	// ---- Services ----
	userSvc := service.NewUserService(db)
	eventSvc := service.NewEventService(db)
	friendSvc := service.NewFriendshipService(db, userSvc)

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))
	r.Use(mw.RateLimit(rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst))
	r.Use(mw.CORS(cfg.Security.AllowedOrigins))

	// Health check
	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	// Uploaded files are served straight from disk.
	r.Static(strings.TrimSuffix(upload.URLPrefix, "/"), cfg.Uploads.Dir)

	// ---- REST API routes ----
	authH := apirest.NewAuthHandler(userSvc, c, cfg.Security)
	userH := apirest.NewUserHandler(userSvc, store)
	eventH := apirest.NewEventHandler(eventSvc, store, logger)
	friendH := apirest.NewFriendHandler(friendSvc, userSvc)
	mergeH := apirest.NewMergeHandler(friendSvc, userSvc, eventSvc)

	auth := mw.Auth(cfg.Security, c, db)

	api := r.Group("/api")
	{
		authG := api.Group("/auth")
		authG.POST("/register", authH.Register)
		authG.POST("/login", authH.Login)
		authG.POST("/logout", auth, authH.Logout)

		usersG := api.Group("/users")
		usersG.GET("/me", auth, userH.Me)
		usersG.PUT("/me", auth, userH.UpdateMe)
		usersG.GET("/search", auth, userH.Search)
		usersG.GET("/:username", userH.PublicProfile)

		eventsG := api.Group("/events")
		eventsG.Use(auth)
		eventsG.POST("", eventH.Create)
		eventsG.GET("", eventH.List)
		eventsG.GET("/:id", eventH.GetByID)
		eventsG.PUT("/:id", eventH.Update)
		eventsG.DELETE("/:id", eventH.Delete)

		friendsG := api.Group("/friends")
		friendsG.Use(auth)
		friendsG.POST("/request", friendH.Request)
		friendsG.POST("/accept", friendH.Accept)
		friendsG.POST("/reject", friendH.Reject)
		friendsG.GET("", friendH.List)
		friendsG.GET("/requests", friendH.Requests)
		friendsG.DELETE("/request/:friendshipId", friendH.DeleteByID)
		friendsG.DELETE("/:username", friendH.DeleteByUsername)

		mergeG := api.Group("/merge")
		mergeG.Use(auth)
		mergeG.GET("/:username", mergeH.Merge)
	}

	r.NoRoute(func(ctx *gin.Context) {
		ctx.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "route not found",
			"error":   "not found",
		})
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("Server listening", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
