package app

import (
	"net/http"
	"time"

	"vidtube/internal/config"
	"vidtube/internal/logger"
	"vidtube/internal/middleware"
	"vidtube/internal/model"
	"vidtube/internal/repository"
	"vidtube/internal/service"
	"vidtube/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewRouter connects the backing services and returns the HTTP engine plus a
// cleanup func that stops the worker and closes connections.
func NewRouter(cfg *config.Config) (*gin.Engine, func(), error) {
	db, err := initDB(cfg)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to connect to database")
	}
	if err := repository.Migrate(db); err != nil {
		return nil, nil, errors.Wrap(err, "failed to migrate database")
	}

	// Redis and RabbitMQ are optional: without them caching and reconcile
	// messages are disabled
	redisClient := initRedisWithRetry(cfg)
	rabbitMQ := initRabbitMQWithRetry(cfg)

	var publisher service.ReconcilePublisher
	if rabbitMQ != nil {
		publisher, err = service.NewReconcilePublisher(rabbitMQ)
		if err != nil {
			logrus.WithError(err).Warn("Reconcile publisher unavailable")
			publisher = nil
		}
	}

	r, cascade := buildEngine(cfg, db, redisClient, publisher)

	worker := service.NewReconcileWorker(cascade, rabbitMQ, cfg.ReconcileInterval)
	if err := worker.Start(); err != nil {
		logrus.WithError(err).Warn("Failed to start reconcile worker")
	} else {
		logrus.Info("Reconcile worker started successfully")
	}

	cleanup := func() {
		worker.Stop()
		if rabbitMQ != nil {
			rabbitMQ.Close()
		}
		if redisClient != nil {
			redisClient.Close()
		}
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}
	return r, cleanup, nil
}

// buildEngine wires repositories, services and handlers onto a gin engine.
func buildEngine(cfg *config.Config, db *gorm.DB, redisClient *util.RedisClient, publisher service.ReconcilePublisher) (*gin.Engine, *service.CascadeCoordinator) {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.GinLogger())
	r.Use(corsMiddleware(cfg.ClientURL))

	if cfg.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		r.Use(rateLimiter.Middleware())
		logrus.Infof("Rate limiting enabled: %d req/sec, burst: %d", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	// Initialize repositories
	store := repository.NewStore(db, redisClient)
	userRepo := repository.NewUserRepository(db)
	pageCache := repository.NewCommentPageCache(redisClient)

	// Initialize services
	mode := service.CascadeBestEffort
	if cfg.CascadeTransactional {
		mode = service.CascadeTransactional
	}
	cascade := service.NewCascadeCoordinator(store, mode, publisher)
	identityService := service.NewIdentityService(userRepo, cfg.JWTSecret)
	commentService := service.NewCommentService(store, userRepo, pageCache, cascade, service.CommentOptions{
		PageSize:         cfg.CommentPageSize,
		NestedReplyDepth: cfg.NestedReplyDepth,
	})
	likeService := service.NewLikeService(store, pageCache)

	// Initialize handlers
	authHandler := NewAuthHandler(identityService)
	commentHandler := NewCommentHandler(commentService, cfg.NestedReplyDepth)
	likeHandler := NewLikeHandler(likeService)

	// API routes
	api := r.Group("/api/v1")
	{
		api.GET("/healthcheck", func(c *gin.Context) {
			util.SuccessResponse(c, http.StatusOK, "OK", gin.H{"status": "OK"})
		})

		api.GET("/users/me", authHandler.AuthMiddleware(), authHandler.GetMe)

		comments := api.Group("/comments")
		{
			comments.GET("/main-parent-comments/:videoId", commentHandler.ListTopLevel)
			comments.GET("/nested-comments/:parentReplyId", commentHandler.ListNestedReplies)

			comments.Use(authHandler.AuthMiddleware())
			{
				comments.POST("/add-comment/:videoId", commentHandler.AddComment)
				comments.POST("/reply-comment", commentHandler.AddReply)
				comments.POST("/reply-comment/:parentCommentId", commentHandler.AddReply)
				comments.PUT("/edit-comment/:contentId", commentHandler.EditContent)
				comments.DELETE("/delete-comment/:contentId", commentHandler.DeleteContent)
			}
		}

		likes := api.Group("/likes")
		{
			likes.GET("/liked-comments-by-commentId/:contentId", likeHandler.CommentLikes)
			likes.GET("/liked-videos-by-videoId/v/:videoId", likeHandler.VideoLikes)

			likes.Use(authHandler.AuthMiddleware())
			{
				likes.POST("/toggle/v/:id", likeHandler.Toggle(model.TargetKindVideo))
				likes.POST("/toggle/c/:id", likeHandler.Toggle(model.TargetKindComment))
				likes.POST("/toggle/t/:id", likeHandler.Toggle(model.TargetKindTweet))
				likes.GET("/liked-videos", likeHandler.LikedVideos)
			}
		}
	}

	r.NoRoute(func(c *gin.Context) {
		util.NotFound(c, "route not found")
	})

	return r, cascade
}

func initDB(cfg *config.Config) (*gorm.DB, error) {
	// Likes point at videos, comments, replies and tweets through one column,
	// so no foreign keys are created for relationships
	db, err := gorm.Open(postgres.Open(cfg.PostgresDSN()), &gorm.Config{
		Logger: gormlogger.New(logrus.StandardLogger(), gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// backoff returns the delay before retry attempt+1.
func backoff(attempt int, initial, max time.Duration) time.Duration {
	delay := initial * time.Duration(1<<uint(attempt-1))
	if delay > max || delay <= 0 {
		delay = max
	}
	return delay
}

// initRabbitMQWithRetry attempts to connect to RabbitMQ with exponential backoff retry
func initRabbitMQWithRetry(cfg *config.Config) *util.RabbitMQClient {
	const maxRetries = 5
	for attempt := 1; attempt <= maxRetries; attempt++ {
		rabbitMQ, err := util.NewRabbitMQClient(cfg)
		if err == nil {
			logrus.Infof("RabbitMQ connected successfully on attempt %d", attempt)
			return rabbitMQ
		}

		if attempt < maxRetries {
			delay := backoff(attempt, 2*time.Second, 30*time.Second)
			logrus.Warnf("Failed to connect to RabbitMQ (attempt %d/%d): %v. Retrying in %v...", attempt, maxRetries, err, delay)
			time.Sleep(delay)
		} else {
			logrus.Warnf("Failed to connect to RabbitMQ after %d attempts: %v. Reconcile messages will be disabled.", maxRetries, err)
		}
	}
	return nil
}

// initRedisWithRetry attempts to connect to Redis with exponential backoff retry
func initRedisWithRetry(cfg *config.Config) *util.RedisClient {
	const maxRetries = 5
	for attempt := 1; attempt <= maxRetries; attempt++ {
		redisClient, err := util.NewRedisClient(cfg)
		if err == nil {
			logrus.Infof("Redis connected successfully on attempt %d", attempt)
			return redisClient
		}

		if attempt < maxRetries {
			delay := backoff(attempt, 2*time.Second, 30*time.Second)
			logrus.Warnf("Failed to connect to Redis (attempt %d/%d): %v. Retrying in %v...", attempt, maxRetries, err, delay)
			time.Sleep(delay)
		} else {
			logrus.Warnf("Failed to connect to Redis after %d attempts: %v. Caching will be disabled.", maxRetries, err)
		}
	}
	return nil
}

func corsMiddleware(clientURL string) gin.HandlerFunc {
	allowedOrigins := map[string]bool{
		clientURL:               true,
		"http://localhost:3000": true,
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowedOrigins[origin] {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", clientURL)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
