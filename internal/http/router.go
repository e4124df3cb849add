package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/geocoder89/userhub/internal/auth"
	"github.com/geocoder89/userhub/internal/config"
	"github.com/geocoder89/userhub/internal/http/handlers"
	"github.com/geocoder89/userhub/internal/http/middlewares"
	"github.com/geocoder89/userhub/internal/observability"
	"github.com/geocoder89/userhub/internal/repo/postgres"
	"github.com/geocoder89/userhub/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const maxBodyBytes = 1 << 20 // 1 MiB

func NewRouter(log *slog.Logger, pool *pgxpool.Pool, cfg config.Config) *gin.Engine {
	if cfg.Env != "dev" && cfg.Env != "test" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("userhub"))
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middlewares.RequireJSON())
	r.Use(middlewares.MaxBodyBytes(maxBodyBytes))

	reg := prometheus.NewRegistry()
	prom := observability.NewProm(reg)

	r.Use(prom.GinHandleMiddleware())

	// health + metrics

	ping := func() error {
		if pool == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return pool.Ping(ctx)
	}

	health := handlers.NewHealthHandler(ping)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// wire up the repo, codecs and handlers

	usersRepo := postgres.NewUsersRepo(pool, prom)
	jwtManager := auth.NewManager(cfg.JWTSecret, cfg.TokenTTL)
	hasher := security.NewHasher(cfg.BcryptCost)

	authHandler := handlers.NewAuthHandler(usersRepo, jwtManager, hasher, cfg)
	usersHandler := handlers.NewUsersHandler(usersRepo, hasher)

	authMw := middlewares.NewAuthMiddleware(jwtManager, usersRepo)

	// rate limit buckets; independent counters per bucket per client IP

	generalLimit := middlewares.NewRateLimiter("general", 100, 15*time.Minute)
	loginLimit := middlewares.NewRateLimiter("auth", 5, 15*time.Minute).ExcludingSuccesses()
	signupLimit := middlewares.NewRateLimiter("signup", cfg.SignupMaxPerHour, time.Hour)
	resetLimit := middlewares.NewRateLimiter("reset", 3, time.Hour)

	api := r.Group("/api/v1")
	api.Use(generalLimit.Middleware())

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", signupLimit.Middleware(), authHandler.Register)
		authGroup.POST("/login", loginLimit.Middleware(), authHandler.Login)
		authGroup.GET("/me", authMw.RequireAuth(), authHandler.Me)
		authGroup.PATCH("/change-password", authMw.RequireAuth(), authHandler.ChangePassword)
		authGroup.POST("/forgot-password", resetLimit.Middleware(), authHandler.ForgotPassword)
		authGroup.POST("/reset-password", authHandler.ResetPassword)
		authGroup.POST("/verify-token", authHandler.VerifyToken)
		authGroup.POST("/logout", authMw.RequireAuth(), authHandler.Logout)
	}

	usersGroup := api.Group("/users")
	usersGroup.Use(authMw.RequireAuth())
	{
		usersGroup.POST("", usersHandler.CreateUser)
		usersGroup.GET("", usersHandler.ListUsers)
		usersGroup.GET("/:id", usersHandler.GetUser)
		usersGroup.PUT("/:id", middlewares.RequireSelf("id"), usersHandler.UpdateUser)
		usersGroup.DELETE("/:id", middlewares.RequireSelf("id"), usersHandler.DeleteUser)
	}

	return r
}
