// Package router wires handlers and middleware onto the Echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/observari/observari/internal/config"
	"github.com/observari/observari/internal/handler"
	"github.com/observari/observari/internal/middleware"
	"github.com/observari/observari/internal/repository"
)

// Handlers collects every handler the router mounts.
type Handlers struct {
	Health        *handler.HealthHandler
	Auth          *handler.AuthHandler
	Users         *handler.UserHandler
	Profiles      *handler.ProfileHandler
	Environments  *handler.EnvironmentHandler
	Areas         *handler.AreaHandler
	Materials     *handler.MaterialHandler
	Scripts       *handler.ScriptHandler
	Activities    *handler.ActivityHandler
	Observations  *handler.ObservationHandler
	Reports       *handler.ReportHandler
	Relationships *handler.RelationshipHandler
}

// Register mounts every route. The auth group is public behind the rate
// limiter; everything else under /v1 requires a valid token for an
// active account.
func Register(e *echo.Echo, h Handlers, cfg config.Config, users *repository.UserRepo, rdb *redis.Client) {
	e.GET("/healthz", h.Health.Healthz)

	rl := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	authGroup := e.Group("/v1/auth", rl)
	authGroup.POST("/register", h.Auth.Register)
	authGroup.POST("/login", h.Auth.Login)
	authGroup.POST("/forgot-password", h.Auth.ForgotPassword)
	authGroup.POST("/reset-password", h.Auth.ResetPassword)
	authGroup.GET("/verify-token/:token", h.Auth.VerifyResetToken)

	v1 := e.Group("/v1")
	v1.Use(middleware.JWTAuth(cfg.JWTSecret, users))
	v1.Use(middleware.NewRedisCache(config.LoadCacheConfig(), rdb))

	v1.GET("/me", h.Auth.Me)

	v1.GET("/users", h.Users.List)
	v1.GET("/users/:id", h.Users.Get)
	v1.PATCH("/users/:id", h.Users.Patch)
	v1.DELETE("/users/:id", h.Users.Delete)

	v1.POST("/profiles", h.Profiles.Create)
	v1.GET("/profiles", h.Profiles.List)
	v1.GET("/profiles/:id", h.Profiles.Get)
	v1.PATCH("/profiles/:id", h.Profiles.Patch)
	v1.DELETE("/profiles/:id", h.Profiles.Delete)

	v1.POST("/environments", h.Environments.Create)
	v1.GET("/environments", h.Environments.List)
	v1.GET("/environments/:id", h.Environments.Get)
	v1.PATCH("/environments/:id", h.Environments.Patch)
	v1.DELETE("/environments/:id", h.Environments.Delete)

	v1.POST("/areas", h.Areas.Create)
	v1.GET("/areas", h.Areas.List)
	v1.GET("/areas/:id", h.Areas.Get)
	v1.PATCH("/areas/:id", h.Areas.Patch)
	v1.DELETE("/areas/:id", h.Areas.Delete)

	v1.POST("/materials", h.Materials.Create)
	v1.GET("/materials", h.Materials.List)
	v1.GET("/materials/:id", h.Materials.Get)
	v1.PATCH("/materials/:id", h.Materials.Patch)
	v1.DELETE("/materials/:id", h.Materials.Delete)

	v1.POST("/scripts", h.Scripts.Create)
	v1.GET("/scripts", h.Scripts.List)
	v1.GET("/scripts/:id", h.Scripts.Get)
	v1.PATCH("/scripts/:id", h.Scripts.Patch)
	v1.DELETE("/scripts/:id", h.Scripts.Delete)
	v1.POST("/scripts/:id/materials", h.Scripts.AddMaterial)
	v1.GET("/scripts/:id/materials", h.Scripts.ListMaterials)
	v1.GET("/scripts/:id/materials/:material_id", h.Scripts.GetMaterial)
	v1.PATCH("/scripts/:id/materials/:material_id", h.Scripts.PatchMaterial)
	v1.DELETE("/scripts/:id/materials/:material_id", h.Scripts.RemoveMaterial)

	v1.POST("/activities", h.Activities.Create)
	v1.GET("/activities", h.Activities.List)
	v1.GET("/activities/:id", h.Activities.Get)
	v1.PATCH("/activities/:id", h.Activities.Patch)
	v1.DELETE("/activities/:id", h.Activities.Delete)
	v1.POST("/activities/:id/learners", h.Activities.AddLearner)
	v1.GET("/activities/:id/learners", h.Activities.ListLearners)
	v1.DELETE("/activities/:id/learners/:learner_id", h.Activities.RemoveLearner)

	v1.POST("/observations", h.Observations.Create)
	v1.GET("/observations", h.Observations.List)
	v1.GET("/observations/:id", h.Observations.Get)
	v1.PATCH("/observations/:id", h.Observations.Patch)
	v1.DELETE("/observations/:id", h.Observations.Delete)

	v1.POST("/reports", h.Reports.Create)
	v1.GET("/reports", h.Reports.List)
	v1.GET("/reports/:id", h.Reports.Get)
	v1.PATCH("/reports/:id", h.Reports.Patch)
	v1.DELETE("/reports/:id", h.Reports.Delete)
	v1.POST("/reports/:id/observations", h.Reports.AddObservation)
	v1.GET("/reports/:id/observations", h.Reports.ListObservations)
	v1.DELETE("/reports/:id/observations/:observation_id", h.Reports.RemoveObservation)

	v1.POST("/relationships", h.Relationships.Create)
	v1.GET("/relationships", h.Relationships.List)
	v1.GET("/relationships/between/:user_id/:related_user_id", h.Relationships.Between)
	v1.GET("/relationships/mutual/:user_id", h.Relationships.Mutual)
	v1.GET("/relationships/:id", h.Relationships.Get)
	v1.PATCH("/relationships/:id", h.Relationships.Patch)
	v1.DELETE("/relationships/:id", h.Relationships.Delete)
}
