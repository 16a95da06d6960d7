package main

import (
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/observari/observari/internal/config"
	"github.com/observari/observari/internal/database"
	"github.com/observari/observari/internal/handler"
	"github.com/observari/observari/internal/logger"
	"github.com/observari/observari/internal/middleware"
	"github.com/observari/observari/internal/queue"
	"github.com/observari/observari/internal/repository"
	"github.com/observari/observari/internal/router"
	"github.com/observari/observari/migrations"
)

func main() {
	_ = godotenv.Load() // optional .env for local runs

	lg := logger.NewLogger("server")
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		lg.Fatal().Err(err).Msg("database connect failed")
	}
	defer db.Close()

	if err := migrations.Migrate(db); err != nil {
		lg.Fatal().Err(err).Msg("migrations failed")
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		lg.Warn().Msg("redis unavailable; rate limiting and caching disabled")
	}

	// Background notifier: consumes password-reset events and writes the
	// outbound-mail log. Runs a reconnect loop for the broker's lifetime.
	go func() {
		if err := queue.StartResetConsumer(); err != nil {
			lg.Error().Err(err).Msg("reset consumer stopped")
		}
	}()

	users := repository.NewUserRepo(db)
	profiles := repository.NewProfileRepo(db)
	environments := repository.NewEnvironmentRepo(db)
	areas := repository.NewAreaRepo(db)
	materials := repository.NewMaterialRepo(db)
	scripts := repository.NewScriptRepo(db)
	scriptMaterials := repository.NewScriptMaterialRepo(db)
	activities := repository.NewActivityRepo(db)
	learners := repository.NewActivityLearnerRepo(db)
	observations := repository.NewObservationRepo(db)
	reports := repository.NewReportRepo(db)
	reportObservations := repository.NewReportObservationRepo(db)
	relationships := repository.NewRelationshipRepo(db)

	h := router.Handlers{
		Health:        handler.NewHealthHandler(db),
		Auth:          handler.NewAuthHandler(cfg, users, lg),
		Users:         handler.NewUserHandler(users),
		Profiles:      handler.NewProfileHandler(profiles, users),
		Environments:  handler.NewEnvironmentHandler(environments),
		Areas:         handler.NewAreaHandler(areas, environments),
		Materials:     handler.NewMaterialHandler(materials, areas),
		Scripts:       handler.NewScriptHandler(scripts, areas, materials, scriptMaterials),
		Activities:    handler.NewActivityHandler(activities, environments, areas, materials, scripts, users, learners),
		Observations:  handler.NewObservationHandler(observations, activities, users),
		Reports:       handler.NewReportHandler(reports, observations, users, reportObservations),
		Relationships: handler.NewRelationshipHandler(relationships, users),
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestLogger(lg))
	router.Register(e, h, cfg, users, rdb)

	addr := ":" + cfg.Port
	lg.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
	if err := e.Start(addr); err != nil {
		lg.Fatal().Err(err).Msg("server stopped")
	}
}
