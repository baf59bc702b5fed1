package internal

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"rim/internal/api"
	"rim/internal/auth"
	"rim/internal/db"
	"rim/internal/definitions"
	"rim/internal/editlogs"
	"rim/internal/entities"
	"rim/internal/env"
	"rim/internal/logger"
	"rim/internal/swagger"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SetupApp loads the environment, connects the stores and returns the app
// together with the function draining it on shutdown.
func SetupApp(deployment string, envRoot string, appVersion string) (*fiber.App, func()) {
	env.Init(envRoot, appVersion)

	log, err := logger.New().Level(env.LOG_LEVEL).Format(env.LOG_FORMAT).Make()
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not build logger: %v\n", err)
		os.Exit(1)
	}

	deploy := strings.TrimSpace(deployment)

	if err := db.InitDB(); err != nil {
		log.Fatal().Err(err).Msg("could not connect to MongoDB")
	}

	if err := db.InitCache(); err != nil {
		log.Warn().Err(err).Msg("could not connect to Redis, edit-log sequence stays process-local")
		db.RDB = nil
	}

	core, err := LoadCore(definitions.NewDir(env.DEFINITIONS_ROOT), log)
	if err != nil {
		log.Fatal().Err(err).Str("root", env.DEFINITIONS_ROOT).Msg("could not compile definitions")
	}

	ctx, cancel := context.WithTimeout(db.Ctx, 30*time.Second)
	defer cancel()

	users := auth.NewMongoUsers(db.Users, logger.Component(log, "users"))
	logStore := editlogs.NewMongoStore(db.EditLogs)
	collections := func(model string) entities.Collection {
		return entities.NewMongoCollection(db.GetCollection(model))
	}

	if err := users.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("could not create user indexes")
	}
	if err := logStore.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("could not create edit-log indexes")
	}

	seed, err := logStore.MaxSeq(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("could not read edit-log sequence")
	}

	seq := editlogs.NewSequencer(ctx, db.RDB, seed, logger.Component(log, "sequence"))
	hub := editlogs.NewHub()
	writer := editlogs.NewWriter(logStore, seq, hub, logger.Component(log, "editlogs"), deploy)

	deps := core.Deps(users, logStore, writer, hub, collections, log)
	if err := deps.Entities.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("could not create entity indexes")
	}

	log.Info().Str("deployment", deploy).Str("version", env.VERSION).Strs("models", core.Schemas.Names()).Msg("definitions compiled")

	return NewApp(deps), func() {
		writer.Close()
		db.Close()
	}
}

// Deps wires the compiled core to the given stores.
func (core *Core) Deps(users auth.Users, logStore editlogs.Store, writer *editlogs.Writer, hub *editlogs.Hub, collections entities.Collections, log zerolog.Logger) *api.Deps {
	engine := editlogs.NewEngine(core.Formatter, auth.NewDirectory(users), writer, logStore, logger.Component(log, "editlogs"))

	return &api.Deps{
		Schemas:   core.Schemas,
		Enums:     core.Enums,
		Layouts:   core.Layouts,
		Perms:     core.Perms,
		Formatter: core.Formatter,
		Entities:  entities.NewStore(core.Schemas, core.Formatter, core.Perms, engine, collections, logger.Component(log, "entities")),
		EditLogs:  engine,
		Hub:       hub,
		Users:     users,
		Log:       log,
	}
}

// NewApp builds the HTTP surface over deps.
func NewApp(deps *api.Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,
	})

	app.Use(requestLogger(logger.Component(deps.Log, "http")))

	rim := app.Group("/rim")

	rim.Get("/ping", func(c fiber.Ctx) error {
		return c.SendString("PONG")
	})

	rim.Get("/version", func(c fiber.Ctx) error {
		return c.SendString("v" + env.VERSION)
	})

	auth.Routes(rim, deps.Users)
	api.Routes(rim, deps)
	swagger.Register(app)

	return app
}

// requestLogger tags every request with an id and logs its outcome.
func requestLogger(log zerolog.Logger) fiber.Handler {
	return func(c fiber.Ctx) error {
		id := c.Get(fiber.HeaderXRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(fiber.HeaderXRequestID, id)

		start := time.Now()
		err := c.Next()

		log.Debug().
			Str("request_id", id).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", c.Response().StatusCode()).
			Dur("took", time.Since(start)).
			Msg("request")

		return err
	}
}
