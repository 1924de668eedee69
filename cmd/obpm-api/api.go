// Package main provides the obpm API server implementation.
package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"go.opentelemetry.io/otel/trace"

	"obpm/pkg/auth"
	"obpm/pkg/eventbus"
	"obpm/pkg/events"
	"obpm/pkg/services"
	"obpm/pkg/store"
	"obpm/pkg/tree"
	"obpm/pkg/web"
)

type API struct {
	logger     *slog.Logger
	store      store.Store
	eventBus   eventbus.EventBus
	tokenStore auth.TokenStore
	tracer     trace.Tracer
	validate   *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	s store.Store,
	eventBus eventbus.EventBus,
	tokenStore auth.TokenStore,
) *API {
	return &API{
		logger:     logger,
		store:      s,
		eventBus:   eventBus,
		tokenStore: tokenStore,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	reader := tree.NewGraphReader(a.store, a.logger)
	actionService := services.NewActionService(a.store, reader, a.eventBus, a.tracer, a.logger)
	modelService := services.NewDataModelService(a.store, reader, a.logger)
	recordService := services.NewRecordService(a.store, reader, a.logger)

	handlers := web.NewAPIHandlers(actionService, modelService, recordService, reader, a.store, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("obpm API")
	})

	app.Get("/health", handlers.HealthCheck)

	authenticated := app.Group("/", web.NewAuthMiddleware(a.tokenStore))

	authenticated.Post("/executions", handlers.ExecuteAction)

	actions := authenticated.Group("/actions")
	actions.Get("/", handlers.GetActions)
	actions.Post("/", handlers.CreateAction)
	actions.Get("/executable", handlers.GetExecutableActions)
	actions.Get("/:id", handlers.GetAction)
	actions.Delete("/:id", handlers.DeleteAction)

	cases := authenticated.Group("/cases")
	cases.Get("/:id", handlers.GetCase)
	cases.Get("/:id/records", handlers.GetCaseRecords)

	authenticated.Get("/documents/:id/records", handlers.GetDocumentRecords)

	model := authenticated.Group("/model")
	model.Get("/", handlers.GetModel)
	model.Post("/", handlers.CreateModelType)
	model.Patch("/:key", handlers.UpdateModelType)
	model.Delete("/:key", handlers.DeleteModelType)

	return app
}

// subscribeAuditLog attaches structured-log consumers for the engine events
// and starts the subscriber loop.
func (a *API) subscribeAuditLog(ctx context.Context) error {
	logger := a.logger.With("module", "audit")

	err := a.eventBus.Handle(events.ActionExecutedEvent, func(ctx context.Context, event any) error {
		if executed, ok := event.(*events.ActionExecuted); ok {
			logger.InfoContext(ctx, "action executed",
				"case", executed.CaseKey, "action", executed.ActionName,
				"user", executed.UserName, "documents", len(executed.Documents))
		}

		return nil
	})
	if err != nil {
		return err
	}

	err = a.eventBus.Handle(events.ExecutionFailedEvent, func(ctx context.Context, event any) error {
		if failed, ok := event.(*events.ExecutionFailed); ok {
			logger.WarnContext(ctx, "execution failed",
				"case", failed.CaseKey, "action", failed.ActionKey,
				"code", failed.Code, "error", failed.Error)
		}

		return nil
	})
	if err != nil {
		return err
	}

	return a.eventBus.Subscribe(ctx)
}

func (a *API) Start(port int) error {
	if err := a.subscribeAuditLog(context.Background()); err != nil {
		return err
	}

	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}
