package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"obpm/pkg/cmd"
	"obpm/pkg/log"
	"obpm/pkg/otelhelper"
	"obpm/pkg/reconciler"
)

const defaultPort = 9091

func main() {
	command := &cli.Command{
		Name:                  "obpm-api",
		Usage:                 "Execute actions and manage cases, documents and data models",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Database connection URL (memory:// or postgres://...)",
				Value:   "memory://",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "token-store-url",
				Usage:   "Token store URL (memory:// or redis://...)",
				Value:   "memory://",
				Sources: cli.EnvVars("TOKEN_STORE_URL"),
			},
			&cli.StringFlag{
				Name:    "reconcile-cron",
				Usage:   "Cron expression for the orphan-document sweep (empty disables it)",
				Value:   "@every 10m",
				Sources: cli.EnvVars("RECONCILE_CRON"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Enable OpenTelemetry tracing",
				Sources: cli.EnvVars("TRACING_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))
			logger := log.WithModule("api")

			logger.InfoContext(ctx, "Initializing obpm API")

			store, err := cmd.NewStore(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := store.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close store", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			tokenStore, err := cmd.NewTokenStore(command.String("token-store-url"))
			if err != nil {
				return err
			}

			api := NewAPI(logger, store, eventBus, tokenStore)

			if command.Bool("tracing") {
				tracer, err := otelhelper.NewTracer(ctx, "obpm-api")
				if err != nil {
					return err
				}

				api.tracer = tracer
			}

			if cronExpr := command.String("reconcile-cron"); cronExpr != "" {
				sweeper := reconciler.NewReconciler(store, eventBus, logger)
				if err := sweeper.Start(ctx, cronExpr); err != nil {
					return err
				}

				defer sweeper.Stop()
			}

			return api.Start(command.Int("port"))
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
