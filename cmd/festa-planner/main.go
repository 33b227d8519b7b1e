// Package main provides the Festa planner worker: it hosts the agent
// runners, the completion watcher, the client bridge and the sweeper over
// the configured event bus channel.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/festa-dev/festa/pkg/cmd"
	"github.com/festa-dev/festa/pkg/eventbus"
	"github.com/festa-dev/festa/pkg/log"
	"github.com/festa-dev/festa/pkg/orchestrator"
	"github.com/festa-dev/festa/pkg/otelhelper"
	"github.com/festa-dev/festa/pkg/planner"
	"github.com/festa-dev/festa/pkg/store"
)

func main() {
	command := &cli.Command{
		Name:                  "festa-planner",
		Usage:                 "Run the party planning pipeline",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence (file:// or postgres://)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (gochannel, kafka)",
				Value:   "kafka",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "backup-dir",
				Usage:   "Directory party snapshots are written to",
				Value:   "./backups",
				Sources: cli.EnvVars("BACKUP_DIR"),
			},
			&cli.DurationFlag{
				Name:    "agent-timeout",
				Usage:   "Maximum duration of a single agent execution",
				Value:   2 * time.Minute,
				Sources: cli.EnvVars("AGENT_TIMEOUT"),
			},
			&cli.StringFlag{
				Name:    "sweep-schedule",
				Usage:   "Cron schedule for the stale-execution sweep",
				Value:   "@every 30s",
				Sources: cli.EnvVars("SWEEP_SCHEDULE"),
			},
			&cli.StringFlag{
				Name:    "feedback-queue",
				Usage:   "Redis list name for out-of-band feedback (empty disables the receiver)",
				Sources: cli.EnvVars("FEEDBACK_QUEUE"),
			},
			&cli.StringFlag{
				Name:    "redis-addr",
				Usage:   "Redis address for the feedback queue",
				Value:   "localhost:6379",
				Sources: cli.EnvVars("REDIS_ADDR"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export OTLP traces for agent executions",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: run,
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}

func run(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))

	logger := log.WithModule("planner")
	logger.InfoContext(ctx, "Initializing Festa planner")

	persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	defer func() {
		err := persistence.Close(ctx)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	partyStore := store.NewPartyStore(persistence.PartyRepository(), command.String("backup-dir"), logger)
	registry := cmd.NewRegistry(logger)

	pub, subs := cmd.NewEventBusChannel(command.String("event-bus"), "festa-planner", logger)

	orch := orchestrator.NewOrchestrator(partyStore, registry, eventbus.NewWatermillEventBus(pub, subs("orchestrator")), logger)

	config := planner.Config{
		AgentTimeout:  command.Duration("agent-timeout"),
		SweepSchedule: command.String("sweep-schedule"),
	}

	if queueName := command.String("feedback-queue"); queueName != "" {
		config.QueueConfig = map[string]any{
			"queue": queueName,
			"connection": map[string]any{
				"addr": command.String("redis-addr"),
			},
		}
	}

	if command.Bool("tracing") {
		tracer, err := otelhelper.NewTracer(ctx, "festa-planner")
		if err != nil {
			return err
		}

		config.Tracer = tracer
	}

	manager := planner.NewManager(partyStore, registry, orch, pub, subs, logger, config)

	err := manager.Start(ctx)
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "Planner started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	logger.InfoContext(ctx, "Shutting down planner...")

	manager.Stop(ctx)

	return nil
}
