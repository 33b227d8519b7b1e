package main

import (
	"context"
	"os"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/festa-dev/festa/pkg/cmd"
	"github.com/festa-dev/festa/pkg/log"
	"github.com/festa-dev/festa/pkg/planner"
	"github.com/festa-dev/festa/pkg/store"
)

const defaultPort = 9091

func main() {
	command := &cli.Command{
		Name:                  "festa-api",
		Usage:                 "Plan parties and track their progress",
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
				Name:     "database-url",
				Usage:    "Database connection URL for persistence (file:// or postgres://)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (gochannel, kafka)",
				Value:   "gochannel",
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
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("api")
			logger.InfoContext(ctx, "Initializing Festa API")

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			partyStore := store.NewPartyStore(persistence.PartyRepository(), command.String("backup-dir"), logger)
			registry := cmd.NewRegistry(logger)

			provider := command.String("event-bus")
			pub, subs := cmd.NewEventBusChannel(provider, "festa-api", logger)

			api := NewAPI(logger, partyStore, registry, pub, subs("api"))

			// The in-memory channel only reaches subscribers in this
			// process, so the planning pipeline runs embedded.
			if provider == "gochannel" || provider == "" {
				manager := planner.NewManager(partyStore, registry, api.Orchestrator(), pub, subs, logger, planner.Config{
					AgentTimeout: command.Duration("agent-timeout"),
				})

				err := manager.Start(ctx)
				if err != nil {
					return err
				}

				defer manager.Stop(ctx)
			}

			err := api.Start(command.Int("port"))
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
