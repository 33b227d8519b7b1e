// Package main provides the Festa API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/festa-dev/festa/pkg/eventbus"
	"github.com/festa-dev/festa/pkg/orchestrator"
	"github.com/festa-dev/festa/pkg/registry"
	"github.com/festa-dev/festa/pkg/store"
	"github.com/festa-dev/festa/pkg/web"
)

type API struct {
	logger       *slog.Logger
	partyStore   *store.PartyStore
	registry     *registry.Registry
	orchestrator *orchestrator.Orchestrator
	validate     *validator.Validate
}

func NewAPI(
	log *slog.Logger,
	partyStore *store.PartyStore,
	reg *registry.Registry,
	pub message.Publisher,
	sub message.Subscriber,
) *API {
	orch := orchestrator.NewOrchestrator(partyStore, reg, eventbus.NewWatermillEventBus(pub, sub), log)

	return &API{
		logger:       log,
		partyStore:   partyStore,
		registry:     reg,
		orchestrator: orch,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) Orchestrator() *orchestrator.Orchestrator {
	return a.orchestrator
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.orchestrator, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Festa API")
	})

	parties := app.Group("/parties")
	parties.Post("/", handlers.CreateParty)
	parties.Get("/", handlers.GetParties)
	parties.Get("/:id", handlers.GetParty)
	parties.Post("/:id/feedback", handlers.PostFeedback)
	parties.Post("/:id/backup", handlers.BackupParty)
	parties.Delete("/:id", handlers.DeleteParty)

	app.Get("/stats", handlers.GetStats)
	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
