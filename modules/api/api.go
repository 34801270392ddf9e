package api

import (
	"ballot-node/lib/logger"
	a "ballot-node/modules/aggregate"
	"ballot-node/modules/auth"
	"ballot-node/modules/chain"
	"ballot-node/modules/config"
	"ballot-node/modules/db/ballot/admins"
	"ballot-node/modules/db/ballot/candidates"
	"ballot-node/modules/db/ballot/elections"
	"ballot-node/modules/db/ballot/voters"
	"ballot-node/modules/orchestrator"

	"github.com/chebyrash/promise"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Api serves the REST surface. Routes are registered during Init; Start
// blocks on the listener inside its promise so the aggregate can await it.
type Api struct {
	conf         *config.Config[ApiConfig]
	auth         *auth.Auth
	orchestrator *orchestrator.Orchestrator
	voterDb      voters.Voters
	candidateDb  candidates.Candidates
	adminDb      admins.Admins
	electionDb   elections.Elections
	gateway      chain.Gateway
	log          logger.Logger

	app      *fiber.App
	validate *validator.Validate
}

var _ a.Plugin = &Api{}

func New(
	conf *config.Config[ApiConfig],
	au *auth.Auth,
	orch *orchestrator.Orchestrator,
	voterDb voters.Voters,
	candidateDb candidates.Candidates,
	adminDb admins.Admins,
	electionDb elections.Elections,
	gateway chain.Gateway,
	log logger.Logger,
) *Api {
	return &Api{
		conf:         conf,
		auth:         au,
		orchestrator: orch,
		voterDb:      voterDb,
		candidateDb:  candidateDb,
		adminDb:      adminDb,
		electionDb:   electionDb,
		gateway:      gateway,
		log:          log,
		validate:     validator.New(),
	}
}

func (api *Api) Init() error {
	api.app = fiber.New(fiber.Config{
		AppName:               "ballot-node",
		DisableStartupMessage: true,
	})
	api.app.Use(recover.New())
	api.app.Use(cors.New())

	api.app.Get("/health", func(c *fiber.Ctx) error {
		return ok(c, fiber.Map{"status": "up"})
	})

	v1 := api.app.Group("/api/v1")
	api.registerAuthRoutes(v1)
	api.registerVoterRoutes(v1)
	api.registerCandidateRoutes(v1)
	api.registerAdminRoutes(v1)
	api.registerElectionRoutes(v1)
	api.registerBlockchainRoutes(v1)
	return nil
}

func (api *Api) Start() *promise.Promise[any] {
	return promise.New(func(resolve func(any), reject func(error)) {
		addr := api.conf.Get().Addr
		api.log.Debug("listening", addr)
		if err := api.app.Listen(addr); err != nil {
			reject(err)
			return
		}
		resolve(nil)
	})
}

func (api *Api) Stop() error {
	if api.app == nil {
		return nil
	}
	return api.app.Shutdown()
}

// App exposes the router for in-process tests.
func (api *Api) App() *fiber.App {
	return api.app
}

func (api *Api) parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return err
	}
	return api.validate.Struct(out)
}
