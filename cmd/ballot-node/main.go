package main

import (
	"context"
	"fmt"
	"os"

	"ballot-node/lib/logger"
	"ballot-node/lib/utils"
	"ballot-node/modules/aggregate"
	"ballot-node/modules/api"
	"ballot-node/modules/auth"
	"ballot-node/modules/chain"
	"ballot-node/modules/db"
	"ballot-node/modules/db/ballot"
	"ballot-node/modules/db/ballot/admins"
	"ballot-node/modules/db/ballot/candidates"
	"ballot-node/modules/db/ballot/elections"
	"ballot-node/modules/db/ballot/intents"
	"ballot-node/modules/db/ballot/voters"
	"ballot-node/modules/orchestrator"
	"ballot-node/modules/reconciler"

	"github.com/chebyrash/promise"
)

func main() {
	log := logger.PrefixedLogger{Prefix: "ballot-node"}

	dbConf := db.NewDbConfig()
	if mongoURL := os.Getenv("MONGO_URL"); mongoURL != "" {
		dbConf.Update(func(dc *db.DbConfig) {
			dc.DbURI = mongoURL
		})
	}
	dbPlugin := db.New(dbConf)
	ballotDb := ballot.New(dbPlugin, dbConf)
	voterDb := voters.New(ballotDb)
	candidateDb := candidates.New(ballotDb)
	adminDb := admins.New(ballotDb)
	electionDb := elections.New(ballotDb)
	intentDb := intents.New(ballotDb)

	chainConf := chain.NewChainConfig()
	chainConf.Update(func(cc *chain.ChainConfig) {
		if rpcURL := os.Getenv("RPC_URL"); rpcURL != "" {
			cc.RpcURL = rpcURL
		}
		if bytecode := os.Getenv("CONTRACT_BYTECODE"); bytecode != "" {
			cc.Bytecode = bytecode
		}
	})
	descriptor, err := chain.DefaultDescriptor(chainConf.Get().Bytecode)
	if err != nil {
		fmt.Println("error is", err)
		os.Exit(1)
	}
	gateway := chain.New(chainConf, descriptor, logger.PrefixedLogger{Prefix: "chain"})

	orch := orchestrator.New(voterDb, candidateDb, adminDb, electionDb, intentDb, gateway, logger.PrefixedLogger{Prefix: "orchestrator"})

	reconcilerConf := reconciler.NewReconcilerConfig()
	sweep := reconciler.New(reconcilerConf, descriptor, intentDb, voterDb, candidateDb, electionDb, gateway, logger.PrefixedLogger{Prefix: "reconciler"})

	authConf := auth.NewAuthConfig()
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		authConf.Update(func(ac *auth.AuthConfig) {
			ac.JwtSecret = secret
		})
	}
	authService := auth.New(authConf, adminDb, voterDb, candidateDb)

	apiConf := api.NewApiConfig()
	apiConf.Update(func(ac *api.ApiConfig) {
		if addr := os.Getenv("API_ADDR"); addr != "" {
			ac.Addr = addr
		}
		if key := os.Getenv("CHAIN_SIGNER_KEY"); key != "" {
			ac.SignerKey = key
		}
	})
	restApi := api.New(apiConf, authService, orch, voterDb, candidateDb, adminDb, electionDb, gateway, logger.PrefixedLogger{Prefix: "api"})

	plugins := []aggregate.Plugin{
		dbConf,
		chainConf,
		reconcilerConf,
		authConf,
		apiConf,
		dbPlugin,
		ballotDb,
		voterDb,
		candidateDb,
		adminDb,
		electionDb,
		intentDb,
		gateway,
		orch,
		seedPlugin{adminDb: adminDb, log: log},
		sweep,
		authService,
		restApi,
	}

	if err := aggregate.New(plugins).Run(); err != nil {
		fmt.Println("error is", err)
		os.Exit(1)
	}
}

// seedPlugin creates the initial super_admin when the collection is empty,
// so a fresh deployment can be administered at all. Credentials come from
// SEED_ADMIN_USER / SEED_ADMIN_PASS, defaulting to admin / changeme123.
type seedPlugin struct {
	adminDb admins.Admins
	log     logger.Logger
}

func (s seedPlugin) Init() error {
	ctx := context.Background()
	count, err := s.adminDb.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	username := os.Getenv("SEED_ADMIN_USER")
	if username == "" {
		username = "admin"
	}
	password := os.Getenv("SEED_ADMIN_PASS")
	if password == "" {
		password = "changeme123"
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	admin, err := s.adminDb.Create(ctx, admins.CreateAdminInput{
		Username:     username,
		Email:        username + "@localhost",
		PasswordHash: hash,
		Role:         admins.RoleSuperAdmin,
		Permissions:  admins.AllPermissions,
	})
	if err != nil {
		return err
	}
	s.log.Debug("seeded super admin", admin.Username)
	return nil
}

func (s seedPlugin) Start() *promise.Promise[any] {
	return utils.PromiseResolve[any](nil)
}

func (s seedPlugin) Stop() error {
	return nil
}
