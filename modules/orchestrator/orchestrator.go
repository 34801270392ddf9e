package orchestrator

import (
	"context"
	"sync"

	"ballot-node/lib/logger"
	"ballot-node/lib/utils"
	a "ballot-node/modules/aggregate"
	"ballot-node/modules/chain"
	"ballot-node/modules/common"
	"ballot-node/modules/db/ballot/admins"
	"ballot-node/modules/db/ballot/candidates"
	"ballot-node/modules/db/ballot/elections"
	"ballot-node/modules/db/ballot/intents"
	"ballot-node/modules/db/ballot/voters"

	"github.com/chebyrash/promise"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Orchestrator sequences every election workflow: validate preconditions,
// write the intent, invoke the contract gateway, then apply the off-chain
// writes. All mutating workflows for one election run under that election's
// lock so the duplicate-vote and roster checks cannot race.
type Orchestrator struct {
	voterDb     voters.Voters
	candidateDb candidates.Candidates
	adminDb     admins.Admins
	electionDb  elections.Elections
	intentDb    intents.Intents
	gateway     chain.Gateway
	log         logger.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

var _ a.Plugin = &Orchestrator{}

func New(
	voterDb voters.Voters,
	candidateDb candidates.Candidates,
	adminDb admins.Admins,
	electionDb elections.Elections,
	intentDb intents.Intents,
	gateway chain.Gateway,
	log logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		voterDb:     voterDb,
		candidateDb: candidateDb,
		adminDb:     adminDb,
		electionDb:  electionDb,
		intentDb:    intentDb,
		gateway:     gateway,
		log:         log,
		locks:       make(map[string]*sync.Mutex),
	}
}

func (o *Orchestrator) Init() error {
	return nil
}

func (o *Orchestrator) Start() *promise.Promise[any] {
	return utils.PromiseResolve[any](nil)
}

func (o *Orchestrator) Stop() error {
	return nil
}

// lockFor returns the mutex serializing writes for one election. Locks are
// never removed; the map grows with the number of elections, which is small.
func (o *Orchestrator) lockFor(contractAddress string) *sync.Mutex {
	key := common.NormalizeWallet(contractAddress)
	o.mu.Lock()
	defer o.mu.Unlock()
	lock, ok := o.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		o.locks[key] = lock
	}
	return lock
}

// requireAdmin resolves an active admin holding the given permission.
func (o *Orchestrator) requireAdmin(ctx context.Context, adminID primitive.ObjectID, perm admins.Permission) (*admins.Admin, error) {
	admin, err := o.adminDb.GetByID(ctx, adminID)
	if err != nil {
		return nil, err
	}
	if !admin.Active || !admin.HasPermission(perm) {
		return nil, ErrForbidden
	}
	return admin, nil
}
