package api

import (
	"strings"
	"time"

	"ballot-node/modules/auth"
	"ballot-node/modules/db/ballot/elections"
	"ballot-node/modules/orchestrator"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type deployElectionRequest struct {
	Title                string     `json:"title" validate:"required,min=3,max=200"`
	Description          string     `json:"description" validate:"omitempty,max=2000"`
	MaxCandidates        int        `json:"maxCandidates" validate:"required,gte=2,lte=100"`
	RegistrationDeadline *time.Time `json:"registrationDeadline"`
	StartTime            *time.Time `json:"startTime"`
	EndTime              *time.Time `json:"endTime"`
}

type transitionRequest struct {
	Status string `json:"status" validate:"required"`
}

type detailsRequest struct {
	Title       string `json:"title" validate:"required,min=3,max=200"`
	Description string `json:"description" validate:"omitempty,max=2000"`
}

type participantKeyRequest struct {
	SignerKey string `json:"signerKey" validate:"required,min=64"`
}

type castVoteRequest struct {
	CandidateID uint64 `json:"candidateId" validate:"required"`
	SignerKey   string `json:"signerKey" validate:"required,min=64"`
}

type emergencyStopRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=500"`
}

func (api *Api) registerElectionRoutes(r fiber.Router) {
	g := r.Group("/elections")
	g.Post("/", api.auth.RequireAuth(auth.RoleAdmin), api.handleDeployElection)
	g.Get("/", api.handleListElections)
	g.Get("/:address", api.handleGetElection)
	g.Put("/:address/status", api.auth.RequireAuth(auth.RoleAdmin), api.handleTransitionStatus)
	g.Put("/:address/details", api.auth.RequireAuth(auth.RoleAdmin), api.handleSetDetails)
	g.Post("/:address/register/voter", api.auth.RequireAuth(auth.RoleVoter), api.handleRegisterVoter)
	g.Post("/:address/register/candidate", api.auth.RequireAuth(auth.RoleCandidate), api.handleRegisterCandidate)
	g.Post("/:address/vote", api.auth.RequireAuth(auth.RoleVoter), api.handleCastVote)
	g.Post("/:address/announce", api.auth.RequireAuth(auth.RoleAdmin), api.handleAnnounceResults)
	g.Get("/:address/results", api.handleGetResults)
	g.Post("/:address/emergency-stop", api.auth.RequireAuth(auth.RoleAdmin), api.handleEmergencyStop)
}

func contractAddressParam(c *fiber.Ctx) (string, error) {
	address := c.Params("address")
	if len(address) != 42 || !strings.HasPrefix(address, "0x") {
		return "", fail(c, fiber.StatusBadRequest, "malformed contract address")
	}
	return address, nil
}

func adminIDFrom(c *fiber.Ctx) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(auth.ClaimsFrom(c).ID)
	if err != nil {
		return primitive.NilObjectID, fail(c, fiber.StatusUnauthorized, "malformed token subject")
	}
	return id, nil
}

func (api *Api) handleDeployElection(c *fiber.Ctx) error {
	adminID, err := adminIDFrom(c)
	if err != nil {
		return err
	}
	var req deployElectionRequest
	if err := api.parseBody(c, &req); err != nil {
		return validationFail(c, err)
	}
	election, err := api.orchestrator.DeployElection(c.Context(), adminID, orchestrator.DeployParams{
		Title:                req.Title,
		Description:          req.Description,
		MaxCandidates:        req.MaxCandidates,
		SignerKey:            api.conf.Get().SignerKey,
		RegistrationDeadline: req.RegistrationDeadline,
		StartTime:            req.StartTime,
		EndTime:              req.EndTime,
	})
	if err != nil {
		return mapError(c, err)
	}
	return created(c, election)
}

func (api *Api) handleListElections(c *fiber.Ctx) error {
	opts := elections.ListOptions{
		Skip:  int64(c.QueryInt("skip", 0)),
		Limit: int64(c.QueryInt("limit", 50)),
	}
	if s := c.Query("status"); s != "" {
		status := elections.Status(s)
		if !status.Valid() {
			return fail(c, fiber.StatusBadRequest, "unknown election status")
		}
		opts.Status = &status
	}
	list, err := api.electionDb.List(c.Context(), opts)
	if err != nil {
		return mapError(c, err)
	}
	return ok(c, list)
}

func (api *Api) handleGetElection(c *fiber.Ctx) error {
	address, err := contractAddressParam(c)
	if err != nil {
		return err
	}
	election, err := api.electionDb.GetByAddress(c.Context(), address)
	if err != nil {
		return mapError(c, err)
	}
	return ok(c, election)
}

func (api *Api) handleTransitionStatus(c *fiber.Ctx) error {
	address, err := contractAddressParam(c)
	if err != nil {
		return err
	}
	adminID, err := adminIDFrom(c)
	if err != nil {
		return err
	}
	var req transitionRequest
	if err := api.parseBody(c, &req); err != nil {
		return validationFail(c, err)
	}
	if err := api.orchestrator.TransitionStatus(c.Context(), adminID, address, elections.Status(req.Status)); err != nil {
		return mapError(c, err)
	}
	election, err := api.electionDb.GetByAddress(c.Context(), address)
	if err != nil {
		return mapError(c, err)
	}
	return ok(c, election)
}

func (api *Api) handleSetDetails(c *fiber.Ctx) error {
	address, err := contractAddressParam(c)
	if err != nil {
		return err
	}
	adminID, err := adminIDFrom(c)
	if err != nil {
		return err
	}
	var req detailsRequest
	if err := api.parseBody(c, &req); err != nil {
		return validationFail(c, err)
	}
	if err := api.orchestrator.SetElectionDetails(c.Context(), adminID, address, req.Title, req.Description, api.conf.Get().SignerKey); err != nil {
		return mapError(c, err)
	}
	return ok(c, fiber.Map{"title": req.Title, "description": req.Description})
}

func (api *Api) handleRegisterVoter(c *fiber.Ctx) error {
	address, err := contractAddressParam(c)
	if err != nil {
		return err
	}
	var req participantKeyRequest
	if err := api.parseBody(c, &req); err != nil {
		return validationFail(c, err)
	}
	entry, err := api.orchestrator.RegisterVoterForElection(c.Context(), address, req.SignerKey)
	if err != nil {
		return mapError(c, err)
	}
	return created(c, entry)
}

func (api *Api) handleRegisterCandidate(c *fiber.Ctx) error {
	address, err := contractAddressParam(c)
	if err != nil {
		return err
	}
	var req participantKeyRequest
	if err := api.parseBody(c, &req); err != nil {
		return validationFail(c, err)
	}
	entry, err := api.orchestrator.RegisterCandidateForElection(c.Context(), address, req.SignerKey)
	if err != nil {
		return mapError(c, err)
	}
	return created(c, entry)
}

func (api *Api) handleCastVote(c *fiber.Ctx) error {
	address, err := contractAddressParam(c)
	if err != nil {
		return err
	}
	var req castVoteRequest
	if err := api.parseBody(c, &req); err != nil {
		return validationFail(c, err)
	}
	entry, err := api.orchestrator.CastVote(c.Context(), address, req.CandidateID, req.SignerKey)
	if err != nil {
		return mapError(c, err)
	}
	return created(c, entry)
}

func (api *Api) handleAnnounceResults(c *fiber.Ctx) error {
	address, err := contractAddressParam(c)
	if err != nil {
		return err
	}
	adminID, err := adminIDFrom(c)
	if err != nil {
		return err
	}
	election, err := api.orchestrator.AnnounceResults(c.Context(), adminID, address, api.conf.Get().SignerKey)
	if err != nil {
		return mapError(c, err)
	}
	return ok(c, election)
}

func (api *Api) handleGetResults(c *fiber.Ctx) error {
	address, err := contractAddressParam(c)
	if err != nil {
		return err
	}
	election, err := api.electionDb.GetByAddress(c.Context(), address)
	if err != nil {
		return mapError(c, err)
	}
	if election.Status != elections.StatusResultsAnnounced {
		return fail(c, fiber.StatusConflict, "results have not been announced")
	}
	return ok(c, fiber.Map{
		"results":           election.Results,
		"winner":            election.Winner,
		"turnoutPercentage": election.TurnoutPercentage,
		"announcedAt":       election.ResultsAnnouncedAt,
	})
}

func (api *Api) handleEmergencyStop(c *fiber.Ctx) error {
	address, err := contractAddressParam(c)
	if err != nil {
		return err
	}
	adminID, err := adminIDFrom(c)
	if err != nil {
		return err
	}
	var req emergencyStopRequest
	if err := api.parseBody(c, &req); err != nil {
		return validationFail(c, err)
	}
	if err := api.orchestrator.EmergencyStop(c.Context(), adminID, address, req.Reason, api.conf.Get().SignerKey); err != nil {
		return mapError(c, err)
	}
	return ok(c, fiber.Map{"stopped": true})
}
