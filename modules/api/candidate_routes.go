package api

import (
	"ballot-node/modules/auth"
	"ballot-node/modules/common"
	"ballot-node/modules/db/ballot/candidates"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type createCandidateRequest struct {
	Name          string `json:"name" validate:"required,min=2,max=100"`
	Age           uint8  `json:"age" validate:"required,gte=25,lte=120"`
	Gender        string `json:"gender" validate:"required,oneof=male female other"`
	Email         string `json:"email" validate:"required,email"`
	Phone         string `json:"phone" validate:"omitempty,min=7,max=20"`
	Party         string `json:"party" validate:"required,min=2,max=100"`
	Manifesto     string `json:"manifesto" validate:"omitempty,max=5000"`
	WalletAddress string `json:"walletAddress" validate:"required,len=42,startswith=0x"`
}

type updateCandidateProfileRequest struct {
	Name      *string `json:"name" validate:"omitempty,min=2,max=100"`
	Email     *string `json:"email" validate:"omitempty,email"`
	Phone     *string `json:"phone" validate:"omitempty,min=7,max=20"`
	Party     *string `json:"party" validate:"omitempty,min=2,max=100"`
	Manifesto *string `json:"manifesto" validate:"omitempty,max=5000"`
}

func (api *Api) registerCandidateRoutes(r fiber.Router) {
	g := r.Group("/candidates")
	g.Post("/", api.handleCandidateSignup)
	g.Get("/", api.handleListCandidates)
	g.Get("/me", api.auth.RequireAuth(auth.RoleCandidate), api.handleCandidateMe)
	g.Put("/me", api.auth.RequireAuth(auth.RoleCandidate), api.handleCandidateUpdateProfile)
	g.Get("/:id", api.handleGetCandidate)
	g.Post("/:id/verify", api.auth.RequireAuth(auth.RoleAdmin), api.handleVerifyCandidate)
	g.Delete("/:id", api.auth.RequireAuth(auth.RoleAdmin), api.handleDeleteCandidate)
}

func (api *Api) handleCandidateSignup(c *fiber.Ctx) error {
	var req createCandidateRequest
	if err := api.parseBody(c, &req); err != nil {
		return validationFail(c, err)
	}
	candidate, err := api.candidateDb.Create(c.Context(), candidates.CreateCandidateInput{
		Name:          req.Name,
		Age:           req.Age,
		Gender:        common.Gender(req.Gender),
		Email:         req.Email,
		Phone:         req.Phone,
		Party:         req.Party,
		Manifesto:     req.Manifesto,
		WalletAddress: req.WalletAddress,
	})
	if err != nil {
		return mapError(c, err)
	}
	return created(c, candidate)
}

// Candidate listings are public so voters can browse who is running.
func (api *Api) handleListCandidates(c *fiber.Ctx) error {
	opts := candidates.ListOptions{
		Skip:  int64(c.QueryInt("skip", 0)),
		Limit: int64(c.QueryInt("limit", 50)),
	}
	if s := c.Query("status"); s != "" {
		status := candidates.VerificationStatus(s)
		if !status.Valid() {
			return fail(c, fiber.StatusBadRequest, "unknown verification status")
		}
		opts.VerificationStatus = &status
	}
	list, err := api.candidateDb.List(c.Context(), opts)
	if err != nil {
		return mapError(c, err)
	}
	return ok(c, list)
}

func (api *Api) handleCandidateMe(c *fiber.Ctx) error {
	candidate, err := api.candidateDb.GetByWallet(c.Context(), auth.ClaimsFrom(c).WalletAddress)
	if err != nil {
		return mapError(c, err)
	}
	return ok(c, candidate)
}

func (api *Api) handleCandidateUpdateProfile(c *fiber.Ctx) error {
	var req updateCandidateProfileRequest
	if err := api.parseBody(c, &req); err != nil {
		return validationFail(c, err)
	}
	candidate, err := api.candidateDb.UpdateProfile(c.Context(), auth.ClaimsFrom(c).WalletAddress, candidates.ProfileUpdate{
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Party:     req.Party,
		Manifesto: req.Manifesto,
	})
	if err != nil {
		return mapError(c, err)
	}
	return ok(c, candidate)
}

func (api *Api) handleGetCandidate(c *fiber.Ctx) error {
	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "malformed candidate id")
	}
	candidate, err := api.candidateDb.GetByID(c.Context(), id)
	if err != nil {
		return mapError(c, err)
	}
	return ok(c, candidate)
}

func (api *Api) handleVerifyCandidate(c *fiber.Ctx) error {
	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "malformed candidate id")
	}
	var req verifyRequest
	if err := api.parseBody(c, &req); err != nil {
		return validationFail(c, err)
	}
	adminID, err := primitive.ObjectIDFromHex(auth.ClaimsFrom(c).ID)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "malformed token subject")
	}
	candidate, err := api.orchestrator.VerifyCandidate(c.Context(), adminID, id, candidates.VerificationStatus(req.Status))
	if err != nil {
		return mapError(c, err)
	}
	return ok(c, candidate)
}

func (api *Api) handleDeleteCandidate(c *fiber.Ctx) error {
	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "malformed candidate id")
	}
	if err := api.candidateDb.Delete(c.Context(), id); err != nil {
		return mapError(c, err)
	}
	return ok(c, fiber.Map{"deleted": true})
}
