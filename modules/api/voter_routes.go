package api

import (
	"ballot-node/modules/auth"
	"ballot-node/modules/common"
	"ballot-node/modules/db/ballot/voters"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type createVoterRequest struct {
	Name          string `json:"name" validate:"required,min=2,max=100"`
	Age           uint8  `json:"age" validate:"required,gte=18,lte=120"`
	Gender        string `json:"gender" validate:"required,oneof=male female other"`
	Email         string `json:"email" validate:"required,email"`
	Phone         string `json:"phone" validate:"omitempty,min=7,max=20"`
	WalletAddress string `json:"walletAddress" validate:"required,len=42,startswith=0x"`
}

type updateProfileRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=2,max=100"`
	Email *string `json:"email" validate:"omitempty,email"`
	Phone *string `json:"phone" validate:"omitempty,min=7,max=20"`
}

type verifyRequest struct {
	Status string `json:"status" validate:"required,oneof=pending verified rejected"`
}

func (api *Api) registerVoterRoutes(r fiber.Router) {
	g := r.Group("/voters")
	g.Post("/", api.handleVoterSignup)
	g.Get("/", api.auth.RequireAuth(auth.RoleAdmin), api.handleListVoters)
	g.Get("/me", api.auth.RequireAuth(auth.RoleVoter), api.handleVoterMe)
	g.Put("/me", api.auth.RequireAuth(auth.RoleVoter), api.handleVoterUpdateProfile)
	g.Get("/:id", api.auth.RequireAuth(auth.RoleAdmin), api.handleGetVoter)
	g.Post("/:id/verify", api.auth.RequireAuth(auth.RoleAdmin), api.handleVerifyVoter)
	g.Delete("/:id", api.auth.RequireAuth(auth.RoleAdmin), api.handleDeleteVoter)
}

func (api *Api) handleVoterSignup(c *fiber.Ctx) error {
	var req createVoterRequest
	if err := api.parseBody(c, &req); err != nil {
		return validationFail(c, err)
	}
	voter, err := api.voterDb.Create(c.Context(), voters.CreateVoterInput{
		Name:          req.Name,
		Age:           req.Age,
		Gender:        common.Gender(req.Gender),
		Email:         req.Email,
		Phone:         req.Phone,
		WalletAddress: req.WalletAddress,
	})
	if err != nil {
		return mapError(c, err)
	}
	return created(c, voter)
}

func (api *Api) handleListVoters(c *fiber.Ctx) error {
	opts := voters.ListOptions{
		Skip:  int64(c.QueryInt("skip", 0)),
		Limit: int64(c.QueryInt("limit", 50)),
	}
	if s := c.Query("status"); s != "" {
		status := voters.VerificationStatus(s)
		if !status.Valid() {
			return fail(c, fiber.StatusBadRequest, "unknown verification status")
		}
		opts.VerificationStatus = &status
	}
	list, err := api.voterDb.List(c.Context(), opts)
	if err != nil {
		return mapError(c, err)
	}
	return ok(c, list)
}

func (api *Api) handleVoterMe(c *fiber.Ctx) error {
	voter, err := api.voterDb.GetByWallet(c.Context(), auth.ClaimsFrom(c).WalletAddress)
	if err != nil {
		return mapError(c, err)
	}
	return ok(c, voter)
}

func (api *Api) handleVoterUpdateProfile(c *fiber.Ctx) error {
	var req updateProfileRequest
	if err := api.parseBody(c, &req); err != nil {
		return validationFail(c, err)
	}
	voter, err := api.voterDb.UpdateProfile(c.Context(), auth.ClaimsFrom(c).WalletAddress, voters.ProfileUpdate{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
	})
	if err != nil {
		return mapError(c, err)
	}
	return ok(c, voter)
}

func (api *Api) handleGetVoter(c *fiber.Ctx) error {
	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "malformed voter id")
	}
	voter, err := api.voterDb.GetByID(c.Context(), id)
	if err != nil {
		return mapError(c, err)
	}
	return ok(c, voter)
}

func (api *Api) handleVerifyVoter(c *fiber.Ctx) error {
	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "malformed voter id")
	}
	var req verifyRequest
	if err := api.parseBody(c, &req); err != nil {
		return validationFail(c, err)
	}
	adminID, err := primitive.ObjectIDFromHex(auth.ClaimsFrom(c).ID)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "malformed token subject")
	}
	voter, err := api.orchestrator.VerifyVoter(c.Context(), adminID, id, voters.VerificationStatus(req.Status))
	if err != nil {
		return mapError(c, err)
	}
	return ok(c, voter)
}

func (api *Api) handleDeleteVoter(c *fiber.Ctx) error {
	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "malformed voter id")
	}
	if err := api.voterDb.Delete(c.Context(), id); err != nil {
		return mapError(c, err)
	}
	return ok(c, fiber.Map{"deleted": true})
}
