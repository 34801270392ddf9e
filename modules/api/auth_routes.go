package api

import (
	"github.com/gofiber/fiber/v2"
)

type adminLoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type walletLoginRequest struct {
	WalletAddress string `json:"walletAddress" validate:"required,len=42,startswith=0x"`
	Message       string `json:"message" validate:"required"`
	Signature     string `json:"signature" validate:"required"`
}

func (api *Api) registerAuthRoutes(r fiber.Router) {
	g := r.Group("/auth")
	g.Post("/admin/login", api.handleAdminLogin)
	g.Post("/voter/login", api.handleVoterLogin)
	g.Post("/candidate/login", api.handleCandidateLogin)
}

func (api *Api) handleAdminLogin(c *fiber.Ctx) error {
	var req adminLoginRequest
	if err := api.parseBody(c, &req); err != nil {
		return validationFail(c, err)
	}
	token, admin, err := api.auth.AdminLogin(c.Context(), req.Username, req.Password)
	if err != nil {
		return mapError(c, err)
	}
	return ok(c, fiber.Map{"token": token, "admin": admin})
}

func (api *Api) handleVoterLogin(c *fiber.Ctx) error {
	var req walletLoginRequest
	if err := api.parseBody(c, &req); err != nil {
		return validationFail(c, err)
	}
	token, voter, err := api.auth.VoterLogin(c.Context(), req.WalletAddress, req.Message, req.Signature)
	if err != nil {
		return mapError(c, err)
	}
	return ok(c, fiber.Map{"token": token, "voter": voter})
}

func (api *Api) handleCandidateLogin(c *fiber.Ctx) error {
	var req walletLoginRequest
	if err := api.parseBody(c, &req); err != nil {
		return validationFail(c, err)
	}
	token, candidate, err := api.auth.CandidateLogin(c.Context(), req.WalletAddress, req.Message, req.Signature)
	if err != nil {
		return mapError(c, err)
	}
	return ok(c, fiber.Map{"token": token, "candidate": candidate})
}
