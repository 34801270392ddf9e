package api

import (
	"ballot-node/lib/utils"
	"ballot-node/modules/auth"
	"ballot-node/modules/db/ballot/admins"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type createAdminRequest struct {
	Username    string   `json:"username" validate:"required,min=3,max=50"`
	Email       string   `json:"email" validate:"required,email"`
	Password    string   `json:"password" validate:"required,min=8"`
	Role        string   `json:"role" validate:"required,oneof=super_admin election_admin"`
	Permissions []string `json:"permissions" validate:"dive,required"`
}

type setActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

func (api *Api) registerAdminRoutes(r fiber.Router) {
	g := r.Group("/admins", api.auth.RequireAuth(auth.RoleAdmin))
	g.Post("/", api.handleCreateAdmin)
	g.Get("/", api.handleListAdmins)
	g.Put("/:id/active", api.handleSetAdminActive)
}

// requirePermission resolves the calling admin and checks a permission that
// only matters at the API edge (admin management has no orchestrator
// workflow behind it).
func (api *Api) requirePermission(c *fiber.Ctx, perm admins.Permission) (*admins.Admin, error) {
	adminID, err := primitive.ObjectIDFromHex(auth.ClaimsFrom(c).ID)
	if err != nil {
		return nil, fail(c, fiber.StatusUnauthorized, "malformed token subject")
	}
	admin, err := api.adminDb.GetByID(c.Context(), adminID)
	if err != nil {
		return nil, mapError(c, err)
	}
	if !admin.Active || !admin.HasPermission(perm) {
		return nil, fail(c, fiber.StatusForbidden, "admin lacks required permission")
	}
	return admin, nil
}

func (api *Api) handleCreateAdmin(c *fiber.Ctx) error {
	if _, err := api.requirePermission(c, admins.PermManageAdmins); err != nil {
		return err
	}
	var req createAdminRequest
	if err := api.parseBody(c, &req); err != nil {
		return validationFail(c, err)
	}
	perms := utils.Map(req.Permissions, func(p string) admins.Permission {
		return admins.Permission(p)
	})
	for _, p := range perms {
		if !admins.ValidPermission(p) {
			return fail(c, fiber.StatusBadRequest, "unknown permission "+string(p))
		}
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return mapError(c, err)
	}
	admin, err := api.adminDb.Create(c.Context(), admins.CreateAdminInput{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         admins.Role(req.Role),
		Permissions:  perms,
	})
	if err != nil {
		return mapError(c, err)
	}
	return created(c, admin)
}

func (api *Api) handleListAdmins(c *fiber.Ctx) error {
	if _, err := api.requirePermission(c, admins.PermManageAdmins); err != nil {
		return err
	}
	list, err := api.adminDb.List(c.Context())
	if err != nil {
		return mapError(c, err)
	}
	return ok(c, list)
}

func (api *Api) handleSetAdminActive(c *fiber.Ctx) error {
	caller, err := api.requirePermission(c, admins.PermManageAdmins)
	if err != nil {
		return err
	}
	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "malformed admin id")
	}
	var req setActiveRequest
	if err := api.parseBody(c, &req); err != nil {
		return validationFail(c, err)
	}
	if id == caller.ID && !*req.Active {
		return fail(c, fiber.StatusConflict, "cannot deactivate yourself")
	}
	if err := api.adminDb.SetActive(c.Context(), id, *req.Active); err != nil {
		return mapError(c, err)
	}
	return ok(c, fiber.Map{"active": *req.Active})
}
