package admins

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Role string

const (
	RoleSuperAdmin    Role = "super_admin"
	RoleElectionAdmin Role = "election_admin"
)

func (r Role) Valid() bool {
	return r == RoleSuperAdmin || r == RoleElectionAdmin
}

type Permission string

const (
	PermManageElections   Permission = "manage_elections"
	PermVerifyVoters      Permission = "verify_voters"
	PermVerifyCandidates  Permission = "verify_candidates"
	PermAnnounceResults   Permission = "announce_results"
	PermEmergencyStop     Permission = "emergency_stop"
	PermManageAdmins      Permission = "manage_admins"
)

// AllPermissions is what a super_admin holds implicitly.
var AllPermissions = []Permission{
	PermManageElections,
	PermVerifyVoters,
	PermVerifyCandidates,
	PermAnnounceResults,
	PermEmergencyStop,
	PermManageAdmins,
}

func ValidPermission(p Permission) bool {
	for _, known := range AllPermissions {
		if p == known {
			return true
		}
	}
	return false
}

type Admin struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username     string             `bson:"username" json:"username"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"passwordHash" json:"-"`
	Role         Role               `bson:"role" json:"role"`
	Permissions  []Permission       `bson:"permissions" json:"permissions"`
	Active       bool               `bson:"active" json:"active"`
	LastLoginAt  *time.Time         `bson:"lastLoginAt,omitempty" json:"lastLoginAt,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// HasPermission treats super_admin as holding every permission.
func (a Admin) HasPermission(p Permission) bool {
	if a.Role == RoleSuperAdmin {
		return true
	}
	for _, held := range a.Permissions {
		if held == p {
			return true
		}
	}
	return false
}

type CreateAdminInput struct {
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	Permissions  []Permission
}
