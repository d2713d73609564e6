package domain

import "time"

// Well-known role identifiers. IDs 1-3 are reserved and seeded by migration.
const (
	RoleIDAdmin     int64 = 1
	RoleIDUser      int64 = 2
	RoleIDModerator int64 = 3
)

// DefaultRoleID is assigned when a user is created without an explicit role.
const DefaultRoleID = RoleIDUser

// RoleName identifies a role by its unique name.
type RoleName string

// Role names.
const (
	RoleAdmin     RoleName = "admin"
	RoleUser      RoleName = "user"
	RoleModerator RoleName = "moderator"
)

// HasPermission reports whether the role satisfies the minimum required role.
// Ordering: admin > moderator > user.
func (r RoleName) HasPermission(minRole RoleName) bool {
	rank := map[RoleName]int{
		RoleUser:      1,
		RoleModerator: 2,
		RoleAdmin:     3,
	}
	return rank[r] >= rank[minRole]
}

// Role represents a named set of permissions.
type Role struct {
	ID          int64    `json:"id"`
	Name        RoleName `json:"name"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
}

// User represents an application user.
// The password hash is never serialized outward.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	RoleID    *int64    `json:"roleId"`
	Role      *Role     `json:"role,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RoleName returns the user's role name, defaulting to user when unset.
func (u *User) RoleName() RoleName {
	if u.Role != nil {
		return u.Role.Name
	}
	return RoleUser
}
