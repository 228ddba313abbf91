package models

import "time"

// UserRole scopes what a user is notified about.
type UserRole string

const (
	RoleAdmin UserRole = "admin"
	RoleShop  UserRole = "shop"
	RoleFarm  UserRole = "farm"
)

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleShop, RoleFarm:
		return true
	}
	return false
}

// User is an account that can receive notifications.
type User struct {
	ID        string    `bson:"_id" json:"id"`
	TenantID  string    `bson:"tenant_id" json:"tenant_id"`
	Name      string    `bson:"name" json:"name"`
	Email     string    `bson:"email" json:"email"`
	Phone     string    `bson:"phone,omitempty" json:"phone,omitempty"`
	Role      UserRole  `bson:"role" json:"role"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// Shop is a retail outlet. OwnerUserID links the shop to the account that
// receives its notifications.
type Shop struct {
	ID          string    `bson:"_id" json:"id"`
	TenantID    string    `bson:"tenant_id" json:"tenant_id"`
	Name        string    `bson:"name" json:"name"`
	Email       string    `bson:"email" json:"email"`
	Address     string    `bson:"address,omitempty" json:"address,omitempty"`
	OwnerUserID string    `bson:"owner_user_id" json:"owner_user_id"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
}
