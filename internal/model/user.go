package model

import (
	"time"

	"github.com/google/uuid"
)

// Role constants — the only two roles the system knows
const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// ValidRole reports whether the given role name is one of the known roles
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleStaff
}

// User is the authentication identity. Profile data lives in Profile,
// role membership in UserRole — both cascade-deleted with the user.
type User struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email     string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password  string     `gorm:"type:varchar(255);not null" json:"-"` // Omit password hash from JSON requests/responses
	Profile   *Profile   `gorm:"foreignKey:UserID" json:"profile,omitempty"`
	Roles     []UserRole `gorm:"foreignKey:UserID" json:"roles,omitempty"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// Profile holds the display data for a user — exactly one per identity
type Profile struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Email     string    `gorm:"type:varchar(255);not null" json:"email"`
	FullName  string    `gorm:"type:varchar(255)" json:"full_name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// UserRole assigns a role to a user. The unique index keeps a user from
// holding the same role twice.
type UserRole struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_role" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Role      string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_user_role" json:"role"` // admin, staff
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// RefreshToken stores long-lived tokens allowing users to request new access tokens
type RefreshToken struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Token     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"token"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// PrimaryRole resolves the role used in JWT claims. Admin wins if a user
// somehow holds both assignments.
func (u *User) PrimaryRole() string {
	role := RoleStaff
	for _, r := range u.Roles {
		if r.Role == RoleAdmin {
			return RoleAdmin
		}
		role = r.Role
	}
	return role
}
