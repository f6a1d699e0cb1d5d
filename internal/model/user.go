package model

import "time"

// Role is the authorization level stored on a user record.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// LockoutState is the subset of a user record that drives the failed
// login policy. LockUntil only matters while it lies in the future.
type LockoutState struct {
	FailedLoginAttempts int        `bson:"failedLoginAttempts"`
	LockUntil           *time.Time `bson:"lockUntil"`
}

// User represents an account as stored in the `users` collection (or
// table, for the MySQL driver). The password hash is never serialised to
// clients; handlers return the projection built by Public.
//
// Fields:
//
//	ID           – opaque identifier (ObjectID hex for Mongo, UUID for MySQL).
//	Email        – unique, lower-cased address.
//	PasswordHash – bcrypt hash of the password.
//	Name         – display name.
//	Role         – user or admin.
//	IsActive     – disabled accounts cannot log in or refresh.
//	LastLogin    – time of the last successful login (nil before the first).
type User struct {
	ID           string     `bson:"_id"`
	Email        string     `bson:"email"`
	PasswordHash string     `bson:"passwordHash"`
	Name         string     `bson:"name"`
	Role         Role       `bson:"role"`
	IsActive     bool       `bson:"isActive"`
	LastLogin    *time.Time `bson:"lastLogin"`
	LockoutState `bson:",inline"`
	CreatedAt    time.Time `bson:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt"`
}

// PublicUser is the client-facing view of a User.
type PublicUser struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Public returns the projection of u that is safe to expose.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// Principal is the authenticated caller attached to a request by the
// auth middleware.
type Principal struct {
	UserID string
	Email  string
	Role   Role
}

// RefreshToken models an entry in the `refresh_tokens` collection. The
// raw token handed to the client is never stored; only its SHA-256 hex
// digest is.
type RefreshToken struct {
	ID        string     `bson:"_id"`
	UserID    string     `bson:"userId"`
	TokenHash string     `bson:"tokenHash"`
	ExpiresAt time.Time  `bson:"expiresAt"`
	Revoked   bool       `bson:"isRevoked"`
	RevokedAt *time.Time `bson:"revokedAt,omitempty"`
	CreatedAt time.Time  `bson:"createdAt"`
}

// Valid reports whether the token can still be exchanged at now.
func (t *RefreshToken) Valid(now time.Time) bool {
	return !t.Revoked && t.ExpiresAt.After(now)
}
