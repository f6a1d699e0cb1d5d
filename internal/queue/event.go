// Package queue defines message payloads exchanged over the message broker
// together with the RabbitMQ publisher and the audit consumer.
package queue

import "time"

// Exchange is the durable topic exchange all auth events go to.
const Exchange = "auth"

// Routing keys, one per domain event.
const (
	UserCreated         = "user.created"
	UserLogin           = "user.login"
	UserLogout          = "user.logout"
	UserUpdated         = "user.updated"
	UserPasswordChanged = "user.password_changed"
	UserDeleted         = "user.deleted"
)

// UserCreatedEvent is published after a successful registration.
type UserCreatedEvent struct {
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// UserSessionEvent is published on login and on logout.
type UserSessionEvent struct {
	UserID    string    `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
}

// UserUpdatedEvent carries only the fields that changed.
type UserUpdatedEvent struct {
	UserID    string    `json:"userId"`
	Name      *string   `json:"name,omitempty"`
	Email     *string   `json:"email,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type PasswordChangedEvent struct {
	UserID    string    `json:"userId"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type UserDeletedEvent struct {
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	DeletedAt time.Time `json:"deletedAt"`
}
