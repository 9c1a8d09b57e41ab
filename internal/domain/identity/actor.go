package identity

import (
	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/shared"
)

// Actor is the already-authenticated user and/or device on whose behalf a
// ledger operation runs. The ledger records it but does not authenticate it.
type Actor struct {
	UserID   *uuid.UUID
	DeviceID *uuid.UUID
}

// UserActor returns an actor for an interactive user
func UserActor(userID uuid.UUID) Actor {
	return Actor{UserID: &userID}
}

// DeviceActor returns an actor for an unattended device
func DeviceActor(deviceID uuid.UUID) Actor {
	return Actor{DeviceID: &deviceID}
}

// Normalized returns a copy without identities that point at the nil UUID
func (a Actor) Normalized() Actor {
	if a.UserID != nil && *a.UserID == uuid.Nil {
		a.UserID = nil
	}
	if a.DeviceID != nil && *a.DeviceID == uuid.Nil {
		a.DeviceID = nil
	}
	return a
}

// Validate requires at least one non-nil identity
func (a Actor) Validate() error {
	userSet := a.UserID != nil && *a.UserID != uuid.Nil
	deviceSet := a.DeviceID != nil && *a.DeviceID != uuid.Nil
	if !userSet && !deviceSet {
		return shared.NewDomainError(shared.CodeUnauthorized, "Actor must be a user or a device")
	}
	return nil
}

// HasDevice returns true if the actor carries a device identity
func (a Actor) HasDevice() bool {
	return a.DeviceID != nil && *a.DeviceID != uuid.Nil
}
