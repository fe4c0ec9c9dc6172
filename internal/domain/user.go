package domain

import "github.com/google/uuid"

// Identity is the verified user identity supplied by the authentication
// collaborator at connection-bind time. The realtime core trusts it and
// performs no credential checking of its own.
//
// JSON field names are part of the client wire contract.
type Identity struct {
	UserID   uuid.UUID `json:"userId"`
	Username string    `json:"username"`
	UserPic  string    `json:"userPic,omitempty"`
}
