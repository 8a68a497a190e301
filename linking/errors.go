package linking

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrCustomerNotFound      = errors.New("customer not found")
	ErrCustomerAlreadyLinked = errors.New("customer already linked to another user")
	ErrUserAlreadyLinked     = errors.New("user already linked to another customer")
	ErrInvitationNotFound    = errors.New("invitation not found")
	ErrInvitationNotPending  = errors.New("invitation is not pending")
)
