package model

import (
	"errors"
	"fmt"
)

// Common errors used across the application
var (
	// Player errors
	ErrPlayerNotFound = errors.New("player not found")
	ErrNameEmpty      = errors.New("display name is empty")
	ErrNameTaken      = errors.New("display name is already taken")

	// Join window errors
	ErrJoinClosed          = errors.New("join window is closed")
	ErrGameInProgress      = errors.New("game is in progress")
	ErrInsufficientPlayers = errors.New("insufficient players to start game")

	// Game errors
	ErrGameNotFound         = errors.New("game not found")
	ErrRolesAlreadyAssigned = errors.New("roles have already been assigned")
	ErrRoleNotAssigned      = errors.New("role has not been assigned")

	// Bot errors
	ErrUnknownBotStrategy = errors.New("unknown bot strategy")

	// ErrInvariantViolation marks a host-side logic defect. It is never caused by a peer.
	ErrInvariantViolation = errors.New("invariant violation")
)

// PeerFault wraps an error caused by one remote player. The game continues
// without that player's further participation; host faults are returned bare.
type PeerFault struct {
	Player PlayerID
	Err    error
}

func (f *PeerFault) Error() string {
	return fmt.Sprintf("player %s: %v", f.Player, f.Err)
}

func (f *PeerFault) Unwrap() error {
	return f.Err
}

// IsPeerFault reports whether err was caused by a remote player
func IsPeerFault(err error) bool {
	var pf *PeerFault
	return errors.As(err, &pf)
}
