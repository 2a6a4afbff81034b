package errors

import "errors"

var (
	ErrUnauthorized = errors.New("unauthorized")

	ErrPlayerNotFound     = errors.New("player not found")
	ErrPlayerDisabled     = errors.New("player disabled")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidUsername    = errors.New("username must be 3-32 letters, digits or underscores")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrInvalidCredentials = errors.New("invalid username or password")

	ErrAdminNotFound        = errors.New("admin not found")
	ErrAdminDisabled        = errors.New("admin disabled")
	ErrInvalidAdminPassword = errors.New("invalid admin credentials")
	ErrInvalidStatus        = errors.New("status must be active or disabled")

	ErrGameNotFound      = errors.New("game not found")
	ErrGameFull          = errors.New("game already has two players")
	ErrGameAccessDenied  = errors.New("game access denied")
	ErrGameNotPlaying    = errors.New("game is not in progress")
	ErrInvalidGameMode   = errors.New("invalid game mode")
	ErrInvalidDifficulty = errors.New("invalid bot difficulty")
	ErrUnsupportedAction = errors.New("unsupported action")
	ErrInvalidPayload    = errors.New("invalid action payload")

	ErrInviteNotFound   = errors.New("invite code not found or expired")
	ErrSnapshotNotFound = errors.New("game snapshot not found")

	ErrAlreadyInQueue  = errors.New("already in match queue")
	ErrQueueProcessing = errors.New("match queue request in progress")
)
