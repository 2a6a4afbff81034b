package chinchon

import (
	"errors"
	"fmt"
)

// ErrInvariant marks a broken card-conservation invariant. It is a programmer error and
// is raised by panic, never returned to callers.
var ErrInvariant = errors.New("round invariant violated")

// ErrorKind classifies rejected moves.
type ErrorKind string

const (
	KindNotYourTurn   ErrorKind = "not_your_turn"
	KindWrongPhase    ErrorKind = "wrong_phase"
	KindMissingCard   ErrorKind = "missing_card"
	KindCannotCut     ErrorKind = "cannot_cut"
	KindEmptySource   ErrorKind = "empty_source"
	KindCardNotInHand ErrorKind = "card_not_in_hand"
	KindRoundOver     ErrorKind = "round_over"
	KindInvalidMove   ErrorKind = "invalid_move"
)

// MoveError is a rejected action. The round is left unchanged.
type MoveError struct {
	Kind   ErrorKind
	Detail string
}

func (e *MoveError) Error() string {
	if e.Detail == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// Is matches any MoveError of the same kind, so callers can write
// errors.Is(err, chinchon.ErrWrongPhase).
func (e *MoveError) Is(target error) bool {
	t, ok := target.(*MoveError)
	return ok && t.Kind == e.Kind
}

var (
	ErrNotYourTurn   = &MoveError{Kind: KindNotYourTurn}
	ErrWrongPhase    = &MoveError{Kind: KindWrongPhase}
	ErrMissingCard   = &MoveError{Kind: KindMissingCard}
	ErrCannotCut     = &MoveError{Kind: KindCannotCut}
	ErrEmptySource   = &MoveError{Kind: KindEmptySource}
	ErrCardNotInHand = &MoveError{Kind: KindCardNotInHand}
	ErrRoundOver     = &MoveError{Kind: KindRoundOver}
	ErrInvalidMove   = &MoveError{Kind: KindInvalidMove}
)

func moveErr(kind ErrorKind, format string, args ...any) *MoveError {
	return &MoveError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// KindOf extracts the move error kind, or "" for other errors.
func KindOf(err error) ErrorKind {
	var me *MoveError
	if errors.As(err, &me) {
		return me.Kind
	}
	return ""
}
