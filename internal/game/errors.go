package game

import "errors"

var (
	ErrInvalidGravity    = errors.New("gravity must be positive")
	ErrUnreachable       = errors.New("target unreachable: zero flight time over non-zero range")
	ErrNotCharging       = errors.New("no shot is being charged")
	ErrIllegalTransition = errors.New("illegal dribble state transition")
	ErrInvalidTunables   = errors.New("invalid tunables")
)
