package messenger

import (
	"errors"
	"fmt"
)

// ErrMissingPath is the only configuration error: a local store was asked to
// load without a file path.
var ErrMissingPath = errors.New("json file path is missing, use -server to specify a file")

// Kinds of reported outcomes. An operation that returns one of these did not
// change anything.
var (
	ErrConflict     = errors.New("conflict")
	ErrNotFound     = errors.New("not found")
	ErrPrecondition = errors.New("precondition not met")
)

var (
	ErrUserExists    = fmt.Errorf("%w: user already exists", ErrConflict)
	ErrChannelExists = fmt.Errorf("%w: channel already exists", ErrConflict)
	ErrAlreadyMember = fmt.Errorf("%w: user is already a member of the channel", ErrConflict)

	ErrUserNotFound    = fmt.Errorf("%w: user not found", ErrNotFound)
	ErrChannelNotFound = fmt.Errorf("%w: channel not found", ErrNotFound)

	ErrNotMember = fmt.Errorf("%w: user must join the channel before posting", ErrPrecondition)
)

var codes = map[string]error{
	"user_exists":       ErrUserExists,
	"channel_exists":    ErrChannelExists,
	"already_member":    ErrAlreadyMember,
	"user_not_found":    ErrUserNotFound,
	"channel_not_found": ErrChannelNotFound,
	"not_member":        ErrNotMember,
}

// Code returns the short wire code of a reported outcome, or "" when err is
// not one.
func Code(err error) string {
	for code, target := range codes {
		if errors.Is(err, target) {
			return code
		}
	}
	return ""
}

// FromCode is the inverse of Code. It returns nil for an unknown code.
func FromCode(code string) error {
	return codes[code]
}

// IsReport tells a business outcome (duplicate, missing, not a member) apart
// from an I/O or configuration failure.
func IsReport(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrPrecondition)
}
