package models

import "errors"

// Common errors for domain operations across stores and services.
var (
	// User errors
	ErrUserNotFound  = errors.New("user not found")
	ErrDuplicateUser = errors.New("a user with that handle already exists")

	// Authorization code errors
	ErrAuthCodeNotFound = errors.New("authorization code not found")
	ErrAuthCodeExpired  = errors.New("authorization code expired")

	// Vessel errors
	ErrVesselNotFound = errors.New("vessel not found")

	// Flight errors
	ErrFlightNotFound = errors.New("flight not found")

	// Command errors
	ErrCommandNotFound   = errors.New("command not found")
	ErrCommandBadState   = errors.New("command state transition is not allowed")
	ErrUnknownPartIndex  = errors.New("part index not present in flight's measured parts")
	ErrInvalidPayload    = errors.New("payload failed schema validation")
	ErrMeasurementsRange = errors.New("measurement range query exceeded row cap")
)
