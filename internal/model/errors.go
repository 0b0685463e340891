package model

import "errors"

var (
	// Lookup errors
	ErrNotFound = errors.New("not found")

	// Comment tree errors
	ErrInvalidParent = errors.New("invalid parent comment")

	// Report errors
	ErrInvalidTarget    = errors.New("invalid report target")
	ErrAlreadyFinalized = errors.New("report already finalized")

	// Recycle bin errors
	ErrUnknownTable = errors.New("table is not soft-deletable")
	ErrConflict     = errors.New("conflict")

	// Permission/Access related errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Generic errors
	ErrInvalidInput = errors.New("invalid input")
)
