// Package services holds the application logic behind the HTTP handlers:
// running dialogue turns, reading transcripts and managing support tickets.
//
// The errors below are the predictable failures of the service layer.
// Handlers map them to status codes; anything else is an internal error.
package services

import "errors"

// Turn errors.
var (
	// ErrEmptyInput is returned when the user message is blank after trimming.
	ErrEmptyInput = errors.New("message is empty")

	// ErrInputTooLong is returned when the message exceeds the configured
	// rune limit.
	ErrInputTooLong = errors.New("message too long")

	// ErrInvalidSessionID is returned for a blank or oversized session id.
	ErrInvalidSessionID = errors.New("invalid session id")

	// ErrSessionBusy is returned when another turn of the same session held
	// the lock for longer than the lock timeout.
	ErrSessionBusy = errors.New("session is busy")

	// ErrIdempotencyConflict is returned when an idempotency key is reused
	// with a different message in the same session.
	ErrIdempotencyConflict = errors.New("idempotency key reused with a different message")
)

// Transcript and ticket errors.
var (
	// ErrSessionNotFound indicates that no session exists for the given id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrTicketNotFound indicates that the ticket does not exist.
	ErrTicketNotFound = errors.New("ticket not found")

	// ErrInvalidTicketStatus is returned for a status outside
	// open, in_progress and closed.
	ErrInvalidTicketStatus = errors.New("invalid ticket status")
)
