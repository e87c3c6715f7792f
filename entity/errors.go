package entity

import "errors"

var (
	ErrValidation         = errors.New("invalid request")
	ErrNotFound           = errors.New("not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrConflict           = errors.New("conflict")
	ErrQuotaExceeded      = errors.New("ticket quota exceeded")
	ErrEventNotAvailable  = errors.New("event not available for booking")
	ErrNoAvailableTickets = errors.New("no available tickets")
	ErrReservationExpired = errors.New("reservation has expired")
	ErrLockNotAcquired    = errors.New("could not acquire event lock")
)
