package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound            = errors.New("entity not found")
	ErrAlreadyExists       = errors.New("entity already exists")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrUnauthorized        = errors.New("invalid or expired credential")
	ErrUnknownKind         = errors.New("unknown generation kind")
	ErrConfigNotFound      = errors.New("generation config not found")
	ErrQuotaExceeded       = errors.New("free generation limit reached")
	ErrProviderUnavailable = errors.New("generation provider is not configured")
	ErrJobTerminal         = errors.New("generation job already finalized")
	ErrExtractionFailed    = errors.New("generated output could not be parsed")
	ErrLockHeld            = errors.New("lock is held by another worker")
	ErrAcquireTimeout      = errors.New("timed out waiting for a generation slot")
)
