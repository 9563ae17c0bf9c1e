// Package common contains shared constants and sentinel errors used across
// picsync components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Registration errors.
	ErrorDuplicateLogin = errors.New("login already taken")

	// Ingestion errors.
	ErrorUnsupportedFileType = errors.New("unsupported file type")

	// Asset errors.
	ErrorDuplicateChecksum = errors.New("duplicate checksum")
	ErrorChecksumMismatch  = errors.New("checksum mismatch")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
