package oauth2

import "errors"

var (
	ErrProviderNotFound = errors.New("provider not registered")
	ErrStateMismatch    = errors.New("oauth state mismatch")
	ErrMissingCode      = errors.New("authorization code missing")
	ErrProfileFetch     = errors.New("failed to fetch provider profile")
)
