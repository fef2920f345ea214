package model

import "errors"

var (
	// Transport errors
	ErrNetwork = errors.New("network unavailable")
	ErrTimeout = errors.New("request timed out")

	// Server-reported errors
	ErrServerValidation  = errors.New("request rejected by server")
	ErrServer            = errors.New("server error")
	ErrNotFound          = errors.New("not found")
	ErrAuthExpired       = errors.New("session expired")
	ErrMalformedResponse = errors.New("malformed response")

	// Session policy errors
	ErrNotStaff             = errors.New("account is not a staff account")
	ErrNoBranch             = errors.New("staff account has no assigned branch")
	ErrAlreadyAuthenticated = errors.New("already signed in")
	ErrNotInitialized       = errors.New("session not initialized")

	// Storage errors
	ErrStorage = errors.New("session storage unavailable")

	// Order errors
	ErrTerminalStatus  = errors.New("order status can no longer change")
	ErrStatusUnchanged = errors.New("status is already set to this value")
	ErrInvalidStatus   = errors.New("invalid order status")

	// Generic errors
	ErrInvalidInput = errors.New("invalid input")
)
