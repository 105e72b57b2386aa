package service

import "errors"

var (
	// ErrDuplicateUser is returned when the username or non-empty email is already registered.
	ErrDuplicateUser = errors.New("user with this username or email already exists")
	// ErrNotFoundOrInactive is returned when no active user has the given username.
	ErrNotFoundOrInactive = errors.New("user not found or inactive")
	// ErrWrongPassword is returned when the password does not match the stored hash.
	ErrWrongPassword = errors.New("wrong password")
	// ErrRecordNotFound is returned when a record does not exist or belongs to another user.
	ErrRecordNotFound = errors.New("record not found")
	// ErrStoreUnavailable wraps any failure of the underlying database.
	ErrStoreUnavailable = errors.New("store unavailable")
)
