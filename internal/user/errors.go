package user

import "errors"

var (
	ErrNotFound   = errors.New("user: not found")
	ErrEmailTaken = errors.New("user: email already registered")
	ErrSaveFailed = errors.New("user: failed to save")
)
