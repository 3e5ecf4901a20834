package domain

import "errors"

var (
	ErrTaskNotFound      = errors.New("parsing task not found")
	ErrInvalidTransition = errors.New("invalid task status transition")
	ErrEmptyURL          = errors.New("url must not be blank")
	ErrURLTooLong        = errors.New("url is too long")
)
