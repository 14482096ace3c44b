package domain

import "errors"

var (
	// ErrValidation marks bad input: unknown period type, missing configuration.
	ErrValidation = errors.New("validation error")
	// ErrDependency marks a failed call to the store or the channel.
	ErrDependency = errors.New("external dependency error")
	// ErrDuplicate is returned by stores when a unique key already exists.
	ErrDuplicate = errors.New("duplicate")
)
