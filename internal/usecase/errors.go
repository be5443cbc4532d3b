package usecase

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("already exists")
	ErrInvalidState     = errors.New("invalid state")
	ErrInvalidInput     = errors.New("invalid input")
	ErrStoreUnavailable = errors.New("store unavailable")
)

var (
	ErrBookAlreadyIssued = fmt.Errorf("%w: book already issued", ErrInvalidState)
	ErrUserHoldsBook     = fmt.Errorf("%w: user already holds a book", ErrInvalidState)
	ErrNoBookToReturn    = fmt.Errorf("%w: no book to return", ErrNotFound)
	ErrInvalidRole       = fmt.Errorf("%w: role must be either ADMIN or USER", ErrInvalidInput)
	ErrConcurrentUpdate  = fmt.Errorf("%w: changed by a concurrent request, retry", ErrStoreUnavailable)
)
