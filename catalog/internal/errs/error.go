package errs

import (
	"errors"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrBookUnavailable    = errors.New("this book is not available")
	ErrAlreadyBorrowed    = errors.New("you have already borrowed this book")
	ErrNoActiveBorrow     = errors.New("no active borrow record found")
	ErrTotalBelowLoaned   = errors.New("total copies cannot be lower than copies on loan")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email is already registered")
)
