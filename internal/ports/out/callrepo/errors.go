package callrepo

import "errors"

var (
	ErrNotFound      = errors.New("call not found")
	ErrAlreadyExists = errors.New("call already exists")
)
