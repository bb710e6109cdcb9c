package playerrepo

import "errors"

var (
	ErrNotFound             = errors.New("player not found")
	ErrAlreadyExists        = errors.New("player already exists")
	ErrProviderAccountBound = errors.New("provider account already bound to a player")
)
