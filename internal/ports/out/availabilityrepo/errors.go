package availabilityrepo

import "errors"

var ErrNotFound = errors.New("availability slot not found")
