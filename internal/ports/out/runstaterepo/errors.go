package runstaterepo

import "errors"

var ErrNotFound = errors.New("run notification state not found")
