package responserepo

import "errors"

var ErrNotFound = errors.New("call response not found")
