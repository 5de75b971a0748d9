package timerdb

import "errors"

// ErrNotFound indicates the requested timer does not exist.
var ErrNotFound = errors.New("round timer not found")
