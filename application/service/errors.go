package service

import "errors"

// ErrInvalidPath is returned for a path that leaves the working copy.
var ErrInvalidPath = errors.New("path outside working copy")
