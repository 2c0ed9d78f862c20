package repository

import "errors"

// ErrStatusNotFound is returned by Save when the record expired or was never created.
var ErrStatusNotFound = errors.New("generation status not found")
