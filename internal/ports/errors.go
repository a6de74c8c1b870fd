package ports

import "errors"

var ErrNotFound = errors.New("not found")

var ErrNoToken = errors.New("no bearer token available")
