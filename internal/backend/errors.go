package backend

import "errors"

var (
	ErrServerNotSelected = errors.New("no server is selected")
	ErrUnknownServer     = errors.New("unknown server")
	ErrUnknownCommand    = errors.New("unknown command")
	ErrNotLoggedIn       = errors.New("not logged in")
	ErrInvalidServerURL  = errors.New("invalid server url")
	ErrDuplicateServer   = errors.New("server name already in use")
)
