// internal/websocket/errors.go
package websocket

import "errors"

var (
	ErrMissingUser  = errors.New("missing user id")
	ErrHubStopped   = errors.New("hub has stopped")
)
