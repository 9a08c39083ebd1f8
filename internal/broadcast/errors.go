package broadcast

import "errors"

var (
	ErrClientNotConnected = errors.New("client not connected")
)
