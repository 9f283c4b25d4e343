package rudp

import "errors"

var (
	ErrWouldDrop = errors.New("rudp: send window full, message dropped")
	ErrClosed    = errors.New("rudp: channel closed")
	ErrTimeout   = errors.New("rudp: recv deadline exceeded")
)
