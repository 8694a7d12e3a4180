package scan

import "errors"

var (
	ErrGameNotFound = errors.New("game not found")
	ErrInvalidRange = errors.New("invalid nonce range")
	ErrInvalidOp    = errors.New("invalid target operation")
)
