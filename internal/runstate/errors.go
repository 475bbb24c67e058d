package runstate

import "errors"

var (
	ErrIO              = errors.New("io error")
	ErrRunAlreadyActive = errors.New("run already active")
	ErrLockUnacquired  = errors.New("lock unacquired")
)
