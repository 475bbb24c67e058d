package planstore

import "errors"

// Sentinel error kinds per spec.md §7. Wrap with fmt.Errorf("...: %w", ErrX)
// and unwrap with errors.Is at call sites.
var (
	ErrInvalidPlanID     = errors.New("invalid plan id")
	ErrUnsafePath        = errors.New("unsafe path")
	ErrMissingDependency = errors.New("missing dependency")
	ErrIO                = errors.New("io error")
	ErrDuplicatePlanID   = errors.New("duplicate plan id")
	ErrNotPromotable     = errors.New("plan is not ready for promotion")
	ErrAlreadyExists     = errors.New("plan id already exists in target phase")
)
