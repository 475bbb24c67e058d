package config

import "errors"

var (
	ErrExecutorCommandEmpty      = errors.New("executor command is empty")
	ErrExecutorMissingPlaceholder = errors.New("executor command missing {prompt} placeholder")
	ErrSandboxPolicyViolation    = errors.New("sandbox policy violation")
	ErrValidationMisconfigured   = errors.New("validation misconfigured")
	ErrDirtyCommitRefused        = errors.New("dirty commit refused")
)
