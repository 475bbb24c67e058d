package config

import (
	"fmt"
	"strings"
)

// AssertStartup runs the fail-closed checks spec.md §4.3 requires before a
// run begins. allowDirty/atomicCommitsEnabled come from CLI flags rather
// than the config document, since the dirty/commit conflict is a run-time
// combination, not a static config property.
func AssertStartup(cfg *Config, allowDirty, atomicCommitsEnabled bool) error {
	if strings.TrimSpace(cfg.Executor.Command) == "" {
		return ErrExecutorCommandEmpty
	}

	if cfg.RoleOrchestration.Enabled && !strings.Contains(cfg.Executor.Command, "{prompt}") {
		return fmt.Errorf("%w: executor.command must render role instructions via {prompt}", ErrExecutorMissingPlaceholder)
	}

	if err := assertSandboxPolicy(cfg.RoleOrchestration.RoleProfiles); err != nil {
		return err
	}

	if cfg.Validation.RequireAlwaysCommands && len(cfg.Validation.Always) == 0 {
		return fmt.Errorf("%w: validation.always is empty but validation.requireAlwaysCommands is set", ErrValidationMisconfigured)
	}
	if cfg.Validation.RequireHostRequiredCommands && len(cfg.Validation.HostRequired) == 0 {
		return fmt.Errorf("%w: validation.hostRequired is empty but validation.requireHostRequiredCommands is set", ErrValidationMisconfigured)
	}

	if allowDirty && atomicCommitsEnabled {
		return ErrDirtyCommitRefused
	}

	return nil
}

// assertSandboxPolicy enforces workers run full-access and every other role
// runs read-only.
func assertSandboxPolicy(profiles map[string]RoleProfile) error {
	for role, profile := range profiles {
		want := "read-only"
		if role == "worker" {
			want = "full-access"
		}
		if profile.SandboxMode != "" && profile.SandboxMode != want {
			return fmt.Errorf("%w: role %q must run sandboxMode %q, got %q", ErrSandboxPolicyViolation, role, want, profile.SandboxMode)
		}
	}
	return nil
}
