package rolepipeline

import (
	"errors"
	"testing"
)

func TestEnforceSandboxPolicyWorkerMustBeFullAccess(t *testing.T) {
	if err := EnforceSandboxPolicy(RoleWorker, SandboxFullAccess); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := EnforceSandboxPolicy(RoleWorker, SandboxReadOnly); !errors.Is(err, ErrSandboxPolicy) {
		t.Fatalf("got %v, want ErrSandboxPolicy", err)
	}
}

func TestEnforceSandboxPolicyOthersMustBeReadOnly(t *testing.T) {
	for _, role := range []Role{RolePlanner, RoleExplorer, RoleReviewer} {
		if err := EnforceSandboxPolicy(role, SandboxReadOnly); err != nil {
			t.Errorf("role %q: unexpected error: %v", role, err)
		}
		if err := EnforceSandboxPolicy(role, SandboxFullAccess); !errors.Is(err, ErrSandboxPolicy) {
			t.Errorf("role %q: got %v, want ErrSandboxPolicy", role, err)
		}
	}
}
