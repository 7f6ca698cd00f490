// Package registry maps artifact roles to the module outputs that fill them.
package registry

import (
	"fmt"
	"sync"

	oerrors "github.com/opencubicchunks/modrel/internal/errors"
)

// Role is the logical part a module output plays in a bundle.
type Role string

const (
	RoleCoreLoader         Role = "core-loader"
	RoleMainModule         Role = "main-module"
	RoleEmbeddedDependency Role = "embedded-dependency"
)

// Roles lists the known roles in bundle layering order.
var Roles = []Role{RoleCoreLoader, RoleMainModule, RoleEmbeddedDependency}

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	switch r {
	case RoleCoreLoader, RoleMainModule, RoleEmbeddedDependency:
		return true
	default:
		return false
	}
}

// ModuleOutput is one module's file set for one role. It is immutable after
// registration.
type ModuleOutput struct {
	Role     Role
	ModuleID string
	Files    []File
}

// DuplicateRegistrationError reports a second registration of a (role, module) pair.
type DuplicateRegistrationError struct {
	Role     Role
	ModuleID string
}

func (e *DuplicateRegistrationError) Error() string {
	return fmt.Sprintf("module %q already registered an output for role %s", e.ModuleID, e.Role)
}

// Unwrap lets errors.Is match ErrConflict.
func (e *DuplicateRegistrationError) Unwrap() error {
	return oerrors.ErrConflict
}

type key struct {
	role     Role
	moduleID string
}

// Registry stores module outputs in registration order. Safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	byKey  map[key]*ModuleOutput
	byRole map[Role][]*ModuleOutput
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		byKey:  make(map[key]*ModuleOutput),
		byRole: make(map[Role][]*ModuleOutput),
	}
}

// Register records files as moduleID's output for role.
func (r *Registry) Register(role Role, moduleID string, files []File) error {
	if !role.IsValid() {
		return oerrors.NewValidationError(fmt.Sprintf("unknown role %q", role), "", "role",
			"Use core-loader, main-module or embedded-dependency")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	k := key{role: role, moduleID: moduleID}
	if _, exists := r.byKey[k]; exists {
		return &DuplicateRegistrationError{Role: role, ModuleID: moduleID}
	}

	out := &ModuleOutput{Role: role, ModuleID: moduleID, Files: append([]File(nil), files...)}
	r.byKey[k] = out
	r.byRole[role] = append(r.byRole[role], out)
	return nil
}

// Lookup returns the outputs registered for role in registration order.
// An unregistered role yields an empty slice.
func (r *Registry) Lookup(role Role) []*ModuleOutput {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*ModuleOutput(nil), r.byRole[role]...)
}

// Get returns a single output.
func (r *Registry) Get(role Role, moduleID string) (*ModuleOutput, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out, ok := r.byKey[key{role: role, moduleID: moduleID}]
	return out, ok
}
