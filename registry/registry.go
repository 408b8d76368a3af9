// registry/registry.go
package registry

import (
	"sort"
	"sync"

	conformd_errors "github.com/conformd/conformd/errors"
	"github.com/conformd/conformd/model"
)

// Registry holds the canonical set of standards and their controls.
// Registration is guarded by a mutex; lookups during evaluation take the
// read lock only. Controls are immutable once registered.
type Registry struct {
	mu        sync.RWMutex
	standards map[string]model.Standard
	controls  map[string]model.Control
}

func New() *Registry {
	return &Registry{
		standards: make(map[string]model.Standard),
		controls:  make(map[string]model.Control),
	}
}

// RegisterStandard adds a standard to the registry. The standard's
// embedded controls, if any, are registered along with it.
func (r *Registry) RegisterStandard(standard model.Standard) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.standards[standard.ID]; exists {
		return conformd_errors.ErrStandardConflict
	}

	for _, control := range standard.Controls {
		if _, exists := r.controls[control.ID]; exists {
			return conformd_errors.ErrDuplicateIdentifier
		}
	}

	r.standards[standard.ID] = standard
	for _, control := range standard.Controls {
		control.StandardID = standard.ID
		r.controls[control.ID] = control
	}

	return nil
}

// RegisterControl adds a single control under an already registered
// standard.
func (r *Registry) RegisterControl(control model.Control) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.standards[control.StandardID]; !exists {
		return conformd_errors.ErrStandardNotFound
	}
	if _, exists := r.controls[control.ID]; exists {
		return conformd_errors.ErrDuplicateIdentifier
	}

	r.controls[control.ID] = control
	return nil
}

// LookupControl returns the control registered under the given identifier.
func (r *Registry) LookupControl(id string) (model.Control, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	control, exists := r.controls[id]
	if !exists {
		return model.Control{}, conformd_errors.ErrUnknownIdentifier
	}
	return control, nil
}

// LookupStandard returns the standard registered under the given ID.
func (r *Registry) LookupStandard(id string) (model.Standard, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	standard, exists := r.standards[id]
	if !exists {
		return model.Standard{}, conformd_errors.ErrStandardNotFound
	}
	return standard, nil
}

// HasControl reports whether the identifier is registered.
func (r *Registry) HasControl(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.controls[id]
	return exists
}

// RemoveStandard removes a standard and every control registered under it.
func (r *Registry) RemoveStandard(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.standards[id]; !exists {
		return conformd_errors.ErrStandardNotFound
	}

	delete(r.standards, id)
	for controlID, control := range r.controls {
		if control.StandardID == id {
			delete(r.controls, controlID)
		}
	}
	return nil
}

// ReplaceStandard swaps a standard and its controls in one registration.
// The replacement is validated before the old entry is touched: a control
// identifier owned by another standard fails the swap and leaves the
// current registration intact.
func (r *Registry) ReplaceStandard(standard model.Standard) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.standards[standard.ID]; !exists {
		return conformd_errors.ErrStandardNotFound
	}
	for _, control := range standard.Controls {
		if owner, exists := r.controls[control.ID]; exists && owner.StandardID != standard.ID {
			return conformd_errors.ErrDuplicateIdentifier
		}
	}

	for controlID, control := range r.controls {
		if control.StandardID == standard.ID {
			delete(r.controls, controlID)
		}
	}
	r.standards[standard.ID] = standard
	for _, control := range standard.Controls {
		control.StandardID = standard.ID
		r.controls[control.ID] = control
	}
	return nil
}

// Standards returns all registered standards sorted by ID.
func (r *Registry) Standards() []model.Standard {
	r.mu.RLock()
	defer r.mu.RUnlock()

	standards := make([]model.Standard, 0, len(r.standards))
	for _, standard := range r.standards {
		standards = append(standards, standard)
	}
	sort.Slice(standards, func(i, j int) bool { return standards[i].ID < standards[j].ID })
	return standards
}

// Controls returns all registered controls sorted by ID.
func (r *Registry) Controls() []model.Control {
	r.mu.RLock()
	defer r.mu.RUnlock()

	controls := make([]model.Control, 0, len(r.controls))
	for _, control := range r.controls {
		controls = append(controls, control)
	}
	sort.Slice(controls, func(i, j int) bool { return controls[i].ID < controls[j].ID })
	return controls
}

// ControlsForStandard returns the controls of one standard sorted by ID.
func (r *Registry) ControlsForStandard(standardID string) ([]model.Control, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, exists := r.standards[standardID]; !exists {
		return nil, conformd_errors.ErrStandardNotFound
	}

	var controls []model.Control
	for _, control := range r.controls {
		if control.StandardID == standardID {
			controls = append(controls, control)
		}
	}
	sort.Slice(controls, func(i, j int) bool { return controls[i].ID < controls[j].ID })
	return controls, nil
}
