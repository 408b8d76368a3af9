// registry/registry_test.go
package registry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	conformd_errors "github.com/conformd/conformd/errors"
	"github.com/conformd/conformd/model"
	"github.com/conformd/conformd/registry"
)

func cisStandard() model.Standard {
	return model.Standard{
		ID:      "CIS-AWS",
		Name:    "CIS Amazon Web Services Foundations Benchmark",
		Version: "1.4",
		Controls: []model.Control{
			{ID: "CIS-AWS-1.4", Title: "Ensure MFA is enabled for the root account", Severity: "high"},
			{ID: "CIS-AWS-2.1", Title: "Ensure CloudTrail is enabled in all regions", Severity: "high"},
		},
	}
}

func TestRegisterStandard(t *testing.T) {
	reg := registry.New()

	err := reg.RegisterStandard(cisStandard())
	assert.NoError(t, err)

	standard, err := reg.LookupStandard("CIS-AWS")
	assert.NoError(t, err)
	assert.Equal(t, "1.4", standard.Version)

	control, err := reg.LookupControl("CIS-AWS-1.4")
	assert.NoError(t, err)
	assert.Equal(t, "CIS-AWS", control.StandardID)
}

func TestRegisterStandard_Conflict(t *testing.T) {
	reg := registry.New()

	assert.NoError(t, reg.RegisterStandard(cisStandard()))
	err := reg.RegisterStandard(cisStandard())
	assert.ErrorIs(t, err, conformd_errors.ErrStandardConflict)
}

func TestRegisterStandard_DuplicateControl(t *testing.T) {
	reg := registry.New()
	assert.NoError(t, reg.RegisterStandard(cisStandard()))

	other := model.Standard{
		ID:      "NIST-800-53",
		Name:    "NIST SP 800-53",
		Version: "rev5",
		Controls: []model.Control{
			{ID: "CIS-AWS-1.4", Title: "Colliding identifier"},
		},
	}
	err := reg.RegisterStandard(other)
	assert.ErrorIs(t, err, conformd_errors.ErrDuplicateIdentifier)

	// The colliding standard must not be partially registered.
	_, err = reg.LookupStandard("NIST-800-53")
	assert.ErrorIs(t, err, conformd_errors.ErrStandardNotFound)
}

func TestRegisterControl(t *testing.T) {
	reg := registry.New()
	assert.NoError(t, reg.RegisterStandard(cisStandard()))

	err := reg.RegisterControl(model.Control{
		ID:         "CIS-AWS-3.1",
		StandardID: "CIS-AWS",
		Title:      "Ensure log metric filters exist",
	})
	assert.NoError(t, err)
	assert.True(t, reg.HasControl("CIS-AWS-3.1"))

	// Duplicate identifiers are rejected.
	err = reg.RegisterControl(model.Control{ID: "CIS-AWS-3.1", StandardID: "CIS-AWS", Title: "dup"})
	assert.ErrorIs(t, err, conformd_errors.ErrDuplicateIdentifier)

	// Controls need a registered parent standard.
	err = reg.RegisterControl(model.Control{ID: "PCI-1.1", StandardID: "PCI-DSS", Title: "orphan"})
	assert.ErrorIs(t, err, conformd_errors.ErrStandardNotFound)
}

func TestLookupControl_Unknown(t *testing.T) {
	reg := registry.New()

	_, err := reg.LookupControl("NOPE-1")
	assert.ErrorIs(t, err, conformd_errors.ErrUnknownIdentifier)
	assert.False(t, reg.HasControl("NOPE-1"))
}

func TestRemoveStandard_CascadesControls(t *testing.T) {
	reg := registry.New()
	assert.NoError(t, reg.RegisterStandard(cisStandard()))

	assert.NoError(t, reg.RemoveStandard("CIS-AWS"))
	assert.False(t, reg.HasControl("CIS-AWS-1.4"))
	assert.False(t, reg.HasControl("CIS-AWS-2.1"))

	err := reg.RemoveStandard("CIS-AWS")
	assert.ErrorIs(t, err, conformd_errors.ErrStandardNotFound)
}

func TestReplaceStandard(t *testing.T) {
	reg := registry.New()
	assert.NoError(t, reg.RegisterStandard(cisStandard()))

	updated := cisStandard()
	updated.Version = "1.5"
	updated.Controls = updated.Controls[:1]
	assert.NoError(t, reg.ReplaceStandard(updated))

	standard, err := reg.LookupStandard("CIS-AWS")
	assert.NoError(t, err)
	assert.Equal(t, "1.5", standard.Version)
	assert.True(t, reg.HasControl("CIS-AWS-1.4"))
	assert.False(t, reg.HasControl("CIS-AWS-2.1"))
}

func TestReplaceStandard_ConflictKeepsExisting(t *testing.T) {
	reg := registry.New()
	assert.NoError(t, reg.RegisterStandard(cisStandard()))
	assert.NoError(t, reg.RegisterStandard(model.Standard{
		ID: "NIST-800-53", Name: "NIST SP 800-53", Version: "rev5",
		Controls: []model.Control{
			{ID: "NIST-800-53-AC-3", Title: "Access Enforcement"},
		},
	}))

	// The replacement claims a control owned by another standard.
	updated := cisStandard()
	updated.Version = "1.5"
	updated.Controls = append(updated.Controls, model.Control{ID: "NIST-800-53-AC-3", Title: "stolen"})
	err := reg.ReplaceStandard(updated)
	assert.ErrorIs(t, err, conformd_errors.ErrDuplicateIdentifier)

	// The rejected swap must not unregister the current standard.
	standard, err := reg.LookupStandard("CIS-AWS")
	assert.NoError(t, err)
	assert.Equal(t, "1.4", standard.Version)
	assert.True(t, reg.HasControl("CIS-AWS-1.4"))
	assert.True(t, reg.HasControl("CIS-AWS-2.1"))

	control, err := reg.LookupControl("NIST-800-53-AC-3")
	assert.NoError(t, err)
	assert.Equal(t, "NIST-800-53", control.StandardID)
}

func TestReplaceStandard_NotFound(t *testing.T) {
	reg := registry.New()

	err := reg.ReplaceStandard(cisStandard())
	assert.ErrorIs(t, err, conformd_errors.ErrStandardNotFound)
}

func TestListings_SortedByID(t *testing.T) {
	reg := registry.New()
	assert.NoError(t, reg.RegisterStandard(model.Standard{
		ID: "NIST-800-53", Name: "NIST SP 800-53", Version: "rev5",
		Controls: []model.Control{
			{ID: "NIST-800-53-AC-3", Title: "Access Enforcement"},
		},
	}))
	assert.NoError(t, reg.RegisterStandard(cisStandard()))

	standards := reg.Standards()
	assert.Equal(t, []string{"CIS-AWS", "NIST-800-53"}, []string{standards[0].ID, standards[1].ID})

	controls, err := reg.ControlsForStandard("CIS-AWS")
	assert.NoError(t, err)
	assert.Len(t, controls, 2)
	assert.Equal(t, "CIS-AWS-1.4", controls[0].ID)

	_, err = reg.ControlsForStandard("PCI-DSS")
	assert.ErrorIs(t, err, conformd_errors.ErrStandardNotFound)

	all := reg.Controls()
	assert.Len(t, all, 3)
	assert.Equal(t, "NIST-800-53-AC-3", all[2].ID)
}
