package auth

import "github.com/healup/healup/pkg/apperr"

// Owners names the patient and doctor a resource belongs to. Either may be
// empty when the resource kind has no such owner.
type Owners struct {
	Patient string
	Doctor  string
}

// Policy decides read access to one resource kind. Owners extracts the owner
// ids; DoctorMustOwn restricts doctors to resources whose Doctor owner is
// them (otherwise any doctor may read).
type Policy[R any] struct {
	Owners        func(R) Owners
	DoctorMustOwn bool
}

// CanAccess is the single ownership rule applied to every resource kind.
func (pol Policy[R]) CanAccess(p *Principal, r R) bool {
	if p == nil {
		return false
	}
	o := pol.Owners(r)
	switch p.Role {
	case RoleAdmin:
		return true
	case RoleDoctor:
		return !pol.DoctorMustOwn || p.Owns(o.Doctor)
	case RolePatient:
		return p.Owns(o.Patient)
	default:
		return false
	}
}

// Authorize is CanAccess expressed as the error a handler returns.
func (pol Policy[R]) Authorize(p *Principal, r R) error {
	if p == nil {
		return Check(nil)
	}
	if !pol.CanAccess(p, r) {
		return apperr.Forbidden("")
	}
	return nil
}
