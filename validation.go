package lneto

import "errors"

// Validator accumulates validation errors encountered while checking a
// wire-format frame's header and size fields against its backing buffer.
// The zero value is ready to use and accumulates a single error; call
// AllowMultipleErrors to keep collecting further errors instead of
// discarding them.
type Validator struct {
	allowMultiErrs bool
	accum          []error
}

// AllowMultipleErrors configures the validator to keep every error it is
// given instead of only the first.
func (v *Validator) AllowMultipleErrors(allow bool) { v.allowMultiErrs = allow }

// ResetErr clears the accumulated errors so the validator can be reused.
func (v *Validator) ResetErr() { v.accum = v.accum[:0] }

// HasError reports whether any error has been recorded.
func (v *Validator) HasError() bool { return len(v.accum) != 0 }

// Err returns the accumulated error, or nil if none were recorded. Multiple
// errors are joined with errors.Join.
func (v *Validator) Err() error {
	switch len(v.accum) {
	case 0:
		return nil
	case 1:
		return v.accum[0]
	default:
		return errors.Join(v.accum...)
	}
}

// AddError records a validation error. err must not be nil.
func (v *Validator) AddError(err error) {
	if err == nil {
		panic("lneto: nil error passed to Validator.AddError")
	}
	if len(v.accum) != 0 && !v.allowMultiErrs {
		return
	}
	v.accum = append(v.accum, err)
}
