package validation

import (
	"github.com/go-playground/validator/v10"
)

type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	return &Validator{v: validator.New()}
}

func (v *Validator) Validate(i interface{}) error {
	return v.v.Struct(i)
}

// Raw exposes the underlying validate for controllers that hold the
// *validator.Validate directly.
func (v *Validator) Raw() *validator.Validate { return v.v }
