package validator

import (
	playground "github.com/go-playground/validator/v10"
)

// Validator checks request structs against their `validate` tags.
type Validator interface {
	Validate(obj interface{}) error
	Var(value interface{}, rules string) error
}

type validator struct {
	v *playground.Validate
}

func New() Validator {
	return &validator{
		v: playground.New(playground.WithRequiredStructEnabled()),
	}
}

func (val *validator) Validate(obj interface{}) error {
	return val.v.Struct(obj)
}

func (val *validator) Var(value interface{}, rules string) error {
	return val.v.Var(value, rules)
}
