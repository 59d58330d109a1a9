package handler

import (
	"github.com/notekeeper/notes-platform/internal/core/validation"
)

// echoValidator lets Echo call c.Validate(req) with the shared validation
// rules, so handler-level failures carry the same *domain.ValidationError.
type echoValidator struct {
	v *validation.Validator
}

// NewValidator returns an echoValidator ready to be assigned to echo.Echo.Validator.
func NewValidator() *echoValidator {
	return &echoValidator{v: validation.New()}
}

// Validate satisfies the echo.Validator interface.
func (ev *echoValidator) Validate(i any) error {
	return ev.v.Struct(i)
}
