package auth

import (
	stderrors "errors"
	"fanous-live/errors"
	"fmt"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type RegisterRequest struct {
	Email       string `validate:"required,email"`
	Password    string `validate:"required,min=12,max=72"`
	DisplayName string `validate:"omitempty,max=80"`
}

// ValidateRegister checks the request shape then the password complexity.
// Password problems surface as ErrInvalidPassword, anything else as ErrInvalidPayload.
func ValidateRegister(req RegisterRequest) error {
	if err := validate.Struct(req); err != nil {
		var fieldErrors validator.ValidationErrors
		if stderrors.As(err, &fieldErrors) {
			for _, fe := range fieldErrors {
				if fe.Field() == "Password" {
					return fmt.Errorf("%w: %s", errors.ErrInvalidPassword, fe.Tag())
				}
			}
		}
		return fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}

	if !isPasswordComplex(req.Password) {
		return errors.ErrInvalidPassword
	}
	return nil
}

func isPasswordComplex(s string) bool {
	var (
		hasUpper   = false
		hasLower   = false
		hasNumber  = false
		hasSpecial = false
	)
	for _, char := range s {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSpecial = true
		}
	}
	return hasUpper && hasLower && hasNumber && hasSpecial
}
