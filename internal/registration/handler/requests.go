package handler

import (
	"strings"
	"unicode/utf8"

	"github.com/asaskevich/govalidator"

	dErrors "beefirst/pkg/domain-errors"
)

const (
	minPasswordLength = 8
	// bcrypt ignores input past 72 bytes.
	maxPasswordBytes = 72
	maxEmailLength   = 254
	codeLength       = 4
)

// RegisterRequest is the HTTP request body for POST /v1/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate trims and checks the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *RegisterRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.Email = strings.TrimSpace(r.Email)
	if r.Email == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if len(r.Email) > maxEmailLength || !govalidator.IsEmail(r.Email) {
		return dErrors.New(dErrors.CodeValidation, "email must be a valid address")
	}

	if utf8.RuneCountInString(r.Password) < minPasswordLength {
		return dErrors.New(dErrors.CodeValidation, "password must be at least 8 characters")
	}
	if len(r.Password) > maxPasswordBytes {
		return dErrors.New(dErrors.CodeValidation, "password must be at most 72 bytes")
	}
	return nil
}

// ActivateRequest is the HTTP request body for POST /v1/activate. Credentials
// travel in the Authorization header.
type ActivateRequest struct {
	Code string `json:"code"`
}

func (r *ActivateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Code) != codeLength || !govalidator.IsNumeric(r.Code) {
		return dErrors.New(dErrors.CodeValidation, "code must be exactly 4 digits")
	}
	return nil
}
