// Package validation checks request payloads before they reach the flows.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Signup is the body of POST /signup.
type Signup struct {
	Username  string `json:"username" validate:"required,max=64"`
	Password  string `json:"password" validate:"required,maxbytes=72"`
	FirstName string `json:"firstName" validate:"required,max=64"`
	LastName  string `json:"lastName" validate:"required,max=64"`
	About     string `json:"about" validate:"max=512"`
}

// Signin is the body of POST /signin.
type Signin struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ProfileUpdate is the body of PUT /updateProfile. It has the shape of Signup,
// so the password is rewritten on every update.
type ProfileUpdate Signup

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// bcrypt reads at most 72 bytes, max counts runes
	_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		limit, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return len(fl.Field().String()) <= limit
	})
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (s *Signup) Validate() error {
	return check(s)
}

func (s *Signin) Validate() error {
	return check(s)
}

func (p *ProfileUpdate) Validate() error {
	return check(p)
}

// check runs the struct rules and flattens the failures into one error
// naming each offending JSON field.
func check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "maxbytes":
		return fmt.Sprintf("%s must be at most %s bytes", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
