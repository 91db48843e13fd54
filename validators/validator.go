package validators

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/anonto42/chirp/backend/internal/services"
)

// Validator implements echo.Validator on top of go-playground/validator
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a Validator with the project's custom rules
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report json field names in errors
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("handle", func(fl validator.FieldLevel) bool {
		return services.HandlePattern.MatchString(fl.Field().String())
	})
	return &Validator{validate: v}
}

// Validate implements echo.Validator
func (v *Validator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

// Messages flattens validation errors into field: rule pairs.
func Messages(err error) map[string]string {
	out := map[string]string{}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return out
	}
	for _, fe := range verrs {
		out[fe.Field()] = fe.Tag()
	}
	return out
}
