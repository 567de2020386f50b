// Package forms validates user input before anything reaches the backend.
// Violations come back as *apperr.ValidationError keyed by the form field name.
package forms

import (
	"errors"
	"fmt"
	"html"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"

	"github.com/fleettrack-dev/fleettrack/internal/apperr"
	"github.com/fleettrack-dev/fleettrack/internal/fleet"
)

// field.tag -> message. Looked up before the per-tag defaults.
var fieldMessages = map[string]string{
	"name.required":            "Nome é obrigatório",
	"email.required":           "E-mail é obrigatório",
	"email.email":              "E-mail inválido",
	"password.required":        "Senha é obrigatória",
	"password.min":             "A senha deve ter pelo menos 6 caracteres",
	"confirmPassword.required": "Confirme a senha",
	"confirmPassword.eqfield":  "As senhas não coincidem",
	"phone.required":           "Telefone é obrigatório",
	"vehicle.required":         "Veículo é obrigatório",
	"location.required":        "Localização é obrigatória",
	"status.driverstatus":      "Status inválido",
	"status.oneof":             "Status inválido",
	"timezone.required":        "Fuso horário é obrigatório",
	"timezone.timezone":        "Fuso horário inválido",
}

var strict = bluemonday.StrictPolicy()

// Validator wraps validator/v10 with the app's tags and messages
type Validator struct {
	validate *validator.Validate
}

// New creates a validator. It is safe for concurrent use.
func New() *Validator {
	validate := validator.New()

	// Report fields by their form name, which is also what templates key on
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	validate.RegisterValidation("timezone", func(fl validator.FieldLevel) bool {
		return fleet.ValidTimezone(fl.Field().String())
	})

	validate.RegisterValidation("driverstatus", func(fl validator.FieldLevel) bool {
		return fleet.DriverStatus(fl.Field().String()).Valid()
	})

	return &Validator{validate: validate}
}

// Struct validates s, returning nil or a *apperr.ValidationError
func (v *Validator) Struct(s any) error {
	return v.toValidationError(v.validate.Struct(s))
}

func (v *Validator) toValidationError(err error) error {
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("failed to validate form: %w", err)
	}

	out := &apperr.ValidationError{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		field := fe.Field()
		// First violation per field wins
		if _, seen := out.Fields[field]; seen {
			continue
		}
		out.Fields[field] = message(field, fe.Tag(), fe.Param())
	}
	return out
}

func message(field, tag, param string) string {
	if msg, ok := fieldMessages[field+"."+tag]; ok {
		return msg
	}

	switch tag {
	case "required":
		return "Campo obrigatório"
	case "email":
		return "E-mail inválido"
	case "min":
		return fmt.Sprintf("Deve ter pelo menos %s caracteres", param)
	case "max":
		return fmt.Sprintf("Deve ter no máximo %s caracteres", param)
	default:
		return "Valor inválido"
	}
}

// Clean strips markup and surrounding space from free text. The result is
// plain text; templates escape it on output.
func Clean(s string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}
