// Package registration implements the three-step driver registration wizard.
package registration

import (
	"fmt"
	"math"
	"regexp"
	"sync"

	"github.com/fleettrack-dev/fleettrack/internal/apperr"
	"github.com/fleettrack-dev/fleettrack/internal/fleet"
	"github.com/fleettrack-dev/fleettrack/internal/forms"
)

const TotalSteps = 3

// Step describes one page of the wizard
type Step struct {
	Number      int
	Title       string
	Description string
}

var Steps = []Step{
	{Number: 1, Title: "Dados Pessoais", Description: "Informações básicas do motorista"},
	{Number: 2, Title: "Contato & Veículo", Description: "Telefone e informações do veículo"},
	{Number: 3, Title: "Status & Localização", Description: "Status atual e localização"},
}

// SelectableStatuses are the statuses a new driver may start with
var SelectableStatuses = []fleet.DriverStatus{
	fleet.DriverActive,
	fleet.DriverOnBreak,
	fleet.DriverUnavailable,
}

// Field names, shared with the HTML form
const (
	FieldName     = "name"
	FieldEmail    = "email"
	FieldPhone    = "phone"
	FieldVehicle  = "vehicle"
	FieldStatus   = "status"
	FieldLocation = "location"
)

// StepFields lists the fields each step collects
var StepFields = map[int][]string{
	1: {FieldName, FieldEmail},
	2: {FieldPhone, FieldVehicle},
	3: {FieldStatus, FieldLocation},
}

type personalStep struct {
	Name  string `form:"name" validate:"required"`
	Email string `form:"email" validate:"required,email"`
}

type contactStep struct {
	Phone   string `form:"phone" validate:"required"`
	Vehicle string `form:"vehicle" validate:"required"`
}

type statusStep struct {
	Status   string `form:"status" validate:"required,oneof=active on_break unavailable"`
	Location string `form:"location" validate:"required"`
}

// Data is what the wizard has collected so far
type Data struct {
	Name     string
	Email    string
	Phone    string
	Vehicle  string
	Status   fleet.DriverStatus
	Location string
}

func emptyData() Data {
	return Data{Status: fleet.DriverActive}
}

// Value returns the collected value of field, "" for unknown fields
func (d Data) Value(field string) string {
	switch field {
	case FieldName:
		return d.Name
	case FieldEmail:
		return d.Email
	case FieldPhone:
		return d.Phone
	case FieldVehicle:
		return d.Vehicle
	case FieldStatus:
		return string(d.Status)
	case FieldLocation:
		return d.Location
	default:
		return ""
	}
}

// Wizard holds one in-progress registration. It is safe for concurrent use.
type Wizard struct {
	mu        sync.Mutex
	step      int
	data      Data
	errors    map[string]string
	validator *forms.Validator
}

// New creates a wizard on step 1
func New(v *forms.Validator) *Wizard {
	return &Wizard{
		step:      1,
		data:      emptyData(),
		errors:    map[string]string{},
		validator: v,
	}
}

// Step returns the current step number, 1 to TotalSteps
func (w *Wizard) Step() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// Current describes the current step
func (w *Wizard) Current() Step {
	return Steps[w.Step()-1]
}

// Progress is the completion percentage shown in the progress bar
func (w *Wizard) Progress() int {
	return int(math.Round(float64(w.Step()) / TotalSteps * 100))
}

// Data returns a copy of the collected values
func (w *Wizard) Data() Data {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.data
}

// Errors returns a copy of the current field errors
func (w *Wizard) Errors() map[string]string {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make(map[string]string, len(w.errors))
	for k, v := range w.errors {
		out[k] = v
	}
	return out
}

// Set stores one field value and clears that field's error. Phones are
// formatted and free text is stripped of markup.
func (w *Wizard) Set(field, value string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch field {
	case FieldName:
		w.data.Name = forms.Clean(value)
	case FieldEmail:
		w.data.Email = forms.Clean(value)
	case FieldPhone:
		w.data.Phone = FormatPhone(forms.Clean(value))
	case FieldVehicle:
		w.data.Vehicle = forms.Clean(value)
	case FieldLocation:
		w.data.Location = forms.Clean(value)
	case FieldStatus:
		status, err := fleet.ParseDriverStatus(value)
		if err != nil || !selectable(status) {
			w.errors[FieldStatus] = "Status inválido"
			return fmt.Errorf("status %q cannot be selected", value)
		}
		w.data.Status = status
	default:
		return fmt.Errorf("unknown field %q", field)
	}

	delete(w.errors, field)
	return nil
}

// Next validates the current step and advances when it is valid. It reports
// whether the step was valid.
func (w *Wizard) Next() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if verr := w.validateStep(w.step); verr != nil {
		w.errors = verr.Fields
		return false
	}

	w.errors = map[string]string{}
	if w.step < TotalSteps {
		w.step++
	}
	return true
}

// Back returns to the previous step, never below the first
func (w *Wizard) Back() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.step > 1 {
		w.step--
	}
}

// Submit validates every step. On success the wizard resets and the collected
// driver is returned; otherwise the wizard moves to the first invalid step and
// a *apperr.ValidationError is returned.
func (w *Wizard) Submit() (fleet.DriverInput, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for step := 1; step <= TotalSteps; step++ {
		if verr := w.validateStep(step); verr != nil {
			w.step = step
			w.errors = verr.Fields
			return fleet.DriverInput{}, verr
		}
	}

	in := fleet.DriverInput{
		Name:     w.data.Name,
		Email:    w.data.Email,
		Phone:    w.data.Phone,
		Vehicle:  w.data.Vehicle,
		Status:   w.data.Status,
		Location: w.data.Location,
	}
	w.reset()
	return in, nil
}

// Reset discards everything collected and returns to step 1
func (w *Wizard) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.reset()
}

func (w *Wizard) reset() {
	w.step = 1
	w.data = emptyData()
	w.errors = map[string]string{}
}

func (w *Wizard) validateStep(step int) *apperr.ValidationError {
	var form any
	switch step {
	case 1:
		form = &personalStep{Name: w.data.Name, Email: w.data.Email}
	case 2:
		form = &contactStep{Phone: w.data.Phone, Vehicle: w.data.Vehicle}
	default:
		form = &statusStep{Status: string(w.data.Status), Location: w.data.Location}
	}

	err := w.validator.Struct(form)
	if err == nil {
		return nil
	}
	if verr, ok := apperr.AsValidation(err); ok {
		return verr
	}
	return &apperr.ValidationError{Fields: map[string]string{"form": err.Error()}}
}

func selectable(s fleet.DriverStatus) bool {
	for _, candidate := range SelectableStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

var nonDigits = regexp.MustCompile(`\D`)

// FormatPhone renders an 11-digit Brazilian mobile number as (dd) ddddd-dddd.
// Shorter inputs come back as bare digits; longer ones are returned untouched.
func FormatPhone(value string) string {
	digits := nonDigits.ReplaceAllString(value, "")
	if len(digits) > 11 {
		return value
	}
	if len(digits) == 11 {
		return fmt.Sprintf("(%s) %s-%s", digits[:2], digits[2:7], digits[7:])
	}
	return digits
}
