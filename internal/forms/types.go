package forms

import (
	"github.com/fleettrack-dev/fleettrack/internal/fleet"
)

// SignIn is the sign-in form
type SignIn struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required"`
	Redirect string `form:"redirect"`
}

// SignUp is the account creation form
type SignUp struct {
	Name            string `form:"name" validate:"required"`
	Email           string `form:"email" validate:"required,email"`
	Password        string `form:"password" validate:"required,min=6"`
	ConfirmPassword string `form:"confirmPassword" validate:"required,eqfield=Password"`
}

// Normalize trims and strips markup from the free-text fields
func (f *SignUp) Normalize() {
	f.Name = Clean(f.Name)
	f.Email = Clean(f.Email)
}

// CompanyProfile is the settings form
type CompanyProfile struct {
	Name            string `form:"name" validate:"required,max=120"`
	Email           string `form:"email" validate:"required,email"`
	Phone           string `form:"phone" validate:"required"`
	Address         string `form:"address" validate:"max=200"`
	Timezone        string `form:"timezone" validate:"required,timezone"`
	NotifyEmail     bool   `form:"notify_email"`
	NotifyPush      bool   `form:"notify_push"`
	NotifySMS       bool   `form:"notify_sms"`
	TripUpdates     bool   `form:"trip_updates"`
	EmergencyAlerts bool   `form:"emergency_alerts"`
}

// CompanyProfileFrom fills the form from a stored profile
func CompanyProfileFrom(c fleet.Company) CompanyProfile {
	return CompanyProfile{
		Name:            c.Name,
		Email:           c.Email,
		Phone:           c.Phone,
		Address:         c.Address,
		Timezone:        c.Timezone,
		NotifyEmail:     c.Notifications.Email,
		NotifyPush:      c.Notifications.Push,
		NotifySMS:       c.Notifications.SMS,
		TripUpdates:     c.Notifications.TripUpdates,
		EmergencyAlerts: c.Notifications.EmergencyAlerts,
	}
}

// Company converts the form into the record saved by a fleet.Source
func (f CompanyProfile) Company() fleet.Company {
	return fleet.Company{
		Name:     Clean(f.Name),
		Email:    Clean(f.Email),
		Phone:    Clean(f.Phone),
		Address:  Clean(f.Address),
		Timezone: f.Timezone,
		Notifications: fleet.Notifications{
			Email:           f.NotifyEmail,
			Push:            f.NotifyPush,
			SMS:             f.NotifySMS,
			TripUpdates:     f.TripUpdates,
			EmergencyAlerts: f.EmergencyAlerts,
		},
	}
}
