// Package fleet holds the typed records the dashboard renders and the sources
// that produce them. Fixture and remote sources return the same shapes, so
// moving to the real backend is a transport swap.
package fleet

import (
	"fmt"
	"strings"
	"time"
)

// DriverStatus is a driver's availability
type DriverStatus string

const (
	DriverActive      DriverStatus = "active"
	DriverOnBreak     DriverStatus = "on_break"
	DriverOffDuty     DriverStatus = "off_duty"
	DriverUnavailable DriverStatus = "unavailable"
)

var driverStatusLabels = map[DriverStatus]string{
	DriverActive:      "Ativo",
	DriverOnBreak:     "Em pausa",
	DriverOffDuty:     "Fora de serviço",
	DriverUnavailable: "Indisponível",
}

// Label is the pt-BR text shown for the status
func (s DriverStatus) Label() string {
	if l, ok := driverStatusLabels[s]; ok {
		return l
	}
	return string(s)
}

// Variant is the badge style used for the status
func (s DriverStatus) Variant() string {
	switch s {
	case DriverActive:
		return "default"
	case DriverOffDuty:
		return "outline"
	default:
		return "secondary"
	}
}

// Valid reports whether s is a known status
func (s DriverStatus) Valid() bool {
	_, ok := driverStatusLabels[s]
	return ok
}

// ParseDriverStatus accepts a status code or its pt-BR label
func ParseDriverStatus(v string) (DriverStatus, error) {
	v = strings.TrimSpace(v)
	if s := DriverStatus(v); s.Valid() {
		return s, nil
	}
	for s, label := range driverStatusLabels {
		if strings.EqualFold(label, v) {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown driver status %q", v)
}

// Driver is one member of the fleet
type Driver struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Email      string       `json:"email"`
	Phone      string       `json:"phone"`
	Vehicle    string       `json:"vehicle"`
	Status     DriverStatus `json:"status"`
	Location   string       `json:"location"`
	LastUpdate time.Time    `json:"lastUpdate"`
}

// DriverInput is what registering a driver needs
type DriverInput struct {
	Name     string       `json:"name"`
	Email    string       `json:"email"`
	Phone    string       `json:"phone"`
	Vehicle  string       `json:"vehicle"`
	Status   DriverStatus `json:"status"`
	Location string       `json:"location"`
}

// Pagination describes one page of a listing
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"perPage"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// DriverPage is one page of drivers
type DriverPage struct {
	Data       []Driver   `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// TripStatus is where a trip is in its lifecycle
type TripStatus string

const (
	TripPending    TripStatus = "pending"
	TripInProgress TripStatus = "in_progress"
	TripCompleted  TripStatus = "completed"
)

// TripStatuses lists the statuses in filter order
var TripStatuses = []TripStatus{TripPending, TripInProgress, TripCompleted}

// Label is the pt-BR text shown for the status
func (s TripStatus) Label() string {
	switch s {
	case TripPending:
		return "Pendente"
	case TripInProgress:
		return "Em Andamento"
	case TripCompleted:
		return "Concluída"
	default:
		return string(s)
	}
}

// Variant is the badge style used for the status
func (s TripStatus) Variant() string {
	switch s {
	case TripCompleted:
		return "success"
	case TripInProgress:
		return "info"
	case TripPending:
		return "warning"
	default:
		return "secondary"
	}
}

// Trip is one freight run
type Trip struct {
	ID            string     `json:"id" yaml:"id"`
	Driver        string     `json:"driver" yaml:"driver"`
	Vehicle       string     `json:"vehicle" yaml:"vehicle"`
	Origin        string     `json:"origin" yaml:"origin"`
	Destination   string     `json:"destination" yaml:"destination"`
	Status        TripStatus `json:"status" yaml:"status"`
	Freight       string     `json:"freight" yaml:"freight"`
	StartTime     string     `json:"startTime" yaml:"start_time"`
	EstimatedTime string     `json:"estimatedTime" yaml:"estimated_time"`
	DistanceKm    int        `json:"distanceKm" yaml:"distance_km"`
	Progress      int        `json:"progress" yaml:"progress"`
}

// PositionStatus is what a vehicle on the map is doing
type PositionStatus string

const (
	PositionEnRoute   PositionStatus = "en_route"
	PositionLoading   PositionStatus = "loading"
	PositionDelivered PositionStatus = "delivered"
)

// Label is the pt-BR text shown for the status
func (s PositionStatus) Label() string {
	switch s {
	case PositionEnRoute:
		return "A caminho"
	case PositionLoading:
		return "Carregando"
	case PositionDelivered:
		return "Entregue"
	default:
		return string(s)
	}
}

// Position is the last known location of an active driver
type Position struct {
	DriverID string         `json:"driverId" yaml:"driver_id"`
	Name     string         `json:"name" yaml:"name"`
	Vehicle  string         `json:"vehicle" yaml:"vehicle"`
	Status   PositionStatus `json:"status" yaml:"status"`
	Lat      float64        `json:"lat" yaml:"lat"`
	Lng      float64        `json:"lng" yaml:"lng"`
}

// Stat is one dashboard counter
type Stat struct {
	Title   string `json:"title" yaml:"title"`
	Value   string `json:"value" yaml:"value"`
	Icon    string `json:"icon" yaml:"icon"`
	Trend   string `json:"trend" yaml:"trend"`
	Variant string `json:"variant" yaml:"variant"`
}

// Activity is one line of the dashboard's recent activity feed
type Activity struct {
	Driver   string `json:"driver" yaml:"driver"`
	Status   string `json:"status" yaml:"status"`
	Location string `json:"location" yaml:"location"`
	Time     string `json:"time" yaml:"time"`
}

// Summary is what the dashboard home shows
type Summary struct {
	Stats      []Stat     `json:"stats" yaml:"stats"`
	Activities []Activity `json:"activities" yaml:"activities"`
}

// Timezone is a selectable company time zone
type Timezone struct {
	ID    string
	Label string
}

// Timezones are the zones a company may pick
var Timezones = []Timezone{
	{ID: "America/Sao_Paulo", Label: "Brasília (UTC-3)"},
	{ID: "America/Manaus", Label: "Manaus (UTC-4)"},
	{ID: "America/Rio_Branco", Label: "Rio Branco (UTC-5)"},
}

// Notifications are the company's alert preferences
type Notifications struct {
	Email           bool `json:"email" yaml:"email"`
	Push            bool `json:"push" yaml:"push"`
	SMS             bool `json:"sms" yaml:"sms"`
	TripUpdates     bool `json:"tripUpdates" yaml:"trip_updates"`
	EmergencyAlerts bool `json:"emergencyAlerts" yaml:"emergency_alerts"`
}

// Company is the operator's profile shown in settings
type Company struct {
	Name          string        `json:"name" yaml:"name"`
	Email         string        `json:"email" yaml:"email"`
	Phone         string        `json:"phone" yaml:"phone"`
	Address       string        `json:"address" yaml:"address"`
	Timezone      string        `json:"timezone" yaml:"timezone"`
	Notifications Notifications `json:"notifications" yaml:"notifications"`
}
