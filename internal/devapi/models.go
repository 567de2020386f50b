package devapi

import (
	"time"

	"gorm.io/gorm"

	"github.com/fleettrack-dev/fleettrack/internal/auth"
	"github.com/fleettrack-dev/fleettrack/internal/fleet"
	"github.com/fleettrack-dev/fleettrack/internal/models"
)

// Account is an operator who can sign in to the dashboard
type Account struct {
	models.BaseModel
	Name         string    `json:"name" gorm:"not null"`
	Email        string    `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"not null"`
	Role         string    `json:"role"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Account) TableName() string { return "accounts" }

// User is the wire form of the account
func (a *Account) User() *auth.User {
	created, updated := a.CreatedAt, a.UpdatedAt
	return &auth.User{
		ID:        a.ID,
		Name:      a.Name,
		Email:     a.Email,
		Role:      a.Role,
		CreatedAt: &created,
		UpdatedAt: &updated,
	}
}

// RevokedToken marks a token id that was logged out or refreshed away
type RevokedToken struct {
	JTI       string    `gorm:"primaryKey;type:varchar(26)"`
	ExpiresAt time.Time `gorm:"index;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (RevokedToken) TableName() string { return "revoked_tokens" }

// DriverRecord is a stored driver. Seeded drivers keep their fixture ids;
// registered ones get a ULID.
type DriverRecord struct {
	models.BaseModel
	Name       string             `gorm:"not null"`
	Email      string             `gorm:"not null"`
	Phone      string             `gorm:"not null"`
	Vehicle    string             `gorm:"not null"`
	Status     fleet.DriverStatus `gorm:"type:varchar(20);index;not null"`
	Location   string
	LastUpdate time.Time `gorm:"not null"`
}

func (DriverRecord) TableName() string { return "drivers" }

func (d *DriverRecord) Driver() fleet.Driver {
	return fleet.Driver{
		ID:         d.ID,
		Name:       d.Name,
		Email:      d.Email,
		Phone:      d.Phone,
		Vehicle:    d.Vehicle,
		Status:     d.Status,
		Location:   d.Location,
		LastUpdate: d.LastUpdate,
	}
}

// TripRecord is a stored trip
type TripRecord struct {
	ID            string           `gorm:"primaryKey;type:varchar(26)"`
	Driver        string           `gorm:"not null"`
	Vehicle       string           `gorm:"not null"`
	Origin        string           `gorm:"not null"`
	Destination   string           `gorm:"not null"`
	Status        fleet.TripStatus `gorm:"type:varchar(20);index;not null"`
	Freight       string
	StartTime     string
	EstimatedTime string
	DistanceKm    int
	Progress      int
}

func (TripRecord) TableName() string { return "trips" }

func (t *TripRecord) Trip() fleet.Trip {
	return fleet.Trip{
		ID:            t.ID,
		Driver:        t.Driver,
		Vehicle:       t.Vehicle,
		Origin:        t.Origin,
		Destination:   t.Destination,
		Status:        t.Status,
		Freight:       t.Freight,
		StartTime:     t.StartTime,
		EstimatedTime: t.EstimatedTime,
		DistanceKm:    t.DistanceKm,
		Progress:      t.Progress,
	}
}

// PositionRecord is the last reported location of a driver
type PositionRecord struct {
	DriverID string               `gorm:"primaryKey;type:varchar(26)"`
	Name     string               `gorm:"not null"`
	Vehicle  string               `gorm:"not null"`
	Status   fleet.PositionStatus `gorm:"type:varchar(20);not null"`
	Lat      float64
	Lng      float64
}

func (PositionRecord) TableName() string { return "positions" }

func (p *PositionRecord) Position() fleet.Position {
	return fleet.Position{
		DriverID: p.DriverID,
		Name:     p.Name,
		Vehicle:  p.Vehicle,
		Status:   p.Status,
		Lat:      p.Lat,
		Lng:      p.Lng,
	}
}

// companyID is the primary key of the single company row
const companyID = 1

// CompanyRecord is the operator's profile (singleton)
type CompanyRecord struct {
	ID            uint                `gorm:"primaryKey"`
	Name          string              `gorm:"not null"`
	Email         string              `gorm:"not null"`
	Phone         string              `gorm:"not null"`
	Address       string
	Timezone      string              `gorm:"not null"`
	Notifications fleet.Notifications `gorm:"embedded;embeddedPrefix:notify_"`
	UpdatedAt     time.Time           `gorm:"autoUpdateTime"`
}

func (CompanyRecord) TableName() string { return "companies" }

func (c *CompanyRecord) Company() fleet.Company {
	return fleet.Company{
		Name:          c.Name,
		Email:         c.Email,
		Phone:         c.Phone,
		Address:       c.Address,
		Timezone:      c.Timezone,
		Notifications: c.Notifications,
	}
}

func companyRecord(c fleet.Company) CompanyRecord {
	return CompanyRecord{
		ID:            companyID,
		Name:          c.Name,
		Email:         c.Email,
		Phone:         c.Phone,
		Address:       c.Address,
		Timezone:      c.Timezone,
		Notifications: c.Notifications,
	}
}

// AutoMigrate creates the backend tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Account{}, &RevokedToken{},
		&DriverRecord{}, &TripRecord{}, &PositionRecord{}, &CompanyRecord{},
	)
}
