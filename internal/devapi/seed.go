package devapi

import (
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/fleettrack-dev/fleettrack/internal/fleet"
	"github.com/fleettrack-dev/fleettrack/internal/registration"
)

var fakeDriverStatuses = []string{
	string(fleet.DriverActive),
	string(fleet.DriverActive),
	string(fleet.DriverOnBreak),
	string(fleet.DriverOffDuty),
	string(fleet.DriverUnavailable),
}

// Seed loads the demo fleet into an empty database and adds fakeDrivers
// generated drivers. A database that already holds drivers is left alone.
func Seed(db *gorm.DB, now time.Time, fakeDrivers int, logger zerolog.Logger) error {
	var count int64
	if err := db.Model(&DriverRecord{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count drivers: %w", err)
	}
	if count > 0 {
		logger.Debug().Int64("drivers", count).Msg("Database already seeded")
		return nil
	}

	fx, err := fleet.LoadFixtures(now)
	if err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		for _, d := range fx.Drivers {
			rec := DriverRecord{
				Name:       d.Name,
				Email:      d.Email,
				Phone:      d.Phone,
				Vehicle:    d.Vehicle,
				Status:     d.Status,
				Location:   d.Location,
				LastUpdate: d.LastUpdate,
			}
			rec.ID = d.ID
			if err := tx.Create(&rec).Error; err != nil {
				return fmt.Errorf("failed to seed driver %s: %w", d.ID, err)
			}
		}

		faker := gofakeit.New(0)
		for i := 0; i < fakeDrivers; i++ {
			rec := fakeDriver(faker, now)
			if err := tx.Create(&rec).Error; err != nil {
				return fmt.Errorf("failed to seed fake driver: %w", err)
			}
		}

		for _, t := range fx.Trips {
			rec := TripRecord{
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
			if err := tx.Create(&rec).Error; err != nil {
				return fmt.Errorf("failed to seed trip %s: %w", t.ID, err)
			}
		}

		for _, p := range fx.Positions {
			rec := PositionRecord{
				DriverID: p.DriverID,
				Name:     p.Name,
				Vehicle:  p.Vehicle,
				Status:   p.Status,
				Lat:      p.Lat,
				Lng:      p.Lng,
			}
			if err := tx.Create(&rec).Error; err != nil {
				return fmt.Errorf("failed to seed position %s: %w", p.DriverID, err)
			}
		}

		company := companyRecord(fx.Company)
		if err := tx.Create(&company).Error; err != nil {
			return fmt.Errorf("failed to seed company: %w", err)
		}

		logger.Info().
			Int("drivers", len(fx.Drivers)+fakeDrivers).
			Int("trips", len(fx.Trips)).
			Msg("Seeded demo fleet")
		return nil
	})
}

func fakeDriver(f *gofakeit.Faker, now time.Time) DriverRecord {
	return DriverRecord{
		Name:       f.Name(),
		Email:      strings.ToLower(f.Email()),
		Phone:      registration.FormatPhone(f.Numerify("119########")),
		Vehicle:    strings.ToUpper(f.Lexify("???")) + "-" + f.Numerify("####"),
		Status:     fleet.DriverStatus(f.RandomString(fakeDriverStatuses)),
		Location:   f.City(),
		LastUpdate: now.Add(-time.Duration(f.Number(1, 600)) * time.Minute),
	}
}
