package fleet

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	DefaultPerPage = 10
	MaxPerPage     = 100
)

// Source produces fleet records
type Source interface {
	Drivers(ctx context.Context, page, perPage int) (*DriverPage, error)
	RegisterDriver(ctx context.Context, in DriverInput) (*Driver, error)
	Trips(ctx context.Context, filter TripFilter) ([]Trip, error)
	Positions(ctx context.Context) ([]Position, error)
	Summary(ctx context.Context) (*Summary, error)
	Company(ctx context.Context) (*Company, error)
	SaveCompany(ctx context.Context, c Company) (*Company, error)
}

// TripFilter narrows the trip list. An empty or "all" status matches every trip.
type TripFilter struct {
	Search string
	Status string
}

// StatusAll is the filter value that disables status filtering
const StatusAll = "all"

// FilterTrips keeps the trips whose driver, vehicle or id contains the search
// term (case-insensitive) and whose status matches
func FilterTrips(trips []Trip, f TripFilter) []Trip {
	term := strings.ToLower(strings.TrimSpace(f.Search))
	status := strings.TrimSpace(f.Status)

	out := make([]Trip, 0, len(trips))
	for _, t := range trips {
		if status != "" && status != StatusAll && string(t.Status) != status {
			continue
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(t.Driver), term) &&
			!strings.Contains(strings.ToLower(t.Vehicle), term) &&
			!strings.Contains(strings.ToLower(t.ID), term) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// NormalizePage clamps paging parameters to sane values. page is capped so
// that page*perPage never overflows an int.
func NormalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	if maxPage := math.MaxInt / perPage; page > maxPage {
		page = maxPage
	}
	return page, perPage
}

// Paginate slices drivers into the requested page
func Paginate(drivers []Driver, page, perPage int) *DriverPage {
	page, perPage = NormalizePage(page, perPage)
	total := len(drivers)

	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}

	data := make([]Driver, end-start)
	copy(data, drivers[start:end])

	return &DriverPage{
		Data: data,
		Pagination: Pagination{
			Page:       page,
			PerPage:    perPage,
			Total:      total,
			TotalPages: (total + perPage - 1) / perPage,
		},
	}
}

// RelativeTime renders how long ago t was, e.g. "há 2 min"
func RelativeTime(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "agora"
	case d < time.Hour:
		return fmt.Sprintf("há %d min", int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("há %d h", int(d/time.Hour))
	default:
		days := int(d / (24 * time.Hour))
		if days == 1 {
			return "há 1 dia"
		}
		return fmt.Sprintf("há %d dias", days)
	}
}

// ValidTimezone reports whether id is one of the selectable zones
func ValidTimezone(id string) bool {
	for _, tz := range Timezones {
		if tz.ID == id {
			return true
		}
	}
	return false
}
