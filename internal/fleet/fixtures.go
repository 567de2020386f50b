package fleet

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed fixtures.yaml
var fixturesYAML []byte

type fixtureDriver struct {
	ID         string       `yaml:"id"`
	Name       string       `yaml:"name"`
	Email      string       `yaml:"email"`
	Phone      string       `yaml:"phone"`
	Vehicle    string       `yaml:"vehicle"`
	Status     DriverStatus `yaml:"status"`
	Location   string       `yaml:"location"`
	MinutesAgo int          `yaml:"minutes_ago"`
}

type fixtureFile struct {
	Drivers   []fixtureDriver `yaml:"drivers"`
	Trips     []Trip          `yaml:"trips"`
	Positions []Position      `yaml:"positions"`
	Summary   Summary         `yaml:"summary"`
	Company   Company         `yaml:"company"`
}

// Fixtures is the demo data set, with driver timestamps resolved against a clock
type Fixtures struct {
	Drivers   []Driver
	Trips     []Trip
	Positions []Position
	Summary   Summary
	Company   Company
}

// LoadFixtures parses the embedded demo data
func LoadFixtures(now time.Time) (*Fixtures, error) {
	return ParseFixtures(fixturesYAML, now)
}

// ParseFixtures parses demo data in the fixtures.yaml layout
func ParseFixtures(data []byte, now time.Time) (*Fixtures, error) {
	var file fixtureFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse fixtures: %w", err)
	}

	fx := &Fixtures{
		Trips:     file.Trips,
		Positions: file.Positions,
		Summary:   file.Summary,
		Company:   file.Company,
	}
	for _, d := range file.Drivers {
		if !d.Status.Valid() {
			return nil, fmt.Errorf("fixture driver %s has unknown status %q", d.ID, d.Status)
		}
		fx.Drivers = append(fx.Drivers, Driver{
			ID:         d.ID,
			Name:       d.Name,
			Email:      d.Email,
			Phone:      d.Phone,
			Vehicle:    d.Vehicle,
			Status:     d.Status,
			Location:   d.Location,
			LastUpdate: now.Add(-time.Duration(d.MinutesAgo) * time.Minute),
		})
	}

	return fx, nil
}

// FixtureSource serves the demo data from memory. Registered drivers are
// appended and live as long as the source.
type FixtureSource struct {
	mu     sync.RWMutex
	data   *Fixtures
	nextID int
	now    func() time.Time
}

// NewFixtureSource creates a source over the embedded demo data
func NewFixtureSource() (*FixtureSource, error) {
	return NewFixtureSourceWithClock(time.Now)
}

// NewFixtureSourceWithClock is NewFixtureSource with an injectable clock
func NewFixtureSourceWithClock(now func() time.Time) (*FixtureSource, error) {
	fx, err := LoadFixtures(now())
	if err != nil {
		return nil, err
	}

	next := len(fx.Drivers) + 1
	for _, d := range fx.Drivers {
		if n, err := strconv.Atoi(d.ID); err == nil && n >= next {
			next = n + 1
		}
	}

	return &FixtureSource{data: fx, nextID: next, now: now}, nil
}

func (s *FixtureSource) Drivers(_ context.Context, page, perPage int) (*DriverPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Paginate(s.data.Drivers, page, perPage), nil
}

func (s *FixtureSource) RegisterDriver(_ context.Context, in DriverInput) (*Driver, error) {
	status := in.Status
	if status == "" {
		status = DriverActive
	}
	if !status.Valid() {
		return nil, fmt.Errorf("unknown driver status %q", in.Status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	d := Driver{
		ID:         strconv.Itoa(s.nextID),
		Name:       in.Name,
		Email:      in.Email,
		Phone:      in.Phone,
		Vehicle:    in.Vehicle,
		Status:     status,
		Location:   in.Location,
		LastUpdate: s.now(),
	}
	s.nextID++
	s.data.Drivers = append(s.data.Drivers, d)

	return &d, nil
}

func (s *FixtureSource) Trips(_ context.Context, filter TripFilter) ([]Trip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return FilterTrips(s.data.Trips, filter), nil
}

func (s *FixtureSource) Positions(context.Context) ([]Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Position(nil), s.data.Positions...), nil
}

func (s *FixtureSource) Summary(context.Context) (*Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &Summary{
		Stats:      append([]Stat(nil), s.data.Summary.Stats...),
		Activities: append([]Activity(nil), s.data.Summary.Activities...),
	}, nil
}

func (s *FixtureSource) Company(context.Context) (*Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := s.data.Company
	return &c, nil
}

func (s *FixtureSource) SaveCompany(_ context.Context, c Company) (*Company, error) {
	if !ValidTimezone(c.Timezone) {
		return nil, fmt.Errorf("unknown timezone %q", c.Timezone)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Company = c
	return &c, nil
}
