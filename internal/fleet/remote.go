package fleet

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// Requester sends one JSON request to the backend. transport.Client
// satisfies it.
type Requester interface {
	Do(ctx context.Context, method, path string, query url.Values, body, out any) error
}

// RemoteSource reads fleet records from the backend
type RemoteSource struct {
	api Requester
}

// NewRemoteSource creates a source over api
func NewRemoteSource(api Requester) *RemoteSource {
	return &RemoteSource{api: api}
}

type listEnvelope[T any] struct {
	Data []T `json:"data"`
}

func (s *RemoteSource) Drivers(ctx context.Context, page, perPage int) (*DriverPage, error) {
	page, perPage = NormalizePage(page, perPage)
	query := url.Values{
		"page":     {strconv.Itoa(page)},
		"per_page": {strconv.Itoa(perPage)},
	}

	var out DriverPage
	if err := s.api.Do(ctx, http.MethodGet, "drivers", query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *RemoteSource) RegisterDriver(ctx context.Context, in DriverInput) (*Driver, error) {
	var out Driver
	if err := s.api.Do(ctx, http.MethodPost, "drivers", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *RemoteSource) Trips(ctx context.Context, filter TripFilter) ([]Trip, error) {
	query := url.Values{}
	if filter.Search != "" {
		query.Set("search", filter.Search)
	}
	if filter.Status != "" && filter.Status != StatusAll {
		query.Set("status", filter.Status)
	}

	var out listEnvelope[Trip]
	if err := s.api.Do(ctx, http.MethodGet, "trips", query, nil, &out); err != nil {
		return nil, err
	}
	// The backend may ignore the filter; the result must honor it either way
	return FilterTrips(out.Data, filter), nil
}

func (s *RemoteSource) Positions(ctx context.Context) ([]Position, error) {
	var out listEnvelope[Position]
	if err := s.api.Do(ctx, http.MethodGet, "positions", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (s *RemoteSource) Summary(ctx context.Context) (*Summary, error) {
	var out Summary
	if err := s.api.Do(ctx, http.MethodGet, "dashboard", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *RemoteSource) Company(ctx context.Context) (*Company, error) {
	var out Company
	if err := s.api.Do(ctx, http.MethodGet, "company", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *RemoteSource) SaveCompany(ctx context.Context, c Company) (*Company, error) {
	var out Company
	if err := s.api.Do(ctx, http.MethodPut, "company", nil, c, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
