package web

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/fleettrack-dev/fleettrack/internal/config"
	"github.com/fleettrack-dev/fleettrack/internal/fleet"
	"github.com/fleettrack-dev/fleettrack/internal/models"
	"github.com/fleettrack-dev/fleettrack/internal/registration"
	"github.com/fleettrack-dev/fleettrack/internal/session"
	"github.com/fleettrack-dev/fleettrack/internal/storage"
	"github.com/fleettrack-dev/fleettrack/internal/transport"
)

// touchInterval limits how often last_seen_at is written back
const touchInterval = config.MinIdleTTL

// Visitor is one browser. It owns exactly one session store, bound to its own
// transport client, so no two browsers ever share an identity.
type Visitor struct {
	ID     string
	Store  *session.Store
	API    *transport.Client
	Fleet  fleet.Source
	Wizard *registration.Wizard

	mu          sync.Mutex
	mapboxToken string
	lastSeen    time.Time
}

// MapboxToken returns the map token entered on the maps page
func (v *Visitor) MapboxToken() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.mapboxToken
}

// SetMapboxToken keeps the map token for the rest of the visit
func (v *Visitor) SetMapboxToken(token string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.mapboxToken = token
}

func (v *Visitor) touch(now time.Time) (stale bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	stale = now.Sub(v.lastSeen) >= touchInterval
	v.lastSeen = now
	return stale
}

// VisitorFactory wires the per-visitor collaborators around a session storage
type VisitorFactory func(id string, st storage.Storage) *Visitor

// VisitorMetrics observes the registry
type VisitorMetrics interface {
	SetActiveVisitors(n int)
	RecordSwept(n int)
}

// Registry maps visitor ids to live visitors. Visitor rows and their stored
// session values live in the database, so a restart restores sessions without
// a backend round trip.
type Registry struct {
	db      *gorm.DB
	logger  zerolog.Logger
	metrics VisitorMetrics
	build   VisitorFactory
	now     func() time.Time

	mu       sync.Mutex
	visitors map[string]*Visitor
}

// NewRegistry creates an empty registry
func NewRegistry(db *gorm.DB, build VisitorFactory, metrics VisitorMetrics, logger zerolog.Logger) *Registry {
	return &Registry{
		db:       db,
		logger:   logger.With().Str("component", "visitors").Logger(),
		metrics:  metrics,
		build:    build,
		now:      time.Now,
		visitors: make(map[string]*Visitor),
	}
}

// Acquire returns the visitor for id, loading it from the database or
// creating a new one. Unknown ids are never adopted: the caller gets a fresh
// visitor and must reissue its cookie when the returned ID differs.
func (r *Registry) Acquire(ctx context.Context, id, userAgent string) (*Visitor, error) {
	now := r.now()

	if id != "" {
		r.mu.Lock()
		v, ok := r.visitors[id]
		r.mu.Unlock()
		if ok {
			if v.touch(now) {
				r.saveLastSeen(ctx, id, now)
			}
			return v, nil
		}

		var row models.Visitor
		err := models.FindByID(r.db.WithContext(ctx), id, &row)
		switch {
		case err == nil:
			r.saveLastSeen(ctx, id, now)
			return r.attach(ctx, row.ID, now)
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, fmt.Errorf("failed to load visitor: %w", err)
		}
	}

	row := models.Visitor{UserAgent: userAgent, LastSeenAt: now}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("failed to create visitor: %w", err)
	}
	r.logger.Debug().Str("visitor_id", row.ID).Msg("New visitor")

	return r.attach(ctx, row.ID, now)
}

// attach builds the visitor, restores its session and registers it. When two
// requests race on the same id the first registration wins.
func (r *Registry) attach(ctx context.Context, id string, now time.Time) (*Visitor, error) {
	v := r.build(id, storage.NewSQLStore(r.db, id))
	v.lastSeen = now

	if err := v.Store.Init(ctx); err != nil {
		return nil, fmt.Errorf("failed to restore session: %w", err)
	}

	r.mu.Lock()
	if existing, ok := r.visitors[id]; ok {
		r.mu.Unlock()
		return existing, nil
	}
	r.visitors[id] = v
	n := len(r.visitors)
	r.mu.Unlock()

	r.setActive(n)
	return v, nil
}

// Release ends a visit: the session is torn down (best-effort server-side
// logout) and every trace of the visitor is removed
func (r *Registry) Release(ctx context.Context, id string) error {
	r.mu.Lock()
	v, ok := r.visitors[id]
	delete(r.visitors, id)
	n := len(r.visitors)
	r.mu.Unlock()

	if ok {
		if err := v.Store.Teardown(ctx); err != nil {
			r.logger.Warn().Err(err).Str("visitor_id", id).Msg("Session teardown failed")
		}
	}
	r.setActive(n)

	if err := storage.DeleteNamespace(ctx, r.db, id); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Visitor{}).Error; err != nil {
		return fmt.Errorf("failed to delete visitor %s: %w", id, err)
	}
	return nil
}

// Sweep releases every visitor not seen for idleTTL and returns how many
func (r *Registry) Sweep(ctx context.Context, idleTTL time.Duration) (int, error) {
	cutoff := r.now().Add(-idleTTL)

	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.Visitor{}).
		Where("last_seen_at < ?", cutoff).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, fmt.Errorf("failed to list idle visitors: %w", err)
	}

	swept := 0
	for _, id := range ids {
		if err := r.Release(ctx, id); err != nil {
			r.logger.Error().Err(err).Str("visitor_id", id).Msg("Failed to release idle visitor")
			continue
		}
		swept++
	}

	if r.metrics != nil && swept > 0 {
		r.metrics.RecordSwept(swept)
	}
	return swept, nil
}

// Len returns the number of live visitors
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.visitors)
}

// Get returns a live visitor without touching it
func (r *Registry) Get(id string) (*Visitor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.visitors[id]
	return v, ok
}

func (r *Registry) saveLastSeen(ctx context.Context, id string, now time.Time) {
	err := r.db.WithContext(ctx).
		Model(&models.Visitor{}).
		Where("id = ?", id).
		Update("last_seen_at", now).Error
	if err != nil {
		r.logger.Warn().Err(err).Str("visitor_id", id).Msg("Failed to update last_seen_at")
	}
}

func (r *Registry) setActive(n int) {
	if r.metrics != nil {
		r.metrics.SetActiveVisitors(n)
	}
}
