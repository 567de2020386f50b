package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fleettrack-dev/fleettrack/internal/models"
)

// SQLStore persists values in the stored_values table, scoped to a namespace
// (the dashboard uses the visitor id)
type SQLStore struct {
	db        *gorm.DB
	namespace string
}

// NewSQLStore creates a store for one namespace
func NewSQLStore(db *gorm.DB, namespace string) *SQLStore {
	return &SQLStore{db: db, namespace: namespace}
}

func (s *SQLStore) Get(ctx context.Context, key string) (string, bool, error) {
	var row models.StoredValue
	err := s.db.WithContext(ctx).
		Where("namespace = ? AND item_key = ?", s.namespace, key).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read %q: %w", key, err)
	}
	return row.Value, true, nil
}

func (s *SQLStore) Set(ctx context.Context, key, value string) error {
	row := models.StoredValue{
		Namespace: s.namespace,
		Key:       key,
		Value:     value,
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "namespace"}, {Name: "item_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to write %q: %w", key, err)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	err := s.db.WithContext(ctx).
		Where("namespace = ? AND item_key = ?", s.namespace, key).
		Delete(&models.StoredValue{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return nil
}

// DeleteNamespace removes every key of a namespace
func DeleteNamespace(ctx context.Context, db *gorm.DB, namespace string) error {
	err := db.WithContext(ctx).
		Where("namespace = ?", namespace).
		Delete(&models.StoredValue{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete namespace %s: %w", namespace, err)
	}
	return nil
}
