package models

import (
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

// BaseModel provides common fields and auto-generated ULID for all models
type BaseModel struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(26)"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// BeforeCreate generates a ULID for the ID field if it's empty
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = ulid.Make().String()
	}
	return nil
}

// Visitor is one browser talking to the dashboard, identified by the HTTP-only
// visitor cookie. Each visitor owns exactly one session store.
type Visitor struct {
	BaseModel
	UserAgent  string    `json:"user_agent"`
	LastSeenAt time.Time `json:"last_seen_at" gorm:"index;not null"`
}

// StoredValue is one key of a visitor's persistent session storage
// (the "token" and "user" keys live here)
type StoredValue struct {
	Namespace string    `json:"namespace" gorm:"primaryKey;type:varchar(64)"`
	Key       string    `json:"key" gorm:"column:item_key;primaryKey;type:varchar(64)"`
	Value     string    `json:"-" gorm:"type:text;not null"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	// Collect all models
	models := []interface{}{
		&Visitor{}, &StoredValue{},
	}

	return db.AutoMigrate(models...)
}

// FindByID safely finds a record by string ID
func FindByID[T any](db *gorm.DB, id string, model *T) error {
	return db.Where("id = ?", id).First(model).Error
}
