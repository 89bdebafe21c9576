package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Ananth-NQI/botfleet-backend/internal/models"
)

// DatabaseStore keeps credentials in PostgreSQL through gorm
type DatabaseStore struct {
	db *gorm.DB
}

// NewDatabaseStore creates a store on an already migrated database
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

func (d *DatabaseStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	var row models.SessionCredential
	err := d.db.WithContext(ctx).Where("session_key = ?", key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load credentials %s: %w", key, err)
	}
	return row.Data, true, nil
}

func (d *DatabaseStore) Save(ctx context.Context, key string, creds []byte) error {
	if key == "" {
		return fmt.Errorf("session key is required")
	}
	row := models.SessionCredential{SessionKey: key, Data: creds}
	err := d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("save credentials %s: %w", key, err)
	}
	return nil
}

// Delete removes the row permanently so the unique key can be reused
func (d *DatabaseStore) Delete(ctx context.Context, key string) error {
	err := d.db.WithContext(ctx).Unscoped().
		Where("session_key = ?", key).
		Delete(&models.SessionCredential{}).Error
	if err != nil {
		return fmt.Errorf("delete credentials %s: %w", key, err)
	}
	return nil
}
