package repo

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/finledger/qbo-connector/apps/quickbooks"
)

// TokenRecord persists one company's OAuth token pair so the connector
// survives restarts without repeating the consent flow.
type TokenRecord struct {
	gorm.Model

	RealmID      string    `json:"realm_id" gorm:"uniqueIndex;not null;type:varchar(64)"`
	AccessToken  string    `json:"access_token" gorm:"not null;type:text"`
	RefreshToken string    `json:"refresh_token" gorm:"not null;type:text"`
	ObtainedAt   time.Time `json:"obtained_at" gorm:"not null"`
}

// Pair converts the record back to the domain token pair.
func (r *TokenRecord) Pair() quickbooks.TokenPair {
	return quickbooks.TokenPair{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		RealmID:      r.RealmID,
		ObtainedAt:   r.ObtainedAt,
	}
}

// TokenRepository handles database operations for token records
type TokenRepository struct {
	db *gorm.DB
}

// NewTokenRepository creates a new token repository
func NewTokenRepository(db *gorm.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// Save upserts the pair for its realm.
func (r *TokenRepository) Save(pair quickbooks.TokenPair) error {
	if pair.RealmID == "" {
		return fmt.Errorf("token record requires a realm id")
	}

	record := TokenRecord{
		RealmID:      pair.RealmID,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ObtainedAt:   pair.ObtainedAt,
	}

	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "realm_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"access_token", "refresh_token", "obtained_at", "updated_at"}),
	}).Create(&record)
	if result.Error != nil {
		return fmt.Errorf("error saving token record: %v", result.Error)
	}

	return nil
}

// Get returns the pair stored for the realm.
func (r *TokenRepository) Get(realmID string) (quickbooks.TokenPair, error) {
	var record TokenRecord
	if err := r.db.Where("realm_id = ?", realmID).First(&record).Error; err != nil {
		return quickbooks.TokenPair{}, err
	}
	return record.Pair(), nil
}

// Latest returns the most recently obtained pair across realms. Used
// to resume the connected company on startup.
func (r *TokenRepository) Latest() (quickbooks.TokenPair, error) {
	var record TokenRecord
	if err := r.db.Order("obtained_at DESC").First(&record).Error; err != nil {
		return quickbooks.TokenPair{}, err
	}
	return record.Pair(), nil
}

// ListRealms returns the realm ids with stored tokens.
func (r *TokenRepository) ListRealms() ([]string, error) {
	var realms []string
	if err := r.db.Model(&TokenRecord{}).Pluck("realm_id", &realms).Error; err != nil {
		return nil, fmt.Errorf("error listing realms: %v", err)
	}
	return realms, nil
}

// Delete removes the record for the realm.
func (r *TokenRepository) Delete(realmID string) error {
	result := r.db.Where("realm_id = ?", realmID).Delete(&TokenRecord{})
	if result.Error != nil {
		return fmt.Errorf("error deleting token record: %v", result.Error)
	}
	return nil
}
