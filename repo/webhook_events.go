package repo

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// WebhookEvent records one entity change notification delivered by the
// QuickBooks webhook. Events are persisted as received; processing
// beyond that is out of scope for the connector.
type WebhookEvent struct {
	gorm.Model

	RealmID     string     `json:"realm_id" gorm:"not null;type:varchar(64);index"`
	EntityName  string     `json:"entity_name" gorm:"not null;type:varchar(50)"` // Invoice, Bill, Vendor, ...
	EntityID    string     `json:"entity_id" gorm:"not null;type:varchar(64)"`
	Operation   string     `json:"operation" gorm:"not null;type:varchar(50)"` // Create, Update, Delete, Merge, Void
	EventTime   time.Time  `json:"event_time" gorm:"not null"`
	Status      string     `json:"status" gorm:"not null;type:varchar(50);default:'received'"` // received, processed, failed
	ErrorMsg    string     `json:"error_msg" gorm:"type:text"`
	ProcessedAt *time.Time `json:"processed_at" gorm:"default:null"`
}

// WebhookEventRepository handles database operations for webhook events
type WebhookEventRepository struct {
	db *gorm.DB
}

// NewWebhookEventRepository creates a new webhook event repository
func NewWebhookEventRepository(db *gorm.DB) *WebhookEventRepository {
	return &WebhookEventRepository{db: db}
}

// CreateWebhookEvent persists one received entity event.
func (r *WebhookEventRepository) CreateWebhookEvent(realmID, entityName, entityID, operation string, eventTime time.Time) (*WebhookEvent, error) {
	event := WebhookEvent{
		RealmID:    realmID,
		EntityName: entityName,
		EntityID:   entityID,
		Operation:  operation,
		EventTime:  eventTime,
		Status:     "received",
	}

	result := r.db.Create(&event)
	if result.Error != nil {
		return nil, fmt.Errorf("error creating webhook event: %v", result.Error)
	}

	return &event, nil
}

// UpdateEventStatus updates the status of a webhook event
func (r *WebhookEventRepository) UpdateEventStatus(eventID uint, status string, errorMsg string) error {
	updates := map[string]interface{}{
		"status": status,
	}

	if errorMsg != "" {
		updates["error_msg"] = errorMsg
	}

	if status == "processed" {
		now := time.Now()
		updates["processed_at"] = &now
	}

	result := r.db.Model(&WebhookEvent{}).Where("id = ?", eventID).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("error updating webhook event status: %v", result.Error)
	}

	return nil
}

// GetWebhookEvents retrieves webhook events with optional filters
func (r *WebhookEventRepository) GetWebhookEvents(limit int, offset int, entityName string, status string) ([]WebhookEvent, error) {
	var events []WebhookEvent
	query := r.db.Order("created_at DESC").Limit(limit).Offset(offset)

	if entityName != "" {
		query = query.Where("entity_name = ?", entityName)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}

	result := query.Find(&events)
	if result.Error != nil {
		return nil, fmt.Errorf("error retrieving webhook events: %v", result.Error)
	}

	return events, nil
}
