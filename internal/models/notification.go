package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationTypeInfo    NotificationType = "info"
	NotificationTypeSuccess NotificationType = "success"
	NotificationTypeWarning NotificationType = "warning"
	NotificationTypeError   NotificationType = "error"
)

// Notification is an in-app message shown on the dashboard.
type Notification struct {
	ID        string           `gorm:"primaryKey" json:"id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	return
}

// NotificationProvider is an external destination addressed by a shoutrrr
// URL (smtp://, slack://, teams://, generic+https:// ...).
type NotificationProvider struct {
	ID      string `gorm:"primaryKey" json:"id"`
	Name    string `json:"name" gorm:"not null"`
	URL     string `json:"url" gorm:"not null"`
	Enabled bool   `json:"enabled"`

	NotifyIncidents bool `json:"notify_incidents"`
	NotifyDocuments bool `json:"notify_documents"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *NotificationProvider) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return
}

// Wants reports whether the provider subscribes to eventType.
func (p *NotificationProvider) Wants(eventType string) bool {
	switch eventType {
	case "incident":
		return p.NotifyIncidents
	case "document":
		return p.NotifyDocuments
	default:
		return true
	}
}
