package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/containrrr/shoutrrr"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/Czechuuuu/szbi/internal/logger"
	"github.com/Czechuuuu/szbi/internal/models"
	"github.com/Czechuuuu/szbi/internal/util"
)

// Event types providers can subscribe to.
const (
	EventIncident = "incident"
	EventDocument = "document"
	EventTest     = "test"
)

const (
	maxInFlightSends = 8
	sendTimeout      = 30 * time.Second
)

var (
	ErrDeliveryTimeout = errors.New("notification delivery timed out")
	ErrDeliveryBusy    = errors.New("too many notification deliveries in flight")
)

// Notifier delivers a user-facing event. Delivery is best-effort.
type Notifier interface {
	Notify(eventType string, nType models.NotificationType, title, message string)
}

// ProviderInput is the editable part of a NotificationProvider.
type ProviderInput struct {
	Name            string `json:"name" binding:"required"`
	URL             string `json:"url" binding:"required"`
	Enabled         bool   `json:"enabled"`
	NotifyIncidents bool   `json:"notify_incidents"`
	NotifyDocuments bool   `json:"notify_documents"`
}

// NotificationService stores in-app notifications and delivers events to
// shoutrrr providers. At most cap(slots) deliveries run at once; a slot is
// held until the underlying send returns, even after the caller gave up
// waiting for it.
type NotificationService struct {
	DB      *gorm.DB
	send    func(url, message string) error
	slots   chan struct{}
	timeout time.Duration
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{
		DB: db,
		send: func(url, message string) error {
			return shoutrrr.Send(url, message)
		},
		slots:   make(chan struct{}, maxInFlightSends),
		timeout: sendTimeout,
	}
}

// deliver sends message to url and waits at most s.timeout for the result.
func (s *NotificationService) deliver(url, message string) error {
	select {
	case s.slots <- struct{}{}:
	default:
		return ErrDeliveryBusy
	}
	done := make(chan error, 1)
	go func() {
		defer func() { <-s.slots }()
		done <- s.send(url, message)
	}()
	select {
	case err := <-done:
		return err
	case <-time.After(s.timeout):
		return ErrDeliveryTimeout
	}
}

// Internal Notifications (DB)

func (s *NotificationService) Create(nType models.NotificationType, title, message string) (*models.Notification, error) {
	notification := &models.Notification{
		Type:    nType,
		Title:   title,
		Message: message,
		Read:    false,
	}
	result := s.DB.Create(notification)
	return notification, result.Error
}

func (s *NotificationService) List(unreadOnly bool) ([]models.Notification, error) {
	var notifications []models.Notification
	query := s.DB.Order("created_at desc")
	if unreadOnly {
		query = query.Where("read = ?", false)
	}
	result := query.Find(&notifications)
	return notifications, result.Error
}

func (s *NotificationService) MarkAsRead(id string) error {
	res := s.DB.Model(&models.Notification{}).Where("id = ?", id).Update("read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (s *NotificationService) MarkAllAsRead() error {
	return s.DB.Model(&models.Notification{}).Where("read = ?", false).Update("read", true).Error
}

// Notify stores an in-app notification and fans the event out to the
// subscribed external providers.
func (s *NotificationService) Notify(eventType string, nType models.NotificationType, title, message string) {
	if _, err := s.Create(nType, title, message); err != nil {
		logger.WithFields(logrus.Fields{"event": eventType, "error": err.Error()}).Warn("failed to store notification")
	}
	s.SendExternal(eventType, title, message)
}

// External Notifications (Shoutrrr)

// SendExternal delivers to every enabled provider that wants eventType. Each
// delivery runs in its own goroutine and failures are only logged.
// Deliveries beyond the in-flight limit are dropped.
func (s *NotificationService) SendExternal(eventType, title, message string) {
	var providers []models.NotificationProvider
	if err := s.DB.Where("enabled = ?", true).Find(&providers).Error; err != nil {
		logger.WithFields(logrus.Fields{"error": err.Error()}).Warn("failed to fetch notification providers")
		return
	}

	// Use newline for better formatting in chat apps
	msg := fmt.Sprintf("%s\n\n%s", title, message)
	for _, provider := range providers {
		if !provider.Wants(eventType) {
			continue
		}
		go func(p models.NotificationProvider) {
			if err := s.deliver(p.URL, msg); err != nil {
				logger.WithFields(logrus.Fields{
					"provider": util.SanitizeForLog(p.Name),
					"event":    eventType,
					"error":    err.Error(),
				}).Warn("failed to send notification")
			}
		}(provider)
	}
}

func (s *NotificationService) TestProvider(id string) error {
	p, err := s.GetProvider(id)
	if err != nil {
		return err
	}
	return s.deliver(p.URL, "Powiadomienie testowe z SZBI")
}

// validateProviderURL lets shoutrrr parse the URL without sending anything.
func validateProviderURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fieldError("url", "To pole jest wymagane.")
	}
	if _, err := shoutrrr.CreateSender(raw); err != nil {
		return fieldError("url", fmt.Sprintf("Nieprawidłowy adres usługi powiadomień: %v", err))
	}
	return nil
}

// Provider Management

func (s *NotificationService) ListProviders() ([]models.NotificationProvider, error) {
	var providers []models.NotificationProvider
	result := s.DB.Order("name").Find(&providers)
	return providers, result.Error
}

func (s *NotificationService) GetProvider(id string) (*models.NotificationProvider, error) {
	var p models.NotificationProvider
	if err := s.DB.First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err, ErrProviderNotFound)
	}
	return &p, nil
}

func (s *NotificationService) CreateProvider(in ProviderInput) (*models.NotificationProvider, error) {
	if err := validateProviderURL(in.URL); err != nil {
		return nil, err
	}
	p := &models.NotificationProvider{
		Name:            strings.TrimSpace(in.Name),
		URL:             strings.TrimSpace(in.URL),
		Enabled:         in.Enabled,
		NotifyIncidents: in.NotifyIncidents,
		NotifyDocuments: in.NotifyDocuments,
	}
	if err := s.DB.Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

func (s *NotificationService) UpdateProvider(id string, in ProviderInput) (*models.NotificationProvider, error) {
	if err := validateProviderURL(in.URL); err != nil {
		return nil, err
	}
	p, err := s.GetProvider(id)
	if err != nil {
		return nil, err
	}
	p.Name = strings.TrimSpace(in.Name)
	p.URL = strings.TrimSpace(in.URL)
	p.Enabled = in.Enabled
	p.NotifyIncidents = in.NotifyIncidents
	p.NotifyDocuments = in.NotifyDocuments
	if err := s.DB.Save(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

func (s *NotificationService) DeleteProvider(id string) error {
	res := s.DB.Delete(&models.NotificationProvider{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrProviderNotFound
	}
	return nil
}
