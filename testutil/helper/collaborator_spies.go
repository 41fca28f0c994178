package helper

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/book-lending-engine-go/lending"
)

// SpyNotification is a captured NotificationGateway call.
type SpyNotification struct {
	UserID  uuid.UUID
	Message string
}

// NotificationGatewaySpy captures notifications and optionally fails them.
type NotificationGatewaySpy struct {
	notifications []SpyNotification
	failWith      error
	mu            sync.Mutex
}

// NewNotificationGatewaySpy creates a NotificationGatewaySpy. A non-nil failWith is returned by every call.
func NewNotificationGatewaySpy(failWith error) *NotificationGatewaySpy {
	return &NotificationGatewaySpy{failWith: failWith}
}

// Notify implements lending.NotificationGateway.
func (s *NotificationGatewaySpy) Notify(_ context.Context, userID uuid.UUID, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notifications = append(s.notifications, SpyNotification{UserID: userID, Message: message})

	return s.failWith
}

// Notifications returns a copy of all captured notifications.
func (s *NotificationGatewaySpy) Notifications() []SpyNotification {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]SpyNotification(nil), s.notifications...)
}

// SpyHistoryEntry is a captured HistoryRecorder call.
type SpyHistoryEntry struct {
	UserID        uuid.UUID
	EventType     lending.HistoryEventType
	LoanID        *uuid.UUID
	ReservationID *uuid.UUID
}

// HistoryRecorderSpy captures history entries.
type HistoryRecorderSpy struct {
	entries  []SpyHistoryEntry
	failWith error
	mu       sync.Mutex
}

// NewHistoryRecorderSpy creates a HistoryRecorderSpy. A non-nil failWith is returned by every call.
func NewHistoryRecorderSpy(failWith error) *HistoryRecorderSpy {
	return &HistoryRecorderSpy{failWith: failWith}
}

// Record implements lending.HistoryRecorder.
func (s *HistoryRecorderSpy) Record(
	_ context.Context,
	userID uuid.UUID,
	eventType lending.HistoryEventType,
	loanID *uuid.UUID,
	reservationID *uuid.UUID,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, SpyHistoryEntry{
		UserID:        userID,
		EventType:     eventType,
		LoanID:        loanID,
		ReservationID: reservationID,
	})

	return s.failWith
}

// Entries returns a copy of all captured entries.
func (s *HistoryRecorderSpy) Entries() []SpyHistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]SpyHistoryEntry(nil), s.entries...)
}

// EntriesOfType returns the captured entries of one event type.
func (s *HistoryRecorderSpy) EntriesOfType(eventType lending.HistoryEventType) []SpyHistoryEntry {
	var matching []SpyHistoryEntry
	for _, entry := range s.Entries() {
		if entry.EventType == eventType {
			matching = append(matching, entry)
		}
	}

	return matching
}

// SpyAuditEntry is a captured ActivityAuditLog call.
type SpyAuditEntry struct {
	UserID  uuid.UUID
	Action  lending.AuditAction
	Details map[string]string
}

// AuditLogSpy captures audit entries.
type AuditLogSpy struct {
	entries  []SpyAuditEntry
	failWith error
	mu       sync.Mutex
}

// NewAuditLogSpy creates an AuditLogSpy. A non-nil failWith is returned by every call.
func NewAuditLogSpy(failWith error) *AuditLogSpy {
	return &AuditLogSpy{failWith: failWith}
}

// Record implements lending.ActivityAuditLog.
func (s *AuditLogSpy) Record(_ context.Context, userID uuid.UUID, action lending.AuditAction, details map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, SpyAuditEntry{UserID: userID, Action: action, Details: copyLabels(details)})

	return s.failWith
}

// Entries returns a copy of all captured entries.
func (s *AuditLogSpy) Entries() []SpyAuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]SpyAuditEntry(nil), s.entries...)
}

// HasAction checks if an entry with the given action was captured.
func (s *AuditLogSpy) HasAction(action lending.AuditAction) bool {
	for _, entry := range s.Entries() {
		if entry.Action == action {
			return true
		}
	}

	return false
}
