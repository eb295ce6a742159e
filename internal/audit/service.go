package audit

import (
	"log"

	jsoniter "github.com/json-iterator/go"
	"gorm.io/gorm"

	"github.com/mrlokans/librarian/internal/database/audit"
	"github.com/mrlokans/librarian/internal/entities"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Service provides high-level audit logging functionality.
//
// Inventory events are written through the caller's transaction so a
// rolled-back mutation never leaves an audit trail behind.
type Service struct {
	repo *audit.Repository
}

// NewService creates a new audit service.
func NewService(repo *audit.Repository) *Service {
	return &Service{repo: repo}
}

// Log records a generic audit event.
func (s *Service) Log(event *entities.AuditEvent) error {
	return s.repo.LogEvent(event)
}

// LogLoan records a loan lifecycle step inside tx.
func (s *Service) LogLoan(tx *gorm.DB, actorID, action string, loan *entities.Loan) error {
	event := &entities.AuditEvent{
		UserID:      actorID,
		EventType:   entities.AuditEventLoan,
		Action:      action,
		Description: "Loan " + loan.ID + " for book " + loan.BookID,
		EntityType:  "loan",
		EntityID:    loan.ID,
		Metadata: encode(map[string]any{
			"book_id": loan.BookID,
			"user_id": loan.UserID,
			"status":  loan.Status,
		}),
		Status: entities.AuditStatusSuccess,
	}
	return s.repo.WithTx(tx).LogEvent(event)
}

// LogDelete records a deletion inside tx.
func (s *Service) LogDelete(tx *gorm.DB, actorID, entityType, entityID, entityName string) error {
	event := &entities.AuditEvent{
		UserID:      actorID,
		EventType:   entities.AuditEventDelete,
		Action:      entityType + "_delete",
		Description: truncate("Deleted "+entityType+": "+entityName, 500),
		EntityType:  entityType,
		EntityID:    entityID,
		Status:      entities.AuditStatusSuccess,
	}
	return s.repo.WithTx(tx).LogEvent(event)
}

// LogAuth records an authentication event. Failures are logged and
// swallowed; a broken audit table must not block sign-in.
func (s *Service) LogAuth(userID, action, ipAddr string, success bool) {
	event := &entities.AuditEvent{
		UserID:     userID,
		EventType:  entities.AuditEventAuth,
		Action:     action,
		EntityType: "user",
		EntityID:   userID,
		IPAddress:  truncate(ipAddr, 45),
		Status:     entities.AuditStatusSuccess,
	}
	if !success {
		event.Status = entities.AuditStatusFailed
	}

	if err := s.repo.LogEvent(event); err != nil {
		log.Printf("Failed to log audit event %s: %v", action, err)
	}
}

// GetEvents retrieves paginated audit events, optionally filtered by type.
func (s *Service) GetEvents(eventType entities.AuditEventType, limit, offset int) ([]entities.AuditEvent, int64, error) {
	return s.repo.GetEvents(eventType, limit, offset)
}

// History returns every event recorded for one entity.
func (s *Service) History(entityType, entityID string) ([]entities.AuditEvent, error) {
	return s.repo.GetEventsForEntity(entityType, entityID)
}

func encode(metadata map[string]any) string {
	b, err := json.Marshal(metadata)
	if err != nil {
		return ""
	}
	return string(b)
}

// truncate shortens a string to max length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
