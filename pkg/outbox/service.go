package outbox

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/migratemate/retention-backend/pkg/db/models"
)

// Emitter is what domain services depend on to record events.
type Emitter interface {
	Emit(tx *gorm.DB, eventType string, userID uuid.UUID, data any) error
}

type Service struct {
	repo  *Repository
	topic string
}

func NewService(repo *Repository, topic string) *Service {
	return &Service{repo: repo, topic: topic}
}

// Emit stages an event on the retention topic inside the caller's transaction.
func (s *Service) Emit(tx *gorm.DB, eventType string, userID uuid.UUID, data any) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	payload, err := NewEnvelope(userID, data)
	if err != nil {
		return err
	}
	return s.repo.Insert(tx, models.OutboxEvent{
		Topic:     s.topic,
		EventType: eventType,
		Payload:   payload,
	})
}
