package services

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-printshop-assistant/internal/domain"
	"github.com/tbourn/go-printshop-assistant/internal/repo"
)

// TranscriptService reads the message log of a session.
type TranscriptService struct {
	DB *gorm.DB
}

func NewTranscriptService(db *gorm.DB) *TranscriptService {
	return &TranscriptService{DB: db}
}

func (s *TranscriptService) sessionID(ctx context.Context, key string) (string, error) {
	sess, err := repo.GetSessionByKey(ctx, s.DB, key)
	if errors.Is(err, repo.ErrNotFound) {
		return "", ErrSessionNotFound
	}
	if err != nil {
		return "", err
	}
	return sess.ID, nil
}

// ListPage returns one page of a session's transcript in sequence order,
// plus the total number of lines.
func (s *TranscriptService) ListPage(ctx context.Context, sessionKey string, page, pageSize int) ([]domain.ChatMessage, int64, error) {
	tr := otel.Tracer("services/TranscriptService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("session.id", sessionKey),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	id, err := s.sessionID(ctx, sessionKey)
	if err != nil {
		return nil, 0, err
	}
	total, err := repo.CountMessages(ctx, s.DB, id)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.ChatMessage{}, 0, nil
	}
	items, err := repo.ListMessagesPage(ctx, s.DB, id, (page-1)*pageSize, pageSize)
	return items, total, err
}

// Stats returns the transcript size and the newest update time, used for
// conditional GETs.
func (s *TranscriptService) Stats(ctx context.Context, sessionKey string) (int64, *time.Time, error) {
	id, err := s.sessionID(ctx, sessionKey)
	if err != nil {
		return 0, nil, err
	}
	return repo.MessagesStats(ctx, s.DB, id)
}
