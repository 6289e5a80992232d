package messages

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/lehmann314159/folio/internal/metrics"
	"github.com/lehmann314159/folio/internal/models"
	"github.com/lehmann314159/folio/internal/validate"
)

type Store interface {
	CreateMessage(ctx context.Context, m *models.Message) error
	ListMessages(ctx context.Context) ([]models.Message, error)
}

type Publisher interface {
	Publish(ctx context.Context, snapshot []models.Message) error
}

// Service stores guestbook messages and announces every change as a full
// snapshot.
type Service struct {
	store     Store
	publisher Publisher
	validator *validate.Validator
	policy    *bluemonday.Policy
	now       func() time.Time
}

func NewService(store Store, publisher Publisher) *Service {
	return &Service{
		store:     store,
		publisher: publisher,
		validator: validate.New(),
		policy:    bluemonday.StrictPolicy(),
		now:       time.Now,
	}
}

// Post validates and stores in. Content is stripped of markup before it is
// validated and kept as plain text, so entities are decoded again. A failed publish is logged; the stored message is still
// returned.
func (s *Service) Post(ctx context.Context, in models.MessageInput) (*models.Message, error) {
	in.UserID = strings.TrimSpace(in.UserID)
	in.UserName = strings.TrimSpace(in.UserName)
	in.Content = strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(in.Content)))

	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}

	m := &models.Message{
		ID:          uuid.NewString(),
		ClientToken: in.ClientToken,
		UserID:      in.UserID,
		UserName:    in.UserName,
		UserEmail:   in.UserEmail,
		UserAvatar:  in.UserAvatar,
		Content:     in.Content,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.store.CreateMessage(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to store message: %w", err)
	}
	metrics.MessagesPosted.Inc()

	if err := s.announce(ctx); err != nil {
		metrics.SnapshotPublishErrors.Inc()
		slog.Warn("failed to publish message snapshot", "message_id", m.ID, "error", err)
	}
	return m, nil
}

func (s *Service) List(ctx context.Context) ([]models.Message, error) {
	msgs, err := s.store.ListMessages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return msgs, nil
}

// Write lets a Board in the same process write straight to the service.
func (s *Service) Write(ctx context.Context, in models.MessageInput) (string, error) {
	m, err := s.Post(ctx, in)
	if err != nil {
		return "", err
	}
	return m.ID, nil
}

func (s *Service) announce(ctx context.Context) error {
	if s.publisher == nil {
		return nil
	}
	snapshot, err := s.List(ctx)
	if err != nil {
		return err
	}
	return s.publisher.Publish(ctx, snapshot)
}
