package service

import (
	"context"

	"warbler/internal/models"
	"warbler/internal/observability"
	"warbler/internal/repository"
	"warbler/internal/validation"
)

// LikeOutcome is the result of toggling a like.
type LikeOutcome int

const (
	LikeIgnored LikeOutcome = iota
	LikeAdded
	LikeRemoved
)

func (o LikeOutcome) String() string {
	switch o {
	case LikeAdded:
		return "added"
	case LikeRemoved:
		return "removed"
	default:
		return "ignored"
	}
}

type MessageService struct {
	messageRepo repository.MessageRepository
	likeRepo    repository.LikeRepository
}

func NewMessageService(messageRepo repository.MessageRepository, likeRepo repository.LikeRepository) *MessageService {
	return &MessageService{messageRepo: messageRepo, likeRepo: likeRepo}
}

func (s *MessageService) CreateMessage(ctx context.Context, userID uint, text string) (*models.Message, error) {
	ctx, span := observability.StartSpan(ctx, "message_service", "create")
	defer span.End()

	if err := validation.ValidateMessageText(text); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	msg := &models.Message{Text: text, UserID: userID}
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, err
	}

	observability.MessagesCreated.Inc()
	return msg, nil
}

func (s *MessageService) GetMessage(ctx context.Context, id uint) (*models.Message, error) {
	return s.messageRepo.GetByID(ctx, id)
}

// DeleteMessage removes a message on behalf of its author. Anyone else gets
// UNAUTHORIZED.
func (s *MessageService) DeleteMessage(ctx context.Context, userID, messageID uint) error {
	ctx, span := observability.StartSpan(ctx, "message_service", "delete")
	defer span.End()

	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.UserID != userID {
		return models.NewUnauthorizedError("Access unauthorized.")
	}
	return s.messageRepo.Delete(ctx, messageID)
}

// Timeline lists the user's messages and those of the users they follow,
// newest first.
func (s *MessageService) Timeline(ctx context.Context, userID uint, limit int) ([]models.Message, error) {
	return s.messageRepo.Timeline(ctx, userID, limit)
}

func (s *MessageService) UserMessages(ctx context.Context, userID uint) ([]models.Message, error) {
	return s.messageRepo.ListByUser(ctx, userID, repository.DefaultTimelineLimit)
}

func (s *MessageService) LikedMessages(ctx context.Context, userID uint) ([]models.Message, error) {
	return s.messageRepo.LikedBy(ctx, userID, repository.DefaultTimelineLimit)
}

// LikedIDs returns the subset of msgs liked by userID as a set.
func (s *MessageService) LikedIDs(ctx context.Context, userID uint, msgs []models.Message) (map[uint]bool, error) {
	liked := make(map[uint]bool)
	if userID == 0 || len(msgs) == 0 {
		return liked, nil
	}

	ids := make([]uint, 0, len(msgs))
	for i := range msgs {
		ids = append(ids, msgs[i].ID)
	}

	found, err := s.likeRepo.LikedMessageIDs(ctx, userID, ids)
	if err != nil {
		return nil, err
	}
	for _, id := range found {
		liked[id] = true
	}
	return liked, nil
}

// ToggleLike likes a message, or removes an existing like. Authors cannot like
// their own messages; that case changes nothing and reports LikeIgnored.
func (s *MessageService) ToggleLike(ctx context.Context, userID, messageID uint) (LikeOutcome, error) {
	ctx, span := observability.StartSpan(ctx, "message_service", "toggle_like")
	defer span.End()

	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return LikeIgnored, err
	}

	outcome := LikeIgnored
	if msg.UserID != userID {
		liked, err := s.likeRepo.IsLiked(ctx, userID, messageID)
		if err != nil {
			return LikeIgnored, err
		}
		if liked {
			err = s.likeRepo.Unlike(ctx, userID, messageID)
			outcome = LikeRemoved
		} else {
			err = s.likeRepo.Like(ctx, userID, messageID)
			outcome = LikeAdded
		}
		if err != nil {
			return LikeIgnored, err
		}
	}

	observability.LikeToggles.WithLabelValues(outcome.String()).Inc()
	return outcome, nil
}
