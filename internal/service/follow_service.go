package service

import (
	"context"

	"warbler/internal/models"
	"warbler/internal/observability"
	"warbler/internal/repository"
)

type FollowService struct {
	followRepo repository.FollowRepository
	userRepo   repository.UserRepository
}

func NewFollowService(followRepo repository.FollowRepository, userRepo repository.UserRepository) *FollowService {
	return &FollowService{followRepo: followRepo, userRepo: userRepo}
}

// IsFollowing reports whether userID follows otherID.
func (s *FollowService) IsFollowing(ctx context.Context, userID, otherID uint) (bool, error) {
	return s.followRepo.IsFollowing(ctx, userID, otherID)
}

// IsFollowedBy reports whether otherID follows userID.
func (s *FollowService) IsFollowedBy(ctx context.Context, userID, otherID uint) (bool, error) {
	return s.followRepo.IsFollowing(ctx, otherID, userID)
}

// Follow adds the edge follower -> target. Following twice is a no-op.
func (s *FollowService) Follow(ctx context.Context, followerID, targetID uint) error {
	ctx, span := observability.StartSpan(ctx, "follow_service", "follow")
	defer span.End()

	if err := s.checkTarget(ctx, followerID, targetID); err != nil {
		return err
	}
	if err := s.followRepo.Follow(ctx, followerID, targetID); err != nil {
		return err
	}
	observability.FollowChanges.WithLabelValues("follow").Inc()
	return nil
}

// Unfollow removes the edge follower -> target if it exists.
func (s *FollowService) Unfollow(ctx context.Context, followerID, targetID uint) error {
	ctx, span := observability.StartSpan(ctx, "follow_service", "unfollow")
	defer span.End()

	if err := s.checkTarget(ctx, followerID, targetID); err != nil {
		return err
	}
	if err := s.followRepo.Unfollow(ctx, followerID, targetID); err != nil {
		return err
	}
	observability.FollowChanges.WithLabelValues("unfollow").Inc()
	return nil
}

func (s *FollowService) Following(ctx context.Context, userID uint) ([]models.User, error) {
	return s.followRepo.Following(ctx, userID)
}

func (s *FollowService) Followers(ctx context.Context, userID uint) ([]models.User, error) {
	return s.followRepo.Followers(ctx, userID)
}

func (s *FollowService) checkTarget(ctx context.Context, followerID, targetID uint) error {
	if followerID == targetID {
		return models.NewValidationError("You cannot follow yourself")
	}
	_, err := s.userRepo.GetByID(ctx, targetID)
	return err
}
