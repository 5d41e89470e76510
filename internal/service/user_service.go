// Package service holds the application's business rules on top of the repositories.
package service

import (
	"context"
	"errors"
	"strings"

	"warbler/internal/models"
	"warbler/internal/observability"
	"warbler/internal/repository"
	"warbler/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

const listUsersLimit = 100

type UserService struct {
	userRepo   repository.UserRepository
	bcryptCost int
}

type SignupInput struct {
	Username string
	Email    string
	Password string
	ImageURL string
}

type UpdateProfileInput struct {
	UserID         uint
	Username       string
	Email          string
	ImageURL       string
	HeaderImageURL string
	Bio            string
	Location       string
	// Password is the current password, re-checked before any change.
	Password string
}

func NewUserService(userRepo repository.UserRepository, bcryptCost int) *UserService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &UserService{userRepo: userRepo, bcryptCost: bcryptCost}
}

// Signup validates the input, hashes the password and stores the new user.
// A taken username or email is reported as CONFLICT.
func (s *UserService) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	ctx, span := observability.StartSpan(ctx, "user_service", "signup")
	defer span.End()

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	if err := validation.ValidateUsername(in.Username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateImageURL(in.ImageURL); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username: in.Username,
		Email:    in.Email,
		Password: string(hash),
		ImageURL: in.ImageURL,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	observability.Signups.Inc()
	return user, nil
}

// Authenticate returns the user whose credentials match. Unknown usernames and
// wrong passwords both yield (nil, nil); errors mean the lookup itself failed.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	ctx, span := observability.StartSpan(ctx, "user_service", "authenticate")
	defer span.End()

	user, err := s.matchPassword(ctx, strings.TrimSpace(username), password)
	if err != nil {
		return nil, err
	}
	if user == nil {
		observability.LoginAttempts.WithLabelValues("failure").Inc()
		return nil, nil
	}
	observability.LoginAttempts.WithLabelValues("success").Inc()
	return user, nil
}

// matchPassword loads username with its hash and checks password against it.
// It does not count as a login attempt.
func (s *UserService) matchPassword(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil || user == nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// ListUsers returns users whose username contains query, or everyone for an
// empty query.
func (s *UserService) ListUsers(ctx context.Context, query string) ([]models.User, error) {
	return s.userRepo.Search(ctx, query, listUsersLimit)
}

func (s *UserService) Stats(ctx context.Context, id uint) (*models.UserStats, error) {
	return s.userRepo.Stats(ctx, id)
}

// UpdateProfile re-checks the current password and then rewrites the editable
// profile fields. Empty image URLs fall back to the defaults.
func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	ctx, span := observability.StartSpan(ctx, "user_service", "update_profile")
	defer span.End()

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	in.HeaderImageURL = strings.TrimSpace(in.HeaderImageURL)

	if err := validation.ValidateUsername(in.Username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateImageURL(in.ImageURL); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateImageURL(in.HeaderImageURL); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateProfileText("bio", in.Bio, validation.MaxBioLength); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateProfileText("location", in.Location, validation.MaxLocationLength); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	current, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	verified, err := s.matchPassword(ctx, current.Username, in.Password)
	if err != nil {
		return nil, err
	}
	if verified == nil || verified.ID != current.ID {
		return nil, models.NewUnauthorizedError("Wrong password, please try again.")
	}

	current.Username = in.Username
	current.Email = in.Email
	current.ImageURL = in.ImageURL
	current.HeaderImageURL = in.HeaderImageURL
	current.Bio = in.Bio
	current.Location = in.Location

	if err := s.userRepo.Update(ctx, current); err != nil {
		return nil, err
	}
	return current, nil
}

// DeleteAccount removes the user and everything that hangs off the account.
func (s *UserService) DeleteAccount(ctx context.Context, userID uint) error {
	ctx, span := observability.StartSpan(ctx, "user_service", "delete_account")
	defer span.End()

	return s.userRepo.DeleteCascade(ctx, userID)
}
