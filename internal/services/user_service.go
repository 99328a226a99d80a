package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mansoora/rehaish/internal/logger"
	"github.com/mansoora/rehaish/internal/models"
	"github.com/mansoora/rehaish/internal/repository"
)

// Service-level errors
var (
	ErrInvalidUser        = errors.New("invalid user")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// RegisterInput carries the fields of a new account registration.
type RegisterInput struct {
	FullName string
	Email    string
	Phone    string
	Password string
	UserType string
}

// UserService defines the interface for account business logic operations.
type UserService interface {
	// Register creates a new account. Returns ErrEmailTaken when the email
	// is already registered; the store is left unchanged in that case.
	Register(ctx context.Context, input RegisterInput) (models.User, error)

	// Login verifies the credentials and returns the account together with
	// a signed bearer token for the owner routes.
	Login(ctx context.Context, email, password string) (models.User, string, error)
}

// userService is the concrete implementation of UserService.
type userService struct {
	repo     repository.UserRepository
	log      *logger.Logger
	secret   []byte
	tokenTTL time.Duration
}

// NewUserService creates a new instance of UserService. The secret signs the
// HS256 login tokens.
func NewUserService(repo repository.UserRepository, log *logger.Logger, secret string, tokenTTL time.Duration) UserService {
	return &userService{
		repo:     repo,
		log:      log,
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
	}
}

func (s *userService) Register(ctx context.Context, input RegisterInput) (models.User, error) {
	if err := validateRegister(input); err != nil {
		s.log.Warn("Rejected registration", map[string]interface{}{
			"email":  input.Email,
			"reason": err.Error(),
		})
		return models.User{}, err
	}

	user, err := s.repo.Create(ctx, repository.NewUser{
		FullName: strings.TrimSpace(input.FullName),
		Email:    strings.TrimSpace(input.Email),
		Phone:    input.Phone,
		Password: input.Password,
		UserType: input.UserType,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			s.log.Warn("Registration conflict", map[string]interface{}{
				"email": input.Email,
			})
			return models.User{}, ErrEmailTaken
		}
		s.log.Error("Failed to create user", err, map[string]interface{}{
			"email": input.Email,
		})
		return models.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	s.log.Info("User registered", map[string]interface{}{
		"user_id":   user.ID,
		"email":     user.Email,
		"user_type": user.UserType,
	})
	return user, nil
}

func (s *userService) Login(ctx context.Context, email, password string) (models.User, string, error) {
	user, err := s.repo.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		s.log.Error("Failed to look up user", err, map[string]interface{}{
			"email": email,
		})
		return models.User{}, "", fmt.Errorf("failed to look up user: %w", err)
	}
	// Passwords are stored verbatim in the legacy tables, so this is a plain
	// comparison. Hashing is a known gap outside this layer's scope.
	if user == nil || user.Password != password {
		s.log.Warn("Failed login attempt", map[string]interface{}{
			"email": email,
		})
		return models.User{}, "", ErrInvalidCredentials
	}

	token, err := s.issueToken(*user)
	if err != nil {
		s.log.Error("Failed to sign token", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return models.User{}, "", fmt.Errorf("failed to sign token: %w", err)
	}

	s.log.Info("User logged in", map[string]interface{}{
		"user_id":   user.ID,
		"user_type": user.UserType,
	})
	return *user, token, nil
}

func (s *userService) issueToken(user models.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":       fmt.Sprintf("%d", user.ID),
		"email":     user.Email,
		"user_type": user.UserType,
		"iat":       now.Unix(),
		"exp":       now.Add(s.tokenTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func validateRegister(input RegisterInput) error {
	if strings.TrimSpace(input.FullName) == "" {
		return fmt.Errorf("%w: full_name is required", ErrInvalidUser)
	}
	if strings.TrimSpace(input.Email) == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidUser)
	}
	if input.Phone == "" {
		return fmt.Errorf("%w: phone is required", ErrInvalidUser)
	}
	if input.Password == "" {
		return fmt.Errorf("%w: password is required", ErrInvalidUser)
	}
	if input.UserType == "" {
		return fmt.Errorf("%w: user_type is required", ErrInvalidUser)
	}
	return nil
}
