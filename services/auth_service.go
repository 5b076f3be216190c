package services

import (
	"context"
	"errors"

	"commerce-api/apperr"
	"commerce-api/middleware"
	"commerce-api/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UserNotifier is the notification slice the auth flow needs.
type UserNotifier interface {
	SendWelcome(ctx context.Context, user *models.User)
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,strongpassword"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// AuthService handles registration, login, and profile reads.
type AuthService struct {
	db       *gorm.DB
	tokens   *middleware.TokenService
	notifier UserNotifier
	logger   *zap.Logger
}

func NewAuthService(db *gorm.DB, tokens *middleware.TokenService, notifier UserNotifier, logger *zap.Logger) *AuthService {
	return &AuthService{db: db, tokens: tokens, notifier: notifier, logger: logger}
}

// Register creates the user, hashing the password, and sends a best-effort
// welcome email after commit.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	var user models.User

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", req.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperr.WithMessage(apperr.ErrConflict, "Email already registered")
		}

		user = models.User{
			Name:  req.Name,
			Email: req.Email,
			Role:  models.RoleCustomer,
		}
		if err := user.SetPassword(req.Password); err != nil {
			return err
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		return nil, apperr.From(err)
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrInternalServer, err)
	}

	s.logger.Info("User registered", zap.Uint("user_id", user.ID))
	if s.notifier != nil {
		s.notifier.SendWelcome(ctx, &user)
	}
	return &AuthResult{Token: token, User: &user}, nil
}

// Login verifies credentials and issues a token. Unknown email and wrong
// password return the same message so the endpoint does not leak which
// accounts exist.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", req.Email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.WithMessage(apperr.ErrUnauthorized, "Invalid credentials")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrInternalServer, err)
	}

	if !user.IsActive {
		return nil, apperr.WithMessage(apperr.ErrUnauthorized, "Account is disabled")
	}
	if !user.ComparePassword(req.Password) {
		return nil, apperr.WithMessage(apperr.ErrUnauthorized, "Invalid credentials")
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrInternalServer, err)
	}
	return &AuthResult{Token: token, User: &user}, nil
}

// Profile returns the authenticated user with addresses.
func (s *AuthService) Profile(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Preload("Addresses", "is_active = ?", true).
		First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.WithMessage(apperr.ErrNotFound, "User not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrInternalServer, err)
	}
	return &user, nil
}
