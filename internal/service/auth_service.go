package service

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/oakbyte/pulse-api/internal/dto"
	"github.com/oakbyte/pulse-api/internal/logging"
	"github.com/oakbyte/pulse-api/internal/models"
	"github.com/oakbyte/pulse-api/internal/repository"
)

var (
	// ErrInvalidCredentials covers unknown emails and wrong passwords alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailTaken indicates a registration against an existing email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrAccountInactive indicates a login against a non-active account.
	ErrAccountInactive = errors.New("account is not active")
)

// AuthService handles registration, login and logout for regular users.
type AuthService interface {
	Register(ctx context.Context, req dto.RegisterRequest, meta RequestMeta) (dto.AuthResponse, error)
	Login(ctx context.Context, req dto.LoginRequest, meta RequestMeta) (dto.AuthResponse, error)
	Logout(ctx context.Context, userID string, meta RequestMeta) error
}

type authService struct {
	users      repository.UserRepository
	activity   *ActivityLogger
	observer   *ActivityObserver
	fileLogger *logging.CentralizedLogger
	jwtSecret  string
	jwtExpiry  time.Duration
	bcryptCost int
	logger     zerolog.Logger
}

// NewAuthService wires the user auth flow. The centralized logger may be nil;
// it receives security-channel entries for failed login attempts.
func NewAuthService(users repository.UserRepository, activity *ActivityLogger, observer *ActivityObserver, fileLogger *logging.CentralizedLogger, jwtSecret string, jwtExpiry time.Duration, bcryptCost int, logger zerolog.Logger) AuthService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}

	return &authService{
		users:      users,
		activity:   activity,
		observer:   observer,
		fileLogger: fileLogger,
		jwtSecret:  jwtSecret,
		jwtExpiry:  jwtExpiry,
		bcryptCost: bcryptCost,
		logger:     logger.With().Str("component", "auth_service").Logger(),
	}
}

func (s *authService) Register(ctx context.Context, req dto.RegisterRequest, meta RequestMeta) (dto.AuthResponse, error) {
	if _, err := s.users.FindByEmail(ctx, req.Email); err == nil {
		return dto.AuthResponse{}, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.AuthResponse{}, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return dto.AuthResponse{}, err
	}

	user := models.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: string(hashed),
		Role:     models.RoleUser,
		Status:   "active",
	}
	if err := s.users.Create(ctx, &user); err != nil {
		return dto.AuthResponse{}, err
	}

	if _, err := s.observer.EntityCreated(ctx, ObserverInput{
		Actor:   user.ID,
		Request: meta,
		Subject: &user,
	}); err != nil {
		s.logger.Warn().Err(err).Str("user_id", user.ID).Msg("failed to record registration activity")
	}

	return s.issueToken(ctx, user, meta, false)
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest, meta RequestMeta) (dto.AuthResponse, error) {
	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.recordFailedLogin(ctx, req.Email, meta, "unknown_email")
			return dto.AuthResponse{}, ErrInvalidCredentials
		}
		return dto.AuthResponse{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		s.recordFailedLogin(ctx, req.Email, meta, "wrong_password")
		return dto.AuthResponse{}, ErrInvalidCredentials
	}

	if user.Status != "active" {
		s.recordFailedLogin(ctx, req.Email, meta, "inactive_account")
		return dto.AuthResponse{}, ErrAccountInactive
	}

	now := time.Now().UTC()
	user.LastLoginAt = &now
	if err := s.users.Update(ctx, user); err != nil {
		s.logger.Warn().Err(err).Str("user_id", user.ID).Msg("failed to record last login timestamp")
	}

	return s.issueToken(ctx, *user, meta, true)
}

func (s *authService) Logout(ctx context.Context, userID string, meta RequestMeta) error {
	if _, err := s.activity.NewEntry().WithRequest(meta).Logout(ctx, userID, nil); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to record logout activity")
		return err
	}
	return nil
}

func (s *authService) issueToken(ctx context.Context, user models.User, meta RequestMeta, recordLogin bool) (dto.AuthResponse, error) {
	expiresAt := time.Now().UTC().Add(s.jwtExpiry)
	claims := jwt.MapClaims{
		"sub":  user.ID,
		"role": user.Role,
		"exp":  expiresAt.Unix(),
		"iat":  time.Now().UTC().Unix(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.jwtSecret))
	if err != nil {
		return dto.AuthResponse{}, err
	}

	if recordLogin {
		if _, err := s.activity.NewEntry().WithRequest(meta).Login(ctx, user.ID, nil); err != nil {
			s.logger.Warn().Err(err).Str("user_id", user.ID).Msg("failed to record login activity")
		}
	}

	return dto.AuthResponse{
		User:        dto.NewUserResponse(user),
		AccessToken: token,
		ExpiresAt:   expiresAt,
	}, nil
}

func (s *authService) recordFailedLogin(ctx context.Context, email string, meta RequestMeta, reason string) {
	properties := map[string]interface{}{"reason": reason}
	if _, err := s.activity.NewEntry().WithRequest(meta).FailedLogin(ctx, email, properties); err != nil {
		s.logger.Warn().Err(err).Msg("failed to record failed login activity")
	}

	if s.fileLogger != nil {
		s.fileLogger.Security("Failed login attempt", map[string]interface{}{
			"email":      email,
			"reason":     reason,
			"ip_address": meta.IPAddress,
			"request_id": meta.RequestID,
		})
	}
}
