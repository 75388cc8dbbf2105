package service

import (
	"context"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/oakbyte/pulse-api/internal/dto"
	"github.com/oakbyte/pulse-api/internal/repository"
)

// UserService manages end-user accounts. Every mutation is reported to the
// activity observer with the acting principal passed in explicitly.
type UserService interface {
	Get(ctx context.Context, id string) (dto.UserResponse, error)
	List(ctx context.Context, req dto.UserListRequest) (dto.UserListResponse, error)
	UpdateProfile(ctx context.Context, actorID, userID string, req dto.UserUpdateRequest, meta RequestMeta) (dto.UserResponse, error)
	AdminUpdate(ctx context.Context, actorID, userID string, req dto.AdminUserUpdateRequest, meta RequestMeta) (dto.UserResponse, error)
	Delete(ctx context.Context, actorID, userID string, meta RequestMeta) error
	Restore(ctx context.Context, actorID, userID string, meta RequestMeta) (dto.UserResponse, error)
}

type userService struct {
	users    repository.UserRepository
	observer *ActivityObserver
	logger   zerolog.Logger
}

// NewUserService constructs the user account service.
func NewUserService(users repository.UserRepository, observer *ActivityObserver, logger zerolog.Logger) UserService {
	return &userService{
		users:    users,
		observer: observer,
		logger:   logger.With().Str("component", "user_service").Logger(),
	}
}

func (s *userService) Get(ctx context.Context, id string) (dto.UserResponse, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return dto.UserResponse{}, err
	}
	return dto.NewUserResponse(*user), nil
}

func (s *userService) List(ctx context.Context, req dto.UserListRequest) (dto.UserListResponse, error) {
	filter := repository.UserFilter{
		Page:     req.Page,
		PageSize: req.PageSize,
		Search:   req.Search,
		Status:   req.Status,
		Role:     req.Role,
	}

	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return dto.UserListResponse{}, err
	}

	items := make([]dto.UserResponse, 0, len(users))
	for _, user := range users {
		items = append(items, dto.NewUserResponse(user))
	}

	page := req.Page
	if page <= 0 {
		page = 1
	}
	pagination := dto.PaginationMeta{Page: page, PageSize: req.PageSize, TotalItems: total}
	if req.PageSize > 0 {
		pagination.TotalPages = int((total + int64(req.PageSize) - 1) / int64(req.PageSize))
	} else {
		pagination.TotalPages = 1
	}

	return dto.UserListResponse{Items: items, Pagination: pagination}, nil
}

func (s *userService) UpdateProfile(ctx context.Context, actorID, userID string, req dto.UserUpdateRequest, meta RequestMeta) (dto.UserResponse, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return dto.UserResponse{}, err
	}

	before := user.AuditAttributes()

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Email != nil {
		user.Email = *req.Email
	}

	if err := s.users.Update(ctx, user); err != nil {
		return dto.UserResponse{}, err
	}

	if _, err := s.observer.EntityUpdated(ctx, ObserverInput{
		Actor:   actorID,
		Request: meta,
		Subject: user,
		Before:  before,
	}); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to record profile update activity")
	}

	return dto.NewUserResponse(*user), nil
}

func (s *userService) AdminUpdate(ctx context.Context, actorID, userID string, req dto.AdminUserUpdateRequest, meta RequestMeta) (dto.UserResponse, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return dto.UserResponse{}, err
	}

	before := user.AuditAttributes()

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.Status != nil {
		user.Status = *req.Status
	}

	if err := s.users.Update(ctx, user); err != nil {
		return dto.UserResponse{}, err
	}

	if _, err := s.observer.EntityUpdated(ctx, ObserverInput{
		Actor:   actorID,
		Request: meta,
		Subject: user,
		Before:  before,
	}); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to record account update activity")
	}

	return dto.NewUserResponse(*user), nil
}

func (s *userService) Delete(ctx context.Context, actorID, userID string, meta RequestMeta) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.users.Delete(ctx, userID); err != nil {
		return err
	}

	if _, err := s.observer.EntityDeleted(ctx, ObserverInput{
		Actor:   actorID,
		Request: meta,
		Subject: user,
	}); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to record account deletion activity")
	}

	return nil
}

func (s *userService) Restore(ctx context.Context, actorID, userID string, meta RequestMeta) (dto.UserResponse, error) {
	user, err := s.users.FindDeletedByID(ctx, userID)
	if err != nil {
		return dto.UserResponse{}, err
	}

	if err := s.users.Restore(ctx, userID); err != nil {
		return dto.UserResponse{}, err
	}
	user.DeletedAt = gorm.DeletedAt{}

	if _, err := s.observer.EntityRestored(ctx, ObserverInput{
		Actor:   actorID,
		Request: meta,
		Subject: user,
	}); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to record account restore activity")
	}

	return dto.NewUserResponse(*user), nil
}
