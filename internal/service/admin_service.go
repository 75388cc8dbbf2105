package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/oakbyte/pulse-api/internal/dto"
	"github.com/oakbyte/pulse-api/internal/models"
	"github.com/oakbyte/pulse-api/internal/repository"
)

// ErrLastSuperAdmin guards against removing the final superadmin account.
var ErrLastSuperAdmin = errors.New("cannot remove the last superadmin")

// AdminService manages back-office accounts. Every mutation is written to the
// admin audit trail and reported to the activity observer.
type AdminService interface {
	Invite(ctx context.Context, actorID string, req dto.AdminInviteRequest, meta RequestMeta) (dto.AdminInviteResponse, error)
	Update(ctx context.Context, actorID, adminID string, req dto.AdminUpdateRequest, meta RequestMeta) (dto.AdminResponse, error)
	Delete(ctx context.Context, actorID, adminID string, meta RequestMeta) error
	Get(ctx context.Context, adminID string) (dto.AdminResponse, error)
	List(ctx context.Context, page, pageSize int) (dto.AdminListResponse, error)
	RecordAction(ctx context.Context, adminID, action, modelType, modelID string, meta map[string]interface{}) error
	ListActions(ctx context.Context, filter repository.AdminActivityLogFilter) (dto.AdminActivityLogListResponse, error)
}

type adminService struct {
	admins     repository.AdminRepository
	audit      repository.AdminActivityLogRepository
	observer   *ActivityObserver
	bcryptCost int
	logger     zerolog.Logger
}

// NewAdminService constructs the admin account service.
func NewAdminService(admins repository.AdminRepository, audit repository.AdminActivityLogRepository, observer *ActivityObserver, bcryptCost int, logger zerolog.Logger) AdminService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}

	return &adminService{
		admins:     admins,
		audit:      audit,
		observer:   observer,
		bcryptCost: bcryptCost,
		logger:     logger.With().Str("component", "admin_service").Logger(),
	}
}

func (s *adminService) Invite(ctx context.Context, actorID string, req dto.AdminInviteRequest, meta RequestMeta) (dto.AdminInviteResponse, error) {
	if _, err := s.admins.FindByEmail(ctx, req.Email); err == nil {
		return dto.AdminInviteResponse{}, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.AdminInviteResponse{}, err
	}

	tempPassword := strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	hashed, err := bcrypt.GenerateFromPassword([]byte(tempPassword), s.bcryptCost)
	if err != nil {
		return dto.AdminInviteResponse{}, err
	}

	admin := models.Admin{
		Name:     req.Name,
		Email:    req.Email,
		Password: string(hashed),
		Role:     req.Role,
		Status:   "active",
	}
	if err := s.admins.Create(ctx, &admin); err != nil {
		return dto.AdminInviteResponse{}, err
	}

	s.recordAudit(ctx, actorID, "admin.invited", &admin, map[string]interface{}{
		"email": admin.Email,
		"role":  admin.Role,
	})
	if _, err := s.observer.EntityCreated(ctx, ObserverInput{
		Actor:   actorID,
		Request: meta,
		Subject: &admin,
	}); err != nil {
		s.logger.Warn().Err(err).Str("admin_id", admin.ID).Msg("failed to record admin invite activity")
	}

	return dto.AdminInviteResponse{
		Admin:             dto.NewAdminResponse(admin),
		TemporaryPassword: tempPassword,
	}, nil
}

func (s *adminService) Update(ctx context.Context, actorID, adminID string, req dto.AdminUpdateRequest, meta RequestMeta) (dto.AdminResponse, error) {
	admin, err := s.admins.FindByID(ctx, adminID)
	if err != nil {
		return dto.AdminResponse{}, err
	}

	before := admin.AuditAttributes()

	if req.Name != nil {
		admin.Name = *req.Name
	}
	if req.Role != nil {
		if admin.Role == models.RoleSuperAdmin && *req.Role != models.RoleSuperAdmin {
			if err := s.ensureAnotherSuperAdmin(ctx, admin.ID); err != nil {
				return dto.AdminResponse{}, err
			}
		}
		admin.Role = *req.Role
	}
	if req.Status != nil {
		admin.Status = *req.Status
	}

	if err := s.admins.Update(ctx, admin); err != nil {
		return dto.AdminResponse{}, err
	}

	s.recordAudit(ctx, actorID, "admin.updated", admin, map[string]interface{}{"changed": changedKeys(before, admin.AuditAttributes())})
	if _, err := s.observer.EntityUpdated(ctx, ObserverInput{
		Actor:   actorID,
		Request: meta,
		Subject: admin,
		Before:  before,
	}); err != nil {
		s.logger.Warn().Err(err).Str("admin_id", adminID).Msg("failed to record admin update activity")
	}

	return dto.NewAdminResponse(*admin), nil
}

func (s *adminService) Delete(ctx context.Context, actorID, adminID string, meta RequestMeta) error {
	admin, err := s.admins.FindByID(ctx, adminID)
	if err != nil {
		return err
	}

	if admin.Role == models.RoleSuperAdmin {
		if err := s.ensureAnotherSuperAdmin(ctx, admin.ID); err != nil {
			return err
		}
	}

	if err := s.admins.Delete(ctx, adminID); err != nil {
		return err
	}

	s.recordAudit(ctx, actorID, "admin.deleted", admin, map[string]interface{}{"email": admin.Email})
	if _, err := s.observer.EntityDeleted(ctx, ObserverInput{
		Actor:   actorID,
		Request: meta,
		Subject: admin,
	}); err != nil {
		s.logger.Warn().Err(err).Str("admin_id", adminID).Msg("failed to record admin deletion activity")
	}

	return nil
}

func (s *adminService) Get(ctx context.Context, adminID string) (dto.AdminResponse, error) {
	admin, err := s.admins.FindByID(ctx, adminID)
	if err != nil {
		return dto.AdminResponse{}, err
	}
	return dto.NewAdminResponse(*admin), nil
}

func (s *adminService) List(ctx context.Context, page, pageSize int) (dto.AdminListResponse, error) {
	admins, total, err := s.admins.List(ctx, page, pageSize)
	if err != nil {
		return dto.AdminListResponse{}, err
	}

	items := make([]dto.AdminResponse, 0, len(admins))
	for _, admin := range admins {
		items = append(items, dto.NewAdminResponse(admin))
	}

	if page <= 0 {
		page = 1
	}
	pagination := dto.PaginationMeta{Page: page, PageSize: pageSize, TotalItems: total}
	if pageSize > 0 {
		pagination.TotalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	} else {
		pagination.TotalPages = 1
	}

	return dto.AdminListResponse{Items: items, Pagination: pagination}, nil
}

// RecordAction writes a free-form entry into the admin audit trail. Handlers
// call it for back-office operations that do not map to an entity lifecycle.
func (s *adminService) RecordAction(ctx context.Context, adminID, action, modelType, modelID string, meta map[string]interface{}) error {
	record := models.AdminActivityLog{
		Action:    action,
		ModelType: modelType,
		ModelID:   modelID,
		Meta:      datatypes.JSONMap(meta),
	}
	if adminID != "" {
		record.AdminID = &adminID
	}

	if err := s.audit.Create(ctx, &record); err != nil {
		s.logger.Error().Err(err).Str("action", action).Msg("failed to record admin action")
		return err
	}
	return nil
}

func (s *adminService) ListActions(ctx context.Context, filter repository.AdminActivityLogFilter) (dto.AdminActivityLogListResponse, error) {
	records, total, err := s.audit.List(ctx, filter)
	if err != nil {
		return dto.AdminActivityLogListResponse{}, err
	}

	items := make([]dto.AdminActivityLogResponse, 0, len(records))
	for _, record := range records {
		item := dto.NewAdminActivityLogResponse(record)
		if record.AdminID != nil {
			if admin, err := s.admins.FindByID(ctx, *record.AdminID); err == nil {
				item.Admin = &dto.ActorSummary{ID: admin.ID, Name: admin.Name, Email: admin.Email}
			}
		}
		items = append(items, item)
	}

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pagination := dto.PaginationMeta{Page: page, PageSize: filter.PageSize, TotalItems: total}
	if filter.PageSize > 0 {
		pagination.TotalPages = int((total + int64(filter.PageSize) - 1) / int64(filter.PageSize))
	} else {
		pagination.TotalPages = 1
	}

	return dto.AdminActivityLogListResponse{Items: items, Pagination: pagination}, nil
}

func (s *adminService) recordAudit(ctx context.Context, actorID, action string, admin *models.Admin, meta map[string]interface{}) {
	if err := s.RecordAction(ctx, actorID, action, admin.SubjectType(), admin.SubjectID(), meta); err != nil {
		s.logger.Warn().Err(err).Str("action", action).Msg("admin audit write failed")
	}
}

func (s *adminService) ensureAnotherSuperAdmin(ctx context.Context, excludeID string) error {
	admins, _, err := s.admins.List(ctx, 0, 0)
	if err != nil {
		return err
	}
	for _, candidate := range admins {
		if candidate.ID != excludeID && candidate.Role == models.RoleSuperAdmin && candidate.Status == "active" {
			return nil
		}
	}
	return ErrLastSuperAdmin
}

func changedKeys(before, after map[string]interface{}) []string {
	_, diffNew := DiffAttributes(before, after)
	keys := make([]string, 0, len(diffNew))
	for key := range diffNew {
		keys = append(keys, key)
	}
	return keys
}
