package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/oakbyte/pulse-api/internal/dto"
	"github.com/oakbyte/pulse-api/internal/models"
)

// ActivityService accepts manual activity submissions from API clients. The
// description passes through an HTML sanitizer before it is persisted, and
// subject references must name a registered subject type.
type ActivityService interface {
	Record(ctx context.Context, actorID string, req dto.ActivityCreateRequest, meta RequestMeta) (dto.ActivityResponse, error)
}

type activityService struct {
	activity  *ActivityLogger
	registry  *SubjectRegistry
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewActivityService constructs the manual activity entry point.
func NewActivityService(activity *ActivityLogger, registry *SubjectRegistry, validate *validator.Validate, logger zerolog.Logger) ActivityService {
	return &activityService{
		activity:  activity,
		registry:  registry,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "activity_service").Logger(),
	}
}

// subjectRef lets manual submissions reference a subject by type and id
// without loading the entity.
type subjectRef struct {
	kind string
	id   string
}

func (s subjectRef) SubjectType() string { return s.kind }
func (s subjectRef) SubjectID() string   { return s.id }

func (s *activityService) Record(ctx context.Context, actorID string, req dto.ActivityCreateRequest, meta RequestMeta) (dto.ActivityResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.ActivityResponse{}, err
	}

	description := strings.TrimSpace(s.sanitizer.Sanitize(req.Description))
	if description == "" {
		return dto.ActivityResponse{}, ErrDescriptionRequired
	}

	if req.SubjectType != "" && !s.registry.Known(req.SubjectType) {
		return dto.ActivityResponse{}, ErrUnknownSubjectType
	}

	entry := s.activity.NewEntry().
		CausedBy(actorID).
		WithRequest(meta)

	if req.LogName != "" {
		entry = entry.WithName(req.LogName)
	}
	if req.Event != "" {
		entry = entry.WithEvent(models.LogEvent(req.Event))
	}
	if req.SubjectType != "" {
		entry = entry.PerformedOn(subjectRef{kind: req.SubjectType, id: req.SubjectID})
	}
	if len(req.Properties) > 0 {
		entry = entry.WithProperties(req.Properties)
	}

	record, err := entry.Log(ctx, description)
	if err != nil {
		return dto.ActivityResponse{}, err
	}

	return dto.NewActivityResponse(record), nil
}
