package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

type profileRepository interface {
	FindByOpenID(ctx context.Context, openID string) (*models.Profile, error)
	Upsert(ctx context.Context, profile *models.Profile) error
}

// ProfileService stores opaque front-end profile documents keyed by openId.
type ProfileService struct {
	repo      profileRepository
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewProfileService constructs a ProfileService.
func NewProfileService(repo profileRepository, validate *validator.Validate, logger *zap.Logger) *ProfileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ProfileService{repo: repo, validator: validate, logger: logger, now: time.Now}
}

// Get returns the stored document for openID, or nil when none was saved.
func (s *ProfileService) Get(ctx context.Context, openID string) (json.RawMessage, error) {
	openID = strings.TrimSpace(openID)
	if openID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "openId is required")
	}
	profile, err := s.repo.FindByOpenID(ctx, openID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load profile")
	}
	return profile.Data, nil
}

// Save replaces the document stored for the request's openId.
func (s *ProfileService) Save(ctx context.Context, req models.SaveProfileRequest) (json.RawMessage, error) {
	req.OpenID = strings.TrimSpace(req.OpenID)
	if req.OpenID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "openId is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "profile payload is required")
	}

	data, err := json.Marshal(req.Profile)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "profile payload is not serializable")
	}
	now := s.now().UTC()
	profile := &models.Profile{OpenID: req.OpenID, Data: data, CreatedAt: now, UpdatedAt: now}
	if err := s.repo.Upsert(ctx, profile); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save profile")
	}
	s.logger.Debug("profile saved", zap.String("open_id", req.OpenID), zap.Int("bytes", len(data)))
	return data, nil
}
