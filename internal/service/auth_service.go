package service

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
	"github.com/noah-isme/campus-portal-api/pkg/moodle"
)

type sessionSigner interface {
	Issue(identifier, token string) (string, error)
}

// AuthService provides LMS-backed authentication use cases.
type AuthService struct {
	lms       *moodle.Factory
	sessions  sessionSigner
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(lms *moodle.Factory, sessions sessionSigner, validate *validator.Validate, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AuthService{lms: lms, sessions: sessions, validator: validate, logger: logger}
}

// identifierField picks the lookup field for a login identifier.
func identifierField(identifier string) moodle.UserField {
	if strings.Contains(identifier, "@") {
		return moodle.UserFieldEmail
	}
	return moodle.UserFieldUsername
}

// Login exchanges credentials for an LMS token and a signed session.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResult, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "username/email and password are required")
	}
	identifier := req.Identifier()

	token, err := s.lms.Login().Login(ctx, identifier, req.Password)
	if err != nil {
		if errors.Is(err, moodle.ErrInvalidCredentials) {
			return nil, appErrors.Wrap(err, appErrors.ErrInvalidCredentials.Code, appErrors.ErrInvalidCredentials.Status, appErrors.ErrInvalidCredentials.Message)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "unable to authenticate")
	}

	user, err := s.lms.Service().GetUserByField(ctx, identifierField(identifier), identifier)
	if err != nil {
		s.logger.Warn("login user lookup failed", zap.String("identifier", identifier), zap.Error(err))
		user = nil
	}

	session, err := s.sessions.Issue(identifier, token.Token)
	if err != nil {
		return nil, err
	}
	return &models.AuthResult{User: user, MoodleToken: token.Token, Session: session}, nil
}

// Register creates an LMS account and signs the new user in.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResult, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, registrationValidationMessage(err))
	}

	user, err := s.lms.Service().CreateUser(ctx, moodle.NewUser{
		Username:  req.Username,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
	})
	if err != nil {
		return nil, appErrors.FromLMS(err, http.StatusBadRequest)
	}

	token, err := s.lms.Login().Login(ctx, req.Username, req.Password)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrRegistrationFailed.Code, appErrors.ErrRegistrationFailed.Status, "account created but sign-in failed")
	}

	session, err := s.sessions.Issue(req.Username, token.Token)
	if err != nil {
		return nil, err
	}
	s.logger.Info("lms account registered", zap.Int64("user_id", user.ID), zap.String("username", user.Username))
	return &models.AuthResult{User: user, MoodleToken: token.Token, Session: session}, nil
}

func registrationValidationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid registration payload"
	}
	switch fe := verrs[0]; fe.Tag() {
	case "min":
		return "password must be at least 8 characters"
	case "email":
		return "email address is invalid"
	default:
		return strings.ToLower(fe.Field()) + " is required"
	}
}

// Me resolves the LMS account behind a user token. With an identifier the
// account is looked up by email or username, otherwise by the token owner.
func (s *AuthService) Me(ctx context.Context, identifier, token string) (*moodle.User, error) {
	identifier = strings.TrimSpace(identifier)
	if strings.TrimSpace(token) == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "not authenticated")
	}
	client, err := s.lms.ForUser(token)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "not authenticated")
	}

	var user *moodle.User
	if identifier != "" {
		user, err = client.GetUserByField(ctx, identifierField(identifier), identifier)
	} else {
		var info *moodle.SiteInfo
		info, err = client.GetSiteInfo(ctx)
		if err == nil {
			if info.UserID <= 0 {
				return nil, appErrors.Clone(appErrors.ErrUpstream, "unable to determine LMS user id")
			}
			user, err = client.GetUserByField(ctx, moodle.UserFieldID, strconv.FormatInt(info.UserID, 10))
		}
	}
	if err != nil {
		return nil, appErrors.FromLMS(err, http.StatusBadGateway)
	}
	if user == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	return user, nil
}

// LookupUser finds an LMS account by one field using the service token. An
// unknown account yields a nil User rather than an error. Ids keep their
// leading digits only, so "42abc" looks up 42.
func (s *AuthService) LookupUser(ctx context.Context, query models.UserLookupQuery) (*models.UserLookupResult, error) {
	query.Value = strings.TrimSpace(query.Value)
	if !query.Field.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "field must be one of id, username or email")
	}
	if query.Value == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "value is required")
	}
	if query.Field == moodle.UserFieldID {
		id, ok := leadingInt(query.Value)
		if !ok || id <= 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "user id must be a positive number")
		}
		query.Value = strconv.FormatInt(id, 10)
	}

	user, err := s.lms.Service().GetUserByField(ctx, query.Field, query.Value)
	if err != nil {
		return nil, appErrors.FromLMS(err, http.StatusBadGateway)
	}
	return &models.UserLookupResult{User: user, Field: string(query.Field), Value: query.Value}, nil
}

// leadingInt parses the optional sign and decimal digits that prefix raw.
func leadingInt(raw string) (int64, bool) {
	end := 0
	if end < len(raw) && (raw[end] == '-' || raw[end] == '+') {
		end++
	}
	digits := end
	for end < len(raw) && raw[end] >= '0' && raw[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.ParseInt(raw[:end], 10, 64)
	return n, err == nil
}
