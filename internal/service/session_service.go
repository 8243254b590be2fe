package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

const sessionIssuer = "campus-portal-api"

// SessionConfig defines how session cookies are signed.
type SessionConfig struct {
	Secret string
	MaxAge time.Duration
}

// SessionService issues and verifies the signed session cookie value, an
// HS256 JWT carrying the login identifier and the LMS user token.
type SessionService struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time
}

// NewSessionService constructs a SessionService.
func NewSessionService(cfg SessionConfig) *SessionService {
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 30 * 24 * time.Hour
	}
	return &SessionService{secret: []byte(cfg.Secret), maxAge: cfg.MaxAge, now: time.Now}
}

// MaxAge is the lifetime of issued sessions.
func (s *SessionService) MaxAge() time.Duration {
	return s.maxAge
}

// Issue signs a session for identifier and LMS token.
func (s *SessionService) Issue(identifier, token string) (string, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || token == "" {
		return "", appErrors.Clone(appErrors.ErrInternal, "session requires identifier and token")
	}
	issuedAt := s.now().UTC()
	claims := &models.SessionClaims{
		Identifier: identifier,
		LMSToken:   token,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			Subject:   identifier,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.maxAge)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign session")
	}
	return signed, nil
}

// Parse verifies a cookie value and returns its session.
func (s *SessionService) Parse(raw string) (*models.Session, error) {
	if raw == "" {
		return nil, appErrors.ErrUnauthorized
	}
	token, err := jwt.ParseWithClaims(raw, &models.SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(sessionIssuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid session")
	}

	claims, ok := token.Claims.(*models.SessionClaims)
	if !ok || !token.Valid || claims.Identifier == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid session claims")
	}
	return &models.Session{Identifier: claims.Identifier, Token: claims.LMSToken}, nil
}
