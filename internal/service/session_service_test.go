package service

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

func TestSessionRoundTrip(t *testing.T) {
	svc := NewSessionService(SessionConfig{Secret: "secret", MaxAge: time.Hour})

	raw, err := svc.Issue("ada@example.com", "user-token")
	require.NoError(t, err)

	session, err := svc.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", session.Identifier)
	assert.Equal(t, "user-token", session.Token)
}

func TestSessionRejectsTamperedAndExpired(t *testing.T) {
	svc := NewSessionService(SessionConfig{Secret: "secret", MaxAge: time.Hour})
	other := NewSessionService(SessionConfig{Secret: "other", MaxAge: time.Hour})

	raw, err := other.Issue("ada", "tok")
	require.NoError(t, err)
	_, err = svc.Parse(raw)
	assertUnauthorized(t, err)

	past := time.Now().Add(-2 * time.Hour)
	svc.now = func() time.Time { return past }
	raw, err = svc.Issue("ada", "tok")
	require.NoError(t, err)
	svc.now = time.Now
	_, err = svc.Parse(raw)
	assertUnauthorized(t, err)

	_, err = svc.Parse("")
	assertUnauthorized(t, err)
	_, err = svc.Parse("logged-in:ada:tok")
	assertUnauthorized(t, err)
}

func TestSessionIssueRequiresIdentifierAndToken(t *testing.T) {
	svc := NewSessionService(SessionConfig{Secret: "secret"})
	_, err := svc.Issue(" ", "tok")
	require.Error(t, err)
	_, err = svc.Issue("ada", "")
	require.Error(t, err)
	assert.Equal(t, 30*24*time.Hour, svc.MaxAge())
}

func assertUnauthorized(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusUnauthorized, appErr.Status)
}
