package service

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
	"github.com/noah-isme/campus-portal-api/pkg/moodle"
	"github.com/noah-isme/campus-portal-api/pkg/moodle/moodletest"
)

const userPayload = `[{"id":42,"username":"ada","firstname":"Ada","lastname":"Lovelace","fullname":"Ada Lovelace","email":"ada@example.com"}]`

func newAuthFixture(t *testing.T) (*moodletest.Server, *AuthService, *SessionService) {
	t.Helper()
	srv := moodletest.NewServer(t)
	sessions := NewSessionService(SessionConfig{Secret: "secret", MaxAge: time.Hour})
	return srv, NewAuthService(srv.Factory(t), sessions, nil, nil), sessions
}

func appErrorOf(t *testing.T, err error) *appErrors.Error {
	t.Helper()
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr), "expected *appErrors.Error, got %T", err)
	return appErr
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	srv, svc, sessions := newAuthFixture(t)
	srv.AcceptLogin("ada@example.com", "s3cret!", "user-token")
	srv.Handle(moodle.FnGetUsersByField, userPayload)

	result, err := svc.Login(context.Background(), models.LoginRequest{Email: " ada@example.com ", Password: "s3cret!"})
	require.NoError(t, err)
	assert.Equal(t, "user-token", result.MoodleToken)
	require.NotNil(t, result.User)
	assert.Equal(t, int64(42), result.User.ID)

	lookups := srv.Calls(moodle.FnGetUsersByField)
	require.Len(t, lookups, 1)
	assert.Equal(t, "email", lookups[0].Get("field"))
	assert.Equal(t, moodletest.ServiceToken, lookups[0].Get("wstoken"))

	session, err := sessions.Parse(result.Session)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", session.Identifier)
	assert.Equal(t, "user-token", session.Token)
}

func TestAuthServiceLoginIgnoresLookupFailure(t *testing.T) {
	srv, svc, _ := newAuthFixture(t)
	srv.AcceptLogin("ada", "pw", "user-token")
	srv.HandleStatus(moodle.FnGetUsersByField, http.StatusInternalServerError, "oops")

	result, err := svc.Login(context.Background(), models.LoginRequest{Username: "ada", Password: "pw"})
	require.NoError(t, err)
	assert.Nil(t, result.User)
	assert.NotEmpty(t, result.Session)
	assert.Equal(t, "username", srv.Calls(moodle.FnGetUsersByField)[0].Get("field"))
}

func TestAuthServiceLoginFailures(t *testing.T) {
	srv, svc, _ := newAuthFixture(t)
	srv.AcceptLogin("ada", "pw", "user-token")

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "ada", Password: "wrong"})
	appErr := appErrorOf(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
	assert.Equal(t, http.StatusUnauthorized, appErr.Status)

	_, err = svc.Login(context.Background(), models.LoginRequest{Password: "pw"})
	assert.Equal(t, http.StatusBadRequest, appErrorOf(t, err).Status)
	assert.Len(t, srv.Logins(), 1)
}

func TestAuthServiceRegister(t *testing.T) {
	srv, svc, _ := newAuthFixture(t)
	srv.Handle(moodle.FnCreateUsers, `[{"id":77,"username":"grace"}]`)
	srv.AcceptLogin("grace", "longenough", "fresh-token")

	result, err := svc.Register(context.Background(), models.RegisterRequest{
		Username:  "grace",
		Email:     "grace@example.com",
		Password:  "longenough",
		FirstName: "Grace",
		LastName:  "Hopper",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(77), result.User.ID)
	assert.Equal(t, "fresh-token", result.MoodleToken)
	assert.NotEmpty(t, result.Session)

	created := srv.Calls(moodle.FnCreateUsers)
	require.Len(t, created, 1)
	assert.Equal(t, "grace@example.com", created[0].Get("users[0][email]"))
}

func TestAuthServiceRegisterValidation(t *testing.T) {
	srv, svc, _ := newAuthFixture(t)

	cases := map[string]struct {
		req     models.RegisterRequest
		message string
	}{
		"short password": {
			req:     models.RegisterRequest{Username: "g", Email: "g@example.com", Password: "short", FirstName: "G", LastName: "H"},
			message: "password must be at least 8 characters",
		},
		"bad email": {
			req:     models.RegisterRequest{Username: "g", Email: "nope", Password: "longenough", FirstName: "G", LastName: "H"},
			message: "email address is invalid",
		},
		"missing name": {
			req:     models.RegisterRequest{Username: "g", Email: "g@example.com", Password: "longenough", LastName: "H"},
			message: "firstname is required",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tc.req)
			appErr := appErrorOf(t, err)
			assert.Equal(t, http.StatusBadRequest, appErr.Status)
			assert.Equal(t, tc.message, appErr.Message)
		})
	}
	assert.Zero(t, srv.CallCount())
}

func TestAuthServiceRegisterUpstreamFailure(t *testing.T) {
	srv, svc, _ := newAuthFixture(t)
	srv.Handle(moodle.FnCreateUsers, `{"exception":"invalid_parameter_exception","errorcode":"invalidparameter","message":"Username already exists: grace"}`)

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Username: "grace", Email: "grace@example.com", Password: "longenough", FirstName: "Grace", LastName: "Hopper",
	})
	appErr := appErrorOf(t, err)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	assert.Equal(t, appErrors.ErrRegistrationFailed.Code, appErr.Code)
	assert.Equal(t, "Username already exists: grace", appErr.Message)
	assert.Empty(t, srv.Logins())
}

func TestAuthServiceMe(t *testing.T) {
	t.Run("by identifier", func(t *testing.T) {
		srv, svc, _ := newAuthFixture(t)
		srv.Handle(moodle.FnGetUsersByField, userPayload)

		user, err := svc.Me(context.Background(), "ada", "user-token")
		require.NoError(t, err)
		assert.Equal(t, "ada", user.Username)
		call := srv.Calls(moodle.FnGetUsersByField)[0]
		assert.Equal(t, "user-token", call.Get("wstoken"))
		assert.Equal(t, "username", call.Get("field"))
	})

	t.Run("by token owner", func(t *testing.T) {
		srv, svc, _ := newAuthFixture(t)
		srv.Handle(moodle.FnGetSiteInfo, `{"userid":42,"username":"ada"}`)
		srv.HandleFunc(moodle.FnGetUsersByField, func(form url.Values) (int, string) {
			if form.Get("field") == "id" && form.Get("values[0]") == "42" {
				return http.StatusOK, userPayload
			}
			return http.StatusOK, `[]`
		})

		user, err := svc.Me(context.Background(), "", "user-token")
		require.NoError(t, err)
		assert.Equal(t, int64(42), user.ID)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		srv, svc, _ := newAuthFixture(t)
		_, err := svc.Me(context.Background(), "ada", "")
		assert.Equal(t, http.StatusUnauthorized, appErrorOf(t, err).Status)
		assert.Zero(t, srv.CallCount())
	})

	t.Run("unknown user", func(t *testing.T) {
		srv, svc, _ := newAuthFixture(t)
		srv.Handle(moodle.FnGetUsersByField, `[]`)
		_, err := svc.Me(context.Background(), "ghost@example.com", "user-token")
		assert.Equal(t, http.StatusNotFound, appErrorOf(t, err).Status)
	})

	t.Run("upstream failure", func(t *testing.T) {
		srv, svc, _ := newAuthFixture(t)
		srv.HandleStatus(moodle.FnGetUsersByField, http.StatusBadGateway, "down")
		_, err := svc.Me(context.Background(), "ada", "user-token")
		assert.Equal(t, http.StatusBadGateway, appErrorOf(t, err).Status)
	})
}

func TestAuthServiceLookupUser(t *testing.T) {
	srv, svc, _ := newAuthFixture(t)
	srv.Handle(moodle.FnGetUsersByField, userPayload)

	result, err := svc.LookupUser(context.Background(), models.UserLookupQuery{Field: moodle.UserFieldID, Value: " 42abc "})
	require.NoError(t, err)
	assert.Equal(t, "id", result.Field)
	assert.Equal(t, "42", result.Value)
	assert.Equal(t, int64(42), result.User.ID)
	assert.Equal(t, "42", srv.Calls(moodle.FnGetUsersByField)[0].Get("values[0]"))

	for _, q := range []models.UserLookupQuery{
		{Field: moodle.UserFieldID, Value: "-5"},
		{Field: moodle.UserFieldID, Value: "abc"},
		{Field: moodle.UserFieldID, Value: "0"},
		{Field: "phone", Value: "123"},
		{Field: moodle.UserFieldEmail, Value: ""},
	} {
		_, err := svc.LookupUser(context.Background(), q)
		assert.Equal(t, http.StatusBadRequest, appErrorOf(t, err).Status, "query %+v", q)
	}
	assert.Len(t, srv.Calls(moodle.FnGetUsersByField), 1)
}

func TestAuthServiceLookupUserUnknown(t *testing.T) {
	srv, svc, _ := newAuthFixture(t)
	srv.Handle(moodle.FnGetUsersByField, `[]`)

	result, err := svc.LookupUser(context.Background(), models.UserLookupQuery{Field: moodle.UserFieldUsername, Value: "ghost"})
	require.NoError(t, err)
	assert.Nil(t, result.User)
	assert.Equal(t, "ghost", result.Value)
}

func TestLeadingInt(t *testing.T) {
	cases := map[string]struct {
		n  int64
		ok bool
	}{
		"42":    {42, true},
		"42abc": {42, true},
		"+7":    {7, true},
		"-5":    {-5, true},
		"abc":   {0, false},
		"-":     {0, false},
		"":      {0, false},
	}
	for raw, want := range cases {
		n, ok := leadingInt(raw)
		assert.Equal(t, want.ok, ok, raw)
		assert.Equal(t, want.n, n, raw)
	}
}
