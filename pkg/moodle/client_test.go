package moodle_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-portal-api/pkg/moodle"
	"github.com/noah-isme/campus-portal-api/pkg/moodle/moodletest"
)

func TestCallAppliesReservedKeys(t *testing.T) {
	srv := moodletest.NewServer(t)
	srv.Handle("local_echo", `{"ok":true}`)

	var out struct {
		OK bool `json:"ok"`
	}
	err := srv.Factory(t).Service().Call(context.Background(), "local_echo", moodle.Params{
		"wstoken":            "caller-token",
		"wsfunction":         "core_other",
		"moodlewsrestformat": "xml",
		"courseid":           3,
	}, &out)
	require.NoError(t, err)
	assert.True(t, out.OK)

	calls := srv.Calls("local_echo")
	require.Len(t, calls, 1)
	assert.Equal(t, []string{moodletest.ServiceToken}, calls[0]["wstoken"])
	assert.Equal(t, []string{"json"}, calls[0]["moodlewsrestformat"])
	assert.Equal(t, "3", calls[0].Get("courseid"))
}

func TestCallDetectsProtocolErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{name: "exception with message", body: `{"exception":"x","message":"boom"}`, message: "boom"},
		{name: "error without message", body: `{"error":"bad"}`, message: "bad"},
		{name: "exception without text", body: `{"exception":"moodle_exception"}`, message: "Unknown error"},
		{name: "numeric message", body: `{"exception":"moodle_exception","errorcode":"x","message":123}`, message: "123"},
		{name: "numeric errorcode", body: `{"error":"bad","errorcode":42,"debuginfo":["trace"]}`, message: "bad"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := moodletest.NewServer(t)
			srv.Handle("local_fail", tc.body)

			var out map[string]any
			err := srv.Factory(t).Service().Call(context.Background(), "local_fail", nil, &out)
			require.Error(t, err)
			assert.Equal(t, tc.message, err.Error())
			assert.Nil(t, out)

			var pe *moodle.ProtocolError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, "local_fail", pe.Function)
		})
	}
}

func TestCallWrapsTransportErrors(t *testing.T) {
	srv := moodletest.NewServer(t)
	srv.HandleStatus("local_down", http.StatusInternalServerError, `oops upstream`)

	err := srv.Factory(t).Service().Call(context.Background(), "local_down", nil, nil)
	require.Error(t, err)

	var te *moodle.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusInternalServerError, te.StatusCode)
	assert.Contains(t, err.Error(), "HTTP 500")
	assert.Contains(t, err.Error(), "oops upstream")
	assert.Equal(t, http.StatusBadGateway, moodle.HTTPStatus(err))
}

func TestCallNullPayloadIsSuccess(t *testing.T) {
	srv := moodletest.NewServer(t)
	srv.Handle(moodle.FnManualEnrolUsers, `null`)

	require.NoError(t, srv.Factory(t).Service().EnrollUserInCourse(context.Background(), 4, 9))

	calls := srv.Calls(moodle.FnManualEnrolUsers)
	require.Len(t, calls, 1)
	assert.Equal(t, "5", calls[0].Get("enrolments[0][roleid]"))
	assert.Equal(t, "4", calls[0].Get("enrolments[0][userid]"))
	assert.Equal(t, "9", calls[0].Get("enrolments[0][courseid]"))
}

func TestCallDecodesBrotliBodies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		bw := brotli.NewWriter(&buf)
		_, _ = bw.Write([]byte(`[{"id":1,"name":"Misc","parent":0}]`))
		_ = bw.Close()
		w.Header().Set("Content-Encoding", "br")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(buf.Bytes())
	}))
	defer server.Close()

	factory, err := moodle.NewFactory(moodle.Config{BaseURL: server.URL, ServiceToken: "svc-token"})
	require.NoError(t, err)

	categories, err := factory.Service().GetCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Equal(t, "Misc", categories[0].Name)
}

type recordingObserver struct {
	outcomes map[string]string
}

func (r *recordingObserver) ObserveLMSCall(function, outcome string, _ time.Duration) {
	r.outcomes[function] = outcome
}

func TestCallReportsOutcomes(t *testing.T) {
	srv := moodletest.NewServer(t)
	srv.Handle(moodle.FnGetCategories, `[]`)
	srv.Handle(moodle.FnGetSiteInfo, `{"exception":"webservice_access_exception","message":"Access control exception"}`)

	observer := &recordingObserver{outcomes: map[string]string{}}
	client := srv.Factory(t, moodle.WithObserver(observer)).Service()

	_, err := client.GetCategories(context.Background())
	require.NoError(t, err)
	_, err = client.GetSiteInfo(context.Background())
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, moodle.HTTPStatus(err))

	assert.Equal(t, moodle.OutcomeOK, observer.outcomes[moodle.FnGetCategories])
	assert.Equal(t, moodle.OutcomeProtocol, observer.outcomes[moodle.FnGetSiteInfo])
}

func TestLoginIssuesToken(t *testing.T) {
	srv := moodletest.NewServer(t)
	srv.HandleLogin(func(q url.Values) (int, string) {
		if q.Get("username") == "ada" && q.Get("password") == "s3cret!" {
			return http.StatusOK, `{"token":"user-token","privatetoken":"priv"}`
		}
		return http.StatusOK, `{"error":"Invalid login, please try again","errorcode":"invalidlogin"}`
	})
	factory := srv.Factory(t)

	token, err := factory.Login().Login(context.Background(), "ada", "s3cret!")
	require.NoError(t, err)
	assert.Equal(t, "user-token", token.Token)

	logins := srv.Logins()
	require.Len(t, logins, 1)
	assert.Equal(t, moodle.DefaultLoginService, logins[0].Get("service"))
	assert.NotContains(t, logins[0], "wstoken")

	_, err = factory.Login().Login(context.Background(), "ada", "wrong")
	require.Error(t, err)
	assert.True(t, errors.Is(err, moodle.ErrInvalidCredentials))
	var le *moodle.LoginError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "Invalid login, please try again", le.Reason)
}

func TestLoginTransportFailure(t *testing.T) {
	srv := moodletest.NewServer(t)
	srv.HandleLogin(func(url.Values) (int, string) {
		return http.StatusServiceUnavailable, `maintenance`
	})

	_, err := srv.Factory(t).Login().Login(context.Background(), "ada", "pw")
	var te *moodle.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusServiceUnavailable, te.StatusCode)
	assert.NotContains(t, err.Error(), "pw")
}

func TestWithToken(t *testing.T) {
	assert.Equal(t,
		"https://lms.example/pluginfile.php/1/course/overviewfiles/a.png?token=abc",
		moodle.WithToken("https://lms.example/pluginfile.php/1/course/overviewfiles/a.png", "abc"))
	assert.Equal(t,
		"https://lms.example/webservice/pluginfile.php/1/a.png?forcedownload=1&token=abc",
		moodle.WithToken("https://lms.example/webservice/pluginfile.php/1/a.png?forcedownload=1", "abc"))
}
