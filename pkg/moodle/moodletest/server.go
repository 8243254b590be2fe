// Package moodletest provides an in-process LMS web-service double for tests
// of code built on package moodle.
package moodletest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/noah-isme/campus-portal-api/pkg/moodle"
)

// ServiceToken is the service token configured by Factory.
const ServiceToken = "test-service-token"

const (
	restPath  = "/webservice/rest/server.php"
	tokenPath = "/login/token.php"
)

// HandlerFunc answers one web-service call with a status and JSON body.
type HandlerFunc func(form url.Values) (int, string)

type file struct {
	contentType string
	body        []byte
}

// Server records every request and answers registered functions. Unknown
// functions get the LMS "missing record" exception.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	calls     []url.Values
	functions map[string]HandlerFunc
	login     HandlerFunc
	logins    []url.Values
	files     map[string]file
}

// NewServer starts a Server that is closed when t finishes.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{functions: map[string]HandlerFunc{}, files: map[string]file{}}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// Factory returns a moodle.Factory pointed at the server.
func (s *Server) Factory(t testing.TB, opts ...moodle.Option) *moodle.Factory {
	t.Helper()
	factory, err := moodle.NewFactory(moodle.Config{BaseURL: s.URL, ServiceToken: ServiceToken}, opts...)
	if err != nil {
		t.Fatalf("moodletest: build factory: %v", err)
	}
	return factory
}

// Handle answers function with a 200 and body.
func (s *Server) Handle(function, body string) {
	s.HandleFunc(function, func(url.Values) (int, string) { return http.StatusOK, body })
}

// HandleStatus answers function with status and body.
func (s *Server) HandleStatus(function string, status int, body string) {
	s.HandleFunc(function, func(url.Values) (int, string) { return status, body })
}

// HandleFunc answers function with fn.
func (s *Server) HandleFunc(function string, fn HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.functions[function] = fn
}

// HandleLogin answers the token endpoint with fn.
func (s *Server) HandleLogin(fn HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.login = fn
}

// AcceptLogin issues token for username/password and rejects anything else.
func (s *Server) AcceptLogin(username, password, token string) {
	s.HandleLogin(func(q url.Values) (int, string) {
		if q.Get("username") == username && q.Get("password") == password {
			return http.StatusOK, fmt.Sprintf(`{"token":%q,"privatetoken":null}`, token)
		}
		return http.StatusOK, `{"error":"Invalid login, please try again","errorcode":"invalidlogin"}`
	})
}

// ServeFile serves body at path for any query string.
func (s *Server) ServeFile(path, contentType string, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = file{contentType: contentType, body: body}
}

// Calls returns the recorded forms of every call to function.
func (s *Server) Calls(function string) []url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []url.Values
	for _, call := range s.calls {
		if call.Get("wsfunction") == function {
			out = append(out, call)
		}
	}
	return out
}

// CallCount returns the number of web-service calls of any function.
func (s *Server) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// Logins returns the query strings sent to the token endpoint.
func (s *Server) Logins() []url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]url.Values(nil), s.logins...)
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case restPath:
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		s.calls = append(s.calls, r.PostForm)
		handler, ok := s.functions[r.PostForm.Get("wsfunction")]
		s.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusOK, `{"exception":"dml_missing_record_exception","errorcode":"invalidrecord","message":"Can't find data record in database table external_functions."}`)
			return
		}
		status, body := handler(r.PostForm)
		writeJSON(w, status, body)
	case tokenPath:
		s.mu.Lock()
		s.logins = append(s.logins, r.URL.Query())
		login := s.login
		s.mu.Unlock()
		if login == nil {
			http.NotFound(w, r)
			return
		}
		status, body := login(r.URL.Query())
		writeJSON(w, status, body)
	default:
		s.mu.Lock()
		f, ok := s.files[r.URL.Path]
		s.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", f.contentType)
		_, _ = w.Write(f.body)
	}
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = fmt.Fprint(w, body)
}
