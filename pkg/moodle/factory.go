package moodle

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Config holds the LMS connection settings.
type Config struct {
	BaseURL       string
	ServiceToken  string
	LoginService  string
	StudentRoleID int
	Timeout       time.Duration
	InsecureTLS   bool
}

// Option customises a Factory.
type Option func(*Factory)

// WithLogger sets the logger used by every client.
func WithLogger(logger *zap.Logger) Option {
	return func(f *Factory) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithHTTPClient overrides the HTTP client shared by every client.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Factory) {
		if client != nil {
			f.http = client
		}
	}
}

// WithObserver reports every upstream request to observer.
func WithObserver(observer CallObserver) Option {
	return func(f *Factory) {
		f.observer = observer
	}
}

// Factory builds LMS clients that share one HTTP client. The service client is
// created once, at construction.
type Factory struct {
	cfg      Config
	http     *http.Client
	logger   *zap.Logger
	observer CallObserver
	service  *Client
}

// NewFactory validates cfg and builds the service-token client. A missing base
// URL or service token is a configuration error.
func NewFactory(cfg Config, opts ...Option) (*Factory, error) {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.ServiceToken = strings.TrimSpace(cfg.ServiceToken)
	if cfg.BaseURL == "" {
		return nil, ErrMissingBaseURL
	}
	if cfg.ServiceToken == "" {
		return nil, ErrMissingToken
	}
	if strings.TrimSpace(cfg.LoginService) == "" {
		cfg.LoginService = DefaultLoginService
	}
	if cfg.StudentRoleID <= 0 {
		cfg.StudentRoleID = DefaultStudentRoleID
	}

	f := &Factory{cfg: cfg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(f)
	}
	if f.http == nil {
		f.http = NewHTTPClient(cfg.Timeout, cfg.InsecureTLS)
	}
	f.service = f.newClient(cfg.ServiceToken)
	return f, nil
}

// Service returns the shared client authenticated with the service token.
func (f *Factory) Service() *Client {
	return f.service
}

// ForUser returns a new client scoped to a user token. User clients are never
// cached since the token varies per request.
func (f *Factory) ForUser(token string) (*Client, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrMissingToken
	}
	return f.newClient(token), nil
}

// Login returns a client for the token endpoint. It carries no token.
func (f *Factory) Login() *Client {
	return f.newClient("")
}

func (f *Factory) newClient(token string) *Client {
	return &Client{
		transport:     &transport{baseURL: f.cfg.BaseURL, http: f.http},
		token:         token,
		loginService:  f.cfg.LoginService,
		studentRoleID: f.cfg.StudentRoleID,
		logger:        f.logger,
		observer:      f.observer,
	}
}
