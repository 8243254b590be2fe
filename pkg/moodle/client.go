package moodle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Protocol constants shared by every request.
const (
	restFormatJSON = "json"

	// DefaultLoginService is the external service used to issue user tokens.
	DefaultLoginService = "moodle_mobile_app"
	// DefaultStudentRoleID is the LMS role assigned by manual enrolment.
	DefaultStudentRoleID = 5
	// SiteCourseID is the front page pseudo course.
	SiteCourseID = 1
	// FrontPageCategoryID is excluded from public listings.
	FrontPageCategoryID = 1
)

// CallObserver receives the outcome of every upstream request.
type CallObserver interface {
	ObserveLMSCall(function, outcome string, duration time.Duration)
}

// Call outcomes reported to CallObserver.
const (
	OutcomeOK        = "ok"
	OutcomeProtocol  = "protocol_error"
	OutcomeTransport = "transport_error"
)

// Client calls LMS web-service functions with a single token. It holds only
// immutable configuration and is safe for concurrent use.
type Client struct {
	transport     *transport
	token         string
	loginService  string
	studentRoleID int
	logger        *zap.Logger
	observer      CallObserver
}

// Token returns the credential the client was built with.
func (c *Client) Token() string {
	return c.token
}

// Call invokes function with params and decodes the payload into out, which
// may be nil. Protocol failures are returned as *ProtocolError, network and
// HTTP failures as *TransportError.
func (c *Client) Call(ctx context.Context, function string, params Params, out any) error {
	payload, err := c.call(ctx, function, params)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrUnexpectedResponse, function, err)
	}
	return nil
}

func (c *Client) call(ctx context.Context, function string, params Params) (json.RawMessage, error) {
	form := EncodeForm(params)
	// Reserved keys win over caller params.
	form.Set("wsfunction", function)
	form.Set("moodlewsrestformat", restFormatJSON)
	form.Set("wstoken", c.token)

	start := time.Now()
	body, err := c.transport.postForm(ctx, function, form)
	if err != nil {
		c.observe(function, OutcomeTransport, start)
		c.logFailure(function, err)
		return nil, err
	}

	res, err := decodeResult(function, body)
	if err != nil {
		c.observe(function, OutcomeTransport, start)
		c.logFailure(function, err)
		return nil, err
	}
	if res.err != nil {
		c.observe(function, OutcomeProtocol, start)
		c.logFailure(function, res.err)
		return nil, res.err
	}

	c.observe(function, OutcomeOK, start)
	c.logger.Debug("lms call", zap.String("wsfunction", function), zap.Duration("latency", time.Since(start)))
	return res.payload, nil
}

type tokenResponse struct {
	Token        string `json:"token"`
	PrivateToken string `json:"privatetoken"`
	Error        string `json:"error"`
	ErrorCode    string `json:"errorcode"`
}

// Login exchanges credentials for a user token at the token endpoint. The
// client's own token is never sent.
func (c *Client) Login(ctx context.Context, username, password string) (*Token, error) {
	query := url.Values{}
	query.Set("username", username)
	query.Set("password", password)
	query.Set("service", c.loginService)

	start := time.Now()
	body, err := c.transport.get(ctx, tokenPath, query)
	if err != nil {
		c.observe("login", OutcomeTransport, start)
		c.logger.Warn("lms login request failed", zap.String("username", username), zap.Error(err))
		return nil, err
	}

	var resp tokenResponse
	if err := json.Unmarshal(body, &resp); err != nil || strings.TrimSpace(resp.Token) == "" {
		c.observe("login", OutcomeProtocol, start)
		reason := resp.Error
		if err != nil {
			reason = snippet(body, 200)
		}
		c.logger.Warn("lms login rejected",
			zap.String("username", username),
			zap.String("errorcode", resp.ErrorCode),
			zap.String("reason", reason),
		)
		return nil, &LoginError{Reason: reason}
	}

	c.observe("login", OutcomeOK, start)
	return &Token{Token: resp.Token, PrivateToken: resp.PrivateToken}, nil
}

// FetchFile downloads an LMS file server URL.
func (c *Client) FetchFile(ctx context.Context, fileURL string) ([]byte, string, error) {
	start := time.Now()
	body, contentType, err := c.transport.fetch(ctx, fileURL)
	if err != nil {
		c.observe("pluginfile", OutcomeTransport, start)
		c.logFailure("pluginfile", err)
		return nil, "", err
	}
	c.observe("pluginfile", OutcomeOK, start)
	return body, contentType, nil
}

// WithToken appends token to an LMS file URL so the file server accepts it.
func WithToken(fileURL, token string) string {
	sep := "?"
	if strings.Contains(fileURL, "?") {
		sep = "&"
	}
	return fileURL + sep + "token=" + url.QueryEscape(token)
}

func (c *Client) observe(function, outcome string, start time.Time) {
	if c.observer == nil {
		return
	}
	c.observer.ObserveLMSCall(function, outcome, time.Since(start))
}

func (c *Client) logFailure(function string, err error) {
	fields := []zap.Field{zap.String("wsfunction", function), zap.Error(err)}
	var te *TransportError
	if errors.As(err, &te) {
		fields = append(fields, zap.Int("status", te.StatusCode))
	}
	var pe *ProtocolError
	if errors.As(err, &pe) {
		fields = append(fields, zap.String("exception", pe.Exception), zap.String("errorcode", pe.ErrorCode))
	}
	c.logger.Warn("lms call failed", fields...)
}
