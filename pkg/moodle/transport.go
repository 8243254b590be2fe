package moodle

import (
	"compress/gzip"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
)

const (
	restPath  = "/webservice/rest/server.php"
	tokenPath = "/login/token.php"

	// DefaultTimeout bounds every upstream request.
	DefaultTimeout = 30 * time.Second

	maxBodyBytes = 32 << 20
)

// NewHTTPClient builds the HTTP client shared by every LMS client. When
// insecureTLS is set, self-signed LMS certificates are accepted.
func NewHTTPClient(timeout time.Duration, insecureTLS bool) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if insecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}
	// Encodings are negotiated and decoded in readBody.
	transport.DisableCompression = true
	return &http.Client{Timeout: timeout, Transport: transport}
}

type transport struct {
	baseURL string
	http    *http.Client
}

func (t *transport) postForm(ctx context.Context, function string, form url.Values) ([]byte, error) {
	endpoint := t.baseURL + restPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", function, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return t.do(req, function)
}

func (t *transport) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	endpoint := t.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build token request: %w", err)
	}
	return t.do(req, "")
}

// fetch retrieves an arbitrary LMS URL (file server assets) and returns the
// raw body with its content type.
func (t *transport) fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build file request: %w", err)
	}
	req.Header.Set("Accept-Encoding", "gzip, br")
	resp, err := t.http.Do(req)
	if err != nil {
		return nil, "", &TransportError{Endpoint: stripQuery(rawURL), Err: redactURL(err, stripQuery(rawURL))}
	}
	body, err := readBody(resp)
	if err != nil {
		return nil, "", &TransportError{Endpoint: stripQuery(rawURL), StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", &TransportError{Endpoint: stripQuery(rawURL), StatusCode: resp.StatusCode, Body: body}
	}
	return body, resp.Header.Get("Content-Type"), nil
}

func (t *transport) do(req *http.Request, function string) ([]byte, error) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip, br")
	endpoint := stripQuery(req.URL.String())

	resp, err := t.http.Do(req)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Function: function, Err: redactURL(err, endpoint)}
	}
	body, err := readBody(resp)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Function: function, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{Endpoint: endpoint, Function: function, StatusCode: resp.StatusCode, Body: body}
	}
	return body, nil
}

// readBody drains and closes the body so the connection can be reused.
func readBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip body: %w", err)
		}
		defer gz.Close()
		reader = gz
	case "br":
		reader = brotli.NewReader(resp.Body)
	}
	return io.ReadAll(io.LimitReader(reader, maxBodyBytes))
}

// redactURL replaces the request URL embedded in client errors, which may
// carry credentials in its query string.
func redactURL(err error, endpoint string) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		uerr.URL = endpoint
	}
	return err
}

// stripQuery drops the query string so tokens and passwords never reach logs.
func stripQuery(raw string) string {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		return raw[:i]
	}
	return raw
}
