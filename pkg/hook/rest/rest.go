// Package rest implements the hook for devices managed over an HTTP+JSON
// API. The API is stateless; Connect probes the status endpoint and the
// remaining operations are independent requests. Listing responses from
// these devices carry full dotted paths, so they pair with the flat
// extractor. Credentials come from the Authentication map: a "token" entry
// selects bearer auth, otherwise "username"/"password" select basic auth.
//
// The package registers itself under the device type "rest".
package rest

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tr181-tools/tr181-go/pkg/cert"
	"github.com/tr181-tools/tr181-go/pkg/faults"
	"github.com/tr181-tools/tr181-go/pkg/hook"
	"github.com/tr181-tools/tr181-go/pkg/log"
)

func init() {
	hook.Register("rest", func() hook.Hook { return NewClient() })
}

// Compile-time interface check.
var _ hook.Hook = (*Client)(nil)

const userAgent = "tr181-audit"

// Client is the HTTP hook. One client holds at most one device binding;
// Connect after Disconnect opens a fresh one.
type Client struct {
	logger log.Logger

	mu   sync.Mutex
	sess *session
}

// NewClient returns an unconnected client with protocol capture disabled.
func NewClient() *Client {
	return &Client{logger: log.NoopLogger{}}
}

// SetLogger installs a protocol capture logger. Call before Connect; a nil
// logger disables capture.
func (c *Client) SetLogger(logger log.Logger) {
	if logger == nil {
		logger = log.NoopLogger{}
	}
	c.logger = logger
}

// Connect validates the configuration, builds the HTTP client, and probes
// the status endpoint. Connecting an already-connected client is a no-op.
func (c *Client) Connect(ctx context.Context, cfg hook.DeviceConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	cfg = cfg.Normalized()

	c.mu.Lock()
	if c.sess != nil {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	base, err := parseEndpoint(cfg.Endpoint)
	if err != nil {
		return faults.Configuration(fmt.Sprintf("invalid endpoint %q", cfg.Endpoint), err)
	}

	tlsConf, err := newTLSConfig(cfg.TLS)
	if err != nil {
		return faults.Configuration(fmt.Sprintf("invalid TLS settings for device %q", cfg.Name), err)
	}

	sess := &session{
		httpc: &http.Client{
			Timeout: cfg.TimeoutDuration(),
			Transport: &http.Transport{
				Proxy:           http.ProxyFromEnvironment,
				TLSClientConfig: tlsConf,
			},
		},
		base:       base,
		connID:     uuid.NewString(),
		device:     cfg.Name,
		remoteAddr: base.Host,
		username:   cfg.AuthString("username"),
		password:   cfg.AuthString("password"),
		token:      cfg.AuthString("token"),
		logger:     c.logger,
	}

	var status statusResponse
	if err := sess.do(ctx, "Status", http.MethodGet, statusPath, nil, nil, &status); err != nil {
		sess.httpc.CloseIdleConnections()
		return err
	}

	c.mu.Lock()
	c.sess = sess
	c.mu.Unlock()

	sess.logState("", "connected", base.Host)
	return nil
}

// Disconnect drops the device binding. It is idempotent and returns nil on
// a never-connected client.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	sess := c.sess
	c.sess = nil
	c.mu.Unlock()
	if sess == nil {
		return nil
	}

	sess.logState("connected", "closed", "disconnect")
	sess.httpc.CloseIdleConnections()
	return nil
}

// ListParameterNames returns the paths the device announces under prefix.
// REST devices answer with complete flattened subtrees.
func (c *Client) ListParameterNames(ctx context.Context, prefix string) ([]string, error) {
	sess, err := c.session()
	if err != nil {
		return nil, err
	}

	query := url.Values{"prefix": []string{prefix}}
	var out listResponse
	if err := sess.do(ctx, "GetParameterNames", http.MethodGet, parametersPath, query, nil, &out); err != nil {
		return nil, err
	}
	return out.Paths, nil
}

// GetParameterValues fetches current values. Paths the device could not
// read are absent from the result. JSON numbers arrive as float64.
func (c *Client) GetParameterValues(ctx context.Context, paths []string) (map[string]any, error) {
	sess, err := c.session()
	if err != nil {
		return nil, err
	}

	var out valuesResponse
	if err := sess.do(ctx, "GetParameterValues", http.MethodPost, valuesPath, nil,
		&pathsRequest{Paths: paths}, &out); err != nil {
		return nil, err
	}
	return out.Values, nil
}

// GetParameterAttributes fetches type, access, and notification metadata.
func (c *Client) GetParameterAttributes(ctx context.Context, paths []string) (map[string]hook.Attributes, error) {
	sess, err := c.session()
	if err != nil {
		return nil, err
	}

	var out attributesResponse
	if err := sess.do(ctx, "GetParameterAttributes", http.MethodPost, attributesPath, nil,
		&pathsRequest{Paths: paths}, &out); err != nil {
		return nil, err
	}

	attrs := make(map[string]hook.Attributes, len(out.Attributes))
	for path, a := range out.Attributes {
		attrs[path] = hook.Attributes{
			Type:         a.Type,
			Access:       a.Access,
			Notification: a.Notification,
		}
	}
	return attrs, nil
}

// SetParameterValues writes parameter values. The device applies all or
// none.
func (c *Client) SetParameterValues(ctx context.Context, values map[string]any) error {
	sess, err := c.session()
	if err != nil {
		return err
	}
	return sess.do(ctx, "SetParameterValues", http.MethodPut, parametersPath, nil,
		&valuesRequest{Values: values}, nil)
}

// SubscribeToEvent arms change notification for an event path.
func (c *Client) SubscribeToEvent(ctx context.Context, path string) error {
	sess, err := c.session()
	if err != nil {
		return err
	}
	return sess.do(ctx, "Subscribe", http.MethodPost, subscriptionsPath, nil,
		&subscribeRequest{Path: path}, nil)
}

// CallFunction invokes a device function and returns its named outputs.
func (c *Client) CallFunction(ctx context.Context, path string, in map[string]any) (map[string]any, error) {
	sess, err := c.session()
	if err != nil {
		return nil, err
	}

	var out callResponse
	if err := sess.do(ctx, "Call", http.MethodPost, callPath, nil,
		&callRequest{Path: path, Input: in}, &out); err != nil {
		return nil, err
	}
	return out.Output, nil
}

func (c *Client) session() (*session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil {
		return nil, hook.ErrNotConnected
	}
	return c.sess, nil
}

// session is the per-connection state. Connect builds a fresh one so a
// reconnected client never reuses a stale transport.
type session struct {
	httpc      *http.Client
	base       *url.URL
	connID     string
	device     string
	remoteAddr string

	username string
	password string
	token    string

	logger log.Logger
}

// do issues one request and decodes the JSON response into out when out is
// non-nil. Non-2xx statuses map onto the fault taxonomy.
func (s *session) do(ctx context.Context, op, method, path string, query url.Values, in, out any) error {
	u := s.base.JoinPath(path)
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return faults.Protocol(fmt.Sprintf("encoding the %s request failed", op), err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return faults.Configuration(fmt.Sprintf("building the %s request failed", op), err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	// Bearer token wins over basic credentials when both are configured.
	switch {
	case s.token != "":
		req.Header.Set("Authorization", "Bearer "+s.token)
	case s.username != "" || s.password != "":
		req.SetBasicAuth(s.username, s.password)
	}

	start := time.Now()
	s.logRPC(log.DirectionOut, op, nil)

	resp, err := s.httpc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var uerr *url.Error
		if errors.As(err, &uerr) && uerr.Timeout() {
			return faults.Timeout(fmt.Sprintf("%s timed out", op), err).
				WithOperation("rest", op)
		}
		return faults.Connection(fmt.Sprintf("%s request failed", op), err).
			WithOperation("rest", op)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		fault := httpFault(op, resp)
		s.logError(fault.Error(), op)
		return fault
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return faults.DataFormat(fmt.Sprintf("decoding the %s response failed", op), err).
				WithOperation("rest", op)
		}
	}

	elapsed := time.Since(start)
	s.logRPC(log.DirectionIn, op, &elapsed)
	return nil
}

func (s *session) logRPC(dir log.Direction, op string, elapsed *time.Duration) {
	s.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: s.connID,
		Direction:    dir,
		Layer:        log.LayerHook,
		Category:     log.CategoryMessage,
		Device:       s.device,
		RemoteAddr:   s.remoteAddr,
		RPC: &log.RPCEvent{
			Operation:      op,
			ProcessingTime: elapsed,
		},
	})
}

func (s *session) logState(oldState, newState, reason string) {
	s.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: s.connID,
		Direction:    log.DirectionOut,
		Layer:        log.LayerHook,
		Category:     log.CategoryState,
		Device:       s.device,
		RemoteAddr:   s.remoteAddr,
		State: &log.StateEvent{
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	})
}

func (s *session) logError(message, context string) {
	s.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: s.connID,
		Direction:    log.DirectionIn,
		Layer:        log.LayerHook,
		Category:     log.CategoryError,
		Device:       s.device,
		RemoteAddr:   s.remoteAddr,
		Error: &log.ErrorEvent{
			Layer:   log.LayerHook,
			Message: message,
			Context: context,
		},
	})
}

// parseEndpoint turns the configured endpoint into a base URL. A bare
// host:port defaults to HTTPS.
func parseEndpoint(endpoint string) (*url.URL, error) {
	raw := endpoint
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("endpoint has no host")
	}
	return u, nil
}

// newTLSConfig builds the client TLS configuration from the optional
// per-device settings.
func newTLSConfig(settings *hook.TLSSettings) (*tls.Config, error) {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if err := cert.ApplySettings(cfg, settings); err != nil {
		return nil, err
	}
	return cfg, nil
}
