package cwmp

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/tr181-tools/tr181-go/pkg/faults"
	"github.com/tr181-tools/tr181-go/pkg/hook"
	"github.com/tr181-tools/tr181-go/pkg/log"
)

func init() {
	hook.Register("cwmp", func() hook.Hook { return NewClient() })
}

// ErrConnectionClosed indicates an operation on a closed session.
var ErrConnectionClosed = errors.New("connection is closed")

// Compile-time interface check.
var _ hook.Hook = (*Client)(nil)

// Client is the session-protocol hook. One client holds at most one device
// session; Connect after Disconnect opens a fresh one.
type Client struct {
	logger log.Logger

	mu   sync.Mutex
	cfg  hook.DeviceConfig
	sess *session

	// Message ID generator, shared across reconnects so captures stay
	// unambiguous within one client.
	nextMsgID uint32
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

// nextMessageID allocates a request ID. It skips zero, which is reserved
// for device-initiated messages.
func (c *Client) nextMessageID() uint32 {
	id := atomic.AddUint32(&c.nextMsgID, 1)
	if id == NotificationMessageID {
		id = atomic.AddUint32(&c.nextMsgID, 1)
	}
	return id
}

// Connect dials the endpoint, verifies the TLS session, and runs the
// Hello/Auth exchange. Connecting an already-connected client is a no-op.
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

	address := withDefaultPort(cfg.Endpoint)
	serverName, _, err := net.SplitHostPort(address)
	if err != nil {
		return faults.Configuration(fmt.Sprintf("invalid endpoint %q", cfg.Endpoint), err)
	}

	tlsConf, err := newTLSConfig(serverName, cfg.TLS)
	if err != nil {
		return faults.Configuration(fmt.Sprintf("invalid TLS settings for device %q", cfg.Name), err)
	}

	// Apply the per-call timeout when the caller brought no deadline.
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.TimeoutDuration())
		defer cancel()
	}

	dialer := &net.Dialer{}
	rawConn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return faults.Connection(fmt.Sprintf("dialing %s failed", address), err).
			WithOperation("cwmp", "connect")
	}

	tlsConn := tls.Client(rawConn, tlsConf)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		rawConn.Close()
		return faults.Connection("TLS handshake failed", err).
			WithOperation("cwmp", "connect")
	}
	if err := verifyConnection(tlsConn.ConnectionState()); err != nil {
		tlsConn.Close()
		return faults.Connection("connection verification failed", err).
			WithOperation("cwmp", "connect")
	}

	sess := &session{
		conn:       tlsConn,
		framer:     NewFramerWithMaxSize(tlsConn, DefaultMaxMessageSize),
		connID:     uuid.NewString(),
		device:     cfg.Name,
		remoteAddr: tlsConn.RemoteAddr().String(),
		logger:     c.logger,
		pending:    make(map[uint32]chan *Message),
		closeCh:    make(chan struct{}),
	}
	sess.framer.SetLogger(c.logger, sess.connID, cfg.Name)

	go sess.readLoop()

	if err := c.handshake(ctx, sess, cfg); err != nil {
		sess.close()
		return err
	}

	c.mu.Lock()
	c.cfg = cfg
	c.sess = sess
	c.mu.Unlock()

	sess.logState("", "connected", sess.remoteAddr)
	return nil
}

// handshake runs the Hello/Auth exchange. The device either opens the
// session immediately or challenges with a salt and server nonce; the proof
// is then an HMAC over both nonces under the HKDF-derived session key.
func (c *Client) handshake(ctx context.Context, sess *session, cfg hook.DeviceConfig) error {
	clientNonce, err := NewNonce()
	if err != nil {
		return faults.Connection("generating the session nonce failed", err)
	}

	hello := &HelloPayload{
		Username:    cfg.AuthString("username"),
		ClientNonce: clientNonce,
	}
	resp, err := sess.roundTrip(ctx, cfg.TimeoutDuration(), c.nextMessageID(), OpHello, hello)
	if err != nil {
		return err
	}

	switch resp.Status {
	case StatusOK:
		return nil
	case StatusAuthRequired:
		// Challenge received, prove possession below.
	default:
		return statusFault(OpHello, resp)
	}

	password := cfg.AuthString("password")
	if password == "" {
		return faults.Authentication(
			fmt.Sprintf("device %q requires authentication and no password is configured", cfg.Name), nil)
	}

	var challenge HelloResponsePayload
	if err := resp.DecodePayload(&challenge); err != nil {
		return faults.Protocol("malformed authentication challenge", err)
	}
	if len(challenge.Salt) == 0 || len(challenge.ServerNonce) == 0 {
		return faults.Protocol("authentication challenge is missing salt or nonce", nil)
	}

	key, err := DeriveSessionKey([]byte(password), challenge.Salt)
	if err != nil {
		return faults.Authentication("deriving the session key failed", err)
	}
	proof := SessionProof(key, clientNonce, challenge.ServerNonce)

	authResp, err := sess.roundTrip(ctx, cfg.TimeoutDuration(), c.nextMessageID(), OpAuth,
		&AuthPayload{Proof: proof})
	if err != nil {
		return err
	}
	if !authResp.Status.IsOK() {
		return faults.Authentication(
			fmt.Sprintf("device %q rejected the session proof", cfg.Name), nil)
	}
	return nil
}

// Disconnect sends a best-effort Bye and tears the session down. It is
// idempotent and returns nil on a never-connected client.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	sess := c.sess
	c.sess = nil
	c.mu.Unlock()
	if sess == nil {
		return nil
	}

	// Bye is a courtesy; the device notices the close either way.
	if data, err := EncodeMessage(c.nextMessageID(), OpBye, StatusOK, nil); err == nil {
		_ = sess.send(data)
	}

	sess.logState("connected", "closed", "disconnect")
	sess.close()
	return nil
}

// ListParameterNames returns the entries directly under prefix.
func (c *Client) ListParameterNames(ctx context.Context, prefix string) ([]string, error) {
	resp, err := c.call(ctx, OpGetParameterNames, &GetParameterNamesPayload{Prefix: prefix})
	if err != nil {
		return nil, err
	}
	var out GetParameterNamesResponsePayload
	if err := resp.DecodePayload(&out); err != nil {
		return nil, faults.Protocol("malformed GetParameterNames response", err)
	}
	return out.Paths, nil
}

// GetParameterValues fetches current values. Paths the device could not
// read are absent from the result.
func (c *Client) GetParameterValues(ctx context.Context, paths []string) (map[string]any, error) {
	resp, err := c.call(ctx, OpGetParameterValues, &GetParameterValuesPayload{Paths: paths})
	if err != nil {
		return nil, err
	}
	var out GetParameterValuesResponsePayload
	if err := resp.DecodePayload(&out); err != nil {
		return nil, faults.Protocol("malformed GetParameterValues response", err)
	}
	return NormalizeValues(out.Values), nil
}

// GetParameterAttributes fetches type, access, and notification metadata.
func (c *Client) GetParameterAttributes(ctx context.Context, paths []string) (map[string]hook.Attributes, error) {
	resp, err := c.call(ctx, OpGetParameterAttributes, &GetParameterAttributesPayload{Paths: paths})
	if err != nil {
		return nil, err
	}
	var out GetParameterAttributesResponsePayload
	if err := resp.DecodePayload(&out); err != nil {
		return nil, faults.Protocol("malformed GetParameterAttributes response", err)
	}

	attrs := make(map[string]hook.Attributes, len(out.Attributes))
	for path, wa := range out.Attributes {
		attrs[path] = hook.Attributes{
			Type:         wa.Type,
			Access:       wa.Access,
			Notification: wa.Notification,
		}
	}
	return attrs, nil
}

// SetParameterValues writes parameter values. The device applies all or
// none.
func (c *Client) SetParameterValues(ctx context.Context, values map[string]any) error {
	_, err := c.call(ctx, OpSetParameterValues, &SetParameterValuesPayload{Values: values})
	return err
}

// SubscribeToEvent arms change notification for an event path.
func (c *Client) SubscribeToEvent(ctx context.Context, path string) error {
	_, err := c.call(ctx, OpSubscribe, &SubscribePayload{Path: path})
	return err
}

// CallFunction invokes a device function and returns its named outputs.
func (c *Client) CallFunction(ctx context.Context, path string, in map[string]any) (map[string]any, error) {
	resp, err := c.call(ctx, OpCall, &CallPayload{Path: path, Input: in})
	if err != nil {
		return nil, err
	}
	var out CallResponsePayload
	if err := resp.DecodePayload(&out); err != nil {
		return nil, faults.Protocol("malformed Call response", err)
	}
	return NormalizeValues(out.Output), nil
}

// call issues one request on the current session and maps non-OK statuses
// onto the fault taxonomy.
func (c *Client) call(ctx context.Context, op Operation, payload any) (*Message, error) {
	c.mu.Lock()
	sess := c.sess
	timeout := c.cfg.TimeoutDuration()
	c.mu.Unlock()
	if sess == nil {
		return nil, hook.ErrNotConnected
	}

	resp, err := sess.roundTrip(ctx, timeout, c.nextMessageID(), op, payload)
	if err != nil {
		return nil, err
	}
	if !resp.Status.IsOK() {
		return nil, statusFault(op, resp)
	}
	return resp, nil
}

// statusFault maps a non-OK response status onto the fault taxonomy.
func statusFault(op Operation, resp *Message) error {
	msg := fmt.Sprintf("%s failed with status %s", op, resp.Status)
	if text := resp.ErrorMessage(); text != "" {
		msg = fmt.Sprintf("%s: %s", msg, text)
	}

	switch resp.Status {
	case StatusAuthRequired, StatusAuthFailed:
		return faults.Authentication(msg, nil)
	case StatusUnknownPath, StatusReadOnly, StatusInvalidValue:
		return faults.Validation(msg, nil)
	default:
		return faults.Protocol(msg, nil)
	}
}

// session is the per-connection state. Connect builds a fresh one so a
// reconnected client never sees stale channels.
type session struct {
	conn       *tls.Conn
	framer     *Framer
	connID     string
	device     string
	remoteAddr string
	logger     log.Logger

	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[uint32]chan *Message

	closeOnce sync.Once
	closeCh   chan struct{}
}

// roundTrip sends one request and waits for the matching response.
func (s *session) roundTrip(ctx context.Context, timeout time.Duration, msgID uint32, op Operation, payload any) (*Message, error) {
	data, err := EncodeMessage(msgID, op, StatusOK, payload)
	if err != nil {
		return nil, faults.Protocol(fmt.Sprintf("encoding the %s request failed", op), err)
	}

	respCh := make(chan *Message, 1)
	s.pendingMu.Lock()
	s.pending[msgID] = respCh
	s.pendingMu.Unlock()

	defer func() {
		s.pendingMu.Lock()
		delete(s.pending, msgID)
		s.pendingMu.Unlock()
	}()

	start := time.Now()
	s.logRPC(log.DirectionOut, msgID, op, nil, nil)

	if err := s.send(data); err != nil {
		return nil, faults.Connection(fmt.Sprintf("sending the %s request failed", op), err).
			WithOperation("cwmp", op.String())
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(timeout):
		return nil, faults.Timeout(fmt.Sprintf("%s timed out after %s", op, timeout), nil).
			WithOperation("cwmp", op.String())
	case resp, ok := <-respCh:
		if !ok {
			return nil, faults.Connection("connection closed while waiting for a response", nil).
				WithOperation("cwmp", op.String())
		}
		status := uint8(resp.Status)
		elapsed := time.Since(start)
		s.logRPC(log.DirectionIn, msgID, op, &status, &elapsed)
		return resp, nil
	}
}

// send writes one frame unless the session is already closed.
func (s *session) send(data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	select {
	case <-s.closeCh:
		return ErrConnectionClosed
	default:
	}
	return s.framer.WriteFrame(data)
}

// readLoop delivers responses to their waiting callers. It exits on the
// first read error; close triggers one by closing the connection.
func (s *session) readLoop() {
	for {
		data, err := s.framer.ReadFrame()
		if err != nil {
			select {
			case <-s.closeCh:
				// Orderly shutdown.
			default:
				s.logError(fmt.Sprintf("read failed: %v", err), "read-loop")
				s.logState("connected", "closed", err.Error())
			}
			s.close()
			s.failPending()
			return
		}

		msg, err := DecodeMessage(data)
		if err != nil {
			s.logError(fmt.Sprintf("undecodable frame: %v", err), "read-loop")
			continue
		}

		s.pendingMu.Lock()
		ch, ok := s.pending[msg.MessageID]
		s.pendingMu.Unlock()
		if !ok {
			// Device-initiated message (event notification or stray
			// reply). The hook surface has no delivery path for these;
			// capture and drop.
			status := uint8(msg.Status)
			s.logRPC(log.DirectionIn, msg.MessageID, msg.Operation, &status, nil)
			continue
		}

		select {
		case ch <- msg:
		default:
		}
	}
}

// close shuts the connection down once. Safe to call from any goroutine.
func (s *session) close() {
	s.closeOnce.Do(func() {
		close(s.closeCh)
		s.conn.Close()
	})
}

// failPending wakes every waiting caller with a closed channel.
func (s *session) failPending() {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	for id, ch := range s.pending {
		close(ch)
		delete(s.pending, id)
	}
}

func (s *session) logRPC(dir log.Direction, msgID uint32, op Operation, status *uint8, elapsed *time.Duration) {
	s.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: s.connID,
		Direction:    dir,
		Layer:        log.LayerSession,
		Category:     log.CategoryMessage,
		Device:       s.device,
		RemoteAddr:   s.remoteAddr,
		RPC: &log.RPCEvent{
			MessageID:      msgID,
			Operation:      op.String(),
			Status:         status,
			ProcessingTime: elapsed,
		},
	})
}

func (s *session) logState(oldState, newState, reason string) {
	s.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: s.connID,
		Direction:    log.DirectionOut,
		Layer:        log.LayerSession,
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
		Layer:        log.LayerSession,
		Category:     log.CategoryError,
		Device:       s.device,
		RemoteAddr:   s.remoteAddr,
		Error: &log.ErrorEvent{
			Layer:   log.LayerSession,
			Message: message,
			Context: context,
		},
	})
}
