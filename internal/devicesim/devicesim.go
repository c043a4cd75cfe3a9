// Package devicesim runs an in-process device speaking the cwmp session
// protocol. Hook and extractor tests dial it over real TLS on a loopback
// listener, so the whole stack from framing to fault mapping is exercised
// without hardware.
package devicesim

import (
	"crypto/tls"
	"fmt"
	"net"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tr181-tools/tr181-go/pkg/cert"
	"github.com/tr181-tools/tr181-go/pkg/hook/cwmp"
)

// Parameter is one leaf in the simulated namespace.
type Parameter struct {
	// Type is the protocol-level type name ("xsd:string", "xsd:unsignedInt", ...).
	Type string

	// Access is the protocol-level access string ("read-only", "read-write").
	Access string

	// Notification is the change-notification level.
	Notification int

	// Value is the current value. Nil means the parameter exists but is not
	// readable; value requests skip it.
	Value any
}

// Device is a scriptable simulated device. Populate the namespace, Start
// it, and point a cwmp client at Addr(). The zero value is not usable; use
// New.
type Device struct {
	// Username and Password enable session authentication when Password is
	// non-empty. Set before Start.
	Username string
	Password string

	mu     sync.Mutex
	params map[string]Parameter
	events map[string]bool
	funcs  map[string]map[string]any

	subscribed []string
	called     []string

	failNext  map[cwmp.Operation]cwmp.Status
	stallNext map[cwmp.Operation]time.Duration

	ln        net.Listener
	conns     map[net.Conn]bool
	wg        sync.WaitGroup
	closeOnce sync.Once
	closed    chan struct{}
}

// New creates an empty device.
func New() *Device {
	return &Device{
		params:    make(map[string]Parameter),
		events:    make(map[string]bool),
		funcs:     make(map[string]map[string]any),
		failNext:  make(map[cwmp.Operation]cwmp.Status),
		stallNext: make(map[cwmp.Operation]time.Duration),
		conns:     make(map[net.Conn]bool),
		closed:    make(chan struct{}),
	}
}

// SetParameter installs or replaces one leaf parameter.
func (d *Device) SetParameter(path string, p Parameter) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.params[path] = p
}

// AddEvent makes an event path subscribable.
func (d *Device) AddEvent(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events[path] = true
}

// AddFunction makes a function path callable with a canned output.
func (d *Device) AddFunction(path string, output map[string]any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.funcs[path] = output
}

// FailNext makes the next request for op fail with the given status.
func (d *Device) FailNext(op cwmp.Operation, status cwmp.Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failNext[op] = status
}

// StallNext delays the response to the next request for op. Used to drive
// client-side timeouts.
func (d *Device) StallNext(op cwmp.Operation, delay time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stallNext[op] = delay
}

// Subscribed returns the event paths subscribed so far.
func (d *Device) Subscribed() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.subscribed...)
}

// Called returns the function paths invoked so far.
func (d *Device) Called() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.called...)
}

// Start listens on a loopback port with a fresh self-signed certificate.
func (d *Device) Start() error {
	serverCert, err := cert.SelfSigned("devicesim")
	if err != nil {
		return fmt.Errorf("failed to create server certificate: %w", err)
	}

	ln, err := tls.Listen("tcp", "127.0.0.1:0", &tls.Config{
		Certificates: []tls.Certificate{serverCert},
		MinVersion:   tls.VersionTLS13,
		NextProtos:   []string{cwmp.ALPNProtocol},
	})
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	d.ln = ln

	d.wg.Add(1)
	go d.acceptLoop()
	return nil
}

// Addr returns the listen address (host:port). Valid after Start.
func (d *Device) Addr() string {
	return d.ln.Addr().String()
}

// Close stops the listener and all open connections.
func (d *Device) Close() {
	d.closeOnce.Do(func() {
		close(d.closed)
		if d.ln != nil {
			d.ln.Close()
		}
		d.mu.Lock()
		for conn := range d.conns {
			conn.Close()
		}
		d.mu.Unlock()
		d.wg.Wait()
	})
}

func (d *Device) acceptLoop() {
	defer d.wg.Done()
	for {
		conn, err := d.ln.Accept()
		if err != nil {
			return
		}
		d.mu.Lock()
		d.conns[conn] = true
		d.mu.Unlock()

		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			defer func() {
				d.mu.Lock()
				delete(d.conns, conn)
				d.mu.Unlock()
				conn.Close()
			}()
			d.handleConn(conn)
		}()
	}
}

// connState is the per-connection authentication progress.
type connState struct {
	authed      bool
	clientNonce []byte
	serverNonce []byte
	salt        []byte
}

func (d *Device) handleConn(conn net.Conn) {
	framer := cwmp.NewFramerWithMaxSize(conn, cwmp.DefaultMaxMessageSize)
	state := &connState{}

	for {
		data, err := framer.ReadFrame()
		if err != nil {
			return
		}
		msg, err := cwmp.DecodeMessage(data)
		if err != nil {
			continue
		}

		if delay, ok := d.takeStall(msg.Operation); ok {
			select {
			case <-time.After(delay):
			case <-d.closed:
				return
			}
		}
		if status, ok := d.takeFailure(msg.Operation); ok {
			d.reply(framer, msg, status, &cwmp.ErrorPayload{Message: "scripted failure"})
			continue
		}

		switch msg.Operation {
		case cwmp.OpHello:
			d.handleHello(framer, msg, state)
		case cwmp.OpAuth:
			d.handleAuth(framer, msg, state)
		case cwmp.OpBye:
			return
		default:
			if !state.authed {
				d.reply(framer, msg, cwmp.StatusAuthRequired,
					&cwmp.ErrorPayload{Message: "session not authenticated"})
				continue
			}
			d.handleOp(framer, msg)
		}
	}
}

func (d *Device) handleHello(framer *cwmp.Framer, msg *cwmp.Message, state *connState) {
	var hello cwmp.HelloPayload
	if err := msg.DecodePayload(&hello); err != nil {
		d.reply(framer, msg, cwmp.StatusInternalError, &cwmp.ErrorPayload{Message: err.Error()})
		return
	}

	if d.Username != "" && hello.Username != d.Username {
		d.reply(framer, msg, cwmp.StatusAuthFailed, &cwmp.ErrorPayload{Message: "unknown user"})
		return
	}

	if d.Password == "" {
		state.authed = true
		d.reply(framer, msg, cwmp.StatusOK, nil)
		return
	}

	salt, err := cwmp.NewSalt()
	if err != nil {
		d.reply(framer, msg, cwmp.StatusInternalError, &cwmp.ErrorPayload{Message: err.Error()})
		return
	}
	serverNonce, err := cwmp.NewNonce()
	if err != nil {
		d.reply(framer, msg, cwmp.StatusInternalError, &cwmp.ErrorPayload{Message: err.Error()})
		return
	}

	state.clientNonce = hello.ClientNonce
	state.salt = salt
	state.serverNonce = serverNonce
	d.reply(framer, msg, cwmp.StatusAuthRequired,
		&cwmp.HelloResponsePayload{Salt: salt, ServerNonce: serverNonce})
}

func (d *Device) handleAuth(framer *cwmp.Framer, msg *cwmp.Message, state *connState) {
	if state.salt == nil {
		d.reply(framer, msg, cwmp.StatusAuthFailed, &cwmp.ErrorPayload{Message: "no challenge outstanding"})
		return
	}

	var auth cwmp.AuthPayload
	if err := msg.DecodePayload(&auth); err != nil {
		d.reply(framer, msg, cwmp.StatusAuthFailed, &cwmp.ErrorPayload{Message: err.Error()})
		return
	}

	key, err := cwmp.DeriveSessionKey([]byte(d.Password), state.salt)
	if err != nil {
		d.reply(framer, msg, cwmp.StatusInternalError, &cwmp.ErrorPayload{Message: err.Error()})
		return
	}
	if !cwmp.VerifySessionProof(key, state.clientNonce, state.serverNonce, auth.Proof) {
		d.reply(framer, msg, cwmp.StatusAuthFailed, &cwmp.ErrorPayload{Message: "bad proof"})
		return
	}

	state.authed = true
	d.reply(framer, msg, cwmp.StatusOK, nil)
}

func (d *Device) handleOp(framer *cwmp.Framer, msg *cwmp.Message) {
	switch msg.Operation {
	case cwmp.OpGetParameterNames:
		var req cwmp.GetParameterNamesPayload
		if err := msg.DecodePayload(&req); err != nil {
			d.reply(framer, msg, cwmp.StatusInternalError, &cwmp.ErrorPayload{Message: err.Error()})
			return
		}
		children, known := d.childrenOf(req.Prefix)
		if !known {
			d.reply(framer, msg, cwmp.StatusUnknownPath,
				&cwmp.ErrorPayload{Message: fmt.Sprintf("no such namespace: %s", req.Prefix)})
			return
		}
		d.reply(framer, msg, cwmp.StatusOK,
			&cwmp.GetParameterNamesResponsePayload{Paths: children})

	case cwmp.OpGetParameterValues:
		var req cwmp.GetParameterValuesPayload
		if err := msg.DecodePayload(&req); err != nil {
			d.reply(framer, msg, cwmp.StatusInternalError, &cwmp.ErrorPayload{Message: err.Error()})
			return
		}
		values := make(map[string]any)
		d.mu.Lock()
		for _, path := range req.Paths {
			if p, ok := d.params[path]; ok && p.Value != nil {
				values[path] = p.Value
			}
		}
		d.mu.Unlock()
		d.reply(framer, msg, cwmp.StatusOK,
			&cwmp.GetParameterValuesResponsePayload{Values: values})

	case cwmp.OpGetParameterAttributes:
		var req cwmp.GetParameterAttributesPayload
		if err := msg.DecodePayload(&req); err != nil {
			d.reply(framer, msg, cwmp.StatusInternalError, &cwmp.ErrorPayload{Message: err.Error()})
			return
		}
		attrs := make(map[string]cwmp.ParameterAttributes)
		d.mu.Lock()
		for _, path := range req.Paths {
			if p, ok := d.params[path]; ok {
				attrs[path] = cwmp.ParameterAttributes{
					Type:         p.Type,
					Access:       p.Access,
					Notification: p.Notification,
				}
				continue
			}
			if strings.HasSuffix(path, ".") && d.knownPrefixLocked(path) {
				attrs[path] = cwmp.ParameterAttributes{Type: "object", Access: "read-only"}
			}
		}
		d.mu.Unlock()
		d.reply(framer, msg, cwmp.StatusOK,
			&cwmp.GetParameterAttributesResponsePayload{Attributes: attrs})

	case cwmp.OpSetParameterValues:
		var req cwmp.SetParameterValuesPayload
		if err := msg.DecodePayload(&req); err != nil {
			d.reply(framer, msg, cwmp.StatusInternalError, &cwmp.ErrorPayload{Message: err.Error()})
			return
		}
		d.mu.Lock()
		for path, value := range req.Values {
			p, ok := d.params[path]
			if !ok {
				d.mu.Unlock()
				d.reply(framer, msg, cwmp.StatusUnknownPath,
					&cwmp.ErrorPayload{Message: fmt.Sprintf("no such parameter: %s", path)})
				return
			}
			if p.Access != "read-write" && p.Access != "write-only" {
				d.mu.Unlock()
				d.reply(framer, msg, cwmp.StatusReadOnly,
					&cwmp.ErrorPayload{Message: fmt.Sprintf("parameter is read-only: %s", path)})
				return
			}
			p.Value = cwmp.NormalizeValue(value)
			d.params[path] = p
		}
		d.mu.Unlock()
		d.reply(framer, msg, cwmp.StatusOK, nil)

	case cwmp.OpSubscribe:
		var req cwmp.SubscribePayload
		if err := msg.DecodePayload(&req); err != nil {
			d.reply(framer, msg, cwmp.StatusInternalError, &cwmp.ErrorPayload{Message: err.Error()})
			return
		}
		d.mu.Lock()
		known := d.events[req.Path]
		if known {
			d.subscribed = append(d.subscribed, req.Path)
		}
		d.mu.Unlock()
		if !known {
			d.reply(framer, msg, cwmp.StatusUnknownPath,
				&cwmp.ErrorPayload{Message: fmt.Sprintf("no such event: %s", req.Path)})
			return
		}
		d.reply(framer, msg, cwmp.StatusOK, nil)

	case cwmp.OpCall:
		var req cwmp.CallPayload
		if err := msg.DecodePayload(&req); err != nil {
			d.reply(framer, msg, cwmp.StatusInternalError, &cwmp.ErrorPayload{Message: err.Error()})
			return
		}
		d.mu.Lock()
		output, known := d.funcs[req.Path]
		if known {
			d.called = append(d.called, req.Path)
		}
		d.mu.Unlock()
		if !known {
			d.reply(framer, msg, cwmp.StatusUnknownPath,
				&cwmp.ErrorPayload{Message: fmt.Sprintf("no such function: %s", req.Path)})
			return
		}
		d.reply(framer, msg, cwmp.StatusOK, &cwmp.CallResponsePayload{Output: output})

	default:
		d.reply(framer, msg, cwmp.StatusUnsupported,
			&cwmp.ErrorPayload{Message: fmt.Sprintf("operation not implemented: %s", msg.Operation)})
	}
}

// childrenOf lists the immediate children of prefix, objects with a
// trailing dot. The second return is false when nothing lives under the
// prefix.
func (d *Device) childrenOf(prefix string) ([]string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	seen := make(map[string]bool)
	var children []string
	known := false

	for path := range d.params {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		known = true
		rest := strings.TrimPrefix(path, prefix)
		if rest == "" {
			continue
		}
		var child string
		if idx := strings.Index(rest, "."); idx >= 0 {
			child = prefix + rest[:idx+1]
		} else {
			child = path
		}
		if !seen[child] {
			seen[child] = true
			children = append(children, child)
		}
	}

	sort.Strings(children)
	return children, known
}

// knownPrefixLocked reports whether any parameter lives under prefix.
// Callers hold d.mu.
func (d *Device) knownPrefixLocked(prefix string) bool {
	for path := range d.params {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func (d *Device) takeFailure(op cwmp.Operation) (cwmp.Status, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	status, ok := d.failNext[op]
	if ok {
		delete(d.failNext, op)
	}
	return status, ok
}

func (d *Device) takeStall(op cwmp.Operation) (time.Duration, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delay, ok := d.stallNext[op]
	if ok {
		delete(d.stallNext, op)
	}
	return delay, ok
}

func (d *Device) reply(framer *cwmp.Framer, req *cwmp.Message, status cwmp.Status, payload any) {
	data, err := cwmp.EncodeMessage(req.MessageID, req.Operation, status, payload)
	if err != nil {
		return
	}
	_ = framer.WriteFrame(data)
}
