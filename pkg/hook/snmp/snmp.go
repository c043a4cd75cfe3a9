// Package snmp implements the hook for devices managed over SNMP. Only a
// fixed projection of the system and interfaces groups is translated into
// parameter paths, and the transport is read-only: writes, subscriptions,
// and function calls are rejected.
//
// The package registers itself under the device type "snmp".
package snmp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gosnmp/gosnmp"

	"github.com/tr181-tools/tr181-go/pkg/faults"
	"github.com/tr181-tools/tr181-go/pkg/hook"
	"github.com/tr181-tools/tr181-go/pkg/log"
)

func init() {
	hook.Register("snmp", func() hook.Hook { return NewClient() })
}

var _ hook.Hook = (*Client)(nil)

// Defaults applied when the Authentication map leaves settings out.
const (
	DefaultPort           = 161
	DefaultCommunity      = "public"
	DefaultRetries        = 1
	DefaultMaxOids        = 60
	DefaultMaxRepetitions = 25
)

// Client speaks SNMP v1 or v2c to one agent.
type Client struct {
	logger log.Logger

	// newHandler builds the SNMP session. Tests replace it.
	newHandler func() gosnmp.Handler

	mu   sync.Mutex
	sess *session
}

// NewClient returns a disconnected client.
func NewClient() *Client {
	return &Client{
		logger:     log.NoopLogger{},
		newHandler: gosnmp.NewHandler,
	}
}

// SetLogger routes protocol events to l. Passing nil restores the no-op
// logger. Must be called before Connect.
func (c *Client) SetLogger(l log.Logger) {
	if l == nil {
		l = log.NoopLogger{}
	}
	c.logger = l
}

// Connect configures the SNMP session from cfg and probes the agent with a
// sysUpTime read. The Authentication map may carry "community", "version"
// ("1" or "2c"), "retries", "max_oids", and "max_repetitions". Connecting
// an already connected client is a no-op.
func (c *Client) Connect(ctx context.Context, cfg hook.DeviceConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	cfg = cfg.Normalized()

	c.mu.Lock()
	connected := c.sess != nil
	c.mu.Unlock()
	if connected {
		return nil
	}

	target, port, err := splitEndpoint(cfg.Endpoint)
	if err != nil {
		return faults.Configuration(fmt.Sprintf("invalid endpoint %q", cfg.Endpoint), err)
	}
	version, err := parseVersion(cfg.AuthString("version"))
	if err != nil {
		return faults.Configuration(err.Error(), nil)
	}
	community := cfg.AuthString("community")
	if community == "" {
		community = DefaultCommunity
	}
	maxOids := cfg.AuthInt("max_oids", DefaultMaxOids)
	if maxOids <= 0 {
		maxOids = DefaultMaxOids
	}

	handler := c.newHandler()
	handler.SetTarget(target)
	handler.SetPort(port)
	handler.SetVersion(version)
	handler.SetCommunity(community)
	handler.SetRetries(cfg.AuthInt("retries", DefaultRetries))
	handler.SetTimeout(cfg.TimeoutDuration())
	handler.SetMaxOids(maxOids)
	handler.SetMaxRepetitions(uint32(cfg.AuthInt("max_repetitions", DefaultMaxRepetitions)))

	if err := handler.Connect(); err != nil {
		return faults.Connection(fmt.Sprintf("opening the SNMP socket to %s failed", target), err).
			WithOperation("snmp", "connect")
	}

	sess := &session{
		handler: handler,
		version: version,
		maxOids: maxOids,
		connID:  uuid.NewString(),
		device:  cfg.Name,
		target:  fmt.Sprintf("%s:%d", target, port),
		logger:  c.logger,
	}

	// The socket is connectionless, so reachability only shows up on the
	// first request.
	if _, err := sess.get(ctx, "Status", []string{oidSysUpTime}); err != nil {
		handler.Close()
		return err
	}

	c.mu.Lock()
	c.sess = sess
	c.mu.Unlock()

	sess.logState("", "connected", sess.target)
	return nil
}

// Disconnect closes the SNMP socket. It is idempotent.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	sess := c.sess
	c.sess = nil
	c.mu.Unlock()
	if sess == nil {
		return nil
	}

	sess.logState("connected", "closed", "disconnect requested")
	sess.handler.Close()
	return nil
}

func (c *Client) session() (*session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil {
		return nil, hook.ErrNotConnected
	}
	return c.sess, nil
}

// ListParameterNames walks the OID subtrees overlapping prefix and returns
// the mapped paths below it, sub-objects included. A prefix outside the
// mapped groups fails with a validation fault.
func (c *Client) ListParameterNames(ctx context.Context, prefix string) ([]string, error) {
	sess, err := c.session()
	if err != nil {
		return nil, err
	}

	roots := rootsFor(prefix)
	if len(roots) == 0 {
		return nil, faults.Validation(fmt.Sprintf("no mapped parameters under %q", prefix), nil).
			WithOperation("snmp", "GetParameterNames")
	}

	seen := make(map[string]bool)
	var paths []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}

	for _, root := range roots {
		pdus, err := sess.walk(ctx, root)
		if err != nil {
			return nil, err
		}
		for _, pdu := range pdus {
			if missingPDU(pdu.Type) {
				continue
			}
			info, ok := infoForOID(pdu.Name)
			if !ok || !strings.HasPrefix(info.path, prefix) {
				continue
			}
			for _, ancestor := range objectAncestors(info.path) {
				if strings.HasPrefix(ancestor, prefix) && ancestor != prefix {
					add(ancestor)
				}
			}
			add(info.path)
		}
	}

	sort.Strings(paths)
	return paths, nil
}

// GetParameterValues reads the mapped paths with chunked get requests.
// Unmapped paths and parameters the agent does not answer are left out of
// the result.
func (c *Client) GetParameterValues(ctx context.Context, paths []string) (map[string]any, error) {
	sess, err := c.session()
	if err != nil {
		return nil, err
	}

	var oids []string
	for _, path := range paths {
		if info, ok := infoForPath(path); ok {
			oids = append(oids, info.oid)
		}
	}

	values := make(map[string]any)
	if len(oids) == 0 {
		return values, nil
	}

	pdus, err := sess.get(ctx, "GetParameterValues", oids)
	if err != nil {
		return nil, err
	}
	for _, pdu := range pdus {
		if missingPDU(pdu.Type) {
			continue
		}
		info, ok := infoForOID(pdu.Name)
		if !ok {
			continue
		}
		value, err := convertPDU(pdu, info.conv)
		if err != nil {
			return nil, faults.DataFormat(fmt.Sprintf("parameter %s: %v", info.path, err), err).
				WithOperation("snmp", "GetParameterValues")
		}
		values[info.path] = value
	}
	return values, nil
}

// GetParameterAttributes answers from the translation table without asking
// the agent. Every mapped parameter reports read-only access.
func (c *Client) GetParameterAttributes(ctx context.Context, paths []string) (map[string]hook.Attributes, error) {
	if _, err := c.session(); err != nil {
		return nil, err
	}

	attrs := make(map[string]hook.Attributes)
	for _, path := range paths {
		if info, ok := infoForPath(path); ok {
			attrs[path] = hook.Attributes{Type: info.typ, Access: "read-only"}
			continue
		}
		if isMappedObject(path) {
			attrs[path] = hook.Attributes{Type: "object", Access: "read-only"}
		}
	}
	return attrs, nil
}

// SetParameterValues always fails: the SNMP projection is read-only.
func (c *Client) SetParameterValues(ctx context.Context, values map[string]any) error {
	if _, err := c.session(); err != nil {
		return err
	}
	return readOnlyFault("SetParameterValues")
}

// SubscribeToEvent always fails: the SNMP projection is read-only.
func (c *Client) SubscribeToEvent(ctx context.Context, path string) error {
	if _, err := c.session(); err != nil {
		return err
	}
	return readOnlyFault("Subscribe")
}

// CallFunction always fails: the SNMP projection is read-only.
func (c *Client) CallFunction(ctx context.Context, path string, input map[string]any) (map[string]any, error) {
	if _, err := c.session(); err != nil {
		return nil, err
	}
	return nil, readOnlyFault("Call")
}

func readOnlyFault(op string) error {
	return faults.Protocol("read-only transport", hook.ErrUnsupported).WithOperation("snmp", op)
}

// session is the connected state shared by the operations.
type session struct {
	handler gosnmp.Handler
	version gosnmp.SnmpVersion
	maxOids int
	connID  string
	device  string
	target  string
	logger  log.Logger
}

// walk retrieves the subtree below root. SNMPv1 agents do not implement
// GetBulk, so they are walked with GetNext.
func (s *session) walk(ctx context.Context, root string) ([]gosnmp.SnmpPDU, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	s.logRPC(log.DirectionOut, "GetParameterNames", nil)

	var (
		pdus []gosnmp.SnmpPDU
		err  error
	)
	if s.version == gosnmp.Version1 {
		pdus, err = s.handler.WalkAll(root)
	} else {
		pdus, err = s.handler.BulkWalkAll(root)
	}
	if err != nil {
		return nil, snmpFault("GetParameterNames", fmt.Sprintf("walking %s failed", root), err)
	}

	elapsed := time.Since(start)
	s.logRPC(log.DirectionIn, "GetParameterNames", &elapsed)
	return pdus, nil
}

// get fetches oids in chunks of maxOids and returns the answered variables.
func (s *session) get(ctx context.Context, op string, oids []string) ([]gosnmp.SnmpPDU, error) {
	var all []gosnmp.SnmpPDU
	for i := 0; i < len(oids); i += s.maxOids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := i + s.maxOids
		if end > len(oids) {
			end = len(oids)
		}

		start := time.Now()
		s.logRPC(log.DirectionOut, op, nil)
		resp, err := s.handler.Get(oids[i:end])
		if err != nil {
			return nil, snmpFault(op, "SNMP get failed", err)
		}
		elapsed := time.Since(start)
		s.logRPC(log.DirectionIn, op, &elapsed)

		all = append(all, resp.Variables...)
	}
	return all, nil
}

// snmpFault classifies a request error, separating timeouts from transport
// failures.
func snmpFault(op, message string, err error) error {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return faults.Timeout(message, err).WithOperation("snmp", op)
	}
	return faults.Connection(message, err).WithOperation("snmp", op)
}

// splitEndpoint separates host and port, defaulting the port when the
// endpoint carries none.
func splitEndpoint(endpoint string) (string, uint16, error) {
	host, portStr, err := net.SplitHostPort(endpoint)
	if err != nil {
		return endpoint, DefaultPort, nil
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port %q", portStr)
	}
	return host, uint16(port), nil
}

func parseVersion(version string) (gosnmp.SnmpVersion, error) {
	switch version {
	case "1":
		return gosnmp.Version1, nil
	case "", "2", "2c":
		return gosnmp.Version2c, nil
	case "3":
		return 0, errors.New("SNMPv3 is not supported, configure version 1 or 2c")
	default:
		return 0, fmt.Errorf("unknown SNMP version %q", version)
	}
}

func (s *session) logRPC(direction log.Direction, operation string, elapsed *time.Duration) {
	s.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: s.connID,
		Direction:    direction,
		Layer:        log.LayerHook,
		Category:     log.CategoryMessage,
		Device:       s.device,
		RemoteAddr:   s.target,
		RPC:          &log.RPCEvent{Operation: operation, ProcessingTime: elapsed},
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
		RemoteAddr:   s.target,
		State:        &log.StateEvent{OldState: oldState, NewState: newState, Reason: reason},
	})
}
