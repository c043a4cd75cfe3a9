package snmp

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gosnmp/gosnmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tr181-tools/tr181-go/pkg/faults"
	"github.com/tr181-tools/tr181-go/pkg/hook"
	"github.com/tr181-tools/tr181-go/pkg/log"
)

// fakeHandler stands in for a gosnmp session. Only the methods the client
// uses are implemented; calling anything else panics through the embedded
// nil interface.
type fakeHandler struct {
	gosnmp.Handler

	mu        sync.Mutex
	target    string
	port      uint16
	community string
	version   gosnmp.SnmpVersion
	retries   int
	timeout   time.Duration
	maxOids   int
	maxReps   uint32

	connectCalls int
	closed       bool
	walkCalls    int
	bulkCalls    int
	getCalls     [][]string

	walkPDUs map[string][]gosnmp.SnmpPDU
	values   map[string]gosnmp.SnmpPDU
	connErr  error
	walkErr  error
	getErr   error
}

func (f *fakeHandler) SetTarget(target string)               { f.target = target }
func (f *fakeHandler) SetPort(port uint16)                   { f.port = port }
func (f *fakeHandler) SetCommunity(community string)         { f.community = community }
func (f *fakeHandler) SetVersion(version gosnmp.SnmpVersion) { f.version = version }
func (f *fakeHandler) SetRetries(retries int)                { f.retries = retries }
func (f *fakeHandler) SetTimeout(timeout time.Duration)      { f.timeout = timeout }
func (f *fakeHandler) SetMaxOids(maxOids int)                { f.maxOids = maxOids }
func (f *fakeHandler) SetMaxRepetitions(reps uint32)         { f.maxReps = reps }

func (f *fakeHandler) Connect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connectCalls++
	f.closed = false
	return f.connErr
}

func (f *fakeHandler) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeHandler) WalkAll(root string) ([]gosnmp.SnmpPDU, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.walkCalls++
	if f.walkErr != nil {
		return nil, f.walkErr
	}
	return f.walkPDUs[root], nil
}

func (f *fakeHandler) BulkWalkAll(root string) ([]gosnmp.SnmpPDU, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bulkCalls++
	if f.walkErr != nil {
		return nil, f.walkErr
	}
	return f.walkPDUs[root], nil
}

func (f *fakeHandler) Get(oids []string) (*gosnmp.SnmpPacket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls = append(f.getCalls, append([]string(nil), oids...))
	if f.getErr != nil {
		return nil, f.getErr
	}
	packet := &gosnmp.SnmpPacket{}
	for _, oid := range oids {
		if pdu, ok := f.values[oid]; ok {
			packet.Variables = append(packet.Variables, pdu)
		} else {
			packet.Variables = append(packet.Variables, gosnmp.SnmpPDU{Name: "." + oid, Type: gosnmp.NoSuchInstance})
		}
	}
	return packet, nil
}

func pduStr(oid, value string) gosnmp.SnmpPDU {
	return gosnmp.SnmpPDU{Name: "." + oid, Type: gosnmp.OctetString, Value: []byte(value)}
}

func pduNum(oid string, value int) gosnmp.SnmpPDU {
	return gosnmp.SnmpPDU{Name: "." + oid, Type: gosnmp.Integer, Value: value}
}

// seededHandler answers like a small two-port router.
func seededHandler() *fakeHandler {
	system := []gosnmp.SnmpPDU{
		pduStr("1.3.6.1.2.1.1.1.0", "Acme Router"),
		{Name: ".1.3.6.1.2.1.1.3.0", Type: gosnmp.TimeTicks, Value: uint32(360000)},
		pduStr("1.3.6.1.2.1.1.5.0", "gw-1"),
		pduNum("1.3.6.1.2.1.1.7.0", 72), // sysServices, unmapped
	}
	interfaces := []gosnmp.SnmpPDU{
		pduNum("1.3.6.1.2.1.2.1.0", 2),
		pduStr("1.3.6.1.2.1.2.2.1.2.1", "eth0"),
		pduStr("1.3.6.1.2.1.2.2.1.2.2", "eth1"),
		pduNum("1.3.6.1.2.1.2.2.1.4.1", 1500), // ifMtu, unmapped
		{Name: ".1.3.6.1.2.1.2.2.1.5.1", Type: gosnmp.Gauge32, Value: uint(1_000_000_000)},
		{Name: ".1.3.6.1.2.1.2.2.1.6.1", Type: gosnmp.OctetString, Value: []byte{0xaa, 0xbb, 0xcc, 0x00, 0x11, 0x22}},
		pduNum("1.3.6.1.2.1.2.2.1.7.1", 1),
		pduNum("1.3.6.1.2.1.2.2.1.8.1", 1),
		pduNum("1.3.6.1.2.1.2.2.1.8.2", 2),
	}

	f := &fakeHandler{
		walkPDUs: map[string][]gosnmp.SnmpPDU{
			oidSystemRoot:     system,
			oidInterfacesRoot: interfaces,
		},
		values: make(map[string]gosnmp.SnmpPDU),
	}
	for _, pdus := range f.walkPDUs {
		for _, pdu := range pdus {
			f.values[pdu.Name[1:]] = pdu
		}
	}
	return f
}

func testConfig() hook.DeviceConfig {
	return hook.DeviceConfig{
		Name:     "sim-snmp",
		Type:     "snmp",
		Endpoint: "192.0.2.10:161",
		Timeout:  2,
		Authentication: map[string]any{
			"community": "private",
			"version":   "2c",
			"max_oids":  2,
		},
	}
}

func newTestClient(t *testing.T, f *fakeHandler) *Client {
	t.Helper()
	c := NewClient()
	c.newHandler = func() gosnmp.Handler { return f }
	require.NoError(t, c.Connect(context.Background(), testConfig()))
	t.Cleanup(func() { _ = c.Disconnect() })
	return c
}

func TestClientConnectAppliesSettings(t *testing.T) {
	f := seededHandler()
	newTestClient(t, f)

	assert.Equal(t, "192.0.2.10", f.target)
	assert.Equal(t, uint16(161), f.port)
	assert.Equal(t, "private", f.community)
	assert.Equal(t, gosnmp.Version2c, f.version)
	assert.Equal(t, DefaultRetries, f.retries)
	assert.Equal(t, 2*time.Second, f.timeout)
	assert.Equal(t, 2, f.maxOids)
	assert.Equal(t, uint32(DefaultMaxRepetitions), f.maxReps)
	assert.Equal(t, 1, f.connectCalls)

	// The probe read one OID.
	require.Len(t, f.getCalls, 1)
	assert.Equal(t, []string{oidSysUpTime}, f.getCalls[0])
}

func TestClientConnectDefaults(t *testing.T) {
	f := seededHandler()
	c := NewClient()
	c.newHandler = func() gosnmp.Handler { return f }

	cfg := hook.DeviceConfig{Name: "gw", Type: "snmp", Endpoint: "192.0.2.9"}
	require.NoError(t, c.Connect(context.Background(), cfg))
	defer c.Disconnect()

	assert.Equal(t, "192.0.2.9", f.target)
	assert.Equal(t, uint16(DefaultPort), f.port)
	assert.Equal(t, DefaultCommunity, f.community)
	assert.Equal(t, gosnmp.Version2c, f.version)
	assert.Equal(t, DefaultMaxOids, f.maxOids)
}

func TestClientConnectTwice(t *testing.T) {
	f := seededHandler()
	c := newTestClient(t, f)

	require.NoError(t, c.Connect(context.Background(), testConfig()))
	assert.Equal(t, 1, f.connectCalls)
}

func TestClientConnectRejectsV3(t *testing.T) {
	c := NewClient()
	cfg := testConfig()
	cfg.Authentication["version"] = "3"

	err := c.Connect(context.Background(), cfg)
	require.Error(t, err)
	assert.Equal(t, faults.CategoryConfiguration, faults.CategoryOf(err))
}

func TestClientConnectRejectsBadPort(t *testing.T) {
	c := NewClient()
	cfg := testConfig()
	cfg.Endpoint = "192.0.2.10:notaport"

	err := c.Connect(context.Background(), cfg)
	require.Error(t, err)
	assert.Equal(t, faults.CategoryConfiguration, faults.CategoryOf(err))
}

func TestClientConnectProbeTimeout(t *testing.T) {
	f := seededHandler()
	f.getErr = timeoutError{}
	c := NewClient()
	c.newHandler = func() gosnmp.Handler { return f }

	err := c.Connect(context.Background(), testConfig())
	require.Error(t, err)
	assert.Equal(t, faults.CategoryTimeout, faults.CategoryOf(err))
	assert.True(t, f.closed)
}

func TestClientConnectProbeUnreachable(t *testing.T) {
	f := seededHandler()
	f.getErr = errors.New("connection refused")
	c := NewClient()
	c.newHandler = func() gosnmp.Handler { return f }

	err := c.Connect(context.Background(), testConfig())
	require.Error(t, err)
	assert.Equal(t, faults.CategoryConnection, faults.CategoryOf(err))
}

func TestClientListAll(t *testing.T) {
	c := newTestClient(t, seededHandler())

	paths, err := c.ListParameterNames(context.Background(), "Device.")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Device.DeviceInfo.",
		"Device.DeviceInfo.Description",
		"Device.DeviceInfo.Name",
		"Device.DeviceInfo.UpTime",
		"Device.Ethernet.",
		"Device.Ethernet.Interface.",
		"Device.Ethernet.Interface.1.",
		"Device.Ethernet.Interface.1.Enable",
		"Device.Ethernet.Interface.1.MACAddress",
		"Device.Ethernet.Interface.1.MaxBitRate",
		"Device.Ethernet.Interface.1.Name",
		"Device.Ethernet.Interface.1.Status",
		"Device.Ethernet.Interface.2.",
		"Device.Ethernet.Interface.2.Name",
		"Device.Ethernet.Interface.2.Status",
		"Device.Ethernet.InterfaceNumberOfEntries",
	}, paths)
}

func TestClientListSubtree(t *testing.T) {
	c := newTestClient(t, seededHandler())

	paths, err := c.ListParameterNames(context.Background(), "Device.DeviceInfo.")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Device.DeviceInfo.Description",
		"Device.DeviceInfo.Name",
		"Device.DeviceInfo.UpTime",
	}, paths)

	paths, err = c.ListParameterNames(context.Background(), "Device.Ethernet.Interface.2.")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Device.Ethernet.Interface.2.Name",
		"Device.Ethernet.Interface.2.Status",
	}, paths)
}

func TestClientListUnmappedPrefix(t *testing.T) {
	c := newTestClient(t, seededHandler())

	_, err := c.ListParameterNames(context.Background(), "Device.WiFi.")
	require.Error(t, err)
	assert.Equal(t, faults.CategoryValidation, faults.CategoryOf(err))
}

func TestClientListWalkFailure(t *testing.T) {
	f := seededHandler()
	c := newTestClient(t, f)
	f.walkErr = errors.New("request timeout (after 1 retries)")

	_, err := c.ListParameterNames(context.Background(), "Device.")
	require.Error(t, err)
	assert.Equal(t, faults.CategoryConnection, faults.CategoryOf(err))
}

func TestClientListCancelled(t *testing.T) {
	c := newTestClient(t, seededHandler())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ListParameterNames(ctx, "Device.")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClientWalkVersionSwitch(t *testing.T) {
	f := seededHandler()
	c := NewClient()
	c.newHandler = func() gosnmp.Handler { return f }

	cfg := testConfig()
	cfg.Authentication["version"] = "1"
	require.NoError(t, c.Connect(context.Background(), cfg))
	defer c.Disconnect()

	_, err := c.ListParameterNames(context.Background(), "Device.DeviceInfo.")
	require.NoError(t, err)
	assert.Equal(t, 1, f.walkCalls)
	assert.Zero(t, f.bulkCalls)
}

func TestClientGetValues(t *testing.T) {
	f := seededHandler()
	c := newTestClient(t, f)

	values, err := c.GetParameterValues(context.Background(), []string{
		"Device.DeviceInfo.Description",
		"Device.DeviceInfo.UpTime",
		"Device.Ethernet.InterfaceNumberOfEntries",
		"Device.Ethernet.Interface.1.Name",
		"Device.Ethernet.Interface.1.MaxBitRate",
		"Device.Ethernet.Interface.1.MACAddress",
		"Device.Ethernet.Interface.1.Enable",
		"Device.Ethernet.Interface.1.Status",
		"Device.Ethernet.Interface.2.Status",
		"Device.WiFi.Radio.1.Channel", // unmapped
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"Device.DeviceInfo.Description":            "Acme Router",
		"Device.DeviceInfo.UpTime":                 int64(3600),
		"Device.Ethernet.InterfaceNumberOfEntries": int64(2),
		"Device.Ethernet.Interface.1.Name":         "eth0",
		"Device.Ethernet.Interface.1.MaxBitRate":   int64(1000),
		"Device.Ethernet.Interface.1.MACAddress":   "aa:bb:cc:00:11:22",
		"Device.Ethernet.Interface.1.Enable":       true,
		"Device.Ethernet.Interface.1.Status":       "Up",
		"Device.Ethernet.Interface.2.Status":       "Down",
	}, values)

	// Nine mapped OIDs at two per request, after the connect probe.
	require.Len(t, f.getCalls, 6)
	for _, call := range f.getCalls[1:] {
		assert.LessOrEqual(t, len(call), 2)
	}
}

func TestClientGetValuesUnanswered(t *testing.T) {
	c := newTestClient(t, seededHandler())

	// Mapped, but the agent has no value for port 2's address.
	values, err := c.GetParameterValues(context.Background(), []string{
		"Device.Ethernet.Interface.2.MACAddress",
	})
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestClientGetValuesNothingMapped(t *testing.T) {
	f := seededHandler()
	c := newTestClient(t, f)
	probes := len(f.getCalls)

	values, err := c.GetParameterValues(context.Background(), []string{"Device.WiFi.Radio.1.Channel"})
	require.NoError(t, err)
	assert.Empty(t, values)
	assert.Len(t, f.getCalls, probes)
}

func TestClientAttributes(t *testing.T) {
	c := newTestClient(t, seededHandler())

	attrs, err := c.GetParameterAttributes(context.Background(), []string{
		"Device.DeviceInfo.Description",
		"Device.Ethernet.Interface.1.Enable",
		"Device.Ethernet.",
		"Device.WiFi.",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]hook.Attributes{
		"Device.DeviceInfo.Description":      {Type: "string", Access: "read-only"},
		"Device.Ethernet.Interface.1.Enable": {Type: "boolean", Access: "read-only"},
		"Device.Ethernet.":                   {Type: "object", Access: "read-only"},
	}, attrs)
}

func TestClientWritesRejected(t *testing.T) {
	c := newTestClient(t, seededHandler())
	ctx := context.Background()

	err := c.SetParameterValues(ctx, map[string]any{"Device.DeviceInfo.Name": "gw-2"})
	require.Error(t, err)
	assert.ErrorIs(t, err, hook.ErrUnsupported)
	assert.Equal(t, faults.CategoryProtocol, faults.CategoryOf(err))
	assert.Contains(t, err.Error(), "read-only transport")

	err = c.SubscribeToEvent(ctx, "Device.Ethernet.Interface.1.StatusChange!")
	assert.ErrorIs(t, err, hook.ErrUnsupported)

	_, err = c.CallFunction(ctx, "Device.Reboot()", nil)
	assert.ErrorIs(t, err, hook.ErrUnsupported)
}

func TestClientNotConnected(t *testing.T) {
	c := NewClient()
	ctx := context.Background()

	_, err := c.ListParameterNames(ctx, "Device.")
	assert.ErrorIs(t, err, hook.ErrNotConnected)
	_, err = c.GetParameterValues(ctx, []string{"Device.DeviceInfo.Name"})
	assert.ErrorIs(t, err, hook.ErrNotConnected)
	_, err = c.GetParameterAttributes(ctx, []string{"Device.DeviceInfo.Name"})
	assert.ErrorIs(t, err, hook.ErrNotConnected)
	err = c.SetParameterValues(ctx, map[string]any{"Device.DeviceInfo.Name": "gw"})
	assert.ErrorIs(t, err, hook.ErrNotConnected)
	err = c.SubscribeToEvent(ctx, "Device.Boot!")
	assert.ErrorIs(t, err, hook.ErrNotConnected)
	_, err = c.CallFunction(ctx, "Device.Reboot()", nil)
	assert.ErrorIs(t, err, hook.ErrNotConnected)

	assert.NoError(t, c.Disconnect())
}

func TestClientDisconnectAndReconnect(t *testing.T) {
	f := seededHandler()
	c := newTestClient(t, f)

	require.NoError(t, c.Disconnect())
	assert.True(t, f.closed)
	require.NoError(t, c.Disconnect())

	_, err := c.ListParameterNames(context.Background(), "Device.")
	assert.ErrorIs(t, err, hook.ErrNotConnected)

	require.NoError(t, c.Connect(context.Background(), testConfig()))
	paths, err := c.ListParameterNames(context.Background(), "Device.DeviceInfo.")
	require.NoError(t, err)
	assert.NotEmpty(t, paths)
}

func TestClientRegistersFactory(t *testing.T) {
	assert.Contains(t, hook.Types(), "snmp")

	h, err := hook.New(hook.DeviceConfig{Name: "gw", Type: "snmp", Endpoint: "192.0.2.1"})
	require.NoError(t, err)
	_, ok := h.(*Client)
	assert.True(t, ok)
}

func TestClientCapturesEvents(t *testing.T) {
	recorder := &eventRecorder{}
	f := seededHandler()
	c := NewClient()
	c.newHandler = func() gosnmp.Handler { return f }
	c.SetLogger(recorder)

	require.NoError(t, c.Connect(context.Background(), testConfig()))
	_, err := c.ListParameterNames(context.Background(), "Device.DeviceInfo.")
	require.NoError(t, err)
	require.NoError(t, c.Disconnect())

	events := recorder.Events()
	require.NotEmpty(t, events)

	var rpcIn, connected int
	for _, ev := range events {
		assert.Equal(t, log.LayerHook, ev.Layer)
		assert.Equal(t, "sim-snmp", ev.Device)
		assert.Equal(t, "192.0.2.10:161", ev.RemoteAddr)
		assert.Equal(t, events[0].ConnectionID, ev.ConnectionID)
		if ev.RPC != nil && ev.Direction == log.DirectionIn {
			rpcIn++
			assert.NotNil(t, ev.RPC.ProcessingTime)
		}
		if ev.State != nil && ev.State.NewState == "connected" {
			connected++
		}
	}
	// One probe response and one walk response.
	assert.Equal(t, 2, rpcIn)
	assert.Equal(t, 1, connected)
}

func TestSplitEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		host     string
		port     uint16
		wantErr  bool
	}{
		{"192.0.2.1", "192.0.2.1", 161, false},
		{"192.0.2.1:1161", "192.0.2.1", 1161, false},
		{"gw.example.net:161", "gw.example.net", 161, false},
		{"[2001:db8::1]:162", "2001:db8::1", 162, false},
		{"192.0.2.1:notaport", "", 0, true},
		{"192.0.2.1:99999", "", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			host, port, err := splitEndpoint(tt.endpoint)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.host, host)
			assert.Equal(t, tt.port, port)
		})
	}
}

func TestParseVersion(t *testing.T) {
	v, err := parseVersion("")
	require.NoError(t, err)
	assert.Equal(t, gosnmp.Version2c, v)

	v, err = parseVersion("1")
	require.NoError(t, err)
	assert.Equal(t, gosnmp.Version1, v)

	v, err = parseVersion("2c")
	require.NoError(t, err)
	assert.Equal(t, gosnmp.Version2c, v)

	_, err = parseVersion("3")
	assert.Error(t, err)
	_, err = parseVersion("v2")
	assert.Error(t, err)
}

// timeoutError mimics a gosnmp request deadline.
type timeoutError struct{}

func (timeoutError) Error() string   { return "request timeout (after 1 retries)" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

type eventRecorder struct {
	mu     sync.Mutex
	events []log.Event
}

func (r *eventRecorder) Log(ev log.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *eventRecorder) Events() []log.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]log.Event(nil), r.events...)
}
