package cwmp_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tr181-tools/tr181-go/internal/devicesim"
	"github.com/tr181-tools/tr181-go/pkg/faults"
	"github.com/tr181-tools/tr181-go/pkg/hook"
	"github.com/tr181-tools/tr181-go/pkg/hook/cwmp"
	"github.com/tr181-tools/tr181-go/pkg/log"
)

// startDevice runs a seeded simulator. A non-empty password enables session
// authentication for user "admin".
func startDevice(t *testing.T, password string) *devicesim.Device {
	t.Helper()

	dev := devicesim.New()
	if password != "" {
		dev.Username = "admin"
		dev.Password = password
	}
	seed(dev)

	if err := dev.Start(); err != nil {
		t.Fatalf("failed to start device: %v", err)
	}
	t.Cleanup(dev.Close)
	return dev
}

func seed(dev *devicesim.Device) {
	dev.SetParameter("Device.DeviceInfo.Manufacturer", devicesim.Parameter{
		Type: "xsd:string", Access: "read-only", Value: "Acme",
	})
	dev.SetParameter("Device.DeviceInfo.SoftwareVersion", devicesim.Parameter{
		Type: "xsd:string", Access: "read-only", Value: "1.2.3",
	})
	dev.SetParameter("Device.WiFi.Radio.1.Channel", devicesim.Parameter{
		Type: "xsd:unsignedInt", Access: "read-write", Value: 6,
	})
	dev.AddEvent("Device.WiFi.Radio.1.ChannelChange!")
	dev.AddFunction("Device.WiFi.Radio.1.Reset()", map[string]any{"Status": "ok"})
}

func newConfig(dev *devicesim.Device, password string) hook.DeviceConfig {
	cfg := hook.DeviceConfig{
		Name:     "sim",
		Type:     "cwmp",
		Endpoint: dev.Addr(),
		Timeout:  5,
		TLS:      &hook.TLSSettings{InsecureSkipVerify: true},
	}
	if password != "" {
		cfg.Authentication = map[string]any{"username": "admin", "password": password}
	}
	return cfg
}

// connect dials the device and registers disconnect cleanup.
func connect(t *testing.T, dev *devicesim.Device, password string) *cwmp.Client {
	t.Helper()

	client := cwmp.NewClient()
	if err := client.Connect(context.Background(), newConfig(dev, password)); err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(func() { _ = client.Disconnect() })
	return client
}

// captureLogger records protocol events for assertions. The session read
// loop logs concurrently, so access is locked.
type captureLogger struct {
	mu     sync.Mutex
	events []log.Event
}

func (c *captureLogger) Log(e log.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *captureLogger) Events() []log.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]log.Event(nil), c.events...)
}

func TestClientConnectAndListRoot(t *testing.T) {
	dev := startDevice(t, "")
	client := connect(t, dev, "")

	paths, err := client.ListParameterNames(context.Background(), "Device.")
	if err != nil {
		t.Fatalf("ListParameterNames failed: %v", err)
	}

	want := []string{"Device.DeviceInfo.", "Device.WiFi."}
	if len(paths) != len(want) {
		t.Fatalf("paths = %v, want %v", paths, want)
	}
	for i, p := range want {
		if paths[i] != p {
			t.Errorf("paths[%d] = %q, want %q", i, paths[i], p)
		}
	}
}

func TestClientListUnknownPrefix(t *testing.T) {
	dev := startDevice(t, "")
	client := connect(t, dev, "")

	_, err := client.ListParameterNames(context.Background(), "Device.NoSuch.")
	if err == nil {
		t.Fatal("expected an error for an unknown prefix")
	}
	if cat := faults.CategoryOf(err); cat != faults.CategoryValidation {
		t.Errorf("category = %v, want validation", cat)
	}
}

func TestClientAuthenticatedSession(t *testing.T) {
	dev := startDevice(t, "secret")
	client := connect(t, dev, "secret")

	values, err := client.GetParameterValues(context.Background(),
		[]string{"Device.DeviceInfo.Manufacturer"})
	if err != nil {
		t.Fatalf("GetParameterValues failed: %v", err)
	}
	if values["Device.DeviceInfo.Manufacturer"] != "Acme" {
		t.Errorf("Manufacturer = %v, want Acme", values["Device.DeviceInfo.Manufacturer"])
	}
}

func TestClientRejectsBadPassword(t *testing.T) {
	dev := startDevice(t, "secret")

	client := cwmp.NewClient()
	err := client.Connect(context.Background(), newConfig(dev, "wrong"))
	if err == nil {
		client.Disconnect()
		t.Fatal("expected the connect to fail with a bad password")
	}
	if cat := faults.CategoryOf(err); cat != faults.CategoryAuthentication {
		t.Errorf("category = %v, want authentication", cat)
	}

	// The failed handshake must not leave a half-open session behind.
	_, err = client.ListParameterNames(context.Background(), "Device.")
	if !errors.Is(err, hook.ErrNotConnected) {
		t.Errorf("error after failed connect = %v, want ErrNotConnected", err)
	}
}

func TestClientRejectsUnknownUser(t *testing.T) {
	dev := startDevice(t, "secret")

	cfg := newConfig(dev, "secret")
	cfg.Authentication["username"] = "mallory"

	client := cwmp.NewClient()
	err := client.Connect(context.Background(), cfg)
	if err == nil {
		client.Disconnect()
		t.Fatal("expected the connect to fail for an unknown user")
	}
	if cat := faults.CategoryOf(err); cat != faults.CategoryAuthentication {
		t.Errorf("category = %v, want authentication", cat)
	}
}

func TestClientMissingPassword(t *testing.T) {
	dev := startDevice(t, "secret")

	cfg := newConfig(dev, "")
	cfg.Authentication = map[string]any{"username": "admin"}

	client := cwmp.NewClient()
	err := client.Connect(context.Background(), cfg)
	if err == nil {
		client.Disconnect()
		t.Fatal("expected the connect to fail without a password")
	}
	if cat := faults.CategoryOf(err); cat != faults.CategoryAuthentication {
		t.Errorf("category = %v, want authentication", cat)
	}
	if !strings.Contains(err.Error(), "no password") {
		t.Errorf("error = %q, want a mention of the missing password", err)
	}
}

func TestClientGetValues(t *testing.T) {
	dev := startDevice(t, "")
	client := connect(t, dev, "")

	values, err := client.GetParameterValues(context.Background(), []string{
		"Device.DeviceInfo.Manufacturer",
		"Device.WiFi.Radio.1.Channel",
		"Device.NoSuch",
	})
	if err != nil {
		t.Fatalf("GetParameterValues failed: %v", err)
	}

	if values["Device.DeviceInfo.Manufacturer"] != "Acme" {
		t.Errorf("Manufacturer = %v, want Acme", values["Device.DeviceInfo.Manufacturer"])
	}
	if values["Device.WiFi.Radio.1.Channel"] != uint64(6) {
		t.Errorf("Channel = %v (%T), want uint64 6",
			values["Device.WiFi.Radio.1.Channel"], values["Device.WiFi.Radio.1.Channel"])
	}
	if _, ok := values["Device.NoSuch"]; ok {
		t.Error("unreadable path appeared in the result")
	}
}

func TestClientSetValues(t *testing.T) {
	dev := startDevice(t, "")
	client := connect(t, dev, "")
	ctx := context.Background()

	err := client.SetParameterValues(ctx, map[string]any{"Device.WiFi.Radio.1.Channel": 11})
	if err != nil {
		t.Fatalf("SetParameterValues failed: %v", err)
	}
	values, err := client.GetParameterValues(ctx, []string{"Device.WiFi.Radio.1.Channel"})
	if err != nil {
		t.Fatalf("GetParameterValues failed: %v", err)
	}
	if values["Device.WiFi.Radio.1.Channel"] != uint64(11) {
		t.Errorf("Channel after set = %v, want 11", values["Device.WiFi.Radio.1.Channel"])
	}

	err = client.SetParameterValues(ctx, map[string]any{"Device.DeviceInfo.Manufacturer": "Evil"})
	if cat := faults.CategoryOf(err); cat != faults.CategoryValidation {
		t.Errorf("read-only write category = %v, want validation", cat)
	}

	err = client.SetParameterValues(ctx, map[string]any{"Device.NoSuch": 1})
	if cat := faults.CategoryOf(err); cat != faults.CategoryValidation {
		t.Errorf("unknown path write category = %v, want validation", cat)
	}
}

func TestClientAttributes(t *testing.T) {
	dev := startDevice(t, "")
	client := connect(t, dev, "")

	attrs, err := client.GetParameterAttributes(context.Background(), []string{
		"Device.WiFi.Radio.1.Channel",
		"Device.WiFi.",
	})
	if err != nil {
		t.Fatalf("GetParameterAttributes failed: %v", err)
	}

	channel := attrs["Device.WiFi.Radio.1.Channel"]
	if channel.Type != "xsd:unsignedInt" || channel.Access != "read-write" {
		t.Errorf("Channel attributes = %+v, want xsd:unsignedInt read-write", channel)
	}
	object := attrs["Device.WiFi."]
	if object.Type != "object" || object.Access != "read-only" {
		t.Errorf("object attributes = %+v, want object read-only", object)
	}
}

func TestClientSubscribeAndCall(t *testing.T) {
	dev := startDevice(t, "")
	client := connect(t, dev, "")
	ctx := context.Background()

	if err := client.SubscribeToEvent(ctx, "Device.WiFi.Radio.1.ChannelChange!"); err != nil {
		t.Fatalf("SubscribeToEvent failed: %v", err)
	}
	if got := dev.Subscribed(); len(got) != 1 || got[0] != "Device.WiFi.Radio.1.ChannelChange!" {
		t.Errorf("device subscriptions = %v", got)
	}

	out, err := client.CallFunction(ctx, "Device.WiFi.Radio.1.Reset()", nil)
	if err != nil {
		t.Fatalf("CallFunction failed: %v", err)
	}
	if out["Status"] != "ok" {
		t.Errorf("function output = %v, want Status ok", out)
	}
	if got := dev.Called(); len(got) != 1 || got[0] != "Device.WiFi.Radio.1.Reset()" {
		t.Errorf("device calls = %v", got)
	}

	err = client.SubscribeToEvent(ctx, "Device.NoSuch!")
	if cat := faults.CategoryOf(err); cat != faults.CategoryValidation {
		t.Errorf("unknown event category = %v, want validation", cat)
	}
}

func TestClientScriptedFault(t *testing.T) {
	dev := startDevice(t, "")
	client := connect(t, dev, "")

	dev.FailNext(cwmp.OpGetParameterValues, cwmp.StatusInternalError)

	_, err := client.GetParameterValues(context.Background(),
		[]string{"Device.DeviceInfo.Manufacturer"})
	if err == nil {
		t.Fatal("expected the scripted failure to surface")
	}
	if cat := faults.CategoryOf(err); cat != faults.CategoryProtocol {
		t.Errorf("category = %v, want protocol", cat)
	}
	if !strings.Contains(err.Error(), "scripted failure") {
		t.Errorf("error = %q, want the device error text", err)
	}
}

func TestClientTimeout(t *testing.T) {
	dev := startDevice(t, "")

	cfg := newConfig(dev, "")
	cfg.Timeout = 1

	client := cwmp.NewClient()
	if err := client.Connect(context.Background(), cfg); err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(func() { _ = client.Disconnect() })

	dev.StallNext(cwmp.OpGetParameterNames, 1500*time.Millisecond)

	_, err := client.ListParameterNames(context.Background(), "Device.")
	if err == nil {
		t.Fatal("expected a timeout")
	}
	if cat := faults.CategoryOf(err); cat != faults.CategoryTimeout {
		t.Errorf("category = %v, want timeout", cat)
	}
}

func TestClientNotConnected(t *testing.T) {
	client := cwmp.NewClient()
	ctx := context.Background()

	if _, err := client.ListParameterNames(ctx, "Device."); !errors.Is(err, hook.ErrNotConnected) {
		t.Errorf("ListParameterNames error = %v, want ErrNotConnected", err)
	}
	if _, err := client.GetParameterValues(ctx, []string{"Device.X"}); !errors.Is(err, hook.ErrNotConnected) {
		t.Errorf("GetParameterValues error = %v, want ErrNotConnected", err)
	}
	if _, err := client.GetParameterAttributes(ctx, []string{"Device.X"}); !errors.Is(err, hook.ErrNotConnected) {
		t.Errorf("GetParameterAttributes error = %v, want ErrNotConnected", err)
	}
	if err := client.SetParameterValues(ctx, map[string]any{"Device.X": 1}); !errors.Is(err, hook.ErrNotConnected) {
		t.Errorf("SetParameterValues error = %v, want ErrNotConnected", err)
	}
	if err := client.SubscribeToEvent(ctx, "Device.X!"); !errors.Is(err, hook.ErrNotConnected) {
		t.Errorf("SubscribeToEvent error = %v, want ErrNotConnected", err)
	}
	if _, err := client.CallFunction(ctx, "Device.X()", nil); !errors.Is(err, hook.ErrNotConnected) {
		t.Errorf("CallFunction error = %v, want ErrNotConnected", err)
	}

	if err := client.Disconnect(); err != nil {
		t.Errorf("Disconnect on an unconnected client = %v, want nil", err)
	}
}

func TestClientDisconnectAndReconnect(t *testing.T) {
	dev := startDevice(t, "")
	ctx := context.Background()

	client := cwmp.NewClient()
	if err := client.Connect(ctx, newConfig(dev, "")); err != nil {
		t.Fatalf("failed to connect: %v", err)
	}

	if err := client.Disconnect(); err != nil {
		t.Errorf("first Disconnect = %v, want nil", err)
	}
	if err := client.Disconnect(); err != nil {
		t.Errorf("second Disconnect = %v, want nil", err)
	}
	if _, err := client.ListParameterNames(ctx, "Device."); !errors.Is(err, hook.ErrNotConnected) {
		t.Errorf("error after disconnect = %v, want ErrNotConnected", err)
	}

	if err := client.Connect(ctx, newConfig(dev, "")); err != nil {
		t.Fatalf("reconnect failed: %v", err)
	}
	t.Cleanup(func() { _ = client.Disconnect() })

	if _, err := client.ListParameterNames(ctx, "Device."); err != nil {
		t.Errorf("ListParameterNames after reconnect failed: %v", err)
	}
}

func TestClientRegistersFactory(t *testing.T) {
	found := false
	for _, typ := range hook.Types() {
		if typ == "cwmp" {
			found = true
		}
	}
	if !found {
		t.Fatalf("registered types = %v, want cwmp included", hook.Types())
	}

	h, err := hook.New(hook.DeviceConfig{Name: "sim", Type: "cwmp", Endpoint: "localhost:7547"})
	if err != nil {
		t.Fatalf("hook.New failed: %v", err)
	}
	if _, ok := h.(*cwmp.Client); !ok {
		t.Errorf("hook.New returned %T, want *cwmp.Client", h)
	}
}

func TestClientCapturesProtocol(t *testing.T) {
	dev := startDevice(t, "")
	logger := &captureLogger{}

	client := cwmp.NewClient()
	client.SetLogger(logger)
	ctx := context.Background()

	if err := client.Connect(ctx, newConfig(dev, "")); err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(func() { _ = client.Disconnect() })

	// A second Connect is a no-op and must not log another session.
	if err := client.Connect(ctx, newConfig(dev, "")); err != nil {
		t.Fatalf("second connect failed: %v", err)
	}

	if _, err := client.ListParameterNames(ctx, "Device."); err != nil {
		t.Fatalf("ListParameterNames failed: %v", err)
	}

	events := logger.Events()
	if len(events) == 0 {
		t.Fatal("no events captured")
	}

	var (
		framesOut, framesIn int
		rpcOutOps, rpcInOps []string
		connectedStates     int
		connID              = events[0].ConnectionID
	)
	for _, e := range events {
		if e.ConnectionID != connID {
			t.Errorf("event has connection ID %q, want uniform %q", e.ConnectionID, connID)
		}
		if e.Device != "sim" {
			t.Errorf("event device = %q, want sim", e.Device)
		}

		switch {
		case e.Layer == log.LayerTransport && e.Category == log.CategoryMessage:
			if e.Frame == nil {
				t.Error("transport message event without frame data")
				continue
			}
			if e.Direction == log.DirectionOut {
				framesOut++
			} else {
				framesIn++
			}
		case e.Layer == log.LayerSession && e.Category == log.CategoryMessage:
			if e.RPC == nil {
				t.Error("session message event without RPC data")
				continue
			}
			if e.Direction == log.DirectionOut {
				if e.RPC.Status != nil {
					t.Errorf("outgoing RPC %s carries a status", e.RPC.Operation)
				}
				rpcOutOps = append(rpcOutOps, e.RPC.Operation)
			} else {
				if e.RPC.Status == nil {
					t.Errorf("incoming RPC %s has no status", e.RPC.Operation)
				}
				if e.RPC.ProcessingTime == nil {
					t.Errorf("incoming RPC %s has no processing time", e.RPC.Operation)
				}
				rpcInOps = append(rpcInOps, e.RPC.Operation)
			}
		case e.Layer == log.LayerSession && e.Category == log.CategoryState:
			if e.State != nil && e.State.NewState == "connected" {
				connectedStates++
			}
		}
	}

	if framesOut == 0 || framesIn == 0 {
		t.Errorf("frames out=%d in=%d, want both directions captured", framesOut, framesIn)
	}
	if len(rpcOutOps) == 0 || rpcOutOps[0] != "Hello" {
		t.Errorf("outgoing RPCs = %v, want Hello first", rpcOutOps)
	}
	wantIn := false
	for _, op := range rpcInOps {
		if op == "GetParameterNames" {
			wantIn = true
		}
	}
	if !wantIn {
		t.Errorf("incoming RPCs = %v, want GetParameterNames included", rpcInOps)
	}
	if connectedStates != 1 {
		t.Errorf("connected state events = %d, want exactly 1", connectedStates)
	}
}
