package commands

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tr181-tools/tr181-go/pkg/log"
)

func exportFixture(t *testing.T) string {
	t.Helper()

	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	return writeLogFile(t, []log.Event{
		{
			Timestamp: base, ConnectionID: "conn-1", Device: "gw",
			Direction: log.DirectionOut, Layer: log.LayerHook, Category: log.CategoryMessage,
			RPC: &log.RPCEvent{MessageID: 9, Operation: "SetParameterValues"},
		},
		{
			Timestamp: base.Add(time.Second), ConnectionID: "conn-1",
			Direction: log.DirectionIn, Layer: log.LayerTransport, Category: log.CategoryMessage,
			Frame: &log.FrameEvent{Size: 32},
		},
	})
}

func TestExportJSONL(t *testing.T) {
	path := exportFixture(t)
	out := filepath.Join(t.TempDir(), "out.jsonl")

	if err := RunExport(path, "jsonl", out); err != nil {
		t.Fatalf("RunExport: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 JSONL lines, got %d", len(lines))
	}

	var first map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("line 1 is not valid JSON: %v", err)
	}
	if first["ConnectionID"] != "conn-1" {
		t.Errorf("ConnectionID = %v, want conn-1", first["ConnectionID"])
	}
}

func TestExportCSV(t *testing.T) {
	path := exportFixture(t)
	out := filepath.Join(t.TempDir(), "out.csv")

	if err := RunExport(path, "csv", out); err != nil {
		t.Fatalf("RunExport: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("csv read: %v", err)
	}

	if len(rows) != 3 { // header + 2 events
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0][0] != "timestamp" {
		t.Errorf("header = %v", rows[0])
	}

	// RPC row carries the operation and message ID.
	if rows[1][7] != "SetParameterValues" || rows[1][8] != "9" {
		t.Errorf("RPC row = %v", rows[1])
	}
	// Frame row is typed "frame" with no message ID.
	if rows[2][7] != "frame" || rows[2][8] != "" {
		t.Errorf("frame row = %v", rows[2])
	}
}

func TestExportUnknownFormat(t *testing.T) {
	path := exportFixture(t)

	err := RunExport(path, "yaml", "")
	if err == nil {
		t.Fatal("expected error for unknown format")
	}
	if !strings.Contains(err.Error(), "unknown format") {
		t.Errorf("error = %v", err)
	}
}
