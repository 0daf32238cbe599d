package main

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/kimhsiao/fieldcapture/backend/internal/config"
)

func setupBridge(t *testing.T) {
	t.Helper()
	t.Setenv(config.EnvPrefix+"REMOTE_BASE_URL", "http://127.0.0.1:1")
	t.Setenv(config.EnvPrefix+"STORAGE_BUCKET", "photos")
	t.Setenv(config.EnvPrefix+"STORAGE_PROVIDER", "minio")
	t.Setenv(config.EnvPrefix+"STORAGE_ENDPOINT", "127.0.0.1:1")
	t.Setenv(config.EnvPrefix+"SYNC_POLL_INTERVAL", "1h")

	if err := initialize("", t.TempDir()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	t.Cleanup(shutdown)
}

func TestBridge_notInitialized(t *testing.T) {
	out := syncAllJSON()
	if !strings.Contains(out, `"code":"INTERNAL_ERROR"`) {
		t.Errorf("syncAllJSON() = %s", out)
	}
	if hasDataToSync() != -1 {
		t.Error("hasDataToSync should fail before initialize")
	}
	if getLastError() == "" {
		t.Error("last error not recorded")
	}
}

func TestBridge_offlineCapture(t *testing.T) {
	setupBridge(t)
	setOnline(false)

	if got := hasDataToSync(); got != 0 {
		t.Fatalf("hasDataToSync() = %d, want 0", got)
	}

	// 1x1 transparent PNG
	png, _ := base64.StdEncoding.DecodeString("iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg==")
	payload, _ := json.Marshal(map[string]interface{}{
		"cabinet_id": "CAB-2",
		"zone_id":    "Z1",
		"photos":     []string{"data:image/png;base64," + base64.StdEncoding.EncodeToString(png)},
	})

	var outcome struct {
		Queued       bool `json:"queued"`
		PhotosQueued int  `json:"photos_queued"`
	}
	out := saveRecordJSON(string(payload))
	if err := json.Unmarshal([]byte(out), &outcome); err != nil {
		t.Fatalf("unmarshal %s: %v", out, err)
	}
	if !outcome.Queued || outcome.PhotosQueued != 1 {
		t.Errorf("outcome = %s", out)
	}

	var count struct {
		Total int `json:"total"`
	}
	if err := json.Unmarshal([]byte(pendingCountJSON()), &count); err != nil || count.Total != 2 {
		t.Errorf("pending = %+v, err %v", count, err)
	}
	if hasDataToSync() != 1 {
		t.Error("expected data to sync")
	}

	if out := syncAllJSON(); !strings.Contains(out, `"code":"OFFLINE"`) {
		t.Errorf("syncAllJSON() offline = %s", out)
	}
}

func TestBridge_invalidPayload(t *testing.T) {
	setupBridge(t)

	tests := []string{
		"not json",
		`{"cabinet_id":"C","zone_id":"Z","photos":["%%%"]}`,
		`{"zone_id":"Z"}`,
	}
	for _, p := range tests {
		if out := saveRecordJSON(p); !strings.Contains(out, `"code":"INVALID_INPUT"`) {
			t.Errorf("saveRecordJSON(%q) = %s", p, out)
		}
	}
}
