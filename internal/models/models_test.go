// Package models tests for data model definitions.
package models

import (
	"encoding/json"
	"testing"
)

// TestPendingSurveyEntry_ToRecord verifies remote refs precede uploaded URLs.
func TestPendingSurveyEntry_ToRecord(t *testing.T) {
	entry := &PendingSurveyEntry{
		SessionID:    "S1",
		CabinetID:    "A",
		ZoneID:       "Z1",
		ZoneName:     "North",
		Depth:        1.5,
		AlarmCount:   2,
		OilLevel:     "ok",
		TicketNumber: "OFF-1",
		PhotoRefs:    []string{"https://cdn/a.jpg"},
		CreatedAt:    1700000000,
	}

	record := entry.ToRecord([]string{"https://cdn/b.jpg"})

	if len(record.PhotoURLs) != 2 {
		t.Fatalf("PhotoURLs = %v, want 2 entries", record.PhotoURLs)
	}
	if record.PhotoURLs[0] != "https://cdn/a.jpg" || record.PhotoURLs[1] != "https://cdn/b.jpg" {
		t.Errorf("PhotoURLs order = %v", record.PhotoURLs)
	}
	if record.TicketNumber != "OFF-1" || record.CapturedAt != 1700000000 {
		t.Errorf("record fields not copied: %+v", record)
	}
}

// TestPendingSurveyEntry_ToRecord_noPhotos verifies an empty list is encoded, not null.
func TestPendingSurveyEntry_ToRecord_noPhotos(t *testing.T) {
	entry := &PendingSurveyEntry{SessionID: "S1"}

	data, err := json.Marshal(entry.ToRecord(nil))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if photos, ok := decoded["photos"].([]interface{}); !ok || len(photos) != 0 {
		t.Errorf("photos = %v, want empty array", decoded["photos"])
	}
}

// TestKeys verifies entries and photos with the same triple produce equal keys.
func TestKeys(t *testing.T) {
	entry := &PendingSurveyEntry{SessionID: "S1", CabinetID: "A", ZoneID: "Z1"}
	photo := &PendingPhoto{SessionID: "S1", CabinetID: "A", ZoneID: "Z1"}
	other := &PendingPhoto{SessionID: "S1", CabinetID: "A", ZoneID: "Z2"}

	if entry.Key() != photo.Key() {
		t.Error("matching triple should produce equal keys")
	}
	if entry.Key() == other.Key() {
		t.Error("different zone should produce different keys")
	}
}

// TestPendingPhoto_Destination verifies the upload key is stable per photo.
func TestPendingPhoto_Destination(t *testing.T) {
	photo := &PendingPhoto{ID: 42, SessionID: "S1", CabinetID: "A", ZoneID: "Z1"}

	want := "S1/A/Z1/photo-42.jpg"
	if got := photo.Destination(); got != want {
		t.Errorf("Destination() = %q, want %q", got, want)
	}
	if photo.Destination() != photo.Destination() {
		t.Error("Destination() should be deterministic")
	}
}

// TestSyncResult_AddError verifies any error clears the success flag.
func TestSyncResult_AddError(t *testing.T) {
	result := NewSyncResult()
	if !result.Success {
		t.Fatal("new result should be successful")
	}

	result.AddError("entry OFF-1: remote rejected")
	result.Finish()

	if result.Success {
		t.Error("Success should be false after AddError")
	}
	if len(result.Errors) != 1 {
		t.Errorf("Errors = %v, want 1 entry", result.Errors)
	}
	if result.FinishedAt.Before(result.StartedAt) {
		t.Error("FinishedAt should not precede StartedAt")
	}
}

// TestNewPendingCount verifies the total is the sum of both kinds.
func TestNewPendingCount(t *testing.T) {
	c := NewPendingCount(2, 3)
	if c.Total != 5 {
		t.Errorf("Total = %d, want 5", c.Total)
	}
	if c.IsZero() {
		t.Error("IsZero() = true, want false")
	}
	if !NewPendingCount(0, 0).IsZero() {
		t.Error("IsZero() = false for empty count")
	}
}
