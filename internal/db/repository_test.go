// Package db provides unit tests for CRUD repository operations.
package db

import (
	"context"
	"testing"
	"time"

	"github.com/kimhsiao/fieldcapture/backend/internal/models"
)

// setupTestRepo opens a migrated database in a temp dir.
func setupTestRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}
	repo := NewRepository(db.DB)
	t.Cleanup(func() {
		repo.Close()
		db.Close()
	})
	return repo
}

func testEntry(session, cabinet, zone string) *models.PendingSurveyEntry {
	return &models.PendingSurveyEntry{
		SessionID:    session,
		CabinetID:    cabinet,
		ZoneID:       zone,
		ZoneName:     "Zone " + zone,
		Depth:        2.25,
		AlarmCount:   1,
		OilLevel:     "low",
		TicketNumber: "OFF-" + zone,
		CreatedAt:    time.Now().Unix(),
	}
}

// TestInsertSurveyEntry_roundTrip verifies every column is persisted.
func TestInsertSurveyEntry_roundTrip(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	entry := testEntry("S1", "A", "Z1")
	entry.PhotoRefs = []string{"https://cdn/x.jpg"}

	id, err := repo.InsertSurveyEntry(ctx, entry)
	if err != nil {
		t.Fatalf("InsertSurveyEntry() failed: %v", err)
	}

	got, err := repo.GetSurveyEntry(ctx, id)
	if err != nil {
		t.Fatalf("GetSurveyEntry() failed: %v", err)
	}
	if got.ZoneName != "Zone Z1" || got.Depth != 2.25 || got.OilLevel != "low" || got.Synced {
		t.Errorf("GetSurveyEntry() = %+v", got)
	}
	if len(got.PhotoRefs) != 1 || got.PhotoRefs[0] != "https://cdn/x.jpg" {
		t.Errorf("PhotoRefs = %v", got.PhotoRefs)
	}
}

// TestInsert_monotonicIDs verifies identifiers are never reused after deletion.
func TestInsert_monotonicIDs(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	first, _ := repo.InsertSurveyEntry(ctx, testEntry("S1", "A", "Z1"))
	second, _ := repo.InsertSurveyEntry(ctx, testEntry("S1", "A", "Z2"))
	if second <= first {
		t.Fatalf("ids not increasing: %d then %d", first, second)
	}

	if _, err := repo.DeleteSurveyEntry(ctx, second); err != nil {
		t.Fatalf("DeleteSurveyEntry() failed: %v", err)
	}
	third, _ := repo.InsertSurveyEntry(ctx, testEntry("S1", "A", "Z3"))
	if third <= second {
		t.Errorf("id %d reused after delete of %d", third, second)
	}
}

// TestListPhotosByKey verifies only the exact triple is returned.
func TestListPhotosByKey(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	now := time.Now().Unix()

	photos := []*models.PendingPhoto{
		{SessionID: "S1", CabinetID: "A", ZoneID: "Z1", Data: []byte{1}, CreatedAt: now},
		{SessionID: "S1", CabinetID: "A", ZoneID: "Z1", Data: []byte{2}, CreatedAt: now},
		{SessionID: "S1", CabinetID: "A", ZoneID: "Z2", Data: []byte{3}, CreatedAt: now},
		{SessionID: "S2", CabinetID: "A", ZoneID: "Z1", Data: []byte{4}, CreatedAt: now},
	}
	for _, p := range photos {
		if _, err := repo.InsertPhoto(ctx, p); err != nil {
			t.Fatalf("InsertPhoto() failed: %v", err)
		}
	}

	got, err := repo.ListPhotosByKey(ctx, models.MatchKey{SessionID: "S1", CabinetID: "A", ZoneID: "Z1"}, false)
	if err != nil {
		t.Fatalf("ListPhotosByKey() failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d photos, want 2", len(got))
	}
	if got[0].Data[0] != 1 || got[1].Data[0] != 2 {
		t.Errorf("unexpected photos %v / %v", got[0].Data, got[1].Data)
	}
}

// TestSetSynced_idempotent verifies the flag only changes once.
func TestSetSynced_idempotent(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	id, _ := repo.InsertSurveyEntry(ctx, testEntry("S1", "A", "Z1"))

	n, err := repo.SetSurveyEntrySynced(ctx, id)
	if err != nil || n != 1 {
		t.Fatalf("first SetSurveyEntrySynced() = %d, %v", n, err)
	}
	n, err = repo.SetSurveyEntrySynced(ctx, id)
	if err != nil || n != 0 {
		t.Errorf("second SetSurveyEntrySynced() = %d, %v; want 0, nil", n, err)
	}
	n, err = repo.SetSurveyEntrySynced(ctx, 9999)
	if err != nil || n != 0 {
		t.Errorf("SetSurveyEntrySynced(missing) = %d, %v; want 0, nil", n, err)
	}
}

// TestDeleteSynced verifies only synced rows are purged.
func TestDeleteSynced(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	now := time.Now().Unix()

	kept, _ := repo.InsertSurveyEntry(ctx, testEntry("S1", "A", "Z1"))
	gone, _ := repo.InsertSurveyEntry(ctx, testEntry("S1", "A", "Z2"))
	photo, _ := repo.InsertPhoto(ctx, &models.PendingPhoto{SessionID: "S1", CabinetID: "A", ZoneID: "Z2", Data: []byte{1}, CreatedAt: now})

	repo.SetSurveyEntrySynced(ctx, gone)
	repo.SetPhotoSynced(ctx, photo)

	n, err := repo.DeleteSynced(ctx)
	if err != nil {
		t.Fatalf("DeleteSynced() failed: %v", err)
	}
	if n != 2 {
		t.Errorf("DeleteSynced() = %d, want 2", n)
	}

	surveys, _ := repo.CountSurveyEntries(ctx, false)
	synced, _ := repo.CountSurveyEntries(ctx, true)
	photos, _ := repo.CountPhotos(ctx, true)
	if surveys != 1 || synced != 0 || photos != 0 {
		t.Errorf("after purge: unsynced=%d synced=%d syncedPhotos=%d", surveys, synced, photos)
	}
	if _, err := repo.GetSurveyEntry(ctx, kept); err != nil {
		t.Errorf("unsynced entry should survive purge: %v", err)
	}
}
