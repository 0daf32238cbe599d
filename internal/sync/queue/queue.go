// Package queue provides the on-device durable queue of survey entries and
// photos captured without connectivity.
package queue

import (
	"context"
	"time"

	"github.com/kimhsiao/fieldcapture/backend/internal/db"
	"github.com/kimhsiao/fieldcapture/backend/internal/errors"
	"github.com/kimhsiao/fieldcapture/backend/internal/logging"
	"github.com/kimhsiao/fieldcapture/backend/internal/models"
)

// OfflineStore owns every pending survey entry and pending photo. Each
// operation touches a single row (purge aside), so a crash between two calls
// never leaves a half-written record. Storage failures are returned as
// STORAGE_FAULT errors and are not retried.
type OfflineStore struct {
	repo *db.Repository
	db   *db.DB // nil when the caller owns the connection
	now  func() time.Time
}

// NewOfflineStore creates a store over an already-migrated repository.
func NewOfflineStore(repo *db.Repository) *OfflineStore {
	return &OfflineStore{
		repo: repo,
		now:  time.Now,
	}
}

// Open opens (or creates) the queue database in dataDir and applies migrations.
func Open(dataDir string) (*OfflineStore, error) {
	database, err := db.Open(dataDir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrStorageFault, "failed to open offline store", err)
	}
	if err := database.Migrate(); err != nil {
		database.Close()
		return nil, errors.Wrap(errors.ErrMigration, "failed to migrate offline store", err)
	}

	store := NewOfflineStore(db.NewRepository(database.DB))
	store.db = database
	return store, nil
}

// Close releases prepared statements and, when opened via Open, the database.
func (s *OfflineStore) Close() error {
	err := s.repo.Close()
	if s.db != nil {
		if cerr := s.db.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func storageFault(op string, err error) error {
	return errors.Wrap(errors.ErrStorageFault, op, err)
}

func validateKey(key models.MatchKey) error {
	if key.SessionID == "" || key.CabinetID == "" || key.ZoneID == "" {
		return errors.New(errors.ErrInvalid, "session, cabinet and zone are required")
	}
	return nil
}

// EnqueueSurveyEntry persists entry as unsynced and returns its identifier.
// The ID, CreatedAt and Synced fields of entry are overwritten.
func (s *OfflineStore) EnqueueSurveyEntry(ctx context.Context, entry *models.PendingSurveyEntry) (int64, error) {
	if err := validateKey(entry.Key()); err != nil {
		return 0, err
	}
	if entry.TicketNumber == "" {
		return 0, errors.New(errors.ErrInvalid, "ticket number is required")
	}

	entry.CreatedAt = s.now().Unix()
	entry.Synced = false

	id, err := s.repo.InsertSurveyEntry(ctx, entry)
	if err != nil {
		return 0, storageFault("failed to enqueue survey entry", err)
	}
	entry.ID = id

	logging.Info("Survey entry queued", map[string]interface{}{
		"id":     id,
		"ticket": entry.TicketNumber,
		"zone":   entry.ZoneID,
	})
	return id, nil
}

// EnqueuePhoto persists photo as unsynced and returns its identifier.
func (s *OfflineStore) EnqueuePhoto(ctx context.Context, photo *models.PendingPhoto) (int64, error) {
	if err := validateKey(photo.Key()); err != nil {
		return 0, err
	}
	if len(photo.Data) == 0 {
		return 0, errors.New(errors.ErrInvalid, "photo payload is empty")
	}

	photo.CreatedAt = s.now().Unix()
	photo.Synced = false

	id, err := s.repo.InsertPhoto(ctx, photo)
	if err != nil {
		return 0, storageFault("failed to enqueue photo", err)
	}
	photo.ID = id

	logging.Info("Photo queued", map[string]interface{}{
		"id":    id,
		"zone":  photo.ZoneID,
		"bytes": len(photo.Data),
	})
	return id, nil
}

// ListUnsyncedSurveyEntries returns every unsynced entry. Callers must not
// depend on the order.
func (s *OfflineStore) ListUnsyncedSurveyEntries(ctx context.Context) ([]*models.PendingSurveyEntry, error) {
	entries, err := s.repo.ListSurveyEntries(ctx, false)
	if err != nil {
		return nil, storageFault("failed to list survey entries", err)
	}
	return entries, nil
}

// ListUnsyncedPhotos returns every unsynced photo.
func (s *OfflineStore) ListUnsyncedPhotos(ctx context.Context) ([]*models.PendingPhoto, error) {
	photos, err := s.repo.ListPhotos(ctx, false)
	if err != nil {
		return nil, storageFault("failed to list photos", err)
	}
	return photos, nil
}

// FindUnsyncedPhotos returns the unsynced photos whose triple equals key.
func (s *OfflineStore) FindUnsyncedPhotos(ctx context.Context, key models.MatchKey) ([]*models.PendingPhoto, error) {
	photos, err := s.repo.ListPhotosByKey(ctx, key, false)
	if err != nil {
		return nil, storageFault("failed to find photos", err)
	}
	return photos, nil
}

// MarkSurveyEntrySynced flips the entry to synced. Repeated calls and
// unknown identifiers are no-ops.
func (s *OfflineStore) MarkSurveyEntrySynced(ctx context.Context, id int64) error {
	if _, err := s.repo.SetSurveyEntrySynced(ctx, id); err != nil {
		return storageFault("failed to mark survey entry synced", err)
	}
	return nil
}

// MarkPhotoSynced flips the photo to synced. Repeated calls and unknown
// identifiers are no-ops.
func (s *OfflineStore) MarkPhotoSynced(ctx context.Context, id int64) error {
	if _, err := s.repo.SetPhotoSynced(ctx, id); err != nil {
		return storageFault("failed to mark photo synced", err)
	}
	return nil
}

// DeleteSurveyEntry permanently removes an entry.
func (s *OfflineStore) DeleteSurveyEntry(ctx context.Context, id int64) error {
	if _, err := s.repo.DeleteSurveyEntry(ctx, id); err != nil {
		return storageFault("failed to delete survey entry", err)
	}
	return nil
}

// DeletePhoto permanently removes a photo.
func (s *OfflineStore) DeletePhoto(ctx context.Context, id int64) error {
	if _, err := s.repo.DeletePhoto(ctx, id); err != nil {
		return storageFault("failed to delete photo", err)
	}
	return nil
}

// CountUnsynced returns the number of unsynced entries and photos.
func (s *OfflineStore) CountUnsynced(ctx context.Context) (models.PendingCount, error) {
	surveys, err := s.repo.CountSurveyEntries(ctx, false)
	if err != nil {
		return models.PendingCount{}, storageFault("failed to count survey entries", err)
	}
	photos, err := s.repo.CountPhotos(ctx, false)
	if err != nil {
		return models.PendingCount{}, storageFault("failed to count photos", err)
	}
	return models.NewPendingCount(surveys, photos), nil
}

// PurgeSynced deletes every record currently marked synced.
func (s *OfflineStore) PurgeSynced(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteSynced(ctx)
	if err != nil {
		return 0, storageFault("failed to purge synced records", err)
	}
	if n > 0 {
		logging.Info("Purged synced records", map[string]interface{}{"count": n})
	}
	return n, nil
}
