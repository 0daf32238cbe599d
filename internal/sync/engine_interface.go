// Package sync provides synchronization interfaces and implementations.
package sync

import (
	"context"

	"github.com/kimhsiao/fieldcapture/backend/internal/media"
	"github.com/kimhsiao/fieldcapture/backend/internal/models"
)

// Syncer runs synchronization passes.
// This interface allows for mocking in tests and alternative implementations.
type Syncer interface {
	// SyncAll drains the offline queue to the remote store.
	// Returns SYNC_IN_PROGRESS if another pass is running.
	SyncAll(ctx context.Context) (*models.SyncResult, error)

	// IsSyncing reports whether a pass is currently running.
	IsSyncing() bool

	// SetProgressHandler sets the handler notified after each entry.
	SetProgressHandler(handler ProgressHandler)
}

// Queue is the part of the offline store the engine drives.
type Queue interface {
	ListUnsyncedSurveyEntries(ctx context.Context) ([]*models.PendingSurveyEntry, error)
	ListUnsyncedPhotos(ctx context.Context) ([]*models.PendingPhoto, error)
	FindUnsyncedPhotos(ctx context.Context, key models.MatchKey) ([]*models.PendingPhoto, error)
	MarkSurveyEntrySynced(ctx context.Context, id int64) error
	MarkPhotoSynced(ctx context.Context, id int64) error
	CountUnsynced(ctx context.Context) (models.PendingCount, error)
	PurgeSynced(ctx context.Context) (int64, error)
}

// Compressor bounds the size of a photo before upload.
type Compressor interface {
	Compress(data []byte, maxSizeMB float64) (*media.Compressed, error)
}

// Progress is reported after each survey entry of a pass.
type Progress struct {
	Done    int    `json:"done"`
	Total   int    `json:"total"`
	Current string `json:"current"` // ticket number
}

// ProgressHandler receives progress updates. It is called on the syncing
// goroutine and must not block.
type ProgressHandler func(Progress)
