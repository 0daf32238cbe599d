// Package sync provides the offline queue synchronization engine.
package sync

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/kimhsiao/fieldcapture/backend/internal/errors"
	"github.com/kimhsiao/fieldcapture/backend/internal/logging"
	"github.com/kimhsiao/fieldcapture/backend/internal/media"
	"github.com/kimhsiao/fieldcapture/backend/internal/models"
	"github.com/kimhsiao/fieldcapture/backend/internal/remote"
)

// DefaultMaxPhotoMB is the per-photo upload budget.
const DefaultMaxPhotoMB = 1.0

// Engine uploads queued photos and submits queued survey entries.
//
// A pass processes entries sequentially. Each entry's photos are uploaded
// before its record is submitted, so a submitted record only ever references
// photos that exist remotely. A failed item stays queued for the next pass
// and never aborts the others.
type Engine struct {
	queue      Queue
	compressor Compressor
	remote     remote.Client
	maxPhotoMB float64

	syncing atomic.Bool

	mu       sync.RWMutex
	progress ProgressHandler
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxPhotoMB sets the per-photo size budget.
func WithMaxPhotoMB(mb float64) Option {
	return func(e *Engine) {
		if mb > 0 {
			e.maxPhotoMB = mb
		}
	}
}

// WithProgressHandler sets the initial progress handler.
func WithProgressHandler(handler ProgressHandler) Option {
	return func(e *Engine) {
		e.progress = handler
	}
}

// NewEngine creates a new Engine.
func NewEngine(queue Queue, compressor Compressor, client remote.Client, opts ...Option) *Engine {
	e := &Engine{
		queue:      queue,
		compressor: compressor,
		remote:     client,
		maxPhotoMB: DefaultMaxPhotoMB,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetProgressHandler sets the progress handler. nil disables reporting.
func (e *Engine) SetProgressHandler(handler ProgressHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.progress = handler
}

// IsSyncing reports whether a pass is currently running.
func (e *Engine) IsSyncing() bool {
	return e.syncing.Load()
}

// SyncAll runs one synchronization pass. A started pass always runs to
// completion: cancellation of ctx is ignored so an accepted record is never
// left unmarked. Bounding each remote call is the client's job.
//
// Per-item failures are collected in the result and clear its Success flag;
// the returned error is non-nil only when the pass could not run at all:
// another pass is in progress (SYNC_IN_PROGRESS) or the queue could not be
// listed (STORAGE_FAULT).
func (e *Engine) SyncAll(ctx context.Context) (*models.SyncResult, error) {
	if !e.syncing.CompareAndSwap(false, true) {
		return nil, errors.New(errors.ErrSyncInProgress, "sync already in progress")
	}
	defer e.syncing.Store(false)

	ctx = context.WithoutCancel(ctx)
	result := models.NewSyncResult()

	entries, err := e.queue.ListUnsyncedSurveyEntries(ctx)
	if err != nil {
		logging.ErrorWithCode("Sync aborted", string(errors.CodeOf(err)), err)
		return nil, err
	}

	logging.Info("Sync started", map[string]interface{}{"entries": len(entries)})

	for i, entry := range entries {
		e.syncEntry(ctx, entry, result)
		e.report(Progress{Done: i + 1, Total: len(entries), Current: entry.TicketNumber})
	}

	e.reconcileOrphans(ctx, result)

	purged, err := e.queue.PurgeSynced(ctx)
	if err != nil {
		// Synced rows are retried for purge on the next pass.
		logging.Warn("Purge after sync failed", map[string]interface{}{"error": err.Error()})
	}
	result.Purged = purged
	result.Finish()

	fields := map[string]interface{}{
		"surveys":  result.SurveysSynced,
		"photos":   result.PhotosSynced,
		"errors":   len(result.Errors),
		"purged":   result.Purged,
		"duration": result.Duration.String(),
	}
	if result.Success {
		logging.Info("Sync completed", fields)
	} else {
		logging.Warn("Sync completed with errors", fields)
	}
	return result, nil
}

// syncEntry uploads the entry's photos and submits its record.
func (e *Engine) syncEntry(ctx context.Context, entry *models.PendingSurveyEntry, result *models.SyncResult) {
	photos, err := e.queue.FindUnsyncedPhotos(ctx, entry.Key())
	if err != nil {
		result.AddError(fmt.Sprintf("%s: %v", entry.TicketNumber, err))
		return
	}

	urls := make([]string, 0, len(photos))
	for _, photo := range photos {
		url, err := e.syncPhoto(ctx, photo, result)
		if err != nil {
			logging.Warn("Photo sync failed, skipping photo", map[string]interface{}{
				"ticket":   entry.TicketNumber,
				"photo_id": photo.ID,
				"code":     string(errors.CodeOf(err)),
				"error":    err.Error(),
			})
			result.AddError(fmt.Sprintf("%s photo %d: %v", entry.TicketNumber, photo.ID, err))
			continue
		}
		urls = append(urls, url)
	}

	recordID, err := e.remote.SubmitSurveyRecord(ctx, entry.ToRecord(urls))
	if err != nil {
		logging.ErrorWithCode("Survey submit failed", string(errors.CodeOf(err)), err, map[string]interface{}{
			"ticket": entry.TicketNumber,
		})
		result.AddError(fmt.Sprintf("%s: %v", entry.TicketNumber, err))
		return
	}

	if err := e.queue.MarkSurveyEntrySynced(ctx, entry.ID); err != nil {
		// The record is remote; a later pass will submit it again.
		result.AddError(fmt.Sprintf("%s: submitted as %s but not marked synced: %v", entry.TicketNumber, recordID, err))
		return
	}
	result.SurveysSynced++

	logging.Debug("Survey synced", map[string]interface{}{
		"ticket":    entry.TicketNumber,
		"record_id": recordID,
		"photos":    len(urls),
	})
}

// syncPhoto compresses and uploads one photo and returns its public URL.
// A photo whose upload succeeded but could not be marked synced still yields
// its URL; its next upload lands on the same destination.
func (e *Engine) syncPhoto(ctx context.Context, photo *models.PendingPhoto, result *models.SyncResult) (string, error) {
	compressed, err := e.compressor.Compress(photo.Data, e.maxPhotoMB)
	if err != nil {
		return "", err
	}

	url, err := e.remote.UploadBinary(ctx, compressed.Data, photo.Destination(), media.DetectContentType(compressed.Data))
	if err != nil {
		return "", err
	}

	if err := e.queue.MarkPhotoSynced(ctx, photo.ID); err != nil {
		result.AddError(fmt.Sprintf("photo %d uploaded but not marked synced: %v", photo.ID, err))
		return url, nil
	}
	result.PhotosSynced++
	return url, nil
}

// reconcileOrphans uploads unsynced photos whose entry is no longer pending.
// This happens when a photo failed while its record went through in an
// earlier pass.
func (e *Engine) reconcileOrphans(ctx context.Context, result *models.SyncResult) {
	photos, err := e.queue.ListUnsyncedPhotos(ctx)
	if err != nil {
		result.AddError(fmt.Sprintf("orphan photos: %v", err))
		return
	}
	if len(photos) == 0 {
		return
	}

	entries, err := e.queue.ListUnsyncedSurveyEntries(ctx)
	if err != nil {
		result.AddError(fmt.Sprintf("orphan photos: %v", err))
		return
	}
	pending := make(map[models.MatchKey]bool, len(entries))
	for _, entry := range entries {
		pending[entry.Key()] = true
	}

	for _, photo := range photos {
		if pending[photo.Key()] {
			continue
		}
		if _, err := e.syncPhoto(ctx, photo, result); err != nil {
			result.AddError(fmt.Sprintf("orphan photo %d: %v", photo.ID, err))
		}
	}
}

func (e *Engine) report(p Progress) {
	e.mu.RLock()
	handler := e.progress
	e.mu.RUnlock()
	if handler != nil {
		handler(p)
	}
}
