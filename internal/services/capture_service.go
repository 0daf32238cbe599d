// Package services provides the capture orchestration used by the desktop
// server, the CLI and the mobile bindings.
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/kimhsiao/fieldcapture/backend/internal/errors"
	"github.com/kimhsiao/fieldcapture/backend/internal/logging"
	"github.com/kimhsiao/fieldcapture/backend/internal/media"
	"github.com/kimhsiao/fieldcapture/backend/internal/models"
	"github.com/kimhsiao/fieldcapture/backend/internal/remote"
	syncpkg "github.com/kimhsiao/fieldcapture/backend/internal/sync"
	"github.com/kimhsiao/fieldcapture/backend/internal/uuid"
)

// Queue is the part of the offline store the capture path writes to.
type Queue interface {
	EnqueueSurveyEntry(ctx context.Context, entry *models.PendingSurveyEntry) (int64, error)
	EnqueuePhoto(ctx context.Context, photo *models.PendingPhoto) (int64, error)
	DeleteSurveyEntry(ctx context.Context, id int64) error
	DeletePhoto(ctx context.Context, id int64) error
	CountUnsynced(ctx context.Context) (models.PendingCount, error)
}

// Coordinator is the part of the sync coordinator the service drives.
type Coordinator interface {
	IsOnline() bool
	TriggerSync(ctx context.Context) (*models.SyncResult, error)
	RefreshPending(ctx context.Context) (models.PendingCount, error)
}

// CaptureInput is one inspection record as entered by the technician.
type CaptureInput struct {
	SessionID    string   `json:"session_id,omitempty"`
	CabinetID    string   `json:"cabinet_id"`
	ZoneID       string   `json:"zone_id"`
	ZoneName     string   `json:"zone_name"`
	Depth        float64  `json:"depth"`
	AlarmCount   int      `json:"alarm_count"`
	OilLevel     string   `json:"oil_level"`
	TicketNumber string   `json:"ticket_number,omitempty"`
	PhotoRefs    []string `json:"photo_refs,omitempty"` // already-remote URLs
	Photos       [][]byte `json:"-"`                    // encoded images
}

// SaveOutcome reports where a captured record went.
type SaveOutcome struct {
	Queued       bool     `json:"queued"`
	EntryID      int64    `json:"entry_id,omitempty"`
	RecordID     string   `json:"record_id,omitempty"`
	SessionID    string   `json:"session_id"`
	TicketNumber string   `json:"ticket_number"`
	PhotoURLs    []string `json:"photo_urls,omitempty"`
	PhotosQueued int      `json:"photos_queued"`
}

// CaptureService saves records directly when online and queues them otherwise.
type CaptureService struct {
	queue       Queue
	compressor  syncpkg.Compressor
	remote      remote.Client
	coordinator Coordinator
	maxPhotoMB  float64
	now         func() time.Time
}

// NewCaptureService creates a CaptureService.
func NewCaptureService(queue Queue, compressor syncpkg.Compressor, client remote.Client, coordinator Coordinator, maxPhotoMB float64) *CaptureService {
	if maxPhotoMB <= 0 {
		maxPhotoMB = syncpkg.DefaultMaxPhotoMB
	}
	return &CaptureService{
		queue:       queue,
		compressor:  compressor,
		remote:      client,
		coordinator: coordinator,
		maxPhotoMB:  maxPhotoMB,
		now:         time.Now,
	}
}

// normalizeID makes IDs typed on different keyboards compare equal, since the
// (session, cabinet, zone) triple is matched byte for byte.
func normalizeID(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func validate(in *CaptureInput) error {
	in.CabinetID = normalizeID(in.CabinetID)
	in.ZoneID = normalizeID(in.ZoneID)
	in.SessionID = normalizeID(in.SessionID)

	switch {
	case in.CabinetID == "":
		return errors.New(errors.ErrInvalid, "cabinet is required")
	case in.ZoneID == "":
		return errors.New(errors.ErrInvalid, "zone is required")
	case in.Depth < 0:
		return errors.New(errors.ErrInvalid, "depth must not be negative")
	case in.AlarmCount < 0:
		return errors.New(errors.ErrInvalid, "alarm count must not be negative")
	}
	for i, p := range in.Photos {
		if !media.IsImage(p) {
			return errors.New(errors.ErrInvalid, fmt.Sprintf("photo %d is not an image", i+1))
		}
		if err := media.CheckDecodable(p); err != nil {
			return errors.Wrap(errors.ErrInvalid, fmt.Sprintf("photo %d cannot be decoded", i+1), err)
		}
	}
	return nil
}

// SaveRecord persists one capture. Online, photos are compressed and uploaded
// and the record is submitted directly; any remote failure falls back to the
// queue. Offline, the record and its photos are queued. An error means the
// capture was not persisted anywhere.
func (s *CaptureService) SaveRecord(ctx context.Context, in CaptureInput) (*SaveOutcome, error) {
	if err := validate(&in); err != nil {
		return nil, err
	}
	if in.SessionID == "" {
		in.SessionID = uuid.NewSessionID()
	}
	if in.TicketNumber == "" {
		in.TicketNumber = uuid.NewTicketNumber(s.now())
	}

	if s.coordinator.IsOnline() {
		outcome, err := s.saveOnline(ctx, &in)
		if err == nil {
			return outcome, nil
		}
		if !errors.IsRemote(err) {
			return nil, err
		}
		logging.Warn("Direct save failed, queueing record", map[string]interface{}{
			"ticket": in.TicketNumber,
			"error":  err.Error(),
		})
	}
	return s.enqueue(ctx, &in)
}

// saveOnline uploads photos then submits the record. Photos uploaded before a
// failure are moved to PhotoRefs so the queued fallback does not resend them.
func (s *CaptureService) saveOnline(ctx context.Context, in *CaptureInput) (*SaveOutcome, error) {
	uploaded := make([]string, 0, len(in.Photos))
	for i, data := range in.Photos {
		compressed, err := s.compressor.Compress(data, s.maxPhotoMB)
		if err != nil {
			return nil, err
		}
		dest := fmt.Sprintf("%s/%s/%s/%s-%d.jpg", in.SessionID, in.CabinetID, in.ZoneID, in.TicketNumber, i+1)
		url, err := s.remote.UploadBinary(ctx, compressed.Data, dest, media.DetectContentType(compressed.Data))
		if err != nil {
			in.PhotoRefs = append(in.PhotoRefs, uploaded...)
			in.Photos = in.Photos[i:]
			return nil, err
		}
		uploaded = append(uploaded, url)
	}
	in.PhotoRefs = append(in.PhotoRefs, uploaded...)
	in.Photos = nil

	entry := toEntry(in)
	entry.CreatedAt = s.now().Unix()
	record := entry.ToRecord(nil)

	recordID, err := s.remote.SubmitSurveyRecord(ctx, record)
	if err != nil {
		return nil, err
	}

	logging.Info("Survey saved", map[string]interface{}{
		"ticket":    in.TicketNumber,
		"record_id": recordID,
		"photos":    len(record.PhotoURLs),
	})
	return &SaveOutcome{
		RecordID:     recordID,
		SessionID:    in.SessionID,
		TicketNumber: in.TicketNumber,
		PhotoURLs:    record.PhotoURLs,
	}, nil
}

// enqueue writes the entry and its photos to the offline queue. If a photo
// cannot be written, everything written for this capture is removed again.
func (s *CaptureService) enqueue(ctx context.Context, in *CaptureInput) (*SaveOutcome, error) {
	entry := toEntry(in)
	entryID, err := s.queue.EnqueueSurveyEntry(ctx, entry)
	if err != nil {
		return nil, err
	}

	photoIDs := make([]int64, 0, len(in.Photos))
	for _, data := range in.Photos {
		photo := &models.PendingPhoto{
			SessionID: in.SessionID,
			CabinetID: in.CabinetID,
			ZoneID:    in.ZoneID,
			Data:      data,
		}
		id, err := s.queue.EnqueuePhoto(ctx, photo)
		if err != nil {
			s.rollback(ctx, entryID, photoIDs)
			return nil, err
		}
		photoIDs = append(photoIDs, id)
	}

	if _, err := s.coordinator.RefreshPending(ctx); err != nil {
		logging.Debug("Pending refresh after enqueue failed", map[string]interface{}{"error": err.Error()})
	}

	return &SaveOutcome{
		Queued:       true,
		EntryID:      entryID,
		SessionID:    in.SessionID,
		TicketNumber: in.TicketNumber,
		PhotoURLs:    in.PhotoRefs,
		PhotosQueued: len(photoIDs),
	}, nil
}

func (s *CaptureService) rollback(ctx context.Context, entryID int64, photoIDs []int64) {
	if err := s.queue.DeleteSurveyEntry(ctx, entryID); err != nil {
		logging.Error("Failed to roll back queued entry", err, map[string]interface{}{"id": entryID})
	}
	for _, id := range photoIDs {
		if err := s.queue.DeletePhoto(ctx, id); err != nil {
			logging.Error("Failed to roll back queued photo", err, map[string]interface{}{"id": id})
		}
	}
}

func toEntry(in *CaptureInput) *models.PendingSurveyEntry {
	return &models.PendingSurveyEntry{
		SessionID:    in.SessionID,
		CabinetID:    in.CabinetID,
		ZoneID:       in.ZoneID,
		ZoneName:     in.ZoneName,
		Depth:        in.Depth,
		AlarmCount:   in.AlarmCount,
		OilLevel:     in.OilLevel,
		TicketNumber: in.TicketNumber,
		PhotoRefs:    in.PhotoRefs,
	}
}

// SyncAll runs a pass on user request.
func (s *CaptureService) SyncAll(ctx context.Context) (*models.SyncResult, error) {
	return s.coordinator.TriggerSync(ctx)
}

// GetPendingCount returns the number of queued entries and photos.
func (s *CaptureService) GetPendingCount(ctx context.Context) (models.PendingCount, error) {
	return s.queue.CountUnsynced(ctx)
}

// HasDataToSync reports whether anything is queued.
func (s *CaptureService) HasDataToSync(ctx context.Context) (bool, error) {
	count, err := s.queue.CountUnsynced(ctx)
	if err != nil {
		return false, err
	}
	return !count.IsZero(), nil
}
