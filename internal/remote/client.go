// Package remote provides the clients that deliver survey records and photo
// binaries to the hosted backend.
package remote

import (
	"context"

	"github.com/kimhsiao/fieldcapture/backend/internal/models"
)

// RecordSubmitter inserts survey records into the remote store.
type RecordSubmitter interface {
	// SubmitSurveyRecord inserts one record and returns its remote identifier.
	// Failures carry REMOTE_ERROR or AUTH_FAULT.
	SubmitSurveyRecord(ctx context.Context, record *models.SurveyRecord) (string, error)
}

// ObjectUploader stores binaries and returns their public URL.
type ObjectUploader interface {
	// Upload writes data under destination, overwriting any existing object.
	// Failures carry UPLOAD_ERROR.
	Upload(ctx context.Context, destination string, data []byte, contentType string) (string, error)
}

// Client is everything the sync engine needs from the backend.
type Client interface {
	RecordSubmitter
	UploadBinary(ctx context.Context, data []byte, destination, contentType string) (string, error)
}

// Gateway composes a record submitter and an object uploader into a Client.
type Gateway struct {
	records RecordSubmitter
	objects ObjectUploader
}

// NewGateway creates a Gateway.
func NewGateway(records RecordSubmitter, objects ObjectUploader) *Gateway {
	return &Gateway{records: records, objects: objects}
}

// SubmitSurveyRecord delegates to the record submitter.
func (g *Gateway) SubmitSurveyRecord(ctx context.Context, record *models.SurveyRecord) (string, error) {
	return g.records.SubmitSurveyRecord(ctx, record)
}

// UploadBinary delegates to the object uploader.
func (g *Gateway) UploadBinary(ctx context.Context, data []byte, destination, contentType string) (string, error) {
	return g.objects.Upload(ctx, destination, data, contentType)
}
