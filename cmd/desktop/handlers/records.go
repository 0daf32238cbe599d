package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/kimhsiao/fieldcapture/backend/internal/errors"
	"github.com/kimhsiao/fieldcapture/backend/internal/media"
	"github.com/kimhsiao/fieldcapture/backend/internal/services"
)

// MaxRecordBody bounds the size of a record request including its photos.
const MaxRecordBody = 64 << 20

// Recorder saves captured records.
type Recorder interface {
	SaveRecord(ctx context.Context, in services.CaptureInput) (*services.SaveOutcome, error)
}

// RecordHandler handles record capture.
type RecordHandler struct {
	recorder Recorder
}

// NewRecordHandler creates a new RecordHandler.
func NewRecordHandler(recorder Recorder) *RecordHandler {
	return &RecordHandler{recorder: recorder}
}

type recordRequest struct {
	services.CaptureInput
	Photos []string `json:"photos"` // data URLs or bare base64
}

// SaveRecord handles POST /api/records.
// Returns 201 when the record reached the remote and 202 when it was queued.
func (h *RecordHandler) SaveRecord(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRecordBody)

	var req recordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Wrap(errors.ErrInvalid, "invalid request body", err))
		return
	}

	in := req.CaptureInput
	for i, p := range req.Photos {
		data, err := media.DecodeDataURL(p)
		if err != nil {
			writeError(w, errors.Wrap(errors.ErrInvalid, fmt.Sprintf("photo %d", i+1), err))
			return
		}
		in.Photos = append(in.Photos, data)
	}

	outcome, err := h.recorder.SaveRecord(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusCreated
	if outcome.Queued {
		status = http.StatusAccepted
	}
	writeJSON(w, status, outcome)
}
