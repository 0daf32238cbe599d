package models

import "time"

// SyncResult summarizes one synchronization pass. It is never persisted.
type SyncResult struct {
	Success       bool          `json:"success"`
	SurveysSynced int           `json:"surveys_synced"`
	PhotosSynced  int           `json:"photos_synced"`
	Errors        []string      `json:"errors"`
	Purged        int64         `json:"purged"`
	StartedAt     time.Time     `json:"started_at"`
	FinishedAt    time.Time     `json:"finished_at"`
	Duration      time.Duration `json:"duration"`
}

// NewSyncResult returns a result that is successful until an error is added.
func NewSyncResult() *SyncResult {
	return &SyncResult{
		Success:   true,
		Errors:    []string{},
		StartedAt: time.Now(),
	}
}

// AddError records a failed item and clears the success flag.
func (r *SyncResult) AddError(msg string) {
	r.Success = false
	r.Errors = append(r.Errors, msg)
}

// Finish stamps the end time.
func (r *SyncResult) Finish() {
	r.FinishedAt = time.Now()
	r.Duration = r.FinishedAt.Sub(r.StartedAt)
}

// PendingCount is the number of unsynced records in the local queue.
type PendingCount struct {
	Surveys int `json:"surveys"`
	Photos  int `json:"photos"`
	Total   int `json:"total"`
}

// NewPendingCount builds a count with Total filled in.
func NewPendingCount(surveys, photos int) PendingCount {
	return PendingCount{Surveys: surveys, Photos: photos, Total: surveys + photos}
}

// IsZero reports whether nothing is waiting to be synced.
func (c PendingCount) IsZero() bool {
	return c.Total == 0
}
