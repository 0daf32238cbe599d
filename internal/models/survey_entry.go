// Package models provides data model definitions for the field capture backend.
package models

import "time"

// MatchKey is the (session, cabinet, zone) triple that ties offline photos to
// their survey entry. Offline entries exist before any remote identifier is
// assigned, so the triple is the only join key available.
type MatchKey struct {
	SessionID string `json:"session_id"`
	CabinetID string `json:"cabinet_id"`
	ZoneID    string `json:"zone_id"`
}

// PendingSurveyEntry is one inspection record captured while offline.
type PendingSurveyEntry struct {
	ID           int64    `db:"id" json:"id"`
	SessionID    string   `db:"session_id" json:"session_id"`
	CabinetID    string   `db:"cabinet_id" json:"cabinet_id"`
	ZoneID       string   `db:"zone_id" json:"zone_id"`
	ZoneName     string   `db:"zone_name" json:"zone_name"`
	Depth        float64  `db:"depth" json:"depth"`
	AlarmCount   int      `db:"alarm_count" json:"alarm_count"`
	OilLevel     string   `db:"oil_level" json:"oil_level"`
	TicketNumber string   `db:"ticket_number" json:"ticket_number"`
	PhotoRefs    []string `db:"photo_refs" json:"photo_refs"` // JSON array in storage
	CreatedAt    int64    `db:"created_at" json:"created_at"`
	Synced       bool     `db:"synced" json:"synced"`
}

// TableName returns the table name for PendingSurveyEntry.
func (PendingSurveyEntry) TableName() string {
	return "pending_survey_entries"
}

// Key returns the entry's photo join key.
func (e *PendingSurveyEntry) Key() MatchKey {
	return MatchKey{SessionID: e.SessionID, CabinetID: e.CabinetID, ZoneID: e.ZoneID}
}

// CreatedAtTime returns the CreatedAt as time.Time.
func (e *PendingSurveyEntry) CreatedAtTime() time.Time {
	return time.Unix(e.CreatedAt, 0)
}

// SurveyRecord is the remote representation of a survey entry, with photo
// references resolved to public URLs.
type SurveyRecord struct {
	SessionID    string   `json:"session_id"`
	CabinetID    string   `json:"cabinet_id"`
	ZoneID       string   `json:"zone_id"`
	ZoneName     string   `json:"zone_name"`
	Depth        float64  `json:"depth"`
	AlarmCount   int      `json:"alarm_count"`
	OilLevel     string   `json:"oil_level"`
	TicketNumber string   `json:"ticket_number"`
	PhotoURLs    []string `json:"photos"`
	CapturedAt   int64    `json:"captured_at"`
}

// ToRecord builds the remote record for the entry using the given photo URLs.
// Photo references that are already remote are kept ahead of the new URLs.
func (e *PendingSurveyEntry) ToRecord(uploaded []string) *SurveyRecord {
	urls := make([]string, 0, len(e.PhotoRefs)+len(uploaded))
	urls = append(urls, e.PhotoRefs...)
	urls = append(urls, uploaded...)

	return &SurveyRecord{
		SessionID:    e.SessionID,
		CabinetID:    e.CabinetID,
		ZoneID:       e.ZoneID,
		ZoneName:     e.ZoneName,
		Depth:        e.Depth,
		AlarmCount:   e.AlarmCount,
		OilLevel:     e.OilLevel,
		TicketNumber: e.TicketNumber,
		PhotoURLs:    urls,
		CapturedAt:   e.CreatedAt,
	}
}
