package models

import (
	"fmt"
	"time"
)

// PendingPhoto is one captured image awaiting upload.
type PendingPhoto struct {
	ID        int64  `db:"id" json:"id"`
	SessionID string `db:"session_id" json:"session_id"`
	CabinetID string `db:"cabinet_id" json:"cabinet_id"`
	ZoneID    string `db:"zone_id" json:"zone_id"`
	Data      []byte `db:"data" json:"-"`
	CreatedAt int64  `db:"created_at" json:"created_at"`
	Synced    bool   `db:"synced" json:"synced"`
}

// TableName returns the table name for PendingPhoto.
func (PendingPhoto) TableName() string {
	return "pending_photos"
}

// Key returns the photo's owner join key.
func (p *PendingPhoto) Key() MatchKey {
	return MatchKey{SessionID: p.SessionID, CabinetID: p.CabinetID, ZoneID: p.ZoneID}
}

// CreatedAtTime returns the CreatedAt as time.Time.
func (p *PendingPhoto) CreatedAtTime() time.Time {
	return time.Unix(p.CreatedAt, 0)
}

// Destination returns the object key the photo is uploaded under. It is a
// pure function of the photo, so a photo retried in a later pass overwrites
// its earlier upload instead of leaving a second copy behind.
func (p *PendingPhoto) Destination() string {
	return fmt.Sprintf("%s/%s/%s/photo-%d.jpg", p.SessionID, p.CabinetID, p.ZoneID, p.ID)
}
