// Package db provides CRUD repository operations for the offline queue tables.
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/kimhsiao/fieldcapture/backend/internal/models"
)

// Repository provides row-level operations on pending survey entries and
// pending photos. It holds no queue semantics; see sync/queue for those.
type Repository struct {
	db *sql.DB

	// Prepared statement cache for the hot sync-loop queries.
	// Statements are prepared on first use and cached for reuse.
	stmtCache sync.Map // map[string]*sql.Stmt
}

// NewRepository creates a new Repository instance.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// PrepareStmt gets or creates a prepared statement from cache.
func (r *Repository) PrepareStmt(query string) (*sql.Stmt, error) {
	if stmt, ok := r.stmtCache.Load(query); ok {
		return stmt.(*sql.Stmt), nil
	}

	stmt, err := r.db.Prepare(query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}

	// If another goroutine stored one first, use it and close ours
	actual, loaded := r.stmtCache.LoadOrStore(query, stmt)
	if loaded {
		stmt.Close()
		return actual.(*sql.Stmt), nil
	}

	return stmt, nil
}

// Close closes all cached prepared statements.
// Should be called when the Repository is no longer needed.
func (r *Repository) Close() error {
	var firstErr error
	r.stmtCache.Range(func(key, value interface{}) bool {
		stmt := value.(*sql.Stmt)
		if err := stmt.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		r.stmtCache.Delete(key)
		return true
	})
	return firstErr
}

// =====================================================
// PendingSurveyEntry Operations
// =====================================================

const surveyColumns = `id, session_id, cabinet_id, zone_id, zone_name, depth,
	alarm_count, oil_level, ticket_number, photo_refs, created_at, synced`

// InsertSurveyEntry inserts an entry and returns its assigned identifier.
func (r *Repository) InsertSurveyEntry(ctx context.Context, entry *models.PendingSurveyEntry) (int64, error) {
	refs := entry.PhotoRefs
	if refs == nil {
		refs = []string{}
	}
	refsJSON, err := json.Marshal(refs)
	if err != nil {
		return 0, fmt.Errorf("failed to encode photo refs: %w", err)
	}

	query := `
	INSERT INTO pending_survey_entries (session_id, cabinet_id, zone_id, zone_name, depth,
		alarm_count, oil_level, ticket_number, photo_refs, created_at, synced)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query, entry.SessionID, entry.CabinetID, entry.ZoneID,
		entry.ZoneName, entry.Depth, entry.AlarmCount, entry.OilLevel, entry.TicketNumber,
		string(refsJSON), entry.CreatedAt, entry.Synced)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetSurveyEntry retrieves an entry by identifier.
func (r *Repository) GetSurveyEntry(ctx context.Context, id int64) (*models.PendingSurveyEntry, error) {
	stmt, err := r.PrepareStmt(`SELECT ` + surveyColumns + ` FROM pending_survey_entries WHERE id = ?`)
	if err != nil {
		return nil, err
	}
	return scanSurveyEntry(stmt.QueryRowContext(ctx, id))
}

// ListSurveyEntries returns entries with the given synced flag, oldest first.
func (r *Repository) ListSurveyEntries(ctx context.Context, synced bool) ([]*models.PendingSurveyEntry, error) {
	stmt, err := r.PrepareStmt(`SELECT ` + surveyColumns + ` FROM pending_survey_entries WHERE synced = ? ORDER BY id`)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.QueryContext(ctx, synced)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.PendingSurveyEntry
	for rows.Next() {
		entry, err := scanSurveyEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// SetSurveyEntrySynced flips the synced flag and reports rows changed.
func (r *Repository) SetSurveyEntrySynced(ctx context.Context, id int64) (int64, error) {
	stmt, err := r.PrepareStmt(`UPDATE pending_survey_entries SET synced = 1 WHERE id = ? AND synced = 0`)
	if err != nil {
		return 0, err
	}
	result, err := stmt.ExecContext(ctx, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// DeleteSurveyEntry permanently removes an entry.
func (r *Repository) DeleteSurveyEntry(ctx context.Context, id int64) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM pending_survey_entries WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// CountSurveyEntries counts entries with the given synced flag.
func (r *Repository) CountSurveyEntries(ctx context.Context, synced bool) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pending_survey_entries WHERE synced = ?`, synced).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSurveyEntry(row rowScanner) (*models.PendingSurveyEntry, error) {
	var entry models.PendingSurveyEntry
	var refs string
	err := row.Scan(&entry.ID, &entry.SessionID, &entry.CabinetID, &entry.ZoneID,
		&entry.ZoneName, &entry.Depth, &entry.AlarmCount, &entry.OilLevel,
		&entry.TicketNumber, &refs, &entry.CreatedAt, &entry.Synced)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(refs), &entry.PhotoRefs); err != nil {
		return nil, fmt.Errorf("failed to decode photo refs of entry %d: %w", entry.ID, err)
	}
	return &entry, nil
}

// =====================================================
// PendingPhoto Operations
// =====================================================

const photoColumns = `id, session_id, cabinet_id, zone_id, data, created_at, synced`

// InsertPhoto inserts a photo and returns its assigned identifier.
func (r *Repository) InsertPhoto(ctx context.Context, photo *models.PendingPhoto) (int64, error) {
	query := `
	INSERT INTO pending_photos (session_id, cabinet_id, zone_id, data, created_at, synced)
	VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query, photo.SessionID, photo.CabinetID, photo.ZoneID,
		photo.Data, photo.CreatedAt, photo.Synced)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// ListPhotos returns photos with the given synced flag, oldest first.
func (r *Repository) ListPhotos(ctx context.Context, synced bool) ([]*models.PendingPhoto, error) {
	stmt, err := r.PrepareStmt(`SELECT ` + photoColumns + ` FROM pending_photos WHERE synced = ? ORDER BY id`)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.QueryContext(ctx, synced)
	if err != nil {
		return nil, err
	}
	return collectPhotos(rows)
}

// ListPhotosByKey returns photos owned by the triple with the given synced flag.
func (r *Repository) ListPhotosByKey(ctx context.Context, key models.MatchKey, synced bool) ([]*models.PendingPhoto, error) {
	stmt, err := r.PrepareStmt(`SELECT ` + photoColumns + ` FROM pending_photos
		WHERE session_id = ? AND cabinet_id = ? AND zone_id = ? AND synced = ? ORDER BY id`)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.QueryContext(ctx, key.SessionID, key.CabinetID, key.ZoneID, synced)
	if err != nil {
		return nil, err
	}
	return collectPhotos(rows)
}

func collectPhotos(rows *sql.Rows) ([]*models.PendingPhoto, error) {
	defer rows.Close()

	var photos []*models.PendingPhoto
	for rows.Next() {
		var photo models.PendingPhoto
		if err := rows.Scan(&photo.ID, &photo.SessionID, &photo.CabinetID, &photo.ZoneID,
			&photo.Data, &photo.CreatedAt, &photo.Synced); err != nil {
			return nil, err
		}
		photos = append(photos, &photo)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return photos, nil
}

// SetPhotoSynced flips the synced flag and reports rows changed.
func (r *Repository) SetPhotoSynced(ctx context.Context, id int64) (int64, error) {
	stmt, err := r.PrepareStmt(`UPDATE pending_photos SET synced = 1 WHERE id = ? AND synced = 0`)
	if err != nil {
		return 0, err
	}
	result, err := stmt.ExecContext(ctx, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// DeletePhoto permanently removes a photo.
func (r *Repository) DeletePhoto(ctx context.Context, id int64) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM pending_photos WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// CountPhotos counts photos with the given synced flag.
func (r *Repository) CountPhotos(ctx context.Context, synced bool) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pending_photos WHERE synced = ?`, synced).Scan(&n)
	return n, err
}

// =====================================================
// Cleanup
// =====================================================

// DeleteSynced removes every synced row from both tables in one transaction
// and returns the number of rows removed.
func (r *Repository) DeleteSynced(ctx context.Context) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var total int64
	for _, table := range []string{"pending_survey_entries", "pending_photos"} {
		result, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE synced = 1`)
		if err != nil {
			return 0, fmt.Errorf("failed to purge %s: %w", table, err)
		}
		n, _ := result.RowsAffected()
		total += n
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return total, nil
}
