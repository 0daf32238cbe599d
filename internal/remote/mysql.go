package remote

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/kimhsiao/fieldcapture/backend/internal/errors"
	"github.com/kimhsiao/fieldcapture/backend/internal/models"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// MySQLRecordClient inserts records straight into a hosted MySQL table.
type MySQLRecordClient struct {
	db     *sql.DB
	insert string
}

// NewMySQLRecordClient opens a connection pool for dsn. No connection is made
// until the first submit.
func NewMySQLRecordClient(dsn, table string) (*MySQLRecordClient, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, errors.Wrap(errors.ErrConfig, "invalid MySQL DSN", err)
	}
	cfg.ParseTime = true
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, errors.Wrap(errors.ErrConfig, "invalid MySQL config", err)
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(2)
	db.SetConnMaxIdleTime(5 * time.Minute)

	client, err := NewMySQLRecordClientFromDB(db, table)
	if err != nil {
		db.Close()
		return nil, err
	}
	return client, nil
}

// NewMySQLRecordClientFromDB uses an existing pool.
func NewMySQLRecordClientFromDB(db *sql.DB, table string) (*MySQLRecordClient, error) {
	if table == "" {
		table = "survey_records"
	}
	if !tableNamePattern.MatchString(table) {
		return nil, errors.New(errors.ErrConfig, fmt.Sprintf("invalid table name %q", table))
	}

	return &MySQLRecordClient{
		db: db,
		insert: fmt.Sprintf("INSERT INTO `%s` (session_id, cabinet_id, zone_id, zone_name, depth, "+
			"alarm_count, oil_level, ticket_number, photos, captured_at) "+
			"VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", table),
	}, nil
}

// SubmitSurveyRecord inserts record and returns the auto-increment id.
func (c *MySQLRecordClient) SubmitSurveyRecord(ctx context.Context, record *models.SurveyRecord) (string, error) {
	photos, err := json.Marshal(record.PhotoURLs)
	if err != nil {
		return "", errors.Wrap(errors.ErrRemoteError, "failed to encode photo URLs", err)
	}

	result, err := c.db.ExecContext(ctx, c.insert,
		record.SessionID,
		record.CabinetID,
		record.ZoneID,
		record.ZoneName,
		record.Depth,
		record.AlarmCount,
		record.OilLevel,
		record.TicketNumber,
		string(photos),
		record.CapturedAt,
	)
	if err != nil {
		var myErr *mysql.MySQLError
		// 1044/1045: access denied
		if stderrors.As(err, &myErr) && (myErr.Number == 1044 || myErr.Number == 1045) {
			return "", errors.Wrap(errors.ErrAuthFault, "remote database rejected credentials", err)
		}
		return "", errors.Wrap(errors.ErrRemoteError, "failed to insert record", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return "", errors.Wrap(errors.ErrRemoteError, "failed to read inserted id", err)
	}
	return strconv.FormatInt(id, 10), nil
}

// Close closes the connection pool.
func (c *MySQLRecordClient) Close() error {
	return c.db.Close()
}
