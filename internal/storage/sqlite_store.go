package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roman-kulish/imu-alignment/internal/align"
	"github.com/roman-kulish/imu-alignment/internal/imu"
)

const (
	maxBatchSize = 100

	samplePlaceholder = "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
	sampleColumns     = 11
)

// WithMaxBatchSize sets the maximum number of samples written by a single
// INSERT statement
func WithMaxBatchSize(size int) func(*SqliteStore) {
	return func(s *SqliteStore) {
		s.maxBatchSize = size
	}
}

// SqliteStore handles database operations
type SqliteStore struct {
	dbPath       string
	maxBatchSize int

	writeDB     *sql.DB
	writeDBOnce sync.Once
	writeDBErr  error

	readDB     *sql.DB
	readDBOnce sync.Once
	readDBErr  error

	closeOnce sync.Once
	closeErr  error
}

// NewSqliteStore creates a store backed by the Sqlite database at dbPath.
// Connections are opened lazily; the schema is created on first write.
func NewSqliteStore(dbPath string, options ...func(*SqliteStore)) *SqliteStore {
	s := SqliteStore{
		dbPath:       dbPath,
		maxBatchSize: maxBatchSize,
	}
	for _, option := range options {
		option(&s)
	}
	if s.maxBatchSize <= 0 {
		s.maxBatchSize = maxBatchSize
	}
	return &s
}

func runSQLCommand(db *sql.DB, sql string) error {
	_, err := db.Exec(sql)
	return err
}

func (s *SqliteStore) getWriteDB() (*sql.DB, error) {
	s.writeDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on"))
		if err != nil {
			s.writeDBErr = fmt.Errorf("opening write connection: %w", err)
			return
		}

		if err = runSQLCommand(db, initSchemaSQL); err != nil {
			_ = db.Close()
			s.writeDBErr = fmt.Errorf("initializing schema: %w", err)
			return
		}

		s.writeDB = db
	})

	return s.writeDB, s.writeDBErr
}

func (s *SqliteStore) getReadDB() (*sql.DB, error) {
	s.readDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "mode=ro"))
		if err != nil {
			s.readDBErr = fmt.Errorf("opening read connection: %w", err)
			return
		}
		s.readDB = db
	})

	return s.readDB, s.readDBErr
}

func (s *SqliteStore) CreateSession(ctx context.Context, source string, devices int, config any) (sessionID int64, err error) {
	configData, err := marshalConfig(config)
	if err != nil {
		return
	}

	db, err := s.getWriteDB()
	if err != nil {
		err = fmt.Errorf("getting write connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, insertSessionSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	result, err := stmt.ExecContext(ctx, source, devices, configData)
	if err != nil {
		err = fmt.Errorf("inserting session: %w", err)
		return
	}

	sessionID, err = result.LastInsertId()
	if err != nil {
		err = fmt.Errorf("getting session ID: %w", err)
	}
	return
}

func (s *SqliteStore) Session(ctx context.Context, id int64) (session *Session, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, selectSessionSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	var sess Session
	var config sql.NullString
	if err = stmt.QueryRowContext(ctx, id).Scan(&sess.ID, &sess.StartTime, &sess.Source, &sess.Devices, &config); err != nil {
		err = fmt.Errorf("scanning session: %w", err)
		return
	}
	if config.Valid {
		sess.Config = &config.String
	}

	return &sess, nil
}

func (s *SqliteStore) Sessions(ctx context.Context) (sessions []*Session, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectSessionsSQL)
	if err != nil {
		err = fmt.Errorf("querying sessions: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var sess Session
		var config sql.NullString
		if err = rows.Scan(&sess.ID, &sess.StartTime, &sess.Source, &sess.Devices, &config); err != nil {
			err = fmt.Errorf("scanning session: %w", err)
			return
		}
		if config.Valid {
			sess.Config = &config.String
		}
		sessions = append(sessions, &sess)
	}
	err = rows.Err()
	return
}

func (s *SqliteStore) StoreLog(ctx context.Context, sessionID int64, log *imu.Log) (err error) {
	if log.Decoded == 0 {
		return
	}

	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollbackWithError(tx, &err)

	var seq int64
	if err = tx.QueryRowContext(ctx, selectMaxSeqSQL, sessionID).Scan(&seq); err != nil {
		return fmt.Errorf("reading last sequence number: %w", err)
	}

	data := make([]*sampleData, 0, log.Decoded)
	for _, stream := range log.Streams {
		for i := 0; i < stream.Len(); i++ {
			seq++
			data = append(data, toSampleData(sessionID, seq, stream.At(i)))
		}
	}

	for chunk := range slices.Chunk(data, s.maxBatchSize) {
		if err = insertSamples(ctx, tx, chunk); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

func insertSamples(ctx context.Context, tx *sql.Tx, chunk []*sampleData) error {
	values := make([]any, 0, len(chunk)*sampleColumns)

	var sb strings.Builder
	sb.WriteString(insertSampleSQL)

	for i, data := range chunk {
		values = append(values,
			data.SessionID,
			data.Seq,
			data.DeviceID,
			data.Battery,
			data.Counter,
			data.Q1,
			data.Q2,
			data.Q3,
			data.Q4,
			data.Timestamp,
			data.TimeOfDay,
		)

		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(samplePlaceholder)
	}

	if _, err := tx.ExecContext(ctx, sb.String(), values...); err != nil {
		return fmt.Errorf("batch inserting samples: %w", err)
	}
	return nil
}

func (s *SqliteStore) ReadStreams(ctx context.Context, sessionID int64, devices int, opts ...ReaderOption) ([]imu.DeviceStream, error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}
	return newStreamReader(db, sessionID, devices, opts...).read(ctx)
}

func (s *SqliteStore) StoreStatistics(ctx context.Context, sessionID int64, policy string, stats *align.LossStatistics) (statisticsID int64, err error) {
	data, err := toStatisticsData(policy, stats)
	if err != nil {
		return
	}

	db, err := s.getWriteDB()
	if err != nil {
		err = fmt.Errorf("getting write connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, insertStatisticsSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	result, err := stmt.ExecContext(ctx,
		sessionID,
		data.Policy,
		data.TotalRows,
		data.FullRows,
		data.EmptyRows,
		data.FillCount,
		data.TimeWindowMs,
		data.Histogram,
		data.Devices,
	)
	if err != nil {
		err = fmt.Errorf("inserting statistics: %w", err)
		return
	}

	statisticsID, err = result.LastInsertId()
	if err != nil {
		err = fmt.Errorf("getting statistics ID: %w", err)
	}
	return
}

func (s *SqliteStore) Statistics(ctx context.Context, sessionID int64) (records []*StatisticsRecord, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectStatisticsSQL, sessionID)
	if err != nil {
		err = fmt.Errorf("querying statistics: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var data statisticsData
		err = rows.Scan(
			&data.ID,
			&data.CreatedAt,
			&data.Policy,
			&data.TotalRows,
			&data.FullRows,
			&data.EmptyRows,
			&data.FillCount,
			&data.TimeWindowMs,
			&data.Histogram,
			&data.Devices,
		)
		if err != nil {
			err = fmt.Errorf("scanning statistics: %w", err)
			return
		}

		var rec *StatisticsRecord
		if rec, err = fromStatisticsData(&data); err != nil {
			return
		}
		records = append(records, rec)
	}
	err = rows.Err()
	return
}

// Source adapts a stored session to a live window stream source
func (s *SqliteStore) Source(sessionID int64, devices int) align.StreamSource {
	return &sessionSource{store: s, sessionID: sessionID, devices: devices}
}

func (s *SqliteStore) Close() error {
	s.closeOnce.Do(func() {
		var writeErr, readErr error

		if s.writeDB != nil {
			_ = runSQLCommand(s.writeDB, initIndexesSQL)

			writeErr = s.writeDB.Close()
			s.writeDB = nil
		}

		if s.readDB != nil {
			readErr = s.readDB.Close()
			s.readDB = nil
		}

		s.closeErr = errors.Join(writeErr, readErr)
	})

	return s.closeErr
}
