package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/roman-kulish/imu-alignment/internal/align"
	"github.com/roman-kulish/imu-alignment/internal/imu"
)

// ReaderOption bounds the samples returned by ReadStreams
type ReaderOption func(*streamReader)

// WithStartTime keeps samples whose time of day is at or after start
func WithStartTime(start time.Duration) ReaderOption {
	return func(r *streamReader) {
		r.start = &start
	}
}

// WithEndTime keeps samples whose time of day is at or before end
func WithEndTime(end time.Duration) ReaderOption {
	return func(r *streamReader) {
		r.end = &end
	}
}

// WithTimeRange combines WithStartTime and WithEndTime
func WithTimeRange(start, end time.Duration) ReaderOption {
	return func(r *streamReader) {
		WithStartTime(start)(r)
		WithEndTime(end)(r)
	}
}

type streamReader struct {
	db        *sql.DB
	sessionID int64
	devices   int

	start *time.Duration
	end   *time.Duration
}

func newStreamReader(db *sql.DB, sessionID int64, devices int, opts ...ReaderOption) *streamReader {
	r := streamReader{
		db:        db,
		sessionID: sessionID,
		devices:   devices,
	}
	for _, opt := range opts {
		opt(&r)
	}
	return &r
}

func (r *streamReader) query() (string, []any) {
	args := []any{r.sessionID, r.devices}

	var sb strings.Builder
	sb.WriteString(selectSamplesSQL)

	if r.start != nil {
		sb.WriteString("\n    AND tod_ms >= ?")
		args = append(args, r.start.Milliseconds())
	}
	if r.end != nil {
		sb.WriteString("\n    AND tod_ms <= ?")
		args = append(args, r.end.Milliseconds())
	}
	sb.WriteString("\nORDER BY seq")

	return sb.String(), args
}

func (r *streamReader) read(ctx context.Context) (streams []imu.DeviceStream, err error) {
	if r.devices <= 0 {
		return nil, imu.NewError(imu.KindDeviceMismatch, fmt.Sprintf("invalid device count %d", r.devices))
	}

	query, args := r.query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		err = fmt.Errorf("querying samples: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	var samples []imu.RawSample
	for rows.Next() {
		var data sampleData
		err = rows.Scan(
			&data.DeviceID,
			&data.Battery,
			&data.Counter,
			&data.Q1,
			&data.Q2,
			&data.Q3,
			&data.Q4,
			&data.Timestamp,
		)
		if err != nil {
			err = fmt.Errorf("scanning sample: %w", err)
			return
		}
		samples = append(samples, fromSampleData(&data))
	}
	if err = rows.Err(); err != nil {
		err = fmt.Errorf("reading samples: %w", err)
		return
	}

	return imu.BuildStreams(samples, r.devices), nil
}

// sessionSource serves the samples of a stored session to a live query
type sessionSource struct {
	store     *SqliteStore
	sessionID int64
	devices   int
}

func (s *sessionSource) Streams(ctx context.Context, from time.Duration) ([]imu.DeviceStream, error) {
	return s.store.ReadStreams(ctx, s.sessionID, s.devices, WithStartTime(from))
}

var _ align.StreamSource = (*sessionSource)(nil)
